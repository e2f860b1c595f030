package gamelist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempGamelist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), GAMELIST_FILENAME)
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(buf)
}

func TestManagedId(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"./9NBLGGH4TNMP.sh", "9NBLGGH4TNMP"},
		{"./manual_game.sh", ""},
		{"./short.sh", ""},
		{"./roms/mario.nes", ""},
		{"./9NBLGGH4TNMP.nsp", ""},
	}
	for _, tt := range tests {
		if got := ManagedId(tt.path); got != tt.want {
			t.Errorf("ManagedId(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestApplyDiff_CreatesFromScratch(t *testing.T) {
	path := tempGamelist(t, "")
	writer := NewWriter(path)

	games := []Game{
		{Path: ScriptPath("AAAAAAAAAAA2"), Name: "Zeta"},
		{Path: ScriptPath("AAAAAAAAAAA1"), Name: "Alpha"},
	}
	if err := writer.ApplyDiff(games); err != nil {
		t.Fatalf("apply: %v", err)
	}

	content := readFile(t, path)
	if !strings.Contains(content, "<name>Alpha</name>") || !strings.Contains(content, "<name>Zeta</name>") {
		t.Fatalf("missing entries:\n%v", content)
	}
	// new entries come out in sort order
	if strings.Index(content, "Alpha") > strings.Index(content, "Zeta") {
		t.Fatalf("entries not sorted:\n%v", content)
	}
}

func TestApplyDiff_PreservesForeignEntries(t *testing.T) {
	existing := `<?xml version="1.0"?>
<gameList>
	<game>
		<path>./AAAAAAAAAAA1.sh</path>
		<name>Managed Game</name>
	</game>
	<game>
		<path>./manual_game.sh</path>
		<name>My Hand Added Game</name>
		<custom>user data</custom>
	</game>
</gameList>
`
	path := tempGamelist(t, existing)
	writer := NewWriter(path)

	// managed game left the catalog
	if err := writer.ApplyDiff(nil); err != nil {
		t.Fatalf("apply: %v", err)
	}

	content := readFile(t, path)
	if strings.Contains(content, "Managed Game") {
		t.Fatalf("stale managed entry survived:\n%v", content)
	}
	if !strings.Contains(content, "My Hand Added Game") || !strings.Contains(content, "<custom>user data</custom>") {
		t.Fatalf("foreign entry damaged:\n%v", content)
	}
}

func TestApplyDiff_PreservesFoldersAndGameAttributes(t *testing.T) {
	existing := `<?xml version="1.0"?>
<gameList>
	<folder>
		<path>./favourites</path>
		<name>Favourites</name>
	</folder>
	<game id="1234" source="ScreenScrapper.fr">
		<path>./scraped_game.sh</path>
		<name>Scraped Game</name>
	</game>
	<game>
		<path>./AAAAAAAAAAA1.sh</path>
		<name>Managed Game</name>
	</game>
</gameList>
`
	path := tempGamelist(t, existing)
	writer := NewWriter(path)

	games := []Game{{Path: ScriptPath("AAAAAAAAAAA1"), Name: "Managed Game"}}
	if err := writer.ApplyDiff(games); err != nil {
		t.Fatalf("apply: %v", err)
	}

	content := readFile(t, path)
	if !strings.Contains(content, "<folder>") || !strings.Contains(content, "<name>Favourites</name>") {
		t.Fatalf("folder node lost:\n%v", content)
	}
	if !strings.Contains(content, `<game id="1234" source="ScreenScrapper.fr">`) {
		t.Fatalf("foreign game attributes lost:\n%v", content)
	}
	if !strings.Contains(content, "<name>Managed Game</name>") {
		t.Fatalf("managed entry missing:\n%v", content)
	}

	// a second rewrite must not mutate the preserved nodes either
	first := content
	if err := writer.ApplyDiff(games); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if second := readFile(t, path); first != second {
		t.Fatalf("rewrite not stable:\n--- first\n%v\n--- second\n%v", first, second)
	}
}

func TestApplyDiff_CarriesOverUserFields(t *testing.T) {
	existing := `<?xml version="1.0"?>
<gameList>
	<game>
		<path>./AAAAAAAAAAA1.sh</path>
		<name>Old Name</name>
		<rating>0.8</rating>
		<playcount>12</playcount>
		<lastplayed>20240101T000000</lastplayed>
	</game>
</gameList>
`
	path := tempGamelist(t, existing)
	writer := NewWriter(path)

	games := []Game{{Path: ScriptPath("AAAAAAAAAAA1"), Name: "New Name"}}
	if err := writer.ApplyDiff(games); err != nil {
		t.Fatalf("apply: %v", err)
	}

	content := readFile(t, path)
	if !strings.Contains(content, "<name>New Name</name>") {
		t.Fatalf("metadata not updated:\n%v", content)
	}
	if !strings.Contains(content, "<rating>0.8</rating>") || !strings.Contains(content, "<playcount>12</playcount>") {
		t.Fatalf("user fields lost:\n%v", content)
	}
}

func TestApplyDiff_Idempotent(t *testing.T) {
	path := tempGamelist(t, "")
	writer := NewWriter(path)

	games := []Game{
		{Path: ScriptPath("AAAAAAAAAAA1"), Name: "Alpha", Desc: "first"},
		{Path: ScriptPath("AAAAAAAAAAA2"), Name: "Beta", SortName: "beta sort"},
	}
	if err := writer.ApplyDiff(games); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	first := readFile(t, path)

	if err := writer.ApplyDiff(games); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	second := readFile(t, path)

	if first != second {
		t.Fatalf("rewrite not byte identical:\n--- first\n%v\n--- second\n%v", first, second)
	}
}

func TestApplyDiff_MalformedExisting(t *testing.T) {
	path := tempGamelist(t, "<gameList><game>")
	writer := NewWriter(path)

	err := writer.ApplyDiff([]Game{{Path: ScriptPath("AAAAAAAAAAA1"), Name: "A"}})
	var metaErr *MetadataError
	if !errors.As(err, &metaErr) {
		t.Fatalf("expected MetadataError, got %v", err)
	}
	// the broken file must be left alone
	if readFile(t, path) != "<gameList><game>" {
		t.Fatal("malformed gamelist was modified")
	}
}

func TestApplyDiff_EscapesMetadata(t *testing.T) {
	path := tempGamelist(t, "")
	writer := NewWriter(path)

	games := []Game{{Path: ScriptPath("AAAAAAAAAAA1"), Name: "Fast & Furious <3"}}
	if err := writer.ApplyDiff(games); err != nil {
		t.Fatalf("apply: %v", err)
	}
	content := readFile(t, path)
	if !strings.Contains(content, "Fast &amp; Furious &lt;3") {
		t.Fatalf("metadata not escaped:\n%v", content)
	}
}
