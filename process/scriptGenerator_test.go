package process

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Boc86/xboxgp-esde-sync/db"
	"github.com/Boc86/xboxgp-esde-sync/settings"
)

func TestGenerateScript(t *testing.T) {
	folder := t.TempDir()
	entry := &db.CatalogEntry{Id: "9NBLGGH4TNMA", Title: "Some Game"}
	launch := &settings.LaunchOptions{CommandTemplate: settings.DEFAULT_LAUNCH_COMMAND}

	path, err := GenerateScript(folder, entry, launch)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if path != filepath.Join(folder, "9NBLGGH4TNMA.sh") {
		t.Fatalf("unexpected path %v", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Fatalf("script mode = %v, want 0755", info.Mode().Perm())
	}

	content, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(content), "#!/bin/bash\n") {
		t.Fatalf("missing shebang:\n%v", string(content))
	}
	if !strings.Contains(string(content), "--connect='9NBLGGH4TNMA'") {
		t.Fatalf("id not substituted:\n%v", string(content))
	}

	// regenerating with a changed template replaces the script
	launch.CommandTemplate = "echo {GAME_ID}"
	if _, err := GenerateScript(folder, entry, launch); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	content, _ = os.ReadFile(path)
	if !strings.Contains(string(content), "echo 9NBLGGH4TNMA") {
		t.Fatalf("template change not applied:\n%v", string(content))
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Plain Title", "Plain Title"},
		{"Ori and the Will of the Wisps: Redux", "Ori and the Will of the Wisps- Redux"},
		{`He said "go"`, "He said -go-"},
		{"  padded  ", "padded"},
	}
	for _, test := range tests {
		if got := SanitizeTitle(test.in); got != test.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestCleanAssets(t *testing.T) {
	assetsFolder := t.TempDir()
	for _, sub := range []string{"logos", "covers", "videos"} {
		if err := os.MkdirAll(filepath.Join(assetsFolder, sub), os.ModePerm); err != nil {
			t.Fatal(err)
		}
	}
	write := func(rel string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(assetsFolder, rel), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("logos/AAAAAAAAAAA1.png")
	write("logos/AAAAAAAAAAA2.png")
	write("covers/AAAAAAAAAAA1.png")
	write("videos/AAAAAAAAAAA1.mp4")

	removed, err := CleanAssets(assetsFolder, []string{settings.ASSET_LOGO, settings.ASSET_VIDEO, "bogus"})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %v, want 3", removed)
	}
	if _, err := os.Stat(filepath.Join(assetsFolder, "covers", "AAAAAAAAAAA1.png")); err != nil {
		t.Fatal("cover of another kind was deleted")
	}
	if _, err := os.Stat(filepath.Join(assetsFolder, "logos", "AAAAAAAAAAA1.png")); !os.IsNotExist(err) {
		t.Fatal("logo survived the clean")
	}

	// cleaning a kind whose folder never existed is not an error
	if _, err := CleanAssets(t.TempDir(), []string{settings.ASSET_FANART}); err != nil {
		t.Fatalf("clean on empty tree: %v", err)
	}
}
