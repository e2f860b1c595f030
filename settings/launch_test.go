package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitLaunchOptions_Default(t *testing.T) {
	opts := InitLaunchOptions(t.TempDir())
	if opts.CommandTemplate != DEFAULT_LAUNCH_COMMAND {
		t.Fatalf("template = %q", opts.CommandTemplate)
	}
	if !strings.Contains(opts.CommandTemplate, "{"+TEMPLATE_GAME_ID+"}") {
		t.Fatal("default template has no game id token")
	}
}

func TestInitLaunchOptions_PropertiesOverride(t *testing.T) {
	dir := t.TempDir()
	props := "launcher.command=xdg-open https://www.xbox.com/play/launch/{GAME_ID}\n"
	if err := os.WriteFile(filepath.Join(dir, LAUNCHER_PROPS_FILENAME), []byte(props), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	opts := InitLaunchOptions(dir)
	if opts.CommandTemplate != "xdg-open https://www.xbox.com/play/launch/{GAME_ID}" {
		t.Fatalf("override not applied: %q", opts.CommandTemplate)
	}
}
