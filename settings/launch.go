package settings

import (
	"os"
	"path/filepath"

	"github.com/magiconair/properties"
)

const (
	LAUNCHER_PROPS_FILENAME = "launcher.properties"

	TEMPLATE_GAME_ID    = "GAME_ID"
	TEMPLATE_GAME_TITLE = "GAME_TITLE"

	DEFAULT_LAUNCH_COMMAND = "flatpak run --socket=wayland --env=ELECTRON_ENABLE_WAYLAND=1 " +
		"io.github.unknownskl.greenlight --fullscreen --connect='{GAME_ID}'"
)

// How generated scripts start the streaming client
type LaunchOptions struct {
	CommandTemplate string
}

// Load launcher overrides from launcher.properties, falling back to the
// built-in Greenlight flatpak command. The file is optional.
func InitLaunchOptions(baseFolder string) *LaunchOptions {
	opts := &LaunchOptions{CommandTemplate: DEFAULT_LAUNCH_COMMAND}

	p, err := properties.LoadFile(filepath.Join(baseFolder, LAUNCHER_PROPS_FILENAME), properties.UTF8)
	if err != nil {
		if home, homeErr := os.UserHomeDir(); homeErr == nil {
			p, err = properties.LoadFile(filepath.Join(home, ".config", SETTINGS_DIR, LAUNCHER_PROPS_FILENAME), properties.UTF8)
		}
	}
	if err == nil {
		if cmd, ok := p.Get("launcher.command"); ok && cmd != "" {
			opts.CommandTemplate = cmd
		}
	}

	return opts
}
