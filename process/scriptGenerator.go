package process

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Boc86/xboxgp-esde-sync/db"
	"github.com/Boc86/xboxgp-esde-sync/settings"
	"robpike.io/nihongo"
)

var titleIllegalCharsRegex = regexp.MustCompile(`[/\\?%*:|"<>'$]`)

// GenerateScript writes the executable launcher for one game, named after the
// product id so workers never contend on a file. Deterministic for a given
// entry, and always overwritten so template changes take effect on re-sync.
func GenerateScript(scriptsFolder string, entry *db.CatalogEntry, launch *settings.LaunchOptions) (string, error) {
	scriptPath := filepath.Join(scriptsFolder, entry.Id+".sh")

	content := "#!/bin/bash\n" + applyLaunchTemplate(launch.CommandTemplate, entry) + "\n"

	if err := os.WriteFile(scriptPath, []byte(content), 0755); err != nil {
		return "", &db.StorageError{Path: scriptPath, Op: "write script", Cause: err}
	}
	return scriptPath, nil
}

func applyLaunchTemplate(template string, entry *db.CatalogEntry) string {
	result := strings.Replace(template, "{"+settings.TEMPLATE_GAME_ID+"}", entry.Id, 1)
	result = strings.Replace(result, "{"+settings.TEMPLATE_GAME_TITLE+"}", SanitizeTitle(entry.Title), 1)
	return result
}

// SanitizeTitle folds a store title down to something safe for shells and
// filenames
func SanitizeTitle(title string) string {
	result := titleIllegalCharsRegex.ReplaceAllString(title, "-")
	result = strings.ReplaceAll(result, "\n", "")
	result = strings.TrimSpace(result)
	return nihongo.RomajiString(result)
}
