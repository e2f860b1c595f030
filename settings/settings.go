package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

const (
	SETTINGS_DIR      = "xboxgp-esde-sync"
	SETTINGS_FILENAME = "settings.json"
	APP_VERSION       = "2.1.0"
	SYSTEM_NAME       = "greenlight"

	CATALOG_SIGLS_URL    = "https://catalog.gamepass.com/sigls/v2?id=fdd9e2a7-0fee-49f6-ad69-4354098401ff&language=%v&market=%v"
	CATALOG_PRODUCTS_URL = "https://displaycatalog.mp.microsoft.com/v7.0/products?bigIds=%v&market=%v&languages=%v&MS-CV=DGU1mcuYo0WMMp+F.1"
)

// Asset kinds the sync engine knows how to download
const (
	ASSET_LOGO   = "logo"
	ASSET_COVER  = "cover"
	ASSET_FANART = "fanart"
	ASSET_VIDEO  = "video"
)

// Settings of the application
type AppSettings struct {
	// Extra internal settings
	// `json:"-"` to ignore when marshalling
	baseFolder string `json:"-"`
	// Unmarshalled from the JSON file
	CatalogEtag     string   `json:"catalog_etag"`
	Market          string   `json:"market"`
	Language        string   `json:"language"`
	SiglsUrl        string   `json:"sigls_url,omitempty"`
	ProductsUrl     string   `json:"products_url,omitempty"`
	AssetsFolder    string   `json:"assets_folder"`
	ScriptsFolder   string   `json:"scripts_folder"`
	GamelistFolder  string   `json:"gamelist_folder"`
	Concurrency     int      `json:"concurrency"`
	DownloadVideos  bool     `json:"download_videos"`
	ForceRedownload []string `json:"force_redownload"`
	Debug           bool     `json:"debug"`
	CheckForUpdates bool     `json:"check_for_updates"`
}

var settingsInstance *AppSettings

// Read the settings (cached after the first call)
func ReadSettings(baseFolder string) *AppSettings {
	if settingsInstance != nil {
		return settingsInstance
	}

	a := AppSettings{}
	a.setBase(baseFolder)
	a.switchToHomedir()
	a.read()

	settingsInstance = &a
	return settingsInstance
}

// Save the settings back to the JSON file
func SaveSettings(a *AppSettings, baseFolder string) {
	if a.baseFolder == "" {
		a.setBase(baseFolder)
	}
	a.Save()
}

// Set the base folder
func (a *AppSettings) setBase(base string) {
	a.baseFolder = base
}

// Switch the settings base folder inside the homedir
func (a *AppSettings) switchToHomedir() {
	a.setBase(BaseFolderFor(a.baseFolder))
}

// BaseFolderFor resolves where settings, state and the log live: the
// per-user config dir when it can be created, the working folder otherwise.
// Exposed so the logger can be initialized before the settings are read.
func BaseFolderFor(workingFolder string) string {
	if home, err := os.UserHomeDir(); err == nil {
		basedir := filepath.Join(home, SETTINGS_DIR)
		if mkDirErr := os.MkdirAll(basedir, os.ModePerm); mkDirErr == nil {
			return basedir
		}
	}
	return workingFolder
}

// Get the settings file path
func (a *AppSettings) getPath() string {
	return filepath.Join(a.baseFolder, SETTINGS_FILENAME)
}

// Read the file
func (a *AppSettings) read() {
	// Reading the file
	buf, bufErr := os.ReadFile(a.getPath())

	// If error fill with defaults
	if bufErr != nil {
		zap.S().Warnf("Missing or corrupted config file, creating a new one.")
		a.defaults()
		a.Save()
	} else {
		// Otherwise unmarshal it
		if jsonErr := a.Load(buf); jsonErr != nil {
			zap.S().Warnf("Missing or corrupted config file, creating a new one.")
			a.defaults()
			a.Save()
		}
	}
}

// Fill the structure with default values
func (a *AppSettings) defaults() {
	a.Market = "GB"
	a.Language = "en-us"
	a.Concurrency = 4
	a.DownloadVideos = false
	a.ForceRedownload = []string{}
	a.CheckForUpdates = true
}

// Save to file (ignore errors)
func (a *AppSettings) Save() {
	// Marshal the struct into JSON bytes
	jsonBytes, jsonErr := json.MarshalIndent(a, "", "  ")
	if jsonErr == nil {
		// Write the file
		os.WriteFile(a.getPath(), jsonBytes, 0644)
	}
}

// Load a JSON payload
func (a *AppSettings) Load(payload []byte) error {
	jsonErr := json.Unmarshal(payload, a)
	if jsonErr != nil {
		return jsonErr
	}

	return nil
}

// Append the managed system sub folder if the path doesn't already end in it
func EnsureSystemFolder(path string) (string, error) {
	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		return "", absErr
	}

	if !strings.EqualFold(filepath.Base(abs), SYSTEM_NAME) {
		abs = filepath.Join(abs, SYSTEM_NAME)
	}

	if mkErr := os.MkdirAll(abs, os.ModePerm); mkErr != nil {
		return "", mkErr
	}
	return abs, nil
}

// Build the catalog endpoint URLs for the configured market/language.
// The settings file may point both at a mirror.
func (a *AppSettings) SiglsURL() string {
	if a.SiglsUrl != "" {
		return a.SiglsUrl
	}
	return fmt.Sprintf(CATALOG_SIGLS_URL, a.Language, a.Market)
}

func (a *AppSettings) ProductsURL(ids string) string {
	if a.ProductsUrl != "" {
		return fmt.Sprintf(a.ProductsUrl, ids)
	}
	return fmt.Sprintf(CATALOG_PRODUCTS_URL, ids, a.Market, a.Language)
}

// Detect the folder the executable lives in (fallback base before homedir)
func GetWorkingFolder() (string, string, error) {
	exePath, exeErr := os.Executable()
	if exeErr != nil {
		return "", "", exeErr
	}

	workingFolder := filepath.Dir(exePath)

	// Adjust for MacOS app bundles
	if runtime.GOOS == "darwin" {
		if strings.Contains(workingFolder, ".app") {
			appIndex := strings.Index(workingFolder, ".app")
			sepIndex := strings.LastIndex(workingFolder[:appIndex], string(os.PathSeparator))
			workingFolder = workingFolder[:sepIndex]
		}
	}

	return exePath, workingFolder, nil
}
