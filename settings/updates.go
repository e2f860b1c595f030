package settings

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/mcuadros/go-version"
)

const (
	VERSION_URL = "https://raw.githubusercontent.com/Boc86/xboxgp-esde-sync/main/version.json"
)

// Check if an update is available
func CheckForAppUpdates() (bool, error) {

	localVer := APP_VERSION

	res, err := http.Get(VERSION_URL)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return false, err
	}

	remoteValues := map[string]string{}
	err = json.Unmarshal(body, &remoteValues)
	if err != nil {
		return false, err
	}

	remoteVer := remoteValues["version"]

	if version.CompareSimple(remoteVer, localVer) > 0 {
		return true, nil
	}

	return false, nil
}
