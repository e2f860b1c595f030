package process

import (
	"os"
	"path/filepath"

	"github.com/Boc86/xboxgp-esde-sync/db"
	"go.uber.org/zap"
)

// CleanAssets deletes every stored asset of the given kinds, across all
// managed games. Scripts, the gamelist and the state store's id list are left
// alone; the next sync sees the missing files and redownloads.
func CleanAssets(assetsFolder string, kinds []string) (int, error) {
	removed := 0
	for _, kind := range kinds {
		info, ok := assetKinds[kind]
		if !ok {
			zap.S().Warnf("ignoring unknown asset kind [%v]", kind)
			continue
		}

		folder := filepath.Join(assetsFolder, info.subFolder)
		files, err := os.ReadDir(folder)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, &db.StorageError{Path: folder, Op: "clean", Cause: err}
		}

		for _, file := range files {
			if file.IsDir() || filepath.Ext(file.Name()) != info.ext {
				continue
			}
			path := filepath.Join(folder, file.Name())
			if err := os.Remove(path); err != nil {
				zap.S().Errorf("failed to delete asset [%v] - %v", path, err)
				continue
			}
			removed++
		}
	}

	zap.S().Infof("cleaned %v asset files (%v)", removed, kinds)
	return removed, nil
}
