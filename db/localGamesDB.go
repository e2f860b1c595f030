package db

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	LOCAL_GAMES_FILENAME = "synced_games.json"
)

// LocalGameRecord is the persisted state for one synced game. Asset paths are
// keyed by asset kind (logo/cover/fanart/video); a kind is simply absent when
// its download never succeeded.
type LocalGameRecord struct {
	Id             string            `json:"id"`
	Title          string            `json:"title"`
	AssetPaths     map[string]string `json:"asset_paths"`
	ScriptPath     string            `json:"script_path"`
	LastSyncedHash string            `json:"last_synced_hash"`
}

// LocalGamesDB owns the id -> LocalGameRecord mapping on disk. Nothing else
// reads or writes the state file.
type LocalGamesDB struct {
	path string
}

func NewLocalGamesDB(baseFolder string) *LocalGamesDB {
	return &LocalGamesDB{path: filepath.Join(baseFolder, LOCAL_GAMES_FILENAME)}
}

func (ldb *LocalGamesDB) Path() string {
	return ldb.path
}

// Load returns the previously synced games, or an empty map when no state
// file exists yet.
func (ldb *LocalGamesDB) Load() (map[string]LocalGameRecord, error) {
	buf, err := os.ReadFile(ldb.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]LocalGameRecord{}, nil
		}
		return nil, &StorageError{Path: ldb.path, Op: "load", Cause: err}
	}

	records := map[string]LocalGameRecord{}
	if err := json.Unmarshal(buf, &records); err != nil {
		return nil, &StorageError{Path: ldb.path, Op: "load", Cause: err}
	}
	return records, nil
}

// Save persists the full state atomically. The new file is written next to
// the old one and renamed over it, so a crash mid-write leaves the previous
// state readable.
func (ldb *LocalGamesDB) Save(records map[string]LocalGameRecord) error {
	jsonBytes, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &StorageError{Path: ldb.path, Op: "save", Cause: err}
	}

	tmpPath := ldb.path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonBytes, 0644); err != nil {
		return &StorageError{Path: tmpPath, Op: "save", Cause: err}
	}
	if err := os.Rename(tmpPath, ldb.path); err != nil {
		os.Remove(tmpPath)
		return &StorageError{Path: ldb.path, Op: "save", Cause: err}
	}
	return nil
}
