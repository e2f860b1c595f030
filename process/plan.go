package process

import (
	"os"
	"sort"

	"github.com/Boc86/xboxgp-esde-sync/db"
)

// SyncPlan is the add/update/remove diff for one run. The three sets are
// disjoint; an unchanged game appears in none of them.
type SyncPlan struct {
	ToAdd    []string
	ToUpdate []string
	ToRemove []string
}

func (p *SyncPlan) IsEmpty() bool {
	return len(p.ToAdd) == 0 && len(p.ToUpdate) == 0 && len(p.ToRemove) == 0
}

// BuildSyncPlan diffs the fetched catalog against the persisted records.
// A game lands in ToUpdate when its fingerprint moved, when a force-redownload
// kind is set, or when one of its files went missing on disk.
func BuildSyncPlan(entries []db.CatalogEntry, existing map[string]db.LocalGameRecord, forceKinds []string) *SyncPlan {
	plan := &SyncPlan{}

	remoteIds := map[string]bool{}
	for i := range entries {
		entry := &entries[i]
		remoteIds[entry.Id] = true

		record, ok := existing[entry.Id]
		if !ok {
			plan.ToAdd = append(plan.ToAdd, entry.Id)
			continue
		}

		if record.LastSyncedHash != entry.Fingerprint() {
			plan.ToUpdate = append(plan.ToUpdate, entry.Id)
			continue
		}
		if len(forceKinds) > 0 {
			plan.ToUpdate = append(plan.ToUpdate, entry.Id)
			continue
		}
		if recordFilesMissing(&record) {
			plan.ToUpdate = append(plan.ToUpdate, entry.Id)
		}
	}

	for id := range existing {
		if !remoteIds[id] {
			plan.ToRemove = append(plan.ToRemove, id)
		}
	}

	// stable order keeps runs reproducible
	sort.Strings(plan.ToAdd)
	sort.Strings(plan.ToUpdate)
	sort.Strings(plan.ToRemove)

	return plan
}

// a deleted script or asset means the record no longer matches the disk
func recordFilesMissing(record *db.LocalGameRecord) bool {
	if record.ScriptPath != "" {
		if _, err := os.Stat(record.ScriptPath); err != nil {
			return true
		}
	}
	for _, path := range record.AssetPaths {
		if _, err := os.Stat(path); err != nil {
			return true
		}
	}
	return false
}
