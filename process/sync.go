package process

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Boc86/xboxgp-esde-sync/db"
	"github.com/Boc86/xboxgp-esde-sync/gamelist"
	"github.com/Boc86/xboxgp-esde-sync/settings"
	"go.uber.org/zap"
)

// SyncConfig is the full, immutable input of one run. The front end builds it
// from settings; the engine never reads settings on its own.
type SyncConfig struct {
	AssetsFolder    string
	ScriptsFolder   string
	GamelistPath    string
	Concurrency     int
	NetworkCap      int
	DownloadVideos  bool
	ForceRedownload []string
}

type SyncReport struct {
	Added    int
	Updated  int
	Removed  int
	Failed   int
	Partial  int
	Failures []GameFailure
	Duration time.Duration
}

// Orchestrator wires fetcher, state store, downloader, script generator and
// gamelist writer into one resumable sync pass.
type Orchestrator struct {
	fetcher *db.CatalogFetcher
	store   *db.LocalGamesDB
	launch  *settings.LaunchOptions
	events  chan<- SyncEvent
}

func NewOrchestrator(fetcher *db.CatalogFetcher, store *db.LocalGamesDB, launch *settings.LaunchOptions, events chan<- SyncEvent) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		store:   store,
		launch:  launch,
		events:  events,
	}
}

type gameResult struct {
	id     string
	title  string
	status GameStatus
	reason string
	record db.LocalGameRecord
}

// Sync runs one full pass: fetch, diff, remove stale games, process added and
// changed games on a bounded worker pool, rewrite the gamelist and persist the
// new state. Per game failures are collected in the report; only checkpoint
// failures (fetch, load, gamelist write, save) abort the run, and those always
// leave the previous state and gamelist intact.
func (o *Orchestrator) Sync(ctx context.Context, config SyncConfig) (*SyncReport, error) {
	started := time.Now()
	if o.events != nil {
		defer close(o.events)
	}

	workers := config.Concurrency
	if workers < 1 {
		workers = 4
	}
	networkCap := config.NetworkCap
	if networkCap < 1 {
		networkCap = workers * 4
	}

	report := &SyncReport{}

	//1. fetch the remote catalog
	o.emitStage(EventStageStarted, StageFetch, nil)
	entries, err := o.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	o.emitStage(EventStageCompleted, StageFetch, map[string]int{"entries": len(entries)})

	entriesById := map[string]*db.CatalogEntry{}
	for i := range entries {
		entriesById[entries[i].Id] = &entries[i]
	}

	//2. load local state and diff
	existing, err := o.store.Load()
	if err != nil {
		return nil, err
	}

	plan := BuildSyncPlan(entries, existing, config.ForceRedownload)
	zap.S().Infof("sync plan: %v to add, %v to update, %v to remove",
		len(plan.ToAdd), len(plan.ToUpdate), len(plan.ToRemove))
	o.emitStage(EventStageCompleted, StagePlan, map[string]int{
		"add":    len(plan.ToAdd),
		"update": len(plan.ToUpdate),
		"remove": len(plan.ToRemove),
	})

	final := map[string]db.LocalGameRecord{}
	for id, record := range existing {
		final[id] = record
	}

	//3. drop games that left the catalog (per item failures are not fatal)
	o.emitStage(EventStageStarted, StageRemove, nil)
	for _, id := range plan.ToRemove {
		record := existing[id]
		o.removeGameFiles(&record)
		delete(final, id)
		report.Removed++
	}
	o.emitStage(EventStageCompleted, StageRemove, map[string]int{"removed": report.Removed})

	//4. process added/changed games on the worker pool
	downloader := NewAssetDownloader(config.AssetsFolder, networkCap, config.ForceRedownload, !config.DownloadVideos)
	if err := downloader.EnsureFolders(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.ScriptsFolder, os.ModePerm); err != nil {
		return nil, &db.StorageError{Path: config.ScriptsFolder, Op: "mkdir", Cause: err}
	}

	work := make([]*db.CatalogEntry, 0, len(plan.ToAdd)+len(plan.ToUpdate))
	isAdd := map[string]bool{}
	for _, id := range plan.ToAdd {
		work = append(work, entriesById[id])
		isAdd[id] = true
	}
	for _, id := range plan.ToUpdate {
		work = append(work, entriesById[id])
	}

	o.emitStage(EventStageStarted, StageDownload, map[string]int{"games": len(work), "workers": workers})
	results := o.runWorkers(ctx, work, workers, downloader, config.ScriptsFolder)

	done := 0
	for result := range results {
		done++
		switch result.status {
		case GameStatusFailed:
			report.Failed++
			report.Failures = append(report.Failures, GameFailure{
				Id: result.id, Title: result.title, Status: result.status, Reason: result.reason,
			})
			if isAdd[result.id] {
				delete(final, result.id)
			}
			// a failed update keeps its previous record
			o.emit(SyncEvent{Type: EventGameFailed, GameId: result.id, GameTitle: result.title,
				Reason: result.reason, Current: done, Total: len(work)})
		default:
			if result.status == GameStatusPartial {
				report.Partial++
				report.Failures = append(report.Failures, GameFailure{
					Id: result.id, Title: result.title, Status: result.status, Reason: result.reason,
				})
			}
			if isAdd[result.id] {
				report.Added++
			} else {
				report.Updated++
			}
			final[result.id] = result.record
			o.emit(SyncEvent{Type: EventGameCompleted, GameId: result.id, GameTitle: result.title,
				Current: done, Total: len(work)})
		}
	}
	o.emitStage(EventStageCompleted, StageDownload, map[string]int{
		"added": report.Added, "updated": report.Updated, "failed": report.Failed, "partial": report.Partial,
	})

	if ctx.Err() != nil {
		// cancelled mid-pool; state on disk is still the previous one
		return report, ctx.Err()
	}

	//5. rewrite the gamelist to match the surviving record set
	o.emitStage(EventStageStarted, StageGamelist, nil)
	writer := gamelist.NewWriter(config.GamelistPath)
	if err := writer.ApplyDiff(o.buildGamelist(final, entriesById)); err != nil {
		return report, err
	}
	o.emitStage(EventStageCompleted, StageGamelist, map[string]int{"entries": len(final)})

	//6. persist the new state last, once everything it references exists
	if err := o.store.Save(final); err != nil {
		return report, err
	}
	o.emitStage(EventStageCompleted, StageSave, nil)

	report.Duration = time.Since(started)
	zap.S().Infof("sync finished in %v: %v added, %v updated, %v removed, %v failed",
		report.Duration.Round(time.Millisecond), report.Added, report.Updated, report.Removed, report.Failed)
	return report, nil
}

func (o *Orchestrator) runWorkers(ctx context.Context, work []*db.CatalogEntry, workers int, downloader *AssetDownloader, scriptsFolder string) <-chan gameResult {
	jobs := make(chan *db.CatalogEntry)
	results := make(chan gameResult, len(work))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				// cancellation is checked between games; in-flight work is
				// abandoned by the downloader itself
				if ctx.Err() != nil {
					results <- gameResult{id: entry.Id, title: entry.Title,
						status: GameStatusFailed, reason: ctx.Err().Error()}
					continue
				}
				results <- o.processGame(ctx, entry, downloader, scriptsFolder)
			}
		}()
	}

	go func() {
		for _, entry := range work {
			jobs <- entry
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	return results
}

func (o *Orchestrator) processGame(ctx context.Context, entry *db.CatalogEntry, downloader *AssetDownloader, scriptsFolder string) gameResult {
	o.emit(SyncEvent{Type: EventGameStarted, GameId: entry.Id, GameTitle: entry.Title})

	scriptPath, err := GenerateScript(scriptsFolder, entry, o.launch)
	if err != nil {
		zap.S().Errorf("failed to write script for [%v] - %v", entry.Id, err)
		return gameResult{id: entry.Id, title: entry.Title, status: GameStatusFailed, reason: err.Error()}
	}
	o.emit(SyncEvent{Type: EventScriptWritten, GameId: entry.Id, GameTitle: entry.Title})

	paths, failures := downloader.DownloadAssets(ctx, entry, func(kind string) {
		o.emit(SyncEvent{Type: EventAssetDownloaded, GameId: entry.Id, GameTitle: entry.Title, AssetKind: kind})
	})

	attempted := len(paths) + len(failures)
	if len(failures) > 0 && len(paths) == 0 && attempted > 0 {
		// every asset kind failed, don't keep a gamelist entry with no media
		os.Remove(scriptPath)
		return gameResult{id: entry.Id, title: entry.Title, status: GameStatusFailed, reason: joinReasons(failures)}
	}

	record := db.LocalGameRecord{
		Id:             entry.Id,
		Title:          entry.Title,
		AssetPaths:     paths,
		ScriptPath:     scriptPath,
		LastSyncedHash: entry.Fingerprint(),
	}

	status := GameStatusSuccess
	reason := ""
	if len(failures) > 0 {
		status = GameStatusPartial
		reason = joinReasons(failures)
		zap.S().Warnf("partial sync for [%v] %v - %v", entry.Id, entry.Title, reason)
	}

	return gameResult{id: entry.Id, title: entry.Title, status: status, reason: reason, record: record}
}

// delete one removed game's files; logged, never fatal
func (o *Orchestrator) removeGameFiles(record *db.LocalGameRecord) {
	for kind, path := range record.AssetPaths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			zap.S().Errorf("failed to delete %v asset [%v] - %v", kind, path, err)
		}
	}
	if record.ScriptPath != "" {
		if err := os.Remove(record.ScriptPath); err != nil && !os.IsNotExist(err) {
			zap.S().Errorf("failed to delete script [%v] - %v", record.ScriptPath, err)
		}
	}
	zap.S().Infof("removed game [%v] %v", record.Id, record.Title)
}

func (o *Orchestrator) buildGamelist(final map[string]db.LocalGameRecord, entriesById map[string]*db.CatalogEntry) []gamelist.Game {
	games := make([]gamelist.Game, 0, len(final))
	for id, record := range final {
		entry, ok := entriesById[id]
		if !ok {
			// should not happen, removals pruned everything not remote
			continue
		}
		games = append(games, buildGamelistGame(entry, &record))
	}
	return games
}

func buildGamelistGame(entry *db.CatalogEntry, record *db.LocalGameRecord) gamelist.Game {
	game := gamelist.Game{
		Path:        gamelist.ScriptPath(entry.Id),
		Name:        entry.Title,
		Desc:        entry.Description,
		ReleaseDate: formatReleaseDate(entry.ReleaseDate),
		Developer:   entry.Developer,
		Image:       record.AssetPaths[settings.ASSET_COVER],
		Marquee:     record.AssetPaths[settings.ASSET_LOGO],
		Thumbnail:   record.AssetPaths[settings.ASSET_FANART],
		Video:       record.AssetPaths[settings.ASSET_VIDEO],
	}
	if entry.SortTitle != entry.Title {
		game.SortName = entry.SortTitle
	}
	return game
}

// "2017-09-28T00:00:00.0000000Z" -> "20170928T000000"
func formatReleaseDate(raw string) string {
	datePart := raw
	if idx := strings.Index(raw, "T"); idx > 0 {
		datePart = raw[:idx]
	}
	parsed, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return ""
	}
	return parsed.Format("20060102") + "T000000"
}
