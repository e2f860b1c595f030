package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Boc86/xboxgp-esde-sync/db"
	"github.com/Boc86/xboxgp-esde-sync/gamelist"
	"github.com/Boc86/xboxgp-esde-sync/process"
	"github.com/Boc86/xboxgp-esde-sync/settings"
	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/table"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type Console struct {
	baseFolder  string
	sugarLogger *zap.SugaredLogger
	progressBar *progressbar.ProgressBar
}

func CreateConsole(baseFolder string, sugarLogger *zap.SugaredLogger) *Console {
	return &Console{baseFolder: baseFolder, sugarLogger: sugarLogger}
}

func (c *Console) Start() {
	settingsObj := settings.ReadSettings(c.baseFolder)
	c.applyFlagOverrides(settingsObj)

	if settingsObj.CheckForUpdates {
		if newUpdate, _ := settings.CheckForAppUpdates(); newUpdate {
			fmt.Printf("\n=== New version available, download from Github ===\n")
		}
	}

	//clean mode deletes the requested asset kinds and exits
	if *cleanKinds != "" {
		kinds := splitKinds(*cleanKinds)
		removed, err := process.CleanAssets(settingsObj.AssetsFolder, kinds)
		if err != nil {
			fmt.Printf("\nfailed to clean assets - %v\n", err)
			return
		}
		fmt.Printf("\nDeleted %v asset files (%v). Run a sync to redownload.\n", removed, strings.Join(kinds, ", "))
		return
	}

	if settingsObj.AssetsFolder == "" || settingsObj.ScriptsFolder == "" || settingsObj.GamelistFolder == "" {
		fmt.Printf("\nNo folders configured, please edit settings.json (assets_folder, scripts_folder, gamelist_folder)\n")
		return
	}

	assetsFolder, err := settings.EnsureSystemFolder(settingsObj.AssetsFolder)
	if err != nil {
		fmt.Printf("\nfailed to prepare assets folder - %v\n", err)
		return
	}
	scriptsFolder, err := settings.EnsureSystemFolder(settingsObj.ScriptsFolder)
	if err != nil {
		fmt.Printf("\nfailed to prepare scripts folder - %v\n", err)
		return
	}
	gamelistFolder, err := settings.EnsureSystemFolder(settingsObj.GamelistFolder)
	if err != nil {
		fmt.Printf("\nfailed to prepare gamelist folder - %v\n", err)
		return
	}

	cache, err := db.NewPersistentDB(c.baseFolder)
	if err != nil {
		fmt.Printf("\nfailed to open the local cache db - %v\n", err)
		return
	}
	defer cache.Close()

	fetcher := db.NewCatalogFetcher(settingsObj, cache)
	if *freshStart {
		fetcher.InvalidateCache()
	}

	store := db.NewLocalGamesDB(c.baseFolder)
	launch := settings.InitLaunchOptions(c.baseFolder)

	config := process.SyncConfig{
		AssetsFolder:    assetsFolder,
		ScriptsFolder:   scriptsFolder,
		GamelistPath:    filepath.Join(gamelistFolder, gamelist.GAMELIST_FILENAME),
		Concurrency:     settingsObj.Concurrency,
		DownloadVideos:  settingsObj.DownloadVideos,
		ForceRedownload: settingsObj.ForceRedownload,
	}

	// ctrl-c stops between games, finished work stays on disk
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	events := make(chan process.SyncEvent)
	orchestrator := process.NewOrchestrator(fetcher, store, launch, events)

	type syncOutcome struct {
		report *process.SyncReport
		err    error
	}
	outcome := make(chan syncOutcome, 1)
	go func() {
		report, syncErr := orchestrator.Sync(ctx, config)
		outcome <- syncOutcome{report: report, err: syncErr}
	}()

	c.consumeEvents(events)

	result := <-outcome
	settings.SaveSettings(settingsObj, c.baseFolder)

	if result.err != nil {
		fmt.Printf("\n\nSync aborted - %v\n", result.err)
		if result.report != nil {
			c.printReport(result.report)
		}
		return
	}
	c.printReport(result.report)
}

// render the orchestrator's event stream: a spinner for the single threaded
// stages, a progressbar for the parallel window
func (c *Console) consumeEvents(events <-chan process.SyncEvent) {
	s := spinner.New(spinner.CharSets[26], 100*time.Millisecond)

	for event := range events {
		switch event.Type {
		case process.EventStageStarted:
			switch event.Stage {
			case process.StageFetch:
				fmt.Printf("Fetching the Game Pass catalog\n")
				s.Start()
			case process.StageDownload:
				total := event.Counts["games"]
				if total > 0 {
					fmt.Printf("Processing %v games (%v workers)\n", total, event.Counts["workers"])
					c.progressBar = progressbar.New(total)
				}
			}
		case process.EventStageCompleted:
			switch event.Stage {
			case process.StageFetch:
				s.Stop()
				fmt.Printf("Catalog contains %v games\n", event.Counts["entries"])
			case process.StagePlan:
				fmt.Printf("Plan: %v new, %v changed, %v gone\n",
					event.Counts["add"], event.Counts["update"], event.Counts["remove"])
			case process.StageDownload:
				if c.progressBar != nil {
					c.progressBar.Finish()
					c.progressBar = nil
				}
			}
		case process.EventGameCompleted, process.EventGameFailed:
			if c.progressBar != nil {
				c.progressBar.Set(event.Current)
			}
		}
	}
}

func (c *Console) printReport(report *process.SyncReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"Added", "Updated", "Removed", "Failed", "Partial", "Duration"})
	t.AppendRow([]interface{}{report.Added, report.Updated, report.Removed, report.Failed,
		report.Partial, report.Duration.Round(time.Second)})
	fmt.Printf("\n")
	t.Render()

	if len(report.Failures) == 0 {
		return
	}
	fmt.Print("\nGames with issues:\n\n")
	t = table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"#", "Title", "ProductId", "Status", "Reason"})
	for i, failure := range report.Failures {
		t.AppendRow([]interface{}{i, failure.Title, failure.Id, failure.Status, failure.Reason})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(report.Failures)})
	t.Render()
}

// command line flags win over settings.json for a single run
func (c *Console) applyFlagOverrides(settingsObj *settings.AppSettings) {
	if *assetsFolder != "" {
		settingsObj.AssetsFolder = *assetsFolder
	}
	if *scriptsFolder != "" {
		settingsObj.ScriptsFolder = *scriptsFolder
	}
	if *gamelistFolder != "" {
		settingsObj.GamelistFolder = *gamelistFolder
	}
	if *concurrency > 0 {
		settingsObj.Concurrency = *concurrency
	}
	if *withVideos {
		settingsObj.DownloadVideos = true
	}
	if *forceKinds != "" {
		settingsObj.ForceRedownload = splitKinds(*forceKinds)
	}
}

func splitKinds(raw string) []string {
	parts := strings.Split(raw, ",")
	kinds := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			kinds = append(kinds, part)
		}
	}
	return kinds
}
