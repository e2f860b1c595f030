package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Boc86/xboxgp-esde-sync/logger"
	"github.com/Boc86/xboxgp-esde-sync/settings"
)

var (
	assetsFolder   = flag.String("assets", "", "path to the media assets folder (overrides settings.json)")
	scriptsFolder  = flag.String("scripts", "", "path to the launch scripts folder (overrides settings.json)")
	gamelistFolder = flag.String("gamelist", "", "path to the folder holding gamelist.xml (overrides settings.json)")
	concurrency    = flag.Int("w", 0, "number of download workers (overrides settings.json)")
	withVideos     = flag.Bool("videos", false, "also download preview videos")
	forceKinds     = flag.String("force", "", "comma separated asset kinds to redownload (logo,cover,fanart,video)")
	cleanKinds     = flag.String("clean", "", "delete all stored assets of these kinds and exit")
	freshStart     = flag.Bool("fresh", false, "ignore the cached catalog and fetch a new one")
	debug          = flag.Bool("debug", false, "verbose logging")
)

func main() {
	flag.Parse()

	_, workingFolder, err := settings.GetWorkingFolder()
	if err != nil {
		workingFolder, err = os.Getwd()
		if err != nil {
			fmt.Printf("failed to resolve the working folder - %v\n", err)
			os.Exit(1)
		}
	}

	// settings live under the homedir, same as the log; the logger comes up
	// first so first-run settings warnings land in the log file
	baseFolder := settings.BaseFolderFor(workingFolder)
	sugar := logger.GetSugar(baseFolder, *debug)
	defer logger.Defer()

	appSettings := settings.ReadSettings(workingFolder)
	if appSettings.Debug {
		logger.SetDebug()
	}

	sugar.Infof("xboxgp-esde-sync %v starting", settings.APP_VERSION)

	CreateConsole(baseFolder, sugar).Start()
}
