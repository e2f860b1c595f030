package process

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Boc86/xboxgp-esde-sync/db"
	"github.com/Boc86/xboxgp-esde-sync/settings"
	"github.com/avast/retry-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	downloadTimeout  = 2 * time.Minute
	downloadAttempts = 3
	downloadDelay    = time.Second
)

type assetKindInfo struct {
	subFolder string
	ext       string
}

var assetKinds = map[string]assetKindInfo{
	settings.ASSET_LOGO:   {"logos", ".png"},
	settings.ASSET_COVER:  {"covers", ".png"},
	settings.ASSET_FANART: {"fanart", ".png"},
	settings.ASSET_VIDEO:  {"videos", ".mp4"},
}

// AssetDownloader fetches a game's media into the content-addressed layout
// assets/{logos,covers,fanart,videos}/<id>.<ext>. Files are written to a temp
// path and renamed into place, so a crash never leaves a half asset where the
// gamelist writer can see it.
type AssetDownloader struct {
	client       *http.Client
	assetsFolder string
	// process wide cap on in-flight asset requests, shared between workers
	inflight   chan struct{}
	force      map[string]bool
	skipVideos bool
}

func NewAssetDownloader(assetsFolder string, networkCap int, forceKinds []string, skipVideos bool) *AssetDownloader {
	if networkCap < 1 {
		networkCap = 1
	}
	force := map[string]bool{}
	for _, kind := range forceKinds {
		force[kind] = true
	}
	return &AssetDownloader{
		client:       &http.Client{Timeout: downloadTimeout},
		assetsFolder: assetsFolder,
		inflight:     make(chan struct{}, networkCap),
		force:        force,
		skipVideos:   skipVideos,
	}
}

// AssetPath returns where an asset kind lives for a game id
func (d *AssetDownloader) AssetPath(id string, kind string) string {
	info := assetKinds[kind]
	return filepath.Join(d.assetsFolder, info.subFolder, id+info.ext)
}

// EnsureFolders creates the per-kind sub folders
func (d *AssetDownloader) EnsureFolders() error {
	for _, info := range assetKinds {
		if err := os.MkdirAll(filepath.Join(d.assetsFolder, info.subFolder), os.ModePerm); err != nil {
			return &db.StorageError{Path: d.assetsFolder, Op: "mkdir", Cause: err}
		}
	}
	return nil
}

// DownloadAssets fetches every available asset kind for one game. Kinds fail
// independently; the returned map only holds the kinds now present on disk.
func (d *AssetDownloader) DownloadAssets(ctx context.Context, entry *db.CatalogEntry, onDone func(kind string)) (map[string]string, []*AssetError) {
	type kindJob struct {
		kind string
		url  string
	}

	jobs := []kindJob{
		{settings.ASSET_LOGO, entry.LogoUrl},
		{settings.ASSET_COVER, entry.CoverUrl},
		{settings.ASSET_FANART, entry.FanartUrl},
	}
	if !d.skipVideos {
		jobs = append(jobs, kindJob{settings.ASSET_VIDEO, entry.VideoUrl})
	}

	var mu sync.Mutex
	paths := map[string]string{}
	var failures []*AssetError

	group, groupCtx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		if job.url == "" {
			continue
		}
		job := job
		group.Go(func() error {
			path, err := d.downloadOne(groupCtx, entry.Id, job.kind, job.url)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, &AssetError{Kind: job.kind, Url: job.url, Cause: err})
				return nil
			}
			paths[job.kind] = path
			if onDone != nil {
				onDone(job.kind)
			}
			return nil
		})
	}
	group.Wait()

	return paths, failures
}

func (d *AssetDownloader) downloadOne(ctx context.Context, id string, kind string, url string) (string, error) {
	finalPath := d.AssetPath(id, kind)

	// already there from a previous run and not forced -> nothing to do
	if !d.force[kind] {
		if _, err := os.Stat(finalPath); err == nil {
			return finalPath, nil
		}
	}

	select {
	case d.inflight <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-d.inflight }()

	tmpPath := finalPath + ".partial"
	err := retry.Do(
		func() error {
			return d.fetchToFile(ctx, url, tmpPath)
		},
		retry.Attempts(downloadAttempts),
		retry.Delay(downloadDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(db.IsTransient),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	zap.S().Debugf("downloaded %v asset for [%v]", kind, id)
	return finalPath, nil
}

func (d *AssetDownloader) fetchToFile(ctx context.Context, url string, tmpPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &db.HttpStatusError{Url: url, StatusCode: resp.StatusCode}
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("truncated download - %w", err)
	}
	return out.Close()
}
