package db

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Boc86/xboxgp-esde-sync/settings"
	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

const (
	DB_TABLE_CATALOG_CACHE = "catalog-cache"
	CACHE_EXPIRY           = 24 * time.Hour

	requestTimeout = 30 * time.Second
	fetchAttempts  = 3
	fetchBaseDelay = 500 * time.Millisecond
)

// Fetches the current game list from the Game Pass catalog endpoints.
// A fetched catalog is cached in the persistent DB for a day, the way the
// GUI app used to keep additional_data.json around.
type CatalogFetcher struct {
	settings *settings.AppSettings
	cache    *PersistentDB
	client   *http.Client
}

type catalogCacheMeta struct {
	Etag      string
	FetchedAt time.Time
}

func NewCatalogFetcher(appSettings *settings.AppSettings, cache *PersistentDB) *CatalogFetcher {
	return &CatalogFetcher{
		settings: appSettings,
		cache:    cache,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

// Fetch returns the full remote catalog, newest first straight from the
// endpoints or from the day-old cache. No diffing happens here.
func (f *CatalogFetcher) Fetch(ctx context.Context) ([]CatalogEntry, error) {
	if cached := f.cachedEntries(); cached != nil {
		zap.S().Infof("using cached catalog (%v entries, less than %v old)", len(cached), CACHE_EXPIRY)
		return cached, nil
	}

	//1. fetch the id list
	siglsBytes, etag, err := f.downloadBytes(ctx, f.settings.SiglsURL(), f.settings.CatalogEtag)
	if err != nil {
		// on 304 the id list hasn't moved, so the stale cache is still right
		if stale := f.staleEntries(err); stale != nil {
			zap.S().Infof("catalog unchanged upstream, reusing %v cached entries", len(stale))
			f.storeCache(stale, f.settings.CatalogEtag)
			return stale, nil
		}
		// a 304 with nothing cached behind it means the stored etag is
		// orphaned; fetch unconditionally instead of failing the run
		if isNotModified(err) {
			siglsBytes, etag, err = f.downloadBytes(ctx, f.settings.SiglsURL(), "")
		}
		if err != nil {
			return nil, err
		}
	}

	ids, err := ParseCatalogIds(bytes.NewReader(siglsBytes))
	if err != nil {
		return nil, err
	}

	//2. fetch the product details for every id in one batch
	productBytes, _, err := f.downloadBytes(ctx, f.settings.ProductsURL(ids), "")
	if err != nil {
		return nil, err
	}

	catalog, err := CreateXboxCatalog(bytes.NewReader(productBytes))
	if err != nil {
		return nil, err
	}

	//3. cache for the next day of runs
	f.storeCache(catalog.Entries, etag)
	f.settings.CatalogEtag = etag

	zap.S().Infof("fetched %v catalog entries", len(catalog.Entries))
	return catalog.Entries, nil
}

func (f *CatalogFetcher) cachedEntries() []CatalogEntry {
	if f.cache == nil {
		return nil
	}

	var meta catalogCacheMeta
	if err := f.cache.GetEntry(DB_TABLE_CATALOG_CACHE, "meta", &meta); err != nil {
		return nil
	}
	if meta.FetchedAt.IsZero() || time.Since(meta.FetchedAt) >= CACHE_EXPIRY {
		return nil
	}

	var entries []CatalogEntry
	if err := f.cache.GetEntry(DB_TABLE_CATALOG_CACHE, "entries", &entries); err != nil {
		return nil
	}
	if len(entries) == 0 {
		return nil
	}
	return entries
}

func (f *CatalogFetcher) storeCache(entries []CatalogEntry, etag string) {
	if f.cache == nil {
		return
	}
	if err := f.cache.AddEntry(DB_TABLE_CATALOG_CACHE, "entries", entries); err != nil {
		zap.S().Warnf("failed to cache catalog entries - %v", err)
		return
	}
	meta := catalogCacheMeta{Etag: etag, FetchedAt: time.Now()}
	if err := f.cache.AddEntry(DB_TABLE_CATALOG_CACHE, "meta", meta); err != nil {
		zap.S().Warnf("failed to cache catalog metadata - %v", err)
	}
}

func isNotModified(err error) bool {
	var statusErr *HttpStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotModified
}

// Cached entries regardless of age, only consulted after a 304
func (f *CatalogFetcher) staleEntries(err error) []CatalogEntry {
	if !isNotModified(err) {
		return nil
	}
	if f.cache == nil {
		return nil
	}

	var entries []CatalogEntry
	if getErr := f.cache.GetEntry(DB_TABLE_CATALOG_CACHE, "entries", &entries); getErr != nil {
		return nil
	}
	if len(entries) == 0 {
		return nil
	}
	return entries
}

// InvalidateCache drops the cached catalog and the stored etag so the next
// Fetch hits the network unconditionally
func (f *CatalogFetcher) InvalidateCache() {
	f.settings.CatalogEtag = ""
	if f.cache != nil {
		f.cache.ClearTable(DB_TABLE_CATALOG_CACHE)
	}
}

func (f *CatalogFetcher) downloadBytes(ctx context.Context, url string, etag string) ([]byte, string, error) {
	var body []byte
	var newEtag string

	err := retry.Do(
		func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if reqErr != nil {
				return reqErr
			}
			if etag != "" {
				req.Header.Set("If-None-Match", etag)
			}

			resp, respErr := f.client.Do(req)
			if respErr != nil {
				return respErr
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return &HttpStatusError{Url: url, StatusCode: resp.StatusCode}
			}

			newEtag = resp.Header.Get("Etag")
			var readErr error
			body, readErr = io.ReadAll(resp.Body)
			return readErr
		},
		retry.Attempts(fetchAttempts),
		retry.Delay(fetchBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsTransient),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)

	if err != nil {
		return nil, "", &NetworkError{Url: url, Cause: err}
	}
	return body, newEtag, nil
}
