package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/peterbourgon/diskv/v3"

	appLog "weekplan/internal/log"
	"weekplan/internal/model"
)

// Source is one ICS subscription.
type Source struct {
	// ID namespaces imported event ids and appears in logs.
	ID   string
	URL  string
	Name string
	// Provider is stamped on every imported event.
	Provider model.Source
}

// FetchResult contains the outcome of fetching a single source.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool // true if the cached body was reused
}

type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher pulls ICS feeds with conditional requests (ETag /
// Last-Modified) and keeps the last good body in a diskv cache so a flaky
// feed does not empty the planner.
type Fetcher struct {
	client *http.Client
	cache  *diskv.Diskv
}

// NewFetcher creates a Fetcher caching under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		cache: diskv.New(diskv.Options{
			BasePath:     cacheDir,
			Transform:    func(key string) []string { return []string{key[0:2]} },
			CacheSizeMax: 4 * 1024 * 1024,
			FilePerm:     0o600,
			PathPerm:     0o700,
		}),
	}
}

// WithClient swaps the HTTP client, mainly for tests.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// FetchAll fetches every source. Sources that fail without a cached body
// are logged and reported in the error slice.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error

	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics %s: %w", src.ID, err))
			appLog.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// FetchOne fetches a single source. On a network error or a non-OK status
// the cached body is returned if there is one.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}

	key := cacheKey(src.URL)
	meta := f.loadMeta(key)
	cachedBody, _ := f.cache.Read(key + ".ics")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Warn("ics fetch network error, using cached body", "id", src.ID, "url", redactURL(src.URL), "err", err.Error())
			return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}
		newMeta := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := f.saveCache(key, newMeta, body); err != nil {
			appLog.Error("ics cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}
		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("ics fetch not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Warn("ics fetch non-OK, using cached body", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode)
			return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, errors.New(resp.Status)
	}
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:8])
}

func (f *Fetcher) loadMeta(key string) cacheEntry {
	var meta cacheEntry
	data, err := f.cache.Read(key + ".meta")
	if err != nil {
		return meta
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}
	}
	return meta
}

func (f *Fetcher) saveCache(key string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := f.cache.Write(key+".ics", body); err != nil {
		return err
	}
	data, err := json.Marshal(&meta)
	if err != nil {
		return err
	}
	return f.cache.Write(key+".meta", data)
}

// redactURL keeps only scheme and host; subscription URLs usually embed a
// secret token.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
