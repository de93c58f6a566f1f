// Package cache holds fetched raw feed bodies per source URL with a
// per-feed TTL. It is the only shared mutable state in the service.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	appLog "github.com/jdejaegh/ics-fusion/internal/log"
)

// Fetcher is the capability the cache needs to fill a miss.
type Fetcher interface {
	Fetch(ctx context.Context, url, encoding string) ([]byte, error)
}

// Entry is one cached feed body. Entries are keyed by URL only: two specs
// pointing at the same URL share one entry, and the last writer's TTL
// governs when it goes stale.
type Entry struct {
	URL       string
	FetchedAt time.Time
	TTL       time.Duration
	Raw       []byte
}

// Result is a retrieved body plus its provenance.
type Result struct {
	Raw       []byte
	FromCache bool
}

// Cache is a concurrency-safe URL-keyed feed store. Concurrent misses for
// one URL collapse into a single upstream fetch.
type Cache struct {
	fetcher Fetcher
	store   *gocache.Cache
	group   singleflight.Group
	now     func() time.Time
}

// New creates a Cache backed by the given fetcher.
func New(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		// Freshness is decided explicitly against Entry.FetchedAt; the
		// store-level expiration only evicts entries nothing asks for
		// anymore.
		store: gocache.New(gocache.NoExpiration, 30*time.Minute),
		now:   time.Now,
	}
}

// Get returns the feed body for url. A zero ttl means the feed is not
// cached: it is fetched fresh every time and never stored. Otherwise a
// stored entry is reused until it is ttl old, then replaced by a fresh
// fetch.
func (c *Cache) Get(ctx context.Context, url, encoding string, ttl time.Duration) (Result, error) {
	if ttl <= 0 {
		raw, err := c.fetcher.Fetch(ctx, url, encoding)
		if err != nil {
			return Result{}, err
		}
		return Result{Raw: raw}, nil
	}

	if entry, ok := c.lookup(url); ok {
		return Result{Raw: entry.Raw, FromCache: true}, nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		// Another caller may have refreshed the entry while this one was
		// waiting on the flight group.
		if entry, ok := c.lookup(url); ok {
			return Result{Raw: entry.Raw, FromCache: true}, nil
		}

		raw, err := c.fetcher.Fetch(ctx, url, encoding)
		if err != nil {
			return Result{}, err
		}
		c.put(url, ttl, raw)
		return Result{Raw: raw}, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Refresh force-fetches url and stores the result, regardless of freshness.
// Used by the background prewarm job.
func (c *Cache) Refresh(ctx context.Context, url, encoding string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := c.fetcher.Fetch(ctx, url, encoding)
	if err != nil {
		return err
	}
	c.put(url, ttl, raw)
	appLog.Debug("feed cache refreshed", "url_key", url, "ttl", ttl)
	return nil
}

// lookup returns the entry for url if one exists and is still fresh by its
// own recorded TTL.
func (c *Cache) lookup(url string) (Entry, bool) {
	v, ok := c.store.Get(url)
	if !ok {
		return Entry{}, false
	}
	entry := v.(Entry)
	if c.now().Sub(entry.FetchedAt) >= entry.TTL {
		return Entry{}, false
	}
	return entry, true
}

func (c *Cache) put(url string, ttl time.Duration, raw []byte) {
	c.store.Set(url, Entry{
		URL:       url,
		FetchedAt: c.now(),
		TTL:       ttl,
		Raw:       raw,
	}, gocache.NoExpiration)
}
