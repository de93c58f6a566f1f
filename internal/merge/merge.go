// Package merge drives the whole flow for one endpoint: resolve the
// configuration, obtain each feed through the cache, run the per-feed
// pipeline and emit one merged calendar document.
package merge

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jdejaegh/ics-fusion/internal/cache"
	"github.com/jdejaegh/ics-fusion/internal/config"
	"github.com/jdejaegh/ics-fusion/internal/ics"
	appLog "github.com/jdejaegh/ics-fusion/internal/log"
	"github.com/jdejaegh/ics-fusion/internal/model"
	"github.com/jdejaegh/ics-fusion/internal/pipeline"
)

// Merger merges the feeds of one endpoint into a single calendar.
//
// Failure policy: configuration resolution errors abort the merge; a feed
// whose fetch or parse fails is logged and omitted, and the remaining feeds
// still serve.
type Merger struct {
	store config.Store
	cache *cache.Cache
	stamp bool
	now   func() time.Time
}

// New creates a Merger. stamp controls the "Downloaded at"/"Cached at"
// description line.
func New(store config.Store, c *cache.Cache, stamp bool) *Merger {
	return &Merger{store: store, cache: c, stamp: stamp, now: time.Now}
}

// Endpoints returns the names this merger can serve.
func (m *Merger) Endpoints() ([]string, error) {
	return m.store.ListAvailableNames()
}

// Merge resolves the named configuration and returns the serialized merged
// calendar. Events are concatenated in FeedSpec order with no
// de-duplication across feeds.
func (m *Merger) Merge(ctx context.Context, name string) (string, error) {
	specs, err := config.ResolveName(name, m.store)
	if err != nil {
		return "", err
	}

	// Compile every pipeline before touching the network: rule errors are
	// fatal for the endpoint, not per-feed.
	programs := make([]*pipeline.Program, len(specs))
	for i, spec := range specs {
		prog, err := pipeline.New(spec)
		if err != nil {
			return "", err
		}
		programs[i] = prog
	}

	// Fan out per feed; results slots keep declaration order. A feed
	// failure only empties its own slot.
	results := make([][]model.Event, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			events, err := m.feedEvents(gctx, spec, programs[i])
			if err != nil {
				appLog.Error("feed omitted from merge", err, "endpoint", name, "feed", spec.Name)
				return nil
			}
			results[i] = events
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.Event
	for _, events := range results {
		merged = append(merged, events...)
	}

	appLog.Info("merge completed", "endpoint", name, "feeds", len(specs), "events", len(merged))
	return ics.Build(name, merged), nil
}

func (m *Merger) feedEvents(ctx context.Context, spec config.FeedSpec, prog *pipeline.Program) ([]model.Event, error) {
	ttl := time.Duration(spec.CacheTTLMinutes()) * time.Minute

	res, err := m.cache.Get(ctx, spec.URL, spec.Encoding, ttl)
	if err != nil {
		return nil, err
	}

	events, err := ics.Parse(spec.Name, res.Raw)
	if err != nil {
		return nil, err
	}

	out := prog.Run(events)
	if m.stamp {
		stampEvents(out, res.FromCache, m.now())
	}
	return out, nil
}

// stampEvents appends a provenance line to each event description, after
// the pipeline so filters and transforms saw the original values.
func stampEvents(events []model.Event, fromCache bool, now time.Time) {
	prefix := "Downloaded at"
	if fromCache {
		prefix = "Cached at"
	}
	line := prefix + " " + now.Format("2006-01-02 15:04:05")

	for i := range events {
		ev := &events[i]
		if ev.Description == "" {
			ev.Description = line
		} else {
			ev.Description += "\n" + line
		}
		ev.Raw.SetDescription(ev.Description)
	}
}
