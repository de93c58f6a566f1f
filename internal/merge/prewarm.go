package merge

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdejaegh/ics-fusion/internal/config"
	appLog "github.com/jdejaegh/ics-fusion/internal/log"
)

// StartPrewarm schedules Prewarm on the given cron expression and starts
// the scheduler. The caller owns stopping the returned cron.
func StartPrewarm(cronSpec string, m *Merger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(cronSpec, func() {
		m.Prewarm(context.Background())
	}); err != nil {
		return nil, err
	}
	c.Start()
	appLog.Info("cache prewarm scheduled", "cron", cronSpec)
	return c, nil
}

// Prewarm force-refreshes every cached feed referenced by any available
// configuration, so cached endpoints stay warm between requests.
// Configurations that fail to resolve are skipped; they will fail the same
// way at serve time.
func (m *Merger) Prewarm(ctx context.Context) {
	names, err := m.store.ListAvailableNames()
	if err != nil {
		appLog.Error("prewarm: listing configurations failed", err)
		return
	}

	seen := make(map[string]bool)
	for _, name := range names {
		specs, err := config.ResolveName(name, m.store)
		if err != nil {
			appLog.Error("prewarm: skipping configuration", err, "endpoint", name)
			continue
		}

		for _, spec := range specs {
			ttlMinutes := spec.CacheTTLMinutes()
			if ttlMinutes == 0 || seen[spec.URL] {
				continue
			}
			seen[spec.URL] = true

			ttl := time.Duration(ttlMinutes) * time.Minute
			if err := m.cache.Refresh(ctx, spec.URL, spec.Encoding, ttl); err != nil {
				appLog.Error("prewarm: feed refresh failed", err, "endpoint", name, "feed", spec.Name)
			}
		}
	}
}
