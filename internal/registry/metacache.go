package registry

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"nomwatch/pkg/logx"
)

// MetaSource supplies registry metadata that changes rarely: the mapping
// from organisation ids to their current display labels.
type MetaSource interface {
	OrgLabels(ctx context.Context) (map[string]string, error)
}

const metaLabelsKey = "org_labels"

type metaEntry struct {
	labels    map[string]string
	fetchedAt time.Time
}

// MetaCache is a process-wide read-through cache of registry metadata.
//
// It survives across runs (unlike any follow state, which is re-read every
// run). Entries stay valid for the staleness window; a refresh is
// deduplicated so that concurrent lookups trigger at most one upstream
// call. Stale data is served while a refresh is failing.
type MetaCache struct {
	src   MetaSource
	ttl   time.Duration
	log   logx.Logger
	now   func() time.Time
	store *gocache.Cache
	group singleflight.Group
}

func NewMetaCache(src MetaSource, ttl time.Duration, log logx.Logger) *MetaCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &MetaCache{
		src: src,
		ttl: ttl,
		log: log,
		now: time.Now,
		// Expiry is tracked on the entry against the injectable clock;
		// the store itself never evicts.
		store: gocache.New(gocache.NoExpiration, 0),
	}
}

// SetClock overrides the cache clock. Tests only.
func (c *MetaCache) SetClock(now func() time.Time) { c.now = now }

// OrgLabel resolves an organisation id to its display label.
func (c *MetaCache) OrgLabel(ctx context.Context, id string) (string, bool) {
	labels := c.labels(ctx)
	if labels == nil {
		return "", false
	}
	name, ok := labels[id]
	return name, ok
}

func (c *MetaCache) labels(ctx context.Context) map[string]string {
	if v, ok := c.store.Get(metaLabelsKey); ok {
		entry := v.(metaEntry)
		if c.now().Sub(entry.fetchedAt) < c.ttl {
			return entry.labels
		}
		// Stale: refresh, but fall back to the stale copy on failure.
		if fresh, err := c.refresh(ctx); err == nil {
			return fresh
		}
		return entry.labels
	}

	fresh, err := c.refresh(ctx)
	if err != nil {
		c.log.Warn("metadata refresh failed with empty cache", logx.Err(err))
		return nil
	}
	return fresh
}

// refresh fetches labels through a single-flight guard: concurrent callers
// share one upstream call and one store write.
func (c *MetaCache) refresh(ctx context.Context) (map[string]string, error) {
	v, err, _ := c.group.Do(metaLabelsKey, func() (any, error) {
		labels, err := c.src.OrgLabels(ctx)
		if err != nil {
			return nil, err
		}
		c.store.Set(metaLabelsKey, metaEntry{labels: labels, fetchedAt: c.now()}, gocache.NoExpiration)
		return labels, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}
