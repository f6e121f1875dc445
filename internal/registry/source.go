package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nomwatch/pkg/logx"
)

// Client fetches raw records for one date sub-range. Implementations sit in
// the (out of scope) HTTP adapter; they are expected to return pre-cleaned
// records with required fields present.
type Client interface {
	Fetch(ctx context.Context, from, to time.Time) ([]Record, error)
}

type SourceConfig struct {
	// Lookback bounds the observation window (default 30 days).
	Lookback time.Duration
	// ChunkDays splits the window into per-request sub-ranges (default 7).
	ChunkDays int
	// MaxInFlight caps simultaneous fetches (default 4).
	MaxInFlight int
}

func (c SourceConfig) withDefaults() SourceConfig {
	if c.Lookback <= 0 {
		c.Lookback = 30 * 24 * time.Hour
	}
	if c.ChunkDays <= 0 {
		c.ChunkDays = 7
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 4
	}
	return c
}

// Source supplies the flat, deduplicated record sequence for one run.
//
// A failed sub-range is logged and skipped: partial data is preferred over
// aborting the whole cycle. Window only returns an error when every
// sub-range failed.
type Source struct {
	client Client
	cfg    SourceConfig
	log    logx.Logger
	now    func() time.Time
}

func NewSource(client Client, cfg SourceConfig, log logx.Logger) *Source {
	return &Source{client: client, cfg: cfg.withDefaults(), log: log, now: time.Now}
}

// SetClock overrides the source clock. Tests only.
func (s *Source) SetClock(now func() time.Time) { s.now = now }

// Window fetches all records observed within the lookback window, in
// ascending publication order, deduplicated by Record.Identity.
func (s *Source) Window(ctx context.Context) ([]Record, error) {
	cfg := s.cfg
	end := s.now()
	start := end.Add(-cfg.Lookback)

	type chunk struct{ from, to time.Time }
	var chunks []chunk
	step := time.Duration(cfg.ChunkDays) * 24 * time.Hour
	for from := start; from.Before(end); from = from.Add(step) {
		to := from.Add(step)
		if to.After(end) {
			to = end
		}
		chunks = append(chunks, chunk{from: from, to: to})
	}

	var (
		mu      sync.Mutex
		fetched []Record
		failed  int
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxInFlight)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			recs, err := s.client.Fetch(gctx, c.from, c.to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				lastErr = err
				s.log.Warn("record fetch failed for sub-range; skipping",
					logx.Time("from", c.from), logx.Time("to", c.to), logx.Err(err))
				return nil
			}
			fetched = append(fetched, recs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(fetched) == 0 && failed > 0 {
		return nil, fmt.Errorf("all %d record sub-ranges failed: %w", failed, lastErr)
	}

	out := dedupe(fetched)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Published.Before(out[j].Published) })

	s.log.Info("record window fetched",
		logx.Int("records", len(out)),
		logx.Int("chunks", len(chunks)),
		logx.Int("failed_chunks", failed))
	return out, nil
}

func dedupe(recs []Record) []Record {
	seen := make(map[string]struct{}, len(recs))
	out := recs[:0]
	for _, r := range recs {
		id := r.Identity()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}
