// Package dispatch fans notification tasks out across channels.
//
// Channels run fully in parallel with respect to each other; within one
// channel a bounded pool caps concurrent deliveries. There is no global cap
// across channels and no engine-level timeout: a hung send occupies one
// slot of its own channel only.
package dispatch

import (
	"context"
	"sort"
	"sync"

	"nomwatch/pkg/logx"
)

// Task is the unit of delivery. Implemented by engine.Task; dispatch only
// needs routing and sizing.
type Task interface {
	// ChannelName routes the task to a channel pool.
	ChannelName() string
	// RecordCount orders tasks: larger batches are started first.
	RecordCount() int
}

type Config struct {
	// Caps maps a channel name to its concurrency cap.
	Caps map[string]int
	// DefaultCap applies to channels absent from Caps (default 1).
	DefaultCap int
}

func (c Config) capFor(channel string) int {
	if n, ok := c.Caps[channel]; ok && n > 0 {
		return n
	}
	if c.DefaultCap > 0 {
		return c.DefaultCap
	}
	return 1
}

// Send delivers one task. A nil error means every part of a possibly
// multi-part delivery landed; the whole call holds one concurrency slot.
type Send[T Task] func(ctx context.Context, t T) error

// OnComplete is invoked per task with the delivery outcome. It is the
// integration point for the watermark committer.
type OnComplete[T Task] func(t T, success bool)

// Dispatch sorts tasks by record count descending, partitions them by
// channel, re-sorts each partition, and drains the partitions concurrently
// under their channel caps. It returns when every task has completed and
// its callback has run.
func Dispatch[T Task](ctx context.Context, tasks []T, cfg Config, send Send[T], onComplete OnComplete[T], log logx.Logger) {
	if len(tasks) == 0 {
		return
	}

	sorted := make([]T, len(tasks))
	copy(sorted, tasks)
	byCountDesc(sorted)

	partitions := make(map[string][]T)
	var channels []string
	for _, t := range sorted {
		ch := t.ChannelName()
		if _, ok := partitions[ch]; !ok {
			channels = append(channels, ch)
		}
		partitions[ch] = append(partitions[ch], t)
	}

	var wg sync.WaitGroup
	for _, ch := range channels {
		part := partitions[ch]
		// Partitioning a sorted slice keeps the order, but the per-channel
		// processing order must hold even if the global sort changes.
		byCountDesc(part)

		limit := cfg.capFor(ch)
		wg.Add(1)
		go func(ch string, part []T, limit int) {
			defer wg.Done()
			log.Debug("dispatching channel partition",
				logx.String("channel", ch),
				logx.Int("tasks", len(part)),
				logx.Int("cap", limit))
			RunPool(ctx, limit, part, func(ctx context.Context, t T) {
				err := send(ctx, t)
				if err != nil {
					log.Warn("task delivery failed",
						logx.String("channel", ch),
						logx.Int("records", t.RecordCount()),
						logx.Err(err))
				}
				if onComplete != nil {
					onComplete(t, err == nil)
				}
			})
		}(ch, part, limit)
	}
	wg.Wait()
}

func byCountDesc[T Task](tasks []T) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].RecordCount() > tasks[j].RecordCount()
	})
}
