package engine

import (
	"time"

	"nomwatch/internal/follow"
	"nomwatch/internal/registry"
)

// BuildTasks intersects the window's records with the users' follows and
// returns one task per user with at least one record strictly newer than
// that user's watermark for some followed item.
//
// Reruns are idempotent: a record at or before the stored watermark is
// filtered out, so already-notified records never reappear. Two follows of
// the same user are diffed independently even when they name the same
// logical item through different keys; record dedup across items is left
// to the formatting layer, which keeps each followed item's own mention.
func BuildTasks(recs []registry.Record, users []follow.User, strat KindStrategy, runStart time.Time) []*Task {
	if len(recs) == 0 || len(users) == 0 {
		return nil
	}

	var tasks []*Task
	for _, u := range users {
		var (
			items []TaskItem
			total int
		)
		for _, f := range u.Follows {
			matched := strat.Match(f.Key, recs)
			if len(matched) == 0 {
				continue
			}
			newer := newerThan(matched, f.Watermark)
			if len(newer) == 0 {
				continue
			}
			items = append(items, TaskItem{Key: f.Key, Records: newer})
			total += len(newer)
		}
		// A user with nothing new produces no task; an empty channel call
		// would be wasted.
		if total == 0 {
			continue
		}
		tasks = append(tasks, &Task{
			UserID:   u.ID,
			Channel:  u.Channel,
			Address:  u.Address,
			Kind:     strat.Kind(),
			Items:    items,
			Total:    total,
			RunStart: runStart,
		})
	}
	return tasks
}

// newerThan keeps records published strictly after the watermark.
func newerThan(recs []registry.Record, watermark time.Time) []registry.Record {
	var out []registry.Record
	for _, r := range recs {
		if r.Published.After(watermark) {
			out = append(out, r)
		}
	}
	return out
}
