// Package engine is the follow notification core: it diffs freshly
// observed registry records against the follow index, builds per-user
// digests, fans them out across channels and advances delivery watermarks
// once a digest is confirmed sent.
package engine

import (
	"time"

	"nomwatch/internal/follow"
	"nomwatch/internal/registry"
)

// TaskItem is one followed item's share of a digest: the item key and the
// records that matched it and passed the watermark filter, in publication
// order. A record matching two followed items appears in both items; the
// duplication is intentional (each followed item deserves its own mention).
type TaskItem struct {
	Key     string
	Records []registry.Record
}

// Task is one user's pending digest for one follow kind. Tasks are built,
// delivered and discarded within a single dispatch cycle; they are never
// persisted.
type Task struct {
	UserID  int64
	Channel string
	Address string
	Kind    follow.Kind

	// Items is ordered by item key (the index returns follows sorted).
	Items []TaskItem
	// Total is the record count across items, counting multiplicity.
	Total int

	// RunStart is the moment this run fetched records. Watermarks advance
	// to it on success, so records published between fetch and send are
	// picked up next run instead of being skipped.
	RunStart time.Time
}

func (t *Task) ChannelName() string { return t.Channel }
func (t *Task) RecordCount() int    { return t.Total }

// ItemKeys returns the item keys of the task, in item order. The committer
// feeds this exact list into the batched watermark update.
func (t *Task) ItemKeys() []string {
	keys := make([]string, len(t.Items))
	for i, it := range t.Items {
		keys[i] = it.Key
	}
	return keys
}
