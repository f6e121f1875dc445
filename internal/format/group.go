// Package format turns a flat record set into a nested, ordered digest.
//
// Grouping is a pure recursive partition: each level assigns records to one
// or more named groups, orders the groups, emits a title per group and
// either recurses into a sub-level or hands the group's records to a leaf
// formatter. Markup (markdown vs plain) is a boolean threaded through to
// titles and leaves; the grouping logic itself is markup-agnostic.
package format

import (
	"sort"
	"strings"
	"time"

	"nomwatch/internal/registry"
	"nomwatch/pkg/logx"
)

// Config describes one grouping level.
type Config struct {
	// GroupID assigns a record to one or more groups. A record naming two
	// organisations surfaces under both. An empty result sends the record
	// to Fallback, or drops it when Fallback is empty.
	GroupID func(r registry.Record) []string

	// Fallback is the label for records without a derivable group id.
	Fallback string

	// Order sorts group ids for rendering. Nil uses the default:
	// most-recent-record-first, ties broken by reverse lexicographic id.
	Order func(ids []string, groups map[string][]registry.Record) []string

	// Title renders the header line for a group. Nil uses the raw id.
	Title func(id string, recs []registry.Record, markdown bool) string

	// Sub, when set, is applied recursively to each group's records.
	Sub *Config

	// Leaf renders a raw record list. Required on the terminal level; on
	// levels with a Sub it is the fallback when the sub-level yields no
	// output.
	Leaf func(recs []registry.Record, markdown bool) string

	// Separator returns the text between sibling groups at the given
	// nesting depth. Nil uses the default. Never emitted after the last
	// sibling.
	Separator func(depth int) string
}

// Render formats records through the grouping config.
//
// The second return is false when the grouping produced no output at all
// (every candidate group empty); the caller must then fall back to an
// ungrouped leaf render rather than send an empty notification.
func Render(recs []registry.Record, markdown bool, cfg *Config, log logx.Logger) (string, bool) {
	if cfg == nil || len(recs) == 0 {
		return "", false
	}
	text := render(recs, markdown, cfg, 0, log)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func render(recs []registry.Record, markdown bool, cfg *Config, depth int, log logx.Logger) string {
	ids, groups := partition(recs, cfg)
	if len(ids) == 0 {
		return ""
	}

	order := cfg.Order
	if order == nil {
		order = defaultOrder
	}
	ids = order(ids, groups)

	sep := cfg.Separator
	if sep == nil {
		sep = defaultSeparator
	}

	var blocks []string
	for _, id := range ids {
		g := groups[id]
		if len(g) == 0 {
			// A group key with zero records is a config inconsistency,
			// not a reason to abort the digest.
			log.Warn("grouping produced empty group; skipping", logx.String("group", id))
			continue
		}

		var body string
		if cfg.Sub != nil {
			body = render(g, markdown, cfg.Sub, depth+1, log)
			if strings.TrimSpace(body) == "" && cfg.Leaf != nil {
				body = cfg.Leaf(g, markdown)
			}
		} else if cfg.Leaf != nil {
			body = cfg.Leaf(g, markdown)
		}
		if strings.TrimSpace(body) == "" {
			log.Warn("group rendered empty; skipping", logx.String("group", id))
			continue
		}

		title := id
		if cfg.Title != nil {
			title = cfg.Title(id, g, markdown)
		}
		if strings.TrimSpace(title) == "" {
			blocks = append(blocks, body)
		} else {
			blocks = append(blocks, title+"\n"+body)
		}
	}

	return strings.Join(blocks, sep(depth))
}

// partition splits records into groups, keeping first-seen id order and the
// input record order within each group. Multi-assigned records appear once
// per assigned group.
func partition(recs []registry.Record, cfg *Config) ([]string, map[string][]registry.Record) {
	var ids []string
	groups := make(map[string][]registry.Record)
	add := func(id string, r registry.Record) {
		if _, ok := groups[id]; !ok {
			ids = append(ids, id)
		}
		groups[id] = append(groups[id], r)
	}

	for _, r := range recs {
		var assigned []string
		if cfg.GroupID != nil {
			assigned = cfg.GroupID(r)
		}
		if len(assigned) == 0 {
			if cfg.Fallback == "" {
				continue
			}
			add(cfg.Fallback, r)
			continue
		}
		for _, id := range assigned {
			if id == "" {
				id = cfg.Fallback
				if id == "" {
					continue
				}
			}
			add(id, r)
		}
	}
	return ids, groups
}

func defaultOrder(ids []string, groups map[string][]registry.Record) []string {
	sort.SliceStable(ids, func(i, j int) bool {
		mi := maxPublished(groups[ids[i]])
		mj := maxPublished(groups[ids[j]])
		if !mi.Equal(mj) {
			return mi.After(mj)
		}
		return ids[i] > ids[j]
	})
	return ids
}

func maxPublished(recs []registry.Record) time.Time {
	var m time.Time
	for _, r := range recs {
		if r.Published.After(m) {
			m = r.Published
		}
	}
	return m
}

// defaultSeparator weights separators by nesting depth: top-level siblings
// get a blank line, nested siblings a single newline.
func defaultSeparator(depth int) string {
	if depth == 0 {
		return "\n\n"
	}
	return "\n"
}
