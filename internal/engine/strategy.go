package engine

import (
	"context"
	"fmt"
	"strings"

	"nomwatch/internal/follow"
	"nomwatch/internal/format"
	"nomwatch/internal/registry"
)

// KindStrategy is everything that differs between follow kinds. The engine
// itself is written once and parameterized by a strategy per kind.
type KindStrategy interface {
	Kind() follow.Kind

	// CandidateKeys derives the item keys present in the window's records
	// so the index query can narrow to affected users. A nil return means
	// the kind matches textually and every follow of the kind must be
	// diffed in the engine.
	CandidateKeys(recs []registry.Record) []string

	// Match returns the records matching one followed item key, keeping
	// input order.
	Match(key string, recs []registry.Record) []registry.Record

	// Grouping returns the grouping config for one item's record block.
	Grouping() *format.Config

	// Header renders the digest's first line.
	Header(total int, markdown bool) string

	// ItemTitle renders the heading for one followed item's block.
	ItemTitle(ctx context.Context, item TaskItem, markdown bool) string
}

// Strategies returns one strategy per follow kind, in processing order.
func Strategies(meta *registry.MetaCache) []KindStrategy {
	return []KindStrategy{
		personStrategy{},
		orgStrategy{meta: meta},
		functionStrategy{},
		nameStrategy{},
		alertStrategy{},
	}
}

// ---- person ----

type personStrategy struct{}

func (personStrategy) Kind() follow.Kind { return follow.KindPerson }

func (personStrategy) CandidateKeys(recs []registry.Record) []string {
	return uniqueKeys(recs, func(r registry.Record) []string {
		if r.PersonID == "" {
			return nil
		}
		return []string{r.PersonID}
	})
}

func (personStrategy) Match(key string, recs []registry.Record) []registry.Record {
	return matchRecords(recs, func(r registry.Record) bool { return r.PersonID == key })
}

func (personStrategy) Grouping() *format.Config { return referenceGrouping() }

func (personStrategy) Header(total int, markdown bool) string {
	return digestHeader("👤", "People you follow", total, markdown)
}

func (personStrategy) ItemTitle(_ context.Context, item TaskItem, markdown bool) string {
	name := item.Key
	if len(item.Records) > 0 && item.Records[0].PersonName != "" {
		name = item.Records[0].PersonName
	}
	return format.Bold(name, markdown)
}

// ---- organisation ----

type orgStrategy struct {
	meta *registry.MetaCache
}

func (orgStrategy) Kind() follow.Kind { return follow.KindOrg }

func (orgStrategy) CandidateKeys(recs []registry.Record) []string {
	return uniqueKeys(recs, func(r registry.Record) []string { return r.OrgIDs() })
}

func (orgStrategy) Match(key string, recs []registry.Record) []registry.Record {
	return matchRecords(recs, func(r registry.Record) bool {
		for _, o := range r.Orgs {
			if o.ID == key {
				return true
			}
		}
		return false
	})
}

func (orgStrategy) Grouping() *format.Config { return referenceGrouping() }

func (orgStrategy) Header(total int, markdown bool) string {
	return digestHeader("🏛", "Organisations you follow", total, markdown)
}

func (s orgStrategy) ItemTitle(ctx context.Context, item TaskItem, markdown bool) string {
	// Prefer the registry's current label; fall back to the name as
	// published, then to the raw id.
	if s.meta != nil {
		if label, ok := s.meta.OrgLabel(ctx, item.Key); ok {
			return format.Bold(label, markdown)
		}
	}
	for _, r := range item.Records {
		for _, o := range r.Orgs {
			if o.ID == item.Key && o.Name != "" {
				return format.Bold(o.Name, markdown)
			}
		}
	}
	return format.Bold(item.Key, markdown)
}

// ---- function tag ----

type functionStrategy struct{}

func (functionStrategy) Kind() follow.Kind { return follow.KindFunction }

func (functionStrategy) CandidateKeys(recs []registry.Record) []string {
	return uniqueKeys(recs, func(r registry.Record) []string { return r.FunctionTags })
}

func (functionStrategy) Match(key string, recs []registry.Record) []registry.Record {
	return matchRecords(recs, func(r registry.Record) bool {
		for _, tag := range r.FunctionTags {
			if tag == key {
				return true
			}
		}
		return false
	})
}

func (functionStrategy) Grouping() *format.Config { return organisationGrouping() }

func (functionStrategy) Header(total int, markdown bool) string {
	return digestHeader("💼", "Functions you follow", total, markdown)
}

func (functionStrategy) ItemTitle(_ context.Context, item TaskItem, markdown bool) string {
	return format.Bold(item.Key, markdown)
}

// ---- free-text name ----

type nameStrategy struct{}

func (nameStrategy) Kind() follow.Kind { return follow.KindName }

// Name follows match case- and accent-insensitively in the engine, so the
// index query cannot narrow by key.
func (nameStrategy) CandidateKeys([]registry.Record) []string { return nil }

func (nameStrategy) Match(key string, recs []registry.Record) []registry.Record {
	return matchRecords(recs, func(r registry.Record) bool {
		return NameMatches(key, r.PersonName)
	})
}

func (nameStrategy) Grouping() *format.Config { return referenceGrouping() }

func (nameStrategy) Header(total int, markdown bool) string {
	return digestHeader("🔎", "Names you follow", total, markdown)
}

func (nameStrategy) ItemTitle(_ context.Context, item TaskItem, markdown bool) string {
	return format.Bold(item.Key, markdown)
}

// ---- free-text alert ----

type alertStrategy struct{}

func (alertStrategy) Kind() follow.Kind { return follow.KindAlert }

func (alertStrategy) CandidateKeys([]registry.Record) []string { return nil }

func (alertStrategy) Match(key string, recs []registry.Record) []registry.Record {
	return matchRecords(recs, func(r registry.Record) bool {
		return AlertMatches(key, recordText(r))
	})
}

func (alertStrategy) Grouping() *format.Config { return organisationGrouping() }

func (alertStrategy) Header(total int, markdown bool) string {
	return digestHeader("🔔", "Your alerts", total, markdown)
}

func (alertStrategy) ItemTitle(_ context.Context, item TaskItem, markdown bool) string {
	return format.Bold("“"+item.Key+"”", markdown)
}

// ---- shared helpers ----

func digestHeader(emoji, label string, total int, markdown bool) string {
	return fmt.Sprintf("%s %s — %d new", emoji, format.Bold(label, markdown), total)
}

func uniqueKeys(recs []registry.Record, keysOf func(registry.Record) []string) []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0, len(recs))
	for _, r := range recs {
		for _, k := range keysOf(r) {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

func matchRecords(recs []registry.Record, pred func(registry.Record) bool) []registry.Record {
	var out []registry.Record
	for _, r := range recs {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// recordText is the haystack alert phrases are matched against.
func recordText(r registry.Record) string {
	var b strings.Builder
	b.WriteString(r.Detail)
	b.WriteByte(' ')
	b.WriteString(r.PersonName)
	for _, o := range r.Orgs {
		b.WriteByte(' ')
		b.WriteString(o.Name)
	}
	for _, tag := range r.FunctionTags {
		b.WriteByte(' ')
		b.WriteString(tag)
	}
	return b.String()
}

// referenceGrouping groups by publication reference with kind sub-groups:
// the default digest layout for kinds whose item already scopes the
// records to one subject.
func referenceGrouping() *format.Config {
	return &format.Config{
		GroupID: func(r registry.Record) []string {
			if r.RefID == "" {
				return nil
			}
			return []string{r.RefID}
		},
		Fallback: "unreferenced",
		Title: func(id string, recs []registry.Record, markdown bool) string {
			if len(recs) == 0 {
				return format.Escape(id, markdown)
			}
			newest := recs[0].Published
			for _, r := range recs[1:] {
				if r.Published.After(newest) {
					newest = r.Published
				}
			}
			return format.Italic(newest.Format("2 Jan 2006")+" · "+id, markdown)
		},
		Sub: &format.Config{
			GroupID: func(r registry.Record) []string {
				if r.Kind == "" {
					return nil
				}
				return []string{r.Kind}
			},
			Fallback: "other",
			Title: func(id string, _ []registry.Record, markdown bool) string {
				return format.Escape(kindLabel(id), markdown)
			},
			Leaf: format.Records,
		},
		Leaf: format.Records,
	}
}

// organisationGrouping groups by the organisations a record names, with
// kind sub-groups. Used by kinds whose items span several bodies.
func organisationGrouping() *format.Config {
	return &format.Config{
		GroupID: func(r registry.Record) []string {
			var names []string
			for _, o := range r.Orgs {
				if o.Name != "" {
					names = append(names, o.Name)
				}
			}
			return names
		},
		Fallback: "Other bodies",
		Title: func(id string, _ []registry.Record, markdown bool) string {
			return format.Bold(id, markdown)
		},
		Sub: &format.Config{
			GroupID: func(r registry.Record) []string {
				if r.Kind == "" {
					return nil
				}
				return []string{r.Kind}
			},
			Fallback: "other",
			Title: func(id string, _ []registry.Record, markdown bool) string {
				return format.Escape(kindLabel(id), markdown)
			},
			Leaf: format.Records,
		},
		Leaf: format.Records,
	}
}

func kindLabel(kind string) string {
	if kind == "" {
		return ""
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}
