package registry

import (
	"strings"
	"time"
)

// OrgRef identifies an organisation named by a record. Name is the label
// as published; ID is the registry's stable organisation identifier and
// may be empty for bodies the registry has not normalized yet.
type OrgRef struct {
	ID   string
	Name string
}

// Record is one published appointment fact from the external registry.
// Records are read-only inputs for a run; the engine never mutates them.
type Record struct {
	// RefID is the stable reference id of the publication. Facts published
	// together share a RefID.
	RefID     string
	Published time.Time

	// Kind is the registry's category for the fact
	// (e.g. "nomination", "promotion", "cessation").
	Kind string

	PersonID   string
	PersonName string

	Orgs         []OrgRef
	FunctionTags []string

	// Detail is the pre-rendered one-line description of the fact.
	Detail string
	// Link points at the published source entry, when the registry has one.
	Link string
}

// Identity returns the dedup key for a record. Two fetch chunks overlapping
// on a boundary day may both return the same fact; this collapses them.
func (r Record) Identity() string {
	var b strings.Builder
	b.WriteString(r.RefID)
	b.WriteByte('|')
	b.WriteString(r.PersonID)
	b.WriteByte('|')
	b.WriteString(r.PersonName)
	b.WriteByte('|')
	b.WriteString(r.Kind)
	return b.String()
}

// OrgIDs returns the non-empty organisation ids named by the record.
func (r Record) OrgIDs() []string {
	ids := make([]string, 0, len(r.Orgs))
	for _, o := range r.Orgs {
		if o.ID != "" {
			ids = append(ids, o.ID)
		}
	}
	return ids
}
