package engine

import (
	"testing"

	"nomwatch/internal/registry"
)

func TestReferenceGroupTitleUsesNewestDay(t *testing.T) {
	t.Parallel()

	// The newest publication must win regardless of record order; a
	// later-but-not-latest record must not steal the title date.
	recs := []registry.Record{
		orgRecord("ref-1", day(5), "O", "a"),
		orgRecord("ref-1", day(20), "O", "b"),
		orgRecord("ref-1", day(12), "O", "c"),
	}
	got := referenceGrouping().Title("ref-1", recs, false)
	want := "20 Jan 2026 · ref-1"
	if got != want {
		t.Fatalf("title = %q, want %q", got, want)
	}
}

func TestReferenceGroupTitleSingleRecord(t *testing.T) {
	t.Parallel()

	recs := []registry.Record{orgRecord("ref-9", day(3), "O", "a")}
	if got := referenceGrouping().Title("ref-9", recs, false); got != "3 Jan 2026 · ref-9" {
		t.Fatalf("title = %q", got)
	}
}
