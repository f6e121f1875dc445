package format

import (
	"strings"
	"testing"
	"time"

	"nomwatch/internal/registry"
	"nomwatch/pkg/logx"
)

func day(n int) time.Time {
	return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
}

func rec(detail string, published time.Time, orgs ...string) registry.Record {
	r := registry.Record{Detail: detail, Published: published}
	for _, o := range orgs {
		r.Orgs = append(r.Orgs, registry.OrgRef{Name: o})
	}
	return r
}

func orgGrouping(fallback string) *Config {
	return &Config{
		GroupID: func(r registry.Record) []string {
			var names []string
			for _, o := range r.Orgs {
				if o.Name != "" {
					names = append(names, o.Name)
				}
			}
			return names
		},
		Fallback: fallback,
		Title: func(id string, _ []registry.Record, markdown bool) string {
			return Bold(id, markdown)
		},
		Leaf: Records,
	}
}

func TestRenderSiblingOrderAndSeparators(t *testing.T) {
	t.Parallel()

	// Ministry A: 3 records, most recent day 20. Ministry B: 1 record,
	// day 15. A must render before B; one separator between them, none
	// after B.
	records := []registry.Record{
		rec("b1", day(15), "Ministry B"),
		rec("a1", day(12), "Ministry A"),
		rec("a2", day(20), "Ministry A"),
		rec("a3", day(8), "Ministry A"),
	}

	out, ok := Render(records, false, orgGrouping(""), logx.Nop())
	if !ok {
		t.Fatal("expected output")
	}

	posA := strings.Index(out, "Ministry A")
	posB := strings.Index(out, "Ministry B")
	if posA < 0 || posB < 0 || posA > posB {
		t.Fatalf("expected Ministry A before Ministry B:\n%s", out)
	}
	if strings.Count(out, "\n\n") != 1 {
		t.Fatalf("expected exactly one top-level separator:\n%q", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Fatalf("trailing separator after last sibling:\n%q", out)
	}
}

func TestRenderTieBrokenByReverseLexicographicID(t *testing.T) {
	t.Parallel()

	records := []registry.Record{
		rec("x", day(10), "Alpha"),
		rec("y", day(10), "Beta"),
	}
	out, ok := Render(records, false, orgGrouping(""), logx.Nop())
	if !ok {
		t.Fatal("expected output")
	}
	if strings.Index(out, "Beta") > strings.Index(out, "Alpha") {
		t.Fatalf("tie must order reverse-lexicographically:\n%s", out)
	}
}

func TestRenderCompletenessWithMultiplicity(t *testing.T) {
	t.Parallel()

	// One record naming two organisations surfaces under both; with a
	// fallback configured, nothing is ever dropped.
	records := []registry.Record{
		rec("shared", day(10), "Alpha", "Beta"),
		rec("plain", day(9), "Alpha"),
		rec("orphan", day(8)),
	}
	out, ok := Render(records, false, orgGrouping("Elsewhere"), logx.Nop())
	if !ok {
		t.Fatal("expected output")
	}
	if got := strings.Count(out, "shared"); got != 2 {
		t.Fatalf("multi-assigned record appeared %d times, want 2:\n%s", got, out)
	}
	if !strings.Contains(out, "orphan") || !strings.Contains(out, "Elsewhere") {
		t.Fatalf("fallback group lost the orphan record:\n%s", out)
	}
	if !strings.Contains(out, "plain") {
		t.Fatalf("record dropped:\n%s", out)
	}
}

func TestRenderDropsOrphansWithoutFallback(t *testing.T) {
	t.Parallel()

	records := []registry.Record{rec("orphan", day(8))}
	if _, ok := Render(records, false, orgGrouping(""), logx.Nop()); ok {
		t.Fatal("expected degenerate grouping to yield no output")
	}
}

func TestRenderNestedGrouping(t *testing.T) {
	t.Parallel()

	cfg := orgGrouping("")
	cfg.Sub = &Config{
		GroupID: func(r registry.Record) []string {
			if r.Kind == "" {
				return nil
			}
			return []string{r.Kind}
		},
		Fallback: "other",
		Title: func(id string, _ []registry.Record, markdown bool) string {
			return Italic(id, markdown)
		},
		Leaf: Records,
	}

	r1 := rec("nommé", day(10), "Alpha")
	r1.Kind = "nomination"
	r2 := rec("promu", day(11), "Alpha")
	r2.Kind = "promotion"

	out, ok := Render([]registry.Record{r1, r2}, true, cfg, logx.Nop())
	if !ok {
		t.Fatal("expected output")
	}
	for _, want := range []string{"*Alpha*", "_nomination_", "_promotion_", "• nommé", "• promu"} {
		if !strings.Contains(out, want) {
			t.Fatalf("nested render missing %q:\n%s", want, out)
		}
	}
	// Nested siblings separate with a single newline, not a blank line.
	if strings.Contains(out, "\n\n") {
		t.Fatalf("nested levels must not use the top-level separator:\n%q", out)
	}
}

func TestRenderEmptyInput(t *testing.T) {
	t.Parallel()
	if _, ok := Render(nil, false, orgGrouping("x"), logx.Nop()); ok {
		t.Fatal("expected no output for empty input")
	}
}

func TestLinkRendering(t *testing.T) {
	t.Parallel()
	r := registry.Record{Detail: "nommé préfet", Link: "https://example.org/a"}
	if got := RecordLine(r, true); got != "• [nommé préfet](https://example.org/a)" {
		t.Fatalf("markdown line = %q", got)
	}
	if got := RecordLine(r, false); got != "• nommé préfet (https://example.org/a)" {
		t.Fatalf("plain line = %q", got)
	}
}

func TestMarkupEscapesRegistryText(t *testing.T) {
	t.Parallel()

	// Registry text can carry Markdown metacharacters; unescaped they would
	// make Telegram's parser reject the whole message.
	if got := Bold("DGA_Armement *chef*", true); got != `*DGA\_Armement \*chef\**` {
		t.Fatalf("bold = %q", got)
	}
	if got := Italic("annexe [1]", true); got != `_annexe \[1]_` {
		t.Fatalf("italic = %q", got)
	}
	if got := Link("art. 2_bis", "https://example.org/x", true); got != `[art. 2\_bis](https://example.org/x)` {
		t.Fatalf("link label = %q", got)
	}
	if got := Escape("`code`", true); got != "\\`code\\`" {
		t.Fatalf("escape = %q", got)
	}
	// Plain mode passes text through untouched.
	if got := Bold("a_b", false); got != "a_b" {
		t.Fatalf("plain bold = %q", got)
	}

	r := registry.Record{Detail: "nommé chef_de_cabinet", Link: "https://example.org/a"}
	if got := RecordLine(r, true); got != `• [nommé chef\_de\_cabinet](https://example.org/a)` {
		t.Fatalf("escaped line = %q", got)
	}
	r.Link = ""
	if got := RecordLine(r, true); got != `• nommé chef\_de\_cabinet` {
		t.Fatalf("escaped bare line = %q", got)
	}
}
