package format

import (
	"strings"

	"nomwatch/internal/registry"
)

// Markup helpers shared by titles and leaf formatters. The markdown flag
// decides between Markdown markers and plain text; channel-specific
// dialect quirks stay in the channel adapters.
//
// The helpers are safe by default: registry text is arbitrary, and an
// unmatched marker inside it would make Telegram's parser reject the
// whole message, so every label is escaped before markers are added.

var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// Escape neutralizes Markdown metacharacters in free text. Bold, Italic
// and Link escape their labels themselves; Escape is for text emitted
// without markers, like plain sub-group titles.
func Escape(s string, markdown bool) string {
	if !markdown {
		return s
	}
	return mdEscaper.Replace(s)
}

func Bold(s string, markdown bool) string {
	if !markdown {
		return s
	}
	return "*" + mdEscaper.Replace(s) + "*"
}

func Italic(s string, markdown bool) string {
	if !markdown {
		return s
	}
	return "_" + mdEscaper.Replace(s) + "_"
}

func Link(label, url string, markdown bool) string {
	if url == "" {
		return Escape(label, markdown)
	}
	if !markdown {
		return label + " (" + url + ")"
	}
	return "[" + mdEscaper.Replace(label) + "](" + url + ")"
}

// RecordLine renders one record as a bullet line.
func RecordLine(r registry.Record, markdown bool) string {
	detail := strings.TrimSpace(r.Detail)
	if detail == "" {
		detail = strings.TrimSpace(r.PersonName)
	}
	if detail == "" {
		return ""
	}
	return "• " + Link(detail, r.Link, markdown)
}

// Records is the default leaf formatter: one bullet line per record, in
// input order, blank records skipped.
func Records(recs []registry.Record, markdown bool) string {
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		if line := RecordLine(r, markdown); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
