package channel

import "strings"

// SplitMessage breaks text into parts of at most limit runes.
//
// It prefers paragraph boundaries (blank lines), then single lines, and
// only hard-cuts when one line alone exceeds the limit. Part boundaries
// never eat content: joining the parts back (with the separators they were
// split on) reproduces the text minus trailing whitespace.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || runeLen(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
	}

	appendBlock := func(block, sep string) {
		bl := runeLen(block)
		sl := runeLen(sep)
		if curLen > 0 && curLen+sl+bl > limit {
			flush()
		}
		if bl > limit {
			// Single oversized block: hard-cut by runes.
			flush()
			for _, piece := range hardCut(block, limit) {
				parts = append(parts, piece)
			}
			return
		}
		if curLen > 0 {
			cur.WriteString(sep)
			curLen += sl
		}
		cur.WriteString(block)
		curLen += bl
	}

	for _, para := range strings.Split(text, "\n\n") {
		if runeLen(para) <= limit {
			appendBlock(para, "\n\n")
			continue
		}
		for _, line := range strings.Split(para, "\n") {
			appendBlock(line, "\n")
		}
	}
	flush()
	return parts
}

func hardCut(s string, limit int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > limit {
		out = append(out, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

func runeLen(s string) int { return len([]rune(s)) }
