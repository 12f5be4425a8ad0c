package core

import (
	"regexp"
	"strings"
)

// RunKind classifies one fragment of inline-formatted text.
type RunKind int

const (
	RunPlain RunKind = iota
	RunBold
	RunLink
)

// Run is one renderable fragment.  Href is set only for RunLink.
type Run struct {
	Kind RunKind `json:"kind"`
	Text string  `json:"text"`
	Href string  `json:"href,omitempty"`
}

// inlineRe alternates the two supported inline spans: bold (`**text**`) and
// links (`[display](href)`).  Groups 1 = bold text, 2 = link display,
// 3 = link href.
var inlineRe = regexp.MustCompile(`\*\*([^*\n]+)\*\*|\[([^\]\n]+)\]\(([^)\n]+)\)`)

// FormatInline tokenizes restricted inline markup into an ordered run
// sequence.  All non-matching text is preserved as plain runs, so
// re-inserting the delimiters reconstructs the input exactly.  Malformed or
// unbalanced markup is left as plain text; this function is pure and never
// fails.
func FormatInline(text string) []Run {
	matches := inlineRe.FindAllStringSubmatchIndex(text, -1)
	runs := make([]Run, 0, 2*len(matches)+1)
	last := 0

	for _, m := range matches {
		if m[0] > last {
			runs = append(runs, Run{Kind: RunPlain, Text: text[last:m[0]]})
		}
		switch {
		case m[2] != -1:
			runs = append(runs, Run{Kind: RunBold, Text: text[m[2]:m[3]]})
		default:
			runs = append(runs, Run{Kind: RunLink, Text: text[m[4]:m[5]], Href: text[m[6]:m[7]]})
		}
		last = m[1]
	}
	if last < len(text) || len(runs) == 0 {
		runs = append(runs, Run{Kind: RunPlain, Text: text[last:]})
	}
	return runs
}

// RenderText flattens inline markup to plain text for transcript export:
// bold markers are dropped and links become "display (href)".
func RenderText(text string) string {
	var b strings.Builder
	for _, r := range FormatInline(text) {
		switch r.Kind {
		case RunLink:
			b.WriteString(r.Text)
			b.WriteString(" (")
			b.WriteString(r.Href)
			b.WriteString(")")
		default:
			b.WriteString(r.Text)
		}
	}
	return b.String()
}
