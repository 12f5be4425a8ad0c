package core

import (
	"regexp"
	"strings"
)

// Section is one titled block of structured advice.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SegmentedAdvice is the decomposition of an advice response into an
// optional intro, ordered titled sections, and an optional outro.  It is
// derived at render time and never persisted.
type SegmentedAdvice struct {
	Intro    string    `json:"intro,omitempty"`
	Sections []Section `json:"sections"`
	Outro    string    `json:"outro,omitempty"`
}

// headingRe matches one numbered bold heading at the start of a line:
// `N. **Title:**`.  The title is captured without the trailing colon.  The
// segmenter is generic over titles; it must not know the fixed set the
// model is instructed to use.
var headingRe = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+\*\*([^*\n]+):\*\*`)

// Segment splits advice text at numbered bold headings.  It returns false
// when the text contains no heading at all, or when every chunk is
// malformed and no section survives; the caller then falls back to
// unsegmented inline formatting instead of rendering an empty shell.  The
// whole text is tokenized in a single forward pass over the heading
// matches.
func Segment(text string) (*SegmentedAdvice, bool) {
	matches := headingRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, false
	}

	out := &SegmentedAdvice{
		Intro:    strings.TrimSpace(text[:matches[0][0]]),
		Sections: make([]Section, 0, len(matches)),
	}

	// End of the last accepted section's content region; trailing text past
	// this point is the outro candidate.
	consumed := matches[0][0]

	for i, m := range matches {
		chunkEnd := len(text)
		if i+1 < len(matches) {
			chunkEnd = matches[i+1][0]
		}
		title := strings.TrimSpace(text[m[2]:m[3]])
		content := strings.TrimSpace(text[m[1]:chunkEnd])
		if title == "" || content == "" {
			// Malformed chunk: skipped, not fatal.  Its text is left for
			// the outro check below.
			continue
		}
		out.Sections = append(out.Sections, Section{Title: title, Content: content})
		consumed = chunkEnd
	}

	if len(out.Sections) == 0 {
		return nil, false
	}

	if trailing := strings.TrimSpace(text[consumed:]); trailing != "" && !headingRe.MatchString(trailing) {
		out.Outro = trailing
	}

	return out, true
}
