package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fourSectionAdvice = "1. **Likely Condition:** This could be tension headache.\n" +
	"2. **What to Do Now:** Rest and hydrate.\n" +
	"3. **Diet & Lifestyle:** Reduce caffeine.\n" +
	"4. **When to See a Doctor:** • Fever over 102°F"

func TestSegmentFourSections(t *testing.T) {
	seg, ok := Segment(fourSectionAdvice)
	require.True(t, ok)
	assert.Empty(t, seg.Intro)
	assert.Empty(t, seg.Outro)
	require.Len(t, seg.Sections, 4)

	wantTitles := []string{"Likely Condition", "What to Do Now", "Diet & Lifestyle", "When to See a Doctor"}
	for i, title := range wantTitles {
		assert.Equal(t, title, seg.Sections[i].Title)
	}
	assert.Equal(t, "This could be tension headache.", seg.Sections[0].Content)
	assert.Equal(t, "• Fever over 102°F", seg.Sections[3].Content)
}

func TestSegmentIntro(t *testing.T) {
	text := "Thanks for the details. Here's what I think:\n\n" + fourSectionAdvice
	seg, ok := Segment(text)
	require.True(t, ok)
	assert.Equal(t, "Thanks for the details. Here's what I think:", seg.Intro)
	assert.Len(t, seg.Sections, 4)
}

func TestSegmentNoHeadings(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"plain prose", "Just rest and drink water."},
		{"bold without number", "**Likely Condition:** something"},
		{"number without bold", "1. Likely Condition: something"},
		{"heading not at line start", "see 1. **Likely Condition:** inline"},
		{"bold without colon", "1. **Likely Condition** something"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, ok := Segment(tt.text)
			assert.False(t, ok)
			assert.Nil(t, seg)
		})
	}
}

func TestSegmentSkipsMalformedChunks(t *testing.T) {
	// The middle heading has no content before the next heading; it is
	// dropped without affecting its neighbors.
	text := "1. **First:** alpha\n2. **Empty:**\n3. **Third:** gamma"
	seg, ok := Segment(text)
	require.True(t, ok)
	require.Len(t, seg.Sections, 2)
	assert.Equal(t, "First", seg.Sections[0].Title)
	assert.Equal(t, "Third", seg.Sections[1].Title)
}

func TestSegmentNoSurvivingSectionsFallsBack(t *testing.T) {
	// A lone dangling heading leaves nothing to render as sections; the
	// caller must get the fallback signal rather than an empty shell that
	// would swallow the text.
	tests := []struct {
		name string
		text string
	}{
		{"single dangling heading", "1. **Likely Condition:**"},
		{"only dangling headings", "1. **First:**\n2. **Second:**"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, ok := Segment(tt.text)
			assert.False(t, ok)
			assert.Nil(t, seg)
		})
	}
}

func TestSegmentTrailingHeadingIsNotOutro(t *testing.T) {
	text := "1. **First:** alpha\n2. **Dangling:**"
	seg, ok := Segment(text)
	require.True(t, ok)
	require.Len(t, seg.Sections, 1)
	assert.Empty(t, seg.Outro)
}

// Sections must cover the input in order: re-joining the intro, headings,
// and contents reproduces the original text modulo whitespace trimming.
func TestSegmentReconstruction(t *testing.T) {
	seg, ok := Segment(fourSectionAdvice)
	require.True(t, ok)

	rebuilt := ""
	for i, s := range seg.Sections {
		if i > 0 {
			rebuilt += "\n"
		}
		rebuilt += fmt.Sprintf("%d. **%s:** %s", i+1, s.Title, s.Content)
	}
	assert.Equal(t, fourSectionAdvice, rebuilt)
}
