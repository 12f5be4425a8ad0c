package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInline(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Run
	}{
		{
			name: "plain text",
			text: "drink plenty of water",
			want: []Run{{Kind: RunPlain, Text: "drink plenty of water"}},
		},
		{
			name: "empty",
			text: "",
			want: []Run{{Kind: RunPlain, Text: ""}},
		},
		{
			name: "bold span",
			text: "this is **important** advice",
			want: []Run{
				{Kind: RunPlain, Text: "this is "},
				{Kind: RunBold, Text: "important"},
				{Kind: RunPlain, Text: " advice"},
			},
		},
		{
			name: "link span",
			text: "see [WHO guidance](https://who.int) for more",
			want: []Run{
				{Kind: RunPlain, Text: "see "},
				{Kind: RunLink, Text: "WHO guidance", Href: "https://who.int"},
				{Kind: RunPlain, Text: " for more"},
			},
		},
		{
			name: "mixed order preserved",
			text: "**Rest.** Then read [this](http://x) carefully.",
			want: []Run{
				{Kind: RunBold, Text: "Rest."},
				{Kind: RunPlain, Text: " Then read "},
				{Kind: RunLink, Text: "this", Href: "http://x"},
				{Kind: RunPlain, Text: " carefully."},
			},
		},
		{
			name: "unbalanced bold stays plain",
			text: "this is **not closed",
			want: []Run{{Kind: RunPlain, Text: "this is **not closed"}},
		},
		{
			name: "malformed link stays plain",
			text: "broken [link](no-close",
			want: []Run{{Kind: RunPlain, Text: "broken [link](no-close"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatInline(tt.text))
		})
	}
}

// Re-inserting the delimiters around bold and link runs must reconstruct
// the input byte for byte.
func TestFormatInlineRoundTrip(t *testing.T) {
	inputs := []string{
		"plain only",
		"a **b** c **d** e",
		"[x](y) start and end [z](w)",
		"**bold**[link](href)**bold again**",
		"unmatched ** and [half](",
	}
	for _, in := range inputs {
		runs := FormatInline(in)
		rebuilt := ""
		for _, r := range runs {
			switch r.Kind {
			case RunBold:
				rebuilt += "**" + r.Text + "**"
			case RunLink:
				rebuilt += "[" + r.Text + "](" + r.Href + ")"
			default:
				rebuilt += r.Text
			}
		}
		require.Equal(t, in, rebuilt)
	}
}

func TestRenderText(t *testing.T) {
	got := RenderText("see **bold** and [site](http://x)")
	assert.Equal(t, "see bold and site (http://x)", got)
}
