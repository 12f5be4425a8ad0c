package core

import (
	"fmt"
	"strings"

	"carechat/pkg"
)

// RenderTranscript flattens the visible transcript to plain text for
// export.  Advice turns are re-segmented on render; inline markup is
// stripped via the formatter so the output is readable anywhere.
func RenderTranscript(msgs []pkg.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Ephemeral {
			continue
		}
		switch m.Role {
		case pkg.RoleUser:
			b.WriteString("You: ")
			b.WriteString(RenderText(m.Text))
			if m.ImageURL != "" {
				b.WriteString(" [image attached]")
			}
		case pkg.RoleAssistant:
			b.WriteString("Assistant: ")
			writeAssistantTurn(&b, m)
		case pkg.RoleSystem:
			b.WriteString("[notice] ")
			b.WriteString(m.Text)
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeAssistantTurn(b *strings.Builder, m pkg.Message) {
	if m.IsQuestion {
		b.WriteString(RenderText(m.Text))
		for i, opt := range m.Options {
			fmt.Fprintf(b, "\n  %d) %s", i+1, opt)
		}
		return
	}

	seg, ok := Segment(m.Text)
	if !ok {
		b.WriteString(RenderText(m.Text))
		return
	}
	if seg.Intro != "" {
		b.WriteString(RenderText(seg.Intro))
		b.WriteString("\n")
	}
	for i, s := range seg.Sections {
		fmt.Fprintf(b, "%d. %s: %s\n", i+1, s.Title, RenderText(s.Content))
	}
	if seg.Outro != "" {
		b.WriteString(RenderText(seg.Outro))
		b.WriteString("\n")
	}
}
