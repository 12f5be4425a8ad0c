package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyQuestion(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantQ       string
		wantOptions []string
	}{
		{
			name:        "bare json",
			raw:         `{"question": "How long have you had this?", "options": ["Today","A few days","More than a week"]}`,
			wantQ:       "How long have you had this?",
			wantOptions: []string{"Today", "A few days", "More than a week"},
		},
		{
			name:        "json wrapped in prose",
			raw:         "Sure, here is my question:\n{\"question\": \"Any fever?\", \"options\": [\"Yes\", \"No\"]}\nThanks!",
			wantQ:       "Any fever?",
			wantOptions: []string{"Yes", "No"},
		},
		{
			name:        "single option",
			raw:         `{"question": "Ready to continue?", "options": ["Yes"]}`,
			wantQ:       "Ready to continue?",
			wantOptions: []string{"Yes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.raw)
			require.Equal(t, KindQuestion, got.Kind)
			assert.Equal(t, tt.wantQ, got.Question.Question)
			assert.Equal(t, tt.wantOptions, got.Question.Options)
		})
	}
}

func TestClassifyAdvice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"plain text", "Rest and drink plenty of water."},
		{"no closing brace", "take this { seriously"},
		{"inverted braces", "} nothing here {"},
		{"malformed json", `{"question": "Oops", "options": [}`},
		{"missing question", `{"options": ["A", "B"]}`},
		{"missing options", `{"question": "Where does it hurt?"}`},
		{"empty options", `{"question": "Where?", "options": []}`},
		{"mistyped question", `{"question": 42, "options": ["A"]}`},
		{"mistyped options", `{"question": "Where?", "options": "everywhere"}`},
		{"blank question", `{"question": "   ", "options": ["A"]}`},
		{"different shape", `{"answer": "rest", "confidence": 0.9}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.raw)
			require.Equal(t, KindAdvice, got.Kind)
			assert.Equal(t, tt.raw, got.Raw)
		})
	}
}

// A question payload buried in advice-length prose must still be found via
// first-to-last brace extraction.
func TestClassifyBraceSpan(t *testing.T) {
	raw := "prefix {\"question\": \"Severity from 1 to 10?\", \"options\": [\"1-3\", \"4-7\", \"8-10\"]} suffix"
	got := Classify(raw)
	require.Equal(t, KindQuestion, got.Kind)
	assert.Len(t, got.Question.Options, 3)
}
