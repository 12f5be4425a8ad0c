package core

import (
	"encoding/json"
	"strings"
)

// ResponseKind tags the outcome of classifying a completed model response.
type ResponseKind int

const (
	// KindAdvice means the response is free-form advice text.
	KindAdvice ResponseKind = iota
	// KindQuestion means the response carried a clarifying question payload.
	KindQuestion
)

// Question is the canonical clarifying-question payload: one question and
// at least one selectable option.
type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Classification is the tagged result of Classify.  When Kind is
// KindQuestion, Question holds the extracted payload; otherwise Raw holds
// the full response text for advice rendering.
type Classification struct {
	Kind     ResponseKind
	Question Question
	Raw      string
}

// Classify inspects a completed response and decides whether it is a
// clarifying question or advice.  The model is instructed to emit bare JSON
// for questions but may wrap it in prose, so extraction scans from the
// first '{' to the last '}'.  Classification never fails: malformed syntax
// or a wrong shape simply routes the text to the advice path.
func Classify(raw string) Classification {
	advice := Classification{Kind: KindAdvice, Raw: raw}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return advice
	}

	// Stage 1: syntactic extraction.
	var q Question
	if err := json.Unmarshal([]byte(raw[start:end+1]), &q); err != nil {
		return advice
	}

	// Stage 2: shape validation.
	if strings.TrimSpace(q.Question) == "" || len(q.Options) == 0 {
		return advice
	}

	return Classification{Kind: KindQuestion, Question: q}
}
