package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"carechat/internal/llm"
	"carechat/pkg"
)

var (
	// ErrBusy is returned while a model request is in flight.  The caller
	// must not mutate anything: busy submissions are dropped, not queued.
	ErrBusy = errors.New("a request is already in flight")
	// ErrStaleOption is returned when the selected option's question is no
	// longer the latest message.
	ErrStaleOption = errors.New("option is no longer selectable")
	// ErrNotLocating is returned for a location report outside the
	// facility-lookup phase.
	ErrNotLocating = errors.New("no location request is pending")
)

// Action tells the caller what the client has to do next.
type Action int

const (
	ActionNone Action = iota
	// ActionAwaitLocation: run a client-side geolocation request and report
	// the outcome via ReportLocation or ReportLocationFailure.
	ActionAwaitLocation
)

// Result describes the outcome of one interaction: the turns it appended,
// the phase afterwards, and any action required from the client.
type Result struct {
	Messages []pkg.Message
	Phase    Phase
	Action   Action
}

// UserInput is one visible user submission: free text plus an optional
// attached image.  ImageURL is the display form (a data URL) owned by the
// store; ImageData/ImageMIME are what the model collaborator receives.
type UserInput struct {
	Text      string
	ImageURL  string
	ImageData []byte
	ImageMIME string
}

// Conversation is the phase controller for one session.  All state (store,
// model history, phase, busy flag) is mutated only while the single
// in-flight interaction holds it; concurrent interactions are rejected with
// ErrBusy rather than queued.
type Conversation struct {
	mu      sync.Mutex
	busy    bool
	phase   Phase
	store   *Store
	history []llm.Message
	client  llm.Client
	log     *zap.Logger
}

// NewConversation starts a conversation in the gathering phase with the
// greeting already appended.
func NewConversation(client llm.Client, log *zap.Logger) *Conversation {
	c := &Conversation{client: client, log: log}
	c.reset()
	return c
}

func (c *Conversation) reset() {
	c.phase = PhaseGathering
	c.store = NewStore()
	c.history = []llm.Message{{Role: "system", Content: SystemPrompt}}
	c.store.AppendAssistant(Greeting)
}

// Submit handles a free-text (or image-bearing) user turn.
func (c *Conversation) Submit(ctx context.Context, in UserInput) (Result, error) {
	if err := c.begin(); err != nil {
		return Result{}, err
	}
	defer c.end()

	parts := []llm.Part{{Text: in.Text}}
	if len(in.ImageData) > 0 {
		parts = append(parts, llm.Part{ImageData: in.ImageData, MIMEType: in.ImageMIME})
	}
	return c.exchange(ctx, in.Text, parts, &in)
}

// SelectOption handles a click on one option of a question turn.  Options
// are actionable only while their question is the most recent message; a
// stale selection is a no-op.  The facility option on the follow-up
// question starts the geolocation flow instead of a model round trip.
func (c *Conversation) SelectOption(ctx context.Context, messageID, option string) (Result, error) {
	if err := c.begin(); err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	latest, ok := c.store.Latest()
	if !ok || !latest.IsQuestion || latest.ID != messageID {
		c.mu.Unlock()
		c.end()
		return Result{}, ErrStaleOption
	}

	if latest.Tag == pkg.TagFollowUp && isFacilityOption(option) {
		defer c.end()
		c.phase = PhaseFacilityLookup
		choice := c.store.AppendUser(option, "")
		locating := c.store.AppendEphemeral(LocatingNotice, pkg.TagLocating)
		c.mu.Unlock()
		c.log.Info("facility lookup requested", zap.String("message_id", messageID))
		return Result{
			Messages: []pkg.Message{choice, locating},
			Phase:    PhaseFacilityLookup,
			Action:   ActionAwaitLocation,
		}, nil
	}
	c.mu.Unlock()

	defer c.end()
	return c.exchange(ctx, option, []llm.Part{{Text: option}}, &UserInput{Text: option})
}

// ReportLocation resumes the facility flow with the client's coordinates.
// The hidden prompt never appears in the transcript.
func (c *Conversation) ReportLocation(ctx context.Context, lat, lng float64) (Result, error) {
	return c.resumeWithHiddenPrompt(ctx, fmt.Sprintf(LocationPromptFormat, lat, lng))
}

// ReportLocationFailure resumes the facility flow after geolocation was
// denied or unavailable, so the model can still produce best-effort advice.
func (c *Conversation) ReportLocationFailure(ctx context.Context, reason string) (Result, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "unknown error"
	}
	return c.resumeWithHiddenPrompt(ctx, fmt.Sprintf(LocationFailedPromptFormat, reason))
}

func (c *Conversation) resumeWithHiddenPrompt(ctx context.Context, prompt string) (Result, error) {
	if err := c.begin(); err != nil {
		return Result{}, err
	}
	defer c.end()

	c.mu.Lock()
	if c.phase != PhaseFacilityLookup {
		c.mu.Unlock()
		return Result{}, ErrNotLocating
	}
	c.store.RemoveEphemeral()
	c.mu.Unlock()
	return c.exchange(ctx, prompt, []llm.Part{{Text: prompt}}, nil)
}

// Reset discards the transcript and returns the conversation to its
// initial state.  Rejected while a request is in flight.
func (c *Conversation) Reset() (Result, error) {
	if err := c.begin(); err != nil {
		return Result{}, err
	}
	defer c.end()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return Result{Messages: c.store.Messages(), Phase: c.phase}, nil
}

// Busy reports whether a model request is currently in flight, so UIs can
// disable their input surface.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Phase returns the current protocol phase.
func (c *Conversation) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Messages returns a copy of the visible transcript.
func (c *Conversation) Messages() []pkg.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Messages()
}

// exchange runs one model round trip: record the outgoing turn, send it,
// classify the response, and advance the phase.  A nil visible input marks
// a hidden prompt, which reaches the model but not the transcript.  The
// busy flag is held by the caller and released on every exit path.
func (c *Conversation) exchange(ctx context.Context, text string, parts []llm.Part, visible *UserInput) (Result, error) {
	var appended []pkg.Message
	c.mu.Lock()
	if visible != nil {
		appended = append(appended, c.store.AppendUser(visible.Text, visible.ImageURL))
	}
	history := c.history
	c.mu.Unlock()

	reply, err := c.client.Send(ctx, history, parts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.Error("model request failed", zap.Error(err))
		appended = append(appended, c.store.AppendSystem(FailureMessage))
		return Result{Messages: appended, Phase: c.phase}, err
	}

	c.history = append(c.history,
		llm.Message{Role: "user", Content: text},
		llm.Message{Role: "assistant", Content: reply},
	)

	if strings.TrimSpace(reply) == "" {
		// An empty completion gets an apology, not an empty bubble, and
		// does not advance the phase.
		appended = append(appended, c.store.AppendAssistant(ApologyMessage))
		return Result{Messages: appended, Phase: c.phase}, nil
	}

	cls := Classify(reply)
	switch cls.Kind {
	case KindQuestion:
		// Model questions are always information gathering; the fixed
		// follow-up is the only question appended with a different phase.
		appended = append(appended, c.store.AppendQuestion(cls.Question.Question, cls.Question.Options, ""))
		c.phase = PhaseGathering
	default:
		appended = append(appended, c.store.AppendAssistant(cls.Raw))
		c.phase = PhaseAdvicePending
		appended = append(appended, c.store.AppendQuestion(FollowUpQuestion, FollowUpOptions, pkg.TagFollowUp))
		c.phase = PhaseFollowUpOffered
	}

	c.log.Debug("response classified",
		zap.Int("kind", int(cls.Kind)),
		zap.String("phase", c.phase.String()),
	)
	return Result{Messages: appended, Phase: c.phase}, nil
}

func (c *Conversation) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Conversation) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// isFacilityOption detects the facility-seeking choice.  Exact match on the
// canonical option comes first; the substring check is a fallback for
// clients that localize or rephrase option labels.
func isFacilityOption(option string) bool {
	if option == FollowUpOptions[1] {
		return true
	}
	return strings.Contains(strings.ToLower(option), FacilityMarker)
}
