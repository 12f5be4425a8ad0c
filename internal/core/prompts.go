package core

// prompts.go defines the scripted protocol the model is instructed to
// follow, plus every fixed text the controller appends or sends on its own.
// Keeping these in one file makes the protocol easy to tweak without
// touching the state machine.

const (
	// SystemPrompt drives the multi-phase protocol: gather information one
	// clarifying question at a time using a strict JSON shape, then deliver
	// advice as numbered bold-heading sections.  The classifier and
	// segmenter depend on these output shapes.
	SystemPrompt = "You are a careful, empathetic symptom-checker assistant. " +
		"Always reply in the user's language. " +
		"Phase 1 — information gathering: ask exactly one clarifying question per turn, and output it as ONLY a single JSON object of the form " +
		`{"question": "<your question>", "options": ["<choice 1>", "<choice 2>", ...]}` +
		" with 2 to 5 short options and no other text. Cover onset, duration, severity, and relevant history before advising. " +
		"Phase 2 — advice: once you have enough information, stop asking questions and reply with plain text organized under numbered bold headings, each on its own line, in this exact format: " +
		"`1. **Likely Condition:**` then your assessment, `2. **What to Do Now:**`, `3. **Diet & Lifestyle:**`, `4. **When to See a Doctor:**`, and `5. **Closing Message:**`. " +
		"Use **bold** for emphasis and [title](url) for any links. " +
		"If the user later shares coordinates, repeat the advice and add a `**Nearby Medical Facilities:**` numbered section describing what kind of facilities to look for near them. " +
		"If the user reports that location sharing failed, give final advice without facility suggestions and acknowledge that location services were unavailable. " +
		"Never diagnose with certainty and never prescribe medication."

	// Greeting opens every new session.
	Greeting = "Hello! I'm here to help you understand your symptoms. What's bothering you today? You can also attach a photo if that helps."

	// FollowUpQuestion is appended locally after advice is rendered; it is
	// never produced by the model.  FacilityOptionIndex marks which option
	// triggers the geolocation flow.
	FollowUpQuestion = "Would you like to keep monitoring your symptoms at home, or should I help you find a medical facility nearby?"

	// FacilityMarker is the stable substring fallback for detecting the
	// facility-seeking option when a client echoes option text instead of
	// an index.
	FacilityMarker = "find a medical facility"

	// LocatingNotice is the transient placeholder shown while the client
	// resolves its position.  It is removed before the next real turn.
	LocatingNotice = "Finding your location…"

	// ApologyMessage is shown instead of an empty bubble when the model
	// returns a blank response.
	ApologyMessage = "Sorry, I couldn't come up with a response just now. Could you say that again in different words?"

	// FailureMessage is the single system notice appended on any transport
	// or model failure.
	FailureMessage = "Sorry, something went wrong while processing your message. Please try again."

	// InitFailureMessage is shown when the model session could not be
	// created at all, e.g. a missing API credential.
	InitFailureMessage = "Sorry, the assistant could not be started. Please check the service configuration and restart."

	// LocationPromptFormat is the hidden prompt sent after a successful
	// geolocation, with latitude and longitude substituted in.
	LocationPromptFormat = "My coordinates are latitude %.5f, longitude %.5f. Please give me your final advice now, including a numbered \"Nearby Medical Facilities\" section describing the kinds of facilities I should look for near these coordinates."

	// LocationFailedPromptFormat is the hidden prompt sent when geolocation
	// is denied or unavailable; the failure reason is substituted in.
	LocationFailedPromptFormat = "I could not share my location (%s). Please give me your final advice without facility suggestions, and mention that location services were unavailable."
)

// FollowUpOptions are the two choices attached to FollowUpQuestion.  The
// second option is the facility-seeking one.
var FollowUpOptions = []string{
	"I'll keep monitoring at home",
	"Help me find a medical facility nearby",
}
