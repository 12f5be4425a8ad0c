package pkg

import "time"

// Session represents one symptom-checker conversation.  It is keyed by a
// UUID and records where the conversation came from for audit purposes.
type Session struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	ClientIP  *string    `json:"client_ip,omitempty"`
	UserAgent *string    `json:"user_agent,omitempty"`
}

// Role describes who authored a message.  System messages are local
// status/error notices and are never sent to the model.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Tag marks a message with a stable, language-independent meaning so the
// phase controller never has to match against model-generated text.
type Tag string

const (
	// TagFollowUp marks the fixed follow-up question appended after advice.
	TagFollowUp Tag = "follow_up"
	// TagLocating marks the transient placeholder shown during geolocation.
	TagLocating Tag = "locating"
)

// Message is one turn in the transcript.  Messages are immutable after
// creation; the only store-level exceptions are removal of an ephemeral
// placeholder and release of superseded image URLs.
type Message struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	ImageURL   string    `json:"image_url,omitempty"`
	Options    []string  `json:"options,omitempty"`
	IsQuestion bool      `json:"is_question"`
	Ephemeral  bool      `json:"ephemeral,omitempty"`
	Tag        Tag       `json:"tag,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatRequest is the body for posting a user turn.  ImageDataURL, when
// present, must be a base64 data URL for an image attachment.
type ChatRequest struct {
	Content      string `json:"content"`
	ImageDataURL string `json:"image_data_url,omitempty"`
}

// OptionRequest selects one option on the most recent question turn.
type OptionRequest struct {
	MessageID string `json:"message_id"`
	Option    string `json:"option"`
}

// LocationReport delivers the outcome of a client-side geolocation request.
// Either coordinates or an error reason is set, never both.
type LocationReport struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// ChatResponse is returned after any interaction that may change the
// transcript.  Messages holds the turns appended by the interaction, in
// order.  AwaitLocation asks the client to run a geolocation request and
// report back via the location endpoint.
type ChatResponse struct {
	Messages      []Message `json:"messages"`
	Phase         string    `json:"phase"`
	AwaitLocation bool      `json:"await_location,omitempty"`
	Busy          bool      `json:"busy"`
}
