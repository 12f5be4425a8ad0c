package llm

import "context"

// Message is a minimal chat message used by the conversation controller.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Part is one content fragment of the outgoing turn: either text or inline
// image bytes with their MIME type.
type Part struct {
	Text      string
	ImageData []byte
	MIMEType  string
}

// Client is the model collaborator.  Send submits one conversational turn
// (prior history plus the new turn's parts) and returns the fully
// concatenated response text; implementations may stream internally but the
// caller only ever sees the complete result.
type Client interface {
	Send(ctx context.Context, history []Message, parts []Part) (string, error)
}
