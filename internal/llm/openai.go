package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoAPIKey means the client cannot be constructed; this is the fatal
// initialization failure surfaced to the session.
var ErrNoAPIKey = errors.New("openai api key not configured")

// OpenAIClient calls the OpenAI chat completion API with streaming enabled.
// Fragments are accumulated in order and returned as one string.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs an OpenAI-backed collaborator.  A missing API
// key is an error rather than a deferred failure so startup can refuse the
// session up front.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}, nil
}

// Send converts the history and the new turn's parts into a chat completion
// request and consumes the response stream to completion.
func (c *OpenAIClient) Send(ctx context.Context, history []Message, parts []Part) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, turnMessage(parts))

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if len(resp.Choices) > 0 {
			b.WriteString(resp.Choices[0].Delta.Content)
		}
	}
	return b.String(), nil
}

// turnMessage builds the outgoing user message.  Text-only turns use plain
// content; turns with an image use multi-content parts with the image
// inlined as a data URL.
func turnMessage(parts []Part) openai.ChatCompletionMessage {
	hasImage := false
	for _, p := range parts {
		if len(p.ImageData) > 0 {
			hasImage = true
			break
		}
	}

	if !hasImage {
		var b strings.Builder
		for _, p := range parts {
			b.WriteString(p.Text)
		}
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: b.String()}
	}

	multi := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		if len(p.ImageData) > 0 {
			multi = append(multi, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    DataURL(p.ImageData, p.MIMEType),
					Detail: openai.ImageURLDetailAuto,
				},
			})
			continue
		}
		multi = append(multi, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: p.Text,
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: multi}
}

// DataURL encodes image bytes as a base64 data URL.
func DataURL(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseDataURL decodes a base64 data URL into raw bytes and a MIME type.
func ParseDataURL(dataURL string) ([]byte, string, error) {
	const prefix = "data:"
	if !strings.HasPrefix(dataURL, prefix) {
		return nil, "", errors.New("not a data URL")
	}
	rest := dataURL[len(prefix):]
	sep := strings.Index(rest, ",")
	if sep == -1 {
		return nil, "", errors.New("malformed data URL")
	}
	meta, payload := rest[:sep], rest[sep+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", errors.New("data URL is not base64 encoded")
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL: %w", err)
	}
	return data, mimeType, nil
}
