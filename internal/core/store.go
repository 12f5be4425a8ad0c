package core

import (
	"time"

	"github.com/google/uuid"

	"carechat/pkg"
)

// Store is the ordered, in-memory log of visible conversation turns.  It is
// append-only with two narrow exceptions: the single ephemeral placeholder
// may be removed, and image URLs on superseded user turns are released.
// The store is not safe for concurrent use; the conversation's single
// in-flight control path is the only mutator.
type Store struct {
	msgs []pkg.Message
	now  func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// AppendUser adds a user turn.  Any new user turn supersedes earlier ones,
// so their display URLs are released and do not accumulate across a long
// conversation.
func (s *Store) AppendUser(text, imageURL string) pkg.Message {
	for i := range s.msgs {
		s.msgs[i].ImageURL = ""
	}
	return s.append(pkg.Message{Role: pkg.RoleUser, Text: text, ImageURL: imageURL})
}

// AppendAssistant adds a plain assistant turn (advice or apology text).
func (s *Store) AppendAssistant(text string) pkg.Message {
	return s.append(pkg.Message{Role: pkg.RoleAssistant, Text: text})
}

// AppendQuestion adds an assistant question turn with selectable options.
// Options must be non-empty; IsQuestion is set iff options exist, which
// keeps the store's invariant in one place.
func (s *Store) AppendQuestion(text string, options []string, tag pkg.Tag) pkg.Message {
	opts := make([]string, len(options))
	copy(opts, options)
	return s.append(pkg.Message{
		Role:       pkg.RoleAssistant,
		Text:       text,
		Options:    opts,
		IsQuestion: len(opts) > 0,
		Tag:        tag,
	})
}

// AppendSystem adds a local status/error notice.  System turns are never
// sent to the model.
func (s *Store) AppendSystem(text string) pkg.Message {
	return s.append(pkg.Message{Role: pkg.RoleSystem, Text: text})
}

// AppendEphemeral adds the transient placeholder turn.  At most one
// ephemeral message exists at a time; appending replaces any previous one.
func (s *Store) AppendEphemeral(text string, tag pkg.Tag) pkg.Message {
	return s.append(pkg.Message{Role: pkg.RoleSystem, Text: text, Ephemeral: true, Tag: tag})
}

// RemoveEphemeral drops the ephemeral placeholder if present and reports
// whether one was removed.
func (s *Store) RemoveEphemeral() bool {
	for i := range s.msgs {
		if s.msgs[i].Ephemeral {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			return true
		}
	}
	return false
}

// Latest returns the most recent message, if any.
func (s *Store) Latest() (pkg.Message, bool) {
	if len(s.msgs) == 0 {
		return pkg.Message{}, false
	}
	return s.msgs[len(s.msgs)-1], true
}

// Messages returns a copy of the transcript in order.
func (s *Store) Messages() []pkg.Message {
	out := make([]pkg.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Len reports the number of visible turns, including any ephemeral one.
func (s *Store) Len() int {
	return len(s.msgs)
}

// append assigns identity and timestamp, clears any stale ephemeral
// placeholder, and stores the message.
func (s *Store) append(m pkg.Message) pkg.Message {
	s.RemoveEphemeral()
	m.ID = uuid.NewString()
	m.CreatedAt = s.now()
	s.msgs = append(s.msgs, m)
	return m
}
