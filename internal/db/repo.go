package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"carechat/pkg"
)

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = errors.New("session not found")

// Repository wraps database operations for sessions and transcripts.
// A single postgres database backs this implementation.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// CreateSession inserts a new session row and returns it.
func (r *Repository) CreateSession(ctx context.Context, clientIP, userAgent *string) (*pkg.Session, error) {
	s := &pkg.Session{
		ID:        uuid.NewString(),
		ClientIP:  clientIP,
		UserAgent: userAgent,
	}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO sessions (id, client_ip, user_agent)
         VALUES ($1, $2, $3)
         RETURNING created_at`,
		s.ID, s.ClientIP, s.UserAgent,
	).Scan(&s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession loads one session row.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*pkg.Session, error) {
	var s pkg.Session
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, created_at, closed_at, client_ip, user_agent
         FROM sessions WHERE id = $1`, sessionID,
	).Scan(&s.ID, &s.CreatedAt, &s.ClosedAt, &s.ClientIP, &s.UserAgent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CloseSession marks a session as finished.
func (r *Repository) CloseSession(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE sessions SET closed_at = NOW() WHERE id = $1`, sessionID)
	return err
}

// UpdatePhase persists the conversation's current protocol phase.
func (r *Repository) UpdatePhase(ctx context.Context, sessionID, phase string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE sessions SET phase = $2 WHERE id = $1`, sessionID, phase)
	return err
}

// AppendMessage persists one visible turn.  Hidden prompts and ephemeral
// placeholders must never reach this function; the caller filters them.
func (r *Repository) AppendMessage(ctx context.Context, sessionID string, m pkg.Message) error {
	var options any
	if len(m.Options) > 0 {
		raw, err := json.Marshal(m.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		options = raw
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, is_question, options, tag, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`,
		m.ID, sessionID, string(m.Role), m.Text, m.IsQuestion, options, string(m.Tag), m.CreatedAt,
	)
	return err
}

// GetTranscript returns every persisted turn of a session in order.  The
// insertion sequence breaks created_at ties so turns written in the same
// exchange never reorder.
func (r *Repository) GetTranscript(ctx context.Context, sessionID string) ([]pkg.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, role, content, is_question, options, COALESCE(tag, ''), created_at
         FROM messages
         WHERE session_id = $1
         ORDER BY created_at ASC, seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcript []pkg.Message
	for rows.Next() {
		var (
			m       pkg.Message
			role    string
			tag     string
			options []byte
			created time.Time
		)
		if err := rows.Scan(&m.ID, &role, &m.Text, &m.IsQuestion, &options, &tag, &created); err != nil {
			return nil, err
		}
		m.Role = pkg.Role(role)
		m.Tag = pkg.Tag(tag)
		m.CreatedAt = created
		if len(options) > 0 {
			if err := json.Unmarshal(options, &m.Options); err != nil {
				return nil, fmt.Errorf("unmarshal options: %w", err)
			}
		}
		transcript = append(transcript, m)
	}
	return transcript, rows.Err()
}

// ClearMessages drops a session's persisted transcript; used by "new chat".
func (r *Repository) ClearMessages(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id = $1`, sessionID)
	return err
}
