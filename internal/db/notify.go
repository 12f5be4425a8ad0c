package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Notifier wraps the LISTEN/NOTIFY mechanism in PostgreSQL.  It announces
// transcript updates on a channel and lets the SSE handler subscribe to
// them without polling.
type Notifier struct {
	DB      *sql.DB
	ConnStr string
	Channel string
	Log     *zap.Logger
}

// NewNotifier constructs a Notifier.  ConnStr must be the same DSN used to
// open the database, since pq.Listener maintains its own connection.
func NewNotifier(db *sql.DB, connStr, channel string, log *zap.Logger) *Notifier {
	return &Notifier{DB: db, ConnStr: connStr, Channel: channel, Log: log}
}

// Notify announces that a session's transcript changed.
func (n *Notifier) Notify(ctx context.Context, sessionID string) error {
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, sessionID)
	return err
}

// Listen yields session IDs as transcript-update notifications arrive.
// The returned channel is closed when ctx is cancelled.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(n.ConnStr, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				n.Log.Warn("pq listener event", zap.Int("event", int(ev)), zap.Error(err))
			}
		})
	if err := listener.Listen(n.Channel); err != nil {
		listener.Close()
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer func() {
			listener.Close()
			close(ch)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case notification := <-listener.Notify:
				if notification == nil {
					// Connection was re-established; notifications may have
					// been missed in between.
					continue
				}
				select {
				case ch <- notification.Extra:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				// Periodic liveness check keeps the connection honest.
				go listener.Ping()
			}
		}
	}()
	return ch, nil
}
