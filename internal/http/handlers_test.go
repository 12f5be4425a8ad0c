package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carechat/internal/core"
	"carechat/pkg"
)

// fakeRepo records the order of persistence operations.  When gate is set,
// AppendMessage blocks until it is closed, simulating a slow write.
type fakeRepo struct {
	mu   sync.Mutex
	ops  []string
	gate chan struct{}
}

func (f *fakeRepo) record(op string) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
}

func (f *fakeRepo) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

func (f *fakeRepo) CreateSession(ctx context.Context, clientIP, userAgent *string) (*pkg.Session, error) {
	f.record("create")
	return &pkg.Session{ID: "s1"}, nil
}

func (f *fakeRepo) GetSession(ctx context.Context, sessionID string) (*pkg.Session, error) {
	f.record("get")
	return &pkg.Session{ID: sessionID}, nil
}

func (f *fakeRepo) CloseSession(ctx context.Context, sessionID string) error {
	f.record("close:" + sessionID)
	return nil
}

func (f *fakeRepo) AppendMessage(ctx context.Context, sessionID string, m pkg.Message) error {
	if f.gate != nil {
		<-f.gate
	}
	f.record("append:" + m.Text)
	return nil
}

func (f *fakeRepo) UpdatePhase(ctx context.Context, sessionID, phase string) error {
	f.record("phase:" + phase)
	return nil
}

func (f *fakeRepo) GetTranscript(ctx context.Context, sessionID string) ([]pkg.Message, error) {
	f.record("transcript")
	return nil, nil
}

func (f *fakeRepo) ClearMessages(ctx context.Context, sessionID string) error {
	f.record("clear")
	return nil
}

type fakeAnnouncer struct{}

func (fakeAnnouncer) Notify(ctx context.Context, sessionID string) error { return nil }

func (fakeAnnouncer) Listen(ctx context.Context) (<-chan string, error) {
	return make(chan string), nil
}

func newRoutingServer() *Server {
	return NewServer(&fakeRepo{}, fakeAnnouncer{}, core.NewRegistry(time.Minute), nil, zap.NewNop())
}

func TestRoutingNotFound(t *testing.T) {
	s := newRoutingServer()
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/api"},
		{http.MethodGet, "/api/sessions"},
		{http.MethodPost, "/api/sessions/abc"},
		{http.MethodPost, "/api/sessions/abc/unknown"},
		{http.MethodGet, "/api/sessions/abc/messages"},
		{http.MethodPost, "/api/sessions/abc/messages/extra"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestResetDrainsPendingPersistence(t *testing.T) {
	repo := &fakeRepo{gate: make(chan struct{})}
	registry := core.NewRegistry(time.Minute)
	s := NewServer(repo, fakeAnnouncer{}, registry, nil, zap.NewNop())

	conv := core.NewConversation(nil, zap.NewNop())
	registry.Save("s1", conv)

	// An earlier interaction's write is still in flight when the reset
	// arrives.
	s.persistTurns("s1", []pkg.Message{{ID: "m1", Text: "pre-reset turn"}}, core.PhaseGathering)

	done := make(chan struct{})
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/s1/reset", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		close(done)
	}()

	// The transcript must not be cleared while the older write is pending.
	time.Sleep(20 * time.Millisecond)
	assert.NotContains(t, repo.operations(), "clear")

	close(repo.gate)
	<-done
	s.drainPending("s1")

	ops := repo.operations()
	clearAt := -1
	for i, op := range ops {
		if op == "clear" {
			clearAt = i
		}
	}
	require.GreaterOrEqual(t, clearAt, 0, "reset must clear the transcript")
	assert.Contains(t, ops[:clearAt], "append:pre-reset turn", "pending write lands before the clear")
	for _, op := range ops[clearAt+1:] {
		assert.NotEqual(t, "append:pre-reset turn", op, "cleared turns must not be re-inserted")
	}
}

func TestEvictionClosesSession(t *testing.T) {
	repo := &fakeRepo{}
	registry := core.NewRegistry(time.Minute)
	NewServer(repo, fakeAnnouncer{}, registry, nil, zap.NewNop())

	conv := core.NewConversation(nil, zap.NewNop())
	registry.Save("s9", conv)
	registry.Delete("s9")

	assert.Contains(t, repo.operations(), "close:s9")
}

func TestViewMessagesDerivesAdviceStructure(t *testing.T) {
	views := viewMessages([]pkg.Message{
		{Role: pkg.RoleUser, Text: "my head hurts"},
		{Role: pkg.RoleAssistant, Text: "1. **Likely Condition:** tension headache.\n2. **What to Do Now:** rest."},
		{Role: pkg.RoleAssistant, Text: "Just **rest** for now."},
		{Role: pkg.RoleAssistant, Text: "Any fever?", Options: []string{"Yes", "No"}, IsQuestion: true},
	})

	require.Len(t, views, 4)
	assert.Nil(t, views[0].Advice, "user turns carry no derived structure")

	require.NotNil(t, views[1].Advice)
	assert.Len(t, views[1].Advice.Sections, 2)

	assert.Nil(t, views[2].Advice, "unsegmentable advice falls back to inline runs")
	require.NotEmpty(t, views[2].Runs)
	assert.Equal(t, core.RunBold, views[2].Runs[1].Kind)

	assert.Nil(t, views[3].Advice, "question turns are rendered from options, not segments")
	assert.Empty(t, views[3].Runs)
}
