package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"carechat/internal/core"
	"carechat/internal/llm"
	"carechat/pkg"
)

// Repo is the persistence surface the handlers use; *db.Repository
// implements it.
type Repo interface {
	CreateSession(ctx context.Context, clientIP, userAgent *string) (*pkg.Session, error)
	GetSession(ctx context.Context, sessionID string) (*pkg.Session, error)
	CloseSession(ctx context.Context, sessionID string) error
	AppendMessage(ctx context.Context, sessionID string, m pkg.Message) error
	UpdatePhase(ctx context.Context, sessionID, phase string) error
	GetTranscript(ctx context.Context, sessionID string) ([]pkg.Message, error)
	ClearMessages(ctx context.Context, sessionID string) error
}

// Announcer publishes and subscribes to transcript-update notifications;
// *db.Notifier implements it.
type Announcer interface {
	Notify(ctx context.Context, sessionID string) error
	Listen(ctx context.Context) (<-chan string, error)
}

// Server bundles together the dependencies required by HTTP handlers.  It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Repo     Repo
	Notifier Announcer
	Registry *core.Registry
	LLM      llm.Client
	Log      *zap.Logger

	// pending tracks in-flight persistence goroutines per session so reset
	// can drain them before clearing the transcript.
	pendingMu sync.Mutex
	pending   map[string]*sync.WaitGroup
}

// NewServer constructs a Server and hooks session close-out to registry
// eviction: an evicted conversation's session row is marked closed once its
// last writes have landed.
func NewServer(repo Repo, notifier Announcer, registry *core.Registry, client llm.Client, log *zap.Logger) *Server {
	s := &Server{
		Repo:     repo,
		Notifier: notifier,
		Registry: registry,
		LLM:      client,
		Log:      log,
		pending:  make(map[string]*sync.WaitGroup),
	}
	registry.OnEvict(func(sessionID string, _ *core.Conversation) {
		s.drainPending(sessionID)
		s.forgetPending(sessionID)
		if err := s.Repo.CloseSession(context.Background(), sessionID); err != nil {
			s.Log.Error("close session failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	})
	return s
}

// ServeHTTP dispatches incoming requests based on the URL path.  Minimal
// routing logic is implemented here to keep dependencies light.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/api/sessions" && r.Method == http.MethodPost {
		s.handleCreateSession(w, r)
		return
	}

	if strings.HasPrefix(path, "/api/sessions/") {
		parts := strings.Split(path, "/")
		// ["", "api", "sessions", "{id}", "{action}"]
		if len(parts) != 5 {
			http.NotFound(w, r)
			return
		}
		sessionID, action := parts[3], parts[4]
		switch {
		case action == "messages" && r.Method == http.MethodPost:
			s.handlePostMessage(w, r, sessionID)
		case action == "options" && r.Method == http.MethodPost:
			s.handleSelectOption(w, r, sessionID)
		case action == "location" && r.Method == http.MethodPost:
			s.handleLocation(w, r, sessionID)
		case action == "reset" && r.Method == http.MethodPost:
			s.handleReset(w, r, sessionID)
		case action == "transcript" && r.Method == http.MethodGet:
			s.handleTranscript(w, r, sessionID)
		case action == "export" && r.Method == http.MethodGet:
			s.handleExport(w, r, sessionID)
		case action == "stream" && r.Method == http.MethodGet:
			s.handleStream(w, r, sessionID)
		default:
			http.NotFound(w, r)
		}
		return
	}

	http.NotFound(w, r)
}

// handleCreateSession starts a new conversation: a session row, a live
// controller in the registry, and the greeting turn.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.LLM == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": core.InitFailureMessage})
		return
	}

	var clientIP, userAgent *string
	if ip := r.RemoteAddr; ip != "" {
		clientIP = &ip
	}
	if ua := r.UserAgent(); ua != "" {
		userAgent = &ua
	}

	sess, err := s.Repo.CreateSession(ctx, clientIP, userAgent)
	if err != nil {
		s.internalError(w, "create session", err)
		return
	}

	conv := core.NewConversation(s.LLM, s.Log.With(zap.String("session_id", sess.ID)))
	s.Registry.Save(sess.ID, conv)
	s.persistTurns(sess.ID, conv.Messages(), conv.Phase())

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"messages":   viewMessages(conv.Messages()),
		"phase":      conv.Phase().String(),
	})
}

// handlePostMessage processes a user turn and returns the turns it
// appended.  A model failure still returns the appended system notice so
// the client can render it and let the user retry.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request, sessionID string) {
	conv, ok := s.conversation(w, r, sessionID)
	if !ok {
		return
	}

	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" && req.ImageDataURL == "" {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}

	in := core.UserInput{Text: req.Content, ImageURL: req.ImageDataURL}
	if req.ImageDataURL != "" {
		data, mimeType, err := llm.ParseDataURL(req.ImageDataURL)
		if err != nil {
			http.Error(w, "invalid image data url", http.StatusBadRequest)
			return
		}
		in.ImageData = data
		in.ImageMIME = mimeType
	}

	res, err := conv.Submit(r.Context(), in)
	s.respond(w, conv, sessionID, res, err)
}

// handleSelectOption resolves an option click on the latest question turn.
func (s *Server) handleSelectOption(w http.ResponseWriter, r *http.Request, sessionID string) {
	conv, ok := s.conversation(w, r, sessionID)
	if !ok {
		return
	}

	var req pkg.OptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.MessageID == "" || strings.TrimSpace(req.Option) == "" {
		http.Error(w, "message_id and option are required", http.StatusBadRequest)
		return
	}

	res, err := conv.SelectOption(r.Context(), req.MessageID, req.Option)
	s.respond(w, conv, sessionID, res, err)
}

// handleLocation resumes the facility-lookup flow with the geolocation
// outcome the client observed.
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request, sessionID string) {
	conv, ok := s.conversation(w, r, sessionID)
	if !ok {
		return
	}

	var req pkg.LocationReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	var (
		res core.Result
		err error
	)
	switch {
	case req.Error != "":
		res, err = conv.ReportLocationFailure(r.Context(), req.Error)
	case req.Latitude != nil && req.Longitude != nil:
		res, err = conv.ReportLocation(r.Context(), *req.Latitude, *req.Longitude)
	default:
		http.Error(w, "coordinates or error are required", http.StatusBadRequest)
		return
	}
	s.respond(w, conv, sessionID, res, err)
}

// handleReset starts the conversation over after the client confirmed.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sessionID string) {
	conv, ok := s.conversation(w, r, sessionID)
	if !ok {
		return
	}

	res, err := conv.Reset()
	if errors.Is(err, core.ErrBusy) {
		http.Error(w, "request in flight", http.StatusConflict)
		return
	}

	// Outstanding writes from earlier interactions must land before the
	// delete, or a straggler would re-insert pre-reset turns afterwards.
	s.drainPending(sessionID)
	if err := s.Repo.ClearMessages(r.Context(), sessionID); err != nil {
		s.Log.Error("clear messages failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.persistTurns(sessionID, res.Messages, res.Phase)

	writeJSON(w, http.StatusOK, pkg.ChatResponse{
		Messages: res.Messages,
		Phase:    res.Phase.String(),
	})
}

// handleTranscript returns the full visible transcript.  Advice structure
// and inline runs are derived here, on render, never stored.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request, sessionID string) {
	msgs, ok := s.transcript(w, r.Context(), sessionID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": viewMessages(msgs)})
}

// handleExport serves the rendered transcript as a plain-text download; the
// client-side snapshot/PDF collaborator consumes this surface.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sessionID string) {
	msgs, ok := s.transcript(w, r.Context(), sessionID)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transcript-"+sessionID+".txt"))
	io.WriteString(w, core.RenderTranscript(msgs))
}

// handleStream streams transcript updates for a session using SSE.  An
// initial snapshot event is sent on connect, then one event per NOTIFY
// received for this session until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, sessionID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	updates, err := s.Notifier.Listen(ctx)
	if err != nil {
		s.internalError(w, "listen", err)
		return
	}

	if err := s.sendTranscriptEvent(w, ctx, sessionID); err != nil {
		s.Log.Warn("send transcript event failed", zap.Error(err))
		return
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case updated, open := <-updates:
			if !open {
				return
			}
			if updated != sessionID {
				continue
			}
			if err := s.sendTranscriptEvent(w, ctx, sessionID); err != nil {
				s.Log.Warn("send transcript event failed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

// sendTranscriptEvent writes one transcript_update event with the current
// visible transcript.
func (s *Server) sendTranscriptEvent(w http.ResponseWriter, ctx context.Context, sessionID string) error {
	var msgs []pkg.Message
	if conv, ok := s.Registry.Get(sessionID); ok {
		msgs = conv.Messages()
	} else {
		var err error
		msgs, err = s.Repo.GetTranscript(ctx, sessionID)
		if err != nil {
			return err
		}
	}
	payload := map[string]any{
		"type":       "transcript_update",
		"session_id": sessionID,
		"messages":   viewMessages(msgs),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "data: "+string(data)+"\n\n")
	return err
}

// respond maps controller outcomes onto status codes: busy and stale
// selections are rejections with no transcript change; everything else is a
// normal response whose appended turns (including failure notices) the
// client renders.
func (s *Server) respond(w http.ResponseWriter, conv *core.Conversation, sessionID string, res core.Result, err error) {
	switch {
	case errors.Is(err, core.ErrBusy):
		http.Error(w, "request in flight", http.StatusConflict)
		return
	case errors.Is(err, core.ErrStaleOption):
		http.Error(w, "option no longer selectable", http.StatusGone)
		return
	case errors.Is(err, core.ErrNotLocating):
		http.Error(w, "no location request pending", http.StatusConflict)
		return
	case err != nil:
		// Model/transport failure: the system notice is already appended
		// and the user may retry.
		s.Log.Error("model exchange failed", zap.String("session_id", sessionID), zap.Error(err))
	}

	s.persistTurns(sessionID, res.Messages, res.Phase)

	writeJSON(w, http.StatusOK, pkg.ChatResponse{
		Messages:      res.Messages,
		Phase:         res.Phase.String(),
		AwaitLocation: res.Action == core.ActionAwaitLocation,
		Busy:          conv.Busy(),
	})
}

// persistTurns writes newly appended turns to the repository and announces
// the update.  Persistence is fire and forget: a storage hiccup must not
// fail the interaction the user just completed.  Each write registers in
// the session's pending group before the goroutine starts, so reset and
// eviction can drain outstanding writes in order.
func (s *Server) persistTurns(sessionID string, msgs []pkg.Message, phase core.Phase) {
	wg := s.pendingWrites(sessionID)
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx := context.Background()
		for _, m := range msgs {
			if m.Ephemeral {
				continue
			}
			if err := s.Repo.AppendMessage(ctx, sessionID, m); err != nil {
				s.Log.Error("persist message failed", zap.String("session_id", sessionID), zap.Error(err))
			}
		}
		if err := s.Repo.UpdatePhase(ctx, sessionID, phase.String()); err != nil {
			s.Log.Error("persist phase failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		if err := s.Notifier.Notify(ctx, sessionID); err != nil {
			s.Log.Error("notify failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()
}

// pendingWrites returns the WaitGroup tracking in-flight persistence for a
// session, creating it on first use.
func (s *Server) pendingWrites(sessionID string) *sync.WaitGroup {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	wg, ok := s.pending[sessionID]
	if !ok {
		wg = &sync.WaitGroup{}
		s.pending[sessionID] = wg
	}
	return wg
}

// drainPending blocks until every in-flight persistence goroutine for the
// session has finished.
func (s *Server) drainPending(sessionID string) {
	s.pendingMu.Lock()
	wg := s.pending[sessionID]
	s.pendingMu.Unlock()
	if wg != nil {
		wg.Wait()
	}
}

// forgetPending drops the session's pending entry once the session is gone.
func (s *Server) forgetPending(sessionID string) {
	s.pendingMu.Lock()
	delete(s.pending, sessionID)
	s.pendingMu.Unlock()
}

// conversation resolves the live controller for a session, writing the
// appropriate error when it is unknown or expired.
func (s *Server) conversation(w http.ResponseWriter, r *http.Request, sessionID string) (*core.Conversation, bool) {
	if conv, ok := s.Registry.Get(sessionID); ok {
		return conv, true
	}
	if _, err := s.Repo.GetSession(r.Context(), sessionID); err == nil {
		http.Error(w, "session expired", http.StatusGone)
		return nil, false
	}
	http.NotFound(w, r)
	return nil, false
}

// transcript returns the visible transcript, preferring the live
// conversation over the persisted copy.
func (s *Server) transcript(w http.ResponseWriter, ctx context.Context, sessionID string) ([]pkg.Message, bool) {
	if conv, ok := s.Registry.Get(sessionID); ok {
		return conv.Messages(), true
	}
	if _, err := s.Repo.GetSession(ctx, sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	msgs, err := s.Repo.GetTranscript(ctx, sessionID)
	if err != nil {
		s.internalError(w, "load transcript", err)
		return nil, false
	}
	return msgs, true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.Log.Error(op+" failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// messageView decorates a message with render-time structure: advice
// segmentation and inline runs for non-question assistant turns.
type messageView struct {
	pkg.Message
	Advice *core.SegmentedAdvice `json:"advice,omitempty"`
	Runs   []core.Run            `json:"runs,omitempty"`
}

func viewMessages(msgs []pkg.Message) []messageView {
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		v := messageView{Message: m}
		if m.Role == pkg.RoleAssistant && !m.IsQuestion {
			if seg, ok := core.Segment(m.Text); ok {
				v.Advice = seg
			} else {
				v.Runs = core.FormatInline(m.Text)
			}
		}
		views = append(views, v)
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
