package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/observability"
	"github.com/danielpatrickdp/calmbridge/internal/replay"
	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/session"
	"github.com/danielpatrickdp/calmbridge/internal/state"
)

// Languager lists the languages scripts exist for.
type Languager interface {
	Languages() []string
}

// Server serves the calmbridge JSON API.
type Server struct {
	sessions  *session.Service
	languages Languager
	logger    *zap.Logger
	origins   []string
	upgrader  websocket.Upgrader
}

// NewServer builds the JSON API with its middleware chain. languages may be
// nil.
func NewServer(sessions *session.Service, languages Languager, logger *zap.Logger, allowedOrigins []string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions:  sessions,
		languages: languages,
		logger:    logger.Named("http"),
		origins:   allowedOrigins,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(s.origins, r.Header.Get("Origin"))
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /anchors", s.handleAnchors)
	mux.HandleFunc("POST /narrate", s.handleNarrate)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/actions", s.handleApply)
	mux.HandleFunc("POST /sessions/{id}/undo", s.handleUndo)
	mux.HandleFunc("GET /sessions/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /sessions/{id}/export", s.handleExport)
	mux.HandleFunc("GET /sessions/{id}/sensor", s.handleSensor)

	return chainMiddlewares(mux, withLogging(s.logger), withCORS(allowedOrigins), withRequestID)
}

// #region dtos

type createSessionRequest struct {
	Language string `json:"language,omitempty"`
	Calmness *int   `json:"calmness,omitempty"`
	Step     string `json:"step,omitempty"`
}

type anchorResponse struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Emoji  string `json:"emoji"`
	Phrase string `json:"phrase"`
}

type anchorsResponse struct {
	Language  string           `json:"language"`
	Languages []string         `json:"languages,omitempty"`
	Anchors   []anchorResponse `json:"anchors"`
}

type historyResponse struct {
	SessionID string            `json:"session_id"`
	Versions  []session.Version `json:"versions"`
}

type sensorReading struct {
	Calmness *int `json:"calmness"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// #endregion dtos

// #region handlers

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnchors(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	lib := s.sessions.Pipeline().Library(lang)
	if lib == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no script library for language " + strconv.Quote(lang)})
		return
	}

	resp := anchorsResponse{Language: lib.Language, Anchors: make([]anchorResponse, 0, len(lib.Vocabulary))}
	if s.languages != nil {
		resp.Languages = s.languages.Languages()
	}
	for _, a := range lib.Vocabulary {
		resp.Anchors = append(resp.Anchors, anchorResponse{Key: a.Key, Label: a.Label, Emoji: a.Emoji, Phrase: a.Phrase})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNarrate(w http.ResponseWriter, r *http.Request) {
	var q coach.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	st, err := q.State()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Pipeline().Narrate(st))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	view, err := s.sessions.Start(r.Context(), session.StartInput{
		Language: req.Language,
		Calmness: req.Calmness,
		Step:     script.Step(req.Step),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+view.SessionID)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	list, err := s.sessions.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var a coach.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if a.Type == "" {
		badRequest(w, "action type is required")
		return
	}

	view, err := s.sessions.Apply(r.Context(), r.PathValue("id"), a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Undo(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	versions, err := s.sessions.History(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: id, Versions: versions})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entries, err := s.sessions.Log(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fixture, err := replay.Export(id, entries)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fixture)
}

// #endregion handlers

// #region helpers

func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(w, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, script.ErrUnknownStep), errors.Is(err, coach.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNothingToUndo):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context(), s.logger).Error("request failed", zap.Error(err))
		internalError(w)
		return
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func internalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// #endregion helpers
