package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/logging"
	"github.com/danielpatrickdp/calmbridge/internal/observability"
	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
	"github.com/danielpatrickdp/calmbridge/internal/state"
)

const (
	tracerName = "github.com/danielpatrickdp/calmbridge/internal/session"

	triggerUndo = "undo"
)

// #region service

// Service runs coach actions against persisted, versioned session state.
// Every change commits a new version and a provenance row describing the
// frame that resulted.
type Service struct {
	store    *state.Store
	pipeline *coach.Pipeline
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
	initial  coach.SessionState

	// serialises read-modify-commit so two actions never share a parent
	mu sync.Mutex
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithInitialState sets the state new sessions open with.
func WithInitialState(st coach.SessionState) Option {
	return func(s *Service) { s.initial = st }
}

// NewService wires a service. A nil logger discards output.
func NewService(store *state.Store, pipeline *coach.Pipeline, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:    store,
		pipeline: pipeline,
		logger:   logger.Named("session"),
		tracer:   otel.Tracer(tracerName),
		now:      func() time.Time { return time.Now().UTC() },
		initial:  coach.DefaultSessionState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pipeline exposes the pipeline for stateless narration.
func (s *Service) Pipeline() *coach.Pipeline {
	return s.pipeline
}

// #endregion service

// #region start

// Start opens a new session.
func (s *Service) Start(ctx context.Context, in StartInput) (View, error) {
	ctx, span := s.tracer.Start(ctx, "session.Start")
	defer span.End()

	st := s.initial
	if in.Language != "" {
		st.Language = in.Language
	}
	if in.Calmness != nil {
		st.Calmness = signals.ClampCalmness(*in.Calmness)
	}
	if in.Step != "" {
		step, err := script.ParseStep(string(in.Step))
		if err != nil {
			return View{}, fail(span, err)
		}
		st.Step = step
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.CreateSession(st, s.now())
	if err != nil {
		return View{}, fail(span, fmt.Errorf("start session: %w", err))
	}
	span.SetAttributes(attribute.String("session.id", rec.SessionID))

	view := s.view(rec)
	s.record(ctx, view, "commit", "")

	observability.LoggerFromContext(ctx, s.logger).Info("session started",
		zap.String("session_id", rec.SessionID),
		zap.String("language", st.Language),
		zap.String("status", string(view.Frame.Status)),
	)
	return view, nil
}

// #endregion start

// #region get

// Get returns the active version of a session.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	_, span := s.tracer.Start(ctx, "session.Get", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	rec, err := s.store.GetCurrent(id)
	if err != nil {
		return View{}, fail(span, err)
	}
	return s.view(rec), nil
}

// #endregion get

// #region apply

// Apply runs one action against the session's active state and commits the
// result as a new version.
func (s *Service) Apply(ctx context.Context, id string, a coach.Action) (View, error) {
	ctx, span := s.tracer.Start(ctx, "session.Apply", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("action", string(a.Type)),
	))
	defer span.End()

	log := observability.LoggerFromContext(ctx, s.logger).With(
		zap.String("session_id", id),
		zap.String("action", string(a.Type)),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.store.GetCurrent(id)
	if err != nil {
		return View{}, fail(span, err)
	}

	next, err := coach.Apply(cur.State, a)
	if err != nil {
		log.Debug("action rejected", zap.Error(err))
		return View{}, fail(span, err)
	}

	rec := state.StateRecord{
		VersionID: uuid.New().String(),
		SessionID: id,
		ParentID:  cur.VersionID,
		State:     next,
		Trigger:   string(a.Type),
		CreatedAt: s.now(),
	}
	if err := s.store.CommitState(rec); err != nil {
		log.Error("commit failed", zap.Error(err))
		return View{}, fail(span, fmt.Errorf("apply %s: %w", a.Type, err))
	}

	view := s.viewWithSource(rec, a.Source)
	s.record(ctx, view, "commit", "")

	if prev := s.pipeline.Narrate(cur.State); prev.Status != view.Frame.Status {
		log.Info("status changed",
			zap.String("from", string(prev.Status)),
			zap.String("to", string(view.Frame.Status)),
			zap.Int("rmssd", view.Frame.RMSSD),
		)
	} else {
		log.Debug("action applied", zap.Int("rmssd", view.Frame.RMSSD))
	}
	return view, nil
}

// #endregion apply

// #region undo

// Undo makes the parent of the active version active again. The undone
// version stays in the history.
func (s *Service) Undo(ctx context.Context, id string) (View, error) {
	ctx, span := s.tracer.Start(ctx, "session.Undo", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.store.GetCurrent(id)
	if err != nil {
		return View{}, fail(span, err)
	}
	if cur.ParentID == "" {
		return View{}, fail(span, ErrNothingToUndo)
	}
	if err := s.store.Rollback(id, cur.ParentID); err != nil {
		return View{}, fail(span, fmt.Errorf("undo: %w", err))
	}
	parent, err := s.store.GetVersion(cur.ParentID)
	if err != nil {
		return View{}, fail(span, err)
	}

	view := s.view(parent)
	s.record(ctx, view, triggerUndo, "undid "+cur.Trigger+" "+cur.VersionID)

	observability.LoggerFromContext(ctx, s.logger).Info("action undone",
		zap.String("session_id", id),
		zap.String("undone", cur.Trigger),
	)
	return view, nil
}

// #endregion undo

// #region history

// History returns up to limit versions of a session, newest first.
func (s *Service) History(ctx context.Context, id string, limit int) ([]Version, error) {
	_, span := s.tracer.Start(ctx, "session.History", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	cur, err := s.store.GetCurrent(id)
	if err != nil {
		return nil, fail(span, err)
	}
	if limit <= 0 {
		limit = 50
	}
	recs, err := s.store.ListVersions(id, limit)
	if err != nil {
		return nil, fail(span, err)
	}

	out := make([]Version, 0, len(recs))
	for _, r := range recs {
		out = append(out, Version{
			VersionID: r.VersionID,
			ParentID:  r.ParentID,
			Trigger:   r.Trigger,
			State:     r.State,
			Active:    r.VersionID == cur.VersionID,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// Log returns the provenance entries of a session, oldest first.
func (s *Service) Log(ctx context.Context, id string) ([]logging.ProvenanceEntry, error) {
	_, span := s.tracer.Start(ctx, "session.Log", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	if _, err := s.store.GetCurrent(id); err != nil {
		return nil, fail(span, err)
	}
	entries, err := logging.ListBySession(s.store.DB(), id, 0)
	if err != nil {
		return nil, fail(span, err)
	}
	return entries, nil
}

// List returns the most recently updated sessions.
func (s *Service) List(ctx context.Context, limit int) ([]Summary, error) {
	_, span := s.tracer.Start(ctx, "session.List")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.store.ListSessions(limit)
	if err != nil {
		return nil, fail(span, err)
	}
	out := make([]Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, Summary(r))
	}
	return out, nil
}

// #endregion history

// #region helpers

func (s *Service) view(rec state.StateRecord) View {
	return s.viewWithSource(rec, "")
}

func (s *Service) viewWithSource(rec state.StateRecord, src signals.Source) View {
	var frame coach.Frame
	if src != "" {
		frame = s.pipeline.NarrateReading(rec.State, signals.Reading{
			Calmness: rec.State.Calmness,
			Source:   src,
			At:       rec.CreatedAt,
		})
	} else {
		frame = s.pipeline.Narrate(rec.State)
	}
	return View{
		SessionID: rec.SessionID,
		VersionID: rec.VersionID,
		ParentID:  rec.ParentID,
		Trigger:   rec.Trigger,
		State:     rec.State,
		Frame:     frame,
		UpdatedAt: rec.CreatedAt,
	}
}

// record writes the provenance row for view. Failures are logged, never
// returned: the state change has already been committed.
func (s *Service) record(ctx context.Context, view View, decision, reason string) {
	log := observability.LoggerFromContext(ctx, s.logger)
	for _, w := range view.Frame.Warnings {
		log.Warn("script data incomplete",
			zap.String("session_id", view.SessionID),
			zap.String("warning", w),
		)
	}

	trigger := view.Trigger
	if decision == triggerUndo {
		trigger = triggerUndo
	}
	rec := FrameRecord(trigger, view.Frame, view.State)
	if err := logging.LogFrame(s.store.DB(), view.SessionID, view.VersionID, decision, reason, rec, s.now()); err != nil {
		log.Error("provenance write failed", zap.String("session_id", view.SessionID), zap.Error(err))
	}
}

// FrameRecord flattens a frame into its provenance form.
func FrameRecord(action string, f coach.Frame, st coach.SessionState) logging.FrameRecord {
	return logging.FrameRecord{
		Action:       action,
		Calmness:     f.Calmness,
		RMSSD:        f.RMSSD,
		Status:       string(f.Status),
		StateTag:     string(f.StateTag),
		Step:         string(f.Step),
		AnchorKey:    f.AnchorKey,
		Anchor:       f.Anchor,
		Text:         f.Text,
		Language:     f.Language,
		VoiceEnabled: st.Voice.Enabled,
		VoiceRate:    st.Voice.Rate,
		Warnings:     f.Warnings,
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// #endregion helpers
