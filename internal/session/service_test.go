package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
	"github.com/danielpatrickdp/calmbridge/internal/state"
	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

type fixture struct {
	svc   *Service
	logs  *observer.ObservedLogs
	spans *tracetest.SpanRecorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, err := state.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	catalog, err := script.LoadBundled(script.DefaultLanguage)
	if err != nil {
		t.Fatalf("LoadBundled: %v", err)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	clock := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	svc := NewService(store, coach.NewPipeline(coach.DefaultPipelineConfig(), catalog), zap.New(core),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		WithTracer(tp.Tracer("test")),
	)
	return fixture{svc: svc, logs: logs, spans: sr}
}

func TestStart_Defaults(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.Start(context.Background(), StartInput{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if v.SessionID == "" || v.VersionID == "" {
		t.Fatal("expected ids")
	}
	if v.State != coach.DefaultSessionState() {
		t.Fatalf("unexpected initial state %+v", v.State)
	}
	if v.Frame.RMSSD != 38 || v.Frame.Status != triage.StatusYellow || v.Frame.StateTag != triage.TagRecover {
		t.Fatalf("unexpected frame %+v", v.Frame)
	}
	if v.Frame.Anchor != "a colorful pinwheel" {
		t.Fatalf("expected idle default anchor, got %q", v.Frame.Anchor)
	}
	if f.logs.FilterMessage("session started").Len() != 1 {
		t.Fatal("expected a session started log")
	}
}

func TestStart_SpanishSpeaksSpanish(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.Start(context.Background(), StartInput{Language: "es"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if v.Frame.Language != "es" || !strings.HasPrefix(v.Frame.Text, "Vamos") {
		t.Fatalf("expected Spanish script, got %q %q", v.Frame.Language, v.Frame.Text)
	}
	if v.Frame.Utterance == nil || v.Frame.Utterance.Language != "es" {
		t.Fatalf("expected es utterance, got %+v", v.Frame.Utterance)
	}
}

func TestStart_Overrides(t *testing.T) {
	f := newFixture(t)

	calm := 150
	v, err := f.svc.Start(context.Background(), StartInput{Language: "es", Calmness: &calm, Step: "drill"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if v.State.Calmness != 100 {
		t.Fatalf("expected clamped calmness 100, got %d", v.State.Calmness)
	}
	if v.State.Step != script.StepDrill {
		t.Fatalf("expected DRILL, got %s", v.State.Step)
	}
	if v.Frame.Language != "es" {
		t.Fatalf("expected es frame, got %q", v.Frame.Language)
	}

	if _, err := f.svc.Start(context.Background(), StartInput{Step: "SURGERY"}); !errors.Is(err, script.ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}
}

func TestApply_CommitsVersionAndProvenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start, _ := f.svc.Start(ctx, StartInput{})

	v, err := f.svc.Apply(ctx, start.SessionID, coach.SetCalmness(80, signals.SourceSlider))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if v.ParentID != start.VersionID {
		t.Fatalf("expected parent %s, got %s", start.VersionID, v.ParentID)
	}
	if v.Frame.Status != triage.StatusGreen || v.Frame.RMSSD != 66 {
		t.Fatalf("unexpected frame %+v", v.Frame)
	}
	if v.Frame.Signals.Source != signals.SourceSlider {
		t.Fatalf("expected slider source, got %q", v.Frame.Signals.Source)
	}
	if f.logs.FilterMessage("status changed").Len() != 1 {
		t.Fatal("expected a status changed log")
	}

	v, err = f.svc.Apply(ctx, start.SessionID, coach.PickAnchor("fox"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.Contains(v.Frame.Text, "a friendly fox") {
		t.Fatalf("expected fox in text, got %q", v.Frame.Text)
	}

	entries, err := f.svc.Log(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 provenance entries, got %d", len(entries))
	}
	rec, ok, err := entries[1].FrameRecord()
	if err != nil || !ok {
		t.Fatalf("FrameRecord: ok=%v err=%v", ok, err)
	}
	if rec.Action != "set_calmness" || rec.Status != "GREEN" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestApply_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Apply(ctx, "missing", coach.Action{Type: coach.ActionToggleVoice}); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	start, _ := f.svc.Start(ctx, StartInput{})
	if _, err := f.svc.Apply(ctx, start.SessionID, coach.Action{Type: "dance"}); !errors.Is(err, coach.ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if _, err := f.svc.Apply(ctx, start.SessionID, coach.SetStep("SURGERY")); !errors.Is(err, script.ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}

	// rejected actions leave the active version alone
	cur, _ := f.svc.Get(ctx, start.SessionID)
	if cur.VersionID != start.VersionID {
		t.Fatal("rejected action moved the active version")
	}
}

func TestUndo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start, _ := f.svc.Start(ctx, StartInput{})
	if _, err := f.svc.Undo(ctx, start.SessionID); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}

	drill, _ := f.svc.Apply(ctx, start.SessionID, coach.SetStep(script.StepDrill))
	v, err := f.svc.Undo(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if v.VersionID != start.VersionID || v.State.Step != script.StepIdle {
		t.Fatalf("expected to be back at start, got %+v", v)
	}

	history, err := f.svc.History(ctx, start.SessionID, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected undone version to stay in history, got %d", len(history))
	}
	for _, h := range history {
		if h.VersionID == drill.VersionID && h.Active {
			t.Fatal("undone version should not be active")
		}
		if h.VersionID == start.VersionID && !h.Active {
			t.Fatal("start version should be active")
		}
	}

	entries, _ := f.svc.Log(ctx, start.SessionID)
	if last := entries[len(entries)-1]; last.Decision != "undo" || last.TriggerType != "undo" {
		t.Fatalf("expected undo provenance, got %+v", last)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.svc.Start(ctx, StartInput{})
	f.svc.Start(ctx, StartInput{})
	f.svc.Apply(ctx, a.SessionID, coach.Action{Type: coach.ActionToggleVoice})

	list, err := f.svc.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	if list[0].SessionID != a.SessionID || list[0].Versions != 2 {
		t.Fatalf("expected most recently updated first, got %+v", list[0])
	}
}

func TestSpansRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start, _ := f.svc.Start(ctx, StartInput{})
	f.svc.Undo(ctx, start.SessionID)

	ended := f.spans.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(ended))
	}
	if ended[0].Name() != "session.Start" || ended[1].Name() != "session.Undo" {
		t.Fatalf("unexpected span names %q, %q", ended[0].Name(), ended[1].Name())
	}
	if len(ended[1].Events()) == 0 {
		t.Fatal("expected the failed undo to record an error event")
	}
}

func TestStart_InitialStateOption(t *testing.T) {
	store, err := state.NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	catalog, _ := script.LoadBundled(script.DefaultLanguage)

	initial := coach.DefaultSessionState()
	initial.Calmness = 70
	initial.Voice.Enabled = false
	svc := NewService(store, coach.NewPipeline(coach.DefaultPipelineConfig(), catalog), nil, WithInitialState(initial))

	v, err := svc.Start(context.Background(), StartInput{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if v.State != initial {
		t.Fatalf("expected configured initial state, got %+v", v.State)
	}
	if v.Frame.Utterance != nil {
		t.Fatal("expected no utterance with voice disabled")
	}
}
