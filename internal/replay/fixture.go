package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	SessionID       string                  `json:"session_id,omitempty"`
	StartState      FixtureStartState       `json:"start_state"`
	Config          *FixtureConfig          `json:"config,omitempty"`
	Events          []FixtureEvent          `json:"events"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureStartState is the JSON-serializable initial state.
type FixtureStartState struct {
	Calmness     int     `json:"calmness"`
	Step         string  `json:"step"`
	AnchorKey    string  `json:"anchor_key,omitempty"`
	Language     string  `json:"language"`
	VoiceEnabled bool    `json:"voice_enabled"`
	VoiceRate    float64 `json:"voice_rate,omitempty"`
}

// FixtureEvent mirrors coach.Action with an event id.
type FixtureEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Calmness int    `json:"calmness,omitempty"`
	Step     string `json:"step,omitempty"`
	Anchor   string `json:"anchor,omitempty"`
	Source   string `json:"source,omitempty"`
}

// FixtureExpectedResult captures what the coach must show after an event.
// Empty fields are not checked.
type FixtureExpectedResult struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	StateTag string `json:"state_tag,omitempty"`
	RMSSD    int    `json:"rmssd,omitempty"`
	Anchor   string `json:"anchor,omitempty"`
}

// FixtureConfig overrides pipeline tunables for a replay run.
type FixtureConfig struct {
	FloorRMSSD int                `json:"floor_rmssd,omitempty"`
	SpanRMSSD  int                `json:"span_rmssd,omitempty"`
	Thresholds *triage.Thresholds `json:"thresholds,omitempty"`
	TargetBPM  float64            `json:"target_bpm,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if _, err := script.ParseStep(f.StartState.Step); err != nil {
		return nil, fmt.Errorf("fixture %s start state: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToSessionState converts a FixtureStartState to a coach.SessionState.
func (s *FixtureStartState) ToSessionState() coach.SessionState {
	st := coach.DefaultSessionState()
	st.Calmness = signals.ClampCalmness(s.Calmness)
	if step, err := script.ParseStep(s.Step); err == nil {
		st.Step = step
	}
	st.AnchorKey = s.AnchorKey
	if s.Language != "" {
		st.Language = s.Language
	}
	st.Voice.Enabled = s.VoiceEnabled
	if s.VoiceRate != 0 {
		st.Voice.Rate = s.VoiceRate
	}
	return st
}

// ToEvent converts a FixtureEvent to a replay Event.
func (fe *FixtureEvent) ToEvent() Event {
	return Event{
		ID: fe.ID,
		Action: coach.Action{
			Type:     coach.ActionType(fe.Type),
			Calmness: fe.Calmness,
			Step:     script.Step(fe.Step),
			Anchor:   fe.Anchor,
			Source:   signals.Source(fe.Source),
		},
	}
}

// ToEvents converts every fixture event.
func (f *Fixture) ToEvents() []Event {
	out := make([]Event, len(f.Events))
	for i := range f.Events {
		out[i] = f.Events[i].ToEvent()
	}
	return out
}

// ToPipelineConfig layers the fixture overrides onto the defaults.
func (fc *FixtureConfig) ToPipelineConfig() coach.PipelineConfig {
	cfg := coach.DefaultPipelineConfig()
	if fc == nil {
		return cfg
	}
	if fc.FloorRMSSD != 0 {
		cfg.Producer.FloorRMSSD = fc.FloorRMSSD
	}
	if fc.SpanRMSSD != 0 {
		cfg.Producer.SpanRMSSD = fc.SpanRMSSD
	}
	if fc.Thresholds != nil {
		cfg.Thresholds = *fc.Thresholds
	}
	if fc.TargetBPM != 0 {
		cfg.TargetBPM = fc.TargetBPM
	}
	return cfg
}

// #endregion fixture-loader

// #region check

// Mismatch describes one expected result that did not hold.
type Mismatch struct {
	Index int
	ID    string
	Field string
	Want  string
	Got   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("event %d (%s): %s want %s, got %s", m.Index, m.ID, m.Field, m.Want, m.Got)
}

// Check compares results against the fixture's expectations.
func (f *Fixture) Check(results []Result) []Mismatch {
	var out []Mismatch
	if len(results) != len(f.ExpectedResults) {
		out = append(out, Mismatch{
			Index: -1, Field: "count",
			Want: fmt.Sprint(len(f.ExpectedResults)), Got: fmt.Sprint(len(results)),
		})
		return out
	}
	for i, want := range f.ExpectedResults {
		got := results[i]
		add := func(field, w, g string) {
			if w != "" && w != g {
				out = append(out, Mismatch{Index: i, ID: want.ID, Field: field, Want: w, Got: g})
			}
		}
		add("id", want.ID, got.ID)
		add("status", want.Status, string(got.Frame.Status))
		add("state_tag", want.StateTag, string(got.Frame.StateTag))
		add("anchor", want.Anchor, got.Frame.Anchor)
		if want.RMSSD != 0 {
			add("rmssd", fmt.Sprint(want.RMSSD), fmt.Sprint(got.Frame.RMSSD))
		}
	}
	return out
}

// #endregion check
