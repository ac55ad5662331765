package replay

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/logging"
)

// ErrEmptyLog is returned by Export for a session without provenance rows.
var ErrEmptyLog = errors.New("empty provenance log")

// #region export

// Export turns a session's provenance log into a fixture. The first entry
// becomes the start state; each later entry becomes an event whose expected
// result is the frame recorded at the time, so replaying the fixture checks
// that current thresholds and scripts still reproduce the session.
func Export(sessionID string, entries []logging.ProvenanceEntry) (*Fixture, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("export %s: %w", sessionID, ErrEmptyLog)
	}

	first, ok, err := entries[0].FrameRecord()
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", sessionID, err)
	}
	if !ok {
		return nil, fmt.Errorf("export %s: first entry has no frame record", sessionID)
	}

	f := &Fixture{
		Description: fmt.Sprintf("exported session %s", sessionID),
		SessionID:   sessionID,
		StartState: FixtureStartState{
			Calmness:     first.Calmness,
			Step:         first.Step,
			AnchorKey:    first.AnchorKey,
			Language:     first.Language,
			VoiceEnabled: first.VoiceEnabled,
			VoiceRate:    first.VoiceRate,
		},
	}

	for i, e := range entries[1:] {
		rec, ok, err := e.FrameRecord()
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", sessionID, err)
		}
		if !ok {
			continue
		}
		id := fmt.Sprintf("e%03d", i+1)
		f.Events = append(f.Events, eventFor(id, rec))
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			ID:       id,
			Status:   rec.Status,
			StateTag: rec.StateTag,
			RMSSD:    rec.RMSSD,
			Anchor:   rec.Anchor,
		})
	}
	return f, nil
}

// eventFor recovers the action parameters from the state the action left
// behind.
func eventFor(id string, rec logging.FrameRecord) FixtureEvent {
	ev := FixtureEvent{ID: id, Type: rec.Action}
	switch coach.ActionType(rec.Action) {
	case coach.ActionSetCalmness:
		ev.Calmness = rec.Calmness
	case coach.ActionSetStep:
		ev.Step = rec.Step
	case coach.ActionPickAnchor:
		ev.Anchor = rec.AnchorKey
	}
	return ev
}

// #endregion export
