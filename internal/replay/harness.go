package replay

import (
	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

// #region types

// Undo is a pseudo action: it restores the state before the last applied
// action, the way session.Service.Undo moves to the parent version.
const Undo coach.ActionType = "undo"

// Event is a single recorded interaction.
type Event struct {
	ID     string
	Action coach.Action
}

// Result captures the outcome of replaying one event.
type Result struct {
	ID      string
	Action  coach.Action
	Applied bool
	Err     string // set when the action was rejected; state is unchanged

	State         coach.SessionState
	Frame         coach.Frame
	StatusChanged bool
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalEvents int
	Applied     int
	Rejected    int
	Undos       int
	ByStatus    map[triage.Status]int
	Transitions int
	MinRMSSD    int
	MaxRMSSD    int
	FinalState  coach.SessionState
	FinalFrame  coach.Frame
}

// #endregion types

// #region replay

// Replay runs events through the pipeline starting from start. It operates
// entirely in memory and is deterministic for a fixed script source.
func Replay(start coach.SessionState, events []Event, p *coach.Pipeline) []Result {
	current := start
	prevStatus := p.Narrate(start).Status
	var undo []coach.SessionState
	results := make([]Result, 0, len(events))

	for _, ev := range events {
		r := Result{ID: ev.ID, Action: ev.Action}

		switch {
		case ev.Action.Type == Undo:
			if len(undo) == 0 {
				r.Err = "nothing to undo"
				break
			}
			current = undo[len(undo)-1]
			undo = undo[:len(undo)-1]
			r.Applied = true
		default:
			next, err := coach.Apply(current, ev.Action)
			if err != nil {
				r.Err = err.Error()
				break
			}
			undo = append(undo, current)
			current = next
			r.Applied = true
		}

		r.State = current
		r.Frame = p.Narrate(current)
		r.StatusChanged = r.Frame.Status != prevStatus
		prevStatus = r.Frame.Status
		results = append(results, r)
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result, start coach.SessionState, p *coach.Pipeline) Summary {
	first := p.Narrate(start)
	s := Summary{
		TotalEvents: len(results),
		ByStatus:    make(map[triage.Status]int),
		MinRMSSD:    first.RMSSD,
		MaxRMSSD:    first.RMSSD,
		FinalState:  start,
		FinalFrame:  first,
	}
	for _, r := range results {
		switch {
		case !r.Applied:
			s.Rejected++
		case r.Action.Type == Undo:
			s.Undos++
		default:
			s.Applied++
		}
		s.ByStatus[r.Frame.Status]++
		if r.StatusChanged {
			s.Transitions++
		}
		s.MinRMSSD = min(s.MinRMSSD, r.Frame.RMSSD)
		s.MaxRMSSD = max(s.MaxRMSSD, r.Frame.RMSSD)
		s.FinalState = r.State
		s.FinalFrame = r.Frame
	}
	return s
}

// #endregion replay
