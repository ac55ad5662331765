package triage

import "fmt"

// #region classifier

// Classifier buckets RMSSD values into Status and StateTag.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier creates a classifier with the given cut points.
func NewClassifier(thresholds Thresholds) Classifier {
	return Classifier{thresholds: thresholds}
}

// Thresholds returns the cut points in use.
func (c Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Status returns the traffic light for rmssd.
func (c Classifier) Status(rmssd int) Status {
	switch c.band(rmssd) {
	case bandHigh:
		return StatusGreen
	case bandMid:
		return StatusYellow
	default:
		return StatusRed
	}
}

// StateTag returns the narrative state for rmssd.
func (c Classifier) StateTag(rmssd int) StateTag {
	switch c.band(rmssd) {
	case bandHigh:
		return TagCalm
	case bandMid:
		return TagRecover
	default:
		return TagAlert
	}
}

// Assess classifies rmssd and formats the clinician label.
func (c Classifier) Assess(rmssd int) Assessment {
	s := c.Status(rmssd)
	return Assessment{
		RMSSD:  rmssd,
		Status: s,
		Tag:    c.StateTag(rmssd),
		Label:  StatusLabel(s, rmssd),
	}
}

// #endregion classifier

// #region band

type band int

const (
	bandLow band = iota
	bandMid
	bandHigh
)

// band is the single place the cut points are compared, so Status and
// StateTag cannot drift apart.
func (c Classifier) band(rmssd int) band {
	if rmssd >= c.thresholds.Green {
		return bandHigh
	}
	if rmssd >= c.thresholds.Yellow {
		return bandMid
	}
	return bandLow
}

// #endregion band

// #region label

// StatusLabel formats "Status: <LEVEL> (RMSSD≈<value> ms)".
func StatusLabel(s Status, rmssd int) string {
	return fmt.Sprintf("Status: %s (RMSSD≈%d ms)", s, rmssd)
}

// StatusFor is a convenience over the default thresholds.
func StatusFor(rmssd int) Status {
	return NewClassifier(DefaultThresholds()).Status(rmssd)
}

// StateTagFor is a convenience over the default thresholds.
func StateTagFor(rmssd int) StateTag {
	return NewClassifier(DefaultThresholds()).StateTag(rmssd)
}

// #endregion label
