package signals

import "math"

const (
	MinCalmness = 0
	MaxCalmness = 100
)

// #region rmssd

// RMSSDFromCalmness returns round(10 + calmness/100*70), an integer in [10,80]
// for calmness in [0,100].
func RMSSDFromCalmness(calmness int) int {
	return rmssd(calmness, DefaultProducerConfig())
}

func rmssd(calmness int, config ProducerConfig) int {
	v := float64(config.FloorRMSSD) + (float64(calmness)/MaxCalmness)*float64(config.SpanRMSSD)
	return int(math.Round(v))
}

// #endregion rmssd

// #region producer

// Producer turns calmness readings into the HRV proxy.
type Producer struct {
	config ProducerConfig
}

// NewProducer creates a Producer with the given proxy parameters.
func NewProducer(config ProducerConfig) *Producer {
	return &Producer{config: config}
}

// Produce clamps the reading into [0,100] and derives the RMSSD proxy.
func (p *Producer) Produce(r Reading) Signals {
	c := ClampCalmness(r.Calmness)
	return Signals{
		Calmness: c,
		RMSSD:    rmssd(c, p.config),
		Source:   r.Source,
		Clamped:  c != r.Calmness,
	}
}

// #endregion producer

// #region helpers

// ClampCalmness restricts v to [0, 100].
func ClampCalmness(v int) int {
	if v < MinCalmness {
		return MinCalmness
	}
	if v > MaxCalmness {
		return MaxCalmness
	}
	return v
}

// #endregion helpers
