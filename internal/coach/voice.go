package coach

import "math"

const (
	DefaultVoiceRate     = 0.95
	DefaultVoicePitch    = 1.0
	DefaultVoiceLanguage = "en-US"

	MinVoiceRate  = 0.6
	MaxVoiceRate  = 1.3
	VoiceRateStep = 0.1
)

// Voice holds the text-to-speech preferences of a session.
type Voice struct {
	Enabled  bool    `json:"enabled"`
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
	Language string  `json:"language"`
}

// DefaultVoice is enabled, slightly slow, en-US.
func DefaultVoice() Voice {
	return Voice{
		Enabled:  true,
		Rate:     DefaultVoiceRate,
		Pitch:    DefaultVoicePitch,
		Language: DefaultVoiceLanguage,
	}
}

// Slower lowers the rate by one step, not below MinVoiceRate.
func (v Voice) Slower() Voice {
	v.Rate = clampRate(v.Rate - VoiceRateStep)
	return v
}

// Faster raises the rate by one step, not above MaxVoiceRate.
func (v Voice) Faster() Voice {
	v.Rate = clampRate(v.Rate + VoiceRateStep)
	return v
}

// Toggle flips mute.
func (v Voice) Toggle() Voice {
	v.Enabled = !v.Enabled
	return v
}

// clampRate bounds r and rounds to two decimals so repeated steps do not
// accumulate float error (0.95 - 0.1 == 0.85, not 0.8499999).
func clampRate(r float64) float64 {
	r = math.Round(r*100) / 100
	if r < MinVoiceRate {
		return MinVoiceRate
	}
	if r > MaxVoiceRate {
		return MaxVoiceRate
	}
	return r
}
