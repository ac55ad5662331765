package signals

import "time"

// #region source

// Source names where a calmness reading came from.
type Source string

const (
	SourceSlider Source = "slider" // clinician dragging the simulator
	SourceSensor Source = "sensor" // streamed from a device over the sensor socket
	SourceReplay Source = "replay"
)

// #endregion source

// #region config

// ProducerConfig holds the linear calmness→RMSSD proxy parameters.
type ProducerConfig struct {
	FloorRMSSD int // RMSSD at calmness 0
	SpanRMSSD  int // RMSSD gained between calmness 0 and 100
}

// DefaultProducerConfig maps calmness 0..100 onto roughly 10..80 ms.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		FloorRMSSD: 10,
		SpanRMSSD:  70,
	}
}

// #endregion config

// #region reading

// Reading is a single calmness sample.
type Reading struct {
	Calmness int
	Source   Source
	At       time.Time
}

// Signals is what the producer derives from a reading.
type Signals struct {
	Calmness int    `json:"calmness"` // clamped into [0,100]
	RMSSD    int    `json:"rmssd"`
	Source   Source `json:"source,omitempty"`
	Clamped  bool   `json:"clamped,omitempty"` // input was outside [0,100]
}

// #endregion reading
