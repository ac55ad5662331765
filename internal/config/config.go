// Package config loads calmbridge settings: built-in defaults, then an
// optional YAML file, then CALMBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/signals"
	"github.com/danielpatrickdp/calmbridge/internal/triage"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CALMBRIDGE_"

// Config holds all calmbridge configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	Storage StorageConfig `yaml:"storage"`
	Scripts ScriptsConfig `yaml:"scripts"`
	Coach   CoachConfig   `yaml:"coach"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// HTTPConfig configures the JSON API.
type HTTPConfig struct {
	Addr           string   `yaml:"addr" env:"HTTP_ADDR"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
}

// GRPCConfig configures the gRPC API. An empty address disables it.
type GRPCConfig struct {
	Addr string `yaml:"addr" env:"GRPC_ADDR"`
}

// StorageConfig selects the session database.
type StorageConfig struct {
	Path string `yaml:"path" env:"DB"` // ":memory:" keeps sessions for the process lifetime only
}

// ScriptsConfig selects script libraries.
type ScriptsConfig struct {
	Dir             string `yaml:"dir" env:"SCRIPTS_DIR"` // overrides/extends the bundled libraries
	Watch           bool   `yaml:"watch" env:"SCRIPTS_WATCH"`
	DefaultLanguage string `yaml:"default_language" env:"LANG"`
}

// CoachConfig holds the pipeline tunables and new-session defaults.
type CoachConfig struct {
	FloorRMSSD    int               `yaml:"floor_rmssd" env:"FLOOR_RMSSD"`
	SpanRMSSD     int               `yaml:"span_rmssd" env:"SPAN_RMSSD"`
	Thresholds    triage.Thresholds `yaml:"thresholds" envPrefix:"THRESHOLD_"`
	TargetBPM     float64           `yaml:"target_bpm" env:"TARGET_BPM"`
	StartCalmness int               `yaml:"start_calmness" env:"START_CALMNESS"`
	VoiceEnabled  bool              `yaml:"voice_enabled" env:"VOICE_ENABLED"`
	VoiceRate     float64           `yaml:"voice_rate" env:"VOICE_RATE"`
	VoiceLanguage string            `yaml:"voice_language" env:"VOICE_LANGUAGE"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"` // json | console
}

// TracingConfig configures OpenTelemetry export. An empty endpoint disables it.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	pc := coach.DefaultPipelineConfig()
	st := coach.DefaultSessionState()
	return &Config{
		HTTP: HTTPConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		GRPC:    GRPCConfig{Addr: ":9090"},
		Storage: StorageConfig{Path: ":memory:"},
		Scripts: ScriptsConfig{DefaultLanguage: script.DefaultLanguage},
		Coach: CoachConfig{
			FloorRMSSD:    pc.Producer.FloorRMSSD,
			SpanRMSSD:     pc.Producer.SpanRMSSD,
			Thresholds:    pc.Thresholds,
			TargetBPM:     pc.TargetBPM,
			StartCalmness: st.Calmness,
			VoiceEnabled:  st.Voice.Enabled,
			VoiceRate:     st.Voice.Rate,
			VoiceLanguage: st.Voice.Language,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{ServiceName: "calmbridge"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides sets every field whose CALMBRIDGE_* variable is present.
// Unset variables leave the current value alone.
func (c *Config) applyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	} else if _, _, err := net.SplitHostPort(c.HTTP.Addr); err != nil {
		errs = append(errs, fmt.Errorf("http.addr: %w", err))
	}
	if c.GRPC.Addr != "" {
		if _, _, err := net.SplitHostPort(c.GRPC.Addr); err != nil {
			errs = append(errs, fmt.Errorf("grpc.addr: %w", err))
		}
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required (use :memory: for no persistence)"))
	}

	if c.Coach.SpanRMSSD <= 0 {
		errs = append(errs, fmt.Errorf("coach.span_rmssd must be positive, got %d", c.Coach.SpanRMSSD))
	}
	if c.Coach.FloorRMSSD < 0 {
		errs = append(errs, fmt.Errorf("coach.floor_rmssd must not be negative, got %d", c.Coach.FloorRMSSD))
	}
	if err := c.Coach.Thresholds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("coach.thresholds: %w", err))
	}
	if c.Coach.TargetBPM <= 0 {
		errs = append(errs, fmt.Errorf("coach.target_bpm must be positive, got %v", c.Coach.TargetBPM))
	}
	if c.Coach.StartCalmness < signals.MinCalmness || c.Coach.StartCalmness > signals.MaxCalmness {
		errs = append(errs, fmt.Errorf("coach.start_calmness must be in [%d,%d], got %d",
			signals.MinCalmness, signals.MaxCalmness, c.Coach.StartCalmness))
	}
	if c.Coach.VoiceRate < coach.MinVoiceRate || c.Coach.VoiceRate > coach.MaxVoiceRate {
		errs = append(errs, fmt.Errorf("coach.voice_rate must be in [%v,%v], got %v",
			coach.MinVoiceRate, coach.MaxVoiceRate, c.Coach.VoiceRate))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q: want debug, info, warn or error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want json or console", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// PipelineConfig converts the coach section for coach.NewPipeline.
func (c *Config) PipelineConfig() coach.PipelineConfig {
	return coach.PipelineConfig{
		Producer: signals.ProducerConfig{
			FloorRMSSD: c.Coach.FloorRMSSD,
			SpanRMSSD:  c.Coach.SpanRMSSD,
		},
		Thresholds: c.Coach.Thresholds,
		TargetBPM:  c.Coach.TargetBPM,
	}
}

// InitialState is the state new sessions open with.
func (c *Config) InitialState() coach.SessionState {
	st := coach.DefaultSessionState()
	st.Calmness = c.Coach.StartCalmness
	if c.Scripts.DefaultLanguage != "" {
		st.Language = c.Scripts.DefaultLanguage
	}
	st.Voice.Enabled = c.Coach.VoiceEnabled
	st.Voice.Rate = c.Coach.VoiceRate
	if c.Coach.VoiceLanguage != "" {
		st.Voice.Language = c.Coach.VoiceLanguage
	}
	return st
}
