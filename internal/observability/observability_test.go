package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "json", false},
		{"DEBUG", "console", false},
		{"warn", "", false},
		{"loud", "json", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		logger, err := NewLogger(tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Fatalf("NewLogger(%q, %q) err = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
		}
		if err == nil && logger == nil {
			t.Fatalf("NewLogger(%q, %q) returned nil logger", tt.level, tt.format)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	logger, err := NewLogger("warn", "json")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("warn should be enabled at warn level")
	}
}

func TestLoggerFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	LoggerFromContext(context.Background(), base).Info("no id")
	LoggerFromContext(WithRequestID(context.Background(), "req-1"), base).Info("with id")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["request_id"]; ok {
		t.Fatal("expected no request_id on first entry")
	}
	if got := entries[1].ContextMap()["request_id"]; got != "req-1" {
		t.Fatalf("expected request_id req-1, got %v", got)
	}
}

func TestLoggerFromContextNilBase(t *testing.T) {
	if LoggerFromContext(context.Background(), nil) == nil {
		t.Fatal("expected a nop logger")
	}
}

func TestRequestID(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
	if got := RequestID(WithRequestID(context.Background(), "abc")); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

func TestSetupTracing_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "test-service", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupTracing_CreatesProviderWhenEndpointSet(t *testing.T) {
	// non-routable address so nothing is exported
	shutdown, err := SetupTracing(context.Background(), "test-service", "http://192.0.2.1:4318")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
