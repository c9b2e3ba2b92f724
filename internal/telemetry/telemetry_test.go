package telemetry

import (
	"context"
	"testing"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Init with disabled config failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
	if IsEnabled() {
		t.Error("IsEnabled() = true after disabled Init")
	}
}

func TestStartSpanNoop(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "directory.get_user")
	defer span.End()

	if ctx == nil {
		t.Fatal("StartSpan returned nil context")
	}
	// Without an initialized provider the span is a no-op and carries no trace ID.
	if id := TraceID(ctx); id != "" {
		t.Errorf("TraceID() = %q, want empty for noop span", id)
	}
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("InitProfiling with disabled config failed: %v", err)
	}
	if err := shutdown(); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestInitProfilingInvalidType(t *testing.T) {
	_, err := InitProfiling(ProfilingConfig{
		Enabled:      true,
		ProfileTypes: []string{"bogus"},
	})
	if err == nil {
		t.Error("expected error for invalid profile type")
	}
}
