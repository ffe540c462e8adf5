package logging

import (
	"context"
	"testing"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := TraceIDFromContext(ctx); got != "" {
		t.Errorf("empty context returned trace ID %q", got)
	}

	ctx = WithTraceID(ctx, "trace-123")
	if got := TraceIDFromContext(ctx); got != "trace-123" {
		t.Errorf("trace ID = %q", got)
	}
}

func TestWithTraceIDEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	if WithTraceID(ctx, "") != ctx {
		t.Error("empty trace ID should not wrap the context")
	}
}

func TestNewTraceIDUnique(t *testing.T) {
	a, b := NewTraceID(), NewTraceID()
	if a == "" || a == b {
		t.Errorf("trace IDs not unique: %q, %q", a, b)
	}
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	logger := New("test", "not-a-level", "json")
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	logger.Infof("level fallback works")
}
