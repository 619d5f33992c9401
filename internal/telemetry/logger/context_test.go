package logger

import (
	"context"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("from context")

	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should return default logger, got nil")
	}
}

func TestL_AddsCycleID(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	ctx := WithLogger(context.Background(), l)
	ctx = WithCycleID(ctx, "cyc-1")

	if got := CycleIDFromContext(ctx); got != "cyc-1" {
		t.Fatalf("CycleIDFromContext() = %q", got)
	}

	L(ctx).Info("merging")
	if got := decodeEntry(t, buf)["cycle_id"]; got != "cyc-1" {
		t.Errorf("cycle_id = %v, want cyc-1", got)
	}
}

func TestL_WithoutCycleID(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")

	L(WithLogger(context.Background(), l)).Info("idle")
	if _, ok := decodeEntry(t, buf)["cycle_id"]; ok {
		t.Error("cycle_id should be absent")
	}
}
