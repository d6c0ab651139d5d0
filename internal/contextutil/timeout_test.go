package contextutil

import (
	"context"
	"testing"
	"time"
)

func TestWithTimeoutNilParentWithoutTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(nil, 0)
	t.Cleanup(cancel)
	if ctx == nil {
		t.Fatalf("expected non-nil context")
	}
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("expected no deadline")
	}
}

func TestWithTimeoutSetsDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Fatalf("expected a deadline")
	}
	cancel()
	if got := ctx.Err(); got != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", got)
	}
}
