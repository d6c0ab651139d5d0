package observability

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingChannelObserver struct {
	noopChannelObserver
	retries atomic.Int64
}

func (c *countingChannelObserver) Retry(time.Duration) { c.retries.Add(1) }

func TestAtomicChannelObserverSwapsDelegate(t *testing.T) {
	a := NewAtomicChannelObserver()
	a.Retry(time.Second) // noop delegate

	c := &countingChannelObserver{}
	a.Set(c)
	a.Retry(0)
	a.Retry(3 * time.Second)
	if got := c.retries.Load(); got != 2 {
		t.Fatalf("expected 2 retries, got %d", got)
	}

	a.Set(nil)
	a.Retry(0)
	if got := c.retries.Load(); got != 2 {
		t.Fatalf("expected delegate to be detached, got %d", got)
	}
}

func TestAtomicObserversZeroValueUsable(t *testing.T) {
	var a AtomicChannelObserver
	a.State(ChannelStateConnecting)
	var h AtomicHostObserver
	h.ConnCount(1)
}
