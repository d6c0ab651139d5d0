package psk

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	want := []byte("0123456789abcdef")
	for _, in := range []string{"MDEyMzQ1Njc4OWFiY2RlZg==", "  MDEyMzQ1Njc4OWFiY2RlZg==\n", "MDEyMzQ1Njc4OWFiY2RlZg"} {
		got, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Decode(%q) = %q", in, got)
		}
	}
	if got, err := Decode("   "); err != nil || got != nil {
		t.Fatalf("empty: got %q, %v", got, err)
	}
	if _, err := Decode("not*base64!"); !errors.Is(err, ErrInvalidPSK) {
		t.Fatalf("expected ErrInvalidPSK, got %v", err)
	}
}

type recorder struct {
	mu  sync.Mutex
	got []string
	ch  chan string
}

func newRecorder() *recorder { return &recorder{ch: make(chan string, 16)} }

func (r *recorder) record(s string) {
	r.mu.Lock()
	r.got = append(r.got, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *recorder) wait(t *testing.T) string {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a change")
		return ""
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestValueDebouncesBursts(t *testing.T) {
	v := NewValue("", 30*time.Millisecond)
	defer v.Close()
	r := newRecorder()
	v.OnChange(r.record)

	v.Set("a")
	v.Set("ab")
	v.Set("abc")
	if got := r.wait(t); got != "abc" {
		t.Fatalf("expected the last value, got %q", got)
	}
	time.Sleep(60 * time.Millisecond)
	if n := r.count(); n != 1 {
		t.Fatalf("expected one notification, got %d", n)
	}
	if got := v.Current(); got != "abc" {
		t.Fatalf("Current() = %q", got)
	}
}

func TestValueDeduplicates(t *testing.T) {
	v := NewValue("same", 0)
	r := newRecorder()
	stop := v.OnChange(r.record)

	v.Set("same")
	v.Set("other")
	if got := r.wait(t); got != "other" {
		t.Fatalf("got %q", got)
	}
	v.Set("other")
	if n := r.count(); n != 1 {
		t.Fatalf("expected duplicates to be dropped, got %d notifications", n)
	}

	stop()
	v.Set("third")
	if n := r.count(); n != 1 {
		t.Fatalf("expected no notification after stop, got %d", n)
	}
}

func TestStaticNeverChanges(t *testing.T) {
	var s Source = Static("c2VjcmV0")
	stop := s.OnChange(func(string) { t.Fatalf("unexpected change") })
	stop()
	if s.Current() != "c2VjcmV0" {
		t.Fatalf("Current() = %q", s.Current())
	}
}

func TestFileSourcePollsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psk")
	if err := os.WriteFile(path, []byte("Zmlyc3Q=\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := NewFileSource(path, 10*time.Millisecond, 0)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	if got := f.Current(); got != "Zmlyc3Q=" {
		t.Fatalf("initial = %q", got)
	}
	r := newRecorder()
	f.OnChange(r.record)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	if err := os.WriteFile(path, []byte("c2Vjb25k"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := r.wait(t); got != "c2Vjb25k" {
		t.Fatalf("got %q", got)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if got := r.wait(t); got != "" {
		t.Fatalf("expected empty after removal, got %q", got)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}
