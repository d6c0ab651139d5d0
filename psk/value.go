package psk

import (
	"sync"
	"time"
)

// Value is a settable Source. Set calls are debounced, and a value equal to the
// committed one is not reported.
type Value struct {
	debounce time.Duration

	mu      sync.Mutex
	cur     string
	pending string
	timer   *time.Timer
	nextID  int
	subs    map[int]func(string)
	closed  bool
}

// NewValue returns a Value committed to initial. A non-positive debounce commits Set calls immediately.
func NewValue(initial string, debounce time.Duration) *Value {
	return &Value{debounce: debounce, cur: initial, subs: make(map[int]func(string))}
}

func (v *Value) Current() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

func (v *Value) OnChange(fn func(string)) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

// Set proposes s. It is committed once no other Set arrives for the debounce period.
func (v *Value) Set(s string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.pending = s
	if v.debounce <= 0 {
		v.mu.Unlock()
		v.commit()
		return
	}
	if v.timer == nil {
		v.timer = time.AfterFunc(v.debounce, v.commit)
	} else {
		v.timer.Reset(v.debounce)
	}
	v.mu.Unlock()
}

// Close drops any pending Set and stops further notifications.
func (v *Value) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	if v.timer != nil {
		v.timer.Stop()
	}
	v.subs = make(map[int]func(string))
}

func (v *Value) commit() {
	v.mu.Lock()
	if v.closed || v.pending == v.cur {
		v.mu.Unlock()
		return
	}
	v.cur = v.pending
	s := v.cur
	subs := make([]func(string), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}
