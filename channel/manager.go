// Package channel maintains the encrypted control channel to a media host.
//
// A Manager watches the PSK source and keeps at most one channel attempt alive:
// dial, key exchange, then an established phase with a heartbeat monitor and a
// single outbound command queue. Any attempt-fatal error tears the attempt down
// and a new one starts after the retry delay.
package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/floegence/mediactl/fserrors"
	"github.com/floegence/mediactl/observability"
	"github.com/floegence/mediactl/protocol"
	"github.com/floegence/mediactl/psk"
	"github.com/pion/logging"
)

// Manager owns the channel lifecycle.
type Manager struct {
	dialer Dialer
	src    PSKSource
	disp   Dispatcher
	cfg    options
	log    logging.LeveledLogger
	obs    observability.ChannelObserver

	state   atomic.Int32
	running atomic.Bool

	mu  sync.Mutex
	cur *attempt // set only while Established
}

// NewManager validates its collaborators and options.
func NewManager(d Dialer, src PSKSource, disp Dispatcher, opts ...Option) (*Manager, error) {
	if d == nil {
		return nil, fserrors.Wrap(fserrors.StageValidate, fserrors.CodeInvalidInput, ErrMissingDialer)
	}
	if src == nil {
		return nil, fserrors.Wrap(fserrors.StageValidate, fserrors.CodeInvalidInput, ErrMissingPSKSource)
	}
	if disp == nil {
		return nil, fserrors.Wrap(fserrors.StageValidate, fserrors.CodeInvalidInput, ErrMissingDispatcher)
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, fserrors.Wrap(fserrors.StageValidate, fserrors.CodeInvalidOption, err)
	}
	return &Manager{
		dialer: d,
		src:    src,
		disp:   disp,
		cfg:    cfg,
		log:    cfg.loggerFactory.NewLogger("channel"),
		obs:    cfg.observer,
	}, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	if State(m.state.Swap(int32(s))) == s {
		return
	}
	m.log.Debugf("state %s", s)
	m.obs.State(s.observed())
}

// Send queues cmd on the established channel. It blocks while the queue is full.
func (m *Manager) Send(ctx context.Context, cmd protocol.Command) error {
	if !cmd.Valid() {
		return fserrors.Wrap(fserrors.StageValidate, fserrors.CodeInvalidInput, protocol.ErrUnknownCommand)
	}
	a := m.current()
	if a == nil {
		return fserrors.Wrap(fserrors.StageSend, fserrors.CodeNotConnected, ErrNotConnected)
	}
	if err := a.mux.enqueue(ctx, cmd); err != nil {
		code := fserrors.CodeNotConnected
		if !errors.Is(err, ErrNotConnected) {
			code = fserrors.ClassifySendCode(err)
		}
		return fserrors.Wrap(fserrors.StageSend, code, err)
	}
	return nil
}

// NotifyForeground reports that the host application became visible again.
// The established channel sends a Heartbeat, at most once per throttle period.
func (m *Manager) NotifyForeground() {
	if a := m.current(); a != nil {
		select {
		case a.foreground <- struct{}{}:
		default:
		}
	}
}

func (m *Manager) current() *attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

func (m *Manager) install(a *attempt) {
	m.mu.Lock()
	m.cur = a
	m.mu.Unlock()
}

func (m *Manager) uninstall(a *attempt) {
	m.mu.Lock()
	if m.cur == a {
		m.cur = nil
	}
	m.mu.Unlock()
}

// Run maintains the channel until ctx is done and returns ctx.Err().
//
// An empty or undecodable PSK leaves the manager Idle until the source changes.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)
	defer m.setState(StateIdle)

	var (
		changeMu sync.Mutex
		last     string
	)
	changes := make(chan string, 1)
	stop := m.src.OnChange(func(s string) {
		changeMu.Lock()
		defer changeMu.Unlock()
		if s == last {
			return
		}
		last = s
		// Latest value wins.
		select {
		case <-changes:
		default:
		}
		changes <- s
	})
	defer stop()

	changeMu.Lock()
	current := m.src.Current()
	last = current
	select {
	case <-changes:
	default:
	}
	changeMu.Unlock()

	for {
		key, err := psk.Decode(current)
		if err != nil {
			m.log.Warnf("ignoring psk: %v", err)
		}
		if len(key) == 0 {
			m.setState(StateIdle)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case current = <-changes:
				continue
			}
		}
		next, err := m.maintain(ctx, key, changes)
		if err != nil {
			return err
		}
		m.log.Info("psk changed, restarting channel")
		current = next
	}
}

// maintain runs attempts under one PSK until the PSK changes or ctx is done.
// No attempt outlives the call.
func (m *Manager) maintain(ctx context.Context, key []byte, changes <-chan string) (string, error) {
	retry := NewRetryPolicy(m.cfg.retryDelay)
	for {
		actx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- m.runAttempt(actx, key, retry) }()

		var err error
		select {
		case err = <-done:
			cancel()
		case next := <-changes:
			cancel()
			<-done
			return next, nil
		case <-ctx.Done():
			cancel()
			<-done
			return "", ctx.Err()
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		m.setState(StateFailed)
		m.obs.Attempt(observability.AttemptResultFail, failReason(err))
		delay := retry.Next()
		m.obs.Retry(delay)
		m.log.Warnf("channel attempt failed (retry in %v): %v", delay, err)

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case next := <-changes:
			t.Stop()
			return next, nil
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		}
	}
}

func failReason(err error) observability.AttemptReason {
	var fe *fserrors.Error
	if errors.As(err, &fe) {
		return observability.AttemptReason(fe.Code)
	}
	return observability.AttemptReason(fserrors.CodeTransportFailed)
}
