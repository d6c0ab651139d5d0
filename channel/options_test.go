package channel

import (
	"errors"
	"testing"
	"time"

	"github.com/floegence/mediactl/fserrors"
	"github.com/floegence/mediactl/internal/defaults"
	"github.com/floegence/mediactl/psk"
)

func TestApplyOptionsDefaults(t *testing.T) {
	cfg, err := applyOptions(nil)
	if err != nil {
		t.Fatalf("applyOptions: %v", err)
	}
	if cfg.heartbeatIdle != defaults.HeartbeatIdle || cfg.livenessTimeout != defaults.LivenessTimeout {
		t.Fatalf("unexpected heartbeat defaults: idle=%v liveness=%v", cfg.heartbeatIdle, cfg.livenessTimeout)
	}
	if cfg.retryDelay != 3*time.Second {
		t.Fatalf("retry delay = %v", cfg.retryDelay)
	}
	if cfg.loggerFactory == nil || cfg.observer == nil {
		t.Fatalf("expected logger factory and observer defaults")
	}
}

func TestApplyOptionsScalesIdleToLiveness(t *testing.T) {
	cfg, err := applyOptions([]Option{WithLivenessTimeout(7 * time.Second)})
	if err != nil {
		t.Fatalf("applyOptions: %v", err)
	}
	if cfg.heartbeatIdle != 6*time.Second {
		t.Fatalf("heartbeat idle = %v, want 6s", cfg.heartbeatIdle)
	}
}

func TestApplyOptionsRejectsInvalid(t *testing.T) {
	bad := [][]Option{
		{WithConnectTimeout(-1)},
		{WithHandshakeTimeout(-1)},
		{WithHeartbeatIdle(0)},
		{WithLivenessTimeout(0)},
		{WithRetryDelay(-time.Second)},
		{WithOutboundQueue(0)},
		{WithForegroundThrottle(-1)},
		{WithHeartbeatIdle(time.Minute), WithLivenessTimeout(time.Second)},
	}
	for i, opts := range bad {
		if _, err := applyOptions(opts); err == nil {
			t.Fatalf("case %d: expected an error", i)
		}
	}
}

func TestNewManagerValidates(t *testing.T) {
	d := DialerFunc(nil)
	disp := DispatcherFunc(nil)
	src := psk.Static("")

	var fe *fserrors.Error
	if _, err := NewManager(nil, src, disp); !errors.As(err, &fe) || !errors.Is(err, ErrMissingDialer) {
		t.Fatalf("expected ErrMissingDialer, got %v", err)
	}
	if _, err := NewManager(d, nil, disp); !errors.Is(err, ErrMissingPSKSource) {
		t.Fatalf("expected ErrMissingPSKSource, got %v", err)
	}
	if _, err := NewManager(d, src, nil); !errors.Is(err, ErrMissingDispatcher) {
		t.Fatalf("expected ErrMissingDispatcher, got %v", err)
	}
	if _, err := NewManager(d, src, disp, WithOutboundQueue(-1)); !errors.As(err, &fe) || fe.Code != fserrors.CodeInvalidOption {
		t.Fatalf("expected invalid_option, got %v", err)
	}
}
