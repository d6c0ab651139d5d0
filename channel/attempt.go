package channel

import (
	"context"
	"sync"
	"time"

	"github.com/floegence/mediactl/crypto/e2ee"
	"github.com/floegence/mediactl/fserrors"
	"github.com/floegence/mediactl/internal/contextutil"
	"github.com/floegence/mediactl/observability"
	"github.com/floegence/mediactl/protocol"
	"github.com/google/uuid"
)

// attempt is the state of one established channel that other goroutines may reach.
type attempt struct {
	id         string
	mux        *commandMux
	foreground chan struct{}
}

// runAttempt performs one full attempt: dial, key exchange, then the established
// loop. It returns when the attempt fails or ctx is done, after every goroutine it
// started has exited and the transport is closed.
func (m *Manager) runAttempt(ctx context.Context, key []byte, retry *RetryPolicy) error {
	id := uuid.NewString()
	start := time.Now()
	m.setState(StateConnecting)
	m.log.Debugf("attempt %s: dialing", id)

	dctx, dcancel := contextutil.WithTimeout(ctx, m.cfg.connectTimeout)
	t, err := m.dialer.Dial(dctx)
	dcancel()
	if err != nil {
		return fserrors.Wrap(fserrors.StageConnect, fserrors.ClassifyConnectCode(err), err)
	}

	sessions, err := m.handshake(ctx, id, t, key)
	if err != nil {
		_ = t.Close()
		return err
	}

	retry.Reset()
	m.obs.HandshakeLatency(time.Since(start))
	m.obs.Attempt(observability.AttemptResultOK, observability.AttemptReasonOK)
	m.log.Infof("attempt %s: channel established", id)
	return m.established(ctx, id, t, sessions)
}

func (m *Manager) handshake(ctx context.Context, id string, t e2ee.BinaryTransport, key []byte) (e2ee.Sessions, error) {
	pub, kx, err := e2ee.GenerateKeyExchange(key)
	if err != nil {
		return e2ee.Sessions{}, fserrors.Wrap(fserrors.StageHandshake, fserrors.CodeHandshakeFailed, err)
	}
	hctx, hcancel := contextutil.WithTimeout(ctx, m.cfg.handshakeTimeout)
	defer hcancel()
	if err := t.WriteBinary(hctx, pub); err != nil {
		return e2ee.Sessions{}, fserrors.Wrap(fserrors.StageHandshake, fserrors.ClassifyHandshakeCode(err), err)
	}
	m.setState(StateAwaitingServerMaterial)
	m.log.Debugf("attempt %s: public key sent", id)

	peer, err := t.ReadBinary(hctx)
	if err != nil {
		return e2ee.Sessions{}, fserrors.Wrap(fserrors.StageHandshake, fserrors.ClassifyHandshakeCode(err), err)
	}
	sessions, err := kx.Handshake(peer)
	if err != nil {
		return e2ee.Sessions{}, fserrors.Wrap(fserrors.StageHandshake, fserrors.ClassifyHandshakeCode(err), err)
	}
	return sessions, nil
}

// established is the single owner loop of an established attempt. It alone decrypts,
// drives the heartbeat monitor and dispatches events. A reader goroutine feeds it raw
// frames and the command multiplexer goroutine writes the upload stream.
func (m *Manager) established(ctx context.Context, id string, t e2ee.BinaryTransport, s e2ee.Sessions) error {
	actx, cancel := context.WithCancel(ctx)
	mux := newCommandMux(t, s.Upload, m.cfg.outboundQueue, m.obs)
	a := &attempt{id: id, mux: mux, foreground: make(chan struct{}, 1)}

	frames := make(chan []byte)
	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		readFrames(actx, t, frames, errCh)
	}()
	go func() {
		defer wg.Done()
		if err := mux.run(actx); err != nil {
			errCh <- err
		}
	}()
	defer func() {
		m.uninstall(a)
		cancel()
		_ = t.Close()
		wg.Wait()
		mux.close()
	}()

	m.queueHeartbeat(a, protocol.Heartbeat, observability.HeartbeatReasonInitial)
	m.install(a)
	m.setState(StateEstablished)

	mon := NewHeartbeatMonitor(HeartbeatConfig{
		Idle:               m.cfg.heartbeatIdle,
		Liveness:           m.cfg.livenessTimeout,
		ForegroundThrottle: m.cfg.foregroundThrottle,
	}, time.Now())
	timer := time.NewTimer(m.cfg.livenessTimeout)
	defer timer.Stop()

	for {
		var timerC <-chan time.Time
		if d := mon.Deadline(); !d.IsZero() {
			timer.Reset(time.Until(d))
			timerC = timer.C
		}
		select {
		case <-actx.Done():
			return actx.Err()
		case err := <-errCh:
			return err
		case frame := <-frames:
			pt, err := s.Download.Decrypt(frame)
			if err != nil {
				return fserrors.Wrap(fserrors.StageSecure, fserrors.ClassifySecureCode(err), err)
			}
			ev := protocol.DecodeEvent(pt)
			if mon.Inbound(time.Now(), ev) {
				m.queueHeartbeat(a, protocol.HeartbeatAck, observability.HeartbeatReasonAck)
			}
			m.obs.EventReceived()
			if ev.Error != nil {
				m.obs.PeerError()
				m.log.Warnf("attempt %s: host reported error: %v", id, ev.Error)
			}
			m.disp.Dispatch(ev)
		case <-a.foreground:
			if mon.Foreground(time.Now()) {
				m.queueHeartbeat(a, protocol.Heartbeat, observability.HeartbeatReasonForeground)
			}
		case <-timerC:
			hb, err := mon.Tick(time.Now())
			if err != nil {
				return fserrors.Wrap(fserrors.StageLiveness, fserrors.CodeLivenessTimeout, err)
			}
			if hb {
				m.queueHeartbeat(a, protocol.Heartbeat, observability.HeartbeatReasonIdle)
			}
		}
	}
}

// queueHeartbeat never blocks the owner loop; a full queue already has traffic pending.
func (m *Manager) queueHeartbeat(a *attempt, c protocol.Command, reason observability.HeartbeatReason) {
	if !a.mux.offer(c) {
		m.log.Warnf("attempt %s: outbound queue full, dropping %s", a.id, c)
		return
	}
	m.obs.Heartbeat(reason)
}

func readFrames(ctx context.Context, t e2ee.BinaryTransport, frames chan<- []byte, errCh chan<- error) {
	for {
		b, err := t.ReadBinary(ctx)
		if err != nil {
			if ctx.Err() == nil {
				errCh <- fserrors.Wrap(fserrors.StageTransport, fserrors.ClassifyTransportCode(err), err)
			}
			return
		}
		select {
		case frames <- b:
		case <-ctx.Done():
			return
		}
	}
}
