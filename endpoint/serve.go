package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/floegence/mediactl/crypto/e2ee"
	"github.com/floegence/mediactl/fserrors"
	"github.com/floegence/mediactl/internal/contextutil"
	"github.com/floegence/mediactl/observability"
	"github.com/floegence/mediactl/protocol"
	"github.com/floegence/mediactl/realtime/ws"
	"github.com/pion/logging"
)

// Serve runs one client session on t until the client goes away, ctx is done, or a
// protocol error occurs. t is closed on return.
func Serve(ctx context.Context, t e2ee.BinaryTransport, host Host, opts Options) error {
	defer t.Close()
	if host == nil {
		return fserrors.Wrap(fserrors.StageValidate, fserrors.CodeInvalidInput, ErrMissingHost)
	}
	if len(opts.PSK) == 0 {
		return fserrors.Wrap(fserrors.StageValidate, fserrors.CodeInvalidPSK, ErrInvalidPSK)
	}
	opts = opts.withDefaults()
	s := &session{
		t:    t,
		host: host,
		opts: opts,
		log:  opts.LoggerFactory.NewLogger("endpoint"),
		obs:  opts.Observer,
	}
	if err := s.accept(ctx); err != nil {
		return err
	}
	return s.run(ctx)
}

type session struct {
	t    e2ee.BinaryTransport
	host Host
	opts Options
	log  logging.LeveledLogger
	obs  observability.HostObserver

	sessions e2ee.Sessions
}

// accept runs the key exchange and requires Heartbeat as the first encrypted message.
func (s *session) accept(ctx context.Context) error {
	hctx, cancel := contextutil.WithTimeout(ctx, s.opts.HandshakeTimeout)
	defer cancel()
	sessions, err := e2ee.Respond(hctx, s.t, s.opts.PSK)
	if err != nil {
		return fserrors.Wrap(fserrors.StageHandshake, fserrors.ClassifyHandshakeCode(err), err)
	}
	s.sessions = sessions

	frame, err := s.t.ReadBinary(hctx)
	if err != nil {
		return fserrors.Wrap(fserrors.StageHandshake, fserrors.ClassifyHandshakeCode(err), err)
	}
	cmd, err := s.decode(frame)
	if err != nil {
		return err
	}
	if cmd != protocol.Heartbeat {
		return fserrors.Wrap(fserrors.StageHandshake, fserrors.CodeProtocolError, ErrExpectedHeartbeat)
	}
	s.obs.CommandReceived(cmd.String())
	if err := s.write(ctx, protocol.Event{HeartbeatAck: true}); err != nil {
		return err
	}
	snap, err := s.host.Snapshot(ctx)
	if err != nil {
		s.log.Warnf("snapshot: %v", err)
		return s.writeError(ctx, "snapshot", err)
	}
	return s.write(ctx, snap)
}

func (s *session) run(ctx context.Context) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			b, err := s.t.ReadBinary(sctx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- b:
			case <-sctx.Done():
				return
			}
		}
	}()
	defer func() {
		cancel()
		_ = s.t.Close()
		wg.Wait()
	}()

	updates := s.host.Subscribe(sctx)
	timer := time.NewTimer(s.opts.IdleHeartbeat)
	defer timer.Stop()
	probing := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fserrors.Wrap(fserrors.StageTransport, fserrors.ClassifyTransportCode(err), err)
		case frame := <-frames:
			probing = false
			timer.Reset(s.opts.IdleHeartbeat)
			cmd, err := s.decode(frame)
			if err != nil {
				if errors.Is(err, protocol.ErrUnknownCommand) {
					if werr := s.writeError(ctx, "decode", err); werr != nil {
						return werr
					}
					continue
				}
				return err
			}
			if err := s.handle(ctx, cmd); err != nil {
				return err
			}
		case ev, ok := <-updates:
			if !ok {
				updates = nil
				s.log.Debugf("%v", ErrSubscriptionClosed)
				continue
			}
			if err := s.write(ctx, ev); err != nil {
				return err
			}
		case <-timer.C:
			if probing {
				return fserrors.Wrap(fserrors.StageLiveness, fserrors.CodeLivenessTimeout, ErrHeartbeatNoReply)
			}
			if err := s.write(ctx, protocol.Event{Heartbeat: true}); err != nil {
				return err
			}
			probing = true
			timer.Reset(s.opts.HeartbeatReplyTimeout)
		}
	}
}

func (s *session) handle(ctx context.Context, cmd protocol.Command) error {
	s.obs.CommandReceived(cmd.String())
	switch cmd {
	case protocol.Heartbeat:
		return s.write(ctx, protocol.Event{HeartbeatAck: true})
	case protocol.HeartbeatAck:
		return nil
	}
	if err := s.host.HandleCommand(ctx, cmd); err != nil {
		s.log.Warnf("command %s: %v", cmd, err)
		return s.writeError(ctx, "command", err)
	}
	if cmd == protocol.TogglePlayPause {
		snap, err := s.host.Snapshot(ctx)
		if err != nil {
			return s.writeError(ctx, "snapshot", err)
		}
		if snap.Timeline != nil {
			return s.write(ctx, protocol.Event{Timeline: snap.Timeline})
		}
	}
	return nil
}

// decode decrypts and parses one client frame. Decrypt failures are fatal; unknown
// commands are returned as protocol.ErrUnknownCommand.
func (s *session) decode(frame []byte) (protocol.Command, error) {
	pt, err := s.sessions.Upload.Decrypt(frame)
	if err != nil {
		return 0, fserrors.Wrap(fserrors.StageSecure, fserrors.ClassifySecureCode(err), err)
	}
	return protocol.DecodeCommand(pt)
}

func (s *session) writeError(ctx context.Context, where string, err error) error {
	return s.write(ctx, protocol.Event{Error: &protocol.ErrorEvent{Context: where, Message: err.Error()}})
}

func (s *session) write(ctx context.Context, ev protocol.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fserrors.Wrap(fserrors.StageSend, fserrors.CodeSendFailed, err)
	}
	ct, err := s.sessions.Download.Encrypt(b)
	if err != nil {
		return fserrors.Wrap(fserrors.StageSecure, fserrors.ClassifySecureCode(err), err)
	}
	if err := s.t.WriteBinary(ctx, ct); err != nil {
		return fserrors.Wrap(fserrors.StageTransport, fserrors.ClassifyTransportCode(err), err)
	}
	return nil
}

// Handler returns an http.HandlerFunc that upgrades to WebSocket and serves one client session per connection.
func Handler(host Host, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	checkOrigin := opts.Upgrader.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = ws.NewOriginChecker(opts.AllowedOrigins, opts.AllowNoOrigin)
	}
	upgrader := ws.UpgraderOptions{
		ReadBufferSize:  opts.Upgrader.ReadBufferSize,
		WriteBufferSize: opts.Upgrader.WriteBufferSize,
		CheckOrigin:     checkOrigin,
	}
	log := opts.LoggerFactory.NewLogger("endpoint")
	var conns atomic.Int64
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := ws.Upgrade(w, r, upgrader)
		if err != nil {
			log.Debugf("upgrade: %v", err)
			return
		}
		c.SetReadLimit(opts.MaxMessageBytes)
		opts.Observer.ConnCount(conns.Add(1))
		defer func() { opts.Observer.ConnCount(conns.Add(-1)) }()

		err = Serve(r.Context(), e2ee.NewWebSocketMessageTransport(c), host, opts)
		result, reason := observability.AttemptResultOK, observability.AttemptReasonOK
		var fe *fserrors.Error
		if errors.As(err, &fe) && fe.Code != fserrors.CodePeerClosed && fe.Code != fserrors.CodeCanceled {
			result, reason = observability.AttemptResultFail, observability.AttemptReason(fe.Code)
			log.Warnf("session from %s ended: %v", r.RemoteAddr, err)
		} else {
			log.Infof("session from %s closed", r.RemoteAddr)
		}
		opts.Observer.Session(result, reason)
	}
}
