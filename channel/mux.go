package channel

import (
	"context"
	"sync"

	"github.com/floegence/mediactl/crypto/e2ee"
	"github.com/floegence/mediactl/fserrors"
	"github.com/floegence/mediactl/observability"
	"github.com/floegence/mediactl/protocol"
)

// commandMux is the single ordered outbound queue of one attempt. Only run encrypts
// and writes, so at most one encryption is ever in flight.
type commandMux struct {
	t     e2ee.BinaryTransport
	s     *e2ee.Session
	obs   observability.ChannelObserver
	queue chan protocol.Command

	done      chan struct{}
	closeOnce sync.Once
}

func newCommandMux(t e2ee.BinaryTransport, upload *e2ee.Session, depth int, obs observability.ChannelObserver) *commandMux {
	return &commandMux{
		t:     t,
		s:     upload,
		obs:   obs,
		queue: make(chan protocol.Command, depth),
		done:  make(chan struct{}),
	}
}

// enqueue blocks until c is queued, ctx is done, or the attempt ends.
func (m *commandMux) enqueue(ctx context.Context, c protocol.Command) error {
	select {
	case <-m.done:
		return ErrNotConnected
	default:
	}
	select {
	case m.queue <- c:
		return nil
	case <-m.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// offer queues c without blocking. It reports false if the queue is full or closed.
func (m *commandMux) offer(c protocol.Command) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.queue <- c:
		return true
	default:
		return false
	}
}

// run drains the queue until ctx is done. It returns the first attempt-fatal error.
func (m *commandMux) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-m.queue:
			if err := m.write(ctx, c); err != nil {
				return err
			}
		}
	}
}

func (m *commandMux) write(ctx context.Context, c protocol.Command) error {
	payload, err := protocol.EncodeCommand(c)
	if err != nil {
		return fserrors.Wrap(fserrors.StageSend, fserrors.CodeInvalidInput, err)
	}
	ct, err := m.s.Encrypt(payload)
	if err != nil {
		return fserrors.Wrap(fserrors.StageSecure, fserrors.ClassifySecureCode(err), err)
	}
	if err := m.t.WriteBinary(ctx, ct); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fserrors.Wrap(fserrors.StageTransport, fserrors.ClassifyTransportCode(err), err)
	}
	m.obs.CommandSent(c.String())
	return nil
}

// close fails pending and future enqueues. Queued commands are dropped.
func (m *commandMux) close() {
	m.closeOnce.Do(func() { close(m.done) })
}
