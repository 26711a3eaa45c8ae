package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/pkg/logger"
	"github.com/origins-network/sale-engine/pkg/logger/slogx"
)

const defaultBufferSize = 256

// Slot identifies an operation's position in the globally ordered log.
// Every accepted operation is stamped with a strictly increasing sequence
// number and the wall-clock time at which it entered the log.
type Slot struct {
	Seq  uint64
	Time time.Time
}

// ApplyFunc applies one operation against storage. It must either fully apply
// its effects or leave no observable mutation behind (rollback on any error).
type ApplyFunc func(ctx context.Context, slot Slot) (any, error)

type submission struct {
	kind  string
	apply ApplyFunc
	resp  chan response
}

type response struct {
	result any
	err    error
}

// Sequencer serializes all mutating operations into a single ordered stream,
// the off-chain stand-in for a consensus-ordered transaction log. Operations
// are applied one at a time; there is no interleaving between operations.
type Sequencer struct {
	ops chan *submission
	seq uint64
	now func() time.Time

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

func New() *Sequencer {
	return &Sequencer{
		ops:  make(chan *submission, defaultBufferSize),
		now:  time.Now,
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// SetClock overrides the time source used to stamp accepted operations.
// Intended for deterministic simulation and tests.
func (s *Sequencer) SetClock(now func() time.Time) {
	s.now = now
}

// Submit appends an operation to the ordered log and blocks until it has been
// applied (or rejected). The returned error is the operation's own failure,
// already safe to surface to the submitter.
func (s *Sequencer) Submit(ctx context.Context, kind string, apply ApplyFunc) (any, error) {
	sub := &submission{
		kind:  kind,
		apply: apply,
		resp:  make(chan response, 1),
	}

	select {
	case s.ops <- sub:
	case <-s.quit:
		return nil, errors.Wrap(errs.Closed, "sequencer is shutting down")
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "submit canceled")
	}

	select {
	case resp := <-sub.resp:
		return resp.result, resp.err
	case <-s.done:
		// drain may have applied the operation right before stopping
		select {
		case resp := <-sub.resp:
			return resp.result, resp.err
		default:
			return nil, errors.Wrap(errs.Closed, "sequencer stopped before operation was applied")
		}
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "wait for operation result canceled")
	}
}

func (s *Sequencer) Shutdown() error {
	return s.ShutdownWithContext(context.Background())
}

func (s *Sequencer) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.ShutdownWithContext(ctx)
}

func (s *Sequencer) ShutdownWithContext(ctx context.Context) (err error) {
	s.quitOnce.Do(func() {
		close(s.quit)
		select {
		case <-s.done:
		case <-ctx.Done():
			err = errors.Wrap(errs.Timeout, "sequencer shutdown timeout")
		}
	})
	return
}

// Run drains the operation stream until the context is canceled or Shutdown
// is called. Buffered operations are applied before stopping so accepted
// submissions are never silently dropped.
func (s *Sequencer) Run(ctx context.Context) error {
	defer close(s.done)

	ctx = logger.WithContext(ctx, slogx.String("package", "sequencer"))
	logger.InfoContext(ctx, "Sequencer started")

	for {
		select {
		case <-s.quit:
			s.drain(ctx)
			logger.InfoContext(ctx, "Got quit signal, stopping sequencer")
			return nil
		case <-ctx.Done():
			return nil
		case sub := <-s.ops:
			s.applyOne(ctx, sub)
		}
	}
}

func (s *Sequencer) drain(ctx context.Context) {
	for {
		select {
		case sub := <-s.ops:
			s.applyOne(ctx, sub)
		default:
			return
		}
	}
}

func (s *Sequencer) applyOne(ctx context.Context, sub *submission) {
	s.seq++
	slot := Slot{
		Seq:  s.seq,
		Time: s.now(),
	}

	start := time.Now()
	result, err := sub.apply(ctx, slot)
	if err != nil {
		logger.DebugContext(ctx, "Operation rejected",
			slogx.String("kind", sub.kind),
			slogx.Uint64("seq", slot.Seq),
			slogx.Error(err),
		)
	} else {
		logger.DebugContext(ctx, "Operation applied",
			slogx.String("kind", sub.kind),
			slogx.Uint64("seq", slot.Seq),
			slogx.Duration("duration", time.Since(start)),
		)
	}

	sub.resp <- response{result: result, err: err}
}
