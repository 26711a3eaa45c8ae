package lockedfund

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/modules/lockedfund/datagateway"
	"github.com/origins-network/sale-engine/modules/lockedfund/internal/entity"
	"github.com/origins-network/sale-engine/modules/lockedfund/internal/validator"
)

// Engine is the programmatic deposit surface of the locked fund. The sale
// engine drives it when a tier's transfer type routes purchased tokens
// through locking. Signed administrative and withdrawal operations go through
// the Processor instead.
type Engine struct {
	fundDg datagateway.LockedFundDataGateway
	now    func() time.Time
}

func NewEngine(fundDg datagateway.LockedFundDataGateway) *Engine {
	return &Engine{
		fundDg: fundDg,
		now:    time.Now,
	}
}

// SetClock replaces the engine's time source. Simulations pin it to the
// sequencer clock.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Begin opens a deposit session backed by a storage transaction. Deposits
// become visible only on Commit.
func (e *Engine) Begin(ctx context.Context) (*Session, error) {
	qtx, err := e.fundDg.BeginLockedFundTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return &Session{
		qtx: qtx,
		now: e.now,
	}, nil
}

type Session struct {
	qtx datagateway.LockedFundDataGatewayWithTx
	now func() time.Time
}

func (s *Session) DepositWaitedUnlocked(ctx context.Context, wallet string, amount uint128.Uint128, immediateBP uint16, sourceRef string) error {
	v := validator.New()
	if !v.DepositValid(wallet, amount, immediateBP, false, 0) {
		return errors.Wrap(errs.InvalidArgument, v.Reason)
	}
	now := s.now()
	_, err := s.qtx.CreateLock(ctx, entity.LockRecord{
		Beneficiary: wallet,
		Kind:        entity.LockWaitedUnlocked,
		Principal:   amount,
		UnlockBP:    immediateBP,
		StartAt:     now,
		SourceRef:   sourceRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create lock")
	}
	return nil
}

func (s *Session) DepositVested(ctx context.Context, wallet string, amount uint128.Uint128, immediateBP uint16, cliff, duration time.Duration, sourceRef string) error {
	v := validator.New()
	if !v.DepositValid(wallet, amount, immediateBP, true, duration) {
		return errors.Wrap(errs.InvalidArgument, v.Reason)
	}
	now := s.now()
	_, err := s.qtx.CreateLock(ctx, entity.LockRecord{
		Beneficiary: wallet,
		Kind:        entity.LockVested,
		Principal:   amount,
		UnlockBP:    immediateBP,
		Cliff:       cliff,
		Duration:    duration,
		StartAt:     now,
		SourceRef:   sourceRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create lock")
	}
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	return errors.WithStack(s.qtx.Commit(ctx))
}

func (s *Session) Rollback(ctx context.Context) error {
	return errors.WithStack(s.qtx.Rollback(ctx))
}
