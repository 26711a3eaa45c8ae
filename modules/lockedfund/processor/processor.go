package processor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/common"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/lockedfund/datagateway"
	"github.com/origins-network/sale-engine/modules/lockedfund/internal/entity"
	"github.com/origins-network/sale-engine/modules/lockedfund/internal/validator"
	"github.com/origins-network/sale-engine/modules/lockedfund/protocol"
)

// Processor applies the signed locked-fund operations.
type Processor struct {
	fundDg       datagateway.LockedFundDataGateway
	network      common.Network
	cleanupFuncs []func(context.Context) error
}

func NewProcessor(fundDg datagateway.LockedFundDataGateway, network common.Network, cleanupFuncs []func(context.Context) error) *Processor {
	return &Processor{
		fundDg:       fundDg,
		network:      network,
		cleanupFuncs: cleanupFuncs,
	}
}

// pubkeyToAddress derives the beneficiary wallet address from a compressed
// public key, matching the sale engine's derivation.
func (p *Processor) pubkeyToAddress(pubkey string) (string, error) {
	pubKeyBytes, err := hex.DecodeString(pubkey)
	if err != nil {
		return "", errors.Wrap(err, "cannot decode hexstring")
	}
	addr, err := btcutil.NewAddressPubKey(pubKeyBytes, p.network.ChainParams())
	if err != nil {
		return "", errors.Wrap(err, "cannot derive address from public key")
	}
	return addr.AddressPubKeyHash().EncodeAddress(), nil
}

// EnsureAdmin seeds the initial admin on startup. Re-running with the same
// pubkey is a no-op.
func (p *Processor) EnsureAdmin(ctx context.Context, adminPubkey string) error {
	if adminPubkey == "" {
		return errors.Wrap(errs.InvalidArgument, "admin pubkey is required")
	}
	admin, err := p.fundDg.IsAdmin(ctx, adminPubkey)
	if err != nil {
		return errors.Wrap(err, "failed to check admin")
	}
	if admin {
		return nil
	}
	if err := p.fundDg.AddAdmin(ctx, entity.AdminEntry{Pubkey: adminPubkey}); err != nil {
		return errors.Wrap(err, "failed to add admin")
	}
	return nil
}

func (p *Processor) Shutdown(ctx context.Context) error {
	for _, cleanupFunc := range p.cleanupFuncs {
		err := cleanupFunc(ctx)
		if err != nil {
			return errors.Wrap(err, "cleanup function error")
		}
	}
	return nil
}

func rejection(v *validator.Validator) error {
	return errs.NewPublicError(v.Reason)
}

func unmarshalPayload(env *protocol.Envelope, out any) error {
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return errs.NewPublicError("malformed payload")
	}
	return nil
}

// AddAdmin grants fund administration to a public key. Admin signed.
func (p *Processor) AddAdmin(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := validator.New()
	v.VerifySignature(env)
	if _, err := v.IsAdmin(ctx, p.fundDg, env.Pubkey); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(v)
	}

	var payload protocol.AddAdminPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}
	if !v.ValidPubkey(payload.AdminPubkey) {
		return rejection(v)
	}

	qtx, err := p.fundDg.BeginLockedFundTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	if err := qtx.AddAdmin(ctx, entity.AdminEntry{
		Pubkey:  payload.AdminPubkey,
		AddedAt: slot.Time,
	}); err != nil {
		return errors.Wrap(err, "failed to add admin")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// RemoveAdmin revokes fund administration. The admin set can never become
// empty; removing the last admin is rejected.
func (p *Processor) RemoveAdmin(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := validator.New()
	v.VerifySignature(env)
	if _, err := v.IsAdmin(ctx, p.fundDg, env.Pubkey); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(v)
	}

	var payload protocol.RemoveAdminPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}

	qtx, err := p.fundDg.BeginLockedFundTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	target, err := qtx.IsAdmin(ctx, payload.AdminPubkey)
	if err != nil {
		return errors.Wrap(err, "failed to check admin")
	}
	if !target {
		v.Valid = false
		v.Reason = validator.ADMIN_NOT_FOUND
		return rejection(v)
	}
	count, err := qtx.CountAdmins(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to count admins")
	}
	if count <= 1 {
		v.Valid = false
		v.Reason = validator.CANNOT_REMOVE_LAST
		return rejection(v)
	}

	if err := qtx.RemoveAdmin(ctx, payload.AdminPubkey); err != nil {
		return errors.Wrap(err, "failed to remove admin")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// ChangeVestingRegistry points the fund at a new vesting registry reference.
func (p *Processor) ChangeVestingRegistry(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := validator.New()
	v.VerifySignature(env)
	if _, err := v.IsAdmin(ctx, p.fundDg, env.Pubkey); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(v)
	}

	var payload protocol.ChangeVestingRegistryPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}
	if payload.VestingRegistry == "" {
		v.Valid = false
		v.Reason = validator.REGISTRY_EMPTY
		return rejection(v)
	}

	return p.updateConfig(ctx, slot, func(config *entity.FundConfig) {
		config.VestingRegistry = payload.VestingRegistry
	})
}

// ChangeWaitedTimestamp sets the release time for waited-unlocked locks.
func (p *Processor) ChangeWaitedTimestamp(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := validator.New()
	v.VerifySignature(env)
	if _, err := v.IsAdmin(ctx, p.fundDg, env.Pubkey); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(v)
	}

	var payload protocol.ChangeWaitedTimestampPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}
	if payload.WaitedTimestamp.IsZero() {
		v.Valid = false
		v.Reason = validator.TIMESTAMP_ZERO
		return rejection(v)
	}

	return p.updateConfig(ctx, slot, func(config *entity.FundConfig) {
		config.WaitedTimestamp = payload.WaitedTimestamp
	})
}

func (p *Processor) updateConfig(ctx context.Context, slot sequencer.Slot, apply func(*entity.FundConfig)) error {
	qtx, err := p.fundDg.BeginLockedFundTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	config, err := qtx.GetConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get config")
	}
	if config == nil {
		config = &entity.FundConfig{}
	}
	apply(config)
	config.UpdatedAt = slot.Time
	if err := qtx.SetConfig(ctx, *config); err != nil {
		return errors.Wrap(err, "failed to set config")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// DepositWaitedUnlocked is the signed variant of the programmatic deposit,
// available to fund admins.
func (p *Processor) DepositWaitedUnlocked(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := validator.New()
	v.VerifySignature(env)
	if _, err := v.IsAdmin(ctx, p.fundDg, env.Pubkey); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(v)
	}

	var payload protocol.DepositWaitedUnlockedPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}
	if !v.DepositValid(payload.Beneficiary, payload.Amount, payload.UnlockBP, false, 0) {
		return rejection(v)
	}

	return p.createLock(ctx, slot, entity.LockRecord{
		Beneficiary: payload.Beneficiary,
		Kind:        entity.LockWaitedUnlocked,
		Principal:   payload.Amount,
		UnlockBP:    payload.UnlockBP,
		SourceRef:   payload.SourceRef,
	})
}

// DepositVested is the signed variant of the programmatic vested deposit.
func (p *Processor) DepositVested(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := validator.New()
	v.VerifySignature(env)
	if _, err := v.IsAdmin(ctx, p.fundDg, env.Pubkey); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(v)
	}

	var payload protocol.DepositVestedPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}
	if !v.DepositValid(payload.Beneficiary, payload.Amount, payload.UnlockBP, true, payload.Duration) {
		return rejection(v)
	}

	return p.createLock(ctx, slot, entity.LockRecord{
		Beneficiary: payload.Beneficiary,
		Kind:        entity.LockVested,
		Principal:   payload.Amount,
		UnlockBP:    payload.UnlockBP,
		Cliff:       payload.Cliff,
		Duration:    payload.Duration,
		SourceRef:   payload.SourceRef,
	})
}

func (p *Processor) createLock(ctx context.Context, slot sequencer.Slot, lock entity.LockRecord) error {
	qtx, err := p.fundDg.BeginLockedFundTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	lock.StartAt = slot.Time
	lock.CreatedAt = slot.Time
	lock.UpdatedAt = slot.Time
	if _, err := qtx.CreateLock(ctx, lock); err != nil {
		return errors.Wrap(err, "failed to create lock")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

type WithdrawResult struct {
	Beneficiary string          `json:"beneficiary"`
	Amount      uint128.Uint128 `json:"amount"`
	LocksClosed int             `json:"locks_closed"`
}

// Withdraw claims everything released to date across the beneficiary's
// locks. Fully consumed locks are deleted.
func (p *Processor) Withdraw(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) (*WithdrawResult, error) {
	v := validator.New()
	v.VerifySignature(env)
	if !v.Valid {
		return nil, rejection(v)
	}
	beneficiary, err := p.pubkeyToAddress(env.Pubkey)
	if err != nil {
		return nil, errs.NewPublicError("cannot derive wallet address from public key")
	}

	qtx, err := p.fundDg.BeginLockedFundTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	config, err := qtx.GetConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get config")
	}
	waitedAt := time.Time{}
	if config != nil {
		waitedAt = config.WaitedTimestamp
	}

	locks, err := qtx.GetLocksByBeneficiary(ctx, beneficiary)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get locks")
	}

	total := uint128.Uint128{}
	closed := 0
	for i := range locks {
		lock := &locks[i]
		withdrawable := lock.Withdrawable(slot.Time, waitedAt)
		if withdrawable.IsZero() {
			continue
		}
		total = total.Add(withdrawable)
		lock.Withdrawn = lock.Withdrawn.Add(withdrawable)
		lock.UpdatedAt = slot.Time
		if lock.Exhausted() {
			if err := qtx.DeleteLock(ctx, lock.ID); err != nil {
				return nil, errors.Wrap(err, "failed to delete lock")
			}
			closed++
			continue
		}
		if err := qtx.UpdateLock(ctx, *lock); err != nil {
			return nil, errors.Wrap(err, "failed to update lock")
		}
	}
	if total.IsZero() {
		v.Valid = false
		v.Reason = validator.NOTHING_TO_WITHDRAW
		return nil, rejection(v)
	}

	if err := qtx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return &WithdrawResult{
		Beneficiary: beneficiary,
		Amount:      total,
		LocksClosed: closed,
	}, nil
}
