package processor

import (
	"context"
	"math/big"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	adminvalidator "github.com/origins-network/sale-engine/modules/sale/internal/validator/admin"
	"github.com/origins-network/sale-engine/modules/sale/protocol"
)

// CreateTiers creates one or more tiers in a single owner-signed batch. The
// batch is atomic; one bad config rejects the whole payload.
func (p *Processor) CreateTiers(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) ([]uint64, error) {
	v := adminvalidator.New()
	v.VerifySignature(env)
	if _, err := v.HasRole(ctx, p.saleDg, env.Pubkey, entity.RoleOwner); err != nil {
		return nil, errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return nil, rejection(&v.Validator)
	}

	var payload protocol.CreateTierPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return nil, err
	}
	if len(payload.Tiers) == 0 {
		v.Valid = false
		v.Reason = adminvalidator.EMPTY_BATCH
		return nil, rejection(&v.Validator)
	}
	for i := range payload.Tiers {
		if !v.TierConfigValid(&payload.Tiers[i]) {
			return nil, rejection(&v.Validator)
		}
	}

	qtx, err := p.saleDg.BeginSaleTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	ids := make([]uint64, 0, len(payload.Tiers))
	for i := range payload.Tiers {
		cfg := &payload.Tiers[i]
		tier := entity.Tier{
			InitialAllocation: cfg.InitialAllocation,
			RemainingTokens:   cfg.InitialAllocation,
			DepositAsset:      entity.DepositAssetNative,
			CreatedAt:         slot.Time,
			UpdatedAt:         slot.Time,
		}
		cfg.Apply(&tier)
		id, err := qtx.CreateTier(ctx, tier)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create tier")
		}
		ids = append(ids, id)
		if err := qtx.AddEvent(ctx, entity.Event{
			Seq:       slot.Seq,
			Kind:      entity.EventTierCreated,
			TierID:    &id,
			Timestamp: slot.Time,
		}); err != nil {
			return nil, errors.Wrap(err, "failed to insert event")
		}
	}
	if err := qtx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return ids, nil
}

// EditTier replaces a tier's configuration. Counters are preserved; raising
// or lowering the allocation adjusts the remaining supply against tokens
// already sold.
func (p *Processor) EditTier(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := adminvalidator.New()
	v.VerifySignature(env)
	if _, err := v.HasRole(ctx, p.saleDg, env.Pubkey, entity.RoleOwner); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(&v.Validator)
	}

	var payload protocol.EditTierPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}
	if !v.TierConfigValid(&payload.Config) {
		return rejection(&v.Validator)
	}

	qtx, err := p.saleDg.BeginSaleTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	_, tier, err := v.TierExists(ctx, qtx, payload.TierID)
	if err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	v.TierNotClosed(tier)
	if !v.Valid {
		return rejection(&v.Validator)
	}

	if payload.Config.InitialAllocation.Cmp(tier.InitialAllocation) != 0 {
		if payload.Config.InitialAllocation.Cmp(tier.TotalSold) < 0 {
			v.Valid = false
			v.Reason = adminvalidator.ALLOCATION_BELOW_SOLD
			return rejection(&v.Validator)
		}
		tier.InitialAllocation = payload.Config.InitialAllocation
		tier.RemainingTokens = payload.Config.InitialAllocation.Sub(tier.TotalSold)
	}
	payload.Config.Apply(tier)
	tier.UpdatedAt = slot.Time
	if err := qtx.UpdateTier(ctx, *tier); err != nil {
		return errors.Wrap(err, "failed to update tier")
	}
	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:       slot.Seq,
		Kind:      entity.EventTierEdited,
		TierID:    &tier.ID,
		Timestamp: slot.Time,
	}); err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// SetTierDeposit configures where a tier's collected deposits are routed and
// which asset the tier accepts.
func (p *Processor) SetTierDeposit(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := adminvalidator.New()
	v.VerifySignature(env)
	if _, err := v.HasRole(ctx, p.saleDg, env.Pubkey, entity.RoleOwner); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(&v.Validator)
	}

	var payload protocol.SetTierDepositPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}

	qtx, err := p.saleDg.BeginSaleTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	_, tier, err := v.TierExists(ctx, qtx, payload.TierID)
	if err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(&v.Validator)
	}

	if payload.DepositAsset != "" {
		tier.DepositAsset = payload.DepositAsset
	}
	tier.DepositAddress = payload.DepositAddress
	tier.UpdatedAt = slot.Time
	if err := qtx.UpdateTier(ctx, *tier); err != nil {
		return errors.Wrap(err, "failed to update tier")
	}
	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:       slot.Seq,
		Kind:      entity.EventTierEdited,
		TierID:    &tier.ID,
		Timestamp: slot.Time,
	}); err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// SetStakeCondition attaches the by-stake eligibility bounds and checkpoints
// to a tier.
func (p *Processor) SetStakeCondition(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := adminvalidator.New()
	v.VerifySignature(env)
	if _, err := v.HasRole(ctx, p.saleDg, env.Pubkey, entity.RoleOwner); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(&v.Validator)
	}

	var payload protocol.SetStakeConditionPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}
	if len(payload.BlockNumbers) == 0 && len(payload.Timestamps) == 0 {
		v.Valid = false
		v.Reason = adminvalidator.NO_CHECKPOINTS
		return rejection(&v.Validator)
	}
	if !payload.MaxStake.IsZero() && payload.MinStake.Cmp(payload.MaxStake) > 0 {
		v.Valid = false
		v.Reason = adminvalidator.INVALID_STAKE_BOUNDS
		return rejection(&v.Validator)
	}

	qtx, err := p.saleDg.BeginSaleTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	_, tier, err := v.TierExists(ctx, qtx, payload.TierID)
	if err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(&v.Validator)
	}

	if err := qtx.SetStakeCondition(ctx, entity.StakeCondition{
		TierID:       tier.ID,
		MinStake:     payload.MinStake,
		MaxStake:     payload.MaxStake,
		StakingRef:   payload.StakingRef,
		BlockNumbers: payload.BlockNumbers,
		Timestamps:   payload.Timestamps,
	}); err != nil {
		return errors.Wrap(err, "failed to set stake condition")
	}
	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:       slot.Seq,
		Kind:      entity.EventStakeConditionSet,
		TierID:    &tier.ID,
		Timestamp: slot.Time,
	}); err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// CloseTierEarly ends a tier's sale window immediately.
func (p *Processor) CloseTierEarly(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := adminvalidator.New()
	v.VerifySignature(env)
	if _, err := v.HasRole(ctx, p.saleDg, env.Pubkey, entity.RoleOwner); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(&v.Validator)
	}

	var payload protocol.CloseTierPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}

	qtx, err := p.saleDg.BeginSaleTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	_, tier, err := v.TierExists(ctx, qtx, payload.TierID)
	if err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	v.TierNotClosed(tier)
	if !v.Valid {
		return rejection(&v.Validator)
	}

	tier.Closed = true
	tier.UpdatedAt = slot.Time
	if err := qtx.UpdateTier(ctx, *tier); err != nil {
		return errors.Wrap(err, "failed to update tier")
	}
	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:       slot.Seq,
		Kind:      entity.EventTierClosed,
		TierID:    &tier.ID,
		Timestamp: slot.Time,
	}); err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// addUint128 adds through big.Int. Callers keep counters within range.
func addUint128(a, b uint128.Uint128) uint128.Uint128 {
	return utils.Must(uint128.FromBig(new(big.Int).Add(a.Big(), b.Big())))
}
