package processor

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	adminvalidator "github.com/origins-network/sale-engine/modules/sale/internal/validator/admin"
	"github.com/origins-network/sale-engine/modules/sale/protocol"
)

type WithdrawResult struct {
	TierID         uint64          `json:"tier_id"`
	Amount         uint128.Uint128 `json:"amount"`
	DepositAsset   string          `json:"deposit_asset"`
	DepositAddress string          `json:"deposit_address"`
}

// WithdrawProceeds routes a tier's collected deposits to its configured
// deposit address. It can run once per tier, and only after the sale ended.
func (p *Processor) WithdrawProceeds(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) (*WithdrawResult, error) {
	v := adminvalidator.New()
	v.VerifySignature(env)
	if _, err := v.HasRole(ctx, p.saleDg, env.Pubkey, entity.RoleOwner); err != nil {
		return nil, errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return nil, rejection(&v.Validator)
	}

	var payload protocol.WithdrawProceedsPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return nil, err
	}

	qtx, err := p.saleDg.BeginSaleTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	_, tier, err := v.TierExists(ctx, qtx, payload.TierID)
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to datagateway")
	}
	v.SaleEnded(tier, slot.Time)
	v.NotWithdrawn(tier)
	v.DepositAddressSet(tier)
	if !v.Valid {
		return nil, rejection(&v.Validator)
	}

	amount := tier.TotalDeposited
	tier.Withdrawn = true
	tier.UpdatedAt = slot.Time
	if err := qtx.UpdateTier(ctx, *tier); err != nil {
		return nil, errors.Wrap(err, "failed to update tier")
	}

	metadata, _ := json.Marshal(map[string]any{
		"deposit_asset":   tier.DepositAsset,
		"deposit_address": tier.DepositAddress,
	})
	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:           slot.Seq,
		Kind:          entity.EventProceedsWithdrawal,
		TierID:        &tier.ID,
		DepositAmount: &amount,
		Metadata:      metadata,
		Timestamp:     slot.Time,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to insert event")
	}
	if err := qtx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return &WithdrawResult{
		TierID:         tier.ID,
		Amount:         amount,
		DepositAsset:   tier.DepositAsset,
		DepositAddress: tier.DepositAddress,
	}, nil
}
