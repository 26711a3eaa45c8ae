package processor

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	purchasevalidator "github.com/origins-network/sale-engine/modules/sale/internal/validator/purchase"
	"github.com/origins-network/sale-engine/modules/sale/protocol"
	"github.com/shopspring/decimal"
)

type ClaimResult struct {
	TierID      uint64          `json:"tier_id"`
	Wallet      string          `json:"wallet"`
	UsedDeposit uint128.Uint128 `json:"used_deposit"`
	TokenAmount uint128.Uint128 `json:"token_amount"`
	Refund      uint128.Uint128 `json:"refund"`
}

// ClaimPooled settles one participant's escrowed deposit after a pooled tier
// has ended. When aggregate demand exceeds the tier's allocation the fill is
// pro-rata over escrowed deposits and the unfilled remainder is refunded.
func (p *Processor) ClaimPooled(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) (*ClaimResult, error) {
	v := purchasevalidator.New()
	v.VerifySignature(env)
	if !v.Valid {
		return nil, rejection(&v.Validator)
	}
	wallet, err := p.pubkeyToAddress(env.Pubkey)
	if err != nil {
		return nil, errs.NewPublicError("Cannot derive wallet address from public key.")
	}

	var payload protocol.ClaimPooledPayload
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
	v.PooledTier(tier)
	v.SaleEnded(tier, slot.Time)
	_, escrow, err := v.EscrowClaimable(ctx, qtx, wallet, payload.TierID)
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return nil, rejection(&v.Validator)
	}

	totalEscrow, err := qtx.GetEscrowTotalByTier(ctx, tier.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow total")
	}

	usedDeposit, tokens := settleProRata(tier, escrow.DepositAmount, totalEscrow)
	refund := escrow.DepositAmount.Sub(usedDeposit)

	ledger, err := qtx.GetLedgerEntry(ctx, wallet, tier.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get ledger entry")
	}
	if ledger == nil {
		ledger = &entity.LedgerEntry{Wallet: wallet, TierID: tier.ID}
	}
	// the refunded remainder leaves the participant's position
	ledger.DepositAmount = utils.Must(uint128.FromBig(new(big.Int).Sub(ledger.DepositAmount.Big(), refund.Big())))
	ledger.TokenAmount = addUint128(ledger.TokenAmount, tokens)
	ledger.UpdatedAt = slot.Time
	if err := qtx.UpsertLedgerEntry(ctx, *ledger); err != nil {
		return nil, errors.Wrap(err, "failed to upsert ledger entry")
	}

	escrow.Claimed = true
	escrow.UpdatedAt = slot.Time
	if err := qtx.UpsertEscrowEntry(ctx, *escrow); err != nil {
		return nil, errors.Wrap(err, "failed to upsert escrow entry")
	}

	tier.RemainingTokens = tier.RemainingTokens.Sub(tokens)
	tier.TotalSold = addUint128(tier.TotalSold, tokens)
	tier.TotalDeposited = addUint128(tier.TotalDeposited, usedDeposit)
	tier.UpdatedAt = slot.Time
	if err := qtx.UpdateTier(ctx, *tier); err != nil {
		return nil, errors.Wrap(err, "failed to update tier")
	}

	session, err := p.dispatchTokens(ctx, slot, tier, wallet, tokens)
	if err != nil {
		return nil, err
	}

	metadata, _ := json.Marshal(map[string]any{"refund": refund})
	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:           slot.Seq,
		Kind:          entity.EventPooledClaim,
		TierID:        &tier.ID,
		Wallet:        wallet,
		DepositAmount: &usedDeposit,
		TokenAmount:   &tokens,
		Metadata:      metadata,
		Timestamp:     slot.Time,
	}); err != nil {
		if session != nil {
			_ = session.Rollback(ctx)
		}
		return nil, errors.Wrap(err, "failed to insert event")
	}

	if session != nil {
		if err := session.Commit(ctx); err != nil {
			return nil, errors.Wrap(err, "failed to commit token distribution")
		}
	}
	if err := qtx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return &ClaimResult{
		TierID:      tier.ID,
		Wallet:      wallet,
		UsedDeposit: usedDeposit,
		TokenAmount: tokens,
		Refund:      refund,
	}, nil
}

// settleProRata computes the deposit actually used and the tokens granted for
// one escrow position. Undersubscribed tiers fill in full. Oversubscribed
// tiers scale the deposit down by allocation/demand, truncating, then convert
// at the tier rate with the fractional token remainder dropped.
func settleProRata(tier *entity.Tier, deposit, totalEscrow uint128.Uint128) (usedDeposit, tokens uint128.Uint128) {
	demand := decimal.NewFromBigInt(totalEscrow.Big(), 0).Mul(tier.DepositRate)
	allocation := decimal.NewFromBigInt(tier.InitialAllocation.Big(), 0)
	if demand.LessThanOrEqual(allocation) {
		usedDeposit = deposit
		tokens = utils.Must(uint128.FromBig(decimal.NewFromBigInt(deposit.Big(), 0).Mul(tier.DepositRate).BigInt()))
		return usedDeposit, tokens
	}
	used := new(big.Int).Mul(deposit.Big(), tier.InitialAllocation.Big())
	used.Quo(used, demand.BigInt())
	usedDeposit = utils.Must(uint128.FromBig(used))
	tokens = utils.Must(uint128.FromBig(decimal.NewFromBigInt(used, 0).Mul(tier.DepositRate).Floor().BigInt()))
	return usedDeposit, tokens
}
