package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	purchasevalidator "github.com/origins-network/sale-engine/modules/sale/internal/validator/purchase"
	"github.com/origins-network/sale-engine/modules/sale/protocol"
)

type PurchaseResult struct {
	TierID        uint64          `json:"tier_id"`
	Wallet        string          `json:"wallet"`
	DepositAmount uint128.Uint128 `json:"deposit_amount"`
	TokenAmount   uint128.Uint128 `json:"token_amount"`
	SaleType      entity.SaleType `json:"sale_type"`
	Settled       bool            `json:"settled"`
}

// Purchase applies one signed purchase attempt. FCFS tiers settle in place;
// pooled tiers only escrow the deposit until the tier ends.
func (p *Processor) Purchase(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) (*PurchaseResult, error) {
	v := purchasevalidator.New()
	v.VerifySignature(env)
	if !v.Valid {
		return nil, rejection(&v.Validator)
	}
	wallet, err := p.pubkeyToAddress(env.Pubkey)
	if err != nil {
		return nil, errs.NewPublicError("Cannot derive wallet address from public key.")
	}

	var payload protocol.PurchasePayload
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
	v.TierConfigured(tier)
	v.SaleOpen(tier, slot.Time)
	v.AmountAtLeastMinimum(tier, payload.DepositAmount)

	var previous *entity.LedgerEntry
	if v.Valid {
		previous, err = qtx.GetLedgerEntry(ctx, wallet, payload.TierID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get ledger entry")
		}
	}
	v.WithinLimit(tier, previous, payload.DepositAmount)
	_, tokens := v.TokenAmount(tier, payload.DepositAmount)
	if v.Valid && tier.SaleType == entity.SaleTypeFCFS {
		v.SupplyAvailable(tier, tokens)
	}
	if v.Valid {
		eligible, reason, err := p.verification.Eligible(ctx, qtx, tier, wallet)
		if err != nil {
			return nil, errors.Wrap(err, "failed to run verification strategy")
		}
		if !eligible {
			v.Valid = false
			v.Reason = reason
		}
	}
	if !v.Valid {
		return nil, rejection(&v.Validator)
	}

	firstForWallet, err := p.isFirstPurchase(ctx, qtx, wallet)
	if err != nil {
		return nil, err
	}

	result := &PurchaseResult{
		TierID:        tier.ID,
		Wallet:        wallet,
		DepositAmount: payload.DepositAmount,
		SaleType:      tier.SaleType,
	}

	switch tier.SaleType {
	case entity.SaleTypeFCFS:
		if err := p.settlePurchase(ctx, qtx, slot, tier, wallet, previous, payload.DepositAmount, tokens, firstForWallet); err != nil {
			return nil, err
		}
		result.TokenAmount = tokens
		result.Settled = true
	case entity.SaleTypePooled:
		if err := p.escrowPurchase(ctx, qtx, slot, tier, wallet, previous, payload.DepositAmount, firstForWallet); err != nil {
			return nil, err
		}
	}

	if err := qtx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return result, nil
}

// settlePurchase performs the immediate FCFS settlement inside the open
// storage transaction. Token dispatch to the locking layer is committed just
// before the sale transaction itself.
func (p *Processor) settlePurchase(
	ctx context.Context,
	qtx datagateway.SaleDataGatewayWithTx,
	slot sequencer.Slot,
	tier *entity.Tier,
	wallet string,
	previous *entity.LedgerEntry,
	deposit, tokens uint128.Uint128,
	firstForWallet bool,
) error {
	ledger := entity.LedgerEntry{
		Wallet: wallet,
		TierID: tier.ID,
	}
	if previous != nil {
		ledger = *previous
	}
	ledger.DepositAmount = addUint128(ledger.DepositAmount, deposit)
	ledger.TokenAmount = addUint128(ledger.TokenAmount, tokens)
	ledger.UpdatedAt = slot.Time
	if err := qtx.UpsertLedgerEntry(ctx, ledger); err != nil {
		return errors.Wrap(err, "failed to upsert ledger entry")
	}

	tier.RemainingTokens = tier.RemainingTokens.Sub(tokens)
	tier.TotalSold = addUint128(tier.TotalSold, tokens)
	tier.TotalDeposited = addUint128(tier.TotalDeposited, deposit)
	if previous == nil {
		tier.ParticipantCount++
	}
	tier.UpdatedAt = slot.Time
	if err := qtx.UpdateTier(ctx, *tier); err != nil {
		return errors.Wrap(err, "failed to update tier")
	}

	if err := p.bumpWalletCount(ctx, qtx, firstForWallet); err != nil {
		return err
	}

	session, err := p.dispatchTokens(ctx, slot, tier, wallet, tokens)
	if err != nil {
		return err
	}

	metadata, _ := json.Marshal(map[string]any{"transfer_type": tier.TransferType})
	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:           slot.Seq,
		Kind:          entity.EventPurchase,
		TierID:        &tier.ID,
		Wallet:        wallet,
		DepositAmount: &deposit,
		TokenAmount:   &tokens,
		Metadata:      metadata,
		Timestamp:     slot.Time,
	}); err != nil {
		if session != nil {
			_ = session.Rollback(ctx)
		}
		return errors.Wrap(err, "failed to insert event")
	}

	if session != nil {
		if err := session.Commit(ctx); err != nil {
			return errors.Wrap(err, "failed to commit token distribution")
		}
	}
	return nil
}

func (p *Processor) escrowPurchase(
	ctx context.Context,
	qtx datagateway.SaleDataGatewayWithTx,
	slot sequencer.Slot,
	tier *entity.Tier,
	wallet string,
	previous *entity.LedgerEntry,
	deposit uint128.Uint128,
	firstForWallet bool,
) error {
	escrow, err := qtx.GetEscrowEntry(ctx, wallet, tier.ID)
	if err != nil {
		return errors.Wrap(err, "failed to get escrow entry")
	}
	if escrow == nil {
		escrow = &entity.EscrowEntry{
			Wallet: wallet,
			TierID: tier.ID,
		}
	}
	escrow.DepositAmount = addUint128(escrow.DepositAmount, deposit)
	escrow.UpdatedAt = slot.Time
	if err := qtx.UpsertEscrowEntry(ctx, *escrow); err != nil {
		return errors.Wrap(err, "failed to upsert escrow entry")
	}

	// the ledger tracks escrowed deposits too, so the per-address limit keeps
	// holding across fcfs and pooled purchases
	ledger := entity.LedgerEntry{
		Wallet: wallet,
		TierID: tier.ID,
	}
	if previous != nil {
		ledger = *previous
	}
	ledger.DepositAmount = addUint128(ledger.DepositAmount, deposit)
	ledger.UpdatedAt = slot.Time
	if err := qtx.UpsertLedgerEntry(ctx, ledger); err != nil {
		return errors.Wrap(err, "failed to upsert ledger entry")
	}

	if previous == nil {
		tier.ParticipantCount++
	}
	tier.UpdatedAt = slot.Time
	if err := qtx.UpdateTier(ctx, *tier); err != nil {
		return errors.Wrap(err, "failed to update tier")
	}

	if err := p.bumpWalletCount(ctx, qtx, firstForWallet); err != nil {
		return err
	}

	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:           slot.Seq,
		Kind:          entity.EventPooledEscrow,
		TierID:        &tier.ID,
		Wallet:        wallet,
		DepositAmount: &deposit,
		Timestamp:     slot.Time,
	}); err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	return nil
}

// dispatchTokens opens a locking-layer session when the tier's transfer type
// defers delivery. The caller commits or rolls the session back together with
// its own transaction. A nil session means tokens were credited directly.
func (p *Processor) dispatchTokens(
	ctx context.Context,
	slot sequencer.Slot,
	tier *entity.Tier,
	wallet string,
	tokens uint128.Uint128,
) (DistributionSession, error) {
	if tier.TransferType == entity.TransferUnlocked {
		return nil, nil
	}
	session, err := p.distribution.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin distribution session")
	}
	sourceRef := fmt.Sprintf("sale:tier:%d:seq:%d", tier.ID, slot.Seq)
	switch tier.TransferType {
	case entity.TransferWaitedUnlocked:
		err = session.DepositWaitedUnlocked(ctx, wallet, tokens, tier.UnlockBP, sourceRef)
	case entity.TransferVested:
		err = session.DepositVested(ctx, wallet, tokens, tier.UnlockBP, tier.VestCliff, tier.VestDuration, sourceRef)
	case entity.TransferLocked:
		err = session.DepositVested(ctx, wallet, tokens, 0, tier.VestCliff, tier.VestDuration, sourceRef)
	default:
		err = errors.Wrapf(errs.Unsupported, "transfer type %q", tier.TransferType)
	}
	if err != nil {
		_ = session.Rollback(ctx)
		return nil, errors.Wrap(err, "failed to dispatch tokens")
	}
	return session, nil
}

func (p *Processor) isFirstPurchase(ctx context.Context, qtx datagateway.SaleDataGateway, wallet string) (bool, error) {
	entries, err := qtx.GetLedgerEntriesByWallet(ctx, wallet)
	if err != nil {
		return false, errors.Wrap(err, "failed to get ledger entries")
	}
	return len(entries) == 0, nil
}

func (p *Processor) bumpWalletCount(ctx context.Context, qtx datagateway.SaleDataGateway, firstForWallet bool) error {
	if !firstForWallet {
		return nil
	}
	stats, err := qtx.GetStats(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get stats")
	}
	if stats == nil {
		stats = &entity.Stats{}
	}
	stats.TotalWallets++
	if err := qtx.SetStats(ctx, *stats); err != nil {
		return errors.Wrap(err, "failed to set stats")
	}
	return nil
}
