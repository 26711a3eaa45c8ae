package processor

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	adminvalidator "github.com/origins-network/sale-engine/modules/sale/internal/validator/admin"
	"github.com/origins-network/sale-engine/modules/sale/protocol"
)

// AddVerifier grants the verifier role to a public key. Owner only.
func (p *Processor) AddVerifier(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := adminvalidator.New()
	v.VerifySignature(env)
	if _, err := v.HasRole(ctx, p.saleDg, env.Pubkey, entity.RoleOwner); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(&v.Validator)
	}

	var payload protocol.AddVerifierPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}
	if !v.ValidPubkey(payload.VerifierPubkey) {
		return rejection(&v.Validator)
	}

	qtx, err := p.saleDg.BeginSaleTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = qtx.Rollback(ctx) }()

	if err := qtx.SetRole(ctx, entity.RoleEntry{
		Pubkey: payload.VerifierPubkey,
		Role:   entity.RoleVerifier,
	}); err != nil {
		return errors.Wrap(err, "failed to set role")
	}
	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:       slot.Seq,
		Kind:      entity.EventVerifierAdded,
		Timestamp: slot.Time,
	}); err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// SetAddressVerified approves a wallet for a by-address tier. Verifiers and
// the owner may approve; there is no corresponding revoke.
func (p *Processor) SetAddressVerified(ctx context.Context, slot sequencer.Slot, env *protocol.Envelope) error {
	v := adminvalidator.New()
	v.VerifySignature(env)
	if _, err := v.HasRole(ctx, p.saleDg, env.Pubkey, entity.RoleOwner, entity.RoleVerifier); err != nil {
		return errors.Wrap(err, "cannot connect to datagateway")
	}
	if !v.Valid {
		return rejection(&v.Validator)
	}

	var payload protocol.SetAddressVerifiedPayload
	if err := unmarshalPayload(env, &payload); err != nil {
		return err
	}
	if !v.ValidWalletAddress(payload.Wallet, p.network.ChainParams()) {
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

	if err := qtx.SetAddressVerified(ctx, entity.VerificationFlag{
		Wallet:     payload.Wallet,
		TierID:     tier.ID,
		ApprovedBy: env.Pubkey,
		ApprovedAt: slot.Time,
	}); err != nil {
		return errors.Wrap(err, "failed to set verification flag")
	}
	if err := qtx.AddEvent(ctx, entity.Event{
		Seq:       slot.Seq,
		Kind:      entity.EventAddressVerified,
		TierID:    &tier.ID,
		Wallet:    payload.Wallet,
		Timestamp: slot.Time,
	}); err != nil {
		return errors.Wrap(err, "failed to insert event")
	}
	if err := qtx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
