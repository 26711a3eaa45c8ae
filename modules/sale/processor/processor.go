package processor

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/common"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/origins-network/sale-engine/modules/sale/internal/validator"
	"github.com/origins-network/sale-engine/modules/sale/internal/verification"
	"github.com/origins-network/sale-engine/modules/sale/protocol"
)

type Processor struct {
	saleDg       datagateway.SaleDataGateway
	distribution DistributionEngine
	verification *verification.Registry
	network      common.Network
	cleanupFuncs []func(context.Context) error
}

func NewProcessor(
	saleDg datagateway.SaleDataGateway,
	distribution DistributionEngine,
	verificationRegistry *verification.Registry,
	network common.Network,
	cleanupFuncs []func(context.Context) error,
) *Processor {
	return &Processor{
		saleDg:       saleDg,
		distribution: distribution,
		verification: verificationRegistry,
		network:      network,
		cleanupFuncs: cleanupFuncs,
	}
}

// EnsureOwner seeds the owner role on startup. Re-running with the same
// pubkey is a no-op.
func (p *Processor) EnsureOwner(ctx context.Context, ownerPubkey string) error {
	if ownerPubkey == "" {
		return errors.Wrap(errs.InvalidArgument, "owner pubkey is required")
	}
	role, err := p.saleDg.GetRole(ctx, ownerPubkey)
	if err != nil {
		return errors.Wrap(err, "failed to get owner role")
	}
	if role != nil && role.Role == entity.RoleOwner {
		return nil
	}
	if err := p.saleDg.SetRole(ctx, entity.RoleEntry{
		Pubkey: ownerPubkey,
		Role:   entity.RoleOwner,
	}); err != nil {
		return errors.Wrap(err, "failed to set owner role")
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

// rejection converts an accumulated validator failure into the public error
// surfaced to the caller. Nothing is persisted for rejected operations.
func rejection(v *validator.Validator) error {
	return errs.NewPublicError(v.Reason)
}

func unmarshalPayload(env *protocol.Envelope, out any) error {
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return errs.NewPublicError("Malformed payload.")
	}
	return nil
}
