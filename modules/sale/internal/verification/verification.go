// Package verification implements the per-tier purchase eligibility
// strategies. Each tier names one strategy; the registry dispatches on the
// tier's verification type.
package verification

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
)

// Strategy decides whether a wallet may purchase from a tier. A false result
// with an empty error carries a human readable reason.
type Strategy interface {
	Eligible(ctx context.Context, qtx datagateway.SaleDataGateway, tier *entity.Tier, wallet string) (bool, string, error)
}

type Registry struct {
	strategies map[entity.VerificationType]Strategy
}

func NewRegistry(stakes StakeSource) *Registry {
	return &Registry{
		strategies: map[entity.VerificationType]Strategy{
			entity.VerificationNone:      None{},
			entity.VerificationEveryone:  Everyone{},
			entity.VerificationByAddress: ByAddress{},
			entity.VerificationByStake:   ByStake{Stakes: stakes},
		},
	}
}

func (r *Registry) Eligible(ctx context.Context, qtx datagateway.SaleDataGateway, tier *entity.Tier, wallet string) (bool, string, error) {
	strategy, ok := r.strategies[tier.VerificationType]
	if !ok {
		return false, "", errors.Wrapf(errs.Unsupported, "no verification strategy for %q", tier.VerificationType)
	}
	return strategy.Eligible(ctx, qtx, tier, wallet)
}

// Everyone admits any wallet.
type Everyone struct{}

func (Everyone) Eligible(ctx context.Context, qtx datagateway.SaleDataGateway, tier *entity.Tier, wallet string) (bool, string, error) {
	return true, "", nil
}

// None rejects every wallet. It is the zero value of an unconfigured tier.
type None struct{}

func (None) Eligible(ctx context.Context, qtx datagateway.SaleDataGateway, tier *entity.Tier, wallet string) (bool, string, error) {
	return false, "Tier does not admit purchases.", nil
}
