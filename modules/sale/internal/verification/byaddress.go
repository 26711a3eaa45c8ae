package verification

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	purchasevalidator "github.com/origins-network/sale-engine/modules/sale/internal/validator/purchase"
)

// ByAddress admits wallets a verifier has approved for the tier. Approval is
// one way; there is no revoke.
type ByAddress struct{}

func (ByAddress) Eligible(ctx context.Context, qtx datagateway.SaleDataGateway, tier *entity.Tier, wallet string) (bool, string, error) {
	verified, err := qtx.IsAddressVerified(ctx, wallet, tier.ID)
	if err != nil {
		return false, "", errors.Wrap(err, "failed to get verification flag")
	}
	if !verified {
		return false, purchasevalidator.ADDRESS_NOT_VERIFIED, nil
	}
	return true, "", nil
}
