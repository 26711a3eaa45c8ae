package purchasevalidator

import (
	"context"
	"math/big"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/origins-network/sale-engine/modules/sale/internal/validator"
	"github.com/shopspring/decimal"
)

type PurchaseValidator struct {
	validator.Validator
}

func New() *PurchaseValidator {
	v := validator.New()
	return &PurchaseValidator{
		Validator: *v,
	}
}

func (v *PurchaseValidator) TierExists(ctx context.Context, qtx datagateway.SaleDataGateway, tierId uint64) (bool, *entity.Tier, error) {
	if !v.Valid {
		return false, nil, nil
	}
	tier, err := qtx.GetTier(ctx, tierId)
	if err != nil {
		v.Valid = false
		return v.Valid, nil, errors.Wrap(err, "failed to get tier")
	}
	if tier == nil {
		v.Valid = false
		v.Reason = TIER_NOT_FOUND
		return v.Valid, nil, nil
	}
	v.Valid = true
	return v.Valid, tier, nil
}

func (v *PurchaseValidator) TierConfigured(tier *entity.Tier) bool {
	if !v.Valid {
		return false
	}
	if !tier.Configured() {
		v.Valid = false
		v.Reason = TIER_NOT_CONFIGURED
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

func (v *PurchaseValidator) SaleOpen(tier *entity.Tier, at time.Time) bool {
	if !v.Valid {
		return false
	}
	if !tier.OpenAt(at) {
		v.Valid = false
		v.Reason = SALE_NOT_OPEN
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

func (v *PurchaseValidator) AmountAtLeastMinimum(tier *entity.Tier, deposit uint128.Uint128) bool {
	if !v.Valid {
		return false
	}
	if deposit.Cmp(tier.MinAmount) < 0 {
		v.Valid = false
		v.Reason = AMOUNT_BELOW_MINIMUM
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

// WithinLimit enforces the per-address cumulative cap. previous is the
// participant's existing ledger entry for the tier, nil for a first purchase.
func (v *PurchaseValidator) WithinLimit(tier *entity.Tier, previous *entity.LedgerEntry, deposit uint128.Uint128) bool {
	if !v.Valid {
		return false
	}
	total := deposit.Big()
	if previous != nil {
		total = new(big.Int).Add(total, previous.DepositAmount.Big())
	}
	if total.Cmp(tier.MaxAmount.Big()) > 0 {
		v.Valid = false
		v.Reason = OVER_LIMIT_PER_ADDR
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

// TokenAmount converts the deposit into tokens at the tier's rate. Fractional
// results are rejected rather than rounded.
func (v *PurchaseValidator) TokenAmount(tier *entity.Tier, deposit uint128.Uint128) (bool, uint128.Uint128) {
	if !v.Valid {
		return false, uint128.Uint128{}
	}
	tokens := decimal.NewFromBigInt(deposit.Big(), 0).Mul(tier.DepositRate)
	if !tokens.IsInteger() {
		v.Valid = false
		v.Reason = NON_INTEGRAL_TOKENS
		return v.Valid, uint128.Uint128{}
	}
	tokensBig := tokens.BigInt()
	if tokensBig.Sign() <= 0 || tokensBig.BitLen() > 128 {
		v.Valid = false
		v.Reason = TOKEN_AMOUNT_OVERFLOW
		return v.Valid, uint128.Uint128{}
	}
	v.Valid = true
	return v.Valid, utils.Must(uint128.FromBig(tokensBig))
}

func (v *PurchaseValidator) SupplyAvailable(tier *entity.Tier, tokens uint128.Uint128) bool {
	if !v.Valid {
		return false
	}
	if tokens.Cmp(tier.RemainingTokens) > 0 {
		v.Valid = false
		v.Reason = INSUFFICIENT_SUPPLY
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

func (v *PurchaseValidator) PooledTier(tier *entity.Tier) bool {
	if !v.Valid {
		return false
	}
	if tier.SaleType != entity.SaleTypePooled {
		v.Valid = false
		v.Reason = NOT_POOLED_TIER
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

func (v *PurchaseValidator) SaleEnded(tier *entity.Tier, at time.Time) bool {
	if !v.Valid {
		return false
	}
	if !tier.EndedAt(at) {
		v.Valid = false
		v.Reason = SALE_NOT_ENDED
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

// EscrowClaimable checks the participant holds an unclaimed escrowed deposit.
func (v *PurchaseValidator) EscrowClaimable(ctx context.Context, qtx datagateway.SaleDataGateway, wallet string, tierId uint64) (bool, *entity.EscrowEntry, error) {
	if !v.Valid {
		return false, nil, nil
	}
	escrow, err := qtx.GetEscrowEntry(ctx, wallet, tierId)
	if err != nil {
		v.Valid = false
		return v.Valid, nil, errors.Wrap(err, "failed to get escrow entry")
	}
	if escrow == nil || escrow.DepositAmount.IsZero() {
		v.Valid = false
		v.Reason = NO_ESCROW
		return v.Valid, nil, nil
	}
	if escrow.Claimed {
		v.Valid = false
		v.Reason = ALREADY_CLAIMED
		return v.Valid, nil, nil
	}
	v.Valid = true
	return v.Valid, escrow, nil
}
