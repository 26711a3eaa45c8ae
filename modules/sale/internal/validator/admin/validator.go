package adminvalidator

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/origins-network/sale-engine/modules/sale/internal/validator"
	"github.com/origins-network/sale-engine/modules/sale/protocol"
)

type AdminValidator struct {
	validator.Validator
}

func New() *AdminValidator {
	v := validator.New()
	return &AdminValidator{
		Validator: *v,
	}
}

func (v *AdminValidator) TierExists(ctx context.Context, qtx datagateway.SaleDataGateway, tierId uint64) (bool, *entity.Tier, error) {
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

func (v *AdminValidator) TierNotClosed(tier *entity.Tier) bool {
	if !v.Valid {
		return false
	}
	if tier.Closed {
		v.Valid = false
		v.Reason = TIER_CLOSED
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

// TierConfigValid checks a create or edit payload. All three selectors must
// be set off their zero values on create.
func (v *AdminValidator) TierConfigValid(cfg *protocol.TierConfig) bool {
	if !v.Valid {
		return false
	}
	verification := entity.VerificationType(cfg.VerificationType)
	transfer := entity.TransferType(cfg.TransferType)
	saleEnd := entity.SaleEndType(cfg.SaleEndType)
	saleType := entity.SaleType(cfg.SaleType)
	if !verification.IsValid() || !transfer.IsValid() || !saleEnd.IsValid() || !saleType.IsValid() {
		v.Valid = false
		v.Reason = INVALID_SELECTOR
		return v.Valid
	}
	if verification == entity.VerificationNone || transfer == entity.TransferNone || saleEnd == entity.SaleEndNone {
		v.Valid = false
		v.Reason = SELECTOR_UNSET
		return v.Valid
	}
	if cfg.MaxAmount.IsZero() || cfg.MinAmount.Cmp(cfg.MaxAmount) > 0 {
		v.Valid = false
		v.Reason = INVALID_AMOUNT_BOUNDS
		return v.Valid
	}
	if cfg.InitialAllocation.IsZero() {
		v.Valid = false
		v.Reason = INVALID_ALLOCATION
		return v.Valid
	}
	if !cfg.DepositRate.IsPositive() {
		v.Valid = false
		v.Reason = INVALID_RATE
		return v.Valid
	}
	if cfg.UnlockBP >= 10000 {
		v.Valid = false
		v.Reason = INVALID_UNLOCK_BP
		return v.Valid
	}
	switch saleEnd {
	case entity.SaleEndDuration:
		if cfg.SaleEndDuration <= 0 {
			v.Valid = false
			v.Reason = INVALID_SALE_END
			return v.Valid
		}
	case entity.SaleEndTimestamp:
		if !cfg.SaleEndAt.After(cfg.SaleStartAt) {
			v.Valid = false
			v.Reason = INVALID_SALE_END
			return v.Valid
		}
	}
	if (transfer == entity.TransferVested || transfer == entity.TransferLocked) && cfg.VestDuration <= 0 {
		v.Valid = false
		v.Reason = INVALID_VEST_DURATION
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

func (v *AdminValidator) SaleEnded(tier *entity.Tier, at time.Time) bool {
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

func (v *AdminValidator) NotWithdrawn(tier *entity.Tier) bool {
	if !v.Valid {
		return false
	}
	if tier.Withdrawn {
		v.Valid = false
		v.Reason = ALREADY_WITHDRAWN
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

func (v *AdminValidator) DepositAddressSet(tier *entity.Tier) bool {
	if !v.Valid {
		return false
	}
	if tier.DepositAddress == "" {
		v.Valid = false
		v.Reason = NO_DEPOSIT_ADDRESS
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

func (v *AdminValidator) ValidPubkey(pubkey string) bool {
	if !v.Valid {
		return false
	}
	pubkeyBytes, err := hex.DecodeString(pubkey)
	if err != nil {
		v.Valid = false
		v.Reason = INVALID_VERIFIER_KEY
		return v.Valid
	}
	if _, err := btcec.ParsePubKey(pubkeyBytes); err != nil {
		v.Valid = false
		v.Reason = INVALID_VERIFIER_KEY
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}

func (v *AdminValidator) ValidWalletAddress(wallet string, params *chaincfg.Params) bool {
	if !v.Valid {
		return false
	}
	if _, err := btcutil.DecodeAddress(wallet, params); err != nil {
		v.Valid = false
		v.Reason = INVALID_WALLET_ADDRESS
		return v.Valid
	}
	v.Valid = true
	return v.Valid
}
