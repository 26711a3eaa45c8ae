// Package protocol defines the signed operation envelope accepted by the sale
// engine. Every mutating request carries a compressed public key, a DER
// encoded ECDSA signature over the raw payload bytes, and the payload itself.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/shopspring/decimal"
)

type Envelope struct {
	Pubkey    string          `json:"pubkey"`
	Signature string          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
}

// TierConfig carries the owner-settable tier parameters. It is shared between
// create and edit payloads.
type TierConfig struct {
	MinAmount         uint128.Uint128 `json:"min_amount"`
	MaxAmount         uint128.Uint128 `json:"max_amount"`
	InitialAllocation uint128.Uint128 `json:"initial_allocation"`

	SaleStartAt     time.Time     `json:"sale_start_at"`
	SaleEndType     string        `json:"sale_end_type"`
	SaleEndDuration time.Duration `json:"sale_end_duration"`
	SaleEndAt       time.Time     `json:"sale_end_at"`

	UnlockBP     uint16        `json:"unlock_bp"`
	VestCliff    time.Duration `json:"vest_cliff"`
	VestDuration time.Duration `json:"vest_duration"`

	DepositRate decimal.Decimal `json:"deposit_rate"`

	VerificationType string `json:"verification_type"`
	TransferType     string `json:"transfer_type"`
	SaleType         string `json:"sale_type"`
}

type CreateTierPayload struct {
	Tiers []TierConfig `json:"tiers"`
}

type EditTierPayload struct {
	TierID uint64     `json:"tier_id"`
	Config TierConfig `json:"config"`
}

type SetTierDepositPayload struct {
	TierID         uint64 `json:"tier_id"`
	DepositAsset   string `json:"deposit_asset"`
	DepositAddress string `json:"deposit_address"`
}

type SetStakeConditionPayload struct {
	TierID       uint64          `json:"tier_id"`
	MinStake     uint128.Uint128 `json:"min_stake"`
	MaxStake     uint128.Uint128 `json:"max_stake"`
	StakingRef   string          `json:"staking_ref"`
	BlockNumbers []uint64        `json:"block_numbers"`
	Timestamps   []time.Time     `json:"timestamps"`
}

type CloseTierPayload struct {
	TierID uint64 `json:"tier_id"`
}

type WithdrawProceedsPayload struct {
	TierID uint64 `json:"tier_id"`
}

type AddVerifierPayload struct {
	VerifierPubkey string `json:"verifier_pubkey"`
}

type SetAddressVerifiedPayload struct {
	TierID uint64 `json:"tier_id"`
	Wallet string `json:"wallet"`
}

type PurchasePayload struct {
	TierID        uint64          `json:"tier_id"`
	DepositAmount uint128.Uint128 `json:"deposit_amount"`
}

type ClaimPooledPayload struct {
	TierID uint64 `json:"tier_id"`
}

// Apply writes the config onto a tier, leaving counters and deposit routing
// untouched.
func (c *TierConfig) Apply(tier *entity.Tier) {
	tier.MinAmount = c.MinAmount
	tier.MaxAmount = c.MaxAmount
	tier.SaleStartAt = c.SaleStartAt
	tier.SaleEndType = entity.SaleEndType(c.SaleEndType)
	tier.SaleEndDuration = c.SaleEndDuration
	tier.SaleEndAt = c.SaleEndAt
	tier.UnlockBP = c.UnlockBP
	tier.VestCliff = c.VestCliff
	tier.VestDuration = c.VestDuration
	tier.DepositRate = c.DepositRate
	tier.VerificationType = entity.VerificationType(c.VerificationType)
	tier.TransferType = entity.TransferType(c.TransferType)
	tier.SaleType = entity.SaleType(c.SaleType)
}
