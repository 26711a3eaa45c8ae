package entity

import (
	"time"

	"github.com/gaze-network/uint128"
	"github.com/shopspring/decimal"
)

// Tier is one configured sale round. Amount limits are denominated in the
// deposit asset; allocation counters are denominated in sale tokens.
type Tier struct {
	ID uint64

	// Per-purchase deposit bounds. MaxAmount is also the cumulative cap per
	// participant, enforced across multiple purchases.
	MinAmount uint128.Uint128
	MaxAmount uint128.Uint128

	InitialAllocation uint128.Uint128
	RemainingTokens   uint128.Uint128
	TotalSold         uint128.Uint128
	TotalDeposited    uint128.Uint128

	SaleStartAt     time.Time
	SaleEndType     SaleEndType
	SaleEndDuration time.Duration
	SaleEndAt       time.Time

	// UnlockBP is the immediately released fraction under vesting, in basis
	// points out of 10000.
	UnlockBP     uint16
	VestCliff    time.Duration
	VestDuration time.Duration

	// DepositRate converts deposit units into token units. A purchase whose
	// token amount is not integral is rejected.
	DepositRate decimal.Decimal

	// DepositAsset is DepositAssetNative or a fungible-token contract
	// reference.
	DepositAsset string
	// DepositAddress receives collected proceeds on withdrawal. Empty means
	// proceeds stay with the engine until an address is configured.
	DepositAddress string

	VerificationType VerificationType
	TransferType     TransferType
	SaleType         SaleType

	// Closed is set when the owner ends the sale early.
	Closed bool
	// Withdrawn guards proceeds withdrawal idempotency.
	Withdrawn bool

	ParticipantCount uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Configured reports whether the tier has been fully set up for purchases.
// All three selectors must be moved off their "none" zero values.
func (t *Tier) Configured() bool {
	return t.VerificationType != VerificationNone &&
		t.VerificationType != "" &&
		t.TransferType != TransferNone &&
		t.TransferType != "" &&
		t.SaleEndType != SaleEndNone &&
		t.SaleEndType != ""
}

// OpenAt reports whether the tier's sale window is open at the given time.
func (t *Tier) OpenAt(at time.Time) bool {
	if t.Closed {
		return false
	}
	if at.Before(t.SaleStartAt) {
		return false
	}
	switch t.SaleEndType {
	case SaleEndUntilSupply:
		return !t.RemainingTokens.IsZero()
	case SaleEndDuration:
		return at.Before(t.SaleStartAt.Add(t.SaleEndDuration))
	case SaleEndTimestamp:
		return at.Before(t.SaleEndAt)
	}
	return false
}

// EndedAt reports whether the tier's sale is over at the given time. A pooled
// tier must be ended before claims are allowed.
func (t *Tier) EndedAt(at time.Time) bool {
	if t.Closed {
		return true
	}
	if at.Before(t.SaleStartAt) {
		return false
	}
	return !t.OpenAt(at)
}

// StakeCondition is a per-tier stake-eligibility snapshot specification.
// MaxStake of zero means unbounded.
type StakeCondition struct {
	TierID       uint64
	MinStake     uint128.Uint128
	MaxStake     uint128.Uint128
	StakingRef   string
	BlockNumbers []uint64
	Timestamps   []time.Time
}

// LedgerEntry is the cumulative purchase record for one (participant, tier)
// pair.
type LedgerEntry struct {
	Wallet        string
	TierID        uint64
	DepositAmount uint128.Uint128
	TokenAmount   uint128.Uint128
	UpdatedAt     time.Time
}

// EscrowEntry holds a pooled-tier participant's deposit until settlement.
type EscrowEntry struct {
	Wallet        string
	TierID        uint64
	DepositAmount uint128.Uint128
	Claimed       bool
	UpdatedAt     time.Time
}

// Role names an authorization level held by a public key.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleVerifier Role = "verifier"
)

// RoleEntry binds a compressed public key (hex) to a role.
type RoleEntry struct {
	Pubkey string
	Role   Role
}

// VerificationFlag records a one-way by-address approval. There is no revoke
// operation; the asymmetry is a platform property.
type VerificationFlag struct {
	Wallet     string
	TierID     uint64
	ApprovedBy string
	ApprovedAt time.Time
}

// Stats are the global wallet counters.
type Stats struct {
	TotalWallets uint64
}

// Event is one append-only notification row. Nothing in the engine reads
// events back; they exist for off-chain observers.
type Event struct {
	Seq           uint64
	Kind          string
	TierID        *uint64
	Wallet        string
	DepositAmount *uint128.Uint128
	TokenAmount   *uint128.Uint128
	Metadata      []byte
	Timestamp     time.Time
}

// Event kinds emitted by the sale engine.
const (
	EventTierCreated        = "tier_created"
	EventTierEdited         = "tier_edited"
	EventTierClosed         = "tier_closed"
	EventStakeConditionSet  = "stake_condition_set"
	EventPurchase           = "purchase"
	EventPooledEscrow       = "pooled_escrow"
	EventPooledClaim        = "pooled_claim"
	EventProceedsWithdrawal = "proceeds_withdrawal"
	EventAddressVerified    = "address_verified"
	EventVerifierAdded      = "verifier_added"
)
