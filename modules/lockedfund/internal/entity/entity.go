package entity

import (
	"math/big"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/gaze-network/uint128"
)

// LockKind separates the two release schedules a lock can follow.
type LockKind string

const (
	// LockWaitedUnlocked releases the full principal once the globally
	// configured waited timestamp passes.
	LockWaitedUnlocked LockKind = "waited_unlocked"
	// LockVested releases linearly over Duration after Cliff.
	LockVested LockKind = "vested"
)

func (k LockKind) IsValid() bool {
	switch k {
	case LockWaitedUnlocked, LockVested:
		return true
	}
	return false
}

func (k LockKind) String() string {
	return string(k)
}

// LockRecord is one beneficiary position held by the fund. A record is
// deleted once the withdrawn amount reaches the principal.
type LockRecord struct {
	ID          uint64
	Beneficiary string
	Kind        LockKind

	Principal uint128.Uint128
	Withdrawn uint128.Uint128

	// UnlockBP is the immediately releasable fraction of the principal, in
	// basis points out of 10000. Always below 10000.
	UnlockBP uint16

	// Cliff and Duration apply to vested locks only.
	Cliff    time.Duration
	Duration time.Duration

	StartAt   time.Time
	SourceRef string

	CreatedAt time.Time
	UpdatedAt time.Time
}

var bpDenominator = big.NewInt(10000)

// immediate returns the portion of the principal releasable from the start,
// truncating towards zero.
func (r *LockRecord) immediate() *big.Int {
	amount := new(big.Int).Mul(r.Principal.Big(), big.NewInt(int64(r.UnlockBP)))
	return amount.Quo(amount, bpDenominator)
}

// Released computes the cumulative amount releasable at the given time.
// waitedAt is the fund-wide waited timestamp; a zero value means it has not
// been configured and waited locks release only their immediate portion.
// Released is monotonic non-decreasing in time and saturates at the
// principal.
func (r *LockRecord) Released(at time.Time, waitedAt time.Time) uint128.Uint128 {
	switch r.Kind {
	case LockWaitedUnlocked:
		if !waitedAt.IsZero() && !at.Before(waitedAt) {
			return r.Principal
		}
		return utils.Must(uint128.FromBig(r.immediate()))
	case LockVested:
		cliffEnd := r.StartAt.Add(r.Cliff)
		if at.Before(cliffEnd) {
			return utils.Must(uint128.FromBig(r.immediate()))
		}
		if !at.Before(cliffEnd.Add(r.Duration)) {
			return r.Principal
		}
		immediate := r.immediate()
		remainder := new(big.Int).Sub(r.Principal.Big(), immediate)
		elapsed := at.Sub(cliffEnd)
		vested := remainder.Mul(remainder, big.NewInt(int64(elapsed)))
		vested.Quo(vested, big.NewInt(int64(r.Duration)))
		return utils.Must(uint128.FromBig(vested.Add(vested, immediate)))
	}
	return uint128.Uint128{}
}

// Withdrawable is the released amount not yet withdrawn.
func (r *LockRecord) Withdrawable(at time.Time, waitedAt time.Time) uint128.Uint128 {
	released := r.Released(at, waitedAt)
	if released.Cmp(r.Withdrawn) <= 0 {
		return uint128.Uint128{}
	}
	return released.Sub(r.Withdrawn)
}

// Exhausted reports whether the full principal has been withdrawn.
func (r *LockRecord) Exhausted() bool {
	return r.Withdrawn.Cmp(r.Principal) >= 0
}

// FundConfig holds the fund-wide settings.
type FundConfig struct {
	VestingRegistry string
	WaitedTimestamp time.Time
	UpdatedAt       time.Time
}

// AdminEntry names a public key with administrative control over the fund.
type AdminEntry struct {
	Pubkey  string
	AddedAt time.Time
}
