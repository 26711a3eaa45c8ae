package processor

import (
	"context"
	"time"

	"github.com/gaze-network/uint128"
)

// DistributionEngine hands purchased tokens over to the locking layer when a
// tier's transfer type defers delivery. Begin opens a session whose writes
// become visible only on Commit, so a failed purchase leaves no trace in the
// locking layer.
type DistributionEngine interface {
	Begin(ctx context.Context) (DistributionSession, error)
}

type DistributionSession interface {
	// DepositWaitedUnlocked locks the amount until the globally configured
	// waited timestamp. immediateBP of the principal is releasable right away.
	DepositWaitedUnlocked(ctx context.Context, wallet string, amount uint128.Uint128, immediateBP uint16, sourceRef string) error

	// DepositVested locks the amount under a linear vesting schedule.
	// immediateBP of the principal is releasable right away, the remainder
	// vests linearly over duration after cliff.
	DepositVested(ctx context.Context, wallet string, amount uint128.Uint128, immediateBP uint16, cliff, duration time.Duration, sourceRef string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
