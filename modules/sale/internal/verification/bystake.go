package verification

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	purchasevalidator "github.com/origins-network/sale-engine/modules/sale/internal/validator/purchase"
)

// StakeSource answers historical stake lookups against an external staking
// registry.
type StakeSource interface {
	StakeAtBlock(ctx context.Context, stakingRef string, wallet string, blockNumber uint64) (uint128.Uint128, error)
	StakeAtTime(ctx context.Context, stakingRef string, wallet string, at time.Time) (uint128.Uint128, error)
}

// ByStake admits wallets whose minimum stake across the tier's checkpoints
// lies within the configured bounds. MaxStake of zero is unbounded.
type ByStake struct {
	Stakes StakeSource
}

func (s ByStake) Eligible(ctx context.Context, qtx datagateway.SaleDataGateway, tier *entity.Tier, wallet string) (bool, string, error) {
	cond, err := qtx.GetStakeCondition(ctx, tier.ID)
	if err != nil {
		return false, "", errors.Wrap(err, "failed to get stake condition")
	}
	if cond == nil || (len(cond.BlockNumbers) == 0 && len(cond.Timestamps) == 0) {
		return false, purchasevalidator.STAKE_CONDITION_UNSET, nil
	}
	if s.Stakes == nil {
		return false, "", errors.Wrap(errs.Unsupported, "no staking registry configured")
	}

	// the eligible stake is the minimum held across all checkpoints
	var minStake uint128.Uint128
	first := true
	for _, block := range cond.BlockNumbers {
		stake, err := s.Stakes.StakeAtBlock(ctx, cond.StakingRef, wallet, block)
		if err != nil {
			return false, "", errors.Wrapf(err, "failed to get stake at block %d", block)
		}
		if first || stake.Cmp(minStake) < 0 {
			minStake = stake
			first = false
		}
	}
	for _, at := range cond.Timestamps {
		stake, err := s.Stakes.StakeAtTime(ctx, cond.StakingRef, wallet, at)
		if err != nil {
			return false, "", errors.Wrapf(err, "failed to get stake at %s", at)
		}
		if first || stake.Cmp(minStake) < 0 {
			minStake = stake
			first = false
		}
	}

	if minStake.Cmp(cond.MinStake) < 0 {
		return false, purchasevalidator.STAKE_OUT_OF_RANGE, nil
	}
	if !cond.MaxStake.IsZero() && minStake.Cmp(cond.MaxStake) > 0 {
		return false, purchasevalidator.STAKE_OUT_OF_RANGE, nil
	}
	return true, "", nil
}
