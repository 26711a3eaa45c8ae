package entity

import (
	"testing"
	"time"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
)

func TestLockRecordReleasedWaitedUnlocked(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	waitedAt := start.Add(30 * 24 * time.Hour)
	lock := LockRecord{
		Beneficiary: "wallet-a",
		Kind:        LockWaitedUnlocked,
		Principal:   uint128.From64(10_000),
		UnlockBP:    2500,
		StartAt:     start,
	}

	t.Run("before_waited_timestamp", func(t *testing.T) {
		released := lock.Released(waitedAt.Add(-time.Second), waitedAt)
		assert.Equal(t, uint128.From64(2500), released, "only the immediate portion is releasable before the waited timestamp")
	})

	t.Run("at_waited_timestamp", func(t *testing.T) {
		released := lock.Released(waitedAt, waitedAt)
		assert.Equal(t, lock.Principal, released)
	})

	t.Run("after_waited_timestamp", func(t *testing.T) {
		released := lock.Released(waitedAt.Add(365*24*time.Hour), waitedAt)
		assert.Equal(t, lock.Principal, released)
	})

	t.Run("waited_timestamp_not_configured", func(t *testing.T) {
		released := lock.Released(start.Add(100*365*24*time.Hour), time.Time{})
		assert.Equal(t, uint128.From64(2500), released, "unconfigured waited timestamp never releases the remainder")
	})
}

func TestLockRecordImmediateTruncation(t *testing.T) {
	lock := LockRecord{
		Kind:      LockWaitedUnlocked,
		Principal: uint128.From64(1001),
		UnlockBP:  2500,
	}
	// 1001 * 2500 / 10000 = 250.25, truncated towards zero
	released := lock.Released(time.Now(), time.Time{})
	assert.Equal(t, uint128.From64(250), released)
}

func TestLockRecordReleasedVested(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lock := LockRecord{
		Beneficiary: "wallet-a",
		Kind:        LockVested,
		Principal:   uint128.From64(1000),
		UnlockBP:    1000,
		Cliff:       time.Hour,
		Duration:    10 * time.Hour,
		StartAt:     start,
	}
	cliffEnd := start.Add(lock.Cliff)

	testCases := []struct {
		name     string
		at       time.Time
		expected uint64
	}{
		{"at_start", start, 100},
		{"inside_cliff", start.Add(30 * time.Minute), 100},
		{"cliff_end", cliffEnd, 100},
		{"half_vested", cliffEnd.Add(5 * time.Hour), 550},
		{"fully_vested", cliffEnd.Add(10 * time.Hour), 1000},
		{"beyond_schedule", cliffEnd.Add(100 * time.Hour), 1000},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			released := lock.Released(tc.at, time.Time{})
			assert.Equal(t, uint128.From64(tc.expected), released)
		})
	}
}

func TestLockRecordReleasedVestedTruncation(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lock := LockRecord{
		Kind:      LockVested,
		Principal: uint128.From64(100),
		UnlockBP:  0,
		Duration:  3 * time.Hour,
		StartAt:   start,
	}
	// 100 * 1h / 3h = 33.33..., truncated
	released := lock.Released(start.Add(time.Hour), time.Time{})
	assert.Equal(t, uint128.From64(33), released)
}

func TestLockRecordWithdrawable(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lock := LockRecord{
		Kind:      LockVested,
		Principal: uint128.From64(1000),
		UnlockBP:  1000,
		Cliff:     time.Hour,
		Duration:  10 * time.Hour,
		StartAt:   start,
	}

	t.Run("nothing_withdrawn_yet", func(t *testing.T) {
		withdrawable := lock.Withdrawable(start, time.Time{})
		assert.Equal(t, uint128.From64(100), withdrawable)
	})

	t.Run("partially_withdrawn", func(t *testing.T) {
		partial := lock
		partial.Withdrawn = uint128.From64(100)
		withdrawable := partial.Withdrawable(start.Add(lock.Cliff).Add(5*time.Hour), time.Time{})
		assert.Equal(t, uint128.From64(450), withdrawable)
	})

	t.Run("withdrawn_up_to_released", func(t *testing.T) {
		drained := lock
		drained.Withdrawn = uint128.From64(100)
		withdrawable := drained.Withdrawable(start, time.Time{})
		assert.True(t, withdrawable.IsZero())
	})
}

func TestLockRecordExhausted(t *testing.T) {
	lock := LockRecord{
		Principal: uint128.From64(1000),
		Withdrawn: uint128.From64(999),
	}
	assert.False(t, lock.Exhausted())

	lock.Withdrawn = uint128.From64(1000)
	assert.True(t, lock.Exhausted())
}
