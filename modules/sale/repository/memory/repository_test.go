package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	t.Run("staged_writes_invisible_until_commit", func(t *testing.T) {
		qtx, err := repo.BeginSaleTx(ctx)
		require.NoError(t, err)
		id, err := qtx.CreateTier(ctx, entity.Tier{InitialAllocation: uint128.From64(1000)})
		require.NoError(t, err)

		tier, err := repo.GetTier(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, tier, "uncommitted tier must not be visible")

		require.NoError(t, qtx.Commit(ctx))

		tier, err = repo.GetTier(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, tier)
		assert.Equal(t, uint128.From64(1000), tier.InitialAllocation)
	})

	t.Run("rollback_discards_writes", func(t *testing.T) {
		qtx, err := repo.BeginSaleTx(ctx)
		require.NoError(t, err)
		require.NoError(t, qtx.SetStats(ctx, entity.Stats{TotalWallets: 42}))
		require.NoError(t, qtx.Rollback(ctx))

		stats, err := repo.GetStats(ctx)
		require.NoError(t, err)
		require.NotNil(t, stats)
		assert.Zero(t, stats.TotalWallets)
	})

	t.Run("transaction_reads_its_own_writes", func(t *testing.T) {
		qtx, err := repo.BeginSaleTx(ctx)
		require.NoError(t, err)
		defer func() { _ = qtx.Rollback(ctx) }()

		require.NoError(t, qtx.UpsertLedgerEntry(ctx, entity.LedgerEntry{
			Wallet:        "wallet-a",
			TierID:        1,
			DepositAmount: uint128.From64(50),
		}))
		ledger, err := qtx.GetLedgerEntry(ctx, "wallet-a", 1)
		require.NoError(t, err)
		require.NotNil(t, ledger)
		assert.Equal(t, uint128.From64(50), ledger.DepositAmount)
	})
}

func TestEscrowTotalByTier(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	for i, wallet := range []string{"wallet-a", "wallet-b", "wallet-c"} {
		require.NoError(t, repo.UpsertEscrowEntry(ctx, entity.EscrowEntry{
			Wallet:        wallet,
			TierID:        1,
			DepositAmount: uint128.From64(uint64(100 * (i + 1))),
		}))
	}
	require.NoError(t, repo.UpsertEscrowEntry(ctx, entity.EscrowEntry{
		Wallet:        "wallet-a",
		TierID:        2,
		DepositAmount: uint128.From64(999),
	}))

	total, err := repo.GetEscrowTotalByTier(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(600), total)

	entries, err := repo.GetEscrowEntriesByTier(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestGetEventsFiltering(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tierA, tierB := uint64(1), uint64(2)
	events := []entity.Event{
		{Seq: 1, Kind: entity.EventTierCreated, TierID: &tierA, Timestamp: base},
		{Seq: 2, Kind: entity.EventPurchase, TierID: &tierA, Wallet: "wallet-a", Timestamp: base.Add(time.Minute)},
		{Seq: 3, Kind: entity.EventPurchase, TierID: &tierB, Wallet: "wallet-b", Timestamp: base.Add(2 * time.Minute)},
		{Seq: 4, Kind: entity.EventPurchase, TierID: &tierA, Wallet: "wallet-a", Timestamp: base.Add(3 * time.Minute)},
	}
	for _, event := range events {
		require.NoError(t, repo.AddEvent(ctx, event))
	}

	t.Run("by_wallet", func(t *testing.T) {
		got, err := repo.GetEvents(ctx, datagateway.GetEventsParams{Wallet: "wallet-a"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(2), got[0].Seq)
		assert.Equal(t, uint64(4), got[1].Seq)
	})

	t.Run("by_tier", func(t *testing.T) {
		got, err := repo.GetEvents(ctx, datagateway.GetEventsParams{TierID: &tierB})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(3), got[0].Seq)
	})

	t.Run("from_seq_with_limit", func(t *testing.T) {
		got, err := repo.GetEvents(ctx, datagateway.GetEventsParams{FromSeq: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(2), got[0].Seq)
		assert.Equal(t, uint64(3), got[1].Seq)
	})

	t.Run("from_time", func(t *testing.T) {
		got, err := repo.GetEvents(ctx, datagateway.GetEventsParams{FromTime: base.Add(2 * time.Minute)})
		require.NoError(t, err)
		require.Len(t, got, 2)
	})
}
