package processor

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/common"
	"github.com/origins-network/sale-engine/core/sequencer"
	"github.com/origins-network/sale-engine/modules/lockedfund/internal/validator"
	"github.com/origins-network/sale-engine/modules/lockedfund/protocol"
	"github.com/origins-network/sale-engine/modules/lockedfund/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeypair(t *testing.T) (*btcec.PrivateKey, string) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv, hex.EncodeToString(priv.PubKey().SerializeCompressed())
}

func signEnvelope(t *testing.T, priv *btcec.PrivateKey, payload any) *protocol.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	sig := ecdsa.Sign(priv, chainhash.DoubleHashB(raw))
	return &protocol.Envelope{
		Pubkey:    hex.EncodeToString(priv.PubKey().SerializeCompressed()),
		Signature: hex.EncodeToString(sig.Serialize()),
		Payload:   raw,
	}
}

func walletAddress(t *testing.T, priv *btcec.PrivateKey) string {
	t.Helper()
	addr, err := btcutil.NewAddressPubKey(priv.PubKey().SerializeCompressed(), common.NetworkMainnet.ChainParams())
	require.NoError(t, err)
	return addr.AddressPubKeyHash().EncodeAddress()
}

func slotAt(seq uint64, at time.Time) sequencer.Slot {
	return sequencer.Slot{Seq: seq, Time: at}
}

func newTestProcessor(t *testing.T) (*Processor, *memory.Repository, *btcec.PrivateKey) {
	t.Helper()
	repo := memory.NewRepository()
	p := NewProcessor(repo, common.NetworkMainnet, nil)
	adminPriv, adminPubkey := newKeypair(t)
	require.NoError(t, p.EnsureAdmin(context.Background(), adminPubkey))
	return p, repo, adminPriv
}

func TestAddRemoveAdmin(t *testing.T) {
	ctx := context.Background()
	p, repo, adminPriv := newTestProcessor(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	otherPriv, otherPubkey := newKeypair(t)

	t.Run("non_admin_cannot_add", func(t *testing.T) {
		env := signEnvelope(t, otherPriv, protocol.AddAdminPayload{AdminPubkey: otherPubkey})
		err := p.AddAdmin(ctx, slotAt(1, now), env)
		require.ErrorContains(t, err, validator.NOT_ADMIN)
	})

	t.Run("admin_adds_admin", func(t *testing.T) {
		env := signEnvelope(t, adminPriv, protocol.AddAdminPayload{AdminPubkey: otherPubkey})
		require.NoError(t, p.AddAdmin(ctx, slotAt(2, now), env))

		isAdmin, err := repo.IsAdmin(ctx, otherPubkey)
		require.NoError(t, err)
		assert.True(t, isAdmin)
	})

	t.Run("remove_missing_admin", func(t *testing.T) {
		_, strangerPubkey := newKeypair(t)
		env := signEnvelope(t, adminPriv, protocol.RemoveAdminPayload{AdminPubkey: strangerPubkey})
		err := p.RemoveAdmin(ctx, slotAt(3, now), env)
		require.ErrorContains(t, err, validator.ADMIN_NOT_FOUND)
	})

	t.Run("remove_admin", func(t *testing.T) {
		env := signEnvelope(t, adminPriv, protocol.RemoveAdminPayload{AdminPubkey: otherPubkey})
		require.NoError(t, p.RemoveAdmin(ctx, slotAt(4, now), env))

		isAdmin, err := repo.IsAdmin(ctx, otherPubkey)
		require.NoError(t, err)
		assert.False(t, isAdmin)
	})

	t.Run("cannot_remove_last_admin", func(t *testing.T) {
		adminPubkey := hex.EncodeToString(adminPriv.PubKey().SerializeCompressed())
		env := signEnvelope(t, adminPriv, protocol.RemoveAdminPayload{AdminPubkey: adminPubkey})
		err := p.RemoveAdmin(ctx, slotAt(5, now), env)
		require.ErrorContains(t, err, validator.CANNOT_REMOVE_LAST)
	})
}

func TestRejectsTamperedSignature(t *testing.T) {
	ctx := context.Background()
	p, _, adminPriv := newTestProcessor(t)
	now := time.Now()

	_, otherPubkey := newKeypair(t)
	env := signEnvelope(t, adminPriv, protocol.AddAdminPayload{AdminPubkey: otherPubkey})
	env.Payload = json.RawMessage(`{"admin_pubkey":"tampered"}`)
	err := p.AddAdmin(ctx, slotAt(1, now), env)
	require.ErrorContains(t, err, validator.INVALID_SIGNATURE)
}

func TestChangeConfig(t *testing.T) {
	ctx := context.Background()
	p, repo, adminPriv := newTestProcessor(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty_registry_rejected", func(t *testing.T) {
		env := signEnvelope(t, adminPriv, protocol.ChangeVestingRegistryPayload{})
		err := p.ChangeVestingRegistry(ctx, slotAt(1, now), env)
		require.ErrorContains(t, err, validator.REGISTRY_EMPTY)
	})

	t.Run("zero_timestamp_rejected", func(t *testing.T) {
		env := signEnvelope(t, adminPriv, protocol.ChangeWaitedTimestampPayload{})
		err := p.ChangeWaitedTimestamp(ctx, slotAt(2, now), env)
		require.ErrorContains(t, err, validator.TIMESTAMP_ZERO)
	})

	t.Run("change_registry_and_timestamp", func(t *testing.T) {
		waitedAt := now.Add(30 * 24 * time.Hour)
		env := signEnvelope(t, adminPriv, protocol.ChangeVestingRegistryPayload{VestingRegistry: "registry-v2"})
		require.NoError(t, p.ChangeVestingRegistry(ctx, slotAt(3, now), env))

		env = signEnvelope(t, adminPriv, protocol.ChangeWaitedTimestampPayload{WaitedTimestamp: waitedAt})
		require.NoError(t, p.ChangeWaitedTimestamp(ctx, slotAt(4, now), env))

		config, err := repo.GetConfig(ctx)
		require.NoError(t, err)
		require.NotNil(t, config)
		assert.Equal(t, "registry-v2", config.VestingRegistry)
		assert.True(t, config.WaitedTimestamp.Equal(waitedAt))
	})
}

func TestDepositValidation(t *testing.T) {
	ctx := context.Background()
	p, _, adminPriv := newTestProcessor(t)
	now := time.Now()

	t.Run("zero_amount", func(t *testing.T) {
		env := signEnvelope(t, adminPriv, protocol.DepositWaitedUnlockedPayload{
			Beneficiary: "wallet-a",
		})
		err := p.DepositWaitedUnlocked(ctx, slotAt(1, now), env)
		require.ErrorContains(t, err, validator.AMOUNT_ZERO)
	})

	t.Run("zero_duration", func(t *testing.T) {
		env := signEnvelope(t, adminPriv, protocol.DepositVestedPayload{
			Beneficiary: "wallet-a",
			Amount:      uint128.From64(1000),
		})
		err := p.DepositVested(ctx, slotAt(2, now), env)
		require.ErrorContains(t, err, "duration cannot be zero")
	})

	t.Run("duration_too_long", func(t *testing.T) {
		env := signEnvelope(t, adminPriv, protocol.DepositVestedPayload{
			Beneficiary: "wallet-a",
			Amount:      uint128.From64(1000),
			Duration:    validator.MaxLockDuration + time.Hour,
		})
		err := p.DepositVested(ctx, slotAt(3, now), env)
		require.ErrorContains(t, err, "duration is too long")
	})

	t.Run("highest_valid_unlock_bp", func(t *testing.T) {
		env := signEnvelope(t, adminPriv, protocol.DepositWaitedUnlockedPayload{
			Beneficiary: "wallet-a",
			Amount:      uint128.From64(1000),
			UnlockBP:    9999,
		})
		require.NoError(t, p.DepositWaitedUnlocked(ctx, slotAt(4, now), env))
	})

	t.Run("full_unlock_bp", func(t *testing.T) {
		env := signEnvelope(t, adminPriv, protocol.DepositWaitedUnlockedPayload{
			Beneficiary: "wallet-a",
			Amount:      uint128.From64(1000),
			UnlockBP:    10000,
		})
		err := p.DepositWaitedUnlocked(ctx, slotAt(5, now), env)
		require.ErrorContains(t, err, validator.INVALID_UNLOCK_BP)
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	p, repo, adminPriv := newTestProcessor(t)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	beneficiaryPriv, _ := newKeypair(t)
	beneficiary := walletAddress(t, beneficiaryPriv)

	// one vested lock (10% immediate, 10h linear) and one waited lock
	env := signEnvelope(t, adminPriv, protocol.DepositVestedPayload{
		Beneficiary: beneficiary,
		Amount:      uint128.From64(1000),
		UnlockBP:    1000,
		Duration:    10 * time.Hour,
		SourceRef:   "test:vested",
	})
	require.NoError(t, p.DepositVested(ctx, slotAt(1, start), env))

	env = signEnvelope(t, adminPriv, protocol.DepositWaitedUnlockedPayload{
		Beneficiary: beneficiary,
		Amount:      uint128.From64(500),
		SourceRef:   "test:waited",
	})
	require.NoError(t, p.DepositWaitedUnlocked(ctx, slotAt(2, start), env))

	waitedAt := start.Add(24 * time.Hour)
	env = signEnvelope(t, adminPriv, protocol.ChangeWaitedTimestampPayload{WaitedTimestamp: waitedAt})
	require.NoError(t, p.ChangeWaitedTimestamp(ctx, slotAt(3, start), env))

	t.Run("withdraw_immediate_portion", func(t *testing.T) {
		env := signEnvelope(t, beneficiaryPriv, protocol.WithdrawPayload{})
		result, err := p.Withdraw(ctx, slotAt(4, start), env)
		require.NoError(t, err)
		assert.Equal(t, beneficiary, result.Beneficiary)
		assert.Equal(t, uint128.From64(100), result.Amount)
		assert.Equal(t, 0, result.LocksClosed)
	})

	t.Run("nothing_more_at_same_instant", func(t *testing.T) {
		env := signEnvelope(t, beneficiaryPriv, protocol.WithdrawPayload{})
		_, err := p.Withdraw(ctx, slotAt(5, start), env)
		require.ErrorContains(t, err, validator.NOTHING_TO_WITHDRAW)
	})

	t.Run("withdraw_half_vested", func(t *testing.T) {
		env := signEnvelope(t, beneficiaryPriv, protocol.WithdrawPayload{})
		result, err := p.Withdraw(ctx, slotAt(6, start.Add(5*time.Hour)), env)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(450), result.Amount)
		assert.Equal(t, 0, result.LocksClosed)
	})

	t.Run("withdraw_everything_after_waited", func(t *testing.T) {
		env := signEnvelope(t, beneficiaryPriv, protocol.WithdrawPayload{})
		result, err := p.Withdraw(ctx, slotAt(7, start.Add(48*time.Hour)), env)
		require.NoError(t, err)
		// vested remainder 450 plus the full waited principal 500
		assert.Equal(t, uint128.From64(950), result.Amount)
		assert.Equal(t, 2, result.LocksClosed)

		locks, err := repo.GetLocksByBeneficiary(ctx, beneficiary)
		require.NoError(t, err)
		assert.Empty(t, locks, "exhausted locks are deleted")
	})

	t.Run("stranger_has_nothing", func(t *testing.T) {
		strangerPriv, _ := newKeypair(t)
		env := signEnvelope(t, strangerPriv, protocol.WithdrawPayload{})
		_, err := p.Withdraw(ctx, slotAt(8, start.Add(48*time.Hour)), env)
		require.ErrorContains(t, err, validator.NOTHING_TO_WITHDRAW)
	})
}
