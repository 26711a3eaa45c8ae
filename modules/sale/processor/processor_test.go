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
	"github.com/origins-network/sale-engine/modules/lockedfund"
	lockedfundentity "github.com/origins-network/sale-engine/modules/lockedfund/internal/entity"
	lockedfundmemory "github.com/origins-network/sale-engine/modules/lockedfund/repository/memory"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
	adminvalidator "github.com/origins-network/sale-engine/modules/sale/internal/validator/admin"
	purchasevalidator "github.com/origins-network/sale-engine/modules/sale/internal/validator/purchase"
	"github.com/origins-network/sale-engine/modules/sale/internal/verification"
	"github.com/origins-network/sale-engine/modules/sale/protocol"
	salememory "github.com/origins-network/sale-engine/modules/sale/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saleStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

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

type testDistribution struct {
	engine *lockedfund.Engine
}

func (d testDistribution) Begin(ctx context.Context) (DistributionSession, error) {
	return d.engine.Begin(ctx)
}

type stubStakes struct {
	stakes map[string]uint64
}

func (s stubStakes) StakeAtBlock(ctx context.Context, stakingRef string, wallet string, blockNumber uint64) (uint128.Uint128, error) {
	return uint128.From64(s.stakes[wallet]), nil
}

func (s stubStakes) StakeAtTime(ctx context.Context, stakingRef string, wallet string, at time.Time) (uint128.Uint128, error) {
	return uint128.From64(s.stakes[wallet]), nil
}

type testEnv struct {
	processor *Processor
	saleRepo  *salememory.Repository
	fundRepo  *lockedfundmemory.Repository
	ownerPriv *btcec.PrivateKey
	nextSeq   uint64
}

func newTestEnv(t *testing.T, stakes verification.StakeSource) *testEnv {
	t.Helper()
	saleRepo := salememory.NewRepository()
	fundRepo := lockedfundmemory.NewRepository()
	distribution := testDistribution{engine: lockedfund.NewEngine(fundRepo)}
	p := NewProcessor(saleRepo, distribution, verification.NewRegistry(stakes), common.NetworkMainnet, nil)

	ownerPriv, ownerPubkey := newKeypair(t)
	require.NoError(t, p.EnsureOwner(context.Background(), ownerPubkey))
	return &testEnv{
		processor: p,
		saleRepo:  saleRepo,
		fundRepo:  fundRepo,
		ownerPriv: ownerPriv,
	}
}

func (e *testEnv) slot(at time.Time) sequencer.Slot {
	e.nextSeq++
	return slotAt(e.nextSeq, at)
}

func baseTierConfig() protocol.TierConfig {
	return protocol.TierConfig{
		MinAmount:         uint128.From64(10),
		MaxAmount:         uint128.From64(100),
		InitialAllocation: uint128.From64(1000),
		SaleStartAt:       saleStart,
		SaleEndType:       entity.SaleEndUntilSupply.String(),
		DepositRate:       decimal.NewFromInt(2),
		VerificationType:  entity.VerificationEveryone.String(),
		TransferType:      entity.TransferUnlocked.String(),
		SaleType:          entity.SaleTypeFCFS.String(),
	}
}

func (e *testEnv) createTier(t *testing.T, cfg protocol.TierConfig) uint64 {
	t.Helper()
	env := signEnvelope(t, e.ownerPriv, protocol.CreateTierPayload{Tiers: []protocol.TierConfig{cfg}})
	ids, err := e.processor.CreateTiers(context.Background(), e.slot(saleStart.Add(-time.Hour)), env)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	return ids[0]
}

func (e *testEnv) purchase(t *testing.T, priv *btcec.PrivateKey, tierId uint64, deposit uint64, at time.Time) (*PurchaseResult, error) {
	t.Helper()
	env := signEnvelope(t, priv, protocol.PurchasePayload{TierID: tierId, DepositAmount: uint128.From64(deposit)})
	return e.processor.Purchase(context.Background(), e.slot(at), env)
}

func TestCreateTiers(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)

	t.Run("owner_creates_batch", func(t *testing.T) {
		env := signEnvelope(t, e.ownerPriv, protocol.CreateTierPayload{
			Tiers: []protocol.TierConfig{baseTierConfig(), baseTierConfig()},
		})
		ids, err := e.processor.CreateTiers(ctx, e.slot(saleStart), env)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2}, ids)

		tier, err := e.saleRepo.GetTier(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, tier)
		assert.Equal(t, uint128.From64(1000), tier.RemainingTokens)
		assert.Equal(t, entity.DepositAssetNative, tier.DepositAsset)
	})

	t.Run("non_owner_rejected", func(t *testing.T) {
		strangerPriv, _ := newKeypair(t)
		env := signEnvelope(t, strangerPriv, protocol.CreateTierPayload{Tiers: []protocol.TierConfig{baseTierConfig()}})
		_, err := e.processor.CreateTiers(ctx, e.slot(saleStart), env)
		require.ErrorContains(t, err, "not authorized")
	})

	t.Run("bad_config_rejects_whole_batch", func(t *testing.T) {
		bad := baseTierConfig()
		bad.MinAmount = uint128.From64(200)
		env := signEnvelope(t, e.ownerPriv, protocol.CreateTierPayload{
			Tiers: []protocol.TierConfig{baseTierConfig(), bad},
		})
		_, err := e.processor.CreateTiers(ctx, e.slot(saleStart), env)
		require.ErrorContains(t, err, adminvalidator.INVALID_AMOUNT_BOUNDS)

		tiers, err := e.saleRepo.GetTiers(ctx)
		require.NoError(t, err)
		assert.Len(t, tiers, 2, "a rejected batch must not create any tier")
	})

	t.Run("unconfigured_selector_rejected", func(t *testing.T) {
		bad := baseTierConfig()
		bad.VerificationType = entity.VerificationNone.String()
		env := signEnvelope(t, e.ownerPriv, protocol.CreateTierPayload{Tiers: []protocol.TierConfig{bad}})
		_, err := e.processor.CreateTiers(ctx, e.slot(saleStart), env)
		require.ErrorContains(t, err, adminvalidator.SELECTOR_UNSET)
	})
}

func TestPurchaseFCFS(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	tierId := e.createTier(t, baseTierConfig())
	buyerPriv, _ := newKeypair(t)
	buyer := walletAddress(t, buyerPriv)
	at := saleStart.Add(time.Minute)

	t.Run("settles_immediately", func(t *testing.T) {
		result, err := e.purchase(t, buyerPriv, tierId, 50, at)
		require.NoError(t, err)
		assert.Equal(t, buyer, result.Wallet)
		assert.Equal(t, uint128.From64(100), result.TokenAmount, "deposit 50 at rate 2")
		assert.True(t, result.Settled)

		tier, err := e.saleRepo.GetTier(ctx, tierId)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(900), tier.RemainingTokens)
		assert.Equal(t, uint128.From64(100), tier.TotalSold)
		assert.Equal(t, uint128.From64(50), tier.TotalDeposited)
		assert.Equal(t, uint64(1), tier.ParticipantCount)

		ledger, err := e.saleRepo.GetLedgerEntry(ctx, buyer, tierId)
		require.NoError(t, err)
		require.NotNil(t, ledger)
		assert.Equal(t, uint128.From64(50), ledger.DepositAmount)
		assert.Equal(t, uint128.From64(100), ledger.TokenAmount)
	})

	t.Run("below_minimum_leaves_no_trace", func(t *testing.T) {
		otherPriv, _ := newKeypair(t)
		_, err := e.purchase(t, otherPriv, tierId, 5, at)
		require.ErrorContains(t, err, purchasevalidator.AMOUNT_BELOW_MINIMUM)

		tier, err := e.saleRepo.GetTier(ctx, tierId)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(900), tier.RemainingTokens, "rejected purchase must not mutate the tier")
		assert.Equal(t, uint64(1), tier.ParticipantCount)
	})

	t.Run("cumulative_limit_per_address", func(t *testing.T) {
		// buyer already deposited 50 against a cap of 100
		result, err := e.purchase(t, buyerPriv, tierId, 50, at)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(100), result.TokenAmount)

		_, err = e.purchase(t, buyerPriv, tierId, 10, at)
		require.ErrorContains(t, err, purchasevalidator.OVER_LIMIT_PER_ADDR)
	})

	t.Run("repeat_purchase_keeps_participant_count", func(t *testing.T) {
		tier, err := e.saleRepo.GetTier(ctx, tierId)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), tier.ParticipantCount)
	})
}

func TestPurchaseSupplyExhaustion(t *testing.T) {
	e := newTestEnv(t, nil)
	cfg := baseTierConfig()
	cfg.InitialAllocation = uint128.From64(100)
	tierId := e.createTier(t, cfg)
	at := saleStart.Add(time.Minute)

	buyerPriv, _ := newKeypair(t)
	_, err := e.purchase(t, buyerPriv, tierId, 60, at)
	require.ErrorContains(t, err, purchasevalidator.INSUFFICIENT_SUPPLY, "deposit 60 at rate 2 wants 120 of 100 tokens")

	result, err := e.purchase(t, buyerPriv, tierId, 50, at)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(100), result.TokenAmount)

	// until_supply tiers end once remaining tokens hit zero
	otherPriv, _ := newKeypair(t)
	_, err = e.purchase(t, otherPriv, tierId, 10, at)
	require.ErrorContains(t, err, purchasevalidator.SALE_NOT_OPEN)
}

func TestPurchaseNonIntegralTokens(t *testing.T) {
	e := newTestEnv(t, nil)
	cfg := baseTierConfig()
	cfg.DepositRate = decimal.RequireFromString("1.5")
	tierId := e.createTier(t, cfg)

	buyerPriv, _ := newKeypair(t)
	_, err := e.purchase(t, buyerPriv, tierId, 15, saleStart.Add(time.Minute))
	require.ErrorContains(t, err, purchasevalidator.NON_INTEGRAL_TOKENS, "15 * 1.5 = 22.5 tokens")

	result, err := e.purchase(t, buyerPriv, tierId, 20, saleStart.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(30), result.TokenAmount)
}

func TestPurchaseSaleWindow(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	buyerPriv, _ := newKeypair(t)

	t.Run("before_start", func(t *testing.T) {
		tierId := e.createTier(t, baseTierConfig())
		_, err := e.purchase(t, buyerPriv, tierId, 50, saleStart.Add(-time.Minute))
		require.ErrorContains(t, err, purchasevalidator.SALE_NOT_OPEN)
	})

	t.Run("after_duration_end", func(t *testing.T) {
		cfg := baseTierConfig()
		cfg.SaleEndType = entity.SaleEndDuration.String()
		cfg.SaleEndDuration = time.Hour
		tierId := e.createTier(t, cfg)

		_, err := e.purchase(t, buyerPriv, tierId, 50, saleStart.Add(2*time.Hour))
		require.ErrorContains(t, err, purchasevalidator.SALE_NOT_OPEN)
	})

	t.Run("after_timestamp_end", func(t *testing.T) {
		cfg := baseTierConfig()
		cfg.SaleEndType = entity.SaleEndTimestamp.String()
		cfg.SaleEndAt = saleStart.Add(time.Hour)
		tierId := e.createTier(t, cfg)

		_, err := e.purchase(t, buyerPriv, tierId, 50, saleStart.Add(time.Hour))
		require.ErrorContains(t, err, purchasevalidator.SALE_NOT_OPEN)
	})

	t.Run("closed_early", func(t *testing.T) {
		tierId := e.createTier(t, baseTierConfig())
		env := signEnvelope(t, e.ownerPriv, protocol.CloseTierPayload{TierID: tierId})
		require.NoError(t, e.processor.CloseTierEarly(ctx, e.slot(saleStart.Add(time.Minute)), env))

		_, err := e.purchase(t, buyerPriv, tierId, 50, saleStart.Add(2*time.Minute))
		require.ErrorContains(t, err, purchasevalidator.SALE_NOT_OPEN)
	})
}

func TestPurchaseByAddressVerification(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	cfg := baseTierConfig()
	cfg.VerificationType = entity.VerificationByAddress.String()
	tierId := e.createTier(t, cfg)
	at := saleStart.Add(time.Minute)

	buyerPriv, _ := newKeypair(t)
	buyer := walletAddress(t, buyerPriv)

	t.Run("unverified_rejected", func(t *testing.T) {
		_, err := e.purchase(t, buyerPriv, tierId, 50, at)
		require.ErrorContains(t, err, purchasevalidator.ADDRESS_NOT_VERIFIED)
	})

	verifierPriv, verifierPubkey := newKeypair(t)

	t.Run("verifier_must_hold_role", func(t *testing.T) {
		env := signEnvelope(t, verifierPriv, protocol.SetAddressVerifiedPayload{TierID: tierId, Wallet: buyer})
		err := e.processor.SetAddressVerified(ctx, e.slot(at), env)
		require.ErrorContains(t, err, "not authorized")
	})

	t.Run("approved_wallet_can_buy", func(t *testing.T) {
		env := signEnvelope(t, e.ownerPriv, protocol.AddVerifierPayload{VerifierPubkey: verifierPubkey})
		require.NoError(t, e.processor.AddVerifier(ctx, e.slot(at), env))

		env = signEnvelope(t, verifierPriv, protocol.SetAddressVerifiedPayload{TierID: tierId, Wallet: buyer})
		require.NoError(t, e.processor.SetAddressVerified(ctx, e.slot(at), env))

		result, err := e.purchase(t, buyerPriv, tierId, 50, at)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(100), result.TokenAmount)
	})
}

func TestPurchaseByStake(t *testing.T) {
	ctx := context.Background()
	richPriv, _ := newKeypair(t)
	poorPriv, _ := newKeypair(t)
	stakes := stubStakes{stakes: map[string]uint64{}}
	e := newTestEnv(t, stakes)
	stakes.stakes[walletAddress(t, richPriv)] = 500
	stakes.stakes[walletAddress(t, poorPriv)] = 50

	cfg := baseTierConfig()
	cfg.VerificationType = entity.VerificationByStake.String()
	tierId := e.createTier(t, cfg)
	at := saleStart.Add(time.Minute)

	t.Run("condition_unset_rejects", func(t *testing.T) {
		_, err := e.purchase(t, richPriv, tierId, 50, at)
		require.ErrorContains(t, err, purchasevalidator.STAKE_CONDITION_UNSET)
	})

	env := signEnvelope(t, e.ownerPriv, protocol.SetStakeConditionPayload{
		TierID:       tierId,
		MinStake:     uint128.From64(100),
		MaxStake:     uint128.From64(1000),
		BlockNumbers: []uint64{1000},
	})
	require.NoError(t, e.processor.SetStakeCondition(ctx, e.slot(at), env))

	t.Run("stake_in_range", func(t *testing.T) {
		result, err := e.purchase(t, richPriv, tierId, 50, at)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(100), result.TokenAmount)
	})

	t.Run("stake_below_minimum", func(t *testing.T) {
		_, err := e.purchase(t, poorPriv, tierId, 50, at)
		require.ErrorContains(t, err, purchasevalidator.STAKE_OUT_OF_RANGE)
	})
}

func TestPooledClaim(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	cfg := baseTierConfig()
	cfg.SaleType = entity.SaleTypePooled.String()
	cfg.SaleEndType = entity.SaleEndTimestamp.String()
	cfg.SaleEndAt = saleStart.Add(time.Hour)
	cfg.InitialAllocation = uint128.From64(100)
	cfg.MaxAmount = uint128.From64(200)
	cfg.DepositRate = decimal.NewFromInt(1)
	tierId := e.createTier(t, cfg)

	during := saleStart.Add(time.Minute)
	after := saleStart.Add(2 * time.Hour)

	alicePriv, _ := newKeypair(t)
	bobPriv, _ := newKeypair(t)
	alice := walletAddress(t, alicePriv)

	claim := func(priv *btcec.PrivateKey, at time.Time) (*ClaimResult, error) {
		env := signEnvelope(t, priv, protocol.ClaimPooledPayload{TierID: tierId})
		return e.processor.ClaimPooled(ctx, e.slot(at), env)
	}

	t.Run("purchase_escrows_without_settling", func(t *testing.T) {
		result, err := e.purchase(t, alicePriv, tierId, 80, during)
		require.NoError(t, err)
		assert.False(t, result.Settled)
		assert.True(t, result.TokenAmount.IsZero())

		_, err = e.purchase(t, bobPriv, tierId, 120, during)
		require.NoError(t, err)

		tier, err := e.saleRepo.GetTier(ctx, tierId)
		require.NoError(t, err)
		assert.True(t, tier.TotalSold.IsZero(), "escrowed deposits sell nothing yet")
		assert.Equal(t, uint64(2), tier.ParticipantCount)
	})

	t.Run("claim_before_end_rejected", func(t *testing.T) {
		_, err := claim(alicePriv, during)
		require.ErrorContains(t, err, purchasevalidator.SALE_NOT_ENDED)
	})

	t.Run("oversubscribed_pro_rata", func(t *testing.T) {
		// demand 200 tokens against an allocation of 100: everyone is halved
		result, err := claim(alicePriv, after)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(40), result.UsedDeposit)
		assert.Equal(t, uint128.From64(40), result.TokenAmount)
		assert.Equal(t, uint128.From64(40), result.Refund)

		ledger, err := e.saleRepo.GetLedgerEntry(ctx, alice, tierId)
		require.NoError(t, err)
		require.NotNil(t, ledger)
		assert.Equal(t, uint128.From64(40), ledger.DepositAmount, "refund leaves the position")
		assert.Equal(t, uint128.From64(40), ledger.TokenAmount)
	})

	t.Run("second_claim_rejected", func(t *testing.T) {
		_, err := claim(alicePriv, after)
		require.ErrorContains(t, err, purchasevalidator.ALREADY_CLAIMED)
	})

	t.Run("later_claim_uses_same_denominator", func(t *testing.T) {
		result, err := claim(bobPriv, after)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(60), result.UsedDeposit)
		assert.Equal(t, uint128.From64(60), result.TokenAmount)
		assert.Equal(t, uint128.From64(60), result.Refund)

		tier, err := e.saleRepo.GetTier(ctx, tierId)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(100), tier.TotalSold)
		assert.True(t, tier.RemainingTokens.IsZero())
	})

	t.Run("no_escrow_rejected", func(t *testing.T) {
		strangerPriv, _ := newKeypair(t)
		_, err := claim(strangerPriv, after)
		require.ErrorContains(t, err, purchasevalidator.NO_ESCROW)
	})
}

func TestPooledClaimUndersubscribed(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	cfg := baseTierConfig()
	cfg.SaleType = entity.SaleTypePooled.String()
	cfg.SaleEndType = entity.SaleEndTimestamp.String()
	cfg.SaleEndAt = saleStart.Add(time.Hour)
	cfg.DepositRate = decimal.NewFromInt(1)
	tierId := e.createTier(t, cfg)

	alicePriv, _ := newKeypair(t)
	_, err := e.purchase(t, alicePriv, tierId, 50, saleStart.Add(time.Minute))
	require.NoError(t, err)

	env := signEnvelope(t, alicePriv, protocol.ClaimPooledPayload{TierID: tierId})
	result, err := e.processor.ClaimPooled(ctx, e.slot(saleStart.Add(2*time.Hour)), env)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(50), result.UsedDeposit)
	assert.Equal(t, uint128.From64(50), result.TokenAmount)
	assert.True(t, result.Refund.IsZero())
}

func TestWithdrawProceeds(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	cfg := baseTierConfig()
	cfg.SaleEndType = entity.SaleEndTimestamp.String()
	cfg.SaleEndAt = saleStart.Add(time.Hour)
	tierId := e.createTier(t, cfg)
	after := saleStart.Add(2 * time.Hour)

	buyerPriv, _ := newKeypair(t)
	_, err := e.purchase(t, buyerPriv, tierId, 50, saleStart.Add(time.Minute))
	require.NoError(t, err)

	withdraw := func(at time.Time) (*WithdrawResult, error) {
		env := signEnvelope(t, e.ownerPriv, protocol.WithdrawProceedsPayload{TierID: tierId})
		return e.processor.WithdrawProceeds(ctx, e.slot(at), env)
	}

	t.Run("before_end_rejected", func(t *testing.T) {
		_, err := withdraw(saleStart.Add(time.Minute))
		require.ErrorContains(t, err, adminvalidator.SALE_NOT_ENDED)
	})

	t.Run("requires_deposit_address", func(t *testing.T) {
		_, err := withdraw(after)
		require.ErrorContains(t, err, adminvalidator.NO_DEPOSIT_ADDRESS)
	})

	t.Run("withdraws_total_deposits", func(t *testing.T) {
		env := signEnvelope(t, e.ownerPriv, protocol.SetTierDepositPayload{
			TierID:         tierId,
			DepositAddress: "treasury-main",
		})
		require.NoError(t, e.processor.SetTierDeposit(ctx, e.slot(after), env))

		result, err := withdraw(after)
		require.NoError(t, err)
		assert.Equal(t, uint128.From64(50), result.Amount)
		assert.Equal(t, "treasury-main", result.DepositAddress)
		assert.Equal(t, entity.DepositAssetNative, result.DepositAsset)
	})

	t.Run("second_withdrawal_rejected", func(t *testing.T) {
		_, err := withdraw(after)
		require.ErrorContains(t, err, adminvalidator.ALREADY_WITHDRAWN)
	})
}

func TestTransferRoutesThroughLockedFund(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, nil)
	at := saleStart.Add(time.Minute)
	buyerPriv, _ := newKeypair(t)
	buyer := walletAddress(t, buyerPriv)

	locksOf := func(t *testing.T) []lockedfundentity.LockRecord {
		locks, err := e.fundRepo.GetLocksByBeneficiary(ctx, buyer)
		require.NoError(t, err)
		return locks
	}

	t.Run("unlocked_tier_creates_no_lock", func(t *testing.T) {
		tierId := e.createTier(t, baseTierConfig())
		_, err := e.purchase(t, buyerPriv, tierId, 50, at)
		require.NoError(t, err)
		assert.Empty(t, locksOf(t))
	})

	t.Run("vested_tier_creates_vested_lock", func(t *testing.T) {
		cfg := baseTierConfig()
		cfg.TransferType = entity.TransferVested.String()
		cfg.UnlockBP = 1000
		cfg.VestCliff = time.Hour
		cfg.VestDuration = 10 * time.Hour
		tierId := e.createTier(t, cfg)

		_, err := e.purchase(t, buyerPriv, tierId, 50, at)
		require.NoError(t, err)

		locks := locksOf(t)
		require.Len(t, locks, 1)
		assert.Equal(t, lockedfundentity.LockVested, locks[0].Kind)
		assert.Equal(t, uint128.From64(100), locks[0].Principal)
		assert.Equal(t, uint16(1000), locks[0].UnlockBP)
		assert.Equal(t, time.Hour, locks[0].Cliff)
		assert.Equal(t, 10*time.Hour, locks[0].Duration)
		assert.Contains(t, locks[0].SourceRef, "sale:tier:")
	})

	t.Run("locked_tier_has_no_immediate_portion", func(t *testing.T) {
		cfg := baseTierConfig()
		cfg.TransferType = entity.TransferLocked.String()
		cfg.VestDuration = 10 * time.Hour
		tierId := e.createTier(t, cfg)

		_, err := e.purchase(t, buyerPriv, tierId, 50, at)
		require.NoError(t, err)

		locks := locksOf(t)
		require.Len(t, locks, 2)
		assert.Equal(t, uint16(0), locks[1].UnlockBP)
	})

	t.Run("waited_tier_creates_waited_lock", func(t *testing.T) {
		cfg := baseTierConfig()
		cfg.TransferType = entity.TransferWaitedUnlocked.String()
		cfg.UnlockBP = 2500
		tierId := e.createTier(t, cfg)

		_, err := e.purchase(t, buyerPriv, tierId, 50, at)
		require.NoError(t, err)

		locks := locksOf(t)
		require.Len(t, locks, 3)
		assert.Equal(t, lockedfundentity.LockWaitedUnlocked, locks[2].Kind)
		assert.Equal(t, uint16(2500), locks[2].UnlockBP)
	})
}
