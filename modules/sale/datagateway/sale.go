package datagateway

import (
	"context"
	"time"

	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
)

type SaleDataGateway interface {
	BeginSaleTx(ctx context.Context) (SaleDataGatewayWithTx, error)

	// tiers
	CreateTier(ctx context.Context, tier entity.Tier) (uint64, error)
	GetTier(ctx context.Context, tierId uint64) (*entity.Tier, error)
	GetTiers(ctx context.Context) ([]entity.Tier, error)
	UpdateTier(ctx context.Context, tier entity.Tier) error

	// stake conditions
	SetStakeCondition(ctx context.Context, cond entity.StakeCondition) error
	GetStakeCondition(ctx context.Context, tierId uint64) (*entity.StakeCondition, error)

	// roles
	GetRole(ctx context.Context, pubkey string) (*entity.RoleEntry, error)
	SetRole(ctx context.Context, role entity.RoleEntry) error

	// verification flags
	SetAddressVerified(ctx context.Context, flag entity.VerificationFlag) error
	IsAddressVerified(ctx context.Context, wallet string, tierId uint64) (bool, error)

	// purchase ledger
	GetLedgerEntry(ctx context.Context, wallet string, tierId uint64) (*entity.LedgerEntry, error)
	GetLedgerEntriesByWallet(ctx context.Context, wallet string) ([]entity.LedgerEntry, error)
	GetLedgerEntriesByTier(ctx context.Context, tierId uint64) ([]entity.LedgerEntry, error)
	UpsertLedgerEntry(ctx context.Context, ledger entity.LedgerEntry) error

	// pooled escrow
	GetEscrowEntry(ctx context.Context, wallet string, tierId uint64) (*entity.EscrowEntry, error)
	GetEscrowEntriesByTier(ctx context.Context, tierId uint64) ([]entity.EscrowEntry, error)
	GetEscrowTotalByTier(ctx context.Context, tierId uint64) (uint128.Uint128, error)
	UpsertEscrowEntry(ctx context.Context, escrow entity.EscrowEntry) error

	// wallet counters
	GetStats(ctx context.Context) (*entity.Stats, error)
	SetStats(ctx context.Context, stats entity.Stats) error

	// event log
	AddEvent(ctx context.Context, event entity.Event) error
	GetEvents(ctx context.Context, params GetEventsParams) ([]entity.Event, error)
}

type SaleDataGatewayWithTx interface {
	SaleDataGateway
	Tx
}

type GetEventsParams struct {
	Wallet   string
	TierID   *uint64
	FromSeq  uint64
	Limit    int32
	FromTime time.Time
}
