package datagateway

import (
	"context"

	"github.com/origins-network/sale-engine/modules/lockedfund/internal/entity"
)

type LockedFundDataGateway interface {
	BeginLockedFundTx(ctx context.Context) (LockedFundDataGatewayWithTx, error)

	// locks
	CreateLock(ctx context.Context, lock entity.LockRecord) (uint64, error)
	GetLock(ctx context.Context, lockId uint64) (*entity.LockRecord, error)
	GetLocksByBeneficiary(ctx context.Context, beneficiary string) ([]entity.LockRecord, error)
	UpdateLock(ctx context.Context, lock entity.LockRecord) error
	DeleteLock(ctx context.Context, lockId uint64) error

	// admins
	IsAdmin(ctx context.Context, pubkey string) (bool, error)
	GetAdmins(ctx context.Context) ([]entity.AdminEntry, error)
	CountAdmins(ctx context.Context) (int64, error)
	AddAdmin(ctx context.Context, admin entity.AdminEntry) error
	RemoveAdmin(ctx context.Context, pubkey string) error

	// fund-wide config
	GetConfig(ctx context.Context) (*entity.FundConfig, error)
	SetConfig(ctx context.Context, config entity.FundConfig) error
}

type LockedFundDataGatewayWithTx interface {
	LockedFundDataGateway
	Tx
}
