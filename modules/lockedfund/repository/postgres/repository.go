// Package postgres persists the locked fund state. Queries are written by
// hand against the schema in database/migrations.
package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/origins-network/sale-engine/internal/postgres"
	"github.com/origins-network/sale-engine/modules/lockedfund/internal/entity"
)

type Repository struct {
	db postgres.DB
	q  postgres.Queryable
	tx pgx.Tx
}

func NewRepository(db postgres.DB) *Repository {
	return &Repository{
		db: db,
		q:  db,
	}
}

func uint128FromNumeric(src pgtype.Numeric) (uint128.Uint128, error) {
	if !src.Valid {
		return uint128.Uint128{}, nil
	}
	bytes, err := src.MarshalJSON()
	if err != nil {
		return uint128.Uint128{}, errors.WithStack(err)
	}
	result, err := uint128.FromString(string(bytes))
	if err != nil {
		return uint128.Uint128{}, errors.WithStack(err)
	}
	return result, nil
}

func numericFromUint128(src uint128.Uint128) (pgtype.Numeric, error) {
	var result pgtype.Numeric
	err := result.UnmarshalJSON([]byte(src.String()))
	if err != nil {
		return pgtype.Numeric{}, errors.WithStack(err)
	}
	return result, nil
}

const lockColumns = `id, beneficiary, kind, principal, withdrawn, unlock_bp, cliff, duration, start_at, source_ref, created_at, updated_at`

func scanLock(row pgx.Row) (*entity.LockRecord, error) {
	var (
		lock                 entity.LockRecord
		id                   int64
		principal, withdrawn pgtype.Numeric
		unlockBP             int32
		cliff, duration      int64
	)
	err := row.Scan(&id, &lock.Beneficiary, &lock.Kind, &principal, &withdrawn, &unlockBP,
		&cliff, &duration, &lock.StartAt, &lock.SourceRef, &lock.CreatedAt, &lock.UpdatedAt)
	if err != nil {
		return nil, err
	}
	lock.ID = uint64(id)
	lock.UnlockBP = uint16(unlockBP)
	lock.Cliff = time.Duration(cliff)
	lock.Duration = time.Duration(duration)
	if lock.Principal, err = uint128FromNumeric(principal); err != nil {
		return nil, err
	}
	if lock.Withdrawn, err = uint128FromNumeric(withdrawn); err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *Repository) CreateLock(ctx context.Context, lock entity.LockRecord) (uint64, error) {
	principal, err := numericFromUint128(lock.Principal)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	withdrawn, err := numericFromUint128(lock.Withdrawn)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	var id int64
	err = r.q.QueryRow(ctx, `
		INSERT INTO lockedfund_locks (beneficiary, kind, principal, withdrawn, unlock_bp, cliff, duration, start_at, source_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		lock.Beneficiary, lock.Kind, principal, withdrawn, int32(lock.UnlockBP),
		int64(lock.Cliff), int64(lock.Duration), lock.StartAt, lock.SourceRef, lock.CreatedAt, lock.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "cannot insert lock")
	}
	return uint64(id), nil
}

func (r *Repository) GetLock(ctx context.Context, lockId uint64) (*entity.LockRecord, error) {
	row := r.q.QueryRow(ctx, `SELECT `+lockColumns+` FROM lockedfund_locks WHERE id = $1`, int64(lockId))
	lock, err := scanLock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot get lock")
	}
	return lock, nil
}

func (r *Repository) GetLocksByBeneficiary(ctx context.Context, beneficiary string) ([]entity.LockRecord, error) {
	rows, err := r.q.Query(ctx, `SELECT `+lockColumns+` FROM lockedfund_locks WHERE beneficiary = $1 ORDER BY id`, beneficiary)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get locks")
	}
	defer rows.Close()
	var locks []entity.LockRecord
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, errors.Wrap(err, "cannot scan lock")
		}
		locks = append(locks, *lock)
	}
	return locks, errors.WithStack(rows.Err())
}

func (r *Repository) UpdateLock(ctx context.Context, lock entity.LockRecord) error {
	withdrawn, err := numericFromUint128(lock.Withdrawn)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = r.q.Exec(ctx, `
		UPDATE lockedfund_locks SET withdrawn = $2, updated_at = $3 WHERE id = $1`,
		int64(lock.ID), withdrawn, lock.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "cannot update lock")
	}
	return nil
}

func (r *Repository) DeleteLock(ctx context.Context, lockId uint64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM lockedfund_locks WHERE id = $1`, int64(lockId))
	if err != nil {
		return errors.Wrap(err, "cannot delete lock")
	}
	return nil
}

func (r *Repository) IsAdmin(ctx context.Context, pubkey string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lockedfund_admins WHERE pubkey = $1)`, pubkey).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "cannot check admin")
	}
	return exists, nil
}

func (r *Repository) GetAdmins(ctx context.Context) ([]entity.AdminEntry, error) {
	rows, err := r.q.Query(ctx, `SELECT pubkey, added_at FROM lockedfund_admins ORDER BY pubkey`)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get admins")
	}
	defer rows.Close()
	var admins []entity.AdminEntry
	for rows.Next() {
		var admin entity.AdminEntry
		if err := rows.Scan(&admin.Pubkey, &admin.AddedAt); err != nil {
			return nil, errors.Wrap(err, "cannot scan admin")
		}
		admins = append(admins, admin)
	}
	return admins, errors.WithStack(rows.Err())
}

func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM lockedfund_admins`).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "cannot count admins")
	}
	return count, nil
}

func (r *Repository) AddAdmin(ctx context.Context, admin entity.AdminEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO lockedfund_admins (pubkey, added_at) VALUES ($1, $2)
		ON CONFLICT (pubkey) DO NOTHING`,
		admin.Pubkey, admin.AddedAt,
	)
	if err != nil {
		return errors.Wrap(err, "cannot add admin")
	}
	return nil
}

func (r *Repository) RemoveAdmin(ctx context.Context, pubkey string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM lockedfund_admins WHERE pubkey = $1`, pubkey)
	if err != nil {
		return errors.Wrap(err, "cannot remove admin")
	}
	return nil
}

func (r *Repository) GetConfig(ctx context.Context) (*entity.FundConfig, error) {
	var config entity.FundConfig
	err := r.q.QueryRow(ctx, `
		SELECT vesting_registry, waited_timestamp, updated_at FROM lockedfund_config WHERE id`,
	).Scan(&config.VestingRegistry, &config.WaitedTimestamp, &config.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot get config")
	}
	// an unset waited timestamp is stored at or before the epoch
	if !config.WaitedTimestamp.After(time.Unix(0, 0)) {
		config.WaitedTimestamp = time.Time{}
	}
	return &config, nil
}

func (r *Repository) SetConfig(ctx context.Context, config entity.FundConfig) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO lockedfund_config (id, vesting_registry, waited_timestamp, updated_at)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			vesting_registry = EXCLUDED.vesting_registry,
			waited_timestamp = EXCLUDED.waited_timestamp,
			updated_at = EXCLUDED.updated_at`,
		config.VestingRegistry, config.WaitedTimestamp, config.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "cannot upsert config")
	}
	return nil
}
