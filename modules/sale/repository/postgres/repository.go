// Package postgres persists the sale engine state. Queries are written by
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
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
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

const tierColumns = `id, min_amount, max_amount, initial_allocation, remaining_tokens, total_sold, total_deposited,
	sale_start_at, sale_end_type, sale_end_duration, sale_end_at,
	unlock_bp, vest_cliff, vest_duration, deposit_rate, deposit_asset, deposit_address,
	verification_type, transfer_type, sale_type, closed, withdrawn, participant_count, created_at, updated_at`

func scanTier(row pgx.Row) (*entity.Tier, error) {
	var (
		tier                        entity.Tier
		id, participantCount        int64
		minAmount, maxAmount        pgtype.Numeric
		initialAllocation           pgtype.Numeric
		remainingTokens, totalSold  pgtype.Numeric
		totalDeposited, depositRate pgtype.Numeric
		saleEndDuration             int64
		vestCliff, vestDuration     int64
		unlockBP                    int32
	)
	err := row.Scan(
		&id, &minAmount, &maxAmount, &initialAllocation, &remainingTokens, &totalSold, &totalDeposited,
		&tier.SaleStartAt, &tier.SaleEndType, &saleEndDuration, &tier.SaleEndAt,
		&unlockBP, &vestCliff, &vestDuration, &depositRate, &tier.DepositAsset, &tier.DepositAddress,
		&tier.VerificationType, &tier.TransferType, &tier.SaleType, &tier.Closed, &tier.Withdrawn,
		&participantCount, &tier.CreatedAt, &tier.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tier.ID = uint64(id)
	tier.ParticipantCount = uint64(participantCount)
	tier.SaleEndDuration = time.Duration(saleEndDuration)
	tier.VestCliff = time.Duration(vestCliff)
	tier.VestDuration = time.Duration(vestDuration)
	tier.UnlockBP = uint16(unlockBP)
	if tier.MinAmount, err = uint128FromNumeric(minAmount); err != nil {
		return nil, err
	}
	if tier.MaxAmount, err = uint128FromNumeric(maxAmount); err != nil {
		return nil, err
	}
	if tier.InitialAllocation, err = uint128FromNumeric(initialAllocation); err != nil {
		return nil, err
	}
	if tier.RemainingTokens, err = uint128FromNumeric(remainingTokens); err != nil {
		return nil, err
	}
	if tier.TotalSold, err = uint128FromNumeric(totalSold); err != nil {
		return nil, err
	}
	if tier.TotalDeposited, err = uint128FromNumeric(totalDeposited); err != nil {
		return nil, err
	}
	if tier.DepositRate, err = decimalFromNumeric(depositRate); err != nil {
		return nil, err
	}
	return &tier, nil
}

type tierArgs struct {
	minAmount, maxAmount, initialAllocation, remainingTokens, totalSold, totalDeposited, depositRate pgtype.Numeric
}

func tierToArgs(tier entity.Tier) (tierArgs, error) {
	var (
		args tierArgs
		err  error
	)
	if args.minAmount, err = numericFromUint128(tier.MinAmount); err != nil {
		return args, err
	}
	if args.maxAmount, err = numericFromUint128(tier.MaxAmount); err != nil {
		return args, err
	}
	if args.initialAllocation, err = numericFromUint128(tier.InitialAllocation); err != nil {
		return args, err
	}
	if args.remainingTokens, err = numericFromUint128(tier.RemainingTokens); err != nil {
		return args, err
	}
	if args.totalSold, err = numericFromUint128(tier.TotalSold); err != nil {
		return args, err
	}
	if args.totalDeposited, err = numericFromUint128(tier.TotalDeposited); err != nil {
		return args, err
	}
	if args.depositRate, err = numericFromDecimal(tier.DepositRate); err != nil {
		return args, err
	}
	return args, nil
}

func (r *Repository) CreateTier(ctx context.Context, tier entity.Tier) (uint64, error) {
	args, err := tierToArgs(tier)
	if err != nil {
		return 0, errors.Wrap(err, "cannot map tier amounts")
	}
	var id int64
	err = r.q.QueryRow(ctx, `
		INSERT INTO sale_tiers (min_amount, max_amount, initial_allocation, remaining_tokens, total_sold, total_deposited,
			sale_start_at, sale_end_type, sale_end_duration, sale_end_at,
			unlock_bp, vest_cliff, vest_duration, deposit_rate, deposit_asset, deposit_address,
			verification_type, transfer_type, sale_type, closed, withdrawn, participant_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id`,
		args.minAmount, args.maxAmount, args.initialAllocation, args.remainingTokens, args.totalSold, args.totalDeposited,
		tier.SaleStartAt, tier.SaleEndType, int64(tier.SaleEndDuration), tier.SaleEndAt,
		int32(tier.UnlockBP), int64(tier.VestCliff), int64(tier.VestDuration), args.depositRate, tier.DepositAsset, tier.DepositAddress,
		tier.VerificationType, tier.TransferType, tier.SaleType, tier.Closed, tier.Withdrawn,
		int64(tier.ParticipantCount), tier.CreatedAt, tier.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "cannot insert tier")
	}
	return uint64(id), nil
}

func (r *Repository) GetTier(ctx context.Context, tierId uint64) (*entity.Tier, error) {
	row := r.q.QueryRow(ctx, `SELECT `+tierColumns+` FROM sale_tiers WHERE id = $1`, int64(tierId))
	tier, err := scanTier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot get tier")
	}
	return tier, nil
}

func (r *Repository) GetTiers(ctx context.Context) ([]entity.Tier, error) {
	rows, err := r.q.Query(ctx, `SELECT `+tierColumns+` FROM sale_tiers ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get tiers")
	}
	defer rows.Close()
	var tiers []entity.Tier
	for rows.Next() {
		tier, err := scanTier(rows)
		if err != nil {
			return nil, errors.Wrap(err, "cannot scan tier")
		}
		tiers = append(tiers, *tier)
	}
	return tiers, errors.WithStack(rows.Err())
}

func (r *Repository) UpdateTier(ctx context.Context, tier entity.Tier) error {
	args, err := tierToArgs(tier)
	if err != nil {
		return errors.Wrap(err, "cannot map tier amounts")
	}
	_, err = r.q.Exec(ctx, `
		UPDATE sale_tiers SET
			min_amount = $2, max_amount = $3, initial_allocation = $4, remaining_tokens = $5,
			total_sold = $6, total_deposited = $7, sale_start_at = $8, sale_end_type = $9,
			sale_end_duration = $10, sale_end_at = $11, unlock_bp = $12, vest_cliff = $13,
			vest_duration = $14, deposit_rate = $15, deposit_asset = $16, deposit_address = $17,
			verification_type = $18, transfer_type = $19, sale_type = $20, closed = $21,
			withdrawn = $22, participant_count = $23, updated_at = $24
		WHERE id = $1`,
		int64(tier.ID),
		args.minAmount, args.maxAmount, args.initialAllocation, args.remainingTokens,
		args.totalSold, args.totalDeposited, tier.SaleStartAt, tier.SaleEndType,
		int64(tier.SaleEndDuration), tier.SaleEndAt, int32(tier.UnlockBP), int64(tier.VestCliff),
		int64(tier.VestDuration), args.depositRate, tier.DepositAsset, tier.DepositAddress,
		tier.VerificationType, tier.TransferType, tier.SaleType, tier.Closed,
		tier.Withdrawn, int64(tier.ParticipantCount), tier.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "cannot update tier")
	}
	return nil
}

func (r *Repository) SetStakeCondition(ctx context.Context, cond entity.StakeCondition) error {
	minStake, err := numericFromUint128(cond.MinStake)
	if err != nil {
		return errors.WithStack(err)
	}
	maxStake, err := numericFromUint128(cond.MaxStake)
	if err != nil {
		return errors.WithStack(err)
	}
	blockNumbers := make([]int64, len(cond.BlockNumbers))
	for i, b := range cond.BlockNumbers {
		blockNumbers[i] = int64(b)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO sale_stake_conditions (tier_id, min_stake, max_stake, staking_ref, block_numbers, timestamps)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tier_id) DO UPDATE SET
			min_stake = EXCLUDED.min_stake, max_stake = EXCLUDED.max_stake,
			staking_ref = EXCLUDED.staking_ref, block_numbers = EXCLUDED.block_numbers,
			timestamps = EXCLUDED.timestamps`,
		int64(cond.TierID), minStake, maxStake, cond.StakingRef, blockNumbers, cond.Timestamps,
	)
	if err != nil {
		return errors.Wrap(err, "cannot upsert stake condition")
	}
	return nil
}

func (r *Repository) GetStakeCondition(ctx context.Context, tierId uint64) (*entity.StakeCondition, error) {
	var (
		cond               entity.StakeCondition
		minStake, maxStake pgtype.Numeric
		blockNumbers       []int64
	)
	err := r.q.QueryRow(ctx, `
		SELECT tier_id, min_stake, max_stake, staking_ref, block_numbers, timestamps
		FROM sale_stake_conditions WHERE tier_id = $1`, int64(tierId),
	).Scan(&tierId, &minStake, &maxStake, &cond.StakingRef, &blockNumbers, &cond.Timestamps)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot get stake condition")
	}
	cond.TierID = tierId
	if cond.MinStake, err = uint128FromNumeric(minStake); err != nil {
		return nil, errors.WithStack(err)
	}
	if cond.MaxStake, err = uint128FromNumeric(maxStake); err != nil {
		return nil, errors.WithStack(err)
	}
	cond.BlockNumbers = make([]uint64, len(blockNumbers))
	for i, b := range blockNumbers {
		cond.BlockNumbers[i] = uint64(b)
	}
	return &cond, nil
}

func (r *Repository) GetRole(ctx context.Context, pubkey string) (*entity.RoleEntry, error) {
	var role entity.RoleEntry
	err := r.q.QueryRow(ctx, `SELECT pubkey, role FROM sale_roles WHERE pubkey = $1`, pubkey).
		Scan(&role.Pubkey, &role.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot get role")
	}
	return &role, nil
}

func (r *Repository) SetRole(ctx context.Context, role entity.RoleEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sale_roles (pubkey, role) VALUES ($1, $2)
		ON CONFLICT (pubkey) DO UPDATE SET role = EXCLUDED.role`,
		role.Pubkey, role.Role,
	)
	if err != nil {
		return errors.Wrap(err, "cannot upsert role")
	}
	return nil
}

func (r *Repository) SetAddressVerified(ctx context.Context, flag entity.VerificationFlag) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sale_verifications (wallet, tier_id, approved_by, approved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (wallet, tier_id) DO NOTHING`,
		flag.Wallet, int64(flag.TierID), flag.ApprovedBy, flag.ApprovedAt,
	)
	if err != nil {
		return errors.Wrap(err, "cannot insert verification flag")
	}
	return nil
}

func (r *Repository) IsAddressVerified(ctx context.Context, wallet string, tierId uint64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM sale_verifications WHERE wallet = $1 AND tier_id = $2)`,
		wallet, int64(tierId),
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "cannot get verification flag")
	}
	return exists, nil
}

func scanLedger(row pgx.Row) (*entity.LedgerEntry, error) {
	var (
		ledger          entity.LedgerEntry
		tierId          int64
		deposit, tokens pgtype.Numeric
	)
	err := row.Scan(&ledger.Wallet, &tierId, &deposit, &tokens, &ledger.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ledger.TierID = uint64(tierId)
	if ledger.DepositAmount, err = uint128FromNumeric(deposit); err != nil {
		return nil, err
	}
	if ledger.TokenAmount, err = uint128FromNumeric(tokens); err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *Repository) GetLedgerEntry(ctx context.Context, wallet string, tierId uint64) (*entity.LedgerEntry, error) {
	row := r.q.QueryRow(ctx, `
		SELECT wallet, tier_id, deposit_amount, token_amount, updated_at
		FROM sale_ledger WHERE wallet = $1 AND tier_id = $2`, wallet, int64(tierId))
	ledger, err := scanLedger(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot get ledger entry")
	}
	return ledger, nil
}

func (r *Repository) getLedgerEntries(ctx context.Context, query string, arg any) ([]entity.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get ledger entries")
	}
	defer rows.Close()
	var entries []entity.LedgerEntry
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, errors.Wrap(err, "cannot scan ledger entry")
		}
		entries = append(entries, *ledger)
	}
	return entries, errors.WithStack(rows.Err())
}

func (r *Repository) GetLedgerEntriesByWallet(ctx context.Context, wallet string) ([]entity.LedgerEntry, error) {
	return r.getLedgerEntries(ctx, `
		SELECT wallet, tier_id, deposit_amount, token_amount, updated_at
		FROM sale_ledger WHERE wallet = $1 ORDER BY tier_id`, wallet)
}

func (r *Repository) GetLedgerEntriesByTier(ctx context.Context, tierId uint64) ([]entity.LedgerEntry, error) {
	return r.getLedgerEntries(ctx, `
		SELECT wallet, tier_id, deposit_amount, token_amount, updated_at
		FROM sale_ledger WHERE tier_id = $1 ORDER BY wallet`, int64(tierId))
}

func (r *Repository) UpsertLedgerEntry(ctx context.Context, ledger entity.LedgerEntry) error {
	deposit, err := numericFromUint128(ledger.DepositAmount)
	if err != nil {
		return errors.WithStack(err)
	}
	tokens, err := numericFromUint128(ledger.TokenAmount)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO sale_ledger (wallet, tier_id, deposit_amount, token_amount, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet, tier_id) DO UPDATE SET
			deposit_amount = EXCLUDED.deposit_amount, token_amount = EXCLUDED.token_amount,
			updated_at = EXCLUDED.updated_at`,
		ledger.Wallet, int64(ledger.TierID), deposit, tokens, ledger.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "cannot upsert ledger entry")
	}
	return nil
}

func scanEscrow(row pgx.Row) (*entity.EscrowEntry, error) {
	var (
		escrow  entity.EscrowEntry
		tierId  int64
		deposit pgtype.Numeric
	)
	err := row.Scan(&escrow.Wallet, &tierId, &deposit, &escrow.Claimed, &escrow.UpdatedAt)
	if err != nil {
		return nil, err
	}
	escrow.TierID = uint64(tierId)
	if escrow.DepositAmount, err = uint128FromNumeric(deposit); err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (r *Repository) GetEscrowEntry(ctx context.Context, wallet string, tierId uint64) (*entity.EscrowEntry, error) {
	row := r.q.QueryRow(ctx, `
		SELECT wallet, tier_id, deposit_amount, claimed, updated_at
		FROM sale_escrow WHERE wallet = $1 AND tier_id = $2`, wallet, int64(tierId))
	escrow, err := scanEscrow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot get escrow entry")
	}
	return escrow, nil
}

func (r *Repository) GetEscrowEntriesByTier(ctx context.Context, tierId uint64) ([]entity.EscrowEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT wallet, tier_id, deposit_amount, claimed, updated_at
		FROM sale_escrow WHERE tier_id = $1 ORDER BY wallet`, int64(tierId))
	if err != nil {
		return nil, errors.Wrap(err, "cannot get escrow entries")
	}
	defer rows.Close()
	var entries []entity.EscrowEntry
	for rows.Next() {
		escrow, err := scanEscrow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "cannot scan escrow entry")
		}
		entries = append(entries, *escrow)
	}
	return entries, errors.WithStack(rows.Err())
}

func (r *Repository) GetEscrowTotalByTier(ctx context.Context, tierId uint64) (uint128.Uint128, error) {
	var total pgtype.Numeric
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(deposit_amount), 0) FROM sale_escrow WHERE tier_id = $1`, int64(tierId),
	).Scan(&total)
	if err != nil {
		return uint128.Uint128{}, errors.Wrap(err, "cannot sum escrow")
	}
	result, err := uint128FromNumeric(total)
	if err != nil {
		return uint128.Uint128{}, errors.WithStack(err)
	}
	return result, nil
}

func (r *Repository) UpsertEscrowEntry(ctx context.Context, escrow entity.EscrowEntry) error {
	deposit, err := numericFromUint128(escrow.DepositAmount)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO sale_escrow (wallet, tier_id, deposit_amount, claimed, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet, tier_id) DO UPDATE SET
			deposit_amount = EXCLUDED.deposit_amount, claimed = EXCLUDED.claimed,
			updated_at = EXCLUDED.updated_at`,
		escrow.Wallet, int64(escrow.TierID), deposit, escrow.Claimed, escrow.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "cannot upsert escrow entry")
	}
	return nil
}

func (r *Repository) GetStats(ctx context.Context) (*entity.Stats, error) {
	var totalWallets int64
	err := r.q.QueryRow(ctx, `SELECT total_wallets FROM sale_stats WHERE id`).Scan(&totalWallets)
	if errors.Is(err, pgx.ErrNoRows) {
		return &entity.Stats{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot get stats")
	}
	return &entity.Stats{TotalWallets: uint64(totalWallets)}, nil
}

func (r *Repository) SetStats(ctx context.Context, stats entity.Stats) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sale_stats (id, total_wallets) VALUES (TRUE, $1)
		ON CONFLICT (id) DO UPDATE SET total_wallets = EXCLUDED.total_wallets`,
		int64(stats.TotalWallets),
	)
	if err != nil {
		return errors.Wrap(err, "cannot upsert stats")
	}
	return nil
}

func (r *Repository) AddEvent(ctx context.Context, event entity.Event) error {
	deposit, err := optionalNumericFromUint128(event.DepositAmount)
	if err != nil {
		return errors.WithStack(err)
	}
	tokens, err := optionalNumericFromUint128(event.TokenAmount)
	if err != nil {
		return errors.WithStack(err)
	}
	var tierId *int64
	if event.TierID != nil {
		id := int64(*event.TierID)
		tierId = &id
	}
	metadata := event.Metadata
	if metadata == nil {
		metadata = []byte("{}")
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO sale_events (seq, kind, tier_id, wallet, deposit_amount, token_amount, metadata, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		int64(event.Seq), event.Kind, tierId, event.Wallet, deposit, tokens, metadata, event.Timestamp,
	)
	if err != nil {
		return errors.Wrap(err, "cannot insert event")
	}
	return nil
}

func (r *Repository) GetEvents(ctx context.Context, params datagateway.GetEventsParams) ([]entity.Event, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 1000
	}
	var tierId *int64
	if params.TierID != nil {
		id := int64(*params.TierID)
		tierId = &id
	}
	var fromTime *time.Time
	if !params.FromTime.IsZero() {
		fromTime = &params.FromTime
	}
	rows, err := r.q.Query(ctx, `
		SELECT seq, kind, tier_id, wallet, deposit_amount, token_amount, metadata, timestamp
		FROM sale_events
		WHERE ($1 = '' OR wallet = $1)
			AND ($2::bigint IS NULL OR tier_id = $2)
			AND seq >= $3
			AND ($4::timestamptz IS NULL OR timestamp >= $4)
		ORDER BY id
		LIMIT $5`,
		params.Wallet, tierId, int64(params.FromSeq), fromTime, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get events")
	}
	defer rows.Close()
	var events []entity.Event
	for rows.Next() {
		var (
			event           entity.Event
			seq             int64
			tierId          *int64
			deposit, tokens pgtype.Numeric
		)
		if err := rows.Scan(&seq, &event.Kind, &tierId, &event.Wallet, &deposit, &tokens, &event.Metadata, &event.Timestamp); err != nil {
			return nil, errors.Wrap(err, "cannot scan event")
		}
		event.Seq = uint64(seq)
		if tierId != nil {
			id := uint64(*tierId)
			event.TierID = &id
		}
		if event.DepositAmount, err = optionalUint128FromNumeric(deposit); err != nil {
			return nil, errors.WithStack(err)
		}
		if event.TokenAmount, err = optionalUint128FromNumeric(tokens); err != nil {
			return nil, errors.WithStack(err)
		}
		events = append(events, event)
	}
	return events, errors.WithStack(rows.Err())
}
