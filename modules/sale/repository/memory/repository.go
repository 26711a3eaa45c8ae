// Package memory is a process-local implementation of the sale data gateway.
// It backs simulations and tests, and serves as the storage backend when the
// service is configured with `storage: memory`.
package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/gaze-network/uint128"
	"github.com/origins-network/sale-engine/modules/sale/datagateway"
	"github.com/origins-network/sale-engine/modules/sale/internal/entity"
)

type walletTierKey struct {
	wallet string
	tierId uint64
}

type state struct {
	nextTierID      uint64
	tiers           map[uint64]entity.Tier
	stakeConditions map[uint64]entity.StakeCondition
	roles           map[string]entity.RoleEntry
	verifications   map[walletTierKey]entity.VerificationFlag
	ledgers         map[walletTierKey]entity.LedgerEntry
	escrows         map[walletTierKey]entity.EscrowEntry
	stats           entity.Stats
	events          []entity.Event
}

func newState() *state {
	return &state{
		nextTierID:      1,
		tiers:           make(map[uint64]entity.Tier),
		stakeConditions: make(map[uint64]entity.StakeCondition),
		roles:           make(map[string]entity.RoleEntry),
		verifications:   make(map[walletTierKey]entity.VerificationFlag),
		ledgers:         make(map[walletTierKey]entity.LedgerEntry),
		escrows:         make(map[walletTierKey]entity.EscrowEntry),
	}
}

func (s *state) clone() *state {
	next := &state{
		nextTierID:      s.nextTierID,
		tiers:           make(map[uint64]entity.Tier, len(s.tiers)),
		stakeConditions: make(map[uint64]entity.StakeCondition, len(s.stakeConditions)),
		roles:           make(map[string]entity.RoleEntry, len(s.roles)),
		verifications:   make(map[walletTierKey]entity.VerificationFlag, len(s.verifications)),
		ledgers:         make(map[walletTierKey]entity.LedgerEntry, len(s.ledgers)),
		escrows:         make(map[walletTierKey]entity.EscrowEntry, len(s.escrows)),
		stats:           s.stats,
		events:          make([]entity.Event, len(s.events)),
	}
	for k, v := range s.tiers {
		next.tiers[k] = v
	}
	for k, v := range s.stakeConditions {
		v.BlockNumbers = append([]uint64(nil), v.BlockNumbers...)
		v.Timestamps = append([]time.Time(nil), v.Timestamps...)
		next.stakeConditions[k] = v
	}
	for k, v := range s.roles {
		next.roles[k] = v
	}
	for k, v := range s.verifications {
		next.verifications[k] = v
	}
	for k, v := range s.ledgers {
		next.ledgers[k] = v
	}
	for k, v := range s.escrows {
		next.escrows[k] = v
	}
	copy(next.events, s.events)
	return next
}

// Repository keeps the whole dataset in memory. Transactions stage their
// writes on a deep copy and swap it in on Commit.
type Repository struct {
	mu    sync.Mutex
	state *state

	// staged is non-nil only on transaction handles returned by BeginSaleTx.
	parent *Repository
	staged *state
}

func NewRepository() *Repository {
	return &Repository{
		state: newState(),
	}
}

func (r *Repository) current() *state {
	if r.staged != nil {
		return r.staged
	}
	return r.state
}

func (r *Repository) root() *Repository {
	if r.parent != nil {
		return r.parent
	}
	return r
}

func (r *Repository) BeginSaleTx(ctx context.Context) (datagateway.SaleDataGatewayWithTx, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	return &Repository{
		parent: root,
		staged: root.state.clone(),
	}, nil
}

func (r *Repository) Commit(ctx context.Context) error {
	if r.staged == nil {
		return nil
	}
	r.parent.mu.Lock()
	r.parent.state = r.staged
	r.parent.mu.Unlock()
	r.staged = nil
	return nil
}

func (r *Repository) Rollback(ctx context.Context) error {
	r.staged = nil
	return nil
}

func (r *Repository) CreateTier(ctx context.Context, tier entity.Tier) (uint64, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	s := r.current()
	tier.ID = s.nextTierID
	s.nextTierID++
	s.tiers[tier.ID] = tier
	return tier.ID, nil
}

func (r *Repository) GetTier(ctx context.Context, tierId uint64) (*entity.Tier, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	tier, ok := r.current().tiers[tierId]
	if !ok {
		return nil, nil
	}
	return &tier, nil
}

func (r *Repository) GetTiers(ctx context.Context) ([]entity.Tier, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	s := r.current()
	tiers := make([]entity.Tier, 0, len(s.tiers))
	for _, tier := range s.tiers {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].ID < tiers[j].ID })
	return tiers, nil
}

func (r *Repository) UpdateTier(ctx context.Context, tier entity.Tier) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().tiers[tier.ID] = tier
	return nil
}

func (r *Repository) SetStakeCondition(ctx context.Context, cond entity.StakeCondition) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().stakeConditions[cond.TierID] = cond
	return nil
}

func (r *Repository) GetStakeCondition(ctx context.Context, tierId uint64) (*entity.StakeCondition, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	cond, ok := r.current().stakeConditions[tierId]
	if !ok {
		return nil, nil
	}
	return &cond, nil
}

func (r *Repository) GetRole(ctx context.Context, pubkey string) (*entity.RoleEntry, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	role, ok := r.current().roles[pubkey]
	if !ok {
		return nil, nil
	}
	return &role, nil
}

func (r *Repository) SetRole(ctx context.Context, role entity.RoleEntry) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().roles[role.Pubkey] = role
	return nil
}

func (r *Repository) SetAddressVerified(ctx context.Context, flag entity.VerificationFlag) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().verifications[walletTierKey{flag.Wallet, flag.TierID}] = flag
	return nil
}

func (r *Repository) IsAddressVerified(ctx context.Context, wallet string, tierId uint64) (bool, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	_, ok := r.current().verifications[walletTierKey{wallet, tierId}]
	return ok, nil
}

func (r *Repository) GetLedgerEntry(ctx context.Context, wallet string, tierId uint64) (*entity.LedgerEntry, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	ledger, ok := r.current().ledgers[walletTierKey{wallet, tierId}]
	if !ok {
		return nil, nil
	}
	return &ledger, nil
}

func (r *Repository) GetLedgerEntriesByWallet(ctx context.Context, wallet string) ([]entity.LedgerEntry, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var entries []entity.LedgerEntry
	for key, ledger := range r.current().ledgers {
		if key.wallet == wallet {
			entries = append(entries, ledger)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TierID < entries[j].TierID })
	return entries, nil
}

func (r *Repository) GetLedgerEntriesByTier(ctx context.Context, tierId uint64) ([]entity.LedgerEntry, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var entries []entity.LedgerEntry
	for key, ledger := range r.current().ledgers {
		if key.tierId == tierId {
			entries = append(entries, ledger)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Wallet < entries[j].Wallet })
	return entries, nil
}

func (r *Repository) UpsertLedgerEntry(ctx context.Context, ledger entity.LedgerEntry) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().ledgers[walletTierKey{ledger.Wallet, ledger.TierID}] = ledger
	return nil
}

func (r *Repository) GetEscrowEntry(ctx context.Context, wallet string, tierId uint64) (*entity.EscrowEntry, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	escrow, ok := r.current().escrows[walletTierKey{wallet, tierId}]
	if !ok {
		return nil, nil
	}
	return &escrow, nil
}

func (r *Repository) GetEscrowEntriesByTier(ctx context.Context, tierId uint64) ([]entity.EscrowEntry, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var entries []entity.EscrowEntry
	for key, escrow := range r.current().escrows {
		if key.tierId == tierId {
			entries = append(entries, escrow)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Wallet < entries[j].Wallet })
	return entries, nil
}

func (r *Repository) GetEscrowTotalByTier(ctx context.Context, tierId uint64) (uint128.Uint128, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	total := new(big.Int)
	for key, escrow := range r.current().escrows {
		if key.tierId == tierId {
			total.Add(total, escrow.DepositAmount.Big())
		}
	}
	return utils.Must(uint128.FromBig(total)), nil
}

func (r *Repository) UpsertEscrowEntry(ctx context.Context, escrow entity.EscrowEntry) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().escrows[walletTierKey{escrow.Wallet, escrow.TierID}] = escrow
	return nil
}

func (r *Repository) GetStats(ctx context.Context) (*entity.Stats, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	stats := r.current().stats
	return &stats, nil
}

func (r *Repository) SetStats(ctx context.Context, stats entity.Stats) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().stats = stats
	return nil
}

func (r *Repository) AddEvent(ctx context.Context, event entity.Event) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	s := r.current()
	s.events = append(s.events, event)
	return nil
}

func (r *Repository) GetEvents(ctx context.Context, params datagateway.GetEventsParams) ([]entity.Event, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var events []entity.Event
	for _, event := range r.current().events {
		if params.Wallet != "" && event.Wallet != params.Wallet {
			continue
		}
		if params.TierID != nil && (event.TierID == nil || *event.TierID != *params.TierID) {
			continue
		}
		if event.Seq < params.FromSeq {
			continue
		}
		if !params.FromTime.IsZero() && event.Timestamp.Before(params.FromTime) {
			continue
		}
		events = append(events, event)
		if params.Limit > 0 && int32(len(events)) >= params.Limit {
			break
		}
	}
	return events, nil
}
