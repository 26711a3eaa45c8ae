// Package memory is a process-local implementation of the locked fund data
// gateway, used for simulations, tests, and the `storage: memory` backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/origins-network/sale-engine/modules/lockedfund/datagateway"
	"github.com/origins-network/sale-engine/modules/lockedfund/internal/entity"
)

type state struct {
	nextLockID uint64
	locks      map[uint64]entity.LockRecord
	admins     map[string]entity.AdminEntry
	config     *entity.FundConfig
}

func newState() *state {
	return &state{
		nextLockID: 1,
		locks:      make(map[uint64]entity.LockRecord),
		admins:     make(map[string]entity.AdminEntry),
	}
}

func (s *state) clone() *state {
	next := &state{
		nextLockID: s.nextLockID,
		locks:      make(map[uint64]entity.LockRecord, len(s.locks)),
		admins:     make(map[string]entity.AdminEntry, len(s.admins)),
	}
	for k, v := range s.locks {
		next.locks[k] = v
	}
	for k, v := range s.admins {
		next.admins[k] = v
	}
	if s.config != nil {
		config := *s.config
		next.config = &config
	}
	return next
}

// Repository keeps the whole dataset in memory. Transactions stage their
// writes on a deep copy and swap it in on Commit.
type Repository struct {
	mu    sync.Mutex
	state *state

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

func (r *Repository) BeginLockedFundTx(ctx context.Context) (datagateway.LockedFundDataGatewayWithTx, error) {
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

func (r *Repository) CreateLock(ctx context.Context, lock entity.LockRecord) (uint64, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	s := r.current()
	lock.ID = s.nextLockID
	s.nextLockID++
	s.locks[lock.ID] = lock
	return lock.ID, nil
}

func (r *Repository) GetLock(ctx context.Context, lockId uint64) (*entity.LockRecord, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	lock, ok := r.current().locks[lockId]
	if !ok {
		return nil, nil
	}
	return &lock, nil
}

func (r *Repository) GetLocksByBeneficiary(ctx context.Context, beneficiary string) ([]entity.LockRecord, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	var locks []entity.LockRecord
	for _, lock := range r.current().locks {
		if lock.Beneficiary == beneficiary {
			locks = append(locks, lock)
		}
	}
	sort.Slice(locks, func(i, j int) bool { return locks[i].ID < locks[j].ID })
	return locks, nil
}

func (r *Repository) UpdateLock(ctx context.Context, lock entity.LockRecord) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().locks[lock.ID] = lock
	return nil
}

func (r *Repository) DeleteLock(ctx context.Context, lockId uint64) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	delete(r.current().locks, lockId)
	return nil
}

func (r *Repository) IsAdmin(ctx context.Context, pubkey string) (bool, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	_, ok := r.current().admins[pubkey]
	return ok, nil
}

func (r *Repository) GetAdmins(ctx context.Context) ([]entity.AdminEntry, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	s := r.current()
	admins := make([]entity.AdminEntry, 0, len(s.admins))
	for _, admin := range s.admins {
		admins = append(admins, admin)
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].Pubkey < admins[j].Pubkey })
	return admins, nil
}

func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	return int64(len(r.current().admins)), nil
}

func (r *Repository) AddAdmin(ctx context.Context, admin entity.AdminEntry) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().admins[admin.Pubkey] = admin
	return nil
}

func (r *Repository) RemoveAdmin(ctx context.Context, pubkey string) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	delete(r.current().admins, pubkey)
	return nil
}

func (r *Repository) GetConfig(ctx context.Context) (*entity.FundConfig, error) {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	config := r.current().config
	if config == nil {
		return nil, nil
	}
	copied := *config
	return &copied, nil
}

func (r *Repository) SetConfig(ctx context.Context, config entity.FundConfig) error {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	r.current().config = &config
	return nil
}
