package ledger

import "sync"

// Registry is the process-wide, concurrently accessed id->Account map.
// Grounded on core/txpool/txpool.go's TxPool.reservations/reserveLock: one
// coarse lock guards the map itself (shared for lookups, exclusive for
// insertion), while each Account carries its own exclusive handle so
// distinct accounts mutate in parallel. Cross-grounded on
// original_source/src/client/manager.rs's ClientsManager.push_tx, which
// implements the identical double-checked-locking shape in the original.
type Registry struct {
	mu       sync.RWMutex
	accounts map[uint16]*Account
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{accounts: make(map[uint16]*Account)}
}

// GetOrCreate returns the account for id, creating it if absent. Uses the
// double-checked pattern spec.md §4.2 requires: check under the shared
// guard, and only upgrade to the exclusive guard (and recheck) on a miss.
// This is the correctness requirement, not an optimization (§9): a naive
// single-exclusive-guard upgrade-then-insert would serialize every event
// across every account on the map lock.
func (r *Registry) GetOrCreate(id uint16) *Account {
	r.mu.RLock()
	if acct, ok := r.accounts[id]; ok {
		r.mu.RUnlock()
		return acct
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.accounts[id]; ok {
		return acct
	}
	acct := NewAccount(id)
	r.accounts[id] = acct
	return acct
}

// ForEachSnapshot visits every account under the registry's shared guard,
// taking each account's own exclusive handle in turn, and calls visit with
// a read-only Snapshot. Iteration order is unspecified, per spec.md §4.2.
// Called once, after all dispatcher workers have joined.
func (r *Registry) ForEachSnapshot(visit func(Snapshot)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.accounts {
		acct.Lock()
		snap := acct.snapshot()
		acct.Unlock()
		visit(snap)
	}
}

// Len reports the number of distinct accounts created so far.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
