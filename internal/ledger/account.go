package ledger

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/dmalm9/payments-engine/internal/money"
)

// Account is the per-account state machine. Grounded on
// original_source/src/client/client.rs's Client: same fields, same
// deposit/withdrawal/dispute/resolve/chargeback transitions, same silent
// no-op-on-rejection policy. disputed and seenIDs use golang-set/v2 (a
// direct teacher dependency) in place of the Rust HashSet<TransactionID>.
//
// Apply must only be called while holding the account's exclusive handle
// (see Registry.GetOrCreate); Account itself does no internal locking,
// mirroring how the Dispatcher's per-account mutual exclusion (spec §4.3)
// is the only thing that ever makes concurrent Apply calls safe.
type Account struct {
	mu sync.Mutex

	id        uint16
	available money.Amount
	held      money.Amount
	locked    bool

	deposits  map[uint32]money.Amount
	disputed  mapset.Set[uint32]
	seenIDs   mapset.Set[uint32]
}

// NewAccount returns a freshly created, unlocked account with zero
// balances and empty sets, per spec.md §3's Lifecycle clause.
func NewAccount(id uint16) *Account {
	return &Account{
		id:        id,
		available: money.Zero,
		held:      money.Zero,
		deposits:  make(map[uint32]money.Amount),
		disputed:  mapset.NewThreadUnsafeSet[uint32](),
		seenIDs:   mapset.NewThreadUnsafeSet[uint32](),
	}
}

// ID returns the account's immutable identifier.
func (a *Account) ID() uint16 { return a.id }

// Lock acquires the account's exclusive handle. Callers (the dispatcher's
// drain loop) must pair this with Unlock; Apply and Snapshot both assume
// the caller already holds it, mirroring spec.md §4.2's "exclusive
// mutation handle" / "shared guard during snapshot emission" split — this
// engine has only one process-wide reader (the emitter, after all workers
// have joined) so a single mutex suffices for both roles.
func (a *Account) Lock() { a.mu.Lock() }

// Unlock releases the account's exclusive handle.
func (a *Account) Unlock() { a.mu.Unlock() }

// Apply applies a single event to the account. The caller must hold the
// account's exclusive handle (see Lock/Unlock). Apply is total: it never
// panics and never blocks. The returned error is diagnostic only: the
// dispatcher uses it for rejection metrics and rate-limited debug logging
// (SPEC_FULL.md §7), never to change how later events are delivered.
func (a *Account) Apply(ev Event) error {
	if a.locked {
		return rejected(ReasonAccountLocked, ev.TxID)
	}
	switch ev.Kind {
	case Deposit:
		return a.applyDeposit(ev)
	case Withdrawal:
		return a.applyWithdrawal(ev)
	case Dispute:
		return a.applyDispute(ev)
	case Resolve:
		return a.applyResolve(ev)
	case Chargeback:
		return a.applyChargeback(ev)
	default:
		return rejected(ReasonInvalidAmount, ev.TxID)
	}
}

func (a *Account) applyDeposit(ev Event) error {
	if a.seenIDs.Contains(ev.TxID) {
		return rejected(ReasonDuplicateTransaction, ev.TxID)
	}
	if ev.Amount == nil || ev.Amount.IsNegative() {
		return rejected(ReasonInvalidAmount, ev.TxID)
	}
	a.seenIDs.Add(ev.TxID)
	a.deposits[ev.TxID] = *ev.Amount
	a.available = a.available.Add(*ev.Amount)
	return nil
}

func (a *Account) applyWithdrawal(ev Event) error {
	if a.seenIDs.Contains(ev.TxID) {
		return rejected(ReasonDuplicateTransaction, ev.TxID)
	}
	if ev.Amount == nil || ev.Amount.IsNegative() {
		return rejected(ReasonInvalidAmount, ev.TxID)
	}
	if a.available.LessThan(*ev.Amount) {
		return rejected(ReasonNoAvailableFunds, ev.TxID)
	}
	a.seenIDs.Add(ev.TxID)
	a.available = a.available.Sub(*ev.Amount)
	return nil
}

func (a *Account) applyDispute(ev Event) error {
	d, ok := a.deposits[ev.TxID]
	if !ok {
		return rejected(ReasonTransactionNotFound, ev.TxID)
	}
	if a.disputed.Contains(ev.TxID) {
		return rejected(ReasonDuplicateDispute, ev.TxID)
	}
	// Open question (spec.md §9) resolved as "refuse": a dispute that
	// would drive available negative is rejected rather than honored.
	if a.available.LessThan(d) {
		return rejected(ReasonNoAvailableFunds, ev.TxID)
	}
	a.available = a.available.Sub(d)
	a.held = a.held.Add(d)
	a.disputed.Add(ev.TxID)
	return nil
}

func (a *Account) applyResolve(ev Event) error {
	d, ok := a.deposits[ev.TxID]
	if !ok {
		return rejected(ReasonTransactionNotFound, ev.TxID)
	}
	if !a.disputed.Contains(ev.TxID) {
		return rejected(ReasonDisputeNotFound, ev.TxID)
	}
	if a.held.LessThan(d) {
		return rejected(ReasonMissingHeldFunds, ev.TxID)
	}
	a.available = a.available.Add(d)
	a.held = a.held.Sub(d)
	a.disputed.Remove(ev.TxID)
	return nil
}

func (a *Account) applyChargeback(ev Event) error {
	d, ok := a.deposits[ev.TxID]
	if !ok {
		return rejected(ReasonTransactionNotFound, ev.TxID)
	}
	if !a.disputed.Contains(ev.TxID) {
		return rejected(ReasonDisputeNotFound, ev.TxID)
	}
	if a.held.LessThan(d) {
		return rejected(ReasonNotEnoughChargeback, ev.TxID)
	}
	a.held = a.held.Sub(d)
	a.disputed.Remove(ev.TxID)
	a.locked = true
	return nil
}

// Snapshot is a read-only view of an account's state, rounded to 4dp, for
// the emitter. See Registry.ForEachSnapshot.
type Snapshot struct {
	ID        uint16
	Available string
	Held      string
	Total     string
	Locked    bool
}

// snapshot must be called while holding the account's exclusive handle.
func (a *Account) snapshot() Snapshot {
	total := a.available.Add(a.held)
	return Snapshot{
		ID:        a.id,
		Available: a.available.Display(),
		Held:      a.held.Display(),
		Total:     total.Display(),
		Locked:    a.locked,
	}
}
