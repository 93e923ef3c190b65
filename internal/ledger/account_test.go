package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmalm9/payments-engine/internal/money"
)

func amt(t *testing.T, s string) *money.Amount {
	t.Helper()
	a, err := money.Parse(s)
	require.NoError(t, err)
	return &a
}

func applyAll(t *testing.T, a *Account, evs ...Event) {
	t.Helper()
	for _, ev := range evs {
		a.Lock()
		_ = a.Apply(ev)
		a.Unlock()
	}
}

// Scenario 1 (spec.md §8): two deposits and a withdrawal.
func TestAccount_DepositsAndWithdrawal(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100.0")},
		Event{Kind: Deposit, AccountID: 1, TxID: 2, Amount: amt(t, "50.0")},
		Event{Kind: Withdrawal, AccountID: 1, TxID: 3, Amount: amt(t, "30.0")},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()

	require.Equal(t, "120.0000", snap.Available)
	require.Equal(t, "0.0000", snap.Held)
	require.Equal(t, "120.0000", snap.Total)
	require.False(t, snap.Locked)
}

// Scenario 2: dispute then resolve is identity on (available, held).
func TestAccount_DisputeThenResolve(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 0, Amount: amt(t, "100")},
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100")},
		Event{Kind: Deposit, AccountID: 1, TxID: 2, Amount: amt(t, "100")},
		Event{Kind: Dispute, AccountID: 1, TxID: 1},
		Event{Kind: Resolve, AccountID: 1, TxID: 1},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()

	require.Equal(t, "300.0000", snap.Available)
	require.Equal(t, "0.0000", snap.Held)
	require.False(t, snap.Locked)
}

// Scenario 3: dispute then chargeback locks the account; a deposit after
// the lock is ignored.
func TestAccount_DisputeThenChargebackLocks(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 0, Amount: amt(t, "100")},
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100")},
		Event{Kind: Deposit, AccountID: 1, TxID: 2, Amount: amt(t, "100")},
		Event{Kind: Dispute, AccountID: 1, TxID: 1},
		Event{Kind: Chargeback, AccountID: 1, TxID: 1},
		Event{Kind: Deposit, AccountID: 1, TxID: 3, Amount: amt(t, "100")},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()

	require.Equal(t, "200.0000", snap.Available)
	require.Equal(t, "0.0000", snap.Held)
	require.Equal(t, "200.0000", snap.Total)
	require.True(t, snap.Locked)
}

// Scenario 4: duplicate deposit id is a no-op.
func TestAccount_DuplicateDepositIgnored(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100.0")},
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "50.0")},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()
	require.Equal(t, "100.0000", snap.Available)
}

// Scenario 5: withdrawal exceeding available funds is rejected.
func TestAccount_WithdrawalInsufficientFunds(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100.0")},
		Event{Kind: Withdrawal, AccountID: 1, TxID: 2, Amount: amt(t, "200.0")},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()
	require.Equal(t, "100.0000", snap.Available)
}

// Scenario 6: half-even rounding at 4dp at the display boundary.
func TestAccount_RoundingHalfEven(t *testing.T) {
	a1 := NewAccount(1)
	applyAll(t, a1, Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "2.12342")})
	a1.Lock()
	s1 := a1.snapshot()
	a1.Unlock()
	require.Equal(t, "2.1234", s1.Available)

	// Account 2 locks via a chargeback on an unrelated zero-amount
	// deposit, so the rounding-bearing deposit (tx 1) stays in available,
	// matching spec.md §8 scenario 6's expected {2, 2.0001, 0, 2.0001, true}.
	a2 := NewAccount(2)
	applyAll(t, a2,
		Event{Kind: Deposit, AccountID: 2, TxID: 1, Amount: amt(t, "2.00006")},
		Event{Kind: Deposit, AccountID: 2, TxID: 2, Amount: amt(t, "0")},
		Event{Kind: Dispute, AccountID: 2, TxID: 2},
		Event{Kind: Chargeback, AccountID: 2, TxID: 2},
	)
	a2.Lock()
	s2 := a2.snapshot()
	a2.Unlock()
	require.Equal(t, "2.0001", s2.Available)
	require.True(t, s2.Locked)
}

func TestAccount_ZeroAmountDepositAccepted(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a, Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "0")})
	a.Lock()
	snap := a.snapshot()
	a.Unlock()
	require.Equal(t, "0.0000", snap.Available)
}

func TestAccount_DisputeOfWithdrawalRejected(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100")},
		Event{Kind: Withdrawal, AccountID: 1, TxID: 2, Amount: amt(t, "50")},
		Event{Kind: Dispute, AccountID: 1, TxID: 2},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()
	require.Equal(t, "50.0000", snap.Available)
	require.Equal(t, "0.0000", snap.Held)
}

func TestAccount_DisputeAfterChargebackRejected(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100")},
		Event{Kind: Deposit, AccountID: 1, TxID: 2, Amount: amt(t, "50")},
		Event{Kind: Dispute, AccountID: 1, TxID: 1},
		Event{Kind: Chargeback, AccountID: 1, TxID: 1},
		Event{Kind: Dispute, AccountID: 1, TxID: 2},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()
	// Locked after the chargeback; the second dispute must be a no-op.
	require.True(t, snap.Locked)
	require.Equal(t, "50.0000", snap.Available)
	require.Equal(t, "0.0000", snap.Held)
}

func TestAccount_ResolveWithoutDisputeRejected(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100")},
		Event{Kind: Resolve, AccountID: 1, TxID: 1},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()
	require.Equal(t, "100.0000", snap.Available)
	require.Equal(t, "0.0000", snap.Held)
}

func TestAccount_ChargebackOfResolvedDisputeRejected(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100")},
		Event{Kind: Dispute, AccountID: 1, TxID: 1},
		Event{Kind: Resolve, AccountID: 1, TxID: 1},
		Event{Kind: Chargeback, AccountID: 1, TxID: 1},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()
	require.False(t, snap.Locked)
	require.Equal(t, "100.0000", snap.Available)
}

// Open question 1: dispute that would drive available negative is refused.
func TestAccount_DisputeInsufficientAvailableRefused(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100")},
		Event{Kind: Withdrawal, AccountID: 1, TxID: 2, Amount: amt(t, "90")},
		Event{Kind: Dispute, AccountID: 1, TxID: 1},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()
	// Dispute of tx 1 (amount 100) would require available >= 100, but
	// only 10 remains after the withdrawal: refused, no state change.
	require.Equal(t, "10.0000", snap.Available)
	require.Equal(t, "0.0000", snap.Held)
}

// Open question 2: an amount field present on Dispute/Resolve/Chargeback
// is ignored entirely.
func TestAccount_DisputeAmountFieldIgnored(t *testing.T) {
	a := NewAccount(1)
	a.Lock()
	_ = a.Apply(Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100")})
	_ = a.Apply(Event{Kind: Dispute, AccountID: 1, TxID: 1, Amount: amt(t, "999999")})
	snap := a.snapshot()
	a.Unlock()
	require.Equal(t, "0.0000", snap.Available)
	require.Equal(t, "100.0000", snap.Held)
}

func TestAccount_RedisputeAfterResolveCycles(t *testing.T) {
	a := NewAccount(1)
	applyAll(t, a,
		Event{Kind: Deposit, AccountID: 1, TxID: 1, Amount: amt(t, "100")},
		Event{Kind: Dispute, AccountID: 1, TxID: 1},
		Event{Kind: Resolve, AccountID: 1, TxID: 1},
		Event{Kind: Dispute, AccountID: 1, TxID: 1},
	)
	a.Lock()
	snap := a.snapshot()
	a.Unlock()
	require.Equal(t, "0.0000", snap.Available)
	require.Equal(t, "100.0000", snap.Held)
}
