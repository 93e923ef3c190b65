package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreateIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a1 := r.GetOrCreate(7)
	a2 := r.GetOrCreate(7)
	require.Same(t, a1, a2)
	require.Equal(t, 1, r.Len())
}

func TestRegistry_ConcurrentGetOrCreateSameAccount(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	results := make([]*Account, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrCreate(42)
		}(i)
	}
	wg.Wait()

	first := results[0]
	for _, acct := range results {
		require.Same(t, first, acct)
	}
	require.Equal(t, 1, r.Len())
}

func TestRegistry_ForEachSnapshotVisitsAll(t *testing.T) {
	r := NewRegistry()
	for id := uint16(0); id < 10; id++ {
		acct := r.GetOrCreate(id)
		acct.Lock()
		_ = acct.Apply(Event{Kind: Deposit, AccountID: id, TxID: 1, Amount: amt(t, "1.5")})
		acct.Unlock()
	}

	seen := map[uint16]bool{}
	r.ForEachSnapshot(func(s Snapshot) {
		seen[s.ID] = true
		require.Equal(t, "1.5000", s.Available)
	})
	require.Len(t, seen, 10)
}
