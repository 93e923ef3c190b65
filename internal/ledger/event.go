// Package ledger implements the account state machine and the concurrent
// registry of accounts. Grounded on original_source/src/client/client.rs
// (Client) and original_source/src/transaction.rs (TransactionType,
// ParsedTransaction).
package ledger

import "github.com/dmalm9/payments-engine/internal/money"

// Kind enumerates the five event kinds this engine understands.
type Kind uint8

const (
	Deposit Kind = iota
	Withdrawal
	Dispute
	Resolve
	Chargeback
)

// String implements fmt.Stringer for logging.
func (k Kind) String() string {
	switch k {
	case Deposit:
		return "deposit"
	case Withdrawal:
		return "withdrawal"
	case Dispute:
		return "dispute"
	case Resolve:
		return "resolve"
	case Chargeback:
		return "chargeback"
	default:
		return "unknown"
	}
}

// Event is the wire-level unit the parser delivers to the dispatcher and
// the dispatcher routes to an Account. Amount is nil for Dispute/Resolve/
// Chargeback (ignored even if present) and for a Deposit/Withdrawal whose
// amount field failed to parse — such an event is still delivered, per
// spec, and is then rejected by Account.Apply as InvalidAmount rather than
// dropped by the parser.
type Event struct {
	Kind      Kind
	AccountID uint16
	TxID      uint32
	Amount    *money.Amount
}
