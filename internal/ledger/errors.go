package ledger

// Reason enumerates why an event was rejected. Reproduced from
// original_source/src/error.rs's Error taxonomy; purely diagnostic, used
// only for debug logging and the rejection metric's label (§7: Account.Apply
// is total, and no error kind changes how the Dispatcher delivers events).
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonInvalidAmount
	ReasonDuplicateTransaction
	ReasonTransactionNotFound
	ReasonNoAvailableFunds
	ReasonDuplicateDispute
	ReasonDisputeNotFound
	ReasonMissingHeldFunds
	ReasonNotEnoughChargeback
	ReasonAccountLocked
)

// String implements fmt.Stringer for logging.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInvalidAmount:
		return "invalid_amount"
	case ReasonDuplicateTransaction:
		return "duplicate_transaction"
	case ReasonTransactionNotFound:
		return "transaction_not_found"
	case ReasonNoAvailableFunds:
		return "no_available_funds"
	case ReasonDuplicateDispute:
		return "duplicate_dispute"
	case ReasonDisputeNotFound:
		return "dispute_not_found"
	case ReasonMissingHeldFunds:
		return "missing_held_funds"
	case ReasonNotEnoughChargeback:
		return "not_enough_chargeback"
	case ReasonAccountLocked:
		return "account_locked"
	default:
		return "unknown"
	}
}

// ApplyError reports why Account.Apply rejected an event. It carries no
// behavior of its own: Apply returns it to its caller (the Dispatcher's
// drain), which only counts it in metrics and passes it to rate-limited
// debug logging (see Dispatcher.record in internal/dispatch and
// SPEC_FULL.md §7).
type ApplyError struct {
	Reason Reason
	TxID   uint32
}

func (e *ApplyError) Error() string {
	return e.Reason.String()
}

func rejected(reason Reason, txID uint32) *ApplyError {
	return &ApplyError{Reason: reason, TxID: txID}
}
