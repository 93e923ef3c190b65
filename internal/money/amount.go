// Package money provides an exact-decimal Amount type for account balances.
//
// Parsing normalizes every amount to 4 fractional digits, half-to-even,
// the moment it is ingested — matching
// original_source/src/transaction.rs's to_four_dp deserializer, which
// calls val.round_dp(4) before the value ever reaches Client. All
// subsequent arithmetic (deposits, held funds, disputes) is then exact at
// that fixed 4dp scale; Display (and the snapshot emitter) re-round at
// the output boundary as a no-op safety net, matching
// original_source/src/client/client.rs's SerializableClient, whose
// Serialize impl also calls round_dp(4).
package money

import "github.com/shopspring/decimal"

// DisplayScale is the number of fractional digits an Amount is rendered
// with at the output boundary.
const DisplayScale = 4

// Zero is the additive identity.
var Zero = Amount{d: decimal.Zero}

// Amount wraps decimal.Decimal to give account arithmetic a narrow,
// intention-revealing API instead of passing decimal.Decimal around raw.
type Amount struct {
	d decimal.Decimal
}

// Parse parses s as a decimal amount and normalizes it to 4 fractional
// digits, half-to-even, on the spot — matching to_four_dp's round_dp(4)
// at parse time, so deposits/disputes/resolves/chargebacks all compare
// and sum values already clipped to 4dp, never the raw parsed precision.
// An error here corresponds to transaction.rs's to_four_dp deserializer
// returning Ok(None) on a malformed field — callers that need the
// "malformed amount doesn't kill the whole record" behavior should treat
// a non-nil error as "no amount", not as a fatal parse error.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{d: d.RoundBank(DisplayScale)}, nil
}

// FromDecimal wraps an already-parsed decimal.Decimal.
func FromDecimal(d decimal.Decimal) Amount { return Amount{d: d} }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Cmp compares a and b: -1 if a<b, 0 if equal, 1 if a>b.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.d.LessThan(b.d) }

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// Decimal exposes the underlying decimal.Decimal for callers (e.g. the
// emitter) that need direct access to shopspring/decimal's own formatting.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Display renders a rounded to DisplayScale fractional digits using
// half-to-even (banker's) rounding, matching rust_decimal's round_dp as
// observed in client.rs's Serialize impl (e.g. 2.1234220 -> 2.1234,
// 2.00006 -> 2.0001).
func (a Amount) Display() string {
	return a.d.RoundBank(DisplayScale).StringFixed(DisplayScale)
}

// String implements fmt.Stringer by deferring to Display.
func (a Amount) String() string { return a.Display() }
