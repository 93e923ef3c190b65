// Package ingest implements the external parser and emitter collaborators
// named in spec.md §6: a tolerant CSV record parser producing
// ledger.Event, and a snapshot emitter serializing ledger.Snapshot rows.
//
// Grounded on original_source/src/reader.rs and transaction.rs: trim-all
// CSV fields, drop a record outright when its shape isn't a transaction at
// all (unknown type, unparseable client/tx id, fewer than three columns),
// but still deliver a
// Deposit/Withdrawal whose amount failed to parse as an event with a nil
// Amount rather than dropping the record (transaction.rs's to_four_dp
// folds a parse failure into None, not a whole-record error).
package ingest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/dmalm9/payments-engine/internal/ledger"
	"github.com/dmalm9/payments-engine/internal/money"
)

// Parser reads typed events from a CSV stream with header
// "type,client,tx,amount".
type Parser struct {
	reader *csv.Reader

	// Dropped counts records that were unparseable as a transaction at
	// all (unknown type, bad client/tx id, fewer than three columns, or a
	// CSV syntax error) — never delivered to the core. Exposed for
	// internal/telemetry's records_malformed_total.
	Dropped int
}

// NewParser wraps r as a Parser, consuming the header row. The header's
// contents are not checked; only a failure to read it is an error.
func NewParser(r io.Reader) (*Parser, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return &Parser{reader: cr}, nil
}

// Next returns the next parsed event, or io.EOF once the input is
// exhausted. Malformed records — fewer than three columns, unknown type,
// unparseable client/tx id, or a raw CSV-syntax error (e.g. an unterminated quote) — are
// skipped internally and never returned; Next keeps reading until it
// finds a deliverable record or reaches EOF. Matches
// original_source/src/reader.rs's read_file, which continues past every
// per-record csv::Error and only ever returns Err when the input source
// itself cannot be opened (spec.md §7: "Parser decoding errors on
// individual records are non-fatal and do not change reading_status").
func (p *Parser) Next() (ledger.Event, error) {
	for {
		record, err := p.reader.Read()
		if err == io.EOF {
			return ledger.Event{}, io.EOF
		}
		if err != nil {
			p.Dropped++
			continue
		}
		ev, ok := p.decode(record)
		if !ok {
			p.Dropped++
			continue
		}
		return ev, nil
	}
}

func (p *Parser) decode(record []string) (ledger.Event, bool) {
	if len(record) < 3 {
		return ledger.Event{}, false
	}
	kindField := strings.ToLower(strings.TrimSpace(record[0]))
	kind, ok := parseKind(kindField)
	if !ok {
		return ledger.Event{}, false
	}

	accountID, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 16)
	if err != nil {
		return ledger.Event{}, false
	}
	txID, err := strconv.ParseUint(strings.TrimSpace(record[2]), 10, 32)
	if err != nil {
		return ledger.Event{}, false
	}

	var amountField string
	if len(record) > 3 {
		amountField = strings.TrimSpace(record[3])
	}

	var amountPtr *money.Amount
	if amountField != "" {
		if a, err := money.Parse(amountField); err == nil {
			amountPtr = &a
		} else {
			log.Debug("unparseable amount field, delivering event with nil amount",
				"kind", kind, "client", accountID, "tx", txID)
		}
	}

	return ledger.Event{
		Kind:      kind,
		AccountID: uint16(accountID),
		TxID:      uint32(txID),
		Amount:    amountPtr,
	}, true
}

func parseKind(s string) (ledger.Kind, bool) {
	switch s {
	case "deposit":
		return ledger.Deposit, true
	case "withdrawal":
		return ledger.Withdrawal, true
	case "dispute":
		return ledger.Dispute, true
	case "resolve":
		return ledger.Resolve, true
	case "chargeback":
		return ledger.Chargeback, true
	default:
		return 0, false
	}
}
