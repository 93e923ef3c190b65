package ingest

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/dmalm9/payments-engine/internal/ledger"
)

// Emitter writes one CSV row per account: client,available,held,total,
// locked. Grounded on original_source/src/writer.rs's write(db).
type Emitter struct {
	w *csv.Writer
}

// NewEmitter wraps w as an Emitter and writes the header row.
func NewEmitter(w io.Writer) (*Emitter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return nil, err
	}
	return &Emitter{w: cw}, nil
}

// EmitAll writes one row per account yielded by registry.ForEachSnapshot.
// A marshal error on one row is logged and skipped; the next account is
// still emitted (spec.md §7) — there is no per-row marshaling here beyond
// plain string formatting, so in practice only the underlying writer can
// fail, but the row-at-a-time swallow-and-continue posture is kept to
// match the contract exactly.
func (e *Emitter) EmitAll(registry *ledger.Registry) error {
	registry.ForEachSnapshot(func(s ledger.Snapshot) {
		row := []string{
			strconv.FormatUint(uint64(s.ID), 10),
			s.Available,
			s.Held,
			s.Total,
			strconv.FormatBool(s.Locked),
		}
		if err := e.w.Write(row); err != nil {
			log.Error("failed to emit account snapshot row, skipping", "client", s.ID, "err", err)
		}
	})
	e.w.Flush()
	return e.w.Error()
}
