// Command payments-engine reads a CSV transaction log and writes a final
// per-account balance/lock snapshot to stdout.
//
// Wiring order grounded on original_source/src/main.rs: parse NUM_WORKERS,
// start workers, run the reader, close the notifier, join workers, write
// the snapshot. CLI shape (urfave/cli, flags grouped by Category) grounded
// on internal/xdebug/flags.go's Flags/Setup(ctx) contract.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/dmalm9/payments-engine/internal/dispatch"
	"github.com/dmalm9/payments-engine/internal/ingest"
	"github.com/dmalm9/payments-engine/internal/ledger"
	"github.com/dmalm9/payments-engine/internal/telemetry"
	"github.com/dmalm9/payments-engine/internal/xconfig"
	"github.com/dmalm9/payments-engine/internal/xdebug"
	"github.com/dmalm9/payments-engine/internal/xflags"
)

const defaultWorkers = 3

// workersFlag intentionally does NOT use urfave/cli's EnvVars binding for
// NUM_WORKERS: cli.IntFlag would fail app.Run outright on a malformed env
// value, but spec.md §6 requires a malformed NUM_WORKERS to silently fall
// back to the default instead of aborting the run. workerCount below reads
// the environment variable itself: a set NUM_WORKERS takes precedence over
// --workers, an invalid one yields the default of 3, and this flag's
// --workers value (or its default) is used only when NUM_WORKERS is unset.
var workersFlag = &cli.IntFlag{
	Name:     "workers",
	Usage:    "Number of dispatcher worker goroutines (see also NUM_WORKERS)",
	Value:    defaultWorkers,
	Category: xflags.EngineCategory,
}

func main() {
	app := &cli.App{
		Name:      "payments-engine",
		Usage:     "apply an ordered transaction log to a set of accounts and emit a final snapshot",
		ArgsUsage: "<input.csv>",
		Flags:     buildFlags(),
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("payments-engine exited with an error", "err", err)
	}
}

func buildFlags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, workersFlag)
	flags = append(flags, xdebug.Flags...)
	flags = append(flags, telemetry.Flags...)
	flags = append(flags, xconfig.Flags...)
	return flags
}

func run(ctx *cli.Context) error {
	if err := xconfig.Apply(ctx); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := xdebug.Setup(ctx); err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer xdebug.Exit()

	if ctx.Args().Len() != 1 {
		return cli.ShowAppHelp(ctx)
	}
	inputPath := ctx.Args().First()

	workers := workerCount(ctx)

	registry := ledger.NewRegistry()

	registryPrometheus := prometheus.NewRegistry()
	metrics := telemetry.New(registryPrometheus)
	shutdownMetrics := telemetry.Serve(ctx.String("metrics.addr"), registryPrometheus)
	defer shutdownMetrics()

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	d := dispatch.New(registry, metrics)

	driverDone := make(chan struct{})
	go func() {
		defer close(driverDone)
		driveInput(d, f, metrics)
	}()

	d.Run(workers)
	<-driverDone

	emitter, err := ingest.NewEmitter(os.Stdout)
	if err != nil {
		return fmt.Errorf("initializing emitter: %w", err)
	}
	if err := emitter.EmitAll(registry); err != nil {
		log.Error("snapshot emission encountered an error", "err", err)
	}

	log.Info("run complete", "accounts", registry.Len(), "workers", workers)
	return nil
}

// workerCount reads --workers/NUM_WORKERS, falling back to the default on
// a parse failure, per spec.md §6 ("parse-failure falls back to 3").
// urfave/cli parses --workers itself; NUM_WORKERS is not bound to that
// flag, so it is read and validated here directly and a non-numeric value
// degrades gracefully instead of urfave/cli erroring out the whole run at
// flag-parse time.
func workerCount(ctx *cli.Context) int {
	if raw, ok := os.LookupEnv("NUM_WORKERS"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Warn("NUM_WORKERS is not a valid positive integer, falling back to default", "value", raw, "default", defaultWorkers)
			return defaultWorkers
		}
		return n
	}
	n := ctx.Int(workersFlag.Name)
	if n <= 0 {
		return defaultWorkers
	}
	return n
}

// driveInput is the input driver task (spec.md §4.3's "single task"): it
// parses records and submits events until EOF or a fatal read error, then
// marks the dispatcher's reading-status Done or Aborted and closes the
// ready signal so workers can exit once drained.
func driveInput(d *dispatch.Dispatcher, r io.Reader, metrics *telemetry.Metrics) {
	d.SetStatus(dispatch.InProgress)

	parser, err := ingest.NewParser(r)
	if err != nil {
		log.Error("failed to read input header, aborting", "err", err)
		d.SetStatus(dispatch.Aborted)
		d.Close()
		return
	}

	// parser.Next only ever returns io.EOF or a deliverable event: every
	// per-record decode/CSV-syntax problem is swallowed internally and
	// counted in parser.Dropped (spec.md §7, "Parser decoding errors on
	// individual records are non-fatal and do not change reading_status").
	// reading_status only ever goes Aborted above, on the input source
	// itself being unreadable.
	for {
		ev, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		d.Submit(ev)
	}

	if metrics != nil && parser.Dropped > 0 {
		for i := 0; i < parser.Dropped; i++ {
			metrics.RecordsMalformed.Inc()
		}
	}

	d.SetStatus(dispatch.Done)
	d.Close()
}
