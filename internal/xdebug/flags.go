// Package xdebug wires CLI-configurable logging (and, optionally, a pprof
// HTTP server) the same way MetalBlockchain/coreth's internal/debug package
// does: a glog-style handler whose verbosity, format and destination are
// set from cli.Flag values as early as possible in main.
package xdebug

import (
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof" // nolint: gosec
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dmalm9/payments-engine/internal/xflags"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: xflags.LoggingCategory,
	}
	vmoduleFlag = &cli.StringFlag{
		Name:     "vmodule",
		Usage:    "Per-module verbosity: comma-separated list of <pattern>=<level>",
		Category: xflags.LoggingCategory,
	}
	logJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs with JSON",
		Category: xflags.LoggingCategory,
	}
	logFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a file instead of stderr (rotated, see --log.maxsize)",
		Category: xflags.LoggingCategory,
	}
	logFileMaxSizeFlag = &cli.IntFlag{
		Name:     "log.maxsize",
		Usage:    "Maximum size in megabytes of the log file before it gets rotated",
		Value:    100,
		Category: xflags.LoggingCategory,
	}
	debugFlag = &cli.BoolFlag{
		Name:     "log.debug",
		Usage:    "Prepends log messages with call-site location (file and line number)",
		Category: xflags.LoggingCategory,
	}
	pprofFlag = &cli.BoolFlag{
		Name:     "pprof",
		Usage:    "Enable the pprof HTTP server",
		Category: xflags.TelemetryCategory,
	}
	pprofAddrFlag = &cli.StringFlag{
		Name:     "pprof.addr",
		Usage:    "pprof HTTP server listening address (host:port)",
		Value:    "127.0.0.1:6060",
		Category: xflags.TelemetryCategory,
	}
)

// Flags holds all command-line flags required for logging and debugging.
var Flags = []cli.Flag{
	verbosityFlag,
	vmoduleFlag,
	logJSONFlag,
	logFileFlag,
	logFileMaxSizeFlag,
	debugFlag,
	pprofFlag,
	pprofAddrFlag,
}

var (
	glogger         *log.GlogHandler
	logOutputStream log.Handler
)

func init() {
	glogger = log.NewGlogHandler(log.StreamHandler(os.Stderr, log.TerminalFormat(false)))
	glogger.Verbosity(log.LvlInfo)
	log.Root().SetHandler(glogger)
}

// Setup initializes logging based on the CLI flags. Call as early as
// possible in main, before any other flag is read.
func Setup(ctx *cli.Context) error {
	logFile := ctx.String(logFileFlag.Name)
	useColor := logFile == "" && os.Getenv("TERM") != "dumb" &&
		(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))

	var logfmt log.Format
	if ctx.Bool(logJSONFlag.Name) {
		logfmt = log.JSONFormat()
	} else {
		logfmt = log.TerminalFormat(useColor)
	}

	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename: logFile,
			MaxSize:  ctx.Int(logFileMaxSizeFlag.Name),
			Compress: true,
		}
		logOutputStream = log.StreamHandler(rotator, logfmt)
	} else {
		output := io.Writer(os.Stderr)
		if useColor {
			output = colorable.NewColorableStderr()
		}
		logOutputStream = log.StreamHandler(output, logfmt)
	}
	glogger.SetHandler(logOutputStream)

	glogger.Verbosity(log.Lvl(ctx.Int(verbosityFlag.Name)))
	glogger.Vmodule(ctx.String(vmoduleFlag.Name))
	log.PrintOrigins(ctx.Bool(debugFlag.Name))
	log.Root().SetHandler(glogger)

	if ctx.Bool(pprofFlag.Name) {
		StartPProf(ctx.String(pprofAddrFlag.Name))
	}
	return nil
}

// StartPProf serves net/http/pprof's default mux on address in the
// background. Errors starting the listener are logged, not fatal: pprof is
// a diagnostic aid, never load-bearing for the engine's own correctness.
func StartPProf(address string) {
	log.Info("Starting pprof server", "addr", fmt.Sprintf("http://%s/debug/pprof", address))
	go func() {
		if err := http.ListenAndServe(address, nil); err != nil {
			log.Error("Failure in running pprof server", "err", err)
		}
	}()
}

// Exit flushes the log output stream if it needs closing (e.g. a rotated
// file handle). Call once at the end of main.
func Exit() {
	if closer, ok := logOutputStream.(io.Closer); ok {
		closer.Close()
	}
}
