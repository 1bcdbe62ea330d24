package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/vizier-sh/vizier/internal/cli"
	"github.com/vizier-sh/vizier/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration from files/environment; flags override below.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vz: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	var c cli.CLI
	ctx := kong.Parse(&c,
		kong.Name("vz"),
		kong.Description("System perception utility: machine-readable desktop and system state for automated agents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	)

	globals := cli.NewGlobals(&c, cfg)
	for _, p := range ctx.Path {
		if p.Flag != nil {
			globals.FlagsSet[p.Flag.Name] = true
		}
	}
	globals.Logger = newLogger(globals.Verbose)
	defer globals.Logger.Sync() //nolint:errcheck // stderr sync failure is uninteresting at exit

	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the stderr diagnostics logger. Quiet by default: only
// --verbose gets a console-encoded debug logger.
func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}
