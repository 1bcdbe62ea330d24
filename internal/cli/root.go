// Package cli wires the vz command tree to the observation engine. Stdout
// carries JSON payloads only; diagnostics and error narration go to stderr
// and the exit code signals success or failure.
package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/vizier-sh/vizier/internal/config"
	"go.uber.org/zap"
)

// CLI is the root command structure for vz.
type CLI struct {
	// Global flags
	Pretty         bool   `help:"Indent JSON output"`
	Verbose        bool   `short:"v" help:"Full wake payload and debug narration on stderr"`
	AllConnections bool   `help:"Include loopback and non-established connections"`
	NoPublicIP     bool   `name:"no-public-ip" help:"Skip the public IP lookup (the only network-touching probe)"`
	WatchPath      string `type:"path" help:"Filesystem subtree to watch for events (default: home directory)"`

	// Commands
	Wake     WakeCmd     `cmd:"" help:"Emit a one-shot cold-start orientation payload"`
	Snapshot SnapshotCmd `cmd:"" help:"Emit a single live-state observation"`
	Watch    WatchCmd    `cmd:"" help:"Poll live state on an interval and stream observations"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// Globals holds shared state for all commands.
type Globals struct {
	Pretty         bool
	Verbose        bool
	AllConnections bool
	NoPublicIP     bool
	WatchPath      string
	Stdout         io.Writer
	Stderr         io.Writer
	Config         *config.Config
	Logger         *zap.Logger

	// FlagsSet records which flags were explicitly provided, so commands
	// can distinguish CLI overrides from config defaults.
	FlagsSet map[string]bool
}

// NewGlobals merges CLI flags over config values: a flag that was not
// explicitly set falls back to the config file / environment.
func NewGlobals(c *CLI, cfg *config.Config) *Globals {
	g := &Globals{
		Pretty:         c.Pretty,
		Verbose:        c.Verbose,
		AllConnections: c.AllConnections,
		NoPublicIP:     c.NoPublicIP,
		WatchPath:      c.WatchPath,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Config:         cfg,
		FlagsSet:       map[string]bool{},
	}

	if cfg != nil {
		if !c.Pretty && cfg.Pretty {
			g.Pretty = true
		}
		if !c.Verbose && cfg.Verbose {
			g.Verbose = true
		}
		if !c.AllConnections && cfg.AllConnections {
			g.AllConnections = true
		}
		if !c.NoPublicIP && cfg.NoPublicIP {
			g.NoPublicIP = true
		}
		if c.WatchPath == "" && cfg.WatchPath != "" {
			g.WatchPath = cfg.WatchPath
		}
	}

	return g
}

// FlagProvided reports whether the named flag was given on the command
// line.
func (g *Globals) FlagProvided(name string) bool {
	return g.FlagsSet[name]
}

// PrettyFor resolves the pretty setting for a command. One-shot commands
// default to pretty on a terminal when the flag was not given anywhere;
// streaming output never auto-prettifies.
func (g *Globals) PrettyFor(oneShot bool) bool {
	if g.Pretty {
		return true
	}
	if !oneShot || g.FlagProvided("pretty") {
		return false
	}
	if f, ok := g.Stdout.(*os.File); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// Log returns the configured logger, or a nop logger.
func (g *Globals) Log() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// VersionCmd shows version information.
type VersionCmd struct{}

// Version information (set at build time).
var (
	Version = "dev"
	Commit  = "none"
)

// Run executes the version command.
func (v *VersionCmd) Run(globals *Globals) error {
	_, err := io.WriteString(globals.Stdout,
		`{"type":"version","version":"`+Version+`","commit":"`+Commit+`"}`+"\n")
	return err
}
