package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/vizier-sh/vizier/internal/observer"
	"github.com/vizier-sh/vizier/internal/output"
	"github.com/vizier-sh/vizier/internal/stream"
)

// WatchCmd polls live state on a fixed interval and streams the results as
// newline-delimited JSON. The first line is always a full observation; with
// --diff every following line is a patch envelope against the previously
// emitted state.
type WatchCmd struct {
	Interval int  `default:"1000" help:"Milliseconds between polls"`
	Diff     bool `help:"Emit patch envelopes instead of repeating full snapshots"`
}

// Run executes the watch command until interrupted.
func (c *WatchCmd) Run(globals *Globals) error {
	interval := c.Interval
	if !globals.FlagProvided("interval") && globals.Config != nil && globals.Config.IntervalMS != 0 {
		interval = globals.Config.IntervalMS
	}
	if interval <= 0 {
		return failf(globals, "invalid interval: %d ms", interval)
	}

	diffMode := c.Diff
	if !diffMode && globals.Config != nil {
		diffMode = globals.Config.Diff
	}

	obs, err := observer.New(observer.Config{
		WatchPath:      globals.WatchPath,
		AllConnections: globals.AllConnections,
		Logger:         globals.Log(),
	})
	if err != nil {
		if errors.Is(err, observer.ErrWatchPath) {
			return failf(globals, "watch path %q: %v", globals.WatchPath, err)
		}
		return failf(globals, "observer init: %v", err)
	}
	defer obs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink := output.NewWriter(globals.Stdout, globals.PrettyFor(false))
	streamer := stream.New(obs, sink, stream.Options{
		Interval: time.Duration(interval) * time.Millisecond,
		Diff:     diffMode,
		Logger:   globals.Log(),
	})

	if err := streamer.Run(ctx); err != nil {
		return failf(globals, "stream failed: %v", err)
	}
	return nil
}
