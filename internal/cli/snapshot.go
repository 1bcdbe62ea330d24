package cli

import (
	"github.com/vizier-sh/vizier/internal/observer"
	"github.com/vizier-sh/vizier/internal/output"
)

// SnapshotCmd emits a single live-state observation and exits.
type SnapshotCmd struct{}

// Run executes the snapshot command.
func (c *SnapshotCmd) Run(globals *Globals) error {
	obs, err := observer.New(observer.Config{
		WatchPath:      globals.WatchPath,
		AllConnections: globals.AllConnections,
		Logger:         globals.Log(),
	})
	if err != nil {
		return failf(globals, "observer init: %v", err)
	}
	defer obs.Close()

	snapshot, err := obs.Snapshot()
	if err != nil {
		return failf(globals, "snapshot failed: %v", err)
	}

	sink := output.NewWriter(globals.Stdout, globals.PrettyFor(true))
	if err := sink.Write(snapshot); err != nil {
		return failf(globals, "write snapshot: %v", err)
	}
	return nil
}
