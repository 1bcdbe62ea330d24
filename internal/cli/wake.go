package cli

import (
	"context"
	"fmt"

	"github.com/vizier-sh/vizier/internal/observer"
	"github.com/vizier-sh/vizier/internal/output"
	"github.com/vizier-sh/vizier/internal/schema"
)

// WakeCmd emits the one-shot cold-start payload and exits. The payload is
// compacted unless --verbose asks for the full profile.
type WakeCmd struct{}

// Run executes the wake command.
func (c *WakeCmd) Run(globals *Globals) error {
	waker := observer.NewWaker(observer.WakeConfig{
		NoPublicIP: globals.NoPublicIP,
		Logger:     globals.Log(),
	})

	wake, err := waker.Wake(context.Background())
	if err != nil {
		return failf(globals, "wake failed: %v", err)
	}

	payload := *wake
	if !globals.Verbose {
		payload = schema.Compact(payload)
	}

	sink := output.NewWriter(globals.Stdout, globals.PrettyFor(true))
	if err := sink.Write(&payload); err != nil {
		return failf(globals, "write wake payload: %v", err)
	}
	return nil
}

// failf narrates on stderr and returns an error so the process exits
// non-zero; stdout stays JSON-only.
func failf(globals *Globals, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	fmt.Fprintln(globals.Stderr, "vz: "+err.Error())
	return err
}
