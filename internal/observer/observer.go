// Package observer collects system state. It defines the Observer and Waker
// contracts, a portable baseline implementation of every probe, and per-OS
// enrichment layers that override individual fields with higher-fidelity
// native data.
//
// Probes are independent: one probe's failure never aborts the others, and a
// failed probe contributes the schema's empty representation for its fields
// rather than an error. The only shared mutable state is the filesystem
// event cursor owned by a single Observer instance.
package observer

import (
	"context"
	"runtime"

	"github.com/vizier-sh/vizier/internal/schema"
	"go.uber.org/zap"
)

// Observer produces live-state snapshots. Implementations are stateful: they
// own the filesystem-event cursor and the process-relative monotonic clock.
//
// Snapshot is safe for concurrent use, but calls serialize on an internal
// mutex: a second Snapshot issued while one is outstanding queues behind it
// and observes the cursor state the first call left behind. Cursor reads and
// advances never interleave.
type Observer interface {
	Snapshot() (*schema.Observation, error)
	Close() error
}

// Waker produces the one-shot cold-start payload. Implementations are
// stateless; the context bounds the only network-touching probe.
type Waker interface {
	Wake(ctx context.Context) (*schema.WakeObservation, error)
}

// Config selects live-observation behavior.
type Config struct {
	// WatchPath is the filesystem subtree to watch for events. Empty means
	// the user's home directory. An explicitly set path that cannot be
	// watched is a construction error; a defaulted path that cannot be
	// watched degrades to empty fs_events.
	WatchPath string

	// AllConnections includes loopback endpoints and non-ESTABLISHED states
	// in net_connections.
	AllConnections bool

	Logger *zap.Logger
}

// WakeConfig selects wake-observation behavior.
type WakeConfig struct {
	// NoPublicIP skips the public-IP lookup, the only probe that touches
	// the network.
	NoPublicIP bool

	Logger *zap.Logger
}

// New selects and constructs the concrete Observer for the current build
// target. The selection happens once; callers hold the instance for the
// process lifetime.
func New(cfg Config) (Observer, error) {
	base, err := NewBaseline(cfg)
	if err != nil {
		return nil, err
	}

	switch runtime.GOOS {
	case "linux":
		return newLinuxObserver(base), nil
	case "darwin":
		return newDarwinObserver(base), nil
	case "windows":
		return newWindowsObserver(base), nil
	default:
		return base, nil
	}
}

// NewWaker selects and constructs the concrete Waker for the current build
// target.
func NewWaker(cfg WakeConfig) Waker {
	base := NewBaselineWaker(cfg)

	switch runtime.GOOS {
	case "linux":
		return newLinuxWaker(base)
	case "darwin":
		return newDarwinWaker(base)
	case "windows":
		return newWindowsWaker(base)
	default:
		return base
	}
}
