// Package stream drives the observation engine on a fixed interval and
// emits either full snapshots or diff envelopes to a sink.
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/vizier-sh/vizier/internal/diff"
	"github.com/vizier-sh/vizier/internal/observer"
	"github.com/vizier-sh/vizier/internal/output"
	"go.uber.org/zap"
)

// State is the streaming loop's lifecycle position.
type State int

const (
	StateInit State = iota
	StateStreaming
	StateTerminated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a Streamer.
type Options struct {
	// Interval between ticks. Defaults to one second.
	Interval time.Duration

	// Diff emits patch envelopes after the initial full snapshot instead
	// of repeating full snapshots.
	Diff bool

	// Clock defaults to the real clock; tests inject a mock.
	Clock clock.Clock

	Logger *zap.Logger
}

// Streamer owns one Observer for its lifetime and serializes all polling:
// tick N+1 never starts before tick N's snapshot is assembled, diffed and
// emitted.
type Streamer struct {
	obs      observer.Observer
	sink     *output.Writer
	interval time.Duration
	diffMode bool
	clk      clock.Clock
	log      *zap.Logger
	state    State
}

// New creates a streamer in StateInit.
func New(obs observer.Observer, sink *output.Writer, opts Options) *Streamer {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Streamer{
		obs:      obs,
		sink:     sink,
		interval: opts.Interval,
		diffMode: opts.Diff,
		clk:      opts.Clock,
		log:      opts.Logger,
		state:    StateInit,
	}
}

// State reports the loop's current lifecycle position.
func (s *Streamer) State() State {
	return s.state
}

// Run executes the loop until the context is canceled or a poll fails.
//
// On entry the loop emits one unconditional full snapshot, never a patch,
// seeding consumers with complete state. Each later tick polls again; in
// diff mode the emitted unit is an envelope against the last snapshot and
// the new snapshot becomes the reference. Cancellation is cooperative,
// checked at tick boundaries, and every exit path flushes the sink.
// Cancellation returns nil; a failed poll or emit returns the error with
// the state left at StateFailed.
func (s *Streamer) Run(ctx context.Context) error {
	s.state = StateStreaming
	defer func() {
		if err := s.sink.Flush(); err != nil {
			s.log.Debug("flush on exit failed", zap.Error(err))
		}
	}()

	previous, err := s.obs.Snapshot()
	if err != nil {
		s.state = StateFailed
		return fmt.Errorf("initial snapshot: %w", err)
	}
	if err := s.sink.Write(previous); err != nil {
		s.state = StateFailed
		return fmt.Errorf("emit snapshot: %w", err)
	}

	ticker := s.clk.Ticker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.state = StateTerminated
			s.log.Debug("stream canceled")
			return nil

		case <-ticker.C:
			current, err := s.obs.Snapshot()
			if err != nil {
				s.state = StateFailed
				return fmt.Errorf("snapshot: %w", err)
			}

			if !s.diffMode {
				if err := s.sink.Write(current); err != nil {
					s.state = StateFailed
					return fmt.Errorf("emit snapshot: %w", err)
				}
				continue
			}

			envelope, err := diff.CreateEnvelope(previous, current)
			if err != nil {
				s.state = StateFailed
				return fmt.Errorf("diff: %w", err)
			}
			if err := s.sink.Write(envelope); err != nil {
				s.state = StateFailed
				return fmt.Errorf("emit envelope: %w", err)
			}
			previous = current
		}
	}
}
