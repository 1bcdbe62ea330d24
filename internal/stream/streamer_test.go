package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vizier-sh/vizier/internal/observer"
	"github.com/vizier-sh/vizier/internal/output"
	"github.com/vizier-sh/vizier/internal/schema"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeObserver hands out scripted observations and can be told to fail.
type fakeObserver struct {
	mu      sync.Mutex
	count   int
	failOn  int // 1-based snapshot index that returns an error; 0 disables
	baseTS  float64
	baseMon int64
}

var _ observer.Observer = (*fakeObserver)(nil)

func (f *fakeObserver) Snapshot() (*schema.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	if f.failOn != 0 && f.count >= f.failOn {
		return nil, errors.New("probe exploded")
	}
	return &schema.Observation{
		SchemaVersion:  schema.SchemaVersion,
		TS:             f.baseTS + float64(f.count),
		MonotonicMS:    f.baseMon + int64(f.count)*1000,
		IdleMS:         int64(f.count * 10),
		Windows:        []schema.WindowInfo{},
		Displays:       []schema.DisplayInfo{},
		NetConnections: []schema.ConnInfo{},
		FSEvents:       []schema.FSEvent{},
	}, nil
}

func (f *fakeObserver) Close() error { return nil }

func (f *fakeObserver) snapshots() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// lockedBuffer lets the test read the sink while Run writes to it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw := strings.TrimRight(b.buf.String(), "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

func TestRunEmitsFullSnapshotFirst(t *testing.T) {
	obs := &fakeObserver{baseTS: 1700000000}
	buf := &lockedBuffer{}
	clk := clock.NewMock()

	s := New(obs, output.NewWriter(buf, false), Options{
		Interval: time.Second,
		Diff:     true,
		Clock:    clk,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(buf.snapshot()) >= 1
	}, time.Second, time.Millisecond)

	first := buf.snapshot()[0]
	var full schema.Observation
	require.NoError(t, json.Unmarshal([]byte(first), &full))
	assert.Equal(t, schema.SchemaVersion, full.SchemaVersion)
	assert.NotContains(t, first, `"patch"`)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateTerminated, s.State())
}

func TestRunDiffModeEmitsEnvelopesAfterFirst(t *testing.T) {
	obs := &fakeObserver{baseTS: 1700000000}
	buf := &lockedBuffer{}
	clk := clock.NewMock()

	s := New(obs, output.NewWriter(buf, false), Options{
		Interval: time.Second,
		Diff:     true,
		Clock:    clk,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(buf.snapshot()) >= 1
	}, time.Second, time.Millisecond)

	// Advance inside the poll: the ticker may not be armed yet on the
	// first attempt.
	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		return len(buf.snapshot()) >= 3
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	out := buf.snapshot()
	for i, line := range out[1:] {
		var env struct {
			TS          float64           `json:"ts"`
			MonotonicMS int64             `json:"monotonic_ms"`
			Patch       []json.RawMessage `json:"patch"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &env), "line %d", i+2)
		assert.NotNil(t, env.Patch)
		assert.NotContains(t, line, `"schema_version"`)
	}
}

func TestRunFullModeRepeatsSnapshots(t *testing.T) {
	obs := &fakeObserver{baseTS: 1700000000}
	buf := &lockedBuffer{}
	clk := clock.NewMock()

	s := New(obs, output.NewWriter(buf, false), Options{
		Interval: 250 * time.Millisecond,
		Clock:    clk,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(buf.snapshot()) >= 1
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		clk.Add(250 * time.Millisecond)
		return len(buf.snapshot()) >= 2
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	for _, line := range buf.snapshot() {
		var full schema.Observation
		require.NoError(t, json.Unmarshal([]byte(line), &full))
		assert.Equal(t, schema.SchemaVersion, full.SchemaVersion)
	}
}

func TestRunCancellationIsCleanExit(t *testing.T) {
	obs := &fakeObserver{baseTS: 1700000000}
	buf := &lockedBuffer{}

	s := New(obs, output.NewWriter(buf, false), Options{
		Interval: time.Hour, // never ticks; only cancellation ends the run
		Clock:    clock.NewMock(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(buf.snapshot()) == 1
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateTerminated, s.State())
	assert.Equal(t, 1, obs.snapshots())
}

func TestRunInitialSnapshotFailure(t *testing.T) {
	obs := &fakeObserver{failOn: 1}
	buf := &lockedBuffer{}

	s := New(obs, output.NewWriter(buf, false), Options{Clock: clock.NewMock()})

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "initial snapshot")
	assert.Equal(t, StateFailed, s.State())
	assert.Empty(t, buf.snapshot())
}

func TestRunLaterSnapshotFailure(t *testing.T) {
	obs := &fakeObserver{failOn: 2, baseTS: 1700000000}
	buf := &lockedBuffer{}
	clk := clock.NewMock()

	s := New(obs, output.NewWriter(buf, false), Options{
		Interval: time.Second,
		Diff:     true,
		Clock:    clk,
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return len(buf.snapshot()) == 1
	}, time.Second, time.Millisecond)

	stop := make(chan struct{})
	var tickWG sync.WaitGroup
	tickWG.Add(1)
	go func() {
		defer tickWG.Done()
		for {
			select {
			case <-time.After(time.Millisecond):
				clk.Add(time.Second)
			case <-stop:
				return
			}
		}
	}()

	err := <-done
	close(stop)
	tickWG.Wait()
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
	assert.Len(t, buf.snapshot(), 1)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "init", StateInit.String())
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "terminated", StateTerminated.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}
