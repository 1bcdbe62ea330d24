package observer

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/vizier-sh/vizier/internal/schema"
	"go.uber.org/zap"
)

// Baseline implements Observer with portable facilities only. Platform
// backends embed it and override individual fields; it is also the selected
// implementation on unrecognized targets.
type Baseline struct {
	startedAt      time.Time
	allConnections bool
	log            *zap.Logger

	// pollMu serializes Snapshot calls. A queued call runs only after the
	// in-flight one has fully assembled its result and advanced the cursor.
	pollMu sync.Mutex

	watch     *fsWatcher
	firstPoll bool
}

// ErrWatchPath reports that an explicitly configured watch path could not be
// watched. A defaulted path failing is not an error; fs_events just stays
// empty.
var ErrWatchPath = errors.New("watch path cannot be watched")

// NewBaseline constructs the portable observer and initializes the
// filesystem watch.
func NewBaseline(cfg Config) (*Baseline, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	b := &Baseline{
		startedAt:      time.Now(),
		allConnections: cfg.AllConnections,
		log:            log,
		firstPoll:      true,
	}

	root := cfg.WatchPath
	explicit := root != ""
	if root == "" {
		root, _ = os.UserHomeDir()
	}

	if root != "" {
		watch, err := newFSWatcher(root, log)
		switch {
		case err == nil:
			b.watch = watch
		case explicit:
			return nil, errors.Join(ErrWatchPath, err)
		default:
			log.Debug("home watch unavailable", zap.Error(err))
		}
	}

	return b, nil
}

// Snapshot gathers all live fields in one pass, reads the filesystem-watch
// delta since the cursor, and advances the cursor. The first poll reports no
// filesystem events by construction: there is no prior baseline to diff
// against.
func (b *Baseline) Snapshot() (*schema.Observation, error) {
	b.pollMu.Lock()
	defer b.pollMu.Unlock()

	obs := &schema.Observation{
		SchemaVersion:  schema.SchemaVersion,
		TS:             nowTS(),
		MonotonicMS:    time.Since(b.startedAt).Milliseconds(),
		IdleMS:         0,
		Windows:        []schema.WindowInfo{},
		Cursor:         schema.Point{},
		Displays:       []schema.DisplayInfo{},
		NetConnections: collectConnections(b.allConnections),
		FSEvents:       b.collectFSEvents(),
	}

	if shell, ok := os.LookupEnv("SHELL"); ok {
		window := schema.WindowInfo{
			ID:    "local-shell",
			Title: envOr("TERM", "Terminal"),
			App:   envOr("TERM_PROGRAM", "Terminal"),
			PID:   int32(os.Getpid()),
		}
		obs.Windows = append(obs.Windows, window)
		obs.Focus = &window
		obs.Displays = []schema.DisplayInfo{{IsPrimary: true, ScaleFactor: 1.0}}
		obs.TerminalCtx = terminalContext(shell)
	}

	return obs, nil
}

func (b *Baseline) collectFSEvents() []schema.FSEvent {
	var events []schema.FSEvent
	if b.watch != nil {
		events = b.watch.drain()
	}

	if b.firstPoll {
		b.firstPoll = false
		return []schema.FSEvent{}
	}
	if events == nil {
		events = []schema.FSEvent{}
	}
	return events
}

// Close releases the filesystem watch.
func (b *Baseline) Close() error {
	if b.watch == nil {
		return nil
	}
	return b.watch.close()
}

func terminalContext(shell string) *schema.TerminalCtx {
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}
	return &schema.TerminalCtx{CWD: cwd, Shell: shell}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func nowTS() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
