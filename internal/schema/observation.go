// Package schema defines the payload shapes vizier emits: the one-shot
// WakeObservation and the repeatedly-polled Observation, plus their nested
// value types. The package carries structure and invariants only; collection
// lives in internal/observer.
//
// SchemaVersion is the sole compatibility signal. Consumers must reject an
// unknown major value rather than guess field meaning. Optional fields are
// pointers: absence means "unknown/unavailable", never false or zero.
package schema

// SchemaVersion is incremented only on breaking shape changes.
const SchemaVersion = 1

// Observation is one live-state poll. It is produced by a stateful observer
// that persists between polls; monotonic_ms is non-decreasing across polls
// from the same process and fs_events is always empty on the first poll.
type Observation struct {
	SchemaVersion  int           `json:"schema_version"`
	TS             float64       `json:"ts"`
	MonotonicMS    int64         `json:"monotonic_ms"`
	IdleMS         int64         `json:"idle_ms"`
	Focus          *WindowInfo   `json:"focus"`
	Windows        []WindowInfo  `json:"windows"`
	Cursor         Point         `json:"cursor"`
	Displays       []DisplayInfo `json:"displays"`
	TerminalCtx    *TerminalCtx  `json:"terminal_ctx"`
	NetConnections []ConnInfo    `json:"net_connections"`
	FSEvents       []FSEvent     `json:"fs_events"`
}

// WindowInfo describes one window, front-to-back in z-order when listed.
type WindowInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	App          string `json:"app"`
	PID          int32  `json:"pid"`
	Bounds       Bounds `json:"bounds"`
	Workspace    int    `json:"workspace"`
	IsMinimized  bool   `json:"is_minimized"`
	IsFullscreen bool   `json:"is_fullscreen"`
}

// DisplayInfo describes one attached display.
type DisplayInfo struct {
	ID          int     `json:"id"`
	Bounds      Bounds  `json:"bounds"`
	IsPrimary   bool    `json:"is_primary"`
	ScaleFactor float64 `json:"scale_factor"`
}

// TerminalCtx is the working directory and shell of the focused terminal.
type TerminalCtx struct {
	CWD   string `json:"cwd"`
	Shell string `json:"shell"`
}

// ConnInfo is one live network connection. Loopback endpoints and
// non-ESTABLISHED states are excluded unless explicitly requested.
type ConnInfo struct {
	Proto      string `json:"proto"`
	LocalPort  uint16 `json:"local_port"`
	RemoteAddr string `json:"remote_addr"`
	RemotePort uint16 `json:"remote_port"`
	PID        int32  `json:"pid"`
	App        string `json:"app"`
	State      string `json:"state"`
}

// Filesystem event kinds.
const (
	FSEventCreate = "Create"
	FSEventModify = "Modify"
	FSEventDelete = "Delete"
	FSEventRename = "Rename"
)

// FSEvent is one filesystem change observed since the previous poll of the
// same engine instance.
type FSEvent struct {
	Path string  `json:"path"`
	Kind string  `json:"kind"`
	TS   float64 `json:"ts"`
}

// Point is a screen coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bounds is a screen rectangle.
type Bounds struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}
