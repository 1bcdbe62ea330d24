package schema

import "strings"

// Limits applied by Compact. Cardinality only; field names and types are
// never changed.
const (
	compactMaxGroups      = 2
	compactMaxHistory     = 5
	compactMaxRecentFiles = 5
	compactMaxPorts       = 10
	compactMaxSessions    = 5
	compactMaxBootProcs   = 10
)

// shellWrapperPrefixes are stripped from history entries so the command
// itself survives compaction.
var shellWrapperPrefixes = []string{"sudo ", "time ", "nohup ", "env "}

// Compact returns a reduced copy of the observation for low-bandwidth
// consumers: high-volume lists truncated, the home tree omitted. The
// transform is pure and idempotent; compacting an already-compact
// observation yields the same result.
func Compact(w WakeObservation) WakeObservation {
	out := w

	out.User.Groups = truncate(w.User.Groups, compactMaxGroups)
	out.Filesystem.HomeTree = nil
	out.Filesystem.RecentFiles = truncate(w.Filesystem.RecentFiles, compactMaxRecentFiles)
	out.ListeningPorts = truncate(w.ListeningPorts, compactMaxPorts)
	out.OtherSessions = truncate(w.OtherSessions, compactMaxSessions)
	out.RecentActivity.RunningSinceBoot = truncate(w.RecentActivity.RunningSinceBoot, compactMaxBootProcs)

	history := make([]string, 0, len(w.RecentActivity.ShellHistory))
	for _, entry := range w.RecentActivity.ShellHistory {
		history = append(history, stripWrappers(entry))
	}
	if len(history) > compactMaxHistory {
		history = history[len(history)-compactMaxHistory:]
	}
	out.RecentActivity.ShellHistory = history

	return out
}

func stripWrappers(command string) string {
	for {
		stripped := false
		for _, prefix := range shellWrapperPrefixes {
			if strings.HasPrefix(command, prefix) {
				command = strings.TrimSpace(strings.TrimPrefix(command, prefix))
				stripped = true
			}
		}
		if !stripped {
			return command
		}
	}
}

// truncate keeps the first n elements and always copies, so Compact never
// aliases the input's backing arrays.
func truncate[T any](in []T, n int) []T {
	if in == nil {
		return nil
	}
	if len(in) > n {
		in = in[:n]
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
