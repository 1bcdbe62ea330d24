package observer

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/vizier-sh/vizier/internal/schema"
)

// Traversal caps. Wake latency stays bounded regardless of home-directory
// size: the recent-file walk visits at most walkMaxEntries entries at most
// walkMaxDepth deep.
const (
	wakeRecentFiles  = 10
	homeTreeEntries  = 20
	homeTreeChildren = 20
	walkMaxDepth     = 5
	walkMaxEntries   = 5000
)

// buildHomeTree summarizes the top-level home directories: small ones list
// their children, large ones report only a count.
func buildHomeTree(home string) []schema.HomeTreeEntry {
	tree := []schema.HomeTreeEntry{}

	entries, err := os.ReadDir(home)
	if err != nil {
		return tree
	}
	if len(entries) > homeTreeEntries {
		entries = entries[:homeTreeEntries]
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(home, entry.Name())
		node := schema.HomeTreeEntry{
			Path: tildePath(home, path),
			Kind: "dir",
		}

		children, err := os.ReadDir(path)
		if err == nil {
			if len(children) <= homeTreeChildren {
				names := make([]string, 0, len(children))
				for _, child := range children {
					names = append(names, child.Name())
				}
				node.Children = names
			} else {
				count := len(children)
				node.EntryCount = &count
			}
		}

		tree = append(tree, node)
	}

	return tree
}

type recentCandidate struct {
	path     string
	modified time.Time
}

// recentFiles walks the home tree within the traversal caps and returns the
// top-k files by modification time, newest first, ties broken by lexical
// path order for determinism.
func recentFiles(home string, k int) []schema.RecentFileInfo {
	now := time.Now()
	visited := 0
	candidates := make([]recentCandidate, 0, 256)

	_ = filepath.WalkDir(home, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		visited++
		if visited > walkMaxEntries {
			return fs.SkipAll
		}
		if d.IsDir() {
			rel, relErr := filepath.Rel(home, path)
			if relErr == nil && path != home && 1+countSeparators(rel) > walkMaxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		candidates = append(candidates, recentCandidate{path: path, modified: info.ModTime()})
		return nil
	})

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].modified.Equal(candidates[j].modified) {
			return candidates[i].modified.After(candidates[j].modified)
		}
		return candidates[i].path < candidates[j].path
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]schema.RecentFileInfo, 0, len(candidates))
	for _, c := range candidates {
		ago := uint64(0)
		if d := now.Sub(c.modified); d > 0 {
			ago = uint64(d.Seconds())
		}
		out = append(out, schema.RecentFileInfo{Path: c.path, ModifiedAgoS: ago})
	}
	return out
}

func collectMounts() []schema.MountInfo {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return []schema.MountInfo{}
	}

	mounts := make([]schema.MountInfo, 0, len(partitions))
	for _, part := range partitions {
		usage, err := disk.Usage(part.Mountpoint)
		if err != nil {
			continue
		}
		mounts = append(mounts, schema.MountInfo{
			Path:    part.Mountpoint,
			FSType:  part.Fstype,
			TotalGB: bytesToGB(usage.Total),
			FreeGB:  bytesToGB(usage.Free),
		})
	}
	return mounts
}

// shellHistory returns the trailing commands from the first shell history
// file found. zsh extended-history timestamps (": ts:0;cmd") are stripped.
func shellHistory(home string, maxItems int) []string {
	for _, name := range []string{".zsh_history", ".bash_history"} {
		content, err := os.ReadFile(filepath.Join(home, name))
		if err != nil {
			continue
		}

		lines := make([]string, 0, maxItems)
		for _, line := range strings.Split(string(content), "\n") {
			if strings.HasPrefix(line, ": ") {
				if _, command, found := strings.Cut(line, ";"); found {
					line = command
				}
			}
			line = strings.TrimSpace(line)
			if line != "" {
				lines = append(lines, line)
			}
		}

		if len(lines) > maxItems {
			lines = lines[len(lines)-maxItems:]
		}
		return lines
	}

	return []string{}
}

func tildePath(home, path string) string {
	rel, err := filepath.Rel(home, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	if rel == "." {
		return "~"
	}
	return "~/" + filepath.ToSlash(rel)
}

func sortBootProcesses(procs []schema.RunningProcessInfo) {
	sort.Slice(procs, func(i, j int) bool {
		if procs[i].StartedAgoS != procs[j].StartedAgoS {
			return procs[i].StartedAgoS > procs[j].StartedAgoS
		}
		return procs[i].PID < procs[j].PID
	})
}
