package observer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vizier-sh/vizier/internal/schema"
)

// commandTimeout bounds every external command probe.
const commandTimeout = 2 * time.Second

// appCatalog is the set of well-known tools the baseline probe recognizes,
// by PATH binary or /Applications bundle.
var appCatalog = []struct {
	name string
	id   string
	kind string
}{
	{"Visual Studio Code", "code", "ide"},
	{"Firefox", "firefox", "browser"},
	{"Google Chrome", "google-chrome", "browser"},
	{"Alacritty", "alacritty", "terminal"},
	{"WezTerm", "wezterm", "terminal"},
	{"Docker", "docker", "infra"},
	{"Python", "python3", "runtime"},
	{"Node", "node", "runtime"},
	{"Git", "git", "other"},
}

func installedApps() []schema.InstalledApp {
	apps := []schema.InstalledApp{}

	for _, entry := range appCatalog {
		if !binaryInPath(entry.id) && !appBundleExists(entry.name) {
			continue
		}

		app := schema.InstalledApp{Name: entry.name, ID: entry.id, Kind: entry.kind}
		if entry.id == "python3" {
			if version := commandVersion("python3", "--version"); version != "" {
				app.Version = &version
			}
		}
		apps = append(apps, app)
	}

	return apps
}

func binaryInPath(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

func appBundleExists(name string) bool {
	return fileExists(filepath.Join("/Applications", name+".app"))
}

// appBundlePath returns the bundle directory for a catalog name, or "".
func appBundlePath(name string) string {
	path := filepath.Join("/Applications", name+".app")
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return ""
}

// commandVersion runs a version probe and returns its first output line.
func commandVersion(binary, arg string) string {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, arg).CombinedOutput()
	if err != nil && len(out) == 0 {
		return ""
	}

	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}

// commandOutput runs an external command and returns its trimmed stdout.
// Output is untrusted text; callers parse defensively. Failure or empty
// output yields "".
func commandOutput(binary string, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
