package observer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/vizier-sh/vizier/internal/schema"
	"howett.net/plist"
)

// darwinObserver enriches the baseline snapshot with the native idle-time
// reading. Window, cursor and display probes via CoreGraphics are out of
// scope; the baseline values stand in for them.
type darwinObserver struct {
	*Baseline
}

func newDarwinObserver(base *Baseline) *darwinObserver {
	return &darwinObserver{Baseline: base}
}

func (o *darwinObserver) Snapshot() (*schema.Observation, error) {
	obs, err := o.Baseline.Snapshot()
	if err != nil {
		return nil, err
	}

	if idle, ok := hidIdleMS(commandOutput("ioreg", "-c", "IOHIDSystem")); ok {
		obs.IdleMS = idle
	}

	return obs, nil
}

// darwinWaker enriches machine identity, DNS, gateway, GPUs, uptime and app
// versions with macOS-native sources.
type darwinWaker struct {
	*BaselineWaker
}

func newDarwinWaker(base *BaselineWaker) *darwinWaker {
	return &darwinWaker{BaselineWaker: base}
}

func (w *darwinWaker) Wake(ctx context.Context) (*schema.WakeObservation, error) {
	wake, err := w.BaselineWaker.Wake(ctx)
	if err != nil {
		return nil, err
	}

	wake.Machine.OS = "macOS"
	if version := commandOutput("sw_vers", "-productVersion"); version != "" {
		wake.Machine.OSVersion = version
	}
	if kernel := commandOutput("uname", "-r"); kernel != "" {
		wake.Machine.Kernel = kernel
	}
	if model := commandOutput("sysctl", "-n", "hw.model"); model != "" {
		wake.Machine.Chassis = chassisFromModel(model)
	}

	if groups := commandFields("id", "-Gn"); len(groups) > 0 {
		wake.User.Groups = groups
	}

	if servers := scutilDNSServers(commandOutput("scutil", "--dns")); len(servers) > 0 {
		wake.NetworkIdentity.DNSServers = servers
	}
	if gateway := netstatGateway(commandOutput("netstat", "-nr")); gateway != "" {
		wake.NetworkIdentity.DefaultGateway = &gateway
	}

	if gpus := profilerGPUs(commandOutput("system_profiler", "SPDisplaysDataType", "-json")); len(gpus) > 0 {
		wake.Resources.GPUs = gpus
	}

	if uptime, ok := boottimeUptime(commandOutput("sysctl", "-n", "kern.boottime"), wake.TS); ok {
		wake.DateTime.UptimeSeconds = uptime
		wake.DateTime.LoginTS = wake.TS - float64(uptime)
	}

	if procs := bootProcesses(uint64(wake.TS), 120, 20); len(procs) > 0 {
		wake.RecentActivity.RunningSinceBoot = procs
	}

	enrichAppVersions(wake.InstalledApps)

	return wake, nil
}

// hidIdleMS extracts HIDIdleTime (nanoseconds) from ioreg output.
func hidIdleMS(output string) (int64, bool) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "HIDIdleTime") {
			continue
		}
		_, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		ns, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || ns < 0 {
			continue
		}
		return ns / 1e6, true
	}
	return 0, false
}

func chassisFromModel(model string) string {
	if strings.Contains(model, "Book") {
		return "Laptop"
	}
	return "Desktop"
}

// scutilDNSServers pulls nameserver lines from `scutil --dns` output.
func scutilDNSServers(output string) []string {
	servers := []string{}
	seen := map[string]struct{}{}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "nameserver[") {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		server := strings.TrimSpace(value)
		if server == "" {
			continue
		}
		if _, dup := seen[server]; dup {
			continue
		}
		seen[server] = struct{}{}
		servers = append(servers, server)
	}
	return servers
}

// netstatGateway finds the IPv4 default route gateway in `netstat -nr`
// output.
func netstatGateway(output string) string {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "default" {
			continue
		}
		if strings.Count(fields[1], ".") == 3 {
			return fields[1]
		}
	}
	return ""
}

// profilerGPUs parses `system_profiler SPDisplaysDataType -json`. The
// output is untrusted JSON; every field defaults on absence.
func profilerGPUs(output string) []schema.GpuInfo {
	if output == "" || !gjson.Valid(output) {
		return nil
	}

	var gpus []schema.GpuInfo
	gjson.Get(output, "SPDisplaysDataType").ForEach(func(_, entry gjson.Result) bool {
		name := entry.Get("sppci_model").String()
		if name == "" {
			name = "unknown"
		}
		gpu := schema.GpuInfo{Name: name, Driver: "unknown"}

		// VRAM is reported as e.g. "8 GB" or "1536 MB".
		vram := entry.Get("spdisplays_vram").String()
		if vram == "" {
			vram = entry.Get("spdisplays_vram_shared").String()
		}
		if gb, ok := parseVRAMGB(vram); ok {
			gpu.VRAMGB = &gb
		}

		gpus = append(gpus, gpu)
		return true
	})
	return gpus
}

func parseVRAMGB(value string) (float64, bool) {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return 0, false
	}
	amount, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(fields[1]) {
	case "GB":
		return amount, true
	case "MB":
		return amount / 1024, true
	default:
		return 0, false
	}
}

// boottimeUptime parses `sysctl -n kern.boottime` output of the form
// "{ sec = 1700000000, usec = 0 } ..." and applies the sanity cap.
func boottimeUptime(output string, nowTS float64) (uint64, bool) {
	idx := strings.Index(output, "sec =")
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(output[idx+len("sec ="):])
	end := strings.IndexAny(rest, ", }")
	if end > 0 {
		rest = rest[:end]
	}
	boot, err := strconv.ParseFloat(rest, 64)
	if err != nil || boot <= 0 {
		return 0, false
	}
	elapsed := nowTS - boot
	if elapsed <= 0 || elapsed > maxUptimeSeconds {
		return 0, false
	}
	return uint64(elapsed), true
}

// bundleInfo is the subset of Info.plist vizier reads.
type bundleInfo struct {
	ShortVersion string `plist:"CFBundleShortVersionString"`
	Version      string `plist:"CFBundleVersion"`
}

// enrichAppVersions fills version fields from each app bundle's Info.plist
// where a bundle exists. Fields already populated are left alone.
func enrichAppVersions(apps []schema.InstalledApp) {
	for i := range apps {
		if apps[i].Version != nil {
			continue
		}
		bundle := appBundlePath(apps[i].Name)
		if bundle == "" {
			continue
		}
		if version := bundleVersion(filepath.Join(bundle, "Contents", "Info.plist")); version != "" {
			apps[i].Version = &version
		}
	}
}

func bundleVersion(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	var info bundleInfo
	if _, err := plist.Unmarshal(content, &info); err != nil {
		return ""
	}
	if info.ShortVersion != "" {
		return info.ShortVersion
	}
	return info.Version
}
