package observer

import (
	"context"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/vizier-sh/vizier/internal/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxUptimeSeconds rejects boot-time readings implying more than five years
// of uptime; such values are clock anomalies, not real uptime.
const maxUptimeSeconds = 5 * 365 * 24 * 60 * 60

// BaselineWaker implements Waker with portable facilities only.
type BaselineWaker struct {
	noPublicIP bool
	log        *zap.Logger
}

// NewBaselineWaker constructs the portable waker.
func NewBaselineWaker(cfg WakeConfig) *BaselineWaker {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &BaselineWaker{noPublicIP: cfg.NoPublicIP, log: log}
}

// Wake gathers every cold-start section. Independent probes run
// concurrently; each failure degrades its own fields to the schema's empty
// representation. Assembly order is fixed, so the payload is deterministic
// for a given system state.
func (w *BaselineWaker) Wake(ctx context.Context) (*schema.WakeObservation, error) {
	ts := nowTS()
	now := time.Now()
	home := homeDir()

	wake := &schema.WakeObservation{
		SchemaVersion: schema.SchemaVersion,
		TS:            ts,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		wake.Machine = collectMachine()
		return nil
	})
	g.Go(func() error {
		wake.User = collectUser(home)
		return nil
	})
	g.Go(func() error {
		wake.DateTime = collectDateTime(ts, now)
		return nil
	})
	g.Go(func() error {
		wake.Filesystem = schema.FilesystemInfo{
			HomeTree:    buildHomeTree(home),
			RecentFiles: recentFiles(home, wakeRecentFiles),
			Mounts:      collectMounts(),
		}
		return nil
	})
	g.Go(func() error {
		wake.InstalledApps = installedApps()
		return nil
	})
	g.Go(func() error {
		wake.NetworkIdentity = w.collectNetworkIdentity(gctx)
		return nil
	})
	g.Go(func() error {
		wake.ListeningPorts = collectListeningPorts()
		return nil
	})
	g.Go(func() error {
		wake.Resources = collectResources()
		return nil
	})
	g.Go(func() error {
		wake.RecentActivity = schema.RecentActivity{
			ShellHistory:     shellHistory(home, 20),
			RunningSinceBoot: []schema.RunningProcessInfo{},
		}
		return nil
	})
	g.Go(func() error {
		wake.OtherSessions = collectSessions()
		return nil
	})

	// Probes never return errors; they degrade in place.
	_ = g.Wait()

	return wake, nil
}

func collectMachine() schema.MachineInfo {
	machine := schema.MachineInfo{
		Hostname:  "unknown",
		OS:        runtime.GOOS,
		OSVersion: "unknown",
		Kernel:    "unknown",
		Arch:      runtime.GOARCH,
		Chassis:   "Unknown",
	}

	if hostname, err := os.Hostname(); err == nil {
		machine.Hostname = hostname
	}

	if info, err := host.Info(); err == nil {
		if info.Platform != "" {
			machine.OS = info.Platform
		}
		if info.PlatformVersion != "" {
			machine.OSVersion = info.PlatformVersion
		}
		if info.KernelVersion != "" {
			machine.Kernel = info.KernelVersion
		}
		if info.VirtualizationRole == "guest" && info.VirtualizationSystem != "" {
			machine.IsVM = true
			system := info.VirtualizationSystem
			machine.Hypervisor = &system
		}
	}

	machine.IsContainer = fileExists("/.dockerenv") || fileExists("/run/.containerenv")
	return machine
}

func collectUser(home string) schema.UserInfo {
	info := schema.UserInfo{
		Username: "unknown",
		HomeDir:  home,
		Shell:    envOr("SHELL", "unknown"),
		Groups:   []string{},
	}

	current, err := user.Current()
	if err != nil {
		return info
	}

	info.Username = current.Username
	info.FullName = current.Name
	if current.HomeDir != "" {
		info.HomeDir = current.HomeDir
	}
	if uid, err := strconv.ParseUint(current.Uid, 10, 32); err == nil {
		info.UID = uint32(uid)
	}

	if ids, err := current.GroupIds(); err == nil {
		for _, id := range ids {
			if group, err := user.LookupGroupId(id); err == nil {
				info.Groups = append(info.Groups, group.Name)
			}
		}
	}

	return info
}

func collectDateTime(ts float64, now time.Time) schema.DateTimeInfo {
	zone, offset := now.Zone()
	uptime := uptimeSeconds(ts)

	return schema.DateTimeInfo{
		TS:               ts,
		ISO:              now.Format(time.RFC3339),
		Timezone:         zone,
		UTCOffsetSeconds: offset,
		UptimeSeconds:    uptime,
		LoginTS:          ts - float64(uptime),
	}
}

// uptimeSeconds prefers boot time and falls back to the raw uptime counter,
// rejecting values that imply a boot in the future or implausibly far past.
func uptimeSeconds(nowTS float64) uint64 {
	if boot, err := host.BootTime(); err == nil && boot > 0 {
		if elapsed := nowTS - float64(boot); elapsed > 0 && elapsed <= maxUptimeSeconds {
			return uint64(elapsed)
		}
	}

	raw, err := host.Uptime()
	if err != nil {
		return 0
	}
	return capUptime(raw, nowTS)
}

func capUptime(raw uint64, nowTS float64) uint64 {
	if float64(raw) > nowTS || raw > maxUptimeSeconds {
		return 0
	}
	return raw
}

func collectResources() schema.ResourceInfo {
	resources := schema.ResourceInfo{
		CPUCores: runtime.NumCPU(),
		CPUModel: "unknown",
		GPUs:     []schema.GpuInfo{{Name: "unknown", Driver: "unknown"}},
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 && infos[0].ModelName != "" {
		resources.CPUModel = infos[0].ModelName
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		resources.RAMTotalGB = bytesToGB(vm.Total)
		resources.RAMFreeGB = bytesToGB(vm.Available)
	}

	return resources
}

// bootProcesses lists processes started within the given window after boot,
// newest first, capped at limit. Used by platform wakers; the baseline
// leaves running_since_boot empty.
func bootProcesses(nowTS uint64, window uint64, limit int) []schema.RunningProcessInfo {
	boot, err := host.BootTime()
	if err != nil || boot == 0 {
		return []schema.RunningProcessInfo{}
	}

	procs, err := process.Processes()
	if err != nil {
		return []schema.RunningProcessInfo{}
	}

	out := make([]schema.RunningProcessInfo, 0)
	for _, proc := range procs {
		createdMS, err := proc.CreateTime()
		if err != nil {
			continue
		}
		created := uint64(createdMS / 1000)
		if created > boot+window {
			continue
		}
		name, err := proc.Name()
		if err != nil || name == "" {
			continue
		}
		started := uint64(0)
		if nowTS > created {
			started = nowTS - created
		}
		out = append(out, schema.RunningProcessInfo{
			PID:         proc.Pid,
			App:         name,
			StartedAgoS: started,
		})
	}

	sortBootProcesses(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func collectSessions() []schema.SessionInfo {
	users, err := host.Users()
	if err != nil {
		return []schema.SessionInfo{}
	}

	sessions := make([]schema.SessionInfo, 0, len(users))
	for _, u := range users {
		from := u.Host
		if from == "" {
			from = "local"
		}
		sessions = append(sessions, schema.SessionInfo{
			Username: u.User,
			TTY:      u.Terminal,
			From:     from,
			LoginTS:  float64(u.Started),
		})
	}
	return sessions
}

func bytesToGB(bytes uint64) float64 {
	gb := float64(bytes) / (1 << 30)
	return float64(int64(gb*100+0.5)) / 100
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "~"
	}
	return home
}
