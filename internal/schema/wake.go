package schema

// WakeObservation is the one-shot cold-start orientation payload. It is
// constructed fresh per invocation, never retained, and carries no cursor
// state. Any nested field may be empty when its source probe failed; partial
// population is a valid terminal state.
type WakeObservation struct {
	SchemaVersion   int             `json:"schema_version"`
	TS              float64         `json:"ts"`
	Machine         MachineInfo     `json:"machine"`
	User            UserInfo        `json:"user"`
	DateTime        DateTimeInfo    `json:"datetime"`
	Filesystem      FilesystemInfo  `json:"filesystem"`
	InstalledApps   []InstalledApp  `json:"installed_apps"`
	NetworkIdentity NetworkIdentity `json:"network_identity"`
	ListeningPorts  []ListeningPort `json:"listening_ports"`
	Resources       ResourceInfo    `json:"resources"`
	RecentActivity  RecentActivity  `json:"recent_activity"`
	OtherSessions   []SessionInfo   `json:"other_sessions"`
}

// MachineInfo identifies the host.
type MachineInfo struct {
	Hostname    string  `json:"hostname"`
	OS          string  `json:"os"`
	OSVersion   string  `json:"os_version"`
	Kernel      string  `json:"kernel"`
	Arch        string  `json:"arch"`
	IsVM        bool    `json:"is_vm"`
	IsContainer bool    `json:"is_container"`
	Hypervisor  *string `json:"hypervisor,omitempty"`
	Chassis     string  `json:"chassis"`
}

// UserInfo identifies the invoking user.
type UserInfo struct {
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	HomeDir  string   `json:"home_dir"`
	Shell    string   `json:"shell"`
	UID      uint32   `json:"uid"`
	Groups   []string `json:"groups"`
}

// DateTimeInfo carries wall-clock context and uptime.
type DateTimeInfo struct {
	TS               float64 `json:"ts"`
	ISO              string  `json:"iso"`
	Timezone         string  `json:"timezone"`
	UTCOffsetSeconds int     `json:"utc_offset_seconds"`
	UptimeSeconds    uint64  `json:"uptime_seconds"`
	LoginTS          float64 `json:"login_ts"`
}

// FilesystemInfo summarizes the home directory and mounted filesystems.
// HomeTree uses omitzero, not omitempty: a verbose payload always carries
// the key (an unreadable home serializes as []), while the compact
// transform sets it to nil and the key disappears entirely.
type FilesystemInfo struct {
	HomeTree    []HomeTreeEntry  `json:"home_tree,omitzero"`
	RecentFiles []RecentFileInfo `json:"recent_files"`
	Mounts      []MountInfo      `json:"mounts"`
}

// HomeTreeEntry is one top-level home directory entry. Directories with 20
// or fewer children list them; larger ones report only a count.
type HomeTreeEntry struct {
	Path       string   `json:"path"`
	Kind       string   `json:"kind"`
	Children   []string `json:"children,omitempty"`
	EntryCount *int     `json:"entry_count,omitempty"`
}

// RecentFileInfo is one recently modified file, newest first.
type RecentFileInfo struct {
	Path         string `json:"path"`
	ModifiedAgoS uint64 `json:"modified_ago_s"`
}

// MountInfo is one mounted filesystem.
type MountInfo struct {
	Path    string  `json:"path"`
	FSType  string  `json:"fs_type"`
	TotalGB float64 `json:"total_gb"`
	FreeGB  float64 `json:"free_gb"`
}

// InstalledApp is one recognized installed application or runtime.
type InstalledApp struct {
	Name    string  `json:"name"`
	ID      string  `json:"id"`
	Kind    string  `json:"kind"`
	Version *string `json:"version,omitempty"`
}

// NetworkIdentity describes how the machine appears on the network.
type NetworkIdentity struct {
	LocalIPs       []string `json:"local_ips"`
	PublicIP       *string  `json:"public_ip,omitempty"`
	VPNActive      bool     `json:"vpn_active"`
	VPNInterface   *string  `json:"vpn_interface,omitempty"`
	DefaultGateway *string  `json:"default_gateway,omitempty"`
	DNSServers     []string `json:"dns_servers"`
	HostnameFQDN   *string  `json:"hostname_fqdn,omitempty"`
}

// ListeningPort is one locally bound listening socket.
type ListeningPort struct {
	Port  uint16 `json:"port"`
	Proto string `json:"proto"`
	PID   int32  `json:"pid"`
	App   string `json:"app"`
	Addr  string `json:"addr"`
}

// ResourceInfo summarizes compute resources.
type ResourceInfo struct {
	CPUCores   int       `json:"cpu_cores"`
	CPUModel   string    `json:"cpu_model"`
	RAMTotalGB float64   `json:"ram_total_gb"`
	RAMFreeGB  float64   `json:"ram_free_gb"`
	GPUs       []GpuInfo `json:"gpus"`
}

// GpuInfo is one graphics device.
type GpuInfo struct {
	Name   string   `json:"name"`
	VRAMGB *float64 `json:"vram_gb"`
	Driver string   `json:"driver"`
}

// RecentActivity captures what the user and machine were recently doing.
type RecentActivity struct {
	ShellHistory     []string             `json:"shell_history"`
	RunningSinceBoot []RunningProcessInfo `json:"running_since_boot"`
}

// RunningProcessInfo is one process started around boot time.
type RunningProcessInfo struct {
	PID         int32  `json:"pid"`
	App         string `json:"app"`
	StartedAgoS uint64 `json:"started_ago_s"`
}

// SessionInfo is one other login session on the machine.
type SessionInfo struct {
	Username string  `json:"username"`
	TTY      string  `json:"tty"`
	From     string  `json:"from"`
	LoginTS  float64 `json:"login_ts"`
}
