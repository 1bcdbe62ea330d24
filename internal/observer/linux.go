package observer

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/vizier-sh/vizier/internal/schema"
)

// terminalApps are window classes treated as terminals for terminal_ctx
// resolution.
var terminalApps = []string{
	"alacritty", "kitty", "wezterm", "gnome-terminal", "konsole", "xterm", "foot",
}

// linuxObserver enriches the baseline snapshot with Hyprland compositor
// data when its IPC socket is present. Socket absence or malformed
// responses silently fall back to the baseline values per field.
type linuxObserver struct {
	*Baseline
}

func newLinuxObserver(base *Baseline) *linuxObserver {
	return &linuxObserver{Baseline: base}
}

func (o *linuxObserver) Snapshot() (*schema.Observation, error) {
	obs, err := o.Baseline.Snapshot()
	if err != nil {
		return nil, err
	}

	socket := hyprlandSocketPath()
	if socket == "" {
		return obs, nil
	}

	if monitors := hyprlandMonitors(socket); len(monitors) > 0 {
		obs.Displays = monitors
	}
	if windows := hyprlandClients(socket); len(windows) > 0 {
		obs.Windows = windows
	}
	if focus, ok := hyprlandActiveWindow(socket); ok {
		obs.Focus = &focus
		if isTerminalApp(focus.App) {
			if cwd := processCWD(focus.PID); cwd != "" {
				obs.TerminalCtx = &schema.TerminalCtx{CWD: cwd, Shell: "unknown"}
			}
		}
	}

	return obs, nil
}

// linuxWaker enriches machine identity, network, GPU, uptime, processes and
// sessions with Linux-native sources. Every override is additive: a failed
// native probe leaves the baseline value in place.
type linuxWaker struct {
	*BaselineWaker
}

func newLinuxWaker(base *BaselineWaker) *linuxWaker {
	return &linuxWaker{BaselineWaker: base}
}

func (w *linuxWaker) Wake(ctx context.Context) (*schema.WakeObservation, error) {
	wake, err := w.BaselineWaker.Wake(ctx)
	if err != nil {
		return nil, err
	}

	wake.Machine.OS = "Linux"

	release := osRelease()
	if version, ok := release["VERSION_ID"]; ok {
		wake.Machine.OSVersion = version
	} else if pretty, ok := release["PRETTY_NAME"]; ok {
		wake.Machine.OSVersion = pretty
	}
	if kernel := commandOutput("uname", "-r"); kernel != "" {
		wake.Machine.Kernel = kernel
	}
	wake.Machine.IsContainer = wake.Machine.IsContainer || cgroupContainer()
	if chassis := chassisFromDMI(); chassis != "" {
		wake.Machine.Chassis = chassis
	}

	if groups := commandFields("id", "-Gn"); len(groups) > 0 {
		wake.User.Groups = groups
	}

	if gateway := defaultGatewayLinux(); gateway != "" {
		wake.NetworkIdentity.DefaultGateway = &gateway
	}

	if gpus := lspciGPUs(commandOutput("lspci")); len(gpus) > 0 {
		wake.Resources.GPUs = gpus
	}

	if uptime, ok := procUptimeSeconds(); ok {
		wake.DateTime.UptimeSeconds = uptime
		wake.DateTime.LoginTS = wake.TS - float64(uptime)
	}

	if procs := bootProcesses(uint64(wake.TS), 120, 20); len(procs) > 0 {
		wake.RecentActivity.RunningSinceBoot = procs
	}

	if len(wake.OtherSessions) > 0 {
		for _, session := range wake.OtherSessions {
			if session.LoginTS > 0 && session.LoginTS < wake.DateTime.LoginTS {
				wake.DateTime.LoginTS = session.LoginTS
			}
		}
	}

	return wake, nil
}

// hyprlandSocketPath locates the compositor IPC socket, or "" when the
// session is not running under Hyprland.
func hyprlandSocketPath() string {
	signature := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if signature == "" || runtimeDir == "" {
		return ""
	}

	path := filepath.Join(runtimeDir, "hypr", signature, ".socket.sock")
	if !fileExists(path) {
		return ""
	}
	return path
}

// hyprQuery sends one request on the IPC socket and returns the raw
// response. The response is untrusted; callers parse it with gjson.
func hyprQuery(socket, command string) string {
	conn, err := net.DialTimeout("unix", socket, commandTimeout)
	if err != nil {
		return ""
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(commandTimeout))
	if _, err := conn.Write([]byte(command)); err != nil {
		return ""
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func hyprlandClients(socket string) []schema.WindowInfo {
	raw := hyprQuery(socket, "j/clients")
	if raw == "" || !gjson.Valid(raw) {
		return nil
	}

	var windows []schema.WindowInfo
	gjson.Parse(raw).ForEach(func(_, client gjson.Result) bool {
		if !client.Get("mapped").Bool() && client.Get("mapped").Exists() {
			return true
		}
		if client.Get("hidden").Bool() {
			return true
		}
		windows = append(windows, hyprWindow(client))
		return true
	})
	return windows
}

func hyprlandActiveWindow(socket string) (schema.WindowInfo, bool) {
	raw := hyprQuery(socket, "j/activewindow")
	if raw == "" || !gjson.Valid(raw) {
		return schema.WindowInfo{}, false
	}

	parsed := gjson.Parse(raw)
	if !parsed.IsObject() || !parsed.Get("address").Exists() {
		return schema.WindowInfo{}, false
	}
	return hyprWindow(parsed), true
}

func hyprlandMonitors(socket string) []schema.DisplayInfo {
	raw := hyprQuery(socket, "j/monitors")
	if raw == "" || !gjson.Valid(raw) {
		return nil
	}

	var displays []schema.DisplayInfo
	gjson.Parse(raw).ForEach(func(_, monitor gjson.Result) bool {
		scale := monitor.Get("scale").Float()
		if scale == 0 {
			scale = 1.0
		}
		displays = append(displays, schema.DisplayInfo{
			ID: int(monitor.Get("id").Int()),
			Bounds: schema.Bounds{
				X: int(monitor.Get("x").Int()),
				Y: int(monitor.Get("y").Int()),
				W: int(monitor.Get("width").Int()),
				H: int(monitor.Get("height").Int()),
			},
			IsPrimary:   monitor.Get("focused").Bool(),
			ScaleFactor: scale,
		})
		return true
	})
	return displays
}

// hyprWindow converts one client object, defaulting every missing or
// ill-typed field instead of failing.
func hyprWindow(client gjson.Result) schema.WindowInfo {
	id := client.Get("address").String()
	if id == "" {
		id = "0x0"
	}
	title := client.Get("title").String()
	if title == "" {
		title = "unknown"
	}
	app := client.Get("class").String()
	if app == "" {
		app = "unknown"
	}

	return schema.WindowInfo{
		ID:    id,
		Title: title,
		App:   app,
		PID:   int32(client.Get("pid").Int()),
		Bounds: schema.Bounds{
			X: int(client.Get("at.0").Int()),
			Y: int(client.Get("at.1").Int()),
			W: int(client.Get("size.0").Int()),
			H: int(client.Get("size.1").Int()),
		},
		Workspace:    int(client.Get("workspace.id").Int()),
		IsFullscreen: client.Get("fullscreen").Int() > 0,
	}
}

func isTerminalApp(app string) bool {
	app = strings.ToLower(app)
	for _, name := range terminalApps {
		if strings.Contains(app, name) {
			return true
		}
	}
	return false
}

func processCWD(pid int32) string {
	cwd, err := os.Readlink("/proc/" + strconv.Itoa(int(pid)) + "/cwd")
	if err != nil {
		return ""
	}
	return cwd
}

func osRelease() map[string]string {
	values := map[string]string{}
	content, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return values
	}

	for _, line := range strings.Split(string(content), "\n") {
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		values[key] = strings.TrimSpace(strings.Trim(value, `"`))
	}
	return values
}

func cgroupContainer() bool {
	if fileExists("/.dockerenv") {
		return true
	}
	content, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	text := string(content)
	return strings.Contains(text, "docker") ||
		strings.Contains(text, "containerd") ||
		strings.Contains(text, "kubepods")
}

// chassisFromDMI maps the firmware chassis type code to a coarse category.
func chassisFromDMI() string {
	content, err := os.ReadFile("/sys/class/dmi/id/chassis_type")
	if err != nil {
		return ""
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return ""
	}
	return chassisFromCode(code)
}

func chassisFromCode(code int) string {
	switch {
	case code >= 8 && code <= 14:
		return "Laptop"
	case code >= 3 && code <= 7, code == 15, code == 16:
		return "Desktop"
	default:
		return "Unknown"
	}
}

func defaultGatewayLinux() string {
	output := commandOutput("ip", "route", "show", "default")
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		for i, field := range fields {
			if field == "via" && i+1 < len(fields) {
				return fields[i+1]
			}
		}
	}
	return ""
}

func lspciGPUs(output string) []schema.GpuInfo {
	if output == "" {
		return nil
	}

	var gpus []schema.GpuInfo
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "VGA") && !strings.Contains(line, "3D controller") {
			continue
		}
		name := line
		if idx := strings.LastIndex(line, ":"); idx >= 0 {
			name = strings.TrimSpace(line[idx+1:])
		}
		if name == "" {
			name = "unknown"
		}
		gpus = append(gpus, schema.GpuInfo{Name: name, Driver: "unknown"})
	}
	return gpus
}

func procUptimeSeconds() (uint64, bool) {
	content, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(content))
	if len(fields) == 0 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return uint64(seconds), true
}

func commandFields(binary string, args ...string) []string {
	output := commandOutput(binary, args...)
	if output == "" {
		return nil
	}
	return strings.Fields(output)
}
