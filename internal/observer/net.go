package observer

import (
	"sort"
	"strconv"
	"strings"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/vizier-sh/vizier/internal/schema"
)

// collectConnections reads the generic TCP connection table. By default only
// ESTABLISHED connections with a non-loopback endpoint are reported;
// allConnections lifts both restrictions.
func collectConnections(allConnections bool) []schema.ConnInfo {
	stats, err := gnet.Connections("tcp")
	if err != nil {
		return []schema.ConnInfo{}
	}

	names := newProcessNames()
	conns := make([]schema.ConnInfo, 0, len(stats))
	seen := map[string]struct{}{}

	for _, stat := range stats {
		conn, ok := connFromStat(stat, allConnections, names)
		if !ok {
			continue
		}
		key := connKey(conn)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		conns = append(conns, conn)
	}

	sortConnections(conns)
	return conns
}

// connFromStat filters and converts one connection table row.
func connFromStat(stat gnet.ConnectionStat, allConnections bool, names *processNames) (schema.ConnInfo, bool) {
	state := stat.Status
	if state == "LISTEN" || state == "NONE" || state == "" {
		return schema.ConnInfo{}, false
	}
	if !allConnections && state != "ESTABLISHED" {
		return schema.ConnInfo{}, false
	}
	if !allConnections && (isLoopbackAddr(stat.Laddr.IP) || isLoopbackAddr(stat.Raddr.IP)) {
		return schema.ConnInfo{}, false
	}

	return schema.ConnInfo{
		Proto:      "tcp",
		LocalPort:  uint16(stat.Laddr.Port),
		RemoteAddr: stat.Raddr.IP,
		RemotePort: uint16(stat.Raddr.Port),
		PID:        stat.Pid,
		App:        names.lookup(stat.Pid),
		State:      state,
	}, true
}

// collectListeningPorts reads locally bound TCP listeners.
func collectListeningPorts() []schema.ListeningPort {
	stats, err := gnet.Connections("tcp")
	if err != nil {
		return []schema.ListeningPort{}
	}

	names := newProcessNames()
	ports := make([]schema.ListeningPort, 0)
	seen := map[string]struct{}{}

	for _, stat := range stats {
		if stat.Status != "LISTEN" {
			continue
		}
		port := schema.ListeningPort{
			Port:  uint16(stat.Laddr.Port),
			Proto: "tcp",
			PID:   stat.Pid,
			App:   names.lookup(stat.Pid),
			Addr:  stat.Laddr.IP,
		}
		key := port.App + ":" + port.Addr + ":" + strconv.Itoa(int(port.Port)) + ":" + strconv.Itoa(int(port.PID))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ports = append(ports, port)
	}

	sort.Slice(ports, func(i, j int) bool {
		if ports[i].Port != ports[j].Port {
			return ports[i].Port < ports[j].Port
		}
		return ports[i].Addr < ports[j].Addr
	})
	return ports
}

// processNames memoizes pid -> executable name for one collection pass.
type processNames struct {
	cache map[int32]string
}

func newProcessNames() *processNames {
	return &processNames{cache: map[int32]string{}}
}

func (p *processNames) lookup(pid int32) string {
	if pid <= 0 {
		return "unknown"
	}
	if name, ok := p.cache[pid]; ok {
		return name
	}

	name := "unknown"
	if proc, err := process.NewProcess(pid); err == nil {
		if n, err := proc.Name(); err == nil && n != "" {
			name = n
		}
	}
	p.cache[pid] = name
	return name
}

func connKey(c schema.ConnInfo) string {
	return strings.Join([]string{
		c.App, strconv.Itoa(int(c.PID)), strconv.Itoa(int(c.LocalPort)), c.RemoteAddr, strconv.Itoa(int(c.RemotePort)),
	}, ":")
}

func sortConnections(conns []schema.ConnInfo) {
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].LocalPort != conns[j].LocalPort {
			return conns[i].LocalPort < conns[j].LocalPort
		}
		if conns[i].RemoteAddr != conns[j].RemoteAddr {
			return conns[i].RemoteAddr < conns[j].RemoteAddr
		}
		return conns[i].RemotePort < conns[j].RemotePort
	})
}

func isLoopbackAddr(addr string) bool {
	return addr == "localhost" ||
		addr == "::1" ||
		addr == "*" ||
		strings.HasPrefix(addr, "127.") ||
		strings.HasPrefix(addr, "fe80::1%")
}
