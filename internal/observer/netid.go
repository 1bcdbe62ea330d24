package observer

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/vizier-sh/vizier/internal/schema"
)

// publicIPTimeout bounds the only externally-networked probe. On expiry the
// field is simply absent.
const (
	publicIPTimeout  = 500 * time.Millisecond
	publicIPEndpoint = "https://api.ipify.org"
)

// vpnPrefixes are interface-name prefixes that indicate an active tunnel.
var vpnPrefixes = []string{"tun", "wg", "utun", "ppp"}

func (w *BaselineWaker) collectNetworkIdentity(ctx context.Context) schema.NetworkIdentity {
	identity := schema.NetworkIdentity{
		LocalIPs:   localIPs(),
		DNSServers: dnsServers(),
	}

	if name, active := vpnInterface(); active {
		identity.VPNActive = true
		identity.VPNInterface = &name
	}

	if hostname, err := os.Hostname(); err == nil {
		identity.HostnameFQDN = &hostname
	}

	if !w.noPublicIP {
		if ip := fetchPublicIP(ctx, publicIPEndpoint); ip != "" {
			identity.PublicIP = &ip
		} else {
			w.log.Debug("public IP unavailable")
		}
	}

	return identity
}

func localIPs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return []string{}
	}

	ips := make([]string, 0)
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			ips = append(ips, ipNet.IP.String())
		}
	}

	sort.Strings(ips)
	return dedupe(ips)
}

func vpnInterface() (string, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", false
	}

	for _, iface := range ifaces {
		for _, prefix := range vpnPrefixes {
			if strings.HasPrefix(iface.Name, prefix) {
				return iface.Name, true
			}
		}
	}
	return "", false
}

// fetchPublicIP asks an external echo service for the machine's public
// address. Hard-bounded: a slow or unreachable service degrades to "" and
// never stalls the snapshot.
func fetchPublicIP(ctx context.Context, endpoint string) string {
	ctx, cancel := context.WithTimeout(ctx, publicIPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}

	client := &http.Client{Timeout: publicIPTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return ""
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}

// dnsServers parses resolv.conf, the portable resolver configuration.
func dnsServers() []string {
	content, err := os.ReadFile("/etc/resolv.conf")
	if err != nil {
		return []string{}
	}
	return parseResolvConf(string(content))
}

func parseResolvConf(content string) []string {
	servers := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "nameserver") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			servers = append(servers, fields[1])
		}
	}
	return servers
}

func dedupe(in []string) []string {
	out := in[:0]
	var last string
	for i, v := range in {
		if i > 0 && v == last {
			continue
		}
		out = append(out, v)
		last = v
	}
	return out
}
