package observer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHidIdleMS(t *testing.T) {
	output := `+-o IOHIDSystem  <class IOHIDSystem, id 0x100000456>
    {
      "HIDIdleTime" = 4523000000
      "HIDParameters" = {"UseKeyswitch"=1}
    }`

	idle, ok := hidIdleMS(output)
	require.True(t, ok)
	assert.Equal(t, int64(4523), idle)
}

func TestHidIdleMSMissingOrMalformed(t *testing.T) {
	_, ok := hidIdleMS("")
	assert.False(t, ok)

	_, ok = hidIdleMS(`"HIDIdleTime" = not-a-number`)
	assert.False(t, ok)

	_, ok = hidIdleMS(`"HIDParameters" = 12`)
	assert.False(t, ok)
}

func TestChassisFromModel(t *testing.T) {
	assert.Equal(t, "Laptop", chassisFromModel("MacBookPro18,3"))
	assert.Equal(t, "Laptop", chassisFromModel("MacBookAir10,1"))
	assert.Equal(t, "Desktop", chassisFromModel("Macmini9,1"))
	assert.Equal(t, "Desktop", chassisFromModel("iMac21,2"))
	assert.Equal(t, "Desktop", chassisFromModel("Mac14,13"))
}

func TestScutilDNSServers(t *testing.T) {
	output := `DNS configuration

resolver #1
  nameserver[0] : 1.1.1.1
  nameserver[1] : 8.8.8.8
  if_index : 14 (en0)

resolver #2
  domain   : local
  nameserver[0] : 1.1.1.1
`

	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, scutilDNSServers(output))
	assert.Empty(t, scutilDNSServers(""))
}

func TestNetstatGateway(t *testing.T) {
	output := `Routing tables

Internet:
Destination        Gateway            Flags           Netif Expire
default            192.168.1.1        UGScg             en0
default            fe80::%utun0       UGcIg           utun0
10.0.0/24          link#14            UCS               en0
`

	assert.Equal(t, "192.168.1.1", netstatGateway(output))
}

func TestNetstatGatewaySkipsIPv6Default(t *testing.T) {
	output := "default            fe80::%utun0       UGcIg           utun0\n"
	assert.Empty(t, netstatGateway(output))
	assert.Empty(t, netstatGateway(""))
}

func TestProfilerGPUs(t *testing.T) {
	output := `{
	  "SPDisplaysDataType": [
	    {
	      "sppci_model": "Apple M2 Pro",
	      "spdisplays_vram_shared": "16 GB"
	    },
	    {
	      "sppci_model": "AMD Radeon Pro 5500M",
	      "spdisplays_vram": "1536 MB"
	    },
	    {}
	  ]
	}`

	gpus := profilerGPUs(output)
	require.Len(t, gpus, 3)

	assert.Equal(t, "Apple M2 Pro", gpus[0].Name)
	require.NotNil(t, gpus[0].VRAMGB)
	assert.Equal(t, 16.0, *gpus[0].VRAMGB)

	assert.Equal(t, "AMD Radeon Pro 5500M", gpus[1].Name)
	require.NotNil(t, gpus[1].VRAMGB)
	assert.Equal(t, 1.5, *gpus[1].VRAMGB)

	assert.Equal(t, "unknown", gpus[2].Name)
	assert.Nil(t, gpus[2].VRAMGB)
}

func TestProfilerGPUsInvalidJSON(t *testing.T) {
	assert.Nil(t, profilerGPUs(""))
	assert.Nil(t, profilerGPUs("{not json"))
	assert.Nil(t, profilerGPUs(`{"SPDisplaysDataType": []}`))
}

func TestParseVRAMGB(t *testing.T) {
	gb, ok := parseVRAMGB("8 GB")
	require.True(t, ok)
	assert.Equal(t, 8.0, gb)

	gb, ok = parseVRAMGB("1536 MB")
	require.True(t, ok)
	assert.Equal(t, 1.5, gb)

	_, ok = parseVRAMGB("")
	assert.False(t, ok)
	_, ok = parseVRAMGB("lots")
	assert.False(t, ok)
	_, ok = parseVRAMGB("8 TB")
	assert.False(t, ok)
	_, ok = parseVRAMGB("x GB")
	assert.False(t, ok)
}

func TestBoottimeUptime(t *testing.T) {
	now := 1700003600.0

	uptime, ok := boottimeUptime("{ sec = 1700000000, usec = 123456 } Tue Nov 14 22:13:20 2023", now)
	require.True(t, ok)
	assert.Equal(t, uint64(3600), uptime)

	_, ok = boottimeUptime("", now)
	assert.False(t, ok)
	_, ok = boottimeUptime("{ usec = 0 }", now)
	assert.False(t, ok)
	// Boot in the future is a clock anomaly.
	_, ok = boottimeUptime("{ sec = 1700007200, usec = 0 }", now)
	assert.False(t, ok)
	// Implausibly old boot is rejected.
	_, ok = boottimeUptime("{ sec = 1, usec = 0 }", now)
	assert.False(t, ok)
}

func TestBundleVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Info.plist")

	content := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleShortVersionString</key>
	<string>1.85.2</string>
	<key>CFBundleVersion</key>
	<string>1852</string>
</dict>
</plist>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	assert.Equal(t, "1.85.2", bundleVersion(path))
}

func TestBundleVersionFallsBackToBuildNumber(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Info.plist")

	content := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleVersion</key>
	<string>1852</string>
</dict>
</plist>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	assert.Equal(t, "1852", bundleVersion(path))
}

func TestBundleVersionMissingOrMalformed(t *testing.T) {
	assert.Empty(t, bundleVersion(filepath.Join(t.TempDir(), "Info.plist")))

	dir := t.TempDir()
	path := filepath.Join(dir, "Info.plist")
	require.NoError(t, os.WriteFile(path, []byte("not a plist"), 0o644))
	assert.Empty(t, bundleVersion(path))
}
