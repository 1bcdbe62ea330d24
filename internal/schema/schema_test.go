package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationWireFormat(t *testing.T) {
	obs := Observation{
		SchemaVersion:  SchemaVersion,
		TS:             1700000000.25,
		MonotonicMS:    1500,
		IdleMS:         200,
		Windows:        []WindowInfo{},
		Displays:       []DisplayInfo{},
		NetConnections: []ConnInfo{},
		FSEvents:       []FSEvent{},
	}

	raw, err := json.Marshal(obs)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{
		"schema_version", "ts", "monotonic_ms", "idle_ms", "focus",
		"windows", "cursor", "displays", "terminal_ctx",
		"net_connections", "fs_events",
	} {
		assert.Contains(t, decoded, key)
	}

	// Unknown fields stay absent; collections marshal as [] not null.
	assert.Equal(t, "[]", string(decoded["windows"]))
	assert.Equal(t, "[]", string(decoded["fs_events"]))
	assert.Equal(t, "null", string(decoded["focus"]))
}

func TestWakeObservationWireFormat(t *testing.T) {
	wake := WakeObservation{
		SchemaVersion: SchemaVersion,
		TS:            1700000000.25,
	}

	raw, err := json.Marshal(wake)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{
		"schema_version", "ts", "machine", "user", "datetime", "filesystem",
		"installed_apps", "network_identity", "listening_ports", "resources",
		"recent_activity", "other_sessions",
	} {
		assert.Contains(t, decoded, key)
	}
}

func TestOptionalFieldsOmittedWhenAbsent(t *testing.T) {
	raw, err := json.Marshal(WakeObservation{})
	require.NoError(t, err)
	payload := string(raw)

	assert.NotContains(t, payload, "hypervisor")
	assert.NotContains(t, payload, "public_ip")
	assert.NotContains(t, payload, "vpn_interface")
	assert.NotContains(t, payload, "default_gateway")
	assert.NotContains(t, payload, "hostname_fqdn")
	assert.NotContains(t, payload, "home_tree")
}

func TestVerboseOutputAlwaysCarriesHomeTreeKey(t *testing.T) {
	// Even an unreadable home yields an empty list, never a missing key;
	// only the compact transform drops the key.
	wake := WakeObservation{
		Filesystem: FilesystemInfo{HomeTree: []HomeTreeEntry{}},
	}

	raw, err := json.Marshal(wake)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"home_tree":[]`)

	withEntries := WakeObservation{
		Filesystem: FilesystemInfo{HomeTree: []HomeTreeEntry{{Path: "~/src", Kind: "dir"}}},
	}
	raw, err = json.Marshal(withEntries)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"home_tree":[{`)
}

func TestCompactOutputOmitsHomeTreeKey(t *testing.T) {
	wake := verboseWake()
	require.NotEmpty(t, wake.Filesystem.HomeTree)

	raw, err := json.Marshal(Compact(wake))
	require.NoError(t, err)

	// The key disappears entirely rather than serializing as null or [].
	assert.NotContains(t, string(raw), `"home_tree"`)
}

func TestOptionalFieldsPresentWhenSet(t *testing.T) {
	hypervisor := "kvm"
	publicIP := "203.0.113.9"
	wake := WakeObservation{
		Machine:         MachineInfo{IsVM: true, Hypervisor: &hypervisor},
		NetworkIdentity: NetworkIdentity{PublicIP: &publicIP},
	}

	raw, err := json.Marshal(wake)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"hypervisor":"kvm"`)
	assert.Contains(t, string(raw), `"public_ip":"203.0.113.9"`)
}
