package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndNormalizesAdvertiseAddr(t *testing.T) {
	path := writeConfig(t, `
cluster_id: querent-dev
node_id: node-1
gossip_listen_port: 7946
grpc_advertise_addr: 10.0.0.1:9000
storage_configs:
  - kind: neo4j
    storage_type: event
    config:
      uri: bolt://localhost:7687
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, defaultMaxMessageSize, cfg.GRPCConfig.MaxMessageSize)
	assert.Equal(t, "10.0.0.1:9000", cfg.GRPCConfig.AdvertiseAddr)
}

func TestLoadPrefersNestedAdvertiseAddr(t *testing.T) {
	path := writeConfig(t, `
cluster_id: querent-dev
node_id: node-1
gossip_listen_port: 7946
grpc_advertise_addr: flattened:9000
grpc_config:
  advertise_addr: nested:9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nested:9000", cfg.GRPCConfig.AdvertiseAddr)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `
node_id: node-1
gossip_listen_port: 7946
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster_id")
}

func TestLoadRejectsIncompleteStorageConfig(t *testing.T) {
	path := writeConfig(t, `
cluster_id: querent-dev
node_id: node-1
gossip_listen_port: 7946
storage_configs:
  - kind: neo4j
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage_type")
}

func TestMarshalRoundTrips(t *testing.T) {
	cfg := &Config{
		ClusterID:        "querent-dev",
		NodeID:           "node-1",
		GossipListenPort: 7946,
		StorageConfigs: []StorageConfig{
			{Kind: KindQdrant, StorageType: StorageEvent, Config: map[string]any{"addr": "localhost:6334"}},
		},
	}
	cfg.applyDefaults()

	out, err := cfg.Marshal()
	require.NoError(t, err)

	var roundTripped Config
	require.NoError(t, yaml.Unmarshal(out, &roundTripped))
	assert.Equal(t, cfg.ClusterID, roundTripped.ClusterID)
	assert.Equal(t, cfg.GRPCConfig.MaxMessageSize, roundTripped.GRPCConfig.MaxMessageSize)
}
