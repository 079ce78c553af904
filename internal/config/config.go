// Package config loads the node's YAML configuration file. Grounded on the
// YAML config loaders in the example pack (gopkg.in/yaml.v3) since the
// teacher itself configures purely from environment variables and the
// spec requires a YAML file on disk loaded once at start.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StorageKind enumerates the backend drivers a storage_configs entry can
// select; concrete drivers for all but neo4j/qdrant live outside this
// module (modeled only by the Storage capability).
type StorageKind string

const (
	KindPostgres  StorageKind = "postgres"
	KindNeo4j     StorageKind = "neo4j"
	KindMilvus    StorageKind = "milvus"
	KindSurrealDB StorageKind = "surrealdb"
	KindPgvector  StorageKind = "pgvector"
	KindQdrant    StorageKind = "qdrant"
)

// StorageType classifies what role a backend plays for the pipeline.
type StorageType string

const (
	StorageEvent    StorageType = "event"
	StorageIndex    StorageType = "index"
	StorageMetadata StorageType = "metadata"
	StorageSecret   StorageType = "secret"
)

// StorageConfig is one entry of the storage_configs list.
type StorageConfig struct {
	Kind        StorageKind    `yaml:"kind"`
	Config      map[string]any `yaml:"config"`
	StorageType StorageType    `yaml:"storage_type"`
}

// GRPCConfig holds gRPC-surface settings. Both a nested
// grpc_config.advertise_addr and a flattened grpc_advertise_addr are
// accepted at load time: the original querent/quester source trees drifted
// on whether this field nests under grpc_config or sits at the top level,
// so Config exposes the superset and applyDefaults normalizes it (see Load).
type GRPCConfig struct {
	ListenPort     uint16 `yaml:"listen_port"`
	AdvertiseAddr  string `yaml:"advertise_addr,omitempty"`
	MaxMessageSize int    `yaml:"max_message_size"`
}

// Config is the node's on-disk configuration, loaded once at start.
type Config struct {
	ClusterID        string          `yaml:"cluster_id"`
	NodeID           string          `yaml:"node_id"`
	ListenAddress    string          `yaml:"listen_address"`
	GossipListenPort uint16          `yaml:"gossip_listen_port"`
	GRPCConfig       GRPCConfig      `yaml:"grpc_config"`
	GRPCAdvertiseAddr string         `yaml:"grpc_advertise_addr,omitempty"`
	CPUCapacity      uint32          `yaml:"cpu_capacity"`
	PeerSeeds        []string        `yaml:"peer_seeds"`
	StorageConfigs   []StorageConfig `yaml:"storage_configs"`
}

const defaultMaxMessageSize = 64 * 1024 * 1024 // 64 MiB, per the gRPC wire-size default

// Load reads and parses path, applying defaults and validating the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.GRPCConfig.MaxMessageSize == 0 {
		c.GRPCConfig.MaxMessageSize = defaultMaxMessageSize
	}
	// Resolve the querent/quester grpc_advertise_addr field drift: prefer
	// the nested form, fall back to the flattened one.
	if c.GRPCConfig.AdvertiseAddr == "" && c.GRPCAdvertiseAddr != "" {
		c.GRPCConfig.AdvertiseAddr = c.GRPCAdvertiseAddr
	}
}

// Validate checks required fields are present and storage_configs entries
// are well-formed.
func (c *Config) Validate() error {
	if c.ClusterID == "" {
		return fmt.Errorf("config: cluster_id is required")
	}
	if c.NodeID == "" {
		return fmt.Errorf("config: node_id is required")
	}
	if c.GossipListenPort == 0 {
		return fmt.Errorf("config: gossip_listen_port is required")
	}
	for i, sc := range c.StorageConfigs {
		if sc.Kind == "" {
			return fmt.Errorf("config: storage_configs[%d]: kind is required", i)
		}
		if sc.StorageType == "" {
			return fmt.Errorf("config: storage_configs[%d]: storage_type is required", i)
		}
	}
	return nil
}

// Marshal re-serializes c to YAML, used by the round-trip test and the
// GET /config REST handler.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
