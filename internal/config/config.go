// Package config provides the read-only run configuration for ocean-fleet.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/facebookgo/atomicfile"
	"gopkg.in/yaml.v3"

	"github.com/spacedatanetwork/ocean-fleet/internal/registry"
)

// Errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// MaxPort is the highest valid TCP port.
const MaxPort = 65535

// Config represents the full provisioning configuration.
type Config struct {
	Node    NodeConfig        `yaml:"node"`
	Indexer IndexerConfig     `yaml:"indexer"`
	Ports   PortConfig        `yaml:"ports"`
	Network NetworkConfig     `yaml:"network"`
	Output  OutputConfig      `yaml:"output"`
	RPCs    registry.Registry `yaml:"rpcs"`
}

// NodeConfig describes the per-instance ocean node service.
type NodeConfig struct {
	Image          string    `yaml:"image"`
	PullPolicy     string    `yaml:"pull_policy"`
	Restart        string    `yaml:"restart"`
	NamePrefix     string    `yaml:"name_prefix"`
	IPFSGateway    string    `yaml:"ipfs_gateway"`
	ArweaveGateway string    `yaml:"arweave_gateway"`
	Interfaces     []string  `yaml:"interfaces"`
	Dashboard      bool      `yaml:"dashboard"`
	EnableIPv4     bool      `yaml:"enable_ipv4"`
	BindAddress    string    `yaml:"bind_address"`
	Settings       []Setting `yaml:"settings"` // static environment, appended in order
}

// Setting is a fixed environment variable of the node service.
type Setting struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// IndexerConfig describes the shared typesense service.
type IndexerConfig struct {
	Image         string `yaml:"image"`
	ContainerName string `yaml:"container_name"`
	Port          int    `yaml:"port"`
	APIKey        string `yaml:"api_key"`
	Volume        string `yaml:"volume"`
	VolumeDriver  string `yaml:"volume_driver"`
	DataDir       string `yaml:"data_dir"`
}

// PortConfig holds the base host ports. Instance i uses base+i for each of them.
type PortConfig struct {
	HTTPAPI int   `yaml:"http_api"`
	P2PTCP  int   `yaml:"p2p_tcp"`
	P2PWS   int   `yaml:"p2p_ws"`
	Extra   []int `yaml:"extra"`
}

// NetworkConfig names the docker network every service joins.
type NetworkConfig struct {
	Name   string `yaml:"name"`
	Driver string `yaml:"driver"`
}

// OutputConfig controls where generated files go.
type OutputConfig struct {
	Dir               string `yaml:"dir"`
	WalletsFile       string `yaml:"wallets_file"`
	DescriptorPattern string `yaml:"descriptor_pattern"` // must contain one %d
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			Image:          "oceanprotocol/ocean-node:latest",
			PullPolicy:     "always",
			Restart:        "on-failure",
			NamePrefix:     "ocean-node",
			IPFSGateway:    "https://ipfs.io/",
			ArweaveGateway: "https://arweave.net/",
			Interfaces:     []string{"HTTP", "P2P"},
			Dashboard:      false,
			EnableIPv4:     true,
			BindAddress:    "0.0.0.0",
			Settings:       defaultSettings(),
		},
		Indexer: IndexerConfig{
			Image:         "typesense/typesense:26.0",
			ContainerName: "typesense",
			Port:          8108,
			APIKey:        "xyz",
			Volume:        "typesense-data",
			VolumeDriver:  "local",
			DataDir:       "/data",
		},
		Ports: PortConfig{
			HTTPAPI: 12002,
			P2PTCP:  13002,
			P2PWS:   14002,
			Extra:   []int{15002, 16002},
		},
		Network: NetworkConfig{
			Name:   "ocean_network",
			Driver: "bridge",
		},
		Output: OutputConfig{
			Dir:               ".",
			WalletsFile:       "wallets.json",
			DescriptorPattern: "docker-compose%d.yaml",
		},
		RPCs: registry.Default(),
	}
}

func defaultSettings() []Setting {
	return []Setting{
		{"P2P_ANNOUNCE_PRIVATE", "True"},
		{"P2P_pubsubPeerDiscoveryInterval", "10000"},
		{"P2P_dhtMaxInboundStreams", "500"},
		{"P2P_dhtMaxOutboundStreams", "500"},
		{"P2P_ENABLE_DHT_SERVER", "false"},
		{"P2P_mDNSInterval", "20000"},
		{"P2P_connectionsMaxParallelDials", "150"},
		{"P2P_connectionsDialTimeout", "10000"},
		{"P2P_ENABLE_UPNP", "True"},
		{"P2P_ENABLE_AUTONAT", "True"},
		{"P2P_ENABLE_CIRCUIT_RELAY_SERVER", "True"},
		{"P2P_ENABLE_CIRCUIT_RELAY_CLIENT", "0"},
		{"P2P_MIN_CONNECTIONS", "1"},
		{"P2P_MAX_CONNECTIONS", "300"},
		{"P2P_AUTODIALPEERRETRYTHRESHOLD", "1000 * 120"},
		{"P2P_AUTODIALCONCURRENCY", "5"},
		{"P2P_MAXPEERADDRSTODIAL", "5"},
		{"P2P_AUTODIALINTERVAL", "5000"},
		{"P2P_ENABLE_NETWORK_STATS", "getP2pNetworkStats"},
	}
}

// Load loads the configuration from a YAML file layered over the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories and atomically
// replacing any existing file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := atomicfile.New(path, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Abort()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Validate reports the first problem that would make generated descriptors unusable.
func (c *Config) Validate() error {
	switch {
	case c.Node.Image == "":
		return fmt.Errorf("%w: node.image is empty", ErrInvalidConfig)
	case c.Node.NamePrefix == "":
		return fmt.Errorf("%w: node.name_prefix is empty", ErrInvalidConfig)
	case c.Indexer.Image == "":
		return fmt.Errorf("%w: indexer.image is empty", ErrInvalidConfig)
	case c.Indexer.ContainerName == "":
		return fmt.Errorf("%w: indexer.container_name is empty", ErrInvalidConfig)
	case c.Network.Name == "":
		return fmt.Errorf("%w: network.name is empty", ErrInvalidConfig)
	case c.Output.WalletsFile == "":
		return fmt.Errorf("%w: output.wallets_file is empty", ErrInvalidConfig)
	case strings.Count(c.Output.DescriptorPattern, "%") != 1 || !strings.Contains(c.Output.DescriptorPattern, "%d"):
		return fmt.Errorf("%w: output.descriptor_pattern %q needs exactly one %%d", ErrInvalidConfig, c.Output.DescriptorPattern)
	}

	if !validPort(c.Indexer.Port) {
		return fmt.Errorf("%w: indexer.port %d out of range", ErrInvalidConfig, c.Indexer.Port)
	}
	for _, p := range c.Ports.Bases() {
		if !validPort(p) {
			return fmt.Errorf("%w: base port %d out of range", ErrInvalidConfig, p)
		}
	}

	if err := c.RPCs.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Bases returns every base port in publish order.
func (p PortConfig) Bases() []int {
	bases := []int{p.HTTPAPI, p.P2PTCP, p.P2PWS}
	return append(bases, p.Extra...)
}

func validPort(p int) bool {
	return p > 0 && p <= MaxPort
}
