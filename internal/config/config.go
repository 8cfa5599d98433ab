// Package config loads the YAML configuration consumed (but not
// defined) by the dispatch core: node type, pool size, RPC port, and
// the handful of tunables the fabric and lifecycle packages read at
// startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeType selects which role a process runs as.
type NodeType string

const (
	NodeSingleProcess NodeType = "SingleProcess"
	NodeWorker        NodeType = "Worker"
	NodeScheduler     NodeType = "Scheduler"
)

// LoadBalancerKind selects the fabric's worker-selection policy.
type LoadBalancerKind string

const (
	LoadBalancerRoundRobin LoadBalancerKind = "RoundRobin"
)

// DataStoreConfig describes the optional persistence backend. Type
// "" or "memory" selects the in-memory reference store.
type DataStoreConfig struct {
	Type string `yaml:"type"`
	Host string `yaml:"host"`
}

// Config is the complete on-disk configuration shape (spec.md §6.2).
type Config struct {
	NodeType          NodeType         `yaml:"node_type"`
	NumWorkers        int              `yaml:"num_workers"`
	GRPCPort          int              `yaml:"grpc_port"`
	GracefulTimeout   time.Duration    `yaml:"graceful_timeout"`
	HeartbeatInterval time.Duration    `yaml:"heartbeat_interval"`
	EvictionThreshold time.Duration    `yaml:"eviction_threshold"`
	LoadBalancer      LoadBalancerKind `yaml:"load_balancer"`
	DataStore         DataStoreConfig  `yaml:"data_store"`
	MasterAddr        string           `yaml:"master_addr"`
	MagicCookie       string           `yaml:"magic_cookie"`
	MaxQueueHint      int              `yaml:"max_queue_hint"`
	LogLevel          string           `yaml:"log_level"`
	MetricsAddr       string           `yaml:"metrics_addr"`
}

// Default returns the configuration spec.md names as defaults for any
// field a loaded file omits.
func Default() Config {
	return Config{
		NodeType:          NodeSingleProcess,
		NumWorkers:        4,
		GRPCPort:          44880,
		GracefulTimeout:   30 * time.Second,
		HeartbeatInterval: time.Second,
		EvictionThreshold: 3 * time.Second,
		LoadBalancer:      LoadBalancerRoundRobin,
		MaxQueueHint:      100,
		LogLevel:          "info",
		MetricsAddr:       ":9090",
	}
}

// Load reads and parses a YAML config file at path, applying defaults
// for anything the file leaves zero-valued.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the handful of invariants spec.md §6.2 requires.
func (c *Config) Validate() error {
	switch c.NodeType {
	case NodeSingleProcess, NodeWorker, NodeScheduler:
	default:
		return fmt.Errorf("invalid node_type %q", c.NodeType)
	}
	if c.NumWorkers < 1 {
		return fmt.Errorf("num_workers must be >= 1, got %d", c.NumWorkers)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("grpc_port must be in [1, 65535], got %d", c.GRPCPort)
	}
	if c.LoadBalancer != LoadBalancerRoundRobin {
		return fmt.Errorf("unsupported load_balancer %q", c.LoadBalancer)
	}
	if c.NodeType == NodeWorker && c.MasterAddr == "" {
		return fmt.Errorf("master_addr is required for node_type Worker")
	}
	return nil
}
