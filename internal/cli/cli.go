// Package cli provides the command-line interface for the protot
// scheduler binary, built on cobra.
//
// Command Structure:
//
//	protot                      # Root command
//	├── run                     # Start the scheduler process
//	│   └── --config, -c        # Specify config file
//	├── init                    # Write a default Scheduler-mode config file
//	│   └── --out, -o           # Output path
//	└── --debug                 # Repeatable: -d, -dd, -ddd raises log verbosity
//
// run loads the YAML config (internal/config), builds the components
// the node type requires (worker pool and/or remote fabric, the admin
// gRPC server, the metrics endpoint) and blocks until a shutdown
// signal is handled by internal/lifecycle.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/protot/scheduler/internal/config"
	"github.com/protot/scheduler/internal/logger"
)

var (
	configFile string
	debugCount int
)

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "protot",
		Short:   "ProtoT: a distributed task-dispatching service",
		Version: "0.1.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")
	rootCmd.PersistentFlags().CountVarP(&debugCount, "debug", "d", "increase log verbosity (repeatable)")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildInitCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler process",
		Long:  "Load the config file and start the worker pool and/or remote fabric it describes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystem(configFile)
		},
	}
	return cmd
}

func runSystem(path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	logger.Init(verbosityToLevel(debugCount, cfg.LogLevel), debugCount > 0)
	logger.Get().Info().Str("node_type", string(cfg.NodeType)).Msg("starting protot")

	return startNode(cfg)
}

func verbosityToLevel(count int, configured string) string {
	switch {
	case count >= 2:
		return "trace"
	case count == 1:
		return "debug"
	case configured != "":
		return configured
	default:
		return "info"
	}
}

func buildInitCommand() *cobra.Command {
	var out string
	var dataHost string
	var numWorkers int
	var grpcPort int

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default Scheduler-mode config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeDefaultConfig(out, dataHost, numWorkers, grpcPort)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "configs/default.yaml", "output config file path")
	cmd.Flags().StringVar(&dataHost, "data-host", "", "data_store.host override (empty keeps the in-memory store)")
	cmd.Flags().IntVar(&numWorkers, "num-workers", 0, "num_workers override (0 keeps the default)")
	cmd.Flags().IntVar(&grpcPort, "grpc-port", 0, "grpc_port override (0 keeps the default)")
	return cmd
}

func writeDefaultConfig(path, dataHost string, numWorkers, grpcPort int) error {
	cfg := config.Default()
	cfg.NodeType = config.NodeScheduler
	if dataHost != "" {
		cfg.DataStore.Type = "redis"
		cfg.DataStore.Host = dataHost
	}
	if numWorkers > 0 {
		cfg.NumWorkers = numWorkers
	}
	if grpcPort > 0 {
		cfg.GRPCPort = grpcPort
	}

	data, err := marshalConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Printf("Wrote default Scheduler config to %s\n", path)
	return nil
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the configuration this node would start with",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	fmt.Println("ProtoT configuration:")
	fmt.Printf("  config file:        %s\n", configFile)
	fmt.Printf("  node_type:          %s\n", cfg.NodeType)
	fmt.Printf("  num_workers:        %d\n", cfg.NumWorkers)
	fmt.Printf("  grpc_port:          %d\n", cfg.GRPCPort)
	fmt.Printf("  load_balancer:      %s\n", cfg.LoadBalancer)
	fmt.Printf("  heartbeat_interval: %s\n", cfg.HeartbeatInterval)
	fmt.Printf("  eviction_threshold: %s\n", cfg.EvictionThreshold)
	fmt.Printf("  data_store:         %s\n", dataStoreLabel(cfg.DataStore.Type))
	fmt.Printf("  metrics_addr:       %s\n", cfg.MetricsAddr)
	return nil
}

func dataStoreLabel(t string) string {
	if t == "" {
		return "memory"
	}
	return t
}

func loadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}
