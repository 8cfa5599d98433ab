// Command protot-worker runs a remote worker process (node_type
// Worker): it connects outbound to a scheduler's SchedulerWorkerService,
// registers the task names it supports, and executes tasks the
// scheduler assigns to it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/protot/scheduler/internal/config"
	"github.com/protot/scheduler/internal/logger"
	"github.com/protot/scheduler/internal/registry"
	"github.com/protot/scheduler/internal/workerclient"
)

var (
	version = "0.1.0"

	workerID       string
	masterAddr     string
	supportedTasks string
	magicCookie    string
	configFile     string
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	cmd := &cobra.Command{
		Use:     "protot-worker",
		Short:   "ProtoT remote worker process",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path (optional; overrides below still apply)")
	cmd.Flags().StringVar(&workerID, "worker-id", fmt.Sprintf("worker-%d", time.Now().UnixNano()), "this worker's id")
	cmd.Flags().StringVar(&masterAddr, "master", "", "scheduler address, e.g. localhost:44880")
	cmd.Flags().StringVar(&supportedTasks, "tasks", "", "comma-separated list of supported task names (empty = general-purpose)")
	cmd.Flags().StringVar(&magicCookie, "magic-cookie", "", "shared registration secret")
	cmd.MarkFlagRequired("master")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger.Init("info", false)
	log := logger.WithWorker(workerID)

	var heartbeatInterval time.Duration
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		heartbeatInterval = cfg.HeartbeatInterval
	}

	reg := registry.New()
	// cmd/protot-worker ships no built-in executors: the registry stays
	// empty, so every assigned task is reported back as Fail. The binary
	// exercises registration and heartbeat behavior against a scheduler.

	var tasks []string
	if supportedTasks != "" {
		tasks = strings.Split(supportedTasks, ",")
	}

	w := workerclient.New(workerclient.Config{
		WorkerID:          workerID,
		SupportedTasks:    tasks,
		MagicCookie:       magicCookie,
		SchedulerAddr:     masterAddr,
		HeartbeatInterval: heartbeatInterval,
	}, reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	log.Info().Str("master", masterAddr).Msg("connecting to scheduler")
	err := w.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
