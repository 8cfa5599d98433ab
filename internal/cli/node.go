package cli

import (
	"context"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/config"
	"github.com/protot/scheduler/internal/datastore"
	"github.com/protot/scheduler/internal/dispatch"
	"github.com/protot/scheduler/internal/fabric"
	"github.com/protot/scheduler/internal/lifecycle"
	"github.com/protot/scheduler/internal/logger"
	"github.com/protot/scheduler/internal/metrics"
	"github.com/protot/scheduler/internal/pool"
	"github.com/protot/scheduler/internal/registry"
)

// startNode builds the components cfg.NodeType requires, serves the
// admin gRPC surface, and blocks until lifecycle.Runner observes a
// shutdown signal.
func startNode(cfg *config.Config) error {
	log := logger.WithComponent("cli")

	var collector *metrics.Collector
	if cfg.MetricsAddr != "" {
		collector = metrics.NewCollector()
	}

	store := buildStore(cfg)

	var (
		p   *pool.Pool
		fab *fabric.Fabric
	)

	switch cfg.NodeType {
	case config.NodeSingleProcess:
		var err error
		p, err = pool.NewBuilder(cfg.NumWorkers).
			Name("protot-pool").
			Registry(registry.New()).
			Metrics(collector).
			OnComplete(completionRecorder(store, log)).
			Build()
		if err != nil {
			return fmt.Errorf("failed to build worker pool: %w", err)
		}

	case config.NodeScheduler:
		fab = fabric.New(fabric.Config{
			MagicCookie:       cfg.MagicCookie,
			MaxQueueHint:      cfg.MaxQueueHint,
			HeartbeatInterval: cfg.HeartbeatInterval,
			EvictionThreshold: cfg.EvictionThreshold,
			Metrics:           collector,
			OnCompletion:      fabricCompletionRecorder(store, log),
		})

	case config.NodeWorker:
		return fmt.Errorf("node_type Worker is started via cmd/protot-worker, not cmd/protot")
	}

	core := dispatch.New(cfg.NodeType, p, fab, store)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.GRPCPort, err)
	}

	grpcServer := grpc.NewServer()
	schedulerpb.RegisterSchedulerServiceServer(grpcServer, core)
	if fab != nil {
		schedulerpb.RegisterSchedulerWorkerServiceServer(grpcServer, core)
		go fab.RunLivenessMonitor(context.Background())
	}

	if collector != nil {
		go func() {
			if err := metrics.StartServer(cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("metrics server exited")
			}
		}()
	}

	go func() {
		log.Info().Int("port", cfg.GRPCPort).Msg("admin gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc server exited")
		}
	}()

	runner := &lifecycle.Runner{
		GRPCServer:      grpcServer,
		Pool:            p,
		Fabric:          fab,
		GracefulTimeout: cfg.GracefulTimeout,
	}
	runner.Run()
	return nil
}

// buildStore constructs the execution-history store cfg.DataStore
// names. An empty or "memory" type keeps the in-process reference
// store; "redis" dials a github.com/redis/go-redis/v9 client against
// DataStore.Host.
func buildStore(cfg *config.Config) datastore.Store {
	switch cfg.DataStore.Type {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.DataStore.Host})
		return datastore.NewRedisStore(client)
	default:
		return datastore.NewMemStore()
	}
}

// completionRecorder builds a pool.CompletionFunc that updates store
// with a local (single-process) task's terminal state. A store
// failure is logged, never propagated — §4.8's "never fails a
// dispatch" contract.
func completionRecorder(store datastore.Store, log zerolog.Logger) pool.CompletionFunc {
	return func(req *schedulerpb.ExecuteRequest, state schedulerpb.TaskState) {
		if store == nil || req == nil || req.Task == nil {
			return
		}
		if err := store.UpdateTaskExecutionState(context.Background(), req.ExecutionID, state); err != nil {
			log.Error().Err(err).Str("execution_id", req.ExecutionID).Msg("failed to update task execution state")
		}
	}
}

// fabricCompletionRecorder builds a fabric.CompletionHandler that
// updates store with a remote worker's reported terminal state.
func fabricCompletionRecorder(store datastore.Store, log zerolog.Logger) fabric.CompletionHandler {
	return func(workerID string, completion *schedulerpb.TaskCompletion) {
		if store == nil || completion == nil {
			return
		}
		if err := store.UpdateTaskExecutionState(context.Background(), completion.ExecutionID, completion.State); err != nil {
			log.Error().Err(err).Str("execution_id", completion.ExecutionID).Str("worker_id", workerID).Msg("failed to update task execution state")
		}
	}
}

func marshalConfig(cfg config.Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
