// Package dispatch implements the Dispatch Core: the admin RPC
// handler that routes an incoming execute() call to either the
// in-process Worker Pool (SingleProcess mode) or the Remote Worker
// Fabric (Scheduler/distributed mode), and the worker-facing
// Communicate RPC that hands a stream off to the fabric's session
// state machine.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/config"
	"github.com/protot/scheduler/internal/datastore"
	"github.com/protot/scheduler/internal/fabric"
	"github.com/protot/scheduler/internal/logger"
	"github.com/protot/scheduler/internal/pool"
	"github.com/protot/scheduler/internal/protoerr"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Core implements both schedulerpb.SchedulerServiceServer and
// schedulerpb.SchedulerWorkerServiceServer, routing by node type.
type Core struct {
	schedulerpb.UnimplementedSchedulerServiceServer

	nodeType config.NodeType
	pool     *pool.Pool
	fabric   *fabric.Fabric
	store    datastore.Store
}

// New builds a Core. pool is required for NodeSingleProcess; fabric
// is required for NodeScheduler. Either may be nil for the mode that
// does not use it. store is optional; when nil, execution history is
// not recorded (§4.8's "never fails a dispatch" contract then simply
// has nothing to write to).
func New(nodeType config.NodeType, p *pool.Pool, f *fabric.Fabric, store datastore.Store) *Core {
	return &Core{nodeType: nodeType, pool: p, fabric: f, store: store}
}

// recordDispatch writes a Pending execution record for a freshly
// accepted task. A data-store failure is logged and never surfaces
// to the caller: §4.8 guarantees persistence failures never fail a
// dispatch.
func (c *Core) recordDispatch(ctx context.Context, log zerolog.Logger, taskID, executionID, workerID string) {
	if c.store == nil {
		return
	}
	now := time.Now()
	err := c.store.AddTaskExecution(ctx, datastore.TaskExecution{
		ExecutionID: executionID,
		TaskID:      taskID,
		WorkerID:    workerID,
		State:       schedulerpb.TaskStatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		log.Error().Err(err).Str("execution_id", executionID).Msg("failed to record task execution")
	}
}

// Execute implements SchedulerService.execute (spec §4.6).
func (c *Core) Execute(ctx context.Context, req *schedulerpb.ExecuteRequest) (*schedulerpb.ExecuteResponse, error) {
	if req == nil || req.Task == nil {
		return nil, status.Error(codes.InvalidArgument, "execute request must carry a task")
	}

	log := logger.WithComponent("dispatch")

	switch c.nodeType {
	case config.NodeSingleProcess:
		if err := c.pool.Submit(req); err != nil {
			log.Error().Err(err).Str("task_id", req.Task.ID).Msg("local dispatch failed")
			return nil, protoerr.ToStatus(err)
		}
		c.recordDispatch(ctx, log, req.Task.ID, req.ExecutionID, "local")
		return &schedulerpb.ExecuteResponse{
			TaskID:      req.Task.ID,
			ExecutionID: req.ExecutionID,
			State:       schedulerpb.TaskStatePending,
		}, nil

	case config.NodeScheduler:
		executionID := uuid.NewString()
		assignment := &schedulerpb.AssignTaskRequest{Task: req.Task, ExecutionID: executionID}
		workerID, err := c.fabric.DistributeTask(req.Task.ID, assignment)
		if err != nil {
			log.Error().Err(err).Str("task_id", req.Task.ID).Msg("distributed dispatch failed")
			return nil, protoerr.ToStatus(err)
		}
		c.recordDispatch(ctx, log, req.Task.ID, executionID, workerID)
		return &schedulerpb.ExecuteResponse{
			TaskID:      req.Task.ID,
			ExecutionID: executionID,
			State:       schedulerpb.TaskStatePending,
		}, nil

	default:
		return nil, status.Error(codes.FailedPrecondition, "node type "+string(c.nodeType)+" does not accept admin execute calls")
	}
}

// Schedule implements SchedulerService.schedule (spec §4.6): kept on
// the surface for forward compatibility, never implemented.
func (c *Core) Schedule(ctx context.Context, req *schedulerpb.ScheduleRequest) (*schedulerpb.ScheduleResponse, error) {
	return nil, status.Error(codes.Unimplemented,
		"schedule is not supported by this scheduler; use execute instead")
}

// Communicate implements SchedulerWorkerService.communicate, handing
// the stream straight to the fabric's session state machine.
func (c *Core) Communicate(stream schedulerpb.SchedulerWorkerService_CommunicateServer) error {
	if c.fabric == nil {
		return status.Error(codes.FailedPrecondition, "this node does not run a remote worker fabric")
	}
	return c.fabric.AcceptSession(stream)
}
