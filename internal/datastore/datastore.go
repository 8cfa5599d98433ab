// Package datastore defines the task-execution persistence contract
// (spec.md §6.3) and two implementations: an in-memory reference store
// and a Redis-backed store for multi-process deployments.
package datastore

import (
	"context"
	"time"

	"github.com/protot/scheduler/api/schedulerpb"
)

// TaskExecution is one recorded attempt to run a task, keyed by its
// execution id.
type TaskExecution struct {
	ExecutionID string
	TaskID      string
	WorkerID    string
	State       schedulerpb.TaskState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the collaborator contract the dispatch core and fabric use
// to record and query task-execution history. A data-store failure is
// logged (no metric counts it); it never fails a dispatch (spec §7).
type Store interface {
	AddTaskExecution(ctx context.Context, exec TaskExecution) error
	GetTaskExecutionsByWorker(ctx context.Context, workerID string) ([]TaskExecution, error)
	GetTaskExecutionsByState(ctx context.Context, state schedulerpb.TaskState) ([]TaskExecution, error)
	UpdateTaskExecutionState(ctx context.Context, executionID string, state schedulerpb.TaskState) error
}
