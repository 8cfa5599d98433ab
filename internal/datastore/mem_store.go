package datastore

import (
	"context"
	"sync"
	"time"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/protoerr"
)

// MemStore is the in-memory reference implementation of Store, used
// as the default when data_store is unset and by tests.
type MemStore struct {
	mu         sync.RWMutex
	executions map[string]TaskExecution
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{executions: make(map[string]TaskExecution)}
}

func (m *MemStore) AddTaskExecution(ctx context.Context, exec TaskExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exec.CreatedAt.IsZero() {
		exec.CreatedAt = time.Now()
	}
	exec.UpdatedAt = exec.CreatedAt
	m.executions[exec.ExecutionID] = exec
	return nil
}

func (m *MemStore) GetTaskExecutionsByWorker(ctx context.Context, workerID string) ([]TaskExecution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TaskExecution
	for _, e := range m.executions {
		if e.WorkerID == workerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemStore) GetTaskExecutionsByState(ctx context.Context, state schedulerpb.TaskState) ([]TaskExecution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TaskExecution
	for _, e := range m.executions {
		if e.State == state {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemStore) UpdateTaskExecutionState(ctx context.Context, executionID string, state schedulerpb.TaskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	exec, ok := m.executions[executionID]
	if !ok {
		return protoerr.New(protoerr.KindDataLayer, "no task execution recorded for execution_id "+executionID)
	}
	exec.State = state
	exec.UpdatedAt = time.Now()
	m.executions[executionID] = exec
	return nil
}
