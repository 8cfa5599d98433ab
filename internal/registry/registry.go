// Package registry holds the map of task-type name to the executor
// that runs it, shared by the pool and (for informational purposes)
// the admin RPC layer.
package registry

import (
	"context"
	"sync"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/protoerr"
)

// TaskExecutor runs one Task and reports its terminal state.
type TaskExecutor interface {
	Execute(ctx context.Context, req *schedulerpb.ExecuteRequest) error
}

// TaskExecutorFunc adapts a plain function to TaskExecutor.
type TaskExecutorFunc func(ctx context.Context, req *schedulerpb.ExecuteRequest) error

func (f TaskExecutorFunc) Execute(ctx context.Context, req *schedulerpb.ExecuteRequest) error {
	return f(ctx, req)
}

// Registry maps a task-type name to the executor that handles it.
// Registration happens once at startup; lookups happen on the hot
// dispatch path, so reads are protected by an RWMutex.
type Registry struct {
	mu       sync.RWMutex
	executors map[string]TaskExecutor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{executors: make(map[string]TaskExecutor)}
}

// Register binds taskName to executor, replacing any prior binding.
func (r *Registry) Register(taskName string, executor TaskExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[taskName] = executor
}

// Get looks up the executor for taskName.
func (r *Registry) Get(taskName string) (TaskExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	executor, ok := r.executors[taskName]
	if !ok {
		return nil, protoerr.New(protoerr.KindTaskExecution, "no executor registered for task type "+taskName)
	}
	return executor, nil
}

// Names returns the registered task-type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	return names
}
