package datastore

import (
	"context"
	"testing"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreAddAndQueryByWorker(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	require.NoError(t, store.AddTaskExecution(ctx, TaskExecution{
		ExecutionID: "e1", TaskID: "echo", WorkerID: "w1", State: schedulerpb.TaskStatePending,
	}))
	require.NoError(t, store.AddTaskExecution(ctx, TaskExecution{
		ExecutionID: "e2", TaskID: "echo", WorkerID: "w2", State: schedulerpb.TaskStatePending,
	}))

	byWorker, err := store.GetTaskExecutionsByWorker(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, byWorker, 1)
	assert.Equal(t, "e1", byWorker[0].ExecutionID)
}

func TestMemStoreQueryByState(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	require.NoError(t, store.AddTaskExecution(ctx, TaskExecution{ExecutionID: "e1", State: schedulerpb.TaskStatePending}))
	require.NoError(t, store.AddTaskExecution(ctx, TaskExecution{ExecutionID: "e2", State: schedulerpb.TaskStateSuccess}))

	pending, err := store.GetTaskExecutionsByState(ctx, schedulerpb.TaskStatePending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "e1", pending[0].ExecutionID)
}

func TestMemStoreUpdateState(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	require.NoError(t, store.AddTaskExecution(ctx, TaskExecution{ExecutionID: "e1", State: schedulerpb.TaskStatePending}))

	require.NoError(t, store.UpdateTaskExecutionState(ctx, "e1", schedulerpb.TaskStateSuccess))

	successes, err := store.GetTaskExecutionsByState(ctx, schedulerpb.TaskStateSuccess)
	require.NoError(t, err)
	require.Len(t, successes, 1)
	assert.Equal(t, "e1", successes[0].ExecutionID)
}

func TestMemStoreUpdateUnknownExecutionFails(t *testing.T) {
	store := NewMemStore()
	err := store.UpdateTaskExecutionState(context.Background(), "missing", schedulerpb.TaskStateSuccess)
	require.Error(t, err)
}
