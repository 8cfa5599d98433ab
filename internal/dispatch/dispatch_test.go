package dispatch

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/config"
	"github.com/protot/scheduler/internal/datastore"
	"github.com/protot/scheduler/internal/fabric"
	"github.com/protot/scheduler/internal/pool"
	"github.com/protot/scheduler/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	reg := registry.New()
	var called atomic.Int64
	reg.Register("echo", registry.TaskExecutorFunc(func(ctx context.Context, req *schedulerpb.ExecuteRequest) error {
		called.Add(1)
		return nil
	}))
	p, err := pool.NewBuilder(2).Registry(reg).Build()
	require.NoError(t, err)
	return p
}

func TestExecuteSingleProcessDispatchesToPool(t *testing.T) {
	p := newTestPool(t)
	core := New(config.NodeSingleProcess, p, nil, nil)

	resp, err := core.Execute(context.Background(), &schedulerpb.ExecuteRequest{
		Task: &schedulerpb.Task{ID: "echo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo", resp.TaskID)
	assert.NotEmpty(t, resp.ExecutionID)
	assert.Equal(t, schedulerpb.TaskStatePending, resp.State)
}

func TestExecuteSingleProcessUnknownTaskFails(t *testing.T) {
	p := newTestPool(t)
	core := New(config.NodeSingleProcess, p, nil, nil)

	_, err := core.Execute(context.Background(), &schedulerpb.ExecuteRequest{
		Task: &schedulerpb.Task{ID: "nope"},
	})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
}

func TestExecuteRequiresTask(t *testing.T) {
	core := New(config.NodeSingleProcess, newTestPool(t), nil, nil)
	_, err := core.Execute(context.Background(), &schedulerpb.ExecuteRequest{})
	require.Error(t, err)
	st, _ := status.FromError(err)
	assert.Equal(t, codes.InvalidArgument, st.Code())
}

func TestExecuteSchedulerNoWorkersFails(t *testing.T) {
	fab := fabric.New(fabric.Config{})
	core := New(config.NodeScheduler, nil, fab, nil)

	_, err := core.Execute(context.Background(), &schedulerpb.ExecuteRequest{
		Task: &schedulerpb.Task{ID: "echo"},
	})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Aborted, st.Code())
}

func TestScheduleIsUnimplemented(t *testing.T) {
	core := New(config.NodeSingleProcess, newTestPool(t), nil, nil)
	_, err := core.Schedule(context.Background(), &schedulerpb.ScheduleRequest{})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unimplemented, st.Code())
}

func TestCommunicateWithoutFabricFails(t *testing.T) {
	core := New(config.NodeWorker, nil, nil, nil)
	err := core.Communicate(nil)
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
}

func TestExecuteRecordsTaskExecutionInStore(t *testing.T) {
	p := newTestPool(t)
	store := datastore.NewMemStore()
	core := New(config.NodeSingleProcess, p, nil, store)

	resp, err := core.Execute(context.Background(), &schedulerpb.ExecuteRequest{
		Task: &schedulerpb.Task{ID: "echo"},
	})
	require.NoError(t, err)

	execs, err := store.GetTaskExecutionsByState(context.Background(), schedulerpb.TaskStatePending)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, resp.ExecutionID, execs[0].ExecutionID)
	assert.Equal(t, "echo", execs[0].TaskID)
	assert.Equal(t, "local", execs[0].WorkerID)
}
