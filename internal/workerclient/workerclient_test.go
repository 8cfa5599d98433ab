package workerclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteReportsSuccessCompletion(t *testing.T) {
	reg := registry.New()
	reg.Register("echo", registry.TaskExecutorFunc(func(ctx context.Context, req *schedulerpb.ExecuteRequest) error {
		return nil
	}))
	w := New(Config{WorkerID: "w1"}, reg)

	var sent *schedulerpb.WorkerMessage
	send := func(m *schedulerpb.WorkerMessage) error {
		sent = m
		return nil
	}

	w.execute(context.Background(), &schedulerpb.AssignTaskRequest{
		Task:        &schedulerpb.Task{ID: "echo"},
		ExecutionID: "e1",
	}, send)

	require.NotNil(t, sent)
	assert.Equal(t, schedulerpb.WorkerMessageCompletion, sent.Kind)
	assert.Equal(t, schedulerpb.TaskStateSuccess, sent.Completion.State)
	assert.Equal(t, "e1", sent.Completion.ExecutionID)
}

func TestExecuteReportsFailureCompletion(t *testing.T) {
	reg := registry.New()
	reg.Register("boom", registry.TaskExecutorFunc(func(ctx context.Context, req *schedulerpb.ExecuteRequest) error {
		return errors.New("kaboom")
	}))
	w := New(Config{WorkerID: "w1"}, reg)

	var sent *schedulerpb.WorkerMessage
	send := func(m *schedulerpb.WorkerMessage) error {
		sent = m
		return nil
	}

	w.execute(context.Background(), &schedulerpb.AssignTaskRequest{
		Task:        &schedulerpb.Task{ID: "boom"},
		ExecutionID: "e2",
	}, send)

	require.NotNil(t, sent)
	assert.Equal(t, schedulerpb.TaskStateFail, sent.Completion.State)
}

func TestExecuteUnknownTaskReportsFailure(t *testing.T) {
	w := New(Config{WorkerID: "w1"}, registry.New())

	var sent *schedulerpb.WorkerMessage
	send := func(m *schedulerpb.WorkerMessage) error {
		sent = m
		return nil
	}

	w.execute(context.Background(), &schedulerpb.AssignTaskRequest{
		Task:        &schedulerpb.Task{ID: "nope"},
		ExecutionID: "e3",
	}, send)

	require.NotNil(t, sent)
	assert.Equal(t, schedulerpb.TaskStateFail, sent.Completion.State)
}

func TestJitterStaysWithinBounds(t *testing.T) {
	d := 10 * time.Second
	for i := 0; i < 20; i++ {
		j := jitter(d)
		assert.GreaterOrEqual(t, j, d/2)
		assert.LessOrEqual(t, j, d)
	}
}

func TestAckMessageHandlesNilAck(t *testing.T) {
	assert.Equal(t, "no ack payload", ackMessage(&schedulerpb.SchedulerMessage{}))
}
