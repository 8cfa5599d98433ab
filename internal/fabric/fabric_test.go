package fabric

import (
	"context"
	"testing"
	"time"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream is an in-memory stand-in for the grpc bidirectional
// stream, driven entirely by channels so session tests don't need a
// real network connection.
type fakeStream struct {
	ctx      context.Context
	cancel   context.CancelFunc
	inbound  chan *schedulerpb.WorkerMessage
	outbound chan *schedulerpb.SchedulerMessage
}

func newFakeStream() *fakeStream {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakeStream{
		ctx:      ctx,
		cancel:   cancel,
		inbound:  make(chan *schedulerpb.WorkerMessage, 16),
		outbound: make(chan *schedulerpb.SchedulerMessage, 16),
	}
}

func (f *fakeStream) Send(m *schedulerpb.SchedulerMessage) error {
	select {
	case f.outbound <- m:
		return nil
	case <-f.ctx.Done():
		return f.ctx.Err()
	}
}

func (f *fakeStream) Recv() (*schedulerpb.WorkerMessage, error) {
	select {
	case m, ok := <-f.inbound:
		if !ok {
			return nil, context.Canceled
		}
		return m, nil
	case <-f.ctx.Done():
		return nil, f.ctx.Err()
	}
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestAcceptSessionRegistersAndAcks(t *testing.T) {
	fab := New(Config{MaxQueueHint: 10, HeartbeatInterval: 50 * time.Millisecond})
	s := newFakeStream()

	s.inbound <- &schedulerpb.WorkerMessage{
		Kind:         schedulerpb.WorkerMessageRegistration,
		Registration: &schedulerpb.Registration{WorkerID: "w1", SupportedTasks: []string{"echo"}},
	}

	done := make(chan error, 1)
	go func() { done <- fab.AcceptSession(s) }()

	ack := <-s.outbound
	assert.Equal(t, schedulerpb.SchedulerMessageAck, ack.Kind)
	assert.Equal(t, schedulerpb.AckStatusReady, ack.Ack.Status)
	assert.Equal(t, 1, fab.WorkerCount())

	s.cancel()
	<-done
}

func TestAcceptSessionRejectsDuplicateWorkerID(t *testing.T) {
	fab := New(Config{MaxQueueHint: 10, HeartbeatInterval: 50 * time.Millisecond})

	first := newFakeStream()
	first.inbound <- &schedulerpb.WorkerMessage{
		Kind:         schedulerpb.WorkerMessageRegistration,
		Registration: &schedulerpb.Registration{WorkerID: "dup"},
	}
	firstDone := make(chan error, 1)
	go func() { firstDone <- fab.AcceptSession(first) }()
	<-first.outbound // consume Ack

	second := newFakeStream()
	second.inbound <- &schedulerpb.WorkerMessage{
		Kind:         schedulerpb.WorkerMessageRegistration,
		Registration: &schedulerpb.Registration{WorkerID: "dup"},
	}
	err := fab.AcceptSession(second)
	require.Error(t, err)

	ack := <-second.outbound
	assert.Equal(t, schedulerpb.AckStatusError, ack.Ack.Status)

	first.cancel()
	<-firstDone
}

func TestAcceptSessionRejectsBadMagicCookie(t *testing.T) {
	fab := New(Config{MagicCookie: "secret", MaxQueueHint: 10})
	s := newFakeStream()
	s.inbound <- &schedulerpb.WorkerMessage{
		Kind:         schedulerpb.WorkerMessageRegistration,
		Registration: &schedulerpb.Registration{WorkerID: "w1", MagicCookie: "wrong"},
	}

	err := fab.AcceptSession(s)
	require.Error(t, err)
	assert.Equal(t, 0, fab.WorkerCount())
}

func TestDistributeTaskNoWorkersFails(t *testing.T) {
	fab := New(Config{})
	_, err := fab.DistributeTask("echo", &schedulerpb.AssignTaskRequest{})
	require.Error(t, err)
}

func TestDistributeTaskFiltersBySupportedTasks(t *testing.T) {
	fab := New(Config{MaxQueueHint: 10})
	s := newFakeStream()
	s.inbound <- &schedulerpb.WorkerMessage{
		Kind:         schedulerpb.WorkerMessageRegistration,
		Registration: &schedulerpb.Registration{WorkerID: "w1", SupportedTasks: []string{"compress"}},
	}
	done := make(chan error, 1)
	go func() { done <- fab.AcceptSession(s) }()
	<-s.outbound // ack

	_, err := fab.DistributeTask("echo", &schedulerpb.AssignTaskRequest{})
	assert.Error(t, err, "w1 does not support echo, so distribution should fail")

	workerID, err := fab.DistributeTask("compress", &schedulerpb.AssignTaskRequest{ExecutionID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, "w1", workerID)

	assignment := <-s.outbound
	assert.Equal(t, schedulerpb.SchedulerMessageAssignTask, assignment.Kind)
	assert.Equal(t, "e1", assignment.AssignTask.ExecutionID)

	s.cancel()
	<-done
}

func TestRecvLoopInvokesOnCompletionWithWorkerID(t *testing.T) {
	type call struct {
		workerID   string
		completion *schedulerpb.TaskCompletion
	}
	calls := make(chan call, 1)

	fab := New(Config{
		MaxQueueHint: 10,
		OnCompletion: func(workerID string, c *schedulerpb.TaskCompletion) {
			calls <- call{workerID, c}
		},
	})
	s := newFakeStream()
	s.inbound <- &schedulerpb.WorkerMessage{
		Kind:         schedulerpb.WorkerMessageRegistration,
		Registration: &schedulerpb.Registration{WorkerID: "w1"},
	}
	done := make(chan error, 1)
	go func() { done <- fab.AcceptSession(s) }()
	<-s.outbound // ack

	s.inbound <- &schedulerpb.WorkerMessage{
		Kind: schedulerpb.WorkerMessageCompletion,
		Completion: &schedulerpb.TaskCompletion{
			TaskID: "echo", ExecutionID: "e1", State: schedulerpb.TaskStateSuccess,
		},
	}

	got := <-calls
	assert.Equal(t, "w1", got.workerID)
	assert.Equal(t, "e1", got.completion.ExecutionID)

	s.cancel()
	<-done
}

func TestLivenessMonitorEvictsStaleWorker(t *testing.T) {
	fab := New(Config{MaxQueueHint: 10, HeartbeatInterval: 10 * time.Millisecond, EvictionThreshold: 20 * time.Millisecond})
	s := newFakeStream()
	s.inbound <- &schedulerpb.WorkerMessage{
		Kind:         schedulerpb.WorkerMessageRegistration,
		Registration: &schedulerpb.Registration{WorkerID: "w1"},
	}
	done := make(chan error, 1)
	go func() { done <- fab.AcceptSession(s) }()
	<-s.outbound // ack

	ctx, cancel := context.WithCancel(context.Background())
	go fab.RunLivenessMonitor(ctx)
	defer cancel()

	require.Eventually(t, func() bool {
		return fab.WorkerCount() == 0
	}, time.Second, 5*time.Millisecond, "stale worker should be evicted")

	<-done
	s.cancel()
}
