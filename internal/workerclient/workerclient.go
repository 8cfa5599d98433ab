// Package workerclient is the remote-worker runtime of spec.md §4.10
// (supplemented from original_source/src/client/mod.rs): it dials a
// scheduler's SchedulerWorkerService, registers with the supported task
// names from its Config, and then concurrently sends
// Completion/Heartbeat messages while executing AssignTask messages
// the scheduler pushes down the stream, reconnecting with backoff if
// the stream drops.
package workerclient

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/logger"
	"github.com/protot/scheduler/internal/registry"
)

// Config bundles a worker's identity and connection parameters.
type Config struct {
	WorkerID          string
	SupportedTasks    []string
	MagicCookie       string
	SchedulerAddr     string
	HeartbeatInterval time.Duration

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Worker connects outbound to a scheduler and executes tasks assigned
// to it against a local registry.Registry.
type Worker struct {
	cfg      Config
	registry *registry.Registry
}

// New builds a Worker bound to reg, the local executor registry.
func New(cfg Config, reg *registry.Registry) *Worker {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = time.Second
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Worker{cfg: cfg, registry: reg}
}

// Run connects and serves until ctx is canceled, reconnecting with
// exponential backoff (plus jitter) whenever the stream drops.
func (w *Worker) Run(ctx context.Context) error {
	log := logger.WithWorker(w.cfg.WorkerID)
	backoff := w.cfg.MinBackoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := w.runStream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn().Err(err).Dur("backoff", backoff).Msg("connection to scheduler lost, reconnecting")
		select {
		case <-time.After(jitter(backoff)):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
		if backoff > w.cfg.MaxBackoff {
			backoff = w.cfg.MaxBackoff
		}
	}
}

func jitter(d time.Duration) time.Duration {
	return d/2 + time.Duration(rand.Int63n(int64(d)/2+1))
}

func (w *Worker) runStream(ctx context.Context) error {
	log := logger.WithWorker(w.cfg.WorkerID)

	conn, err := grpc.NewClient(w.cfg.SchedulerAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	client := schedulerpb.NewSchedulerWorkerServiceClient(conn)
	stream, err := client.Communicate(ctx)
	if err != nil {
		return err
	}

	if err := stream.Send(&schedulerpb.WorkerMessage{
		Kind: schedulerpb.WorkerMessageRegistration,
		Registration: &schedulerpb.Registration{
			WorkerID:       w.cfg.WorkerID,
			SupportedTasks: w.cfg.SupportedTasks,
			MagicCookie:    w.cfg.MagicCookie,
		},
	}); err != nil {
		return err
	}

	ack, err := stream.Recv()
	if err != nil {
		return err
	}
	if ack.Kind != schedulerpb.SchedulerMessageAck || ack.Ack == nil || ack.Ack.Status != schedulerpb.AckStatusReady {
		return errors.New("registration rejected: " + ackMessage(ack))
	}
	log.Info().Msg("registered with scheduler")

	sendMu := make(chan struct{}, 1)
	sendMu <- struct{}{}
	send := func(m *schedulerpb.WorkerMessage) error {
		<-sendMu
		defer func() { sendMu <- struct{}{} }()
		return stream.Send(m)
	}

	done := make(chan error, 1)
	go w.heartbeatLoop(ctx, send, done)

	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch msg.Kind {
		case schedulerpb.SchedulerMessageAssignTask:
			if msg.AssignTask != nil {
				go w.execute(ctx, msg.AssignTask, send)
			}
		case schedulerpb.SchedulerMessageHeartbeat:
			_ = send(&schedulerpb.WorkerMessage{Kind: schedulerpb.WorkerMessageHeartbeat, Heartbeat: &schedulerpb.Pong{}})
		case schedulerpb.SchedulerMessageDisconnect:
			log.Info().Msg("scheduler requested disconnect")
			return nil
		}
	}
}

func (w *Worker) heartbeatLoop(ctx context.Context, send func(*schedulerpb.WorkerMessage) error, done chan<- error) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := send(&schedulerpb.WorkerMessage{Kind: schedulerpb.WorkerMessageHeartbeat, Heartbeat: &schedulerpb.Pong{}}); err != nil {
				return
			}
		}
	}
}

func (w *Worker) execute(ctx context.Context, assignment *schedulerpb.AssignTaskRequest, send func(*schedulerpb.WorkerMessage) error) {
	log := logger.WithExecution(assignment.Task.ID, assignment.ExecutionID)

	executor, err := w.registry.Get(assignment.Task.ID)
	if err != nil {
		log.Error().Err(err).Msg("no local executor for assigned task")
		_ = send(&schedulerpb.WorkerMessage{
			Kind: schedulerpb.WorkerMessageCompletion,
			Completion: &schedulerpb.TaskCompletion{
				TaskID: assignment.Task.ID, ExecutionID: assignment.ExecutionID, State: schedulerpb.TaskStateFail,
			},
		})
		return
	}

	req := &schedulerpb.ExecuteRequest{Task: assignment.Task, ExecutionID: assignment.ExecutionID}
	state := schedulerpb.TaskStateSuccess
	if err := executor.Execute(ctx, req); err != nil {
		log.Error().Err(err).Msg("assigned task execution failed")
		state = schedulerpb.TaskStateFail
	}

	_ = send(&schedulerpb.WorkerMessage{
		Kind: schedulerpb.WorkerMessageCompletion,
		Completion: &schedulerpb.TaskCompletion{
			TaskID: assignment.Task.ID, ExecutionID: assignment.ExecutionID, State: state,
		},
	})
}

func ackMessage(ack *schedulerpb.SchedulerMessage) string {
	if ack.Ack == nil {
		return "no ack payload"
	}
	return ack.Ack.Message
}
