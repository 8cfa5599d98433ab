package fabric

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/logger"
)

// stream is the subset of SchedulerWorkerService_CommunicateServer
// the session loop needs; narrowing it keeps this file testable
// without a real grpc.ServerStream.
type stream interface {
	Send(*schedulerpb.SchedulerMessage) error
	Recv() (*schedulerpb.WorkerMessage, error)
	Context() context.Context
}

// AcceptSession runs the session state machine for one worker's
// bidirectional stream (spec §4.5.1): New -> awaits Registration,
// Registered -> Ack, Active -> concurrent send/recv loops until the
// stream closes or a cancel signal fires.
func (f *Fabric) AcceptSession(s stream) error {
	first, err := s.Recv()
	if err != nil {
		return err
	}
	if first.Kind != schedulerpb.WorkerMessageRegistration || first.Registration == nil {
		return errors.New("protocol violation: first message must be Registration")
	}
	reg := first.Registration

	if f.cfg.MagicCookie != "" && reg.MagicCookie != f.cfg.MagicCookie {
		_ = s.Send(&schedulerpb.SchedulerMessage{
			Kind: schedulerpb.SchedulerMessageAck,
			Ack:  &schedulerpb.Ack{Message: "invalid magic_cookie", Status: schedulerpb.AckStatusError},
		})
		return errors.New("registration rejected: invalid magic_cookie")
	}

	record, err := f.register(reg.WorkerID, reg.SupportedTasks)
	if err != nil {
		_ = s.Send(&schedulerpb.SchedulerMessage{
			Kind: schedulerpb.SchedulerMessageAck,
			Ack:  &schedulerpb.Ack{Message: err.Error(), Status: schedulerpb.AckStatusError},
		})
		return err
	}
	defer f.unregister(record.WorkerID)

	if err := s.Send(&schedulerpb.SchedulerMessage{
		Kind: schedulerpb.SchedulerMessageAck,
		Ack:  &schedulerpb.Ack{Message: "registered", Status: schedulerpb.AckStatusReady},
	}); err != nil {
		return err
	}
	record.state = stateActive

	log := logger.WithSession(record.WorkerID)
	log.Info().Strs("supported_tasks", record.SupportedTasks).Msg("worker session active")

	ctx, cancel := context.WithCancel(s.Context())
	defer cancel()

	errCh := make(chan error, 3)
	go f.sendAssignments(ctx, s, record, errCh)
	go f.sendHeartbeats(ctx, s, errCh)
	go f.recvLoop(ctx, s, record, errCh)

	sessionErr := <-errCh
	cancel()
	record.state = stateClosed
	log.Info().Err(sessionErr).Msg("worker session closed")
	return sessionErr
}

func (f *Fabric) sendAssignments(ctx context.Context, s stream, record *WorkerRecord, errCh chan<- error) {
	for {
		select {
		case <-ctx.Done():
			errCh <- nil
			return
		case <-record.cancel:
			_ = s.Send(&schedulerpb.SchedulerMessage{
				Kind:       schedulerpb.SchedulerMessageDisconnect,
				Disconnect: &schedulerpb.Disconnect{Reason: "evicted", Abort: true},
			})
			errCh <- errEvicted
			return
		case assignment, ok := <-record.assignments:
			if !ok {
				errCh <- nil
				return
			}
			if err := s.Send(&schedulerpb.SchedulerMessage{
				Kind:       schedulerpb.SchedulerMessageAssignTask,
				AssignTask: assignment,
			}); err != nil {
				errCh <- err
				return
			}
		}
	}
}

func (f *Fabric) sendHeartbeats(ctx context.Context, s stream, errCh chan<- error) {
	ticker := time.NewTicker(f.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Send(&schedulerpb.SchedulerMessage{Kind: schedulerpb.SchedulerMessageHeartbeat}); err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
		}
	}
}

func (f *Fabric) recvLoop(ctx context.Context, s stream, record *WorkerRecord, errCh chan<- error) {
	for {
		msg, err := s.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				errCh <- nil
			} else {
				errCh <- err
			}
			return
		}

		switch msg.Kind {
		case schedulerpb.WorkerMessageHeartbeat:
			f.touchHeartbeat(record.WorkerID)
		case schedulerpb.WorkerMessageCompletion:
			if msg.Completion != nil {
				if f.cfg.Metrics != nil {
					switch msg.Completion.State {
					case schedulerpb.TaskStateSuccess:
						latency, _ := f.takeDispatchLatency(msg.Completion.ExecutionID)
						f.cfg.Metrics.RecordCompleted(latency.Seconds())
					case schedulerpb.TaskStateFail:
						f.takeDispatchLatency(msg.Completion.ExecutionID)
						f.cfg.Metrics.RecordFailed()
					}
				}
				if f.cfg.OnCompletion != nil {
					f.cfg.OnCompletion(record.WorkerID, msg.Completion)
				}
			}
		case schedulerpb.WorkerMessageRegistration:
			errCh <- errors.New("protocol violation: duplicate Registration after Registered")
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

var errEvicted = errors.New("worker evicted: heartbeat timeout exceeded")
