// Package schedulerpb holds the wire message shapes of spec.md §6.1.
//
// These are hand-written Go structs rather than protoc-gen-go output:
// generating real .proto bindings requires a protoc/buf toolchain step
// this module does not run (see DESIGN.md, "wire encoding"). The types
// here are transported over real google.golang.org/grpc unary and
// bidirectional-stream RPCs using the JSON codec registered in
// codec.go, so field tags below are JSON tags rather than protobuf
// field numbers — compatibility is versioned by field name, not by
// wire tag, which is the tradeoff of skipping codegen.
package schedulerpb

// TaskState is the terminal/non-terminal state of a dispatched execution.
type TaskState int32

const (
	TaskStatePending TaskState = 0
	TaskStateSuccess TaskState = 1
	TaskStateFail    TaskState = 2
)

func (s TaskState) String() string {
	switch s {
	case TaskStatePending:
		return "Pending"
	case TaskStateSuccess:
		return "Success"
	case TaskStateFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// Task is a unit of work. Payload is an opaque, type-tagged byte blob
// passed through to the executor untouched.
type Task struct {
	ID      string `json:"id"`
	Payload []byte `json:"payload"`
}

// ExecuteRequest is a Task plus a scheduler-assigned execution id.
type ExecuteRequest struct {
	Task        *Task  `json:"task"`
	ExecutionID string `json:"execution_id"`
}

// ExecuteResponse is the admin RPC's synchronous acknowledgment.
type ExecuteResponse struct {
	TaskID      string    `json:"task_id"`
	ExecutionID string    `json:"execution_id"`
	State       TaskState `json:"state"`
}

// ScheduleRequest/ScheduleResponse are kept on the surface for forward
// compatibility; schedule() always returns Unimplemented (spec.md §4.6).
type ScheduleRequest struct {
	Task *Task `json:"task"`
}

type ScheduleResponse struct{}

// TaskCompletion reports a terminal (or pending) outcome for one dispatch attempt.
type TaskCompletion struct {
	TaskID      string    `json:"task_id"`
	ExecutionID string    `json:"execution_id"`
	State       TaskState `json:"state"`
}

// Registration is the worker -> scheduler handshake message.
type Registration struct {
	WorkerID       string   `json:"worker_id"`
	SupportedTasks []string `json:"supported_tasks"`
	MagicCookie    string   `json:"magic_cookie"`
}

// Pong is an inbound heartbeat, optionally carrying free-form metrics.
type Pong struct {
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// AssignTaskRequest carries one ExecuteRequest to a worker.
type AssignTaskRequest struct {
	Task        *Task  `json:"task"`
	ExecutionID string `json:"execution_id"`
}

// AckStatus is the status carried by a scheduler Ack message.
type AckStatus int32

const (
	AckStatusReady AckStatus = iota
	AckStatusError
)

// Ack acknowledges a Registration.
type Ack struct {
	Message string    `json:"message"`
	Status  AckStatus `json:"status"`
}

// Disconnect tells the worker the session is ending, with an optional reason.
type Disconnect struct {
	Reason string `json:"reason,omitempty"`
	Abort  bool   `json:"abort,omitempty"`
}

// WorkerMessage is the tagged union of messages a worker sends upstream.
type WorkerMessage struct {
	Kind         WorkerMessageKind `json:"kind"`
	Registration *Registration     `json:"registration,omitempty"`
	Completion   *TaskCompletion   `json:"completion,omitempty"`
	Heartbeat    *Pong             `json:"heartbeat,omitempty"`
}

type WorkerMessageKind string

const (
	WorkerMessageRegistration WorkerMessageKind = "registration"
	WorkerMessageCompletion   WorkerMessageKind = "completion"
	WorkerMessageHeartbeat    WorkerMessageKind = "heartbeat"
)

// SchedulerMessage is the tagged union of messages the scheduler sends downstream.
type SchedulerMessage struct {
	Kind       SchedulerMessageKind `json:"kind"`
	AssignTask *AssignTaskRequest   `json:"assign_task,omitempty"`
	Disconnect *Disconnect          `json:"disconnect,omitempty"`
	Ack        *Ack                 `json:"ack,omitempty"`
}

type SchedulerMessageKind string

const (
	SchedulerMessageAssignTask SchedulerMessageKind = "assign_task"
	SchedulerMessageDisconnect SchedulerMessageKind = "disconnect"
	SchedulerMessageAck        SchedulerMessageKind = "ack"
	SchedulerMessageHeartbeat  SchedulerMessageKind = "heartbeat"
)
