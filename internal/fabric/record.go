package fabric

import (
	"time"

	"github.com/protot/scheduler/api/schedulerpb"
)

// sessionState is the per-worker state machine of spec §4.5.1.
type sessionState int

const (
	stateNew sessionState = iota
	stateRegistered
	stateActive
	stateClosed
	stateEvicted
)

func (s sessionState) String() string {
	switch s {
	case stateNew:
		return "New"
	case stateRegistered:
		return "Registered"
	case stateActive:
		return "Active"
	case stateClosed:
		return "Closed"
	case stateEvicted:
		return "Evicted"
	default:
		return "Unknown"
	}
}

// WorkerRecord is the fabric's bookkeeping for one connected remote
// worker: its declared capabilities and the two channels the session
// goroutine drains to talk to it.
type WorkerRecord struct {
	WorkerID       string
	SupportedTasks []string

	assignments chan *schedulerpb.AssignTaskRequest
	cancel      chan struct{}

	state sessionState
}

func newWorkerRecord(id string, supported []string, queueHint int) *WorkerRecord {
	return &WorkerRecord{
		WorkerID:       id,
		SupportedTasks: supported,
		assignments:    make(chan *schedulerpb.AssignTaskRequest, queueHint),
		cancel:         make(chan struct{}),
		state:          stateRegistered,
	}
}

// supports reports whether this worker declared taskName among its
// supported_tasks at registration.
func (r *WorkerRecord) supports(taskName string) bool {
	if len(r.SupportedTasks) == 0 {
		// A worker that declares no capabilities is treated as
		// general-purpose, matching the reference implementation's
		// registration path which never required a non-empty list.
		return true
	}
	for _, t := range r.SupportedTasks {
		if t == taskName {
			return true
		}
	}
	return false
}

// heartbeatRecord is kept in a map separate from WorkerRecord so the
// registry lock and the heartbeat lock are never held together (spec §5).
type heartbeatRecord struct {
	lastSeen time.Time
}
