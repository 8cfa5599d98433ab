package pool

import "github.com/protot/scheduler/api/schedulerpb"

// Job is the monotonically-numbered envelope a worker dequeues: one
// ExecuteRequest plus the callable that invokes the registered
// executor and reports the outcome.
type Job struct {
	ID      uint64
	Request *schedulerpb.ExecuteRequest
	Run     func(*schedulerpb.ExecuteRequest)
}
