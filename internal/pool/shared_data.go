package pool

import (
	"sync"
	"sync/atomic"

	"github.com/protot/scheduler/internal/metrics"
)

// sharedData is the process-wide state shared by every worker in the
// pool: the job queue endpoint, the counters dispatch and metrics
// read, and the join/condvar pair that lets callers wait for the
// queue to drain.
type sharedData struct {
	name string

	mu     sync.Mutex
	jobs   chan Job
	closed bool

	queuedCount    atomic.Int64
	activeCount    atomic.Int64
	maxThreadCount atomic.Int64
	panicCount     atomic.Int64
	jobCounter     atomic.Uint64
	forceShutdown  atomic.Bool

	emptyMu        sync.Mutex
	emptyCond      *sync.Cond
	joinGeneration atomic.Uint64

	metrics *metrics.Collector
}

// reportGauges pushes the current active/queued counts to the
// collector, if one is wired. Called from every site that changes
// either counter.
func (sd *sharedData) reportGauges() {
	if sd.metrics == nil {
		return
	}
	sd.metrics.SetPoolStats(sd.activeCount.Load(), sd.queuedCount.Load())
}

func newSharedData(name string, numThreads int, queueSize int) *sharedData {
	sd := &sharedData{
		name: name,
		jobs: make(chan Job, queueSize),
	}
	sd.maxThreadCount.Store(int64(numThreads))
	sd.emptyCond = sync.NewCond(&sd.emptyMu)
	return sd
}

// hasWork reports whether any job is queued or being executed.
func (sd *sharedData) hasWork() bool {
	return sd.queuedCount.Load() > 0 || sd.activeCount.Load() > 0
}

// notifyEmptyIfIdle wakes every joiner once the queue has fully drained.
func (sd *sharedData) notifyEmptyIfIdle() {
	if sd.hasWork() {
		return
	}
	sd.emptyMu.Lock()
	sd.emptyCond.Broadcast()
	sd.emptyMu.Unlock()
}

// nextJobID returns the next monotonically increasing job sequence number.
func (sd *sharedData) nextJobID() uint64 {
	return sd.jobCounter.Add(1) - 1
}
