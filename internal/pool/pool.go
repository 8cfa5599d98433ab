// Package pool implements the in-process Worker Pool: a bounded set
// of goroutines draining a single shared job queue, with panic
// recovery and graceful-drain (join) semantics.
package pool

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/logger"
	"github.com/protot/scheduler/internal/metrics"
	"github.com/protot/scheduler/internal/protoerr"
	"github.com/protot/scheduler/internal/registry"
)

// CompletionFunc is invoked once a submitted job's executor returns,
// with the request it ran and the state it finished in. It is not
// invoked for a job whose executor panics.
type CompletionFunc func(req *schedulerpb.ExecuteRequest, state schedulerpb.TaskState)

// ErrClosed is returned by Submit once the pool has begun shutting down.
var ErrClosed error = protoerr.New(protoerr.KindTaskExecution, "worker pool is closed")

// Builder configures and constructs a Pool, mirroring the fluent
// construction style used elsewhere in this codebase's ancestry.
type Builder struct {
	numThreads int
	queueSize  int
	name       string
	registry   *registry.Registry
	metrics    *metrics.Collector
	onComplete CompletionFunc
}

// NewBuilder returns a Builder with the given worker count; other
// fields take sane defaults.
func NewBuilder(numThreads int) *Builder {
	return &Builder{numThreads: numThreads, queueSize: 1024}
}

func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) QueueSize(n int) *Builder {
	b.queueSize = n
	return b
}

func (b *Builder) Registry(r *registry.Registry) *Builder {
	b.registry = r
	return b
}

// Metrics wires a Prometheus collector so dispatch, completion, and
// panic events update protot_pool_* and protot_tasks_* series.
func (b *Builder) Metrics(c *metrics.Collector) *Builder {
	b.metrics = c
	return b
}

// OnComplete registers a hook invoked once per job whose executor
// returns (a panicking job does not invoke it) — the dispatch core
// uses this to update the data store's execution record for
// single-process (in-pool) dispatches.
func (b *Builder) OnComplete(fn CompletionFunc) *Builder {
	b.onComplete = fn
	return b
}

// Build assembles a Pool and spawns its workers.
func (b *Builder) Build() (*Pool, error) {
	if b.numThreads < 1 {
		return nil, protoerr.New(protoerr.KindPoolCreation, "num_threads must be >= 1")
	}
	if b.registry == nil {
		b.registry = registry.New()
	}

	sd := newSharedData(b.name, b.numThreads, b.queueSize)
	sd.metrics = b.metrics
	p := &Pool{shared: sd, registry: b.registry, onComplete: b.onComplete}

	p.mu.Lock()
	for id := 0; id < b.numThreads; id++ {
		spawnWorker(id, sd, p.respawn)
	}
	p.mu.Unlock()

	return p, nil
}

// Pool is a handle to the shared worker-pool state. It is safe for
// concurrent use; copying a *Pool pointer gives every caller the same
// queue and counters, analogous to cloning the teacher's Arc-backed pool.
type Pool struct {
	shared     *sharedData
	registry   *registry.Registry
	onComplete CompletionFunc

	mu sync.Mutex
}

// Registry returns the pool's task registry, for callers that need
// to register executors after construction.
func (p *Pool) Registry() *registry.Registry { return p.registry }

// Submit enqueues req for execution, looking up its executor by
// req.Task.ID. It stamps req.ExecutionID with the pool's monotonic
// job sequence number — Task.ID itself is left untouched so the
// registry lookup and any caller-visible task identity survive
// dispatch (see DESIGN.md: Task.ID preservation).
func (p *Pool) Submit(req *schedulerpb.ExecuteRequest) error {
	if req == nil || req.Task == nil {
		return protoerr.New(protoerr.KindTaskExecution, "task execution must include valid data")
	}

	executor, err := p.registry.Get(req.Task.ID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shared.closed {
		return ErrClosed
	}

	jobID := p.shared.nextJobID()
	req.ExecutionID = strconv.FormatUint(jobID, 10)
	p.shared.queuedCount.Add(1)
	p.shared.reportGauges()
	if p.shared.metrics != nil {
		p.shared.metrics.RecordDispatch()
	}

	dispatchedAt := time.Now()
	job := Job{
		ID:      jobID,
		Request: req,
		Run: func(r *schedulerpb.ExecuteRequest) {
			log := logger.WithExecution(r.Task.ID, r.ExecutionID)
			state := schedulerpb.TaskStateSuccess
			if err := executor.Execute(context.Background(), r); err != nil {
				log.Error().Err(err).Msg("task execution failed")
				state = schedulerpb.TaskStateFail
			} else {
				log.Debug().Msg("task execution completed")
			}

			if p.shared.metrics != nil {
				if state == schedulerpb.TaskStateSuccess {
					p.shared.metrics.RecordCompleted(time.Since(dispatchedAt).Seconds())
				} else {
					p.shared.metrics.RecordFailed()
				}
			}
			if p.onComplete != nil {
				p.onComplete(r, state)
			}
		},
	}

	// The queue is semantically unbounded (spec §4.2); the channel
	// buffer is just an implementation detail, so a full buffer
	// blocks the caller rather than rejecting the job.
	p.shared.jobs <- job
	return nil
}

// QueuedCount returns the number of jobs waiting to start.
func (p *Pool) QueuedCount() int64 { return p.shared.queuedCount.Load() }

// ActiveCount returns the number of jobs currently executing.
func (p *Pool) ActiveCount() int64 { return p.shared.activeCount.Load() }

// MaxCount returns the configured worker count.
func (p *Pool) MaxCount() int64 { return p.shared.maxThreadCount.Load() }

// PanicCount returns the number of worker panics recovered so far.
func (p *Pool) PanicCount() int64 { return p.shared.panicCount.Load() }

// Join blocks until has_work() becomes false, or ForceShutdown is
// invoked concurrently. It has a non-blocking fast path when the
// pool is already idle.
func (p *Pool) Join() {
	if !p.shared.hasWork() {
		return
	}

	generation := p.shared.joinGeneration.Load()

	p.shared.emptyMu.Lock()
	defer p.shared.emptyMu.Unlock()

	for generation == p.shared.joinGeneration.Load() && p.shared.hasWork() {
		if p.shared.forceShutdown.Load() {
			logger.WithComponent("pool").Debug().Msg("force shutdown activated, exiting join")
			return
		}
		p.shared.emptyCond.Wait()
	}

	p.shared.joinGeneration.CompareAndSwap(generation, generation+1)
}

// ForceShutdown unblocks any in-progress Join immediately, without
// waiting for in-flight jobs to finish.
func (p *Pool) ForceShutdown() {
	p.shared.forceShutdown.Store(true)
	p.shared.emptyMu.Lock()
	p.shared.emptyCond.Broadcast()
	p.shared.emptyMu.Unlock()
}

// Close stops accepting new jobs. Existing queued and in-flight jobs
// still run to completion and are observable via Join.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shared.closed {
		return
	}
	p.shared.closed = true
	close(p.shared.jobs)
}

// respawn launches a replacement worker with the same id after a panic.
func (p *Pool) respawn(id int) {
	p.mu.Lock()
	closed := p.shared.closed
	p.mu.Unlock()
	if closed {
		return
	}
	spawnWorker(id, p.shared, p.respawn)
}
