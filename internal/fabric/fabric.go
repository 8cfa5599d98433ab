// Package fabric implements the Remote Worker Fabric: bidirectional
// streaming sessions with remote workers, registration, heartbeat
// liveness tracking, task assignment, and cooperative cancellation.
package fabric

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/balancer"
	"github.com/protot/scheduler/internal/logger"
	"github.com/protot/scheduler/internal/metrics"
	"github.com/protot/scheduler/internal/protoerr"
	"github.com/rs/zerolog"
)

// CompletionHandler is invoked for every TaskCompletion a worker
// reports, along with the id of the worker that reported it. The
// dispatch core wires this to the data store's UpdateTaskExecutionState.
type CompletionHandler func(workerID string, completion *schedulerpb.TaskCompletion)

// Config bundles the fabric's startup-time tunables (spec §6.2).
type Config struct {
	MagicCookie       string
	MaxQueueHint      int
	HeartbeatInterval time.Duration
	EvictionThreshold time.Duration
	OnCompletion      CompletionHandler
	Metrics           *metrics.Collector
}

// Fabric owns the registry of connected workers and their heartbeat
// timestamps, each behind its own lock, plus a load balancer used to
// pick a worker for every distribute_task call.
type Fabric struct {
	cfg Config

	registryMu sync.RWMutex
	workers    map[string]*WorkerRecord

	heartbeatMu sync.Mutex
	heartbeats  map[string]*heartbeatRecord

	balancerMu sync.Mutex
	balancer   balancer.LoadBalancer

	dispatchMu   sync.Mutex
	dispatchedAt map[string]time.Time
}

// New builds an empty Fabric ready to accept sessions.
func New(cfg Config) *Fabric {
	if cfg.MaxQueueHint <= 0 {
		cfg.MaxQueueHint = 100
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = time.Second
	}
	if cfg.EvictionThreshold <= 0 {
		cfg.EvictionThreshold = 3 * cfg.HeartbeatInterval
	}
	return &Fabric{
		cfg:          cfg,
		workers:      make(map[string]*WorkerRecord),
		heartbeats:   make(map[string]*heartbeatRecord),
		balancer:     balancer.NewRoundRobinBalancer(),
		dispatchedAt: make(map[string]time.Time),
	}
}

// DistributeTask is called by the Dispatch Core. It asks the balancer
// for an eligible worker id (filtered to workers that support
// taskName) and pushes the assignment onto that worker's outbound
// channel. It returns the id of the worker the task was handed to.
func (f *Fabric) DistributeTask(taskName string, req *schedulerpb.AssignTaskRequest) (string, error) {
	record, err := f.pickWorker(taskName)
	if err != nil {
		return "", err
	}

	select {
	case record.assignments <- req:
		if f.cfg.Metrics != nil {
			f.cfg.Metrics.RecordDispatch()
		}
		f.dispatchMu.Lock()
		f.dispatchedAt[req.ExecutionID] = time.Now()
		f.dispatchMu.Unlock()
		return record.WorkerID, nil
	default:
		return "", protoerr.New(protoerr.KindTaskExecution, "worker "+record.WorkerID+" assignment queue is full")
	}
}

// takeDispatchLatency returns how long executionID has been
// outstanding since DistributeTask, clearing its bookkeeping entry.
// It reports false if the execution id was never dispatched here.
func (f *Fabric) takeDispatchLatency(executionID string) (time.Duration, bool) {
	f.dispatchMu.Lock()
	defer f.dispatchMu.Unlock()
	start, ok := f.dispatchedAt[executionID]
	if !ok {
		return 0, false
	}
	delete(f.dispatchedAt, executionID)
	return time.Since(start), true
}

func (f *Fabric) pickWorker(taskName string) (*WorkerRecord, error) {
	f.registryMu.RLock()
	candidates := make([]string, 0, len(f.workers))
	byID := make(map[string]*WorkerRecord, len(f.workers))
	for id, rec := range f.workers {
		if rec.supports(taskName) {
			candidates = append(candidates, id)
			byID[id] = rec
		}
	}
	f.registryMu.RUnlock()

	sort.Strings(candidates)

	f.balancerMu.Lock()
	id, ok := f.balancer.SelectWorker(candidates)
	f.balancerMu.Unlock()

	if !ok {
		return nil, protoerr.New(protoerr.KindNoAvailableWorkers, "no available workers")
	}
	return byID[id], nil
}

// CancelAll sends the zero-size cancel signal to every registered
// worker, used during graceful shutdown.
func (f *Fabric) CancelAll() {
	f.registryMu.RLock()
	defer f.registryMu.RUnlock()
	for _, rec := range f.workers {
		select {
		case rec.cancel <- struct{}{}:
		default:
		}
	}
}

// WorkerCount reports the number of currently registered workers (metrics hook).
func (f *Fabric) WorkerCount() int {
	f.registryMu.RLock()
	defer f.registryMu.RUnlock()
	return len(f.workers)
}

func (f *Fabric) register(id string, supported []string) (*WorkerRecord, error) {
	f.registryMu.Lock()
	if _, exists := f.workers[id]; exists {
		f.registryMu.Unlock()
		return nil, protoerr.New(protoerr.KindTaskExecution, "duplicate worker_id "+id)
	}
	rec := newWorkerRecord(id, supported, f.cfg.MaxQueueHint)
	f.workers[id] = rec
	count := len(f.workers)
	f.registryMu.Unlock()

	f.heartbeatMu.Lock()
	f.heartbeats[id] = &heartbeatRecord{lastSeen: time.Now()}
	f.heartbeatMu.Unlock()

	if f.cfg.Metrics != nil {
		f.cfg.Metrics.SetFabricWorkers(count)
	}
	return rec, nil
}

func (f *Fabric) unregister(id string) {
	f.registryMu.Lock()
	delete(f.workers, id)
	count := len(f.workers)
	f.registryMu.Unlock()

	f.heartbeatMu.Lock()
	delete(f.heartbeats, id)
	f.heartbeatMu.Unlock()

	if f.cfg.Metrics != nil {
		f.cfg.Metrics.SetFabricWorkers(count)
	}
}

func (f *Fabric) touchHeartbeat(id string) {
	f.heartbeatMu.Lock()
	defer f.heartbeatMu.Unlock()
	if hb, ok := f.heartbeats[id]; ok {
		hb.lastSeen = time.Now()
		if f.cfg.Metrics != nil {
			f.cfg.Metrics.RecordFabricHeartbeat()
		}
	}
}

// RunLivenessMonitor blocks, periodically scanning the heartbeat map
// for workers that have gone silent past the eviction threshold and
// sending them the cancel signal. It returns when ctx is canceled.
func (f *Fabric) RunLivenessMonitor(ctx context.Context) {
	log := logger.WithComponent("fabric.liveness")
	ticker := time.NewTicker(f.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.evictStale(log)
		}
	}
}

func (f *Fabric) evictStale(log zerolog.Logger) {
	now := time.Now()

	f.heartbeatMu.Lock()
	stale := make([]string, 0)
	for id, hb := range f.heartbeats {
		if now.Sub(hb.lastSeen) > f.cfg.EvictionThreshold {
			stale = append(stale, id)
		}
	}
	f.heartbeatMu.Unlock()

	if len(stale) == 0 {
		return
	}

	f.registryMu.RLock()
	for _, id := range stale {
		if rec, ok := f.workers[id]; ok {
			select {
			case rec.cancel <- struct{}{}:
				log.Warn().Str("worker_id", id).Msg("evicting worker: heartbeat timeout")
				if f.cfg.Metrics != nil {
					f.cfg.Metrics.RecordFabricEviction()
				}
			default:
			}
		}
	}
	f.registryMu.RUnlock()
}
