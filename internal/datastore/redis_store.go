package datastore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/protoerr"
)

const (
	executionKeyPrefix = "protot:execution:"
	byWorkerSetPrefix  = "protot:executions:worker:"
	byStateSetPrefix   = "protot:executions:state:"
)

// RedisStore persists task executions in Redis: one JSON string value
// per execution id, with secondary per-worker and per-state sets of
// execution ids for the two lookup operations the dispatch core needs. Keying
// and set-membership style is grounded on the heartbeat/active-worker
// bookkeeping pattern used elsewhere in this codebase's ancestry.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-configured *redis.Client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) AddTaskExecution(ctx context.Context, exec TaskExecution) error {
	if exec.CreatedAt.IsZero() {
		exec.CreatedAt = time.Now()
	}
	exec.UpdatedAt = exec.CreatedAt

	data, err := json.Marshal(exec)
	if err != nil {
		return protoerr.Wrap(protoerr.KindDataLayer, "marshal task execution", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, executionKey(exec.ExecutionID), data, 0)
	pipe.SAdd(ctx, byWorkerSetKey(exec.WorkerID), exec.ExecutionID)
	pipe.SAdd(ctx, byStateSetKey(exec.State), exec.ExecutionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return protoerr.Wrap(protoerr.KindDataLayer, "write task execution", err)
	}
	return nil
}

func (r *RedisStore) GetTaskExecutionsByWorker(ctx context.Context, workerID string) ([]TaskExecution, error) {
	ids, err := r.client.SMembers(ctx, byWorkerSetKey(workerID)).Result()
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindDataLayer, "list executions by worker", err)
	}
	return r.loadAll(ctx, ids)
}

func (r *RedisStore) GetTaskExecutionsByState(ctx context.Context, state schedulerpb.TaskState) ([]TaskExecution, error) {
	ids, err := r.client.SMembers(ctx, byStateSetKey(state)).Result()
	if err != nil {
		return nil, protoerr.Wrap(protoerr.KindDataLayer, "list executions by state", err)
	}
	return r.loadAll(ctx, ids)
}

func (r *RedisStore) UpdateTaskExecutionState(ctx context.Context, executionID string, state schedulerpb.TaskState) error {
	data, err := r.client.Get(ctx, executionKey(executionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return protoerr.New(protoerr.KindDataLayer, "no task execution recorded for execution_id "+executionID)
		}
		return protoerr.Wrap(protoerr.KindDataLayer, "read task execution", err)
	}

	var exec TaskExecution
	if err := json.Unmarshal(data, &exec); err != nil {
		return protoerr.Wrap(protoerr.KindDataLayer, "unmarshal task execution", err)
	}

	oldState := exec.State
	exec.State = state
	exec.UpdatedAt = time.Now()

	updated, err := json.Marshal(exec)
	if err != nil {
		return protoerr.Wrap(protoerr.KindDataLayer, "marshal task execution", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, executionKey(executionID), updated, 0)
	pipe.SRem(ctx, byStateSetKey(oldState), executionID)
	pipe.SAdd(ctx, byStateSetKey(state), executionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return protoerr.Wrap(protoerr.KindDataLayer, "update task execution state", err)
	}
	return nil
}

func (r *RedisStore) loadAll(ctx context.Context, ids []string) ([]TaskExecution, error) {
	out := make([]TaskExecution, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.Get(ctx, executionKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, protoerr.Wrap(protoerr.KindDataLayer, "read task execution", err)
		}
		var exec TaskExecution
		if err := json.Unmarshal(data, &exec); err != nil {
			continue
		}
		out = append(out, exec)
	}
	return out, nil
}

func executionKey(executionID string) string {
	return executionKeyPrefix + executionID
}

func byWorkerSetKey(workerID string) string {
	return byWorkerSetPrefix + workerID
}

func byStateSetKey(state schedulerpb.TaskState) string {
	return byStateSetPrefix + strconv.Itoa(int(state))
}
