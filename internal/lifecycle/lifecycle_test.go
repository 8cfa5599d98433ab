package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/protot/scheduler/api/schedulerpb"
	"github.com/protot/scheduler/internal/fabric"
	"github.com/protot/scheduler/internal/pool"
	"github.com/protot/scheduler/internal/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGracefulShutdownDrainsInFlightWork(t *testing.T) {
	reg := registry.New()
	release := make(chan struct{})
	var ran atomic.Int64
	reg.Register("slow", registry.TaskExecutorFunc(func(ctx context.Context, req *schedulerpb.ExecuteRequest) error {
		<-release
		ran.Add(1)
		return nil
	}))
	p, err := pool.NewBuilder(1).Registry(reg).Build()
	require.NoError(t, err)

	require.NoError(t, p.Submit(&schedulerpb.ExecuteRequest{Task: &schedulerpb.Task{ID: "slow"}}))

	r := &Runner{Pool: p, GracefulTimeout: time.Second}

	done := make(chan bool, 1)
	go func() {
		done <- r.gracefulShutdown(zerolog.Nop())
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)

	var forced bool
	select {
	case forced = <-done:
	case <-time.After(time.Second):
		t.Fatal("graceful shutdown did not complete")
	}
	assert.Equal(t, int64(1), ran.Load())
	assert.False(t, forced, "drain completed on its own, should not report a forced timeout")
}

func TestGracefulShutdownForcesAfterTimeout(t *testing.T) {
	reg := registry.New()
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	reg.Register("stuck", registry.TaskExecutorFunc(func(ctx context.Context, req *schedulerpb.ExecuteRequest) error {
		<-block
		return nil
	}))
	p, err := pool.NewBuilder(1).Registry(reg).Build()
	require.NoError(t, err)
	require.NoError(t, p.Submit(&schedulerpb.ExecuteRequest{Task: &schedulerpb.Task{ID: "stuck"}}))

	r := &Runner{Pool: p, GracefulTimeout: 20 * time.Millisecond}

	done := make(chan bool, 1)
	go func() {
		done <- r.gracefulShutdown(zerolog.Nop())
	}()

	var forced bool
	select {
	case forced = <-done:
	case <-time.After(time.Second):
		t.Fatal("graceful shutdown should have forced through after timeout")
	}
	assert.True(t, forced, "timeout expiry should report forced=true so Run() exits 1")
}

func TestGracefulShutdownWithEmptyFabricAndNoPool(t *testing.T) {
	fab := fabric.New(fabric.Config{MaxQueueHint: 10})
	r := &Runner{Fabric: fab, GracefulTimeout: time.Second}
	// CancelAll on an empty fabric is a no-op; this just proves the
	// nil-safety contract for a Runner that owns no pool.
	r.gracefulShutdown(zerolog.Nop())
}
