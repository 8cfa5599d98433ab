// Package lifecycle sequences process startup and shutdown: it owns
// the signal handling that turns the first SIGINT/SIGTERM into a
// bounded graceful drain, and a second signal into an immediate exit.
package lifecycle

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/protot/scheduler/internal/fabric"
	"github.com/protot/scheduler/internal/logger"
	"github.com/protot/scheduler/internal/pool"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// Runner coordinates the graceful shutdown of whichever components a
// given node type owns. Any field may be nil for a node type that
// does not run it (e.g. a Worker node has no pool or fabric).
type Runner struct {
	GRPCServer      *grpc.Server
	Pool            *pool.Pool
	Fabric          *fabric.Fabric
	GracefulTimeout time.Duration
}

// Run blocks until an OS signal arrives, then drives the shutdown
// sequence: the first SIGINT/SIGTERM starts a graceful drain bounded
// by GracefulTimeout; a second signal before the drain finishes exits
// the process immediately with status 1, for an operator who doesn't
// want to wait out the grace period.
func (r *Runner) Run() {
	log := logger.WithComponent("lifecycle")

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutdown signal received, starting graceful drain")

	forceExit := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			log.Warn().Str("signal", sig.String()).Msg("second shutdown signal received, forcing exit")
			os.Exit(1)
		case <-forceExit:
		}
	}()

	forced := r.gracefulShutdown(log)
	close(forceExit)

	// spec.md §4.7: when graceful_timeout fires before the pool
	// drains, the process terminates with exit code 1 once shutdown
	// finishes — distinct from the second-signal path above, which
	// exits immediately without waiting for the drain/stop sequence.
	if forced {
		os.Exit(1)
	}
}

// gracefulShutdown mirrors the teacher's Controller.Stop ordering:
// stop accepting new work first, then drain what's in flight, then
// tear down the transport, each step logged and bounded where it can
// block indefinitely. It reports whether GracefulTimeout fired before
// the pool drained on its own.
func (r *Runner) gracefulShutdown(log zerolog.Logger) bool {
	if r.Fabric != nil {
		log.Info().Msg("canceling remote worker sessions")
		r.Fabric.CancelAll()
	}

	timedOut := false

	if r.Pool != nil {
		log.Info().Msg("closing job queue, draining in-flight work")
		r.Pool.Close()

		drained := make(chan struct{})
		go func() {
			r.Pool.Join()
			close(drained)
		}()

		timeout := r.GracefulTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}

		select {
		case <-drained:
			log.Info().Msg("pool drained cleanly")
		case <-time.After(timeout):
			log.Warn().Dur("timeout", timeout).Msg("graceful timeout exceeded, forcing pool shutdown")
			r.Pool.ForceShutdown()
			<-drained
			timedOut = true
		}
	}

	if r.GRPCServer != nil {
		log.Info().Msg("stopping gRPC server")
		r.GRPCServer.GracefulStop()
	}

	log.Info().Msg("shutdown complete")
	return timedOut
}
