package pool

import (
	"strconv"

	"github.com/protot/scheduler/internal/logger"
)

// spawnWorker starts goroutine id's loop. respawn is called exactly
// once, with the same id, if the loop exits because of a panic —
// this is the sentinel behavior of spec §4.3: a fresh worker takes
// the panicking one's place so max_thread_count workers survive.
func spawnWorker(id int, sd *sharedData, respawn func(int)) {
	go runWorker(id, sd, respawn)
}

func runWorker(id int, sd *sharedData, respawn func(int)) {
	log := logger.WithWorker(strconv.Itoa(id))

	defer func() {
		if r := recover(); r != nil {
			// A job was active when the panic unwound past it; the
			// normal post-execution decrement below never ran.
			sd.activeCount.Add(-1)
			sd.panicCount.Add(1)
			sd.notifyEmptyIfIdle()
			sd.reportGauges()
			if sd.metrics != nil {
				sd.metrics.RecordPoolPanic()
			}
			log.Error().Interface("panic", r).Msg("worker panicked, respawning")
			respawn(id)
		}
	}()

	log.Debug().Msg("worker starting")

	for {
		active := sd.activeCount.Load()
		max := sd.maxThreadCount.Load()
		if active >= max {
			log.Debug().Msg("pool shrunk, worker exiting")
			return
		}

		job, ok := <-sd.jobs
		if !ok {
			log.Debug().Msg("job queue closed, worker exiting")
			return
		}

		sd.activeCount.Add(1)
		sd.queuedCount.Add(-1)
		sd.reportGauges()

		job.Run(job.Request)

		sd.activeCount.Add(-1)
		sd.notifyEmptyIfIdle()
		sd.reportGauges()
	}
}
