package graph

import (
	"time"

	"github.com/alitto/pond"

	"arbfind/internal/obs"
)

// NewCyclePool builds a bounded worker pool for concurrent cycle search,
// the same alitto/pond wrapping the reference architecture's
// pkg/concurrency/pool.go applies to its own background pools.
func NewCyclePool(maxWorkers, maxCapacity int, logger obs.Logger) *pond.WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	if maxCapacity <= 0 {
		maxCapacity = 256
	}
	return pond.New(
		maxWorkers,
		maxCapacity,
		pond.MinWorkers(1),
		pond.IdleTimeout(60*time.Second),
		pond.Strategy(pond.Balanced()),
		pond.PanicHandler(func(p interface{}) {
			logger.Error("cycle search worker panic recovered", "panic", p)
		}),
	)
}

// PoolStats is the supplemented worker-pool statistics (SPEC_FULL.md
// supplement #2), mirroring the reference architecture's WorkerPool.Stats().
// The scanner does not read it; scan results carry no pool counters.
type PoolStats struct {
	RunningWorkers  int
	SubmittedTasks  uint64
	SuccessfulTasks uint64
	FailedTasks     uint64
}

// Stats reads the current counters off a pond pool.
func Stats(p *pond.WorkerPool) PoolStats {
	return PoolStats{
		RunningWorkers:  p.RunningWorkers(),
		SubmittedTasks:  p.SubmittedTasks(),
		SuccessfulTasks: p.SuccessfulTasks(),
		FailedTasks:     p.FailedTasks(),
	}
}
