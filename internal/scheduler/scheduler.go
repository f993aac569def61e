// Package scheduler drives the Synchronizer in a single-threaded cooperative
// loop over the configured worlds, writing each world's result to
// internal/state between ticks.
package scheduler

import (
	"context"
	"time"

	"github.com/lcgerke/wasync/internal/objectsource"
	"github.com/lcgerke/wasync/internal/state"
	"github.com/lcgerke/wasync/internal/sync"
)

// Scheduler iterates the configured worlds, drives the Synchronizer once per
// world per tick, and sleeps PingInterval between ticks until QuitAt.
type Scheduler struct {
	Synchronizer *sync.Synchronizer
	StateManager *state.Manager
	Worlds       []sync.WorldConfig
	PingInterval time.Duration
	QuitAt       time.Time

	log *objectsource.Logger
}

// New builds a Scheduler. pingInterval defaults to 60s when zero.
func New(synchronizer *sync.Synchronizer, stateManager *state.Manager, worlds []sync.WorldConfig, pingInterval time.Duration, quitAt time.Time) *Scheduler {
	if pingInterval <= 0 {
		pingInterval = 60 * time.Second
	}
	return &Scheduler{
		Synchronizer: synchronizer,
		StateManager: stateManager,
		Worlds:       worlds,
		PingInterval: pingInterval,
		QuitAt:       quitAt,
		log:          objectsource.NewLogger(),
	}
}

// Run loops until the context is cancelled (the signal handler installed by
// the run command) or the wall clock reaches QuitAt. Cancellation is checked
// between worlds, never mid-tick. It returns nil on a clean
// terminal-deadline exit.
func (s *Scheduler) Run(ctx context.Context) error {
	for time.Now().Before(s.QuitAt) {
		if err := ctx.Err(); err != nil {
			s.log.Infof("scheduler stopping: %v", err)
			return nil
		}

		for _, world := range s.Worlds {
			if err := ctx.Err(); err != nil {
				s.log.Infof("scheduler stopping mid-cycle: %v", err)
				return nil
			}
			s.tick(ctx, world)
		}

		select {
		case <-ctx.Done():
			s.log.Infof("scheduler stopping: %v", ctx.Err())
			return nil
		case <-time.After(s.PingInterval):
		}
	}
	s.log.Infof("scheduler reached quit time, exiting cleanly")
	return nil
}

func (s *Scheduler) tick(ctx context.Context, world sync.WorldConfig) {
	if s.StateManager != nil {
		_ = s.StateManager.MarkPending(world.URL, world.URL)
	}

	report, err := s.Synchronizer.Tick(ctx, world)
	if err != nil {
		s.log.Errorf("tick for world %s failed: %v", world.URL, err)
		if s.StateManager != nil {
			_ = s.StateManager.MarkError(world.URL, world.URL, err)
		}
		return
	}

	if s.StateManager != nil {
		_ = s.StateManager.MarkSynced(world.URL, world.URL)
	}
	if report.AnyChanges() {
		s.log.Infof("world %s: file_index_updated=%v kinds=%d", world.URL, report.FileIndexUpdated, len(report.Kinds))
	} else {
		s.log.Debugf("world %s: no changes this tick", world.URL)
	}
}
