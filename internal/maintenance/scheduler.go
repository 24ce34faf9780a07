package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/scilit/paperbase/internal/config"
	"github.com/scilit/paperbase/internal/database"
)

// jobTimeout bounds each maintenance pass so a stuck job cannot hold a pool
// connection indefinitely.
const jobTimeout = 5 * time.Minute

// Scheduler runs periodic store maintenance: planner stat refresh via PRAGMA
// optimize and WAL checkpointing. Schedules come from the immutable config;
// an empty schedule disables that job.
type Scheduler struct {
	mgr  *database.Manager
	cron *cron.Cron

	mu      sync.Mutex
	running bool
}

// New creates a maintenance scheduler for mgr.
func New(mgr *database.Manager) *Scheduler {
	return &Scheduler{
		mgr:  mgr,
		cron: cron.New(),
	}
}

// Start registers the configured jobs and starts the cron loop. Returns true
// if at least one job was scheduled.
func (s *Scheduler) Start(cfg config.Config) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return true, nil
	}

	scheduled := 0

	if cfg.OptimizeSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.OptimizeSchedule, func() {
			s.runJob("optimize", s.mgr.Optimize)
		}); err != nil {
			return false, err
		}
		scheduled++
	}

	if cfg.CheckpointSchedule != "" && cfg.EnableWAL {
		if _, err := s.cron.AddFunc(cfg.CheckpointSchedule, func() {
			s.runJob("checkpoint", s.mgr.Checkpoint)
		}); err != nil {
			return false, err
		}
		scheduled++
	}

	if scheduled == 0 {
		return false, nil
	}

	s.cron.Start()
	s.running = true
	log.Info().Int("jobs", scheduled).Msg("Maintenance scheduler started")
	return true, nil
}

// Stop halts the cron loop and waits for any in-flight job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	log.Debug().Msg("Maintenance scheduler stopped")
}

func (s *Scheduler) runJob(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("job", name).Msg("Maintenance job failed")
		return
	}
	log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("Maintenance job complete")
}
