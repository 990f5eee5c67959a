package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/notebook-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const backupTimeout = 2 * time.Minute

// Scheduler creates backups on a cron schedule.
type Scheduler struct {
	backupSvc services.BackupServiceProvider
	schedule  cron.Schedule
	interval  time.Duration
	now       func() time.Time
	next      time.Time
	ticker    *time.Ticker
	done      chan bool
	stopped   chan struct{}

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler for a standard five-field cron expression.
func NewScheduler(backupSvc services.BackupServiceProvider, expression string) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", expression, err)
	}
	s := &Scheduler{
		backupSvc: backupSvc,
		schedule:  schedule,
		interval:  time.Minute,
		now:       time.Now,
		done:      make(chan bool),
		stopped:   make(chan struct{}),
	}
	s.next = schedule.Next(s.now())
	return s, nil
}

// Run starts the scheduler's ticking loop. It blocks until Stop is called.
func (s *Scheduler) Run() {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	defer close(s.stopped)

	log.Info().Time("next_run", s.next).Msg("Starting backup scheduler...")
	s.ticker = time.NewTicker(s.interval)
	defer s.ticker.Stop()

	for {
		select {
		case <-s.done:
			log.Info().Msg("Stopping backup scheduler.")
			return
		case <-s.ticker.C:
			s.tick()
		}
	}
}

// Stop halts the scheduler. When Run is active, Stop waits for an in-flight
// backup to finish before returning.
func (s *Scheduler) Stop() {
	close(s.done)

	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		<-s.stopped
	}
}

// tick runs a backup once the next scheduled time has passed.
func (s *Scheduler) tick() {
	now := s.now()
	if now.Before(s.next) {
		return
	}
	s.next = s.schedule.Next(now)

	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	backup, err := s.backupSvc.CreateBackup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Scheduled backup failed")
		return
	}
	log.Info().Str("backup", backup.Name).Time("next_run", s.next).Msg("Scheduler: Scheduled backup completed")
}
