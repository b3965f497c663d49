package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Syncer brings the local clone up to date with the remote.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Scheduler runs the periodic repository sync.
type Scheduler struct {
	cron    *cron.Cron
	syncer  Syncer
	timeout time.Duration
}

func NewScheduler(syncer Syncer) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		syncer:  syncer,
		timeout: 2 * time.Minute,
	}
}

// Start registers the sync job on schedule (six fields, seconds first) and
// starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunSync); err != nil {
		return fmt.Errorf("schedule git sync %q: %w", schedule, err)
	}

	log.Printf("Cron scheduler started (git sync: %s)", schedule)
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunSync performs one sync and logs the outcome.
func (s *Scheduler) RunSync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.syncer.Sync(ctx); err != nil {
		log.Printf("[warn] operation=git_sync error=%v", err)
		return
	}
	log.Printf("[info] operation=git_sync took=%s", time.Since(start))
}
