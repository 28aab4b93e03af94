package reconcile

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron     *cron.Cron
	rec      *Reconciler
	schedule string
}

// NewScheduler wraps the reconciler in a cron schedule (six-field
// expression with seconds, e.g. "0 0 3 * * *" for 3AM nightly).
func NewScheduler(rec *Reconciler, schedule string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		rec:      rec,
		schedule: schedule,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		n, err := s.rec.Run(context.Background())
		if err != nil {
			log.Printf("[reconcile] pass failed: %v", err)
			return
		}
		log.Printf("[reconcile] pass complete, %d profile(s) repaired", n)
	})
	if err != nil {
		return err
	}

	log.Printf("[reconcile] scheduler started (schedule %q)", s.schedule)
	s.cron.Start()
	return nil
}

// Stop halts the cron loop; a running pass finishes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
