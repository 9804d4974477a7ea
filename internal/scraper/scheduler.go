package scraper

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// JobRunner is what the scheduler drives; the service layer implements it.
type JobRunner interface {
	ScrapeDueSources(ctx context.Context) error
	RebuildIndex(ctx context.Context) error
	CleanupOldArticles(ctx context.Context, olderThan time.Duration) (int, error)
}

// Job cadence. Sources carry their own per-source scrape frequency; the
// five minute tick only checks which ones are due.
const (
	scrapeSpec  = "@every 5m"
	rebuildSpec = "@hourly"
	cleanupSpec = "@daily"

	cleanupAge = 30 * 24 * time.Hour
	jobTimeout = 10 * time.Minute
)

// Scheduler runs the periodic scraping, index rebuild, and cleanup jobs.
type Scheduler struct {
	cron   *cron.Cron
	runner JobRunner
}

func NewScheduler(runner JobRunner) *Scheduler {
	return &Scheduler{cron: cron.New(), runner: runner}
}

// Start registers the jobs and starts the cron loop. Job failures are
// logged, never fatal.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(scrapeSpec, s.runScrape); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(rebuildSpec, s.runRebuild); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cleanupSpec, s.runCleanup); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("scheduler: started (scrape %s, rebuild %s, cleanup %s)", scrapeSpec, rebuildSpec, cleanupSpec)
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runScrape() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.runner.ScrapeDueSources(ctx); err != nil {
		log.Printf("scheduler: scrape due sources: %v", err)
	}
}

func (s *Scheduler) runRebuild() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.runner.RebuildIndex(ctx); err != nil {
		log.Printf("scheduler: rebuild index: %v", err)
	}
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.runner.CleanupOldArticles(ctx, cleanupAge)
	if err != nil {
		log.Printf("scheduler: cleanup: %v", err)
		return
	}
	if n > 0 {
		log.Printf("scheduler: cleaned up %d stale articles", n)
	}
}
