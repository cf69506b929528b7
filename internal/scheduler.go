package internal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type subjectRunner interface {
	Run(ctx context.Context, puuid string) IngestionReport
}

type sweepRunner interface {
	Run(ctx context.Context) IngestionReport
}

type subjectLister interface {
	ListTrackedSummoners(ctx context.Context) ([]string, error)
}

// SyncScheduler is the long-lived control loop. Every interval it sweeps
// the match pipeline over all tracked subjects, one at a time so the shared
// rate budget stays predictable. Profile refresh and catalog refresh are
// expensive and slow-moving, so they only run on every Kth iteration.
// The loop has no terminal state; cancelling the context is the only stop.
type SyncScheduler struct {
	matches   subjectRunner
	summoners sweepRunner
	catalogs  sweepRunner
	subjects  subjectLister
	publisher EventPublisher
	logger    *Logger

	region       string
	interval     time.Duration
	cadence      uint64
	startupDelay time.Duration

	mu         sync.Mutex
	iteration  uint64
	lastReport *SyncReport
}

func NewSyncScheduler(cfg *Config, matches subjectRunner, summoners, catalogs sweepRunner, subjects subjectLister, publisher EventPublisher, logger *Logger) *SyncScheduler {
	return &SyncScheduler{
		matches:      matches,
		summoners:    summoners,
		catalogs:     catalogs,
		subjects:     subjects,
		publisher:    publisher,
		logger:       logger,
		region:       cfg.RiotRegion,
		interval:     cfg.SyncInterval,
		cadence:      uint64(cfg.SyncRefreshCadence),
		startupDelay: cfg.SyncStartupDelay,
	}
}

// Run blocks until ctx is cancelled.
func (s *SyncScheduler) Run(ctx context.Context) {
	if s.startupDelay > 0 {
		if !sleepCtx(ctx, s.startupDelay) {
			return
		}
	}

	s.logger.Info("sync_loop_started").
		Component("scheduler").
		Operation("run").
		Meta("interval", s.interval.String()).
		Meta("refresh_cadence", s.cadence).
		Log()

	for {
		if ctx.Err() != nil {
			s.logger.Info("sync_loop_stopped").
				Component("scheduler").
				Operation("run").
				Log()
			return
		}

		s.runIteration(ctx)

		s.mu.Lock()
		s.iteration++
		s.mu.Unlock()

		if !sleepCtx(ctx, s.interval) {
			s.logger.Info("sync_loop_stopped").
				Component("scheduler").
				Operation("run").
				Log()
			return
		}
	}
}

func (s *SyncScheduler) runIteration(ctx context.Context) {
	iteration := s.Iteration()
	started := time.Now()
	refresh := iteration%s.cadence == 0

	s.logger.Info("sync_iteration_started").
		Component("scheduler").
		Operation("iteration").
		Iteration(iteration).
		Meta("refresh", refresh).
		Log()

	if refresh {
		s.runSweep(ctx, "catalog_pipeline", s.catalogs)
		s.runSweep(ctx, "summoner_pipeline", s.summoners)
	}

	subjects, err := s.subjects.ListTrackedSummoners(ctx)
	if err != nil {
		s.logger.Error("subject_listing_failed").
			Component("scheduler").
			Operation("iteration").
			Iteration(iteration).
			Err(err).
			Log()
	}

	var total IngestionReport
	for _, puuid := range subjects {
		if ctx.Err() != nil {
			break
		}
		total.Merge(s.runSubject(ctx, puuid))
	}

	report := SyncReport{
		ReportID:   uuid.New().String(),
		Iteration:  iteration,
		Region:     s.region,
		Subjects:   len(subjects),
		Inserted:   total.Inserted,
		Failed:     total.Failed,
		Refreshed:  refresh,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.lastReport = &report
	s.mu.Unlock()

	if s.publisher != nil {
		if err := s.publisher.PublishSyncReport(report); err != nil {
			s.logger.Warn("sync_report_publish_failed").
				Component("scheduler").
				Operation("publish_report").
				Iteration(iteration).
				Err(err).
				Log()
		}
	}

	s.logger.Info("sync_iteration_finished").
		Component("scheduler").
		Operation("iteration").
		Iteration(iteration).
		Duration(time.Since(started)).
		Meta("subjects", len(subjects)).
		Meta("inserted", total.Inserted).
		Meta("failed", total.Failed).
		Log()
}

// runSubject isolates one subject's run: a panic is logged and the sweep
// moves on to the next subject.
func (s *SyncScheduler) runSubject(ctx context.Context, puuid string) (report IngestionReport) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subject_run_panicked").
				Component("scheduler").
				Operation("run_subject").
				Subject(puuid, s.region).
				Meta("panic", r).
				Log()
		}
	}()

	return s.matches.Run(ctx, puuid)
}

func (s *SyncScheduler) runSweep(ctx context.Context, name string, runner sweepRunner) (report IngestionReport) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pipeline_run_panicked").
				Component("scheduler").
				Operation("run_sweep").
				Meta("pipeline", name).
				Meta("panic", r).
				Log()
		}
	}()

	return runner.Run(ctx)
}

func (s *SyncScheduler) Iteration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

func (s *SyncScheduler) LastReport() *SyncReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReport == nil {
		return nil
	}
	report := *s.lastReport
	return &report
}

// sleepCtx sleeps for d, returning false if the context fired first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
