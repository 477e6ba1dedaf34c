package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule runs the backfill hourly
const DefaultSchedule = "@every 1h"

// Scheduler wraps robfig/cron and runs EmbedPending on a fixed spec
type Scheduler struct {
	cron    *cron.Cron
	indexer *Indexer
	spec    string
	opts    Options
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler for the given cron spec. An overlapping
// tick is skipped rather than queued.
func NewScheduler(idx *Indexer, spec string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spec == "" {
		spec = DefaultSchedule
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		indexer: idx,
		spec:    spec,
		opts:    Options{Jobs: true, Seekers: true},
		logger:  logger,
	}
}

// Start registers the backfill and starts the cron loop. With runNow the
// first backfill starts immediately in the background.
func (s *Scheduler) Start(ctx context.Context, runNow bool) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("embedding backfill scheduled", zap.String("spec", s.spec))

	if runNow {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(ctx)
		}()
	}
	return nil
}

// Stop halts the cron loop and waits for running backfills to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("embedding backfill stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	stats, err := s.indexer.EmbedPending(ctx, s.opts)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("embedding run already in progress, skipping tick")
	case err != nil:
		s.logger.Warn("scheduled embedding run failed", zap.Error(err))
	default:
		s.logger.Debug("scheduled embedding run done",
			zap.String("run_id", stats.RunID),
			zap.Int("failed", stats.Failed))
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
