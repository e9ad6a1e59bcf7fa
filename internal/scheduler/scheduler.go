// Package scheduler runs the background token refresh sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one sweep. Errors are logged, never fatal.
type Job func(ctx context.Context) error

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	inner *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.inner.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs a Job on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	timeout time.Duration
	logger  *zap.Logger
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 10m") and prepares job. Each run gets a context bounded by timeout.
func New(spec string, job Job, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	adapter := cronLogger{logger.Sugar()}
	c := cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)

	s := &Scheduler{
		cron:    c,
		job:     job,
		timeout: timeout,
		logger:  logger,
	}

	if _, err := c.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	return s, nil
}

// RunOnce executes the job synchronously.
func (s *Scheduler) RunOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Warn("refresh sweep failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return
	}
	s.logger.Debug("refresh sweep finished", zap.Duration("took", time.Since(start)))
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
