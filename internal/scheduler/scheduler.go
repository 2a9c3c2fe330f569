// Package scheduler runs the periodic limit reset sweeps.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"cardledger/internal/services/limit"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSweepTimeout bounds one sweep run.
const DefaultSweepTimeout = 30 * time.Minute

// Resetter is implemented by the limit service.
type Resetter interface {
	ResetDailyLimits(ctx context.Context) (limit.SweepResult, error)
	ResetMonthlyLimits(ctx context.Context) (limit.SweepResult, error)
}

type Config struct {
	// DailySpec and MonthlySpec are six-field cron expressions (with seconds).
	DailySpec    string
	MonthlySpec  string
	SweepTimeout time.Duration
}

type Scheduler struct {
	cron     *cron.Cron
	resetter Resetter
	timeout  time.Duration
	log      logrus.FieldLogger
}

// New registers both sweeps. A run that is still going when its next tick
// fires is skipped.
func New(resetter Resetter, cfg Config, log logrus.FieldLogger) (*Scheduler, error) {
	if resetter == nil {
		panic("resetter is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.SweepTimeout == 0 {
		cfg.SweepTimeout = DefaultSweepTimeout
	}

	cronLog := cron.PrintfLogger(log)
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		resetter: resetter,
		timeout:  cfg.SweepTimeout,
		log:      log,
	}

	if _, err := s.cron.AddFunc(cfg.DailySpec, func() { s.RunDaily(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid daily reset schedule %q: %w", cfg.DailySpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.MonthlySpec, func() { s.RunMonthly(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid monthly reset schedule %q: %w", cfg.MonthlySpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.log.Info("limit reset scheduler started")
	s.cron.Start()
}

// Stop prevents new runs and waits for a running sweep until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("limit reset scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunDaily runs the daily sweep now.
func (s *Scheduler) RunDaily(ctx context.Context) (limit.SweepResult, error) {
	return s.run(ctx, "daily", s.resetter.ResetDailyLimits)
}

// RunMonthly runs the monthly sweep now.
func (s *Scheduler) RunMonthly(ctx context.Context) (limit.SweepResult, error) {
	return s.run(ctx, "monthly", s.resetter.ResetMonthlyLimits)
}

func (s *Scheduler) run(ctx context.Context, window string, sweep func(context.Context) (limit.SweepResult, error)) (limit.SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	log := s.log.WithField("window", window)
	log.Info("limit reset sweep started")

	res, err := sweep(ctx)
	log = log.WithFields(logrus.Fields{
		"scanned":  res.Scanned,
		"reset":    res.Reset,
		"failed":   res.Failed,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		log.WithError(err).Error("limit reset sweep finished with failures")
		return res, err
	}
	log.Info("limit reset sweep completed")
	return res, nil
}
