package reconcile

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cron triggers are fixed: the schedule-completion job fires daily at
// midnight, the rollover fires on day 1 of each month at midnight. There
// is no dynamic reconfiguration.
const (
	completionSpec = "0 0 * * *"
	rolloverSpec   = "0 0 1 * *"
)

// Scheduler owns the wall-clock triggers for the reconciliation jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler registers both jobs on their fixed cron expressions.
func NewScheduler(completion *CompletionJob, rollover *RolloverJob, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New()

	if _, err := c.AddFunc(completionSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := completion.Run(ctx); err != nil {
			logger.Error("completion job run failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(rolloverSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := rollover.Run(ctx); err != nil {
			logger.Error("rollover job run failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins firing triggers in the background.
func (s *Scheduler) Start() {
	s.logger.Info("reconciliation scheduler starting",
		zap.String("completion", completionSpec),
		zap.String("rollover", rolloverSpec),
	)
	s.cron.Start()
}

// Stop halts the triggers and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reconciliation scheduler stopped")
}
