package reconcile

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"tutorhub-backend/internal/repository"
)

const rolloverJobName = "monthly_rollover"

// RolloverJob runs on day 1 of each month at midnight: every teacher's
// current-period hours move to the previous-period column and reset, and
// every student's adjustment allowance returns to the configured quota.
//
// A (job, period) marker row makes the rollover exactly-once per calendar
// month: if the trigger double-fires or the process restarts across the
// boundary, the second attempt finds the marker and does nothing.
type RolloverJob struct {
	tx      repository.TransactionManager
	quota   int
	metrics *Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewRolloverJob wires the rollover job. quota is the monthly adjustment
// allowance each student is reset to.
func NewRolloverJob(tx repository.TransactionManager, quota int, metrics *Metrics, logger *zap.Logger) *RolloverJob {
	if quota <= 0 {
		quota = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RolloverJob{
		tx:      tx,
		quota:   quota,
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer("tutorhub-backend/reconcile"),
		now:     time.Now,
	}
}

// Run performs the rollover for the period the clock has just entered.
// The marker write, the hour rollover, and the allowance reset share one
// transaction, so a crash cannot mark a period done without applying it.
func (j *RolloverJob) Run(ctx context.Context) error {
	started := j.now()
	period := started.Format("2006-01")
	ctx, span := j.tracer.Start(ctx, "job.rollover",
		trace.WithAttributes(attribute.String("rollover.period", period)))
	defer span.End()

	err := j.tx.InTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		fresh, err := tx.JobRuns.TryMark(ctx, rolloverJobName, period)
		if err != nil {
			return err
		}
		if !fresh {
			j.logger.Info("rollover already applied for period, skipping",
				zap.String("period", period))
			return nil
		}

		accounts, err := tx.Teachers.RolloverHours(ctx)
		if err != nil {
			return err
		}
		students, err := tx.Students.ResetAdjustmentAllowance(ctx, j.quota)
		if err != nil {
			return err
		}

		j.logger.Info("monthly rollover applied",
			zap.String("period", period),
			zap.Int64("hour_accounts", accounts),
			zap.Int64("allowances_reset", students),
			zap.Int("quota", j.quota),
		)
		return nil
	})

	outcome := "success"
	if err != nil {
		outcome = "error"
		j.logger.Error("monthly rollover failed", zap.String("period", period), zap.Error(err))
	}
	j.metrics.jobRun("rollover", outcome, j.now().Sub(started))
	return err
}
