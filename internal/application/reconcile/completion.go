// Package reconcile implements the scheduled reconciliation engine: the
// daily schedule-completion job with hour accrual, and the monthly
// rollover job.
package reconcile

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"tutorhub-backend/internal/domain"
	"tutorhub-backend/internal/repository"
)

// EventPublisher is the slice of the change-event bus the jobs need.
type EventPublisher interface {
	Publish(event domain.ChangeEvent)
}

// CompletionStats summarizes one completion run.
type CompletionStats struct {
	Examined      int
	Completed     int
	AlreadyDone   int
	LedgerEntries int
	Failed        int
}

// CompletionJob transitions time-expired schedules to completed, advances
// their enrollments, and accrues the teacher-hour ledger. It runs daily at
// midnight and is safe to run concurrently with itself or with online
// cancellations: every transition is guarded by a conditional update.
type CompletionJob struct {
	schedules repository.ScheduleRepository
	tx        repository.TransactionManager
	bus       EventPublisher
	metrics   *Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewCompletionJob wires the completion job.
func NewCompletionJob(schedules repository.ScheduleRepository, tx repository.TransactionManager, bus EventPublisher, metrics *Metrics, logger *zap.Logger) *CompletionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionJob{
		schedules: schedules,
		tx:        tx,
		bus:       bus,
		metrics:   metrics,
		logger:    logger,
		tracer:    otel.Tracer("tutorhub-backend/reconcile"),
		now:       time.Now,
	}
}

// Run executes one batch. Records are settled independently: one bad record
// is skipped and logged, never blocking the rest. A cancelled context
// aborts the remaining records; the next scheduled run picks them up and
// the conditional update keeps the retry idempotent.
func (j *CompletionJob) Run(ctx context.Context) (CompletionStats, error) {
	started := j.now()
	ctx, span := j.tracer.Start(ctx, "job.completion")
	defer span.End()
	j.logger.Info("schedule completion run starting")

	var stats CompletionStats
	expired, err := j.schedules.FindExpiredScheduled(ctx, started)
	if err != nil {
		j.metrics.jobRun("completion", "error", j.now().Sub(started))
		return stats, err
	}
	stats.Examined = len(expired)
	if len(expired) == 0 {
		j.logger.Info("no expired schedules found")
		j.metrics.jobRun("completion", "success", j.now().Sub(started))
		return stats, nil
	}

	for i := range expired {
		if ctx.Err() != nil {
			j.metrics.jobRun("completion", "aborted", j.now().Sub(started))
			return stats, ctx.Err()
		}
		if err := j.settle(ctx, &expired[i], &stats); err != nil {
			stats.Failed++
			j.logger.Warn("schedule settlement failed, skipping record",
				zap.Int64("schedule_id", expired[i].ID),
				zap.Error(err),
			)
		}
	}

	if stats.Completed > 0 && j.bus != nil {
		// The event carries no dimensions, so downstream invalidation
		// falls back to each family's wildcard and cannot reach keys
		// filtered to specific values in every family; those wait out
		// their TTL.
		j.bus.Publish(domain.NewChangeEvent(domain.EntitySchedule, domain.ChangeStatus))
	}

	span.SetAttributes(
		attribute.Int("reconcile.examined", stats.Examined),
		attribute.Int("reconcile.completed", stats.Completed),
		attribute.Int("reconcile.failed", stats.Failed),
	)
	j.logger.Info("schedule completion run finished",
		zap.Int("examined", stats.Examined),
		zap.Int("completed", stats.Completed),
		zap.Int("already_done", stats.AlreadyDone),
		zap.Int("ledger_entries", stats.LedgerEntries),
		zap.Int("failed", stats.Failed),
	)
	j.metrics.jobRun("completion", "success", j.now().Sub(started))
	return stats, nil
}

// settle applies one schedule's transition, enrollment advance, and hour
// accrual inside a single transaction.
func (j *CompletionJob) settle(ctx context.Context, schedule *domain.Schedule, stats *CompletionStats) error {
	return j.tx.InTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		updated, err := tx.Schedules.CompleteIfScheduled(ctx, schedule.ID)
		if err != nil {
			return err
		}
		if !updated {
			// Another runner won the conditional update, or the schedule
			// was cancelled online since the batch select.
			stats.AlreadyDone++
			return nil
		}
		stats.Completed++

		if err := j.advanceEnrollment(ctx, tx, schedule); err != nil {
			return err
		}
		return j.accrueHours(ctx, tx, schedule, stats)
	})
}

func (j *CompletionJob) advanceEnrollment(ctx context.Context, tx repository.Repositories, schedule *domain.Schedule) error {
	enrollment, err := tx.Enrollments.FindByID(ctx, schedule.EnrollmentID)
	if err != nil {
		return err
	}
	advanced, finished := enrollment.AdvanceSession()
	if !advanced {
		return nil
	}
	if finished {
		j.logger.Info("enrollment completed",
			zap.Int64("enrollment_id", enrollment.ID),
			zap.Int("sessions", enrollment.CompletedSessions),
		)
	}
	return tx.Enrollments.Update(ctx, enrollment)
}

func (j *CompletionJob) accrueHours(ctx context.Context, tx repository.Repositories, schedule *domain.Schedule, stats *CompletionStats) error {
	hours, err := domain.SessionHours(schedule.StartTime, schedule.EndTime)
	if err != nil {
		return err
	}
	if !hours.IsPositive() {
		// Never write a zero or negative ledger entry.
		j.logger.Warn("non-positive session duration, skipping ledger write",
			zap.Int64("schedule_id", schedule.ID),
			zap.String("start", schedule.StartTime),
			zap.String("end", schedule.EndTime),
		)
		return nil
	}

	teacher, err := tx.Teachers.FindByID(ctx, schedule.TeacherID)
	if err == repository.ErrNotFound || teacher == nil {
		// Tolerated: the schedule still completes, only the accrual is
		// skipped.
		j.logger.Warn("teacher not found, skipping hour accrual",
			zap.Int64("schedule_id", schedule.ID),
			zap.Int64("teacher_id", schedule.TeacherID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	entry := &domain.HourLedgerEntry{
		SubjectUserID:    teacher.UserID,
		HoursDelta:       hours,
		Reason:           domain.LedgerReasonAutoSettle,
		SourceScheduleID: schedule.ID,
		CreatedAt:        j.now(),
	}
	if err := tx.Ledger.Append(ctx, entry); err != nil {
		return err
	}
	if err := tx.Teachers.IncrementCurrentHours(ctx, teacher.ID, hours); err != nil {
		return err
	}
	stats.LedgerEntries++
	return nil
}
