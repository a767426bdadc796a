// Package repository defines the persistence contracts the cache and
// reconciliation subsystems consume. Implementations live under
// internal/infrastructure/persistence.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tutorhub-backend/internal/domain"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// ScheduleRepository reads and conditionally transitions class schedules.
type ScheduleRepository interface {
	// FindExpiredScheduled returns schedules still in the scheduled state
	// whose (date, end time) is strictly before now.
	FindExpiredScheduled(ctx context.Context, now time.Time) ([]domain.Schedule, error)

	// CompleteIfScheduled sets the schedule's status to completed guarded
	// by status = 'scheduled'. It reports whether a row was updated; false
	// means another runner already transitioned the record.
	CompleteIfScheduled(ctx context.Context, id int64) (bool, error)
}

// EnrollmentRepository reads and advances course enrollments.
type EnrollmentRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Enrollment, error)
	Update(ctx context.Context, enrollment *domain.Enrollment) error
}

// TeacherRepository reads teachers and maintains their hour accounts.
type TeacherRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Teacher, error)
	ListFeatured(ctx context.Context, limit int) ([]domain.Teacher, error)

	// IncrementCurrentHours adds delta to the teacher's current-period
	// hours. Only ledger-writing completions call this.
	IncrementCurrentHours(ctx context.Context, teacherID int64, delta decimal.Decimal) error

	// RolloverHours copies every account's current-period hours into the
	// previous-period column and zeroes the current one, in one pass.
	// It returns the number of accounts touched.
	RolloverHours(ctx context.Context) (int64, error)
}

// LedgerRepository appends hour accrual entries. The ledger is append-only;
// there is deliberately no update or delete.
type LedgerRepository interface {
	Append(ctx context.Context, entry *domain.HourLedgerEntry) error

	// SumSince totals the deltas recorded for a user at or after since;
	// used to verify ledger conservation.
	SumSince(ctx context.Context, subjectUserID int64, since time.Time) (decimal.Decimal, error)
}

// StudentRepository maintains the monthly adjustment allowance.
type StudentRepository interface {
	// ResetAdjustmentAllowance sets every student's allowance to quota and
	// returns the number of rows touched.
	ResetAdjustmentAllowance(ctx context.Context, quota int) (int64, error)
}

// JobRunRepository records calendar-boundary job executions.
type JobRunRepository interface {
	// TryMark inserts the (job, period) marker, reporting whether this
	// call created it. False means the period was already processed.
	TryMark(ctx context.Context, job, period string) (bool, error)
}

// CourseRepository serves the read-side course listings the cache fronts.
type CourseRepository interface {
	List(ctx context.Context, q domain.CourseListQuery) ([]domain.Course, error)
}

// Repositories bundles the contracts a transactional unit operates on.
type Repositories struct {
	Schedules   ScheduleRepository
	Enrollments EnrollmentRepository
	Teachers    TeacherRepository
	Ledger      LedgerRepository
	Students    StudentRepository
	JobRuns     JobRunRepository
	Courses     CourseRepository
}

// TransactionManager runs fn against a transaction-scoped repository set.
// The reconciliation engine wraps each record's status, enrollment, and
// ledger updates in one call so a crash mid-record cannot leave them
// divergent.
type TransactionManager interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
