package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"tutorhub-backend/internal/domain"
	"tutorhub-backend/internal/repository"
)

// NewRepositories binds the repository contracts to a bun handle. The same
// constructor serves both the root connection and transaction scopes.
func NewRepositories(db bun.IDB) repository.Repositories {
	return repository.Repositories{
		Schedules:   &scheduleRepo{db: db},
		Enrollments: &enrollmentRepo{db: db},
		Teachers:    &teacherRepo{db: db},
		Ledger:      &ledgerRepo{db: db},
		Students:    &studentRepo{db: db},
		JobRuns:     &jobRunRepo{db: db},
		Courses:     &courseRepo{db: db},
	}
}

// TxManager implements repository.TransactionManager on a bun database.
type TxManager struct {
	db *bun.DB
}

// NewTxManager creates the transaction manager.
func NewTxManager(db *bun.DB) *TxManager {
	return &TxManager{db: db}
}

// InTx runs fn against repositories bound to one database transaction.
func (m *TxManager) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	return m.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}

type scheduleRepo struct {
	db bun.IDB
}

func (r *scheduleRepo) FindExpiredScheduled(ctx context.Context, now time.Time) ([]domain.Schedule, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	clock := now.Format("15:04")

	var schedules []domain.Schedule
	err := r.db.NewSelect().
		Model(&schedules).
		Where("s.status = ?", domain.ScheduleScheduled).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("s.scheduled_date < ?", today).
				WhereOr("s.scheduled_date = ? AND s.end_time < ?", today, clock)
		}).
		Order("s.scheduled_date ASC", "s.end_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *scheduleRepo) CompleteIfScheduled(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Schedule)(nil)).
		Set("status = ?", domain.ScheduleCompleted).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", domain.ScheduleScheduled).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type enrollmentRepo struct {
	db bun.IDB
}

func (r *enrollmentRepo) FindByID(ctx context.Context, id int64) (*domain.Enrollment, error) {
	enrollment := new(domain.Enrollment)
	err := r.db.NewSelect().Model(enrollment).Where("e.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (r *enrollmentRepo) Update(ctx context.Context, enrollment *domain.Enrollment) error {
	_, err := r.db.NewUpdate().
		Model(enrollment).
		Column("completed_sessions", "status").
		WherePK().
		Exec(ctx)
	return err
}

type teacherRepo struct {
	db bun.IDB
}

func (r *teacherRepo) FindByID(ctx context.Context, id int64) (*domain.Teacher, error) {
	teacher := new(domain.Teacher)
	err := r.db.NewSelect().Model(teacher).Where("t.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return teacher, nil
}

func (r *teacherRepo) ListFeatured(ctx context.Context, limit int) ([]domain.Teacher, error) {
	if limit <= 0 {
		limit = 8
	}
	var teachers []domain.Teacher
	err := r.db.NewSelect().
		Model(&teachers).
		Where("t.featured = ?", true).
		Order("t.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return teachers, nil
}

func (r *teacherRepo) IncrementCurrentHours(ctx context.Context, teacherID int64, delta decimal.Decimal) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Teacher)(nil)).
		Set("current_hours = current_hours + ?", delta).
		Where("id = ?", teacherID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *teacherRepo) RolloverHours(ctx context.Context) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Teacher)(nil)).
		Set("last_hours = current_hours").
		Set("current_hours = 0").
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type ledgerRepo struct {
	db bun.IDB
}

func (r *ledgerRepo) Append(ctx context.Context, entry *domain.HourLedgerEntry) error {
	_, err := r.db.NewInsert().Model(entry).Exec(ctx)
	return err
}

func (r *ledgerRepo) SumSince(ctx context.Context, subjectUserID int64, since time.Time) (decimal.Decimal, error) {
	var total float64
	err := r.db.NewSelect().
		Model((*domain.HourLedgerEntry)(nil)).
		ColumnExpr("COALESCE(SUM(hours_delta), 0)").
		Where("subject_user_id = ?", subjectUserID).
		Where("created_at >= ?", since).
		Scan(ctx, &total)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(total).Round(2), nil
}

type studentRepo struct {
	db bun.IDB
}

func (r *studentRepo) ResetAdjustmentAllowance(ctx context.Context, quota int) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Student)(nil)).
		Set("adjustment_times = ?", quota).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type jobRunRepo struct {
	db bun.IDB
}

func (r *jobRunRepo) TryMark(ctx context.Context, job, period string) (bool, error) {
	run := &domain.JobRun{JobName: job, Period: period, RanAt: time.Now()}
	res, err := r.db.NewInsert().
		Model(run).
		On("CONFLICT (job_name, period) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type courseRepo struct {
	db bun.IDB
}

func (r *courseRepo) List(ctx context.Context, q domain.CourseListQuery) ([]domain.Course, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 {
		q.Size = 10
	}
	var courses []domain.Course
	query := r.db.NewSelect().
		Model(&courses).
		Where("c.status = ?", "active")
	if q.SubjectID > 0 {
		query = query.Where("c.subject_id = ?", q.SubjectID)
	}
	if q.GradeID > 0 {
		query = query.Where("c.grade_id = ?", q.GradeID)
	}
	err := query.
		Order("c.id ASC").
		Limit(q.Size).
		Offset((q.Page - 1) * q.Size).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return courses, nil
}
