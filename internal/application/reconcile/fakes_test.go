package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tutorhub-backend/internal/domain"
	"tutorhub-backend/internal/repository"
)

// fakeState is an in-memory stand-in for the persistence layer. The fake
// transaction manager hands the same state to every InTx call; tests that
// need rollback semantics assert on returned errors instead.
type fakeState struct {
	mu sync.Mutex

	schedules   map[int64]*domain.Schedule
	enrollments map[int64]*domain.Enrollment
	teachers    map[int64]*domain.Teacher
	students    map[int64]*domain.Student
	ledger      []domain.HourLedgerEntry
	jobRuns     map[string]struct{}

	findExpiredErr error
	appendErr      error
}

func newFakeState() *fakeState {
	return &fakeState{
		schedules:   make(map[int64]*domain.Schedule),
		enrollments: make(map[int64]*domain.Enrollment),
		teachers:    make(map[int64]*domain.Teacher),
		students:    make(map[int64]*domain.Student),
		jobRuns:     make(map[string]struct{}),
	}
}

func (s *fakeState) repos() repository.Repositories {
	return repository.Repositories{
		Schedules:   (*fakeScheduleRepo)(s),
		Enrollments: (*fakeEnrollmentRepo)(s),
		Teachers:    (*fakeTeacherRepo)(s),
		Ledger:      (*fakeLedgerRepo)(s),
		Students:    (*fakeStudentRepo)(s),
		JobRuns:     (*fakeJobRunRepo)(s),
	}
}

type fakeTx fakeState

func (tx *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	return fn(ctx, (*fakeState)(tx).repos())
}

type fakeScheduleRepo fakeState

func (r *fakeScheduleRepo) FindExpiredScheduled(ctx context.Context, now time.Time) ([]domain.Schedule, error) {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findExpiredErr != nil {
		return nil, s.findExpiredErr
	}
	var out []domain.Schedule
	for _, sched := range s.schedules {
		if sched.Status != domain.ScheduleScheduled {
			continue
		}
		endsAt, err := sched.EndsAt()
		if err != nil {
			continue
		}
		if endsAt.Before(now) {
			out = append(out, *sched)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) CompleteIfScheduled(ctx context.Context, id int64) (bool, error) {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[id]
	if !ok || sched.Status != domain.ScheduleScheduled {
		return false, nil
	}
	sched.Status = domain.ScheduleCompleted
	return true, nil
}

type fakeEnrollmentRepo fakeState

func (r *fakeEnrollmentRepo) FindByID(ctx context.Context, id int64) (*domain.Enrollment, error) {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEnrollmentRepo) Update(ctx context.Context, enrollment *domain.Enrollment) error {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *enrollment
	s.enrollments[enrollment.ID] = &cp
	return nil
}

type fakeTeacherRepo fakeState

func (r *fakeTeacherRepo) FindByID(ctx context.Context, id int64) (*domain.Teacher, error) {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teachers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTeacherRepo) ListFeatured(ctx context.Context, limit int) ([]domain.Teacher, error) {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Teacher
	for _, t := range s.teachers {
		if t.Featured && len(out) < limit {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTeacherRepo) IncrementCurrentHours(ctx context.Context, teacherID int64, delta decimal.Decimal) error {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teachers[teacherID]
	if !ok {
		return repository.ErrNotFound
	}
	t.CurrentPeriodHours = t.CurrentPeriodHours.Add(delta)
	return nil
}

func (r *fakeTeacherRepo) RolloverHours(ctx context.Context) (int64, error) {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teachers {
		t.PreviousPeriodHours = t.CurrentPeriodHours
		t.CurrentPeriodHours = decimal.Zero
	}
	return int64(len(s.teachers)), nil
}

type fakeLedgerRepo fakeState

func (r *fakeLedgerRepo) Append(ctx context.Context, entry *domain.HourLedgerEntry) error {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	entry.ID = int64(len(s.ledger) + 1)
	s.ledger = append(s.ledger, *entry)
	return nil
}

func (r *fakeLedgerRepo) SumSince(ctx context.Context, subjectUserID int64, since time.Time) (decimal.Decimal, error) {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, e := range s.ledger {
		if e.SubjectUserID == subjectUserID && !e.CreatedAt.Before(since) {
			sum = sum.Add(e.HoursDelta)
		}
	}
	return sum, nil
}

type fakeStudentRepo fakeState

func (r *fakeStudentRepo) ResetAdjustmentAllowance(ctx context.Context, quota int) (int64, error) {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.students {
		st.AdjustmentTimes = quota
	}
	return int64(len(s.students)), nil
}

type fakeJobRunRepo fakeState

func (r *fakeJobRunRepo) TryMark(ctx context.Context, job, period string) (bool, error) {
	s := (*fakeState)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	key := job + "|" + period
	if _, done := s.jobRuns[key]; done {
		return false, nil
	}
	s.jobRuns[key] = struct{}{}
	return true, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (b *fakeBus) Publish(event domain.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBus) published() []domain.ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.ChangeEvent(nil), b.events...)
}
