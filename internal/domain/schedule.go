package domain

import (
	"time"

	"github.com/uptrace/bun"
)

// ScheduleStatus is the lifecycle state of a single class occurrence.
//
// scheduled -> completed is one-way and performed only by the daily
// reconciliation job. scheduled -> cancelled is reached through the online
// cancellation workflow, never by the job.
type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

// Schedule is one booked class occurrence for an enrollment.
type Schedule struct {
	bun.BaseModel `bun:"table:schedules,alias:s"`

	ID           int64          `bun:"id,pk,autoincrement"`
	EnrollmentID int64          `bun:"enrollment_id,notnull"`
	TeacherID    int64          `bun:"teacher_id,notnull"`
	Date         time.Time      `bun:"scheduled_date,notnull"`
	StartTime    string         `bun:"start_time,notnull"` // "15:04"
	EndTime      string         `bun:"end_time,notnull"`   // "15:04"
	Status       ScheduleStatus `bun:"status,notnull,default:'scheduled'"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// EndsAt combines the schedule date and end time into a wall-clock instant.
func (s *Schedule) EndsAt() (time.Time, error) {
	end, err := time.ParseInLocation("15:04", s.EndTime, s.Date.Location())
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(),
		end.Hour(), end.Minute(), 0, 0, s.Date.Location()), nil
}

// EnrollmentStatus is the lifecycle state of a course enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
	EnrollmentSuspended EnrollmentStatus = "suspended"
)

// Enrollment tracks a student's progress through a booked course.
// CompletedSessions only ever increases and never exceeds TotalSessions;
// a TotalSessions of zero means the enrollment is uncapped.
type Enrollment struct {
	bun.BaseModel `bun:"table:enrollments,alias:e"`

	ID                int64            `bun:"id,pk,autoincrement"`
	StudentID         int64            `bun:"student_id,notnull"`
	CourseID          int64            `bun:"course_id,notnull"`
	TotalSessions     int              `bun:"total_sessions"`
	CompletedSessions int              `bun:"completed_sessions,notnull,default:0"`
	Status            EnrollmentStatus `bun:"status,notnull,default:'active'"`
}

// AdvanceSession records one completed session. It reports whether the
// increment was applied and whether it finished the enrollment.
func (e *Enrollment) AdvanceSession() (advanced, finished bool) {
	if e.TotalSessions > 0 && e.CompletedSessions >= e.TotalSessions {
		return false, false
	}
	e.CompletedSessions++
	if e.TotalSessions > 0 && e.CompletedSessions == e.TotalSessions {
		e.Status = EnrollmentCompleted
		return true, true
	}
	return true, false
}
