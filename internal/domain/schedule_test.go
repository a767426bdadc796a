package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceSession(t *testing.T) {
	t.Run("advances below cap", func(t *testing.T) {
		e := &Enrollment{TotalSessions: 10, CompletedSessions: 3, Status: EnrollmentActive}
		advanced, finished := e.AdvanceSession()
		assert.True(t, advanced)
		assert.False(t, finished)
		assert.Equal(t, 4, e.CompletedSessions)
		assert.Equal(t, EnrollmentActive, e.Status)
	})

	t.Run("final session completes the enrollment", func(t *testing.T) {
		e := &Enrollment{TotalSessions: 10, CompletedSessions: 9, Status: EnrollmentActive}
		advanced, finished := e.AdvanceSession()
		assert.True(t, advanced)
		assert.True(t, finished)
		assert.Equal(t, 10, e.CompletedSessions)
		assert.Equal(t, EnrollmentCompleted, e.Status)
	})

	t.Run("never exceeds the cap", func(t *testing.T) {
		e := &Enrollment{TotalSessions: 10, CompletedSessions: 10, Status: EnrollmentCompleted}
		advanced, finished := e.AdvanceSession()
		assert.False(t, advanced)
		assert.False(t, finished)
		assert.Equal(t, 10, e.CompletedSessions)
	})

	t.Run("uncapped enrollment never finishes", func(t *testing.T) {
		e := &Enrollment{TotalSessions: 0, CompletedSessions: 42, Status: EnrollmentActive}
		advanced, finished := e.AdvanceSession()
		assert.True(t, advanced)
		assert.False(t, finished)
		assert.Equal(t, 43, e.CompletedSessions)
	})
}

func TestScheduleEndsAt(t *testing.T) {
	s := &Schedule{
		Date:    time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		EndTime: "15:30",
	}
	endsAt, err := s.EndsAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC), endsAt)
}

func TestCourseListQueryDimensions(t *testing.T) {
	t.Run("filtered dimensions carry their ids", func(t *testing.T) {
		q := CourseListQuery{Page: 1, Size: 20, SubjectID: 7, GradeID: 3}
		dims := q.Dimensions()
		assert.ElementsMatch(t, []Dimension{
			{Name: "subject", Value: "7"},
			{Name: "grade", Value: "3"},
		}, dims)
	})

	t.Run("unfiltered families report the wildcard", func(t *testing.T) {
		q := CourseListQuery{Page: 1, Size: 20}
		dims := q.Dimensions()
		assert.ElementsMatch(t, []Dimension{
			All("subject"),
			All("grade"),
		}, dims)
	})
}
