package domain

import (
	"github.com/uptrace/bun"
)

// Course is the read-side projection served by the listing endpoints.
type Course struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID        int64  `bun:"id,pk,autoincrement"`
	Title     string `bun:"title,notnull"`
	TeacherID int64  `bun:"teacher_id,notnull"`
	SubjectID int64  `bun:"subject_id"`
	GradeID   int64  `bun:"grade_id"`
	Status    string `bun:"status,notnull,default:'active'"`
	Featured  bool   `bun:"featured,notnull,default:false"`
}

// CourseListQuery captures the filterable parameters of the course listing
// endpoint. Zero-valued dimension ids mean "unfiltered" and cache under the
// ALL wildcard.
type CourseListQuery struct {
	Page      int
	Size      int
	SubjectID int64
	GradeID   int64
}

// Dimensions returns the query's cache dimensions. Unfiltered families are
// reported under the wildcard so their cache keys are reachable by any
// write in the family.
func (q CourseListQuery) Dimensions() []Dimension {
	dims := make([]Dimension, 0, 2)
	if q.SubjectID > 0 {
		dims = append(dims, Dimension{Name: "subject", Value: formatID(q.SubjectID)})
	} else {
		dims = append(dims, All("subject"))
	}
	if q.GradeID > 0 {
		dims = append(dims, Dimension{Name: "grade", Value: formatID(q.GradeID)})
	} else {
		dims = append(dims, All("grade"))
	}
	return dims
}
