// Package domain holds the entities and change events the cache and
// reconciliation subsystems operate on.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies which kind of entity a change event refers to.
type EntityKind string

const (
	EntityCourse   EntityKind = "course"
	EntityTeacher  EntityKind = "teacher"
	EntitySubject  EntityKind = "subject"
	EntityGrade    EntityKind = "grade"
	EntityProgram  EntityKind = "program"
	EntitySchedule EntityKind = "schedule"
)

// ChangeType categorizes what happened to the entity.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
	ChangeStatus ChangeType = "status_change"
	ChangeFlag   ChangeType = "flag_change"
)

// Dimension is a business attribute a cached listing can be filtered by,
// e.g. {Name: "subject", Value: "12"}. WildcardAll denotes the unfiltered
// variant of a dimension family.
type Dimension struct {
	Name  string
	Value string
}

// WildcardAll is the dimension value under which unfiltered listings are
// indexed. Any write touching a dimension family must also invalidate it.
const WildcardAll = "ALL"

// All returns the wildcard dimension for a family.
func All(name string) Dimension {
	return Dimension{Name: name, Value: WildcardAll}
}

// ChangeEvent is published by a write path after its transaction commits.
// It is immutable once published; listeners must treat delivery as
// at-least-once and possibly out of order.
type ChangeEvent struct {
	ID                 string
	Entity             EntityKind
	Change             ChangeType
	AffectedDimensions []Dimension
	OccurredAt         time.Time
}

// NewChangeEvent stamps a change event with an id and occurrence time.
func NewChangeEvent(entity EntityKind, change ChangeType, dims ...Dimension) ChangeEvent {
	return ChangeEvent{
		ID:                 uuid.New().String(),
		Entity:             entity,
		Change:             change,
		AffectedDimensions: dims,
		OccurredAt:         time.Now(),
	}
}
