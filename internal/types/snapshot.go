package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SnapshotStatus string

const (
	SnapshotStatusDraft     SnapshotStatus = "draft"
	SnapshotStatusActive    SnapshotStatus = "active"
	SnapshotStatusCompleted SnapshotStatus = "completed"
	SnapshotStatusArchived  SnapshotStatus = "archived"
)

// snapshotTransitions is the full lifecycle: draft -> active -> completed ->
// archived. Archived is terminal.
var snapshotTransitions = map[SnapshotStatus]SnapshotStatus{
	SnapshotStatusDraft:     SnapshotStatusActive,
	SnapshotStatusActive:    SnapshotStatusCompleted,
	SnapshotStatusCompleted: SnapshotStatusArchived,
}

// Snapshot is a versioned copy of a course structure. It owns its items and
// relations transitively; deleting a snapshot cascades to both.
type Snapshot struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SourceCourseID *uuid.UUID     `gorm:"type:uuid;index" json:"source_course_id,omitempty"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	Description    string         `gorm:"column:description" json:"description"`
	Tags           datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`
	Status         SnapshotStatus `gorm:"column:status;not null;default:'draft'" json:"status"`
	CreatedBy      uuid.UUID      `gorm:"type:uuid;not null" json:"created_by"`
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Snapshot) TableName() string { return "snapshot" }

// IsItemModifiable reports whether structural writes (item tree and learning
// path edges) are currently permitted. Draft only: once a snapshot is
// published its content graph is frozen.
func (s *Snapshot) IsItemModifiable() bool {
	return s.Status == SnapshotStatusDraft
}

// IsModifiable reports whether metadata-only edits (names, descriptions,
// tags) are permitted. Broader than IsItemModifiable: renames are still
// allowed while a snapshot is being delivered.
func (s *Snapshot) IsModifiable() bool {
	return s.Status == SnapshotStatusDraft || s.Status == SnapshotStatusActive
}

// CanTransitionTo reports whether next is the single allowed successor of the
// snapshot's current status.
func (s *Snapshot) CanTransitionTo(next SnapshotStatus) bool {
	allowed, ok := snapshotTransitions[s.Status]
	return ok && allowed == next
}
