package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LearningObjectRef is a snapshot-local pointer to externally managed
// content. ContentID is opaque here and never dereferenced; Name is copied at
// creation time so a frozen snapshot keeps displaying what the content was
// called when it was captured. Rows are immutable after create.
type LearningObjectRef struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SnapshotID uuid.UUID      `gorm:"type:uuid;not null;index" json:"snapshot_id"`
	Snapshot   *Snapshot      `gorm:"constraint:OnDelete:CASCADE;foreignKey:SnapshotID;references:ID" json:"snapshot,omitempty"`
	ContentID  uuid.UUID      `gorm:"type:uuid;not null" json:"content_id"`
	Name       string         `gorm:"column:name;not null" json:"name"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LearningObjectRef) TableName() string { return "learning_object_ref" }
