package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseItem is one node of the authoring course's content tree, read-only
// here. ContentID/ContentName point at the live content library record; the
// deep copy captures ContentName into a LearningObjectRef so later edits to
// the library do not leak into frozen snapshots.
type CourseItem struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CourseID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course          *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	Kind            ItemKind       `gorm:"column:kind;not null" json:"kind"`
	ParentID        *uuid.UUID     `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Depth           int            `gorm:"column:depth;not null;default:0" json:"depth"`
	Position        int            `gorm:"column:position;not null;default:0" json:"position"`
	ContentID       *uuid.UUID     `gorm:"type:uuid" json:"content_id,omitempty"`
	ContentName     string         `gorm:"column:content_name" json:"content_name,omitempty"`
	ContentItemType string         `gorm:"column:content_item_type" json:"content_item_type,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseItem) TableName() string { return "course_item" }
