package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ItemKind string

const (
	ItemKindFolder  ItemKind = "folder"
	ItemKindContent ItemKind = "content"
)

// Item is a node in a snapshot's content tree. Folders contain children;
// content items are leaves pointing at a LearningObjectRef. Depth is
// denormalized from the parent chain: 0 for roots, parent depth + 1 below.
type Item struct {
	ID                  uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID            uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SnapshotID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"snapshot_id"`
	Snapshot            *Snapshot          `gorm:"constraint:OnDelete:CASCADE;foreignKey:SnapshotID;references:ID" json:"snapshot,omitempty"`
	Name                string             `gorm:"column:name;not null" json:"name"`
	Kind                ItemKind           `gorm:"column:kind;not null" json:"kind"`
	ParentID            *uuid.UUID         `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Depth               int                `gorm:"column:depth;not null;default:0" json:"depth"`
	Position            int                `gorm:"column:position;not null;default:0" json:"position"`
	LearningObjectRefID *uuid.UUID         `gorm:"type:uuid" json:"learning_object_ref_id,omitempty"`
	LearningObjectRef   *LearningObjectRef `gorm:"constraint:OnDelete:SET NULL;foreignKey:LearningObjectRefID;references:ID" json:"learning_object_ref,omitempty"`
	ContentItemType     string             `gorm:"column:content_item_type" json:"content_item_type,omitempty"`
	Metadata            datatypes.JSON     `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt           time.Time          `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time          `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt           gorm.DeletedAt     `gorm:"index" json:"deleted_at,omitempty"`

	// Children is populated by hierarchy reads only; it is not a gorm
	// association.
	Children []*Item `gorm:"-" json:"children,omitempty"`
}

func (Item) TableName() string { return "snapshot_item" }

func (i *Item) IsFolder() bool  { return i.Kind == ItemKindFolder }
func (i *Item) IsContent() bool { return i.Kind == ItemKindContent }
