package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemRelation is one directed edge of a snapshot's learning path. A nil
// FromItemID marks the start edge; at most one start edge exists per
// snapshot, and every ToItemID appears as a target at most once, which keeps
// the structure a simple chain rather than a general graph.
type ItemRelation struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SnapshotID uuid.UUID      `gorm:"type:uuid;not null;index" json:"snapshot_id"`
	Snapshot   *Snapshot      `gorm:"constraint:OnDelete:CASCADE;foreignKey:SnapshotID;references:ID" json:"snapshot,omitempty"`
	FromItemID *uuid.UUID     `gorm:"type:uuid;index" json:"from_item_id,omitempty"`
	ToItemID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"to_item_id"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ItemRelation) TableName() string { return "snapshot_item_relation" }

// IsStart reports whether this is the snapshot's start edge.
func (r *ItemRelation) IsStart() bool { return r.FromItemID == nil }

// OrderedItem is one step of a resolved learning path, as consumed by the
// delivery domain.
type OrderedItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
}
