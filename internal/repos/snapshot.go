package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

type SnapshotRepo interface {
	Create(ctx context.Context, tx *gorm.DB, snapshot *types.Snapshot) (*types.Snapshot, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) (*types.Snapshot, error)
	// GetByIDForUpdate locks the snapshot row for the duration of the
	// surrounding transaction. The snapshot row is the aggregate root lock
	// that serializes structural writes against one snapshot.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) (*types.Snapshot, error)
	GetByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Snapshot, error)
	Update(ctx context.Context, tx *gorm.DB, snapshot *types.Snapshot) (*types.Snapshot, error)
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo")}
}

func (sr *snapshotRepo) Create(ctx context.Context, tx *gorm.DB, snapshot *types.Snapshot) (*types.Snapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if err := transaction.WithContext(ctx).Create(snapshot).Error; err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (sr *snapshotRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) (*types.Snapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Snapshot
	if err := transaction.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", snapshotID, tenantID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (sr *snapshotRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) (*types.Snapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Snapshot
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", snapshotID, tenantID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (sr *snapshotRepo) GetByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Snapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Snapshot
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *snapshotRepo) Update(ctx context.Context, tx *gorm.DB, snapshot *types.Snapshot) (*types.Snapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if err := transaction.WithContext(ctx).Save(snapshot).Error; err != nil {
		return nil, err
	}
	return snapshot, nil
}
