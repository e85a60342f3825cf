package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

type ItemRelationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, relation *types.ItemRelation) (*types.ItemRelation, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, relationID uuid.UUID) (*types.ItemRelation, error)
	GetBySnapshotID(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) ([]*types.ItemRelation, error)
	Update(ctx context.Context, tx *gorm.DB, relation *types.ItemRelation) (*types.ItemRelation, error)
	DeleteByIDs(ctx context.Context, tx *gorm.DB, relationIDs []uuid.UUID) error
}

type itemRelationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRelationRepo(db *gorm.DB, baseLog *logger.Logger) ItemRelationRepo {
	return &itemRelationRepo{db: db, log: baseLog.With("repo", "ItemRelationRepo")}
}

func (rr *itemRelationRepo) Create(ctx context.Context, tx *gorm.DB, relation *types.ItemRelation) (*types.ItemRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if err := transaction.WithContext(ctx).Create(relation).Error; err != nil {
		return nil, err
	}
	return relation, nil
}

func (rr *itemRelationRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, relationID uuid.UUID) (*types.ItemRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.ItemRelation
	if err := transaction.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", relationID, tenantID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (rr *itemRelationRepo) GetBySnapshotID(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) ([]*types.ItemRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.ItemRelation
	if err := transaction.WithContext(ctx).
		Where("snapshot_id = ? AND tenant_id = ?", snapshotID, tenantID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *itemRelationRepo) Update(ctx context.Context, tx *gorm.DB, relation *types.ItemRelation) (*types.ItemRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if err := transaction.WithContext(ctx).Save(relation).Error; err != nil {
		return nil, err
	}
	return relation, nil
}

func (rr *itemRelationRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, relationIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if len(relationIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("id IN ?", relationIDs).
		Delete(&types.ItemRelation{}).Error
}
