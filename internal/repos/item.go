package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

type ItemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, items []*types.Item) ([]*types.Item, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, itemID uuid.UUID) (*types.Item, error)
	GetBySnapshotID(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) ([]*types.Item, error)
	Update(ctx context.Context, tx *gorm.DB, item *types.Item) (*types.Item, error)
	// UpdateDepths writes recomputed depths for the given item ids in one
	// statement batch; used when a moved folder drags its subtree along.
	UpdateDepths(ctx context.Context, tx *gorm.DB, depths map[uuid.UUID]int) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) error
}

type itemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewItemRepo(db *gorm.DB, baseLog *logger.Logger) ItemRepo {
	return &itemRepo{db: db, log: baseLog.With("repo", "ItemRepo")}
}

func (ir *itemRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.Item) ([]*types.Item, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if len(items) == 0 {
		return []*types.Item{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (ir *itemRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, itemID uuid.UUID) (*types.Item, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.Item
	if err := transaction.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", itemID, tenantID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (ir *itemRepo) GetBySnapshotID(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) ([]*types.Item, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var results []*types.Item
	if err := transaction.WithContext(ctx).
		Where("snapshot_id = ? AND tenant_id = ?", snapshotID, tenantID).
		Order("depth ASC, position ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *itemRepo) Update(ctx context.Context, tx *gorm.DB, item *types.Item) (*types.Item, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if err := transaction.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (ir *itemRepo) UpdateDepths(ctx context.Context, tx *gorm.DB, depths map[uuid.UUID]int) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	for itemID, depth := range depths {
		if err := transaction.WithContext(ctx).
			Model(&types.Item{}).
			Where("id = ?", itemID).
			Update("depth", depth).Error; err != nil {
			return err
		}
	}
	return nil
}

func (ir *itemRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	if len(itemIDs) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Delete(&types.Item{}).Error
}
