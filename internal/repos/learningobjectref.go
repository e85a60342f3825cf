package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

// LearningObjectRefRepo has no update method: refs are immutable after
// creation. They disappear only when their snapshot cascades away.
type LearningObjectRefRepo interface {
	Create(ctx context.Context, tx *gorm.DB, refs []*types.LearningObjectRef) ([]*types.LearningObjectRef, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, refIDs []uuid.UUID) ([]*types.LearningObjectRef, error)
}

type learningObjectRefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningObjectRefRepo(db *gorm.DB, baseLog *logger.Logger) LearningObjectRefRepo {
	return &learningObjectRefRepo{db: db, log: baseLog.With("repo", "LearningObjectRefRepo")}
}

func (lr *learningObjectRefRepo) Create(ctx context.Context, tx *gorm.DB, refs []*types.LearningObjectRef) ([]*types.LearningObjectRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	if len(refs) == 0 {
		return []*types.LearningObjectRef{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (lr *learningObjectRefRepo) GetByIDs(ctx context.Context, tx *gorm.DB, refIDs []uuid.UUID) ([]*types.LearningObjectRef, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var results []*types.LearningObjectRef
	if len(refIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", refIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
