package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

// CourseRepo is read-only: the authoring course belongs to another domain
// and this subsystem only consumes it as deep-copy source material.
type CourseRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, courseID uuid.UUID) (*types.Course, error)
	// GetItemsOrdered returns the course's items ordered by depth then
	// position, which guarantees every parent precedes its children.
	GetItemsOrdered(ctx context.Context, tx *gorm.DB, tenantID, courseID uuid.UUID) ([]*types.CourseItem, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (cr *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, courseID uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.Course
	if err := transaction.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", courseID, tenantID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (cr *courseRepo) GetItemsOrdered(ctx context.Context, tx *gorm.DB, tenantID, courseID uuid.UUID) ([]*types.CourseItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.CourseItem
	if err := transaction.WithContext(ctx).
		Where("course_id = ? AND tenant_id = ?", courseID, tenantID).
		Order("depth ASC, position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
