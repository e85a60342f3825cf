package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/domain"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/repos"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/requestdata"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

type UpdateSnapshotInput struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

type SnapshotService interface {
	CreateFromCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Snapshot, error)
	CreateDirect(ctx context.Context, tx *gorm.DB, name, description string, tags []string) (*types.Snapshot, error)
	UpdateSnapshot(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID, input UpdateSnapshotInput) (*types.Snapshot, error)
	Publish(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*types.Snapshot, error)
	Complete(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*types.Snapshot, error)
	Archive(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*types.Snapshot, error)
	GetSnapshot(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*types.Snapshot, error)
	ListSnapshots(ctx context.Context, tx *gorm.DB) ([]*types.Snapshot, error)
}

type snapshotService struct {
	db           *gorm.DB
	log          *logger.Logger
	snapshotRepo repos.SnapshotRepo
	itemRepo     repos.ItemRepo
	refRepo      repos.LearningObjectRefRepo
	courseRepo   repos.CourseRepo
}

func NewSnapshotService(
	db *gorm.DB,
	baseLog *logger.Logger,
	snapshotRepo repos.SnapshotRepo,
	itemRepo repos.ItemRepo,
	refRepo repos.LearningObjectRefRepo,
	courseRepo repos.CourseRepo,
) SnapshotService {
	return &snapshotService{
		db:           db,
		log:          baseLog.With("service", "SnapshotService"),
		snapshotRepo: snapshotRepo,
		itemRepo:     itemRepo,
		refRepo:      refRepo,
		courseRepo:   courseRepo,
	}
}

// CreateFromCourse deep-copies the authoring course's item tree into a fresh
// draft snapshot. Source items arrive ordered by depth then position, so
// every parent is copied before its children and a single forward pass over
// an old-id -> new-item map is enough to remap parent pointers. Relations
// are never copied: the new snapshot starts with an empty learning path.
func (ss *snapshotService) CreateFromCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Snapshot, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}
	if courseID == uuid.Nil {
		return nil, fmt.Errorf("missing course id")
	}

	limits := LoadStructureLimits()

	var snapshot *types.Snapshot
	err := runInTx(ctx, ss.db, tx, func(txx *gorm.DB) error {
		course, err := ss.courseRepo.GetByID(ctx, txx, rd.TenantID, courseID)
		if err != nil {
			return fmt.Errorf("load course: %w", err)
		}
		if course == nil {
			return &domain.NotFoundError{Resource: "course", ID: courseID.String()}
		}

		sourceItems, err := ss.courseRepo.GetItemsOrdered(ctx, txx, rd.TenantID, courseID)
		if err != nil {
			return fmt.Errorf("load course items: %w", err)
		}

		snapshot = &types.Snapshot{
			ID:             uuid.New(),
			TenantID:       rd.TenantID,
			SourceCourseID: &course.ID,
			Name:           course.Name,
			Description:    course.Description,
			Tags:           course.Tags,
			Status:         types.SnapshotStatusDraft,
			CreatedBy:      rd.UserID,
		}
		if _, err := ss.snapshotRepo.Create(ctx, txx, snapshot); err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}

		idMap := make(map[uuid.UUID]*types.Item, len(sourceItems))
		newItems := make([]*types.Item, 0, len(sourceItems))
		newRefs := make([]*types.LearningObjectRef, 0)

		for _, src := range sourceItems {
			item := &types.Item{
				ID:              uuid.New(),
				TenantID:        rd.TenantID,
				SnapshotID:      snapshot.ID,
				Name:            src.Name,
				Kind:            src.Kind,
				Position:        src.Position,
				ContentItemType: src.ContentItemType,
			}
			if src.ParentID != nil {
				parent, ok := idMap[*src.ParentID]
				if !ok {
					return fmt.Errorf("course item %s references parent %s before it was copied", src.ID, *src.ParentID)
				}
				parentID := parent.ID
				item.ParentID = &parentID
				item.Depth = parent.Depth + 1
			}
			// The authoring tree is not trusted to respect the bound; an
			// over-deep source would mint a snapshot whose items no write
			// could ever legally touch.
			if item.Depth > limits.MaxNestingDepth {
				return &domain.StructuralError{Code: domain.MaxDepthExceeded, Detail: fmt.Sprintf("course item %s at depth %d exceeds maximum %d", src.ID, item.Depth, limits.MaxNestingDepth)}
			}
			if src.Kind == types.ItemKindContent && src.ContentID != nil {
				ref := &types.LearningObjectRef{
					ID:         uuid.New(),
					TenantID:   rd.TenantID,
					SnapshotID: snapshot.ID,
					ContentID:  *src.ContentID,
					Name:       src.ContentName,
				}
				refID := ref.ID
				item.LearningObjectRefID = &refID
				newRefs = append(newRefs, ref)
			}
			idMap[src.ID] = item
			newItems = append(newItems, item)
		}

		if _, err := ss.refRepo.Create(ctx, txx, newRefs); err != nil {
			return fmt.Errorf("create learning object refs: %w", err)
		}
		if _, err := ss.itemRepo.Create(ctx, txx, newItems); err != nil {
			return fmt.Errorf("copy items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ss.log.Info("Snapshot created from course", "snapshot_id", snapshot.ID, "course_id", courseID, "tenant_id", rd.TenantID)
	return snapshot, nil
}

func (ss *snapshotService) CreateDirect(ctx context.Context, tx *gorm.DB, name, description string, tags []string) (*types.Snapshot, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}
	if name == "" {
		return nil, fmt.Errorf("missing snapshot name")
	}

	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return nil, err
	}

	snapshot := &types.Snapshot{
		ID:          uuid.New(),
		TenantID:    rd.TenantID,
		Name:        name,
		Description: description,
		Tags:        tagsJSON,
		Status:      types.SnapshotStatusDraft,
		CreatedBy:   rd.UserID,
	}
	err = runInTx(ctx, ss.db, tx, func(txx *gorm.DB) error {
		_, err := ss.snapshotRepo.Create(ctx, txx, snapshot)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	return snapshot, nil
}

func (ss *snapshotService) UpdateSnapshot(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID, input UpdateSnapshotInput) (*types.Snapshot, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}

	var snapshot *types.Snapshot
	err := runInTx(ctx, ss.db, tx, func(txx *gorm.DB) error {
		var err error
		snapshot, err = ss.snapshotRepo.GetByIDForUpdate(ctx, txx, rd.TenantID, snapshotID)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snapshot == nil {
			return &domain.NotFoundError{Resource: "snapshot", ID: snapshotID.String()}
		}
		if !snapshot.IsModifiable() {
			return &domain.StateConflictError{Status: string(snapshot.Status), Action: "update snapshot"}
		}

		if input.Name != nil {
			snapshot.Name = *input.Name
		}
		if input.Description != nil {
			snapshot.Description = *input.Description
		}
		if input.Tags != nil {
			tagsJSON, err := marshalTags(*input.Tags)
			if err != nil {
				return err
			}
			snapshot.Tags = tagsJSON
		}

		_, err = ss.snapshotRepo.Update(ctx, txx, snapshot)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (ss *snapshotService) Publish(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*types.Snapshot, error) {
	return ss.transition(ctx, tx, snapshotID, types.SnapshotStatusActive, "publish")
}

func (ss *snapshotService) Complete(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*types.Snapshot, error) {
	return ss.transition(ctx, tx, snapshotID, types.SnapshotStatusCompleted, "complete")
}

func (ss *snapshotService) Archive(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*types.Snapshot, error) {
	return ss.transition(ctx, tx, snapshotID, types.SnapshotStatusArchived, "archive")
}

// transition applies one step of the lifecycle. Anything out of order is a
// deterministic state conflict, never retried.
func (ss *snapshotService) transition(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID, next types.SnapshotStatus, action string) (*types.Snapshot, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}

	var snapshot *types.Snapshot
	err := runInTx(ctx, ss.db, tx, func(txx *gorm.DB) error {
		var err error
		snapshot, err = ss.snapshotRepo.GetByIDForUpdate(ctx, txx, rd.TenantID, snapshotID)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snapshot == nil {
			return &domain.NotFoundError{Resource: "snapshot", ID: snapshotID.String()}
		}
		if !snapshot.CanTransitionTo(next) {
			return &domain.StateConflictError{Status: string(snapshot.Status), Action: action}
		}

		snapshot.Status = next
		_, err = ss.snapshotRepo.Update(ctx, txx, snapshot)
		return err
	})
	if err != nil {
		return nil, err
	}

	ss.log.Info("Snapshot transitioned", "snapshot_id", snapshot.ID, "status", snapshot.Status)
	return snapshot, nil
}

func (ss *snapshotService) GetSnapshot(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*types.Snapshot, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}

	snapshot, err := ss.snapshotRepo.GetByID(ctx, tx, rd.TenantID, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, &domain.NotFoundError{Resource: "snapshot", ID: snapshotID.String()}
	}
	return snapshot, nil
}

func (ss *snapshotService) ListSnapshots(ctx context.Context, tx *gorm.DB) ([]*types.Snapshot, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}
	return ss.snapshotRepo.GetByTenant(ctx, tx, rd.TenantID)
}

func marshalTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return datatypes.JSON(raw), nil
}
