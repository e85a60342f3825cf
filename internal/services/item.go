package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/domain"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/repos"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/requestdata"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

// LearningObjectInput is the inline payload for creating a content item
// together with its snapshot-local ref. Name is captured as-is; the content
// library record is never consulted again afterwards.
type LearningObjectInput struct {
	ContentID uuid.UUID `json:"content_id"`
	Name      string    `json:"name"`
}

type CreateItemInput struct {
	Name            string               `json:"name"`
	Kind            types.ItemKind       `json:"kind"`
	ParentID        *uuid.UUID           `json:"parent_id,omitempty"`
	LearningObject  *LearningObjectInput `json:"learning_object,omitempty"`
	ContentItemType string               `json:"content_item_type,omitempty"`
}

type ItemService interface {
	CreateItem(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID, input CreateItemInput) (*types.Item, error)
	GetHierarchy(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]*types.Item, error)
	GetFlatItems(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]*types.Item, error)
	UpdateItemName(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, newName string) (*types.Item, error)
	MoveItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, newParentID *uuid.UUID) (*types.Item, error)
	DeleteItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error
}

type itemService struct {
	db           *gorm.DB
	log          *logger.Logger
	snapshotRepo repos.SnapshotRepo
	itemRepo     repos.ItemRepo
	refRepo      repos.LearningObjectRefRepo
	orderCache   OrderedItemsCache
}

func NewItemService(
	db *gorm.DB,
	baseLog *logger.Logger,
	snapshotRepo repos.SnapshotRepo,
	itemRepo repos.ItemRepo,
	refRepo repos.LearningObjectRefRepo,
	orderCache OrderedItemsCache,
) ItemService {
	return &itemService{
		db:           db,
		log:          baseLog.With("service", "ItemService"),
		snapshotRepo: snapshotRepo,
		itemRepo:     itemRepo,
		refRepo:      refRepo,
		orderCache:   orderCache,
	}
}

func (is *itemService) CreateItem(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID, input CreateItemInput) (*types.Item, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}
	if input.Name == "" {
		return nil, fmt.Errorf("missing item name")
	}
	if input.Kind != types.ItemKindFolder && input.Kind != types.ItemKindContent {
		return nil, fmt.Errorf("unknown item kind %q", input.Kind)
	}
	if input.Kind == types.ItemKindFolder && input.LearningObject != nil {
		return nil, fmt.Errorf("folders cannot carry a learning object")
	}

	limits := LoadStructureLimits()

	var item *types.Item
	err := runInTx(ctx, is.db, tx, func(txx *gorm.DB) error {
		snapshot, err := is.snapshotRepo.GetByIDForUpdate(ctx, txx, rd.TenantID, snapshotID)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snapshot == nil {
			return &domain.NotFoundError{Resource: "snapshot", ID: snapshotID.String()}
		}
		if !snapshot.IsItemModifiable() {
			return &domain.StateConflictError{Status: string(snapshot.Status), Action: "create item"}
		}

		items, err := is.itemRepo.GetBySnapshotID(ctx, txx, rd.TenantID, snapshotID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}

		depth := 0
		if input.ParentID != nil {
			parent := findItem(items, *input.ParentID)
			if parent == nil {
				return &domain.StructuralError{Code: domain.InvalidParent, Detail: "parent does not belong to this snapshot"}
			}
			if !parent.IsFolder() {
				return &domain.StructuralError{Code: domain.InvalidParent, Detail: "parent is not a folder"}
			}
			depth = parent.Depth + 1
			if depth > limits.MaxNestingDepth {
				return &domain.StructuralError{Code: domain.MaxDepthExceeded, Detail: fmt.Sprintf("depth %d exceeds maximum %d", depth, limits.MaxNestingDepth)}
			}
		}

		item = &types.Item{
			ID:              uuid.New(),
			TenantID:        rd.TenantID,
			SnapshotID:      snapshotID,
			Name:            input.Name,
			Kind:            input.Kind,
			ParentID:        input.ParentID,
			Depth:           depth,
			Position:        nextSiblingPosition(items, input.ParentID),
			ContentItemType: input.ContentItemType,
		}

		if input.LearningObject != nil {
			ref := &types.LearningObjectRef{
				ID:         uuid.New(),
				TenantID:   rd.TenantID,
				SnapshotID: snapshotID,
				ContentID:  input.LearningObject.ContentID,
				Name:       input.LearningObject.Name,
			}
			if _, err := is.refRepo.Create(ctx, txx, []*types.LearningObjectRef{ref}); err != nil {
				return fmt.Errorf("create learning object ref: %w", err)
			}
			refID := ref.ID
			item.LearningObjectRefID = &refID
		}

		_, err = is.itemRepo.Create(ctx, txx, []*types.Item{item})
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetHierarchy returns the snapshot's root items with children recursively
// attached, siblings ordered by position. Read-only: no lifecycle check.
func (is *itemService) GetHierarchy(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]*types.Item, error) {
	items, err := is.GetFlatItems(ctx, tx, snapshotID)
	if err != nil {
		return nil, err
	}
	return buildHierarchy(items), nil
}

func (is *itemService) GetFlatItems(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]*types.Item, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}

	// An unknown snapshot is an error, not an empty tree: callers must be
	// able to tell "no items yet" from "wrong id".
	snapshot, err := is.snapshotRepo.GetByID(ctx, tx, rd.TenantID, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, &domain.NotFoundError{Resource: "snapshot", ID: snapshotID.String()}
	}
	return is.itemRepo.GetBySnapshotID(ctx, tx, rd.TenantID, snapshotID)
}

// UpdateItemName is a metadata-only edit gated by IsModifiable, which is
// broader than the structural gate: renames stay possible after publish.
func (is *itemService) UpdateItemName(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, newName string) (*types.Item, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}
	if newName == "" {
		return nil, fmt.Errorf("missing item name")
	}

	var item *types.Item
	err := runInTx(ctx, is.db, tx, func(txx *gorm.DB) error {
		var err error
		item, err = is.itemRepo.GetByID(ctx, txx, rd.TenantID, itemID)
		if err != nil {
			return fmt.Errorf("load item: %w", err)
		}
		if item == nil {
			return &domain.NotFoundError{Resource: "item", ID: itemID.String()}
		}

		snapshot, err := is.snapshotRepo.GetByIDForUpdate(ctx, txx, rd.TenantID, item.SnapshotID)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snapshot == nil {
			return &domain.NotFoundError{Resource: "snapshot", ID: item.SnapshotID.String()}
		}
		if !snapshot.IsModifiable() {
			return &domain.StateConflictError{Status: string(snapshot.Status), Action: "rename item"}
		}

		item.Name = newName
		_, err = is.itemRepo.Update(ctx, txx, item)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The ordered view carries item names.
	if is.orderCache != nil {
		is.orderCache.Invalidate(ctx, item.SnapshotID)
	}
	return item, nil
}

func (is *itemService) MoveItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, newParentID *uuid.UUID) (*types.Item, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}

	limits := LoadStructureLimits()

	var item *types.Item
	err := runInTx(ctx, is.db, tx, func(txx *gorm.DB) error {
		var err error
		item, err = is.itemRepo.GetByID(ctx, txx, rd.TenantID, itemID)
		if err != nil {
			return fmt.Errorf("load item: %w", err)
		}
		if item == nil {
			return &domain.NotFoundError{Resource: "item", ID: itemID.String()}
		}

		snapshot, err := is.snapshotRepo.GetByIDForUpdate(ctx, txx, rd.TenantID, item.SnapshotID)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snapshot == nil {
			return &domain.NotFoundError{Resource: "snapshot", ID: item.SnapshotID.String()}
		}
		if !snapshot.IsItemModifiable() {
			return &domain.StateConflictError{Status: string(snapshot.Status), Action: "move item"}
		}

		items, err := is.itemRepo.GetBySnapshotID(ctx, txx, rd.TenantID, item.SnapshotID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		// Re-read the moved item from the locked state.
		item = findItem(items, itemID)
		if item == nil {
			return &domain.NotFoundError{Resource: "item", ID: itemID.String()}
		}

		subtree := collectSubtree(items, itemID)

		newDepth := 0
		if newParentID != nil {
			parent := findItem(items, *newParentID)
			if parent == nil {
				return &domain.StructuralError{Code: domain.InvalidParent, Detail: "parent does not belong to this snapshot"}
			}
			if !parent.IsFolder() {
				return &domain.StructuralError{Code: domain.InvalidParent, Detail: "parent is not a folder"}
			}
			if _, inSubtree := subtree[*newParentID]; inSubtree {
				return &domain.StructuralError{Code: domain.InvalidParent, Detail: "cannot move an item under itself or its descendants"}
			}
			newDepth = parent.Depth + 1
		}

		// The whole moved subtree must stay inside the bound, not just the
		// moved node.
		height := subtreeHeight(subtree, item)
		if newDepth+height > limits.MaxNestingDepth {
			return &domain.StructuralError{Code: domain.MaxDepthExceeded, Detail: fmt.Sprintf("depth %d exceeds maximum %d", newDepth+height, limits.MaxNestingDepth)}
		}

		depthDelta := newDepth - item.Depth
		item.ParentID = newParentID
		item.Depth = newDepth
		item.Position = nextSiblingPosition(items, newParentID)
		if _, err := is.itemRepo.Update(ctx, txx, item); err != nil {
			return fmt.Errorf("move item: %w", err)
		}

		// Descendant depths are denormalized; recompute them eagerly in the
		// same transaction so stored depths always satisfy the parent chain
		// invariant.
		if depthDelta != 0 {
			depths := make(map[uuid.UUID]int, len(subtree)-1)
			for id, node := range subtree {
				if id == item.ID {
					continue
				}
				depths[id] = node.Depth + depthDelta
			}
			if err := is.itemRepo.UpdateDepths(ctx, txx, depths); err != nil {
				return fmt.Errorf("recompute descendant depths: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	is.log.Info("Item moved", "item_id", itemID, "snapshot_id", item.SnapshotID)
	return item, nil
}

// DeleteItem removes the item and its whole subtree. Relations that pointed
// at deleted items are left in place; traversal ignores dangling edges, and
// the cached ordered view is invalidated here so readers never serve them.
func (is *itemService) DeleteItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return fmt.Errorf("missing tenant scope")
	}

	var snapshotID uuid.UUID
	err := runInTx(ctx, is.db, tx, func(txx *gorm.DB) error {
		item, err := is.itemRepo.GetByID(ctx, txx, rd.TenantID, itemID)
		if err != nil {
			return fmt.Errorf("load item: %w", err)
		}
		if item == nil {
			return &domain.NotFoundError{Resource: "item", ID: itemID.String()}
		}
		snapshotID = item.SnapshotID

		snapshot, err := is.snapshotRepo.GetByIDForUpdate(ctx, txx, rd.TenantID, item.SnapshotID)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snapshot == nil {
			return &domain.NotFoundError{Resource: "snapshot", ID: item.SnapshotID.String()}
		}
		if !snapshot.IsItemModifiable() {
			return &domain.StateConflictError{Status: string(snapshot.Status), Action: "delete item"}
		}

		items, err := is.itemRepo.GetBySnapshotID(ctx, txx, rd.TenantID, item.SnapshotID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}

		subtree := collectSubtree(items, itemID)
		ids := make([]uuid.UUID, 0, len(subtree))
		for id := range subtree {
			ids = append(ids, id)
		}
		return is.itemRepo.DeleteByIDs(ctx, txx, ids)
	})
	if err != nil {
		return err
	}

	if is.orderCache != nil {
		is.orderCache.Invalidate(ctx, snapshotID)
	}
	is.log.Info("Item deleted with subtree", "item_id", itemID, "snapshot_id", snapshotID)
	return nil
}

func findItem(items []*types.Item, id uuid.UUID) *types.Item {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func nextSiblingPosition(items []*types.Item, parentID *uuid.UUID) int {
	next := 0
	for _, it := range items {
		if !sameParent(it.ParentID, parentID) {
			continue
		}
		if it.Position >= next {
			next = it.Position + 1
		}
	}
	return next
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// collectSubtree returns the item and all its transitive descendants, keyed
// by id. Parent pointers form a tree, so a breadth-first sweep over the
// child index terminates.
func collectSubtree(items []*types.Item, rootID uuid.UUID) map[uuid.UUID]*types.Item {
	children := make(map[uuid.UUID][]*types.Item)
	var root *types.Item
	for _, it := range items {
		if it.ID == rootID {
			root = it
		}
		if it.ParentID != nil {
			children[*it.ParentID] = append(children[*it.ParentID], it)
		}
	}

	subtree := make(map[uuid.UUID]*types.Item)
	if root == nil {
		return subtree
	}
	queue := []*types.Item{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, seen := subtree[cur.ID]; seen {
			continue
		}
		subtree[cur.ID] = cur
		queue = append(queue, children[cur.ID]...)
	}
	return subtree
}

// subtreeHeight is the number of levels below root, in terms of the stored
// (pre-move) depths.
func subtreeHeight(subtree map[uuid.UUID]*types.Item, root *types.Item) int {
	height := 0
	for _, it := range subtree {
		if it.Depth-root.Depth > height {
			height = it.Depth - root.Depth
		}
	}
	return height
}

func buildHierarchy(items []*types.Item) []*types.Item {
	children := make(map[uuid.UUID][]*types.Item)
	var roots []*types.Item
	for _, it := range items {
		it.Children = nil
		if it.ParentID == nil {
			roots = append(roots, it)
		} else {
			children[*it.ParentID] = append(children[*it.ParentID], it)
		}
	}
	sortSiblings(roots)
	for _, it := range items {
		kids := children[it.ID]
		sortSiblings(kids)
		it.Children = kids
	}
	return roots
}

func sortSiblings(items []*types.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Position < items[j].Position
	})
}
