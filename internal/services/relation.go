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

// RelationsView is the editing-UI shape: the raw edge list plus the resolved
// ordered sequence they produce.
type RelationsView struct {
	Relations    []*types.ItemRelation `json:"relations"`
	OrderedItems []types.OrderedItem   `json:"ordered_items"`
}

type RelationService interface {
	CreateRelation(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID, fromItemID *uuid.UUID, toItemID uuid.UUID) (*types.ItemRelation, error)
	SetStartItem(ctx context.Context, tx *gorm.DB, snapshotID, itemID uuid.UUID) (*types.ItemRelation, error)
	DeleteRelation(ctx context.Context, tx *gorm.DB, snapshotID, relationID uuid.UUID) error
	GetRelations(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*RelationsView, error)
	GetOrderedItems(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]types.OrderedItem, error)
	AutoRelate(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]*types.ItemRelation, error)
}

type relationService struct {
	db           *gorm.DB
	log          *logger.Logger
	snapshotRepo repos.SnapshotRepo
	itemRepo     repos.ItemRepo
	relationRepo repos.ItemRelationRepo
	orderCache   OrderedItemsCache
}

func NewRelationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	snapshotRepo repos.SnapshotRepo,
	itemRepo repos.ItemRepo,
	relationRepo repos.ItemRelationRepo,
	orderCache OrderedItemsCache,
) RelationService {
	return &relationService{
		db:           db,
		log:          baseLog.With("service", "RelationService"),
		snapshotRepo: snapshotRepo,
		itemRepo:     itemRepo,
		relationRepo: relationRepo,
		orderCache:   orderCache,
	}
}

func (rs *relationService) CreateRelation(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID, fromItemID *uuid.UUID, toItemID uuid.UUID) (*types.ItemRelation, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}
	if toItemID == uuid.Nil {
		return nil, fmt.Errorf("missing target item id")
	}

	var relation *types.ItemRelation
	err := runInTx(ctx, rs.db, tx, func(txx *gorm.DB) error {
		_, items, relations, err := rs.loadAggregateForUpdate(ctx, txx, rd.TenantID, snapshotID, "create relation")
		if err != nil {
			return err
		}

		to := findItem(items, toItemID)
		if to == nil {
			return &domain.NotFoundError{Resource: "item", ID: toItemID.String()}
		}
		if !to.IsContent() {
			return &domain.OrderError{Code: domain.InvalidTargetItem, Detail: "folders are not traversable learning steps"}
		}

		if fromItemID == nil {
			// Defining the start edge through createRelation replaces any
			// existing one; exactly one survives.
			var oldStartID *uuid.UUID
			for _, rel := range relations {
				if rel.IsStart() {
					id := rel.ID
					oldStartID = &id
					break
				}
			}
			for _, rel := range relations {
				if oldStartID != nil && rel.ID == *oldStartID {
					continue
				}
				if rel.ToItemID == toItemID {
					return &domain.OrderError{Code: domain.AlreadyTargeted, Detail: fmt.Sprintf("item %s already has a predecessor", toItemID)}
				}
			}
			if oldStartID != nil {
				if err := rs.relationRepo.DeleteByIDs(ctx, txx, []uuid.UUID{*oldStartID}); err != nil {
					return fmt.Errorf("replace start edge: %w", err)
				}
			}
		} else {
			from := findItem(items, *fromItemID)
			if from == nil {
				return &domain.NotFoundError{Resource: "item", ID: fromItemID.String()}
			}
			if !from.IsContent() {
				return &domain.OrderError{Code: domain.InvalidSourceItem, Detail: "folders are not traversable learning steps"}
			}
			// One incoming and one outgoing edge per node. The outgoing
			// bound matters for correctness, not just shape: the cycle walk
			// below assumes every node has a single successor, so a fan-out
			// edge would let a cycle through the shadowed branch go
			// undetected.
			for _, rel := range relations {
				if rel.ToItemID == toItemID {
					return &domain.OrderError{Code: domain.AlreadyTargeted, Detail: fmt.Sprintf("item %s already has a predecessor", toItemID)}
				}
				if rel.FromItemID != nil && *rel.FromItemID == *fromItemID {
					return &domain.OrderError{Code: domain.AlreadySourced, Detail: fmt.Sprintf("item %s already has a successor", fromItemID)}
				}
			}
			adjacency := buildAdjacency(relations)
			adjacency[*fromItemID] = toItemID
			if walkRevisits(adjacency, toItemID) {
				return &domain.OrderError{Code: domain.CircularReference, Detail: "relation would close a cycle"}
			}
		}

		relation = &types.ItemRelation{
			ID:         uuid.New(),
			TenantID:   rd.TenantID,
			SnapshotID: snapshotID,
			FromItemID: fromItemID,
			ToItemID:   toItemID,
		}
		_, err = rs.relationRepo.Create(ctx, txx, relation)
		return err
	})
	if err != nil {
		return nil, err
	}

	if rs.orderCache != nil {
		rs.orderCache.Invalidate(ctx, snapshotID)
	}
	return relation, nil
}

// SetStartItem points the start edge at the given content item. If the item
// currently has a predecessor that edge is removed (the item is being
// promoted to the front), and an existing start edge is re-pointed in place
// rather than deleted and recreated.
func (rs *relationService) SetStartItem(ctx context.Context, tx *gorm.DB, snapshotID, itemID uuid.UUID) (*types.ItemRelation, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}

	var start *types.ItemRelation
	err := runInTx(ctx, rs.db, tx, func(txx *gorm.DB) error {
		_, items, relations, err := rs.loadAggregateForUpdate(ctx, txx, rd.TenantID, snapshotID, "set start item")
		if err != nil {
			return err
		}

		item := findItem(items, itemID)
		if item == nil {
			return &domain.NotFoundError{Resource: "item", ID: itemID.String()}
		}
		if !item.IsContent() {
			return &domain.OrderError{Code: domain.InvalidStartItem, Detail: "start item must be a content item"}
		}

		var incoming []uuid.UUID
		for _, rel := range relations {
			if rel.IsStart() {
				start = rel
				continue
			}
			if rel.ToItemID == itemID {
				incoming = append(incoming, rel.ID)
			}
		}
		if err := rs.relationRepo.DeleteByIDs(ctx, txx, incoming); err != nil {
			return fmt.Errorf("remove old incoming edge: %w", err)
		}

		if start != nil {
			start.ToItemID = itemID
			_, err = rs.relationRepo.Update(ctx, txx, start)
			return err
		}
		start = &types.ItemRelation{
			ID:         uuid.New(),
			TenantID:   rd.TenantID,
			SnapshotID: snapshotID,
			ToItemID:   itemID,
		}
		_, err = rs.relationRepo.Create(ctx, txx, start)
		return err
	})
	if err != nil {
		return nil, err
	}

	if rs.orderCache != nil {
		rs.orderCache.Invalidate(ctx, snapshotID)
	}
	return start, nil
}

// DeleteRelation removes one edge unconditionally. Removing a middle edge
// splits the chain; re-linking the pieces is the caller's job.
func (rs *relationService) DeleteRelation(ctx context.Context, tx *gorm.DB, snapshotID, relationID uuid.UUID) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return fmt.Errorf("missing tenant scope")
	}

	err := runInTx(ctx, rs.db, tx, func(txx *gorm.DB) error {
		snapshot, err := rs.snapshotRepo.GetByIDForUpdate(ctx, txx, rd.TenantID, snapshotID)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snapshot == nil {
			return &domain.NotFoundError{Resource: "snapshot", ID: snapshotID.String()}
		}
		if !snapshot.IsItemModifiable() {
			return &domain.StateConflictError{Status: string(snapshot.Status), Action: "delete relation"}
		}

		relation, err := rs.relationRepo.GetByID(ctx, txx, rd.TenantID, relationID)
		if err != nil {
			return fmt.Errorf("load relation: %w", err)
		}
		if relation == nil || relation.SnapshotID != snapshotID {
			return &domain.NotFoundError{Resource: "relation", ID: relationID.String()}
		}
		return rs.relationRepo.DeleteByIDs(ctx, txx, []uuid.UUID{relationID})
	})
	if err != nil {
		return err
	}

	if rs.orderCache != nil {
		rs.orderCache.Invalidate(ctx, snapshotID)
	}
	return nil
}

func (rs *relationService) GetRelations(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) (*RelationsView, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}
	if err := rs.checkSnapshotExists(ctx, tx, rd.TenantID, snapshotID); err != nil {
		return nil, err
	}

	items, err := rs.itemRepo.GetBySnapshotID(ctx, tx, rd.TenantID, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	relations, err := rs.relationRepo.GetBySnapshotID(ctx, tx, rd.TenantID, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}
	return &RelationsView{
		Relations:    relations,
		OrderedItems: orderItems(items, relations),
	}, nil
}

// GetOrderedItems resolves the learning path to the finite sequence the
// delivery domain navigates. Pure read: concurrent calls are safe and the
// result is a function of the last committed state.
func (rs *relationService) GetOrderedItems(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]types.OrderedItem, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}

	// The existence check runs before the cache: cache keys carry no tenant,
	// so this is also what keeps one tenant from reading another's entry.
	if err := rs.checkSnapshotExists(ctx, tx, rd.TenantID, snapshotID); err != nil {
		return nil, err
	}

	if rs.orderCache != nil {
		if cached, ok := rs.orderCache.Get(ctx, snapshotID); ok {
			return cached, nil
		}
	}

	items, err := rs.itemRepo.GetBySnapshotID(ctx, tx, rd.TenantID, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	relations, err := rs.relationRepo.GetBySnapshotID(ctx, tx, rd.TenantID, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}

	ordered := orderItems(items, relations)
	if rs.orderCache != nil {
		rs.orderCache.Set(ctx, snapshotID, ordered)
	}
	return ordered, nil
}

// AutoRelate rebuilds the whole chain from the tree's natural reading order:
// depth-first over folders, content items chained as encountered. Existing
// relations are replaced.
func (rs *relationService) AutoRelate(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]*types.ItemRelation, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return nil, fmt.Errorf("missing tenant scope")
	}

	var created []*types.ItemRelation
	err := runInTx(ctx, rs.db, tx, func(txx *gorm.DB) error {
		_, items, relations, err := rs.loadAggregateForUpdate(ctx, txx, rd.TenantID, snapshotID, "auto-relate items")
		if err != nil {
			return err
		}

		oldIDs := make([]uuid.UUID, 0, len(relations))
		for _, rel := range relations {
			oldIDs = append(oldIDs, rel.ID)
		}
		if err := rs.relationRepo.DeleteByIDs(ctx, txx, oldIDs); err != nil {
			return fmt.Errorf("clear relations: %w", err)
		}

		sequence := contentItemsInReadingOrder(items)
		var prev *uuid.UUID
		for _, it := range sequence {
			rel := &types.ItemRelation{
				ID:         uuid.New(),
				TenantID:   rd.TenantID,
				SnapshotID: snapshotID,
				FromItemID: prev,
				ToItemID:   it.ID,
			}
			if _, err := rs.relationRepo.Create(ctx, txx, rel); err != nil {
				return fmt.Errorf("create relation: %w", err)
			}
			created = append(created, rel)
			itemID := it.ID
			prev = &itemID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rs.orderCache != nil {
		rs.orderCache.Invalidate(ctx, snapshotID)
	}
	rs.log.Info("Relations rebuilt from tree order", "snapshot_id", snapshotID, "edges", len(created))
	return created, nil
}

func (rs *relationService) checkSnapshotExists(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) error {
	snapshot, err := rs.snapshotRepo.GetByID(ctx, tx, tenantID, snapshotID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snapshot == nil {
		return &domain.NotFoundError{Resource: "snapshot", ID: snapshotID.String()}
	}
	return nil
}

// loadAggregateForUpdate locks the snapshot row and loads the aggregate
// state every structural relation write validates against.
func (rs *relationService) loadAggregateForUpdate(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID, action string) (*types.Snapshot, []*types.Item, []*types.ItemRelation, error) {
	snapshot, err := rs.snapshotRepo.GetByIDForUpdate(ctx, tx, tenantID, snapshotID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, nil, nil, &domain.NotFoundError{Resource: "snapshot", ID: snapshotID.String()}
	}
	if !snapshot.IsItemModifiable() {
		return nil, nil, nil, &domain.StateConflictError{Status: string(snapshot.Status), Action: action}
	}

	items, err := rs.itemRepo.GetBySnapshotID(ctx, tx, tenantID, snapshotID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load items: %w", err)
	}
	relations, err := rs.relationRepo.GetBySnapshotID(ctx, tx, tenantID, snapshotID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load relations: %w", err)
	}
	return snapshot, items, relations, nil
}

// buildAdjacency indexes non-start edges as from -> to. One incoming and one
// outgoing edge per node are enforced on insert, so values are single
// successors, not sets.
func buildAdjacency(relations []*types.ItemRelation) map[uuid.UUID]uuid.UUID {
	adjacency := make(map[uuid.UUID]uuid.UUID, len(relations))
	for _, rel := range relations {
		if rel.FromItemID == nil {
			continue
		}
		adjacency[*rel.FromItemID] = rel.ToItemID
	}
	return adjacency
}

// walkRevisits forward-walks from start and reports whether any node is
// seen twice before the walk runs off the end. Because every node has at
// most one incoming edge, this linear walk is a complete cycle check; no
// general graph machinery is needed.
func walkRevisits(adjacency map[uuid.UUID]uuid.UUID, start uuid.UUID) bool {
	visited := make(map[uuid.UUID]bool, len(adjacency))
	cur := start
	for {
		if visited[cur] {
			return true
		}
		visited[cur] = true
		next, ok := adjacency[cur]
		if !ok {
			return false
		}
		cur = next
	}
}

// orderItems resolves the chain into positions 1..n. Persisted data is
// acyclic by construction, but the visited guard keeps traversal finite on
// corrupt data, and edges pointing at deleted items end the walk.
func orderItems(items []*types.Item, relations []*types.ItemRelation) []types.OrderedItem {
	itemsByID := make(map[uuid.UUID]*types.Item, len(items))
	for _, it := range items {
		itemsByID[it.ID] = it
	}

	var start *types.ItemRelation
	next := make(map[uuid.UUID]*types.ItemRelation, len(relations))
	for _, rel := range relations {
		if rel.FromItemID == nil {
			if start == nil {
				start = rel
			}
			continue
		}
		next[*rel.FromItemID] = rel
	}

	ordered := []types.OrderedItem{}
	if start == nil {
		return ordered
	}

	visited := make(map[uuid.UUID]bool, len(items))
	cur := start.ToItemID
	for {
		item, ok := itemsByID[cur]
		if !ok || visited[cur] {
			break
		}
		visited[cur] = true
		ordered = append(ordered, types.OrderedItem{
			ItemID:   cur,
			Name:     item.Name,
			Position: len(ordered) + 1,
		})
		rel, ok := next[cur]
		if !ok {
			break
		}
		cur = rel.ToItemID
	}
	return ordered
}

// contentItemsInReadingOrder walks the tree depth-first with siblings in
// position order and returns the content leaves in the order encountered.
func contentItemsInReadingOrder(items []*types.Item) []*types.Item {
	children := make(map[uuid.UUID][]*types.Item)
	var roots []*types.Item
	for _, it := range items {
		if it.ParentID == nil {
			roots = append(roots, it)
		} else {
			children[*it.ParentID] = append(children[*it.ParentID], it)
		}
	}
	byPosition := func(list []*types.Item) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Position < list[j].Position })
	}
	byPosition(roots)
	for id := range children {
		byPosition(children[id])
	}

	var sequence []*types.Item
	var walk func(nodes []*types.Item)
	walk = func(nodes []*types.Item) {
		for _, n := range nodes {
			if n.IsContent() {
				sequence = append(sequence, n)
			}
			walk(children[n.ID])
		}
	}
	walk(roots)
	return sequence
}
