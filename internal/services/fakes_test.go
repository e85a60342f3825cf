package services

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/logger"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/requestdata"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

// testEnv wires the services against in-memory fakes. A non-nil dummy tx is
// passed on every call so runInTx stays on the caller-transaction path and
// gorm is never touched.
type testEnv struct {
	ctx      context.Context
	tx       *gorm.DB
	tenantID uuid.UUID
	userID   uuid.UUID

	snapshotRepo *fakeSnapshotRepo
	itemRepo     *fakeItemRepo
	refRepo      *fakeRefRepo
	relationRepo *fakeRelationRepo
	courseRepo   *fakeCourseRepo

	snapshots SnapshotService
	items     ItemService
	relations RelationService
}

func mustLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := mustLogger(t)

	env := &testEnv{
		tx:           &gorm.DB{},
		tenantID:     uuid.New(),
		userID:       uuid.New(),
		snapshotRepo: newFakeSnapshotRepo(),
		itemRepo:     newFakeItemRepo(),
		refRepo:      newFakeRefRepo(),
		relationRepo: newFakeRelationRepo(),
		courseRepo:   newFakeCourseRepo(),
	}
	env.ctx = requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		TenantID: env.tenantID,
		UserID:   env.userID,
	})
	env.snapshots = NewSnapshotService(nil, log, env.snapshotRepo, env.itemRepo, env.refRepo, env.courseRepo)
	env.items = NewItemService(nil, log, env.snapshotRepo, env.itemRepo, env.refRepo, nil)
	env.relations = NewRelationService(nil, log, env.snapshotRepo, env.itemRepo, env.relationRepo, nil)
	return env
}

func (env *testEnv) draftSnapshot(t *testing.T) *types.Snapshot {
	t.Helper()
	snapshot, err := env.snapshots.CreateDirect(env.ctx, env.tx, "Go Fundamentals", "intro track", []string{"go"})
	if err != nil {
		t.Fatalf("CreateDirect: %v", err)
	}
	return snapshot
}

func (env *testEnv) mustCreateFolder(t *testing.T, snapshotID uuid.UUID, name string, parentID *uuid.UUID) *types.Item {
	t.Helper()
	item, err := env.items.CreateItem(env.ctx, env.tx, snapshotID, CreateItemInput{
		Name:     name,
		Kind:     types.ItemKindFolder,
		ParentID: parentID,
	})
	if err != nil {
		t.Fatalf("create folder %q: %v", name, err)
	}
	return item
}

func (env *testEnv) mustCreateContent(t *testing.T, snapshotID uuid.UUID, name string, parentID *uuid.UUID) *types.Item {
	t.Helper()
	item, err := env.items.CreateItem(env.ctx, env.tx, snapshotID, CreateItemInput{
		Name:     name,
		Kind:     types.ItemKindContent,
		ParentID: parentID,
		LearningObject: &LearningObjectInput{
			ContentID: uuid.New(),
			Name:      name,
		},
		ContentItemType: "lesson",
	})
	if err != nil {
		t.Fatalf("create content %q: %v", name, err)
	}
	return item
}

// In-memory repo fakes. The tx argument is ignored: unit tests exercise the
// service invariants, not gorm.

type fakeSnapshotRepo struct {
	snapshots map[uuid.UUID]*types.Snapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[uuid.UUID]*types.Snapshot)}
}

func (f *fakeSnapshotRepo) Create(ctx context.Context, tx *gorm.DB, snapshot *types.Snapshot) (*types.Snapshot, error) {
	f.snapshots[snapshot.ID] = snapshot
	return snapshot, nil
}

func (f *fakeSnapshotRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) (*types.Snapshot, error) {
	s, ok := f.snapshots[snapshotID]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	return s, nil
}

func (f *fakeSnapshotRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) (*types.Snapshot, error) {
	return f.GetByID(ctx, tx, tenantID, snapshotID)
}

func (f *fakeSnapshotRepo) GetByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Snapshot, error) {
	var out []*types.Snapshot
	for _, s := range f.snapshots {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSnapshotRepo) Update(ctx context.Context, tx *gorm.DB, snapshot *types.Snapshot) (*types.Snapshot, error) {
	f.snapshots[snapshot.ID] = snapshot
	return snapshot, nil
}

type fakeItemRepo struct {
	items map[uuid.UUID]*types.Item
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[uuid.UUID]*types.Item)}
}

func (f *fakeItemRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.Item) ([]*types.Item, error) {
	for _, it := range items {
		f.items[it.ID] = it
	}
	return items, nil
}

func (f *fakeItemRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, itemID uuid.UUID) (*types.Item, error) {
	it, ok := f.items[itemID]
	if !ok || it.TenantID != tenantID {
		return nil, nil
	}
	return it, nil
}

func (f *fakeItemRepo) GetBySnapshotID(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) ([]*types.Item, error) {
	var out []*types.Item
	for _, it := range f.items {
		if it.TenantID == tenantID && it.SnapshotID == snapshotID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (f *fakeItemRepo) Update(ctx context.Context, tx *gorm.DB, item *types.Item) (*types.Item, error) {
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeItemRepo) UpdateDepths(ctx context.Context, tx *gorm.DB, depths map[uuid.UUID]int) error {
	for id, depth := range depths {
		if it, ok := f.items[id]; ok {
			it.Depth = depth
		}
	}
	return nil
}

func (f *fakeItemRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) error {
	for _, id := range itemIDs {
		delete(f.items, id)
	}
	return nil
}

type fakeRefRepo struct {
	refs map[uuid.UUID]*types.LearningObjectRef
}

func newFakeRefRepo() *fakeRefRepo {
	return &fakeRefRepo{refs: make(map[uuid.UUID]*types.LearningObjectRef)}
}

func (f *fakeRefRepo) Create(ctx context.Context, tx *gorm.DB, refs []*types.LearningObjectRef) ([]*types.LearningObjectRef, error) {
	for _, r := range refs {
		f.refs[r.ID] = r
	}
	return refs, nil
}

func (f *fakeRefRepo) GetByIDs(ctx context.Context, tx *gorm.DB, refIDs []uuid.UUID) ([]*types.LearningObjectRef, error) {
	var out []*types.LearningObjectRef
	for _, id := range refIDs {
		if r, ok := f.refs[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeRelationRepo keeps a slice so edge order is stable across calls.
type fakeRelationRepo struct {
	relations []*types.ItemRelation
}

func newFakeRelationRepo() *fakeRelationRepo {
	return &fakeRelationRepo{}
}

func (f *fakeRelationRepo) Create(ctx context.Context, tx *gorm.DB, relation *types.ItemRelation) (*types.ItemRelation, error) {
	f.relations = append(f.relations, relation)
	return relation, nil
}

func (f *fakeRelationRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, relationID uuid.UUID) (*types.ItemRelation, error) {
	for _, r := range f.relations {
		if r.ID == relationID && r.TenantID == tenantID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRelationRepo) GetBySnapshotID(ctx context.Context, tx *gorm.DB, tenantID, snapshotID uuid.UUID) ([]*types.ItemRelation, error) {
	var out []*types.ItemRelation
	for _, r := range f.relations {
		if r.TenantID == tenantID && r.SnapshotID == snapshotID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRelationRepo) Update(ctx context.Context, tx *gorm.DB, relation *types.ItemRelation) (*types.ItemRelation, error) {
	for i, r := range f.relations {
		if r.ID == relation.ID {
			f.relations[i] = relation
			return relation, nil
		}
	}
	f.relations = append(f.relations, relation)
	return relation, nil
}

func (f *fakeRelationRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, relationIDs []uuid.UUID) error {
	drop := make(map[uuid.UUID]bool, len(relationIDs))
	for _, id := range relationIDs {
		drop[id] = true
	}
	kept := f.relations[:0]
	for _, r := range f.relations {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	f.relations = kept
	return nil
}

type fakeCourseRepo struct {
	courses map[uuid.UUID]*types.Course
	items   map[uuid.UUID][]*types.CourseItem
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{
		courses: make(map[uuid.UUID]*types.Course),
		items:   make(map[uuid.UUID][]*types.CourseItem),
	}
}

func (f *fakeCourseRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, courseID uuid.UUID) (*types.Course, error) {
	c, ok := f.courses[courseID]
	if !ok || c.TenantID != tenantID {
		return nil, nil
	}
	return c, nil
}

func (f *fakeCourseRepo) GetItemsOrdered(ctx context.Context, tx *gorm.DB, tenantID, courseID uuid.UUID) ([]*types.CourseItem, error) {
	out := append([]*types.CourseItem{}, f.items[courseID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}
