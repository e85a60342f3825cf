package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mzcATU/mzc-lp-backend-sub001/internal/domain"
	"github.com/mzcATU/mzc-lp-backend-sub001/internal/types"
)

func orderCode(t *testing.T, err error) domain.OrderErrorCode {
	t.Helper()
	var oe *domain.OrderError
	if !errors.As(err, &oe) {
		t.Fatalf("expected order error, got %v", err)
	}
	return oe.Code
}

// chainFixture builds a draft snapshot with one folder of three lessons and
// the chain start -> a -> b -> c.
func chainFixture(t *testing.T, env *testEnv) (snapshotID uuid.UUID, a, b, c *types.Item) {
	t.Helper()
	snapshot := env.draftSnapshot(t)
	folder := env.mustCreateFolder(t, snapshot.ID, "Module 1", nil)
	a = env.mustCreateContent(t, snapshot.ID, "Lesson A", &folder.ID)
	b = env.mustCreateContent(t, snapshot.ID, "Lesson B", &folder.ID)
	c = env.mustCreateContent(t, snapshot.ID, "Lesson C", &folder.ID)

	if _, err := env.relations.SetStartItem(env.ctx, env.tx, snapshot.ID, a.ID); err != nil {
		t.Fatalf("SetStartItem: %v", err)
	}
	if _, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &a.ID, b.ID); err != nil {
		t.Fatalf("relate a -> b: %v", err)
	}
	if _, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &b.ID, c.ID); err != nil {
		t.Fatalf("relate b -> c: %v", err)
	}
	return snapshot.ID, a, b, c
}

func orderedNames(items []types.OrderedItem) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names
}

func TestStartItemYieldsSingleStepPath(t *testing.T) {
	env := newTestEnv(t)
	snapshot := env.draftSnapshot(t)
	folder := env.mustCreateFolder(t, snapshot.ID, "Module 1", nil)
	lesson := env.mustCreateContent(t, snapshot.ID, "Lesson 1", &folder.ID)

	start, err := env.relations.SetStartItem(env.ctx, env.tx, snapshot.ID, lesson.ID)
	if err != nil {
		t.Fatalf("SetStartItem: %v", err)
	}
	if !start.IsStart() || start.ToItemID != lesson.ID {
		t.Fatalf("unexpected start edge: %+v", start)
	}

	ordered, err := env.relations.GetOrderedItems(env.ctx, env.tx, snapshot.ID)
	if err != nil {
		t.Fatalf("GetOrderedItems: %v", err)
	}
	if len(ordered) != 1 || ordered[0].ItemID != lesson.ID || ordered[0].Position != 1 {
		t.Fatalf("unexpected ordered items: %+v", ordered)
	}
}

func TestOrderedItemsFollowChain(t *testing.T) {
	env := newTestEnv(t)
	snapshotID, _, _, _ := chainFixture(t, env)

	ordered, err := env.relations.GetOrderedItems(env.ctx, env.tx, snapshotID)
	if err != nil {
		t.Fatalf("GetOrderedItems: %v", err)
	}
	names := orderedNames(ordered)
	if len(names) != 3 || names[0] != "Lesson A" || names[1] != "Lesson B" || names[2] != "Lesson C" {
		t.Fatalf("unexpected order: %v", names)
	}
	for i, it := range ordered {
		if it.Position != i+1 {
			t.Fatalf("position[%d] = %d", i, it.Position)
		}
	}
}

func TestCreateRelationRejectsCycle(t *testing.T) {
	env := newTestEnv(t)
	snapshotID, a, _, c := chainFixture(t, env)
	before := len(env.relationRepo.relations)

	_, err := env.relations.CreateRelation(env.ctx, env.tx, snapshotID, &c.ID, a.ID)
	if code := orderCode(t, err); code != domain.CircularReference {
		t.Fatalf("code = %s, want %s", code, domain.CircularReference)
	}
	if !errors.Is(err, domain.ErrOrder) {
		t.Fatalf("expected order sentinel, got %v", err)
	}
	if got := len(env.relationRepo.relations); got != before {
		t.Fatalf("failed insert changed edge count: %d -> %d", before, got)
	}
}

func TestCreateRelationRejectsSecondPredecessor(t *testing.T) {
	env := newTestEnv(t)
	snapshot := env.draftSnapshot(t)
	a := env.mustCreateContent(t, snapshot.ID, "A", nil)
	b := env.mustCreateContent(t, snapshot.ID, "B", nil)
	c := env.mustCreateContent(t, snapshot.ID, "C", nil)

	if _, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &a.ID, b.ID); err != nil {
		t.Fatalf("relate a -> b: %v", err)
	}
	_, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &c.ID, b.ID)
	if code := orderCode(t, err); code != domain.AlreadyTargeted {
		t.Fatalf("code = %s, want %s", code, domain.AlreadyTargeted)
	}
}

func TestCreateRelationRejectsSecondSuccessor(t *testing.T) {
	env := newTestEnv(t)
	snapshot := env.draftSnapshot(t)
	a := env.mustCreateContent(t, snapshot.ID, "A", nil)
	b := env.mustCreateContent(t, snapshot.ID, "B", nil)
	c := env.mustCreateContent(t, snapshot.ID, "C", nil)

	if _, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &a.ID, b.ID); err != nil {
		t.Fatalf("relate a -> b: %v", err)
	}
	_, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &a.ID, c.ID)
	if code := orderCode(t, err); code != domain.AlreadySourced {
		t.Fatalf("code = %s, want %s", code, domain.AlreadySourced)
	}
}

func TestFanOutCannotShadowCycle(t *testing.T) {
	env := newTestEnv(t)
	snapshot := env.draftSnapshot(t)
	z := env.mustCreateContent(t, snapshot.ID, "Z", nil)
	p := env.mustCreateContent(t, snapshot.ID, "P", nil)
	q := env.mustCreateContent(t, snapshot.ID, "Q", nil)

	if _, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &z.ID, p.ID); err != nil {
		t.Fatalf("relate z -> p: %v", err)
	}
	// A second outgoing edge from z would shadow z -> p in the adjacency
	// map and let p -> z close a cycle unseen.
	if _, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &z.ID, q.ID); orderCode(t, err) != domain.AlreadySourced {
		t.Fatalf("fan-out from z not rejected: %v", err)
	}
	_, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &p.ID, z.ID)
	if code := orderCode(t, err); code != domain.CircularReference {
		t.Fatalf("code = %s, want %s", code, domain.CircularReference)
	}
	for _, rel := range env.relationRepo.relations {
		if rel.FromItemID != nil && *rel.FromItemID == p.ID {
			t.Fatalf("cyclic edge p -> %s was persisted", rel.ToItemID)
		}
	}
}

func TestCreateRelationRejectsFolderSource(t *testing.T) {
	env := newTestEnv(t)
	snapshot := env.draftSnapshot(t)
	folder := env.mustCreateFolder(t, snapshot.ID, "Module 1", nil)
	lesson := env.mustCreateContent(t, snapshot.ID, "Lesson 1", nil)

	_, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &folder.ID, lesson.ID)
	if code := orderCode(t, err); code != domain.InvalidSourceItem {
		t.Fatalf("code = %s, want %s", code, domain.InvalidSourceItem)
	}
}

func TestCreateRelationRejectsFolderTarget(t *testing.T) {
	env := newTestEnv(t)
	snapshot := env.draftSnapshot(t)
	folder := env.mustCreateFolder(t, snapshot.ID, "Module 1", nil)
	lesson := env.mustCreateContent(t, snapshot.ID, "Lesson 1", nil)

	_, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, &lesson.ID, folder.ID)
	if code := orderCode(t, err); code != domain.InvalidTargetItem {
		t.Fatalf("code = %s, want %s", code, domain.InvalidTargetItem)
	}
}

func TestSetStartItemRejectsFolder(t *testing.T) {
	env := newTestEnv(t)
	snapshot := env.draftSnapshot(t)
	folder := env.mustCreateFolder(t, snapshot.ID, "Module 1", nil)

	_, err := env.relations.SetStartItem(env.ctx, env.tx, snapshot.ID, folder.ID)
	if code := orderCode(t, err); code != domain.InvalidStartItem {
		t.Fatalf("code = %s, want %s", code, domain.InvalidStartItem)
	}
}

func TestSetStartItemPromotesTargetedItem(t *testing.T) {
	env := newTestEnv(t)
	snapshotID, a, b, c := chainFixture(t, env)

	start, err := env.relations.SetStartItem(env.ctx, env.tx, snapshotID, b.ID)
	if err != nil {
		t.Fatalf("SetStartItem: %v", err)
	}
	if start.ToItemID != b.ID {
		t.Fatalf("start points at %s, want %s", start.ToItemID, b.ID)
	}
	// b's old incoming edge a -> b must be gone; b -> c survives.
	for _, rel := range env.relationRepo.relations {
		if rel.FromItemID != nil && *rel.FromItemID == a.ID && rel.ToItemID == b.ID {
			t.Fatalf("stale incoming edge survived promotion")
		}
	}
	ordered, err := env.relations.GetOrderedItems(env.ctx, env.tx, snapshotID)
	if err != nil {
		t.Fatalf("GetOrderedItems: %v", err)
	}
	if len(ordered) != 2 || ordered[0].ItemID != b.ID || ordered[1].ItemID != c.ID {
		t.Fatalf("unexpected path after promotion: %v", orderedNames(ordered))
	}
}

func TestStartEdgeIsReplacedNotDuplicated(t *testing.T) {
	env := newTestEnv(t)
	snapshot := env.draftSnapshot(t)
	a := env.mustCreateContent(t, snapshot.ID, "A", nil)
	b := env.mustCreateContent(t, snapshot.ID, "B", nil)

	if _, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, nil, a.ID); err != nil {
		t.Fatalf("first start edge: %v", err)
	}
	if _, err := env.relations.CreateRelation(env.ctx, env.tx, snapshot.ID, nil, b.ID); err != nil {
		t.Fatalf("second start edge: %v", err)
	}

	starts := 0
	for _, rel := range env.relationRepo.relations {
		if rel.IsStart() {
			starts++
			if rel.ToItemID != b.ID {
				t.Fatalf("surviving start edge points at %s, want %s", rel.ToItemID, b.ID)
			}
		}
	}
	if starts != 1 {
		t.Fatalf("start edge count = %d, want 1", starts)
	}
}

func TestDeleteRelationSplitsChain(t *testing.T) {
	env := newTestEnv(t)
	snapshotID, a, b, _ := chainFixture(t, env)

	var middle *types.ItemRelation
	for _, rel := range env.relationRepo.relations {
		if rel.FromItemID != nil && *rel.FromItemID == a.ID && rel.ToItemID == b.ID {
			middle = rel
		}
	}
	if middle == nil {
		t.Fatalf("edge a -> b not found")
	}
	if err := env.relations.DeleteRelation(env.ctx, env.tx, snapshotID, middle.ID); err != nil {
		t.Fatalf("DeleteRelation: %v", err)
	}

	ordered, err := env.relations.GetOrderedItems(env.ctx, env.tx, snapshotID)
	if err != nil {
		t.Fatalf("GetOrderedItems: %v", err)
	}
	if len(ordered) != 1 || ordered[0].ItemID != a.ID {
		t.Fatalf("path after split = %v, want just Lesson A", orderedNames(ordered))
	}
}

func TestOrderedItemsStopOnDanglingEdge(t *testing.T) {
	env := newTestEnv(t)
	snapshotID, _, b, c := chainFixture(t, env)

	// Simulate an edge left behind by an item deletion.
	delete(env.itemRepo.items, c.ID)

	ordered, err := env.relations.GetOrderedItems(env.ctx, env.tx, snapshotID)
	if err != nil {
		t.Fatalf("GetOrderedItems: %v", err)
	}
	if len(ordered) != 2 || ordered[1].ItemID != b.ID {
		t.Fatalf("unexpected path past dangling edge: %v", orderedNames(ordered))
	}
}

func TestOrderItemsGuardsCorruptCycle(t *testing.T) {
	a := &types.Item{ID: uuid.New(), Name: "A", Kind: types.ItemKindContent}
	b := &types.Item{ID: uuid.New(), Name: "B", Kind: types.ItemKindContent}
	aID, bID := a.ID, b.ID
	relations := []*types.ItemRelation{
		{ID: uuid.New(), ToItemID: a.ID},
		{ID: uuid.New(), FromItemID: &aID, ToItemID: b.ID},
		{ID: uuid.New(), FromItemID: &bID, ToItemID: a.ID},
	}

	ordered := orderItems([]*types.Item{a, b}, relations)
	if len(ordered) != 2 {
		t.Fatalf("corrupt cycle produced %d steps, want 2", len(ordered))
	}
}

func TestWalkRevisits(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	line := map[uuid.UUID]uuid.UUID{a: b, b: c}
	if walkRevisits(line, a) {
		t.Fatalf("linear chain flagged as cycle")
	}
	loop := map[uuid.UUID]uuid.UUID{a: b, b: c, c: a}
	if !walkRevisits(loop, a) {
		t.Fatalf("cycle not detected")
	}
}

func TestRelationReadsOnUnknownSnapshot(t *testing.T) {
	env := newTestEnv(t)
	unknown := uuid.New()

	if _, err := env.relations.GetOrderedItems(env.ctx, env.tx, unknown); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetOrderedItems on unknown snapshot: %v", err)
	}
	if _, err := env.relations.GetRelations(env.ctx, env.tx, unknown); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetRelations on unknown snapshot: %v", err)
	}
}

func TestAutoRelateChainsTreeReadingOrder(t *testing.T) {
	env := newTestEnv(t)
	snapshot := env.draftSnapshot(t)

	m1 := env.mustCreateFolder(t, snapshot.ID, "Module 1", nil)
	env.mustCreateContent(t, snapshot.ID, "Lesson 1", &m1.ID)
	env.mustCreateContent(t, snapshot.ID, "Lesson 2", &m1.ID)
	m2 := env.mustCreateFolder(t, snapshot.ID, "Module 2", nil)
	env.mustCreateContent(t, snapshot.ID, "Lesson 3", &m2.ID)

	created, err := env.relations.AutoRelate(env.ctx, env.tx, snapshot.ID)
	if err != nil {
		t.Fatalf("AutoRelate: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("edge count = %d, want 3", len(created))
	}

	ordered, err := env.relations.GetOrderedItems(env.ctx, env.tx, snapshot.ID)
	if err != nil {
		t.Fatalf("GetOrderedItems: %v", err)
	}
	names := orderedNames(ordered)
	want := []string{"Lesson 1", "Lesson 2", "Lesson 3"}
	if len(names) != len(want) {
		t.Fatalf("ordered = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ordered = %v, want %v", names, want)
		}
	}
}

func TestRelationWritesBlockedAfterPublish(t *testing.T) {
	env := newTestEnv(t)
	snapshotID, a, b, _ := chainFixture(t, env)

	if _, err := env.snapshots.Publish(env.ctx, env.tx, snapshotID); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, err := env.relations.CreateRelation(env.ctx, env.tx, snapshotID, &b.ID, a.ID); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("create relation on active snapshot: %v", err)
	}
	if _, err := env.relations.SetStartItem(env.ctx, env.tx, snapshotID, b.ID); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("set start on active snapshot: %v", err)
	}
	if _, err := env.relations.AutoRelate(env.ctx, env.tx, snapshotID); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("auto-relate on active snapshot: %v", err)
	}

	// The resolved path stays readable.
	ordered, err := env.relations.GetOrderedItems(env.ctx, env.tx, snapshotID)
	if err != nil {
		t.Fatalf("GetOrderedItems: %v", err)
	}
	if len(ordered) != 3 {
		t.Fatalf("ordered length = %d, want 3", len(ordered))
	}
}
