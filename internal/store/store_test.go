package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsbim/bimsync/internal/model"
)

// setupTestDB opens an initialized database in a temporary directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.InitSchema())
	return db
}

func begin(t *testing.T, db *DB) *UnitOfWork {
	t.Helper()
	u, err := db.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = u.Close() })
	return u
}

func TestInitSchema_Tables(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{
		"projects", "objectives", "items", "project_items", "objective_items",
		"bim_elements", "bim_element_objectives", "dynamic_fields", "locations", "synchronizations",
	}
	for _, name := range tables {
		var count int
		err := db.RawDB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", name)
	}

	// Idempotent.
	require.NoError(t, db.InitSchema())
}

func TestUnitOfWork_CommitAndReload(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)

	u := begin(t, db)
	u.Own("p1")
	u.SaveProject(&model.Project{ID: "p1", Title: "Tower", UpdatedAt: now})
	u.SaveProject(&model.Project{ID: "m1", Title: "Tower", ExternalID: "ext-1", IsSynchronized: true, SynchronizationMateID: "p1", UpdatedAt: now})
	u.SaveObjective(&model.Objective{ID: "o1", ProjectID: "p1", Title: "Clash", Status: model.StatusOpen, DueDate: now})
	require.Len(t, u.Pending(), 3)
	require.NoError(t, u.Commit(ctx))
	assert.Empty(t, u.Pending())

	again := begin(t, db)
	assert.Len(t, again.Projects(All), 2)
	require.Len(t, again.Projects(Synchronized), 1)
	assert.Equal(t, "ext-1", again.Projects(Synchronized)[0].ExternalID)
	require.Len(t, again.Projects(Unsynchronized), 1)

	obj, ok := again.Objective("o1")
	require.True(t, ok)
	assert.True(t, obj.DueDate.Equal(now))
	assert.Equal(t, model.StatusOpen, obj.Status)
}

func TestUnitOfWork_CopiesAreIsolated(t *testing.T) {
	u := begin(t, setupTestDB(t))
	u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})

	p, _ := u.Project("p1")
	p.Title = "changed without saving"

	again, _ := u.Project("p1")
	assert.Equal(t, "Tower", again.Title)
}

func TestUnitOfWork_DetachOnlyOwner(t *testing.T) {
	u := begin(t, setupTestDB(t))

	u.Own("a")
	u.SaveProject(&model.Project{ID: "pa", Title: "A"})
	u.Own("b")
	u.SaveProject(&model.Project{ID: "pb", Title: "B"})
	u.Own("a")
	u.SaveProject(&model.Project{ID: "pa", Title: "A2"})

	u.Detach("a")

	pending := u.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].Owner)
	_, ok := u.Project("pa")
	assert.False(t, ok, "detached insert must be undone")
	_, ok = u.Project("pb")
	assert.True(t, ok)
}

func TestUnitOfWork_CommitFailure(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	u := begin(t, db)

	u.Own("good")
	u.SaveProject(&model.Project{ID: "good", Title: "Good"})
	require.NoError(t, u.Commit(ctx))

	u.Own("bad")
	u.SaveProject(&model.Project{ID: "bad", Title: ""})
	err := u.Commit(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "projects", perr.Table)
	assert.Equal(t, "bad", perr.Key)

	u.Detach("bad")
	assert.Empty(t, u.Pending())
	_, ok := u.Project("bad")
	assert.False(t, ok)

	reloaded := begin(t, db)
	assert.Len(t, reloaded.Projects(All), 1)
}

func TestUnitOfWork_ItemReferenceCounting(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	u := begin(t, db)

	u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
	u.SaveObjective(&model.Objective{ID: "o1", ProjectID: "p1", Title: "One"})
	u.SaveObjective(&model.Objective{ID: "o2", ProjectID: "p1", Title: "Two"})
	u.SaveItem(&model.Item{ID: "i1", RelativePath: "model.ifc", ItemType: model.ItemBim})
	u.LinkItem(ObjectiveOwner("o1"), "i1")
	u.LinkItem(ObjectiveOwner("o2"), "i1")
	u.LinkItem(ObjectiveOwner("o2"), "i1")
	require.NoError(t, u.Commit(ctx))
	assert.Equal(t, 2, u.ItemReferences("i1"))

	deleted := u.UnlinkItem(ObjectiveOwner("o1"), "i1")
	assert.False(t, deleted)
	require.NoError(t, u.Commit(ctx))

	reloaded := begin(t, db)
	assert.Empty(t, reloaded.ItemsOf(ObjectiveOwner("o1")))
	require.Len(t, reloaded.ItemsOf(ObjectiveOwner("o2")), 1)

	deleted = reloaded.UnlinkItem(ObjectiveOwner("o2"), "i1")
	assert.True(t, deleted)
	require.NoError(t, reloaded.Commit(ctx))

	final := begin(t, db)
	_, ok := final.Item("i1")
	assert.False(t, ok)
}

func TestUnitOfWork_LocationHoldsItem(t *testing.T) {
	u := begin(t, setupTestDB(t))
	u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
	u.SaveObjective(&model.Objective{ID: "o1", ProjectID: "p1", Title: "One"})
	u.SaveItem(&model.Item{ID: "i1", RelativePath: "model.ifc"})
	u.LinkItem(ObjectiveOwner("o1"), "i1")
	u.SaveLocation(&model.Location{ID: "l1", ObjectiveID: "o1", ItemID: "i1"})

	assert.False(t, u.UnlinkItem(ObjectiveOwner("o1"), "i1"))
	_, ok := u.Item("i1")
	assert.True(t, ok)

	u.DeleteLocation("l1")
	_, ok = u.Item("i1")
	assert.False(t, ok)
	require.NoError(t, u.Commit(context.Background()))
}

func TestUnitOfWork_BimElementReferenceCounting(t *testing.T) {
	u := begin(t, setupTestDB(t))
	u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
	u.SaveObjective(&model.Objective{ID: "o1", ProjectID: "p1", Title: "One"})
	u.SaveObjective(&model.Objective{ID: "o2", ProjectID: "p1", Title: "Two"})
	u.SaveBimElement(&model.BimElement{ID: "b1", GlobalID: "2O2Fr$t4X7Zf8NOew3FLOH", ParentName: "wall.ifc"})
	u.LinkBimElement("o1", "b1")
	u.LinkBimElement("o2", "b1")

	el, ok := u.BimElementByKey(model.BimKey{GlobalID: "2O2Fr$t4X7Zf8NOew3FLOH", ParentName: "wall.ifc"})
	require.True(t, ok)
	assert.Equal(t, "b1", el.ID)

	assert.False(t, u.UnlinkBimElement("o1", "b1"))
	assert.Len(t, u.BimElementsOf("o2"), 1)
	assert.True(t, u.UnlinkBimElement("o2", "b1"))
	require.NoError(t, u.Commit(context.Background()))
}

func TestUnitOfWork_DeleteObjectiveTree(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	u := begin(t, db)

	u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
	u.SaveObjective(&model.Objective{ID: "root", ProjectID: "p1", Title: "Root"})
	u.SaveObjective(&model.Objective{ID: "child", ProjectID: "p1", ParentObjectiveID: "root", Title: "Child"})
	u.SaveObjective(&model.Objective{ID: "leaf", ProjectID: "p1", ParentObjectiveID: "child", Title: "Leaf"})
	u.SaveDynamicField(&model.DynamicField{ID: "f1", ObjectiveID: "child", Name: "group"})
	u.SaveDynamicField(&model.DynamicField{ID: "f2", ObjectiveID: "child", ParentFieldID: "f1", Name: "value"})
	require.NoError(t, u.Commit(ctx))

	u.DeleteObjectiveTree("root")
	require.NoError(t, u.Commit(ctx))

	reloaded := begin(t, db)
	assert.Empty(t, reloaded.Objectives(All))
	_, ok := reloaded.DynamicField("f2")
	assert.False(t, ok)
}

func TestUnitOfWork_DeleteObjectiveOrphansChildren(t *testing.T) {
	u := begin(t, setupTestDB(t))
	u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
	u.SaveObjective(&model.Objective{ID: "root", ProjectID: "p1", Title: "Root"})
	u.SaveObjective(&model.Objective{ID: "child", ProjectID: "p1", ParentObjectiveID: "root", Title: "Child"})

	u.DeleteObjective("root")

	child, ok := u.Objective("child")
	require.True(t, ok)
	assert.Empty(t, child.ParentObjectiveID)
	require.NoError(t, u.Commit(context.Background()))
}

func TestUnitOfWork_RollbackAndClose(t *testing.T) {
	u := begin(t, setupTestDB(t))
	u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
	u.Rollback()
	assert.Empty(t, u.Pending())
	_, ok := u.Project("p1")
	assert.False(t, ok)

	require.NoError(t, u.Close())
	assert.ErrorIs(t, u.Commit(context.Background()), ErrClosed)
}

func TestSynchronizationHistory(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	last, err := db.LastSynchronizationContext(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, last)

	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	require.NoError(t, db.RecordSynchronizationContext(ctx, "user-1", first))
	require.NoError(t, db.RecordSynchronizationContext(ctx, "user-1", second))
	require.NoError(t, db.RecordSynchronizationContext(ctx, "user-2", second.Add(time.Hour)))

	last, err = db.LastSynchronizationContext(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(second))

	assert.Error(t, db.RecordSynchronizationContext(ctx, "", first))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	u := begin(t, db)
	u.SaveProject(&model.Project{ID: "p1", Title: "Synced", SynchronizationMateID: "m1"})
	u.SaveProject(&model.Project{ID: "m1", Title: "Synced", IsSynchronized: true, SynchronizationMateID: "p1"})
	u.SaveProject(&model.Project{ID: "p2", Title: "New"})
	require.NoError(t, u.Commit(ctx))

	stats, err := db.StatsContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Projects)
	assert.Equal(t, 1, stats.ProjectMirrors)
	assert.Equal(t, 1, stats.UnsyncedProjects)
}

func TestClose_ReturnsCheckpointError(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())

	// The pool is gone underneath, so the WAL checkpoint cannot run.
	require.NoError(t, db.RawDB().Close())

	err = db.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to checkpoint WAL")
	assert.NoError(t, db.Close(), "a closed database closes again without error")
}

func TestClose_Clean(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	assert.NoError(t, db.Close())
}
