package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/connection/memory"
	"github.com/mrsbim/bimsync/internal/model"
	"github.com/mrsbim/bimsync/internal/store"
)

type fixture struct {
	t      *testing.T
	db     *store.DB
	remote *memory.Remote
	syncer *Synchronizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.InitSchema())

	n := 0
	return &fixture{
		t:      t,
		db:     db,
		remote: memory.New(),
		syncer: New(db, &Options{NewID: func() string {
			n++
			return fmt.Sprintf("row-%04d", n)
		}}),
	}
}

func (f *fixture) sync(run RunConfig) []Result {
	f.t.Helper()
	results, err := f.syncer.Synchronize(context.Background(), run, f.remote, connection.Info{Type: memory.Type}, nil)
	require.NoError(f.t, err)
	return results
}

// edit applies fn to a fresh unit of work and commits it.
func (f *fixture) edit(fn func(u *store.UnitOfWork)) {
	f.t.Helper()
	u, err := f.db.Begin(context.Background())
	require.NoError(f.t, err)
	defer u.Close()
	fn(u)
	require.NoError(f.t, u.Commit(context.Background()))
}

// view returns a fresh snapshot of the database.
func (f *fixture) view() *store.UnitOfWork {
	f.t.Helper()
	u, err := f.db.Begin(context.Background())
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = u.Close() })
	return u
}

func (f *fixture) project(id string) *model.Project {
	f.t.Helper()
	p, ok := f.view().Project(id)
	require.True(f.t, ok, "project %s", id)
	return p
}

func (f *fixture) objective(id string) *model.Objective {
	f.t.Helper()
	o, ok := f.view().Objective(id)
	require.True(f.t, ok, "objective %s", id)
	return o
}

func (f *fixture) remoteObjective(externalID string) *model.ObjectiveExternal {
	f.t.Helper()
	rec, ok := f.remote.ObjectiveStore.Record(externalID)
	require.True(f.t, ok, "remote objective %s", externalID)
	return rec
}

// seedSynced creates project p1 with objective o1 and synchronizes them.
func (f *fixture) seedSynced(extra func(u *store.UnitOfWork)) {
	f.t.Helper()
	f.edit(func(u *store.UnitOfWork) {
		u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
		u.SaveObjective(&model.Objective{
			ID:          "o1",
			ProjectID:   "p1",
			Title:       "Clash",
			Description: "d0",
			Status:      model.StatusOpen,
			DueDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		if extra != nil {
			extra(u)
		}
	})
	require.Empty(f.t, f.sync(RunConfig{}))
}

func TestSynchronize_AddToRemote(t *testing.T) {
	f := newFixture(t)
	f.seedSynced(nil)

	p := f.project("p1")
	require.NotEmpty(t, p.ExternalID)
	mirror := f.project(p.SynchronizationMateID)
	assert.True(t, mirror.IsSynchronized)
	assert.Equal(t, p.ExternalID, mirror.ExternalID)
	assert.Equal(t, "p1", mirror.SynchronizationMateID)

	rp, ok := f.remote.ProjectStore.Record(p.ExternalID)
	require.True(t, ok)
	assert.Equal(t, "Tower", rp.Title)

	o := f.objective("o1")
	require.NotEmpty(t, o.ExternalID)
	ro := f.remoteObjective(o.ExternalID)
	assert.Equal(t, "Clash", ro.Title)
	assert.Equal(t, p.ExternalID, ro.ProjectExternalID)

	mo := f.objective(o.SynchronizationMateID)
	assert.Equal(t, mirror.ID, mo.ProjectID, "mirror objectives belong to mirror projects")
}

func TestSynchronize_AddToLocal(t *testing.T) {
	f := newFixture(t)
	rp := f.remote.ProjectStore.Put(&model.ProjectExternal{ExternalID: "P1", Title: "Remote tower"})
	f.remote.ObjectiveStore.Put(&model.ObjectiveExternal{
		ExternalID:        "O1",
		ProjectExternalID: rp.ExternalID,
		Title:             "Remote clash",
		Status:            model.StatusInProgress,
	})

	assert.Empty(t, f.sync(RunConfig{}))

	v := f.view()
	locals := v.Projects(store.Unsynchronized)
	require.Len(t, locals, 1)
	assert.Equal(t, "Remote tower", locals[0].Title)
	assert.Equal(t, "P1", locals[0].ExternalID)
	require.Len(t, v.Projects(store.Synchronized), 1)

	objs := v.Objectives(store.Unsynchronized)
	require.Len(t, objs, 1)
	assert.Equal(t, "Remote clash", objs[0].Title)
	assert.Equal(t, locals[0].ID, objs[0].ProjectID)
	assert.Equal(t, model.StatusInProgress, objs[0].Status)

	mirror, ok := v.Objective(objs[0].SynchronizationMateID)
	require.True(t, ok)
	assert.Equal(t, locals[0].SynchronizationMateID, mirror.ProjectID)

	assert.Empty(t, f.remote.ProjectStore.Calls("add"))
	assert.Empty(t, f.remote.ObjectiveStore.Calls("add"))
}

func TestSynchronize_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedSynced(func(u *store.UnitOfWork) {
		u.SaveItem(&model.Item{ID: "i1", RelativePath: "model.ifc", ItemType: model.ItemBim})
		u.LinkItem(store.ProjectOwner("p1"), "i1")
		u.LinkItem(store.ObjectiveOwner("o1"), "i1")
		u.SaveLocation(&model.Location{ID: "l1", ObjectiveID: "o1", ItemID: "i1", Position: model.Vector3{X: 1}})
		u.SaveDynamicField(&model.DynamicField{ID: "f1", ObjectiveID: "o1", Type: "string", Name: "Color", Value: "red"})
		u.SaveBimElement(&model.BimElement{ID: "b1", GlobalID: "G1", ParentName: "model.ifc"})
		u.LinkBimElement("o1", "b1")
	})
	f.remote.ProjectStore.ResetCalls()
	f.remote.ObjectiveStore.ResetCalls()

	assert.Empty(t, f.sync(RunConfig{}))

	for _, op := range []string{"add", "update", "remove"} {
		assert.Empty(t, f.remote.ProjectStore.Calls(op), "project %s", op)
		assert.Empty(t, f.remote.ObjectiveStore.Calls(op), "objective %s", op)
	}
	o := f.objective("o1")
	mo := f.objective(o.SynchronizationMateID)
	ro := f.remoteObjective(o.ExternalID)
	assert.Equal(t, ro.Title, o.Title)
	assert.Equal(t, ro.Title, mo.Title)
}

func TestSynchronize_RemoteDeletion(t *testing.T) {
	f := newFixture(t)
	f.seedSynced(nil)
	p := f.project("p1")
	o := f.objective("o1")

	f.remote.ObjectiveStore.Delete(o.ExternalID)
	assert.Empty(t, f.sync(RunConfig{}))

	v := f.view()
	_, ok := v.Objective("o1")
	assert.False(t, ok)
	_, ok = v.Objective(o.SynchronizationMateID)
	assert.False(t, ok)
	_, ok = v.Project(p.ID)
	assert.True(t, ok, "the project is untouched")
}

func TestSynchronize_RemoteProjectDeletionCascades(t *testing.T) {
	f := newFixture(t)
	f.seedSynced(nil)
	p := f.project("p1")

	f.remote.ProjectStore.Delete(p.ExternalID)
	assert.Empty(t, f.sync(RunConfig{}))

	v := f.view()
	assert.Empty(t, v.Projects(store.All))
	assert.Empty(t, v.Objectives(store.All), "objectives of the project go with it")
	assert.Equal(t, 1, f.remote.ObjectiveStore.Len(), "remote objectives are not touched")
}

func TestSynchronize_LocalDeletion(t *testing.T) {
	f := newFixture(t)
	f.seedSynced(nil)
	o := f.objective("o1")

	f.edit(func(u *store.UnitOfWork) { u.DeleteObjective("o1") })
	assert.Empty(t, f.sync(RunConfig{}))

	_, ok := f.remote.ObjectiveStore.Record(o.ExternalID)
	assert.False(t, ok)
	_, ok = f.view().Objective(o.SynchronizationMateID)
	assert.False(t, ok, "no mirror residue")
	require.Len(t, f.remote.ObjectiveStore.Calls("remove"), 1)
}

func TestSynchronize_StaleMirrorIsDropped(t *testing.T) {
	f := newFixture(t)
	f.edit(func(u *store.UnitOfWork) {
		u.SaveProject(&model.Project{ID: "m1", ExternalID: "gone", Title: "Old", IsSynchronized: true})
	})

	assert.Empty(t, f.sync(RunConfig{}))
	assert.Empty(t, f.view().Projects(store.All))
	assert.Empty(t, f.remote.ProjectStore.Calls("remove"))
}

func TestSynchronize_ThreeWayMerge(t *testing.T) {
	tests := []struct {
		name       string
		localAt    time.Duration
		remoteAt   time.Duration
		wantDueDay int
	}{
		{"remote newer wins the conflict", time.Hour, 2 * time.Hour, 14},
		{"local newer wins the conflict", 2 * time.Hour, time.Hour, 7},
		{"tie keeps local", time.Hour, time.Hour, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedSynced(nil)
			now := time.Now().UTC().Truncate(time.Second)
			due0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

			f.edit(func(u *store.UnitOfWork) {
				o, _ := u.Objective("o1")
				o.Title = "Clash v2"
				o.DueDate = due0.AddDate(0, 0, 7)
				o.UpdatedAt = now.Add(tt.localAt)
				u.SaveObjective(o)
			})
			ext := f.objective("o1").ExternalID
			rec := f.remoteObjective(ext)
			rec.Description = "remote desc"
			rec.DueDate = due0.AddDate(0, 0, 14)
			rec.UpdatedAt = now.Add(tt.remoteAt)
			f.remote.ObjectiveStore.Put(rec)

			assert.Empty(t, f.sync(RunConfig{}))

			want := due0.AddDate(0, 0, tt.wantDueDay)
			o := f.objective("o1")
			assert.Equal(t, "Clash v2", o.Title)
			assert.Equal(t, "remote desc", o.Description)
			assert.True(t, o.DueDate.Equal(want), "local due date %v", o.DueDate)

			rec = f.remoteObjective(ext)
			assert.Equal(t, "Clash v2", rec.Title)
			assert.Equal(t, "remote desc", rec.Description)
			assert.True(t, rec.DueDate.Equal(want), "remote due date %v", rec.DueDate)

			mo := f.objective(o.SynchronizationMateID)
			assert.Equal(t, "Clash v2", mo.Title)
			assert.True(t, mo.DueDate.Equal(want))
		})
	}
}

func TestSynchronize_UpdateWithoutBaseline(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tests := []struct {
		name       string
		remoteAt   time.Time
		wantTitle  string
		wantPushed bool
	}{
		{"remote newer", now.Add(time.Hour), "Remote", false},
		{"tie keeps local", now, "Local", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.edit(func(u *store.UnitOfWork) {
				u.SaveProject(&model.Project{ID: "p1", ExternalID: "P1", Title: "Local", UpdatedAt: now})
			})
			f.remote.ProjectStore.Put(&model.ProjectExternal{ExternalID: "P1", Title: "Remote", UpdatedAt: tt.remoteAt})

			assert.Empty(t, f.sync(RunConfig{}))

			p := f.project("p1")
			assert.Equal(t, tt.wantTitle, p.Title)
			mirror := f.project(p.SynchronizationMateID)
			assert.Equal(t, "P1", mirror.ExternalID)
			assert.Equal(t, tt.wantTitle, mirror.Title)

			rec, _ := f.remote.ProjectStore.Record("P1")
			assert.Equal(t, tt.wantTitle, rec.Title)
			assert.Equal(t, tt.wantPushed, len(f.remote.ProjectStore.Calls("update")) == 1)
		})
	}
}

func TestSynchronize_ParentsBeforeChildren(t *testing.T) {
	f := newFixture(t)
	f.edit(func(u *store.UnitOfWork) {
		u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
		u.SaveObjective(&model.Objective{ID: "z-parent", ProjectID: "p1", Title: "Parent"})
		u.SaveObjective(&model.Objective{ID: "a-child", ProjectID: "p1", ParentObjectiveID: "z-parent", Title: "Child"})
	})

	assert.Empty(t, f.sync(RunConfig{}))

	parent := f.objective("z-parent")
	child := f.objective("a-child")
	rc := f.remoteObjective(child.ExternalID)
	assert.Equal(t, parent.ExternalID, rc.ParentObjectiveExternalID)

	mc := f.objective(child.SynchronizationMateID)
	assert.Equal(t, parent.SynchronizationMateID, mc.ParentObjectiveID, "mirror child points at the mirror parent")
}

func TestSynchronize_ReparentUnderNewRemoteObjective(t *testing.T) {
	f := newFixture(t)
	f.seedSynced(func(u *store.UnitOfWork) {
		u.SaveObjective(&model.Objective{ID: "o2", ProjectID: "p1", ParentObjectiveID: "o1", Title: "Child"})
	})
	pext := f.project("p1").ExternalID
	child := f.objective("o2")

	fresh := f.remote.ObjectiveStore.Put(&model.ObjectiveExternal{ProjectExternalID: pext, Title: "New parent"})
	rec := f.remoteObjective(child.ExternalID)
	rec.ParentObjectiveExternalID = fresh.ExternalID
	rec.UpdatedAt = time.Now().UTC().Add(time.Hour)
	f.remote.ObjectiveStore.Put(rec)

	assert.Empty(t, f.sync(RunConfig{}))

	var parent *model.Objective
	for _, o := range f.view().Objectives(store.Unsynchronized) {
		if o.ExternalID == fresh.ExternalID {
			parent = o
		}
	}
	require.NotNil(t, parent, "the new parent is pulled")
	child = f.objective("o2")
	assert.Equal(t, parent.ID, child.ParentObjectiveID)
	mc := f.objective(child.SynchronizationMateID)
	assert.Equal(t, parent.SynchronizationMateID, mc.ParentObjectiveID)
	assert.Equal(t, fresh.ExternalID, f.remoteObjective(child.ExternalID).ParentObjectiveExternalID)
}

func TestSynchronize_ChildOfUnsynchronizedParent(t *testing.T) {
	f := newFixture(t)
	f.edit(func(u *store.UnitOfWork) {
		u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
		u.SaveObjective(&model.Objective{ID: "op", ProjectID: "p1", Title: "Parent"})
		u.SaveObjective(&model.Objective{ID: "oc", ProjectID: "p1", ParentObjectiveID: "op", Title: "Child"})
	})

	results := f.sync(RunConfig{ObjectivesFilter: func(o *model.Objective) bool { return o.ID != "op" }})

	require.Len(t, results, 1)
	assert.Equal(t, EntityObjective, results[0].EntityType)
	assert.Equal(t, "oc", results[0].EntityID)
	assert.Equal(t, ActionAddToRemote, results[0].Action)
	assert.ErrorIs(t, results[0].Err, ErrParentNotSynchronized)
	assert.Equal(t, 0, f.remote.ObjectiveStore.Len())
}

func TestSynchronize_FailureIsolation(t *testing.T) {
	t.Run("persistence", func(t *testing.T) {
		f := newFixture(t)
		f.seedSynced(nil)
		pext := f.project("p1").ExternalID
		f.remote.ObjectiveStore.Put(&model.ObjectiveExternal{ExternalID: "O-bad", ProjectExternalID: pext, Title: ""})
		f.remote.ObjectiveStore.Put(&model.ObjectiveExternal{ExternalID: "O-good", ProjectExternalID: pext, Title: "Good"})

		results := f.sync(RunConfig{})

		require.Len(t, results, 1)
		assert.Equal(t, "O-bad", results[0].ExternalID)
		assert.Equal(t, ActionAddToLocal, results[0].Action)
		assert.True(t, IsPersistence(results[0].Err))

		var titles []string
		for _, o := range f.view().Objectives(store.All) {
			assert.NotEqual(t, "O-bad", o.ExternalID, "no partial rows of the failed entity")
			titles = append(titles, o.Title)
		}
		assert.ElementsMatch(t, []string{"Clash", "Clash", "Good", "Good"}, titles)
	})

	t.Run("remote", func(t *testing.T) {
		f := newFixture(t)
		f.seedSynced(func(u *store.UnitOfWork) {
			u.SaveObjective(&model.Objective{ID: "o2", ProjectID: "p1", Title: "Second"})
		})
		bad := f.objective("o1").ExternalID
		good := f.objective("o2").ExternalID
		f.edit(func(u *store.UnitOfWork) {
			for _, id := range []string{"o1", "o2"} {
				o, _ := u.Objective(id)
				o.Title += " (edited)"
				u.SaveObjective(o)
			}
		})
		f.remote.ObjectiveStore.Fail("update", bad, errors.New("server error"))

		results := f.sync(RunConfig{})

		require.Len(t, results, 1)
		assert.Equal(t, "o1", results[0].EntityID)
		assert.True(t, IsRemote(results[0].Err))
		assert.Equal(t, "Clash", f.remoteObjective(bad).Title)
		assert.Equal(t, "Second (edited)", f.remoteObjective(good).Title)

		mo := f.objective(f.objective("o1").SynchronizationMateID)
		assert.Equal(t, "Clash", mo.Title, "the baseline of the failed entity is untouched")

		f.remote.ObjectiveStore.Fail("update", bad, nil)
		assert.Empty(t, f.sync(RunConfig{}))
		assert.Equal(t, "Clash (edited)", f.remoteObjective(bad).Title)
	})
}

func TestSynchronize_FetchFailure(t *testing.T) {
	f := newFixture(t)
	f.edit(func(u *store.UnitOfWork) {
		u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
		u.SaveObjective(&model.Objective{ID: "o1", ProjectID: "p1", Title: "Clash"})
	})
	f.remote.ProjectStore.Fail("updated", "", connection.ErrUnavailable)

	results := f.sync(RunConfig{})

	require.Len(t, results, 1)
	assert.Equal(t, EntityProject, results[0].EntityType)
	assert.Equal(t, ActionFetch, results[0].Action)
	assert.True(t, IsRemote(results[0].Err))
	assert.True(t, IsRetryable(results[0].Err))
	assert.Equal(t, 0, f.remote.ObjectiveStore.Len(), "objectives of unsynchronized projects are skipped")
}

func TestSynchronize_Filters(t *testing.T) {
	f := newFixture(t)
	f.edit(func(u *store.UnitOfWork) {
		u.SaveProject(&model.Project{ID: "p1", Title: "Included"})
		u.SaveProject(&model.Project{ID: "p2", Title: "Excluded"})
		u.SaveObjective(&model.Objective{ID: "o1", ProjectID: "p1", Title: "In"})
		u.SaveObjective(&model.Objective{ID: "o2", ProjectID: "p2", Title: "Out"})
	})
	f.remote.ProjectStore.Put(&model.ProjectExternal{ExternalID: "P-remote", Title: "Remote excluded"})

	results := f.sync(RunConfig{
		ProjectsFilter: func(p *model.Project) bool { return p.Title == "Included" },
	})

	assert.Empty(t, results)
	assert.Equal(t, 2, f.remote.ProjectStore.Len())
	assert.Equal(t, 1, f.remote.ObjectiveStore.Len())
	assert.Empty(t, f.project("p2").ExternalID)
	assert.Empty(t, f.objective("o2").ExternalID)
	assert.Len(t, f.view().Projects(store.Unsynchronized), 2, "the excluded remote project is not pulled")
}

func TestSynchronize_FilterExcludesDivergedObjective(t *testing.T) {
	f := newFixture(t)
	f.seedSynced(nil)
	ext := f.objective("o1").ExternalID
	now := time.Now().UTC()

	f.edit(func(u *store.UnitOfWork) {
		o, _ := u.Objective("o1")
		o.Title = "Local edit"
		o.UpdatedAt = now
		u.SaveObjective(o)
	})
	rec := f.remoteObjective(ext)
	rec.Description = "remote edit"
	rec.UpdatedAt = now.Add(time.Hour)
	f.remote.ObjectiveStore.Put(rec)
	f.remote.ObjectiveStore.ResetCalls()

	results := f.sync(RunConfig{ObjectivesFilter: func(o *model.Objective) bool { return o.ID != "o1" }})

	assert.Empty(t, results)
	for _, op := range []string{"add", "update", "remove"} {
		assert.Empty(t, f.remote.ObjectiveStore.Calls(op), "objective %s", op)
	}
	o := f.objective("o1")
	assert.Equal(t, "Local edit", o.Title)
	assert.Equal(t, "d0", o.Description)
	mo := f.objective(o.SynchronizationMateID)
	assert.Equal(t, "Clash", mo.Title)
	assert.Equal(t, "d0", mo.Description)
	rec = f.remoteObjective(ext)
	assert.Equal(t, "Clash", rec.Title)
	assert.Equal(t, "remote edit", rec.Description)
}

func TestSynchronize_Incremental(t *testing.T) {
	f := newFixture(t)
	f.seedSynced(nil)
	since := time.Now().UTC().Add(time.Hour)

	// Known records are fetched even when the remote reports them unchanged.
	f.remote.ProjectStore.ResetCalls()
	assert.Empty(t, f.sync(RunConfig{Date: &since}))
	assert.Len(t, f.remote.ProjectStore.Calls("get"), 1)
	assert.Empty(t, f.remote.ProjectStore.Calls("update"))

	// A record deleted remotely is detected without appearing in the
	// updated ids.
	f.remote.ProjectStore.Delete(f.project("p1").ExternalID)
	assert.Empty(t, f.sync(RunConfig{Date: &since}))
	assert.Empty(t, f.view().Projects(store.All))
}

func TestSynchronize_SetupFailure(t *testing.T) {
	f := newFixture(t)
	f.remote.FailSetup(connection.ErrInvalidInfo)

	results, err := f.syncer.Synchronize(context.Background(), RunConfig{}, f.remote, connection.Info{}, nil)
	assert.Nil(t, results)
	assert.True(t, IsSetup(err))
	assert.ErrorIs(t, err, connection.ErrInvalidInfo)

	_, err = f.syncer.Synchronize(context.Background(), RunConfig{}, nil, connection.Info{}, nil)
	assert.ErrorIs(t, err, ErrSetup)
}

func TestSynchronize_Cancellation(t *testing.T) {
	f := newFixture(t)
	f.edit(func(u *store.UnitOfWork) {
		for i := 1; i <= 3; i++ {
			u.SaveProject(&model.Project{ID: fmt.Sprintf("p%d", i), Title: "Tower"})
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	progress := ProgressFunc(func(fraction float64) {
		if fraction > 0 {
			cancel()
		}
	})

	_, err := f.syncer.Synchronize(ctx, RunConfig{}, f.remote, connection.Info{Type: memory.Type}, progress)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.remote.ProjectStore.Len(), "entities after the cancellation point are not touched")

	synced := 0
	for _, p := range f.view().Projects(store.Unsynchronized) {
		if p.ExternalID != "" {
			synced++
		}
	}
	assert.Equal(t, 1, synced, "the entity finished before cancellation is committed")
}

func TestSynchronize_Progress(t *testing.T) {
	f := newFixture(t)
	f.edit(func(u *store.UnitOfWork) {
		u.SaveProject(&model.Project{ID: "p1", Title: "Tower"})
		u.SaveObjective(&model.Objective{ID: "o1", ProjectID: "p1", Title: "Clash"})
	})

	var got []float64
	_, err := f.syncer.Synchronize(context.Background(), RunConfig{}, f.remote, connection.Info{}, ProgressFunc(func(v float64) {
		got = append(got, v)
	}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, got)

	got = nil
	empty := newFixture(t)
	_, err = empty.syncer.Synchronize(context.Background(), RunConfig{}, empty.remote, connection.Info{}, ProgressFunc(func(v float64) {
		got = append(got, v)
	}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, got)
}
