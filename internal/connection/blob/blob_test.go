package blob

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/model"
)

func TestFolderBackend(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryFolderBackend()

	keys, err := b.List(ctx, "projects/")
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, b.Write(ctx, "projects/a.json", []byte(`{}`)))
	require.NoError(t, b.Write(ctx, "projects/b.json", []byte(`{}`)))

	keys, err = b.List(ctx, "projects/")
	require.NoError(t, err)
	assert.Equal(t, []string{"projects/a.json", "projects/b.json"}, keys)

	data, err := b.Read(ctx, "projects/a.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	require.NoError(t, b.Delete(ctx, "projects/a.json"))
	_, err = b.Read(ctx, "projects/a.json")
	assert.ErrorIs(t, err, ErrNotExist)
	assert.ErrorIs(t, b.Delete(ctx, "projects/a.json"), ErrNotExist)
}

func TestStoreOverFolder(t *testing.T) {
	ctx := context.Background()
	remote := NewRemote(NewMemoryFolderBackend())
	rc, err := remote.GetContext(ctx, connection.Info{Type: FolderType})
	require.NoError(t, err)
	defer rc.Close()

	objectives := rc.Objectives()
	created, err := objectives.Add(ctx, &model.ObjectiveExternal{
		Title:         "Clash",
		Items:         []model.ItemExternal{{RelativePath: "model.ifc", ItemType: model.ItemBim}},
		DynamicFields: []model.DynamicFieldExternal{{Name: "discipline", Value: "MEP"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ExternalID)
	require.NotEmpty(t, created.Items[0].ExternalID)
	require.NotEmpty(t, created.DynamicFields[0].ExternalID)

	ids, err := objectives.GetUpdatedIDs(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []string{created.ExternalID}, ids)

	ids, err = objectives.GetUpdatedIDs(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)

	got, err := objectives.Get(ctx, []string{created.ExternalID, "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Clash", got[0].Title)
	assert.Equal(t, "MEP", got[0].DynamicFields[0].Value)

	got[0].Title = "Clash resolved"
	updated, err := objectives.Update(ctx, got[0])
	require.NoError(t, err)
	assert.Equal(t, created.ExternalID, updated.ExternalID)

	require.NoError(t, objectives.Remove(ctx, updated))
	assert.ErrorIs(t, objectives.Remove(ctx, updated), connection.ErrNotFound)
	_, err = objectives.Update(ctx, updated)
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestStoreRejectsEscapingIDs(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryFolderBackend()
	require.NoError(t, backend.Write(ctx, "secret.json", []byte(`{}`)))
	require.NoError(t, backend.Write(ctx, "projects/p.json", []byte(`{}`)))
	objectives := NewStore(backend, objectivesPrefix, connection.StampObjective)

	for _, id := range []string{"../secret", "../projects/p", "a/b", `a\b`, ".."} {
		t.Run(id, func(t *testing.T) {
			_, err := objectives.Get(ctx, []string{id})
			assert.ErrorIs(t, err, ErrInvalidID)

			_, err = objectives.Update(ctx, &model.ObjectiveExternal{ExternalID: id, Title: "x"})
			assert.ErrorIs(t, err, ErrInvalidID)

			assert.ErrorIs(t, objectives.Remove(ctx, &model.ObjectiveExternal{ExternalID: id}), ErrInvalidID)
		})
	}

	_, err := backend.Read(ctx, "secret.json")
	assert.NoError(t, err, "documents outside the prefix are untouched")
	_, err = backend.Read(ctx, "projects/p.json")
	assert.NoError(t, err)
}

func TestFolderRegistered(t *testing.T) {
	ctx := context.Background()
	conn, err := connection.New(FolderType)
	require.NoError(t, err)

	_, err = conn.GetContext(ctx, connection.Info{Type: FolderType})
	assert.ErrorIs(t, err, connection.ErrInvalidInfo)

	root := filepath.Join(t.TempDir(), "remote")
	rc, err := conn.GetContext(ctx, connection.Info{Type: FolderType, Values: map[string]string{"root": root}})
	require.NoError(t, err)
	_, err = rc.Projects().Add(ctx, &model.ProjectExternal{Title: "Tower"})
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.ErrorIs(t, rc.Close(), connection.ErrClosed)

	dirs := FolderDirs(root)
	require.Len(t, dirs, 2)
	matches, err := filepath.Glob(filepath.Join(dirs[0], "*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, filepath.Join(root, "objectives"), dirs[1])
}

func TestBucketRequiresInfo(t *testing.T) {
	_, err := NewBucketBackend(context.Background(), connection.Info{Type: BucketType})
	assert.ErrorIs(t, err, connection.ErrInvalidInfo)
	assert.True(t, connection.IsRegistered(BucketType))
}
