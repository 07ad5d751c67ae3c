package connection

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

type stubConnection struct{}

func (stubConnection) GetContext(ctx context.Context, info Info) (Context, error) {
	return nil, errors.New("stub")
}

func TestRegistry(t *testing.T) {
	unregisterAll()
	t.Cleanup(unregisterAll)

	assert.False(t, IsRegistered("stub"))
	Register("stub", func() (Connection, error) { return stubConnection{}, nil })
	assert.True(t, IsRegistered("stub"))
	assert.Equal(t, []string{"stub"}, RegisteredTypes())

	conn, err := New("stub")
	require.NoError(t, err)
	assert.NotNil(t, conn)

	_, err = New("missing")
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.True(t, IsConfiguration(err))

	assert.Panics(t, func() {
		Register("stub", func() (Connection, error) { return stubConnection{}, nil })
	})
	assert.Panics(t, func() { Register("nil", nil) })
}

func TestInfoRequire(t *testing.T) {
	info := Info{Type: "s3", Values: map[string]string{"endpoint": "localhost:9000", "bucket": " "}}
	err := info.Require("endpoint", "bucket", "access_key")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInfo)
	assert.Contains(t, err.Error(), "access_key, bucket")

	assert.NoError(t, info.Require("endpoint"))
	assert.Equal(t, "", Info{}.Value("anything"))
}

func TestProfileRoundTrip(t *testing.T) {
	info := Info{
		Type:           "folder",
		UserExternalID: "user-7",
		Values:         map[string]string{"root": "/srv/remote"},
	}

	for _, ext := range []string{".yaml", ".yml", ".toml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profile"+ext)
			require.NoError(t, SaveInfo(path, info))

			loaded, err := LoadInfo(path)
			require.NoError(t, err)
			assert.Equal(t, info, loaded)
		})
	}
}

func TestLoadInfoErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadInfo(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "profile.ini")
	require.Error(t, SaveInfo(path, Info{Type: "x"}))

	noType := filepath.Join(dir, "notype.json")
	require.NoError(t, SaveInfo(noType, Info{UserExternalID: "u"}))
	_, err = LoadInfo(noType)
	assert.ErrorIs(t, err, ErrInvalidInfo)
}

func TestStampObjective(t *testing.T) {
	n := 0
	newID := func() string {
		n++
		return "ext-" + string(rune('0'+n))
	}
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	dto := &model.ObjectiveExternal{
		Title: "Clash",
		Items: []model.ItemExternal{
			{RelativePath: "a.ifc"},
			{ExternalID: "keep", RelativePath: "b.pdf"},
		},
		DynamicFields: []model.DynamicFieldExternal{
			{Name: "group", ChildrenDynamicFields: []model.DynamicFieldExternal{{Name: "leaf"}}},
		},
		Location: &model.LocationExternal{Item: model.ItemExternal{RelativePath: "a.ifc"}},
	}
	StampObjective(dto, newID, now)

	assert.Equal(t, "ext-1", dto.ExternalID)
	assert.Equal(t, "ext-2", dto.Items[0].ExternalID)
	assert.Equal(t, "keep", dto.Items[1].ExternalID)
	assert.Equal(t, "ext-3", dto.DynamicFields[0].ExternalID)
	assert.Equal(t, "ext-4", dto.DynamicFields[0].ChildrenDynamicFields[0].ExternalID)
	assert.Equal(t, "ext-2", dto.Location.Item.ExternalID, "location item reuses the stamped item id")
	assert.True(t, dto.UpdatedAt.Equal(now))
}

func TestErrorClassifiers(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.Join(errors.New("dial"), ErrUnavailable)))
	assert.False(t, IsConfiguration(ErrNotFound))
}
