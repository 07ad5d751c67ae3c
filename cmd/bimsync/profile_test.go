package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/connection/blob"
	"github.com/mrsbim/bimsync/internal/connection/memory"
)

func TestBuildInfo(t *testing.T) {
	info, err := buildInfo(blob.FolderType, "alice", map[string]string{"root": "/srv/remote"})
	require.NoError(t, err)
	assert.Equal(t, blob.FolderType, info.Type)
	assert.Equal(t, "alice", info.UserExternalID)
	assert.Equal(t, "/srv/remote", info.Value("root"))

	info, err = buildInfo(memory.Type, "", nil)
	require.NoError(t, err)
	assert.Nil(t, info.Values)

	_, err = buildInfo(blob.FolderType, "", nil)
	assert.ErrorIs(t, err, connection.ErrInvalidInfo)

	_, err = buildInfo(blob.BucketType, "", map[string]string{"endpoint": "localhost:9000", "bucket": "bim"})
	assert.ErrorIs(t, err, connection.ErrInvalidInfo)

	_, err = buildInfo("ftp", "", nil)
	assert.ErrorIs(t, err, connection.ErrUnknownType)
}

func TestMaskSecrets(t *testing.T) {
	masked := maskSecrets(map[string]string{
		"endpoint":   "localhost:9000",
		"access_key": "AKIA",
		"secret_key": "hunter2",
	})
	assert.Equal(t, "localhost:9000", masked["endpoint"])
	assert.Equal(t, "AKIA", masked["access_key"])
	assert.Equal(t, "********", masked["secret_key"])
}
