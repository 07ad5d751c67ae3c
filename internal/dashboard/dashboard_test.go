package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsbim/bimsync/internal/store"
	bimsync "github.com/mrsbim/bimsync/internal/sync"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(&Config{Host: "127.0.0.1", Port: 0})
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws://"+server.Addr()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{Host: "127.0.0.1", Port: 0})
	require.NoError(t, server.Start())
	assert.NotEmpty(t, server.Addr())
	assert.NoError(t, server.Stop())
}

func TestHealth(t *testing.T) {
	server := startServer(t)

	resp, err := http.Get("http://" + server.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 0, health["clients"])
}

func TestWebSocketGreeting(t *testing.T) {
	server := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, server)
	msg := read(t, ctx, conn)
	assert.Equal(t, MessageTypeStats, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())
	require.Eventually(t, func() bool { return server.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return server.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerRunMessages(t *testing.T) {
	server := startServer(t)
	handler := NewHandler(server, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, server)
	read(t, ctx, conn)
	require.Eventually(t, func() bool { return server.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	handler.OnSyncStarted(&since)
	handler.Report(0.5)
	handler.OnSyncComplete([]bimsync.Result{{
		EntityType: bimsync.EntityObjective,
		EntityID:   "o1",
		Action:     bimsync.ActionUpdate,
		Err:        errors.New("boom"),
	}}, nil, time.Second)

	started := read(t, ctx, conn)
	require.Equal(t, MessageTypeSyncStarted, started.Type)
	var startedData SyncStartedData
	require.NoError(t, json.Unmarshal(started.Data, &startedData))
	assert.True(t, startedData.Incremental)
	assert.NotEmpty(t, startedData.RunID)

	progress := read(t, ctx, conn)
	require.Equal(t, MessageTypeSyncProgress, progress.Type)
	var progressData SyncProgressData
	require.NoError(t, json.Unmarshal(progress.Data, &progressData))
	assert.Equal(t, 0.5, progressData.Fraction)
	assert.Equal(t, startedData.RunID, progressData.RunID)

	failure := read(t, ctx, conn)
	require.Equal(t, MessageTypeSyncFailure, failure.Type)
	var failureData SyncFailureData
	require.NoError(t, json.Unmarshal(failure.Data, &failureData))
	assert.Equal(t, "o1", failureData.EntityID)
	assert.Equal(t, "update", failureData.Action)
	assert.Equal(t, "boom", failureData.Error)

	complete := read(t, ctx, conn)
	require.Equal(t, MessageTypeSyncComplete, complete.Type)
	var completeData SyncCompleteData
	require.NoError(t, json.Unmarshal(complete.Data, &completeData))
	assert.Equal(t, 1, completeData.Failures)
	assert.Equal(t, time.Second, completeData.Duration)
	assert.Empty(t, completeData.Error)
}

func TestStatsReplayedToNewClients(t *testing.T) {
	server := startServer(t)
	handler := NewHandler(server, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handler.UpdateStats(&store.Stats{Projects: 2, UnsyncedProjects: 1})
	assert.Equal(t, 2, handler.Stats().Projects)

	conn := dial(t, ctx, server)
	msg := read(t, ctx, conn)
	require.Equal(t, MessageTypeStats, msg.Type)
	var stats store.Stats
	require.NoError(t, json.Unmarshal(msg.Data, &stats))
	assert.Equal(t, 2, stats.Projects)
	assert.Equal(t, 1, stats.UnsyncedProjects)
}

func TestBroadcastNeverBlocks(t *testing.T) {
	server := NewServer(&Config{Host: "127.0.0.1", Port: 0})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			server.Broadcast(Message{Type: MessageTypeSyncProgress})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked without a running broadcast loop")
	}
}
