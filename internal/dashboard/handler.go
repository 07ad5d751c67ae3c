package dashboard

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrsbim/bimsync/internal/store"
	bimsync "github.com/mrsbim/bimsync/internal/sync"
)

// SyncStartedData announces a run
type SyncStartedData struct {
	RunID       string     `json:"run_id"`
	Incremental bool       `json:"incremental"`
	Since       *time.Time `json:"since,omitempty"`
}

// SyncProgressData carries the completed fraction of a run
type SyncProgressData struct {
	RunID    string  `json:"run_id"`
	Fraction float64 `json:"fraction"`
}

// SyncFailureData describes one failed entity
type SyncFailureData struct {
	RunID      string `json:"run_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Action     string `json:"action"`
	Error      string `json:"error"`
}

// SyncCompleteData summarizes a finished run
type SyncCompleteData struct {
	RunID    string        `json:"run_id"`
	Failures int           `json:"failures"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Handler turns synchronization events into dashboard messages. It is safe
// for concurrent use and implements the engine's Progress interface.
type Handler struct {
	server *Server
	logger zerolog.Logger

	mu    sync.Mutex
	runID string
	stats store.Stats
}

var _ bimsync.Progress = (*Handler)(nil)

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *zerolog.Logger) *Handler {
	h := &Handler{server: server, logger: zerolog.Nop()}
	if logger != nil {
		h.logger = *logger
	}
	return h
}

// OnSyncStarted opens a new run.
func (h *Handler) OnSyncStarted(since *time.Time) {
	h.mu.Lock()
	h.runID = uuid.NewString()
	runID := h.runID
	h.mu.Unlock()

	h.send(MessageTypeSyncStarted, SyncStartedData{
		RunID:       runID,
		Incremental: since != nil,
		Since:       since,
	})
}

// Report broadcasts the progress of the current run.
func (h *Handler) Report(fraction float64) {
	h.send(MessageTypeSyncProgress, SyncProgressData{
		RunID:    h.currentRun(),
		Fraction: fraction,
	})
}

// OnSyncComplete broadcasts one failure message per result, then the
// summary of the run.
func (h *Handler) OnSyncComplete(results []bimsync.Result, err error, elapsed time.Duration) {
	runID := h.currentRun()
	for _, r := range results {
		data := SyncFailureData{
			RunID:      runID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			ExternalID: r.ExternalID,
			Action:     r.Action.String(),
		}
		if r.Err != nil {
			data.Error = r.Err.Error()
		}
		h.send(MessageTypeSyncFailure, data)
	}

	summary := SyncCompleteData{RunID: runID, Failures: len(results), Duration: elapsed}
	if err != nil {
		summary.Error = err.Error()
	}
	h.send(MessageTypeSyncComplete, summary)
}

// UpdateStats replaces the statistics and broadcasts them.
func (h *Handler) UpdateStats(stats *store.Stats) {
	if stats == nil {
		return
	}
	h.mu.Lock()
	h.stats = *stats
	h.mu.Unlock()
	h.send(MessageTypeStats, stats)
}

// Stats returns the last statistics received.
func (h *Handler) Stats() store.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Handler) currentRun() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runID
}

func (h *Handler) send(typ MessageType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(typ)).Msg("Failed to marshal dashboard data")
		return
	}
	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	})
}
