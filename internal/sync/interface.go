package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/model"
)

// Engine is the entry point of a synchronization run.
type Engine interface {
	// Synchronize reconciles the local database with the remote system
	// reached through conn. The returned results list failed entities only;
	// an empty slice means full success. The error is non-nil for setup
	// failures and cancellation.
	Synchronize(ctx context.Context, run RunConfig, conn connection.Connection, info connection.Info, progress Progress) ([]Result, error)
}

// RunConfig selects what a run synchronizes.
type RunConfig struct {
	// UserID identifies the user the run belongs to.
	UserID string

	// ProjectsFilter excludes projects for which it returns false.
	ProjectsFilter func(*model.Project) bool

	// ObjectivesFilter excludes objectives for which it returns false.
	ObjectivesFilter func(*model.Objective) bool

	// Date is the time of the last successful run. Nil requests every
	// remote record.
	Date *time.Time
}

// Progress receives the completed fraction of a run, in [0,1].
type Progress interface {
	Report(fraction float64)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(fraction float64)

// Report calls f.
func (f ProgressFunc) Report(fraction float64) { f(fraction) }

// Action is what the engine does with a tuple.
type Action int

const (
	ActionNone Action = iota
	ActionFetch
	ActionAddToRemote
	ActionAddToLocal
	ActionUpdate
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionFetch:
		return "fetch"
	case ActionAddToRemote:
		return "add_to_remote"
	case ActionAddToLocal:
		return "add_to_local"
	case ActionUpdate:
		return "update"
	case ActionRemove:
		return "remove"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Result records an entity that failed to synchronize.
type Result struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Action     Action `json:"action"`
	Err        error  `json:"-"`
}

func (r Result) String() string {
	id := r.EntityID
	if id == "" {
		id = "external:" + r.ExternalID
	}
	return fmt.Sprintf("%s %s (%s): %v", r.EntityType, id, r.Action, r.Err)
}

// Entity type names used in results and logs.
const (
	EntityProject   = "project"
	EntityObjective = "objective"
)
