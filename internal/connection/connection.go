// Package connection defines the contract between the synchronization engine
// and an external system.
//
// A Connection turns Info (connection type, user and credentials) into a
// Context. A Context exposes one Connector per synchronized entity type and
// is held by exactly one run at a time; it is not safe for concurrent use.
//
// Connectors follow a narrow fetch/push contract:
//
//	ids, _ := c.GetUpdatedIDs(ctx, since)   // ids changed since the date
//	records, _ := c.Get(ctx, ids)           // only existing records are returned
//	created, _ := c.Add(ctx, dto)           // remote assigns ExternalID
//	updated, _ := c.Update(ctx, dto)
//	_ = c.Remove(ctx, dto)
//
// Add and Update return the stored record. Nested entries (items, dynamic
// fields) come back in the order they were sent, each carrying its ExternalID;
// the engine relies on that order to adopt identities assigned remotely.
//
// Implementations register themselves by type name:
//
//	func init() {
//	    connection.Register("folder", NewFolder)
//	}
package connection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mrsbim/bimsync/internal/model"
)

// Connector is the per-entity fetch/push contract of an external system.
type Connector[T any] interface {
	Get(ctx context.Context, ids []string) ([]T, error)
	GetUpdatedIDs(ctx context.Context, since time.Time) ([]string, error)
	Add(ctx context.Context, dto T) (T, error)
	Update(ctx context.Context, dto T) (T, error)
	Remove(ctx context.Context, dto T) error
}

// Context is an open session with an external system.
type Context interface {
	Projects() Connector[*model.ProjectExternal]
	Objectives() Connector[*model.ObjectiveExternal]
	Close() error
}

// Connection opens sessions with one kind of external system.
type Connection interface {
	GetContext(ctx context.Context, info Info) (Context, error)
}

// Info describes how to reach an external system for one user.
type Info struct {
	Type           string            `json:"type" yaml:"type" toml:"type"`
	UserExternalID string            `json:"user_external_id,omitempty" yaml:"user_external_id,omitempty" toml:"user_external_id,omitempty"`
	Values         map[string]string `json:"values,omitempty" yaml:"values,omitempty" toml:"values,omitempty"`
}

// Value returns a connection value or "".
func (i Info) Value(key string) string {
	if i.Values == nil {
		return ""
	}
	return i.Values[key]
}

// Require checks that every key has a non-empty value.
func (i Info) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(i.Value(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s connection requires %s", ErrInvalidInfo, i.Type, strings.Join(missing, ", "))
	}
	return nil
}
