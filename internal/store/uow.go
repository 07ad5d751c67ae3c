package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/mrsbim/bimsync/internal/model"
)

// ErrPersistence is matched by every commit failure.
var ErrPersistence = errors.New("persistence failure")

// ErrClosed is returned when a closed unit of work is used.
var ErrClosed = errors.New("unit of work is closed")

// PersistenceError describes the staged change that could not be written.
type PersistenceError struct {
	Table string
	Key   string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s/%s: %v", e.Table, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// View selects local rows, mirrors, or both.
type View int

const (
	All View = iota
	Synchronized
	Unsynchronized
)

func (v View) accepts(mirror bool) bool {
	switch v {
	case Synchronized:
		return mirror
	case Unsynchronized:
		return !mirror
	default:
		return true
	}
}

// Op is the kind of a staged change.
type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Change describes one staged write.
type Change struct {
	Owner string
	Table string
	Key   string
	Op    Op
}

type change struct {
	Change
	apply func(ctx context.Context, tx *sql.Tx) error
	undo  func()
}

type table[T any] struct {
	name   string
	rows   map[string]T
	upsert func(ctx context.Context, tx *sql.Tx, row T) error
	remove func(ctx context.Context, tx *sql.Tx, row T) error
}

// UnitOfWork is the in-memory view of the local database owned by one run.
// It is not safe for concurrent use.
//
// Every Save/Delete/Link/Unlink updates the snapshot immediately and stages
// the matching SQL statement. Changes are tagged with the current owner (see
// Own) so the changes of one entity can be detached without touching others.
type UnitOfWork struct {
	db     *DB
	owner  string
	closed bool

	projects       table[model.Project]
	objectives     table[model.Objective]
	items          table[model.Item]
	bimElements    table[model.BimElement]
	dynamicFields  table[model.DynamicField]
	locations      table[model.Location]
	projectItems   table[model.ProjectItem]
	objectiveItems table[model.ObjectiveItem]
	bimLinks       table[model.BimElementObjective]

	pending []change
}

// Begin loads a snapshot of the database into a new UnitOfWork.
// The caller MUST call Close() when the run ends.
func (db *DB) Begin(ctx context.Context) (*UnitOfWork, error) {
	u := &UnitOfWork{db: db}
	var err error

	load := func(name string, fn func() error) {
		if err != nil {
			return
		}
		if e := fn(); e != nil {
			err = fmt.Errorf("failed to load %s: %w", name, e)
		}
	}

	load("projects", func() (e error) {
		u.projects = table[model.Project]{name: "projects", upsert: upsertProject, remove: deleteProject}
		u.projects.rows, e = loadProjects(ctx, db.conn)
		return
	})
	load("objectives", func() (e error) {
		u.objectives = table[model.Objective]{name: "objectives", upsert: upsertObjective, remove: deleteObjective}
		u.objectives.rows, e = loadObjectives(ctx, db.conn)
		return
	})
	load("items", func() (e error) {
		u.items = table[model.Item]{name: "items", upsert: upsertItem, remove: deleteItem}
		u.items.rows, e = loadItems(ctx, db.conn)
		return
	})
	load("bim_elements", func() (e error) {
		u.bimElements = table[model.BimElement]{name: "bim_elements", upsert: upsertBimElement, remove: deleteBimElement}
		u.bimElements.rows, e = loadBimElements(ctx, db.conn)
		return
	})
	load("dynamic_fields", func() (e error) {
		u.dynamicFields = table[model.DynamicField]{name: "dynamic_fields", upsert: upsertDynamicField, remove: deleteDynamicField}
		u.dynamicFields.rows, e = loadDynamicFields(ctx, db.conn)
		return
	})
	load("locations", func() (e error) {
		u.locations = table[model.Location]{name: "locations", upsert: upsertLocation, remove: deleteLocation}
		u.locations.rows, e = loadLocations(ctx, db.conn)
		return
	})
	load("project_items", func() (e error) {
		u.projectItems = table[model.ProjectItem]{name: "project_items", upsert: insertProjectItem, remove: deleteProjectItem}
		u.projectItems.rows, e = loadProjectItems(ctx, db.conn)
		return
	})
	load("objective_items", func() (e error) {
		u.objectiveItems = table[model.ObjectiveItem]{name: "objective_items", upsert: insertObjectiveItem, remove: deleteObjectiveItem}
		u.objectiveItems.rows, e = loadObjectiveItems(ctx, db.conn)
		return
	})
	load("bim_element_objectives", func() (e error) {
		u.bimLinks = table[model.BimElementObjective]{name: "bim_element_objectives", upsert: insertBimLink, remove: deleteBimLink}
		u.bimLinks.rows, e = loadBimLinks(ctx, db.conn)
		return
	})

	if err != nil {
		return nil, err
	}
	return u, nil
}

// Own tags every change staged from now on with key.
func (u *UnitOfWork) Own(key string) {
	u.owner = key
}

// Pending returns a description of every staged change.
func (u *UnitOfWork) Pending() []Change {
	out := make([]Change, len(u.pending))
	for i, c := range u.pending {
		out[i] = c.Change
	}
	return out
}

// Commit writes every staged change in one transaction.
//
// On failure the database transaction is rolled back and the staged changes
// are kept so the caller can Detach the failing owner. The error matches
// ErrPersistence.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.closed {
		return ErrClosed
	}
	if len(u.pending) == 0 {
		return nil
	}

	tx, err := u.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Table: "-", Key: "-", Err: err}
	}

	for _, c := range u.pending {
		if err := c.apply(ctx, tx); err != nil {
			_ = tx.Rollback()
			return &PersistenceError{Table: c.Table, Key: c.Key, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Table: "-", Key: "-", Err: err}
	}

	u.pending = u.pending[:0]
	return nil
}

// Detach undoes and drops every staged change owned by key.
func (u *UnitOfWork) Detach(key string) {
	kept := u.pending[:0:0]
	for i := len(u.pending) - 1; i >= 0; i-- {
		if u.pending[i].Owner == key {
			u.pending[i].undo()
		}
	}
	for _, c := range u.pending {
		if c.Owner != key {
			kept = append(kept, c)
		}
	}
	u.pending = kept
}

// Rollback undoes and drops every staged change.
func (u *UnitOfWork) Rollback() {
	for i := len(u.pending) - 1; i >= 0; i-- {
		u.pending[i].undo()
	}
	u.pending = nil
}

// Close discards uncommitted changes and releases the unit of work.
func (u *UnitOfWork) Close() error {
	if u.closed {
		return nil
	}
	u.Rollback()
	u.closed = true
	return nil
}

func (u *UnitOfWork) stage(c change) {
	c.Owner = u.owner
	u.pending = append(u.pending, c)
}

func put[T any](u *UnitOfWork, t *table[T], key string, row T) {
	prev, existed := t.rows[key]
	t.rows[key] = row
	u.stage(change{
		Change: Change{Table: t.name, Key: key, Op: OpUpsert},
		apply: func(ctx context.Context, tx *sql.Tx) error {
			return t.upsert(ctx, tx, row)
		},
		undo: func() {
			if existed {
				t.rows[key] = prev
			} else {
				delete(t.rows, key)
			}
		},
	})
}

func drop[T any](u *UnitOfWork, t *table[T], key string) bool {
	prev, existed := t.rows[key]
	if !existed {
		return false
	}
	delete(t.rows, key)
	u.stage(change{
		Change: Change{Table: t.name, Key: key, Op: OpDelete},
		apply: func(ctx context.Context, tx *sql.Tx) error {
			return t.remove(ctx, tx, prev)
		},
		undo: func() {
			t.rows[key] = prev
		},
	})
	return true
}

func get[T any](t *table[T], key string) (*T, bool) {
	row, ok := t.rows[key]
	if !ok {
		return nil, false
	}
	return &row, true
}

func sortedKeys[T any](rows map[string]T) []string {
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
