// Package memory provides an in-process remote system.
//
// The remote keeps records in maps, assigns identities the way a real
// system would and records every call, which makes it the reference
// connector for tests and for dry runs (`--connection memory`).
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/model"
)

// Type is the registered connection type.
const Type = "memory"

func init() {
	connection.Register(Type, func() (connection.Connection, error) {
		return New(), nil
	})
}

// Call records one connector invocation.
type Call struct {
	Op         string
	ExternalID string
}

// Store is an in-memory Connector for one record type.
type Store[T model.External] struct {
	mu      sync.Mutex
	records map[string]T
	calls   []Call
	fail    map[string]error
	stamp   func(T, connection.IDFunc, time.Time)
	newID   connection.IDFunc
	clock   func() time.Time
}

func newStore[T model.External](stamp func(T, connection.IDFunc, time.Time)) *Store[T] {
	return &Store[T]{
		records: make(map[string]T),
		fail:    make(map[string]error),
		stamp:   stamp,
		newID:   connection.NewExternalID,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the stored records for the ids that exist.
func (s *Store[T]) Get(ctx context.Context, ids []string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "get"})
	if err := s.failure("get", ""); err != nil {
		return nil, err
	}

	out := make([]T, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if rec, ok := s.records[id]; ok {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

// GetUpdatedIDs returns the ids of records updated at or after since.
func (s *Store[T]) GetUpdatedIDs(ctx context.Context, since time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "updated"})
	if err := s.failure("updated", ""); err != nil {
		return nil, err
	}

	var ids []string
	for id, rec := range s.records {
		if !rec.GetUpdatedAt().Before(since) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Add stores a new record and returns it with its assigned identity.
func (s *Store[T]) Add(ctx context.Context, dto T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "add", ExternalID: dto.GetExternalID()})
	var zero T
	if err := s.failure("add", dto.GetExternalID()); err != nil {
		return zero, err
	}

	rec := clone(dto)
	s.stamp(rec, s.newID, s.clock())
	s.records[rec.GetExternalID()] = rec
	return clone(rec), nil
}

// Update replaces a stored record.
func (s *Store[T]) Update(ctx context.Context, dto T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "update", ExternalID: dto.GetExternalID()})
	var zero T
	if err := s.failure("update", dto.GetExternalID()); err != nil {
		return zero, err
	}
	if _, ok := s.records[dto.GetExternalID()]; !ok {
		return zero, fmt.Errorf("%w: %s", connection.ErrNotFound, dto.GetExternalID())
	}

	rec := clone(dto)
	s.stamp(rec, s.newID, s.clock())
	s.records[rec.GetExternalID()] = rec
	return clone(rec), nil
}

// Remove deletes a stored record.
func (s *Store[T]) Remove(ctx context.Context, dto T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "remove", ExternalID: dto.GetExternalID()})
	if err := s.failure("remove", dto.GetExternalID()); err != nil {
		return err
	}
	if _, ok := s.records[dto.GetExternalID()]; !ok {
		return fmt.Errorf("%w: %s", connection.ErrNotFound, dto.GetExternalID())
	}
	delete(s.records, dto.GetExternalID())
	return nil
}

// Put stores a record as is, bypassing call recording. Used to seed the
// remote side in tests.
func (s *Store[T]) Put(dto T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := clone(dto)
	if rec.GetExternalID() == "" {
		s.stamp(rec, s.newID, s.clock())
	}
	s.records[rec.GetExternalID()] = rec
	return clone(rec)
}

// Record returns a copy of the stored record with the given id.
func (s *Store[T]) Record(externalID string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[externalID]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(rec), true
}

// Delete drops a record without recording a call.
func (s *Store[T]) Delete(externalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, externalID)
}

// Len returns the number of stored records.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Calls returns the recorded calls, optionally only those of one operation.
func (s *Store[T]) Calls(op string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets the recorded calls.
func (s *Store[T]) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Fail makes the operation fail with err. An empty externalID fails every
// call of the operation. A nil err clears the failure.
func (s *Store[T]) Fail(op, externalID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := op + "|" + externalID
	if err == nil {
		delete(s.fail, key)
		return
	}
	s.fail[key] = err
}

// SetClock overrides the time source used to stamp UpdatedAt.
func (s *Store[T]) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *Store[T]) failure(op, externalID string) error {
	if err, ok := s.fail[op+"|"]; ok {
		return err
	}
	if externalID == "" {
		return nil
	}
	return s.fail[op+"|"+externalID]
}

// clone deep-copies a DTO so callers never share memory with the store.
func clone[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("memory: clone marshal: %v", err))
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("memory: clone unmarshal: %v", err))
	}
	return out
}

// Remote is a whole in-memory remote system.
type Remote struct {
	ProjectStore   *Store[*model.ProjectExternal]
	ObjectiveStore *Store[*model.ObjectiveExternal]

	mu      sync.Mutex
	setup   error
	opened  int
	lastUse connection.Info
}

// New creates an empty remote.
func New() *Remote {
	return &Remote{
		ProjectStore:   newStore(connection.StampProject),
		ObjectiveStore: newStore(connection.StampObjective),
	}
}

// FailSetup makes GetContext fail with err.
func (r *Remote) FailSetup(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setup = err
}

// Opened returns how many contexts were opened.
func (r *Remote) Opened() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

// LastInfo returns the connection info of the last opened context.
func (r *Remote) LastInfo() connection.Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUse
}

// GetContext opens a session on the remote.
func (r *Remote) GetContext(ctx context.Context, info connection.Info) (connection.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setup != nil {
		return nil, r.setup
	}
	r.opened++
	r.lastUse = info
	return &remoteContext{remote: r}, nil
}

type remoteContext struct {
	remote *Remote
	closed bool
}

func (c *remoteContext) Projects() connection.Connector[*model.ProjectExternal] {
	return c.remote.ProjectStore
}

func (c *remoteContext) Objectives() connection.Connector[*model.ObjectiveExternal] {
	return c.remote.ObjectiveStore
}

func (c *remoteContext) Close() error {
	c.closed = true
	return nil
}
