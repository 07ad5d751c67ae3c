package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/model"
)

const (
	// FolderType is the registered type of the directory remote.
	FolderType = "folder"
	// BucketType is the registered type of the S3 remote.
	BucketType = "s3"

	projectsPrefix   = "projects/"
	objectivesPrefix = "objectives/"
)

// ErrInvalidID is returned for external ids that cannot name a document
// below the store prefix.
var ErrInvalidID = errors.New("invalid external id")

func init() {
	connection.Register(FolderType, func() (connection.Connection, error) {
		return &Remote{open: openFolder}, nil
	})
	connection.Register(BucketType, func() (connection.Connection, error) {
		return &Remote{open: openBucket}, nil
	})
}

func openFolder(ctx context.Context, info connection.Info) (Backend, error) {
	if err := info.Require("root"); err != nil {
		return nil, err
	}
	return NewOSFolderBackend(info.Value("root"))
}

// FolderDirs returns the directories a folder remote rooted at root keeps
// its documents in.
func FolderDirs(root string) []string {
	return []string{
		filepath.Join(root, strings.TrimSuffix(projectsPrefix, "/")),
		filepath.Join(root, strings.TrimSuffix(objectivesPrefix, "/")),
	}
}

func openBucket(ctx context.Context, info connection.Info) (Backend, error) {
	return NewBucketBackend(ctx, info)
}

// Store is a Connector keeping one JSON document per record.
type Store[T model.External] struct {
	backend Backend
	prefix  string
	stamp   func(T, connection.IDFunc, time.Time)
	newID   connection.IDFunc
	clock   func() time.Time
}

// NewStore creates a connector over backend for documents below prefix.
func NewStore[T model.External](backend Backend, prefix string, stamp func(T, connection.IDFunc, time.Time)) *Store[T] {
	return &Store[T]{
		backend: backend,
		prefix:  prefix,
		stamp:   stamp,
		newID:   connection.NewExternalID,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store[T]) key(externalID string) (string, error) {
	if externalID == "" || strings.ContainsAny(externalID, `/\`) || strings.Contains(externalID, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, externalID)
	}
	return path.Join(s.prefix, externalID+".json"), nil
}

func (s *Store[T]) read(ctx context.Context, key string) (T, error) {
	var rec T
	data, err := s.backend.Read(ctx, key)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return rec, nil
}

func (s *Store[T]) write(ctx context.Context, rec T) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	key, err := s.key(rec.GetExternalID())
	if err != nil {
		return err
	}
	return s.backend.Write(ctx, key, data)
}

// Get returns the records for the ids that exist.
func (s *Store[T]) Get(ctx context.Context, ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || id == "" {
			continue
		}
		seen[id] = true
		key, err := s.key(id)
		if err != nil {
			return nil, err
		}
		rec, err := s.read(ctx, key)
		if errors.Is(err, ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetUpdatedIDs returns the ids of records updated at or after since.
func (s *Store[T]) GetUpdatedIDs(ctx context.Context, since time.Time) ([]string, error) {
	keys, err := s.backend.List(ctx, s.prefix)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		rec, err := s.read(ctx, key)
		if err != nil {
			return nil, err
		}
		if !rec.GetUpdatedAt().Before(since) {
			ids = append(ids, rec.GetExternalID())
		}
	}
	return ids, nil
}

// Add stores a new record.
func (s *Store[T]) Add(ctx context.Context, dto T) (T, error) {
	s.stamp(dto, s.newID, s.clock())
	if err := s.write(ctx, dto); err != nil {
		var zero T
		return zero, err
	}
	return dto, nil
}

// Update replaces an existing record.
func (s *Store[T]) Update(ctx context.Context, dto T) (T, error) {
	var zero T
	if dto.GetExternalID() == "" {
		return zero, fmt.Errorf("%w: empty external id", connection.ErrNotFound)
	}
	key, err := s.key(dto.GetExternalID())
	if err != nil {
		return zero, err
	}
	if _, err := s.read(ctx, key); err != nil {
		if errors.Is(err, ErrNotExist) {
			return zero, fmt.Errorf("%w: %s", connection.ErrNotFound, dto.GetExternalID())
		}
		return zero, err
	}
	s.stamp(dto, s.newID, s.clock())
	if err := s.write(ctx, dto); err != nil {
		return zero, err
	}
	return dto, nil
}

// Remove deletes a record.
func (s *Store[T]) Remove(ctx context.Context, dto T) error {
	key, err := s.key(dto.GetExternalID())
	if err != nil {
		return err
	}
	err = s.backend.Delete(ctx, key)
	if errors.Is(err, ErrNotExist) {
		return fmt.Errorf("%w: %s", connection.ErrNotFound, dto.GetExternalID())
	}
	return err
}

// Remote is a Connection over a blob backend.
type Remote struct {
	open func(ctx context.Context, info connection.Info) (Backend, error)
}

// NewRemote creates a Connection that always uses backend.
func NewRemote(backend Backend) *Remote {
	return &Remote{open: func(context.Context, connection.Info) (Backend, error) {
		return backend, nil
	}}
}

// GetContext opens the backend described by info.
func (r *Remote) GetContext(ctx context.Context, info connection.Info) (connection.Context, error) {
	backend, err := r.open(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s remote: %w", info.Type, err)
	}
	return &remoteContext{
		projects:   NewStore(backend, projectsPrefix, connection.StampProject),
		objectives: NewStore(backend, objectivesPrefix, connection.StampObjective),
	}, nil
}

type remoteContext struct {
	mu         sync.Mutex
	closed     bool
	projects   *Store[*model.ProjectExternal]
	objectives *Store[*model.ObjectiveExternal]
}

func (c *remoteContext) Projects() connection.Connector[*model.ProjectExternal] {
	return c.projects
}

func (c *remoteContext) Objectives() connection.Connector[*model.ObjectiveExternal] {
	return c.objectives
}

func (c *remoteContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return connection.ErrClosed
	}
	c.closed = true
	return nil
}
