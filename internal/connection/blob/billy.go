package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// FolderBackend stores documents as files of a billy filesystem.
type FolderBackend struct {
	fs billy.Filesystem
}

// NewFolderBackend wraps an existing filesystem.
func NewFolderBackend(fs billy.Filesystem) *FolderBackend {
	return &FolderBackend{fs: fs}
}

// NewOSFolderBackend stores documents below root on the local disk.
func NewOSFolderBackend(root string) (*FolderBackend, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create folder remote root: %w", err)
	}
	return NewFolderBackend(osfs.New(root)), nil
}

// NewMemoryFolderBackend stores documents in memory.
func NewMemoryFolderBackend() *FolderBackend {
	return NewFolderBackend(memfs.New())
}

func (b *FolderBackend) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := util.ReadFile(b.fs, key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (b *FolderBackend) Write(ctx context.Context, key string, data []byte) error {
	if err := b.fs.MkdirAll(path.Dir(key), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := util.WriteFile(b.fs, key, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (b *FolderBackend) Delete(ctx context.Context, key string) error {
	err := b.fs.Remove(key)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// List returns the keys of the regular files directly below prefix.
func (b *FolderBackend) List(ctx context.Context, prefix string) ([]string, error) {
	dir := strings.TrimSuffix(prefix, "/")
	infos, err := b.fs.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		keys = append(keys, path.Join(dir, info.Name()))
	}
	sort.Strings(keys)
	return keys, nil
}

// Root returns the directory of an OS-backed filesystem, or "".
func (b *FolderBackend) Root() string {
	return b.fs.Root()
}
