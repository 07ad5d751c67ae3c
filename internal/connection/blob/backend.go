// Package blob provides remote systems that keep each record as a JSON
// document in a blob backend.
//
// Two backends are available:
//
//   - folder: a directory tree through go-billy (osfs, or memfs in tests)
//   - s3: a bucket of an S3-compatible object store through minio-go
//
// Layout:
//
//	projects/<external-id>.json
//	objectives/<external-id>.json
package blob

import (
	"context"
	"errors"
)

// ErrNotExist is returned by backends for missing keys.
var ErrNotExist = errors.New("blob does not exist")

// Backend stores opaque documents by key.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
