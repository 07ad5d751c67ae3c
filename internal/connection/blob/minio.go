package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mrsbim/bimsync/internal/connection"
)

// BucketBackend stores documents as objects of one bucket.
type BucketBackend struct {
	client *minio.Client
	bucket string
}

// NewBucketBackend connects to an S3-compatible endpoint and makes sure the
// bucket exists.
//
// Required connection values: endpoint, bucket, access_key, secret_key.
// Optional: use_ssl (default true), region.
func NewBucketBackend(ctx context.Context, info connection.Info) (*BucketBackend, error) {
	if err := info.Require("endpoint", "bucket", "access_key", "secret_key"); err != nil {
		return nil, err
	}

	secure := true
	if raw := info.Value("use_ssl"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: use_ssl: %v", connection.ErrInvalidInfo, err)
		}
		secure = v
	}

	client, err := minio.New(info.Value("endpoint"), &minio.Options{
		Creds:  credentials.NewStaticV4(info.Value("access_key"), info.Value("secret_key"), ""),
		Secure: secure,
		Region: info.Value("region"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connection.ErrUnavailable, err)
	}

	bucket := info.Value("bucket")
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: bucket %s: %v", connection.ErrUnavailable, bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: info.Value("region")}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return &BucketBackend{client: client, bucket: bucket}, nil
}

func (b *BucketBackend) Read(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(key, err)
	}
	defer func() {
		_ = obj.Close()
	}()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateError(key, err)
	}
	return data, nil
}

func (b *BucketBackend) Write(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return translateError(key, err)
	}
	return nil
}

func (b *BucketBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{}); err != nil {
		return translateError(key, err)
	}
	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return translateError(key, err)
	}
	return nil
}

func (b *BucketBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, translateError(prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func translateError(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%w: %s", ErrNotExist, key)
	case "NoSuchBucket", "AccessDenied":
		return fmt.Errorf("%w: %s: %v", connection.ErrUnavailable, key, err)
	}
	return fmt.Errorf("blob %s: %w", key, err)
}
