package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"pdfgate/internal/config"
)

// Package storage contains object store abstractions for S3-compatible backends.
// Implementations must avoid local disk and rely on streaming I/O only.

// ErrNotFound is returned (possibly wrapped) when the requested key does not exist.
var ErrNotFound = errors.New("object not found")

// OpError describes a failed call against the remote store.
// Code carries the upstream error code (e.g. "AccessDenied") when the backend reports one.
type OpError struct {
	Op   string
	Key  string
	Code string
	Err  error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the
// implementation streams the body in PartSize windows.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	Location     string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a reusable, S3-compatible object storage client scoped to one bucket.
// Methods use context and streaming readers; no local disk is used.
type Storage interface {
	// Put uploads an object under the given key. It returns only after the store
	// has confirmed the write; a failed or cancelled read leaves nothing committed.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	// A missing key yields ErrNotFound before any content is read.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// List returns at most maxKeys objects from the first listing page.
	List(ctx context.Context, maxKeys int) ([]ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ErrorCode returns the upstream error code carried by err, if any.
func ErrorCode(err error) string {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

func notFound(op, key string) error {
	return fmt.Errorf("storage %s %q: %w", op, key, ErrNotFound)
}

// New builds the Storage selected by cfg.Driver.
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case config.DriverMinIO, "":
		return NewMinIO(cfg)
	case config.DriverS3:
		return NewS3(cfg)
	case config.DriverMemory:
		return NewMemory(cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
