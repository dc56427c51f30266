package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/s3utils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"pdfgate/internal/config"
)

// minioStorage implements the Storage interface using an S3-compatible backend (MinIO, AWS S3, etc.).
// It is safe for concurrent use by multiple goroutines.
type minioStorage struct {
	client   *minio.Client
	bucket   string
	partSize uint64
	// abortUpload drops the parts of an interrupted multipart upload.
	abortUpload func(ctx context.Context, key string) error
}

// NewMinIO creates a new S3-compatible storage client backed by MinIO.
// It validates connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(cfg config.StorageConfig) (Storage, error) {
	mc := cfg.MinIO
	if mc.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if mc.AccessKey == "" || mc.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(mc.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(mc.AccessKey, mc.SecretKey, ""),
		Secure:    mc.UseSSL,
		Region:    mc.Region,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ms := &minioStorage{client: cli, bucket: cfg.Bucket}
	ms.abortUpload = func(ctx context.Context, key string) error {
		return cli.RemoveIncompleteUpload(ctx, cfg.Bucket, key)
	}
	if cfg.PartBytes > 0 {
		ms.partSize = uint64(cfg.PartBytes)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure bucket exists.
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: mc.Region}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return ms, nil
}

// Put uploads an object using streaming I/O only (no local disk).
func (m *minioStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	putOpts := minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: opt.Metadata,
		PartSize:     m.partSize,
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, opt.Size, putOpts)
	if err != nil {
		// minio-go aborts on the caller's context, which is already done here.
		if ctx.Err() != nil && m.abortUpload != nil {
			if abortErr := m.abortUpload(context.WithoutCancel(ctx), key); abortErr != nil {
				err = errors.Join(err, abortErr)
			}
		}
		return ObjectInfo{}, minioError("put", key, err)
	}
	if info.Key == "" {
		info.Key = key
	}
	modified := info.LastModified
	if modified.IsZero() {
		modified = time.Now()
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  opt.ContentType,
		Location:     m.location(key),
		LastModified: modified,
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens an object and stats it so a missing key fails before any byte is read.
func (m *minioStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, minioError("get", key, err)
	}
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, minioError("get", key, err)
	}
	info := ObjectInfo{
		Key:          key,
		Size:         st.Size,
		ETag:         st.ETag,
		ContentType:  st.ContentType,
		Location:     m.location(key),
		LastModified: st.LastModified,
		Metadata:     st.UserMetadata,
	}
	return obj, info, nil
}

// List reads the bucket listing and stops after maxKeys entries.
func (m *minioStorage) List(ctx context.Context, maxKeys int) ([]ObjectInfo, error) {
	if maxKeys <= 0 {
		return []ObjectInfo{}, nil
	}
	// Cancelling stops the lister goroutine once enough entries were read.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]ObjectInfo, 0, maxKeys)
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Recursive: true,
		MaxKeys:   maxKeys,
	}) {
		if obj.Err != nil {
			return nil, minioError("list", "", obj.Err)
		}
		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
		if len(out) >= maxKeys {
			break
		}
	}
	return out, nil
}

// Delete removes an object by key.
func (m *minioStorage) Delete(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		err = minioError("delete", key, err)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// PresignGet generates a pre-signed URL for GET with the specified expiry.
func (m *minioStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", minioError("presign", key, err)
	}
	return u.String(), nil
}

func (m *minioStorage) location(key string) string {
	u := *m.client.EndpointURL()
	u.Path = "/" + m.bucket + "/" + key
	u.RawPath = "/" + m.bucket + "/" + s3utils.EncodePath(key)
	return u.String()
}

func minioError(op, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey":
		return notFound(op, key)
	}
	return &OpError{Op: op, Key: key, Code: resp.Code, Err: err}
}
