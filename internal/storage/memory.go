package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrURLExpired is returned by OpenPresigned once a signed URL is past its expiry.
var ErrURLExpired = errors.New("signed url expired")

var _ Storage = (*Memory)(nil)

type memObject struct {
	data []byte
	info ObjectInfo
}

// Memory is an in-process Storage used for local development and tests.
// It keeps object bytes in memory; it is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memObject
	now     func() time.Time
}

// NewMemory returns an empty in-memory store for the given bucket name.
func NewMemory(bucket string) *Memory {
	if bucket == "" {
		bucket = "local"
	}
	return &Memory{bucket: bucket, objects: make(map[string]memObject), now: time.Now}
}

// SetClock replaces the store's time source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Put commits the object only if the whole reader was consumed without error.
func (m *Memory) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return ObjectInfo{}, &OpError{Op: "put", Key: key, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, &OpError{Op: "put", Key: key, Err: err}
	}
	if opt.Size >= 0 && int64(buf.Len()) != opt.Size {
		return ObjectInfo{}, &OpError{Op: "put", Key: key, Code: "IncompleteBody",
			Err: fmt.Errorf("read %d bytes, expected %d", buf.Len(), opt.Size)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	meta := make(map[string]string, len(opt.Metadata))
	for k, v := range opt.Metadata {
		meta[k] = v
	}
	info := ObjectInfo{
		Key:          key,
		Size:         int64(buf.Len()),
		ContentType:  opt.ContentType,
		Location:     m.location(key),
		LastModified: m.now(),
		Metadata:     meta,
	}
	m.objects[key] = memObject{data: buf.Bytes(), info: info}
	return info, nil
}

func (m *Memory) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, &OpError{Op: "get", Key: key, Err: err}
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, notFound("get", key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

// List returns entries in lexical key order, like an S3 listing.
func (m *Memory) List(ctx context.Context, maxKeys int) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, &OpError{Op: "list", Err: err}
	}
	m.mu.RLock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ObjectInfo, 0)
	for _, k := range keys {
		if len(out) >= maxKeys {
			break
		}
		out = append(out, m.objects[k].info)
	}
	m.mu.RUnlock()
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &OpError{Op: "delete", Key: key, Err: err}
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// PresignGet returns a memory:// URL carrying the key and its expiry.
// OpenPresigned resolves it.
func (m *Memory) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		return "", &OpError{Op: "presign", Key: key, Err: errors.New("expiry must be positive")}
	}
	m.mu.RLock()
	now := m.now()
	m.mu.RUnlock()
	q := url.Values{}
	q.Set("X-Amz-Date", strconv.FormatInt(now.Unix(), 10))
	q.Set("X-Amz-Expires", strconv.Itoa(int(expiry/time.Second)))
	return m.location(key) + "?" + q.Encode(), nil
}

// OpenPresigned dereferences a URL produced by PresignGet.
func (m *Memory) OpenPresigned(ctx context.Context, rawURL string) (io.ReadCloser, ObjectInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, ObjectInfo{}, &OpError{Op: "presign", Err: err}
	}
	issued, err1 := strconv.ParseInt(u.Query().Get("X-Amz-Date"), 10, 64)
	secs, err2 := strconv.ParseInt(u.Query().Get("X-Amz-Expires"), 10, 64)
	if err1 != nil || err2 != nil {
		return nil, ObjectInfo{}, &OpError{Op: "presign", Err: errors.New("malformed signed url")}
	}
	m.mu.RLock()
	now := m.now()
	m.mu.RUnlock()
	if now.After(time.Unix(issued+secs, 0)) {
		return nil, ObjectInfo{}, &OpError{Op: "presign", Code: "AccessDenied", Err: ErrURLExpired}
	}
	key, ok := strings.CutPrefix(u.Path, "/"+m.bucket+"/")
	if !ok {
		return nil, ObjectInfo{}, &OpError{Op: "presign", Code: "NoSuchBucket", Err: errors.New("signed url is for another bucket")}
	}
	return m.Get(ctx, key)
}

func (m *Memory) location(key string) string {
	u := url.URL{Scheme: "memory", Host: "store", Path: "/" + m.bucket + "/" + key}
	return u.String()
}
