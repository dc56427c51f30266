package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pdfgate/internal/model"
	"pdfgate/internal/storage"
)

const (
	// DefaultSignedURLTTL is how long a signed retrieval URL stays valid.
	DefaultSignedURLTTL = time.Hour
	// DefaultListMaxItems caps a single listing response.
	DefaultListMaxItems = 10
)

var tracer = otel.Tracer("pdfgate/internal/service")

// DocumentService defines the use cases for handling PDF documents held in the object store.
type DocumentService interface {
	// Upload streams r into the store under a key derived from originalFilename.
	// The declared contentType must be application/pdf; bodies over the size ceiling fail with ErrPayloadTooLarge.
	Upload(ctx context.Context, r io.Reader, fieldName, originalFilename, contentType string) (*model.StoredDocument, error)

	// Open returns a reader over the stored object. A missing key fails with ErrNotFound
	// before the reader is handed out. The caller closes the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, *model.ObjectEntry, error)

	// List returns up to maxItems entries (capped by the configured maximum).
	List(ctx context.Context, maxItems int) ([]model.ObjectEntry, error)

	// SignURL returns a time-limited retrieval URL. It does not check that the key exists.
	SignURL(ctx context.Context, key string) (string, error)

	// Delete removes a document. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
}

// Options tune a DocumentService. Zero values fall back to the package defaults.
type Options struct {
	MaxUploadBytes int64
	KeyPrefix      string
	SignedURLTTL   time.Duration
	ListMaxItems   int
	Now            func() time.Time
	Logger         logrus.FieldLogger
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store    storage.Storage
	keys     KeyNamer
	maxBytes int64
	ttl      time.Duration
	listMax  int
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, opts Options) DocumentService {
	s := &documentService{
		store:    store,
		maxBytes: opts.MaxUploadBytes,
		ttl:      opts.SignedURLTTL,
		listMax:  opts.ListMaxItems,
		now:      opts.Now,
		log:      opts.Logger,
	}
	if s.maxBytes <= 0 {
		s.maxBytes = DefaultMaxUploadBytes
	}
	if s.ttl <= 0 {
		s.ttl = DefaultSignedURLTTL
	}
	if s.listMax <= 0 {
		s.listMax = DefaultListMaxItems
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	s.keys = KeyNamer{Prefix: prefix, Now: s.now}
	return s
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, fieldName, originalFilename, contentType string) (*model.StoredDocument, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if err := ValidateContentType(contentType); err != nil {
		return nil, err
	}

	key := s.keys.Derive(originalFilename)
	ctx, span := tracer.Start(ctx, "DocumentService.Upload", trace.WithAttributes(
		attribute.String("object.key", key),
	))
	defer span.End()

	// Cancelling aborts the in-flight put when the body turns out to be too large.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	body := newLimitReader(r, s.maxBytes, cancel)

	info, err := s.store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        -1,
		ContentType: model.ContentTypePDF,
		Metadata:    map[string]string{"fieldName": fieldName},
	})
	if body.exceeded {
		if err == nil {
			// The store committed despite the aborted read; do not leave it behind.
			if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				s.log.WithError(delErr).WithField("key", key).Warn("remove oversized object failed")
			}
		}
		err = fmt.Errorf("upload %q: %w", originalFilename, ErrPayloadTooLarge)
		recordError(span, err)
		return nil, err
	}
	if err != nil {
		err = storeFailure("upload to storage", err)
		recordError(span, err)
		return nil, err
	}

	if info.Key == "" {
		info.Key = key
	}
	span.SetAttributes(attribute.Int64("object.size", info.Size))
	s.log.WithFields(logrus.Fields{"key": info.Key, "size": info.Size}).Info("document uploaded")

	return &model.StoredDocument{
		Filename:    originalFilename,
		URL:         info.Location,
		Key:         info.Key,
		Size:        info.Size,
		ContentType: model.ContentTypePDF,
		UploadedAt:  s.now().UTC(),
	}, nil
}

func (s *documentService) Open(ctx context.Context, key string) (io.ReadCloser, *model.ObjectEntry, error) {
	if key == "" {
		return nil, nil, ErrKeyRequired
	}
	ctx, span := tracer.Start(ctx, "DocumentService.Open", trace.WithAttributes(
		attribute.String("object.key", key),
	))
	defer span.End()

	rc, info, err := s.store.Get(ctx, key)
	if err != nil {
		err = storeFailure("open object", err)
		recordError(span, err)
		return nil, nil, err
	}
	return rc, &model.ObjectEntry{
		Key:          key,
		Size:         info.Size,
		LastModified: info.LastModified,
	}, nil
}

func (s *documentService) List(ctx context.Context, maxItems int) ([]model.ObjectEntry, error) {
	if maxItems <= 0 || maxItems > s.listMax {
		maxItems = s.listMax
	}
	ctx, span := tracer.Start(ctx, "DocumentService.List", trace.WithAttributes(
		attribute.Int("list.max_items", maxItems),
	))
	defer span.End()

	objs, err := s.store.List(ctx, maxItems)
	if err != nil {
		err = storeFailure("list objects", err)
		recordError(span, err)
		return nil, err
	}
	if len(objs) > maxItems {
		objs = objs[:maxItems]
	}
	out := make([]model.ObjectEntry, 0, len(objs))
	for _, o := range objs {
		out = append(out, model.ObjectEntry{Key: o.Key, Size: o.Size, LastModified: o.LastModified})
	}
	return out, nil
}

func (s *documentService) SignURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}
	ctx, span := tracer.Start(ctx, "DocumentService.SignURL", trace.WithAttributes(
		attribute.String("object.key", key),
	))
	defer span.End()

	u, err := s.store.PresignGet(ctx, key, s.ttl)
	if err != nil {
		err = &StoreError{Op: "sign url", Err: err}
		recordError(span, err)
		return "", err
	}
	return u, nil
}

func (s *documentService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	ctx, span := tracer.Start(ctx, "DocumentService.Delete", trace.WithAttributes(
		attribute.String("object.key", key),
	))
	defer span.End()

	if err := s.store.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		err = &StoreError{Op: "delete storage", Err: err}
		recordError(span, err)
		return err
	}
	s.log.WithField("key", key).Info("document deleted")
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
