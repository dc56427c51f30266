package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"pdfgate/internal/model"
	"pdfgate/internal/storage"
	storeMocks "pdfgate/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1_718_000_000_123)

func newTestService(store storage.Storage) DocumentService {
	return NewDocumentService(store, Options{Now: func() time.Time { return fixedNow }})
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		filename    string
		contentType string
		setupMocks  func(mStore *storeMocks.MockStorage) io.Reader
		wantErr     error
		wantErrMsg  string
	}{
		{
			name:        "happy path",
			filename:    "report.pdf",
			contentType: "application/pdf",
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				r := strings.NewReader("%PDF-1.4")
				mStore.On("Put", mock.Anything, "documents/1718000000123-report.pdf", mock.Anything, storage.PutObjectOptions{
					Size:        -1,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"fieldName": "file"},
				}).Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
					n, _ := io.Copy(io.Discard, r)
					return storage.ObjectInfo{Key: key, Size: n, Location: "https://s3.test/docs/" + key}
				}, nil)
				return r
			},
		},
		{
			name:     "validation error - nil reader",
			filename: "report.pdf",
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				return nil
			},
			wantErr: ErrReaderNil,
		},
		{
			name:        "unsupported media type",
			filename:    "notes.txt",
			contentType: "text/plain",
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				return strings.NewReader("hello")
			},
			wantErr: ErrUnsupportedMediaType,
		},
		{
			name:        "storage error",
			filename:    "report.pdf",
			contentType: "application/pdf",
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, &storage.OpError{Op: "put", Code: "AccessDenied", Err: errors.New("denied")})
				return r
			},
			wantErrMsg: "upload to storage: storage put: denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			svc := newTestService(mStore)
			r := tt.setupMocks(mStore)

			doc, err := svc.Upload(ctx, r, "file", tt.filename, tt.contentType)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
				mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrMsg, err.Error())
				var se *StoreError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, "AccessDenied", se.Code())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "report.pdf", doc.Filename)
			assert.Equal(t, "documents/1718000000123-report.pdf", doc.Key)
			assert.Equal(t, int64(8), doc.Size)
			assert.Equal(t, "https://s3.test/docs/documents/1718000000123-report.pdf", doc.URL)
			assert.Equal(t, model.ContentTypePDF, doc.ContentType)
			assert.Equal(t, fixedNow.UTC(), doc.UploadedAt)
			mStore.AssertExpectations(t)
		})
	}
}

func TestDocumentService_UploadTooLarge(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("docs")
	svc := NewDocumentService(store, Options{MaxUploadBytes: 1024, Now: func() time.Time { return fixedNow }})

	_, err := svc.Upload(ctx, bytes.NewReader(make([]byte, 1025)), "file", "big.pdf", "application/pdf")
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	_, _, err = store.Get(ctx, "documents/1718000000123-big.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	doc, err := svc.Upload(ctx, bytes.NewReader(make([]byte, 1024)), "file", "edge.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(1024), doc.Size)
}

func TestDocumentService_UploadTooLargeDefaultCeiling(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("docs")
	svc := newTestService(store)

	_, err := svc.Upload(ctx, io.LimitReader(zeroReader{}, DefaultMaxUploadBytes+1), "file", "huge.pdf", "application/pdf")
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	items, err := store.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDocumentService_UploadTooLargeRemovesCommittedObject(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	svc := NewDocumentService(mStore, Options{MaxUploadBytes: 4, Now: func() time.Time { return fixedNow }})

	// A store that swallows the read error and reports success anyway.
	mStore.On("Put", mock.Anything, "documents/1718000000123-x.pdf", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			_, _ = io.Copy(io.Discard, r)
			return storage.ObjectInfo{Key: key, Size: 4}
		}, nil)
	mStore.On("Delete", mock.Anything, "documents/1718000000123-x.pdf").Return(nil)

	doc, err := svc.Upload(ctx, strings.NewReader("123456"), "file", "x.pdf", "application/pdf")
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	mStore.AssertExpectations(t)
}

func TestDocumentService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("docs")
	svc := newTestService(store)

	payload := make([]byte, 2048)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	doc, err := svc.Upload(ctx, bytes.NewReader(payload), "file", "report.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "documents/1718000000123-report.pdf", doc.Key)
	assert.Equal(t, int64(2048), doc.Size)

	rc, entry, err := svc.Open(ctx, doc.Key)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, int64(2048), entry.Size)

	_, info, err := store.Get(ctx, doc.Key)
	require.NoError(t, err)
	assert.Equal(t, "file", info.Metadata["fieldName"])
}

func TestDocumentService_DeleteThenOpen(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory("docs")
	svc := newTestService(store)

	doc, err := svc.Upload(ctx, strings.NewReader("%PDF"), "file", "a.pdf", "application/pdf")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, doc.Key))
	_, _, err = svc.Open(ctx, doc.Key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is indistinguishable from the first delete.
	require.NoError(t, svc.Delete(ctx, doc.Key))
	require.NoError(t, svc.Delete(ctx, "documents/never-there.pdf"))
}

func TestDocumentService_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("key required", func(t *testing.T) {
		_, _, err := newTestService(new(storeMocks.MockStorage)).Open(ctx, "")
		assert.ErrorIs(t, err, ErrKeyRequired)
	})

	t.Run("store failure is not a not-found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Get", mock.Anything, "k").Return(nil, storage.ObjectInfo{}, &storage.OpError{Op: "get", Key: "k", Err: errors.New("timeout")})

		_, _, err := newTestService(mStore).Open(ctx, "k")
		assert.NotErrorIs(t, err, ErrNotFound)
		var se *StoreError
		assert.True(t, errors.As(err, &se))
	})
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("never more than the cap", func(t *testing.T) {
		store := storage.NewMemory("docs")
		for i := 0; i < 15; i++ {
			_, err := store.Put(ctx, fmt.Sprintf("documents/%02d.pdf", i), strings.NewReader("x"), storage.PutObjectOptions{Size: -1})
			require.NoError(t, err)
		}
		svc := newTestService(store)

		items, err := svc.List(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, items, 10)

		items, err = svc.List(ctx, 500)
		require.NoError(t, err)
		assert.Len(t, items, 10)

		items, err = svc.List(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("store returns more than asked", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		many := make([]storage.ObjectInfo, 12)
		mStore.On("List", mock.Anything, 10).Return(many, nil)

		items, err := newTestService(mStore).List(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, items, 10)
	})

	t.Run("store error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("List", mock.Anything, 10).Return(nil, errors.New("unreachable"))

		_, err := newTestService(mStore).List(ctx, 10)
		var se *StoreError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "list objects: unreachable", err.Error())
	})
}

func TestDocumentService_SignURL(t *testing.T) {
	ctx := context.Background()

	t.Run("one hour expiry", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("PresignGet", mock.Anything, "documents/1-a.pdf", time.Hour).Return("https://signed.test/documents/1-a.pdf?X-Amz-Expires=3600", nil)

		u, err := newTestService(mStore).SignURL(ctx, "documents/1-a.pdf")
		require.NoError(t, err)
		assert.Contains(t, u, "documents/1-a.pdf")
		mStore.AssertExpectations(t)
	})

	t.Run("resolves to the stored bytes until expiry", func(t *testing.T) {
		store := storage.NewMemory("docs")
		now := fixedNow
		store.SetClock(func() time.Time { return now })
		svc := newTestService(store)

		doc, err := svc.Upload(ctx, strings.NewReader("%PDF-bytes"), "file", "a.pdf", "application/pdf")
		require.NoError(t, err)

		u, err := svc.SignURL(ctx, doc.Key)
		require.NoError(t, err)

		rc, _, err := store.OpenPresigned(ctx, u)
		require.NoError(t, err)
		b, _ := io.ReadAll(rc)
		assert.Equal(t, "%PDF-bytes", string(b))

		now = now.Add(time.Hour + time.Second)
		_, _, err = store.OpenPresigned(ctx, u)
		assert.ErrorIs(t, err, storage.ErrURLExpired)
	})

	t.Run("signing failure", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("PresignGet", mock.Anything, "k", time.Hour).Return("", errors.New("no credentials"))

		_, err := newTestService(mStore).SignURL(ctx, "k")
		var se *StoreError
		assert.True(t, errors.As(err, &se))
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("key required", func(t *testing.T) {
		assert.ErrorIs(t, newTestService(new(storeMocks.MockStorage)).Delete(ctx, ""), ErrKeyRequired)
	})

	t.Run("not found is success", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Delete", mock.Anything, "k").Return(fmt.Errorf("wrapped: %w", storage.ErrNotFound))
		assert.NoError(t, newTestService(mStore).Delete(ctx, "k"))
	})

	t.Run("store failure keeps code", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("Delete", mock.Anything, "k").Return(&storage.OpError{Op: "delete", Key: "k", Code: "AccessDenied", Err: errors.New("Access Denied")})

		err := newTestService(mStore).Delete(ctx, "k")
		var se *StoreError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "AccessDenied", se.Code())
	})
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
