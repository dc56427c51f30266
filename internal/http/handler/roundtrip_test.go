package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"pdfgate/internal/service"
	"pdfgate/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryApp(t *testing.T, maxBytes int64) (*fiber.App, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory("docs")
	svc := service.NewDocumentService(store, service.Options{
		MaxUploadBytes: maxBytes,
		Now:            func() time.Time { return time.UnixMilli(1_718_000_000_123) },
	})
	app := fiber.New(FiberConfig(0))
	RegisterRoutes(app.Group("/api"), svc, discardLogger())
	return app, store
}

func upload(t *testing.T, app *fiber.App, filename string, content []byte) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, UploadFieldName, filename, "application/pdf", content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestUploadThenServe(t *testing.T) {
	app, _ := newMemoryApp(t, 0)

	content := make([]byte, 2048)
	_, err := rand.Read(content)
	require.NoError(t, err)

	resp := upload(t, app, "report.pdf", content)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var uploaded uploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	require.True(t, uploaded.Success)
	assert.Equal(t, "documents/1718000000123-report.pdf", uploaded.File.Key)
	assert.Equal(t, "report.pdf", uploaded.File.Filename)
	assert.Equal(t, int64(len(content)), uploaded.File.Size)

	req := httptest.NewRequest(http.MethodGet, "/api/pdf/"+url.PathEscape(uploaded.File.Key), nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "inline", resp.Header.Get("Content-Disposition"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got), "served bytes differ from uploaded bytes")
}

func TestUploadListSignDelete(t *testing.T) {
	app, store := newMemoryApp(t, 0)

	resp := upload(t, app, "a.pdf", []byte("%PDF-1.7 a"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	key := "documents/1718000000123-a.pdf"

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/list-files", nil))
	var listed listResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed.Files, 1)
	assert.Equal(t, key, listed.Files[0].Key)
	assert.Equal(t, int64(10), listed.Files[0].Size)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/file/"+url.PathEscape(key), nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var signed map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&signed))

	rc, _, err := store.OpenPresigned(context.Background(), signed["url"])
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.7 a", string(b))

	resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/api/file/"+key, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/pdf/"+url.PathEscape(key), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Deleting again succeeds; absent keys are not an error.
	resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/api/file/"+key, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadTooLarge(t *testing.T) {
	app, store := newMemoryApp(t, 1024)

	resp := upload(t, app, "big.pdf", bytes.Repeat([]byte("x"), 4096))

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "Upload failed", decodeError(t, resp).Error)

	objects, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestUploadWrongType(t *testing.T) {
	app, store := newMemoryApp(t, 0)

	body, ct := multipartBody(t, UploadFieldName, "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	objects, _ := store.List(context.Background(), 10)
	assert.Empty(t, objects)
}
