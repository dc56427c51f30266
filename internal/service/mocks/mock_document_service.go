package mocks

import (
	"context"
	"io"

	"pdfgate/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, r io.Reader, fieldName, originalFilename, contentType string) (*model.StoredDocument, error) {
	args := m.Called(ctx, r, fieldName, originalFilename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredDocument), args.Error(1)
}

func (m *MockDocumentService) Open(ctx context.Context, key string) (io.ReadCloser, *model.ObjectEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.ObjectEntry), args.Error(2)
}

func (m *MockDocumentService) List(ctx context.Context, maxItems int) ([]model.ObjectEntry, error) {
	args := m.Called(ctx, maxItems)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ObjectEntry), args.Error(1)
}

func (m *MockDocumentService) SignURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
