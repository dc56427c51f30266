package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfgate/internal/storage"
)

func TestErrorTaxonomy(t *testing.T) {
	for _, err := range []error{ErrUnsupportedMediaType, ErrKeyRequired, ErrMalformedKey, ErrReaderNil} {
		assert.ErrorIs(t, err, ErrValidation, err.Error())
	}
	assert.NotErrorIs(t, ErrPayloadTooLarge, ErrValidation)
	assert.NotErrorIs(t, ErrNotFound, ErrValidation)
}

func TestStoreFailure(t *testing.T) {
	err := storeFailure("open object", &storage.OpError{Op: "get", Key: "k", Err: storage.ErrNotFound})
	assert.ErrorIs(t, err, ErrNotFound)

	err = storeFailure("list objects", &storage.OpError{Op: "list", Code: "SlowDown", Err: errors.New("slow down")})
	var se *StoreError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "SlowDown", se.Code())
	assert.Equal(t, "list objects: storage list: slow down", se.Error())
}
