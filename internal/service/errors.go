package service

import (
	"errors"
	"fmt"

	"pdfgate/internal/storage"
)

// ErrValidation is the root of every client-input error. Handlers map it to 400.
var ErrValidation = errors.New("validation error")

var (
	// ErrUnsupportedMediaType rejects uploads not declared as application/pdf.
	ErrUnsupportedMediaType = fmt.Errorf("%w: unsupported media type", ErrValidation)
	// ErrKeyRequired reports an empty object key.
	ErrKeyRequired = fmt.Errorf("%w: no file key provided", ErrValidation)
	// ErrMalformedKey reports a key with an invalid percent escape.
	ErrMalformedKey = fmt.Errorf("%w: malformed file key", ErrValidation)
	// ErrReaderNil is returned when Upload is given no body.
	ErrReaderNil = fmt.Errorf("%w: reader is nil", ErrValidation)

	// ErrPayloadTooLarge reports a body past the upload ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrNotFound reports a key absent from the store.
	ErrNotFound = errors.New("document not found")
)

// StoreError reports a remote store failure. Err keeps the upstream detail.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Code is the upstream error code, empty when the store gave none.
func (e *StoreError) Code() string {
	return storage.ErrorCode(e.Err)
}

func storeFailure(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &StoreError{Op: op, Err: err}
}
