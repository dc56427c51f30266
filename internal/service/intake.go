package service

import (
	"io"

	"pdfgate/internal/model"
)

// DefaultMaxUploadBytes is the hard ceiling for one document.
const DefaultMaxUploadBytes int64 = 10 << 20

// ValidateContentType admits only the exact declared type application/pdf.
// The value is client supplied, so this filters honest mistakes only.
func ValidateContentType(contentType string) error {
	if contentType != model.ContentTypePDF {
		return ErrUnsupportedMediaType
	}
	return nil
}

// limitReader fails with ErrPayloadTooLarge as soon as more than max bytes are
// seen. It never truncates silently.
type limitReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
	onExceed  func()
}

func newLimitReader(r io.Reader, max int64, onExceed func()) *limitReader {
	return &limitReader{r: r, remaining: max, onExceed: onExceed}
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrPayloadTooLarge
	}
	// Ask for one byte past the limit so an oversized body is detected
	// without waiting for the next read.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	if int64(n) <= l.remaining {
		l.remaining -= int64(n)
		return n, err
	}
	l.exceeded = true
	if l.onExceed != nil {
		l.onExceed()
	}
	return 0, ErrPayloadTooLarge
}
