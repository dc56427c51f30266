package service

import (
	"net/url"
	"strconv"
	"time"
)

// DefaultKeyPrefix is the folder every uploaded document lands in.
const DefaultKeyPrefix = "documents/"

// KeyNamer derives object keys as <prefix><unix-millis>-<original name>.
// The original name is an opaque suffix: it is neither escaped nor interpreted.
// Two uploads of the same name in the same millisecond share a key.
type KeyNamer struct {
	Prefix string
	Now    func() time.Time
}

// Derive returns the object key for originalName.
func (k KeyNamer) Derive(originalName string) string {
	now := time.Now
	if k.Now != nil {
		now = k.Now
	}
	return k.Prefix + strconv.FormatInt(now().UnixMilli(), 10) + "-" + originalName
}

// DeriveKey names a document with the default prefix and the wall clock.
func DeriveKey(originalName string) string {
	return KeyNamer{Prefix: DefaultKeyPrefix}.Derive(originalName)
}

// DecodeKey percent-decodes a key taken from a URL path. It decodes exactly once;
// the result is never unescaped again.
func DecodeKey(raw string) (string, error) {
	if raw == "" {
		return "", ErrKeyRequired
	}
	key, err := url.PathUnescape(raw)
	if err != nil {
		return "", ErrMalformedKey
	}
	if key == "" {
		return "", ErrKeyRequired
	}
	return key, nil
}
