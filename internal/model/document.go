package model

import "time"

// ContentTypePDF is the only media type the gateway admits.
const ContentTypePDF = "application/pdf"

// StoredDocument describes an object just written to the remote store.
// The gateway never persists it; the store owns the bytes.
type StoredDocument struct {
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"-"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// ObjectEntry is one row of a bucket listing.
type ObjectEntry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}
