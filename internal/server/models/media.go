package models

import "time"

// Upload states for product media.
const (
	MediaUploadPending  = "pending"
	MediaUploadUploaded = "uploaded"
)

// Media describes server-side metadata for a binary payload attached to a
// product. The bytes themselves live in object storage; the API hands out
// presigned URLs only.
type Media struct {
	ID string
	// ProductID links the media to its parent product.
	ProductID string
	// StorageKey is the object-storage key (path) of the blob.
	StorageKey string
	// ContentType as declared by the uploader.
	ContentType string
	// UploadStatus tracks upload state ("pending", "uploaded").
	UploadStatus string
	CreatedAt    time.Time
}

// MediaUploadTask instructs the client to upload a blob using a presigned URL.
type MediaUploadTask struct {
	// MediaID identifies the media row awaiting its payload.
	MediaID string
	// StorageKey is the bucket key the payload will land under.
	StorageKey string
	// URL is a temporary presigned HTTP URL for the client to PUT the bytes.
	URL string
}
