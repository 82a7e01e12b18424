package models

import "time"

// UploadedFile represents an audio file accepted by the upload endpoint.
type UploadedFile struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredPath   string    `json:"stored_path"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}
