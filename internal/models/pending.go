package models

import "io"

// UploadStatus is the lifecycle state of a client-side upload attempt.
type UploadStatus string

const (
	StatusIdle      UploadStatus = "idle"
	StatusSelected  UploadStatus = "selected"
	StatusUploading UploadStatus = "uploading"
	StatusSucceeded UploadStatus = "succeeded"
	StatusFailed    UploadStatus = "failed"
)

// LocalFile is a file on the user's machine that can be staged for upload.
type LocalFile struct {
	Name     string
	Path     string
	Size     int64
	MIMEType string
	// Open returns a fresh reader over the file contents.
	Open func() (io.ReadCloser, error)
}

// PendingUpload is the client's staged upload. It is never persisted.
type PendingUpload struct {
	File        *LocalFile
	Description string
	IsPublic    bool
	Status      UploadStatus
}
