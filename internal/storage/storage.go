// Package storage holds the file API's persistence: chunk blobs in MinIO,
// metadata in TiDB and a Redis read-through cache for file metadata.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/maneesh/filedrop/internal/models"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("filedrop-storage")

var (
	// ErrFileNotFound is returned when no file matches the lookup.
	ErrFileNotFound = errors.New("file not found")
	// ErrShareNotFound is returned when no share matches the token.
	ErrShareNotFound = errors.New("share not found")
	// ErrShareExhausted is returned when a share is past its expiry or
	// download limit.
	ErrShareExhausted = errors.New("share exhausted")
)

// BlobStore stores chunk payloads by object key.
type BlobStore interface {
	UploadChunk(ctx context.Context, objectKey string, data []byte) error
	DownloadChunk(ctx context.Context, objectKey string) ([]byte, error)
	DeleteChunk(ctx context.Context, objectKey string) error
}

// MetadataStore persists files, their chunks and share links.
type MetadataStore interface {
	// SaveFile writes the file row and all chunk rows atomically.
	SaveFile(ctx context.Context, file *models.File, chunks []*models.Chunk) error
	GetFile(ctx context.Context, fileID string) (*models.File, error)
	GetChunks(ctx context.Context, fileID string) ([]*models.Chunk, error)
	// ListByOwner and ListPublic return newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.File, error)
	ListPublic(ctx context.Context) ([]*models.File, error)
	// DeleteFile removes the file, its chunk rows and its shares.
	DeleteFile(ctx context.Context, fileID string) error

	CreateShare(ctx context.Context, share *models.Share) error
	GetShare(ctx context.Context, token string) (*models.Share, error)
	// ClaimShareDownload counts one download against the share if it is
	// still usable at now. The check and the increment are one atomic step.
	ClaimShareDownload(ctx context.Context, token string, now time.Time) error
}

// MetadataCache is a best-effort cache in front of MetadataStore.GetFile.
// A miss is (nil, nil).
type MetadataCache interface {
	GetFileMetadata(ctx context.Context, fileID string) (*models.File, error)
	SetFileMetadata(ctx context.Context, fileID string, file *models.File) error
	InvalidateFileMetadata(ctx context.Context, fileID string) error
}
