package models

import "time"

// File represents file metadata stored in TiDB
type File struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	ChunkCount  int       `json:"chunk_count"`
	Owner       Owner     `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chunk represents a chunk of a file
type Chunk struct {
	ID             string `json:"id"`
	FileID         string `json:"file_id"`
	OrderIndex     int    `json:"order_index"`
	Hash           string `json:"hash"`
	MinioObjectKey string `json:"minio_object_key"`
	Size           int64  `json:"size"`
}

// ChunkData holds chunk information during upload/download
type ChunkData struct {
	Data       []byte
	OrderIndex int
	Hash       string
	Size       int64
}

// Owner identifies the account a file belongs to.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Anonymous is the owner assigned to uploads that arrive without an identity.
var Anonymous = Owner{ID: "anonymous", Username: "anonymous", Email: "anonymous@example.com"}

// Share is a minted link granting access to one file outside normal identity checks.
type Share struct {
	Token         string     `json:"share_token"`
	FileID        string     `json:"file_id"`
	CreatedAt     time.Time  `json:"created_date"`
	ExpiresAt     *time.Time `json:"expires_date,omitempty"`
	DownloadCount int        `json:"download_count"`
	MaxDownloads  *int       `json:"max_downloads,omitempty"`
}

// Expired reports whether the share can no longer be used at now.
func (s *Share) Expired(now time.Time) bool {
	if s.ExpiresAt != nil && now.After(*s.ExpiresAt) {
		return true
	}
	if s.MaxDownloads != nil && s.DownloadCount >= *s.MaxDownloads {
		return true
	}
	return false
}
