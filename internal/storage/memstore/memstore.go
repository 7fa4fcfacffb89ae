// Package memstore implements the storage interfaces in process memory.
// It backs STORAGE_DRIVER=memory and the handler tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/storage"
)

// Store satisfies storage.BlobStore, storage.MetadataStore and
// storage.MetadataCache.
type Store struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	files  map[string]*models.File
	chunks map[string][]*models.Chunk
	shares map[string]*models.Share
	cache  map[string]models.File
}

var (
	_ storage.BlobStore     = (*Store)(nil)
	_ storage.MetadataStore = (*Store)(nil)
	_ storage.MetadataCache = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		blobs:  make(map[string][]byte),
		files:  make(map[string]*models.File),
		chunks: make(map[string][]*models.Chunk),
		shares: make(map[string]*models.Share),
		cache:  make(map[string]models.File),
	}
}

func (s *Store) UploadChunk(_ context.Context, objectKey string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[objectKey] = append([]byte(nil), data...)
	return nil
}

func (s *Store) DownloadChunk(_ context.Context, objectKey string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectKey)
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) DeleteChunk(_ context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, objectKey)
	return nil
}

// BlobCount returns the number of stored chunk objects.
func (s *Store) BlobCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

func (s *Store) SaveFile(_ context.Context, file *models.File, chunks []*models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[file.ID]; ok {
		return fmt.Errorf("file %s already exists", file.ID)
	}
	f := *file
	s.files[file.ID] = &f
	cs := make([]*models.Chunk, len(chunks))
	for i, c := range chunks {
		cc := *c
		cs[i] = &cc
	}
	s.chunks[file.ID] = cs
	return nil
}

func (s *Store) GetFile(_ context.Context, fileID string) (*models.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[fileID]
	if !ok {
		return nil, storage.ErrFileNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *Store) GetChunks(_ context.Context, fileID string) ([]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.chunks[fileID]
	out := make([]*models.Chunk, len(src))
	for i, c := range src {
		cc := *c
		out[i] = &cc
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]*models.File, error) {
	return s.list(func(f *models.File) bool { return f.Owner.ID == ownerID }), nil
}

func (s *Store) ListPublic(_ context.Context) ([]*models.File, error) {
	return s.list(func(f *models.File) bool { return f.IsPublic }), nil
}

func (s *Store) list(keep func(*models.File) bool) []*models.File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.File, 0)
	for _, f := range s.files {
		if keep(f) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) DeleteFile(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[fileID]; !ok {
		return storage.ErrFileNotFound
	}
	delete(s.files, fileID)
	delete(s.chunks, fileID)
	for token, sh := range s.shares {
		if sh.FileID == fileID {
			delete(s.shares, token)
		}
	}
	return nil
}

func (s *Store) CreateShare(_ context.Context, share *models.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *share
	s.shares[share.Token] = &cp
	return nil
}

func (s *Store) GetShare(_ context.Context, token string) (*models.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shares[token]
	if !ok {
		return nil, storage.ErrShareNotFound
	}
	cp := *sh
	return &cp, nil
}

func (s *Store) ClaimShareDownload(_ context.Context, token string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shares[token]
	if !ok {
		return storage.ErrShareNotFound
	}
	if sh.Expired(now) {
		return storage.ErrShareExhausted
	}
	sh.DownloadCount++
	return nil
}

func (s *Store) GetFileMetadata(_ context.Context, fileID string) (*models.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.cache[fileID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *Store) SetFileMetadata(_ context.Context, fileID string, file *models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[fileID] = *file
	return nil
}

func (s *Store) InvalidateFileMetadata(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, fileID)
	return nil
}
