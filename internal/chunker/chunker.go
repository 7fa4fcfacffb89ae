package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/maneesh/filedrop/internal/models"
)

// ErrTooLarge is returned when a stream exceeds the chunker's byte limit.
var ErrTooLarge = errors.New("stream exceeds size limit")

// Chunker splits upload streams into fixed-size, hashed chunks
type Chunker struct {
	chunkSize int64
	maxBytes  int64
}

// NewChunker creates a chunker. maxBytes <= 0 disables the size limit.
func NewChunker(chunkSize, maxBytes int64) *Chunker {
	return &Chunker{
		chunkSize: chunkSize,
		maxBytes:  maxBytes,
	}
}

// ChunkSize returns the configured chunk size in bytes.
func (c *Chunker) ChunkSize() int64 {
	return c.chunkSize
}

// Stream reads reader to EOF and calls fn for every chunk in order. Only one
// chunk is held in memory at a time. It returns the total number of bytes
// and chunks seen; an error from fn stops the stream.
func (c *Chunker) Stream(reader io.Reader, fn func(*models.ChunkData) error) (int64, int, error) {
	var totalSize int64
	orderIndex := 0
	buffer := make([]byte, c.chunkSize)

	for {
		n, err := io.ReadFull(reader, buffer)

		if n > 0 {
			totalSize += int64(n)
			if c.maxBytes > 0 && totalSize > c.maxBytes {
				return totalSize, orderIndex, ErrTooLarge
			}

			data := make([]byte, n)
			copy(data, buffer[:n])

			chunk := &models.ChunkData{
				Data:       data,
				OrderIndex: orderIndex,
				Hash:       ComputeHash(data),
				Size:       int64(n),
			}
			if ferr := fn(chunk); ferr != nil {
				return totalSize, orderIndex, ferr
			}
			orderIndex++
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		} else if err != nil {
			return totalSize, orderIndex, fmt.Errorf("error reading chunk: %w", err)
		}
	}

	return totalSize, orderIndex, nil
}

// ComputeHash computes SHA256 hash of data
func ComputeHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// VerifyChunkHash verifies that chunk data matches the expected hash
func VerifyChunkHash(data []byte, expectedHash string) bool {
	return ComputeHash(data) == expectedHash
}

// ObjectKey is the blob key for chunk index of fileID.
func ObjectKey(fileID string, index int) string {
	return fmt.Sprintf("chunks/%s/%d", fileID, index)
}
