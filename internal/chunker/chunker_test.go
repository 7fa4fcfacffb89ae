package chunker

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/maneesh/filedrop/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_SplitsInOrder(t *testing.T) {
	c := NewChunker(4, 0)

	var got []*models.ChunkData
	total, count, err := c.Stream(strings.NewReader("abcdefghij"), func(cd *models.ChunkData) error {
		got = append(got, cd)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	assert.Equal(t, 3, count)

	require.Len(t, got, 3)
	assert.Equal(t, "abcd", string(got[0].Data))
	assert.Equal(t, "efgh", string(got[1].Data))
	assert.Equal(t, "ij", string(got[2].Data))
	for i, cd := range got {
		assert.Equal(t, i, cd.OrderIndex)
		assert.True(t, VerifyChunkHash(cd.Data, cd.Hash))
	}
}

func TestStream_Empty(t *testing.T) {
	c := NewChunker(4, 0)
	total, count, err := c.Stream(bytes.NewReader(nil), func(*models.ChunkData) error {
		t.Fatal("no chunk expected")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, count)
}

func TestStream_Limit(t *testing.T) {
	c := NewChunker(4, 6)
	_, _, err := c.Stream(strings.NewReader("abcdefgh"), func(*models.ChunkData) error { return nil })
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStream_CallbackError(t *testing.T) {
	boom := errors.New("boom")
	c := NewChunker(2, 0)
	calls := 0
	_, _, err := c.Stream(strings.NewReader("abcdef"), func(*models.ChunkData) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "chunks/f1/3", ObjectKey("f1", 3))
}
