package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeDisplay(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2464153, "2.35 MB"},
		{100 * 1024 * 1024, "100 MB"},
		{1048575, "1 MB"},
		{1024*1024*1024 - 1, "1 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeDisplay(tt.in), "SizeDisplay(%d)", tt.in)
	}
}

func TestShareExpired(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	two := 2

	assert.False(t, (&Share{}).Expired(now), "no limits never expires")
	assert.True(t, (&Share{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&Share{ExpiresAt: &future}).Expired(now))
	assert.False(t, (&Share{MaxDownloads: &two, DownloadCount: 1}).Expired(now))
	assert.True(t, (&Share{MaxDownloads: &two, DownloadCount: 2}).Expired(now))
}

func TestFileRecord(t *testing.T) {
	f := &File{
		ID:          "f1",
		Name:        "report.pdf",
		Size:        2048,
		ContentType: "application/pdf",
		IsPublic:    true,
		Owner:       Owner{ID: "u1", Username: "ann"},
	}

	rec := f.Record("http://x/api/files/f1/download/", false)
	assert.Equal(t, "report.pdf", rec.OriginalFilename)
	assert.Equal(t, "2 KB", rec.FileSizeDisplay)
	assert.Nil(t, rec.Owner)

	rec = f.Record("", true)
	if assert.NotNil(t, rec.Owner) {
		assert.Equal(t, "ann", rec.Owner.Username)
		assert.Equal(t, ID("u1"), rec.Owner.ID)
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`"f1"`, "f1"},
		{`7`, "7"},
		{`"7"`, "7"},
		{`12345678901`, "12345678901"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(tt.in), &id), tt.in)
		assert.Equal(t, tt.want, id, tt.in)
	}

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &id))
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestFileRecord_NumericIDs(t *testing.T) {
	var rec FileRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"original_filename":"a.txt","user":{"id":3,"username":"sam"}}`), &rec))
	assert.Equal(t, "42", rec.ID.String())
	require.NotNil(t, rec.Owner)
	assert.Equal(t, ID("3"), rec.Owner.ID)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":"42"`)
}
