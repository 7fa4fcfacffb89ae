package dropzone

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{"plain", "/tmp/a.png", []string{"/tmp/a.png"}},
		{"trailing space from terminal", "/tmp/a.png ", []string{"/tmp/a.png"}},
		{"several", "/tmp/a.png /tmp/b.pdf", []string{"/tmp/a.png", "/tmp/b.pdf"}},
		{"escaped spaces", `/tmp/my\ photo.png`, []string{"/tmp/my photo.png"}},
		{"single quoted", `'/tmp/my photo.png' '/tmp/x.txt'`, []string{"/tmp/my photo.png", "/tmp/x.txt"}},
		{"double quoted", `"/tmp/say \"hi\".txt"`, []string{`/tmp/say "hi".txt`}},
		{"file uri", "file:///tmp/my%20photo.png", []string{"/tmp/my photo.png"}},
		{"newline separated", "/tmp/a.png\n/tmp/b.png\n", []string{"/tmp/a.png", "/tmp/b.png"}},
		{"empty", "   ", nil},
		{"empty quotes", `''`, nil},
		{"unbalanced quote", "/tmp/it's.png\n", []string{"/tmp/it's.png"}},
		{"tab separated", "/tmp/a.png\t/tmp/b.png", []string{"/tmp/a.png", "/tmp/b.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePayload(tt.payload)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeByName(t *testing.T) {
	assert.Equal(t, "image/png", TypeByName("A.PNG"))
	assert.Equal(t, "text/plain", TypeByName("notes.txt"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", TypeByName("budget.xlsx"))
	assert.Equal(t, "application/x-rar-compressed", TypeByName("a.rar"))
	assert.Equal(t, "", TypeByName("Makefile"))
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadLocalFile(t *testing.T) {
	path := writeFile(t, "report.pdf", []byte("%PDF-1.4"))

	f, err := LoadLocalFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", f.Name)
	assert.Equal(t, int64(8), f.Size)
	assert.Equal(t, "application/pdf", f.MIMEType)

	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = LoadLocalFile(t.TempDir())
	assert.ErrorIs(t, err, ErrDirectory)

	_, err = LoadLocalFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSurface_DragFeedback(t *testing.T) {
	s := NewSurface(upload.NewSession(nil))
	assert.False(t, s.Active())
	s.DragEnter()
	assert.True(t, s.Active())
	s.DragOver()
	assert.True(t, s.Active())
	s.DragLeave()
	assert.False(t, s.Active())
}

func TestSurface_DropSelectsFirstFile(t *testing.T) {
	first := writeFile(t, "my photo.png", []byte("png"))
	second := writeFile(t, "b.txt", []byte("txt"))
	session := upload.NewSession(nil)
	s := NewSurface(session)

	s.DragEnter()
	require.NoError(t, s.Drop("'"+first+"' "+second))
	assert.False(t, s.Active())

	p := session.Pending()
	assert.Equal(t, models.StatusSelected, p.Status)
	require.NotNil(t, p.File)
	assert.Equal(t, "my photo.png", p.File.Name)
	assert.Equal(t, "image/png", p.File.MIMEType)
}

func TestSurface_DropRejections(t *testing.T) {
	session := upload.NewSession(nil)
	s := NewSurface(session)

	s.DragEnter()
	assert.ErrorIs(t, s.Drop("  "), ErrEmptyDrop)
	assert.False(t, s.Active())
	assert.Equal(t, ErrEmptyDrop.Error(), s.Err())

	assert.ErrorIs(t, s.Drop(t.TempDir()), ErrDirectory)

	exe := writeFile(t, "tool.exe", []byte("MZ"))
	err := s.Drop(exe)
	require.Error(t, err)
	assert.Empty(t, s.Err())
	assert.Contains(t, session.Err(), "unsupported type")
	assert.Equal(t, models.StatusIdle, session.Status())
}

func TestSurface_PickOversized(t *testing.T) {
	session := upload.NewSession(nil)
	s := NewSurface(session)
	s.load = func(string) (*models.LocalFile, error) {
		return &models.LocalFile{Name: "big.pdf", Size: 150 * 1024 * 1024, MIMEType: "application/pdf"}, nil
	}

	require.Error(t, s.Pick("big.pdf"))
	assert.Contains(t, session.Err(), "100MB")
	assert.Equal(t, models.StatusIdle, session.Status())
}
