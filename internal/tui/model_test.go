package tui

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/maneesh/filedrop/internal/api"
	"github.com/maneesh/filedrop/internal/catalog"
	"github.com/maneesh/filedrop/internal/config"
	"github.com/maneesh/filedrop/internal/dropzone"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/testutil"
	"github.com/maneesh/filedrop/internal/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClipboard struct{ text string }

func (f *fakeClipboard) WriteAll(text string) error {
	f.text = text
	return nil
}

func listOf(recs ...models.FileRecord) http.HandlerFunc {
	if recs == nil {
		recs = []models.FileRecord{}
	}
	return testutil.WithJSONResponse(http.StatusOK, map[string]any{"files": recs, "total_count": len(recs)})
}

func uploadOK(w http.ResponseWriter, r *http.Request) {
	_, hdr, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	testutil.WithJSONResponse(http.StatusCreated, map[string]any{
		"message": "file uploaded",
		"file":    models.FileRecord{ID: "new", OriginalFilename: hdr.Filename, FileType: "image/png"},
	})(w, r)
}

type harness struct {
	srv  *testutil.MockServer
	cat  *catalog.Catalog
	clip *fakeClipboard
	m    tea.Model
}

func newHarness(t *testing.T, handlers map[string]http.HandlerFunc) *harness {
	t.Helper()
	srv := testutil.NewMockServer(t, handlers)
	client := api.New(&config.ClientConfig{ServerURL: srv.URL, UserID: "u1", Timeout: 5 * time.Second})

	clip := &fakeClipboard{}
	cat := catalog.New(client, catalog.WithClipboard(clip))
	session := upload.NewSession(client, upload.WithOnUploaded(cat.Prepend))
	h := &harness{srv: srv, cat: cat, clip: clip, m: New(cat, session, dropzone.NewSurface(session))}

	h.send(tea.WindowSizeMsg{Width: 100, Height: 40})
	h.run(h.m.Init())
	return h
}

// run executes cmd and feeds the result back while it is one of ours.
func (h *harness) run(cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		switch msg.(type) {
		case listLoadedMsg, deletedMsg, sharedMsg, openedMsg, uploadedMsg:
		default:
			return
		}
		h.m, cmd = h.m.Update(msg)
	}
}

func (h *harness) send(msg tea.Msg) {
	var cmd tea.Cmd
	h.m, cmd = h.m.Update(msg)
	h.run(cmd)
}

func (h *harness) press(keys ...string) {
	for _, k := range keys {
		switch k {
		case "tab":
			h.send(tea.KeyMsg{Type: tea.KeyTab})
		case "enter":
			h.send(tea.KeyMsg{Type: tea.KeyEnter})
		case "esc":
			h.send(tea.KeyMsg{Type: tea.KeyEsc})
		default:
			h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		}
	}
}

func (h *harness) model() Model { return h.m.(Model) }

func TestInit_LoadsMyFiles(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"GET /api/files/{$}": listOf(models.FileRecord{ID: "a", OriginalFilename: "a.txt"}),
	})

	assert.Equal(t, 1, h.srv.Calls(http.MethodGet, "/api/files/"))
	assert.Equal(t, "Loaded 1 files", h.model().statusMsg)
	assert.Contains(t, h.m.View(), "a.txt")
}

func TestView_Empty(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"GET /api/files/{$}": listOf(),
	})

	assert.Contains(t, h.m.View(), "No files yet")
	assert.Equal(t, "No files", h.model().statusMsg)
}

func TestTab_TogglesScope(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"GET /api/files/{$}":        listOf(models.FileRecord{ID: "a", OriginalFilename: "a.txt"}),
		"GET /api/public-files/{$}": listOf(models.FileRecord{ID: "p", OriginalFilename: "shared.pdf", IsPublic: true}),
	})

	h.press("tab")
	assert.Equal(t, catalog.ScopePublic, h.cat.Scope())
	assert.Equal(t, 1, h.srv.Calls(http.MethodGet, "/api/public-files/"))
	assert.Contains(t, h.m.View(), "shared.pdf")

	h.press("d")
	assert.Equal(t, modeBrowse, h.model().mode)
	assert.Equal(t, "Switch to your files to delete", h.model().statusMsg)

	h.press("tab")
	assert.Equal(t, catalog.ScopeMine, h.cat.Scope())
	assert.Equal(t, 2, h.srv.Calls(http.MethodGet, "/api/files/"))
}

func TestDelete_ConfirmFlow(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"GET /api/files/{$}": listOf(
			models.FileRecord{ID: "a", OriginalFilename: "a.txt"},
			models.FileRecord{ID: "b", OriginalFilename: "b.txt"},
		),
		"DELETE /api/files/{id}/": testutil.WithJSONResponse(http.StatusOK, map[string]string{"message": "file deleted"}),
	})

	h.press("d")
	assert.Equal(t, modeConfirmDelete, h.model().mode)
	assert.Contains(t, h.m.View(), "Delete a.txt?")

	h.press("n")
	assert.Equal(t, modeBrowse, h.model().mode)
	assert.Equal(t, catalog.ErrDeleteDeclined.Error(), h.model().statusMsg)
	assert.Equal(t, 0, h.srv.Calls(http.MethodDelete, "/api/files/a/"))

	h.press("d", "y")
	assert.Equal(t, 1, h.srv.Calls(http.MethodDelete, "/api/files/a/"))
	assert.Equal(t, "Deleted a.txt", h.model().statusMsg)
	require.Len(t, h.cat.Files(), 1)
	assert.Equal(t, "b", h.cat.Files()[0].ID.String())
}

func TestShare_CopiesLink(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"GET /api/files/{$}": listOf(models.FileRecord{ID: "a", OriginalFilename: "a.txt"}),
		"POST /api/files/{id}/share/": testutil.WithJSONResponse(http.StatusCreated, map[string]any{
			"share": models.ShareRecord{Token: "t", ShareURL: "http://files.example/api/share/t/"},
		}),
	})

	h.press("s")
	assert.Equal(t, "http://files.example/api/share/t/", h.clip.text)
	assert.Equal(t, "Share link copied: http://files.example/api/share/t/", h.model().statusMsg)
}

func TestUpload_PasteDropAndSubmit(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"GET /api/files/{$}": listOf(models.FileRecord{ID: "old", OriginalFilename: "old.txt"}),
		"POST /api/upload/":  uploadOK,
	})
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG"), 0o644))

	h.press("u")
	assert.Equal(t, modeDrop, h.model().mode)

	h.send(tea.FocusMsg{})
	assert.True(t, h.model().surface.Active())
	assert.Contains(t, h.m.View(), "Drop the file here")
	h.send(tea.BlurMsg{})
	assert.False(t, h.model().surface.Active())

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path + " "), Paste: true})
	assert.Equal(t, "Ready to upload", h.model().statusMsg)
	assert.Contains(t, h.m.View(), "photo.png")

	h.press("p")
	assert.True(t, h.model().session.Pending().IsPublic)

	h.press("enter")
	assert.Equal(t, 1, h.srv.Calls(http.MethodPost, "/api/upload/"))
	assert.Equal(t, modeBrowse, h.model().mode)
	assert.Equal(t, "Uploaded photo.png", h.model().statusMsg)
	assert.Equal(t, models.StatusIdle, h.model().session.Status())

	files := h.cat.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "new", files[0].ID.String())
}

func TestUpload_RejectedDropMakesNoRequest(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"GET /api/files/{$}": listOf(),
		"POST /api/upload/":  uploadOK,
	})
	path := filepath.Join(t.TempDir(), "tool.exe")
	require.NoError(t, os.WriteFile(path, []byte("MZ"), 0o644))

	h.press("u")
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path), Paste: true})
	assert.Contains(t, h.model().statusMsg, "unsupported type")

	h.press("enter")
	assert.Equal(t, upload.ErrNoFile.Error(), h.model().statusMsg)
	assert.Equal(t, 0, h.srv.Calls(http.MethodPost, "/api/upload/"))
}

func TestUpload_TypedPathAndDescription(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"GET /api/files/{$}": listOf(),
	})
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h.press("u", "f")
	assert.Equal(t, modePath, h.model().mode)
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path)})
	h.press("enter")
	assert.Equal(t, modeDrop, h.model().mode)
	require.NotNil(t, h.model().session.Pending().File)
	assert.Equal(t, "notes.txt", h.model().session.Pending().File.Name)

	h.press("e")
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("  meeting notes ")})
	h.press("enter")
	assert.Equal(t, "meeting notes", h.model().session.Pending().Description)

	h.press("x")
	assert.Nil(t, h.model().session.Pending().File)

	h.press("esc")
	assert.Equal(t, modeBrowse, h.model().mode)
}

func TestQuit(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"GET /api/files/{$}": listOf(),
	})

	_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
