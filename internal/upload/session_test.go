package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maneesh/filedrop/internal/api"
	"github.com/maneesh/filedrop/internal/catalog"
	"github.com/maneesh/filedrop/internal/config"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/testutil"
	"github.com/maneesh/filedrop/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localFile(name, mimeType string, data []byte) *models.LocalFile {
	return &models.LocalFile{
		Name:     name,
		Size:     int64(len(data)),
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// sizedFile reports size without holding the bytes.
func sizedFile(name, mimeType string, size int64) *models.LocalFile {
	return &models.LocalFile{
		Name:     name,
		Size:     size,
		MIMEType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("must not be opened")
		},
	}
}

func uploadHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n, _ := io.Copy(io.Discard, f)
		testutil.WithJSONResponse(http.StatusCreated, map[string]any{
			"message": "file uploaded",
			"file": models.FileRecord{
				ID:               models.ID("new-" + hdr.Filename),
				OriginalFilename: hdr.Filename,
				FileSizeBytes:    n,
				FileSizeDisplay:  models.SizeDisplay(n),
				FileType:         hdr.Header.Get("Content-Type"),
				Description:      r.FormValue("description"),
				IsPublic:         r.FormValue("is_public") == "true",
			},
		})(w, r)
	}
}

func newClient(url string) *api.Client {
	return api.New(&config.ClientConfig{ServerURL: url, UserID: "u1", Timeout: 5 * time.Second})
}

func TestSubmit_OneRequestAndPrependsToCatalog(t *testing.T) {
	srv := testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"POST /api/upload/": uploadHandler(t),
		"GET /api/files/{$}": testutil.WithJSONResponse(http.StatusOK, map[string]any{
			"files":       []models.FileRecord{{ID: "old"}},
			"total_count": 1,
		}),
	})
	client := newClient(srv.URL)
	ctx := context.Background()

	cat := catalog.New(client)
	require.NoError(t, cat.Mount(ctx))

	s := NewSession(client, WithOnUploaded(cat.Prepend))
	png := bytes.Repeat([]byte{0x89}, 2*1024*1024)
	require.NoError(t, s.SelectFile(localFile("photo.png", "image/png", png)))
	require.NoError(t, s.SetDescription("beach"))
	require.NoError(t, s.SetPublic(false))
	assert.Equal(t, models.StatusSelected, s.Status())

	rec, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-photo.png", rec.ID.String())
	assert.Equal(t, "2 MB", rec.FileSizeDisplay)
	assert.Equal(t, "beach", rec.Description)
	assert.False(t, rec.IsPublic)
	assert.Equal(t, 1, srv.Calls(http.MethodPost, "/api/upload/"))

	files := cat.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "new-photo.png", files[0].ID.String())

	p := s.Pending()
	assert.Equal(t, models.StatusSucceeded, p.Status)
	assert.Nil(t, p.File)
	assert.Empty(t, p.Description)
	assert.Equal(t, rec, s.Last())

	require.NoError(t, s.Dismiss())
	assert.Equal(t, models.StatusIdle, s.Status())
}

func TestSelect_OversizedRejectedWithoutRequest(t *testing.T) {
	srv := testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"POST /api/upload/": uploadHandler(t),
	})
	s := NewSession(newClient(srv.URL))

	err := s.SelectFile(sizedFile("big.pdf", "application/pdf", 150*1024*1024))
	require.Error(t, err)
	var rej *validate.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, validate.ReasonTooLarge, rej.Reason)
	assert.Contains(t, s.Err(), "100MB")
	assert.Equal(t, models.StatusIdle, s.Status())

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Equal(t, 0, srv.TotalCalls())
}

func TestSelect_RejectionKeepsStagedFile(t *testing.T) {
	s := NewSession(nil)
	require.NoError(t, s.SelectFile(localFile("a.txt", "text/plain", []byte("a"))))

	err := s.SelectFile(localFile("tool.exe", "application/x-msdownload", []byte("MZ")))
	require.Error(t, err)
	assert.Contains(t, s.Err(), "unsupported type")

	p := s.Pending()
	assert.Equal(t, models.StatusSelected, p.Status)
	require.NotNil(t, p.File)
	assert.Equal(t, "a.txt", p.File.Name)

	require.NoError(t, s.SelectFile(localFile("b.csv", "text/csv", []byte("x,y"))))
	assert.Equal(t, "b.csv", s.Pending().File.Name)
	assert.Empty(t, s.Err())
}

func TestSubmit_WhileUploadingIsNoop(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	srv := testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"POST /api/upload/": testutil.WithGate(gate, entered, uploadHandler(t)),
	})
	s := NewSession(newClient(srv.URL))
	require.NoError(t, s.SelectFile(localFile("a.txt", "text/plain", []byte("hello"))))

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = s.Submit(context.Background())
	}()
	<-entered

	assert.Equal(t, models.StatusUploading, s.Status())
	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrUploadInFlight)
	assert.ErrorIs(t, s.SelectFile(localFile("b.txt", "text/plain", []byte("b"))), ErrUploadInFlight)
	assert.ErrorIs(t, s.SetDescription("x"), ErrUploadInFlight)
	assert.ErrorIs(t, s.Remove(), ErrUploadInFlight)

	close(gate)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 1, srv.Calls(http.MethodPost, "/api/upload/"))
	assert.Equal(t, models.StatusSucceeded, s.Status())
}

func TestSubmit_FailureKeepsFileForRetry(t *testing.T) {
	attempts := 0
	srv := testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"POST /api/upload/": func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				testutil.WithJSONResponse(http.StatusBadRequest, map[string]string{"error": "storage unavailable"})(w, r)
				return
			}
			uploadHandler(t)(w, r)
		},
	})
	s := NewSession(newClient(srv.URL))
	require.NoError(t, s.SelectFile(localFile("a.txt", "text/plain", []byte("hello"))))
	require.NoError(t, s.SetPublic(true))

	_, err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, s.Status())
	assert.Equal(t, "storage unavailable", s.Err())
	require.NotNil(t, s.Pending().File)
	assert.True(t, s.Pending().IsPublic)
	assert.Equal(t, 1, srv.Calls(http.MethodPost, "/api/upload/"))

	rec, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.IsPublic)
	assert.Equal(t, 2, srv.Calls(http.MethodPost, "/api/upload/"))
	assert.Empty(t, s.Err())
}

func TestSubmit_GenericFailureMessages(t *testing.T) {
	srv := testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"POST /api/upload/": testutil.WithJSONResponse(http.StatusInternalServerError, nil),
	})
	s := NewSession(newClient(srv.URL))
	require.NoError(t, s.SelectFile(localFile("a.txt", "text/plain", []byte("x"))))

	_, err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, FallbackMessage, s.Err())

	broken := testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"POST /api/upload/": testutil.Hijacked(),
	})
	s = NewSession(newClient(broken.URL))
	require.NoError(t, s.SelectFile(localFile("a.txt", "text/plain", []byte("x"))))
	_, err = s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, api.NetworkMessage, s.Err())
}

func TestTransitions(t *testing.T) {
	s := NewSession(nil)

	var te *TransitionError
	require.ErrorAs(t, s.Dismiss(), &te)
	assert.Equal(t, models.StatusIdle, te.From)
	assert.True(t, strings.Contains(te.Error(), "idle"))

	require.NoError(t, s.Remove())
	require.NoError(t, s.SelectFile(localFile("a.txt", "text/plain", []byte("a"))))
	require.NoError(t, s.Remove())
	assert.Equal(t, models.StatusIdle, s.Status())
	assert.Nil(t, s.Pending().File)
}
