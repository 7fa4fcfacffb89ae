package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/storage"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("filedrop-handlers")

// Identity headers are set by the gateway in front of the API.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
)

// Stores bundles the persistence the handlers depend on.
type Stores struct {
	Blobs storage.BlobStore
	Meta  storage.MetadataStore
	Cache storage.MetadataCache
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// identity returns the caller, or false when the gateway sent none.
func identity(r *http.Request) (models.Owner, bool) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		return models.Owner{}, false
	}
	owner := models.Owner{
		ID:       id,
		Username: strings.TrimSpace(r.Header.Get(HeaderUserName)),
		Email:    strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
	}
	if owner.Username == "" {
		owner.Username = id
	}
	return owner, true
}

// URLs builds absolute links returned to clients.
type URLs struct {
	// Base overrides the request-derived origin when set.
	Base string
}

func (u URLs) origin(r *http.Request) string {
	if u.Base != "" {
		return u.Base
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// Download returns the download link of fileID.
func (u URLs) Download(r *http.Request, fileID string) string {
	return u.origin(r) + "/api/files/" + fileID + "/download/"
}

// Share returns the public link of a share token.
func (u URLs) Share(r *http.Request, token string) string {
	return u.origin(r) + "/api/share/" + token + "/"
}
