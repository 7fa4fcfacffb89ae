package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/maneesh/filedrop/internal/metrics"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ShareHandler mints share links and serves files through them.
type ShareHandler struct {
	stores     Stores
	downloads  *DownloadHandler
	urls       URLs
	defaultTTL int
	logger     *slog.Logger
	now        func() time.Time
}

// NewShareHandler creates a share handler. ttlDays is the expiry applied
// when a request does not name one.
func NewShareHandler(stores Stores, downloads *DownloadHandler, urls URLs, ttlDays int, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		stores:     stores,
		downloads:  downloads,
		urls:       urls,
		defaultTTL: ttlDays,
		logger:     logger.With(slog.String("component", "share_handler")),
		now:        time.Now,
	}
}

type shareRequest struct {
	ExpiresDays  *int `json:"expires_days"`
	MaxDownloads *int `json:"max_downloads"`
}

type shareResponse struct {
	Message string             `json:"message"`
	Share   models.ShareRecord `json:"share"`
}

// Create handles POST /api/files/{id}/share/. An expires_days of 0 mints a
// link that never expires.
func (sh *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "create_share", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	owner, ok := identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	fileID := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("file_id", fileID))

	var req shareRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxFieldBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid share request")
		return
	}
	if (req.ExpiresDays != nil && *req.ExpiresDays < 0) || (req.MaxDownloads != nil && *req.MaxDownloads < 1) {
		writeError(w, http.StatusBadRequest, "invalid share request")
		return
	}

	file, err := sh.stores.Meta.GetFile(ctx, fileID)
	if errors.Is(err, storage.ErrFileNotFound) || (err == nil && file.Owner.ID != owner.ID) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		span.RecordError(err)
		sh.logger.Error("metadata lookup failed", slog.String("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create share link")
		return
	}

	now := sh.now().UTC()
	share := &models.Share{
		Token:        uuid.New().String(),
		FileID:       fileID,
		CreatedAt:    now,
		MaxDownloads: req.MaxDownloads,
	}
	days := sh.defaultTTL
	if req.ExpiresDays != nil {
		days = *req.ExpiresDays
	}
	if days > 0 {
		expires := now.AddDate(0, 0, days)
		share.ExpiresAt = &expires
	}

	err = sh.stores.Meta.CreateShare(ctx, share)
	metrics.Observe("share", err)
	if err != nil {
		span.RecordError(err)
		sh.logger.Error("failed to persist share", slog.String("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create share link")
		return
	}

	sh.logger.Info("share created", slog.String("file_id", fileID), slog.String("token", share.Token))
	writeJSON(w, http.StatusCreated, shareResponse{
		Message: "share link created",
		Share: models.ShareRecord{
			Token:         share.Token,
			ShareURL:      sh.urls.Share(r, share.Token),
			CreatedDate:   share.CreatedAt,
			ExpiresDate:   share.ExpiresAt,
			DownloadCount: share.DownloadCount,
			MaxDownloads:  share.MaxDownloads,
			File:          file.Record(sh.urls.Download(r, file.ID), false),
		},
	})
}

// Download handles GET /api/share/{token}/ without any identity check.
func (sh *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "share_download", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	token := mux.Vars(r)["token"]

	share, err := sh.stores.Meta.GetShare(ctx, token)
	if errors.Is(err, storage.ErrShareNotFound) {
		writeError(w, http.StatusNotFound, "invalid share link")
		return
	}
	if err != nil {
		span.RecordError(err)
		sh.logger.Error("share lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load file")
		return
	}
	span.SetAttributes(attribute.String("file_id", share.FileID))

	if share.Expired(sh.now()) {
		writeError(w, http.StatusGone, "share link expired")
		return
	}

	file, err := sh.downloads.lookup(ctx, share.FileID)
	if errors.Is(err, storage.ErrFileNotFound) {
		writeError(w, http.StatusNotFound, "invalid share link")
		return
	}
	if err != nil {
		span.RecordError(err)
		sh.logger.Error("metadata lookup failed", slog.String("file_id", share.FileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load file")
		return
	}

	err = sh.stores.Meta.ClaimShareDownload(ctx, token, sh.now())
	if errors.Is(err, storage.ErrShareExhausted) {
		writeError(w, http.StatusGone, "share link expired")
		return
	}
	if errors.Is(err, storage.ErrShareNotFound) {
		writeError(w, http.StatusNotFound, "invalid share link")
		return
	}
	if err != nil {
		span.RecordError(err)
		sh.logger.Error("failed to count share download", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load file")
		return
	}

	err = sh.downloads.stream(ctx, w, file)
	metrics.Observe("share_download", err)
	if err != nil {
		span.RecordError(err)
		sh.logger.Error("share download failed", slog.String("file_id", file.ID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load file")
	}
}
