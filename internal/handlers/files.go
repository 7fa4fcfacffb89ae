package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/maneesh/filedrop/internal/metrics"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FilesHandler lists and deletes file records.
type FilesHandler struct {
	stores Stores
	urls   URLs
	logger *slog.Logger
}

// NewFilesHandler creates a files handler.
func NewFilesHandler(stores Stores, urls URLs, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		stores: stores,
		urls:   urls,
		logger: logger.With(slog.String("component", "files_handler")),
	}
}

type listResponse struct {
	Files      []models.FileRecord `json:"files"`
	TotalCount int                 `json:"total_count"`
}

// ListMine handles GET /api/files/.
func (fh *FilesHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "list_files", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	owner, ok := identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	files, err := fh.stores.Meta.ListByOwner(ctx, owner.ID)
	metrics.Observe("list", err)
	if err != nil {
		span.RecordError(err)
		fh.logger.Error("list failed", slog.String("owner", owner.ID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load files")
		return
	}
	fh.respondList(w, r, files, false)
}

// ListPublic handles GET /api/public-files/. Records carry their owner.
func (fh *FilesHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "list_public_files", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	files, err := fh.stores.Meta.ListPublic(ctx)
	metrics.Observe("list_public", err)
	if err != nil {
		span.RecordError(err)
		fh.logger.Error("public list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load public files")
		return
	}
	fh.respondList(w, r, files, true)
}

func (fh *FilesHandler) respondList(w http.ResponseWriter, r *http.Request, files []*models.File, withOwner bool) {
	records := make([]models.FileRecord, 0, len(files))
	for _, f := range files {
		records = append(records, f.Record(fh.urls.Download(r, f.ID), withOwner))
	}
	writeJSON(w, http.StatusOK, listResponse{Files: records, TotalCount: len(records)})
}

// Delete handles DELETE /api/files/{id}/. Files owned by someone else are
// reported as not found.
func (fh *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "delete_file", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	owner, ok := identity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	fileID := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("file_id", fileID))

	file, err := fh.stores.Meta.GetFile(ctx, fileID)
	if errors.Is(err, storage.ErrFileNotFound) || (err == nil && file.Owner.ID != owner.ID) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		span.RecordError(err)
		fh.logger.Error("metadata lookup failed", slog.String("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	chunks, err := fh.stores.Meta.GetChunks(ctx, fileID)
	if err != nil {
		span.RecordError(err)
		fh.logger.Error("chunk lookup failed", slog.String("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	err = fh.stores.Meta.DeleteFile(ctx, fileID)
	metrics.Observe("delete", err)
	if errors.Is(err, storage.ErrFileNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		span.RecordError(err)
		fh.logger.Error("delete failed", slog.String("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	if err := fh.stores.Cache.InvalidateFileMetadata(ctx, fileID); err != nil {
		fh.logger.Warn("failed to invalidate cache", slog.String("file_id", fileID), slog.String("error", err.Error()))
	}
	// Metadata is gone, so leftover blobs are unreachable; failures only leak storage.
	for _, c := range chunks {
		if err := fh.stores.Blobs.DeleteChunk(ctx, c.MinioObjectKey); err != nil {
			fh.logger.Warn("failed to delete chunk", slog.String("object_key", c.MinioObjectKey), slog.String("error", err.Error()))
		}
	}

	fh.logger.Info("file deleted", slog.String("file_id", fileID), slog.String("owner", owner.ID))
	writeJSON(w, http.StatusOK, messageResponse{Message: "file deleted"})
}
