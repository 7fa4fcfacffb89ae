package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/maneesh/filedrop/internal/chunker"
	"github.com/maneesh/filedrop/internal/metrics"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DownloadHandler serves file contents reassembled from their chunks.
type DownloadHandler struct {
	stores  Stores
	workers int
	logger  *slog.Logger
}

// NewDownloadHandler creates a download handler fetching at most workers
// chunks concurrently.
func NewDownloadHandler(stores Stores, workers int, logger *slog.Logger) *DownloadHandler {
	if workers < 1 {
		workers = 1
	}
	return &DownloadHandler{
		stores:  stores,
		workers: workers,
		logger:  logger.With(slog.String("component", "download_handler")),
	}
}

// ServeHTTP handles GET /api/files/{id}/download/. Public files are served to
// anyone; private files only to their owner.
func (dh *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "download_file",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	fileID := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("file_id", fileID))

	file, err := dh.lookup(ctx, fileID)
	if errors.Is(err, storage.ErrFileNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		span.RecordError(err)
		dh.logger.Error("metadata lookup failed", slog.String("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load file")
		return
	}

	if !file.IsPublic {
		caller, ok := identity(r)
		if !ok || caller.ID != file.Owner.ID {
			writeError(w, http.StatusForbidden, "access denied")
			return
		}
	}

	err = dh.stream(ctx, w, file)
	metrics.Observe("download", err)
	if err != nil {
		span.RecordError(err)
		dh.logger.Error("download failed", slog.String("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load file")
	}
}

// lookup reads file metadata through the cache.
func (dh *DownloadHandler) lookup(ctx context.Context, fileID string) (*models.File, error) {
	ctx, cacheSpan := tracer.Start(ctx, "cache_lookup")
	file, err := dh.stores.Cache.GetFileMetadata(ctx, fileID)
	cacheSpan.End()
	if err != nil {
		dh.logger.Warn("cache lookup failed", slog.String("file_id", fileID), slog.String("error", err.Error()))
	}
	if file != nil {
		dh.logger.Debug("cache hit", slog.String("file_id", fileID))
		return file, nil
	}

	ctx, dbSpan := tracer.Start(ctx, "db_lookup")
	defer dbSpan.End()

	file, err = dh.stores.Meta.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if err := dh.stores.Cache.SetFileMetadata(ctx, fileID, file); err != nil {
		dh.logger.Warn("failed to update cache", slog.String("file_id", fileID), slog.String("error", err.Error()))
	}
	return file, nil
}

// stream fetches every chunk of file and writes the reassembled body. Nothing
// is written to w unless all chunks were fetched and verified.
func (dh *DownloadHandler) stream(ctx context.Context, w http.ResponseWriter, file *models.File) error {
	ctx, span := tracer.Start(ctx, "fetch_chunk_metadata")
	chunks, err := dh.stores.Meta.GetChunks(ctx, file.ID)
	span.End()
	if err != nil {
		return err
	}

	data, err := dh.fetchChunks(ctx, chunks)
	if err != nil {
		return err
	}

	var size int64
	for _, d := range data {
		size += int64(len(d))
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)

	for _, d := range data {
		if _, err := w.Write(d); err != nil {
			dh.logger.Warn("client went away", slog.String("file_id", file.ID), slog.String("error", err.Error()))
			return nil
		}
	}
	return nil
}

// fetchChunks downloads chunks concurrently, bounded by the worker limit, and
// returns them in order.
func (dh *DownloadHandler) fetchChunks(ctx context.Context, chunks []*models.Chunk) ([][]byte, error) {
	ctx, fetchSpan := tracer.Start(ctx, "fetch_chunks_parallel",
		trace.WithAttributes(attribute.Int("chunk_count", len(chunks))),
	)
	defer fetchSpan.End()

	data := make([][]byte, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dh.workers)

	for i, meta := range chunks {
		g.Go(func() error {
			_, span := tracer.Start(gctx, fmt.Sprintf("download_chunk_%d", i),
				trace.WithAttributes(
					attribute.Int("chunk_index", i),
					attribute.String("object_key", meta.MinioObjectKey),
					attribute.Int64("chunk_size", meta.Size),
				),
			)
			defer span.End()

			chunk, err := dh.stores.Blobs.DownloadChunk(gctx, meta.MinioObjectKey)
			if err != nil {
				span.RecordError(err)
				return fmt.Errorf("failed to download chunk %d: %w", i, err)
			}
			if !chunker.VerifyChunkHash(chunk, meta.Hash) {
				err := fmt.Errorf("hash mismatch for chunk %d", i)
				span.RecordError(err)
				return err
			}
			data[i] = chunk
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		fetchSpan.RecordError(err)
		return nil, err
	}
	return data, nil
}
