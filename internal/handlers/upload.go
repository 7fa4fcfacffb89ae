package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/maneesh/filedrop/internal/chunker"
	"github.com/maneesh/filedrop/internal/metrics"
	"github.com/maneesh/filedrop/internal/models"
	"github.com/maneesh/filedrop/internal/validate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// multipartOverhead is the slack allowed above MaxFileSize for part headers
// and the description/is_public fields.
const multipartOverhead = 1 << 20

const maxFieldBytes = 64 << 10

// UploadHandler handles multipart file uploads
type UploadHandler struct {
	stores  Stores
	chunker *chunker.Chunker
	urls    URLs
	logger  *slog.Logger
	now     func() time.Time
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(stores Stores, c *chunker.Chunker, urls URLs, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		stores:  stores,
		chunker: c,
		urls:    urls,
		logger:  logger.With(slog.String("component", "upload_handler")),
		now:     time.Now,
	}
}

type uploadResponse struct {
	Message string            `json:"message"`
	File    models.FileRecord `json:"file"`
}

// uploadError carries the status and client message of a failed upload.
type uploadError struct {
	status int
	msg    string
	err    error
}

func (e *uploadError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// ServeHTTP handles POST /api/upload/ with parts file, description, is_public
func (uh *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "upload_file",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	owner, ok := identity(r)
	if !ok {
		owner = models.Anonymous
	}

	r.Body = http.MaxBytesReader(w, r.Body, validate.MaxFileSize+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}

	fileID := uuid.New().String()
	span.SetAttributes(attribute.String("file_id", fileID))

	file, chunks, err := uh.readParts(ctx, mr, fileID, owner)
	if err != nil {
		uh.cleanup(ctx, chunks)
		metrics.Observe("upload", err)

		var ue *uploadError
		if !errors.As(err, &ue) {
			ue = &uploadError{status: http.StatusInternalServerError, msg: "upload failed", err: err}
		}
		if ue.status >= http.StatusInternalServerError {
			span.RecordError(err)
			uh.logger.Error("upload failed", slog.String("file_id", fileID), slog.String("error", err.Error()))
		}
		writeError(w, ue.status, ue.msg)
		return
	}

	span.SetAttributes(
		attribute.String("file_name", file.Name),
		attribute.Int64("file_size", file.Size),
		attribute.Int("chunk_count", len(chunks)),
	)

	if err := uh.stores.Meta.SaveFile(ctx, file, chunks); err != nil {
		uh.cleanup(ctx, chunks)
		metrics.Observe("upload", err)
		span.RecordError(err)
		uh.logger.Error("failed to save metadata", slog.String("file_id", fileID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	if err := uh.stores.Cache.InvalidateFileMetadata(ctx, fileID); err != nil {
		uh.logger.Warn("failed to invalidate cache", slog.String("file_id", fileID), slog.String("error", err.Error()))
	}

	metrics.Observe("upload", nil)
	metrics.UploadBytes.Add(float64(file.Size))
	uh.logger.Info("file uploaded",
		slog.String("file_id", fileID),
		slog.String("owner", file.Owner.ID),
		slog.Int64("size", file.Size),
		slog.Int("chunks", len(chunks)),
	)

	writeJSON(w, http.StatusCreated, uploadResponse{
		Message: "file uploaded",
		File:    file.Record(uh.urls.Download(r, fileID), false),
	})
}

// readParts consumes the multipart stream. The file part is chunked into
// blob storage as it is read; the returned chunks are valid even on error so
// the caller can remove them.
func (uh *UploadHandler) readParts(ctx context.Context, mr *multipart.Reader, fileID string, owner models.Owner) (*models.File, []*models.Chunk, error) {
	var (
		file   *models.File
		chunks []*models.Chunk
		desc   string
		public bool
	)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, chunks, &uploadError{status: http.StatusBadRequest, msg: "malformed multipart body", err: err}
		}

		switch part.FormName() {
		case "file":
			if file != nil {
				part.Close()
				return nil, chunks, &uploadError{status: http.StatusBadRequest, msg: "only one file may be uploaded"}
			}
			file, chunks, err = uh.storePart(ctx, part, fileID)
			if err != nil {
				part.Close()
				return nil, chunks, err
			}
		case "description":
			desc, err = readField(part)
			if err != nil {
				return nil, chunks, err
			}
		case "is_public":
			v, err := readField(part)
			if err != nil {
				return nil, chunks, err
			}
			if v != "" {
				public, err = strconv.ParseBool(v)
				if err != nil {
					return nil, chunks, &uploadError{status: http.StatusBadRequest, msg: "is_public must be a boolean"}
				}
			}
		}
		part.Close()
	}

	if file == nil {
		return nil, chunks, &uploadError{status: http.StatusBadRequest, msg: "no file provided"}
	}

	file.Description = desc
	file.IsPublic = public
	file.Owner = owner
	return file, chunks, nil
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", &uploadError{status: http.StatusBadRequest, msg: "malformed multipart body", err: err}
	}
	if len(data) > maxFieldBytes {
		return "", &uploadError{status: http.StatusBadRequest, msg: fmt.Sprintf("field %s is too long", part.FormName())}
	}
	return strings.TrimSpace(string(data)), nil
}

// storePart validates the file part's type, then streams it through the
// chunker into blob storage.
func (uh *UploadHandler) storePart(ctx context.Context, part *multipart.Part, fileID string) (*models.File, []*models.Chunk, error) {
	ctx, span := tracer.Start(ctx, "store_part")
	defer span.End()

	name := part.FileName()
	if name == "" {
		return nil, nil, &uploadError{status: http.StatusBadRequest, msg: "no file provided"}
	}

	body := bufio.NewReaderSize(part, 3072)
	contentType := validate.BaseType(part.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		head, _ := body.Peek(3072)
		contentType = validate.BaseType(mimetype.Detect(head).String())
	}
	if !validate.IsAllowedType(contentType) {
		return nil, nil, &uploadError{status: http.StatusBadRequest, msg: validate.Check(0, contentType).Error()}
	}

	var chunks []*models.Chunk
	total, count, err := uh.chunker.Stream(body, func(cd *models.ChunkData) error {
		key := chunker.ObjectKey(fileID, cd.OrderIndex)
		if err := uh.stores.Blobs.UploadChunk(ctx, key, cd.Data); err != nil {
			return fmt.Errorf("failed to upload chunk %d: %w", cd.OrderIndex, err)
		}
		chunks = append(chunks, &models.Chunk{
			ID:             uuid.New().String(),
			FileID:         fileID,
			OrderIndex:     cd.OrderIndex,
			Hash:           cd.Hash,
			MinioObjectKey: key,
			Size:           cd.Size,
		})
		return nil
	})
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, chunker.ErrTooLarge), errors.As(err, &maxErr):
		return nil, chunks, &uploadError{status: http.StatusBadRequest, msg: validate.Check(validate.MaxFileSize+1, contentType).Error()}
	case err != nil:
		span.RecordError(err)
		return nil, chunks, err
	}

	span.SetAttributes(attribute.Int64("file_size", total), attribute.Int("chunk_count", count))
	return &models.File{
		ID:          fileID,
		Name:        name,
		Size:        total,
		ContentType: contentType,
		ChunkCount:  count,
		CreatedAt:   uh.now().UTC(),
	}, chunks, nil
}

func (uh *UploadHandler) cleanup(ctx context.Context, chunks []*models.Chunk) {
	for _, c := range chunks {
		if err := uh.stores.Blobs.DeleteChunk(ctx, c.MinioObjectKey); err != nil {
			uh.logger.Warn("failed to remove orphan chunk", slog.String("object_key", c.MinioObjectKey), slog.String("error", err.Error()))
		}
	}
}
