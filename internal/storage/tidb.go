package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/maneesh/filedrop/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS files (
		id             VARCHAR(36)  PRIMARY KEY,
		name           VARCHAR(255) NOT NULL,
		size           BIGINT       NOT NULL,
		content_type   VARCHAR(100) NOT NULL,
		description    TEXT         NOT NULL,
		is_public      BOOLEAN      NOT NULL DEFAULT FALSE,
		chunk_count    INT          NOT NULL,
		owner_id       VARCHAR(64)  NOT NULL,
		owner_username VARCHAR(150) NOT NULL,
		owner_email    VARCHAR(254) NOT NULL,
		created_at     DATETIME(6)  NOT NULL,
		INDEX idx_files_owner (owner_id, created_at),
		INDEX idx_files_public (is_public, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		id               VARCHAR(36)  PRIMARY KEY,
		file_id          VARCHAR(36)  NOT NULL,
		order_index      INT          NOT NULL,
		hash             CHAR(64)     NOT NULL,
		minio_object_key VARCHAR(255) NOT NULL,
		size             BIGINT       NOT NULL,
		INDEX idx_chunks_file (file_id, order_index)
	)`,
	`CREATE TABLE IF NOT EXISTS shares (
		token          VARCHAR(36) PRIMARY KEY,
		file_id        VARCHAR(36) NOT NULL,
		created_at     DATETIME(6) NOT NULL,
		expires_at     DATETIME(6) NULL,
		download_count INT         NOT NULL DEFAULT 0,
		max_downloads  INT         NULL,
		INDEX idx_shares_file (file_id)
	)`,
}

const fileColumns = `id, name, size, content_type, description, is_public, chunk_count,
	owner_id, owner_username, owner_email, created_at`

// TiDBClient keeps file, chunk and share metadata in TiDB
type TiDBClient struct {
	db *sql.DB
}

// NewTiDBClient opens the database and applies the schema
func NewTiDBClient(ctx context.Context, dsn string) (*TiDBClient, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &TiDBClient{db: db}, nil
}

// Close closes the database connection
func (tc *TiDBClient) Close() error {
	return tc.db.Close()
}

// SaveFile inserts the file row and its chunk rows in one transaction
func (tc *TiDBClient) SaveFile(ctx context.Context, file *models.File, chunks []*models.Chunk) error {
	ctx, span := tracer.Start(ctx, "tidb.save_file",
		trace.WithAttributes(
			attribute.String("file_id", file.ID),
			attribute.Int64("file_size", file.Size),
			attribute.Int("chunk_count", len(chunks)),
		),
	)
	defer span.End()

	tx, err := tc.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.Name, file.Size, file.ContentType, file.Description, file.IsPublic, file.ChunkCount,
		file.Owner.ID, file.Owner.Username, file.Owner.Email, file.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert file: %w", err)
	}

	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, file_id, order_index, hash, minio_object_key, size) VALUES (?, ?, ?, ?, ?, ?)`,
			chunk.ID, chunk.FileID, chunk.OrderIndex, chunk.Hash, chunk.MinioObjectKey, chunk.Size,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.OrderIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit file: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*models.File, error) {
	var f models.File
	err := row.Scan(
		&f.ID, &f.Name, &f.Size, &f.ContentType, &f.Description, &f.IsPublic, &f.ChunkCount,
		&f.Owner.ID, &f.Owner.Username, &f.Owner.Email, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFile retrieves file metadata by ID with tracing
func (tc *TiDBClient) GetFile(ctx context.Context, fileID string) (*models.File, error) {
	ctx, span := tracer.Start(ctx, "tidb.get_file",
		trace.WithAttributes(
			attribute.String("file_id", fileID),
		),
	)
	defer span.End()

	file, err := scanFile(tc.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, fileID))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.Bool("found", false))
		return nil, ErrFileNotFound
	} else if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query file: %w", err)
	}

	span.SetAttributes(attribute.Bool("found", true))
	return file, nil
}

// ListByOwner returns the owner's files, newest first
func (tc *TiDBClient) ListByOwner(ctx context.Context, ownerID string) ([]*models.File, error) {
	ctx, span := tracer.Start(ctx, "tidb.list_by_owner",
		trace.WithAttributes(
			attribute.String("owner_id", ownerID),
		),
	)
	defer span.End()

	return tc.listFiles(ctx, span, `SELECT `+fileColumns+` FROM files WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
}

// ListPublic returns all public files, newest first
func (tc *TiDBClient) ListPublic(ctx context.Context) ([]*models.File, error) {
	ctx, span := tracer.Start(ctx, "tidb.list_public")
	defer span.End()

	return tc.listFiles(ctx, span, `SELECT `+fileColumns+` FROM files WHERE is_public = TRUE ORDER BY created_at DESC`)
}

func (tc *TiDBClient) listFiles(ctx context.Context, span trace.Span, query string, args ...any) ([]*models.File, error) {
	rows, err := tc.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	files := make([]*models.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	span.SetAttributes(attribute.Int("file_count", len(files)))
	return files, nil
}

// GetChunks retrieves all chunks for a file ordered by order_index with tracing
func (tc *TiDBClient) GetChunks(ctx context.Context, fileID string) ([]*models.Chunk, error) {
	ctx, span := tracer.Start(ctx, "tidb.get_chunks",
		trace.WithAttributes(
			attribute.String("file_id", fileID),
		),
	)
	defer span.End()

	query := `SELECT id, file_id, order_index, hash, minio_object_key, size
			  FROM chunks
			  WHERE file_id = ?
			  ORDER BY order_index ASC`

	rows, err := tc.db.QueryContext(ctx, query, fileID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		if err := rows.Scan(
			&chunk.ID,
			&chunk.FileID,
			&chunk.OrderIndex,
			&chunk.Hash,
			&chunk.MinioObjectKey,
			&chunk.Size,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))
	return chunks, nil
}

// DeleteFile removes the file row together with its chunks and shares
func (tc *TiDBClient) DeleteFile(ctx context.Context, fileID string) error {
	ctx, span := tracer.Start(ctx, "tidb.delete_file",
		trace.WithAttributes(
			attribute.String("file_id", fileID),
		),
	)
	defer span.End()

	tx, err := tc.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFileNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shares WHERE file_id = ?`, fileID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete shares: %w", err)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// CreateShare inserts a share link
func (tc *TiDBClient) CreateShare(ctx context.Context, share *models.Share) error {
	ctx, span := tracer.Start(ctx, "tidb.create_share",
		trace.WithAttributes(
			attribute.String("file_id", share.FileID),
		),
	)
	defer span.End()

	_, err := tc.db.ExecContext(ctx,
		`INSERT INTO shares (token, file_id, created_at, expires_at, download_count, max_downloads) VALUES (?, ?, ?, ?, ?, ?)`,
		share.Token, share.FileID, share.CreatedAt, share.ExpiresAt, share.DownloadCount, share.MaxDownloads,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert share: %w", err)
	}
	return nil
}

// GetShare looks up a share by token
func (tc *TiDBClient) GetShare(ctx context.Context, token string) (*models.Share, error) {
	ctx, span := tracer.Start(ctx, "tidb.get_share")
	defer span.End()

	var (
		s            models.Share
		expiresAt    sql.NullTime
		maxDownloads sql.NullInt64
	)
	err := tc.db.QueryRowContext(ctx,
		`SELECT token, file_id, created_at, expires_at, download_count, max_downloads FROM shares WHERE token = ?`, token,
	).Scan(&s.Token, &s.FileID, &s.CreatedAt, &expiresAt, &s.DownloadCount, &maxDownloads)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShareNotFound
	} else if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query share: %w", err)
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		s.ExpiresAt = &t
	}
	if maxDownloads.Valid {
		n := int(maxDownloads.Int64)
		s.MaxDownloads = &n
	}
	return &s, nil
}

// ClaimShareDownload bumps the download counter of a share that is still
// within its expiry and download limit
func (tc *TiDBClient) ClaimShareDownload(ctx context.Context, token string, now time.Time) error {
	ctx, span := tracer.Start(ctx, "tidb.claim_share_download")
	defer span.End()

	res, err := tc.db.ExecContext(ctx,
		`UPDATE shares SET download_count = download_count + 1
		WHERE token = ?
			AND (max_downloads IS NULL OR download_count < max_downloads)
			AND (expires_at IS NULL OR expires_at >= ?)`,
		token, now,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update share: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = tc.db.QueryRowContext(ctx, `SELECT 1 FROM shares WHERE token = ?`, token).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShareNotFound
	} else if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to query share: %w", err)
	}
	span.SetAttributes(attribute.Bool("exhausted", true))
	return ErrShareExhausted
}
