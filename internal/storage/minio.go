package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MinioOptions locates the bucket that holds chunk blobs.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioClient stores chunk blobs as objects under chunks/{file_id}/{index}.
type MinioClient struct {
	client *minio.Client
	bucket string
}

// NewMinioClient connects to MinIO and makes sure the bucket exists.
func NewMinioClient(ctx context.Context, opts MinioOptions, logger *slog.Logger) (*MinioClient, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			// Another replica may have created it first.
			if resp := minio.ToErrorResponse(err); resp.Code != "BucketAlreadyOwnedByYou" {
				return nil, fmt.Errorf("failed to create bucket %q: %w", opts.Bucket, err)
			}
		}
		logger.Info("bucket created", slog.String("bucket", opts.Bucket))
	}

	return &MinioClient{client: client, bucket: opts.Bucket}, nil
}

// UploadChunk writes one chunk payload.
func (mc *MinioClient) UploadChunk(ctx context.Context, objectKey string, data []byte) (err error) {
	ctx, span := mc.start(ctx, "minio.put_chunk", objectKey)
	span.SetAttributes(attribute.Int("size_bytes", len(data)))
	defer func() { endSpan(span, err) }()

	_, err = mc.client.PutObject(ctx, mc.bucket, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:    "application/octet-stream",
			SendContentMd5: true,
		})
	if err != nil {
		return fmt.Errorf("failed to store chunk %s: %w", objectKey, err)
	}
	return nil
}

// DownloadChunk reads one chunk payload.
func (mc *MinioClient) DownloadChunk(ctx context.Context, objectKey string) (data []byte, err error) {
	ctx, span := mc.start(ctx, "minio.get_chunk", objectKey)
	defer func() { endSpan(span, err) }()

	object, err := mc.client.GetObject(ctx, mc.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk %s: %w", objectKey, err)
	}
	defer object.Close()

	info, err := object.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat chunk %s: %w", objectKey, err)
	}

	var buf bytes.Buffer
	buf.Grow(int(info.Size))
	if _, err := io.Copy(&buf, object); err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", objectKey, err)
	}

	span.SetAttributes(attribute.Int("size_bytes", buf.Len()))
	return buf.Bytes(), nil
}

// DeleteChunk removes one chunk. A missing object is not an error.
func (mc *MinioClient) DeleteChunk(ctx context.Context, objectKey string) (err error) {
	ctx, span := mc.start(ctx, "minio.delete_chunk", objectKey)
	defer func() { endSpan(span, err) }()

	err = mc.client.RemoveObject(ctx, mc.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("failed to delete chunk %s: %w", objectKey, err)
	}
	return nil
}

func (mc *MinioClient) start(ctx context.Context, name, objectKey string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("bucket", mc.bucket),
		attribute.String("object_key", objectKey),
	))
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
