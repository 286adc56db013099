package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCS stores objects in one Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	logger *slog.Logger
}

func NewGCS(ctx context.Context, bucket string, logger *slog.Logger) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCS{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		logger: logger.With("component", "blob", "bucket", bucket),
	}, nil
}

// Put writes the object only if it does not already exist. Keys carry a
// millisecond timestamp, so an existing object is the same upload retried.
func (g *GCS) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ValidKey(key); err != nil {
		return "", err
	}

	writer := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			g.logger.Info("Object already exists, skipping write", "key", key)
			return g.url(key), nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}

	g.logger.Info("Object stored", "key", key, "bytes", len(data))
	return g.url(key), nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidKey(key); err != nil {
		return nil, err
	}
	reader, err := g.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", key, err)
	}
	return data, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	err := g.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) url(key string) string {
	return fmt.Sprintf("gs://%s/%s", g.name, key)
}
