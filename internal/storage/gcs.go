package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/quillpost/apiserver/config"
	"google.golang.org/api/option"
)

// GCSClient stores media objects in a single Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	handle    *storage.BucketHandle
	name      string
	projectID string
}

func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}

	return &GCSClient{
		client:    client,
		handle:    client.Bucket(bucket),
		name:      bucket,
		projectID: strings.TrimSpace(cfg.ProjectID),
	}, nil
}

// EnsureBucket creates the bucket when it is missing. Creation needs a project id.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	_, err := g.handle.Attrs(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, storage.ErrBucketNotExist):
		return err
	case g.projectID == "":
		return fmt.Errorf("gcs bucket %s does not exist and no project id is set", g.name)
	}
	return g.handle.Create(ctx, g.projectID, nil)
}

// Put uploads in a single request.
func (g *GCSClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	w := g.handle.Object(key).NewWriter(ctx)
	w.ChunkSize = 0
	w.ContentType = contentType
	w.CacheControl = MediaCacheControl

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (g *GCSClient) Get(ctx context.Context, key string) (*Object, error) {
	reader, err := g.handle.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Object{
		Body:        reader,
		ContentType: reader.Attrs.ContentType,
		Size:        reader.Attrs.Size,
	}, nil
}

// Delete is idempotent: a missing object is not an error.
func (g *GCSClient) Delete(ctx context.Context, key string) error {
	if err := g.handle.Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (g *GCSClient) Bucket() string {
	return g.name
}

func (g *GCSClient) Close() error {
	return g.client.Close()
}
