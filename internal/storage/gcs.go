package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com/"

type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore prefers application default credentials; credJSON overrides them.
func NewGCSStore(ctx context.Context, bucket, credJSON string) (*GCSStore, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %v", bucket, err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}

func (g *GCSStore) url(key string) string {
	return gcsPublicHost + g.bucket + "/" + key
}

func (g *GCSStore) key(url string) (string, error) {
	prefix := g.url("")
	if !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("url %q is not in bucket %q", url, g.bucket)
	}
	return strings.TrimPrefix(url, prefix), nil
}

func (g *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	wc := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer for %s: %w", key, err)
	}
	return g.url(key), nil
}

func (g *GCSStore) Get(ctx context.Context, url string) ([]byte, error) {
	key, err := g.key(url)
	if err != nil {
		return nil, err
	}
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *GCSStore) Delete(ctx context.Context, url string) error {
	key, err := g.key(url)
	if err != nil {
		return err
	}
	err = g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}
