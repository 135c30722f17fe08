// Package storage is the blob store for uploaded files and processed row-sets.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("blob not found")

// Store uploads blobs and returns a fetchable URL; Get and Delete accept that URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Get(ctx context.Context, url string) ([]byte, error)
	Delete(ctx context.Context, url string) error
}

// ObjectKey builds <owner>/<entity>/<uuid><ext>.
func ObjectKey(owner, entity, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return path.Join(owner, entity, uuid.NewString()+ext)
}

// PutJSON stores v as a JSON blob.
func PutJSON(ctx context.Context, s Store, key string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return s.Put(ctx, key, "application/json", b)
}

// GetJSON fetches a JSON blob into v.
func GetJSON(ctx context.Context, s Store, url string, v any) error {
	b, err := s.Get(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
