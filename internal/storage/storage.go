package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alumni-connect/apiserver/config"
	"github.com/google/uuid"
)

var (
	// ErrDisabled is returned when no storage backend is configured.
	ErrDisabled = errors.New("object storage is not configured")
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrUnsupportedImage is returned for content types other than common web images.
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Open builds the backend named by cfg.Backend. An empty backend returns a
// nil ObjectStorage and no error.
func Open(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gcs":
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

const profileImagePrefix = "profile-images"

// Images stores profile pictures under per-user keys. A nil *Images reports
// ErrDisabled from every method.
type Images struct {
	backend ObjectStorage
	newID   func() string
}

// NewImages returns nil when backend is nil.
func NewImages(backend ObjectStorage) *Images {
	if backend == nil {
		return nil
	}
	return &Images{backend: backend, newID: uuid.NewString}
}

// PutProfileImage uploads an avatar for userID and returns its object key.
func (s *Images) PutProfileImage(ctx context.Context, userID int64, r io.Reader, size int64, contentType string) (string, error) {
	if s == nil {
		return "", ErrDisabled
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedImage
	}
	key := fmt.Sprintf("%s/%d/%s%s", profileImagePrefix, userID, s.newID(), ext)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("upload profile image: %w", err)
	}
	return key, nil
}

// Open reads an object previously written by PutProfileImage.
func (s *Images) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	if !strings.HasPrefix(key, profileImagePrefix+"/") {
		return nil, ErrNotFound
	}
	return s.backend.Get(ctx, key)
}

// Remove deletes an object. Missing objects are not an error.
func (s *Images) Remove(ctx context.Context, key string) error {
	if s == nil {
		return ErrDisabled
	}
	if key == "" {
		return nil
	}
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// ContentTypeFor returns the content type implied by a stored key's extension.
func ContentTypeFor(key string) string {
	for contentType, ext := range imageExtensions {
		if strings.HasSuffix(key, ext) {
			return contentType
		}
	}
	return "application/octet-stream"
}
