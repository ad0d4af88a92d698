package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/alumni-connect/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryBackend) EnsureBucket(context.Context) error { return nil }

func (m *memoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) Bucket() string { return "memory" }

func TestPutProfileImage(t *testing.T) {
	backend := newMemoryBackend()
	images := NewImages(backend)
	images.newID = func() string { return "fixed" }

	key, err := images.PutProfileImage(context.Background(), 7, strings.NewReader("png-bytes"), 9, "image/PNG")
	require.NoError(t, err)
	assert.Equal(t, "profile-images/7/fixed.png", key)
	assert.Equal(t, "image/png", backend.types[key])

	rc, err := images.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", ContentTypeFor(key))
}

func TestPutProfileImageRejectsNonImages(t *testing.T) {
	images := NewImages(newMemoryBackend())

	_, err := images.PutProfileImage(context.Background(), 7, strings.NewReader("x"), 1, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestPutProfileImageWrapsBackendError(t *testing.T) {
	backend := newMemoryBackend()
	backend.putErr = errors.New("bucket gone")
	images := NewImages(backend)

	_, err := images.PutProfileImage(context.Background(), 7, strings.NewReader("x"), 1, "image/jpeg")
	assert.ErrorIs(t, err, backend.putErr)
}

func TestOpenOnlyServesProfileImages(t *testing.T) {
	images := NewImages(newMemoryBackend())

	_, err := images.Open(context.Background(), "secrets/config.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveIgnoresMissing(t *testing.T) {
	images := NewImages(newMemoryBackend())
	assert.NoError(t, images.Remove(context.Background(), "profile-images/1/gone.png"))
	assert.NoError(t, images.Remove(context.Background(), ""))
}

func TestNilImagesDisabled(t *testing.T) {
	images := NewImages(nil)
	assert.Nil(t, images)

	_, err := images.PutProfileImage(context.Background(), 1, strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = images.Open(context.Background(), "profile-images/1/a.png")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestOpenBackend(t *testing.T) {
	backend, err := Open(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, backend)

	_, err = Open(context.Background(), config.StorageConfig{Backend: "floppy"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.StorageConfig{Backend: "minio", Minio: config.MinioConfig{Endpoint: "localhost:9000"}})
	assert.Error(t, err)
}
