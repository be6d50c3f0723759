package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

type memBackend struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemBackend() *memBackend {
	return &memBackend{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memBackend) EnsureBucket(ctx context.Context) error { return nil }

func (m *memBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBackend) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memBackend) Bucket() string { return "test" }

func TestAvatarStore_PutAndGet(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	store := NewAvatarStore(backend)
	ctx := context.Background()

	payload := []byte("png bytes")
	key, err := store.Put(ctx, 7, bytes.NewReader(payload), int64(len(payload)), "image/png")
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if key != "avatars/7" {
		t.Fatalf("unexpected key %q", key)
	}

	reader, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read avatar: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("avatar bytes mismatch")
	}
}

func TestAvatarStore_RejectsNonImage(t *testing.T) {
	t.Parallel()

	store := NewAvatarStore(newMemBackend())
	_, err := store.Put(context.Background(), 1, bytes.NewReader([]byte("x")), 1, "text/plain")
	if !errors.Is(err, ErrUnsupportedContentType) {
		t.Fatalf("expected ErrUnsupportedContentType, got %v", err)
	}
}

func TestAvatarStore_OverwriteReplacesObject(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	store := NewAvatarStore(backend)
	ctx := context.Background()

	if _, err := store.Put(ctx, 3, bytes.NewReader([]byte("old")), 3, "image/png"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, err := store.Put(ctx, 3, bytes.NewReader([]byte("new")), 3, "image/png"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if string(backend.objects["avatars/3"]) != "new" {
		t.Fatalf("overwrite did not replace object")
	}
}
