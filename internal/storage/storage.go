package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedContentType is returned for avatar uploads that are not
// images.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// AvatarStore keeps user avatar images in an object-storage backend, one
// object per user under a fixed key scheme.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore over the provided backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put stores the avatar for the given user and returns its object key.
// Uploading again overwrites the previous avatar.
func (s *AvatarStore) Put(ctx context.Context, userID int, r io.Reader, size int64, contentType string) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedContentType
	}
	key := avatarKey(userID)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Get opens a reader for the avatar stored under key.
func (s *AvatarStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes the avatar stored under key.
func (s *AvatarStore) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *AvatarStore) Bucket() string {
	return s.backend.Bucket()
}

func avatarKey(userID int) string {
	return fmt.Sprintf("avatars/%d", userID)
}
