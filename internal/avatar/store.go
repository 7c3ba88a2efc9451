// Package avatar stores profile pictures in an S3-compatible bucket. The
// profile document only ever holds the object key; images are served via
// short-lived presigned URLs.
package avatar

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"verdant/api/internal/util"
)

// PresignTTL is how long a served avatar URL stays valid.
const PresignTTL = 15 * time.Minute

type Store struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and ensures the avatar bucket exists.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Store{client: client, bucket: bucket}, nil
}

// Upload stores an avatar image and returns its object key. The key embeds
// the owner so stale avatars are identifiable, and a random suffix so a
// re-upload never collides with a URL already handed out.
func (s *Store) Upload(ctx context.Context, userID, filename, contentType string, r io.Reader, size int64) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("%s/%s%s", userID, util.NewID(""), ext)

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	return key, nil
}

// URL returns a presigned GET URL for an avatar object key.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, PresignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign avatar %s: %w", key, err)
	}
	return u.String(), nil
}

// Remove deletes an avatar object.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove avatar %s: %w", key, err)
	}
	return nil
}
