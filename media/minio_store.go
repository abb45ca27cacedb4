package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig carries the connection settings for object storage.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore implements the Store interface on top of a MinIO (or S3
// compatible) bucket. Asset types map to key prefixes.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// Ensure MinIOStore implements Store
var _ Store = (*MinIOStore)(nil)

// NewMinIOStore connects to MinIO and makes sure the bucket exists.
func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := &MinIOStore{client: client, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return store, nil
}

// Save streams data into the bucket under "<assetType>/<filenameHint>"
func (s *MinIOStore) Save(assetType AssetType, filenameHint string, data io.Reader) (string, error) {
	if filenameHint == "" {
		return "", fmt.Errorf("filename hint cannot be empty for MinIOStore.Save")
	}
	key := path.Join(string(assetType), filenameHint)

	// size -1 streams with multipart upload
	_, err := s.client.PutObject(context.Background(), s.bucket, key, data, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return key, nil
}

// Get retrieves an object and its size
func (s *MinIOStore) Get(relativePath string) (io.ReadCloser, int64, error) {
	obj, err := s.client.GetObject(context.Background(), s.bucket, relativePath, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object %s: %w", relativePath, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("asset not found at '%s': %w", relativePath, err)
	}
	return obj, info.Size, nil
}

// Delete removes an object; missing objects are not an error
func (s *MinIOStore) Delete(relativePath string) error {
	err := s.client.RemoveObject(context.Background(), s.bucket, relativePath, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", relativePath, err)
	}
	return nil
}

// Ping checks MinIO connectivity.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
