// Package minio provides a MinIO-backed implementation of the object
// store port. Original upload bytes are kept here; SQLite only holds
// metadata and chunk text.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
)

// Ensure ObjectStore implements the interface.
var _ driven.ObjectStore = (*ObjectStore)(nil)

// Config holds MinIO connection settings.
type Config struct {
	// Endpoint is the host:port of the MinIO server.
	Endpoint string

	// AccessKey authenticates the client.
	AccessKey string

	// SecretKey authenticates the client.
	SecretKey string

	// Bucket is created on startup when missing.
	Bucket string

	// UseSSL enables TLS transport.
	UseSSL bool
}

// ObjectStore stores original upload bytes in a MinIO bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// New creates a MinIO-backed object store and ensures the bucket exists.
func New(ctx context.Context, cfg Config) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket: %w", err)
		}
	}

	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// Put stores bytes under a key and returns a storage reference.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", domain.ErrInvalidInput
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("storing object: %w", err)
	}

	return s.bucket + "/" + key, nil
}

// Get retrieves bytes by storage reference.
func (s *ObjectStore) Get(ctx context.Context, ref string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.keyFromRef(ref), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return data, nil
}

// Delete removes a stored object. Missing objects are not an error.
func (s *ObjectStore) Delete(ctx context.Context, ref string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.keyFromRef(ref), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	return nil
}

// Ping validates the store is reachable.
func (s *ObjectStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("pinging object store: %w", err)
	}
	return nil
}

// keyFromRef strips the bucket prefix a Put call added.
func (s *ObjectStore) keyFromRef(ref string) string {
	return strings.TrimPrefix(ref, s.bucket+"/")
}
