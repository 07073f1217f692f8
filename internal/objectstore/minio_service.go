// Package objectstore stores uploaded heart-sound recordings in MinIO.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pulseecho/backend/internal/config"
)

// MinioClient holds the MinIO client and the recordings bucket name.
type MinioClient struct {
	Client     *minio.Client
	BucketName string
}

// NewMinioClient connects to MinIO and ensures the recordings bucket
// exists. Called once at application startup.
func NewMinioClient(ctx context.Context, cfg config.MinioConfig) (*MinioClient, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint, access_key, secret_key, and bucket must be set")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", cfg.Bucket, err)
	}
	if !exists {
		log.Printf("MinIO bucket '%s' does not exist. Attempting to create it.", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket '%s': %w", cfg.Bucket, err)
		}
		log.Printf("MinIO bucket '%s' created successfully.", cfg.Bucket)
	}

	return &MinioClient{Client: client, BucketName: cfg.Bucket}, nil
}

// UploadRecording stores a recording and returns the generated object
// name. Object names are uuid-based, preserving the original extension.
func (mc *MinioClient) UploadRecording(ctx context.Context, originalFilename string, reader io.Reader, size int64, contentType string) (string, error) {
	objectName := uuid.New().String() + filepath.Ext(originalFilename)

	uploadInfo, err := mc.Client.PutObject(ctx, mc.BucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload recording to MinIO (bucket: %s, object: %s): %w", mc.BucketName, objectName, err)
	}

	log.Printf("Uploaded recording '%s' (%d bytes) to MinIO. ETag: %s", objectName, uploadInfo.Size, uploadInfo.ETag)
	return objectName, nil
}

// GetRecording streams a stored recording back. The caller must close
// the returned reader.
func (mc *MinioClient) GetRecording(ctx context.Context, objectName string) (io.ReadCloser, string, error) {
	obj, err := mc.Client.GetObject(ctx, mc.BucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get recording '%s' from MinIO: %w", objectName, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, "", fmt.Errorf("failed to stat recording '%s': %w", objectName, err)
	}
	return obj, stat.ContentType, nil
}

// DeleteRecording removes a stored recording.
func (mc *MinioClient) DeleteRecording(ctx context.Context, objectName string) error {
	if err := mc.Client.RemoveObject(ctx, mc.BucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete recording '%s' from MinIO: %w", objectName, err)
	}
	log.Printf("Deleted recording '%s' from MinIO.", objectName)
	return nil
}
