// Package imagestore uploads assembly documentation images to object
// storage and hands back the stored reference used by the metadata and
// mint phases.
package imagestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/luxtrace/assembler/pkg/errors"
)

// Client provides S3 storage operations
type Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewClient creates a new S3 client
func NewClient(ctx context.Context, bucket, region string) (*Client, error) {
	slog.Info("s3_client_init", "bucket", bucket, "region", region)

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucket,
	}, nil
}

// UploadResult contains upload metadata
type UploadResult struct {
	Key    string
	SHA256 string
	Size   int64
}

// Upload stores a local image in the bucket under a content-addressed
// key. The same file always lands on the same key, so a retried upload
// is harmless.
func (c *Client) Upload(ctx context.Context, localPath string) (*UploadResult, error) {
	slog.Info("s3_upload_start", "bucket", c.bucket, "path", localPath)

	data, err := os.ReadFile(localPath)
	if err != nil {
		slog.Error("local_file_read_failed", "path", localPath, "error", err)
		return nil, errors.Wrap(err, "failed to read image file")
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	key := "uploads/" + checksum[:16] + filepath.Ext(localPath)

	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		slog.Error("s3_put_object_failed", "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to upload image")
	}

	slog.Info("s3_upload_complete",
		"key", key,
		"size_kb", int64(len(data))/1024,
		"sha256", checksum[:16]+"...",
	)

	return &UploadResult{
		Key:    key,
		SHA256: checksum,
		Size:   int64(len(data)),
	}, nil
}

// Exists checks if an object exists in the bucket
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		if err.Error() == "NotFound" {
			slog.Info("s3_object_not_found", "key", key)
			return false, nil
		}
		slog.Error("s3_head_object_failed", "key", key, "error", err)
		return false, errors.Wrap(err, "failed to check object existence")
	}

	return true, nil
}
