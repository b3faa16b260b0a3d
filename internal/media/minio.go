package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/config"
	"github.com/aiot-hub/aiot/backend/go-client/internal/imaging"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectClient is the part of *minio.Client the uploader calls.
type objectClient interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucket, object string, expires time.Duration, params url.Values) (*url.URL, error)
}

// MinIOUploader stores images directly in a bucket and returns a presigned GET URL.
type MinIOUploader struct {
	client objectClient
	bucket string
	expiry time.Duration
	prefix string
}

// NewMinIOUploader connects to MinIO and creates the bucket when it is missing.
func NewMinIOUploader(ctx context.Context, cfg config.MinIOConfig) (*MinIOUploader, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
		logger.Infof("created bucket %s", cfg.Bucket)
	}
	return newMinIOUploader(mc, cfg.Bucket, cfg.URLExpiry), nil
}

func newMinIOUploader(c objectClient, bucket string, expiry time.Duration) *MinIOUploader {
	if expiry <= 0 {
		expiry = 7 * 24 * time.Hour
	}
	return &MinIOUploader{client: c, bucket: bucket, expiry: expiry, prefix: "uploads"}
}

func (u *MinIOUploader) Upload(ctx context.Context, f *imaging.File) (string, error) {
	key := ObjectKey(u.prefix, f.Name, time.Now())
	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(f.Data), int64(len(f.Data)),
		minio.PutObjectOptions{ContentType: f.MimeType})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	signed, err := u.client.PresignedGetObject(ctx, u.bucket, key, u.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	logger.Debugf("uploaded %s (%d bytes) to bucket %s", key, len(f.Data), u.bucket)
	return signed.String(), nil
}
