package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/droprelay/service/internal/errs"
	"github.com/droprelay/service/internal/logger"
)

// MinioStorage implements Storage using a MinIO (or any S3-compatible) bucket.
// Keys keep their flat "/name" shape at the API; the leading slash is dropped
// before it reaches S3.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists and
// returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, mapMinioError(err, "check bucket existence")
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, mapMinioError(err, fmt.Sprintf("create bucket %q", bucket))
		}
		logger.FromContext(ctx).Infof("storage: created bucket %q", bucket)
	}

	return &MinioStorage{client: client, bucket: bucket}, nil
}

// Upload streams reader to MinIO under key. size must be the exact byte count
// (pass -1 only if the size is genuinely unknown; MinIO will buffer it).
func (s *MinioStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName(key), reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return mapMinioError(err, fmt.Sprintf("put object %q", key))
	}
	return nil
}

// Download opens the object at key. The stat call surfaces a missing object
// before any bytes reach the caller.
func (s *MinioStorage) Download(ctx context.Context, key string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err, fmt.Sprintf("get object %q", key))
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapMinioError(err, fmt.Sprintf("stat object %q", key))
	}

	return &Object{
		Name: path.Base(stat.Key),
		Size: stat.Size,
		Body: obj,
	}, nil
}

func objectName(key string) string {
	return strings.TrimLeft(key, "/")
}

// mapMinioError translates a MinIO SDK error into a *errs.Error.
func mapMinioError(err error, msg string) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTransport, msg, err)
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchBucket", "NoSuchKey":
			return errs.Wrap(errs.ErrKindNotFound, msg, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return errs.Wrap(errs.ErrKindUnauthorized, msg, err)
		case "SlowDown", "SlowDownRead", "SlowDownWrite":
			return errs.Wrap(errs.ErrKindRateLimited, msg, err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return errs.Wrap(errs.ErrKindNotFound, msg, err)
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return errs.Wrap(errs.ErrKindUnauthorized, msg, err)
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusServiceUnavailable:
			return errs.Wrap(errs.ErrKindRateLimited, msg, err)
		case resp.StatusCode >= http.StatusInternalServerError:
			return errs.Wrap(errs.ErrKindTransport, msg, err)
		case resp.StatusCode != 0:
			return errs.Wrap(errs.ErrKindUnknown, msg, err)
		}
	}

	// No S3 response at all: the request never completed.
	return errs.Wrap(errs.ErrKindTransport, msg, err)
}
