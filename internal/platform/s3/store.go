package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yungbote/mockgrader/internal/platform/envutil"
	"github.com/yungbote/mockgrader/internal/platform/logger"
)

type Config struct {
	// Endpoint is host[:port], optionally with an http(s):// scheme that sets Secure.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Secure          bool
}

// ConfigFromEnv reads S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY,
// S3_REGION and STORAGE_BUCKET.
func ConfigFromEnv() Config {
	return Config{
		Endpoint:        envutil.String("S3_ENDPOINT", ""),
		AccessKeyID:     envutil.String("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: envutil.String("S3_SECRET_ACCESS_KEY", ""),
		Region:          envutil.String("S3_REGION", "us-east-1"),
		Bucket:          envutil.First("STORAGE_BUCKET", "S3_BUCKET"),
		Secure:          envutil.Bool("S3_SECURE", true),
	}
}

// Store is the S3-compatible object store holding answer recordings.
type Store struct {
	log    *logger.Logger
	client *minio.Client
	bucket string
}

func New(log *logger.Logger, cfg Config) (*Store, error) {
	endpoint, secure, err := splitEndpoint(cfg.Endpoint, cfg.Secure)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3: bucket required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	slog := log.With("service", "s3.Store")
	slog.Info("Object storage initialized", "mode", "s3", "endpoint", endpoint, "bucket", cfg.Bucket)
	return &Store{log: slog, client: client, bucket: cfg.Bucket}, nil
}

func splitEndpoint(raw string, secure bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("s3: endpoint required")
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/"), secure, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("s3: invalid endpoint %q", raw)
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		return "", false, fmt.Errorf("s3: endpoint %q must not carry a path", raw)
	}
	return u.Host, u.Scheme == "https", nil
}

// Download opens the object. Stat runs first so a missing key fails here and not
// on the caller's first Read.
func (s *Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get %q: %w", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("s3 get %q: %w", key, err)
	}
	return obj, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
