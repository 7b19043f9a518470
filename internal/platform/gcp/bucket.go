package gcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/mockgrader/internal/platform/logger"
	"github.com/yungbote/mockgrader/internal/platform/objectstore"
)

// BucketService reads and removes objects in the single bucket that holds answer
// recordings.
type BucketService interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	httpClient    *http.Client
	storageMode   objectstore.Mode
	emulatorHost  string
	bucket        string
}

// NewBucketService reads GCS_BUCKET_NAME (or STORAGE_BUCKET).
func NewBucketService(log *logger.Logger, storageCfg objectstore.Config) (BucketService, error) {
	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET_NAME"))
	if bucket == "" {
		bucket = strings.TrimSpace(os.Getenv("STORAGE_BUCKET"))
	}
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	return NewBucketServiceWithConfig(log, storageCfg, bucket)
}

func NewBucketServiceWithConfig(log *logger.Logger, storageCfg objectstore.Config, bucket string) (BucketService, error) {
	if err := objectstore.ValidateConfig(storageCfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	if storageCfg.Mode == objectstore.ModeS3 {
		return nil, &objectstore.ConfigError{Code: objectstore.ConfigErrorInvalidMode, Mode: string(storageCfg.Mode)}
	}
	serviceLog := log.With("service", "BucketService")

	bs := &bucketService{
		log:          serviceLog,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
		storageMode:  storageCfg.Mode,
		emulatorHost: strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"),
		bucket:       strings.TrimSpace(bucket),
	}
	if !bs.isEmulatorMode() {
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		stClient, err := storage.NewClient(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		bs.storageClient = stClient
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"emulator_host", storageCfg.EmulatorHost,
		"bucket", bs.bucket,
	)
	return bs, nil
}

func (bs *bucketService) isEmulatorMode() bool {
	return bs != nil && objectstore.IsEmulatorMode(bs.storageMode) && bs.emulatorHost != ""
}

func (bs *bucketService) emulatorObjectURL(key string, media bool) string {
	u := fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		bs.emulatorHost,
		url.PathEscape(bs.bucket),
		url.PathEscape(key),
	)
	if media {
		u += "?alt=media"
	}
	return u
}

// The reader outlives this call, so the timeout is released by Close rather
// than by a deferred cancel.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (bs *bucketService) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	if bs.isEmulatorMode() {
		req, err := http.NewRequestWithContext(ctx2, http.MethodGet, bs.emulatorObjectURL(key, true), nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed creating emulator download request: %w", err)
		}
		resp, err := bs.httpClient.Do(req)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed emulator download request: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			_ = resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return &readCloserWithCancel{ReadCloser: resp.Body, cancel: cancel}, nil
	}

	r, err := bs.storageClient.Bucket(bs.bucket).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open GCS reader for %q: %w", key, err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (bs *bucketService) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if bs.isEmulatorMode() {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, bs.emulatorObjectURL(key, false), nil)
		if err != nil {
			return fmt.Errorf("failed creating emulator delete request: %w", err)
		}
		resp, err := bs.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed emulator delete request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("emulator delete failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil
	}
	if err := bs.storageClient.Bucket(bs.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, bs.bucket, err)
	}
	return nil
}

func (bs *bucketService) Close() error {
	if bs == nil || bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}
