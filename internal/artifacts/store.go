package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
)

const uploadTimeout = 2 * time.Minute

// bucketClient is the subset of *minio.Client the store uses.
type bucketClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Store writes report files under <prefix>/<run id>/ in one bucket.
type Store struct {
	client bucketClient
	cfg    Config
}

// New validates cfg and builds a store backed by a minio client.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("artifact client: %w", err)
	}
	return &Store{client: client, cfg: cfg}, nil
}

// Key returns the object key for a file of the given run.
func (s *Store) Key(runID, name string) string {
	return path.Join(strings.Trim(s.cfg.Prefix, "/"), runID, filepath.Base(name))
}

// Upload stores data as name for the run, creating the bucket on first use,
// and returns the object key.
func (s *Store) Upload(ctx context.Context, runID, name string, data []byte) (string, error) {
	logger := ctxlog.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	if err := s.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket %s: %w", s.cfg.Bucket, err)
	}

	key := s.Key(runID, name)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	logger.Debug("Artifact uploaded.", "bucket", s.cfg.Bucket, "key", key, "size", info.Size, "content_type", contentType)
	return key, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region})
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
