// Package bundle handles the deployment artifact: a tarball either already
// hosted somewhere reachable or uploaded to object storage before launch.
package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"strato/config"
)

var remoteSchemes = []string{"http://", "https://", "s3://", "gs://"}

var archiveSuffixes = []string{".tar", ".tar.gz", ".tgz", ".tar.bz2"}

// IsRemote reports whether ref is a URL the deployment nodes can fetch
// directly, with no upload step.
func IsRemote(ref string) bool {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(ref, scheme) {
			return true
		}
	}
	return false
}

// Validate checks a bundle reference before launch. Remote URLs pass as-is;
// local paths must exist and look like a tarball.
func Validate(ref string) error {
	if ref == "" {
		return fmt.Errorf("empty bundle reference")
	}
	if IsRemote(ref) {
		return nil
	}
	ok := false
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(ref, suffix) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("bundle %q is not a tar archive", ref)
	}
	info, err := os.Stat(ref)
	if err != nil {
		return fmt.Errorf("bundle %q: %w", ref, err)
	}
	if info.IsDir() {
		return fmt.Errorf("bundle %q is a directory", ref)
	}
	return nil
}

// Store uploads local bundles to an S3-compatible bucket.
type Store struct {
	client *minio.Client
	bucket string
	region string
	log    *zap.Logger
}

func NewStore(cfg config.BundleConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("bundle store client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket, region: cfg.Region, log: log}, nil
}

// Upload pushes a local tarball and returns its s3:// reference. The
// bucket is created on first use.
func (s *Store) Upload(ctx context.Context, path string) (string, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return "", fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
		if err != nil {
			return "", fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}

	key := uuid.NewString()[:8] + "-" + filepath.Base(path)
	info, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{
		ContentType: "application/gzip",
	})
	if err != nil {
		return "", fmt.Errorf("upload bundle: %w", err)
	}
	s.log.Info("bundle uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size))
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Resolve returns a reference the deployment can fetch: remote refs pass
// through, local tarballs are validated and uploaded.
func (s *Store) Resolve(ctx context.Context, ref string) (string, error) {
	if err := Validate(ref); err != nil {
		return "", err
	}
	if IsRemote(ref) {
		return ref, nil
	}
	return s.Upload(ctx, ref)
}
