// Package objstore wraps an S3-compatible bucket as the content-addressed
// blob store for raw files and published artifacts. Keys are always derived
// from content hash or a fixed artifact path — callers never choose a key.
package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Config names the bucket and credentials. Mirrors the teacher's own
// AuthConfig shape (ID/Secret/Region/Endpoint/Bucket, force-path-style for
// non-AWS-compatible endpoints like MinIO).
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // empty for real AWS S3
	Bucket          string
	ForcePathStyle  bool
	DisableTLS      bool
}

func (c Config) validate() error {
	if c.Bucket == "" {
		return errors.New("objstore: missing bucket")
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return errors.New("objstore: missing credentials")
	}
	if c.Region == "" {
		return errors.New("objstore: missing region")
	}
	return nil
}

// Store is the content-addressed object store client.
type Store struct {
	cfg Config
	svc *s3.S3
}

func New(cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      aws.String(cfg.Region),
		DisableSSL:  aws.Bool(cfg.DisableTLS),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(cfg.ForcePathStyle)
	}
	sess, err := session.NewSession(&awsCfg)
	if err != nil {
		return nil, fmt.Errorf("objstore: create session: %w", err)
	}
	return &Store{cfg: cfg, svc: s3.New(sess)}, nil
}

// RawFileKey is the content-addressed key for an uploaded raw logger file,
// per the object-store key layout: raw-files/{hash}.
func RawFileKey(hash string) string {
	return "raw-files/" + hash
}

// ArtifactKey is the key for a published tabular artifact, named by the
// output that references it: outputs/{output_id}.parquet.
func ArtifactKey(outputID string) string {
	return "outputs/" + outputID + ".parquet"
}

// ReproBundleKey is the key for an output's reproducibility bundle:
// repro-cartridges/{output_id}.zip.
func ReproBundleKey(outputID string) string {
	return "repro-cartridges/" + outputID + ".zip"
}

// Exists checks whether an object already exists — used by the orchestrator
// to make raw-file upload idempotent by content hash.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("objstore: head %s: %w", key, err)
	}
	return true, nil
}

// Put uploads a blob to key, overwriting any existing object at that key —
// safe for content-addressed keys since identical content always hashes to
// the same key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("objstore: put %s: %w", key, err)
	}
	return nil
}

// Get retrieves a blob's full contents.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// ListKeys enumerates every object key under prefix, for GC reconciliation.
func (s *Store) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var outerErr error
	err := s.svc.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			keys = append(keys, *obj.Key)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: list %s: %w", prefix, err)
	}
	return keys, outerErr
}

// Delete removes an object — only ever called by the GC reconciler against
// keys it has already confirmed are unreferenced.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objstore: delete %s: %w", key, err)
	}
	return nil
}

// Presign mints a short-lived download URL for key — the service never
// proxies object bytes itself, per spec §6's download endpoint contract.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)
	url, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("objstore: presign %s: %w", key, err)
	}
	return url, nil
}

// Reconcile compares the live set of keys the database still references
// against what the bucket actually holds under prefix, returning the keys
// present in the bucket but absent from liveKeys — orphans left behind by
// the upload-first rule when a transaction uploaded a blob but failed
// before its referencing row committed. Reconcile only reports; deletion is
// a separate, explicit step so a dry-run report can always be produced
// first.
func (s *Store) Reconcile(ctx context.Context, prefix string, liveKeys map[string]bool) ([]string, error) {
	keys, err := s.ListKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var orphans []string
	for _, k := range keys {
		if !liveKeys[k] {
			orphans = append(orphans, k)
		}
	}
	return orphans, nil
}

func isNotFound(err error) bool {
	var aerr interface{ Code() string }
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}
