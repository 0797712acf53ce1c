// Package s3 implements blob storage on Amazon S3 or compatible services.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
)

// API is the subset of the S3 client used by the store.
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Presigner produces time-limited GET URLs.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3BlobStore stores blobs as S3 objects.
//
// The ref of a blob is its put path; the object key is KeyPrefix + ref, so
// the bucket mirrors the logical layout (files/<owner>/<millis>_<uuid>_<name>).
//
// URLs are either presigned GET requests (default) or, when PublicBaseURL is
// set, plain links below that base for buckets served through a CDN.
type S3BlobStore struct {
	client        API
	presigner     Presigner
	bucket        string
	keyPrefix     string
	urlExpiry     time.Duration
	publicBaseURL string
}

// S3BlobStoreConfig contains configuration for the S3 blob store.
type S3BlobStoreConfig struct {
	Client    API
	Presigner Presigner

	Bucket    string
	KeyPrefix string

	// URLExpiry bounds presigned URL lifetime. Default: 1h.
	URLExpiry time.Duration

	// PublicBaseURL, when set, replaces presigning.
	PublicBaseURL string

	// SkipBucketCheck disables the HeadBucket check at construction.
	SkipBucketCheck bool
}

// NewS3BlobStore creates an S3 blob store and verifies bucket access.
func NewS3BlobStore(ctx context.Context, cfg S3BlobStoreConfig) (*S3BlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 blob store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 blob store: bucket is required")
	}
	if cfg.Presigner == nil && cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("s3 blob store: presigner or public_base_url is required")
	}

	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}

	if !cfg.SkipBucketCheck {
		_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(cfg.Bucket),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &S3BlobStore{
		client:        cfg.Client,
		presigner:     cfg.Presigner,
		bucket:        cfg.Bucket,
		keyPrefix:     cfg.KeyPrefix,
		urlExpiry:     cfg.URLExpiry,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

func (s *S3BlobStore) objectKey(ref string) string {
	return s.keyPrefix + ref
}

func (s *S3BlobStore) Put(ctx context.Context, path string, r io.Reader, size int64, progress content.ProgressFunc) (content.Object, error) {
	if err := ctx.Err(); err != nil {
		return content.Object{}, err
	}
	if path == "" || strings.HasPrefix(path, "/") {
		return content.Object{}, fmt.Errorf("put %q: %w", path, content.ErrInvalidRef)
	}

	pr := content.NewProgressReader(r, size, progress)
	pr.Start()

	// SigV4 needs a seekable body to hash the payload, so the blob is
	// buffered. Progress tracks ingest and reaches 100 only after the put.
	data, err := io.ReadAll(pr)
	if err != nil {
		return content.Object{}, fmt.Errorf("read blob %s: %w", path, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return content.Object{}, fmt.Errorf("blob %s: got %d bytes, want %d: %w", path, len(data), size, content.ErrSizeMismatch)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(path)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return content.Object{}, fmt.Errorf("failed to put object to S3: %w", err)
	}

	pr.Done()

	url, err := s.url(ctx, path)
	if err != nil {
		return content.Object{}, err
	}
	return content.Object{Ref: path, URL: url, Size: int64(len(data))}, nil
}

func (s *S3BlobStore) ResolveURL(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ref)),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return "", fmt.Errorf("blob %s: %w", ref, content.ErrBlobNotFound)
		}
		return "", fmt.Errorf("failed to head object: %w", err)
	}

	return s.url(ctx, ref)
}

func (s *S3BlobStore) url(ctx context.Context, ref string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + s.objectKey(ref), nil
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ref)),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return req.URL, nil
}

// Remove deletes the object. S3 reports success for missing keys.
func (s *S3BlobStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(ref)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

// List pages through every object below the key prefix.
func (s *S3BlobStore) List(ctx context.Context) ([]content.ObjectInfo, error) {
	var infos []content.ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			infos = append(infos, content.ObjectInfo{
				Ref:     strings.TrimPrefix(key, s.keyPrefix),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	logger.Debug("S3 list: bucket=%s prefix=%s objects=%d", s.bucket, s.keyPrefix, len(infos))
	return infos, nil
}
