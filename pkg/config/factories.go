package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/content"
	contentFs "github.com/marmos91/dittodrive/pkg/content/fs"
	contentMemory "github.com/marmos91/dittodrive/pkg/content/memory"
	contentS3 "github.com/marmos91/dittodrive/pkg/content/s3"
	"github.com/marmos91/dittodrive/pkg/metadata"
	"github.com/marmos91/dittodrive/pkg/metadata/badger"
	"github.com/marmos91/dittodrive/pkg/metadata/memory"
	"github.com/marmos91/dittodrive/pkg/metadata/postgres"
	"github.com/mitchellh/mapstructure"
)

// decodeOptions decodes a type-specific section into out.
//
// Durations may be given as strings ("30s") and scalars as strings, since
// sections set through the environment arrive untyped.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// CreateDocumentStore creates a document store based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration from
// the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/metadata/memory (ephemeral)
//   - "badger": Uses pkg/metadata/badger (embedded, persistent)
//   - "postgres": Uses pkg/metadata/postgres (shared SQL database)
func CreateDocumentStore(ctx context.Context, cfg *MetadataConfig) (metadata.DocumentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		return memory.NewMemoryDocumentStoreWithDefaults(), nil
	case "badger":
		return createBadgerDocumentStore(ctx, cfg.Badger)
	case "postgres":
		return createPostgresDocumentStore(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger, postgres)", cfg.Type)
	}
}

func createBadgerDocumentStore(ctx context.Context, options map[string]any) (metadata.DocumentStore, error) {
	var storeCfg badger.BadgerDocumentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store options: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger metadata store: db_path is required")
	}

	store, err := badger.NewBadgerDocumentStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}

	return store, nil
}

func createPostgresDocumentStore(ctx context.Context, options map[string]any) (metadata.DocumentStore, error) {
	var storeCfg postgres.PostgresDocumentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode postgres metadata store options: %w", err)
	}

	if storeCfg.ConnString == "" {
		return nil, fmt.Errorf("postgres metadata store: conn_string is required")
	}

	store, err := postgres.NewPostgresDocumentStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres metadata store: %w", err)
	}

	logger.Info("Postgres metadata store initialized: prefix=%q max_conns=%d", storeCfg.TablePrefix, storeCfg.MaxConns)
	return store, nil
}

// CreateBlobStore creates a blob store based on configuration.
//
// Supported types:
//   - "memory": Uses pkg/content/memory (ephemeral, size-capped)
//   - "filesystem": Uses pkg/content/fs (local directory)
//   - "s3": Uses pkg/content/s3 (Amazon S3 or compatible storage)
func CreateBlobStore(ctx context.Context, cfg *ContentConfig) (content.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryBlobStore(ctx, cfg.Memory)
	case "filesystem":
		return createFilesystemBlobStore(ctx, cfg.Filesystem)
	case "s3":
		return createS3BlobStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

func createMemoryBlobStore(ctx context.Context, options map[string]any) (content.BlobStore, error) {
	var storeCfg contentMemory.MemoryBlobStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory content store config: %w", err)
	}

	store, err := contentMemory.NewMemoryBlobStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory content store: %w", err)
	}
	return store, nil
}

func createFilesystemBlobStore(ctx context.Context, options map[string]any) (content.BlobStore, error) {
	var storeCfg contentFs.FSBlobStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentFs.NewFSBlobStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}
	return store, nil
}

// s3Options is the content.s3 section.
type s3Options struct {
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	MaxRetries      int           `mapstructure:"max_retries"`
	URLExpiry       time.Duration `mapstructure:"url_expiry"`
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	SkipBucketCheck bool          `mapstructure:"skip_bucket_check"`
}

func createS3BlobStore(ctx context.Context, options map[string]any) (content.BlobStore, error) {
	var opts s3Options
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	client, err := newS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}

	store, err := contentS3.NewS3BlobStore(ctx, contentS3.S3BlobStoreConfig{
		Client:          client,
		Presigner:       s3.NewPresignClient(client),
		Bucket:          opts.Bucket,
		KeyPrefix:       opts.KeyPrefix,
		URLExpiry:       opts.URLExpiry,
		PublicBaseURL:   opts.PublicBaseURL,
		SkipBucketCheck: opts.SkipBucketCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		opts.Bucket, opts.Region, opts.KeyPrefix)

	return store, nil
}

// newS3Client builds an S3 client from the section options.
//
// Static credentials are used when both keys are set; otherwise the default
// AWS credential chain applies. A custom endpoint (MinIO, Localstack) forces
// path-style addressing.
func newS3Client(ctx context.Context, opts s3Options) (*s3.Client, error) {
	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(opts.Region),
	}

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
