package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel/metric"
)

// SpacesConfig configures a DigitalOcean Spaces (or any S3-compatible) bucket.
type SpacesConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PathStyle addresses the bucket as {endpoint}/{bucket} instead of a
	// virtual host; needed for MinIO and local emulators.
	PathStyle bool
	ACL       string
}

// SpacesStore uploads objects with the S3 API.
type SpacesStore struct {
	cfg     SpacesConfig
	client  *s3.Client
	logger  *slog.Logger
	metrics *Metrics
}

var _ Store = (*SpacesStore)(nil)

// NewSpacesStore creates an S3 client for the configured endpoint using
// static credentials. meter may be nil.
func NewSpacesStore(ctx context.Context, cfg SpacesConfig, logger *slog.Logger, meter metric.Meter) (*SpacesStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("spaces endpoint and bucket are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.ACL == "" {
		cfg.ACL = string(types.ObjectCannedACLPrivate)
	}
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = cfg.PathStyle
	})

	s := &SpacesStore{
		cfg:    cfg,
		client: client,
		logger: logger,
	}

	if meter != nil {
		metrics, err := NewMetrics(meter)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		s.metrics = metrics
	}

	return s, nil
}

func (s *SpacesStore) Backend() string { return "spaces" }

// Put uploads data under key and returns {endpoint}/{bucket}/{key}.
func (s *SpacesStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	start := time.Now()
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ACL:           types.ObjectCannedACL(s.cfg.ACL),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err := s.client.PutObject(ctx, input)
	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, s.Backend(), err, len(data), time.Since(start))
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "spaces upload failed", "bucket", s.cfg.Bucket, "key", key, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	s.logger.InfoContext(ctx, "stored document", "bucket", s.cfg.Bucket, "key", key, "bytes", len(data))
	return s.Location(key), nil
}

// Location is the URL reported for a stored key.
func (s *SpacesStore) Location(key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.Bucket, key)
}
