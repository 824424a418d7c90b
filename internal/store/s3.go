package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// metaSourceModified is the object-metadata key carrying the source
// modification marker (RFC3339). The bucket itself is the sync ledger.
const metaSourceModified = "source-modified"

// S3Config carries optional overrides for the S3 backend. Zero values fall
// back to the SDK's default credential and region resolution.
type S3Config struct {
	Region    string
	Endpoint  string // custom endpoint (MinIO style), enables path-style addressing
	AccessKey string
	SecretKey string
}

// S3Store is a destination volume backed by an S3 bucket prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds a store for an "s3://bucket/prefix" location.
func NewS3Store(ctx context.Context, location string, cfg *S3Config) (*S3Store, error) {
	if cfg == nil {
		cfg = &S3Config{}
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid s3 location %q", ErrDestinationUnavailable, location)
	}

	prefix := strings.Trim(u.Path, "/")
	if prefix != "" {
		prefix += "/"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", ErrDestinationUnavailable, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: u.Host, prefix: prefix}, nil
}

func (s *S3Store) List(ctx context.Context) ([]*Entry, error) {
	var entries []*Entry

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &s.prefix,
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: s3://%s/%s: %v", ErrDestinationUnavailable, s.bucket, s.prefix, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, s.prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}

			entries = append(entries, &Entry{
				Name:           name,
				Size:           aws.ToInt64(obj.Size),
				SourceModified: s.sourceMarker(ctx, key),
			})
		}
	}

	return entries, nil
}

// sourceMarker reads the recorded source marker off the object metadata.
// ListObjectsV2 does not return user metadata, so this is a HeadObject per
// key. Missing or unreadable markers degrade to size-only comparison.
func (s *S3Store) sourceMarker(ctx context.Context, key string) time.Time {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return time.Time{}
	}

	raw, ok := head.Metadata[metaSourceModified]
	if !ok {
		return time.Time{}
	}

	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func (s *S3Store) Put(ctx context.Context, in *PutInput) error {
	input := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(s.prefix + in.Name),
		Body:   in.Body,
	}
	if in.Size >= 0 {
		input.ContentLength = aws.Int64(in.Size)
	}
	if !in.SourceModified.IsZero() {
		input.Metadata = map[string]string{
			metaSourceModified: in.SourceModified.UTC().Format(time.RFC3339),
		}
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("store: put %q: %w", in.Name, err)
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", name, err)
	}
	return resp.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	return nil
}

var _ Store = (*S3Store)(nil)
