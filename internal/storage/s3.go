package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Options configures the S3 client.
type S3Options struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// S3Fetcher downloads objects from S3 with the transfer manager.
type S3Fetcher struct {
	downloader *manager.Downloader
}

// NewS3Fetcher builds an S3Fetcher from the default AWS credential chain.
func NewS3Fetcher(ctx context.Context, opts S3Options) (*S3Fetcher, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return NewS3FetcherFromClient(client), nil
}

// NewS3FetcherFromClient wraps an existing S3 client.
func NewS3FetcherFromClient(client manager.DownloadAPIClient) *S3Fetcher {
	return &S3Fetcher{
		downloader: manager.NewDownloader(client),
	}
}

// Factory returns a FetcherFactory that builds an S3Fetcher with opts.
func Factory(opts S3Options) FetcherFactory {
	return func(ctx context.Context) (Fetcher, error) {
		return NewS3Fetcher(ctx, opts)
	}
}

// Fetch downloads s3://bucket/key into w.
func (f *S3Fetcher) Fetch(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error) {
	n, err := f.downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, classifyS3Error(err, bucket, key)
	}

	return n, nil
}

func classifyS3Error(err error, bucket, key string) error {
	var (
		noSuchKey    *types.NoSuchKey
		noSuchBucket *types.NoSuchBucket
		notFound     *types.NotFound
	)
	if errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: s3://%s/%s: %w", ErrNotFound, bucket, key, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return fmt.Errorf("%w: s3://%s/%s: %w", ErrNotFound, bucket, key, err)
		}
	}

	return fmt.Errorf("%w: s3://%s/%s: %w", ErrTransport, bucket, key, err)
}
