// internal/media/s3.go
// S3-compatible file store for attachment objects. It resolves presigned GET
// URLs for attachment files and reads object metadata when the stored
// attachment record is incomplete.
package media

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileStore wraps the AWS S3 client for attachment file operations.
// It supports both AWS S3 and S3-compatible services like MinIO.
type FileStore struct {
	client *s3.Client // AWS S3 client
	bucket string     // S3 bucket holding attachment files
}

// NewFileStore creates a new S3 file store for attachment operations.
// Parameters:
//   - endpoint: S3 service endpoint URL
//   - region: AWS region (or equivalent for S3-compatible services)
//   - bucket: S3 bucket holding attachment files
//   - accessKey: Access key for authentication
//   - secretKey: Secret key for authentication
func NewFileStore(endpoint, region, bucket, accessKey, secretKey string) (*FileStore, error) {
	// Load AWS configuration with custom endpoint and credentials
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create S3 client with path-style addressing for compatibility
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO and other S3-compatible services
	})

	return &FileStore{
		client: client,
		bucket: bucket,
	}, nil
}

// ObjectURL generates a presigned GET URL for an attachment object so the
// assembled document can reference files that are not publicly routed.
func (f *FileStore) ObjectURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(f.client)

	presignResult, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket), // Source S3 bucket
		Key:    aws.String(key),      // Object key in the bucket
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires // URL expiration time
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignResult.URL, nil
}

// Head reads object metadata for an attachment file. It fills MIME type and
// byte size when the stored attachment record does not carry them.
func (f *FileStore) Head(ctx context.Context, key string) (mimeType string, size int64, err error) {
	result, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket), // Source S3 bucket
		Key:    aws.String(key),      // Object key in the bucket
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to get object metadata: %w", err)
	}

	if result.ContentType != nil {
		mimeType = *result.ContentType
	}
	if result.ContentLength != nil {
		size = *result.ContentLength
	}
	return mimeType, size, nil
}
