package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"carrental/internal/config"
)

// ImageStore keeps car pictures and avatars.
type ImageStore interface {
	Upload(ctx context.Context, objectKey, contentType string, body io.Reader) (string, error)
	// Delete removes the objects behind urls this store produced; other urls are ignored.
	Delete(ctx context.Context, urls ...string) error
}

type S3Store struct {
	Client           *s3.Client
	Bucket           string
	Region           string
	CloudFrontDomain string
}

func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		Client:           s3.NewFromConfig(sdkConfig),
		Bucket:           cfg.Bucket,
		Region:           cfg.Region,
		CloudFrontDomain: cfg.CloudFrontDomain,
	}, nil
}

func (u *S3Store) Upload(ctx context.Context, objectKey, contentType string, body io.Reader) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return u.URL(objectKey), nil
}

func (u *S3Store) URL(objectKey string) string {
	if u.CloudFrontDomain != "" {
		return fmt.Sprintf("https://%s/%s", u.CloudFrontDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.Bucket, u.Region, objectKey)
}

// KeyFromURL is the inverse of URL. ok is false for urls served from elsewhere.
func (u *S3Store) KeyFromURL(url string) (string, bool) {
	prefixes := []string{fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", u.Bucket, u.Region)}
	if u.CloudFrontDomain != "" {
		prefixes = append(prefixes, fmt.Sprintf("https://%s/", u.CloudFrontDomain))
	}
	for _, p := range prefixes {
		if strings.HasPrefix(url, p) && len(url) > len(p) {
			return strings.TrimPrefix(url, p), true
		}
	}
	return "", false
}

func (u *S3Store) Delete(ctx context.Context, urls ...string) error {
	var objects []types.ObjectIdentifier
	for _, url := range urls {
		if key, ok := u.KeyFromURL(url); ok {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}
	}
	if len(objects) == 0 {
		return nil
	}

	out, err := u.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(u.Bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to delete objects from S3: %w", err)
	}
	if len(out.Errors) > 0 {
		return fmt.Errorf("S3 refused to delete %d of %d objects", len(out.Errors), len(objects))
	}
	return nil
}
