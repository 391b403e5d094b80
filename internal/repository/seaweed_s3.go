package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/mansoorceksport/clubdesk/internal/config"
	"github.com/mansoorceksport/clubdesk/internal/domain"
)

// SeaweedReceiptArchive implements domain.ReceiptArchive on S3-compatible storage
// (SeaweedFS, MinIO).
type SeaweedReceiptArchive struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewSeaweedReceiptArchive creates the archive and makes sure its bucket exists
func NewSeaweedReceiptArchive(ctx context.Context, cfg appConfig.S3Config) (*SeaweedReceiptArchive, error) {
	// SeaweedFS/MinIO accept any static credentials but still require signed requests
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	archive := &SeaweedReceiptArchive{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.Endpoint,
	}

	if err := archive.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return archive, nil
}

// Archive uploads the receipt snapshot as JSON and returns its URL
func (a *SeaweedReceiptArchive) Archive(ctx context.Context, receipt *domain.Receipt) (string, error) {
	body, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal receipt: %w", err)
	}

	key := ReceiptObjectKey(receipt)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt to S3: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", a.publicURL, a.bucket, key), nil
}

// ReceiptObjectKey partitions archived receipts by issue month
func ReceiptObjectKey(receipt *domain.Receipt) string {
	return fmt.Sprintf("receipts/%s/%s.json", receipt.IssuedAt.UTC().Format("2006/01"), receipt.Number)
}

// ensureBucket checks if bucket exists, creating it if necessary
func (a *SeaweedReceiptArchive) ensureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}
