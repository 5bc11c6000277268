// Package storage archives generated documents to an S3-compatible bucket
// (AWS S3 or Cloudflare R2).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	appconfig "parcel-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads documents. A nil *Archiver accepts and drops every call.
type Archiver struct {
	client putter
	bucket string
}

// NewArchiver returns nil when archiving is disabled.
func NewArchiver(ctx context.Context, cfg *appconfig.Config) (*Archiver, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage enabled without a bucket")
	}

	region := cfg.Storage.Region
	if region == "" {
		region = "auto"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			"",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure storage client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
		}
	})
	return &Archiver{client: client, bucket: cfg.Storage.Bucket}, nil
}

// ManifestKey is the object key of a printed manifest sheet.
func ManifestKey(companyID int64, direction string, voucherNo int64, at time.Time) string {
	return fmt.Sprintf("manifests/%d/%s/%s/%d.pdf", companyID, direction, at.Format("2006/01"), voucherNo)
}

// Put uploads one object.
func (a *Archiver) Put(ctx context.Context, key, contentType string, data []byte) error {
	if a == nil {
		return nil
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	log.Printf("[Archive] Stored %s (%d bytes)", key, len(data))
	return nil
}
