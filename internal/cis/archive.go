package cis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archiver persists a ConversionPattern's detail blob to durable storage
// and returns the key it was written under. Patterns carry their Detail
// as opaque JSON in S3 rather than modeled in Postgres (spec.md §7), the
// same "DB holds the pointer, object storage holds the payload" split
// the teacher's knowledge-base snapshots use.
type Archiver interface {
	Archive(ctx context.Context, patternID string, detail map[string]any) (key string, err error)
}

// S3Archiver writes pattern detail JSON to S3 under a date-partitioned
// prefix, following the teacher's S3Storage bucket/prefix/PutObject
// pattern without its optional gzip/AES layer: CIS detail blobs are
// small, cross-tenant, and already anonymized, so the extra machinery
// the teacher's tenant knowledge-base exports need doesn't apply here.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3ArchiverConfig configures an S3Archiver.
type S3ArchiverConfig struct {
	Bucket string
	Prefix string // e.g. "cis/patterns/"
	Region string
}

// NewS3Archiver loads the default AWS credential chain and constructs an
// S3Archiver, verifying bucket access the way the teacher's NewS3Storage
// does with HeadBucket.
func NewS3Archiver(ctx context.Context, cfg S3ArchiverConfig) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("verify cis archive bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Archive uploads detail as JSON under prefix/YYYY/MM/DD/patternID.json.
func (a *S3Archiver) Archive(ctx context.Context, patternID string, detail map[string]any) (string, error) {
	data, err := json.Marshal(detail)
	if err != nil {
		return "", fmt.Errorf("marshal pattern detail: %w", err)
	}

	key := fmt.Sprintf("%s%s/%s.json", a.prefix, time.Now().UTC().Format("2006/01/02"), patternID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive pattern detail: %w", err)
	}
	return key, nil
}
