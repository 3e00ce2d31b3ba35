// Package archive exports reconciled calibration records to object storage
// for offline model evaluation.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Bizoholic-Digital/leadscore/internal/domain/model"
)

const (
	keyRoot       = "calibration"
	defaultTenant = "_default"
)

// S3Config configures the archive bucket. Endpoint enables S3-compatible
// stores such as MinIO.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// objectPutter is the subset of *s3.Client used here.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes one JSON object per reconciled record.
type S3Archiver struct {
	client objectPutter
	bucket string
}

// NewS3Archiver loads AWS configuration and creates the client.
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return &S3Archiver{client: s3.NewFromConfig(awsCfg, s3Opts...), bucket: cfg.Bucket}, nil
}

// Key returns the object key of rec:
// calibration/<tenant>/<yyyy>/<mm>/<dd>/<estimation id>.json, dated by
// reconciliation time.
func Key(rec model.CalibrationRecord) string {
	tenant := rec.TenantID
	if tenant == "" {
		tenant = defaultTenant
	}
	at := rec.RecordedAt
	if rec.ReconciledAt != nil {
		at = *rec.ReconciledAt
	}
	at = at.UTC()
	return path.Join(keyRoot, tenant, at.Format("2006"), at.Format("01"), at.Format("02"), rec.EstimationID+".json")
}

// Archive implements calibration.Archiver.
func (a *S3Archiver) Archive(ctx context.Context, rec model.CalibrationRecord) error {
	if !rec.Reconciled() {
		return fmt.Errorf("%w: %s", ErrNotReconciled, rec.EstimationID)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.EstimationID, err)
	}
	key := Key(rec)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}
