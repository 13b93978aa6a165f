// Package archive stores raw demand payloads in object storage so a posted
// document can be replayed or audited later.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ropbridge/ropbridge/internal/netx"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	uploadToPresignedURL = netx.UploadToS3PresignedURL
)

// Archiver persists one demand payload keyed by its document number and
// returns the storage key.
type Archiver interface {
	Archive(ctx context.Context, ficheNo string, payload []byte) (string, error)
}

// Config holds the S3-compatible storage settings (AWS or MinIO).
type Config struct {
	Region       string
	BaseEndpoint string
	Bucket       string
	RootUser     string
	RootPassword string
}

// S3Archiver uploads through a presigned PUT so the object-store credentials
// stay inside this package.
type S3Archiver struct {
	cfg Config
}

func NewS3Archiver(cfg Config) *S3Archiver {
	return &S3Archiver{cfg: cfg}
}

func storageKey(ficheNo string, now time.Time) string {
	return fmt.Sprintf("demands/%d/%02d/%s.json", now.Year(), now.Month(), ficheNo)
}

func (a *S3Archiver) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(a.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.cfg.RootUser,
			a.cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(a.cfg.BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

func (a *S3Archiver) Archive(ctx context.Context, ficheNo string, payload []byte) (string, error) {
	presignClient, err := a.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := a.cfg.Bucket
	key := storageKey(ficheNo, time.Now())

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	if err := uploadToPresignedURL(req.URL, payload); err != nil {
		return "", err
	}

	return key, nil
}
