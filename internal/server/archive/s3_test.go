package archive

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestStorageKey_Layout(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	got := storageKey("MRP202602-00001", now)
	if got != "demands/2026/02/MRP202602-00001.json" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func TestArchive_UploadsThroughPresignedURL(t *testing.T) {
	origPresign := presignPutObject
	origUpload := uploadToPresignedURL
	defer func() {
		presignPutObject = origPresign
		uploadToPresignedURL = origUpload
	}()

	var presignedBucket, presignedKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		presignedBucket = *in.Bucket
		presignedKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "http://minio.local/presigned"}, nil
	}

	var uploadedURL string
	var uploadedPayload []byte
	uploadToPresignedURL = func(url string, payload []byte) error {
		uploadedURL = url
		uploadedPayload = payload
		return nil
	}

	a := NewS3Archiver(Config{Bucket: "mrp-archive", Region: "us-east-1"})

	key, err := a.Archive(context.Background(), "MRP202602-00001", []byte(`{"fiche_no":"MRP202602-00001"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if presignedBucket != "mrp-archive" {
		t.Errorf("bucket = %q", presignedBucket)
	}
	if !regexp.MustCompile(`^demands/\d{4}/\d{2}/MRP202602-00001\.json$`).MatchString(presignedKey) {
		t.Errorf("key = %q", presignedKey)
	}
	if key != presignedKey {
		t.Errorf("returned key %q != presigned key %q", key, presignedKey)
	}
	if uploadedURL != "http://minio.local/presigned" {
		t.Errorf("upload url = %q", uploadedURL)
	}
	if !strings.Contains(string(uploadedPayload), "MRP202602-00001") {
		t.Errorf("payload = %s", uploadedPayload)
	}
}

func TestArchive_PresignError(t *testing.T) {
	origPresign := presignPutObject
	defer func() { presignPutObject = origPresign }()

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign failed")
	}

	a := NewS3Archiver(Config{Bucket: "mrp-archive"})

	_, err := a.Archive(context.Background(), "MRP202602-00001", []byte("{}"))
	if err == nil || !strings.Contains(err.Error(), "presign failed") {
		t.Fatalf("expected presign error, got %v", err)
	}
}
