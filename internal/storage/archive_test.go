package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	appconfig "parcel-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	key, bucket, contentType string
	body                     []byte
	err                      error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = aws.ToString(in.Key)
	f.bucket = aws.ToString(in.Bucket)
	f.contentType = aws.ToString(in.ContentType)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestDisabledArchiverIsNil(t *testing.T) {
	a, err := NewArchiver(context.Background(), &appconfig.Config{})
	if err != nil || a != nil {
		t.Fatalf("NewArchiver = %v, %v", a, err)
	}
	if err := a.Put(context.Background(), "k", "application/pdf", []byte("x")); err != nil {
		t.Errorf("nil Put = %v", err)
	}
}

func TestPut(t *testing.T) {
	fp := &fakePutter{}
	a := &Archiver{client: fp, bucket: "sheets"}

	key := ManifestKey(3, "loading", 48213, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	if key != "manifests/3/loading/2024/03/48213.pdf" {
		t.Errorf("key = %s", key)
	}
	if err := a.Put(context.Background(), key, "application/pdf", []byte("%PDF")); err != nil {
		t.Fatal(err)
	}
	if fp.bucket != "sheets" || fp.key != key || string(fp.body) != "%PDF" || fp.contentType != "application/pdf" {
		t.Errorf("uploaded %+v", fp)
	}

	fp.err = errors.New("denied")
	if err := a.Put(context.Background(), key, "application/pdf", nil); err == nil {
		t.Error("expected error")
	}
}
