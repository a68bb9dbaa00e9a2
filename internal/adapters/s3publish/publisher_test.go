package s3publish_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"places_scraper/internal/adapters/s3publish"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestPublish_UploadsFileUnderPrefix(t *testing.T) {
	file := writeTemp(t, "places_20240102_030405.json", "[\n\n]")
	api := &fakeS3{}
	pub := s3publish.NewWithAPI(api, "bucket", "exports/")

	key, err := pub.Publish(context.Background(), file)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if key != "exports/places_20240102_030405.json" {
		t.Fatalf("key = %q", key)
	}
	if aws.ToString(api.in.Bucket) != "bucket" || aws.ToString(api.in.Key) != key {
		t.Fatalf("unexpected input: %+v", api.in)
	}
	if aws.ToInt64(api.in.ContentLength) != 4 || string(api.body) != "[\n\n]" {
		t.Fatalf("unexpected body %q (len %d)", api.body, aws.ToInt64(api.in.ContentLength))
	}
}

func TestPublish_Errors(t *testing.T) {
	pub := s3publish.NewWithAPI(&fakeS3{}, "bucket", "")
	if _, err := pub.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	boom := errors.New("boom")
	pub = s3publish.NewWithAPI(&fakeS3{err: boom}, "bucket", "")
	file := writeTemp(t, "a.json", "[]")
	if _, err := pub.Publish(context.Background(), file); !errors.Is(err, boom) {
		t.Fatalf("want wrapped boom, got %v", err)
	}
}

func TestKeyAndNew(t *testing.T) {
	if got := s3publish.NewWithAPI(nil, "b", "").Key("/tmp/x/out.json"); got != "out.json" {
		t.Fatalf("no prefix key = %q", got)
	}
	if _, err := s3publish.New(s3publish.Config{}); !errors.Is(err, s3publish.ErrNoBucket) {
		t.Fatalf("want ErrNoBucket, got %v", err)
	}
	if _, err := s3publish.New(s3publish.Config{Bucket: "b", Region: "auto", Endpoint: "http://127.0.0.1:9000"}); err != nil {
		t.Fatalf("New: %v", err)
	}
}
