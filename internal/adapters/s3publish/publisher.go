// Package s3publish uploads finished output files to an S3-compatible bucket.
package s3publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"places_scraper/internal/adapters/observability"
)

var ErrNoBucket = errors.New("s3publish: bucket is required")

// PutObjectAPI is the slice of the S3 client the publisher uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // empty uses the AWS default resolver
	AccessKey string
	SecretKey string
}

type Publisher struct {
	api    PutObjectAPI
	bucket string
	prefix string
}

// New builds a client from static credentials. Custom endpoints (R2, MinIO)
// use path-style addressing.
func New(cfg Config) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	opts := s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return NewWithAPI(s3.New(opts), cfg.Bucket, cfg.Prefix), nil
}

func NewWithAPI(api PutObjectAPI, bucket, prefix string) *Publisher {
	return &Publisher{api: api, bucket: bucket, prefix: prefix}
}

// Key is the object key for a local file: prefix joined with the base name.
func (p *Publisher) Key(file string) string {
	name := filepath.Base(file)
	if p.prefix == "" {
		return name
	}
	return path.Join(strings.TrimSuffix(p.prefix, "/"), name)
}

// Publish uploads file and returns its object key.
func (p *Publisher) Publish(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", file, err)
	}

	key := p.Key(file)
	start := time.Now()
	_, err = p.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String("application/json; charset=utf-8"),
	})
	status := 200
	if err != nil {
		status = 0
	}
	observability.ObserveExternal("s3", "put_object", status, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", p.bucket, key, err)
	}

	log.Info().Str("bucket", p.bucket).Str("key", key).Int64("bytes", st.Size()).Msg("output published")
	return key, nil
}
