package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// S3Options configures an S3-compatible cache bucket.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
	TTL       time.Duration
}

// S3 stores entries as objects. Expiry uses the object's LastModified.
// Works with AWS S3, MinIO and other S3-compatible services.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
	ttl    time.Duration
}

// NewS3 creates the client and the bucket if it does not exist.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check cache bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create cache bucket: %w", err)
		}
		log.Info().Str("bucket", opts.Bucket).Msg("Cache bucket created")
	}

	log.Debug().
		Str("endpoint", opts.Endpoint).
		Str("bucket", opts.Bucket).
		Bool("ssl", opts.UseSSL).
		Msg("S3-compatible cache initialized")

	return &S3{client: client, bucket: opts.Bucket, prefix: opts.Prefix, ttl: opts.TTL}, nil
}

func (s *S3) object(key string) string {
	return path.Join(s.prefix, hashKey(key))
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, bool, error) {
	name := s.object(key)
	stat, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get object info: %w", err)
	}
	if expired(stat.LastModified, s.ttl) {
		return nil, false, nil
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, false, fmt.Errorf("failed to download from S3: %w", err)
	}
	return data, true, nil
}

func (s *S3) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object(key), bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.object(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// Clear removes every object under the prefix.
func (s *S3) Clear(ctx context.Context) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true})
	var first error
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if first == nil {
			first = fmt.Errorf("failed to delete %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return first
}

func (s *S3) Close() error {
	return nil
}
