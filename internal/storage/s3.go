package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"pdfgate/internal/config"
)

// s3Storage implements Storage against AWS S3 through aws-sdk-go.
// Uploads go through s3manager so bodies of unknown length are sent in parts.
type s3Storage struct {
	client   s3iface.S3API
	uploader *s3manager.Uploader
	bucket   string
}

// NewS3 builds an AWS S3 backed Storage. Static credentials are used when both keys
// are configured; otherwise the SDK default chain (env, shared config, instance role) applies.
func NewS3(cfg config.StorageConfig) (Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.S3.Region)}
	if cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.S3.AccessKey, cfg.S3.SecretKey, "")
	}
	if cfg.S3.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return newS3WithClient(s3.New(sess), cfg.Bucket, cfg.PartBytes), nil
}

func newS3WithClient(client s3iface.S3API, bucket string, partBytes int64) *s3Storage {
	uploader := s3manager.NewUploaderWithClient(client, func(u *s3manager.Uploader) {
		if partBytes >= s3manager.MinUploadPartSize {
			u.PartSize = partBytes
		}
		// One part in flight keeps memory at a single part window.
		u.Concurrency = 1
	})
	return &s3Storage{client: client, uploader: uploader, bucket: bucket}
}

func (s *s3Storage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	meta := make(map[string]*string, len(opt.Metadata))
	for k, v := range opt.Metadata {
		meta[k] = aws.String(v)
	}
	cr := &countingReader{r: r}
	in := &s3manager.UploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     cr,
		Metadata: meta,
	}
	if opt.ContentType != "" {
		in.ContentType = aws.String(opt.ContentType)
	}
	out, err := s.uploader.UploadWithContext(ctx, in)
	if err != nil {
		return ObjectInfo{}, s3Error("put", key, err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         cr.n,
		ETag:         aws.StringValue(out.ETag),
		ContentType:  opt.ContentType,
		Location:     out.Location,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

func (s *s3Storage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ObjectInfo{}, s3Error("get", key, err)
	}
	info := ObjectInfo{
		Key:          key,
		Size:         aws.Int64Value(out.ContentLength),
		ETag:         aws.StringValue(out.ETag),
		ContentType:  aws.StringValue(out.ContentType),
		LastModified: aws.TimeValue(out.LastModified),
		Metadata:     aws.StringValueMap(out.Metadata),
	}
	return out.Body, info, nil
}

func (s *s3Storage) List(ctx context.Context, maxKeys int) ([]ObjectInfo, error) {
	if maxKeys <= 0 {
		return []ObjectInfo{}, nil
	}
	out, err := s.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int64(int64(maxKeys)),
	})
	if err != nil {
		return nil, s3Error("list", "", err)
	}
	items := make([]ObjectInfo, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if len(items) >= maxKeys {
			break
		}
		items = append(items, ObjectInfo{
			Key:          aws.StringValue(obj.Key),
			Size:         aws.Int64Value(obj.Size),
			ETag:         aws.StringValue(obj.ETag),
			LastModified: aws.TimeValue(obj.LastModified),
		})
	}
	return items, nil
}

func (s *s3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		err = s3Error("delete", key, err)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (s *s3Storage) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	u, err := req.Presign(expiry)
	if err != nil {
		return "", s3Error("presign", key, err)
	}
	return u, nil
}

func s3Error(op, key string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return notFound(op, key)
		}
		return &OpError{Op: op, Key: key, Code: aerr.Code(), Err: err}
	}
	return &OpError{Op: op, Key: key, Err: err}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
