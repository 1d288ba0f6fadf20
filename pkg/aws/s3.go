package aws

import (
	"time"

	"github.com/gofiber/storage/s3/v2"
)

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// S3 stores trace reports in a bucket.
type S3 struct {
	bucket *s3.Storage
}

func NewS3Bucket(cfg S3Config) *S3 {
	storage := s3.New(s3.Config{
		Endpoint: cfg.Endpoint,
		Bucket:   cfg.Bucket,
		Region:   cfg.Region,
		Credentials: s3.Credentials{
			AccessKey:       cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
		},
		MaxAttempts:    3,
		RequestTimeout: time.Second * 10,
		Reset:          false,
	})

	return &S3{
		bucket: storage,
	}
}

// Upload stores data under key without expiry.
func (s *S3) Upload(key string, data []byte) error {
	return s.bucket.Set(key, data, 0)
}

// Download returns the object at key, or nil when it does not exist.
func (s *S3) Download(key string) ([]byte, error) {
	return s.bucket.Get(key)
}

func (s *S3) Close() error {
	return s.bucket.Close()
}
