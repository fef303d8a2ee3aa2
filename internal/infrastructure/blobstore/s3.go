package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/arisan/internal/domain/proof"
	"github.com/riskibarqy/arisan/internal/platform/logging"
	"github.com/riskibarqy/arisan/internal/platform/resilience"
)

const defaultPresignTTL = 15 * time.Minute

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignTTL      time.Duration
	DeleteWorkers   int
	Circuit         resilience.CircuitBreakerConfig
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store keeps proofs in an S3-compatible bucket (AWS, R2, MinIO). Reads are
// served through presigned GET URLs.
type S3Store struct {
	objects       objectAPI
	presigner     presignAPI
	bucket        string
	presignTTL    time.Duration
	deleteWorkers int
	breaker       *resilience.CircuitBreaker
	logger        *logging.Logger
}

func NewS3Store(ctx context.Context, cfg S3Config, logger *logging.Logger) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, crerr.New("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, crerr.Wrap(err, "load s3 config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Store(client, s3.NewPresignClient(client), cfg, logger), nil
}

func newS3Store(objects objectAPI, presigner presignAPI, cfg S3Config, logger *logging.Logger) *S3Store {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}

	return &S3Store{
		objects:       objects,
		presigner:     presigner,
		bucket:        strings.TrimSpace(cfg.Bucket),
		presignTTL:    ttl,
		deleteWorkers: cfg.DeleteWorkers,
		breaker:       resilience.NewCircuitBreakerFromConfig(cfg.Circuit),
		logger:        logger.Named("blobstore.s3"),
	}
}

func (s *S3Store) Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (string, error) {
	key, err := cleanRef(name)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := s.objects.PutObject(ctx, input)
		return err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "put proof failed", "key", key, "error", err)
		return "", crerr.Wrapf(err, "put object %s", key)
	}
	return key, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key, err := cleanRef(ref)
	if err != nil {
		return err
	}

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return crerr.Wrapf(err, "delete object %s", key)
	}
	return nil
}

func (s *S3Store) DeleteMany(ctx context.Context, refs []string) error {
	return deleteMany(ctx, s.deleteWorkers, refs, s.Delete)
}

func (s *S3Store) URL(ctx context.Context, ref string) (string, error) {
	key, err := cleanRef(ref)
	if err != nil {
		return "", err
	}

	var presigned *v4.PresignedHTTPRequest
	err = s.breaker.ExecuteClassified(ctx, func(ctx context.Context) error {
		if _, err := s.objects.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); err != nil {
			var missing *types.NotFound
			if errors.As(err, &missing) {
				return proof.ErrNotFound
			}
			return err
		}

		var err error
		presigned, err = s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}, func(o *s3.PresignOptions) {
			o.Expires = s.presignTTL
		})
		return err
	}, func(err error) bool { return !errors.Is(err, proof.ErrNotFound) })
	if errors.Is(err, proof.ErrNotFound) {
		return "", proof.ErrNotFound
	}
	if err != nil {
		return "", crerr.Wrapf(err, "presign object %s", key)
	}
	return presigned.URL, nil
}
