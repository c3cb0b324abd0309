package remotestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"clustersync/internal/fileutil"
	"clustersync/internal/logging"
	"clustersync/internal/services"
)

// s3 allows up to 1000 keys per DeleteObjects request.
const maxDeleteBatch = 1000

// s3API is the subset of the S3 client the store calls.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Options configures the S3 backend. Empty credentials use the default AWS
// credential chain.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Logger    *slog.Logger
}

// S3 stores objects in an S3 bucket. Folders are key prefixes marked by a
// zero-byte "<prefix>/" object.
type S3 struct {
	client s3API
	bucket string
	logger *slog.Logger
}

// NewS3 loads AWS configuration and builds an S3 backend.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "load aws config", "", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}
	return newS3WithClient(s3.NewFromConfig(cfg, s3Opts...), opts.Bucket, opts.Logger), nil
}

func newS3WithClient(client s3API, bucket string, logger *slog.Logger) *S3 {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &S3{client: client, bucket: bucket, logger: logger}
}

func (s *S3) Login(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return services.Wrap(services.ErrRemote, "remote", "login", s.bucket, describeAWSError(err))
	}
	return nil
}

func (s *S3) Get(ctx context.Context, id, destDir string) (string, error) {
	if err := validateID("get", id); err != nil {
		return "", err
	}
	key := strings.Trim(id, "/")
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		if isS3NotFound(err) {
			return "", absent("get", id, err)
		}
		return "", services.Wrap(services.ErrRemote, "remote", "get", id, describeAWSError(err))
	}
	defer out.Body.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	dst := filepath.Join(destDir, BaseName(key))
	err = fileutil.WriteAtomic(dst, 0o644, func(w io.Writer) error {
		_, err := io.Copy(w, out.Body)
		return err
	})
	if err != nil {
		return "", services.Wrap(services.ErrRemote, "remote", "get", id, err)
	}
	s.logger.Debug("object downloaded", logging.String("key", key), logging.String("path", dst))
	return dst, nil
}

func (s *S3) Put(ctx context.Context, localPath, parent, name string) (string, error) {
	id := JoinID(parent, name)
	if err := validateID("put", id); err != nil {
		return "", err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrInputNotFound, "remote", "put", localPath, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(id),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(detectContentType(localPath)),
	})
	if err != nil {
		return "", services.Wrap(services.ErrRemote, "remote", "put", id, describeAWSError(err))
	}
	s.logger.Debug("object uploaded", logging.String("key", id), logging.Int64("bytes", info.Size()))
	return id, nil
}

func (s *S3) CreateFolder(ctx context.Context, parent, name string) (string, error) {
	id := JoinID(parent, name)
	if err := validateID("create folder", id); err != nil {
		return "", err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(id + "/"),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return "", services.Wrap(services.ErrRemote, "remote", "create folder", id, describeAWSError(err))
	}
	return id, nil
}

func (s *S3) Delete(ctx context.Context, id string) error {
	if err := validateID("delete", id); err != nil {
		return err
	}
	key := strings.Trim(id, "/")
	keys, err := s.listKeys(ctx, key+"/")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
			if isS3NotFound(err) {
				return absent("delete", id, err)
			}
			return services.Wrap(services.ErrRemote, "remote", "delete", id, describeAWSError(err))
		}
	}
	keys = append(keys, key)

	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return services.Wrap(services.ErrRemote, "remote", "delete", id, describeAWSError(err))
		}
		if out != nil && len(out.Errors) > 0 {
			first := out.Errors[0]
			return services.Wrap(services.ErrRemote, "remote", "delete",
				fmt.Sprintf("%s: %d objects failed, first %s: %s", id, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message)), nil)
		}
	}
	s.logger.Debug("objects deleted", logging.String("id", id), logging.Int("count", len(keys)))
	return nil
}

func (s *S3) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket), Prefix: aws.String(prefix)}
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, services.Wrap(services.ErrRemote, "remote", "list", prefix, describeAWSError(err))
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return keys, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchKey")
}

func describeAWSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}
	return err
}
