package remotestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"clustersync/internal/logging"
	"clustersync/internal/services"
)

// minioAPI is the subset of the MinIO client the store calls.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioOptions configures the MinIO backend.
type MinioOptions struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Logger    *slog.Logger
}

// Minio stores objects in a MinIO (or any S3-compatible) bucket using the
// same folder convention as the S3 backend.
type Minio struct {
	client minioAPI
	bucket string
	logger *slog.Logger
}

// NewMinio builds a MinIO backend.
func NewMinio(opts MinioOptions) (*Minio, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "minio client", opts.Endpoint, err)
	}
	return newMinioWithClient(client, opts.Bucket, opts.Logger), nil
}

func newMinioWithClient(client minioAPI, bucket string, logger *slog.Logger) *Minio {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Minio{client: client, bucket: bucket, logger: logger}
}

func (m *Minio) Login(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return services.Wrap(services.ErrRemote, "remote", "login", m.bucket, err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "remote", "login", fmt.Sprintf("bucket %s does not exist", m.bucket), nil)
	}
	return nil
}

func (m *Minio) Get(ctx context.Context, id, destDir string) (string, error) {
	if err := validateID("get", id); err != nil {
		return "", err
	}
	key := strings.Trim(id, "/")
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		return "", m.translate("get", id, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	dst := filepath.Join(destDir, BaseName(key))
	// FGetObject stages into "<dst>.part.minio" and renames on success.
	if err := m.client.FGetObject(ctx, m.bucket, key, dst, minio.GetObjectOptions{}); err != nil {
		return "", m.translate("get", id, err)
	}
	return dst, nil
}

func (m *Minio) Put(ctx context.Context, localPath, parent, name string) (string, error) {
	id := JoinID(parent, name)
	if err := validateID("put", id); err != nil {
		return "", err
	}
	info, err := m.client.FPutObject(ctx, m.bucket, id, localPath, minio.PutObjectOptions{
		ContentType: detectContentType(localPath),
	})
	if err != nil {
		return "", m.translate("put", id, err)
	}
	m.logger.Debug("object uploaded", logging.String("key", id), logging.Int64("bytes", info.Size))
	return id, nil
}

func (m *Minio) CreateFolder(ctx context.Context, parent, name string) (string, error) {
	id := JoinID(parent, name)
	if err := validateID("create folder", id); err != nil {
		return "", err
	}
	if _, err := m.client.PutObject(ctx, m.bucket, id+"/", strings.NewReader(""), 0, minio.PutObjectOptions{}); err != nil {
		return "", m.translate("create folder", id, err)
	}
	return id, nil
}

func (m *Minio) Delete(ctx context.Context, id string) error {
	if err := validateID("delete", id); err != nil {
		return err
	}
	key := strings.Trim(id, "/")
	keys, err := m.listPrefix(ctx, key+"/")
	if err != nil {
		return m.translate("list", id, err)
	}
	if len(keys) == 0 {
		if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
			return m.translate("delete", id, err)
		}
	}
	keys = append(keys, key)
	for _, k := range keys {
		if err := m.client.RemoveObject(ctx, m.bucket, k, minio.RemoveObjectOptions{}); err != nil {
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				continue
			}
			return m.translate("delete", id, err)
		}
	}
	m.logger.Debug("objects deleted", logging.String("id", id), logging.Int("count", len(keys)))
	return nil
}

// listPrefix collects every key under prefix. The listing is cancelled on
// return so an early error does not leave the producer goroutine blocked.
func (m *Minio) listPrefix(ctx context.Context, prefix string) ([]string, error) {
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for obj := range m.client.ListObjects(listCtx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (m *Minio) translate(op, id string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return absent(op, id, err)
	case "NoSuchBucket":
		return services.Wrap(services.ErrConfiguration, "remote", op, fmt.Sprintf("bucket %s does not exist", m.bucket), err)
	}
	return services.Wrap(services.ErrRemote, "remote", op, id, err)
}

