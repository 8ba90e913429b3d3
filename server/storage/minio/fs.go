package minio

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/gear6io/hivewriter/pkg/errors"
	"github.com/gear6io/hivewriter/server/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Type is the storage type identifier for S3-compatible object stores
const Type = "s3"

// Package-specific error codes for S3 storage
var (
	ErrClientCreateFailed = errors.MustNewCode("minio.client_create_failed")
	ErrBucketCheckFailed  = errors.MustNewCode("minio.bucket_check_failed")
	ErrBucketNotFound     = errors.MustNewCode("minio.bucket_not_found")
)

// Config locates the bucket
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// FileSystem implements storage.FileSystem on an S3/MinIO bucket. Paths are
// object keys; a leading slash is ignored.
type FileSystem struct {
	client *minio.Client
	bucket string
}

var _ storage.FileSystem = (*FileSystem)(nil)

// NewS3FileSystem connects to the endpoint and checks that the bucket exists
func NewS3FileSystem(ctx context.Context, cfg Config) (*FileSystem, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.New(ErrClientCreateFailed, "failed to create S3 client", err).AddContext("endpoint", cfg.Endpoint)
	}

	ok, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.New(ErrBucketCheckFailed, "failed to check bucket", err).AddContext("bucket", cfg.Bucket)
	}
	if !ok {
		return nil, errors.New(ErrBucketNotFound, "bucket does not exist", nil).AddContext("bucket", cfg.Bucket)
	}

	return NewWithClient(client, cfg.Bucket), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *minio.Client, bucket string) *FileSystem {
	return &FileSystem{client: client, bucket: bucket}
}

// GetStorageType returns the storage type identifier
func (fs *FileSystem) GetStorageType() string {
	return Type
}

func objectKey(p string) string {
	return strings.TrimPrefix(p, "/")
}

func dirPrefix(p string) string {
	key := strings.TrimSuffix(objectKey(p), "/")
	if key == "" {
		return ""
	}
	return key + "/"
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Exists reports whether an object or any object under the prefix exists
func (fs *FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	_, err := fs.client.StatObject(ctx, fs.bucket, objectKey(p), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, storage.NewFileReadFailed(p, err)
	}

	for obj := range fs.client.ListObjects(ctx, fs.bucket, minio.ListObjectsOptions{
		Prefix:    dirPrefix(p),
		Recursive: true,
		MaxKeys:   1,
	}) {
		if obj.Err != nil {
			return false, storage.NewListFailed(p, obj.Err)
		}
		return true, nil
	}
	return false, nil
}

// Create buffers the object and uploads it on Close
func (fs *FileSystem) Create(ctx context.Context, p string) (io.WriteCloser, error) {
	return &objectWriter{ctx: ctx, fs: fs, path: p}, nil
}

// Open returns the object with random access through ranged GETs
func (fs *FileSystem) Open(ctx context.Context, p string) (storage.File, error) {
	obj, err := fs.client.GetObject(ctx, fs.bucket, objectKey(p), minio.GetObjectOptions{})
	if err != nil {
		return nil, storage.NewFileReadFailed(p, err)
	}
	// GetObject is lazy; Stat surfaces a missing key
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, storage.NewFileNotFound(p, err)
		}
		return nil, storage.NewFileReadFailed(p, err)
	}
	return obj, nil
}

// Delete removes the object, and with recursive every object under the prefix
func (fs *FileSystem) Delete(ctx context.Context, p string, recursive bool) error {
	if err := fs.client.RemoveObject(ctx, fs.bucket, objectKey(p), minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return storage.NewDeleteFailed(p, err)
	}
	if !recursive {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	go func() {
		defer close(objects)
		for obj := range fs.client.ListObjects(ctx, fs.bucket, minio.ListObjectsOptions{
			Prefix:    dirPrefix(p),
			Recursive: true,
		}) {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}
			select {
			case objects <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	for result := range fs.client.RemoveObjects(ctx, fs.bucket, objects, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			return storage.NewDeleteFailed(result.ObjectName, result.Err)
		}
	}

	select {
	case err := <-listErr:
		return storage.NewDeleteFailed(p, err)
	default:
		return nil
	}
}

// List returns objects directly under the prefix
func (fs *FileSystem) List(ctx context.Context, dir string) ([]storage.FileInfo, error) {
	prefix := dirPrefix(dir)
	var files []storage.FileInfo
	for obj := range fs.client.ListObjects(ctx, fs.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, storage.NewListFailed(dir, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		files = append(files, storage.FileInfo{
			Path: obj.Key,
			Name: strings.TrimPrefix(obj.Key, prefix),
			Size: obj.Size,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// objectWriter uploads its buffer with a single PutObject
type objectWriter struct {
	ctx    context.Context
	fs     *FileSystem
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	_, err := w.fs.client.PutObject(w.ctx, w.fs.bucket, objectKey(w.path),
		bytes.NewReader(w.buf.Bytes()), int64(w.buf.Len()),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return storage.NewFileWriteFailed(w.path, err)
	}
	return nil
}
