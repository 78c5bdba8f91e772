// Package remote downloads columnar sources held in object stores so they
// can be opened like local files.
//
// Supported locations are s3://bucket/key and gs://bucket/object. Objects are
// copied to a temporary file whose name keeps the object's base name, so
// extension based format and compression detection still applies.
package remote

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/logger"
)

// Location is a parsed object store address.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// String returns the location in URL form.
func (l Location) String() string {
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// IsRemote reports whether raw names an object store location.
func IsRemote(raw string) bool {
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		return false
	}
	switch strings.ToLower(scheme) {
	case "s3", "gs":
		return true
	}
	return false
}

// ParseLocation parses s3://bucket/key or gs://bucket/object.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid source URL")
	}
	loc := Location{
		Scheme: strings.ToLower(u.Scheme),
		Bucket: u.Host,
		Key:    strings.TrimPrefix(u.Path, "/"),
	}
	if loc.Scheme != "s3" && loc.Scheme != "gs" {
		return Location{}, errors.Newf(errors.ErrorTypeConfig, "unsupported source scheme %q", u.Scheme)
	}
	if loc.Bucket == "" || loc.Key == "" || strings.HasSuffix(loc.Key, "/") {
		return Location{}, errors.Newf(errors.ErrorTypeConfig, "source %s must name a bucket and an object", raw)
	}
	return loc, nil
}

// Downloader copies one object into w.
type Downloader interface {
	Download(ctx context.Context, loc Location, w io.WriterAt) (int64, error)
}

// Fetch downloads the object at raw into a temporary file. The returned
// cleanup removes the file and is safe to call when err is non-nil.
func Fetch(ctx context.Context, raw string, cfg config.SourceConfig) (string, func(), error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return "", func() {}, errors.SourceOpen(raw, err)
	}

	var d Downloader
	switch loc.Scheme {
	case "s3":
		d, err = NewS3Downloader(ctx, cfg)
	case "gs":
		d, err = NewGCSDownloader(ctx, cfg)
	}
	if err != nil {
		return "", func() {}, errors.SourceOpen(raw, err)
	}
	if c, ok := d.(io.Closer); ok {
		defer c.Close()
	}
	return FetchWith(ctx, d, loc, cfg.TempDir)
}

// FetchWith downloads loc through d into a temporary file under dir.
func FetchWith(ctx context.Context, d Downloader, loc Location, dir string) (string, func(), error) {
	log := logger.Get().With(zap.String("component", "remote_source"), zap.String("location", loc.String()))

	base := strings.ReplaceAll(path.Base(loc.Key), "*", "_")
	f, err := os.CreateTemp(dir, "arrowload-*-"+base)
	if err != nil {
		return "", func() {}, errors.SourceOpen(loc.String(), err)
	}
	name := f.Name()
	cleanup := func() { os.Remove(name) }

	n, err := d.Download(ctx, loc, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", func() {}, errors.SourceOpen(loc.String(), err)
	}

	log.Debug("object downloaded", zap.Int64("bytes", n), zap.String("file", name))
	return name, cleanup, nil
}

// S3Downloader fetches objects with the S3 transfer manager.
type S3Downloader struct {
	downloader *manager.Downloader
}

// NewS3Downloader builds a client from the default AWS chain, overridden by
// any region, endpoint or static keys in cfg.
func NewS3Downloader(ctx context.Context, cfg config.SourceConfig) (*S3Downloader, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3DownloaderFromClient(client), nil
}

// NewS3DownloaderFromClient wraps an existing client.
func NewS3DownloaderFromClient(client *s3.Client) *S3Downloader {
	return &S3Downloader{downloader: manager.NewDownloader(client)}
}

// Download implements Downloader.
func (d *S3Downloader) Download(ctx context.Context, loc Location, w io.WriterAt) (int64, error) {
	return d.downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
}

// GCSDownloader fetches objects from Google Cloud Storage.
type GCSDownloader struct {
	client *storage.Client
}

// NewGCSDownloader creates a storage client using cfg.CredentialsFile when
// set and application default credentials otherwise. An endpoint selects an
// emulator and disables authentication.
func NewGCSDownloader(ctx context.Context, cfg config.SourceConfig) (*GCSDownloader, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}
	return &GCSDownloader{client: client}, nil
}

// Download implements Downloader.
func (d *GCSDownloader) Download(ctx context.Context, loc Location, w io.WriterAt) (int64, error) {
	r, err := d.client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return io.Copy(io.NewOffsetWriter(w, 0), r)
}

// Close releases the storage client.
func (d *GCSDownloader) Close() error {
	return d.client.Close()
}
