package remote_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/sources/remote"
	"github.com/ajitpratap0/arrowload/pkg/errors"
)

func TestParseLocation(t *testing.T) {
	loc, err := remote.ParseLocation("s3://bucket/data/2024/part-0.parquet")
	require.NoError(t, err)
	assert.Equal(t, remote.Location{Scheme: "s3", Bucket: "bucket", Key: "data/2024/part-0.parquet"}, loc)
	assert.Equal(t, "s3://bucket/data/2024/part-0.parquet", loc.String())

	loc, err = remote.ParseLocation("GS://b/x.arrow")
	require.NoError(t, err)
	assert.Equal(t, "gs", loc.Scheme)

	for _, raw := range []string{"s3://bucket", "s3://bucket/dir/", "s3:///key", "ftp://host/x.arrow"} {
		_, err := remote.ParseLocation(raw)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), raw)
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, remote.IsRemote("s3://b/k"))
	assert.True(t, remote.IsRemote("gs://b/k"))
	assert.False(t, remote.IsRemote("/tmp/in.arrow"))
	assert.False(t, remote.IsRemote("postgres://localhost/db"))
}

type fakeDownloader struct {
	data []byte
	err  error
}

func (f *fakeDownloader) Download(_ context.Context, _ remote.Location, w io.WriterAt) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := w.WriteAt(f.data, 0)
	return int64(n), err
}

func TestFetchWithKeepsBaseName(t *testing.T) {
	dir := t.TempDir()
	loc := remote.Location{Scheme: "gs", Bucket: "b", Key: "exports/events.arrow.zst"}

	path, cleanup, err := remote.FetchWith(context.Background(), &fakeDownloader{data: []byte("payload")}, loc, dir)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "-events.arrow.zst"))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFetchWithFailureRemovesFile(t *testing.T) {
	dir := t.TempDir()
	loc := remote.Location{Scheme: "s3", Bucket: "b", Key: "k.parquet"}

	_, cleanup, err := remote.FetchWith(context.Background(), &fakeDownloader{err: io.ErrUnexpectedEOF}, loc, dir)
	require.Error(t, err)
	cleanup()
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceOpen))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchRejectsBadLocation(t *testing.T) {
	_, cleanup, err := remote.Fetch(context.Background(), "s3://only-bucket", config.SourceConfig{})
	cleanup()
	assert.True(t, errors.IsType(err, errors.ErrorTypeSourceOpen))
}

func TestS3DownloaderAgainstServer(t *testing.T) {
	payload := bytes.Repeat([]byte("arrow"), 1000)
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		http.ServeContent(w, r, "part-0.parquet", modified, bytes.NewReader(payload))
	}))
	defer srv.Close()

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
	})
	d := remote.NewS3DownloaderFromClient(client)

	path, cleanup, err := remote.FetchWith(context.Background(), d,
		remote.Location{Scheme: "s3", Bucket: "lake", Key: "events/part-0.parquet"}, t.TempDir())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "/lake/events/part-0.parquet", requested)
	assert.Equal(t, "part-0.parquet", strings.SplitN(filepath.Base(path), "-", 3)[2])
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
