// Package columnar reads columnar batch streams for arrowload.
//
// A Reader yields immutable arrow.Record batches lazily; a source is finite
// and cannot be restarted once consumed. Supported inputs are Arrow IPC
// files, Arrow IPC streams, Parquet files and Avro object container files,
// optionally wrapped in zstd or lz4 frame compression.
package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/arrowload/pkg/errors"
)

// Format represents a columnar storage format
type Format string

const (
	// ArrowFile is the Arrow IPC file format (Feather v2)
	ArrowFile Format = "arrow"
	// ArrowStream is the Arrow IPC streaming format
	ArrowStream Format = "arrows"
	// Parquet is Apache Parquet decoded to Arrow batches
	Parquet Format = "parquet"
	// Avro is an Avro object container file regrouped into Arrow batches
	Avro Format = "avro"
	// Memory is an in-process sequence of records
	Memory Format = "memory"
)

// Reader provides lazy access to a finite sequence of batches that share
// one schema.
type Reader interface {
	// Schema returns the schema declared by the source
	Schema() *arrow.Schema
	// Next returns the next batch or io.EOF. The caller owns the returned
	// record and must Release it.
	Next(ctx context.Context) (arrow.Record, error)
	// Format returns the columnar format
	Format() Format
	// Close releases the underlying file and buffers
	Close() error
}

// ReaderConfig configures columnar readers
type ReaderConfig struct {
	// BatchSize is the number of rows per batch decoded from Parquet or Avro
	BatchSize int64
	// Allocator backs decoded buffers; defaults to the Go allocator
	Allocator memory.Allocator
}

// DefaultReaderConfig returns default reader configuration
func DefaultReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		BatchSize: 64 * 1024,
		Allocator: memory.NewGoAllocator(),
	}
}

var (
	arrowFileMagic = []byte("ARROW1")
	parquetMagic   = []byte("PAR1")
	avroMagic      = []byte("Obj\x01")
	// continuation marker that starts every message of a current-format stream
	streamContinuation = []byte{0xff, 0xff, 0xff, 0xff}
)

// DetectFormat identifies a format from the first bytes of a file, falling
// back to the file extension.
func DetectFormat(header []byte, name string) (Format, error) {
	switch {
	case bytes.HasPrefix(header, arrowFileMagic):
		return ArrowFile, nil
	case bytes.HasPrefix(header, parquetMagic):
		return Parquet, nil
	case bytes.HasPrefix(header, avroMagic):
		return Avro, nil
	case bytes.HasPrefix(header, streamContinuation):
		return ArrowStream, nil
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".arrow", ".feather", ".ipc":
		return ArrowFile, nil
	case ".arrows", ".stream":
		return ArrowStream, nil
	case ".parquet", ".pq":
		return Parquet, nil
	case ".avro":
		return Avro, nil
	}
	return "", fmt.Errorf("unrecognized columnar format for %s", name)
}

// Open opens the columnar file at path. Missing or unreadable files yield a
// source_open error; files that are not a batch stream yield source_format.
func Open(ctx context.Context, path string, config *ReaderConfig) (Reader, error) {
	if config == nil {
		config = DefaultReaderConfig()
	}
	if config.Allocator == nil {
		config.Allocator = memory.NewGoAllocator()
	}

	f, err := os.Open(path) //nolint:gosec // G304: path is the caller's source
	if err != nil {
		return nil, errors.SourceOpen(path, err)
	}

	header, err := peek(f, 8)
	if err != nil {
		f.Close()
		return nil, errors.SourceOpen(path, err)
	}

	var cleanup func()
	if codec := detectCompression(header, path); codec != "" {
		plain, err := decompressToTemp(f, codec)
		f.Close()
		if err != nil {
			return nil, errors.SourceFormat(path, err)
		}
		f = plain
		name := plain.Name()
		cleanup = func() { os.Remove(name) }
		if header, err = peek(f, 8); err != nil {
			f.Close()
			cleanup()
			return nil, errors.SourceFormat(path, err)
		}
	}

	format, err := DetectFormat(header, strings.TrimSuffix(strings.TrimSuffix(path, ".zst"), ".lz4"))
	if err != nil {
		f.Close()
		if cleanup != nil {
			cleanup()
		}
		return nil, errors.SourceFormat(path, err)
	}

	var r Reader
	switch format {
	case ArrowFile:
		r, err = newArrowFileReader(f, config)
	case ArrowStream:
		r, err = newArrowStreamReader(f, config)
	case Parquet:
		r, err = newParquetReader(ctx, f, config)
	case Avro:
		r, err = newAvroReader(f, config)
	}
	if err != nil {
		f.Close()
		if cleanup != nil {
			cleanup()
		}
		return nil, errors.SourceFormat(path, err)
	}

	if cleanup != nil {
		r = &cleanupReader{Reader: r, cleanup: cleanup}
	}
	return r, nil
}

// peek reads up to n bytes from the start of f and rewinds it.
func peek(f *os.File, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return buf[:read], nil
}

type cleanupReader struct {
	Reader
	cleanup func()
}

func (c *cleanupReader) Close() error {
	err := c.Reader.Close()
	c.cleanup()
	return err
}

// ReadAll drains r, returning every batch. Intended for small sources and
// tests; the caller releases the records.
func ReadAll(ctx context.Context, r Reader) ([]arrow.Record, error) {
	var out []arrow.Record
	for {
		rec, err := r.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			for _, rec := range out {
				rec.Release()
			}
			return nil, err
		}
		out = append(out, rec)
	}
}
