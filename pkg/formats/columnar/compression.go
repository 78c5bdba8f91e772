package columnar

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a whole-file compression wrapper around a columnar file.
// Buffer-level compression inside Arrow IPC and Parquet is handled by the
// format readers themselves.
type Algorithm string

const (
	// Zstd is a zstd frame (.zst)
	Zstd Algorithm = "zstd"
	// LZ4 is an lz4 frame (.lz4)
	LZ4 Algorithm = "lz4"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

func detectCompression(header []byte, name string) Algorithm {
	switch {
	case bytes.HasPrefix(header, zstdMagic):
		return Zstd
	case bytes.HasPrefix(header, lz4Magic):
		return LZ4
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	}
	return ""
}

// NewDecompressor wraps r with the decoder for algo.
func NewDecompressor(r io.Reader, algo Algorithm) (io.ReadCloser, error) {
	switch algo {
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", algo)
	}
}

// decompressToTemp inflates src into a temporary file and returns it
// rewound. Arrow files and Parquet need random access, so the frame cannot
// be decoded on the fly.
func decompressToTemp(src io.Reader, algo Algorithm) (*os.File, error) {
	dec, err := NewDecompressor(src, algo)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	tmp, err := os.CreateTemp("", "arrowload-*.columnar")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	fail := func(err error) (*os.File, error) {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}

	if _, err := io.Copy(tmp, dec); err != nil {
		return fail(fmt.Errorf("failed to decompress %s: %w", algo, err))
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fail(err)
	}
	return tmp, nil
}
