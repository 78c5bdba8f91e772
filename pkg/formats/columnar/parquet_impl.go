package columnar

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// parquetReader implements Reader for Parquet files by decoding row groups
// into Arrow record batches.
type parquetReader struct {
	fileReader   *file.Reader
	recordReader pqarrow.RecordReader
	schema       *arrow.Schema
}

func newParquetReader(ctx context.Context, f *os.File, config *ReaderConfig) (*parquetReader, error) {
	fr, err := file.NewParquetReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet reader: %w", err)
	}

	props := pqarrow.ArrowReadProperties{BatchSize: config.BatchSize}
	arrowReader, err := pqarrow.NewFileReader(fr, props, config.Allocator)
	if err != nil {
		fr.Close()
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		fr.Close()
		return nil, fmt.Errorf("failed to get Arrow schema: %w", err)
	}

	// nil column and row group selections read everything in file order
	rr, err := arrowReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		fr.Close()
		return nil, fmt.Errorf("failed to create record reader: %w", err)
	}

	return &parquetReader{
		fileReader:   fr,
		recordReader: rr,
		schema:       schema,
	}, nil
}

func (pr *parquetReader) Schema() *arrow.Schema {
	return pr.schema
}

func (pr *parquetReader) Next(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !pr.recordReader.Next() {
		if err := pr.recordReader.Err(); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode row group: %w", err)
		}
		return nil, io.EOF
	}
	rec := pr.recordReader.Record()
	rec.Retain()
	return rec, nil
}

func (pr *parquetReader) Format() Format {
	return Parquet
}

func (pr *parquetReader) Close() error {
	pr.recordReader.Release()
	// file.Reader closes the underlying *os.File
	return pr.fileReader.Close()
}
