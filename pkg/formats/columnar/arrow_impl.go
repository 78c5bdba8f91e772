package columnar

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
)

// arrowFileReader implements Reader for the Arrow IPC file format
type arrowFileReader struct {
	file       *os.File
	fileReader *ipc.FileReader
	batchIndex int
}

func newArrowFileReader(f *os.File, config *ReaderConfig) (*arrowFileReader, error) {
	reader, err := ipc.NewFileReader(f, ipc.WithAllocator(config.Allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file reader: %w", err)
	}

	return &arrowFileReader{
		file:       f,
		fileReader: reader,
	}, nil
}

func (ar *arrowFileReader) Schema() *arrow.Schema {
	return ar.fileReader.Schema()
}

func (ar *arrowFileReader) Next(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ar.batchIndex >= ar.fileReader.NumRecords() {
		return nil, io.EOF
	}

	// The file reader reuses the record on the next call; retain it so the
	// caller owns an independent reference.
	rec, err := ar.fileReader.Record(ar.batchIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to read record batch %d: %w", ar.batchIndex, err)
	}
	ar.batchIndex++
	rec.Retain()
	return rec, nil
}

func (ar *arrowFileReader) Format() Format {
	return ArrowFile
}

func (ar *arrowFileReader) Close() error {
	err := ar.fileReader.Close()
	if cerr := ar.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// arrowStreamReader implements Reader for the Arrow IPC streaming format
type arrowStreamReader struct {
	file   io.Closer
	stream *ipc.Reader
}

func newArrowStreamReader(r io.ReadCloser, config *ReaderConfig) (*arrowStreamReader, error) {
	stream, err := ipc.NewReader(r, ipc.WithAllocator(config.Allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow stream reader: %w", err)
	}
	return &arrowStreamReader{file: r, stream: stream}, nil
}

func (sr *arrowStreamReader) Schema() *arrow.Schema {
	return sr.stream.Schema()
}

func (sr *arrowStreamReader) Next(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !sr.stream.Next() {
		if err := sr.stream.Err(); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to read record batch: %w", err)
		}
		return nil, io.EOF
	}
	rec := sr.stream.Record()
	rec.Retain()
	return rec, nil
}

func (sr *arrowStreamReader) Format() Format {
	return ArrowStream
}

func (sr *arrowStreamReader) Close() error {
	sr.stream.Release()
	return sr.file.Close()
}

// recordsReader implements Reader over records already in memory
type recordsReader struct {
	schema  *arrow.Schema
	records []arrow.Record
	next    int
}

// FromRecords returns a Reader over records. The reader takes its own
// reference to every record; callers keep ownership of theirs.
func FromRecords(schema *arrow.Schema, records ...arrow.Record) Reader {
	owned := make([]arrow.Record, len(records))
	for i, rec := range records {
		rec.Retain()
		owned[i] = rec
	}
	if schema == nil && len(records) > 0 {
		schema = records[0].Schema()
	}
	return &recordsReader{schema: schema, records: owned}
}

func (mr *recordsReader) Schema() *arrow.Schema {
	return mr.schema
}

func (mr *recordsReader) Next(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mr.next >= len(mr.records) {
		return nil, io.EOF
	}
	rec := mr.records[mr.next]
	mr.records[mr.next] = nil
	mr.next++
	return rec, nil
}

func (mr *recordsReader) Format() Format {
	return Memory
}

func (mr *recordsReader) Close() error {
	for i, rec := range mr.records {
		if rec != nil {
			rec.Release()
			mr.records[i] = nil
		}
	}
	return nil
}
