// Package sources opens columnar sources from local paths or object stores
package sources

import (
	"context"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/connector/sources/remote"
	"github.com/ajitpratap0/arrowload/pkg/formats/columnar"
)

// Open returns a reader for location. Object store locations are downloaded
// first and the local copy is removed when the reader is closed.
func Open(ctx context.Context, location string, cfg *config.BaseConfig) (columnar.Reader, error) {
	if cfg == nil {
		cfg = config.NewBaseConfig("")
	}
	readerCfg := columnar.DefaultReaderConfig()
	if cfg.Performance.ReadBatchSize > 0 {
		readerCfg.BatchSize = cfg.Performance.ReadBatchSize
	}

	if !remote.IsRemote(location) {
		return columnar.Open(ctx, location, readerCfg)
	}

	path, cleanup, err := remote.Fetch(ctx, location, cfg.Source)
	if err != nil {
		return nil, err
	}
	r, err := columnar.Open(ctx, path, readerCfg)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &fetchedReader{Reader: r, cleanup: cleanup}, nil
}

type fetchedReader struct {
	columnar.Reader
	cleanup func()
}

func (f *fetchedReader) Close() error {
	err := f.Reader.Close()
	f.cleanup()
	return err
}
