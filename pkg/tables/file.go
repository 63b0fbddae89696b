package tables

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/pkg/compression"
	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/logger"
	"github.com/ajitpratap0/arbor/pkg/metrics"
	"github.com/ajitpratap0/arbor/pkg/mmap"
	"github.com/ajitpratap0/arbor/pkg/observability"
	"github.com/ajitpratap0/arbor/pkg/storage"
)

// DumpOptions configures DumpFile and DumpTo.
type DumpOptions struct {
	// Compression wraps the file in a compressed envelope unless the
	// algorithm is None or empty.
	Compression compression.Config
	// Storage configures remote targets for DumpTo.
	Storage storage.Options
}

// LoadOptions configures LoadFile and LoadFrom.
type LoadOptions struct {
	// NoMmap reads the file into memory instead of mapping it.
	NoMmap bool
	// Storage configures remote sources for LoadFrom.
	Storage storage.Options
	// Options are passed to the new collection.
	Options []Option
}

// DumpFile writes the collection to path. The file is written to a
// temporary name and renamed into place, so a failed dump leaves nothing
// at path.
func (tc *Collection) DumpFile(ctx context.Context, path string, opts DumpOptions) error {
	return tc.dumpTo(ctx, "tables.dump_file", storage.Location{Scheme: storage.SchemeFile, Key: path}, opts)
}

// DumpTo writes the collection to a local path or an s3:// or gs:// URL.
func (tc *Collection) DumpTo(ctx context.Context, target string, opts DumpOptions) error {
	loc, err := storage.ParseLocation(target)
	if err != nil {
		return err
	}
	return tc.dumpTo(ctx, "tables.dump", loc, opts)
}

func (tc *Collection) dumpTo(ctx context.Context, spanName string, loc storage.Location, opts DumpOptions) error {
	timer := metrics.NewTimer("dump")
	ctx = logger.ContextWith(ctx, logger.FileKey, loc.String())
	log := logger.FromContext(ctx, tc.logger)

	err := observability.Trace(ctx, spanName, func(ctx context.Context, span *observability.Span) error {
		span.SetAttribute("location", loc.String())
		span.SetAttribute("compression", string(opts.Compression.Algorithm))

		data, err := tc.DumpBytes()
		if err != nil {
			return err
		}
		rawSize := len(data)
		if data, err = compressEnvelope(data, opts.Compression); err != nil {
			return err
		}
		backend, err := storage.Open(ctx, loc, opts.Storage)
		if err != nil {
			return err
		}
		defer backend.Close()
		if err := backend.Write(ctx, loc.Key, data); err != nil {
			return err
		}

		span.SetAttribute("bytes", len(data))
		metrics.RecordBytes(metrics.DirectionWrite, int64(len(data)))
		metrics.RecordRows("dump", tc.RecordNumRows().Counts())
		log.Debug("wrote tables",
			zap.String("uuid", tc.FileUUID),
			zap.Int("raw_bytes", rawSize),
			zap.Int("bytes", len(data)))
		return nil
	})
	d := timer.ObserveResult(err)
	if err != nil {
		log.Warn("dump failed", zap.Duration("duration", d), zap.Error(err))
	}
	return err
}

// LoadFile reads a collection from path, memory-mapping it unless
// opts.NoMmap is set or the platform cannot. Compressed envelopes are
// detected and removed.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*Collection, error) {
	timer := metrics.NewTimer("load")
	ctx = logger.ContextWith(ctx, logger.FileKey, path)

	var tc *Collection
	err := observability.Trace(ctx, "tables.load_file", func(ctx context.Context, span *observability.Span) error {
		span.SetAttribute("location", path)
		var err error
		if !opts.NoMmap && mmap.Supported {
			tc, err = loadMapped(ctx, path, opts)
		} else {
			tc, err = loadRead(path, opts)
		}
		if err == nil {
			span.SetAttribute("edges", tc.Edges.NumRows())
		}
		return err
	})
	finishLoad(ctx, timer, tc, err)
	return tc, err
}

// LoadFrom reads a collection from a local path or an s3:// or gs:// URL.
func LoadFrom(ctx context.Context, source string, opts LoadOptions) (*Collection, error) {
	loc, err := storage.ParseLocation(source)
	if err != nil {
		return nil, err
	}
	if loc.Scheme == storage.SchemeFile {
		return LoadFile(ctx, loc.Key, opts)
	}

	timer := metrics.NewTimer("load")
	ctx = logger.ContextWith(ctx, logger.FileKey, loc.String())
	var tc *Collection
	err = observability.Trace(ctx, "tables.load", func(ctx context.Context, span *observability.Span) error {
		span.SetAttribute("location", loc.String())
		data, err := storage.ReadAll(ctx, source, opts.Storage)
		if err != nil {
			return err
		}
		tc, err = loadEnvelope(data, opts)
		return err
	})
	finishLoad(ctx, timer, tc, err)
	return tc, err
}

func loadMapped(ctx context.Context, path string, opts LoadOptions) (*Collection, error) {
	r, err := mmap.NewReader(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, err
		}
		logger.WithContext(ctx).Debug("mmap unavailable, reading file", zap.Error(err))
		return loadRead(path, opts)
	}
	tc, err := loadEnvelope(r.ReadAll(), opts)
	if closeErr := r.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	return tc, nil
}

func loadRead(path string, opts LoadOptions) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read file").WithDetail("path", path)
	}
	return loadEnvelope(data, opts)
}

func loadEnvelope(data []byte, opts LoadOptions) (*Collection, error) {
	metrics.RecordBytes(metrics.DirectionRead, int64(len(data)))
	raw, _, err := compression.Decompress(data)
	if err != nil {
		return nil, err
	}
	return Load(raw, opts.Options...)
}

func finishLoad(ctx context.Context, timer *metrics.Timer, tc *Collection, err error) {
	d := timer.ObserveResult(err)
	if err != nil {
		logger.WithContext(ctx).Warn("load failed", zap.Duration("duration", d), zap.Error(err))
		return
	}
	metrics.RecordRows("load", tc.RecordNumRows().Counts())
	logger.FromContext(ctx, tc.logger).Debug("read tables", zap.Duration("duration", d))
}

func compressEnvelope(data []byte, cfg compression.Config) ([]byte, error) {
	if cfg.Algorithm == "" || cfg.Algorithm == compression.None {
		return data, nil
	}
	comp, err := compression.NewCompressor(&cfg)
	if err != nil {
		return nil, err
	}
	out, err := comp.Compress(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to compress tables")
	}
	return out, nil
}
