// Package export writes single tables of a collection in interchange
// formats: Arrow IPC files, Avro object container files and JSON lines.
package export

import (
	"bytes"
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/logger"
	"github.com/ajitpratap0/arbor/pkg/metrics"
	"github.com/ajitpratap0/arbor/pkg/observability"
	"github.com/ajitpratap0/arbor/pkg/storage"
	"github.com/ajitpratap0/arbor/pkg/tables"
)

// Format is an export format.
type Format string

const (
	Arrow Format = "arrow"
	Avro  Format = "avro"
	JSON  Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{Arrow, Avro, JSON}

// ParseFormat resolves a format name. "jsonl" and "ipc" are accepted as
// aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "arrow", "ipc":
		return Arrow, nil
	case "avro":
		return Avro, nil
	case "json", "jsonl":
		return JSON, nil
	}
	return "", errors.Coded(errors.CodeBadParam).WithDetail("format", name)
}

// DefaultBatchRows is the number of rows per Arrow batch or Avro block.
const DefaultBatchRows = 65536

// Options configures Write.
type Options struct {
	Format Format
	// BatchRows defaults to DefaultBatchRows.
	BatchRows int
	// AvroCompression is "null", "deflate" or "snappy".
	AvroCompression string
	// Storage configures remote targets for WriteTo.
	Storage storage.Options
}

// Write exports the named table of tc to w.
func Write(ctx context.Context, w io.Writer, tc *tables.Collection, table string, opts Options) error {
	timer := metrics.NewTimer("export")
	ctx = logger.ContextWith(ctx, logger.OperationKey, "export")

	err := observability.Trace(ctx, "export.write", func(ctx context.Context, span *observability.Span) error {
		span.SetAttribute("table", table)
		span.SetAttribute("format", string(opts.Format))

		f, err := NewFrame(tc, table)
		if err != nil {
			return err
		}
		batch := opts.BatchRows
		if batch <= 0 {
			batch = DefaultBatchRows
		}
		switch opts.Format {
		case Arrow:
			err = WriteArrow(w, f, batch)
		case Avro:
			err = WriteAvro(w, f, opts.AvroCompression, batch)
		case JSON:
			err = WriteJSON(w, f)
		default:
			err = errors.Coded(errors.CodeBadParam).WithDetail("format", string(opts.Format))
		}
		if err != nil {
			return err
		}
		span.SetAttribute("rows", f.Rows)
		metrics.RecordRows("export", map[string]int{table: f.Rows})
		logger.WithContext(ctx).Debug("exported table",
			zap.String("table", table),
			zap.String("format", string(opts.Format)),
			zap.Int("rows", f.Rows))
		return nil
	})
	timer.ObserveResult(err)
	return err
}

// WriteTo exports the named table to a local path or an s3:// or gs://
// URL.
func WriteTo(ctx context.Context, target string, tc *tables.Collection, table string, opts Options) error {
	var buf bytes.Buffer
	if err := Write(ctx, &buf, tc, table, opts); err != nil {
		return err
	}
	if err := storage.WriteAll(ctx, target, buf.Bytes(), opts.Storage); err != nil {
		return err
	}
	metrics.RecordBytes(metrics.DirectionWrite, int64(buf.Len()))
	return nil
}
