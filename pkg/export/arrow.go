package export

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

func arrowType(k Kind) arrow.DataType {
	switch k {
	case KindInt32:
		return arrow.PrimitiveTypes.Int32
	case KindUint32:
		return arrow.PrimitiveTypes.Uint32
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindBytes:
		return arrow.BinaryTypes.Binary
	case KindString:
		return arrow.BinaryTypes.String
	default:
		return arrow.ListOf(arrow.PrimitiveTypes.Float64)
	}
}

// ArrowSchema returns the arrow schema for f, with the table name stored
// under the "table" metadata key.
func ArrowSchema(f *Frame) *arrow.Schema {
	fields := make([]arrow.Field, len(f.Columns))
	for i, c := range f.Columns {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Kind)}
	}
	md := arrow.NewMetadata([]string{"table"}, []string{f.Table})
	return arrow.NewSchema(fields, &md)
}

// WriteArrow writes f as an Arrow IPC file, one record batch per
// batchRows rows.
func WriteArrow(w io.Writer, f *Frame, batchRows int) error {
	mem := memory.NewGoAllocator()
	schema := ArrowSchema(f)

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create Arrow writer")
	}

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for start := 0; start < f.Rows; start += batchRows {
		end := min(start+batchRows, f.Rows)
		for i := range f.Columns {
			appendArrowColumn(builder.Field(i), &f.Columns[i], start, end)
		}
		if err := writeArrowBatch(fw, builder); err != nil {
			return err
		}
	}

	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close Arrow writer")
	}
	return nil
}

func writeArrowBatch(fw *ipc.FileWriter, builder *array.RecordBuilder) error {
	record := builder.NewRecord()
	defer record.Release()
	if err := fw.Write(record); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write record batch")
	}
	return nil
}

func appendArrowColumn(b array.Builder, c *Column, start, end int) {
	switch c.Kind {
	case KindInt32:
		b.(*array.Int32Builder).AppendValues(c.Int32[start:end], nil)
	case KindUint32:
		b.(*array.Uint32Builder).AppendValues(c.Uint32[start:end], nil)
	case KindFloat64:
		b.(*array.Float64Builder).AppendValues(c.Float64[start:end], nil)
	case KindBytes:
		bb := b.(*array.BinaryBuilder)
		for j := start; j < end; j++ {
			bb.Append(c.Bytes[c.Offsets[j]:c.Offsets[j+1]])
		}
	case KindString:
		sb := b.(*array.StringBuilder)
		for j := start; j < end; j++ {
			sb.Append(string(c.Bytes[c.Offsets[j]:c.Offsets[j+1]]))
		}
	case KindFloat64List:
		lb := b.(*array.ListBuilder)
		vb := lb.ValueBuilder().(*array.Float64Builder)
		for j := start; j < end; j++ {
			lb.Append(true)
			vb.AppendValues(c.Float64[c.Offsets[j]:c.Offsets[j+1]], nil)
		}
	}
}
