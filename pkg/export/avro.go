package export

import (
	"io"

	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/json"
)

func avroType(k Kind) interface{} {
	switch k {
	case KindInt32:
		return "int"
	case KindUint32:
		return "long"
	case KindFloat64:
		return "double"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	default:
		return map[string]interface{}{"type": "array", "items": "double"}
	}
}

// AvroSchema returns the Avro record schema for f as JSON.
func AvroSchema(f *Frame) (string, error) {
	fields := make([]map[string]interface{}, len(f.Columns))
	for i, c := range f.Columns {
		fields[i] = map[string]interface{}{"name": c.Name, "type": avroType(c.Kind)}
	}
	schema, err := json.Marshal(map[string]interface{}{
		"type":      "record",
		"name":      f.Table,
		"namespace": "arbor",
		"fields":    fields,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to build Avro schema")
	}
	return string(schema), nil
}

func avroNative(c *Column, j int) interface{} {
	switch c.Kind {
	case KindUint32:
		return int64(c.Uint32[j])
	case KindFloat64List:
		values := c.Float64[c.Offsets[j]:c.Offsets[j+1]]
		out := make([]interface{}, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out
	default:
		return c.Value(j)
	}
}

// WriteAvro writes f as an Avro object container file. compressionName is
// one of "null", "deflate" or "snappy"; empty means "null". Rows are
// appended in blocks of batchRows.
func WriteAvro(w io.Writer, f *Frame, compressionName string, batchRows int) error {
	schema, err := AvroSchema(f)
	if err != nil {
		return err
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create Avro codec")
	}
	if compressionName == "" {
		compressionName = goavro.CompressionNullLabel
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: compressionName,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeParameter, "failed to create Avro writer").
			WithDetail("compression", compressionName)
	}

	block := make([]interface{}, 0, min(batchRows, f.Rows))
	for j := 0; j < f.Rows; j++ {
		record := make(map[string]interface{}, len(f.Columns))
		for i := range f.Columns {
			record[f.Columns[i].Name] = avroNative(&f.Columns[i], j)
		}
		block = append(block, record)
		if len(block) == batchRows {
			if err := ocf.Append(block); err != nil {
				return errors.Wrap(err, errors.ErrorTypeIO, "failed to write Avro block")
			}
			block = block[:0]
		}
	}
	if len(block) > 0 {
		if err := ocf.Append(block); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write Avro block")
		}
	}
	return nil
}
