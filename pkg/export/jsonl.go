package export

import (
	"io"

	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/json"
)

// WriteJSON writes f as JSON lines, one object per row. Byte columns are
// base64 encoded; non-finite floats such as unknown times are written as
// null.
func WriteJSON(w io.Writer, f *Frame) error {
	enc := json.NewStreamingEncoder(w, false)
	for j := 0; j < f.Rows; j++ {
		row := f.Row(j)
		for i := range f.Columns {
			c := &f.Columns[i]
			if c.Kind == KindFloat64 && !isFinite(c.Float64[j]) {
				row[c.Name] = nil
			}
			if c.Kind == KindFloat64List {
				row[c.Name] = finiteList(c.Value(j).([]float64))
			}
		}
		if err := enc.Encode(row); err != nil {
			_ = enc.Close()
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write JSON row").WithDetail("row", j)
		}
	}
	return enc.Close()
}

func isFinite(x float64) bool {
	return x-x == 0
}

func finiteList(values []float64) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if isFinite(v) {
			out[i] = v
		}
	}
	return out
}
