package tables

import (
	"math"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

const (
	// Null is the id used for "no row".
	Null int32 = -1
	// NodeIsSample is the node flag marking sample nodes.
	NodeIsSample uint32 = 1

	// DefaultIncrement is the default growth step for rows and ragged columns.
	DefaultIncrement = 1024
	// MaxRows is the largest number of rows a table may hold.
	MaxRows = int64(math.MaxInt32) + 1
	// MaxColumnLength is the largest number of elements in a ragged column.
	MaxColumnLength = int64(math.MaxUint32)

	unknownTimeBits uint64 = 0x7FF874736B697421
)

// UnknownTime is the NaN payload used for mutations without a known time.
var UnknownTime = math.Float64frombits(unknownTimeBits)

// IsUnknownTime reports whether t is the UnknownTime sentinel. Other NaN
// values are not unknown times.
func IsUnknownTime(t float64) bool {
	return math.Float64bits(t) == unknownTimeBits
}

// TableOptions configures buffer growth for a table.
type TableOptions struct {
	// RowsIncrement is the minimum number of rows added on each growth.
	RowsIncrement int `yaml:"rows_increment" json:"rows_increment"`
	// LengthIncrement is the minimum number of elements added to a ragged
	// column on each growth.
	LengthIncrement int `yaml:"length_increment" json:"length_increment"`
}

// sizing carries the growth policy shared by all tables.
type sizing struct {
	rowsIncrement   int
	lengthIncrement int
}

func newSizing(opts TableOptions) sizing {
	s := sizing{}
	s.SetRowsIncrement(opts.RowsIncrement)
	s.SetLengthIncrement(opts.LengthIncrement)
	return s
}

// SetRowsIncrement sets the row growth step; 0 restores the default.
func (s *sizing) SetRowsIncrement(n int) {
	if n <= 0 {
		n = DefaultIncrement
	}
	s.rowsIncrement = n
}

// SetLengthIncrement sets the ragged column growth step; 0 restores the default.
func (s *sizing) SetLengthIncrement(n int) {
	if n <= 0 {
		n = DefaultIncrement
	}
	s.lengthIncrement = n
}

func (s sizing) options() TableOptions {
	return TableOptions{RowsIncrement: s.rowsIncrement, LengthIncrement: s.lengthIncrement}
}

func checkTableOverflow(current, additional int) error {
	if additional < 0 || int64(current)+int64(additional) > MaxRows {
		return errors.Coded(errors.CodeTableOverflow).
			WithDetail("rows", current).
			WithDetail("additional", additional)
	}
	return nil
}

func checkColumnOverflow(current, additional int) error {
	if additional < 0 || int64(current)+int64(additional) > MaxColumnLength {
		return errors.Coded(errors.CodeColumnOverflow).
			WithDetail("length", current).
			WithDetail("additional", additional)
	}
	return nil
}

// checkOffsets validates a ragged offset column for numRows rows. When
// checkLength is set the final offset must equal length.
func checkOffsets(numRows int, offsets []uint32, length int, checkLength bool) error {
	if len(offsets) != numRows+1 {
		return errors.Coded(errors.CodeBadOffset).
			WithDetail("reason", "offset column must have num_rows + 1 entries").
			WithDetail("entries", len(offsets))
	}
	if offsets[0] != 0 {
		return errors.Coded(errors.CodeBadOffset).WithDetail("reason", "first offset must be zero")
	}
	if checkLength && int64(offsets[numRows]) != int64(length) {
		return errors.Coded(errors.CodeBadOffset).
			WithDetail("reason", "last offset must equal the column length").
			WithDetail("last", offsets[numRows]).
			WithDetail("length", length)
	}
	for j := 0; j < numRows; j++ {
		if offsets[j] > offsets[j+1] {
			return errors.Coded(errors.CodeBadOffset).
				WithDetail("reason", "offsets must be non-decreasing").
				WithDetail("row", j)
		}
	}
	return nil
}

// reserve makes room for additional elements, growing capacity by at least
// increment.
func reserve[T any](s []T, additional, increment int) []T {
	need := len(s) + additional
	if need <= cap(s) {
		return s
	}
	step := additional
	if increment > step {
		step = increment
	}
	grown := make([]T, len(s), cap(s)+step)
	copy(grown, s)
	return grown
}

func raggedValue[T any](data []T, offsets []uint32, j int) []T {
	start, end := offsets[j], offsets[j+1]
	return data[start:end:end]
}

// raggedPush appends one value and its end offset.
func raggedPush[T any](data []T, offsets []uint32, value []T, s sizing) ([]T, []uint32) {
	data = reserve(data, len(value), s.lengthIncrement)
	data = append(data, value...)
	offsets = reserve(offsets, 1, s.rowsIncrement)
	offsets = append(offsets, uint32(len(data)))
	return data, offsets
}

// raggedExtend appends a block of already validated values. addOffsets has
// one more entry than the number of rows appended.
func raggedExtend[T any](data []T, offsets []uint32, addData []T, addOffsets []uint32, s sizing) ([]T, []uint32) {
	base := uint32(len(data))
	data = reserve(data, len(addData), s.lengthIncrement)
	data = append(data, addData...)
	offsets = reserve(offsets, len(addOffsets)-1, s.rowsIncrement)
	for _, o := range addOffsets[1:] {
		offsets = append(offsets, base+o)
	}
	return data, offsets
}

// raggedEmpty appends n empty values.
func raggedEmpty(offsets []uint32, n int, s sizing) []uint32 {
	offsets = reserve(offsets, n, s.rowsIncrement)
	last := offsets[len(offsets)-1]
	for i := 0; i < n; i++ {
		offsets = append(offsets, last)
	}
	return offsets
}

func raggedTruncate[T any](data []T, offsets []uint32, n int) ([]T, []uint32) {
	return data[:offsets[n]], offsets[:n+1]
}

// checkRagged validates an optional ragged pair supplied to a bulk append.
func checkRagged[T any](numRows int, data []T, offsets []uint32, required bool, column string) error {
	if data == nil && offsets == nil {
		if required {
			return errors.Coded(errors.CodeBadParam).WithDetail("column", column).WithDetail("reason", "required")
		}
		return nil
	}
	if offsets == nil || (data == nil && len(offsets) > 0 && offsets[len(offsets)-1] != 0) {
		return errors.Coded(errors.CodeBadParam).
			WithDetail("column", column).
			WithDetail("reason", "values and offsets must be given together")
	}
	if err := checkOffsets(numRows, offsets, len(data), true); err != nil {
		return err.(*errors.Error).WithDetail("column", column)
	}
	return nil
}

func checkColumnLength(n, got int, column string) error {
	if got != n {
		return errors.Coded(errors.CodeColumnLengthMismatch).
			WithDetail("column", column).
			WithDetail("expected", n).
			WithDetail("got", got)
	}
	return nil
}

func newOffsets(s sizing) []uint32 {
	offsets := make([]uint32, 1, 1+s.rowsIncrement)
	return offsets
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clone[T any](s []T) []T {
	out := make([]T, len(s), cap(s))
	copy(out, s)
	return out
}

func fill[T any](n int, v T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}
