package tables

import (
	"bytes"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Provenance is a view of one provenance row.
type Provenance struct {
	ID        int32
	Timestamp []byte
	Record    []byte
}

// ProvenanceColumns holds bulk column input. All columns are required.
type ProvenanceColumns struct {
	Timestamp       []byte
	TimestampOffset []uint32
	Record          []byte
	RecordOffset    []uint32
}

// ProvenanceTable stores provenance records.
type ProvenanceTable struct {
	sizing
	Timestamp       []byte
	TimestampOffset []uint32
	Record          []byte
	RecordOffset    []uint32
}

// NewProvenanceTable returns an empty provenance table.
func NewProvenanceTable(opts TableOptions) *ProvenanceTable {
	t := &ProvenanceTable{sizing: newSizing(opts)}
	t.Clear()
	return t
}

// NumRows returns the number of provenance records.
func (t *ProvenanceTable) NumRows() int {
	return len(t.TimestampOffset) - 1
}

// AddRow appends a provenance record and returns its id.
func (t *ProvenanceTable) AddRow(timestamp, record string) (int32, error) {
	if err := checkTableOverflow(t.NumRows(), 1); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Timestamp), len(timestamp)); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Record), len(record)); err != nil {
		return Null, err
	}
	id := int32(t.NumRows())
	t.Timestamp, t.TimestampOffset = raggedPush(t.Timestamp, t.TimestampOffset, []byte(timestamp), t.sizing)
	t.Record, t.RecordOffset = raggedPush(t.Record, t.RecordOffset, []byte(record), t.sizing)
	return id, nil
}

func (t *ProvenanceTable) checkColumns(cols ProvenanceColumns) (int, error) {
	if cols.TimestampOffset == nil || cols.RecordOffset == nil {
		return 0, errors.Coded(errors.CodeBadParam).WithDetail("reason", "timestamp and record are required")
	}
	n := len(cols.TimestampOffset) - 1
	if n < 0 {
		return 0, errors.Coded(errors.CodeBadOffset).WithDetail("column", "timestamp")
	}
	if err := checkRagged(n, cols.Timestamp, cols.TimestampOffset, true, "timestamp"); err != nil {
		return 0, err
	}
	if err := checkRagged(n, cols.Record, cols.RecordOffset, true, "record"); err != nil {
		return 0, err
	}
	return n, nil
}

// AppendColumns appends rows in bulk.
func (t *ProvenanceTable) AppendColumns(cols ProvenanceColumns) error {
	n, err := t.checkColumns(cols)
	if err != nil {
		return err
	}
	if err := checkTableOverflow(t.NumRows(), n); err != nil {
		return err
	}
	if err := checkColumnOverflow(len(t.Timestamp), len(cols.Timestamp)); err != nil {
		return err
	}
	if err := checkColumnOverflow(len(t.Record), len(cols.Record)); err != nil {
		return err
	}
	t.Timestamp, t.TimestampOffset = raggedExtend(t.Timestamp, t.TimestampOffset, cols.Timestamp, cols.TimestampOffset, t.sizing)
	t.Record, t.RecordOffset = raggedExtend(t.Record, t.RecordOffset, cols.Record, cols.RecordOffset, t.sizing)
	return nil
}

// SetColumns replaces the table contents.
func (t *ProvenanceTable) SetColumns(cols ProvenanceColumns) error {
	if _, err := t.checkColumns(cols); err != nil {
		return err
	}
	t.Clear()
	return t.AppendColumns(cols)
}

// Row returns a view of provenance record j.
func (t *ProvenanceTable) Row(j int32) (Provenance, error) {
	if j < 0 || int(j) >= t.NumRows() {
		return Provenance{}, errors.Coded(errors.CodeProvenanceOutOfBounds).WithDetail("provenance", j)
	}
	return Provenance{
		ID:        j,
		Timestamp: raggedValue(t.Timestamp, t.TimestampOffset, int(j)),
		Record:    raggedValue(t.Record, t.RecordOffset, int(j)),
	}, nil
}

// Truncate drops all rows from n onwards.
func (t *ProvenanceTable) Truncate(n int) error {
	if n < 0 || n > t.NumRows() {
		return errors.Coded(errors.CodeBadTablePosition).WithDetail("table", "provenances").WithDetail("rows", n)
	}
	t.Timestamp, t.TimestampOffset = raggedTruncate(t.Timestamp, t.TimestampOffset, n)
	t.Record, t.RecordOffset = raggedTruncate(t.Record, t.RecordOffset, n)
	return nil
}

// Clear removes every row.
func (t *ProvenanceTable) Clear() {
	if t.TimestampOffset == nil {
		t.Timestamp = make([]byte, 0, 1)
		t.TimestampOffset = newOffsets(t.sizing)
		t.Record = make([]byte, 0, 1)
		t.RecordOffset = newOffsets(t.sizing)
		return
	}
	_ = t.Truncate(0)
}

// Equals reports whether both tables hold the same rows.
func (t *ProvenanceTable) Equals(o *ProvenanceTable) bool {
	return t.NumRows() == o.NumRows() &&
		equalSlices(t.TimestampOffset, o.TimestampOffset) &&
		bytes.Equal(t.Timestamp, o.Timestamp) &&
		equalSlices(t.RecordOffset, o.RecordOffset) &&
		bytes.Equal(t.Record, o.Record)
}

// Copy returns a deep copy.
func (t *ProvenanceTable) Copy() *ProvenanceTable {
	return &ProvenanceTable{
		sizing:          t.sizing,
		Timestamp:       clone(t.Timestamp),
		TimestampOffset: clone(t.TimestampOffset),
		Record:          clone(t.Record),
		RecordOffset:    clone(t.RecordOffset),
	}
}

// Columns returns the table's columns, sharing storage.
func (t *ProvenanceTable) Columns() ProvenanceColumns {
	return ProvenanceColumns{
		Timestamp:       t.Timestamp,
		TimestampOffset: t.TimestampOffset,
		Record:          t.Record,
		RecordOffset:    t.RecordOffset,
	}
}

func (t *ProvenanceTable) checkOffsets() error {
	n := t.NumRows()
	if err := checkOffsets(n, t.TimestampOffset, len(t.Timestamp), true); err != nil {
		return err
	}
	return checkOffsets(n, t.RecordOffset, len(t.Record), true)
}
