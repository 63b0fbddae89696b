package tables

import (
	"bytes"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Individual is a view of one individual row.
type Individual struct {
	ID       int32
	Flags    uint32
	Location []float64
	Metadata []byte
}

// IndividualColumns holds bulk column input.
type IndividualColumns struct {
	Flags          []uint32
	Location       []float64
	LocationOffset []uint32
	Metadata       []byte
	MetadataOffset []uint32
}

// IndividualTable stores individuals column by column.
type IndividualTable struct {
	sizing
	Flags          []uint32
	Location       []float64
	LocationOffset []uint32
	Metadata       []byte
	MetadataOffset []uint32
	MetadataSchema string
}

// NewIndividualTable returns an empty individual table.
func NewIndividualTable(opts TableOptions) *IndividualTable {
	t := &IndividualTable{sizing: newSizing(opts)}
	t.Clear()
	return t
}

// NumRows returns the number of individuals.
func (t *IndividualTable) NumRows() int {
	return len(t.Flags)
}

// AddRow appends an individual and returns its id.
func (t *IndividualTable) AddRow(flags uint32, location []float64, metadata []byte) (int32, error) {
	if err := checkTableOverflow(t.NumRows(), 1); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Location), len(location)); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(metadata)); err != nil {
		return Null, err
	}
	id := int32(t.NumRows())
	t.Flags = append(reserve(t.Flags, 1, t.rowsIncrement), flags)
	t.Location, t.LocationOffset = raggedPush(t.Location, t.LocationOffset, location, t.sizing)
	t.Metadata, t.MetadataOffset = raggedPush(t.Metadata, t.MetadataOffset, metadata, t.sizing)
	return id, nil
}

func (t *IndividualTable) checkColumns(cols IndividualColumns) (int, error) {
	if cols.Flags == nil {
		return 0, errors.Coded(errors.CodeBadParam).WithDetail("reason", "flags are required")
	}
	n := len(cols.Flags)
	if err := checkRagged(n, cols.Location, cols.LocationOffset, false, "location"); err != nil {
		return 0, err
	}
	if err := checkRagged(n, cols.Metadata, cols.MetadataOffset, false, "metadata"); err != nil {
		return 0, err
	}
	return n, nil
}

// AppendColumns appends rows in bulk.
func (t *IndividualTable) AppendColumns(cols IndividualColumns) error {
	n, err := t.checkColumns(cols)
	if err != nil {
		return err
	}
	if err := checkTableOverflow(t.NumRows(), n); err != nil {
		return err
	}
	if err := checkColumnOverflow(len(t.Location), len(cols.Location)); err != nil {
		return err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(cols.Metadata)); err != nil {
		return err
	}
	t.Flags = append(reserve(t.Flags, n, t.rowsIncrement), cols.Flags...)
	if cols.LocationOffset != nil {
		t.Location, t.LocationOffset = raggedExtend(t.Location, t.LocationOffset, cols.Location, cols.LocationOffset, t.sizing)
	} else {
		t.LocationOffset = raggedEmpty(t.LocationOffset, n, t.sizing)
	}
	if cols.MetadataOffset != nil {
		t.Metadata, t.MetadataOffset = raggedExtend(t.Metadata, t.MetadataOffset, cols.Metadata, cols.MetadataOffset, t.sizing)
	} else {
		t.MetadataOffset = raggedEmpty(t.MetadataOffset, n, t.sizing)
	}
	return nil
}

// SetColumns replaces the table contents.
func (t *IndividualTable) SetColumns(cols IndividualColumns) error {
	if _, err := t.checkColumns(cols); err != nil {
		return err
	}
	t.Clear()
	return t.AppendColumns(cols)
}

// Row returns a view of individual j.
func (t *IndividualTable) Row(j int32) (Individual, error) {
	if j < 0 || int(j) >= t.NumRows() {
		return Individual{}, errors.Coded(errors.CodeIndividualOutOfBounds).WithDetail("individual", j)
	}
	return t.row(int(j)), nil
}

func (t *IndividualTable) row(j int) Individual {
	return Individual{
		ID:       int32(j),
		Flags:    t.Flags[j],
		Location: raggedValue(t.Location, t.LocationOffset, j),
		Metadata: raggedValue(t.Metadata, t.MetadataOffset, j),
	}
}

// Truncate drops all rows from n onwards.
func (t *IndividualTable) Truncate(n int) error {
	if n < 0 || n > t.NumRows() {
		return errors.Coded(errors.CodeBadTablePosition).WithDetail("table", "individuals").WithDetail("rows", n)
	}
	t.Flags = t.Flags[:n]
	t.Location, t.LocationOffset = raggedTruncate(t.Location, t.LocationOffset, n)
	t.Metadata, t.MetadataOffset = raggedTruncate(t.Metadata, t.MetadataOffset, n)
	return nil
}

// Clear removes every row.
func (t *IndividualTable) Clear() {
	if t.MetadataOffset == nil {
		t.Flags = make([]uint32, 0, 1)
		t.Location = make([]float64, 0, 1)
		t.LocationOffset = newOffsets(t.sizing)
		t.Metadata = make([]byte, 0, 1)
		t.MetadataOffset = newOffsets(t.sizing)
		return
	}
	_ = t.Truncate(0)
}

// Equals reports whether both tables hold the same rows and schema.
func (t *IndividualTable) Equals(o *IndividualTable) bool {
	return t.NumRows() == o.NumRows() &&
		t.MetadataSchema == o.MetadataSchema &&
		equalSlices(t.Flags, o.Flags) &&
		equalSlices(t.LocationOffset, o.LocationOffset) &&
		equalFloats(t.Location, o.Location) &&
		equalSlices(t.MetadataOffset, o.MetadataOffset) &&
		bytes.Equal(t.Metadata, o.Metadata)
}

// Copy returns a deep copy.
func (t *IndividualTable) Copy() *IndividualTable {
	return &IndividualTable{
		sizing:         t.sizing,
		Flags:          clone(t.Flags),
		Location:       clone(t.Location),
		LocationOffset: clone(t.LocationOffset),
		Metadata:       clone(t.Metadata),
		MetadataOffset: clone(t.MetadataOffset),
		MetadataSchema: t.MetadataSchema,
	}
}

// Columns returns the table's columns, sharing storage.
func (t *IndividualTable) Columns() IndividualColumns {
	return IndividualColumns{
		Flags:          t.Flags,
		Location:       t.Location,
		LocationOffset: t.LocationOffset,
		Metadata:       t.Metadata,
		MetadataOffset: t.MetadataOffset,
	}
}

func (t *IndividualTable) checkOffsets() error {
	n := t.NumRows()
	if err := checkOffsets(n, t.LocationOffset, len(t.Location), true); err != nil {
		return err
	}
	return checkOffsets(n, t.MetadataOffset, len(t.Metadata), true)
}
