package tables

import (
	"bytes"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Population is a view of one population row.
type Population struct {
	ID       int32
	Metadata []byte
}

// PopulationColumns holds bulk column input. Both columns are required.
type PopulationColumns struct {
	Metadata       []byte
	MetadataOffset []uint32
}

// PopulationTable stores populations. The row count is carried by the
// metadata offsets.
type PopulationTable struct {
	sizing
	Metadata       []byte
	MetadataOffset []uint32
	MetadataSchema string
}

// NewPopulationTable returns an empty population table.
func NewPopulationTable(opts TableOptions) *PopulationTable {
	t := &PopulationTable{sizing: newSizing(opts)}
	t.Clear()
	return t
}

// NumRows returns the number of populations.
func (t *PopulationTable) NumRows() int {
	return len(t.MetadataOffset) - 1
}

// AddRow appends a population and returns its id.
func (t *PopulationTable) AddRow(metadata []byte) (int32, error) {
	if err := checkTableOverflow(t.NumRows(), 1); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(metadata)); err != nil {
		return Null, err
	}
	id := int32(t.NumRows())
	t.Metadata, t.MetadataOffset = raggedPush(t.Metadata, t.MetadataOffset, metadata, t.sizing)
	return id, nil
}

func (t *PopulationTable) checkColumns(cols PopulationColumns) (int, error) {
	if cols.MetadataOffset == nil {
		return 0, errors.Coded(errors.CodeBadParam).WithDetail("reason", "metadata offsets are required")
	}
	n := len(cols.MetadataOffset) - 1
	if n < 0 {
		return 0, errors.Coded(errors.CodeBadOffset).WithDetail("column", "metadata")
	}
	if err := checkRagged(n, cols.Metadata, cols.MetadataOffset, true, "metadata"); err != nil {
		return 0, err
	}
	return n, nil
}

// AppendColumns appends rows in bulk.
func (t *PopulationTable) AppendColumns(cols PopulationColumns) error {
	n, err := t.checkColumns(cols)
	if err != nil {
		return err
	}
	if err := checkTableOverflow(t.NumRows(), n); err != nil {
		return err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(cols.Metadata)); err != nil {
		return err
	}
	t.Metadata, t.MetadataOffset = raggedExtend(t.Metadata, t.MetadataOffset, cols.Metadata, cols.MetadataOffset, t.sizing)
	return nil
}

// SetColumns replaces the table contents.
func (t *PopulationTable) SetColumns(cols PopulationColumns) error {
	if _, err := t.checkColumns(cols); err != nil {
		return err
	}
	t.Clear()
	return t.AppendColumns(cols)
}

// Row returns a view of population j.
func (t *PopulationTable) Row(j int32) (Population, error) {
	if j < 0 || int(j) >= t.NumRows() {
		return Population{}, errors.Coded(errors.CodePopulationOutOfBounds).WithDetail("population", j)
	}
	return t.row(int(j)), nil
}

func (t *PopulationTable) row(j int) Population {
	return Population{ID: int32(j), Metadata: raggedValue(t.Metadata, t.MetadataOffset, j)}
}

// Truncate drops all rows from n onwards.
func (t *PopulationTable) Truncate(n int) error {
	if n < 0 || n > t.NumRows() {
		return errors.Coded(errors.CodeBadTablePosition).WithDetail("table", "populations").WithDetail("rows", n)
	}
	t.Metadata, t.MetadataOffset = raggedTruncate(t.Metadata, t.MetadataOffset, n)
	return nil
}

// Clear removes every row.
func (t *PopulationTable) Clear() {
	if t.MetadataOffset == nil {
		t.Metadata = make([]byte, 0, 1)
		t.MetadataOffset = newOffsets(t.sizing)
		return
	}
	_ = t.Truncate(0)
}

// Equals reports whether both tables hold the same rows and schema.
func (t *PopulationTable) Equals(o *PopulationTable) bool {
	return t.NumRows() == o.NumRows() &&
		t.MetadataSchema == o.MetadataSchema &&
		equalSlices(t.MetadataOffset, o.MetadataOffset) &&
		bytes.Equal(t.Metadata, o.Metadata)
}

// Copy returns a deep copy.
func (t *PopulationTable) Copy() *PopulationTable {
	return &PopulationTable{
		sizing:         t.sizing,
		Metadata:       clone(t.Metadata),
		MetadataOffset: clone(t.MetadataOffset),
		MetadataSchema: t.MetadataSchema,
	}
}

// Columns returns the table's columns, sharing storage.
func (t *PopulationTable) Columns() PopulationColumns {
	return PopulationColumns{Metadata: t.Metadata, MetadataOffset: t.MetadataOffset}
}

func (t *PopulationTable) checkOffsets() error {
	return checkOffsets(t.NumRows(), t.MetadataOffset, len(t.Metadata), true)
}
