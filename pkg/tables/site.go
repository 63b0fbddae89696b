package tables

import (
	"bytes"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Site is a view of one site row.
type Site struct {
	ID             int32
	Position       float64
	AncestralState []byte
	Metadata       []byte
}

// SiteColumns holds bulk column input.
type SiteColumns struct {
	Position             []float64
	AncestralState       []byte
	AncestralStateOffset []uint32
	Metadata             []byte
	MetadataOffset       []uint32
}

// SiteTable stores sites column by column.
type SiteTable struct {
	sizing
	Position             []float64
	AncestralState       []byte
	AncestralStateOffset []uint32
	Metadata             []byte
	MetadataOffset       []uint32
	MetadataSchema       string
}

// NewSiteTable returns an empty site table.
func NewSiteTable(opts TableOptions) *SiteTable {
	t := &SiteTable{sizing: newSizing(opts)}
	t.Clear()
	return t
}

// NumRows returns the number of sites.
func (t *SiteTable) NumRows() int {
	return len(t.Position)
}

// AddRow appends a site and returns its id.
func (t *SiteTable) AddRow(position float64, ancestralState, metadata []byte) (int32, error) {
	if err := checkTableOverflow(t.NumRows(), 1); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.AncestralState), len(ancestralState)); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(metadata)); err != nil {
		return Null, err
	}
	id := int32(t.NumRows())
	t.Position = append(reserve(t.Position, 1, t.rowsIncrement), position)
	t.AncestralState, t.AncestralStateOffset = raggedPush(t.AncestralState, t.AncestralStateOffset, ancestralState, t.sizing)
	t.Metadata, t.MetadataOffset = raggedPush(t.Metadata, t.MetadataOffset, metadata, t.sizing)
	return id, nil
}

func (t *SiteTable) checkColumns(cols SiteColumns) (int, error) {
	if cols.Position == nil {
		return 0, errors.Coded(errors.CodeBadParam).WithDetail("reason", "position is required")
	}
	n := len(cols.Position)
	if err := checkRagged(n, cols.AncestralState, cols.AncestralStateOffset, true, "ancestral_state"); err != nil {
		return 0, err
	}
	if err := checkRagged(n, cols.Metadata, cols.MetadataOffset, false, "metadata"); err != nil {
		return 0, err
	}
	return n, nil
}

// AppendColumns appends rows in bulk.
func (t *SiteTable) AppendColumns(cols SiteColumns) error {
	n, err := t.checkColumns(cols)
	if err != nil {
		return err
	}
	if err := checkTableOverflow(t.NumRows(), n); err != nil {
		return err
	}
	if err := checkColumnOverflow(len(t.AncestralState), len(cols.AncestralState)); err != nil {
		return err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(cols.Metadata)); err != nil {
		return err
	}
	t.Position = append(reserve(t.Position, n, t.rowsIncrement), cols.Position...)
	t.AncestralState, t.AncestralStateOffset = raggedExtend(t.AncestralState, t.AncestralStateOffset,
		cols.AncestralState, cols.AncestralStateOffset, t.sizing)
	if cols.MetadataOffset != nil {
		t.Metadata, t.MetadataOffset = raggedExtend(t.Metadata, t.MetadataOffset, cols.Metadata, cols.MetadataOffset, t.sizing)
	} else {
		t.MetadataOffset = raggedEmpty(t.MetadataOffset, n, t.sizing)
	}
	return nil
}

// SetColumns replaces the table contents.
func (t *SiteTable) SetColumns(cols SiteColumns) error {
	if _, err := t.checkColumns(cols); err != nil {
		return err
	}
	t.Clear()
	return t.AppendColumns(cols)
}

// Row returns a view of site j.
func (t *SiteTable) Row(j int32) (Site, error) {
	if j < 0 || int(j) >= t.NumRows() {
		return Site{}, errors.Coded(errors.CodeSiteOutOfBounds).WithDetail("site", j)
	}
	return t.row(int(j)), nil
}

func (t *SiteTable) row(j int) Site {
	return Site{
		ID:             int32(j),
		Position:       t.Position[j],
		AncestralState: raggedValue(t.AncestralState, t.AncestralStateOffset, j),
		Metadata:       raggedValue(t.Metadata, t.MetadataOffset, j),
	}
}

// Truncate drops all rows from n onwards.
func (t *SiteTable) Truncate(n int) error {
	if n < 0 || n > t.NumRows() {
		return errors.Coded(errors.CodeBadTablePosition).WithDetail("table", "sites").WithDetail("rows", n)
	}
	t.Position = t.Position[:n]
	t.AncestralState, t.AncestralStateOffset = raggedTruncate(t.AncestralState, t.AncestralStateOffset, n)
	t.Metadata, t.MetadataOffset = raggedTruncate(t.Metadata, t.MetadataOffset, n)
	return nil
}

// Clear removes every row.
func (t *SiteTable) Clear() {
	if t.MetadataOffset == nil {
		t.Position = make([]float64, 0, 1)
		t.AncestralState = make([]byte, 0, 1)
		t.AncestralStateOffset = newOffsets(t.sizing)
		t.Metadata = make([]byte, 0, 1)
		t.MetadataOffset = newOffsets(t.sizing)
		return
	}
	_ = t.Truncate(0)
}

// Equals reports whether both tables hold the same rows and schema.
func (t *SiteTable) Equals(o *SiteTable) bool {
	return t.NumRows() == o.NumRows() &&
		t.MetadataSchema == o.MetadataSchema &&
		equalFloats(t.Position, o.Position) &&
		equalSlices(t.AncestralStateOffset, o.AncestralStateOffset) &&
		bytes.Equal(t.AncestralState, o.AncestralState) &&
		equalSlices(t.MetadataOffset, o.MetadataOffset) &&
		bytes.Equal(t.Metadata, o.Metadata)
}

// Copy returns a deep copy.
func (t *SiteTable) Copy() *SiteTable {
	return &SiteTable{
		sizing:               t.sizing,
		Position:             clone(t.Position),
		AncestralState:       clone(t.AncestralState),
		AncestralStateOffset: clone(t.AncestralStateOffset),
		Metadata:             clone(t.Metadata),
		MetadataOffset:       clone(t.MetadataOffset),
		MetadataSchema:       t.MetadataSchema,
	}
}

// Columns returns the table's columns, sharing storage.
func (t *SiteTable) Columns() SiteColumns {
	return SiteColumns{
		Position:             t.Position,
		AncestralState:       t.AncestralState,
		AncestralStateOffset: t.AncestralStateOffset,
		Metadata:             t.Metadata,
		MetadataOffset:       t.MetadataOffset,
	}
}

func (t *SiteTable) checkOffsets() error {
	n := t.NumRows()
	if err := checkOffsets(n, t.AncestralStateOffset, len(t.AncestralState), true); err != nil {
		return err
	}
	return checkOffsets(n, t.MetadataOffset, len(t.Metadata), true)
}
