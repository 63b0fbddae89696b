package tables

import (
	"bytes"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Mutation is a view of one mutation row.
type Mutation struct {
	ID           int32
	Site         int32
	Node         int32
	Parent       int32
	Time         float64
	DerivedState []byte
	Metadata     []byte
}

// MutationColumns holds bulk column input. Parent defaults to Null and Time
// to UnknownTime when nil.
type MutationColumns struct {
	Site               []int32
	Node               []int32
	Parent             []int32
	Time               []float64
	DerivedState       []byte
	DerivedStateOffset []uint32
	Metadata           []byte
	MetadataOffset     []uint32
}

// MutationTable stores mutations column by column.
type MutationTable struct {
	sizing
	Site               []int32
	Node               []int32
	Parent             []int32
	Time               []float64
	DerivedState       []byte
	DerivedStateOffset []uint32
	Metadata           []byte
	MetadataOffset     []uint32
	MetadataSchema     string
}

// NewMutationTable returns an empty mutation table.
func NewMutationTable(opts TableOptions) *MutationTable {
	t := &MutationTable{sizing: newSizing(opts)}
	t.Clear()
	return t
}

// NumRows returns the number of mutations.
func (t *MutationTable) NumRows() int {
	return len(t.Site)
}

// AddRow appends a mutation and returns its id.
func (t *MutationTable) AddRow(site, node, parent int32, time float64, derivedState, metadata []byte) (int32, error) {
	if err := checkTableOverflow(t.NumRows(), 1); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.DerivedState), len(derivedState)); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(metadata)); err != nil {
		return Null, err
	}
	id := int32(t.NumRows())
	t.Site = append(reserve(t.Site, 1, t.rowsIncrement), site)
	t.Node = append(reserve(t.Node, 1, t.rowsIncrement), node)
	t.Parent = append(reserve(t.Parent, 1, t.rowsIncrement), parent)
	t.Time = append(reserve(t.Time, 1, t.rowsIncrement), time)
	t.DerivedState, t.DerivedStateOffset = raggedPush(t.DerivedState, t.DerivedStateOffset, derivedState, t.sizing)
	t.Metadata, t.MetadataOffset = raggedPush(t.Metadata, t.MetadataOffset, metadata, t.sizing)
	return id, nil
}

func (t *MutationTable) checkColumns(cols MutationColumns) (int, error) {
	if cols.Site == nil || cols.Node == nil {
		return 0, errors.Coded(errors.CodeBadParam).WithDetail("reason", "site and node are required")
	}
	n := len(cols.Site)
	if err := checkColumnLength(n, len(cols.Node), "node"); err != nil {
		return 0, err
	}
	if cols.Parent != nil {
		if err := checkColumnLength(n, len(cols.Parent), "parent"); err != nil {
			return 0, err
		}
	}
	if cols.Time != nil {
		if err := checkColumnLength(n, len(cols.Time), "time"); err != nil {
			return 0, err
		}
	}
	if err := checkRagged(n, cols.DerivedState, cols.DerivedStateOffset, true, "derived_state"); err != nil {
		return 0, err
	}
	if err := checkRagged(n, cols.Metadata, cols.MetadataOffset, false, "metadata"); err != nil {
		return 0, err
	}
	return n, nil
}

// AppendColumns appends rows in bulk.
func (t *MutationTable) AppendColumns(cols MutationColumns) error {
	n, err := t.checkColumns(cols)
	if err != nil {
		return err
	}
	if err := checkTableOverflow(t.NumRows(), n); err != nil {
		return err
	}
	if err := checkColumnOverflow(len(t.DerivedState), len(cols.DerivedState)); err != nil {
		return err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(cols.Metadata)); err != nil {
		return err
	}
	t.Site = append(reserve(t.Site, n, t.rowsIncrement), cols.Site...)
	t.Node = append(reserve(t.Node, n, t.rowsIncrement), cols.Node...)
	if cols.Parent != nil {
		t.Parent = append(reserve(t.Parent, n, t.rowsIncrement), cols.Parent...)
	} else {
		t.Parent = append(reserve(t.Parent, n, t.rowsIncrement), fill(n, Null)...)
	}
	if cols.Time != nil {
		t.Time = append(reserve(t.Time, n, t.rowsIncrement), cols.Time...)
	} else {
		t.Time = append(reserve(t.Time, n, t.rowsIncrement), fill(n, UnknownTime)...)
	}
	t.DerivedState, t.DerivedStateOffset = raggedExtend(t.DerivedState, t.DerivedStateOffset,
		cols.DerivedState, cols.DerivedStateOffset, t.sizing)
	if cols.MetadataOffset != nil {
		t.Metadata, t.MetadataOffset = raggedExtend(t.Metadata, t.MetadataOffset, cols.Metadata, cols.MetadataOffset, t.sizing)
	} else {
		t.MetadataOffset = raggedEmpty(t.MetadataOffset, n, t.sizing)
	}
	return nil
}

// SetColumns replaces the table contents.
func (t *MutationTable) SetColumns(cols MutationColumns) error {
	if _, err := t.checkColumns(cols); err != nil {
		return err
	}
	t.Clear()
	return t.AppendColumns(cols)
}

// Row returns a view of mutation j.
func (t *MutationTable) Row(j int32) (Mutation, error) {
	if j < 0 || int(j) >= t.NumRows() {
		return Mutation{}, errors.Coded(errors.CodeMutationOutOfBounds).WithDetail("mutation", j)
	}
	return t.row(int(j)), nil
}

func (t *MutationTable) row(j int) Mutation {
	return Mutation{
		ID:           int32(j),
		Site:         t.Site[j],
		Node:         t.Node[j],
		Parent:       t.Parent[j],
		Time:         t.Time[j],
		DerivedState: raggedValue(t.DerivedState, t.DerivedStateOffset, j),
		Metadata:     raggedValue(t.Metadata, t.MetadataOffset, j),
	}
}

// Truncate drops all rows from n onwards.
func (t *MutationTable) Truncate(n int) error {
	if n < 0 || n > t.NumRows() {
		return errors.Coded(errors.CodeBadTablePosition).WithDetail("table", "mutations").WithDetail("rows", n)
	}
	t.Site = t.Site[:n]
	t.Node = t.Node[:n]
	t.Parent = t.Parent[:n]
	t.Time = t.Time[:n]
	t.DerivedState, t.DerivedStateOffset = raggedTruncate(t.DerivedState, t.DerivedStateOffset, n)
	t.Metadata, t.MetadataOffset = raggedTruncate(t.Metadata, t.MetadataOffset, n)
	return nil
}

// Clear removes every row.
func (t *MutationTable) Clear() {
	if t.MetadataOffset == nil {
		t.Site = make([]int32, 0, 1)
		t.Node = make([]int32, 0, 1)
		t.Parent = make([]int32, 0, 1)
		t.Time = make([]float64, 0, 1)
		t.DerivedState = make([]byte, 0, 1)
		t.DerivedStateOffset = newOffsets(t.sizing)
		t.Metadata = make([]byte, 0, 1)
		t.MetadataOffset = newOffsets(t.sizing)
		return
	}
	_ = t.Truncate(0)
}

// Equals reports whether both tables hold the same rows and schema. Unknown
// times compare equal to each other.
func (t *MutationTable) Equals(o *MutationTable) bool {
	return t.NumRows() == o.NumRows() &&
		t.MetadataSchema == o.MetadataSchema &&
		equalSlices(t.Site, o.Site) &&
		equalSlices(t.Node, o.Node) &&
		equalSlices(t.Parent, o.Parent) &&
		equalFloats(t.Time, o.Time) &&
		equalSlices(t.DerivedStateOffset, o.DerivedStateOffset) &&
		bytes.Equal(t.DerivedState, o.DerivedState) &&
		equalSlices(t.MetadataOffset, o.MetadataOffset) &&
		bytes.Equal(t.Metadata, o.Metadata)
}

// Copy returns a deep copy.
func (t *MutationTable) Copy() *MutationTable {
	return &MutationTable{
		sizing:             t.sizing,
		Site:               clone(t.Site),
		Node:               clone(t.Node),
		Parent:             clone(t.Parent),
		Time:               clone(t.Time),
		DerivedState:       clone(t.DerivedState),
		DerivedStateOffset: clone(t.DerivedStateOffset),
		Metadata:           clone(t.Metadata),
		MetadataOffset:     clone(t.MetadataOffset),
		MetadataSchema:     t.MetadataSchema,
	}
}

// Columns returns the table's columns, sharing storage.
func (t *MutationTable) Columns() MutationColumns {
	return MutationColumns{
		Site:               t.Site,
		Node:               t.Node,
		Parent:             t.Parent,
		Time:               t.Time,
		DerivedState:       t.DerivedState,
		DerivedStateOffset: t.DerivedStateOffset,
		Metadata:           t.Metadata,
		MetadataOffset:     t.MetadataOffset,
	}
}

func (t *MutationTable) checkOffsets() error {
	n := t.NumRows()
	if err := checkOffsets(n, t.DerivedStateOffset, len(t.DerivedState), true); err != nil {
		return err
	}
	return checkOffsets(n, t.MetadataOffset, len(t.Metadata), true)
}
