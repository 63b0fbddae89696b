package tables

import (
	"bytes"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Node is a read-only view of one node row. Metadata borrows from the table.
type Node struct {
	ID         int32
	Flags      uint32
	Time       float64
	Population int32
	Individual int32
	Metadata   []byte
}

// NodeColumns holds bulk column input. Population and Individual default to
// Null when nil; Metadata and MetadataOffset are optional but paired.
type NodeColumns struct {
	Flags          []uint32
	Time           []float64
	Population     []int32
	Individual     []int32
	Metadata       []byte
	MetadataOffset []uint32
}

// NodeTable stores nodes column by column.
type NodeTable struct {
	sizing
	Flags          []uint32
	Time           []float64
	Population     []int32
	Individual     []int32
	Metadata       []byte
	MetadataOffset []uint32
	MetadataSchema string
}

// NewNodeTable returns an empty node table.
func NewNodeTable(opts TableOptions) *NodeTable {
	t := &NodeTable{sizing: newSizing(opts)}
	t.Clear()
	return t
}

// NumRows returns the number of nodes.
func (t *NodeTable) NumRows() int {
	return len(t.Flags)
}

// AddRow appends a node and returns its id.
func (t *NodeTable) AddRow(flags uint32, time float64, population, individual int32, metadata []byte) (int32, error) {
	if err := checkTableOverflow(t.NumRows(), 1); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(metadata)); err != nil {
		return Null, err
	}
	id := int32(t.NumRows())
	t.Flags = append(reserve(t.Flags, 1, t.rowsIncrement), flags)
	t.Time = append(reserve(t.Time, 1, t.rowsIncrement), time)
	t.Population = append(reserve(t.Population, 1, t.rowsIncrement), population)
	t.Individual = append(reserve(t.Individual, 1, t.rowsIncrement), individual)
	t.Metadata, t.MetadataOffset = raggedPush(t.Metadata, t.MetadataOffset, metadata, t.sizing)
	return id, nil
}

func (t *NodeTable) checkColumns(cols NodeColumns) (int, error) {
	if cols.Flags == nil || cols.Time == nil {
		return 0, errors.Coded(errors.CodeBadParam).WithDetail("reason", "flags and time are required")
	}
	n := len(cols.Flags)
	if err := checkColumnLength(n, len(cols.Time), "time"); err != nil {
		return 0, err
	}
	if cols.Population != nil {
		if err := checkColumnLength(n, len(cols.Population), "population"); err != nil {
			return 0, err
		}
	}
	if cols.Individual != nil {
		if err := checkColumnLength(n, len(cols.Individual), "individual"); err != nil {
			return 0, err
		}
	}
	if err := checkRagged(n, cols.Metadata, cols.MetadataOffset, false, "metadata"); err != nil {
		return 0, err
	}
	return n, nil
}

// AppendColumns appends rows in bulk. Input is validated fully before the
// table is modified.
func (t *NodeTable) AppendColumns(cols NodeColumns) error {
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

	t.Flags = append(reserve(t.Flags, n, t.rowsIncrement), cols.Flags...)
	t.Time = append(reserve(t.Time, n, t.rowsIncrement), cols.Time...)
	if cols.Population != nil {
		t.Population = append(reserve(t.Population, n, t.rowsIncrement), cols.Population...)
	} else {
		t.Population = append(reserve(t.Population, n, t.rowsIncrement), fill(n, Null)...)
	}
	if cols.Individual != nil {
		t.Individual = append(reserve(t.Individual, n, t.rowsIncrement), cols.Individual...)
	} else {
		t.Individual = append(reserve(t.Individual, n, t.rowsIncrement), fill(n, Null)...)
	}
	if cols.MetadataOffset != nil {
		t.Metadata, t.MetadataOffset = raggedExtend(t.Metadata, t.MetadataOffset, cols.Metadata, cols.MetadataOffset, t.sizing)
	} else {
		t.MetadataOffset = raggedEmpty(t.MetadataOffset, n, t.sizing)
	}
	return nil
}

// SetColumns replaces the table contents.
func (t *NodeTable) SetColumns(cols NodeColumns) error {
	if _, err := t.checkColumns(cols); err != nil {
		return err
	}
	t.Clear()
	return t.AppendColumns(cols)
}

// Row returns a view of node j.
func (t *NodeTable) Row(j int32) (Node, error) {
	if j < 0 || int(j) >= t.NumRows() {
		return Node{}, errors.Coded(errors.CodeNodeOutOfBounds).WithDetail("node", j)
	}
	return t.row(int(j)), nil
}

func (t *NodeTable) row(j int) Node {
	return Node{
		ID:         int32(j),
		Flags:      t.Flags[j],
		Time:       t.Time[j],
		Population: t.Population[j],
		Individual: t.Individual[j],
		Metadata:   raggedValue(t.Metadata, t.MetadataOffset, j),
	}
}

// Truncate drops all rows from n onwards.
func (t *NodeTable) Truncate(n int) error {
	if n < 0 || n > t.NumRows() {
		return errors.Coded(errors.CodeBadTablePosition).WithDetail("table", "nodes").WithDetail("rows", n)
	}
	t.Flags = t.Flags[:n]
	t.Time = t.Time[:n]
	t.Population = t.Population[:n]
	t.Individual = t.Individual[:n]
	t.Metadata, t.MetadataOffset = raggedTruncate(t.Metadata, t.MetadataOffset, n)
	return nil
}

// Clear removes every row.
func (t *NodeTable) Clear() {
	if t.MetadataOffset == nil {
		t.Flags = make([]uint32, 0, 1)
		t.Time = make([]float64, 0, 1)
		t.Population = make([]int32, 0, 1)
		t.Individual = make([]int32, 0, 1)
		t.Metadata = make([]byte, 0, 1)
		t.MetadataOffset = newOffsets(t.sizing)
		return
	}
	_ = t.Truncate(0)
}

// Equals reports whether both tables hold the same rows and schema.
func (t *NodeTable) Equals(o *NodeTable) bool {
	return t.NumRows() == o.NumRows() &&
		t.MetadataSchema == o.MetadataSchema &&
		equalSlices(t.Flags, o.Flags) &&
		equalFloats(t.Time, o.Time) &&
		equalSlices(t.Population, o.Population) &&
		equalSlices(t.Individual, o.Individual) &&
		equalSlices(t.MetadataOffset, o.MetadataOffset) &&
		bytes.Equal(t.Metadata, o.Metadata)
}

// Copy returns a deep copy.
func (t *NodeTable) Copy() *NodeTable {
	return &NodeTable{
		sizing:         t.sizing,
		Flags:          clone(t.Flags),
		Time:           clone(t.Time),
		Population:     clone(t.Population),
		Individual:     clone(t.Individual),
		Metadata:       clone(t.Metadata),
		MetadataOffset: clone(t.MetadataOffset),
		MetadataSchema: t.MetadataSchema,
	}
}

// Columns returns the table's columns, sharing storage.
func (t *NodeTable) Columns() NodeColumns {
	return NodeColumns{
		Flags:          t.Flags,
		Time:           t.Time,
		Population:     t.Population,
		Individual:     t.Individual,
		Metadata:       t.Metadata,
		MetadataOffset: t.MetadataOffset,
	}
}

func (t *NodeTable) checkOffsets() error {
	return checkOffsets(t.NumRows(), t.MetadataOffset, len(t.Metadata), true)
}
