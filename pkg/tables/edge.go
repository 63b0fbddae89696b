package tables

import (
	"bytes"
	"sort"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Edge is a view of one edge row.
type Edge struct {
	ID       int32
	Left     float64
	Right    float64
	Parent   int32
	Child    int32
	Metadata []byte
}

// EdgeColumns holds bulk column input.
type EdgeColumns struct {
	Left           []float64
	Right          []float64
	Parent         []int32
	Child          []int32
	Metadata       []byte
	MetadataOffset []uint32
}

// EdgeTable stores edges column by column. A table created with
// NewEdgeTableNoMetadata rejects non-empty metadata.
type EdgeTable struct {
	sizing
	Left           []float64
	Right          []float64
	Parent         []int32
	Child          []int32
	Metadata       []byte
	MetadataOffset []uint32
	MetadataSchema string

	noMetadata bool
}

// NewEdgeTable returns an empty edge table.
func NewEdgeTable(opts TableOptions) *EdgeTable {
	t := &EdgeTable{sizing: newSizing(opts)}
	t.Clear()
	return t
}

// NewEdgeTableNoMetadata returns an empty edge table with metadata disabled.
func NewEdgeTableNoMetadata(opts TableOptions) *EdgeTable {
	t := NewEdgeTable(opts)
	t.noMetadata = true
	return t
}

// MetadataDisabled reports whether the table rejects metadata.
func (t *EdgeTable) MetadataDisabled() bool {
	return t.noMetadata
}

// NumRows returns the number of edges.
func (t *EdgeTable) NumRows() int {
	return len(t.Left)
}

// AddRow appends an edge and returns its id.
func (t *EdgeTable) AddRow(left, right float64, parent, child int32, metadata []byte) (int32, error) {
	if t.noMetadata && len(metadata) > 0 {
		return Null, errors.Coded(errors.CodeMetadataDisabled).WithDetail("table", "edges")
	}
	if err := checkTableOverflow(t.NumRows(), 1); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(metadata)); err != nil {
		return Null, err
	}
	id := int32(t.NumRows())
	t.Left = append(reserve(t.Left, 1, t.rowsIncrement), left)
	t.Right = append(reserve(t.Right, 1, t.rowsIncrement), right)
	t.Parent = append(reserve(t.Parent, 1, t.rowsIncrement), parent)
	t.Child = append(reserve(t.Child, 1, t.rowsIncrement), child)
	t.Metadata, t.MetadataOffset = raggedPush(t.Metadata, t.MetadataOffset, metadata, t.sizing)
	return id, nil
}

func (t *EdgeTable) checkColumns(cols EdgeColumns) (int, error) {
	if cols.Left == nil || cols.Right == nil || cols.Parent == nil || cols.Child == nil {
		return 0, errors.Coded(errors.CodeBadParam).WithDetail("reason", "left, right, parent and child are required")
	}
	n := len(cols.Left)
	if err := checkColumnLength(n, len(cols.Right), "right"); err != nil {
		return 0, err
	}
	if err := checkColumnLength(n, len(cols.Parent), "parent"); err != nil {
		return 0, err
	}
	if err := checkColumnLength(n, len(cols.Child), "child"); err != nil {
		return 0, err
	}
	if err := checkRagged(n, cols.Metadata, cols.MetadataOffset, false, "metadata"); err != nil {
		return 0, err
	}
	if t.noMetadata && len(cols.Metadata) > 0 {
		return 0, errors.Coded(errors.CodeMetadataDisabled).WithDetail("table", "edges")
	}
	return n, nil
}

// AppendColumns appends rows in bulk.
func (t *EdgeTable) AppendColumns(cols EdgeColumns) error {
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
	t.Left = append(reserve(t.Left, n, t.rowsIncrement), cols.Left...)
	t.Right = append(reserve(t.Right, n, t.rowsIncrement), cols.Right...)
	t.Parent = append(reserve(t.Parent, n, t.rowsIncrement), cols.Parent...)
	t.Child = append(reserve(t.Child, n, t.rowsIncrement), cols.Child...)
	if cols.MetadataOffset != nil {
		t.Metadata, t.MetadataOffset = raggedExtend(t.Metadata, t.MetadataOffset, cols.Metadata, cols.MetadataOffset, t.sizing)
	} else {
		t.MetadataOffset = raggedEmpty(t.MetadataOffset, n, t.sizing)
	}
	return nil
}

// SetColumns replaces the table contents.
func (t *EdgeTable) SetColumns(cols EdgeColumns) error {
	if _, err := t.checkColumns(cols); err != nil {
		return err
	}
	t.Clear()
	return t.AppendColumns(cols)
}

// Row returns a view of edge j.
func (t *EdgeTable) Row(j int32) (Edge, error) {
	if j < 0 || int(j) >= t.NumRows() {
		return Edge{}, errors.Coded(errors.CodeEdgeOutOfBounds).WithDetail("edge", j)
	}
	return t.row(int(j)), nil
}

func (t *EdgeTable) row(j int) Edge {
	return Edge{
		ID:       int32(j),
		Left:     t.Left[j],
		Right:    t.Right[j],
		Parent:   t.Parent[j],
		Child:    t.Child[j],
		Metadata: raggedValue(t.Metadata, t.MetadataOffset, j),
	}
}

// Truncate drops all rows from n onwards.
func (t *EdgeTable) Truncate(n int) error {
	if n < 0 || n > t.NumRows() {
		return errors.Coded(errors.CodeBadTablePosition).WithDetail("table", "edges").WithDetail("rows", n)
	}
	t.Left = t.Left[:n]
	t.Right = t.Right[:n]
	t.Parent = t.Parent[:n]
	t.Child = t.Child[:n]
	t.Metadata, t.MetadataOffset = raggedTruncate(t.Metadata, t.MetadataOffset, n)
	return nil
}

// Clear removes every row.
func (t *EdgeTable) Clear() {
	if t.MetadataOffset == nil {
		t.Left = make([]float64, 0, 1)
		t.Right = make([]float64, 0, 1)
		t.Parent = make([]int32, 0, 1)
		t.Child = make([]int32, 0, 1)
		t.Metadata = make([]byte, 0, 1)
		t.MetadataOffset = newOffsets(t.sizing)
		return
	}
	_ = t.Truncate(0)
}

// Equals reports whether both tables hold the same rows and schema.
func (t *EdgeTable) Equals(o *EdgeTable) bool {
	return t.NumRows() == o.NumRows() &&
		t.MetadataSchema == o.MetadataSchema &&
		equalFloats(t.Left, o.Left) &&
		equalFloats(t.Right, o.Right) &&
		equalSlices(t.Parent, o.Parent) &&
		equalSlices(t.Child, o.Child) &&
		equalSlices(t.MetadataOffset, o.MetadataOffset) &&
		bytes.Equal(t.Metadata, o.Metadata)
}

// Copy returns a deep copy.
func (t *EdgeTable) Copy() *EdgeTable {
	return &EdgeTable{
		sizing:         t.sizing,
		Left:           clone(t.Left),
		Right:          clone(t.Right),
		Parent:         clone(t.Parent),
		Child:          clone(t.Child),
		Metadata:       clone(t.Metadata),
		MetadataOffset: clone(t.MetadataOffset),
		MetadataSchema: t.MetadataSchema,
		noMetadata:     t.noMetadata,
	}
}

// Columns returns the table's columns, sharing storage.
func (t *EdgeTable) Columns() EdgeColumns {
	return EdgeColumns{
		Left:           t.Left,
		Right:          t.Right,
		Parent:         t.Parent,
		Child:          t.Child,
		Metadata:       t.Metadata,
		MetadataOffset: t.MetadataOffset,
	}
}

func (t *EdgeTable) checkOffsets() error {
	return checkOffsets(t.NumRows(), t.MetadataOffset, len(t.Metadata), true)
}

// Squash merges edges with the same parent and child whose intervals abut.
// The table is left sorted by (parent, child, left). Rows move even when
// nothing merges, so the edges of a collection should be squashed through
// Collection.SquashEdges, which also drops the index.
func (t *EdgeTable) Squash() error {
	if len(t.Metadata) > 0 {
		return errors.Coded(errors.CodeCantProcessEdgesWithMetadata)
	}
	edges := make([]Edge, t.NumRows())
	for j := range edges {
		edges[j] = t.row(j)
	}
	squashed, err := SquashEdges(edges)
	if err != nil {
		return err
	}
	t.Clear()
	for _, e := range squashed {
		if _, err := t.AddRow(e.Left, e.Right, e.Parent, e.Child, nil); err != nil {
			return err
		}
	}
	return nil
}

// SquashEdges sorts edges by (parent, child, left) and merges contiguous
// intervals for the same parent and child. Overlapping intervals for the
// same pair are rejected.
func SquashEdges(edges []Edge) ([]Edge, error) {
	for _, e := range edges {
		if len(e.Metadata) > 0 {
			return nil, errors.Coded(errors.CodeCantProcessEdgesWithMetadata)
		}
	}
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Parent != b.Parent {
			return a.Parent < b.Parent
		}
		if a.Child != b.Child {
			return a.Child < b.Child
		}
		return a.Left < b.Left
	})

	out := make([]Edge, 0, len(sorted))
	for _, e := range sorted {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Parent == e.Parent && last.Child == e.Child {
				if last.Right > e.Left {
					return nil, errors.Coded(errors.CodeBadEdgesContradictoryChildren).
						WithDetail("parent", e.Parent).
						WithDetail("child", e.Child)
				}
				if last.Right == e.Left {
					last.Right = e.Right
					continue
				}
			}
		}
		e.ID = int32(len(out))
		e.Metadata = nil
		out = append(out, e)
	}
	return out, nil
}
