package tables

import (
	"bytes"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Migration is a view of one migration row.
type Migration struct {
	ID       int32
	Left     float64
	Right    float64
	Node     int32
	Source   int32
	Dest     int32
	Time     float64
	Metadata []byte
}

// MigrationColumns holds bulk column input.
type MigrationColumns struct {
	Left           []float64
	Right          []float64
	Node           []int32
	Source         []int32
	Dest           []int32
	Time           []float64
	Metadata       []byte
	MetadataOffset []uint32
}

// MigrationTable stores migrations column by column.
type MigrationTable struct {
	sizing
	Left           []float64
	Right          []float64
	Node           []int32
	Source         []int32
	Dest           []int32
	Time           []float64
	Metadata       []byte
	MetadataOffset []uint32
	MetadataSchema string
}

// NewMigrationTable returns an empty migration table.
func NewMigrationTable(opts TableOptions) *MigrationTable {
	t := &MigrationTable{sizing: newSizing(opts)}
	t.Clear()
	return t
}

// NumRows returns the number of migrations.
func (t *MigrationTable) NumRows() int {
	return len(t.Left)
}

// AddRow appends a migration and returns its id.
func (t *MigrationTable) AddRow(left, right float64, node, source, dest int32, time float64, metadata []byte) (int32, error) {
	if err := checkTableOverflow(t.NumRows(), 1); err != nil {
		return Null, err
	}
	if err := checkColumnOverflow(len(t.Metadata), len(metadata)); err != nil {
		return Null, err
	}
	id := int32(t.NumRows())
	t.Left = append(reserve(t.Left, 1, t.rowsIncrement), left)
	t.Right = append(reserve(t.Right, 1, t.rowsIncrement), right)
	t.Node = append(reserve(t.Node, 1, t.rowsIncrement), node)
	t.Source = append(reserve(t.Source, 1, t.rowsIncrement), source)
	t.Dest = append(reserve(t.Dest, 1, t.rowsIncrement), dest)
	t.Time = append(reserve(t.Time, 1, t.rowsIncrement), time)
	t.Metadata, t.MetadataOffset = raggedPush(t.Metadata, t.MetadataOffset, metadata, t.sizing)
	return id, nil
}

func (t *MigrationTable) checkColumns(cols MigrationColumns) (int, error) {
	if cols.Left == nil || cols.Right == nil || cols.Node == nil ||
		cols.Source == nil || cols.Dest == nil || cols.Time == nil {
		return 0, errors.Coded(errors.CodeBadParam).
			WithDetail("reason", "left, right, node, source, dest and time are required")
	}
	n := len(cols.Left)
	lengths := []struct {
		name string
		got  int
	}{
		{"right", len(cols.Right)},
		{"node", len(cols.Node)},
		{"source", len(cols.Source)},
		{"dest", len(cols.Dest)},
		{"time", len(cols.Time)},
	}
	for _, l := range lengths {
		if err := checkColumnLength(n, l.got, l.name); err != nil {
			return 0, err
		}
	}
	if err := checkRagged(n, cols.Metadata, cols.MetadataOffset, false, "metadata"); err != nil {
		return 0, err
	}
	return n, nil
}

// AppendColumns appends rows in bulk.
func (t *MigrationTable) AppendColumns(cols MigrationColumns) error {
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
	t.Node = append(reserve(t.Node, n, t.rowsIncrement), cols.Node...)
	t.Source = append(reserve(t.Source, n, t.rowsIncrement), cols.Source...)
	t.Dest = append(reserve(t.Dest, n, t.rowsIncrement), cols.Dest...)
	t.Time = append(reserve(t.Time, n, t.rowsIncrement), cols.Time...)
	if cols.MetadataOffset != nil {
		t.Metadata, t.MetadataOffset = raggedExtend(t.Metadata, t.MetadataOffset, cols.Metadata, cols.MetadataOffset, t.sizing)
	} else {
		t.MetadataOffset = raggedEmpty(t.MetadataOffset, n, t.sizing)
	}
	return nil
}

// SetColumns replaces the table contents.
func (t *MigrationTable) SetColumns(cols MigrationColumns) error {
	if _, err := t.checkColumns(cols); err != nil {
		return err
	}
	t.Clear()
	return t.AppendColumns(cols)
}

// Row returns a view of migration j.
func (t *MigrationTable) Row(j int32) (Migration, error) {
	if j < 0 || int(j) >= t.NumRows() {
		return Migration{}, errors.Coded(errors.CodeMigrationOutOfBounds).WithDetail("migration", j)
	}
	return Migration{
		ID:       j,
		Left:     t.Left[j],
		Right:    t.Right[j],
		Node:     t.Node[j],
		Source:   t.Source[j],
		Dest:     t.Dest[j],
		Time:     t.Time[j],
		Metadata: raggedValue(t.Metadata, t.MetadataOffset, int(j)),
	}, nil
}

// Truncate drops all rows from n onwards.
func (t *MigrationTable) Truncate(n int) error {
	if n < 0 || n > t.NumRows() {
		return errors.Coded(errors.CodeBadTablePosition).WithDetail("table", "migrations").WithDetail("rows", n)
	}
	t.Left = t.Left[:n]
	t.Right = t.Right[:n]
	t.Node = t.Node[:n]
	t.Source = t.Source[:n]
	t.Dest = t.Dest[:n]
	t.Time = t.Time[:n]
	t.Metadata, t.MetadataOffset = raggedTruncate(t.Metadata, t.MetadataOffset, n)
	return nil
}

// Clear removes every row.
func (t *MigrationTable) Clear() {
	if t.MetadataOffset == nil {
		t.Left = make([]float64, 0, 1)
		t.Right = make([]float64, 0, 1)
		t.Node = make([]int32, 0, 1)
		t.Source = make([]int32, 0, 1)
		t.Dest = make([]int32, 0, 1)
		t.Time = make([]float64, 0, 1)
		t.Metadata = make([]byte, 0, 1)
		t.MetadataOffset = newOffsets(t.sizing)
		return
	}
	_ = t.Truncate(0)
}

// Equals reports whether both tables hold the same rows and schema.
func (t *MigrationTable) Equals(o *MigrationTable) bool {
	return t.NumRows() == o.NumRows() &&
		t.MetadataSchema == o.MetadataSchema &&
		equalFloats(t.Left, o.Left) &&
		equalFloats(t.Right, o.Right) &&
		equalSlices(t.Node, o.Node) &&
		equalSlices(t.Source, o.Source) &&
		equalSlices(t.Dest, o.Dest) &&
		equalFloats(t.Time, o.Time) &&
		equalSlices(t.MetadataOffset, o.MetadataOffset) &&
		bytes.Equal(t.Metadata, o.Metadata)
}

// Copy returns a deep copy.
func (t *MigrationTable) Copy() *MigrationTable {
	return &MigrationTable{
		sizing:         t.sizing,
		Left:           clone(t.Left),
		Right:          clone(t.Right),
		Node:           clone(t.Node),
		Source:         clone(t.Source),
		Dest:           clone(t.Dest),
		Time:           clone(t.Time),
		Metadata:       clone(t.Metadata),
		MetadataOffset: clone(t.MetadataOffset),
		MetadataSchema: t.MetadataSchema,
	}
}

// Columns returns the table's columns, sharing storage.
func (t *MigrationTable) Columns() MigrationColumns {
	return MigrationColumns{
		Left:           t.Left,
		Right:          t.Right,
		Node:           t.Node,
		Source:         t.Source,
		Dest:           t.Dest,
		Time:           t.Time,
		Metadata:       t.Metadata,
		MetadataOffset: t.MetadataOffset,
	}
}

func (t *MigrationTable) checkOffsets() error {
	return checkOffsets(t.NumRows(), t.MetadataOffset, len(t.Metadata), true)
}
