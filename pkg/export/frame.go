package export

import (
	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/tables"
)

// Kind is the logical type of an exported column.
type Kind int

const (
	KindInt32 Kind = iota
	KindUint32
	KindFloat64
	// KindBytes is a ragged byte column such as metadata.
	KindBytes
	// KindString is a ragged byte column holding text.
	KindString
	// KindFloat64List is a ragged float64 column such as location.
	KindFloat64List
)

// Column is a read-only view of one table column. Ragged kinds carry
// their data and offsets; the others carry one value per row.
type Column struct {
	Name    string
	Kind    Kind
	Int32   []int32
	Uint32  []uint32
	Float64 []float64
	Bytes   []byte
	Offsets []uint32
}

// Value returns row j as a Go value: int32, uint32, float64, []byte,
// string or []float64.
func (c *Column) Value(j int) interface{} {
	switch c.Kind {
	case KindInt32:
		return c.Int32[j]
	case KindUint32:
		return c.Uint32[j]
	case KindFloat64:
		return c.Float64[j]
	case KindBytes:
		return c.Bytes[c.Offsets[j]:c.Offsets[j+1]]
	case KindString:
		return string(c.Bytes[c.Offsets[j]:c.Offsets[j+1]])
	default:
		return c.Float64[c.Offsets[j]:c.Offsets[j+1]]
	}
}

// Frame is one table laid out as named columns. The first column is
// always the row id.
type Frame struct {
	Table   string
	Rows    int
	Columns []Column
}

// NewFrame builds a frame over the named table of tc. The frame shares
// memory with tc and is invalid once tc changes.
func NewFrame(tc *tables.Collection, table string) (*Frame, error) {
	f := &Frame{Table: table}
	switch table {
	case "nodes":
		t := tc.Nodes
		f.Rows = t.NumRows()
		f.Columns = []Column{
			{Name: "flags", Kind: KindUint32, Uint32: t.Flags},
			{Name: "time", Kind: KindFloat64, Float64: t.Time},
			{Name: "population", Kind: KindInt32, Int32: t.Population},
			{Name: "individual", Kind: KindInt32, Int32: t.Individual},
			metadata(t.Metadata, t.MetadataOffset),
		}
	case "edges":
		t := tc.Edges
		f.Rows = t.NumRows()
		f.Columns = []Column{
			{Name: "left", Kind: KindFloat64, Float64: t.Left},
			{Name: "right", Kind: KindFloat64, Float64: t.Right},
			{Name: "parent", Kind: KindInt32, Int32: t.Parent},
			{Name: "child", Kind: KindInt32, Int32: t.Child},
		}
		if !t.MetadataDisabled() {
			f.Columns = append(f.Columns, metadata(t.Metadata, t.MetadataOffset))
		}
	case "sites":
		t := tc.Sites
		f.Rows = t.NumRows()
		f.Columns = []Column{
			{Name: "position", Kind: KindFloat64, Float64: t.Position},
			{Name: "ancestral_state", Kind: KindString, Bytes: t.AncestralState, Offsets: t.AncestralStateOffset},
			metadata(t.Metadata, t.MetadataOffset),
		}
	case "mutations":
		t := tc.Mutations
		f.Rows = t.NumRows()
		f.Columns = []Column{
			{Name: "site", Kind: KindInt32, Int32: t.Site},
			{Name: "node", Kind: KindInt32, Int32: t.Node},
			{Name: "parent", Kind: KindInt32, Int32: t.Parent},
			{Name: "time", Kind: KindFloat64, Float64: t.Time},
			{Name: "derived_state", Kind: KindString, Bytes: t.DerivedState, Offsets: t.DerivedStateOffset},
			metadata(t.Metadata, t.MetadataOffset),
		}
	case "migrations":
		t := tc.Migrations
		f.Rows = t.NumRows()
		f.Columns = []Column{
			{Name: "left", Kind: KindFloat64, Float64: t.Left},
			{Name: "right", Kind: KindFloat64, Float64: t.Right},
			{Name: "node", Kind: KindInt32, Int32: t.Node},
			{Name: "source", Kind: KindInt32, Int32: t.Source},
			{Name: "dest", Kind: KindInt32, Int32: t.Dest},
			{Name: "time", Kind: KindFloat64, Float64: t.Time},
			metadata(t.Metadata, t.MetadataOffset),
		}
	case "individuals":
		t := tc.Individuals
		f.Rows = t.NumRows()
		f.Columns = []Column{
			{Name: "flags", Kind: KindUint32, Uint32: t.Flags},
			{Name: "location", Kind: KindFloat64List, Float64: t.Location, Offsets: t.LocationOffset},
			metadata(t.Metadata, t.MetadataOffset),
		}
	case "populations":
		t := tc.Populations
		f.Rows = t.NumRows()
		f.Columns = []Column{metadata(t.Metadata, t.MetadataOffset)}
	case "provenances":
		t := tc.Provenances
		f.Rows = t.NumRows()
		f.Columns = []Column{
			{Name: "timestamp", Kind: KindString, Bytes: t.Timestamp, Offsets: t.TimestampOffset},
			{Name: "record", Kind: KindString, Bytes: t.Record, Offsets: t.RecordOffset},
		}
	default:
		return nil, errors.Coded(errors.CodeBadParam).WithDetail("table", table)
	}

	ids := make([]int32, f.Rows)
	for j := range ids {
		ids[j] = int32(j)
	}
	f.Columns = append([]Column{{Name: "id", Kind: KindInt32, Int32: ids}}, f.Columns...)
	return f, nil
}

func metadata(data []byte, offsets []uint32) Column {
	return Column{Name: "metadata", Kind: KindBytes, Bytes: data, Offsets: offsets}
}

// Row returns row j as a map from column name to value.
func (f *Frame) Row(j int) map[string]interface{} {
	row := make(map[string]interface{}, len(f.Columns))
	for i := range f.Columns {
		row[f.Columns[i].Name] = f.Columns[i].Value(j)
	}
	return row
}
