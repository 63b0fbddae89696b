package tables

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

func TestNodeTableAddRow(t *testing.T) {
	nodes := NewNodeTable(TableOptions{RowsIncrement: 1, LengthIncrement: 1})
	for j := 0; j < 5; j++ {
		id, err := nodes.AddRow(NodeIsSample, float64(j), Null, Null, []byte{byte(j), byte(j)})
		require.NoError(t, err)
		assert.Equal(t, int32(j), id)
	}
	assert.Equal(t, 5, nodes.NumRows())
	assert.Equal(t, []uint32{0, 2, 4, 6, 8, 10}, nodes.MetadataOffset)

	row, err := nodes.Row(3)
	require.NoError(t, err)
	assert.Equal(t, Node{ID: 3, Flags: NodeIsSample, Time: 3, Population: Null, Individual: Null, Metadata: []byte{3, 3}}, row)

	_, err = nodes.Row(5)
	assert.True(t, errors.IsCode(err, errors.CodeNodeOutOfBounds))
	_, err = nodes.Row(-1)
	assert.True(t, errors.IsCode(err, errors.CodeNodeOutOfBounds))
}

func TestTableTruncate(t *testing.T) {
	nodes := NewNodeTable(TableOptions{})
	for j := 0; j < 4; j++ {
		_, err := nodes.AddRow(0, float64(j), Null, Null, []byte("xy"))
		require.NoError(t, err)
	}
	snapshot := nodes.Copy()

	require.NoError(t, nodes.Truncate(2))
	assert.Equal(t, 2, nodes.NumRows())
	assert.Len(t, nodes.Metadata, 4)
	assert.Equal(t, []uint32{0, 2, 4}, nodes.MetadataOffset)

	err := nodes.Truncate(3)
	assert.True(t, errors.IsCode(err, errors.CodeBadTablePosition))
	err = nodes.Truncate(-1)
	assert.True(t, errors.IsCode(err, errors.CodeBadTablePosition))

	require.NoError(t, snapshot.Truncate(4))
	assert.Equal(t, 4, snapshot.NumRows())

	nodes.Clear()
	assert.Equal(t, 0, nodes.NumRows())
	assert.Equal(t, []uint32{0}, nodes.MetadataOffset)
	require.NoError(t, nodes.checkOffsets())
}

func TestAppendColumns(t *testing.T) {
	tests := []struct {
		name string
		cols NodeColumns
		code errors.Code
		rows int
	}{
		{
			name: "defaults",
			cols: NodeColumns{Flags: []uint32{1, 0}, Time: []float64{0, 1}},
			rows: 2,
		},
		{
			name: "with metadata",
			cols: NodeColumns{
				Flags:          []uint32{1, 0},
				Time:           []float64{0, 1},
				Metadata:       []byte("abc"),
				MetadataOffset: []uint32{0, 1, 3},
			},
			rows: 2,
		},
		{
			name: "missing time",
			cols: NodeColumns{Flags: []uint32{1}},
			code: errors.CodeBadParam,
		},
		{
			name: "short column",
			cols: NodeColumns{Flags: []uint32{1, 0}, Time: []float64{0}},
			code: errors.CodeColumnLengthMismatch,
		},
		{
			name: "metadata without offsets",
			cols: NodeColumns{Flags: []uint32{1}, Time: []float64{0}, Metadata: []byte("a")},
			code: errors.CodeBadParam,
		},
		{
			name: "decreasing offsets",
			cols: NodeColumns{
				Flags:          []uint32{1, 0},
				Time:           []float64{0, 1},
				Metadata:       []byte("abc"),
				MetadataOffset: []uint32{0, 3, 2},
			},
			code: errors.CodeBadOffset,
		},
		{
			name: "last offset past data",
			cols: NodeColumns{
				Flags:          []uint32{1},
				Time:           []float64{0},
				Metadata:       []byte("a"),
				MetadataOffset: []uint32{0, 2},
			},
			code: errors.CodeBadOffset,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := NewNodeTable(TableOptions{})
			_, err := nodes.AddRow(0, 5, Null, Null, []byte("z"))
			require.NoError(t, err)

			err = nodes.AppendColumns(tt.cols)
			if tt.code != "" {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
				assert.Equal(t, 1, nodes.NumRows(), "failed append must not modify the table")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1+tt.rows, nodes.NumRows())
			assert.Equal(t, Null, nodes.Population[1])
			require.NoError(t, nodes.checkOffsets())
		})
	}
}

func TestSetColumnsReplaces(t *testing.T) {
	sites := NewSiteTable(TableOptions{})
	_, err := sites.AddRow(1, []byte("A"), nil)
	require.NoError(t, err)

	err = sites.SetColumns(SiteColumns{
		Position:             []float64{2, 3},
		AncestralState:       []byte("GT"),
		AncestralStateOffset: []uint32{0, 1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, sites.Position)
	row, err := sites.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("T"), row.AncestralState)
	assert.Empty(t, row.Metadata)

	err = sites.SetColumns(SiteColumns{Position: []float64{1}})
	assert.True(t, errors.IsCode(err, errors.CodeBadParam))
	assert.Equal(t, 2, sites.NumRows(), "invalid input must leave the table unchanged")
}

func TestTableEqualsAndCopy(t *testing.T) {
	muts := NewMutationTable(TableOptions{})
	_, err := muts.AddRow(0, 1, Null, UnknownTime, []byte("T"), nil)
	require.NoError(t, err)

	cp := muts.Copy()
	assert.True(t, muts.Equals(cp))
	assert.True(t, IsUnknownTime(cp.Time[0]))

	cp.DerivedState[0] = 'G'
	assert.False(t, muts.Equals(cp), "copies must not share storage")

	other := muts.Copy()
	other.MetadataSchema = `{"codec":"json"}`
	assert.False(t, muts.Equals(other))

	nan := muts.Copy()
	nan.Time[0] = math.NaN()
	assert.False(t, muts.Equals(nan), "unknown time differs from other NaN values")
}

func TestEdgeMetadataDisabled(t *testing.T) {
	edges := NewEdgeTableNoMetadata(TableOptions{})
	assert.True(t, edges.MetadataDisabled())

	_, err := edges.AddRow(0, 1, 1, 0, []byte("x"))
	assert.True(t, errors.IsCode(err, errors.CodeMetadataDisabled))
	_, err = edges.AddRow(0, 1, 1, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 0}, edges.MetadataOffset)

	err = edges.AppendColumns(EdgeColumns{
		Left: []float64{0}, Right: []float64{1}, Parent: []int32{1}, Child: []int32{0},
		Metadata: []byte("y"), MetadataOffset: []uint32{0, 1},
	})
	assert.True(t, errors.IsCode(err, errors.CodeMetadataDisabled))
	assert.True(t, edges.Copy().MetadataDisabled())
}

func TestIndividualLocation(t *testing.T) {
	inds := NewIndividualTable(TableOptions{})
	_, err := inds.AddRow(1, []float64{1, 2, 3}, nil)
	require.NoError(t, err)
	_, err = inds.AddRow(0, nil, []byte("m"))
	require.NoError(t, err)

	first, err := inds.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, first.Location)
	second, err := inds.Row(1)
	require.NoError(t, err)
	assert.Empty(t, second.Location)
	assert.Equal(t, []byte("m"), second.Metadata)
	assert.Equal(t, []uint32{0, 3, 3}, inds.LocationOffset)
}

func TestProvenanceRows(t *testing.T) {
	provs := NewProvenanceTable(TableOptions{})
	_, err := provs.AddRow("2026-10-19T12:00:00Z", `{"command":"sort"}`)
	require.NoError(t, err)

	row, err := provs.Row(0)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19T12:00:00Z", string(row.Timestamp))
	assert.Equal(t, `{"command":"sort"}`, string(row.Record))

	_, err = provs.Row(1)
	assert.True(t, errors.IsCode(err, errors.CodeProvenanceOutOfBounds))
}

func TestSquashEdges(t *testing.T) {
	tests := []struct {
		name string
		in   []Edge
		want []Edge
		code errors.Code
	}{
		{
			name: "merges abutting intervals",
			in: []Edge{
				{Left: 5, Right: 10, Parent: 2, Child: 0},
				{Left: 0, Right: 5, Parent: 2, Child: 0},
				{Left: 0, Right: 3, Parent: 2, Child: 1},
			},
			want: []Edge{
				{Left: 0, Right: 10, Parent: 2, Child: 0},
				{Left: 0, Right: 3, Parent: 2, Child: 1},
			},
		},
		{
			name: "keeps gaps",
			in: []Edge{
				{Left: 0, Right: 2, Parent: 2, Child: 0},
				{Left: 3, Right: 4, Parent: 2, Child: 0},
			},
			want: []Edge{
				{Left: 0, Right: 2, Parent: 2, Child: 0},
				{Left: 3, Right: 4, Parent: 2, Child: 0},
			},
		},
		{
			name: "rejects overlap",
			in: []Edge{
				{Left: 0, Right: 5, Parent: 2, Child: 0},
				{Left: 4, Right: 8, Parent: 2, Child: 0},
			},
			code: errors.CodeBadEdgesContradictoryChildren,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SquashEdges(tt.in)
			if tt.code != "" {
				assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for j := range got {
				assert.Equal(t, tt.want[j].Left, got[j].Left)
				assert.Equal(t, tt.want[j].Right, got[j].Right)
				assert.Equal(t, tt.want[j].Parent, got[j].Parent)
				assert.Equal(t, tt.want[j].Child, got[j].Child)
			}
		})
	}
}

func TestEdgeTableSquash(t *testing.T) {
	edges := NewEdgeTable(TableOptions{})
	for _, iv := range [][2]float64{{4, 6}, {0, 2}, {2, 4}} {
		_, err := edges.AddRow(iv[0], iv[1], 1, 0, nil)
		require.NoError(t, err)
	}
	require.NoError(t, edges.Squash())
	assert.Equal(t, [][4]float64{{0, 6, 1, 0}}, edgeList(edges))

	_, err := edges.AddRow(6, 7, 1, 0, []byte("m"))
	require.NoError(t, err)
	assert.True(t, errors.IsCode(edges.Squash(), errors.CodeCantProcessEdgesWithMetadata))
}

func TestOverflowChecks(t *testing.T) {
	tests := []struct {
		name       string
		check      func(current, additional int) error
		current    int
		additional int
		code       errors.Code
	}{
		{"rows at limit", checkTableOverflow, int(MaxRows) - 1, 1, ""},
		{"rows past limit", checkTableOverflow, int(MaxRows), 1, errors.CodeTableOverflow},
		{"rows jump past limit", checkTableOverflow, 0, int(MaxRows) + 1, errors.CodeTableOverflow},
		{"rows negative", checkTableOverflow, 10, -1, errors.CodeTableOverflow},
		{"rows empty", checkTableOverflow, 0, 0, ""},
		{"column at limit", checkColumnOverflow, int(MaxColumnLength) - 5, 5, ""},
		{"column past limit", checkColumnOverflow, int(MaxColumnLength), 1, errors.CodeColumnOverflow},
		{"column jump past limit", checkColumnOverflow, 1, int(MaxColumnLength), errors.CodeColumnOverflow},
		{"column negative", checkColumnOverflow, 0, -3, errors.CodeColumnOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.current, tt.additional)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), err.Error())
			assert.True(t, errors.IsType(err, errors.ErrorTypeCapacity))
		})
	}
}
