package tables

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// shuffled returns the fixture with edges reversed, sites reversed and
// mutations listed out of order.
func shuffled(t *testing.T) *Collection {
	t.Helper()
	tc := newFixture(t)
	edges := fixtureEdges()
	tc.Edges.Clear()
	for j := len(edges) - 1; j >= 0; j-- {
		e := edges[j]
		_, err := tc.Edges.AddRow(e.Left, e.Right, e.Parent, e.Child, nil)
		require.NoError(t, err)
	}

	tc.Sites.Clear()
	for _, s := range []struct {
		position float64
		state    string
	}{{7, "G"}, {4, "C"}, {1, "A"}} {
		_, err := tc.Sites.AddRow(s.position, []byte(s.state), nil)
		require.NoError(t, err)
	}

	tc.Mutations.Clear()
	muts := []struct {
		site, node, parent int32
		time               float64
		state              string
	}{
		{0, 4, Null, 2.5, "T"},
		{2, 0, 2, 0.5, "A"},
		{2, 3, Null, 1.5, "T"},
		{1, 2, Null, 0.5, "G"},
	}
	for _, m := range muts {
		_, err := tc.Mutations.AddRow(m.site, m.node, m.parent, m.time, []byte(m.state), nil)
		require.NoError(t, err)
	}
	return tc
}

func TestSortCanonical(t *testing.T) {
	tc := shuffled(t)
	_, err := tc.Check(CheckEdgeOrdering)
	require.Error(t, err)

	require.NoError(t, tc.Sort(nil, 0))
	assert.True(t, tc.Equals(newFixture(t)))
	assert.False(t, tc.HasIndex())

	require.NoError(t, tc.BuildIndex())
	_, err = tc.Check(CheckTrees)
	require.NoError(t, err)
}

func TestSortIdempotent(t *testing.T) {
	tc := shuffled(t)
	require.NoError(t, tc.Sort(nil, 0))
	once := tc.Copy()
	require.NoError(t, tc.Sort(nil, 0))
	assert.True(t, tc.Equals(once))
}

func TestSortDropsIndex(t *testing.T) {
	tc := newIndexedFixture(t)
	require.NoError(t, tc.Sort(nil, 0))
	assert.False(t, tc.HasIndex())
	assert.True(t, tc.Equals(newFixture(t)))
}

func TestSortEdgeMetadataFollowsEdges(t *testing.T) {
	tc := newFixture(t)
	edges := fixtureEdges()
	tc.Edges.Clear()
	for j := len(edges) - 1; j >= 0; j-- {
		e := edges[j]
		meta := []byte(fmt.Sprintf("%d-%d-%g", e.Parent, e.Child, e.Left))
		if j%2 == 0 {
			meta = nil
		}
		_, err := tc.Edges.AddRow(e.Left, e.Right, e.Parent, e.Child, meta)
		require.NoError(t, err)
	}

	require.NoError(t, tc.Sort(nil, 0))
	for j := 0; j < tc.Edges.NumRows(); j++ {
		e, err := tc.Edges.Row(int32(j))
		require.NoError(t, err)
		assert.Equal(t, edges[j].Parent, e.Parent)
		assert.Equal(t, edges[j].Child, e.Child)
		if j%2 == 0 {
			assert.Empty(t, e.Metadata)
		} else {
			assert.Equal(t, fmt.Sprintf("%d-%d-%g", e.Parent, e.Child, e.Left), string(e.Metadata))
		}
	}
	require.NoError(t, tc.Edges.checkOffsets())
}

func TestSortFromBookmark(t *testing.T) {
	tc := newFixture(t)
	tc.Edges.Parent[4], tc.Edges.Parent[2] = tc.Edges.Parent[2], tc.Edges.Parent[4]
	tc.Edges.Child[4], tc.Edges.Child[2] = tc.Edges.Child[2], tc.Edges.Child[4]
	tc.Edges.Left[4], tc.Edges.Left[2] = tc.Edges.Left[2], tc.Edges.Left[4]
	before := edgeList(tc.Edges)

	// Rows before the bookmark are left where they are.
	require.NoError(t, tc.Sort(&Bookmark{Edges: 3}, 0))
	after := edgeList(tc.Edges)
	assert.Equal(t, before[:3], after[:3])

	require.NoError(t, tc.Sort(&Bookmark{Edges: 2}, 0))
	assert.True(t, tc.Edges.Equals(newFixture(t).Edges))
}

func TestSortSkipsSites(t *testing.T) {
	tc := shuffled(t)
	b := &Bookmark{Sites: tc.Sites.NumRows(), Mutations: tc.Mutations.NumRows()}
	require.NoError(t, tc.Sort(b, 0))
	assert.Equal(t, []float64{7, 4, 1}, tc.Sites.Position)
	assert.True(t, tc.Edges.Equals(newFixture(t).Edges))
}

func TestSortErrors(t *testing.T) {
	tests := []struct {
		name   string
		start  *Bookmark
		mutate func(t *testing.T, tc *Collection)
		code   errors.Code
	}{
		{
			name:  "partial site offset",
			start: &Bookmark{Sites: 1},
			code:  errors.CodeSortOffsetNotSupported,
		},
		{
			name:  "edge offset past end",
			start: &Bookmark{Edges: 99},
			code:  errors.CodeEdgeOutOfBounds,
		},
		{
			name:  "migration offset",
			start: &Bookmark{Migrations: 1},
			code:  errors.CodeMigrationsNotSupported,
		},
		{
			name: "migrations present",
			mutate: func(t *testing.T, tc *Collection) {
				_, err := tc.Migrations.AddRow(0, 1, 0, 0, 1, 0.5, nil)
				require.NoError(t, err)
			},
			code: errors.CodeSortMigrationsNotSupported,
		},
		{
			name: "integrity failure",
			mutate: func(t *testing.T, tc *Collection) {
				tc.Edges.Child[0] = 42
			},
			code: errors.CodeNodeOutOfBounds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := shuffled(t)
			if tt.mutate != nil {
				tt.mutate(t, tc)
			}
			before := tc.Copy()
			err := tc.Sort(tt.start, 0)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
			assert.True(t, tc.Equals(before))
		})
	}
}

func TestSortUnknownTimesLast(t *testing.T) {
	tc := newFixture(t)
	tc.Mutations.Clear()
	_, err := tc.Mutations.AddRow(0, 3, Null, UnknownTime, []byte("T"), nil)
	require.NoError(t, err)
	_, err = tc.Mutations.AddRow(0, 0, Null, 0.5, []byte("A"), nil)
	require.NoError(t, err)
	_, err = tc.Mutations.AddRow(0, 1, Null, 0.7, []byte("C"), nil)
	require.NoError(t, err)

	require.NoError(t, tc.Sort(nil, 0))
	assert.Equal(t, []int32{1, 0, 3}, tc.Mutations.Node)
	assert.True(t, IsUnknownTime(tc.Mutations.Time[2]))
	_, err = tc.Check(CheckMutationOrdering)
	require.NoError(t, err)
}

func TestSortRemapsMutationParents(t *testing.T) {
	tc := shuffled(t)
	require.NoError(t, tc.Sort(nil, 0))
	assert.Equal(t, []int32{Null, 0, Null, Null}, tc.Mutations.Parent)
	assert.Equal(t, []int32{0, 0, 1, 2}, tc.Mutations.Site)
}

func TestDeduplicateSites(t *testing.T) {
	tc := newFixture(t)
	tc.Sites.Position[1] = 1
	require.NoError(t, tc.DeduplicateSites())
	assert.Equal(t, []float64{1, 7}, tc.Sites.Position)
	assert.Equal(t, []int32{0, 0, 0, 1}, tc.Mutations.Site)

	tc.Sites.Position[0] = 8
	assert.True(t, errors.IsCode(tc.DeduplicateSites(), errors.CodeUnsortedSites))

	empty := New(1)
	require.NoError(t, empty.DeduplicateSites())
}

func TestSortWithoutIntegrityCheckRejectsBadReferences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tc *Collection)
		code   errors.Code
	}{
		{"mutation site", func(tc *Collection) { tc.Mutations.Site[2] = 42 }, errors.CodeSiteOutOfBounds},
		{"negative mutation site", func(tc *Collection) { tc.Mutations.Site[0] = -1 }, errors.CodeSiteOutOfBounds},
		{"mutation parent", func(tc *Collection) { tc.Mutations.Parent[1] = 99 }, errors.CodeMutationOutOfBounds},
		{"edge parent", func(tc *Collection) { tc.Edges.Parent[3] = 42 }, errors.CodeNodeOutOfBounds},
		{"edge child", func(tc *Collection) { tc.Edges.Child[0] = -1 }, errors.CodeNodeOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := shuffled(t)
			tt.mutate(tc)
			before := tc.Copy()
			err := tc.Sort(nil, SortNoCheckIntegrity)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
			assert.True(t, tc.Equals(before))
		})
	}
}
