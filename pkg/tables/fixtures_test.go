package tables

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newFixture builds a two-tree sequence of length 10:
//
//	[0, 5)          [5, 10)
//	    4               5
//	   / \             / \
//	  3   \           3   4
//	 / \   \         / \  |
//	0   1   2       0   1 2
//
// Node 4 is unary over [5, 10). Three sites carry four mutations.
func newFixture(t *testing.T, opts ...Option) *Collection {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	tc := New(10, opts...)

	_, err := tc.Populations.AddRow([]byte("pop0"))
	require.NoError(t, err)
	_, err = tc.Populations.AddRow([]byte("pop1"))
	require.NoError(t, err)
	_, err = tc.Individuals.AddRow(0, []float64{0.5, 1.5}, []byte("ind0"))
	require.NoError(t, err)
	_, err = tc.Individuals.AddRow(0, nil, nil)
	require.NoError(t, err)

	nodes := []struct {
		flags      uint32
		time       float64
		individual int32
	}{
		{NodeIsSample, 0, 0},
		{NodeIsSample, 0, 0},
		{NodeIsSample, 0, 1},
		{0, 1, Null},
		{0, 2, Null},
		{0, 3, Null},
	}
	for _, n := range nodes {
		_, err := tc.Nodes.AddRow(n.flags, n.time, 0, n.individual, nil)
		require.NoError(t, err)
	}

	for _, e := range fixtureEdges() {
		_, err := tc.Edges.AddRow(e.Left, e.Right, e.Parent, e.Child, nil)
		require.NoError(t, err)
	}

	for _, s := range []struct {
		position float64
		state    string
	}{{1, "A"}, {4, "C"}, {7, "G"}} {
		_, err := tc.Sites.AddRow(s.position, []byte(s.state), nil)
		require.NoError(t, err)
	}

	muts := []struct {
		site, node, parent int32
		time               float64
		state              string
	}{
		{0, 3, Null, 1.5, "T"},
		{0, 0, 0, 0.5, "A"},
		{1, 2, Null, 0.5, "G"},
		{2, 4, Null, 2.5, "T"},
	}
	for _, m := range muts {
		_, err := tc.Mutations.AddRow(m.site, m.node, m.parent, m.time, []byte(m.state), nil)
		require.NoError(t, err)
	}

	_, err = tc.Provenances.AddRow("2026-01-01T00:00:00Z", `{"software":{"name":"arbor"}}`)
	require.NoError(t, err)
	return tc
}

func fixtureEdges() []Edge {
	return []Edge{
		{Left: 0, Right: 10, Parent: 3, Child: 0},
		{Left: 0, Right: 10, Parent: 3, Child: 1},
		{Left: 0, Right: 10, Parent: 4, Child: 2},
		{Left: 0, Right: 5, Parent: 4, Child: 3},
		{Left: 5, Right: 10, Parent: 5, Child: 3},
		{Left: 5, Right: 10, Parent: 5, Child: 4},
	}
}

// newIndexedFixture returns the fixture with its edge index built.
func newIndexedFixture(t *testing.T, opts ...Option) *Collection {
	t.Helper()
	tc := newFixture(t, opts...)
	require.NoError(t, tc.BuildIndex())
	return tc
}

// edgeList returns the edges as (left, right, parent, child) tuples.
func edgeList(t *EdgeTable) [][4]float64 {
	out := make([][4]float64, t.NumRows())
	for j := range out {
		out[j] = [4]float64{t.Left[j], t.Right[j], float64(t.Parent[j]), float64(t.Child[j])}
	}
	return out
}
