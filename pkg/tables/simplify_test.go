package tables

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

func TestSimplifyAllSamples(t *testing.T) {
	tc := newFixture(t)
	nodeMap, err := tc.Simplify([]int32{0, 1, 2}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, nodeMap)
	assert.Equal(t, [][4]float64{
		{0, 10, 3, 0},
		{0, 10, 3, 1},
		{0, 5, 4, 2},
		{0, 5, 4, 3},
		{5, 10, 5, 2},
		{5, 10, 5, 3},
	}, edgeList(tc.Edges))
	assert.Equal(t, []int32{3, 0, 2, 2}, tc.Mutations.Node, "the mutation above unary node 4 moves to node 2")
	assert.Equal(t, []int32{Null, 0, Null, Null}, tc.Mutations.Parent)
	assert.Equal(t, 3, tc.Sites.NumRows())
	assert.Equal(t, 1, tc.Provenances.NumRows())
	assert.False(t, tc.HasIndex())

	require.NoError(t, tc.BuildIndex())
	n, err := tc.Check(CheckTrees)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSimplifyKeepUnaryIsIdentity(t *testing.T) {
	tc := newFixture(t)
	nodeMap, err := tc.Simplify(nil, SimplifyKeepUnary)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, nodeMap)
	assert.True(t, tc.Equals(newFixture(t)))
}

func TestSimplifySubsetOfSamples(t *testing.T) {
	tests := []struct {
		name        string
		flags       SimplifyFlags
		sites       int
		populations int
		individuals int
	}{
		{name: "no filtering", sites: 3, populations: 2, individuals: 2},
		{name: "filter sites", flags: SimplifyFilterSites, sites: 1, populations: 2, individuals: 2},
		{name: "filter populations", flags: SimplifyFilterPopulations, sites: 3, populations: 1, individuals: 2},
		{name: "filter individuals", flags: SimplifyFilterIndividuals, sites: 3, populations: 2, individuals: 1},
		{
			name:        "filter everything",
			flags:       SimplifyFilterSites | SimplifyFilterPopulations | SimplifyFilterIndividuals,
			sites:       1,
			populations: 1,
			individuals: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newFixture(t)
			nodeMap, err := tc.Simplify([]int32{0, 1}, tt.flags)
			require.NoError(t, err)
			assert.Equal(t, []int32{0, 1, Null, 2, Null, Null}, nodeMap)
			assert.Equal(t, []float64{0, 0, 1}, tc.Nodes.Time)
			assert.Equal(t, []uint32{NodeIsSample, NodeIsSample, 0}, tc.Nodes.Flags)
			assert.Equal(t, [][4]float64{{0, 10, 2, 0}, {0, 10, 2, 1}}, edgeList(tc.Edges))

			assert.Equal(t, []int32{2, 0}, tc.Mutations.Node)
			assert.Equal(t, []int32{Null, 0}, tc.Mutations.Parent)
			assert.Equal(t, []int32{0, 0}, tc.Mutations.Site)
			assert.Equal(t, tt.sites, tc.Sites.NumRows())
			assert.Equal(t, 1.0, tc.Sites.Position[0])

			assert.Equal(t, tt.populations, tc.Populations.NumRows())
			assert.Equal(t, tt.individuals, tc.Individuals.NumRows())
			assert.Equal(t, []int32{0, 0, Null}, tc.Nodes.Individual)
			assert.Equal(t, []int32{0, 0, 0}, tc.Nodes.Population)

			_, err = tc.Check(0)
			require.NoError(t, err)
		})
	}
}

func TestSimplifySampleOrder(t *testing.T) {
	tc := newFixture(t)
	nodeMap, err := tc.Simplify([]int32{1, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 0, Null, 2, Null, Null}, nodeMap)
	assert.Equal(t, [][4]float64{{0, 10, 2, 0}, {0, 10, 2, 1}}, edgeList(tc.Edges))
}

func TestSimplifyReduceToSiteTopology(t *testing.T) {
	tc := newFixture(t)
	_, err := tc.Simplify(nil, SimplifyReduceToSiteTopology)
	require.NoError(t, err)
	assert.Equal(t, [][4]float64{
		{0, 10, 3, 0},
		{0, 10, 3, 1},
		{0, 7, 4, 2},
		{0, 7, 4, 3},
		{7, 10, 5, 2},
		{7, 10, 5, 3},
	}, edgeList(tc.Edges))

	require.NoError(t, tc.BuildIndex())
	_, err = tc.Check(CheckTrees)
	require.NoError(t, err)
}

func TestSimplifyKeepInputRoots(t *testing.T) {
	tc := newFixture(t)
	nodeMap, err := tc.Simplify([]int32{0, 1}, SimplifyKeepInputRoots)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, Null, 2, 3, 4}, nodeMap)
	assert.Equal(t, []float64{0, 0, 1, 2, 3}, tc.Nodes.Time)
	assert.Equal(t, [][4]float64{
		{0, 10, 2, 0},
		{0, 10, 2, 1},
		{0, 5, 3, 2},
		{5, 10, 4, 2},
	}, edgeList(tc.Edges))

	require.NoError(t, tc.BuildIndex())
	_, err = tc.Check(CheckTrees)
	require.NoError(t, err)
}

func TestSimplifyIsIdempotent(t *testing.T) {
	tc := newFixture(t)
	_, err := tc.Simplify(nil, 0)
	require.NoError(t, err)
	once := tc.Copy()

	nodeMap, err := tc.Simplify(nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, nodeMap)
	assert.True(t, tc.Equals(once))
}

func TestSimplifyErrors(t *testing.T) {
	tests := []struct {
		name    string
		samples []int32
		mutate  func(t *testing.T, tc *Collection)
		code    errors.Code
	}{
		{name: "duplicate sample", samples: []int32{0, 0}, code: errors.CodeDuplicateSample},
		{name: "sample out of bounds", samples: []int32{0, 6}, code: errors.CodeNodeOutOfBounds},
		{name: "negative sample", samples: []int32{-1}, code: errors.CodeNodeOutOfBounds},
		{
			name:    "edge metadata",
			samples: []int32{0, 1},
			mutate: func(t *testing.T, tc *Collection) {
				_, err := tc.Edges.AddRow(0, 1, 5, 2, []byte("m"))
				require.NoError(t, err)
			},
			code: errors.CodeCantProcessEdgesWithMetadata,
		},
		{
			name:    "unsorted edges",
			samples: []int32{0, 1},
			mutate: func(t *testing.T, tc *Collection) {
				tc.Edges.Child[0], tc.Edges.Child[1] = 1, 0
			},
			code: errors.CodeEdgesNotSortedChild,
		},
		{
			name:    "migrations",
			samples: []int32{0, 1},
			mutate: func(t *testing.T, tc *Collection) {
				_, err := tc.Migrations.AddRow(0, 1, 0, 0, 1, 0.5, nil)
				require.NoError(t, err)
			},
			code: errors.CodeSimplifyMigrationsNotSupported,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newFixture(t)
			if tt.mutate != nil {
				tt.mutate(t, tc)
			}
			before := tc.Copy()
			_, err := tc.Simplify(tt.samples, 0)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
			assert.True(t, tc.Equals(before), "failed simplify must leave the collection unchanged")
		})
	}
}

func TestSamples(t *testing.T) {
	tc := newFixture(t)
	assert.Equal(t, []int32{0, 1, 2}, tc.Samples())
	assert.Empty(t, New(1).Samples())
}

func TestSimplifyFailureKeepsIndex(t *testing.T) {
	tc := newFixture(t)
	_, err := tc.Migrations.AddRow(0, 1, 0, 0, 1, 0.5, nil)
	require.NoError(t, err)
	require.NoError(t, tc.BuildIndex())
	insertion := clone(tc.EdgeInsertionOrder())

	_, err = tc.Simplify([]int32{0, 1}, 0)
	require.True(t, errors.IsCode(err, errors.CodeSimplifyMigrationsNotSupported), "got %v", err)
	assert.True(t, tc.HasIndex())
	assert.Equal(t, insertion, tc.EdgeInsertionOrder())
}

// randomPedigree builds a sorted multi-generation sequence. Generation g
// holds popSize nodes at time g; every node below the top generation
// inherits from one or two parents in the generation above, switching at a
// random breakpoint. Generation 0 nodes are samples.
func randomPedigree(t *testing.T, rng *rand.Rand) *Collection {
	t.Helper()
	const (
		length      = 20
		generations = 6
		popSize     = 6
		numSites    = 5
	)
	tc := New(length, WithLogger(zap.NewNop()))
	for g := 0; g < generations; g++ {
		for k := 0; k < popSize; k++ {
			var flags uint32
			if g == 0 {
				flags = NodeIsSample
			}
			_, err := tc.Nodes.AddRow(flags, float64(g), Null, Null, nil)
			require.NoError(t, err)
		}
	}
	addEdge := func(left, right float64, parent, child int32) {
		_, err := tc.Edges.AddRow(left, right, parent, child, nil)
		require.NoError(t, err)
	}
	for g := 0; g < generations-1; g++ {
		for k := 0; k < popSize; k++ {
			child := int32(g*popSize + k)
			p1 := int32((g+1)*popSize + rng.Intn(popSize))
			p2 := int32((g+1)*popSize + rng.Intn(popSize))
			if p1 == p2 {
				addEdge(0, length, p1, child)
				continue
			}
			b := float64(1 + rng.Intn(length-1))
			addEdge(0, b, p1, child)
			addEdge(b, length, p2, child)
		}
	}
	for j, pos := range rng.Perm(length)[:numSites] {
		_, err := tc.Sites.AddRow(float64(pos)+0.25, []byte("A"), nil)
		require.NoError(t, err)
		for m := 0; m < 1+rng.Intn(2); m++ {
			node := int32(rng.Intn(tc.Nodes.NumRows()))
			_, err := tc.Mutations.AddRow(int32(j), node, Null, UnknownTime, []byte("T"), nil)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tc.Sort(nil, 0))
	return tc
}

// parentsAt returns the parent of every node in the tree covering x.
func parentsAt(tc *Collection, x float64) []int32 {
	parent := fill(tc.Nodes.NumRows(), Null)
	edges := tc.Edges
	for j := range edges.Parent {
		if edges.Left[j] <= x && x < edges.Right[j] {
			parent[edges.Child[j]] = edges.Parent[j]
		}
	}
	return parent
}

// mrcaTime returns the time of the most recent common ancestor of a and b,
// or -1 when they are in different trees.
func mrcaTime(tc *Collection, parent []int32, a, b int32) float64 {
	seen := make(map[int32]bool)
	for u := a; u != Null; u = parent[u] {
		seen[u] = true
	}
	for u := b; u != Null; u = parent[u] {
		if seen[u] {
			return tc.Nodes.Time[u]
		}
	}
	return -1
}

func TestSimplifyPreservesSampleAncestry(t *testing.T) {
	flagSets := []struct {
		name  string
		flags SimplifyFlags
	}{
		{"default", 0},
		{"keep unary", SimplifyKeepUnary},
		{"keep input roots", SimplifyKeepInputRoots},
		{"keep unary and input roots", SimplifyKeepUnary | SimplifyKeepInputRoots},
		{"filter sites", SimplifyFilterSites},
		{"filter populations and individuals", SimplifyFilterPopulations | SimplifyFilterIndividuals},
	}
	positions := []float64{0.5, 3.5, 7.5, 11.5, 16.5, 19.5}

	for seed := int64(1); seed <= 25; seed++ {
		for _, fs := range flagSets {
			t.Run(fmt.Sprintf("seed %d %s", seed, fs.name), func(t *testing.T) {
				rng := rand.New(rand.NewSource(seed))
				input := randomPedigree(t, rng)
				var samples []int32
				for _, k := range rng.Perm(6)[:2+rng.Intn(5)] {
					samples = append(samples, int32(k))
				}

				out := input.Copy()
				nodeMap, err := out.Simplify(samples, fs.flags)
				require.NoError(t, err)
				require.Len(t, nodeMap, input.Nodes.NumRows())
				for j, u := range samples {
					assert.Equal(t, int32(j), nodeMap[u], "samples come first, in order")
				}
				require.NoError(t, out.BuildIndex())
				_, err = out.Check(CheckTrees)
				require.NoError(t, err)

				for _, x := range positions {
					before := parentsAt(input, x)
					after := parentsAt(out, x)
					for i := range samples {
						for j := i + 1; j < len(samples); j++ {
							a, b := samples[i], samples[j]
							assert.Equal(t,
								mrcaTime(input, before, a, b),
								mrcaTime(out, after, nodeMap[a], nodeMap[b]),
								"samples %d and %d at %g", a, b, x)
						}
					}
				}
			})
		}
	}
}
