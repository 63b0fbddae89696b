package tables

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

func TestCheckFixture(t *testing.T) {
	tc := newIndexedFixture(t)
	n, err := tc.Check(0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = tc.Check(CheckTrees)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name   string
		flags  CheckFlags
		mutate func(t *testing.T, tc *Collection)
		code   errors.Code
	}{
		{
			name:   "zero sequence length",
			mutate: func(t *testing.T, tc *Collection) { tc.SequenceLength = 0 },
			code:   errors.CodeBadSequenceLength,
		},
		{
			name:   "infinite sequence length",
			mutate: func(t *testing.T, tc *Collection) { tc.SequenceLength = math.Inf(1) },
			code:   errors.CodeBadSequenceLength,
		},
		{
			name: "bad offset",
			mutate: func(t *testing.T, tc *Collection) {
				tc.Nodes.MetadataOffset[tc.Nodes.NumRows()] = 5
			},
			code: errors.CodeBadOffset,
		},
		{
			name:   "node time NaN",
			mutate: func(t *testing.T, tc *Collection) { tc.Nodes.Time[0] = math.NaN() },
			code:   errors.CodeTimeNonfinite,
		},
		{
			name:   "population out of bounds",
			mutate: func(t *testing.T, tc *Collection) { tc.Nodes.Population[0] = 2 },
			code:   errors.CodePopulationOutOfBounds,
		},
		{
			name:   "individual out of bounds",
			mutate: func(t *testing.T, tc *Collection) { tc.Nodes.Individual[0] = 5 },
			code:   errors.CodeIndividualOutOfBounds,
		},
		{
			name:   "null parent",
			mutate: func(t *testing.T, tc *Collection) { tc.Edges.Parent[0] = Null },
			code:   errors.CodeNullParent,
		},
		{
			name:   "null child",
			mutate: func(t *testing.T, tc *Collection) { tc.Edges.Child[0] = Null },
			code:   errors.CodeNullChild,
		},
		{
			name:   "child out of bounds",
			mutate: func(t *testing.T, tc *Collection) { tc.Edges.Child[0] = 9 },
			code:   errors.CodeNodeOutOfBounds,
		},
		{
			name:   "left below zero",
			mutate: func(t *testing.T, tc *Collection) { tc.Edges.Left[0] = -1 },
			code:   errors.CodeLeftLessZero,
		},
		{
			name:   "right past sequence length",
			mutate: func(t *testing.T, tc *Collection) { tc.Edges.Right[0] = 11 },
			code:   errors.CodeRightGreaterSeqLength,
		},
		{
			name:   "empty interval",
			mutate: func(t *testing.T, tc *Collection) { tc.Edges.Left[3] = 5 },
			code:   errors.CodeBadEdgeInterval,
		},
		{
			name:   "non-finite coordinate",
			mutate: func(t *testing.T, tc *Collection) { tc.Edges.Left[0] = math.NaN() },
			code:   errors.CodeGenomeCoordsNonfinite,
		},
		{
			name:   "child older than parent",
			mutate: func(t *testing.T, tc *Collection) { tc.Edges.Child[0] = 4 },
			code:   errors.CodeBadNodeTimeOrdering,
		},
		{
			name:  "edges out of time order",
			flags: CheckEdgeOrdering,
			mutate: func(t *testing.T, tc *Collection) {
				tc.Edges.Parent[0], tc.Edges.Parent[2] = tc.Edges.Parent[2], tc.Edges.Parent[0]
				tc.Edges.Child[0], tc.Edges.Child[2] = tc.Edges.Child[2], tc.Edges.Child[0]
			},
			code: errors.CodeEdgesNotSortedParentTime,
		},
		{
			name:  "edges out of child order",
			flags: CheckEdgeOrdering,
			mutate: func(t *testing.T, tc *Collection) {
				tc.Edges.Child[0], tc.Edges.Child[1] = 1, 0
			},
			code: errors.CodeEdgesNotSortedChild,
		},
		{
			name:   "duplicate edges",
			flags:  CheckEdgeOrdering,
			mutate: func(t *testing.T, tc *Collection) { tc.Edges.Child[1] = 0 },
			code:   errors.CodeDuplicateEdges,
		},
		{
			name:  "edges out of left order",
			flags: CheckEdgeOrdering,
			mutate: func(t *testing.T, tc *Collection) {
				tc.Edges.Left[5], tc.Edges.Right[5], tc.Edges.Child[5] = 0, 5, 3
			},
			code: errors.CodeEdgesNotSortedLeft,
		},
		{
			name:  "noncontiguous parents",
			flags: CheckEdgeOrdering,
			mutate: func(t *testing.T, tc *Collection) {
				_, err := tc.Nodes.AddRow(0, 1, 0, Null, nil)
				require.NoError(t, err)
				tc.Edges.Clear()
				for _, e := range [][4]float64{{0, 10, 3, 0}, {0, 10, 6, 1}, {0, 10, 3, 2}} {
					_, err := tc.Edges.AddRow(e[0], e[1], int32(e[2]), int32(e[3]), nil)
					require.NoError(t, err)
				}
			},
			code: errors.CodeEdgesNoncontiguousParents,
		},
		{
			name:   "site at sequence length",
			mutate: func(t *testing.T, tc *Collection) { tc.Sites.Position[2] = 10 },
			code:   errors.CodeBadSitePosition,
		},
		{
			name:   "duplicate site",
			flags:  CheckSiteDuplicates,
			mutate: func(t *testing.T, tc *Collection) { tc.Sites.Position[1] = 1 },
			code:   errors.CodeDuplicateSitePosition,
		},
		{
			name:   "unsorted sites",
			flags:  CheckSiteOrdering,
			mutate: func(t *testing.T, tc *Collection) { tc.Sites.Position[1] = 0.5 },
			code:   errors.CodeUnsortedSites,
		},
		{
			name:   "mutation site out of bounds",
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Site[0] = 3 },
			code:   errors.CodeSiteOutOfBounds,
		},
		{
			name:   "mutation node out of bounds",
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Node[0] = 6 },
			code:   errors.CodeNodeOutOfBounds,
		},
		{
			name:   "mutation parent out of bounds",
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Parent[0] = 4 },
			code:   errors.CodeMutationOutOfBounds,
		},
		{
			name:   "mutation is its own parent",
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Parent[1] = 1 },
			code:   errors.CodeMutationParentEqual,
		},
		{
			name:   "mutation time infinite",
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Time[0] = math.Inf(1) },
			code:   errors.CodeTimeNonfinite,
		},
		{
			name:  "mutations out of site order",
			flags: CheckMutationOrdering,
			mutate: func(t *testing.T, tc *Collection) {
				tc.Mutations.Site[2], tc.Mutations.Site[3] = 2, 1
			},
			code: errors.CodeUnsortedMutations,
		},
		{
			name:  "parent after child",
			flags: CheckMutationOrdering,
			mutate: func(t *testing.T, tc *Collection) {
				tc.Mutations.Parent[0], tc.Mutations.Parent[1] = 1, Null
			},
			code: errors.CodeMutationParentAfterChild,
		},
		{
			name:   "parent at another site",
			flags:  CheckMutationOrdering,
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Parent[2] = 0 },
			code:   errors.CodeMutationParentDifferentSite,
		},
		{
			name:   "known time after unknown",
			flags:  CheckMutationOrdering,
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Time[0] = UnknownTime },
			code:   errors.CodeMutationTimeHasBothKnownAndUnknown,
		},
		{
			name:   "mutation younger than node",
			flags:  CheckMutationOrdering,
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Time[0] = 0.9 },
			code:   errors.CodeMutationTimeYoungerThanNode,
		},
		{
			name:   "mutation older than parent mutation",
			flags:  CheckMutationOrdering,
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Time[1] = 1.6 },
			code:   errors.CodeMutationTimeOlderThanParentMutation,
		},
		{
			name:  "mutation times increasing",
			flags: CheckMutationOrdering,
			mutate: func(t *testing.T, tc *Collection) {
				tc.Mutations.Parent[1] = Null
				tc.Mutations.Time[1] = 1.6
			},
			code: errors.CodeUnsortedMutations,
		},
		{
			name:   "not indexed",
			flags:  CheckIndexes,
			mutate: func(t *testing.T, tc *Collection) { tc.DropIndex() },
			code:   errors.CodeTablesNotIndexed,
		},
		{
			name:   "index entry out of bounds",
			flags:  CheckIndexes,
			mutate: func(t *testing.T, tc *Collection) { tc.index.insertion[0] = 99 },
			code:   errors.CodeEdgeOutOfBounds,
		},
		{
			name:   "mutation older than parent node",
			flags:  CheckTrees,
			mutate: func(t *testing.T, tc *Collection) { tc.Mutations.Time[3] = 3 },
			code:   errors.CodeMutationTimeOlderThanParentNode,
		},
		{
			name:  "child with two parents",
			flags: CheckTrees,
			mutate: func(t *testing.T, tc *Collection) {
				tc.Edges.Child[4] = 2
				require.NoError(t, tc.BuildIndex())
			},
			code: errors.CodeBadEdgesContradictoryChildren,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newIndexedFixture(t)
			tt.mutate(t, tc)
			before := tc.Copy()

			_, err := tc.Check(tt.flags)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
			assert.True(t, tc.Equals(before), "check must not modify the collection")
		})
	}
}

func TestCheckOrderingIsOptional(t *testing.T) {
	tc := newFixture(t)
	tc.Edges.Child[0], tc.Edges.Child[1] = 1, 0
	tc.Sites.Position[1] = 0.5
	_, err := tc.Check(0)
	require.NoError(t, err)

	_, err = tc.Check(CheckEdgeOrdering)
	assert.True(t, errors.IsCode(err, errors.CodeEdgesNotSortedChild))
}

func TestCheckNoPopulationRefs(t *testing.T) {
	tc := newFixture(t)
	tc.Nodes.Population[0] = 7
	_, err := tc.Check(0)
	assert.True(t, errors.IsCode(err, errors.CodePopulationOutOfBounds))

	_, err = tc.Check(NoCheckPopulationRefs)
	require.NoError(t, err)
}

func TestCheckUnknownTimes(t *testing.T) {
	tc := newIndexedFixture(t)
	for j := range tc.Mutations.Time {
		tc.Mutations.Time[j] = UnknownTime
	}
	n, err := tc.Check(CheckTrees)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCheckErrorCarriesDetails(t *testing.T) {
	tc := newFixture(t)
	tc.Edges.Parent[2] = Null
	_, err := tc.Check(0)

	var coded *errors.Error
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, errors.CodeNullParent, coded.Code)
	assert.Equal(t, 2, coded.Details["edge"])
	assert.Equal(t, errors.ErrorTypeBounds, coded.Type)
}

func TestParseCheckFlags(t *testing.T) {
	tests := []struct {
		names []string
		want  CheckFlags
		err   bool
	}{
		{names: nil, want: 0},
		{names: []string{"trees"}, want: CheckTrees},
		{names: []string{"edge-ordering", "SITE_ORDERING"}, want: CheckEdgeOrdering | CheckSiteOrdering},
		{names: []string{" indexes ", ""}, want: CheckIndexes},
		{names: []string{"no_population_refs", "mutation-ordering"}, want: NoCheckPopulationRefs | CheckMutationOrdering},
		{names: []string{"trees", "everything"}, err: true},
	}
	for _, tt := range tests {
		got, err := ParseCheckFlags(tt.names)
		if tt.err {
			assert.True(t, errors.IsCode(err, errors.CodeBadParam), "%v: got %v", tt.names, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.names)
	}
}
