package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

func TestComputeMutationParents(t *testing.T) {
	tc := newIndexedFixture(t)
	tc.Mutations.Parent[1] = Null
	require.NoError(t, tc.ComputeMutationParents())
	assert.Equal(t, []int32{Null, 0, Null, Null}, tc.Mutations.Parent)
}

func TestComputeMutationParentsAboveInTree(t *testing.T) {
	tc := newIndexedFixture(t)
	// A second mutation at the third site, on node 2 below node 4 in the
	// right-hand tree.
	_, err := tc.Mutations.AddRow(2, 2, Null, 1, []byte("A"), nil)
	require.NoError(t, err)

	require.NoError(t, tc.ComputeMutationParents())
	assert.Equal(t, []int32{Null, 0, Null, Null, 3}, tc.Mutations.Parent)
}

func TestComputeMutationParentsRestoresOnError(t *testing.T) {
	tc := newFixture(t)
	err := tc.ComputeMutationParents()
	assert.True(t, errors.IsCode(err, errors.CodeTablesNotIndexed))
	assert.Equal(t, []int32{Null, 0, Null, Null}, tc.Mutations.Parent)
}

func TestComputeMutationTimes(t *testing.T) {
	tc := newIndexedFixture(t)
	require.NoError(t, tc.ComputeMutationTimes())
	assert.Equal(t, []float64{1.5, 0.5, 1, 2.5}, tc.Mutations.Time)

	_, err := tc.Check(CheckTrees)
	require.NoError(t, err)
}

func TestComputeMutationTimesResorts(t *testing.T) {
	tc := newIndexedFixture(t)
	// A mutation above the root of the right-hand tree, listed after the
	// mutation below it.
	_, err := tc.Mutations.AddRow(2, 5, Null, UnknownTime, []byte("A"), nil)
	require.NoError(t, err)

	require.NoError(t, tc.ComputeMutationTimes())
	assert.Equal(t, []int32{3, 0, 2, 5, 4}, tc.Mutations.Node)
	assert.Equal(t, []float64{1.5, 0.5, 1, 3, 2.5}, tc.Mutations.Time)
	_, err = tc.Check(CheckMutationOrdering)
	require.NoError(t, err)
}

func TestComputeMutationTimesRestoresOnError(t *testing.T) {
	tc := newFixture(t)
	err := tc.ComputeMutationTimes()
	assert.True(t, errors.IsCode(err, errors.CodeTablesNotIndexed))
	assert.Equal(t, []float64{1.5, 0.5, 0.5, 2.5}, tc.Mutations.Time)
}

func TestComputeMutationTimesRestoresOnOrderingError(t *testing.T) {
	tc := newIndexedFixture(t)
	// The mutation on node 3 names the mutation below it, on node 0, as its
	// parent, so the computed times put the child above its parent.
	tc.Mutations.Node[0], tc.Mutations.Node[1] = 0, 3
	saved := clone(tc.Mutations.Time)

	err := tc.ComputeMutationTimes()
	assert.True(t, errors.IsCode(err, errors.CodeMutationTimeOlderThanParentMutation), "got %v", err)
	assert.Equal(t, saved, tc.Mutations.Time)
}
