package tables

import (
	"github.com/ajitpratap0/arbor/pkg/errors"
)

// ComputeMutationParents recomputes every mutation's parent from the tree
// topology: the parent is the nearest mutation above it at the same site.
// The collection must be indexed and pass CheckTrees once existing parents
// are cleared. On error the previous parents are restored.
func (tc *Collection) ComputeMutationParents() error {
	muts := tc.Mutations
	saved := clone(muts.Parent)
	for j := range muts.Parent {
		muts.Parent[j] = Null
	}
	if err := tc.computeMutationParents(); err != nil {
		copy(muts.Parent, saved)
		return err
	}
	return nil
}

func (tc *Collection) computeMutationParents() error {
	if _, err := tc.Check(CheckTrees); err != nil {
		return err
	}
	muts := tc.Mutations
	bottom := fill(tc.Nodes.NumRows(), Null)
	return tc.sweepTrees(func(tree *treeState) error {
		for _, site := range tree.sites {
			for j := site.mutStart; j < site.mutEnd; j++ {
				u := muts.Node[j]
				if bottom[u] != Null {
					muts.Parent[j] = bottom[u]
				}
				bottom[u] = j
			}
			if site.mutEnd > site.mutStart+1 {
				for j := site.mutStart; j < site.mutEnd; j++ {
					if muts.Parent[j] != Null {
						continue
					}
					u := tree.parent[muts.Node[j]]
					for u != Null && bottom[u] == Null {
						u = tree.parent[u]
					}
					if u != Null {
						muts.Parent[j] = bottom[u]
					}
				}
			}
			for j := site.mutStart; j < site.mutEnd; j++ {
				bottom[muts.Node[j]] = Null
				if muts.Parent[j] > j {
					return errors.Coded(errors.CodeMutationParentAfterChild).WithDetail("mutation", j)
				}
			}
		}
		return nil
	})
}

// ComputeMutationTimes assigns times to every mutation by spreading the
// mutations on each edge evenly between the edge's child and parent times.
// A mutation above a root gets its node's time. Mutations are re-sorted if
// the new times break their order. The collection must be indexed.
// On error the previous times are restored.
func (tc *Collection) ComputeMutationTimes() error {
	muts := tc.Mutations
	saved := clone(muts.Time)
	for j := range muts.Time {
		muts.Time[j] = UnknownTime
	}
	if err := tc.computeMutationTimes(); err != nil {
		copy(muts.Time, saved)
		return err
	}

	_, err := tc.Check(CheckMutationOrdering)
	if errors.IsCode(err, errors.CodeUnsortedMutations) {
		err = tc.Sort(&Bookmark{Edges: tc.Edges.NumRows()}, 0)
	}
	if err != nil {
		copy(muts.Time, saved)
		return err
	}
	return nil
}

func (tc *Collection) computeMutationTimes() error {
	if _, err := tc.Check(CheckTrees); err != nil {
		return err
	}
	muts := tc.Mutations
	time := tc.Nodes.Time
	numerator := make([]int, tc.Nodes.NumRows())
	denominator := make([]int, tc.Nodes.NumRows())
	return tc.sweepTrees(func(tree *treeState) error {
		for _, site := range tree.sites {
			for j := site.mutStart; j < site.mutEnd; j++ {
				denominator[muts.Node[j]]++
			}
			for j := site.mutStart; j < site.mutEnd; j++ {
				u := muts.Node[j]
				numerator[u]++
				p := tree.parent[u]
				if p == Null {
					muts.Time[j] = time[u]
					continue
				}
				pt := time[p]
				muts.Time[j] = pt - (pt-time[u])*float64(numerator[u])/float64(denominator[u]+1)
			}
			for j := site.mutStart; j < site.mutEnd; j++ {
				u := muts.Node[j]
				numerator[u] = 0
				denominator[u] = 0
			}
		}
		return nil
	})
}
