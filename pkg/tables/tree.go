package tables

import (
	"math"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// treeSite is a site visible in the current tree together with the range of
// its mutation ids.
type treeSite struct {
	id       int32
	mutStart int32
	mutEnd   int32
}

// treeState is the sweep state for one local tree.
type treeState struct {
	index     int
	left      float64
	right     float64
	parent    []int32
	sites     []treeSite
	mutations []int32
}

// sweepTrees visits every local tree in left to right order. The collection
// must be indexed with sites and mutations in canonical order.
func (tc *Collection) sweepTrees(visit func(*treeState) error) error {
	edges := tc.Edges
	insertion := tc.index.insertion
	removal := tc.index.removal
	M := len(insertion)
	L := tc.SequenceLength
	numSites := int32(tc.Sites.NumRows())
	numMuts := int32(tc.Mutations.NumRows())

	tree := &treeState{parent: fill(tc.Nodes.NumRows(), Null)}
	var site, mutation int32
	j, k := 0, 0
	left := 0.0
	for j < M || left < L {
		for k < M && edges.Right[removal[k]] == left {
			tree.parent[edges.Child[removal[k]]] = Null
			k++
		}
		for j < M && edges.Left[insertion[j]] == left {
			e := insertion[j]
			child := edges.Child[e]
			if tree.parent[child] != Null {
				return codedEdge(e)
			}
			tree.parent[child] = edges.Parent[e]
			j++
		}
		right := L
		if j < M {
			right = math.Min(right, edges.Left[insertion[j]])
		}
		if k < M {
			right = math.Min(right, edges.Right[removal[k]])
		}

		tree.left, tree.right = left, right
		tree.sites = tree.sites[:0]
		tree.mutations = tree.mutations[:0]
		for site < numSites && tc.Sites.Position[site] < right {
			ts := treeSite{id: site, mutStart: mutation}
			for mutation < numMuts && tc.Mutations.Site[mutation] == site {
				tree.mutations = append(tree.mutations, mutation)
				mutation++
			}
			ts.mutEnd = mutation
			tree.sites = append(tree.sites, ts)
			site++
		}
		if err := visit(tree); err != nil {
			return err
		}
		tree.index++
		left = right
	}
	return nil
}

func codedEdge(e int32) error {
	return errors.Coded(errors.CodeBadEdgesContradictoryChildren).WithDetail("edge", e)
}
