package tables

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// UnionFlags modifies Union.
type UnionFlags uint32

const (
	// UnionNoCheckShared skips verifying that the shared nodes have the same
	// history in both collections.
	UnionNoCheckShared UnionFlags = 1 << iota
	// UnionNoAddPopulations keeps the population ids of added nodes instead
	// of appending the populations from the other collection.
	UnionNoAddPopulations
)

// Subset reduces the collection to the given nodes, in the given order,
// together with their individuals, populations, the edges between them and
// the mutations on them. Sites without a kept mutation are dropped.
// On error the collection is left as it was.
func (tc *Collection) Subset(nodes []int32) error {
	if _, err := tc.Check(0); err != nil {
		return err
	}
	if tc.Migrations.NumRows() != 0 {
		return errors.Coded(errors.CodeMigrationsNotSupported)
	}
	in := tc.Copy()
	tc.Clear()
	if err := tc.subsetFrom(in, nodes); err != nil {
		tc.replaceTables(in)
		return err
	}
	tc.logger.Debug("subset tables",
		zap.Int("nodes_in", in.Nodes.NumRows()),
		zap.Int("nodes_out", tc.Nodes.NumRows()))
	return nil
}

func (tc *Collection) subsetFrom(in *Collection, nodes []int32) error {
	nodeMap := fill(in.Nodes.NumRows(), Null)
	r := newRemapper(tc, in, true)
	for _, u := range nodes {
		if u < 0 || int(u) >= in.Nodes.NumRows() {
			return errors.Coded(errors.CodeNodeOutOfBounds).WithDetail("node", u)
		}
		id, err := r.addNode(u)
		if err != nil {
			return err
		}
		nodeMap[u] = id
	}

	edges := in.Edges
	for j := 0; j < edges.NumRows(); j++ {
		p, c := nodeMap[edges.Parent[j]], nodeMap[edges.Child[j]]
		if p == Null || c == Null {
			continue
		}
		e := edges.row(j)
		if _, err := tc.Edges.AddRow(e.Left, e.Right, p, c, e.Metadata); err != nil {
			return err
		}
	}

	mutationMap := fill(in.Mutations.NumRows(), Null)
	err := forEachSiteMutation(in, func(siteID, j int) (bool, int32, int32) {
		node := nodeMap[in.Mutations.Node[j]]
		parent := Null
		if p := in.Mutations.Parent[j]; p != Null {
			parent = mutationMap[p]
		}
		return node != Null, node, parent
	}, tc, func(j int, id int32) { mutationMap[j] = id })
	if err != nil {
		return err
	}
	*tc.Provenances = *in.Provenances.Copy()
	return nil
}

// forEachSiteMutation walks the mutations of src site by site. keep decides
// whether mutation j is copied into dst and with which node and parent.
// Sites are copied on their first kept mutation. added reports each new
// mutation id.
func forEachSiteMutation(
	src *Collection,
	keep func(site, j int) (ok bool, node, parent int32),
	dst *Collection,
	added func(j int, id int32),
) error {
	muts := src.Mutations
	numMuts := muts.NumRows()
	j := 0
	for site := 0; site < src.Sites.NumRows(); site++ {
		outSite := Null
		for ; j < numMuts && muts.Site[j] == int32(site); j++ {
			ok, node, parent := keep(site, j)
			if !ok {
				continue
			}
			if outSite == Null {
				s := src.Sites.row(site)
				id, err := dst.Sites.AddRow(s.Position, s.AncestralState, s.Metadata)
				if err != nil {
					return err
				}
				outSite = id
			}
			m := muts.row(j)
			id, err := dst.Mutations.AddRow(outSite, node, parent, m.Time, m.DerivedState, m.Metadata)
			if err != nil {
				return err
			}
			if added != nil {
				added(j, id)
			}
		}
	}
	if j != numMuts {
		return errors.Coded(errors.CodeUnsortedMutations).WithDetail("mutation", j)
	}
	return nil
}

// Union appends the parts of other that are not shared with the collection.
// otherNodeMap gives, for each node of other, the matching node here or Null
// for nodes to be added. The result is sorted, its sites deduplicated, its
// index built and its mutation parents recomputed.
// On error the collection is left as it was.
func (tc *Collection) Union(other *Collection, otherNodeMap []int32, flags UnionFlags) error {
	if _, err := tc.Check(0); err != nil {
		return err
	}
	if _, err := other.Check(0); err != nil {
		return err
	}
	if len(otherNodeMap) != other.Nodes.NumRows() {
		return errors.Coded(errors.CodeUnionBadMap).
			WithDetail("map", len(otherNodeMap)).
			WithDetail("nodes", other.Nodes.NumRows())
	}
	for k, u := range otherNodeMap {
		if u < Null || int(u) >= tc.Nodes.NumRows() {
			return errors.Coded(errors.CodeUnionBadMap).WithDetail("node", k).WithDetail("mapped", u)
		}
	}
	if tc.Migrations.NumRows() != 0 || other.Migrations.NumRows() != 0 {
		return errors.Coded(errors.CodeMigrationsNotSupported)
	}
	if flags&UnionNoCheckShared == 0 {
		if err := tc.checkSharedHistory(other, otherNodeMap); err != nil {
			return err
		}
	}

	work := tc.Copy()
	if err := work.unionFrom(other, otherNodeMap, flags); err != nil {
		return err
	}
	index := work.index
	tc.replaceTables(work)
	tc.index = index
	tc.logger.Debug("union of tables",
		zap.Int("nodes", tc.Nodes.NumRows()),
		zap.Int("edges", tc.Edges.NumRows()))
	return nil
}

func (tc *Collection) unionFrom(other *Collection, otherNodeMap []int32, flags UnionFlags) error {
	nodeMap := fill(other.Nodes.NumRows(), Null)
	r := newRemapper(tc, other, flags&UnionNoAddPopulations == 0)
	for k, u := range otherNodeMap {
		if u != Null {
			nodeMap[k] = u
			continue
		}
		id, err := r.addNode(int32(k))
		if err != nil {
			return err
		}
		nodeMap[k] = id
	}

	edges := other.Edges
	for j := 0; j < edges.NumRows(); j++ {
		p, c := edges.Parent[j], edges.Child[j]
		if otherNodeMap[p] != Null && otherNodeMap[c] != Null {
			continue
		}
		if otherNodeMap[p] == Null && otherNodeMap[c] != Null {
			return errors.Coded(errors.CodeUnionNotSupported).
				WithDetail("reason", "new parent above a shared child").
				WithDetail("edge", j)
		}
		e := edges.row(j)
		if _, err := tc.Edges.AddRow(e.Left, e.Right, nodeMap[p], nodeMap[c], e.Metadata); err != nil {
			return err
		}
	}

	err := forEachSiteMutation(other, func(_, j int) (bool, int32, int32) {
		u := other.Mutations.Node[j]
		return otherNodeMap[u] == Null, nodeMap[u], Null
	}, tc, nil)
	if err != nil {
		return err
	}

	if err := tc.Sort(nil, 0); err != nil {
		return err
	}
	if err := tc.DeduplicateSites(); err != nil {
		return err
	}
	if err := tc.BuildIndex(); err != nil {
		return err
	}
	return tc.ComputeMutationParents()
}

// checkSharedHistory subsets both collections to the shared nodes and
// requires the results to be equal, ignoring provenances.
func (tc *Collection) checkSharedHistory(other *Collection, otherNodeMap []int32) error {
	var selfNodes, otherNodes []int32
	for k, u := range otherNodeMap {
		if u != Null {
			selfNodes = append(selfNodes, u)
			otherNodes = append(otherNodes, int32(k))
		}
	}
	a := tc.Copy()
	b := other.Copy()
	a.Provenances.Clear()
	b.Provenances.Clear()
	if err := a.Subset(selfNodes); err != nil {
		return err
	}
	if err := b.Subset(otherNodes); err != nil {
		return err
	}
	if !a.Equals(b) {
		return errors.Coded(errors.CodeUnionDiffHistories)
	}
	return nil
}

// remapper copies nodes from src into dst, bringing their individuals and
// populations along the first time each is referenced.
type remapper struct {
	dst, src       *Collection
	addPopulations bool
	individuals    []int32
	populations    []int32
}

func newRemapper(dst, src *Collection, addPopulations bool) *remapper {
	return &remapper{
		dst:            dst,
		src:            src,
		addPopulations: addPopulations,
		individuals:    fill(src.Individuals.NumRows(), Null),
		populations:    fill(src.Populations.NumRows(), Null),
	}
}

func (r *remapper) addNode(u int32) (int32, error) {
	node := r.src.Nodes.row(int(u))
	ind := Null
	if node.Individual != Null {
		if r.individuals[node.Individual] == Null {
			row := r.src.Individuals.row(int(node.Individual))
			id, err := r.dst.Individuals.AddRow(row.Flags, row.Location, row.Metadata)
			if err != nil {
				return Null, err
			}
			r.individuals[node.Individual] = id
		}
		ind = r.individuals[node.Individual]
	}
	pop := Null
	if node.Population != Null {
		if !r.addPopulations {
			r.populations[node.Population] = node.Population
		}
		if r.populations[node.Population] == Null {
			id, err := r.dst.Populations.AddRow(r.src.Populations.row(int(node.Population)).Metadata)
			if err != nil {
				return Null, err
			}
			r.populations[node.Population] = id
		}
		pop = r.populations[node.Population]
	}
	return r.dst.Nodes.AddRow(node.Flags, node.Time, pop, ind, node.Metadata)
}
