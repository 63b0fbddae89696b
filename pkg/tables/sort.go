package tables

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/metrics"
)

// SortFlags modifies Sort.
type SortFlags uint32

const (
	// SortNoCheckIntegrity skips the integrity check run before sorting.
	SortNoCheckIntegrity SortFlags = 1 << iota
)

// Sort puts edges, sites and mutations into canonical order and drops the
// index. Edges before start.Edges are assumed sorted already. Sites and
// mutations are skipped when start.Sites and start.Mutations equal their
// row counts; any other nonzero value is rejected.
func (tc *Collection) Sort(start *Bookmark, flags SortFlags) (err error) {
	timer := metrics.NewTimer("sort")
	defer func() { timer.ObserveResult(err) }()
	if tc.Migrations.NumRows() != 0 {
		return errors.Coded(errors.CodeSortMigrationsNotSupported)
	}
	if flags&SortNoCheckIntegrity == 0 {
		if _, err := tc.Check(0); err != nil {
			return err
		}
	}
	edgeStart := 0
	skipSites := false
	if start != nil {
		if start.Edges < 0 || start.Edges > tc.Edges.NumRows() {
			return errors.Coded(errors.CodeEdgeOutOfBounds).WithDetail("start", start.Edges)
		}
		edgeStart = start.Edges
		if start.Migrations != 0 {
			return errors.Coded(errors.CodeMigrationsNotSupported)
		}
		if start.Sites == tc.Sites.NumRows() && start.Mutations == tc.Mutations.NumRows() {
			skipSites = true
		} else if start.Sites != 0 || start.Mutations != 0 {
			return errors.Coded(errors.CodeSortOffsetNotSupported).
				WithDetail("sites", start.Sites).
				WithDetail("mutations", start.Mutations)
		}
	}

	if flags&SortNoCheckIntegrity != 0 {
		if err := tc.checkSortReferences(edgeStart, skipSites); err != nil {
			return err
		}
	}

	tc.DropIndex()
	tc.sortEdges(edgeStart)
	if !skipSites {
		siteMap := tc.sortSites()
		tc.sortMutations(siteMap)
	}
	tc.logger.Debug("sorted tables",
		zap.Int("edge_start", edgeStart),
		zap.Bool("sites_skipped", skipSites),
		zap.Int("edges", tc.Edges.NumRows()))
	return nil
}

// checkSortReferences validates the ids the sort keys index with. It runs
// in place of the integrity check when that is skipped.
func (tc *Collection) checkSortReferences(edgeStart int, skipSites bool) error {
	numNodes := int32(tc.Nodes.NumRows())
	edges := tc.Edges
	for j := edgeStart; j < edges.NumRows(); j++ {
		for _, u := range [2]int32{edges.Parent[j], edges.Child[j]} {
			if u < 0 || u >= numNodes {
				return errors.Coded(errors.CodeNodeOutOfBounds).WithDetail("edge", j).WithDetail("node", u)
			}
		}
	}
	if skipSites {
		return nil
	}
	numSites := int32(tc.Sites.NumRows())
	muts := tc.Mutations
	numMuts := int32(muts.NumRows())
	for j := range muts.Site {
		if muts.Site[j] < 0 || muts.Site[j] >= numSites {
			return errors.Coded(errors.CodeSiteOutOfBounds).WithDetail("mutation", j).WithDetail("site", muts.Site[j])
		}
		if muts.Parent[j] < Null || muts.Parent[j] >= numMuts {
			return errors.Coded(errors.CodeMutationOutOfBounds).WithDetail("mutation", j).WithDetail("parent", muts.Parent[j])
		}
	}
	return nil
}

// sortEdges orders edges from start by (time[parent], parent, child, left).
// Node times are looked up rather than stored with the edge.
func (tc *Collection) sortEdges(start int) {
	edges := tc.Edges
	time := tc.Nodes.Time
	n := edges.NumRows() - start
	if n <= 1 {
		return
	}
	order := make([]int, n)
	for j := range order {
		order[j] = start + j
	}
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := order[a], order[b]
		pa, pb := edges.Parent[ea], edges.Parent[eb]
		if time[pa] != time[pb] {
			return time[pa] < time[pb]
		}
		if pa != pb {
			return pa < pb
		}
		if edges.Child[ea] != edges.Child[eb] {
			return edges.Child[ea] < edges.Child[eb]
		}
		return edges.Left[ea] < edges.Left[eb]
	})

	left := make([]float64, n)
	right := make([]float64, n)
	parent := make([]int32, n)
	child := make([]int32, n)
	for j, k := range order {
		left[j], right[j] = edges.Left[k], edges.Right[k]
		parent[j], child[j] = edges.Parent[k], edges.Child[k]
	}
	copy(edges.Left[start:], left)
	copy(edges.Right[start:], right)
	copy(edges.Parent[start:], parent)
	copy(edges.Child[start:], child)

	if len(edges.Metadata) > 0 {
		base := edges.MetadataOffset[start]
		old := clone(edges.Metadata[base:])
		oldOffsets := clone(edges.MetadataOffset[start:])
		pos := base
		for j, k := range order {
			value := old[oldOffsets[k-start]-base : oldOffsets[k-start+1]-base]
			copy(edges.Metadata[pos:], value)
			edges.MetadataOffset[start+j] = pos
			pos += uint32(len(value))
		}
	}
}

// sortSites orders sites by (position, id) and returns the old to new id map.
func (tc *Collection) sortSites() []int32 {
	sites := tc.Sites
	n := sites.NumRows()
	order := make([]int, n)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sites.Position[order[a]] < sites.Position[order[b]]
	})
	siteMap := make([]int32, n)
	old := sites.Copy()
	sites.Clear()
	for j, k := range order {
		siteMap[k] = int32(j)
		s := old.row(k)
		// Rows fit: the table held them before.
		_, _ = sites.AddRow(s.Position, s.AncestralState, s.Metadata)
	}
	return siteMap
}

// sortMutations remaps sites then orders mutations by site, by decreasing
// time where known (unknown times last), then by id. Parents are remapped
// through the resulting id map.
func (tc *Collection) sortMutations(siteMap []int32) {
	muts := tc.Mutations
	n := muts.NumRows()
	old := muts.Copy()
	for j := range old.Site {
		old.Site[j] = siteMap[old.Site[j]]
	}
	order := make([]int, n)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		ma, mb := order[a], order[b]
		if old.Site[ma] != old.Site[mb] {
			return old.Site[ma] < old.Site[mb]
		}
		ua, ub := IsUnknownTime(old.Time[ma]), IsUnknownTime(old.Time[mb])
		if ua != ub {
			return ub
		}
		if !ua && old.Time[ma] != old.Time[mb] {
			return old.Time[ma] > old.Time[mb]
		}
		return ma < mb
	})
	idMap := make([]int32, n)
	for j, k := range order {
		idMap[k] = int32(j)
	}
	muts.Clear()
	for _, k := range order {
		m := old.row(k)
		parent := Null
		if m.Parent != Null {
			parent = idMap[m.Parent]
		}
		_, _ = muts.AddRow(m.Site, m.Node, parent, m.Time, m.DerivedState, m.Metadata)
	}
}

// DeduplicateSites removes all but the first site at each position and
// remaps mutation sites. Sites must be sorted.
func (tc *Collection) DeduplicateSites() error {
	if tc.Sites.NumRows() == 0 {
		return nil
	}
	if _, err := tc.Check(CheckSiteOrdering); err != nil {
		return err
	}
	sites := tc.Sites
	old := sites.Copy()
	siteMap := make([]int32, old.NumRows())
	sites.Clear()
	for j := 0; j < old.NumRows(); j++ {
		if j > 0 && old.Position[j] == old.Position[j-1] {
			siteMap[j] = int32(sites.NumRows() - 1)
			continue
		}
		s := old.row(j)
		id, err := sites.AddRow(s.Position, s.AncestralState, s.Metadata)
		if err != nil {
			return err
		}
		siteMap[j] = id
	}
	for j, s := range tc.Mutations.Site {
		tc.Mutations.Site[j] = siteMap[s]
	}
	tc.logger.Debug("deduplicated sites",
		zap.Int("before", old.NumRows()),
		zap.Int("after", sites.NumRows()))
	return nil
}
