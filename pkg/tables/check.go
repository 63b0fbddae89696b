package tables

import (
	"math"
	"strings"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// CheckFlags selects optional integrity checks.
type CheckFlags uint32

const (
	// CheckEdgeOrdering requires edges sorted by (time[parent], parent, child, left)
	// with contiguous parents and no duplicates.
	CheckEdgeOrdering CheckFlags = 1 << iota
	// CheckSiteOrdering requires sites sorted by position.
	CheckSiteOrdering
	// CheckSiteDuplicates rejects sites sharing a position.
	CheckSiteDuplicates
	// CheckMutationOrdering requires mutations sorted by site and
	// non-increasing time, with parents listed first.
	CheckMutationOrdering
	// CheckIndexes requires a valid edge index.
	CheckIndexes
	// CheckTrees walks every tree. It implies all other checks.
	CheckTrees
	// NoCheckPopulationRefs skips population reference checks.
	NoCheckPopulationRefs
)

const checkAllOrdering = CheckEdgeOrdering | CheckSiteOrdering | CheckSiteDuplicates |
	CheckMutationOrdering | CheckIndexes

var checkFlagNames = map[string]CheckFlags{
	"edge-ordering":      CheckEdgeOrdering,
	"site-ordering":      CheckSiteOrdering,
	"site-duplicates":    CheckSiteDuplicates,
	"mutation-ordering":  CheckMutationOrdering,
	"indexes":            CheckIndexes,
	"trees":              CheckTrees,
	"no-population-refs": NoCheckPopulationRefs,
}

// ParseCheckFlags combines named checks such as "edge-ordering" or
// "trees". Underscores may stand in for hyphens.
func ParseCheckFlags(names []string) (CheckFlags, error) {
	var flags CheckFlags
	for _, name := range names {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
		if key == "" {
			continue
		}
		f, ok := checkFlagNames[key]
		if !ok {
			return 0, errors.Coded(errors.CodeBadParam).WithDetail("check", name)
		}
		flags |= f
	}
	return flags, nil
}

// Check validates the collection. With CheckTrees it returns the number of
// trees; otherwise the count is zero. Check never modifies the collection.
func (tc *Collection) Check(flags CheckFlags) (int, error) {
	if flags&CheckTrees != 0 {
		flags |= checkAllOrdering
	}
	if !(tc.SequenceLength > 0) || math.IsInf(tc.SequenceLength, 0) {
		return 0, errors.Coded(errors.CodeBadSequenceLength).WithDetail("sequence_length", tc.SequenceLength)
	}
	if err := tc.checkOffsets(); err != nil {
		return 0, err
	}
	if err := tc.checkNodes(flags); err != nil {
		return 0, err
	}
	if err := tc.checkEdges(flags); err != nil {
		return 0, err
	}
	if err := tc.checkSites(flags); err != nil {
		return 0, err
	}
	if err := tc.checkMutations(flags); err != nil {
		return 0, err
	}
	if err := tc.checkMigrations(flags); err != nil {
		return 0, err
	}
	if flags&CheckIndexes != 0 {
		if err := tc.checkIndex(); err != nil {
			return 0, err
		}
	}
	if flags&CheckTrees != 0 {
		return tc.checkTrees()
	}
	return 0, nil
}

func (tc *Collection) checkOffsets() error {
	checks := []struct {
		table string
		check func() error
	}{
		{"nodes", tc.Nodes.checkOffsets},
		{"edges", tc.Edges.checkOffsets},
		{"sites", tc.Sites.checkOffsets},
		{"mutations", tc.Mutations.checkOffsets},
		{"migrations", tc.Migrations.checkOffsets},
		{"individuals", tc.Individuals.checkOffsets},
		{"populations", tc.Populations.checkOffsets},
		{"provenances", tc.Provenances.checkOffsets},
	}
	for _, c := range checks {
		if err := c.check(); err != nil {
			return err.(*errors.Error).WithDetail("table", c.table)
		}
	}
	return nil
}

func (tc *Collection) checkNodes(flags CheckFlags) error {
	nodes := tc.Nodes
	numPops := int32(tc.Populations.NumRows())
	numInds := int32(tc.Individuals.NumRows())
	checkPops := flags&NoCheckPopulationRefs == 0
	for j := 0; j < nodes.NumRows(); j++ {
		if math.IsNaN(nodes.Time[j]) || math.IsInf(nodes.Time[j], 0) {
			return errors.Coded(errors.CodeTimeNonfinite).WithDetail("node", j)
		}
		if pop := nodes.Population[j]; checkPops && (pop < Null || pop >= numPops) {
			return errors.Coded(errors.CodePopulationOutOfBounds).
				WithDetail("node", j).
				WithDetail("population", pop)
		}
		if ind := nodes.Individual[j]; ind < Null || ind >= numInds {
			return errors.Coded(errors.CodeIndividualOutOfBounds).
				WithDetail("node", j).
				WithDetail("individual", ind)
		}
	}
	return nil
}

func checkInterval(left, right, L float64) errors.Code {
	switch {
	case math.IsNaN(left) || math.IsInf(left, 0) || math.IsNaN(right) || math.IsInf(right, 0):
		return errors.CodeGenomeCoordsNonfinite
	case left < 0:
		return errors.CodeLeftLessZero
	case right > L:
		return errors.CodeRightGreaterSeqLength
	case left >= right:
		return errors.CodeBadEdgeInterval
	}
	return ""
}

func (tc *Collection) checkEdges(flags CheckFlags) error {
	edges := tc.Edges
	time := tc.Nodes.Time
	numNodes := int32(tc.Nodes.NumRows())
	ordering := flags&CheckEdgeOrdering != 0
	var parentSeen []bool
	if ordering {
		parentSeen = make([]bool, numNodes)
	}

	var lastParent, lastChild int32
	var lastLeft float64
	for j := 0; j < edges.NumRows(); j++ {
		parent, child := edges.Parent[j], edges.Child[j]
		left, right := edges.Left[j], edges.Right[j]
		fail := func(code errors.Code) *errors.Error {
			return errors.Coded(code).WithDetail("edge", j)
		}
		if parent == Null {
			return fail(errors.CodeNullParent)
		}
		if parent < 0 || parent >= numNodes {
			return fail(errors.CodeNodeOutOfBounds).WithDetail("node", parent)
		}
		if child == Null {
			return fail(errors.CodeNullChild)
		}
		if child < 0 || child >= numNodes {
			return fail(errors.CodeNodeOutOfBounds).WithDetail("node", child)
		}
		if code := checkInterval(left, right, tc.SequenceLength); code != "" {
			return fail(code)
		}
		if time[child] >= time[parent] {
			return fail(errors.CodeBadNodeTimeOrdering)
		}
		if !ordering {
			continue
		}
		if parentSeen[parent] {
			return fail(errors.CodeEdgesNoncontiguousParents)
		}
		if j > 0 {
			if time[parent] < time[lastParent] {
				return fail(errors.CodeEdgesNotSortedParentTime)
			}
			if time[parent] == time[lastParent] {
				if parent == lastParent {
					if child < lastChild {
						return fail(errors.CodeEdgesNotSortedChild)
					}
					if child == lastChild {
						if left == lastLeft {
							return fail(errors.CodeDuplicateEdges)
						}
						if left < lastLeft {
							return fail(errors.CodeEdgesNotSortedLeft)
						}
					}
				} else {
					parentSeen[lastParent] = true
				}
			}
		}
		lastParent, lastChild, lastLeft = parent, child, left
	}
	return nil
}

func (tc *Collection) checkSites(flags CheckFlags) error {
	position := tc.Sites.Position
	L := tc.SequenceLength
	for j, x := range position {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 || x >= L {
			return errors.Coded(errors.CodeBadSitePosition).WithDetail("site", j).WithDetail("position", x)
		}
		if j > 0 {
			if flags&CheckSiteDuplicates != 0 && position[j-1] == x {
				return errors.Coded(errors.CodeDuplicateSitePosition).WithDetail("site", j)
			}
			if flags&CheckSiteOrdering != 0 && position[j-1] > x {
				return errors.Coded(errors.CodeUnsortedSites).WithDetail("site", j)
			}
		}
	}
	return nil
}

func (tc *Collection) checkMutations(flags CheckFlags) error {
	muts := tc.Mutations
	nodeTime := tc.Nodes.Time
	numNodes := int32(tc.Nodes.NumRows())
	numSites := int32(tc.Sites.NumRows())
	numMuts := int32(muts.NumRows())
	ordering := flags&CheckMutationOrdering != 0

	lastKnownTime := math.Inf(1)
	unknownSeen := false
	for j := int32(0); j < numMuts; j++ {
		fail := func(code errors.Code) *errors.Error {
			return errors.Coded(code).WithDetail("mutation", j)
		}
		site, node, parent := muts.Site[j], muts.Node[j], muts.Parent[j]
		if site < 0 || site >= numSites {
			return fail(errors.CodeSiteOutOfBounds)
		}
		if node < 0 || node >= numNodes {
			return fail(errors.CodeNodeOutOfBounds).WithDetail("node", node)
		}
		if parent < Null || parent >= numMuts {
			return fail(errors.CodeMutationOutOfBounds).WithDetail("parent", parent)
		}
		if parent == j {
			return fail(errors.CodeMutationParentEqual)
		}
		t := muts.Time[j]
		unknown := IsUnknownTime(t)
		if !unknown && (math.IsNaN(t) || math.IsInf(t, 0)) {
			return fail(errors.CodeTimeNonfinite)
		}
		if !ordering {
			continue
		}
		if j > 0 {
			if muts.Site[j-1] > site {
				return fail(errors.CodeUnsortedMutations)
			}
			if muts.Site[j-1] != site {
				lastKnownTime = math.Inf(1)
				unknownSeen = false
			}
		}
		if unknown {
			unknownSeen = true
		} else if unknownSeen {
			return fail(errors.CodeMutationTimeHasBothKnownAndUnknown)
		}
		if parent != Null {
			if parent > j {
				return fail(errors.CodeMutationParentAfterChild)
			}
			if muts.Site[parent] != site {
				return fail(errors.CodeMutationParentDifferentSite)
			}
		}
		if !unknown {
			if t < nodeTime[node] {
				return fail(errors.CodeMutationTimeYoungerThanNode)
			}
			if parent != Null && t > muts.Time[parent] {
				return fail(errors.CodeMutationTimeOlderThanParentMutation)
			}
			if t > lastKnownTime {
				return fail(errors.CodeUnsortedMutations)
			}
			lastKnownTime = t
		}
	}
	return nil
}

func (tc *Collection) checkMigrations(flags CheckFlags) error {
	migs := tc.Migrations
	numNodes := int32(tc.Nodes.NumRows())
	numPops := int32(tc.Populations.NumRows())
	checkPops := flags&NoCheckPopulationRefs == 0
	for j := 0; j < migs.NumRows(); j++ {
		if node := migs.Node[j]; node < 0 || node >= numNodes {
			return errors.Coded(errors.CodeNodeOutOfBounds).WithDetail("migration", j)
		}
		if checkPops {
			if src := migs.Source[j]; src < 0 || src >= numPops {
				return errors.Coded(errors.CodePopulationOutOfBounds).WithDetail("migration", j)
			}
			if dest := migs.Dest[j]; dest < 0 || dest >= numPops {
				return errors.Coded(errors.CodePopulationOutOfBounds).WithDetail("migration", j)
			}
		}
		if t := migs.Time[j]; math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.Coded(errors.CodeTimeNonfinite).WithDetail("migration", j)
		}
		if code := checkInterval(migs.Left[j], migs.Right[j], tc.SequenceLength); code != "" {
			return errors.Coded(code).WithDetail("migration", j)
		}
	}
	return nil
}

func (tc *Collection) checkIndex() error {
	if !tc.HasIndex() {
		return errors.Coded(errors.CodeTablesNotIndexed)
	}
	numEdges := int32(tc.Edges.NumRows())
	for j := range tc.index.insertion {
		if e := tc.index.insertion[j]; e < 0 || e >= numEdges {
			return errors.Coded(errors.CodeEdgeOutOfBounds).WithDetail("index", "insertion").WithDetail("position", j)
		}
		if e := tc.index.removal[j]; e < 0 || e >= numEdges {
			return errors.Coded(errors.CodeEdgeOutOfBounds).WithDetail("index", "removal").WithDetail("position", j)
		}
	}
	return nil
}

// checkTrees sweeps the index, verifying that no child has two parents on
// any interval and that mutations are younger than the parent of their node.
func (tc *Collection) checkTrees() (int, error) {
	numTrees := 0
	err := tc.sweepTrees(func(tree *treeState) error {
		for _, m := range tree.mutations {
			t := tc.Mutations.Time[m]
			if IsUnknownTime(t) {
				continue
			}
			if p := tree.parent[tc.Mutations.Node[m]]; p != Null && tc.Nodes.Time[p] <= t {
				return errors.Coded(errors.CodeMutationTimeOlderThanParentNode).WithDetail("mutation", m)
			}
		}
		if numTrees == math.MaxInt32 {
			return errors.Coded(errors.CodeTreeOverflow)
		}
		numTrees++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return numTrees, nil
}
