package tables

import (
	"math"

	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/internal/segment"
	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/metrics"
)

// SimplifyFlags selects simplification policies. Each flag is independent.
type SimplifyFlags uint32

const (
	// SimplifyFilterSites drops sites left without mutations.
	SimplifyFilterSites SimplifyFlags = 1 << iota
	// SimplifyFilterPopulations drops populations no output node references.
	SimplifyFilterPopulations
	// SimplifyFilterIndividuals drops individuals no output node references.
	SimplifyFilterIndividuals
	// SimplifyReduceToSiteTopology snaps edges to site positions, keeping only
	// the topology visible at sites.
	SimplifyReduceToSiteTopology
	// SimplifyKeepUnary keeps nodes that are unary in some trees.
	SimplifyKeepUnary
	// SimplifyKeepInputRoots keeps the ancestry above the samples' roots.
	SimplifyKeepInputRoots
)

// Simplify reduces the collection to the ancestry of samples, in place. A
// nil samples uses every node flagged NodeIsSample. The returned map has
// one entry per input node giving its output id, or Null if it was removed.
// On error the collection is left as it was.
func (tc *Collection) Simplify(samples []int32, flags SimplifyFlags) (nodeMap []int32, err error) {
	timer := metrics.NewTimer("simplify")
	defer func() { timer.ObserveResult(err) }()
	if len(tc.Edges.Metadata) > 0 {
		return nil, errors.Coded(errors.CodeCantProcessEdgesWithMetadata)
	}
	if samples == nil {
		samples = tc.Samples()
	}
	if _, err := tc.Check(CheckEdgeOrdering | CheckSiteOrdering | CheckSiteDuplicates); err != nil {
		return nil, err
	}
	if err := checkSamples(samples, tc.Nodes.NumRows()); err != nil {
		return nil, err
	}

	index := tc.index
	in := tc.Copy()
	in.DropIndex()
	s := newSimplifier(tc, in, flags)
	tc.Clear()
	if err := s.run(samples); err != nil {
		tc.replaceTables(in)
		tc.index = index
		return nil, err
	}
	tc.DropIndex()
	tc.logger.Debug("simplified tables",
		zap.Int("samples", len(samples)),
		zap.Int("nodes_in", in.Nodes.NumRows()),
		zap.Int("nodes_out", tc.Nodes.NumRows()),
		zap.Int("edges_in", in.Edges.NumRows()),
		zap.Int("edges_out", tc.Edges.NumRows()))
	return s.nodeMap, nil
}

// Samples returns the ids of the nodes flagged NodeIsSample.
func (tc *Collection) Samples() []int32 {
	samples := make([]int32, 0)
	for j, f := range tc.Nodes.Flags {
		if f&NodeIsSample != 0 {
			samples = append(samples, int32(j))
		}
	}
	return samples
}

func checkSamples(samples []int32, numNodes int) error {
	seen := make([]bool, numNodes)
	for _, u := range samples {
		if u < 0 || int(u) >= numNodes {
			return errors.Coded(errors.CodeNodeOutOfBounds).WithDetail("sample", u)
		}
		if seen[u] {
			return errors.Coded(errors.CodeDuplicateSample).WithDetail("sample", u)
		}
		seen[u] = true
	}
	return nil
}

type simplifier struct {
	out   *Collection
	in    *Collection
	flags SimplifyFlags

	ancestry   *segment.Map
	children   *segment.EdgeBuffer
	overlapper segment.Overlapper
	queue      []segment.Segment

	nodeMap         []int32
	nodeMutations   [][]int32
	mutationNodeMap []int32
	mutationIDMap   []int32
	positions       []float64
	edgeSortOffset  int
}

func newSimplifier(out, in *Collection, flags SimplifyFlags) *simplifier {
	numNodes := in.Nodes.NumRows()
	numMuts := in.Mutations.NumRows()
	s := &simplifier{
		out:             out,
		in:              in,
		flags:           flags,
		ancestry:        segment.NewMap(numNodes),
		children:        segment.NewEdgeBuffer(numNodes),
		nodeMap:         fill(numNodes, Null),
		nodeMutations:   make([][]int32, numNodes),
		mutationNodeMap: fill(numMuts, Null),
		mutationIDMap:   fill(numMuts, Null),
		edgeSortOffset:  -1,
	}
	for j, u := range in.Mutations.Node {
		s.nodeMutations[u] = append(s.nodeMutations[u], int32(j))
	}
	if flags&SimplifyReduceToSiteTopology != 0 {
		numSites := in.Sites.NumRows()
		s.positions = make([]float64, numSites+2)
		copy(s.positions[1:], in.Sites.Position)
		s.positions[numSites+1] = in.SequenceLength
	}
	return s
}

func (s *simplifier) run(samples []int32) error {
	for _, u := range samples {
		output, err := s.recordNode(u, true)
		if err != nil {
			return err
		}
		s.addAncestry(u, 0, s.in.SequenceLength, output)
	}

	edges := s.in.Edges
	n := edges.NumRows()
	start := 0
	for j := 1; j <= n; j++ {
		if j == n || edges.Parent[j] != edges.Parent[start] {
			if err := s.processParentEdges(edges.Parent[start], start, j); err != nil {
				return err
			}
			start = j
		}
	}
	if s.flags&SimplifyKeepInputRoots != 0 {
		if err := s.insertInputRoots(); err != nil {
			return err
		}
	}
	if err := s.outputSites(); err != nil {
		return err
	}
	if err := s.finaliseReferences(); err != nil {
		return err
	}
	if s.edgeSortOffset >= 0 {
		bookmark := &Bookmark{
			Edges:     s.edgeSortOffset,
			Sites:     s.out.Sites.NumRows(),
			Mutations: s.out.Mutations.NumRows(),
		}
		if err := s.out.Sort(bookmark, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *simplifier) recordNode(input int32, isSample bool) (int32, error) {
	node := s.in.Nodes.row(int(input))
	flags := node.Flags &^ NodeIsSample
	if isSample {
		flags |= NodeIsSample
	}
	output, err := s.out.Nodes.AddRow(flags, node.Time, node.Population, node.Individual, node.Metadata)
	if err != nil {
		return Null, err
	}
	s.nodeMap[input] = output
	return output, nil
}

// rewindNode removes the most recently recorded node.
func (s *simplifier) rewindNode(input, output int32) error {
	s.nodeMap[input] = Null
	return s.out.Nodes.Truncate(int(output))
}

func (s *simplifier) recordEdge(left, right float64, child int32) {
	if s.positions != nil {
		var ok bool
		if left, right, ok = s.reduceCoordinates(left, right); !ok {
			return
		}
	}
	s.children.Record(left, right, child)
}

// reduceCoordinates snaps an edge to the surrounding site positions. ok is
// false when no site falls inside the edge.
func (s *simplifier) reduceCoordinates(left, right float64) (float64, float64, bool) {
	x := s.positions
	l := searchSorted(x, left)
	r := searchSorted(x, right)
	if l == r || (l == 0 && r == 1) {
		return 0, 0, false
	}
	if l == 1 {
		l = 0
	}
	return x[l], x[r], true
}

// searchSorted returns the index of the last element equal to v, or the
// index of the first element greater than v.
func searchSorted(x []float64, v float64) int {
	if len(x) == 0 {
		return 0
	}
	lower, upper := 0, len(x)
	for upper-lower > 1 {
		mid := (upper + lower) / 2
		if v >= x[mid] {
			lower = mid
		} else {
			upper = mid
		}
	}
	if x[lower] < v {
		return lower + 1
	}
	return lower
}

func (s *simplifier) flushEdges(parent int32) (int, error) {
	return s.children.Flush(parent, func(left, right float64, parent, child int32) error {
		_, err := s.out.Edges.AddRow(left, right, parent, child, nil)
		return err
	})
}

func (s *simplifier) mapMutations(input int32, left, right float64, output int32) {
	muts := s.in.Mutations
	for _, m := range s.nodeMutations[input] {
		position := s.in.Sites.Position[muts.Site[m]]
		if left <= position && position < right {
			s.mutationNodeMap[m] = output
		}
	}
}

func (s *simplifier) addAncestry(input int32, left, right float64, output int32) {
	s.ancestry.Add(input, left, right, output)
	s.mapMutations(input, left, right, output)
}

func (s *simplifier) enqueue(seg segment.Segment) {
	s.queue = append(s.queue, seg)
}

func (s *simplifier) processParentEdges(parent int32, start, end int) error {
	edges := s.in.Edges
	s.queue = s.queue[:0]
	for j := start; j < end; j++ {
		s.ancestry.Extract(edges.Child[j], edges.Left[j], edges.Right[j], s.enqueue)
	}
	return s.mergeAncestors(parent)
}

func (s *simplifier) mergeAncestors(input int32) error {
	output := s.nodeMap[input]
	isSample := output != Null
	keepUnary := s.flags&SimplifyKeepUnary != 0
	L := s.in.SequenceLength
	var err error

	if isSample {
		s.ancestry.Clear(input)
	}
	s.overlapper.Reset(s.queue)
	prevRight := 0.0
	for {
		left, right, overlapping, ok := s.overlapper.Next()
		if !ok {
			break
		}
		var ancestryNode int32
		if len(overlapping) == 1 {
			ancestryNode = overlapping[0].Node
			if isSample {
				s.recordEdge(left, right, ancestryNode)
				ancestryNode = output
			} else if keepUnary {
				if output == Null {
					if output, err = s.recordNode(input, false); err != nil {
						return err
					}
				}
				s.recordEdge(left, right, ancestryNode)
			}
		} else {
			if output == Null {
				if output, err = s.recordNode(input, false); err != nil {
					return err
				}
			}
			ancestryNode = output
			for _, x := range overlapping {
				s.recordEdge(left, right, x.Node)
			}
		}
		if isSample && left != prevRight {
			s.addAncestry(input, prevRight, left, output)
		}
		if keepUnary {
			ancestryNode = output
		}
		s.addAncestry(input, left, right, ancestryNode)
		prevRight = right
	}
	if isSample && prevRight != L {
		s.addAncestry(input, prevRight, L, output)
	}
	if output != Null {
		flushed, err := s.flushEdges(output)
		if err != nil {
			return err
		}
		if flushed == 0 && !isSample {
			return s.rewindNode(input, output)
		}
	}
	return nil
}

// insertInputRoots adds edges from every input node that still carries
// ancestry to the output nodes below it.
func (s *simplifier) insertInputRoots() error {
	youngest := math.MaxFloat64
	for j := 0; j < s.in.Nodes.NumRows(); j++ {
		input := int32(j)
		if s.ancestry.Empty(input) {
			continue
		}
		output := s.nodeMap[input]
		if output == Null {
			var err error
			if output, err = s.recordNode(input, false); err != nil {
				return err
			}
		}
		youngest = min(youngest, s.out.Nodes.Time[output])
		s.ancestry.Each(input, func(x segment.Segment) {
			if x.Node != output {
				s.recordEdge(x.Left, x.Right, x.Node)
				s.mapMutations(input, x.Left, x.Right, output)
			}
		})
		if _, err := s.flushEdges(output); err != nil {
			return err
		}
	}
	if youngest != math.MaxFloat64 {
		edges := s.out.Edges
		time := s.out.Nodes.Time
		offset := 0
		for offset < edges.NumRows() && time[edges.Parent[offset]] < youngest {
			offset++
		}
		s.edgeSortOffset = offset
	}
	return nil
}

// outputSites writes the sites and the mutations that map to output nodes.
// Mutation parents are remapped through the output ids assigned so far.
func (s *simplifier) outputSites() error {
	sites := s.in.Sites
	muts := s.in.Mutations
	filter := s.flags&SimplifyFilterSites != 0
	numMuts := muts.NumRows()
	var numOutput int32

	j := 0
	for site := 0; site < sites.NumRows(); site++ {
		start := j
		kept := 0
		for j < numMuts && muts.Site[j] == int32(site) {
			if s.mutationNodeMap[j] != Null {
				s.mutationIDMap[j] = numOutput
				numOutput++
				kept++
			}
			j++
		}
		if filter && kept == 0 {
			continue
		}
		outSite := int32(s.out.Sites.NumRows())
		for k := start; k < j; k++ {
			if s.mutationIDMap[k] == Null {
				continue
			}
			m := muts.row(k)
			parent := Null
			if m.Parent != Null {
				parent = s.mutationIDMap[m.Parent]
			}
			if _, err := s.out.Mutations.AddRow(outSite, s.mutationNodeMap[k], parent, m.Time, m.DerivedState, m.Metadata); err != nil {
				return err
			}
		}
		row := sites.row(site)
		if _, err := s.out.Sites.AddRow(row.Position, row.AncestralState, row.Metadata); err != nil {
			return err
		}
	}
	if j != numMuts {
		return errors.Coded(errors.CodeUnsortedMutations).WithDetail("mutation", j)
	}
	return nil
}

// finaliseReferences copies the populations and individuals, dropping the
// unreferenced ones when filtering, and remaps the output nodes onto them.
func (s *simplifier) finaliseReferences() error {
	if s.in.Migrations.NumRows() != 0 {
		return errors.Coded(errors.CodeSimplifyMigrationsNotSupported)
	}
	nodes := s.out.Nodes
	popReferenced := make([]bool, s.in.Populations.NumRows())
	indReferenced := make([]bool, s.in.Individuals.NumRows())
	for j := 0; j < nodes.NumRows(); j++ {
		if p := nodes.Population[j]; p != Null {
			popReferenced[p] = true
		}
		if i := nodes.Individual[j]; i != Null {
			indReferenced[i] = true
		}
	}

	filterPops := s.flags&SimplifyFilterPopulations != 0
	popMap := fill(len(popReferenced), Null)
	for j := range popMap {
		if filterPops && !popReferenced[j] {
			continue
		}
		id, err := s.out.Populations.AddRow(s.in.Populations.row(j).Metadata)
		if err != nil {
			return err
		}
		popMap[j] = id
	}

	filterInds := s.flags&SimplifyFilterIndividuals != 0
	indMap := fill(len(indReferenced), Null)
	for j := range indMap {
		if filterInds && !indReferenced[j] {
			continue
		}
		ind := s.in.Individuals.row(j)
		id, err := s.out.Individuals.AddRow(ind.Flags, ind.Location, ind.Metadata)
		if err != nil {
			return err
		}
		indMap[j] = id
	}

	for j := 0; j < nodes.NumRows(); j++ {
		if p := nodes.Population[j]; p != Null {
			nodes.Population[j] = popMap[p]
		}
		if i := nodes.Individual[j]; i != Null {
			nodes.Individual[j] = indMap[i]
		}
	}
	*s.out.Provenances = *s.in.Provenances.Copy()
	return nil
}
