package tables

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/internal/segment"
	"github.com/ajitpratap0/arbor/pkg/errors"
)

// LinkAncestors returns the edges that connect the chosen ancestors to the
// samples and to each other. Node ids are not renumbered and the collection
// is not modified.
func (tc *Collection) LinkAncestors(samples, ancestors []int32) (*EdgeTable, error) {
	if len(tc.Edges.Metadata) > 0 {
		return nil, errors.Coded(errors.CodeCantProcessEdgesWithMetadata)
	}
	if len(samples) == 0 || len(ancestors) == 0 {
		return nil, errors.Coded(errors.CodeBadParam).
			WithDetail("reason", "samples and ancestors must be non-empty")
	}
	if _, err := tc.Check(CheckEdgeOrdering); err != nil {
		return nil, err
	}
	numNodes := tc.Nodes.NumRows()
	if err := checkSamples(samples, numNodes); err != nil {
		return nil, err
	}
	if err := checkSamples(ancestors, numNodes); err != nil {
		return nil, err
	}

	m := &ancestorMapper{
		tc:         tc,
		result:     NewEdgeTable(tc.opts.tableOpts),
		ancestry:   segment.NewMap(numNodes),
		children:   segment.NewEdgeBuffer(numNodes),
		isSample:   make([]bool, numNodes),
		isAncestor: make([]bool, numNodes),
	}
	for _, u := range samples {
		m.isSample[u] = true
		m.ancestry.Add(u, 0, tc.SequenceLength, u)
	}
	for _, u := range ancestors {
		m.isAncestor[u] = true
	}
	if err := m.run(); err != nil {
		return nil, err
	}
	tc.logger.Debug("linked ancestors",
		zap.Int("samples", len(samples)),
		zap.Int("ancestors", len(ancestors)),
		zap.Int("edges", m.result.NumRows()))
	return m.result, nil
}

type ancestorMapper struct {
	tc         *Collection
	result     *EdgeTable
	ancestry   *segment.Map
	children   *segment.EdgeBuffer
	overlapper segment.Overlapper
	queue      []segment.Segment
	isSample   []bool
	isAncestor []bool
}

func (m *ancestorMapper) run() error {
	edges := m.tc.Edges
	n := edges.NumRows()
	start := 0
	for j := 1; j <= n; j++ {
		if j == n || edges.Parent[j] != edges.Parent[start] {
			m.queue = m.queue[:0]
			for k := start; k < j; k++ {
				m.ancestry.Overlapping(edges.Child[k], edges.Left[k], edges.Right[k], m.enqueue)
			}
			if err := m.mergeAncestors(edges.Parent[start]); err != nil {
				return err
			}
			start = j
		}
	}
	return nil
}

func (m *ancestorMapper) enqueue(seg segment.Segment) {
	m.queue = append(m.queue, seg)
}

func (m *ancestorMapper) mergeAncestors(input int32) error {
	isSample := m.isSample[input]
	keep := isSample || m.isAncestor[input]
	L := m.tc.SequenceLength

	if isSample {
		m.ancestry.Clear(input)
	}
	m.overlapper.Reset(m.queue)
	prevRight := 0.0
	for {
		left, right, overlapping, ok := m.overlapper.Next()
		if !ok {
			break
		}
		if keep {
			for _, x := range overlapping {
				m.children.Record(left, right, x.Node)
			}
			if isSample && left != prevRight {
				m.ancestry.Add(input, prevRight, left, input)
			}
			m.ancestry.Add(input, left, right, input)
		} else {
			for _, x := range overlapping {
				m.ancestry.Add(input, left, right, x.Node)
			}
		}
		prevRight = right
	}
	if isSample && prevRight != L {
		m.ancestry.Add(input, prevRight, L, input)
	}
	_, err := m.children.Flush(input, func(left, right float64, parent, child int32) error {
		_, err := m.result.AddRow(left, right, parent, child, nil)
		return err
	})
	return err
}
