// Package tables implements the columnar tree-sequence store: eight
// growable tables, the collection that owns them, and the operations that
// check, sort, index, simplify and serialise a collection.
//
// # Ownership
//
// A Collection exclusively owns its tables and its edge index. Nothing in
// this package locks; callers sharing a collection across goroutines must
// serialise access themselves. Row views returned by Row methods borrow
// from the table and are invalidated by the next structural edit.
//
// # Index
//
// The edge index (insertion and removal orders) is derived state. Every
// structural edit made through this package drops it. Callers that edit
// exported columns directly must call DropIndex.
package tables

import (
	"bytes"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/logger"
)

// Bookmark records a row count per table.
type Bookmark struct {
	Individuals int
	Nodes       int
	Edges       int
	Migrations  int
	Sites       int
	Mutations   int
	Populations int
	Provenances int
}

type options struct {
	tableOpts      TableOptions
	noEdgeMetadata bool
	logger         *zap.Logger
}

// Option configures a Collection.
type Option func(*options)

// WithNoEdgeMetadata disables metadata on the edge table.
func WithNoEdgeMetadata() Option {
	return func(o *options) { o.noEdgeMetadata = true }
}

// WithTableOptions sets the growth policy for every table.
func WithTableOptions(opts TableOptions) Option {
	return func(o *options) { o.tableOpts = opts }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

type edgeIndex struct {
	insertion []int32
	removal   []int32
	numEdges  int
}

// Collection is a set of tables describing one tree sequence.
type Collection struct {
	SequenceLength float64
	Metadata       []byte
	MetadataSchema string
	// FileUUID is the content id written by the last Dump or read by Load.
	FileUUID string

	Individuals *IndividualTable
	Nodes       *NodeTable
	Edges       *EdgeTable
	Migrations  *MigrationTable
	Sites       *SiteTable
	Mutations   *MutationTable
	Populations *PopulationTable
	Provenances *ProvenanceTable

	index  *edgeIndex
	opts   options
	logger *zap.Logger
}

// New creates an empty collection.
func New(sequenceLength float64, opts ...Option) *Collection {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("tables")
	}
	tc := &Collection{
		SequenceLength: sequenceLength,
		Individuals:    NewIndividualTable(o.tableOpts),
		Nodes:          NewNodeTable(o.tableOpts),
		Migrations:     NewMigrationTable(o.tableOpts),
		Sites:          NewSiteTable(o.tableOpts),
		Mutations:      NewMutationTable(o.tableOpts),
		Populations:    NewPopulationTable(o.tableOpts),
		Provenances:    NewProvenanceTable(o.tableOpts),
		opts:           o,
		logger:         o.logger,
	}
	if o.noEdgeMetadata {
		tc.Edges = NewEdgeTableNoMetadata(o.tableOpts)
	} else {
		tc.Edges = NewEdgeTable(o.tableOpts)
	}
	return tc
}

// Logger returns the collection's logger.
func (tc *Collection) Logger() *zap.Logger {
	return tc.logger
}

// SetMetadata replaces the collection metadata.
func (tc *Collection) SetMetadata(metadata []byte) {
	tc.Metadata = clone(metadata)
}

// SetMetadataSchema replaces the collection metadata schema.
func (tc *Collection) SetMetadataSchema(schema string) {
	tc.MetadataSchema = schema
}

// Copy returns a deep copy, including the index if one is present.
func (tc *Collection) Copy() *Collection {
	out := &Collection{
		SequenceLength: tc.SequenceLength,
		Metadata:       clone(tc.Metadata),
		MetadataSchema: tc.MetadataSchema,
		FileUUID:       tc.FileUUID,
		Individuals:    tc.Individuals.Copy(),
		Nodes:          tc.Nodes.Copy(),
		Edges:          tc.Edges.Copy(),
		Migrations:     tc.Migrations.Copy(),
		Sites:          tc.Sites.Copy(),
		Mutations:      tc.Mutations.Copy(),
		Populations:    tc.Populations.Copy(),
		Provenances:    tc.Provenances.Copy(),
		opts:           tc.opts,
		logger:         tc.logger,
	}
	if tc.HasIndex() {
		out.index = &edgeIndex{
			insertion: clone(tc.index.insertion),
			removal:   clone(tc.index.removal),
			numEdges:  tc.index.numEdges,
		}
	}
	return out
}

// Equals compares sequence length, metadata and all tables. The index and
// the file uuid are not compared.
func (tc *Collection) Equals(o *Collection) bool {
	return math.Float64bits(tc.SequenceLength) == math.Float64bits(o.SequenceLength) &&
		bytes.Equal(tc.Metadata, o.Metadata) &&
		tc.MetadataSchema == o.MetadataSchema &&
		tc.Individuals.Equals(o.Individuals) &&
		tc.Nodes.Equals(o.Nodes) &&
		tc.Edges.Equals(o.Edges) &&
		tc.Migrations.Equals(o.Migrations) &&
		tc.Sites.Equals(o.Sites) &&
		tc.Mutations.Equals(o.Mutations) &&
		tc.Populations.Equals(o.Populations) &&
		tc.Provenances.Equals(o.Provenances)
}

// RecordNumRows returns the current row counts.
func (tc *Collection) RecordNumRows() Bookmark {
	return Bookmark{
		Individuals: tc.Individuals.NumRows(),
		Nodes:       tc.Nodes.NumRows(),
		Edges:       tc.Edges.NumRows(),
		Migrations:  tc.Migrations.NumRows(),
		Sites:       tc.Sites.NumRows(),
		Mutations:   tc.Mutations.NumRows(),
		Populations: tc.Populations.NumRows(),
		Provenances: tc.Provenances.NumRows(),
	}
}

// TableNames lists the tables in file order.
var TableNames = []string{
	"individuals", "nodes", "edges", "migrations",
	"sites", "mutations", "populations", "provenances",
}

// Counts returns the positions keyed by table name.
func (b Bookmark) Counts() map[string]int {
	return map[string]int{
		"individuals": b.Individuals,
		"nodes":       b.Nodes,
		"edges":       b.Edges,
		"migrations":  b.Migrations,
		"sites":       b.Sites,
		"mutations":   b.Mutations,
		"populations": b.Populations,
		"provenances": b.Provenances,
	}
}

// Truncate restores every table to the row counts in b and drops the index.
func (tc *Collection) Truncate(b Bookmark) error {
	tc.DropIndex()
	steps := []func() error{
		func() error { return tc.Individuals.Truncate(b.Individuals) },
		func() error { return tc.Nodes.Truncate(b.Nodes) },
		func() error { return tc.Edges.Truncate(b.Edges) },
		func() error { return tc.Migrations.Truncate(b.Migrations) },
		func() error { return tc.Sites.Truncate(b.Sites) },
		func() error { return tc.Mutations.Truncate(b.Mutations) },
		func() error { return tc.Populations.Truncate(b.Populations) },
		func() error { return tc.Provenances.Truncate(b.Provenances) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every row from every table and drops the index.
func (tc *Collection) Clear() {
	_ = tc.Truncate(Bookmark{})
}

// HasIndex reports whether a valid edge index is present.
func (tc *Collection) HasIndex() bool {
	return tc.index != nil &&
		tc.index.insertion != nil &&
		tc.index.removal != nil &&
		tc.index.numEdges == tc.Edges.NumRows()
}

// DropIndex discards the edge index.
func (tc *Collection) DropIndex() {
	tc.index = nil
}

// SquashEdges squashes the edge table and drops the index. On error the
// edges are left as they were.
func (tc *Collection) SquashEdges() error {
	saved := tc.Edges.Copy()
	if err := tc.Edges.Squash(); err != nil {
		*tc.Edges = *saved
		return err
	}
	tc.DropIndex()
	return nil
}

// EdgeInsertionOrder returns the insertion index, or nil when not indexed.
func (tc *Collection) EdgeInsertionOrder() []int32 {
	if !tc.HasIndex() {
		return nil
	}
	return tc.index.insertion
}

// EdgeRemovalOrder returns the removal index, or nil when not indexed.
func (tc *Collection) EdgeRemovalOrder() []int32 {
	if !tc.HasIndex() {
		return nil
	}
	return tc.index.removal
}

// SetIndex installs precomputed index arrays. Entries are validated by
// Check with CheckIndexes.
func (tc *Collection) SetIndex(insertion, removal []int32) error {
	if len(insertion) != len(removal) || len(insertion) != tc.Edges.NumRows() {
		return errors.Coded(errors.CodeBadParam).
			WithDetail("reason", "index length must equal the number of edges").
			WithDetail("insertion", len(insertion)).
			WithDetail("removal", len(removal))
	}
	tc.index = &edgeIndex{
		insertion: clone(insertion),
		removal:   clone(removal),
		numEdges:  len(insertion),
	}
	return nil
}

// BuildIndex computes the edge insertion and removal orders. Edges must
// satisfy the edge ordering requirements.
func (tc *Collection) BuildIndex() error {
	if _, err := tc.Check(CheckEdgeOrdering); err != nil {
		return err
	}
	edges := tc.Edges
	time := tc.Nodes.Time
	n := edges.NumRows()

	insertion := make([]int32, n)
	removal := make([]int32, n)
	for j := range insertion {
		insertion[j] = int32(j)
		removal[j] = int32(j)
	}

	sort.Slice(insertion, func(a, b int) bool {
		ea, eb := insertion[a], insertion[b]
		if edges.Left[ea] != edges.Left[eb] {
			return edges.Left[ea] < edges.Left[eb]
		}
		ta, tb := time[edges.Parent[ea]], time[edges.Parent[eb]]
		if ta != tb {
			return ta < tb
		}
		if edges.Parent[ea] != edges.Parent[eb] {
			return edges.Parent[ea] < edges.Parent[eb]
		}
		return edges.Child[ea] < edges.Child[eb]
	})
	sort.Slice(removal, func(a, b int) bool {
		ea, eb := removal[a], removal[b]
		if edges.Right[ea] != edges.Right[eb] {
			return edges.Right[ea] < edges.Right[eb]
		}
		ta, tb := time[edges.Parent[ea]], time[edges.Parent[eb]]
		if ta != tb {
			return ta > tb
		}
		if edges.Parent[ea] != edges.Parent[eb] {
			return edges.Parent[ea] > edges.Parent[eb]
		}
		return edges.Child[ea] > edges.Child[eb]
	})

	tc.index = &edgeIndex{insertion: insertion, removal: removal, numEdges: n}
	tc.logger.Debug("built edge index", zap.Int("edges", n))
	return nil
}

// replaceTables swaps in the contents of src's tables, keeping the table
// pointers held by tc. src must not be used afterwards.
func (tc *Collection) replaceTables(src *Collection) {
	*tc.Individuals = *src.Individuals
	*tc.Nodes = *src.Nodes
	*tc.Edges = *src.Edges
	*tc.Migrations = *src.Migrations
	*tc.Sites = *src.Sites
	*tc.Mutations = *src.Mutations
	*tc.Populations = *src.Populations
	*tc.Provenances = *src.Provenances
	tc.DropIndex()
}

func (tc *Collection) newEmptyLike() *Collection {
	out := New(tc.SequenceLength, WithTableOptions(tc.opts.tableOpts), WithLogger(tc.logger))
	if tc.Edges.MetadataDisabled() {
		out.Edges.noMetadata = true
	}
	return out
}
