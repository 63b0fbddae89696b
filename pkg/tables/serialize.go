package tables

import (
	"bytes"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/pkg/errors"
	"github.com/ajitpratap0/arbor/pkg/kastore"
)

const (
	// FormatName identifies a tree sequence file.
	FormatName = "tskit.trees"
	// FormatVersionMajor is the major version written by Dump.
	FormatVersionMajor = 12
	// FormatVersionMinor is the minor version written by Dump.
	FormatVersionMinor = 3
	// MinFormatVersionMajor is the oldest major version Load accepts.
	MinFormatVersionMajor = 12

	uuidSize = 36
)

// Dump writes the collection to w, building the index first if it is
// missing. Unsorted edges make Dump fail rather than being sorted. A fresh
// FileUUID is generated for every call.
func (tc *Collection) Dump(w io.Writer) error {
	store, err := tc.encode()
	if err != nil {
		return err
	}
	n, err := store.Encode(w)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write tables")
	}
	tc.logger.Debug("dumped tables",
		zap.String("uuid", tc.FileUUID),
		zap.Int64("bytes", n),
		zap.Int("keys", store.Len()))
	return nil
}

// DumpBytes returns the encoded collection.
func (tc *Collection) DumpBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := tc.Dump(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tc *Collection) encode() (*kastore.Store, error) {
	if !tc.HasIndex() {
		if err := tc.BuildIndex(); err != nil {
			return nil, err
		}
	}
	id := uuid.New().String()

	w := &storeWriter{store: kastore.New()}
	w.putString("format/name", FormatName)
	putColumn(w, "format/version", []uint32{FormatVersionMajor, FormatVersionMinor})
	putColumn(w, "sequence_length", []float64{tc.SequenceLength})
	w.putString("uuid", id)
	putColumn(w, "metadata", toInt8(tc.Metadata))
	w.putString("metadata_schema", tc.MetadataSchema)

	inds := tc.Individuals
	putColumn(w, "individuals/flags", inds.Flags)
	putRagged(w, "individuals/location", inds.Location, inds.LocationOffset)
	putRagged(w, "individuals/metadata", inds.Metadata, inds.MetadataOffset)
	w.putSchema("individuals", inds.MetadataSchema)

	nodes := tc.Nodes
	putColumn(w, "nodes/time", nodes.Time)
	putColumn(w, "nodes/flags", nodes.Flags)
	putColumn(w, "nodes/population", nodes.Population)
	putColumn(w, "nodes/individual", nodes.Individual)
	putRagged(w, "nodes/metadata", nodes.Metadata, nodes.MetadataOffset)
	w.putSchema("nodes", nodes.MetadataSchema)

	edges := tc.Edges
	putColumn(w, "edges/left", edges.Left)
	putColumn(w, "edges/right", edges.Right)
	putColumn(w, "edges/parent", edges.Parent)
	putColumn(w, "edges/child", edges.Child)
	if !edges.MetadataDisabled() {
		putRagged(w, "edges/metadata", edges.Metadata, edges.MetadataOffset)
	}
	w.putSchema("edges", edges.MetadataSchema)

	migs := tc.Migrations
	putColumn(w, "migrations/left", migs.Left)
	putColumn(w, "migrations/right", migs.Right)
	putColumn(w, "migrations/node", migs.Node)
	putColumn(w, "migrations/source", migs.Source)
	putColumn(w, "migrations/dest", migs.Dest)
	putColumn(w, "migrations/time", migs.Time)
	putRagged(w, "migrations/metadata", migs.Metadata, migs.MetadataOffset)
	w.putSchema("migrations", migs.MetadataSchema)

	sites := tc.Sites
	putColumn(w, "sites/position", sites.Position)
	putRagged(w, "sites/ancestral_state", sites.AncestralState, sites.AncestralStateOffset)
	putRagged(w, "sites/metadata", sites.Metadata, sites.MetadataOffset)
	w.putSchema("sites", sites.MetadataSchema)

	muts := tc.Mutations
	putColumn(w, "mutations/site", muts.Site)
	putColumn(w, "mutations/node", muts.Node)
	putColumn(w, "mutations/parent", muts.Parent)
	putColumn(w, "mutations/time", muts.Time)
	putRagged(w, "mutations/derived_state", muts.DerivedState, muts.DerivedStateOffset)
	putRagged(w, "mutations/metadata", muts.Metadata, muts.MetadataOffset)
	w.putSchema("mutations", muts.MetadataSchema)

	pops := tc.Populations
	putRagged(w, "populations/metadata", pops.Metadata, pops.MetadataOffset)
	w.putSchema("populations", pops.MetadataSchema)

	provs := tc.Provenances
	putRagged(w, "provenances/timestamp", provs.Timestamp, provs.TimestampOffset)
	putRagged(w, "provenances/record", provs.Record, provs.RecordOffset)

	putColumn(w, "indexes/edge_insertion_order", tc.index.insertion)
	putColumn(w, "indexes/edge_removal_order", tc.index.removal)

	if w.err != nil {
		return nil, w.err
	}
	tc.FileUUID = id
	return w.store, nil
}

// storeWriter records the first error from a run of puts.
type storeWriter struct {
	store *kastore.Store
	err   error
}

func putColumn[T kastore.Element](w *storeWriter, key string, values []T) {
	if w.err == nil {
		w.err = kastore.Put(w.store, key, values)
	}
}

func putRagged[T kastore.Element](w *storeWriter, key string, data []T, offsets []uint32) {
	putColumn(w, key, data)
	putColumn(w, key+"_offset", offsets)
}

func (w *storeWriter) putString(key, value string) {
	if w.err == nil {
		w.err = kastore.PutString(w.store, key, value)
	}
}

func (w *storeWriter) putSchema(table, schema string) {
	putColumn(w, table+"/metadata_schema", []byte(schema))
}

func toInt8(b []byte) []int8 {
	out := make([]int8, len(b))
	for j, c := range b {
		out[j] = int8(c)
	}
	return out
}

// Load decodes a collection written by Dump. The index is restored when
// both index arrays are present.
func Load(data []byte, opts ...Option) (*Collection, error) {
	store, err := kastore.Decode(data)
	if err != nil {
		return nil, err
	}
	return loadStore(store, opts...)
}

// LoadReader reads everything from r and decodes it.
func LoadReader(r io.Reader, opts ...Option) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read tables")
	}
	return Load(data, opts...)
}

func loadStore(store *kastore.Store, opts ...Option) (*Collection, error) {
	name, err := requiredBytes(store, "format/name")
	if err != nil {
		return nil, err
	}
	if len(name) != len(FormatName) || string(name) != FormatName {
		return nil, errors.Coded(errors.CodeFileFormat).WithDetail("format", string(name))
	}
	version, err := requiredColumn[uint32](store, "format/version")
	if err != nil {
		return nil, err
	}
	if len(version) != 2 {
		return nil, errors.Coded(errors.CodeFileFormat).WithDetail("key", "format/version")
	}
	if version[0] < MinFormatVersionMajor {
		return nil, errors.Coded(errors.CodeFileVersionTooOld).WithDetail("major", version[0])
	}
	if version[0] > FormatVersionMajor {
		return nil, errors.Coded(errors.CodeFileVersionTooNew).WithDetail("major", version[0])
	}
	L, err := requiredColumn[float64](store, "sequence_length")
	if err != nil {
		return nil, err
	}
	if len(L) != 1 {
		return nil, errors.Coded(errors.CodeFileFormat).WithDetail("key", "sequence_length")
	}
	if !(L[0] > 0) {
		return nil, errors.Coded(errors.CodeBadSequenceLength).WithDetail("sequence_length", L[0])
	}
	id, err := requiredBytes(store, "uuid")
	if err != nil {
		return nil, err
	}
	if len(id) != uuidSize {
		return nil, errors.Coded(errors.CodeFileFormat).WithDetail("key", "uuid")
	}

	tc := New(L[0], opts...)
	tc.FileUUID = string(id)
	if tc.Metadata, err = optionalBytes(store, "metadata"); err != nil {
		return nil, err
	}
	schema, err := optionalBytes(store, "metadata_schema")
	if err != nil {
		return nil, err
	}
	tc.MetadataSchema = string(schema)

	loaders := []func(*kastore.Store) error{
		tc.loadNodes,
		tc.loadEdges,
		tc.loadSites,
		tc.loadMutations,
		tc.loadMigrations,
		tc.loadIndividuals,
		tc.loadPopulations,
		tc.loadProvenances,
		tc.loadIndex,
	}
	for _, load := range loaders {
		if err := load(store); err != nil {
			return nil, err
		}
	}
	tc.logger.Debug("loaded tables",
		zap.String("uuid", tc.FileUUID),
		zap.Int("nodes", tc.Nodes.NumRows()),
		zap.Int("edges", tc.Edges.NumRows()),
		zap.Bool("indexed", tc.HasIndex()))
	return tc, nil
}

func missing(key string) error {
	return errors.Coded(errors.CodeRequiredColumnNotFound).WithDetail("key", key)
}

func requiredBytes(store *kastore.Store, key string) ([]byte, error) {
	if !store.Contains(key) {
		return nil, missing(key)
	}
	b, err := kastore.GetBytes(store, key)
	if err != nil {
		return nil, errors.Coded(errors.CodeFileFormat).WithDetail("key", key)
	}
	return b, nil
}

func optionalBytes(store *kastore.Store, key string) ([]byte, error) {
	if !store.Contains(key) {
		return nil, nil
	}
	return requiredBytes(store, key)
}

func requiredColumn[T kastore.Element](store *kastore.Store, key string) ([]T, error) {
	if !store.Contains(key) {
		return nil, missing(key)
	}
	v, err := kastore.Get[T](store, key)
	if err != nil {
		return nil, errors.Coded(errors.CodeFileFormat).WithDetail("key", key)
	}
	return v, nil
}

// tableReader reads the columns of one table, checking that every fixed
// column and every offset column agree on the row count.
type tableReader struct {
	store   *kastore.Store
	table   string
	numRows int
}

func newTableReader(store *kastore.Store, table string) *tableReader {
	return &tableReader{store: store, table: table, numRows: -1}
}

func (r *tableReader) checkRows(key string, n int) error {
	if r.numRows == -1 {
		r.numRows = n
		return nil
	}
	if r.numRows != n {
		return errors.Coded(errors.CodeFileFormat).
			WithDetail("key", key).
			WithDetail("rows", n).
			WithDetail("expected", r.numRows)
	}
	return nil
}

// column reads a fixed column. A missing optional column returns nil.
func column[T kastore.Element](r *tableReader, name string, optional bool) ([]T, error) {
	key := r.table + "/" + name
	if optional && !r.store.Contains(key) {
		return nil, nil
	}
	v, err := requiredColumn[T](r.store, key)
	if err != nil {
		return nil, err
	}
	if err := r.checkRows(key, len(v)); err != nil {
		return nil, err
	}
	return v, nil
}

// ragged reads a data column and its offsets. Both are required unless
// optional; an optional pair must be present or absent together.
func ragged[T kastore.Element](r *tableReader, name string, optional bool) ([]T, []uint32, error) {
	key := r.table + "/" + name
	offsetKey := key + "_offset"
	hasData, hasOffsets := r.store.Contains(key), r.store.Contains(offsetKey)
	if optional {
		if !hasData && !hasOffsets {
			return nil, nil, nil
		}
		if hasData != hasOffsets {
			return nil, nil, errors.Coded(errors.CodeBothColumnsRequired).WithDetail("key", key)
		}
	}
	data, err := requiredColumn[T](r.store, key)
	if err != nil {
		return nil, nil, err
	}
	offsets, err := requiredColumn[uint32](r.store, offsetKey)
	if err != nil {
		return nil, nil, err
	}
	if len(offsets) == 0 {
		return nil, nil, errors.Coded(errors.CodeFileFormat).WithDetail("key", offsetKey)
	}
	if err := r.checkRows(offsetKey, len(offsets)-1); err != nil {
		return nil, nil, err
	}
	if int(offsets[len(offsets)-1]) != len(data) {
		return nil, nil, errors.Coded(errors.CodeBadOffset).WithDetail("key", offsetKey)
	}
	return data, offsets, nil
}

func (r *tableReader) schema() (string, error) {
	b, err := optionalBytes(r.store, r.table+"/metadata_schema")
	return string(b), err
}

// readInto runs the column reads in order, stopping at the first error.
func readInto(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (tc *Collection) loadNodes(store *kastore.Store) error {
	r := newTableReader(store, "nodes")
	var cols NodeColumns
	var schema string
	err := readInto(
		func() (err error) { cols.Time, err = column[float64](r, "time", false); return },
		func() (err error) { cols.Flags, err = column[uint32](r, "flags", false); return },
		func() (err error) { cols.Population, err = column[int32](r, "population", false); return },
		func() (err error) { cols.Individual, err = column[int32](r, "individual", false); return },
		func() (err error) { cols.Metadata, cols.MetadataOffset, err = ragged[byte](r, "metadata", false); return },
		func() (err error) { schema, err = r.schema(); return },
		func() error { return tc.Nodes.SetColumns(cols) },
	)
	tc.Nodes.MetadataSchema = schema
	return err
}

func (tc *Collection) loadEdges(store *kastore.Store) error {
	r := newTableReader(store, "edges")
	var cols EdgeColumns
	var schema string
	err := readInto(
		func() (err error) { cols.Left, err = column[float64](r, "left", false); return },
		func() (err error) { cols.Right, err = column[float64](r, "right", false); return },
		func() (err error) { cols.Parent, err = column[int32](r, "parent", false); return },
		func() (err error) { cols.Child, err = column[int32](r, "child", false); return },
		func() (err error) { cols.Metadata, cols.MetadataOffset, err = ragged[byte](r, "metadata", true); return },
		func() (err error) { schema, err = r.schema(); return },
		func() error { return tc.Edges.SetColumns(cols) },
	)
	tc.Edges.MetadataSchema = schema
	return err
}

func (tc *Collection) loadSites(store *kastore.Store) error {
	r := newTableReader(store, "sites")
	var cols SiteColumns
	var schema string
	err := readInto(
		func() (err error) { cols.Position, err = column[float64](r, "position", false); return },
		func() (err error) {
			cols.AncestralState, cols.AncestralStateOffset, err = ragged[byte](r, "ancestral_state", false)
			return
		},
		func() (err error) { cols.Metadata, cols.MetadataOffset, err = ragged[byte](r, "metadata", false); return },
		func() (err error) { schema, err = r.schema(); return },
		func() error { return tc.Sites.SetColumns(cols) },
	)
	tc.Sites.MetadataSchema = schema
	return err
}

func (tc *Collection) loadMutations(store *kastore.Store) error {
	r := newTableReader(store, "mutations")
	var cols MutationColumns
	var schema string
	err := readInto(
		func() (err error) { cols.Site, err = column[int32](r, "site", false); return },
		func() (err error) { cols.Node, err = column[int32](r, "node", false); return },
		func() (err error) { cols.Parent, err = column[int32](r, "parent", false); return },
		func() (err error) { cols.Time, err = column[float64](r, "time", true); return },
		func() (err error) {
			cols.DerivedState, cols.DerivedStateOffset, err = ragged[byte](r, "derived_state", false)
			return
		},
		func() (err error) { cols.Metadata, cols.MetadataOffset, err = ragged[byte](r, "metadata", false); return },
		func() (err error) { schema, err = r.schema(); return },
		func() error { return tc.Mutations.SetColumns(cols) },
	)
	tc.Mutations.MetadataSchema = schema
	return err
}

func (tc *Collection) loadMigrations(store *kastore.Store) error {
	r := newTableReader(store, "migrations")
	var cols MigrationColumns
	var schema string
	err := readInto(
		func() (err error) { cols.Left, err = column[float64](r, "left", false); return },
		func() (err error) { cols.Right, err = column[float64](r, "right", false); return },
		func() (err error) { cols.Node, err = column[int32](r, "node", false); return },
		func() (err error) { cols.Source, err = column[int32](r, "source", false); return },
		func() (err error) { cols.Dest, err = column[int32](r, "dest", false); return },
		func() (err error) { cols.Time, err = column[float64](r, "time", false); return },
		func() (err error) { cols.Metadata, cols.MetadataOffset, err = ragged[byte](r, "metadata", true); return },
		func() (err error) { schema, err = r.schema(); return },
		func() error { return tc.Migrations.SetColumns(cols) },
	)
	tc.Migrations.MetadataSchema = schema
	return err
}

func (tc *Collection) loadIndividuals(store *kastore.Store) error {
	r := newTableReader(store, "individuals")
	var cols IndividualColumns
	var schema string
	err := readInto(
		func() (err error) { cols.Flags, err = column[uint32](r, "flags", false); return },
		func() (err error) { cols.Location, cols.LocationOffset, err = ragged[float64](r, "location", false); return },
		func() (err error) { cols.Metadata, cols.MetadataOffset, err = ragged[byte](r, "metadata", false); return },
		func() (err error) { schema, err = r.schema(); return },
		func() error { return tc.Individuals.SetColumns(cols) },
	)
	tc.Individuals.MetadataSchema = schema
	return err
}

func (tc *Collection) loadPopulations(store *kastore.Store) error {
	r := newTableReader(store, "populations")
	var cols PopulationColumns
	var schema string
	err := readInto(
		func() (err error) { cols.Metadata, cols.MetadataOffset, err = ragged[byte](r, "metadata", false); return },
		func() (err error) { schema, err = r.schema(); return },
		func() error { return tc.Populations.SetColumns(cols) },
	)
	tc.Populations.MetadataSchema = schema
	return err
}

func (tc *Collection) loadProvenances(store *kastore.Store) error {
	r := newTableReader(store, "provenances")
	var cols ProvenanceColumns
	return readInto(
		func() (err error) { cols.Timestamp, cols.TimestampOffset, err = ragged[byte](r, "timestamp", false); return },
		func() (err error) { cols.Record, cols.RecordOffset, err = ragged[byte](r, "record", false); return },
		func() error { return tc.Provenances.SetColumns(cols) },
	)
}

func (tc *Collection) loadIndex(store *kastore.Store) error {
	const insKey, remKey = "indexes/edge_insertion_order", "indexes/edge_removal_order"
	hasIns, hasRem := store.Contains(insKey), store.Contains(remKey)
	if !hasIns && !hasRem {
		return nil
	}
	if hasIns != hasRem {
		return errors.Coded(errors.CodeBothColumnsRequired).WithDetail("key", "indexes")
	}
	r := newTableReader(store, "indexes")
	insertion, err := column[int32](r, "edge_insertion_order", false)
	if err != nil {
		return err
	}
	removal, err := column[int32](r, "edge_removal_order", false)
	if err != nil {
		return err
	}
	if len(insertion) != tc.Edges.NumRows() {
		return errors.Coded(errors.CodeFileFormat).
			WithDetail("key", insKey).
			WithDetail("rows", len(insertion)).
			WithDetail("edges", tc.Edges.NumRows())
	}
	return tc.SetIndex(insertion, removal)
}
