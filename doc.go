// Package arbor stores tree sequences as a collection of flat, columnar
// tables and implements the operations that keep them valid: integrity
// checking, canonical sorting, simplification, subsetting, union and
// mutation parent computation.
//
// A tree sequence describes the genealogy of a set of sampled genomes along
// a sequence. Nodes are genomes at a point in time, edges record which
// parent node a child inherits a half-open interval of the sequence from,
// and sites and mutations place variation on the trees. Every table is a
// struct of parallel column slices; variable-length columns (metadata,
// states, locations) are a flat byte or float slice plus an offsets slice
// with one more entry than there are rows.
//
// # Quick Start
//
// Build a collection, sort it and write it to a .trees file:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/arbor/pkg/tables"
//	)
//
//	tc := tables.New(100)
//	p, _ := tc.Nodes.AddRow(0, 1.0, tables.Null, tables.Null, nil)
//	c, _ := tc.Nodes.AddRow(tables.NodeIsSample, 0, tables.Null, tables.Null, nil)
//	tc.Edges.AddRow(0, 100, p, c, nil)
//
//	if err := tc.Sort(nil, 0); err != nil {
//	    return err
//	}
//	err := tc.DumpFile(context.Background(), "out.trees", tables.DumpOptions{})
//
// # Key Packages
//
//	pkg/tables       - Tables, collection, check, sort, simplify, subset, union, load/dump
//	pkg/kastore      - Key-array container codec used by the .trees format
//	pkg/compression  - Optional gzip, snappy, lz4, zstd and s2 file envelopes
//	pkg/storage      - Local, s3:// and gs:// file locations
//	pkg/mmap         - Memory-mapped reads of local files
//	pkg/export       - Arrow IPC, Avro and JSON lines export of single tables
//	pkg/provenance   - Provenance records describing how a file was produced
//	pkg/config       - YAML and environment configuration
//	pkg/errors       - Structured error types and codes
//	pkg/logger       - Structured logging
//	pkg/metrics      - Prometheus counters and histograms
//	pkg/observability - OpenTelemetry tracing
//	internal/batch   - Bounded concurrent processing of many files
//
// # File Format
//
// Collections are stored in the kastore-based "tskit.trees" format, version
// 12.3. Files written here load in other readers of that format and the
// other way round. A file may be wrapped in a compression envelope, which
// is detected from its magic bytes on load.
//
// # Command Line
//
// The arbor command exposes the main operations:
//
//	arbor info in.trees
//	arbor check --checks trees in.trees
//	arbor simplify --samples 0,1,2 in.trees out.trees
//	arbor convert --compression zstd in.trees s3://bucket/out.trees
//	arbor export --format arrow --table edges in.trees edges.arrow
//
// # Configuration
//
// Configuration is read from .arbor.yaml in the working or home directory,
// overridden by ARBOR_* environment variables and then by flags. ${VAR}
// references in the file are expanded.
package arbor
