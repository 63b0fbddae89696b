package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/arbor/internal/batch"
	"github.com/ajitpratap0/arbor/pkg/compression"
	"github.com/ajitpratap0/arbor/pkg/export"
	"github.com/ajitpratap0/arbor/pkg/logger"
	"github.com/ajitpratap0/arbor/pkg/provenance"
	"github.com/ajitpratap0/arbor/pkg/tables"
)

func (a *app) load(ctx context.Context, source string) (*tables.Collection, error) {
	return tables.LoadFrom(ctx, source, tables.LoadOptions{
		NoMmap:  a.cfg.Storage.NoMmap,
		Storage: a.cfg.Storage.Remote,
		Options: a.cfg.Tables.TableOptions(),
	})
}

func (a *app) dump(ctx context.Context, tc *tables.Collection, target string) error {
	return tc.DumpTo(ctx, target, tables.DumpOptions{
		Compression: a.cfg.Storage.CompressionConfig(),
		Storage:     a.cfg.Storage.Remote,
	})
}

// record appends a provenance row describing this invocation.
func (a *app) record(tc *tables.Collection, command string, params map[string]interface{}) error {
	if params == nil {
		params = map[string]interface{}{}
	}
	params["run_id"] = a.runID
	r := provenance.New(a.ctx, provenance.Software{Name: "arbor", Version: version}, command, params)
	return provenance.Append(a.ctx, tc, r)
}

func (a *app) runner() *batch.Runner {
	return batch.NewRunner(batch.Config{Workers: a.cfg.GetWorkers()}, logger.Get())
}

// transform loads in, applies fn, records provenance and writes out.
func (a *app) transform(in, out, command string, params map[string]interface{}, fn func(tc *tables.Collection) error) error {
	tc, err := a.load(a.ctx, in)
	if err != nil {
		return err
	}
	if err := fn(tc); err != nil {
		return err
	}
	if err := a.record(tc, command, params); err != nil {
		return err
	}
	if err := a.dump(a.ctx, tc, out); err != nil {
		return err
	}
	logger.WithContext(a.ctx).Info("wrote tables",
		zap.String("input", in),
		zap.String("output", out),
		zap.Int("nodes", tc.Nodes.NumRows()),
		zap.Int("edges", tc.Edges.NumRows()))
	return nil
}

type fileInfo struct {
	uuid     string
	length   float64
	counts   map[string]int
	trees    int
	treesErr error
}

func (a *app) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE...",
		Short: "Show row counts, sequence length and number of trees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := batch.Run(a.ctx, a.runner(), args, func(ctx context.Context, path string) (fileInfo, error) {
				tc, err := a.load(ctx, path)
				if err != nil {
					return fileInfo{}, err
				}
				info := fileInfo{
					uuid:   tc.FileUUID,
					length: tc.SequenceLength,
					counts: tc.RecordNumRows().Counts(),
				}
				info.trees, info.treesErr = tc.Check(tables.CheckTrees)
				return info, nil
			})
			out := cmd.OutOrStdout()
			for _, res := range results {
				fmt.Fprintln(out, res.Input)
				if res.Err != nil {
					fmt.Fprintf(out, "  error: %v\n", res.Err)
					continue
				}
				fmt.Fprintf(out, "  uuid: %s\n", res.Value.uuid)
				fmt.Fprintf(out, "  sequence_length: %g\n", res.Value.length)
				if res.Value.treesErr != nil {
					fmt.Fprintf(out, "  trees: invalid (%v)\n", res.Value.treesErr)
				} else {
					fmt.Fprintf(out, "  trees: %d\n", res.Value.trees)
				}
				for _, name := range tables.TableNames {
					fmt.Fprintf(out, "  %s: %d\n", name, res.Value.counts[name])
				}
			}
			return err
		},
	}
}

func (a *app) checkCommand() *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Check the integrity of table collections",
		Long: `Check the integrity of table collections. Named checks are
edge-ordering, site-ordering, site-duplicates, mutation-ordering, indexes,
trees (implies all others) and no-population-refs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("checks") {
				names = a.cfg.Check.Flags
			}
			flags, err := tables.ParseCheckFlags(names)
			if err != nil {
				return err
			}
			results, err := batch.Run(a.ctx, a.runner(), args, func(ctx context.Context, path string) (int, error) {
				tc, err := a.load(ctx, path)
				if err != nil {
					return 0, err
				}
				return tc.Check(flags)
			})
			out := cmd.OutOrStdout()
			for _, res := range results {
				switch {
				case res.Err != nil:
					fmt.Fprintf(out, "%s: FAILED: %v\n", res.Input, res.Err)
				case flags&tables.CheckTrees != 0:
					fmt.Fprintf(out, "%s: ok (%d trees)\n", res.Input, res.Value)
				default:
					fmt.Fprintf(out, "%s: ok\n", res.Input)
				}
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&names, "checks", nil, "Comma-separated checks to run (default from config)")
	return cmd
}

func (a *app) sortCommand() *cobra.Command {
	var noCheck bool
	cmd := &cobra.Command{
		Use:   "sort IN OUT",
		Short: "Sort tables into canonical order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var flags tables.SortFlags
			if noCheck {
				flags |= tables.SortNoCheckIntegrity
			}
			return a.transform(args[0], args[1], "sort", nil, func(tc *tables.Collection) error {
				return tc.Sort(nil, flags)
			})
		},
	}
	cmd.Flags().BoolVar(&noCheck, "no-check-integrity", false, "Skip the integrity check before sorting")
	return cmd
}

func (a *app) simplifyCommand() *cobra.Command {
	var (
		samples []int32
		opts    struct {
			keepUnary, keepInputRoots, filterSites, filterPopulations, filterIndividuals, reduce bool
		}
	)
	cmd := &cobra.Command{
		Use:   "simplify IN OUT",
		Short: "Simplify to the ancestry of a set of samples",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var flags tables.SimplifyFlags
			for _, f := range []struct {
				on   bool
				flag tables.SimplifyFlags
			}{
				{opts.keepUnary, tables.SimplifyKeepUnary},
				{opts.keepInputRoots, tables.SimplifyKeepInputRoots},
				{opts.filterSites, tables.SimplifyFilterSites},
				{opts.filterPopulations, tables.SimplifyFilterPopulations},
				{opts.filterIndividuals, tables.SimplifyFilterIndividuals},
				{opts.reduce, tables.SimplifyReduceToSiteTopology},
			} {
				if f.on {
					flags |= f.flag
				}
			}
			params := map[string]interface{}{"samples": samples, "flags": uint32(flags)}
			return a.transform(args[0], args[1], "simplify", params, func(tc *tables.Collection) error {
				nodeMap, err := tc.Simplify(samples, flags)
				if err != nil {
					return err
				}
				logger.WithContext(a.ctx).Debug("simplified",
					zap.Int("input_nodes", len(nodeMap)),
					zap.Int("output_nodes", tc.Nodes.NumRows()))
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.Int32SliceVar(&samples, "samples", nil, "Sample node ids (default: all sample nodes)")
	f.BoolVar(&opts.keepUnary, "keep-unary", false, "Keep unary nodes")
	f.BoolVar(&opts.keepInputRoots, "keep-input-roots", false, "Keep the ancestry above sample roots")
	f.BoolVar(&opts.filterSites, "filter-sites", false, "Remove sites without mutations")
	f.BoolVar(&opts.filterPopulations, "filter-populations", false, "Remove unreferenced populations")
	f.BoolVar(&opts.filterIndividuals, "filter-individuals", false, "Remove unreferenced individuals")
	f.BoolVar(&opts.reduce, "reduce-to-site-topology", false, "Only keep topology changes at sites")
	return cmd
}

func (a *app) subsetCommand() *cobra.Command {
	var nodes []int32
	cmd := &cobra.Command{
		Use:   "subset IN OUT",
		Short: "Keep only the listed nodes, in the listed order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{"nodes": nodes}
			return a.transform(args[0], args[1], "subset", params, func(tc *tables.Collection) error {
				if err := tc.Subset(nodes); err != nil {
					return err
				}
				return tc.Sort(nil, 0)
			})
		},
	}
	cmd.Flags().Int32SliceVar(&nodes, "nodes", nil, "Node ids to keep")
	_ = cmd.MarkFlagRequired("nodes")
	return cmd
}

func (a *app) unionCommand() *cobra.Command {
	var (
		nodeMap          []int32
		noCheckShared    bool
		noAddPopulations bool
	)
	cmd := &cobra.Command{
		Use:   "union A B OUT",
		Short: "Add the non-shared parts of B to A",
		Long: `Add the non-shared parts of B to A. --map gives, for every node of B,
the matching node of A or -1 for nodes new to A.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			other, err := a.load(a.ctx, args[1])
			if err != nil {
				return err
			}
			var flags tables.UnionFlags
			if noCheckShared {
				flags |= tables.UnionNoCheckShared
			}
			if noAddPopulations {
				flags |= tables.UnionNoAddPopulations
			}
			params := map[string]interface{}{"other": args[1], "node_map": nodeMap}
			return a.transform(args[0], args[2], "union", params, func(tc *tables.Collection) error {
				return tc.Union(other, nodeMap, flags)
			})
		},
	}
	cmd.Flags().Int32SliceVar(&nodeMap, "map", nil, "Node map from B to A")
	cmd.Flags().BoolVar(&noCheckShared, "no-check-shared", false, "Skip the shared history check")
	cmd.Flags().BoolVar(&noAddPopulations, "no-add-populations", false, "Keep population ids of new nodes")
	_ = cmd.MarkFlagRequired("map")
	return cmd
}

func (a *app) convertCommand() *cobra.Command {
	var (
		algorithm string
		level     int
	)
	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Re-encode a file, optionally in a compressed envelope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("compression") {
				if _, err := compression.ParseAlgorithm(algorithm); err != nil {
					return err
				}
				a.cfg.Storage.Compression = algorithm
			}
			if cmd.Flags().Changed("level") {
				a.cfg.Storage.CompressionLevel = level
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			tc, err := a.load(a.ctx, args[0])
			if err != nil {
				return err
			}
			return a.dump(a.ctx, tc, args[1])
		},
	}
	names := make([]string, len(compression.Algorithms))
	for i, algo := range compression.Algorithms {
		names[i] = string(algo)
	}
	cmd.Flags().StringVar(&algorithm, "compression", "", "Envelope algorithm: "+strings.Join(names, ", "))
	cmd.Flags().IntVar(&level, "level", int(compression.Default), "Compression level (1-9)")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var (
		format          string
		table           string
		avroCompression string
		batchRows       int
	)
	cmd := &cobra.Command{
		Use:   "export IN OUT",
		Short: "Export one table as Arrow, Avro or JSON lines",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			tc, err := a.load(a.ctx, args[0])
			if err != nil {
				return err
			}
			return export.WriteTo(a.ctx, args[1], tc, table, export.Options{
				Format:          f,
				BatchRows:       batchRows,
				AvroCompression: avroCompression,
				Storage:         a.cfg.Storage.Remote,
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.Arrow), "Output format: arrow, avro or json")
	cmd.Flags().StringVar(&table, "table", "nodes", "Table to export: "+strings.Join(tables.TableNames, ", "))
	cmd.Flags().StringVar(&avroCompression, "avro-compression", "null", "Avro block codec: null, deflate or snappy")
	cmd.Flags().IntVar(&batchRows, "batch-rows", export.DefaultBatchRows, "Rows per Arrow batch or Avro block")
	return cmd
}
