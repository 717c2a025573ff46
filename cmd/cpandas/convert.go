package main

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/cpandas/pkg/compression"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/formats"
	"github.com/ajitpratap0/cpandas/pkg/logger"
)

type convertFlags struct {
	to          string
	outDir      string
	compression string
	level       int
	jobs        int
}

// outputPath replaces the format and compression suffixes of in.
func outputPath(in, dir string, f formats.Format, alg compression.Algorithm) string {
	_, base := compression.FromPath(in)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if dir != "" {
		base = filepath.Join(dir, filepath.Base(base))
	}
	return base + formats.GetFormatInfo(f).Extensions[0] + compression.Extension(alg)
}

func (a *app) convertCmd() *cobra.Command {
	var fl convertFlags
	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert table files to another format",
		Example: `  cpandas convert --to parquet data/*.csv
  cpandas convert --to ndjson --compression zstd --out-dir out/ sales.parquet`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(cmd.Context(), fl, args)
		},
	}
	cmd.Flags().StringVar(&fl.to, "to", "", "Target format: "+formatNames())
	cmd.Flags().StringVar(&fl.outDir, "out-dir", "", "Directory for converted files (defaults to each input's directory)")
	cmd.Flags().StringVar(&fl.compression, "compression", "none", "Stream compression for outputs: none, gzip, zstd, lz4, s2, snappy, deflate")
	cmd.Flags().IntVar(&fl.level, "level", int(compression.Default), "Compression level from 1 (fastest) to 9 (best)")
	cmd.Flags().IntVarP(&fl.jobs, "jobs", "j", runtime.NumCPU(), "Files converted concurrently")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func formatNames() string {
	names := make([]string, 0, len(formats.Formats()))
	for _, f := range formats.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func (a *app) convert(ctx context.Context, fl convertFlags, inputs []string) error {
	to, err := formats.ParseFormat(fl.to)
	if err != nil {
		return err
	}
	alg, err := compression.ParseAlgorithm(fl.compression)
	if err != nil {
		return err
	}
	if fl.level < int(compression.Fastest) || fl.level > int(compression.Best) {
		return errors.Newf(errors.CodeInvalid, "compression level %d out of range [1, 9]", fl.level)
	}
	if fl.jobs < 1 {
		fl.jobs = 1
	}
	readOpts, err := a.formatOptions()
	if err != nil {
		return err
	}
	writeOpts := *readOpts
	writeOpts.Format = to
	writeOpts.Compression = alg
	writeOpts.Level = compression.Level(fl.level)

	outputs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		outputs[i] = outputPath(in, fl.outDir, to, alg)
		if prev, dup := seen[outputs[i]]; dup {
			return errors.Newf(errors.CodeInvalid, "%s and %s both convert to %s", prev, in, outputs[i])
		}
		if filepath.Clean(outputs[i]) == filepath.Clean(in) {
			return errors.Newf(errors.CodeInvalid, "%s would overwrite itself", in)
		}
		seen[outputs[i]] = in
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fl.jobs)
	for i := range inputs {
		in, out := inputs[i], outputs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := formats.ReadFile(in, readOpts)
			if err != nil {
				return errors.Wrapf(err, errors.CodeOf(err), "convert %s", in)
			}
			if err := formats.WriteFile(out, t, &writeOpts); err != nil {
				return errors.Wrapf(err, errors.CodeOf(err), "convert %s", in)
			}
			logger.Info("converted",
				zap.String("input", in),
				zap.String("output", out),
				zap.Int("rows", t.NumRows()))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i := range inputs {
		fmt.Fprintf(a.out, "%s -> %s\n", inputs[i], outputs[i])
	}
	return nil
}
