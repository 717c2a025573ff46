package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/compression"
	"github.com/ajitpratap0/cpandas/pkg/config"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/formats"
	"github.com/ajitpratap0/cpandas/pkg/formats/parquet"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"github.com/ajitpratap0/cpandas/pkg/query"
)

func (a *app) readTable(path string) (*columnar.Table, error) {
	opts, err := a.formatOptions()
	if err != nil {
		return nil, err
	}
	return formats.ReadFile(path, opts)
}

func (a *app) headCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "head <file>",
		Short: "Print the first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.readTable(args[0])
			if err != nil {
				return err
			}
			h, err := t.Head(n)
			if err != nil {
				return err
			}
			return a.render(h)
		},
	}
	cmd.Flags().IntVarP(&n, "rows", "n", 10, "Number of rows to print")
	return cmd
}

func (a *app) queryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query <file> <expression>",
		Short: "Print the rows matching a filter expression",
		Long: `Filter rows with a boolean expression over column names, for example

  cpandas query sales.parquet "region == 'EU' and (amount > 100 or qty >= 3)"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.readTable(args[0])
			if err != nil {
				return err
			}
			out, err := query.Filter(t, args[1])
			if err != nil {
				return err
			}
			logger.Debug("query evaluated",
				zap.String("expression", args[1]),
				zap.Int("matched", out.NumRows()),
				zap.Int("rows", t.NumRows()))
			if limit > 0 {
				if out, err = out.Head(limit); err != nil {
					return err
				}
			}
			return a.render(out)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Print at most this many rows (0 prints all)")
	return cmd
}

func (a *app) describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <file>",
		Short: "Summarise the numeric columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.readTable(args[0])
			if err != nil {
				return err
			}
			d, err := t.Describe()
			if err != nil {
				return err
			}
			return a.render(d)
		},
	}
}

// parseAggs parses column:op pairs such as "amount:sum".
func parseAggs(specs []string) ([]columnar.Agg, error) {
	aggs := make([]columnar.Agg, 0, len(specs))
	for _, s := range specs {
		col, op, ok := strings.Cut(s, ":")
		if !ok || col == "" {
			return nil, errors.Newf(errors.CodeInvalid, "aggregate %q must look like column:op", s)
		}
		parsed, err := columnar.ParseAggOp(op)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, columnar.Agg{Column: col, Op: parsed})
	}
	return aggs, nil
}

func (a *app) groupByCmd() *cobra.Command {
	var key string
	var specs []string
	cmd := &cobra.Command{
		Use:   "groupby <file>",
		Short: "Aggregate value columns per distinct key",
		Example: `  cpandas groupby sales.csv --key region --agg amount:sum --agg amount:mean`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aggs, err := parseAggs(specs)
			if err != nil {
				return err
			}
			t, err := a.readTable(args[0])
			if err != nil {
				return err
			}
			g, err := t.GroupBy(key, aggs...)
			if err != nil {
				return err
			}
			return a.render(g)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Key column (required)")
	cmd.Flags().StringArrayVar(&specs, "agg", nil, "Aggregate as column:op with op count, sum, mean, min or max (repeatable)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("agg")
	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show the schema and storage layout of a table file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, alg, err := formats.Detect(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "File: %s\nFormat: %s\nCompression: %s\n", path, f, alg)

			if f == formats.Parquet && alg == compression.None {
				return a.parquetInfo(path)
			}
			t, err := a.readTable(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Rows: %d\n", t.NumRows())
			if t.Index() != "" {
				fmt.Fprintf(a.out, "Index: %s\n", t.Index())
			}
			header := []string{"column", "dtype", "nulls"}
			rows := make([][]string, 0, t.NumCols())
			for _, c := range t.Columns() {
				rows = append(rows, []string{c.Name(), c.DType().String(), fmt.Sprint(c.NullCount())})
			}
			renderGrid(a.out, header, rows)
			return nil
		},
	}
}

func (a *app) parquetInfo(path string) error {
	meta, err := parquet.ReadMetadata(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Rows: %d\nRow groups: %d\nCreated by: %s\n", meta.NumRows, len(meta.RowGroups), meta.CreatedBy)
	for _, kv := range meta.KeyValue {
		if kv.Key == parquet.IndexKey {
			fmt.Fprintf(a.out, "Index: %s\n", kv.Value)
		}
	}
	if len(meta.RowGroups) == 0 {
		return nil
	}

	header := []string{"column", "type", "repetition", "codec", "encodings", "nulls", "compressed", "uncompressed"}
	var rows [][]string
	for j, leaf := range meta.Schema[1:] {
		var nulls, compressed, uncompressed int64
		var codec string
		var encodings []string
		for _, rg := range meta.RowGroups {
			md := rg.Columns[j].MetaData
			compressed += md.TotalCompressedSize
			uncompressed += md.TotalUncompressedSize
			if md.Statistics != nil && md.Statistics.NullCount != nil {
				nulls += *md.Statistics.NullCount
			}
			codec = md.Codec.String()
			if encodings == nil {
				for _, e := range md.Encodings {
					encodings = append(encodings, e.String())
				}
			}
		}
		rep := "REQUIRED"
		if leaf.Repetition != nil {
			rep = leaf.Repetition.String()
		}
		typ := ""
		if leaf.Type != nil {
			typ = leaf.Type.String()
		}
		rows = append(rows, []string{
			leaf.Name, typ, rep, codec, strings.Join(encodings, ","),
			fmt.Sprint(nulls), fmt.Sprint(compressed), fmt.Sprint(uncompressed),
		})
	}
	renderGrid(a.out, header, rows)
	return nil
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "parquet.codec: %s\nparquet.row_group_size: %d\nparquet.dictionary: %t\n",
				a.cfg.Parquet.Codec, a.cfg.Parquet.RowGroupSize, a.cfg.Parquet.Dictionary)
			fmt.Fprintf(a.out, "csv.delimiter: %q\ncsv.header: %t\ncsv.na_values: %q\n",
				a.cfg.CSV.Delimiter, a.cfg.CSV.Header, a.cfg.CSV.NAValues)
			fmt.Fprintf(a.out, "join.strategy: %s\nlogging.level: %s\n", a.cfg.Join.Strategy, a.cfg.Logging.Level)
			return nil
		},
	})
	return cmd
}

func (a *app) joinCmd() *cobra.Command {
	var on, leftOn, rightOn []string
	var how, strategy string
	cmd := &cobra.Command{
		Use:     "join <left> <right>",
		Short:   "Join two tables on equal key columns",
		Example: `  cpandas join orders.parquet customers.csv --on customer_id --how left`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.JoinOptions()
			if err != nil {
				return err
			}
			opts.On, opts.LeftOn, opts.RightOn = on, leftOn, rightOn
			if opts.How, err = columnar.ParseJoinKind(how); err != nil {
				return err
			}
			if strategy != "" {
				if opts.Strategy, err = columnar.ParseJoinStrategy(strategy); err != nil {
					return err
				}
			}

			var left, right *columnar.Table
			g := new(errgroup.Group)
			g.Go(func() (err error) {
				left, err = a.readTable(args[0])
				return err
			})
			g.Go(func() (err error) {
				right, err = a.readTable(args[1])
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			out, err := columnar.Join(left, right, opts)
			if err != nil {
				return err
			}
			return a.render(out)
		},
	}
	cmd.Flags().StringArrayVar(&on, "on", nil, "Key column present in both tables (repeatable)")
	cmd.Flags().StringArrayVar(&leftOn, "left-on", nil, "Left key column (repeatable, pairs with --right-on)")
	cmd.Flags().StringArrayVar(&rightOn, "right-on", nil, "Right key column (repeatable)")
	cmd.Flags().StringVar(&how, "how", "inner", "Join kind: inner, left, right or outer")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Override join.strategy: auto, hash, sorted or nested")
	return cmd
}
