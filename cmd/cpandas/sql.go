package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/formats"
	"github.com/ajitpratap0/cpandas/pkg/formats/sqlio"
	"github.com/ajitpratap0/cpandas/pkg/logger"
)

func (a *app) importSQLCmd() *cobra.Command {
	var driver, dsn, query, out string
	cmd := &cobra.Command{
		Use:   "import-sql",
		Short: "Run a query against PostgreSQL or MySQL and save the result",
		Example: `  CPANDAS_DSN=postgres://localhost/shop cpandas import-sql --query "select * from orders" --out orders.parquet
  cpandas import-sql --driver mysql --dsn "user:pw@tcp(db:3306)/shop" --query "select * from orders" --out orders.csv.gz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := sqlio.ParseDialect(driver)
			if err != nil {
				return err
			}
			if dsn == "" {
				dsn = os.Getenv("CPANDAS_DSN")
			}
			if dsn == "" {
				return errors.New(errors.CodeInvalid, "no connection string: pass --dsn or set CPANDAS_DSN")
			}
			opts, err := a.formatOptions()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := sqlio.Open(ctx, d, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			t, err := sqlio.ReadSQL(ctx, db, query)
			if err != nil {
				return err
			}
			if err := formats.WriteFile(out, t, opts); err != nil {
				return err
			}
			logger.Info("query imported",
				zap.String("driver", string(d)),
				zap.String("output", out),
				zap.Int("rows", t.NumRows()),
				zap.Int("columns", t.NumCols()))
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "postgres", "Database driver: postgres or mysql")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Connection string (defaults to $CPANDAS_DSN)")
	cmd.Flags().StringVar(&query, "query", "", "SELECT statement to run (required)")
	cmd.Flags().StringVar(&out, "out", "", "Output file; the format follows its extension (required)")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *app) exportSQLCmd() *cobra.Command {
	var table, dialect, out string
	var batch int
	cmd := &cobra.Command{
		Use:   "export-sql <file>",
		Short: "Render a table file as INSERT statements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, err := sqlio.ParseDialect(dialect)
			if err != nil {
				return err
			}
			t, err := a.readTable(args[0])
			if err != nil {
				return err
			}
			if table == "" {
				base := filepath.Base(args[0])
				table, _, _ = strings.Cut(base, ".")
			}

			w := a.out
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return errors.Wrap(err, errors.CodeIO, "create output").WithDetail("path", out)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = errors.Wrap(cerr, errors.CodeIO, "close output").WithDetail("path", out)
					}
				}()
				bw := bufio.NewWriter(f)
				defer func() {
					if ferr := bw.Flush(); ferr != nil && err == nil {
						err = errors.Wrap(ferr, errors.CodeIO, "flush output").WithDetail("path", out)
					}
				}()
				w = bw
			}
			return sqlio.WriteInserts(w, t, table, d, batch)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "Target table name (defaults to the file's base name)")
	cmd.Flags().StringVar(&dialect, "dialect", "postgres", "SQL dialect: postgres or mysql")
	cmd.Flags().IntVar(&batch, "batch", 500, "Rows per INSERT statement")
	cmd.Flags().StringVar(&out, "out", "", "Write statements to this file instead of stdout")
	return cmd
}
