// Package sqlio loads tables from SQL databases and renders tables as
// INSERT statements.
package sqlio

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	stringpool "github.com/ajitpratap0/cpandas/pkg/strings"
	"go.uber.org/zap"

	// database/sql drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Dialect selects identifier quoting and the driver name.
type Dialect string

const (
	// Postgres uses the pgx stdlib driver.
	Postgres Dialect = "pgx"
	// MySQL uses go-sql-driver/mysql.
	MySQL Dialect = "mysql"
)

// ParseDialect accepts driver names and common aliases.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	}
	return "", errors.Newf(errors.CodeInvalid, "unsupported sql driver %q", s)
}

// Open opens a database handle and verifies the connection.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "open database").WithDetail("driver", string(d))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CodeIO, "connect to database").WithDetail("driver", string(d))
	}
	return db, nil
}

// dtypeOf maps a database column type name onto a dtype. Unknown types
// are read as strings.
func dtypeOf(ct *sql.ColumnType) columnar.DType {
	name := strings.ToUpper(ct.DatabaseTypeName())
	switch {
	case strings.Contains(name, "INT"), strings.Contains(name, "SERIAL"):
		return columnar.Int64
	case strings.Contains(name, "FLOAT"), strings.Contains(name, "DOUBLE"),
		strings.Contains(name, "REAL"), strings.Contains(name, "NUMERIC"),
		strings.Contains(name, "DECIMAL"):
		return columnar.Float64
	}
	return columnar.String
}

// ReadSQL runs query and collects its result set into a table.
func ReadSQL(ctx context.Context, db *sql.DB, query string, args ...interface{}) (*columnar.Table, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "run query")
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "read column types")
	}
	cols := make([]*columnar.Column, len(types))
	dest := make([]interface{}, len(types))
	for j, ct := range types {
		c, err := columnar.NewColumn(ct.Name(), dtypeOf(ct), 0)
		if err != nil {
			return nil, err
		}
		cols[j] = c
		switch c.DType() {
		case columnar.Int64:
			dest[j] = new(sql.NullInt64)
		case columnar.Float64:
			dest[j] = new(sql.NullFloat64)
		default:
			dest[j] = new(sql.NullString)
		}
	}

	row := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "scan row").WithRow(row)
		}
		for j, c := range cols {
			switch v := dest[j].(type) {
			case *sql.NullInt64:
				if v.Valid {
					c.AppendInt(v.Int64)
				} else {
					c.AppendNull()
				}
			case *sql.NullFloat64:
				if v.Valid {
					c.AppendFloat(v.Float64)
				} else {
					c.AppendNull()
				}
			case *sql.NullString:
				if v.Valid {
					c.AppendString(v.String)
				} else {
					c.AppendNull()
				}
			}
		}
		row++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "iterate rows").WithRow(row)
	}

	t, err := columnar.NewTable(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalid, "assemble result set")
	}
	logger.Debug("sql result read", zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()))
	return t, nil
}

func (d Dialect) quoteIdent(s string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(s, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (d Dialect) quoteString(s string) string {
	s = strings.ReplaceAll(s, "'", "''")
	if d == MySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + s + "'"
}

func (d Dialect) literal(c *columnar.Column, i int) string {
	if c.IsNull(i) {
		return "NULL"
	}
	switch c.DType() {
	case columnar.Int64:
		return strconv.FormatInt(c.Int(i), 10)
	case columnar.Float64:
		f := c.Float(i)
		s := strconv.FormatFloat(f, 'g', -1, 64)
		switch s {
		case "NaN", "+Inf", "-Inf":
			if d == MySQL {
				return "NULL"
			}
			return "'" + strings.TrimPrefix(s, "+") + "'::double precision"
		}
		return s
	default:
		return d.quoteString(c.Str(i))
	}
}

// WriteInserts renders t as INSERT statements into table with up to batch
// rows per statement.
func WriteInserts(w io.Writer, t *columnar.Table, table string, d Dialect, batch int) error {
	if batch <= 0 {
		return errors.Newf(errors.CodeInvalid, "batch size %d must be positive", batch)
	}
	if t.NumCols() == 0 {
		return errors.New(errors.CodeInvalid, "table has no columns")
	}
	names := make([]string, t.NumCols())
	for j, n := range t.ColumnNames() {
		names[j] = d.quoteIdent(n)
	}
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES\n", d.quoteIdent(table), strings.Join(names, ", "))

	cols := t.Columns()
	b := stringpool.GetBuilder(stringpool.Large)
	defer stringpool.PutBuilder(b, stringpool.Large)
	cells := make([]string, len(cols))
	for lo := 0; lo < t.NumRows(); lo += batch {
		hi := lo + batch
		if hi > t.NumRows() {
			hi = t.NumRows()
		}
		b.Reset()
		b.WriteString(head)
		for i := lo; i < hi; i++ {
			for j, c := range cols {
				cells[j] = d.literal(c, i)
			}
			b.WriteString("  (")
			b.WriteString(strings.Join(cells, ", "))
			if i == hi-1 {
				b.WriteString(");\n")
			} else {
				b.WriteString("),\n")
			}
		}
		if _, err := w.Write(b.Bytes()); err != nil {
			return errors.Wrap(err, errors.CodeIO, "write insert statement").WithRow(lo)
		}
	}
	return nil
}
