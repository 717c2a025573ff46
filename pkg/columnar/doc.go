// Package columnar implements the in-memory dataframe engine of cpandas.
//
// # Data model
//
// A Column is a named vector of one of three dtypes (Int64, Float64,
// String). Every cell carries its own null flag; Float64 cells may also
// hold NaN, which is a value and not a null. A Table is an ordered list of
// equally long, uniquely named columns with an optional row-label column.
//
// # Derivation
//
// Every operation on a Table (projection, filtering, sorting, fillna,
// clip, astype, groupby, pivot_table, join, ...) allocates a new Table and
// copies or derives each cell from its inputs. Inputs are never modified
// and no two tables share column storage. The only in-place mutation is
// row appending during construction (Table.AppendRow, Builder), which is
// atomic: a failing row is rolled back from every column.
//
// # Equality
//
// Grouping, deduplication and join keys compare cells by identity: two
// nulls are equal and NaN equals NaN. Null join keys never match.
//
// # Errors
//
// Failures are *errors.Error values from pkg/errors carrying a code
// (invalid, out_of_memory, parse_error, io_error) and, where known, the
// offending row and column.
//
// Example:
//
//	g, _ := columnar.FromValues("g", columnar.String, []interface{}{"a", "a", "b"})
//	v, _ := columnar.FromValues("v", columnar.Int64, []interface{}{1, 2, nil})
//	t, _ := columnar.NewTable(g, v)
//	out, err := t.GroupBy("g", columnar.Agg{Column: "v", Op: columnar.Sum})
package columnar
