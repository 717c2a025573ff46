// Package avro reads and writes tables as Avro object container files.
package avro

import (
	"io"
	"regexp"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
	"go.uber.org/zap"
)

// IndexKey is the container metadata key holding the row-label column name.
const IndexKey = "cpandas.index"

// RecordName names the Avro record type written by Write.
const RecordName = "cpandas_row"

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options configures Write.
type Options struct {
	// Compression is the container block codec: "null", "deflate" or
	// "snappy". Empty selects snappy.
	Compression string
}

func compressionName(s string) (string, error) {
	switch s {
	case "", goavro.CompressionSnappyLabel:
		return goavro.CompressionSnappyLabel, nil
	case goavro.CompressionNullLabel, "none":
		return goavro.CompressionNullLabel, nil
	case goavro.CompressionDeflateLabel:
		return goavro.CompressionDeflateLabel, nil
	}
	return "", errors.Newf(errors.CodeInvalid, "unsupported avro compression %q", s)
}

func avroType(d columnar.DType) string {
	switch d {
	case columnar.Int64:
		return "long"
	case columnar.Float64:
		return "double"
	default:
		return "string"
	}
}

// SchemaJSON returns the Avro schema for t. Every field is a union with
// null so missing cells survive.
func SchemaJSON(t *columnar.Table) (string, error) {
	fields := make([]map[string]interface{}, 0, t.NumCols())
	for j, c := range t.Columns() {
		if !validName.MatchString(c.Name()) {
			return "", errors.Newf(errors.CodeInvalid, "column name %q is not a valid avro name", c.Name()).WithColumn(j).WithColumnName(c.Name())
		}
		fields = append(fields, map[string]interface{}{
			"name": c.Name(),
			"type": []interface{}{"null", avroType(c.DType())},
		})
	}
	b, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   RecordName,
		"fields": fields,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInvalid, "marshal avro schema")
	}
	return string(b), nil
}

// Write encodes t as an Avro object container file.
func Write(w io.Writer, t *columnar.Table, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	compression, err := compressionName(opts.Compression)
	if err != nil {
		return err
	}
	schema, err := SchemaJSON(t)
	if err != nil {
		return err
	}
	var meta map[string][]byte
	if t.Index() != "" {
		meta = map[string][]byte{IndexKey: []byte(t.Index())}
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Schema:          schema,
		CompressionName: compression,
		MetaData:        meta,
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create avro writer")
	}

	const batch = 4096
	cols := t.Columns()
	buf := make([]interface{}, 0, batch)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if err := ocf.Append(buf); err != nil {
			return errors.Wrap(err, errors.CodeIO, "write avro block")
		}
		buf = buf[:0]
		return nil
	}
	for i := 0; i < t.NumRows(); i++ {
		rec := make(map[string]interface{}, len(cols))
		for _, c := range cols {
			if c.IsNull(i) {
				rec[c.Name()] = nil
				continue
			}
			switch c.DType() {
			case columnar.Int64:
				rec[c.Name()] = goavro.Union("long", c.Int(i))
			case columnar.Float64:
				rec[c.Name()] = goavro.Union("double", c.Float(i))
			default:
				rec[c.Name()] = goavro.Union("string", c.Str(i))
			}
		}
		buf = append(buf, rec)
		if len(buf) == batch {
			if err := flush(); err != nil {
				return errors.Wrap(err, errors.CodeIO, "write avro").WithRow(i)
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	logger.Debug("avro written", zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()), zap.String("compression", compression))
	return nil
}

type field struct {
	name string
	// branch is the union member name for nullable fields, "" otherwise.
	branch string
	dtype  columnar.DType
}

func dtypeOf(primitive string) (columnar.DType, bool) {
	switch primitive {
	case "int", "long":
		return columnar.Int64, true
	case "float", "double":
		return columnar.Float64, true
	case "string":
		return columnar.String, true
	}
	return 0, false
}

// parseFields accepts records whose fields are int, long, float, double or
// string, optionally in a union with null.
func parseFields(schema string) ([]field, error) {
	var rec struct {
		Type   string `json:"type"`
		Fields []struct {
			Name string          `json:"name"`
			Type json.RawMessage `json:"type"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(schema), &rec); err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "parse avro schema")
	}
	if rec.Type != "record" {
		return nil, errors.Newf(errors.CodeParse, "avro schema type %q is not a record", rec.Type)
	}
	out := make([]field, len(rec.Fields))
	for j, f := range rec.Fields {
		var name string
		var union []interface{}
		switch {
		case json.Unmarshal(f.Type, &name) == nil:
			out[j] = field{name: f.Name}
		case json.Unmarshal(f.Type, &union) == nil:
			for _, u := range union {
				s, ok := u.(string)
				if !ok {
					name = ""
					break
				}
				if s != "null" {
					if name != "" {
						name = ""
						break
					}
					name = s
				}
			}
			out[j] = field{name: f.Name, branch: name}
		}
		dtype, ok := dtypeOf(name)
		if !ok {
			return nil, errors.Newf(errors.CodeInvalid, "unsupported avro type %s for field %q", f.Type, f.Name).WithColumn(j).WithColumnName(f.Name)
		}
		out[j].dtype = dtype
	}
	return out, nil
}

// Read decodes an Avro object container file.
func Read(r io.Reader) (*columnar.Table, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "open avro container")
	}
	fields, err := parseFields(ocf.Codec().Schema())
	if err != nil {
		return nil, err
	}
	cols := make([]*columnar.Column, len(fields))
	for j, f := range fields {
		if cols[j], err = columnar.NewColumn(f.name, f.dtype, 0); err != nil {
			return nil, err
		}
	}

	row := 0
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "read avro datum").WithRow(row)
		}
		rec, ok := datum.(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.CodeParse, "avro datum is %T, not a record", datum).WithRow(row)
		}
		for j, f := range fields {
			if err := appendCell(cols[j], f, rec[f.name]); err != nil {
				return nil, err.At(row, j)
			}
		}
		row++
	}
	if err := ocf.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "scan avro container").WithRow(row)
	}

	t, err := columnar.NewTable(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "assemble avro table")
	}
	if label, ok := ocf.MetaData()[IndexKey]; ok {
		if err := t.SetIndex(string(label)); err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "restore row label")
		}
	}
	logger.Debug("avro read", zap.Int("rows", t.NumRows()), zap.Int("columns", t.NumCols()))
	return t, nil
}

func appendCell(c *columnar.Column, f field, v interface{}) *errors.Error {
	if f.branch != "" {
		if v == nil {
			c.AppendNull()
			return nil
		}
		m, ok := v.(map[string]interface{})
		if !ok {
			return errors.Newf(errors.CodeParse, "union value is %T", v)
		}
		v = m[f.branch]
	}
	switch x := v.(type) {
	case int32:
		c.AppendInt(int64(x))
	case int64:
		c.AppendInt(x)
	case float32:
		c.AppendFloat(float64(x))
	case float64:
		c.AppendFloat(x)
	case string:
		c.AppendString(x)
	default:
		return errors.Newf(errors.CodeParse, "unexpected avro value %T", v)
	}
	return nil
}
