package parquet

import (
	"encoding/binary"
	"io"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"github.com/ajitpratap0/cpandas/pkg/mmap"
	"go.uber.org/zap"
)

// maxCapacityHint bounds the up-front column allocation; columns grow past
// it as pages decode.
const maxCapacityHint = 1 << 20

// leaf is a validated schema column.
type leaf struct {
	name     string
	typ      Type
	dtype    columnar.DType
	optional bool
}

// ReadFile reads a Parquet file into a new table. The file is memory
// mapped; decoded columns never alias the mapping.
func ReadFile(path string) (*columnar.Table, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	t, err := Decode(m.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "decode parquet file").WithDetail("path", path)
	}
	return t, nil
}

// Read consumes r fully and decodes it.
func Read(r io.Reader) (*columnar.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "read parquet stream")
	}
	return Decode(data)
}

// ReadMetadata returns the validated footer of a Parquet file.
func ReadMetadata(path string) (*FileMetaData, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	meta, _, err := DecodeMetadata(m.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "decode parquet footer").WithDetail("path", path)
	}
	if _, err := validate(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// DecodeMetadata checks both magics and parses the footer. It also returns
// the offset at which the footer starts.
func DecodeMetadata(data []byte) (*FileMetaData, int, error) {
	if len(data) < 2*len(magic)+4 {
		return nil, 0, errors.Newf(errors.CodeParse, "file of %d bytes is too short for parquet", len(data))
	}
	if string(data[:4]) != magic {
		return nil, 0, errors.New(errors.CodeParse, "missing PAR1 header magic")
	}
	if string(data[len(data)-4:]) != magic {
		return nil, 0, errors.New(errors.CodeParse, "missing PAR1 footer magic")
	}
	size := int64(binary.LittleEndian.Uint32(data[len(data)-8:]))
	if size > int64(len(data)-12) {
		return nil, 0, errors.Newf(errors.CodeParse, "footer length %d exceeds file size %d", size, len(data))
	}
	start := len(data) - 8 - int(size)
	meta, err := decodeFileMetaData(data[start : len(data)-8])
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeParse, "decode footer")
	}
	return meta, start, nil
}

// validate checks the schema is a flat root plus leaves and that every row
// group agrees with it.
func validate(meta *FileMetaData) ([]leaf, error) {
	if len(meta.Schema) == 0 {
		return nil, errors.New(errors.CodeParse, "empty schema")
	}
	root := meta.Schema[0]
	if root.NumChildren == nil || int(*root.NumChildren) != len(meta.Schema)-1 {
		return nil, errors.Newf(errors.CodeParse, "schema root declares %v children, found %d leaves",
			derefInt32(root.NumChildren), len(meta.Schema)-1)
	}

	leaves := make([]leaf, 0, len(meta.Schema)-1)
	for i, el := range meta.Schema[1:] {
		if el.NumChildren != nil && *el.NumChildren > 0 {
			return nil, errors.Newf(errors.CodeParse, "nested schema element %q is not supported", el.Name).WithColumn(i)
		}
		if el.Type == nil {
			return nil, errors.Newf(errors.CodeParse, "schema element %q has no physical type", el.Name).WithColumn(i)
		}
		dtype, ok := dtypeOf(*el.Type)
		if !ok {
			return nil, errors.Newf(errors.CodeParse, "column %q has unsupported type %s", el.Name, *el.Type).WithColumn(i)
		}
		rep := Required
		if el.Repetition != nil {
			rep = *el.Repetition
		}
		if rep != Required && rep != Optional {
			return nil, errors.Newf(errors.CodeParse, "column %q has unsupported repetition %s", el.Name, rep).WithColumn(i)
		}
		leaves = append(leaves, leaf{name: el.Name, typ: *el.Type, dtype: dtype, optional: rep == Optional})
	}

	if meta.NumRows < 0 {
		return nil, errors.Newf(errors.CodeParse, "negative row count %d", meta.NumRows)
	}
	var total int64
	for g, rg := range meta.RowGroups {
		if len(rg.Columns) != len(leaves) {
			return nil, errors.Newf(errors.CodeParse, "row group %d has %d column chunks, schema has %d", g, len(rg.Columns), len(leaves))
		}
		if rg.NumRows < 0 {
			return nil, errors.Newf(errors.CodeParse, "row group %d has negative row count", g)
		}
		for i, cc := range rg.Columns {
			md := cc.MetaData
			lf := leaves[i]
			if md == nil {
				return nil, errors.Newf(errors.CodeParse, "row group %d column %q has no metadata", g, lf.name).WithColumn(i)
			}
			if md.Type != lf.typ {
				return nil, errors.Newf(errors.CodeParse, "row group %d column %q is %s, schema says %s", g, lf.name, md.Type, lf.typ).WithColumn(i)
			}
			if len(md.Path) != 1 || md.Path[0] != lf.name {
				return nil, errors.Newf(errors.CodeParse, "row group %d column %d path %v does not match %q", g, i, md.Path, lf.name).WithColumn(i)
			}
			if md.NumValues != rg.NumRows {
				return nil, errors.Newf(errors.CodeParse, "row group %d column %q has %d values, row group has %d rows",
					g, lf.name, md.NumValues, rg.NumRows).WithColumn(i)
			}
		}
		total += rg.NumRows
	}
	if total != meta.NumRows {
		return nil, errors.Newf(errors.CodeParse, "row groups hold %d rows, footer declares %d", total, meta.NumRows)
	}
	return leaves, nil
}

func derefInt32(p *int32) interface{} {
	if p == nil {
		return "no"
	}
	return *p
}

// Decode parses an in-memory Parquet file. Any structural inconsistency is
// a parse error and no partial table is returned.
func Decode(data []byte) (*columnar.Table, error) {
	meta, footerStart, err := DecodeMetadata(data)
	if err != nil {
		return nil, err
	}
	leaves, err := validate(meta)
	if err != nil {
		return nil, err
	}

	capacity := int(meta.NumRows)
	if capacity > maxCapacityHint {
		capacity = maxCapacityHint
	}
	cols := make([]*columnar.Column, len(leaves))
	for i, lf := range leaves {
		c, err := columnar.NewColumn(lf.name, lf.dtype, capacity)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	body := data[:footerStart]
	for g, rg := range meta.RowGroups {
		for i, cc := range rg.Columns {
			if err := readChunk(body, cc.MetaData, leaves[i], cols[i]); err != nil {
				return nil, errors.Wrapf(err, errors.CodeParse, "row group %d column %q", g, leaves[i].name).WithColumn(i)
			}
		}
	}

	t, err := columnar.NewTable(cols...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "assemble table")
	}
	for _, kv := range meta.KeyValue {
		if kv.Key == IndexKey && t.HasColumn(kv.Value) {
			if err := t.SetIndex(kv.Value); err != nil {
				return nil, errors.Wrap(err, errors.CodeParse, "restore row label")
			}
		}
	}

	logger.Debug("parquet read",
		zap.Int64("rows", meta.NumRows),
		zap.Int("columns", len(leaves)),
		zap.Int("row_groups", len(meta.RowGroups)))
	return t, nil
}

// readChunk decodes every page of one column chunk into c.
func readChunk(body []byte, md *ColumnMetaData, lf leaf, c *columnar.Column) error {
	start := md.DataPageOffset
	if md.DictionaryPageOffset != nil && *md.DictionaryPageOffset > 0 && *md.DictionaryPageOffset < start {
		start = *md.DictionaryPageOffset
	}
	end := start + md.TotalCompressedSize
	if start < int64(len(magic)) || md.TotalCompressedSize < 0 || end > int64(len(body)) {
		return errors.Newf(errors.CodeParse, "chunk range [%d, %d) outside file body of %d bytes", start, end, len(body))
	}

	pr := newCompactReader(body[start:end])
	var dict *values
	var read int64
	for read < md.NumValues {
		if pr.pos >= len(pr.data) {
			return errors.Newf(errors.CodeParse, "chunk ended after %d of %d values", read, md.NumValues)
		}
		h, err := decodePageHeader(pr)
		if err != nil {
			return err
		}
		size := int(h.CompressedPageSize)
		if size > len(pr.data)-pr.pos {
			return errors.Newf(errors.CodeParse, "page of %d bytes overruns chunk", size)
		}
		raw := pr.data[pr.pos : pr.pos+size]
		pr.pos += size

		switch h.Type {
		case PageDictionary:
			if dict != nil {
				return errors.New(errors.CodeParse, "second dictionary page in chunk")
			}
			dh := h.DictionaryPage
			if dh == nil {
				return errors.New(errors.CodeParse, "dictionary page without header")
			}
			if dh.Encoding != EncodingPlain && dh.Encoding != EncodingPlainDictionary {
				return errors.Newf(errors.CodeParse, "dictionary page encoding %s", dh.Encoding)
			}
			page, err := decompressPage(md.Codec, raw, int(h.UncompressedPageSize))
			if err != nil {
				return err
			}
			if dict, err = decodePlain(lf.typ, page, int(dh.NumValues)); err != nil {
				return err
			}
		case PageData:
			dh := h.DataPage
			if dh == nil {
				return errors.New(errors.CodeParse, "data page without header")
			}
			if dh.NumValues < 0 || read+int64(dh.NumValues) > md.NumValues {
				return errors.Newf(errors.CodeParse, "data page of %d values exceeds chunk total %d", dh.NumValues, md.NumValues)
			}
			page, err := decompressPage(md.Codec, raw, int(h.UncompressedPageSize))
			if err != nil {
				return err
			}
			if err := decodeDataPage(page, dh, lf, dict, c); err != nil {
				return errors.Wrap(err, errors.CodeParse, "data page").WithRow(c.Len())
			}
			read += int64(dh.NumValues)
		case PageDataV2:
			return errors.New(errors.CodeParse, "data page v2 is not supported")
		default:
			// index pages carry nothing needed here
		}
	}
	return nil
}

// decodeDataPage materializes one v1 data page: optional definition levels
// followed by PLAIN or dictionary-encoded values.
func decodeDataPage(page []byte, dh *DataPageHeader, lf leaf, dict *values, c *columnar.Column) error {
	n := int(dh.NumValues)
	present := n
	var defs []uint32
	if lf.optional {
		if dh.DefinitionLevelEncoding != EncodingRLE {
			return errors.Newf(errors.CodeParse, "definition level encoding %s", dh.DefinitionLevelEncoding)
		}
		if len(page) < 4 {
			return errors.New(errors.CodeParse, "truncated definition level length")
		}
		size := int(binary.LittleEndian.Uint32(page))
		if size < 0 || size > len(page)-4 {
			return errors.Newf(errors.CodeParse, "definition levels of %d bytes overrun page", size)
		}
		var err error
		if defs, _, err = decodeHybrid(page[4:4+size], 1, n); err != nil {
			return err
		}
		present = 0
		for _, d := range defs {
			present += int(d)
		}
		page = page[4+size:]
	}

	var vals *values
	switch {
	case dh.Encoding == EncodingPlain:
		v, err := decodePlain(lf.typ, page, present)
		if err != nil {
			return err
		}
		vals = v
	case dh.Encoding.isDictionary():
		if dict == nil {
			return errors.New(errors.CodeParse, "dictionary-encoded page without dictionary")
		}
		if present == 0 {
			vals = &values{dtype: lf.dtype}
			break
		}
		if len(page) == 0 {
			return errors.New(errors.CodeParse, "missing dictionary index bit width")
		}
		idx, _, err := decodeHybrid(page[1:], int(page[0]), present)
		if err != nil {
			return err
		}
		if vals, err = dict.gather(idx); err != nil {
			return err
		}
	default:
		return errors.Newf(errors.CodeParse, "unsupported value encoding %s", dh.Encoding)
	}

	next := 0
	for i := 0; i < n; i++ {
		if defs != nil && defs[i] == 0 {
			c.AppendNull()
			continue
		}
		vals.appendTo(c, next)
		next++
	}
	return nil
}
