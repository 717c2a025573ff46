package parquet

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
	"go.uber.org/zap"
)

const (
	magic = "PAR1"

	// DefaultRowGroupSize is the maximum number of rows per row group.
	DefaultRowGroupSize = 65536

	// IndexKey is the footer metadata key recording the row-label column.
	IndexKey = "cpandas.index"

	createdBy = "cpandas"
)

// WriterConfig configures Parquet output.
type WriterConfig struct {
	Codec             Codec
	RowGroupSize      int
	DisableDictionary bool
}

// DefaultWriterConfig returns Snappy pages, 65536-row groups and dictionary
// encoding where it is smaller.
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Codec:        Snappy,
		RowGroupSize: DefaultRowGroupSize,
	}
}

// createFile opens the destination of WriteFile.
var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

// WriteFile writes t to path, replacing any existing file. On failure the
// partially written file is removed.
func WriteFile(path string, t *columnar.Table, cfg *WriterConfig) (err error) {
	f, err := createFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "create parquet file").WithDetail("path", path)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := Write(bw, t, cfg); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, errors.CodeIO, "flush parquet file").WithDetail("path", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "close parquet file").WithDetail("path", path)
	}
	return nil
}

// offsetWriter tracks the absolute file offset of everything written.
type offsetWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (o *offsetWriter) write(b []byte) {
	if o.err != nil {
		return
	}
	n, err := o.w.Write(b)
	o.n += int64(n)
	if err != nil {
		o.err = errors.Wrap(err, errors.CodeIO, "write parquet")
	}
}

// Write encodes t as a Parquet file. Each column is OPTIONAL when it holds
// at least one null and REQUIRED otherwise.
func Write(w io.Writer, t *columnar.Table, cfg *WriterConfig) error {
	if t == nil {
		return errors.New(errors.CodeInvalid, "nil table")
	}
	if cfg == nil {
		cfg = DefaultWriterConfig()
	}
	groupSize := cfg.RowGroupSize
	if groupSize <= 0 {
		groupSize = DefaultRowGroupSize
	}
	switch cfg.Codec {
	case Uncompressed, Snappy, Gzip, Zstd:
	default:
		return errors.Newf(errors.CodeInvalid, "unsupported parquet codec %s", cfg.Codec)
	}

	cols := t.Columns()
	optional := make([]bool, len(cols))
	meta := &FileMetaData{
		Version:   1,
		NumRows:   int64(t.NumRows()),
		CreatedBy: createdBy,
	}
	meta.Schema = append(meta.Schema, SchemaElement{Name: "schema", NumChildren: int32Ptr(int32(len(cols)))})
	for i, c := range cols {
		optional[i] = c.NullCount() > 0
		meta.Schema = append(meta.Schema, leafElement(c, optional[i]))
	}
	if label := t.Index(); label != "" {
		meta.KeyValue = append(meta.KeyValue, KeyValue{Key: IndexKey, Value: label})
	}

	ow := &offsetWriter{w: w}
	ow.write([]byte(magic))

	for lo := 0; lo < t.NumRows(); lo += groupSize {
		hi := lo + groupSize
		if hi > t.NumRows() {
			hi = t.NumRows()
		}
		group := RowGroup{NumRows: int64(hi - lo)}
		start := ow.n
		for i, c := range cols {
			chunk, md, err := encodeChunk(c, lo, hi, optional[i], cfg, ow.n)
			if err != nil {
				return err
			}
			ow.write(chunk)
			group.Columns = append(group.Columns, ColumnChunk{FileOffset: md.DataPageOffset, MetaData: md})
			group.TotalByteSize += md.TotalUncompressedSize
		}
		compressed := ow.n - start
		group.FileOffset = &start
		group.TotalCompressedSize = &compressed
		if n := len(meta.RowGroups); n <= math.MaxInt16 {
			ordinal := int16(n)
			group.Ordinal = &ordinal
		}
		meta.RowGroups = append(meta.RowGroups, group)
	}

	fw := &compactWriter{}
	meta.encode(fw)
	footer := fw.Bytes()
	ow.write(footer)
	ow.write(binary.LittleEndian.AppendUint32(nil, uint32(len(footer))))
	ow.write([]byte(magic))
	if ow.err != nil {
		return ow.err
	}

	logger.Debug("parquet written",
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", len(cols)),
		zap.Int("row_groups", len(meta.RowGroups)),
		zap.Stringer("codec", cfg.Codec),
		zap.Int64("bytes", ow.n))
	return nil
}

func int32Ptr(v int32) *int32 { return &v }

func leafElement(c *columnar.Column, optional bool) SchemaElement {
	typ := physicalType(c.DType())
	rep := Required
	if optional {
		rep = Optional
	}
	el := SchemaElement{Type: &typ, Repetition: &rep, Name: c.Name()}
	if c.DType() == columnar.String {
		el.ConvertedType = int32Ptr(convertedUTF8)
		el.String = true
	}
	return el
}

// encodeChunk serializes rows [lo, hi) of c as an optional dictionary page
// followed by one data page. offset is the absolute position the chunk will
// be written at.
func encodeChunk(c *columnar.Column, lo, hi int, optional bool, cfg *WriterConfig, offset int64) ([]byte, *ColumnMetaData, error) {
	var levels []byte
	if optional {
		defs := make([]uint32, hi-lo)
		for i := lo; i < hi; i++ {
			if !c.IsNull(i) {
				defs[i-lo] = 1
			}
		}
		levels = appendLevels(nil, defs)
	}

	var plain []byte
	for i := lo; i < hi; i++ {
		if !c.IsNull(i) {
			plain = appendPlainCell(plain, c, i)
		}
	}

	md := &ColumnMetaData{
		Type:       physicalType(c.DType()),
		Path:       []string{c.Name()},
		Codec:      cfg.Codec,
		NumValues:  int64(hi - lo),
		Statistics: chunkStatistics(c, lo, hi),
	}

	var chunk bytes.Buffer
	dataEncoding := EncodingPlain
	payload := plain
	if !cfg.DisableDictionary {
		dict := buildDictionary(c, lo, hi)
		indices := dict.encodeIndices()
		if len(dict.plain)+len(indices) < len(plain) {
			n, err := writePage(&chunk, cfg.Codec, dict.plain, &PageHeader{
				Type:           PageDictionary,
				DictionaryPage: &DictionaryPageHeader{NumValues: int32(dict.size), Encoding: EncodingPlain},
			})
			if err != nil {
				return nil, nil, err
			}
			md.TotalUncompressedSize += n
			dictOffset := offset
			md.DictionaryPageOffset = &dictOffset
			dataEncoding = EncodingRLEDictionary
			payload = indices
		}
	}

	md.DataPageOffset = offset + int64(chunk.Len())
	page := append(levels, payload...)
	n, err := writePage(&chunk, cfg.Codec, page, &PageHeader{
		Type: PageData,
		DataPage: &DataPageHeader{
			NumValues:               int32(hi - lo),
			Encoding:                dataEncoding,
			DefinitionLevelEncoding: EncodingRLE,
			RepetitionLevelEncoding: EncodingRLE,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	md.TotalUncompressedSize += n
	md.TotalCompressedSize = int64(chunk.Len())

	md.Encodings = []Encoding{EncodingPlain, EncodingRLE}
	if dataEncoding == EncodingRLEDictionary {
		md.Encodings = append(md.Encodings, EncodingRLEDictionary)
	}

	logger.Debug("parquet column chunk",
		zap.String("column", c.Name()),
		zap.Int("rows", hi-lo),
		zap.Bool("optional", optional),
		zap.Stringer("encoding", dataEncoding),
		zap.Int64("compressed_bytes", md.TotalCompressedSize))
	return chunk.Bytes(), md, nil
}

// writePage compresses body, fills in the header sizes and appends header
// and body to dst. It returns the uncompressed size including the header.
func writePage(dst *bytes.Buffer, codec Codec, body []byte, h *PageHeader) (int64, error) {
	if len(body) > math.MaxInt32 {
		return 0, errors.Newf(errors.CodeInvalid, "page of %d bytes exceeds the format limit", len(body))
	}
	compressed, err := compressPage(codec, body)
	if err != nil {
		return 0, err
	}
	if len(compressed) > math.MaxInt32 {
		return 0, errors.Newf(errors.CodeInvalid, "compressed page of %d bytes exceeds the format limit", len(compressed))
	}
	h.UncompressedPageSize = int32(len(body))
	h.CompressedPageSize = int32(len(compressed))

	hw := &compactWriter{}
	h.encode(hw)
	dst.Write(hw.Bytes())
	dst.Write(compressed)
	return int64(len(hw.Bytes()) + len(body)), nil
}

// chunkStatistics records the null count and, when any valid value exists,
// the min and max. NaN is ignored; strings compare bytewise.
func chunkStatistics(c *columnar.Column, lo, hi int) *Statistics {
	var nulls int64
	minRow, maxRow := -1, -1
	for i := lo; i < hi; i++ {
		if c.IsNull(i) {
			nulls++
			continue
		}
		if c.DType() == columnar.Float64 && math.IsNaN(c.Float(i)) {
			continue
		}
		if minRow < 0 || lessCell(c, i, minRow) {
			minRow = i
		}
		if maxRow < 0 || lessCell(c, maxRow, i) {
			maxRow = i
		}
	}
	st := &Statistics{NullCount: &nulls}
	if minRow >= 0 {
		st.MinValue = plainStat(c, minRow)
		st.MaxValue = plainStat(c, maxRow)
	}
	return st
}

func lessCell(c *columnar.Column, i, j int) bool {
	switch c.DType() {
	case columnar.Int64:
		return c.Int(i) < c.Int(j)
	case columnar.Float64:
		return c.Float(i) < c.Float(j)
	default:
		return c.Str(i) < c.Str(j)
	}
}
