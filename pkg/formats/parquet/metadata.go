package parquet

import (
	"bytes"
	"fmt"
)

// Type is a Parquet physical type.
type Type int32

const (
	Boolean           Type = 0
	Int32             Type = 1
	Int64             Type = 2
	Int96             Type = 3
	Float             Type = 4
	Double            Type = 5
	ByteArray         Type = 6
	FixedLenByteArray Type = 7
)

func (t Type) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Int96:
		return "INT96"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case ByteArray:
		return "BYTE_ARRAY"
	case FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// Repetition is a schema field's repetition type.
type Repetition int32

const (
	Required Repetition = 0
	Optional Repetition = 1
	Repeated Repetition = 2
)

func (r Repetition) String() string {
	switch r {
	case Required:
		return "REQUIRED"
	case Optional:
		return "OPTIONAL"
	case Repeated:
		return "REPEATED"
	}
	return fmt.Sprintf("Repetition(%d)", int32(r))
}

// Encoding identifies a page value or level encoding.
type Encoding int32

const (
	EncodingPlain           Encoding = 0
	EncodingPlainDictionary Encoding = 2
	EncodingRLE             Encoding = 3
	EncodingBitPacked       Encoding = 4
	EncodingRLEDictionary   Encoding = 8
)

func (e Encoding) String() string {
	switch e {
	case EncodingPlain:
		return "PLAIN"
	case EncodingPlainDictionary:
		return "PLAIN_DICTIONARY"
	case EncodingRLE:
		return "RLE"
	case EncodingBitPacked:
		return "BIT_PACKED"
	case EncodingRLEDictionary:
		return "RLE_DICTIONARY"
	}
	return fmt.Sprintf("Encoding(%d)", int32(e))
}

func (e Encoding) isDictionary() bool {
	return e == EncodingPlainDictionary || e == EncodingRLEDictionary
}

// PageType identifies the kind of page following a page header.
type PageType int32

const (
	PageData       PageType = 0
	PageIndex      PageType = 1
	PageDictionary PageType = 2
	PageDataV2     PageType = 3
)

// convertedUTF8 is the legacy converted_type marking BYTE_ARRAY as text.
const convertedUTF8 int32 = 0

// FileMetaData is the decoded file footer.
type FileMetaData struct {
	Version   int32
	Schema    []SchemaElement
	NumRows   int64
	RowGroups []RowGroup
	KeyValue  []KeyValue
	CreatedBy string
}

// SchemaElement is one node of the flattened schema tree. The root carries
// NumChildren; leaves carry a physical type.
type SchemaElement struct {
	Type          *Type
	TypeLength    *int32
	Repetition    *Repetition
	Name          string
	NumChildren   *int32
	ConvertedType *int32
	String        bool // logicalType STRING
}

// RowGroup describes one horizontal slice of the file.
type RowGroup struct {
	Columns             []ColumnChunk
	TotalByteSize       int64
	NumRows             int64
	FileOffset          *int64
	TotalCompressedSize *int64
	Ordinal             *int16
}

// ColumnChunk locates one column's pages within a row group.
type ColumnChunk struct {
	FilePath   string
	FileOffset int64
	MetaData   *ColumnMetaData
}

// ColumnMetaData carries a chunk's encoding, codec, sizes and page offsets.
type ColumnMetaData struct {
	Type                  Type
	Encodings             []Encoding
	Path                  []string
	Codec                 Codec
	NumValues             int64
	TotalUncompressedSize int64
	TotalCompressedSize   int64
	DataPageOffset        int64
	DictionaryPageOffset  *int64
	Statistics            *Statistics
}

// Statistics are per-chunk column statistics. Min and max are PLAIN encoded
// without a length prefix.
type Statistics struct {
	NullCount *int64
	MinValue  []byte
	MaxValue  []byte
}

// KeyValue is a footer metadata entry.
type KeyValue struct {
	Key   string
	Value string
}

// PageHeader precedes every page in a column chunk.
type PageHeader struct {
	Type                 PageType
	UncompressedPageSize int32
	CompressedPageSize   int32
	DataPage             *DataPageHeader
	DictionaryPage       *DictionaryPageHeader
}

// DataPageHeader describes a v1 data page.
type DataPageHeader struct {
	NumValues               int32
	Encoding                Encoding
	DefinitionLevelEncoding Encoding
	RepetitionLevelEncoding Encoding
}

// DictionaryPageHeader describes a dictionary page.
type DictionaryPageHeader struct {
	NumValues int32
	Encoding  Encoding
	IsSorted  bool
}

func (m *FileMetaData) encode(w *compactWriter) {
	w.begin()
	w.i32Field(1, m.Version)
	w.listField(2, ctStruct, len(m.Schema))
	for i := range m.Schema {
		m.Schema[i].encode(w)
	}
	w.i64Field(3, m.NumRows)
	w.listField(4, ctStruct, len(m.RowGroups))
	for i := range m.RowGroups {
		m.RowGroups[i].encode(w)
	}
	if len(m.KeyValue) > 0 {
		w.listField(5, ctStruct, len(m.KeyValue))
		for _, kv := range m.KeyValue {
			w.begin()
			w.stringField(1, kv.Key)
			w.stringField(2, kv.Value)
			w.end()
		}
	}
	if m.CreatedBy != "" {
		w.stringField(6, m.CreatedBy)
	}
	w.end()
}

func (s *SchemaElement) encode(w *compactWriter) {
	w.begin()
	if s.Type != nil {
		w.i32Field(1, int32(*s.Type))
	}
	if s.TypeLength != nil {
		w.i32Field(2, *s.TypeLength)
	}
	if s.Repetition != nil {
		w.i32Field(3, int32(*s.Repetition))
	}
	w.stringField(4, s.Name)
	if s.NumChildren != nil {
		w.i32Field(5, *s.NumChildren)
	}
	if s.ConvertedType != nil {
		w.i32Field(6, *s.ConvertedType)
	}
	if s.String {
		w.structField(10) // LogicalType union
		w.structField(1)  // StringType
		w.end()
		w.end()
	}
	w.end()
}

func (g *RowGroup) encode(w *compactWriter) {
	w.begin()
	w.listField(1, ctStruct, len(g.Columns))
	for i := range g.Columns {
		g.Columns[i].encode(w)
	}
	w.i64Field(2, g.TotalByteSize)
	w.i64Field(3, g.NumRows)
	if g.FileOffset != nil {
		w.i64Field(5, *g.FileOffset)
	}
	if g.TotalCompressedSize != nil {
		w.i64Field(6, *g.TotalCompressedSize)
	}
	if g.Ordinal != nil {
		w.i16Field(7, *g.Ordinal)
	}
	w.end()
}

func (c *ColumnChunk) encode(w *compactWriter) {
	w.begin()
	if c.FilePath != "" {
		w.stringField(1, c.FilePath)
	}
	w.i64Field(2, c.FileOffset)
	if c.MetaData != nil {
		w.structField(3)
		c.MetaData.encodeFields(w)
		w.end()
	}
	w.end()
}

func (m *ColumnMetaData) encodeFields(w *compactWriter) {
	w.i32Field(1, int32(m.Type))
	encs := make([]int32, len(m.Encodings))
	for i, e := range m.Encodings {
		encs[i] = int32(e)
	}
	w.i32List(2, encs)
	w.stringList(3, m.Path)
	w.i32Field(4, int32(m.Codec))
	w.i64Field(5, m.NumValues)
	w.i64Field(6, m.TotalUncompressedSize)
	w.i64Field(7, m.TotalCompressedSize)
	w.i64Field(9, m.DataPageOffset)
	if m.DictionaryPageOffset != nil {
		w.i64Field(11, *m.DictionaryPageOffset)
	}
	if st := m.Statistics; st != nil {
		w.structField(12)
		if st.NullCount != nil {
			w.i64Field(3, *st.NullCount)
		}
		if st.MaxValue != nil {
			w.binaryField(5, st.MaxValue)
		}
		if st.MinValue != nil {
			w.binaryField(6, st.MinValue)
		}
		w.end()
	}
}

func (h *PageHeader) encode(w *compactWriter) {
	w.begin()
	w.i32Field(1, int32(h.Type))
	w.i32Field(2, h.UncompressedPageSize)
	w.i32Field(3, h.CompressedPageSize)
	if d := h.DataPage; d != nil {
		w.structField(5)
		w.i32Field(1, d.NumValues)
		w.i32Field(2, int32(d.Encoding))
		w.i32Field(3, int32(d.DefinitionLevelEncoding))
		w.i32Field(4, int32(d.RepetitionLevelEncoding))
		w.end()
	}
	if d := h.DictionaryPage; d != nil {
		w.structField(7)
		w.i32Field(1, d.NumValues)
		w.i32Field(2, int32(d.Encoding))
		w.boolField(3, d.IsSorted)
		w.end()
	}
	w.end()
}

func decodeFileMetaData(data []byte) (*FileMetaData, error) {
	r := newCompactReader(data)
	m := &FileMetaData{}
	var seen [7]bool
	err := r.readStruct(func(id int16, typ byte) error {
		if id > 0 && int(id) < len(seen) {
			seen[id] = true
		}
		switch id {
		case 1:
			if err := r.expect(id, typ, ctI32); err != nil {
				return err
			}
			v, err := r.i32()
			m.Version = v
			return err
		case 2:
			if err := r.expect(id, typ, ctList); err != nil {
				return err
			}
			return r.readStructList(func(int) error {
				var s SchemaElement
				if err := s.decode(r); err != nil {
					return err
				}
				m.Schema = append(m.Schema, s)
				return nil
			})
		case 3:
			if err := r.expect(id, typ, ctI64); err != nil {
				return err
			}
			v, err := r.i64()
			m.NumRows = v
			return err
		case 4:
			if err := r.expect(id, typ, ctList); err != nil {
				return err
			}
			return r.readStructList(func(int) error {
				var g RowGroup
				if err := g.decode(r); err != nil {
					return err
				}
				m.RowGroups = append(m.RowGroups, g)
				return nil
			})
		case 5:
			if err := r.expect(id, typ, ctList); err != nil {
				return err
			}
			return r.readStructList(func(int) error {
				var kv KeyValue
				err := r.readStruct(func(id int16, typ byte) error {
					if typ != ctBinary || (id != 1 && id != 2) {
						return r.skip(typ)
					}
					s, err := r.str()
					if id == 1 {
						kv.Key = s
					} else {
						kv.Value = s
					}
					return err
				})
				m.KeyValue = append(m.KeyValue, kv)
				return err
			})
		case 6:
			if err := r.expect(id, typ, ctBinary); err != nil {
				return err
			}
			s, err := r.str()
			m.CreatedBy = s
			return err
		}
		return r.skip(typ)
	})
	if err != nil {
		return nil, err
	}
	for _, id := range []int{1, 2, 3, 4} {
		if !seen[id] {
			return nil, r.errorf("FileMetaData missing required field %d", id)
		}
	}
	return m, nil
}

func (s *SchemaElement) decode(r *compactReader) error {
	named := false
	err := r.readStruct(func(id int16, typ byte) error {
		switch id {
		case 1, 2, 3, 5, 6:
			if err := r.expect(id, typ, ctI32); err != nil {
				return err
			}
			v, err := r.i32()
			if err != nil {
				return err
			}
			switch id {
			case 1:
				t := Type(v)
				s.Type = &t
			case 2:
				s.TypeLength = &v
			case 3:
				rep := Repetition(v)
				s.Repetition = &rep
			case 5:
				s.NumChildren = &v
			case 6:
				s.ConvertedType = &v
			}
			return nil
		case 4:
			if err := r.expect(id, typ, ctBinary); err != nil {
				return err
			}
			name, err := r.str()
			s.Name = name
			named = true
			return err
		case 10:
			if err := r.expect(id, typ, ctStruct); err != nil {
				return err
			}
			return r.readStruct(func(id int16, typ byte) error {
				if id == 1 && typ == ctStruct {
					s.String = true
				}
				return r.skip(typ)
			})
		}
		return r.skip(typ)
	})
	if err == nil && !named {
		err = r.errorf("SchemaElement missing name")
	}
	return err
}

func (g *RowGroup) decode(r *compactReader) error {
	var hasRows bool
	err := r.readStruct(func(id int16, typ byte) error {
		switch id {
		case 1:
			if err := r.expect(id, typ, ctList); err != nil {
				return err
			}
			return r.readStructList(func(int) error {
				var c ColumnChunk
				if err := c.decode(r); err != nil {
					return err
				}
				g.Columns = append(g.Columns, c)
				return nil
			})
		case 2, 3, 5, 6:
			if err := r.expect(id, typ, ctI64); err != nil {
				return err
			}
			v, err := r.i64()
			if err != nil {
				return err
			}
			switch id {
			case 2:
				g.TotalByteSize = v
			case 3:
				g.NumRows = v
				hasRows = true
			case 5:
				g.FileOffset = &v
			case 6:
				g.TotalCompressedSize = &v
			}
			return nil
		case 7:
			if err := r.expect(id, typ, ctI16); err != nil {
				return err
			}
			v, err := r.i16()
			g.Ordinal = &v
			return err
		}
		return r.skip(typ)
	})
	if err == nil && !hasRows {
		err = r.errorf("RowGroup missing num_rows")
	}
	return err
}

func (c *ColumnChunk) decode(r *compactReader) error {
	return r.readStruct(func(id int16, typ byte) error {
		switch id {
		case 1:
			if err := r.expect(id, typ, ctBinary); err != nil {
				return err
			}
			s, err := r.str()
			c.FilePath = s
			return err
		case 2:
			if err := r.expect(id, typ, ctI64); err != nil {
				return err
			}
			v, err := r.i64()
			c.FileOffset = v
			return err
		case 3:
			if err := r.expect(id, typ, ctStruct); err != nil {
				return err
			}
			c.MetaData = &ColumnMetaData{}
			return c.MetaData.decode(r)
		}
		return r.skip(typ)
	})
}

func (m *ColumnMetaData) decode(r *compactReader) error {
	return r.readStruct(func(id int16, typ byte) error {
		switch id {
		case 1, 4:
			if err := r.expect(id, typ, ctI32); err != nil {
				return err
			}
			v, err := r.i32()
			if id == 1 {
				m.Type = Type(v)
			} else {
				m.Codec = Codec(v)
			}
			return err
		case 2:
			if err := r.expect(id, typ, ctList); err != nil {
				return err
			}
			vs, err := r.i32List()
			for _, v := range vs {
				m.Encodings = append(m.Encodings, Encoding(v))
			}
			return err
		case 3:
			if err := r.expect(id, typ, ctList); err != nil {
				return err
			}
			vs, err := r.stringList()
			m.Path = vs
			return err
		case 5, 6, 7, 9, 11:
			if err := r.expect(id, typ, ctI64); err != nil {
				return err
			}
			v, err := r.i64()
			if err != nil {
				return err
			}
			switch id {
			case 5:
				m.NumValues = v
			case 6:
				m.TotalUncompressedSize = v
			case 7:
				m.TotalCompressedSize = v
			case 9:
				m.DataPageOffset = v
			case 11:
				m.DictionaryPageOffset = &v
			}
			return nil
		case 12:
			if err := r.expect(id, typ, ctStruct); err != nil {
				return err
			}
			m.Statistics = &Statistics{}
			return m.Statistics.decode(r)
		}
		return r.skip(typ)
	})
}

func (s *Statistics) decode(r *compactReader) error {
	return r.readStruct(func(id int16, typ byte) error {
		switch id {
		case 3:
			if err := r.expect(id, typ, ctI64); err != nil {
				return err
			}
			v, err := r.i64()
			s.NullCount = &v
			return err
		case 5, 6:
			if err := r.expect(id, typ, ctBinary); err != nil {
				return err
			}
			b, err := r.binary()
			b = bytes.Clone(b)
			if id == 5 {
				s.MaxValue = b
			} else {
				s.MinValue = b
			}
			return err
		}
		return r.skip(typ)
	})
}

func decodePageHeader(r *compactReader) (*PageHeader, error) {
	h := &PageHeader{}
	var seen [4]bool
	err := r.readStruct(func(id int16, typ byte) error {
		switch id {
		case 1, 2, 3:
			if err := r.expect(id, typ, ctI32); err != nil {
				return err
			}
			v, err := r.i32()
			if err != nil {
				return err
			}
			seen[id] = true
			switch id {
			case 1:
				h.Type = PageType(v)
			case 2:
				h.UncompressedPageSize = v
			case 3:
				h.CompressedPageSize = v
			}
			return nil
		case 5:
			if err := r.expect(id, typ, ctStruct); err != nil {
				return err
			}
			h.DataPage = &DataPageHeader{}
			return h.DataPage.decode(r)
		case 7:
			if err := r.expect(id, typ, ctStruct); err != nil {
				return err
			}
			h.DictionaryPage = &DictionaryPageHeader{}
			return h.DictionaryPage.decode(r)
		}
		return r.skip(typ)
	})
	if err != nil {
		return nil, err
	}
	if !seen[1] || !seen[2] || !seen[3] {
		return nil, r.errorf("PageHeader missing required fields")
	}
	if h.UncompressedPageSize < 0 || h.CompressedPageSize < 0 {
		return nil, r.errorf("negative page size")
	}
	return h, nil
}

func (d *DataPageHeader) decode(r *compactReader) error {
	return r.readStruct(func(id int16, typ byte) error {
		if id < 1 || id > 4 {
			return r.skip(typ)
		}
		if err := r.expect(id, typ, ctI32); err != nil {
			return err
		}
		v, err := r.i32()
		switch id {
		case 1:
			d.NumValues = v
		case 2:
			d.Encoding = Encoding(v)
		case 3:
			d.DefinitionLevelEncoding = Encoding(v)
		case 4:
			d.RepetitionLevelEncoding = Encoding(v)
		}
		return err
	})
}

func (d *DictionaryPageHeader) decode(r *compactReader) error {
	return r.readStruct(func(id int16, typ byte) error {
		switch id {
		case 1, 2:
			if err := r.expect(id, typ, ctI32); err != nil {
				return err
			}
			v, err := r.i32()
			if id == 1 {
				d.NumValues = v
			} else {
				d.Encoding = Encoding(v)
			}
			return err
		case 3:
			v, err := r.boolValue(typ)
			d.IsSorted = v
			return err
		}
		return r.skip(typ)
	})
}
