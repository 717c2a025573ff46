package parquet

import (
	"encoding/binary"
	"math"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

// Thrift compact protocol type ids.
const (
	ctStop      byte = 0x00
	ctBoolTrue  byte = 0x01
	ctBoolFalse byte = 0x02
	ctByte      byte = 0x03
	ctI16       byte = 0x04
	ctI32       byte = 0x05
	ctI64       byte = 0x06
	ctDouble    byte = 0x07
	ctBinary    byte = 0x08
	ctList      byte = 0x09
	ctSet       byte = 0x0a
	ctMap       byte = 0x0b
	ctStruct    byte = 0x0c
)

// maxThriftDepth bounds struct and container nesting while decoding.
const maxThriftDepth = 64

// compactWriter appends compact-protocol fields to an in-memory buffer.
// Field ids are delta-encoded against the previous field of the enclosing
// struct; nested structs save and restore that id.
type compactWriter struct {
	buf    []byte
	lastID int16
	stack  []int16
}

func (w *compactWriter) Bytes() []byte { return w.buf }

func (w *compactWriter) fieldHeader(id int16, typ byte) {
	if delta := id - w.lastID; delta > 0 && delta <= 15 {
		w.buf = append(w.buf, byte(delta)<<4|typ)
	} else {
		w.buf = append(w.buf, typ)
		w.varint(int64(id))
	}
	w.lastID = id
}

func (w *compactWriter) uvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// varint writes a zigzag-encoded signed integer.
func (w *compactWriter) varint(v int64) {
	w.uvarint(uint64((v << 1) ^ (v >> 63)))
}

func (w *compactWriter) i16Field(id int16, v int16) {
	w.fieldHeader(id, ctI16)
	w.varint(int64(v))
}

func (w *compactWriter) i32Field(id int16, v int32) {
	w.fieldHeader(id, ctI32)
	w.varint(int64(v))
}

func (w *compactWriter) i64Field(id int16, v int64) {
	w.fieldHeader(id, ctI64)
	w.varint(v)
}

func (w *compactWriter) boolField(id int16, v bool) {
	if v {
		w.fieldHeader(id, ctBoolTrue)
	} else {
		w.fieldHeader(id, ctBoolFalse)
	}
}

func (w *compactWriter) doubleField(id int16, v float64) {
	w.fieldHeader(id, ctDouble)
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *compactWriter) binaryField(id int16, b []byte) {
	w.fieldHeader(id, ctBinary)
	w.binary(b)
}

func (w *compactWriter) stringField(id int16, s string) {
	w.fieldHeader(id, ctBinary)
	w.uvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *compactWriter) binary(b []byte) {
	w.uvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *compactWriter) listHeader(elem byte, n int) {
	if n < 15 {
		w.buf = append(w.buf, byte(n)<<4|elem)
		return
	}
	w.buf = append(w.buf, 0xf0|elem)
	w.uvarint(uint64(n))
}

func (w *compactWriter) listField(id int16, elem byte, n int) {
	w.fieldHeader(id, ctList)
	w.listHeader(elem, n)
}

func (w *compactWriter) i32List(id int16, vs []int32) {
	w.listField(id, ctI32, len(vs))
	for _, v := range vs {
		w.varint(int64(v))
	}
}

func (w *compactWriter) stringList(id int16, vs []string) {
	w.listField(id, ctBinary, len(vs))
	for _, v := range vs {
		w.uvarint(uint64(len(v)))
		w.buf = append(w.buf, v...)
	}
}

// structField opens a nested struct field; close it with end.
func (w *compactWriter) structField(id int16) {
	w.fieldHeader(id, ctStruct)
	w.begin()
}

// begin opens a struct value, used directly for list elements.
func (w *compactWriter) begin() {
	w.stack = append(w.stack, w.lastID)
	w.lastID = 0
}

// end writes the stop byte of the current struct.
func (w *compactWriter) end() {
	w.buf = append(w.buf, ctStop)
	if n := len(w.stack); n > 0 {
		w.lastID = w.stack[n-1]
		w.stack = w.stack[:n-1]
	}
}

// compactReader decodes compact-protocol values from a byte slice. Every
// read is bounds-checked; malformed input yields a parse error carrying the
// byte offset.
type compactReader struct {
	data   []byte
	pos    int
	lastID int16
	stack  []int16
}

func newCompactReader(data []byte) *compactReader {
	return &compactReader{data: data}
}

func (r *compactReader) errorf(format string, args ...interface{}) error {
	return errors.Newf(errors.CodeParse, "thrift: "+format, args...).WithDetail("offset", r.pos)
}

func (r *compactReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.errorf("unexpected end of input")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *compactReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, r.errorf("malformed varint")
	}
	r.pos += n
	return v, nil
}

func (r *compactReader) varint() (int64, error) {
	u, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	return int64(u>>1) ^ -int64(u&1), nil
}

func (r *compactReader) i16() (int16, error) {
	v, err := r.varint()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, r.errorf("i16 out of range: %d", v)
	}
	return int16(v), nil
}

func (r *compactReader) i32() (int32, error) {
	v, err := r.varint()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, r.errorf("i32 out of range: %d", v)
	}
	return int32(v), nil
}

func (r *compactReader) i64() (int64, error) {
	return r.varint()
}

func (r *compactReader) double() (float64, error) {
	if len(r.data)-r.pos < 8 {
		return 0, r.errorf("truncated double")
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.data[r.pos:]))
	r.pos += 8
	return v, nil
}

func (r *compactReader) binary() ([]byte, error) {
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.data)-r.pos) {
		return nil, r.errorf("binary length %d exceeds remaining %d bytes", n, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func (r *compactReader) str() (string, error) {
	b, err := r.binary()
	return string(b), err
}

// listHeader returns the element type and count of a list or set.
func (r *compactReader) listHeader() (byte, int, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, 0, err
	}
	elem := b & 0x0f
	n := uint64(b >> 4)
	if n == 15 {
		if n, err = r.uvarint(); err != nil {
			return 0, 0, err
		}
	}
	// Every element occupies at least one byte.
	if n > uint64(len(r.data)-r.pos) {
		return 0, 0, r.errorf("list of %d elements exceeds remaining input", n)
	}
	return elem, int(n), nil
}

// fieldHeader returns the next field id and type; typ is ctStop at the end
// of a struct.
func (r *compactReader) fieldHeader() (int16, byte, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, 0, err
	}
	if b == ctStop {
		return 0, ctStop, nil
	}
	typ := b & 0x0f
	delta := int16(b >> 4)
	id := r.lastID + delta
	if delta == 0 {
		if id, err = r.i16(); err != nil {
			return 0, 0, err
		}
	}
	r.lastID = id
	return id, typ, nil
}

// readStruct iterates the fields of one struct value, calling fn for each.
// fn must consume the field's value or call skip.
func (r *compactReader) readStruct(fn func(id int16, typ byte) error) error {
	if len(r.stack) >= maxThriftDepth {
		return r.errorf("nesting deeper than %d", maxThriftDepth)
	}
	r.stack = append(r.stack, r.lastID)
	r.lastID = 0
	for {
		id, typ, err := r.fieldHeader()
		if err != nil {
			return err
		}
		if typ == ctStop {
			break
		}
		if err := fn(id, typ); err != nil {
			return err
		}
	}
	r.lastID = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

// readStructList iterates a list of struct elements.
func (r *compactReader) readStructList(fn func(i int) error) error {
	elem, n, err := r.listHeader()
	if err != nil {
		return err
	}
	if elem != ctStruct {
		return r.errorf("expected list<struct>, got element type %d", elem)
	}
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

func (r *compactReader) i32List() ([]int32, error) {
	elem, n, err := r.listHeader()
	if err != nil {
		return nil, err
	}
	if elem != ctI32 {
		return nil, r.errorf("expected list<i32>, got element type %d", elem)
	}
	out := make([]int32, n)
	for i := range out {
		if out[i], err = r.i32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *compactReader) stringList() ([]string, error) {
	elem, n, err := r.listHeader()
	if err != nil {
		return nil, err
	}
	if elem != ctBinary {
		return nil, r.errorf("expected list<binary>, got element type %d", elem)
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = r.str(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// bool decodes a struct field's boolean, which lives in its type id.
func (r *compactReader) boolValue(typ byte) (bool, error) {
	switch typ {
	case ctBoolTrue:
		return true, nil
	case ctBoolFalse:
		return false, nil
	}
	return false, r.errorf("expected bool, got type %d", typ)
}

// expect checks that a known field carries the type the schema declares.
func (r *compactReader) expect(id int16, got, want byte) error {
	if got != want {
		return r.errorf("field %d has type %d, want %d", id, got, want)
	}
	return nil
}

// skip consumes a value of the given type without decoding it.
func (r *compactReader) skip(typ byte) error {
	return r.skipDepth(typ, 0)
}

func (r *compactReader) skipDepth(typ byte, depth int) error {
	if depth > maxThriftDepth {
		return r.errorf("nesting deeper than %d", maxThriftDepth)
	}
	switch typ {
	case ctBoolTrue, ctBoolFalse:
		return nil
	case ctByte:
		_, err := r.readByte()
		return err
	case ctI16, ctI32, ctI64:
		_, err := r.uvarint()
		return err
	case ctDouble:
		_, err := r.double()
		return err
	case ctBinary:
		_, err := r.binary()
		return err
	case ctList, ctSet:
		elem, n, err := r.listHeader()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := r.skipElem(elem, depth+1); err != nil {
				return err
			}
		}
		return nil
	case ctMap:
		n, err := r.uvarint()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if n > uint64(len(r.data)-r.pos) {
			return r.errorf("map of %d entries exceeds remaining input", n)
		}
		kv, err := r.readByte()
		if err != nil {
			return err
		}
		for i := uint64(0); i < n; i++ {
			if err := r.skipElem(kv>>4, depth+1); err != nil {
				return err
			}
			if err := r.skipElem(kv&0x0f, depth+1); err != nil {
				return err
			}
		}
		return nil
	case ctStruct:
		if len(r.stack) >= maxThriftDepth {
			return r.errorf("nesting deeper than %d", maxThriftDepth)
		}
		return r.readStruct(func(_ int16, t byte) error {
			return r.skipDepth(t, depth+1)
		})
	}
	return r.errorf("unknown type id %d", typ)
}

// skipElem skips a container element; booleans inside containers occupy a
// full byte.
func (r *compactReader) skipElem(typ byte, depth int) error {
	if typ == ctBoolTrue || typ == ctBoolFalse {
		_, err := r.readByte()
		return err
	}
	return r.skipDepth(typ, depth)
}
