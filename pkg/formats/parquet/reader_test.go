package parquet

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ajitpratap0/cpandas/pkg/columnar"
	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteFooter decodes the footer of data, lets fn alter it and returns
// the file with the re-encoded footer.
func rewriteFooter(t *testing.T, data []byte, fn func(*FileMetaData)) []byte {
	t.Helper()
	meta, start, err := DecodeMetadata(data)
	require.NoError(t, err)
	fn(meta)

	w := &compactWriter{}
	meta.encode(w)
	out := append([]byte{}, data[:start]...)
	out = append(out, w.Bytes()...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(w.Bytes())))
	return append(out, magic...)
}

func TestRewriteFooterIdentity(t *testing.T) {
	want := testutil.SampleTable(t, 50, true)
	data := rewriteFooter(t, encode(t, want, nil), func(*FileMetaData) {})
	got, err := Decode(data)
	require.NoError(t, err)
	testutil.RequireTablesEqual(t, want, got)
}

func TestDecodeRejectsCorruptFiles(t *testing.T) {
	valid := encode(t, testutil.SampleTable(t, 50, true), nil)

	mutate := func(fn func([]byte)) []byte {
		b := append([]byte{}, valid...)
		fn(b)
		return b
	}
	footer := func(fn func(*FileMetaData)) []byte {
		return rewriteFooter(t, valid, fn)
	}

	tests := map[string][]byte{
		"empty":              {},
		"too short":          []byte("PAR1PAR1"),
		"bad header magic":   mutate(func(b []byte) { b[0] = 'X' }),
		"bad footer magic":   mutate(func(b []byte) { b[len(b)-1] = 'X' }),
		"truncated":          valid[:len(valid)-1],
		"footer length huge": mutate(func(b []byte) { binary.LittleEndian.PutUint32(b[len(b)-8:], 1<<30) }),
		"footer garbage": mutate(func(b []byte) {
			n := binary.LittleEndian.Uint32(b[len(b)-8:])
			for i := len(b) - 8 - int(n); i < len(b)-8; i++ {
				b[i] = 0xff
			}
		}),
		"row count mismatch": footer(func(m *FileMetaData) { m.NumRows++ }),
		"root children": footer(func(m *FileMetaData) {
			n := int32(7)
			m.Schema[0].NumChildren = &n
		}),
		"chunk type mismatch": footer(func(m *FileMetaData) {
			m.RowGroups[0].Columns[0].MetaData.Type = Double
		}),
		"num values disagree": footer(func(m *FileMetaData) {
			m.RowGroups[0].Columns[1].MetaData.NumValues--
		}),
		"missing chunk": footer(func(m *FileMetaData) {
			m.RowGroups[0].Columns = m.RowGroups[0].Columns[:2]
		}),
		"path mismatch": footer(func(m *FileMetaData) {
			m.RowGroups[0].Columns[2].MetaData.Path = []string{"other"}
		}),
		"repeated column": footer(func(m *FileMetaData) {
			rep := Repeated
			m.Schema[1].Repetition = &rep
		}),
		"boolean column": footer(func(m *FileMetaData) {
			typ := Boolean
			m.Schema[1].Type = &typ
			m.RowGroups[0].Columns[0].MetaData.Type = Boolean
		}),
		"unsupported codec": footer(func(m *FileMetaData) {
			m.RowGroups[0].Columns[0].MetaData.Codec = Codec(5)
		}),
		"chunk out of range": footer(func(m *FileMetaData) {
			m.RowGroups[0].Columns[0].MetaData.TotalCompressedSize = 1 << 40
		}),
		"chunk too short": footer(func(m *FileMetaData) {
			m.RowGroups[0].Columns[0].MetaData.TotalCompressedSize = 3
		}),
		"data offset shifted": footer(func(m *FileMetaData) {
			md := m.RowGroups[0].Columns[0].MetaData
			md.DataPageOffset++
		}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			tbl, err := Decode(data)
			require.Error(t, err)
			assert.Nil(t, tbl)
			assert.True(t, errors.IsCode(err, errors.CodeParse), "got %v", err)
		})
	}
}

func TestDecodeRejectsCorruptPages(t *testing.T) {
	cfg := &WriterConfig{Codec: Uncompressed, DisableDictionary: true}

	strs := encode(t, testutil.MustTable(t,
		testutil.MustColumn(t, "s", columnar.String, "abc", "de")), cfg)
	at := bytes.Index(strs, []byte("abc"))
	require.Greater(t, at, 4)
	binary.LittleEndian.PutUint32(strs[at-4:], 200)

	levels := encode(t, testutil.MustTable(t,
		testutil.MustColumn(t, "n", columnar.Int64, int64(1), nil)), cfg)
	meta, _, err := DecodeMetadata(levels)
	require.NoError(t, err)
	md := meta.RowGroups[0].Columns[0].MetaData
	pr := newCompactReader(levels[md.DataPageOffset:])
	_, err = decodePageHeader(pr)
	require.NoError(t, err)
	// the page body opens with the definition level length prefix
	binary.LittleEndian.PutUint32(levels[md.DataPageOffset+int64(pr.pos):], 1000)

	for name, data := range map[string][]byte{"byte array overrun": strs, "level overrun": levels} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeParse), "got %v", err)
			row, col := errors.Location(err)
			assert.Equal(t, 0, col)
			assert.Equal(t, 0, row)
		})
	}
}
