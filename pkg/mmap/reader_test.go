package mmap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cpandas/pkg/errors"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReaderBytes(t *testing.T) {
	data := bytes.Repeat([]byte("PAR1 columnar "), 1000)
	r, err := Open(writeFile(t, data))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(len(data)), r.Size())
	assert.Equal(t, data, r.Bytes())
	assert.Equal(t, int64(len(data)), r.BytesRead())
}

func TestReadRange(t *testing.T) {
	r, err := Open(writeFile(t, []byte("0123456789")))
	require.NoError(t, err)
	defer r.Close()

	b, err := r.ReadRange(6, 4)
	require.NoError(t, err)
	assert.Equal(t, "6789", string(b))

	b, err = r.ReadRange(8, 100)
	require.NoError(t, err)
	assert.Equal(t, "89", string(b))

	b, err = r.ReadRange(10, 1)
	require.NoError(t, err)
	assert.Empty(t, b)

	_, err = r.ReadRange(11, 1)
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))
	_, err = r.ReadRange(-1, 1)
	assert.True(t, errors.IsCode(err, errors.CodeInvalid))
}

func TestEmptyFile(t *testing.T) {
	r, err := Open(writeFile(t, nil))
	require.NoError(t, err)
	assert.Empty(t, r.Bytes())
	assert.False(t, r.Mapped())
	require.NoError(t, r.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.IsCode(err, errors.CodeIO))
}

func TestCloseTwice(t *testing.T) {
	r, err := Open(writeFile(t, []byte("x")))
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}
