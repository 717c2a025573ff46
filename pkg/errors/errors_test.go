package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"plain", New(CodeInvalid, "bad"), "invalid: bad"},
		{"row only", New(CodeInvalid, "bad").WithRow(2), "invalid: bad (row 2)"},
		{"column only", New(CodeInvalid, "bad").WithColumn(4), "invalid: bad (column 4)"},
		{"column name", New(CodeInvalid, "bad").WithColumnName("x"), `invalid: bad (column "x")`},
		{"both", New(CodeParse, "bad").At(1, 0).WithColumnName("x"), `parse_error: bad (row 1, column 0 "x")`},
		{"cause", Wrap(io.EOF, CodeIO, "read"), "io_error: read: EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrapCarriesCoordinates(t *testing.T) {
	inner := New(CodeParse, "inner").At(7, 2)
	outer := Wrap(fmt.Errorf("context: %w", inner), CodeParse, "outer")

	require.NotNil(t, outer)
	assert.Equal(t, 7, outer.Row)
	assert.Equal(t, 2, outer.Column)
	assert.Equal(t, inner.Stack, outer.Stack)

	row, col := Location(outer)
	assert.Equal(t, 7, row)
	assert.Equal(t, 2, col)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeIO, "x"))
	assert.Nil(t, Wrapf(nil, CodeIO, "x %d", 1))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeOK, CodeOf(nil))
	assert.Equal(t, CodeInvalid, CodeOf(io.EOF))
	assert.Equal(t, CodeOutOfMemory, CodeOf(New(CodeOutOfMemory, "x")))
	assert.True(t, IsCode(fmt.Errorf("wrapped: %w", New(CodeParse, "x")), CodeParse))

	row, col := Location(io.EOF)
	assert.Equal(t, Unknown, row)
	assert.Equal(t, Unknown, col)
}

func TestWithDetail(t *testing.T) {
	err := New(CodeIO, "open").WithDetail("path", "a.cpd").WithDetail("attempt", 1)
	assert.Equal(t, "a.cpd", err.Details["path"])
	assert.Equal(t, 1, err.Details["attempt"])
	assert.NotEmpty(t, err.Stack)
}
