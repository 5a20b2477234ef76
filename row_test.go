package leafdb

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	assertion "github.com/stretchr/testify/assert"
)

func TestRowLayout(t *testing.T) {
	assert := assertion.New(t)
	assert.Equal(291, RowSize)

	row := mustRow(t, 0x01020304, "alice", "a@x.com")
	buf := row.Marshal()
	assert.Len(buf, RowSize)
	assert.Equal([]byte{0x04, 0x03, 0x02, 0x01}, buf[:4])
	assert.Equal("alice", string(buf[4:9]))
	assert.Equal(byte(0), buf[9])
	assert.Equal("a@x.com", string(buf[36:43]))
	assert.Equal(byte(0), buf[RowSize-1])
}

func TestRowSerde(t *testing.T) {
	assert := assertion.New(t)
	rows := []*Row{
		mustRow(t, 0, "", ""),
		mustRow(t, 5, "alice", "a@x.com"),
		mustRow(t, 1<<32-1, strings.Repeat("u", UsernameSize), strings.Repeat("e", EmailSize)),
	}
	for _, row := range rows {
		got := &Row{}
		assert.NoError(got.Unmarshal(row.Marshal()))
		assert.Equal(row, got)
		assert.Equal(row.UsernameString(), got.UsernameString())
		assert.Equal(row.EmailString(), got.EmailString())
	}
}

func TestRowEmbeddedZeroPreserved(t *testing.T) {
	assert := assertion.New(t)
	row := &Row{ID: 1}
	copy(row.Username[:], "ab\x00cd")
	got := &Row{}
	assert.NoError(got.Unmarshal(row.Marshal()))
	assert.Equal(row.Username, got.Username)
	assert.Equal("ab\x00cd", got.UsernameString())
}

func TestNewRowTooLong(t *testing.T) {
	assert := assertion.New(t)
	_, err := NewRow(1, strings.Repeat("u", UsernameSize+1), "a@x.com")
	assert.True(errors.Is(err, ErrStringTooLong))
	_, err = NewRow(1, "bob", strings.Repeat("e", EmailSize+1))
	assert.True(errors.Is(err, ErrStringTooLong))
}

func TestRowMarshalToWrongSize(t *testing.T) {
	assert := assertion.New(t)
	row := mustRow(t, 1, "bob", "b@x.com")
	assert.Panics(func() { row.MarshalTo(make([]byte, RowSize-1)) })
	assert.Error((&Row{}).Unmarshal(nil))
	assert.Error((&Row{}).Unmarshal(make([]byte, RowSize+1)))
}

func TestRowString(t *testing.T) {
	assert := assertion.New(t)
	assert.Equal("(5, alice, a@x.com)", mustRow(t, 5, "alice", "a@x.com").String())
}
