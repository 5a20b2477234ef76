package leafdb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

const (
	IDSize       = 4
	UsernameSize = 32
	EmailSize    = 255

	idOffset       = 0
	usernameOffset = idOffset + IDSize
	emailOffset    = usernameOffset + UsernameSize

	// RowSize = id + username + email = 4 + 32 + 255 = 291
	RowSize = IDSize + UsernameSize + EmailSize
)

// Row is the fixed-layout record stored in each leaf cell. ID is the key.
type Row struct {
	ID       uint32
	Username [UsernameSize]byte
	Email    [EmailSize]byte
}

// NewRow builds a row, rejecting fields wider than their fixed size.
func NewRow(id uint32, username, email string) (*Row, error) {
	if len(username) > UsernameSize {
		return nil, errors.Wrapf(ErrStringTooLong, "username is %d bytes, max %d", len(username), UsernameSize)
	}
	if len(email) > EmailSize {
		return nil, errors.Wrapf(ErrStringTooLong, "email is %d bytes, max %d", len(email), EmailSize)
	}
	row := &Row{ID: id}
	copy(row.Username[:], username)
	copy(row.Email[:], email)
	return row, nil
}

// MarshalTo encodes the row into dst, which must be exactly RowSize bytes.
func (r *Row) MarshalTo(dst []byte) {
	if len(dst) != RowSize {
		panic(fmt.Sprintf("leafdb: row destination is %d bytes, want %d", len(dst), RowSize))
	}
	binary.LittleEndian.PutUint32(dst[idOffset:], r.ID)
	copy(dst[usernameOffset:emailOffset], r.Username[:])
	copy(dst[emailOffset:RowSize], r.Email[:])
}

func (r *Row) Marshal() []byte {
	buf := make([]byte, RowSize)
	r.MarshalTo(buf)
	return buf
}

func (r *Row) Unmarshal(data []byte) error {
	if data == nil {
		return errors.New("empty row data")
	}
	if len(data) != RowSize {
		return errors.Errorf("row data is %d bytes, want %d", len(data), RowSize)
	}
	r.ID = binary.LittleEndian.Uint32(data[idOffset:])
	copy(r.Username[:], data[usernameOffset:emailOffset])
	copy(r.Email[:], data[emailOffset:RowSize])
	return nil
}

func (r *Row) UsernameString() string { return trimPadding(r.Username[:]) }
func (r *Row) EmailString() string    { return trimPadding(r.Email[:]) }

func (r *Row) String() string {
	return fmt.Sprintf("(%d, %s, %s)", r.ID, r.UsernameString(), r.EmailString())
}

func trimPadding(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}
