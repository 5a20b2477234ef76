package leafdb

import "github.com/pkg/errors"

var (
	// bounds
	ErrPageOutOfBounds = errors.New("page number out of bounds")
	ErrCellOutOfBounds = errors.New("cell number out of bounds")

	// corruption
	ErrCorruptFile      = errors.New("db file is corrupt")
	ErrBadSnapshot      = errors.New("invalid snapshot")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	ErrDecompressLimit  = errors.New("decompressed data exceeds limit")

	// capacity
	ErrTableFull = errors.New("table full")
	ErrNodeFull  = errors.New("leaf node full, splitting is not implemented")

	ErrDuplicateKey = errors.New("duplicate key")
	ErrKeyNotFound  = errors.New("key not found")

	// internal node routing and node splitting are not supported
	ErrUnimplemented = errors.New("not implemented")

	ErrPageNotLoaded = errors.New("tried to flush a page that was never loaded")
	ErrCursorActive  = errors.New("another cursor is open on the table")
	ErrReadOnly      = errors.New("db opened in read-only mode")
	ErrClosed        = errors.New("db closed")
	ErrStringTooLong = errors.New("string is too long")
	ErrFileExists    = errors.New("target db file is not empty")
	ErrLockedByOther = errors.New("db opened with write mode by another process")
)

// ExecuteResult is the outcome of a statement as seen by callers that branch
// on it rather than on the error value.
type ExecuteResult uint8

const (
	ExecuteSuccess ExecuteResult = iota
	ExecuteTableFull
	ExecuteDuplicateKey
	ExecuteFailed
)

func (r ExecuteResult) String() string {
	switch r {
	case ExecuteSuccess:
		return "success"
	case ExecuteTableFull:
		return "table full"
	case ExecuteDuplicateKey:
		return "duplicate key"
	default:
		return "failed"
	}
}

// Result maps an error returned by Table.Insert or Table.ScanAll to an
// ExecuteResult.
func Result(err error) ExecuteResult {
	switch {
	case err == nil:
		return ExecuteSuccess
	case errors.Is(err, ErrTableFull):
		return ExecuteTableFull
	case errors.Is(err, ErrDuplicateKey):
		return ExecuteDuplicateKey
	default:
		return ExecuteFailed
	}
}
