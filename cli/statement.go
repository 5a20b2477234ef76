package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"leafdb"
)

type StatementType uint8

const (
	StatementInsert StatementType = iota
	StatementSelect
)

type Statement struct {
	Type StatementType
	Row  *leafdb.Row
	// ID is set when a select names one row.
	ID    uint32
	HasID bool
}

var (
	ErrNegativeID            = errors.New("negative id")
	ErrStringTooLong         = errors.New("string too long")
	ErrSyntax                = errors.New("syntax error")
	ErrUnrecognizedStatement = errors.New("unrecognized statement")
)

// prepareStatement turns one input line into a statement.
func prepareStatement(line string) (*Statement, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrUnrecognizedStatement
	}
	switch fields[0] {
	case "insert":
		return prepareInsert(fields)
	case "select":
		return prepareSelect(fields)
	}
	return nil, ErrUnrecognizedStatement
}

func prepareInsert(fields []string) (*Statement, error) {
	if len(fields) != 4 {
		return nil, ErrSyntax
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, ErrSyntax
	}
	if id < 0 {
		return nil, ErrNegativeID
	}
	if id > 1<<32-1 {
		return nil, ErrSyntax
	}
	row, err := leafdb.NewRow(uint32(id), fields[2], fields[3])
	if errors.Is(err, leafdb.ErrStringTooLong) {
		return nil, ErrStringTooLong
	} else if err != nil {
		return nil, err
	}
	return &Statement{Type: StatementInsert, Row: row}, nil
}

func prepareSelect(fields []string) (*Statement, error) {
	switch len(fields) {
	case 1:
		return &Statement{Type: StatementSelect}, nil
	case 2:
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || id > 1<<32-1 {
			return nil, ErrSyntax
		}
		if id < 0 {
			return nil, ErrNegativeID
		}
		return &Statement{Type: StatementSelect, ID: uint32(id), HasID: true}, nil
	}
	return nil, ErrSyntax
}
