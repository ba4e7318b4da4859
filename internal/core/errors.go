package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("negative amount")
	ErrNoLedger         = errors.New("no spreadsheet linked")
	ErrInvalidReference = errors.New("not a spreadsheet reference")
	ErrAccessDenied     = errors.New("no edit access")
	ErrSheetNotFound    = errors.New("spreadsheet not found")
	ErrRateLimited      = errors.New("rate limited")
)

// Reasons a raw table fails the structural contract.
const (
	ReasonColumnCount   Reason = "wrong column count"
	ReasonHeader        Reason = "missing header row"
	ReasonBlankInMiddle Reason = "blank row in the middle"
	ReasonPartialRow    Reason = "partial row"
	ReasonBadDate       Reason = "date is not DD/MM/YYYY"
	ReasonBadAmount     Reason = "amount is not a non-negative number"
	ReasonDuplicateDate Reason = "duplicate date"
	ReasonOutOfOrder    Reason = "out of order"
)

type Reason string

// FormatError reports a table that violates the ledger contract. Row is the
// 1-based sheet row, so row 1 is the header.
type FormatError struct {
	Row    int
	Reason Reason
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ledger format: row %d: %s (%s)", e.Row, e.Reason, e.Detail)
	}
	return fmt.Sprintf("ledger format: row %d: %s", e.Row, e.Reason)
}

// AccessError reports a store that could not be reached, read or written.
type AccessError struct {
	Op  string
	Ref string
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("ledger access: %s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// DuplicateDateError is returned when appending a date the ledger already has.
type DuplicateDateError struct {
	Date Date
}

func (e *DuplicateDateError) Error() string {
	return fmt.Sprintf("duplicate date %s", e.Date)
}

// OutOfOrderError is returned when appending a date before the latest record.
type OutOfOrderError struct {
	Date   Date
	Latest Date
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("date %s is before latest record %s", e.Date, e.Latest)
}

// ParseError reports user input that is not a usable amount.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsPrecondition reports whether err is an append precondition failure.
func IsPrecondition(err error) bool {
	var dup *DuplicateDateError
	var ooo *OutOfOrderError
	return errors.As(err, &dup) || errors.As(err, &ooo)
}
