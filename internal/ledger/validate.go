package ledger

import (
	"errors"
	"strconv"

	"budgeter/internal/core"
)

// Verify checks a raw table against the ledger contract and returns a
// *core.FormatError describing the first violated rule, or nil.
//
// The contract:
//   - zero rows is a valid, brand-new ledger;
//   - every row has at least two columns;
//   - row 1 holds two labels that are neither dates nor numbers;
//   - a wholly blank row ends the ledger and nothing may follow it;
//   - date and amount are both present or both absent;
//   - dates are DD/MM/YYYY, amounts are non-negative numbers;
//   - dates are unique and strictly ascending.
func Verify(t Table) error {
	if len(t) == 0 {
		return nil
	}
	for i, row := range t {
		if len(row) < 2 {
			return &core.FormatError{Row: i + 1, Reason: core.ReasonColumnCount}
		}
	}
	if err := verifyHeader(t[0]); err != nil {
		return err
	}

	var (
		blankSeen bool
		previous  core.Date
		seen      = make(map[string]int)
	)
	for i := 1; i < len(t); i++ {
		sheetRow := i + 1
		dateCell, amountCell := t[i][0], t[i][1]
		noDate, noAmount := absent(dateCell), absent(amountCell)

		if noDate && noAmount {
			blankSeen = true
			continue
		}
		if blankSeen {
			return &core.FormatError{Row: sheetRow, Reason: core.ReasonBlankInMiddle}
		}
		if noDate != noAmount {
			return &core.FormatError{Row: sheetRow, Reason: core.ReasonPartialRow}
		}
		d, err := core.ParseDate(dateCell)
		if err != nil {
			return &core.FormatError{Row: sheetRow, Reason: core.ReasonBadDate, Detail: dateCell}
		}
		if _, err := core.ParseAmount(amountCell); err != nil {
			return &core.FormatError{Row: sheetRow, Reason: core.ReasonBadAmount, Detail: amountCell}
		}
		if first, dup := seen[d.String()]; dup {
			return &core.FormatError{Row: sheetRow, Reason: core.ReasonDuplicateDate,
				Detail: d.String() + " also on row " + strconv.Itoa(first)}
		}
		if !previous.IsEmpty() && d.Compare(previous) < 0 {
			return &core.FormatError{Row: sheetRow, Reason: core.ReasonOutOfOrder,
				Detail: d.String() + " after " + previous.String()}
		}
		seen[d.String()] = sheetRow
		previous = d
	}
	return nil
}

// Valid is Verify in (ok, reason) form.
func Valid(t Table) (bool, string) {
	err := Verify(t)
	if err == nil {
		return true, ""
	}
	var fe *core.FormatError
	if errors.As(err, &fe) {
		return false, string(fe.Reason)
	}
	return false, err.Error()
}

// verifyHeader guards against a user deleting the header row: a label that
// reads as a date or a number means row 1 is data.
func verifyHeader(row []string) error {
	for _, cell := range row[:2] {
		if absent(cell) {
			return &core.FormatError{Row: 1, Reason: core.ReasonHeader, Detail: "empty label"}
		}
		if _, err := core.ParseDate(cell); err == nil {
			return &core.FormatError{Row: 1, Reason: core.ReasonHeader, Detail: cell}
		}
		if _, err := core.ParseAmount(cell); err == nil {
			return &core.FormatError{Row: 1, Reason: core.ReasonHeader, Detail: cell}
		}
	}
	return nil
}
