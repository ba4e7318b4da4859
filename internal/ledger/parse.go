package ledger

import (
	"fmt"

	"budgeter/internal/core"
)

// Parse converts a table that passed Verify into a Ledger. It does not
// re-validate: a table that fails Verify yields an unspecified ledger.
// Parsing stops at the first wholly blank row.
func Parse(t Table) core.Ledger {
	if len(t) == 0 {
		return core.NewLedger([2]string{}, nil)
	}
	header := [2]string{cell(t[0], 0), cell(t[0], 1)}
	records := make([]core.Record, 0, len(t)-1)
	for _, row := range t[1:] {
		dateCell, amountCell := cell(row, 0), cell(row, 1)
		if absent(dateCell) && absent(amountCell) {
			break
		}
		d, _ := core.ParseDate(dateCell)
		a, _ := core.ParseAmount(amountCell)
		records = append(records, core.Record{Date: d, Amount: a})
	}
	return core.NewLedger(header, records)
}

// Load verifies then parses.
func Load(t Table) (core.Ledger, error) {
	if err := Verify(t); err != nil {
		return core.Ledger{}, err
	}
	return Parse(t), nil
}

// EncodeRecord renders a record as the two store cells.
func EncodeRecord(r core.Record) []string {
	return []string{r.Date.String(), r.Amount.String()}
}

// Encode renders a whole ledger, header first, in store format.
func Encode(l core.Ledger) Table {
	h := l.Header()
	t := Table{{h[0], h[1]}}
	for _, r := range l.Records() {
		t = append(t, EncodeRecord(r))
	}
	return t
}

// NewRow builds the store row for appending a date and amount.
func NewRow(d core.Date, a core.Amount) ([]string, error) {
	if d.IsEmpty() {
		return nil, fmt.Errorf("encode row: %w", core.ErrInvalidDate)
	}
	if !a.Valid {
		return nil, fmt.Errorf("encode row: %w", core.ErrInvalidAmount)
	}
	return EncodeRecord(core.Record{Date: d, Amount: a}), nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
