package core

import "github.com/shopspring/decimal"

// DefaultHeader is written to a brand-new sheet before its first record.
var DefaultHeader = [2]string{"Date", "Spend"}

type (
	// Record is one day's observation.
	Record struct {
		Date   Date
		Amount Amount
	}

	// Ledger is the ordered, immutable set of records read from a store.
	// Records are ascending by date with no duplicates.
	Ledger struct {
		header  [2]string
		records []Record
	}
)

// NewLedger builds a Ledger from records already in date order. The slice
// is copied so later changes by the caller do not leak in.
func NewLedger(header [2]string, records []Record) Ledger {
	out := make([]Record, len(records))
	copy(out, records)
	return Ledger{header: header, records: out}
}

// Header returns the two column labels.
func (l Ledger) Header() [2]string {
	return l.header
}

// Records returns a copy of the records in date order.
func (l Ledger) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l Ledger) Len() int {
	return len(l.records)
}

// Empty reports whether the ledger has no records.
func (l Ledger) Empty() bool {
	return len(l.records) == 0
}

// Last returns the most recent record.
func (l Ledger) Last() (Record, bool) {
	if len(l.records) == 0 {
		return Record{}, false
	}
	return l.records[len(l.records)-1], true
}

// MaxDate returns the date of the most recent record.
func (l Ledger) MaxDate() (Date, bool) {
	r, ok := l.Last()
	return r.Date, ok
}

// Contains reports whether a record exists for d.
func (l Ledger) Contains(d Date) bool {
	for _, r := range l.records {
		if r.Date.Equal(d) {
			return true
		}
	}
	return false
}

// Amounts returns the present amounts in date order, skipping placeholders.
func Amounts(records []Record) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(records))
	for _, r := range records {
		if r.Amount.Valid {
			out = append(out, r.Amount.Value)
		}
	}
	return out
}
