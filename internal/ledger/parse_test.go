package ledger

import (
	"errors"
	"reflect"
	"testing"

	"budgeter/internal/core"
)

func TestParse(t *testing.T) {
	table := Table{
		{"Date", "Spend"},
		{"01/01/2021", "£10.00"},
		{"02/01/2021", "20"},
		{"03/01/2021", "0"},
		{"", ""},
	}
	l, err := Load(table)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := l.Header(); got != [2]string{"Date", "Spend"} {
		t.Fatalf("header = %v", got)
	}
	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}
	last, _ := l.Last()
	if !last.Date.Equal(core.NewDate(2021, 1, 3)) {
		t.Fatalf("last date = %s", last.Date)
	}
	if last.Amount.IsMissing() || !last.Amount.Value.IsZero() {
		t.Fatalf("zero spend should be present, got %v", last.Amount)
	}
	first := l.Records()[0]
	if first.Amount.String() != "10.00" {
		t.Fatalf("first amount = %q", first.Amount.String())
	}
}

func TestLoad_Empty(t *testing.T) {
	l, err := Load(Table{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !l.Empty() {
		t.Fatalf("expected empty ledger")
	}

	l, err = Load(Table{{"Date", "Spend"}})
	if err != nil {
		t.Fatalf("load header only: %v", err)
	}
	if !l.Empty() || l.Header()[1] != "Spend" {
		t.Fatalf("header-only ledger = %v / %d", l.Header(), l.Len())
	}
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(Table{{"Date", "Spend"}, {"01/01/2021", ""}})
	var fe *core.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected format error, got %v", err)
	}
}

// Every table that verifies parses into records with present dates and amounts.
func TestParse_ValidTablesHaveNoMissing(t *testing.T) {
	tables := []Table{
		dailyTable(1),
		dailyTable(10),
		append(dailyTable(4), []string{"", ""}, []string{" ", ""}),
		{{"When", "How much"}, {"29/02/2024", "1,5"}, {"01/03/2024", "$3"}},
	}
	for i, table := range tables {
		if err := Verify(table); err != nil {
			t.Fatalf("table %d: %v", i, err)
		}
		for _, r := range Parse(table).Records() {
			if r.Date.IsEmpty() || r.Amount.IsMissing() {
				t.Fatalf("table %d: incomplete record %+v", i, r)
			}
		}
	}
}

// Encoding a parsed ledger and parsing it again gives the same ledger.
func TestEncode_RoundTrip(t *testing.T) {
	table := Table{
		{"Date", "Spend"},
		{"31/12/2020", "0.5"},
		{"01/01/2021", "10.00"},
		{"02/01/2021", "1234.567"},
		{"05/01/2021", "7"},
	}
	l := Parse(table)
	encoded := Encode(l)
	if !reflect.DeepEqual(encoded, table) {
		t.Fatalf("encode = %v, want %v", encoded, table)
	}
	if err := Verify(encoded); err != nil {
		t.Fatalf("encoded table invalid: %v", err)
	}
	again := Parse(encoded)
	if !reflect.DeepEqual(Encode(again), encoded) {
		t.Fatalf("second round trip differs")
	}
}

func TestNewRow(t *testing.T) {
	a, err := core.ParseAmount("12.3")
	if err != nil {
		t.Fatal(err)
	}
	row, err := NewRow(core.NewDate(2021, 3, 4), a)
	if err != nil {
		t.Fatalf("new row: %v", err)
	}
	if !reflect.DeepEqual(row, []string{"04/03/2021", "12.3"}) {
		t.Fatalf("row = %v", row)
	}

	if _, err := NewRow(core.Date{}, a); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("empty date: %v", err)
	}
	if _, err := NewRow(core.NewDate(2021, 3, 4), core.Amount{}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("missing amount: %v", err)
	}
}
