package ledger

import (
	"errors"
	"fmt"
	"testing"

	"budgeter/internal/core"
)

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		table  Table
		reason core.Reason // empty means valid
		row    int
	}{
		{
			name:  "no data",
			table: Table{},
		},
		{
			name:  "only headers",
			table: Table{{"Date", "Spend"}},
		},
		{
			name: "valid",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "10.00"},
				{"02/01/2021", "20"},
			},
		},
		{
			name: "currency amounts and trailing blank rows",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "£10.00"},
				{"02/01/2021", "£20.00"},
				{"", ""},
				{"", ""},
			},
		},
		{
			name: "grouped thousands with pence",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "£1,200.00"},
			},
		},
		{
			name: "ambiguous thousands without pence",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "£1,200.00"},
				{"02/01/2021", "£1,200"},
			},
			reason: core.ReasonBadAmount,
			row:    3,
		},
		{
			name: "extra columns are ignored",
			table: Table{
				{"Date", "Spend", "Category"},
				{"01/01/2021", "£10.00", "Food"},
			},
		},
		{
			name: "no headers",
			table: Table{
				{"01/01/2021", "£10.00"},
				{"02/01/2021", "£20.00"},
			},
			reason: core.ReasonHeader,
			row:    1,
		},
		{
			name: "numeric header",
			table: Table{
				{"Date", "100"},
			},
			reason: core.ReasonHeader,
			row:    1,
		},
		{
			name: "empty header label",
			table: Table{
				{"Date", ""},
				{"01/01/2021", "1"},
			},
			reason: core.ReasonHeader,
			row:    1,
		},
		{
			name: "not enough columns",
			table: Table{
				{"Date"},
				{"01/01/2021"},
				{"02/01/2021"},
			},
			reason: core.ReasonColumnCount,
			row:    1,
		},
		{
			name: "bad date",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "£10.00"},
				{"not a date", "£30.00"},
				{"04/01/2021", "£40.00"},
			},
			reason: core.ReasonBadDate,
			row:    3,
		},
		{
			name: "missing date",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "£10.00"},
				{"", "£20.00"},
				{"", "£30.00"},
				{"04/01/2021", "£40.00"},
			},
			reason: core.ReasonPartialRow,
			row:    3,
		},
		{
			name: "missing spend",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "£10.00"},
				{"02/01/2021", ""},
				{"03/01/2021", ""},
				{"04/01/2021", "£40.00"},
			},
			reason: core.ReasonPartialRow,
			row:    3,
		},
		{
			name: "bad spend",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "£10.00"},
				{"03/01/2021", "not a number"},
				{"04/01/2021", "£40.00"},
			},
			reason: core.ReasonBadAmount,
			row:    3,
		},
		{
			name: "negative spend",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "-4"},
			},
			reason: core.ReasonBadAmount,
			row:    2,
		},
		{
			name: "missing row",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "£10.00"},
				{"", ""},
				{"  ", ""},
				{"04/01/2021", "£40.00"},
			},
			reason: core.ReasonBlankInMiddle,
			row:    5,
		},
		{
			name: "duplicate date",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "1"},
				{"02/01/2021", "2"},
				{"02/01/2021", "3"},
			},
			reason: core.ReasonDuplicateDate,
			row:    4,
		},
		{
			name: "out of order",
			table: Table{
				{"Date", "Spend"},
				{"02/01/2021", "1"},
				{"01/01/2021", "2"},
			},
			reason: core.ReasonOutOfOrder,
			row:    3,
		},
		{
			name: "blank row beats later partial row",
			table: Table{
				{"Date", "Spend"},
				{"01/01/2021", "1"},
				{"", ""},
				{"03/01/2021", ""},
			},
			reason: core.ReasonBlankInMiddle,
			row:    4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.table)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var fe *core.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *core.FormatError, got %v", err)
			}
			if fe.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", fe.Reason, tt.reason)
			}
			if fe.Row != tt.row {
				t.Errorf("row = %d, want %d", fe.Row, tt.row)
			}
		})
	}
}

func TestValid(t *testing.T) {
	ok, reason := Valid(Table{{"Date", "Spend"}, {"01/01/2021", ""}})
	if ok || reason != string(core.ReasonPartialRow) {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
	ok, reason = Valid(Table{})
	if !ok || reason != "" {
		t.Fatalf("empty table should be valid, got ok=%v reason=%q", ok, reason)
	}
}

// Any row with exactly one absent cell is rejected as partial, wherever it is.
func TestVerify_PartialRowAnywhere(t *testing.T) {
	for n := 1; n <= 6; n++ {
		for _, dropDate := range []bool{true, false} {
			table := dailyTable(6)
			if dropDate {
				table[n][0] = ""
			} else {
				table[n][1] = ""
			}
			var fe *core.FormatError
			if err := Verify(table); !errors.As(err, &fe) || fe.Reason != core.ReasonPartialRow {
				t.Fatalf("row %d dropDate=%v: got %v", n, dropDate, err)
			}
		}
	}
}

// Any two rows sharing a date are rejected as duplicates.
func TestVerify_DuplicateAnywhere(t *testing.T) {
	for i := 1; i <= 5; i++ {
		for j := i + 1; j <= 5; j++ {
			table := dailyTable(5)
			table[j][0] = table[i][0]
			// Keep earlier rows ascending so only the duplicate rule can fire.
			for k := i + 1; k < j; k++ {
				table[k][0] = table[i][0]
			}
			var fe *core.FormatError
			if err := Verify(table); !errors.As(err, &fe) || fe.Reason != core.ReasonDuplicateDate {
				t.Fatalf("rows %d,%d: got %v", i, j, err)
			}
		}
	}
}

func TestFromValues(t *testing.T) {
	values := [][]interface{}{
		{"Date", "Spend"},
		{"01/01/2021", 12.5},
		{"02/01/2021"},
		{},
	}
	table := FromValues(values)
	if len(table) != 4 {
		t.Fatalf("rows = %d", len(table))
	}
	for i, row := range table {
		if len(row) != 2 {
			t.Fatalf("row %d width = %d, want 2", i, len(row))
		}
	}
	if table[1][1] != "12.5" {
		t.Fatalf("numeric cell = %q", table[1][1])
	}
	if table[2][1] != "" {
		t.Fatalf("padded cell = %q", table[2][1])
	}

	// A sheet with only column A stays one column wide.
	narrow := FromValues([][]interface{}{{"Date"}, {"01/01/2021"}})
	if ok, reason := Valid(narrow); ok || reason != string(core.ReasonColumnCount) {
		t.Fatalf("narrow table: ok=%v reason=%q", ok, reason)
	}
}

func dailyTable(n int) Table {
	t := Table{{"Date", "Spend"}}
	start := core.NewDate(2021, 1, 1)
	for i := 0; i < n; i++ {
		t = append(t, []string{start.AddDays(i).String(), fmt.Sprintf("%d.00", i+1)})
	}
	return t
}
