// Package ledger validates and parses the raw two-column table backing a
// spending log.
//
// A Table is what a store returns: rows of cell strings with row 0 being
// the header. An empty (or whitespace-only) cell is absent.
package ledger

import (
	"fmt"
	"strings"
)

// Table is a rectangular list of rows of cell strings.
type Table [][]string

// FromValues converts a values matrix (as returned by the Sheets API) into a
// Table. Rows are padded with absent cells up to the widest row, since the
// API drops trailing empty cells.
func FromValues(values [][]interface{}) Table {
	width := 0
	for _, row := range values {
		if len(row) > width {
			width = len(row)
		}
	}
	t := make(Table, len(values))
	for i, row := range values {
		cells := make([]string, width)
		for j, v := range row {
			if v == nil {
				continue
			}
			cells[j] = strings.TrimSpace(fmt.Sprint(v))
		}
		t[i] = cells
	}
	return t
}

// Rows returns the number of rows including the header.
func (t Table) Rows() int {
	return len(t)
}

func absent(cell string) bool {
	return strings.TrimSpace(cell) == ""
}
