package sheets

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"budgeter/internal/core"
	"budgeter/internal/ledger"
)

// Ports for outbound adapters.
type (
	// LedgerReader returns every row of the ledger sheet, header first.
	LedgerReader interface {
		ReadAllRows(ctx context.Context, ref string) (ledger.Table, error)
	}

	// LedgerAppender writes one row after the last non-blank row.
	LedgerAppender interface {
		AppendRow(ctx context.Context, ref string, row []string) error
	}

	// AccessChecker reports whether the configured credential may edit the
	// referenced spreadsheet. A denied check returns a *core.AccessError.
	AccessChecker interface {
		CheckAccess(ctx context.Context, ref string) error
	}

	// LedgerStore is the full remote store a gateway works against.
	LedgerStore interface {
		LedgerReader
		LedgerAppender
		AccessChecker
	}
)

var (
	urlID  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	bareID = regexp.MustCompile(`^[a-zA-Z0-9_-]{20,}$`)
)

// SpreadsheetID extracts the spreadsheet ID from a Google Sheets URL or
// accepts a bare ID.
func SpreadsheetID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if m := urlID.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	if bareID.MatchString(ref) {
		return ref, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidReference, ref)
}
