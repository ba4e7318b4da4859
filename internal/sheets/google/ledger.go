package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/avast/retry-go"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	gsheet "google.golang.org/api/sheets/v4"

	"budgeter/internal/core"
	"budgeter/internal/ledger"
	"budgeter/internal/log"
	ports "budgeter/internal/sheets"
)

// ReadAllRows reads columns A:B of the ledger tab. Reads are retried on
// rate limiting and server errors.
func (c *Client) ReadAllRows(ctx context.Context, ref string) (ledger.Table, error) {
	id, err := ports.SpreadsheetID(ref)
	if err != nil {
		return nil, err
	}
	rng := c.ledgerRange()

	var resp *gsheet.ValueRange
	err = c.do(ctx, log.OpRead, id, retryableRead, func() error {
		var err error
		resp, err = c.sheets.Spreadsheets.Values.Get(id, rng).
			ValueRenderOption("FORMATTED_VALUE").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		c.logger.LogError(ctx, "read ledger failed", err, log.OpRead,
			log.NewFields().WithLedger(id, 0))
		return nil, classify(log.OpRead, id, err)
	}
	t := ledger.FromValues(resp.Values)
	c.logger.DebugContext(ctx, "read ledger", log.NewFields().WithLedger(id, t.Rows()).ToSlice()...)
	return t, nil
}

// AppendRow appends one row after the table's last non-blank row. Only
// rate-limit rejections are retried: any other failure may have happened
// after the write landed.
func (c *Client) AppendRow(ctx context.Context, ref string, row []string) error {
	id, err := ports.SpreadsheetID(ref)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{values}}
	rng := c.ledgerRange()

	err = c.do(ctx, log.OpAppend, id, retryableAppend, func() error {
		_, err := c.sheets.Spreadsheets.Values.Append(id, rng, vr).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		c.logger.LogError(ctx, "append row failed", err, log.OpAppend,
			log.NewFields().WithLedger(id, 0))
		return classify(log.OpAppend, id, err)
	}
	c.logger.InfoContext(ctx, "appended row",
		log.NewFields().WithOperation(log.OpAppend).WithRecord(cellAt(row, 0), cellAt(row, 1)).
			WithLedger(id, 1).ToSlice()...)
	return nil
}

// CheckAccess asks Drive whether the service account can edit the file.
// Positive answers are cached; denials are not, so a user who just
// shared the sheet can retry straight away.
func (c *Client) CheckAccess(ctx context.Context, ref string) error {
	id, err := ports.SpreadsheetID(ref)
	if err != nil {
		return err
	}
	if ok, hit := c.accessCache.Get(id); hit && ok {
		return nil
	}

	var file *gdrive.File
	err = c.do(ctx, log.OpCheck, id, retryableRead, func() error {
		var err error
		file, err = c.drive.Files.Get(id).
			Fields("capabilities/canEdit").
			SupportsAllDrives(true).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return classify(log.OpCheck, id, err)
	}
	if file.Capabilities == nil || !file.Capabilities.CanEdit {
		c.logger.WarnContext(ctx, "spreadsheet not editable", log.FieldSpreadsheetID, id)
		return &core.AccessError{Op: log.OpCheck, Ref: id, Err: core.ErrAccessDenied}
	}
	c.accessCache.Set(id, true)
	return nil
}

func (c *Client) ledgerRange() string {
	if c.sheetName == "" {
		return "A:B"
	}
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'!A:B"
}

func (c *Client) do(ctx context.Context, op, id string, retryIf func(error) bool, fn func() error) error {
	return retry.Do(fn,
		retry.RetryIf(retryIf),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "Google API call failed, retrying",
				log.FieldOperation, op, log.FieldSpreadsheetID, id,
				log.FieldAttempt, n+1, log.FieldError, err)
		}),
	)
}

func retryableRead(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
}

func retryableAppend(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}

// classify turns an API or transport failure into a *core.AccessError,
// tagging the common cases with a core sentinel.
func classify(op, id string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			err = fmt.Errorf("%w: %v", core.ErrAccessDenied, apiErr)
		case http.StatusNotFound:
			err = fmt.Errorf("%w: %v", core.ErrSheetNotFound, apiErr)
		case http.StatusTooManyRequests:
			err = fmt.Errorf("%w: %v", core.ErrRateLimited, apiErr)
		}
	}
	return &core.AccessError{Op: op, Ref: id, Err: err}
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
