package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cashbook/internal/core"
	ports "cashbook/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors cash book entries into a single Google Sheet. Column A
// holds the entry ID; the remaining columns are a flat projection of the
// entry fields so the sheet stays readable by humans.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.EntryMirror = (*Client)(nil)

// Options carries the mirror settings resolved by the caller. Exactly one
// of CredentialsJSON or CredentialsFile must be set.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Entries"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials, inline JSON taking precedence over a credentials file.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte

	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		b, err := os.ReadFile(strings.TrimSpace(opts.CredentialsFile))
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// UpsertEntry writes the entry to its existing row when the ID is already
// present in column A, appending a new row otherwise.
func (c *Client) UpsertEntry(ctx context.Context, e core.Entry) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.findRow(ctx, e.ID)
	if err != nil {
		return err
	}

	vr := &gsheet.ValueRange{Values: [][]any{entryRow(e)}}

	if row == 0 {
		rng := fmt.Sprintf("%s!A:J", c.sheetName)
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append entry %s: %w", e.ID, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:J%d", c.sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update entry %s at row %d: %w", e.ID, row, err)
	}
	return nil
}

// DeleteEntry removes the entry's row from the sheet. A missing row is not
// an error so deletes stay idempotent across redelivered sync messages.
func (c *Client) DeleteEntry(ctx context.Context, entryID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := c.findRow(ctx, entryID)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row %d for entry %s: %w", row, entryID, err)
	}
	return nil
}

// findRow returns the 1-based row holding the entry ID in column A, or 0
// when the ID is not present.
func (c *Client) findRow(ctx context.Context, entryID string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read ID column of %s: %w", c.sheetName, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		id, ok := row[0].(string)
		if !ok {
			continue
		}
		if strings.TrimSpace(id) == entryID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// sheetID resolves the numeric sheet ID for the configured sheet name.
func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

func entryRow(e core.Entry) []any {
	return []any{
		e.ID,
		e.Date.String(),
		e.Time,
		e.Remarks,
		e.Category,
		string(e.Direction),
		e.Mode,
		e.Division,
		e.Details,
		e.Amount.String(),
	}
}
