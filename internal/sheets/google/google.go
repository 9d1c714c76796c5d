package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *slog.Logger
}

// Ensure interface conformance
var _ ports.LedgerMirror = (*Client)(nil)

// Options configures the Sheets mirror. Exactly one of CredentialsJSON or
// CredentialsFile is required.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	Logger          *slog.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := newSheetsService(ctx, logger, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheet:         sheet,
		logger:        logger,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, logger *slog.Logger, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	var creds []byte
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.InfoContext(ctx, "Read credentials from file", "path", credentialsFile, "size", len(data))
		creds = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// EnsureHeader writes the header row when the first row of the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:F1", quoteSheet(c.sheet))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheet, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheet, err)
	}
	c.logger.InfoContext(ctx, "Wrote ledger header row", "sheet", c.sheet)
	return nil
}

// Upsert overwrites the row whose ID column matches t.ID, or appends one.
// Values are written RAW so descriptions are never evaluated as formulas.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) error {
	row, err := c.locate(ctx, t.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{rowValues(t)}}

	if row > 0 {
		rng := rowRange(c.sheet, row)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		c.logger.DebugContext(ctx, "Mirrored transaction updated", "transaction_id", t.ID, "range", rng)
		return nil
	}

	rng := fmt.Sprintf("%s!A:F", quoteSheet(c.sheet))
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Mirrored transaction appended", "transaction_id", t.ID, "range", ref)
	return nil
}

// Remove clears the row for id. The row itself stays so later row numbers
// do not shift under concurrent writers.
func (c *Client) Remove(ctx context.Context, id int64) error {
	row, err := c.locate(ctx, id)
	if err != nil {
		return err
	}
	if row == 0 {
		c.logger.DebugContext(ctx, "Transaction not mirrored, nothing to remove", "transaction_id", id)
		return nil
	}

	rng := rowRange(c.sheet, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	c.logger.DebugContext(ctx, "Mirrored transaction removed", "transaction_id", id, "range", rng)
	return nil
}

func (c *Client) locate(ctx context.Context, id int64) (int, error) {
	rng := fmt.Sprintf("%s!A:A", quoteSheet(c.sheet))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	return findRow(resp.Values, id), nil
}
