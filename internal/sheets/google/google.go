package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

var _ ports.TransactionExporter = (*Client)(nil)

// Header is the first row of the export sheet. Column A holds the
// transaction id and is the lookup key.
var Header = []any{"ID", "User", "Date", "Type", "Category", "Description", "Amount", "Created"}

const (
	lastColumn  = "H"
	rowCacheTTL = 10 * time.Minute
)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// Inline service account JSON, preferred over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

// Client mirrors transactions into a single sheet. Row numbers of known ids
// are cached; cleared rows keep their position so cached numbers stay valid.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	rows          *cache.LRUCache[int]
	logger        *log.Logger
}

// New creates a Sheets client authenticated with service account
// credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Client {
	if sheetName == "" {
		sheetName = "Transactions"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rows:          cache.NewLRUCache[int](5000, rowCacheTTL),
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// RowCache exposes the id to row cache for the janitor.
func (c *Client) RowCache() cache.Cleaner { return c.rows }

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// EnsureHeader writes the header row when the first row is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:%s1", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{Header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	c.logger.InfoContext(ctx, "Wrote sheet header", "sheet", c.sheetName)
	return nil
}

func (c *Client) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction has no id")
	}
	row, found, err := c.findRow(ctx, tx.ID)
	if err != nil {
		return err
	}
	values := &gsheet.ValueRange{Values: [][]any{transactionRow(tx)}}

	if found {
		rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
			ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		c.logger.DebugContext(ctx, "Updated sheet row", log.FieldTransactionID, tx.ID, "row", row)
		return nil
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, values).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	if resp.Updates != nil {
		if n, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			c.rows.Set(tx.ID, n)
		}
	}
	c.logger.DebugContext(ctx, "Appended sheet row", log.FieldTransactionID, tx.ID)
	return nil
}

func (c *Client) RemoveTransaction(ctx context.Context, transactionID string) error {
	row, found, err := c.findRow(ctx, transactionID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	c.rows.Delete(transactionID)
	c.logger.DebugContext(ctx, "Cleared sheet row", log.FieldTransactionID, transactionID, "row", row)
	return nil
}

// findRow returns the 1-based row holding id, scanning column A on a cache
// miss. Every id seen during the scan is cached.
func (c *Client) findRow(ctx context.Context, id string) (int, bool, error) {
	if row, ok := c.rows.Get(id); ok {
		return row, true, nil
	}
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read %s: %w", rng, err)
	}
	found := 0
	for i, r := range resp.Values {
		if i == 0 || len(r) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(r[0]))
		if v == "" {
			continue
		}
		c.rows.Set(v, i+1)
		if v == id {
			found = i + 1
		}
	}
	return found, found > 0, nil
}

func transactionRow(tx core.Transaction) []any {
	created := ""
	if !tx.CreatedAt.IsZero() {
		created = tx.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []any{
		tx.ID,
		tx.UserID,
		tx.Date.String(),
		tx.Kind.String(),
		tx.Category,
		tx.Description,
		tx.Amount.String(),
		created,
	}
}

// rowFromRange extracts the first row number from an A1 range such as
// "Transactions!A12:H12".
func rowFromRange(rng string) (int, bool) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeftFunc(rng, func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
