// Package google implements the sheets.Exporter port on top of the Google
// Sheets API. Rows are keyed by transaction id in column A so updates and
// removals can locate their target after arbitrary interleavings.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	ports "carteira/internal/sheets"

	retry "github.com/avast/retry-go"
	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Sheet column layout: A=id, B=user, C=date, D=type, E=category, F=amount.
const rowSpan = "A%d:F%d"

const (
	retryAttempts = 3
	retryDelay    = 2 * time.Second
)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// OAuth client and token, inline JSON or a file path. Inline wins.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu      sync.Mutex
	sheetID int64
	gotID   bool
}

var _ ports.Exporter = (*Client)(nil)

// New creates a Sheets client authenticated with the configured OAuth
// client and a previously issued token (see cmd/oauth-init).
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	clientJSON, err := materialize(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	tokenJSON, err := materialize(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	oauthCfg, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client credentials: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(oauthCfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}, nil
}

// materialize returns inline JSON when present, otherwise reads the file.
func materialize(inline, file string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	if strings.TrimSpace(file) == "" {
		return nil, errors.New("neither inline JSON nor a file path configured")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return data, nil
}

// AppendRow appends the transaction below the existing rows and returns the
// updated range as the row reference.
func (c *Client) AppendRow(ctx context.Context, row ports.Row) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{rowValues(row)}}
	var ref string
	err := c.withRetry(func() error {
		resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName, vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return err
		}
		if resp.Updates != nil {
			ref = resp.Updates.UpdatedRange
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("append row %s: %w", row.ID, err)
	}
	return ref, nil
}

// UpdateRow rewrites the row holding row.ID in place.
func (c *Client) UpdateRow(ctx context.Context, row ports.Row) error {
	if err := row.Validate(); err != nil {
		return err
	}
	rowNum, err := c.findRow(ctx, row.ID)
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!"+rowSpan, c.sheetName, rowNum, rowNum)
	vr := &gsheet.ValueRange{Values: [][]any{rowValues(row)}}
	err = c.withRetry(func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("update row %s: %w", row.ID, err)
	}
	return nil
}

// RemoveRow deletes the row holding id via a DeleteDimension batch update,
// so later rows shift up instead of leaving a blank line.
func (c *Client) RemoveRow(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("missing transaction id")
	}
	rowNum, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowNum - 1),
					EndIndex:   int64(rowNum),
				},
			},
		}},
	}
	err = c.withRetry(func() error {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("remove row %s: %w", id, err)
	}
	return nil
}

// findRow scans the id column for the transaction and returns its 1-based
// row number.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	var values [][]any
	err := c.withRetry(func() error {
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return err
		}
		values = resp.Values
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan id column: %w", err)
	}
	idx := indexOfID(values, id)
	if idx < 0 {
		return 0, fmt.Errorf("transaction %s: %w", id, ports.ErrRowNotFound)
	}
	return idx + 1, nil
}

// resolveSheetID looks up the numeric sheet id for the configured tab name.
// The id is stable for the lifetime of the tab, so it is cached.
func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gotID {
		return c.sheetID, nil
	}

	var spreadsheet *gsheet.Spreadsheet
	err := c.withRetry(func() error {
		var err error
		spreadsheet, err = c.svc.Spreadsheets.Get(c.spreadsheetID).
			Fields("sheets.properties").Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("resolve sheet id: %w", err)
	}
	for _, sh := range spreadsheet.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			c.sheetID = sh.Properties.SheetId
			c.gotID = true
			return c.sheetID, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

// withRetry retries rate-limited calls a few times with a fixed delay;
// every other failure surfaces immediately.
func (c *Client) withRetry(fn func() error) error {
	return retry.Do(fn,
		retry.RetryIf(isRateLimited),
		retry.Attempts(retryAttempts),
		retry.Delay(retryDelay),
		retry.LastErrorOnly(true),
	)
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}

// rowValues maps a row onto the sheet column layout. The amount is written
// as a decimal string so USER_ENTERED parsing assigns a numeric cell without
// float drift.
func rowValues(r ports.Row) []any {
	return []any{r.ID, r.UserID, r.Date, r.Type, r.Category, centsToDecimal(r.AmountCents)}
}

func centsToDecimal(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// indexOfID returns the 0-based position of id in the id column, or -1.
func indexOfID(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}
