package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

const defaultCacheValidDuration = 5 * time.Minute

// Config locates the spreadsheet and the OAuth material minted by
// cmd/oauth-init. Inline JSON wins over the file when both are set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	// writeMu makes choosing a row and writing it one step, so concurrent
	// upserts never claim the same free row.
	writeMu sync.Mutex

	mu                 sync.Mutex
	rows               map[string]int // transaction id -> 1-based row
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// Ensure interface conformance
var _ ports.TransactionMirror = (*Client)(nil)

// jsonUnmarshal is swapped in tests.
var jsonUnmarshal = json.Unmarshal

func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheet:              sheet,
		cacheValidDuration: defaultCacheValidDuration,
	}, nil
}

// newSheetsService builds a Sheets service from an installed-app OAuth client
// and a stored token. The token refreshes itself through the client.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	clientJSON, err := readSecret(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	if len(clientJSON) == 0 {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}

	tokenJSON, err := readSecret(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	if len(tokenJSON) == 0 {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}

	oauthCfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var tok oauth2.Token
	if err := jsonUnmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	// Token refreshes go through the pooled client as well.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauthCfg.Client(ctx, &tok)

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "scope", gsheet.SpreadsheetsScope)
	return service, nil
}

func readSecret(inline, path string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// newHTTPClientWithPooling creates an HTTP client optimized for Google Sheets API
// with connection pooling, proper timeouts, and keep-alive settings
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// Upsert writes the transaction to its existing row or to the first row after
// the table. The header is written when the sheet is empty.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("transaction id is required")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	row, found, err := c.locate(ctx, t.ID)
	if err != nil {
		return "", err
	}
	if row == 1 {
		if err := c.writeRow(ctx, 1, headerValues()); err != nil {
			return "", fmt.Errorf("write header in sheet %s: %w", c.sheet, err)
		}
		row = 2
	}

	if err := c.writeRow(ctx, row, rowValues(t)); err != nil {
		c.InvalidateRowCache()
		return "", fmt.Errorf("write row %d in sheet %s: %w", row, c.sheet, err)
	}
	if !found {
		c.remember(t.ID, row)
	}
	return c.rowRange(row), nil
}

// Delete clears the transaction's row. Rows are never shifted so other
// cached positions stay valid.
func (c *Client) Delete(ctx context.Context, transactionID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	row, found, err := c.locate(ctx, transactionID)
	if err != nil {
		return err
	}
	if !found {
		slog.DebugContext(ctx, "No mirror row to clear", "transaction_id", transactionID)
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rowRange(row), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row %d in sheet %s: %w", row, c.sheet, err)
	}

	c.mu.Lock()
	delete(c.rows, transactionID)
	c.mu.Unlock()
	return nil
}

// locate returns the row holding id, or the next free row when absent. A
// return of row 1 means the sheet has no header yet.
func (c *Client) locate(ctx context.Context, id string) (int, bool, error) {
	c.mu.Lock()
	if time.Now().Before(c.cacheExpiresAt) {
		row, ok := c.rows[id]
		if !ok {
			row = c.cachedRowCount + 1
		}
		c.mu.Unlock()
		return row, ok, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read %s: %w", rng, err)
	}
	rows, count := parseRowIndex(resp.Values)

	c.mu.Lock()
	c.rows = rows
	c.cachedRowCount = count
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	row, ok := rows[id]
	if !ok {
		row = count + 1
	}
	return row, ok, nil
}

func (c *Client) remember(id string, row int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rows == nil {
		c.rows = make(map[string]int)
	}
	c.rows[id] = row
	if row > c.cachedRowCount {
		c.cachedRowCount = row
	}
}

// InvalidateRowCache forces the next lookup to re-read the id column.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheExpiresAt = time.Time{}
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rowRange(row), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheet, row, lastColumn(), row)
}

func lastColumn() string {
	return string(rune('A' + len(ports.Columns) - 1))
}
