// Package google mirrors booked transactions into a yearly Google Sheets
// ledger tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"zenbank/internal/log"
	ports "zenbank/internal/sheets"
)

const ledgerColumns = "A%d:G%d"

var ledgerHeader = []any{"Transaction ID", "Date", "Username", "User ID", "Type", "Amount", "Balance"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base tab name without year (e.g. "Ledger"); entries land in "<year> <base>".
	sheetBase string
	logger    *log.Logger

	// Serialises the read-next-row/write pair.
	mu sync.Mutex
}

var _ ports.LedgerWriter = (*Client)(nil)

// New creates a ledger client for spreadsheetID. Without opts the service
// authenticates with service account credentials from the environment
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS), falling back to an OAuth user token.
func New(ctx context.Context, spreadsheetID, sheetBase string, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = "Ledger"
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)

	var (
		svc *gsheet.Service
		err error
	)
	if len(opts) == 0 {
		svc, err = newSheetsService(ctx, logger)
	} else {
		svc, err = gsheet.NewService(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		logger:        logger,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials, or a saved OAuth user token when no service account is set.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON == "" && serviceAccountFile == "":
		opt, err := userTokenOption(ctx)
		if err != nil {
			return nil, err
		}
		if opt == nil {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
		}
		logger.InfoContext(ctx, "Using OAuth user token", "path", TokenFileFromEnv())
		service, err := gsheet.NewService(ctx, opt)
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// AppendEntry writes e to the next free row of the tab for e's year. Column A
// holds the transaction id, so a redelivered entry resolves to its existing row.
func (c *Client) AppendEntry(ctx context.Context, e ports.LedgerEntry) (string, error) {
	if strings.TrimSpace(e.TransactionID) == "" {
		return "", errors.New("ledger entry without transaction id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, e.Date.Year())

	c.mu.Lock()
	defer c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rng, err)
	}

	for i, row := range resp.Values {
		cols := toStrings(row)
		if len(cols) > 0 && cols[0] == e.TransactionID {
			ref := rowRef(sheet, i+1)
			c.logger.InfoContext(ctx, "Ledger entry already present",
				log.FieldTxID, e.TransactionID,
				log.FieldLedgerRef, ref)
			return ref, nil
		}
	}

	nextRow := len(resp.Values) + 1
	if nextRow == 1 {
		if err := c.writeRow(ctx, sheet, 1, ledgerHeader); err != nil {
			return "", err
		}
		nextRow = 2
	}

	values := []any{
		e.TransactionID,
		e.Date.UTC().Format("2006-01-02 15:04:05"),
		e.Username,
		e.UserID,
		string(e.Type),
		e.Amount.Units(),
		e.Balance.Units(),
	}
	if err := c.writeRow(ctx, sheet, nextRow, values); err != nil {
		return "", err
	}

	return rowRef(sheet, nextRow), nil
}

func (c *Client) writeRow(ctx context.Context, sheet string, row int, values []any) error {
	rng := rowRef(sheet, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return nil
}

func rowRef(sheet string, row int) string {
	return sheet + "!" + fmt.Sprintf(ledgerColumns, row, row)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
