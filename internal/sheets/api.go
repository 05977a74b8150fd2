package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/opsboard/opsboard/internal/orders"
)

// APIConfig locates the order sheet.
type APIConfig struct {
	SpreadsheetID string
	Range         string
	// Credentials is a path to a service account file, or the raw JSON.
	Credentials string
}

// APISource reads the order sheet with the Sheets v4 API.
type APISource struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	readRange     string
}

// NewAPISource builds the Sheets client. Extra options are appended after the
// credential options.
func NewAPISource(ctx context.Context, cfg APIConfig, extra ...option.ClientOption) (*APISource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsReadonlyScope)}
	if cfg.Credentials != "" {
		raw := []byte(cfg.Credentials)
		if raw[0] == '{' {
			opts = append(opts, option.WithCredentialsJSON(raw))
		} else {
			opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
		}
	}
	opts = append(opts, extra...)

	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	slog.Default().InfoContext(ctx, "sheets client initialized", slog.String("spreadsheet_id", cfg.SpreadsheetID))
	return &APISource{
		values:        service.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     cfg.Range,
	}, nil
}

// Fetch reads the configured range.
func (s *APISource) Fetch(ctx context.Context) ([]orders.Record, error) {
	resp, err := s.values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read range %q: %w", s.readRange, err)
	}
	return RecordsFromValues(resp.Values), nil
}

var _ orders.Source = (*APISource)(nil)
