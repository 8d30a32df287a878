// Package sheets appends confirmed intake rows to a Google Sheets
// spreadsheet via the values.append API.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/yuchiaw/oil-intake/internal/sink"
)

var _ sink.RowSink = (*Sink)(nil)

// Sink appends rows to one spreadsheet range using a service-account
// credentials file. Auth is resolved once at construction.
type Sink struct {
	svc           *sheets.Service
	spreadsheetID string
	writeRange    string
	logger        *slog.Logger
}

// New builds the Sheets sink. writeRange is an A1 range such as
// "Intake!A:F"; the API appends after the last row of the table found
// there.
func New(ctx context.Context, spreadsheetID, writeRange, credentialsFile string, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets sink: spreadsheet id is required")
	}
	if writeRange == "" {
		writeRange = "Intake!A:F"
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Sink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
		logger:        logger,
	}, nil
}

// Append writes one row with RAW input semantics so numeric-looking
// strings (prices, batch codes) stay verbatim instead of being coerced
// by the spreadsheet.
func (s *Sink) Append(ctx context.Context, row []string) error {
	start := time.Now()

	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	body := &sheets.ValueRange{Values: [][]interface{}{values}}

	resp, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.writeRange, body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		s.logger.Error("sink.sheets.append.error",
			"spreadsheet_id", s.spreadsheetID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("sheets append: %w", err)
	}

	updated := ""
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRange
	}
	s.logger.Info("sink.sheets.append.ok",
		"spreadsheet_id", s.spreadsheetID, "updated_range", updated,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
