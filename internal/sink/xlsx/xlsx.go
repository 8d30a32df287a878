// Package xlsx appends confirmed intake rows to a local workbook. It is
// the offline counterpart of the Sheets sink and the default for a
// single phone-and-laptop setup.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yuchiaw/oil-intake/internal/sink"
)

var _ sink.RowSink = (*Sink)(nil)

var headers = []string{"品名", "售價", "容量", "保存期限", "批號", "建檔時間"}

// Sink writes one row per confirmed intake to a sheet in a local
// workbook, creating workbook, sheet and header row on first use.
type Sink struct {
	path   string
	sheet  string
	logger *slog.Logger
}

func New(path, sheet string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	if sheet == "" {
		sheet = "Intake"
	}
	return &Sink{path: path, sheet: sheet, logger: logger}
}

// Append opens (or creates) the workbook, writes row after the last
// populated row, and saves. The open-modify-save round trip is fine at
// single-user intake rates and keeps the workbook readable between
// appends.
func (s *Sink) Append(_ context.Context, row []string) error {
	start := time.Now()

	f, created, err := s.open()
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("workbook close error", "error", cerr)
		}
	}()

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", s.sheet, err)
	}
	target := len(rows) + 1

	for i, v := range row {
		cell, cellErr := excelize.CoordinatesToCellName(i+1, target)
		if cellErr != nil {
			return fmt.Errorf("cell name: %w", cellErr)
		}
		if err := f.SetCellValue(s.sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("xlsx save: %w", err)
	}

	s.logger.Info("sink.xlsx.append.ok",
		"path", s.path, "row", target, "created", created,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Sink) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(s.path); err == nil {
		f, err := excelize.OpenFile(s.path)
		if err != nil {
			return nil, false, err
		}
		if idx, _ := f.GetSheetIndex(s.sheet); idx == -1 {
			if _, err := f.NewSheet(s.sheet); err != nil {
				return nil, false, err
			}
			if err := s.writeHeader(f); err != nil {
				return nil, false, err
			}
		}
		return f, false, nil
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet(s.sheet); err != nil {
		return nil, false, err
	}
	// NewFile ships a default Sheet1 that would otherwise linger next
	// to the real sheet
	if s.sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, false, err
		}
	}
	if idx, _ := f.GetSheetIndex(s.sheet); idx != -1 {
		f.SetActiveSheet(idx)
	}
	if err := s.writeHeader(f); err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func (s *Sink) writeHeader(f *excelize.File) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(s.sheet, cell, h); err != nil {
			return err
		}
	}
	// name and timestamp columns carry the longest values
	_ = f.SetColWidth(s.sheet, "A", "A", 28)
	_ = f.SetColWidth(s.sheet, "F", "F", 20)
	return nil
}
