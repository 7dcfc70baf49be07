package export

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/StarHydra/docstruct/internal/dedupe"
)

// Service produces XLSX bytes for the final record table.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteTable returns an XLSX workbook (as bytes) with one row per OutputRow,
// columns Sr No | Key | Value | Comments, row order preserved. Values in a
// recognized date form are written as real dates with a DD-MMM-YY format.
func (s *Service) WriteTable(rows []dedupe.OutputRow) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Output"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// The workbook starts with a default sheet we never write to.
	_ = f.DeleteSheet("Sheet1")

	numFmt := "dd-mmm-yy"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return nil, fmt.Errorf("xlsx date style: %w", err)
	}

	headers := []string{"Sr No", "Key", "Value", "Comments"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		rowIdx := i + 2

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowIdx)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.SrNo)
		write(2, r.Key)

		if d, ok := dedupe.ParseDate(r.Value); ok {
			cell, _ := excelize.CoordinatesToCellName(3, rowIdx)
			_ = f.SetCellValue(sheet, cell, d)
			_ = f.SetCellStyle(sheet, cell, cell, dateStyle)
		} else {
			write(3, r.Value)
		}

		write(4, r.Comments)
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 8)  // serial
	_ = f.SetColWidth(sheet, "B", "B", 28) // key
	_ = f.SetColWidth(sheet, "C", "C", 24) // value
	_ = f.SetColWidth(sheet, "D", "D", 60) // comments

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteFile writes the workbook to disk.
func (s *Service) WriteFile(path string, rows []dedupe.OutputRow) error {
	b, err := s.WriteTable(rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	s.logger.Info("export.file.ok", "path", path, "rows", len(rows))
	return nil
}
