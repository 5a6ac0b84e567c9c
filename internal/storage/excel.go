package storage

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/xuri/excelize/v2"

	"carscout/internal/valuation"
)

const rankingSheet = "Ranking"

// ExcelWriter renders the ranking as a spreadsheet for manual browsing.
type ExcelWriter struct {
	path    string
	file    *excelize.File
	mu      sync.Mutex
	nextRow int
	logger  *slog.Logger
}

// NewExcelWriter creates an xlsx backend with the header row in place.
func NewExcelWriter(outputPath string, logger *slog.Logger) (*ExcelWriter, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), rankingSheet)

	w := &ExcelWriter{
		path:    outputPath,
		file:    f,
		nextRow: 2,
		logger:  logger.With("component", "excel_writer"),
	}
	header := make([]any, len(resultColumns))
	for i, col := range resultColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(rankingSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		end, _ := excelize.CoordinatesToCellName(len(resultColumns), 1)
		f.SetCellStyle(rankingSheet, "A1", end, style)
	}
	return w, nil
}

func (w *ExcelWriter) Name() string { return "xlsx" }

func (w *ExcelWriter) Write(listings []*valuation.EvaluatedListing) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ev := range listings {
		rank := w.nextRow - 1
		doc := resultDoc(rank, ev)
		row := make([]any, len(resultColumns))
		for i, col := range resultColumns {
			row[i] = cellValue(doc[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, w.nextRow)
		if err != nil {
			return fmt.Errorf("row coordinate: %w", err)
		}
		if err := w.file.SetSheetRow(rankingSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", w.nextRow, err)
		}
		w.nextRow++
	}
	return nil
}

func (w *ExcelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	w.logger.Info("results written", "path", w.path, "listings", w.nextRow-2)
	return w.file.Close()
}

// cellValue unwraps nil pointers so empty cells stay empty instead of
// rendering a zero.
func cellValue(v any) any {
	if p, ok := v.(*float64); ok {
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}
