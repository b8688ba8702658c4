package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tabclean/domain/records"
	"tabclean/internal"
)

// Writer persists record sets as files in a directory, one file per name
type Writer struct {
	dir    string
	format string
	logger *internal.Logger
}

// NewWriter creates a writer for dir. format is "csv" or "xlsx"; empty means csv.
func NewWriter(dir, format string, logger *internal.Logger) (*Writer, error) {
	switch format {
	case "":
		format = fileTypeCSV
	case fileTypeCSV, fileTypeXLSX:
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Writer{dir: dir, format: format, logger: logger}, nil
}

// Path returns the file a record set named name is written to
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name+"."+w.format)
}

// Write writes rs to <dir>/<name>.<format>, replacing any existing file
func (w *Writer) Write(ctx context.Context, name string, rs *records.RecordSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := w.Path(name)
	var err error
	if w.format == fileTypeXLSX {
		err = writeExcel(path, rs)
	} else {
		err = writeCSV(path, rs)
	}
	if err != nil {
		return err
	}
	w.logger.Info("[Writer] wrote %s (%d rows, %d columns)", path, rs.Len(), rs.Schema().Len())
	return nil
}

func writeCSV(path string, rs *records.RecordSet) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(rs.Schema().Names()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	record := make([]string, rs.Schema().Len())
	for _, row := range rs.Rows() {
		for i, v := range row.Values {
			record[i] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", row.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return file.Close()
}

func writeExcel(path string, rs *records.RecordSet) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, rs.Schema().Len())
	for i, name := range rs.Schema().Names() {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write Excel header: %w", err)
	}
	for r, row := range rs.Rows() {
		cells := make([]interface{}, len(row.Values))
		for i, v := range row.Values {
			cells[i] = excelCell(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write Excel row %d: %w", row.ID, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func excelCell(v records.Value) interface{} {
	switch {
	case v.IsNumeric():
		return v.Num
	case v.IsTimestamp():
		return v.Time
	case v.IsLabel():
		return v.Label
	}
	return nil
}
