package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"tabclean/adapters/coercer"
	"tabclean/domain/core"
	"tabclean/domain/records"
	"tabclean/internal"
)

const (
	fileTypeCSV  = "csv"
	fileTypeXLSX = "xlsx"
)

var errStopScan = errors.New("stop scan")

// Reader reads CSV and Excel files into record sets. A Reader is not safe for
// concurrent reads; create one per goroutine.
type Reader struct {
	config   ReaderConfig
	fileType string
	coercer  *coercer.TypeCoercer
	logger   *internal.Logger
	schema   *records.Schema
	skipped  int
}

// NewReader creates a reader; the file type follows the path's extension
func NewReader(config ReaderConfig, logger *internal.Logger) *Reader {
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if config.SampleSize <= 0 {
		config.SampleSize = 500
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{
		config:   config,
		fileType: detectFileType(config.Path),
		coercer:  coercer.NewTypeCoercer(config.Coercion),
		logger:   logger,
	}
}

func detectFileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return fileTypeXLSX
	case ".csv", ".tsv", ".txt":
		return fileTypeCSV
	}
	return ""
}

// Name returns the file name
func (r *Reader) Name() string {
	return filepath.Base(r.config.Path)
}

// Skipped returns the number of malformed rows dropped by the last read
func (r *Reader) Skipped() int {
	return r.skipped
}

// Schema reads the header and, for undeclared columns, a leading sample of rows
// to infer column kinds. The result is cached.
func (r *Reader) Schema(ctx context.Context) (*records.Schema, error) {
	if r.schema != nil {
		return r.schema, nil
	}
	var header []string
	samples := make([][]string, 0, r.config.SampleSize)
	err := r.scan(ctx, func(line int, fields []string) error {
		if line == 0 {
			header = make([]string, len(fields))
			for i, h := range fields {
				header[i] = strings.TrimSpace(h)
			}
			return nil
		}
		samples = append(samples, fields)
		if len(samples) >= r.config.SampleSize {
			return errStopScan
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("%s: %w", r.config.Path, core.ErrEmptySource)
	}

	declared := make(map[string]records.ColumnSpec, len(r.config.Columns))
	for _, col := range r.config.Columns {
		declared[col.Name] = col
	}
	columns := make([]records.ColumnSpec, len(header))
	for i, name := range header {
		if spec, ok := declared[name]; ok {
			columns[i] = spec
			delete(declared, name)
			continue
		}
		column := make([]string, 0, len(samples))
		for _, row := range samples {
			if i < len(row) {
				column = append(column, row[i])
			}
		}
		columns[i] = records.ColumnSpec{Name: name, Kind: r.coercer.InferKind(column)}
	}
	for _, col := range r.config.Columns {
		if _, missing := declared[col.Name]; missing {
			return nil, fmt.Errorf("%s: declared column %q is not in the header: %w", r.config.Path, col.Name, core.ErrUnknownColumn)
		}
	}

	schema, err := records.NewSchema(columns...)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid header: %w", r.config.Path, err)
	}
	r.logger.Debug("[Reader] %s schema: %d columns (%d declared, %d sampled rows)",
		r.Name(), schema.Len(), len(r.config.Columns), len(samples))
	r.schema = schema
	return schema, nil
}

// Load reads the whole file into a record set
func (r *Reader) Load(ctx context.Context) (*records.RecordSet, error) {
	start := time.Now()
	schema, err := r.Schema(ctx)
	if err != nil {
		return nil, err
	}
	b := records.NewBuilder(schema)
	err = r.each(ctx, schema, func(row records.Row) error {
		return b.Add(row.Values...)
	}, b.Skip)
	if err != nil {
		return nil, err
	}
	rs := b.Build()
	r.logger.Info("[Reader] %s loaded in %s (%d rows, %d columns, %d malformed skipped)",
		r.Name(), time.Since(start).Round(time.Millisecond), rs.Len(), schema.Len(), r.skipped)
	return rs, nil
}

// ReadRows streams rows to out in file order and closes out when done.
// Row IDs are data-row positions, so malformed rows leave gaps.
func (r *Reader) ReadRows(ctx context.Context, out chan<- records.Row) error {
	defer close(out)
	schema, err := r.Schema(ctx)
	if err != nil {
		return err
	}
	return r.each(ctx, schema, func(row records.Row) error {
		select {
		case out <- row:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, func() {})
}

// each coerces every data row and passes it to emit; malformed rows go to skip
func (r *Reader) each(ctx context.Context, schema *records.Schema, emit func(records.Row) error, skip func()) error {
	r.skipped = 0
	columns := schema.Columns()
	return r.scan(ctx, func(line int, fields []string) error {
		if line == 0 {
			return nil
		}
		id := line - 1
		values, ok := r.coerceRow(columns, fields)
		if !ok {
			r.skipped++
			r.logger.Trace("[Reader] %s: skipping row %d with %d fields, expected %d", r.Name(), id, len(fields), len(columns))
			skip()
			return nil
		}
		return emit(records.Row{ID: id, Values: values})
	})
}

// coerceRow converts raw fields into values. CSV rows must have exactly one field per
// column; Excel rows may be short because trailing empty cells are not stored.
func (r *Reader) coerceRow(columns []records.ColumnSpec, fields []string) ([]records.Value, bool) {
	if len(fields) > len(columns) || (len(fields) < len(columns) && r.fileType == fileTypeCSV) {
		return nil, false
	}
	if len(fields) == 0 {
		return nil, false
	}
	values := make([]records.Value, len(columns))
	for i, col := range columns {
		if i < len(fields) {
			values[i] = r.coercer.Coerce(fields[i], col)
		} else {
			values[i] = records.Missing()
		}
	}
	return values, true
}

// scan calls fn for every record in the file, header first, until fn returns an error.
// errStopScan ends the scan without error.
func (r *Reader) scan(ctx context.Context, fn func(line int, fields []string) error) error {
	var err error
	switch r.fileType {
	case fileTypeCSV:
		err = r.scanCSV(ctx, fn)
	case fileTypeXLSX:
		err = r.scanExcel(ctx, fn)
	default:
		return fmt.Errorf("%s: %w", r.config.Path, core.ErrUnsupportedType)
	}
	if errors.Is(err, errStopScan) {
		return nil
	}
	return err
}

func (r *Reader) scanCSV(ctx context.Context, fn func(int, []string) error) error {
	file, err := os.Open(r.config.Path)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = r.config.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for line := 0; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV file: %w", err)
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
}

func (r *Reader) scanExcel(ctx context.Context, fn func(int, []string) error) error {
	f, err := excelize.OpenFile(r.config.Path)
	if err != nil {
		return fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return fmt.Errorf("%s: %w", r.config.Path, core.ErrEmptySource)
		}
		sheet = sheets[0]
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	defer rows.Close()

	for line := 0; rows.Next(); line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fields, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read %s row %d: %w", sheet, line+1, err)
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
	return rows.Error()
}
