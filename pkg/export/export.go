// Package export writes per-column frequency tables into an xlsx workbook,
// one sheet per column.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/wdm0006/freqtab/pkg/frame"
	"github.com/wdm0006/freqtab/pkg/freq"
)

// DefaultFilenamePrefix is used when no output filename is given.
const DefaultFilenamePrefix = "frequency_table_"

const (
	timestampLayout = "20060102_150405"
	xlsxExt         = ".xlsx"
	widthPadding    = 2
)

// Options configures an export.
type Options struct {
	freq.Options
	// Filename is the output path. Empty means
	// frequency_table_<YYYYMMDD_HHMMSS>.xlsx in the working directory.
	Filename string
	// FormatWidth sizes every column to its longest rendering plus padding.
	FormatWidth bool
}

// DefaultOptions returns the options used when the caller has no preference.
func DefaultOptions() Options {
	return Options{Options: freq.DefaultOptions(), FormatWidth: true}
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithClock sets the time source used for the default filename.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// WithProgress sets where human-readable progress lines are written.
func WithProgress(w io.Writer) Option {
	return func(e *Exporter) { e.progress = w }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// Exporter writes frequency tables for every column of a Frame.
type Exporter struct {
	opts     Options
	now      func() time.Time
	progress io.Writer
	logger   *slog.Logger
}

// New creates an Exporter. Progress output and logs are discarded unless
// WithProgress or WithLogger is given.
func New(opts Options, extra ...Option) *Exporter {
	e := &Exporter{opts: opts, now: time.Now, progress: io.Discard, logger: slog.New(slog.DiscardHandler)}
	for _, o := range extra {
		o(e)
	}
	return e
}

// SheetReport describes one written sheet.
type SheetReport struct {
	Column    string
	Sheet     string
	Total     int
	Nulls     int
	Distinct  int
	Rows      int
	Truncated bool
}

// Report describes a finished export.
type Report struct {
	Path   string
	Sheets []SheetReport
}

// Export is shorthand for New(opts).Export(ctx, f).
func Export(ctx context.Context, f *frame.Frame, opts Options) (*Report, error) {
	return New(opts).Export(ctx, f)
}

// ResolveFilename returns name with an .xlsx suffix, or a timestamped default
// when name is empty.
func ResolveFilename(name string, now time.Time) string {
	if name == "" {
		name = DefaultFilenamePrefix + now.Format(timestampLayout) + xlsxExt
	}
	if !strings.HasSuffix(name, xlsxExt) {
		name += xlsxExt
	}
	return name
}

// Export tabulates every column of f, in order, and writes the workbook. The
// workbook is closed on every return path; if a column fails after the
// workbook was created, whatever was written so far is still saved.
func (e *Exporter) Export(ctx context.Context, f *frame.Frame) (rep *Report, err error) {
	if f == nil {
		return nil, errors.New("export: nil frame")
	}
	if err := e.opts.Validate(); err != nil {
		return nil, err
	}
	path := ResolveFilename(e.opts.Filename, e.now())
	rep = &Report{Path: path}

	e.printf("Writing frequency table of dataset to %s\n\n", path)
	e.logger.Info("exporting frequency tables",
		slog.String("path", path),
		slog.Int("columns", f.Cols()),
		slog.Int("rows", f.Rows()),
		slog.Int("max_entries", e.opts.MaxEntries))

	wb := excelize.NewFile()
	saved := false
	defer func() {
		if err != nil && !saved {
			if serr := wb.SaveAs(path); serr != nil {
				e.logger.Warn("could not save partial workbook", slog.String("path", path), slog.Any("error", serr))
			}
		}
		if cerr := wb.Close(); cerr != nil && err == nil {
			err = newColumnError("", "", StageSave, fmt.Errorf("%w: %w", ErrWrite, cerr))
		}
	}()

	namer := newSheetNamer()
	for idx, col := range f.Columns() {
		if cerr := ctx.Err(); cerr != nil {
			return rep, fmt.Errorf("export canceled before column %q: %w", col.Name(), cerr)
		}
		sheet := namer.Name(col.Name(), idx)
		tbl, terr := freq.Build(col, e.opts.Options)
		if terr != nil {
			return rep, newColumnError(col.Name(), sheet, StageTabulate, terr)
		}
		if n := len(tbl.Rows) + 1; n > excelize.TotalRows {
			return rep, newColumnError(col.Name(), sheet, StageTabulate,
				fmt.Errorf("%w: %d rows including header exceed the limit of %d; lower the maximum entries", ErrTooManyRows, n, excelize.TotalRows))
		}
		if serr := e.writeSheet(wb, idx, sheet, tbl); serr != nil {
			return rep, serr
		}
		rep.Sheets = append(rep.Sheets, SheetReport{
			Column:    col.Name(),
			Sheet:     sheet,
			Total:     tbl.Total,
			Nulls:     tbl.Nulls,
			Distinct:  tbl.Distinct,
			Rows:      len(tbl.Rows),
			Truncated: tbl.Truncated(),
		})
		e.logger.Debug("wrote frequency sheet",
			slog.String("column", col.Name()),
			slog.String("sheet", sheet),
			slog.Int("distinct", tbl.Distinct),
			slog.Int("rows", len(tbl.Rows)),
			slog.Bool("truncated", tbl.Truncated()))
		e.printf("Generated frequency table for column %s\n", col.Name())
	}

	saved = true
	if serr := wb.SaveAs(path); serr != nil {
		return rep, newColumnError("", "", StageSave, fmt.Errorf("%w: %w", ErrWrite, serr))
	}
	e.printf("\nFrequency table saved to %s\n", path)
	e.logger.Info("frequency tables saved", slog.String("path", path), slog.Int("sheets", len(rep.Sheets)))
	return rep, nil
}

func (e *Exporter) writeSheet(wb *excelize.File, idx int, sheet string, tbl *freq.Table) error {
	fail := func(stage string, err error) error {
		return newColumnError(tbl.Column, sheet, stage, fmt.Errorf("%w: %w", ErrWrite, err))
	}
	// the new workbook's default sheet hosts the first column
	if idx == 0 {
		if cur := wb.GetSheetName(0); cur != sheet {
			if err := wb.SetSheetName(cur, sheet); err != nil {
				return fail(StageSheet, err)
			}
		}
	} else if _, err := wb.NewSheet(sheet); err != nil {
		return fail(StageSheet, err)
	}

	sw, err := wb.NewStreamWriter(sheet)
	if err != nil {
		return fail(StageSheet, err)
	}
	// widths must be set before the first row is streamed
	if e.opts.FormatWidth {
		for i, w := range ColumnWidths(tbl) {
			if err := sw.SetColWidth(i+1, i+1, w); err != nil {
				return fail(StageWrite, err)
			}
		}
	}
	header := tbl.Header()
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return fail(StageWrite, err)
	}
	for i := range tbl.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fail(StageWrite, err)
		}
		if err := sw.SetRow(cell, cellValues(tbl.Record(i))); err != nil {
			return fail(StageWrite, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fail(StageWrite, err)
	}
	return nil
}

// cellValues replaces values a worksheet cannot hold as numbers with text.
func cellValues(rec []any) []any {
	for i, v := range rec {
		if f, ok := v.(float64); ok && math.IsInf(f, 0) {
			rec[i] = frame.FormatFloat(f, frame.DefaultNullText)
		}
	}
	return rec
}

// ColumnWidths returns, per emitted column, the longest textual rendering
// among the header and all rows plus padding, capped at the xlsx maximum.
func ColumnWidths(tbl *freq.Table) []float64 {
	header := tbl.Header()
	longest := make([]int, len(header))
	for i, h := range header {
		longest[i] = utf8.RuneCountInString(h)
	}
	for r := range tbl.Rows {
		for i, s := range tbl.Texts(r) {
			if n := utf8.RuneCountInString(s); n > longest[i] {
				longest[i] = n
			}
		}
	}
	widths := make([]float64, len(longest))
	for i, n := range longest {
		widths[i] = math.Min(float64(n+widthPadding), excelize.MaxColumnWidth)
	}
	return widths
}

func (e *Exporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.progress, format, args...)
}
