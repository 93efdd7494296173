package export

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wdm0006/freqtab/pkg/frame"
	"github.com/wdm0006/freqtab/pkg/freq"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

func fixedClock() time.Time { return fixedNow }

func newFrame(t *testing.T, cols ...frame.Column) *frame.Frame {
	t.Helper()
	f, err := frame.FromColumns(cols...)
	require.NoError(t, err)
	return f
}

func stringCol(name string, vals ...string) *frame.StringColumn {
	c := frame.NewStringColumn(name, 0)
	for _, v := range vals {
		c.Append(v)
	}
	return c
}

func readSheet(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

func sheetList(t *testing.T, path string) []string {
	t.Helper()
	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	return wb.GetSheetList()
}

func TestExportFruit(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Filename = filepath.Join(dir, "fruit.xlsx")
	var progress bytes.Buffer

	rep, err := New(opts, WithProgress(&progress), WithClock(fixedClock)).
		Export(context.Background(), newFrame(t, stringCol("fruit", "apple", "apple", "banana")))
	require.NoError(t, err)
	assert.Equal(t, opts.Filename, rep.Path)
	require.Len(t, rep.Sheets, 1)
	assert.Equal(t, SheetReport{Column: "fruit", Sheet: "fruit", Total: 3, Distinct: 2, Rows: 2}, rep.Sheets[0])

	assert.Equal(t, []string{"fruit"}, sheetList(t, opts.Filename))
	rows := readSheet(t, opts.Filename, "fruit")
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"sl_no", "fruit", "frequency", "percentage", "string_length"}, rows[0])

	assert.Equal(t, []string{"1", "apple", "2"}, rows[1][:3])
	pct, err := strconv.ParseFloat(rows[1][3], 64)
	require.NoError(t, err)
	assert.InDelta(t, 66.67, pct, 0.01)
	assert.Equal(t, "5", rows[1][4])

	assert.Equal(t, []string{"2", "banana", "1"}, rows[2][:3])
	pct, err = strconv.ParseFloat(rows[2][3], 64)
	require.NoError(t, err)
	assert.InDelta(t, 33.33, pct, 0.01)
	assert.Equal(t, "6", rows[2][4])

	out := progress.String()
	assert.Contains(t, out, "Writing frequency table of dataset to "+opts.Filename)
	assert.Contains(t, out, "Generated frequency table for column fruit")
	assert.Contains(t, out, "Frequency table saved to "+opts.Filename)
}

func TestExportColumnWidths(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Filename = filepath.Join(dir, "widths.xlsx")
	_, err := Export(context.Background(), newFrame(t, stringCol("fruit", "apple", "apple", "banana")), opts)
	require.NoError(t, err)

	wb, err := excelize.OpenFile(opts.Filename)
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	// the widest percentage is banana's 100/3
	pct := len(frame.FormatFloat(100*1.0/3, "nan"))
	want := map[string]float64{
		"A": 7,  // sl_no
		"B": 8,  // banana
		"C": 11, // frequency
		"D": float64(pct + widthPadding),
		"E": 15, // string_length
	}
	assert.Equal(t, float64(20), want["D"])
	for col, w := range want {
		got, err := wb.GetColWidth("fruit", col)
		require.NoError(t, err)
		assert.Equal(t, w, got, "column %s", col)
	}
}

func TestColumnWidthsCapped(t *testing.T) {
	opts := freq.DefaultOptions()
	tbl, err := freq.Build(stringCol("long", strings.Repeat("x", 400)), opts)
	require.NoError(t, err)
	widths := ColumnWidths(tbl)
	assert.Equal(t, float64(excelize.MaxColumnWidth), widths[1])
}

func TestExportLogging(t *testing.T) {
	dir := t.TempDir()
	f := newFrame(t, stringCol("fruit", "apple", "banana"))

	opts := DefaultOptions()
	opts.Filename = filepath.Join(dir, "quiet.xlsx")
	e := New(opts)
	assert.False(t, e.logger.Enabled(context.Background(), slog.LevelError))
	_, err := e.Export(context.Background(), f)
	require.NoError(t, err)

	var logs bytes.Buffer
	opts.Filename = filepath.Join(dir, "logged.xlsx")
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err = New(opts, WithLogger(logger)).Export(context.Background(), f)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "exporting frequency tables")
	assert.Contains(t, logs.String(), "sheet=fruit")
}

func TestDefaultFilename(t *testing.T) {
	name := ResolveFilename("", fixedNow)
	assert.Equal(t, "frequency_table_20240309_140507.xlsx", name)
	assert.Regexp(t, regexp.MustCompile(`^frequency_table_\d{8}_\d{6}\.xlsx$`), ResolveFilename("", time.Now()))
	assert.Equal(t, "report.xlsx", ResolveFilename("report", fixedNow))
	assert.Equal(t, "report.xlsx", ResolveFilename("report.xlsx", fixedNow))
	assert.Equal(t, "report.csv.xlsx", ResolveFilename("report.csv", fixedNow))
}

func TestExportDefaultFilenameUsesClock(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	rep, err := New(DefaultOptions(), WithClock(fixedClock)).
		Export(context.Background(), newFrame(t, stringCol("a", "x")))
	require.NoError(t, err)
	assert.Equal(t, "frequency_table_20240309_140507.xlsx", rep.Path)
	_, err = os.Stat(filepath.Join(dir, rep.Path))
	assert.NoError(t, err)
}

func TestExportAppendsSuffix(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Filename = filepath.Join(dir, "out")
	rep, err := Export(context.Background(), newFrame(t, stringCol("a", "x")), opts)
	require.NoError(t, err)
	assert.Equal(t, opts.Filename+".xlsx", rep.Path)
	_, err = os.Stat(rep.Path)
	assert.NoError(t, err)
}

func TestSheetNameTruncation(t *testing.T) {
	name := "abcdefghijklmno" + "MIDDLEPART" + "PQRSTUVWXYZ01234"
	require.Len(t, name, 41)
	got := SheetName(name)
	assert.Len(t, []rune(got), 31)
	assert.Equal(t, "abcdefghijklmnoPQRSTUVWXYZ01234", got)

	forty := strings.Repeat("a", 15) + strings.Repeat("b", 9) + strings.Repeat("c", 16)
	require.Len(t, forty, 40)
	assert.Equal(t, forty[:15]+forty[24:], SheetName(forty))
	assert.Equal(t, "short", SheetName("short"))
	exact := strings.Repeat("z", 31)
	assert.Equal(t, exact, SheetName(exact))
}

func TestSheetNamer(t *testing.T) {
	n := newSheetNamer()
	a := strings.Repeat("h", 15) + "first-middle" + strings.Repeat("t", 16)
	b := strings.Repeat("h", 15) + "second-middle" + strings.Repeat("t", 16)
	na := n.Name(a, 0)
	nb := n.Name(b, 1)
	assert.Equal(t, SheetName(a), na)
	assert.NotEqual(t, na, nb)
	assert.Len(t, []rune(nb), 31)
	assert.True(t, strings.HasSuffix(nb, "_2"))

	assert.Equal(t, "a_b_c", n.Name("a/b?c", 2))
	assert.Equal(t, "column_4", n.Name("''", 3))
	assert.Equal(t, "Fruit", n.Name("Fruit", 4))
	assert.Equal(t, "fruit_2", n.Name("fruit", 5))
	assert.Equal(t, "fruit_3", n.Name("fruit", 6))
}

func TestExportCollidingSheetNames(t *testing.T) {
	dir := t.TempDir()
	a := strings.Repeat("p", 15) + "alpha" + strings.Repeat("s", 16)
	b := strings.Repeat("p", 15) + "beta" + strings.Repeat("s", 16)
	opts := DefaultOptions()
	opts.Filename = filepath.Join(dir, "collide.xlsx")
	rep, err := Export(context.Background(), newFrame(t, stringCol(a, "x", "y"), stringCol(b, "z", "z")), opts)
	require.NoError(t, err)
	require.Len(t, rep.Sheets, 2)
	assert.NotEqual(t, rep.Sheets[0].Sheet, rep.Sheets[1].Sheet)
	assert.Equal(t, []string{rep.Sheets[0].Sheet, rep.Sheets[1].Sheet}, sheetList(t, opts.Filename))

	rows := readSheet(t, opts.Filename, rep.Sheets[1].Sheet)
	require.Len(t, rows, 2)
	assert.Equal(t, b, rows[0][1])
	assert.Equal(t, []string{"1", "z", "2"}, rows[1][:3])
}

func TestExportSheetOrderAndDefaultSheetName(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Filename = filepath.Join(dir, "order.xlsx")
	_, err := Export(context.Background(), newFrame(t,
		stringCol("zeta", "1"), stringCol("Sheet1", "2"), stringCol("alpha", "3")), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "Sheet1", "alpha"}, sheetList(t, opts.Filename))
}

func TestExportInvalidOptions(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Filename = filepath.Join(dir, "never.xlsx")
	opts.Percentage = false
	opts.CumulativePercentage = true
	_, err := Export(context.Background(), newFrame(t, stringCol("a", "x")), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, freq.ErrInvalidOptions))
	_, statErr := os.Stat(opts.Filename)
	assert.True(t, os.IsNotExist(statErr), "no file should be created on configuration errors")
}

func TestExportUnwritablePath(t *testing.T) {
	opts := DefaultOptions()
	opts.Filename = filepath.Join(t.TempDir(), "missing", "dir", "out.xlsx")
	_, err := Export(context.Background(), newFrame(t, stringCol("a", "x")), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite))
	var ce *ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, StageSave, ce.Stage)
}

func TestExportTooManyRows(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a column with a million distinct values")
	}
	c := frame.NewIntColumn("id", 0)
	for i := 0; i < excelize.TotalRows; i++ {
		c.Append(int64(i))
	}
	opts := DefaultOptions()
	opts.Filename = filepath.Join(t.TempDir(), "big.xlsx")
	_, err := Export(context.Background(), newFrame(t, c), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyRows))
	var ce *ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "id", ce.Column)
	assert.Equal(t, StageTabulate, ce.Stage)

	// one row fewer fits with the header
	opts.MaxEntries = excelize.TotalRows - 1
	tbl, err := freq.Build(c, opts.Options)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, excelize.TotalRows-1)
}

func TestExportTruncatesAndKeepsAllColumns(t *testing.T) {
	dir := t.TempDir()
	c := frame.NewIntColumn("n", 0)
	for i := 0; i < 10; i++ {
		for j := 0; j <= i; j++ {
			c.Append(int64(i))
		}
	}
	opts := DefaultOptions()
	opts.Filename = filepath.Join(dir, "trunc.xlsx")
	opts.MaxEntries = 3
	opts.CumulativePercentage = true
	rep, err := Export(context.Background(), newFrame(t, c), opts)
	require.NoError(t, err)
	assert.True(t, rep.Sheets[0].Truncated)
	assert.Equal(t, 10, rep.Sheets[0].Distinct)

	rows := readSheet(t, opts.Filename, "n")
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"sl_no", "n", "frequency", "percentage", "cumulative_percentage", "string_length"}, rows[0])
	assert.Equal(t, []string{"1", "9", "10"}, rows[1][:3])
	assert.Equal(t, []string{"3", "7", "8"}, rows[3][:3])
}

func TestExportNullsAndMixed(t *testing.T) {
	dir := t.TempDir()
	s := frame.NewStringColumn("s", 0)
	s.Append("x")
	s.AppendNull()
	s.AppendNull()
	m := frame.NewAnyColumn("m", 0)
	m.Append(true)
	m.Append(2.5)
	m.Append(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	opts := DefaultOptions()
	opts.Filename = filepath.Join(dir, "nulls.xlsx")
	_, err := Export(context.Background(), newFrame(t, s, m), opts)
	require.NoError(t, err)

	rows := readSheet(t, opts.Filename, "s")
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "", "2"}, rows[1][:3])
	assert.Equal(t, "3", rows[1][4]) // len("nan")

	rows = readSheet(t, opts.Filename, "m")
	require.Len(t, rows, 4)
	assert.Equal(t, "2024-01-02 00:00:00", rows[3][1])
	assert.Equal(t, "19", rows[3][4])
}

func TestExportIdempotent(t *testing.T) {
	dir := t.TempDir()
	f := newFrame(t, stringCol("a", "x", "y", "x", "z"), stringCol("b", "1", "1", "2", "3"))
	var contents [][][]string
	for _, name := range []string{"one.xlsx", "two.xlsx"} {
		opts := DefaultOptions()
		opts.Filename = filepath.Join(dir, name)
		_, err := Export(context.Background(), f, opts)
		require.NoError(t, err)
		var all [][]string
		for _, sheet := range sheetList(t, opts.Filename) {
			all = append(all, []string{"#" + sheet})
			all = append(all, readSheet(t, opts.Filename, sheet)...)
		}
		contents = append(contents, all)
	}
	assert.Equal(t, contents[0], contents[1])
}

func TestExportNoColumns(t *testing.T) {
	opts := DefaultOptions()
	opts.Filename = filepath.Join(t.TempDir(), "empty.xlsx")
	rep, err := Export(context.Background(), newFrame(t), opts)
	require.NoError(t, err)
	assert.Empty(t, rep.Sheets)
	assert.Len(t, sheetList(t, opts.Filename), 1)
}

func TestExportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := DefaultOptions()
	opts.Filename = filepath.Join(t.TempDir(), "canceled.xlsx")
	_, err := Export(ctx, newFrame(t, stringCol("a", "x")), opts)
	assert.True(t, errors.Is(err, context.Canceled))
}
