package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/wdm0006/freqtab/pkg/frame"
	iox "github.com/wdm0006/freqtab/pkg/io/ioutils"
)

type ReaderOptions struct {
	HasHeader  bool
	Delimiter  rune // 0 = sniff, default ','
	SampleRows int  // for inference; default 100
	Strict     bool // if true, error on short/long records
}

// Stats counts records that did not match the header width.
type Stats struct {
	ShortRecords int
	LongRecords  int
}

type Reader struct {
	r     *csv.Reader
	opt   ReaderOptions
	buf   [][]string
	stats Stats
}

var numre = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

// Load reads a whole CSV file (or stdin for "-") into a Frame.
func Load(path string, opt ReaderOptions) (*frame.Frame, Stats, error) {
	br, closer, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer func() { _ = closer.Close() }()
	r := NewReaderFrom(br, opt)
	schema, _, err := r.InferSchema()
	if err == io.EOF {
		return frame.NewFrame(schema), r.Stats(), nil
	}
	if err != nil {
		return nil, r.stats, fmt.Errorf("csv %s: %w", path, err)
	}
	f, err := r.ReadAll(schema)
	if err != nil {
		return nil, r.stats, fmt.Errorf("csv %s: %w", path, err)
	}
	return f, r.stats, nil
}

// NewReaderFrom constructs a Reader from an arbitrary io.Reader (stdin, pipe).
// A zero Delimiter is sniffed from the first 4KiB.
func NewReaderFrom(r io.Reader, opt ReaderOptions) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	comma, lazy := opt.Delimiter, false
	if comma == 0 {
		comma, lazy = sniffDelimiterAndQuotes(br)
	}
	rr := csv.NewReader(br)
	rr.Comma = comma
	rr.LazyQuotes = lazy
	if !opt.Strict {
		rr.FieldsPerRecord = -1
	}
	return &Reader{r: rr, opt: opt}
}

// InferSchema reads header (if present) and samples rows to determine column
// kinds. Without a header, columns are named col_0, col_1, ...
func (r *Reader) InferSchema() (frame.Schema, []string, error) {
	var names []string
	rec, err := r.r.Read()
	if err != nil {
		return frame.Schema{}, nil, err
	}
	if r.opt.HasHeader {
		names = make([]string, len(rec))
		for i := range rec {
			names[i] = strings.ToValidUTF8(rec[i], "?")
		}
		// strip BOM on first header cell if present
		if len(names) > 0 {
			names[0] = strings.TrimPrefix(names[0], "\ufeff")
		}
		rec, err = r.r.Read()
		if err == io.EOF {
			return schemaOf(names, make([]frame.Kind, len(names))), names, nil
		}
		if err != nil {
			return frame.Schema{}, nil, err
		}
	} else {
		names = make([]string, len(rec))
		for i := range names {
			names[i] = "col_" + strconv.Itoa(i)
		}
	}

	sample := [][]string{rec}
	max := r.opt.SampleRows
	if max <= 0 {
		max = 100
	}
	for i := 1; i < max; i++ {
		rr, err := r.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return frame.Schema{}, nil, err
		}
		sample = append(sample, rr)
	}
	// retain sampled rows for subsequent ReadAll
	r.buf = append(r.buf, sample...)
	return schemaOf(names, inferKinds(sample, len(names))), names, nil
}

func schemaOf(names []string, kinds []frame.Kind) frame.Schema {
	schema := frame.Schema{Columns: make([]frame.ColumnSchema, len(names))}
	for i := range names {
		k := kinds[i]
		if k == frame.KindInvalid {
			k = frame.KindString
		}
		schema.Columns[i] = frame.ColumnSchema{Name: names[i], Type: k, Nullable: true}
	}
	return schema
}

// ReadAll loads the rest of the CSV into a Frame. Empty fields, and fields
// that do not parse as the inferred kind, become nulls.
func (r *Reader) ReadAll(schema frame.Schema) (*frame.Frame, error) {
	f := frame.NewFrame(schema)
	// drain buffered records from inference (if any)
	for _, rec := range r.buf {
		if err := r.appendRecord(f, rec); err != nil {
			return nil, err
		}
	}
	r.buf = nil
	for {
		rec, err := r.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := r.appendRecord(f, rec); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (r *Reader) appendRecord(f *frame.Frame, rec []string) error {
	width := len(f.Schema().Columns)
	switch {
	case len(rec) > width:
		r.stats.LongRecords++
		if r.opt.Strict {
			return fmt.Errorf("csv long record at row %d: need %d fields, got %d", f.Rows()+1, width, len(rec))
		}
	case len(rec) < width:
		r.stats.ShortRecords++
		if r.opt.Strict {
			return fmt.Errorf("csv short record at row %d: need %d fields, got %d", f.Rows()+1, width, len(rec))
		}
	}
	// append a null row then set non-empty values
	f.AppendNullRow()
	row := f.Rows() - 1
	for i, cs := range f.Schema().Columns {
		if i >= len(rec) {
			break
		}
		val := strings.ToValidUTF8(strings.TrimSpace(rec[i]), "?")
		if val == "" {
			continue
		}
		switch cs.Type {
		case frame.KindFloat:
			if x, err := strconv.ParseFloat(val, 64); err == nil {
				_ = f.SetCellAt(row, i, x)
			}
		case frame.KindInt:
			if x, err := strconv.ParseInt(val, 10, 64); err == nil {
				_ = f.SetCellAt(row, i, x)
			}
		case frame.KindBool:
			if x, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
				_ = f.SetCellAt(row, i, x)
			}
		default:
			_ = f.SetCellAt(row, i, val)
		}
	}
	return nil
}

func inferKinds(rows [][]string, ncol int) []frame.Kind {
	kinds := make([]frame.Kind, ncol)
	for c := 0; c < ncol; c++ {
		num, integer, boolean, str := 0, 0, 0, 0
		for _, row := range rows {
			if c >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[c])
			if v == "" {
				continue
			}
			if numre.MatchString(v) {
				num++
				if !strings.ContainsAny(v, ".eE") {
					integer++
				}
				continue
			}
			if lv := strings.ToLower(v); lv == "true" || lv == "false" {
				boolean++
				continue
			}
			str++
		}
		switch {
		case str > 0 || num+boolean == 0 || (boolean > 0 && num > 0):
			kinds[c] = frame.KindString
		case boolean > 0:
			kinds[c] = frame.KindBool
		case integer == num:
			kinds[c] = frame.KindInt
		default:
			kinds[c] = frame.KindFloat
		}
	}
	return kinds
}

func sniffDelimiterAndQuotes(br *bufio.Reader) (rune, bool) {
	sample, _ := br.Peek(4096)
	if len(sample) == 0 {
		return ',', false
	}
	candidates := []byte{',', '\t', ';', '|'}
	best := byte(',')
	bestCount := 0
	for _, c := range candidates {
		cnt := 0
		for _, b := range sample {
			if b == c {
				cnt++
			}
		}
		if cnt > bestCount {
			bestCount = cnt
			best = c
		}
	}
	// odd quote counts in the sample hint at stray quotes
	quoteCount := 0
	for _, b := range sample {
		if b == '"' {
			quoteCount++
		}
	}
	return rune(best), quoteCount%2 != 0
}

// Stats reports the records repaired so far.
func (r *Reader) Stats() Stats { return r.stats }

func (s Stats) String() string {
	if s.ShortRecords == 0 && s.LongRecords == 0 {
		return ""
	}
	parts := []string{}
	if s.ShortRecords > 0 {
		parts = append(parts, fmt.Sprintf("short_records=%d", s.ShortRecords))
	}
	if s.LongRecords > 0 {
		parts = append(parts, fmt.Sprintf("long_records=%d", s.LongRecords))
	}
	return strings.Join(parts, ", ")
}
