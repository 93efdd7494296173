// Package freq computes the frequency distribution of a single column: how
// often each distinct value occurs, with optional percentage, cumulative
// percentage, serial number and string length columns.
package freq

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"

	"github.com/wdm0006/freqtab/pkg/frame"
)

// MaxRows is the per-sheet row ceiling of the xlsx format, header included.
const MaxRows = 1 << 20

// Header names of the derived columns.
const (
	HeaderSerialNumber         = "sl_no"
	HeaderFrequency            = "frequency"
	HeaderPercentage           = "percentage"
	HeaderCumulativePercentage = "cumulative_percentage"
	HeaderStringLength         = "string_length"
)

// ErrInvalidOptions reports an unsatisfiable combination of options.
var ErrInvalidOptions = errors.New("invalid options")

// Options selects which derived columns are computed and how many rows are kept.
type Options struct {
	// MaxEntries caps the number of rows per table. Must be at least 1.
	MaxEntries int
	SerialNumber bool
	// Frequency is accepted for compatibility; the frequency column is
	// always emitted.
	Frequency            bool
	Percentage           bool
	CumulativePercentage bool
	StringLength         bool
	// NullText is the rendering of a null value used for string length.
	NullText string
	// DropNulls excludes null cells from counting entirely.
	DropNulls bool
}

// DefaultOptions mirrors the defaults analysts expect from a profiling report.
func DefaultOptions() Options {
	return Options{
		MaxEntries:   MaxRows,
		SerialNumber: true,
		Frequency:    true,
		Percentage:   true,
		StringLength: true,
		NullText:     frame.DefaultNullText,
	}
}

// Validate checks option dependencies before any work is done.
func (o Options) Validate() error {
	if o.MaxEntries < 1 {
		return fmt.Errorf("%w: maximum entries must be at least 1, got %d", ErrInvalidOptions, o.MaxEntries)
	}
	if o.CumulativePercentage && !o.Percentage {
		return fmt.Errorf("%w: cumulative percentage requires percentage", ErrInvalidOptions)
	}
	return nil
}

// Row is one distinct value of a column and how often it occurs.
type Row struct {
	SerialNumber         int
	Value                any // nil for null
	Text                 string
	Frequency            int
	Percentage           float64
	CumulativePercentage float64
	StringLength         int
}

// Table is the frequency distribution of one column, sorted by descending
// frequency. Values with equal frequency keep the order in which they first
// occur in the column.
type Table struct {
	Column   string
	Kind     frame.Kind
	Total    int // cells counted (nulls included unless DropNulls)
	Nulls    int
	Distinct int // distinct values before truncation
	Rows     []Row
	opts     Options
}

// Truncated reports whether rows were dropped to honor MaxEntries.
func (t *Table) Truncated() bool { return len(t.Rows) < t.Distinct }

// Header returns the emitted column names in layout order.
func (t *Table) Header() []string {
	h := make([]string, 0, 6)
	if t.opts.SerialNumber {
		h = append(h, HeaderSerialNumber)
	}
	h = append(h, t.Column, HeaderFrequency)
	if t.opts.Percentage {
		h = append(h, HeaderPercentage)
	}
	if t.opts.CumulativePercentage {
		h = append(h, HeaderCumulativePercentage)
	}
	if t.opts.StringLength {
		h = append(h, HeaderStringLength)
	}
	return h
}

// Record returns row i as cell values in Header order. Times are rendered as
// text; a null value is nil.
func (t *Table) Record(i int) []any {
	r := t.Rows[i]
	out := make([]any, 0, 6)
	if t.opts.SerialNumber {
		out = append(out, r.SerialNumber)
	}
	switch v := r.Value.(type) {
	case time.Time:
		out = append(out, r.Text)
	default:
		out = append(out, v)
	}
	out = append(out, r.Frequency)
	if t.opts.Percentage {
		out = append(out, r.Percentage)
	}
	if t.opts.CumulativePercentage {
		out = append(out, r.CumulativePercentage)
	}
	if t.opts.StringLength {
		out = append(out, r.StringLength)
	}
	return out
}

// Texts returns row i rendered as text in Header order.
func (t *Table) Texts(i int) []string {
	rec := t.Record(i)
	out := make([]string, len(rec))
	for j, v := range rec {
		out[j] = frame.FormatValue(v, t.opts.NullText)
	}
	return out
}

type bucket struct {
	value any
	count int
}

// key makes a value usable as a map key. Comparable values are used as-is
// (times normalized to UTC so equal instants collide); anything else falls
// back to its type and rendering.
type key struct {
	null bool
	v    any
}

type opaque struct {
	typ  string
	text string
}

func keyOf(v any) key {
	switch t := v.(type) {
	case nil:
		return key{null: true}
	case time.Time:
		return key{v: t.UTC().Round(0)}
	case int:
		return key{v: int64(t)}
	case int32:
		return key{v: int64(t)}
	case float32:
		return key{v: float64(t)}
	}
	if reflect.TypeOf(v).Comparable() {
		return key{v: v}
	}
	return key{v: opaque{typ: fmt.Sprintf("%T", v), text: fmt.Sprint(v)}}
}

// Build tabulates col. It never mutates the column.
func Build(col frame.Column, opts Options) (*Table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	t := &Table{Column: col.Name(), Kind: col.Kind(), opts: opts}

	index := make(map[key]int)
	var buckets []bucket
	for i := 0; i < col.Len(); i++ {
		v := col.Value(i)
		if v == nil {
			t.Nulls++
			if opts.DropNulls {
				continue
			}
		}
		t.Total++
		k := keyOf(v)
		if b, ok := index[k]; ok {
			buckets[b].count++
			continue
		}
		index[k] = len(buckets)
		buckets = append(buckets, bucket{value: v, count: 1})
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].count > buckets[j].count })
	t.Distinct = len(buckets)

	counts := make([]float64, len(buckets))
	for i, b := range buckets {
		counts[i] = float64(b.count)
	}
	var pct, cum []float64
	if opts.Percentage && t.Total > 0 {
		total := floats.Sum(counts)
		pct = make([]float64, len(counts))
		for i, c := range counts {
			pct[i] = 100 * c / total
		}
		if opts.CumulativePercentage {
			cum = floats.CumSum(make([]float64, len(pct)), pct)
		}
	}

	n := len(buckets)
	if n > opts.MaxEntries {
		n = opts.MaxEntries
	}
	t.Rows = make([]Row, n)
	for i := 0; i < n; i++ {
		b := buckets[i]
		r := Row{Value: b.value, Frequency: b.count, Text: frame.FormatValue(b.value, opts.NullText)}
		if opts.SerialNumber {
			r.SerialNumber = i + 1
		}
		if pct != nil {
			r.Percentage = pct[i]
		}
		if cum != nil {
			r.CumulativePercentage = cum[i]
		}
		if opts.StringLength {
			r.StringLength = utf8.RuneCountInString(r.Text)
		}
		t.Rows[i] = r
	}
	return t, nil
}
