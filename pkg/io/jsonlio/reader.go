package jsonlio

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wdm0006/freqtab/pkg/frame"
	iox "github.com/wdm0006/freqtab/pkg/io/ioutils"
)

type ReaderOptions struct {
	SampleRows int // for inference; default 100
}

type Reader struct {
	dec  *json.Decoder
	opt  ReaderOptions
	buf  []map[string]any
	keys []string
}

var numre = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

// Load reads a JSON Lines file (or stdin for "-") into a Frame. Columns are
// the keys seen in the sample, in sorted order.
func Load(path string, opt ReaderOptions) (*frame.Frame, error) {
	br, closer, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()
	r := NewReaderFrom(br, opt)
	schema, err := r.InferSchema()
	if err != nil {
		return nil, fmt.Errorf("jsonl %s: %w", path, err)
	}
	f, err := r.ReadAll(schema)
	if err != nil {
		return nil, fmt.Errorf("jsonl %s: %w", path, err)
	}
	return f, nil
}

func NewReaderFrom(r io.Reader, opt ReaderOptions) *Reader {
	return &Reader{dec: json.NewDecoder(r), opt: opt}
}

func (r *Reader) InferSchema() (frame.Schema, error) {
	max := r.opt.SampleRows
	if max <= 0 {
		max = 100
	}
	var sample []map[string]any
	keysSet := map[string]struct{}{}
	for len(sample) < max {
		var m map[string]any
		if err := r.dec.Decode(&m); err != nil {
			if err == io.EOF {
				break
			}
			return frame.Schema{}, err
		}
		sample = append(sample, m)
		for k := range m {
			keysSet[k] = struct{}{}
		}
	}
	r.buf = append(r.buf, sample...)
	r.keys = make([]string, 0, len(keysSet))
	for k := range keysSet {
		r.keys = append(r.keys, k)
	}
	sort.Strings(r.keys)
	kinds := inferKinds(sample, r.keys)
	schema := frame.Schema{Columns: make([]frame.ColumnSchema, len(r.keys))}
	for i, k := range r.keys {
		schema.Columns[i] = frame.ColumnSchema{Name: k, Type: kinds[i], Nullable: true}
	}
	return schema, nil
}

func (r *Reader) ReadAll(schema frame.Schema) (*frame.Frame, error) {
	f := frame.NewFrame(schema)
	// drain buffer
	for _, m := range r.buf {
		f.AppendNullRow()
		setRowFromMap(f, f.Rows()-1, m)
	}
	r.buf = nil
	// continue decoding
	for {
		var m map[string]any
		if err := r.dec.Decode(&m); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("record %d: %w", f.Rows()+1, err)
		}
		f.AppendNullRow()
		setRowFromMap(f, f.Rows()-1, m)
	}
	return f, nil
}

// setRowFromMap fills row from m; values that do not fit the column kind are
// left null.
func setRowFromMap(f *frame.Frame, row int, m map[string]any) {
	for i, cs := range f.Schema().Columns {
		v, ok := m[cs.Name]
		if !ok || v == nil {
			continue
		}
		switch cs.Type {
		case frame.KindFloat:
			switch t := v.(type) {
			case float64:
				_ = f.SetCellAt(row, i, t)
			case string:
				if s := strings.TrimSpace(t); s != "" {
					if x, err := strconv.ParseFloat(s, 64); err == nil {
						_ = f.SetCellAt(row, i, x)
					}
				}
			}
		case frame.KindInt:
			switch t := v.(type) {
			case float64:
				_ = f.SetCellAt(row, i, int64(t))
			case string:
				if s := strings.TrimSpace(t); s != "" {
					if x, err := strconv.ParseInt(s, 10, 64); err == nil {
						_ = f.SetCellAt(row, i, x)
					}
				}
			}
		case frame.KindBool:
			switch t := v.(type) {
			case bool:
				_ = f.SetCellAt(row, i, t)
			case string:
				if x, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(t))); err == nil {
					_ = f.SetCellAt(row, i, x)
				}
			}
		default:
			switch t := v.(type) {
			case string:
				_ = f.SetCellAt(row, i, t)
			default:
				// fallback to JSON encoding
				b, _ := json.Marshal(t)
				_ = f.SetCellAt(row, i, string(b))
			}
		}
	}
}

func inferKinds(sample []map[string]any, keys []string) []frame.Kind {
	kinds := make([]frame.Kind, len(keys))
	for i, k := range keys {
		nNum, nInt, nBool, nStr := 0, 0, 0, 0
		for _, m := range sample {
			v, ok := m[k]
			if !ok || v == nil {
				continue
			}
			switch t := v.(type) {
			case float64:
				nNum++
				if float64(int64(t)) == t {
					nInt++
				}
			case bool:
				nBool++
			case string:
				s := strings.TrimSpace(t)
				if s == "" {
					continue
				}
				if numre.MatchString(s) {
					nNum++
					if !strings.ContainsAny(s, ".eE") {
						nInt++
					}
				} else {
					nStr++
				}
			default:
				nStr++
			}
		}
		switch {
		case nBool > 0 && nNum+nStr == 0:
			kinds[i] = frame.KindBool
		case nNum > 0 && nBool+nStr == 0:
			if nInt == nNum {
				kinds[i] = frame.KindInt
			} else {
				kinds[i] = frame.KindFloat
			}
		default:
			kinds[i] = frame.KindString
		}
	}
	return kinds
}
