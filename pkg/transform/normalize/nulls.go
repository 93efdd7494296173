package normalize

import (
	"context"
	"fmt"

	"github.com/wdm0006/freqtab/pkg/frame"
)

// FillNull replaces nulls with Value, so they are tabulated under a label of
// their own. Value is coerced to the column kind; a value that does not fit
// leaves the column untouched.
type FillNull struct {
	Column string
	Value  any
}

func (t *FillNull) Name() string { return "fill_null" }

func (t *FillNull) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	for _, col := range f.Columns() {
		if t.Column != "" && col.Name() != t.Column {
			continue
		}
		switch c := col.(type) {
		case *frame.FloatColumn:
			var vv float64
			switch v := t.Value.(type) {
			case int:
				vv = float64(v)
			case int64:
				vv = float64(v)
			case float64:
				vv = v
			default:
				continue
			}
			for i := 0; i < c.Len(); i++ {
				if c.IsNull(i) {
					c.Set(i, vv)
				}
			}
		case *frame.IntColumn:
			var vv int64
			switch v := t.Value.(type) {
			case int:
				vv = int64(v)
			case int64:
				vv = v
			case float64:
				vv = int64(v)
			default:
				continue
			}
			for i := 0; i < c.Len(); i++ {
				if c.IsNull(i) {
					c.Set(i, vv)
				}
			}
		case *frame.StringColumn:
			vv, ok := t.Value.(string)
			if !ok {
				continue
			}
			for i := 0; i < c.Len(); i++ {
				if c.IsNull(i) {
					c.Set(i, vv)
				}
			}
		case *frame.BoolColumn:
			vv, ok := t.Value.(bool)
			if !ok {
				continue
			}
			for i := 0; i < c.Len(); i++ {
				if c.IsNull(i) {
					c.Set(i, vv)
				}
			}
		case *frame.AnyColumn:
			for i := 0; i < c.Len(); i++ {
				if c.IsNull(i) {
					c.Set(i, t.Value)
				}
			}
		}
	}
	return f, nil
}

// InSet restricts a string column to an allowed set. Values outside it are
// nulled, or reported as an error when Strict is set.
type InSet struct {
	Column string
	Values map[string]struct{}
	Strict bool
}

func NewInSet(col string, vals []string, strict bool) *InSet {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return &InSet{Column: col, Values: m, Strict: strict}
}

func (t *InSet) Name() string { return "in_set" }

func (t *InSet) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, fmt.Errorf("in_set: unknown column %s", t.Column)
	}
	var bad []int
	for i := 0; i < col.Len(); i++ {
		v, ok := col.Value(i).(string)
		if !ok {
			continue
		}
		if _, ok := t.Values[v]; !ok {
			bad = append(bad, i)
		}
	}
	if len(bad) == 0 {
		return f, nil
	}
	if t.Strict {
		return f, fmt.Errorf("in_set: column %s has %d values outside allowed set", t.Column, len(bad))
	}
	for _, i := range bad {
		col.SetNull(i)
	}
	return f, nil
}
