// Package golearn provides adapters to convert between frame.Frame and
// github.com/sjwhitworth/golearn/base DenseInstances.
package golearn

import (
	"fmt"
	"math"

	"github.com/sjwhitworth/golearn/base"

	"github.com/wdm0006/freqtab/pkg/frame"
)

// ToDenseInstances converts a Frame into golearn DenseInstances. Numeric
// columns become float attributes (nulls as NaN); everything else becomes a
// categorical attribute over the rendered text, with nulls as "".
func ToDenseInstances(f *frame.Frame) (*base.DenseInstances, error) {
	cols := f.Columns()
	attrs := make([]base.Attribute, len(cols))
	for i, c := range cols {
		switch c.Kind() {
		case frame.KindFloat, frame.KindInt:
			attrs[i] = base.NewFloatAttribute(c.Name())
		default:
			ca := new(base.CategoricalAttribute)
			ca.SetName(c.Name())
			attrs[i] = ca
		}
	}
	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, len(attrs))
	for i, a := range attrs {
		specs[i] = inst.AddAttribute(a)
	}
	if err := inst.Extend(f.Rows()); err != nil {
		return nil, err
	}

	for r := 0; r < f.Rows(); r++ {
		for c, col := range cols {
			v := col.Value(r)
			switch col.Kind() {
			case frame.KindFloat, frame.KindInt:
				x := math.NaN()
				switch t := v.(type) {
				case float64:
					x = t
				case int64:
					x = float64(t)
				}
				inst.Set(specs[c], r, base.PackFloatToBytes(x))
			default:
				s := ""
				if v != nil {
					s = frame.FormatValue(v, "")
				}
				inst.Set(specs[c], r, attrs[c].GetSysValFromString(s))
			}
		}
	}
	// Heuristic: last column as class
	if len(attrs) > 0 {
		if err := inst.AddClassAttribute(attrs[len(attrs)-1]); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// FromDenseInstances converts golearn DenseInstances into a Frame. Float
// attributes become float columns (NaN reads as null); all other attributes
// become string columns of their categorical values.
func FromDenseInstances(inst *base.DenseInstances) (*frame.Frame, error) {
	if inst == nil {
		return nil, fmt.Errorf("golearn: nil instances")
	}
	attrs := inst.AllAttributes()
	schema := frame.Schema{Columns: make([]frame.ColumnSchema, len(attrs))}
	specs := make([]base.AttributeSpec, len(attrs))
	for i, a := range attrs {
		k := frame.KindString
		if a.GetType() == base.Float64Type {
			k = frame.KindFloat
		}
		schema.Columns[i] = frame.ColumnSchema{Name: a.GetName(), Type: k, Nullable: true}
		spec, err := inst.GetAttribute(a)
		if err != nil {
			return nil, fmt.Errorf("golearn: attribute %s: %w", a.GetName(), err)
		}
		specs[i] = spec
	}
	f := frame.NewFrame(schema)
	_, nrows := inst.Size()
	for r := 0; r < nrows; r++ {
		f.AppendNullRow()
		for c, cs := range schema.Columns {
			raw := inst.Get(specs[c], r)
			var v any
			if cs.Type == frame.KindFloat {
				v = base.UnpackBytesToFloat(raw)
			} else {
				v = specs[c].GetAttribute().GetStringFromSysVal(raw)
			}
			if err := f.SetCellAt(r, c, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}
