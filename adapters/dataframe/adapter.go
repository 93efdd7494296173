// Package dataframe builds a frame.Frame from a rocketlaunchr/dataframe-go
// DataFrame.
package dataframe

import (
	"fmt"
	"time"

	dfgo "github.com/rocketlaunchr/dataframe-go"

	"github.com/wdm0006/freqtab/pkg/frame"
)

// FromDataFrame copies df into a Frame, one column per series in order.
// string, int64, float64 and time series map to typed columns; any other
// series type becomes an untyped column. nil values are nulls.
func FromDataFrame(df *dfgo.DataFrame) (*frame.Frame, error) {
	if df == nil {
		return nil, fmt.Errorf("dataframe: nil data frame")
	}
	df.Lock()
	defer df.Unlock()
	opts := dfgo.Options{DontLock: true}

	cols := make([]frame.Column, len(df.Series))
	for i, s := range df.Series {
		name := s.Name(opts)
		n := s.NRows(opts)
		var col frame.Column
		switch s.Type() {
		case "string":
			col = frame.NewStringColumn(name, 0)
		case "int64":
			col = frame.NewIntColumn(name, 0)
		case "float64":
			col = frame.NewFloatColumn(name, 0)
		case "time":
			col = frame.NewTimeColumn(name, 0)
		default:
			col = frame.NewAnyColumn(name, 0)
		}
		for r := 0; r < n; r++ {
			if err := appendValue(col, s.Value(r, opts)); err != nil {
				return nil, fmt.Errorf("dataframe: series %s row %d: %w", name, r, err)
			}
		}
		cols[i] = col
	}
	return frame.FromColumns(cols...)
}

func appendValue(col frame.Column, v any) error {
	if v == nil {
		switch c := col.(type) {
		case *frame.StringColumn:
			c.AppendNull()
		case *frame.IntColumn:
			c.AppendNull()
		case *frame.FloatColumn:
			c.AppendNull()
		case *frame.TimeColumn:
			c.AppendNull()
		case *frame.AnyColumn:
			c.AppendNull()
		}
		return nil
	}
	switch c := col.(type) {
	case *frame.AnyColumn:
		c.Append(v)
		return nil
	case *frame.StringColumn:
		if s, ok := v.(string); ok {
			c.Append(s)
			return nil
		}
	case *frame.IntColumn:
		if x, ok := v.(int64); ok {
			c.Append(x)
			return nil
		}
	case *frame.FloatColumn:
		if x, ok := v.(float64); ok {
			c.Append(x)
			return nil
		}
	case *frame.TimeColumn:
		if x, ok := v.(time.Time); ok {
			c.Append(x)
			return nil
		}
	}
	return fmt.Errorf("unexpected %T for %s column", v, col.Kind())
}
