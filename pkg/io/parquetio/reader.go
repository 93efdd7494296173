package parquetio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	parquet "github.com/segmentio/parquet-go"
	"github.com/segmentio/parquet-go/format"

	"github.com/wdm0006/freqtab/pkg/frame"
)

const readBatch = 1024

// leaf describes how one Parquet leaf column maps onto a Frame column.
type leaf struct {
	name string
	kind frame.Kind
	conv func(parquet.Value) any
}

// Load reads a whole Parquet file into a Frame, one column per leaf column in
// schema order. Nested leaves are named by their dotted path; for repeated
// leaves only the first value of each row is kept.
func Load(path string) (*frame.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	st, err := fh.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(fh, st.Size())
	if err != nil {
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}

	leaves := leavesOf(pf.Schema())
	schema := frame.Schema{Columns: make([]frame.ColumnSchema, len(leaves))}
	for i, l := range leaves {
		schema.Columns[i] = frame.ColumnSchema{Name: l.name, Type: l.kind, Nullable: true}
	}
	f := frame.NewFrame(schema)

	r := parquet.NewReader(pf)
	defer func() { _ = r.Close() }()
	rows := make([]parquet.Row, readBatch)
	for {
		n, err := r.ReadRows(rows)
		for _, row := range rows[:n] {
			f.AppendNullRow()
			setRow(f, f.Rows()-1, leaves, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parquet %s: row %d: %w", path, f.Rows()+1, err)
		}
		if n == 0 {
			break
		}
	}
	return f, nil
}

func setRow(f *frame.Frame, row int, leaves []leaf, values parquet.Row) {
	seen := make([]bool, len(leaves))
	for _, v := range values {
		c := v.Column()
		if c < 0 || c >= len(leaves) || seen[c] {
			continue
		}
		seen[c] = true
		if v.IsNull() {
			continue
		}
		_ = f.SetCellAt(row, c, leaves[c].conv(v))
	}
}

func leavesOf(s *parquet.Schema) []leaf {
	paths := s.Columns()
	leaves := make([]leaf, len(paths))
	for i, path := range paths {
		l := leaf{name: strings.Join(path, "."), kind: frame.KindString, conv: func(v parquet.Value) any { return v.String() }}
		if lc, ok := s.Lookup(path...); ok {
			l.kind, l.conv = converter(lc.Node.Type())
		}
		leaves[i] = l
	}
	return leaves
}

func converter(t parquet.Type) (frame.Kind, func(parquet.Value) any) {
	lt := t.LogicalType()
	switch t.Kind() {
	case parquet.Boolean:
		return frame.KindBool, func(v parquet.Value) any { return v.Boolean() }
	case parquet.Int32:
		if lt != nil && lt.Date != nil {
			return frame.KindTime, func(v parquet.Value) any {
				return time.Unix(int64(v.Int32())*86400, 0).UTC()
			}
		}
		return frame.KindInt, func(v parquet.Value) any { return int64(v.Int32()) }
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			unit := timestampUnit(lt.Timestamp.Unit)
			return frame.KindTime, func(v parquet.Value) any {
				return time.Unix(0, v.Int64()*int64(unit)).UTC()
			}
		}
		return frame.KindInt, func(v parquet.Value) any { return v.Int64() }
	case parquet.Float:
		return frame.KindFloat, func(v parquet.Value) any { return float64(v.Float()) }
	case parquet.Double:
		return frame.KindFloat, func(v parquet.Value) any { return v.Double() }
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return frame.KindString, func(v parquet.Value) any { return string(v.ByteArray()) }
	default:
		// INT96 and anything newer
		return frame.KindString, func(v parquet.Value) any { return v.String() }
	}
}

func timestampUnit(u format.TimeUnit) time.Duration {
	switch {
	case u.Millis != nil:
		return time.Millisecond
	case u.Micros != nil:
		return time.Microsecond
	default:
		return time.Nanosecond
	}
}
