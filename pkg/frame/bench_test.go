package frame

import (
	"testing"
)

func makeFrame(rows int) *Frame {
	s := Schema{Columns: []ColumnSchema{{Name: "a", Type: KindFloat, Nullable: true}, {Name: "b", Type: KindInt, Nullable: true}, {Name: "s", Type: KindString, Nullable: true}}}
	f := NewFrame(s)
	for i := 0; i < rows; i++ {
		f.AppendNullRow()
		_ = f.SetCell(i, "a", float64(i%100)/3)
		_ = f.SetCell(i, "b", int64(i%10))
		_ = f.SetCell(i, "s", "x")
	}
	return f
}

func BenchmarkFormatValue(b *testing.B) {
	f := makeFrame(10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, c := range f.Columns() {
			for r := 0; r < c.Len(); r++ {
				_ = FormatValue(c.Value(r), DefaultNullText)
			}
		}
	}
}
