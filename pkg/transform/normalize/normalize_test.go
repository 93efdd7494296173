package normalize

import (
	"context"
	"testing"

	"github.com/wdm0006/freqtab/pkg/frame"
)

func TestTrimLowerReplaceMap(t *testing.T) {
	s := frame.Schema{Columns: []frame.ColumnSchema{{Name: "s", Type: frame.KindString, Nullable: true}}}
	f := frame.NewFrame(s)
	for i := 0; i < 3; i++ {
		f.AppendNullRow()
	}
	col, _ := f.ColumnByName("s")
	c := col.(*frame.StringColumn)
	c.Set(0, "  Foo  ")
	c.Set(1, "BAR")
	// row 2 null

	tf1 := &Trim{Column: "s"}
	if _, err := tf1.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	v, _ := c.Get(0)
	if v != "Foo" {
		t.Fatalf("trim failed, got %q", v)
	}

	tf2 := &Lower{Column: "s"}
	if _, err := tf2.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	v0, _ := c.Get(0)
	v1, _ := c.Get(1)
	if v0 != "foo" || v1 != "bar" {
		t.Fatalf("lower failed, got %q %q", v0, v1)
	}

	tf3 := &RegexReplace{Column: "s", Pattern: "o+", Replace: "O"}
	if _, err := tf3.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	v0, _ = c.Get(0)
	if v0 != "fO" {
		t.Fatalf("regex replace failed, got %q", v0)
	}

	tf4 := &MapValues{Column: "s", Map: map[string]string{"bar": "baz"}}
	if _, err := tf4.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	v1, _ = c.Get(1)
	if v1 != "baz" {
		t.Fatalf("map values failed, got %q", v1)
	}
	if !c.IsNull(2) {
		t.Fatal("null row should stay null")
	}
}

func TestAllColumnsAndAny(t *testing.T) {
	a := frame.NewStringColumn("a", 0)
	a.Append(" X ")
	m := frame.NewAnyColumn("m", 0)
	m.Append(" Y ")
	n := frame.NewIntColumn("n", 0)
	n.Append(4)
	f, err := frame.FromColumns(a, m, n)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := (&Trim{}).Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if v, _ := a.Get(0); v != "X" {
		t.Fatalf("string column not trimmed: %q", v)
	}
	if v := m.Value(0); v != "Y" {
		t.Fatalf("any column not trimmed: %v", v)
	}
}

func TestRegexReplaceBadPattern(t *testing.T) {
	f := frame.NewFrame(frame.Schema{})
	if _, err := (&RegexReplace{Pattern: "("}).Apply(context.Background(), f); err == nil {
		t.Fatal("expected compile error")
	}
}
