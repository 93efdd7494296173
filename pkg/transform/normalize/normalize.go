// Package normalize holds string clean-up steps that are commonly run before
// tabulating categorical columns, so that "Foo ", "foo" and "FOO" count as
// one value.
package normalize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wdm0006/freqtab/pkg/frame"
)

// mapStrings applies fn to every non-null string cell of the named column, or
// of every column when name is empty. Non-string values in any-typed columns
// are left alone.
func mapStrings(f *frame.Frame, name string, fn func(string) string) {
	for _, col := range f.Columns() {
		if name != "" && col.Name() != name {
			continue
		}
		switch c := col.(type) {
		case *frame.StringColumn:
			for i := 0; i < c.Len(); i++ {
				if v, ok := c.Get(i); ok {
					c.Set(i, fn(v))
				}
			}
		case *frame.AnyColumn:
			for i := 0; i < c.Len(); i++ {
				if v, ok := c.Value(i).(string); ok {
					c.Set(i, fn(v))
				}
			}
		}
	}
}

type Trim struct{ Column string }

func (t *Trim) Name() string { return "trim" }

func (t *Trim) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	mapStrings(f, t.Column, strings.TrimSpace)
	return f, nil
}

type Lower struct{ Column string }

func (t *Lower) Name() string { return "lower" }

func (t *Lower) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	mapStrings(f, t.Column, strings.ToLower)
	return f, nil
}

type RegexReplace struct {
	Column  string
	Pattern string
	Replace string
	re      *regexp.Regexp
}

func (t *RegexReplace) Name() string { return "regex_replace" }

func (t *RegexReplace) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	if t.re == nil {
		re, err := regexp.Compile(t.Pattern)
		if err != nil {
			return f, fmt.Errorf("regex_replace %q: %w", t.Pattern, err)
		}
		t.re = re
	}
	mapStrings(f, t.Column, func(s string) string { return t.re.ReplaceAllString(s, t.Replace) })
	return f, nil
}

// MapValues replaces exact matches; unmatched values pass through.
type MapValues struct {
	Column string
	Map    map[string]string
}

func (t *MapValues) Name() string { return "map_values" }

func (t *MapValues) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	mapStrings(f, t.Column, func(s string) string {
		if nv, ok := t.Map[s]; ok {
			return nv
		}
		return s
	})
	return f, nil
}
