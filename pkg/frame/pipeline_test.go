package frame_test

import (
	"context"
	"errors"
	"testing"

	"github.com/wdm0006/freqtab/pkg/frame"
	"github.com/wdm0006/freqtab/pkg/transform/normalize"
)

type failing struct{}

func (failing) Name() string { return "failing" }
func (failing) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	return nil, errors.New("boom")
}

func TestPipeline(t *testing.T) {
	s := frame.Schema{Columns: []frame.ColumnSchema{{Name: "x", Type: frame.KindFloat, Nullable: true}, {Name: "s", Type: frame.KindString, Nullable: true}}}
	f := frame.NewFrame(s)
	for i := 0; i < 2; i++ {
		f.AppendNullRow()
	}
	_ = f.SetCell(0, "x", 1.0)
	_ = f.SetCell(0, "s", " Foo ")
	// row 1 left nulls

	p := frame.NewPipeline().Add(&normalize.Trim{Column: "s"}).Add(&normalize.Lower{Column: "s"})
	if p.Len() != 2 {
		t.Fatalf("expected 2 steps, got %d", p.Len())
	}
	out, err := p.Run(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	colS, _ := out.ColumnByName("s")
	ss := colS.(*frame.StringColumn)
	s0, _ := ss.Get(0)
	if s0 != "foo" {
		t.Fatalf("trim+lower failed, got %q", s0)
	}
	if !ss.IsNull(1) {
		t.Fatal("null should stay null")
	}
}

func TestPipelineStepError(t *testing.T) {
	f := frame.NewFrame(frame.Schema{})
	_, err := frame.NewPipeline().Add(failing{}).Run(context.Background(), f)
	if err == nil || err.Error() != "step failing: boom" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestPipelineCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := frame.NewFrame(frame.Schema{})
	if _, err := frame.NewPipeline().Add(failing{}).Run(ctx, f); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
