package compile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/idg10/rxrewrite/asyncpush"
	"github.com/idg10/rxrewrite/catalog"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/push"
	"github.com/idg10/rxrewrite/rewrite"
)

func evens(t *testing.T) *expr.Lambda {
	t.Helper()
	b := expr.NewBuilder(catalog.Push())
	xs := b.Param("xs", expr.StreamOf[int](expr.Push))
	l, err := b.Build(b.Call("Take", b.Call("Where", xs, func(n int) bool { return n%2 == 0 }), 2))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestCompileRewritten(t *testing.T) {
	p, err := rewrite.New(catalog.AsyncPush()).Rewrite(evens(t))
	if err != nil {
		t.Fatal(err)
	}
	fn, err := Compile(p)
	if err != nil {
		t.Fatal(err)
	}

	run := Typed[asyncpush.Observable[int], asyncpush.Observable[int]](fn)
	out, err := run(asyncpush.FromSlice([]int{1, 2, 3, 4, 5, 6}))
	if err != nil {
		t.Fatal(err)
	}
	got, err := asyncpush.Collect(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 4}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCompileDirect(t *testing.T) {
	fn, err := Lambda(evens(t))
	if err != nil {
		t.Fatal(err)
	}

	// Compiled pipelines are reusable.
	for i := 0; i < 2; i++ {
		out, err := Typed[push.Observable[int], push.Observable[int]](fn)(push.FromSlice([]int{2, 3, 4, 6}))
		if err != nil {
			t.Fatal(err)
		}
		got, err := push.Collect(context.Background(), out)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]int{2, 4}, got); diff != "" {
			t.Errorf("run %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestCompileConcurrentInvocation(t *testing.T) {
	fn, err := Lambda(evens(t))
	if err != nil {
		t.Fatal(err)
	}
	run := Typed[push.Observable[int], push.Observable[int]](fn)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := run(push.FromSlice([]int{i * 2, i*2 + 1}))
			if err != nil {
				t.Error(err)
				return
			}
			got, err := push.Collect(context.Background(), out)
			if err != nil || len(got) != 1 || got[0] != i*2 {
				t.Errorf("worker %d: %v, %v", i, got, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestCompileEvaluatesInnermostFirst(t *testing.T) {
	var order []string
	record := func(name string) expr.Impl {
		return func(args []any) (any, error) {
			order = append(order, name)
			return name, nil
		}
	}
	s := expr.StreamOf[int](expr.Push)
	xs := expr.NewParameter("xs", s)
	inner := expr.NewCall("Inner", []expr.Arg{{Node: xs, Shape: s}}, s, record("inner"))
	outer := expr.NewCall("Outer", []expr.Arg{{Node: inner, Shape: s}}, s, record("outer"))
	l, err := expr.NewLambda(xs, outer)
	if err != nil {
		t.Fatal(err)
	}

	fn, err := Lambda(l)
	if err != nil {
		t.Fatal(err)
	}
	out, err := fn("input")
	if err != nil || out != "outer" {
		t.Fatalf("fn() = %v, %v", out, err)
	}
	if diff := cmp.Diff([]string{"inner", "outer"}, order); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCompileRejectsMalformedTrees(t *testing.T) {
	s := expr.StreamOf[int](expr.Push)
	xs := expr.NewParameter("xs", s)
	noImpl := expr.NewCall("Orphan", []expr.Arg{{Node: xs, Shape: s}}, s, nil)
	l, err := expr.NewLambda(xs, noImpl)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Lambda(l); !apperrors.IsCode(err, apperrors.ErrCodeMalformedExpression) {
		t.Errorf("missing handle: %v", err)
	}
	if _, err := Lambda(nil); !apperrors.IsCode(err, apperrors.ErrCodeMalformedExpression) {
		t.Errorf("nil lambda: %v", err)
	}
	if _, err := Compile(nil); !apperrors.IsCode(err, apperrors.ErrCodeMalformedExpression) {
		t.Errorf("nil pipeline: %v", err)
	}
}

func TestInvocationErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	s := expr.StreamOf[int](expr.Push)
	xs := expr.NewParameter("xs", s)
	fail := expr.NewCall("Fail", []expr.Arg{{Node: xs, Shape: s}}, s, func([]any) (any, error) { return nil, boom })
	l, _ := expr.NewLambda(xs, fail)

	fn, err := Lambda(l)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fn(nil); !errors.Is(err, boom) || err.Error() != "Fail: boom" {
		t.Errorf("err = %v", err)
	}
}

func TestTypedRejectsWrongOutput(t *testing.T) {
	fn, err := Lambda(evens(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = Typed[push.Observable[int], push.Observable[string]](fn)(push.FromSlice([]int{1}))
	if !apperrors.IsCode(err, apperrors.ErrCodeInternal) {
		t.Errorf("expected INTERNAL_ERROR, got %v", err)
	}
}
