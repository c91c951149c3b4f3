package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/idg10/rxrewrite/errors"
)

// recorder captures notifications in order.
type recorder[T any] struct {
	values    []T
	err       error
	completed bool
	events    int
}

func (r *recorder[T]) OnNext(v T) {
	r.values = append(r.values, v)
	r.events++
}

func (r *recorder[T]) OnError(err error) {
	r.err = err
	r.events++
}

func (r *recorder[T]) OnCompleted() {
	r.completed = true
	r.events++
}

// manual is a source driven by the test, which also tracks disposal.
type manual[T any] struct {
	observer Observer[T]
	disposed int
}

func (m *manual[T]) Subscribe(o Observer[T]) (Disposable, error) {
	m.observer = o
	return NewDisposable(func() { m.disposed++ }), nil
}

func TestSelectWhere(t *testing.T) {
	src := FromSlice([]int{1, 2, 3, 4, 5, 6})
	out := Select(Where(src, func(n int) bool { return n%2 == 0 }), func(n int) string {
		return string(rune('a' + n))
	})

	got, err := Collect(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"c", "e", "g"}, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestTakeSkip(t *testing.T) {
	tests := []struct {
		name string
		pipe func(Observable[int]) Observable[int]
		want []int
	}{
		{"take 2", func(s Observable[int]) Observable[int] { return Take(s, 2) }, []int{1, 2}},
		{"take more than available", func(s Observable[int]) Observable[int] { return Take(s, 10) }, []int{1, 2, 3, 4}},
		{"take 0", func(s Observable[int]) Observable[int] { return Take(s, 0) }, nil},
		{"skip 3", func(s Observable[int]) Observable[int] { return Skip(s, 3) }, []int{4}},
		{"skip all", func(s Observable[int]) Observable[int] { return Skip(s, 9) }, nil},
		{"skip then take", func(s Observable[int]) Observable[int] { return Take(Skip(s, 1), 2) }, []int{2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Collect(context.Background(), tc.pipe(FromSlice([]int{1, 2, 3, 4})))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestTakeZeroDoesNotSubscribe(t *testing.T) {
	src := &manual[int]{}
	rec := &recorder[int]{}
	if _, err := Take[int](src, 0).Subscribe(rec); err != nil {
		t.Fatal(err)
	}
	if src.observer != nil {
		t.Error("Take(0) subscribed to its source")
	}
	if !rec.completed {
		t.Error("Take(0) did not complete")
	}
}

func TestTakeDetachesUpstream(t *testing.T) {
	src := &manual[int]{}
	rec := &recorder[int]{}
	if _, err := Take[int](src, 1).Subscribe(rec); err != nil {
		t.Fatal(err)
	}

	src.observer.OnNext(7)
	src.observer.OnNext(8)

	if diff := cmp.Diff([]int{7}, rec.values); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if !rec.completed {
		t.Error("expected completion after first value")
	}
	if src.disposed != 1 {
		t.Errorf("upstream disposed %d times, want 1", src.disposed)
	}
}

func TestConcat(t *testing.T) {
	got, err := Collect(context.Background(), Concat(FromSlice([]int{1, 2}), FromSlice([]int{3})))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestConcatSubscribesSecondAfterFirst(t *testing.T) {
	first, second := &manual[int]{}, &manual[int]{}
	rec := &recorder[int]{}
	d, err := Concat[int](first, second).Subscribe(rec)
	if err != nil {
		t.Fatal(err)
	}
	if second.observer != nil {
		t.Fatal("second source subscribed before first completed")
	}

	first.observer.OnNext(1)
	first.observer.OnCompleted()
	if second.observer == nil {
		t.Fatal("second source not subscribed")
	}
	if first.disposed != 1 {
		t.Errorf("first disposed %d times, want 1", first.disposed)
	}

	second.observer.OnNext(2)
	d.Dispose()
	second.observer.OnNext(3)

	if diff := cmp.Diff([]int{1, 2}, rec.values); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if second.disposed != 1 {
		t.Errorf("second disposed %d times, want 1", second.disposed)
	}
}

func TestAggregates(t *testing.T) {
	ctx := context.Background()
	ints := FromSlice([]int{3, 4, 2})

	avg, err := Collect(ctx, Average(ints))
	if err != nil || len(avg) != 1 || avg[0] != 3.0 {
		t.Errorf("Average = %v, %v", avg, err)
	}
	sum, err := Collect(ctx, Sum(ints))
	if err != nil || len(sum) != 1 || sum[0] != 9 {
		t.Errorf("Sum = %v, %v", sum, err)
	}
	count, err := Collect(ctx, Count(ints))
	if err != nil || len(count) != 1 || count[0] != 3 {
		t.Errorf("Count = %v, %v", count, err)
	}
	lo, err := Collect(ctx, Min(ints))
	if err != nil || len(lo) != 1 || lo[0] != 2 {
		t.Errorf("Min = %v, %v", lo, err)
	}
	hi, err := Collect(ctx, Max(FromSlice([]string{"b", "c", "a"})))
	if err != nil || len(hi) != 1 || hi[0] != "c" {
		t.Errorf("Max = %v, %v", hi, err)
	}
}

func TestAggregatesOnEmpty(t *testing.T) {
	ctx := context.Background()

	if _, err := Collect(ctx, Average(Empty[int]())); !errors.Is(err, apperrors.ErrNoElements) {
		t.Errorf("Average(empty) err = %v", err)
	}
	if _, err := Collect(ctx, Min(Empty[float64]())); !errors.Is(err, apperrors.ErrNoElements) {
		t.Errorf("Min(empty) err = %v", err)
	}
	if _, err := Collect(ctx, Max(Empty[string]())); !errors.Is(err, apperrors.ErrNoElements) {
		t.Errorf("Max(empty) err = %v", err)
	}
	sum, err := Collect(ctx, Sum(Empty[int64]()))
	if err != nil || len(sum) != 1 || sum[0] != 0 {
		t.Errorf("Sum(empty) = %v, %v", sum, err)
	}
	count, err := Collect(ctx, Count(Empty[string]()))
	if err != nil || len(count) != 1 || count[0] != 0 {
		t.Errorf("Count(empty) = %v, %v", count, err)
	}
}

func TestDefaultIfEmpty(t *testing.T) {
	ctx := context.Background()

	got, _ := Collect(ctx, DefaultIfEmpty(Empty[int](), 42))
	if diff := cmp.Diff([]int{42}, got); diff != "" {
		t.Errorf("empty: (-want +got):\n%s", diff)
	}
	got, _ = Collect(ctx, DefaultIfEmpty(FromSlice([]int{1}), 42))
	if diff := cmp.Diff([]int{1}, got); diff != "" {
		t.Errorf("non-empty: (-want +got):\n%s", diff)
	}
}

func TestErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	src := Concat(FromSlice([]int{1}), Throw[int](boom))
	rec := &recorder[float64]{}
	if _, err := Average(Where(src, func(int) bool { return true })).Subscribe(rec); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(rec.err, boom) {
		t.Errorf("err = %v, want boom", rec.err)
	}
	if rec.completed || len(rec.values) != 0 {
		t.Errorf("unexpected notifications: %+v", rec)
	}
}

func TestNothingAfterTerminal(t *testing.T) {
	src := &manual[int]{}
	rec := &recorder[int]{}
	if _, err := Select[int, int](src, func(n int) int { return n }).Subscribe(rec); err != nil {
		t.Fatal(err)
	}

	src.observer.OnCompleted()
	src.observer.OnNext(1)
	src.observer.OnError(errors.New("late"))
	src.observer.OnCompleted()

	if rec.events != 1 || !rec.completed {
		t.Errorf("expected exactly one completion, got %+v", rec)
	}
	if src.disposed != 1 {
		t.Errorf("upstream disposed %d times, want 1", src.disposed)
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	src := &manual[int]{}
	d, err := Where[int](src, func(int) bool { return true }).Subscribe(&recorder[int]{})
	if err != nil {
		t.Fatal(err)
	}
	d.Dispose()
	d.Dispose()
	if src.disposed != 1 {
		t.Errorf("upstream disposed %d times, want 1", src.disposed)
	}
}

func TestSubscribeErrorIsReturned(t *testing.T) {
	boom := errors.New("cannot subscribe")
	src := ObservableFunc[int](func(Observer[int]) (Disposable, error) { return nil, boom })
	if _, err := Take(src, 1).Subscribe(&recorder[int]{}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestSingleAssignmentDisposedBeforeSet(t *testing.T) {
	var sa SingleAssignment
	sa.Dispose()

	disposed := false
	sa.Set(NewDisposable(func() { disposed = true }))
	if !disposed {
		t.Error("late assignment was not disposed")
	}
	if !sa.IsDisposed() {
		t.Error("IsDisposed() = false")
	}
}

func TestSingleAssignmentSetTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	var sa SingleAssignment
	sa.Set(Nop)
	sa.Set(Nop)
}

func TestSerial(t *testing.T) {
	var s Serial
	var first, second, third bool
	s.Set(NewDisposable(func() { first = true }))
	s.Set(NewDisposable(func() { second = true }))
	if !first || second {
		t.Fatalf("replacing did not dispose previous: first=%v second=%v", first, second)
	}
	s.Dispose()
	s.Set(NewDisposable(func() { third = true }))
	if !second || !third {
		t.Errorf("after Dispose: second=%v third=%v", second, third)
	}
}

func TestCollectHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := Collect(ctx, Never[int]()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestTakeOverSynchronousSource(t *testing.T) {
	rec := &recorder[int]{}
	d, err := Take(FromSlice([]int{1, 2, 3}), 2).Subscribe(rec)
	if err != nil {
		t.Fatal(err)
	}
	d.Dispose()

	if diff := cmp.Diff([]int{1, 2}, rec.values); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if !rec.completed {
		t.Error("expected completion")
	}
}
