package expr

import (
	"strings"
	"testing"

	apperrors "github.com/idg10/rxrewrite/errors"
)

// --- test helpers ---

type fakeResolver struct {
	model Model
	ops   map[string]*Operator
}

func newFakeResolver(m Model, ops ...*Operator) *fakeResolver {
	r := &fakeResolver{model: m, ops: make(map[string]*Operator)}
	for _, op := range ops {
		r.ops[op.Key()] = op
	}
	return r
}

func (r *fakeResolver) Model() Model { return r.model }

func (r *fakeResolver) Has(name string) bool {
	for _, op := range r.ops {
		if op.Name == name {
			return true
		}
	}
	return false
}

func (r *fakeResolver) Resolve(name string, shapes []Shape) (*Operator, error) {
	if op, ok := r.ops[SignatureKey(name, shapes)]; ok {
		return op, nil
	}
	return nil, apperrors.NoMatchingOperator(r.model.String(), name, ShapeStrings(shapes))
}

func noopImpl(args []any) (any, error) { return args[0], nil }

func pushOps() *fakeResolver {
	ints := StreamOf[int](Push)
	return newFakeResolver(Push,
		&Operator{Name: "Average", Params: []Shape{ints}, Result: StreamOf[float64](Push), Impl: noopImpl},
		&Operator{Name: "Where", Params: []Shape{ints, ScalarOf[func(int) bool]()}, Result: ints, Impl: noopImpl},
		&Operator{Name: "Take", Params: []Shape{ints, ScalarOf[int]()}, Result: ints, Impl: noopImpl},
		&Operator{Name: "Concat", Params: []Shape{ints, ints}, Result: ints, Impl: noopImpl},
		&Operator{Name: "Repeat", Params: []Shape{ScalarOf[int]()}, Result: ints, Impl: noopImpl},
	)
}

// --- Shape tests ---

func TestShape_String(t *testing.T) {
	tests := []struct {
		shape Shape
		want  string
	}{
		{StreamOf[int](Push), "stream[int]"},
		{StreamOf[int](AsyncPush), "async-stream[int]"},
		{ScalarOf[func(int) bool](), "scalar[func(int) bool]"},
		{Shape{}, "unknown"},
	}
	for _, tc := range tests {
		if got := tc.shape.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestShape_In(t *testing.T) {
	s := StreamOf[int](Push).In(AsyncPush)
	if s.Model != AsyncPush || s.Type != "int" || !s.IsStream() {
		t.Errorf("unexpected re-tagged shape %+v", s)
	}
	scalar := ScalarOf[int]()
	if scalar.In(AsyncPush) != scalar {
		t.Error("scalar shapes must not change model")
	}
}

func TestModel_String(t *testing.T) {
	if Push.String() != "push" || AsyncPush.String() != "async-push" {
		t.Errorf("unexpected model names %s, %s", Push, AsyncPush)
	}
	if Model(0).Valid() {
		t.Error("zero model should be invalid")
	}
}

// --- Builder tests ---

func TestBuilder_Average(t *testing.T) {
	b := NewBuilder(pushOps())
	xs := b.Param("xs", StreamOf[int](Push))
	l, err := b.Build(b.Call("Average", xs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Param() != xs {
		t.Error("lambda should bind the declared parameter")
	}
	if l.Input() != StreamOf[int](Push) {
		t.Errorf("input = %s", l.Input())
	}
	if l.Output() != StreamOf[float64](Push) {
		t.Errorf("output = %s", l.Output())
	}
	if l.String() != "xs => Average(xs)" {
		t.Errorf("String() = %q", l.String())
	}
}

func TestBuilder_Identity(t *testing.T) {
	b := NewBuilder(pushOps())
	xs := b.Param("xs", StreamOf[int](Push))
	l, err := b.Build(xs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if CountCalls(l.Body()) != 0 {
		t.Error("identity pipeline has no calls")
	}
}

func TestBuilder_ScalarArgumentsAreWrapped(t *testing.T) {
	b := NewBuilder(pushOps())
	xs := b.Param("xs", StreamOf[int](Push))
	body := b.Call("Take", b.Call("Where", xs, func(v int) bool { return v > 0 }), 2)
	l, err := b.Build(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Format(l.Body()); got != "Take(Where(xs, <func(int) bool>), 2)" {
		t.Errorf("Format = %q", got)
	}
	call := l.Body().(*Call)
	if call.Arg(1).Shape != ScalarOf[int]() {
		t.Errorf("declared shape of count = %s", call.Arg(1).Shape)
	}
}

func TestBuilder_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder) Node
		want  string
	}{
		{
			name: "unknown operator",
			build: func(b *Builder) Node {
				return b.Call("Frobnicate", b.Param("xs", StreamOf[int](Push)))
			},
			want: "not a push pipeline operator",
		},
		{
			name: "no signature for shapes",
			build: func(b *Builder) Node {
				return b.Call("Average", b.Param("xs", StreamOf[string](Push)))
			},
			want: "cannot apply Average(stream[string])",
		},
		{
			name: "untyped nil argument",
			build: func(b *Builder) Node {
				return b.Call("Where", b.Param("xs", StreamOf[int](Push)), nil)
			},
			want: "untyped nil has no shape",
		},
		{
			name: "two free parameters",
			build: func(b *Builder) Node {
				return b.Call("Concat", b.Param("xs", StreamOf[int](Push)), b.Param("ys", StreamOf[int](Push)))
			},
			want: "2 free parameters (xs, ys)",
		},
		{
			name: "no free parameter",
			build: func(b *Builder) Node {
				return b.Call("Repeat", 3)
			},
			want: "does not reference an input parameter",
		},
		{
			name: "parameter in wrong model",
			build: func(b *Builder) Node {
				return b.Param("xs", StreamOf[int](AsyncPush))
			},
			want: "must be a push stream",
		},
		{
			name: "scalar parameter",
			build: func(b *Builder) Node {
				return b.Param("n", ScalarOf[int]())
			},
			want: "must be a push stream",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder(pushOps())
			_, err := b.Build(tc.build(b))
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperrors.IsCode(err, apperrors.ErrCodeMalformedExpression) {
				t.Errorf("expected MALFORMED_EXPRESSION, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestBuilder_NoMatchKeepsCause(t *testing.T) {
	b := NewBuilder(pushOps())
	_, err := b.Build(b.Call("Average", b.Param("xs", StreamOf[string](Push))))
	if !apperrors.IsCode(err, apperrors.ErrCodeNoMatchingOperator) {
		t.Errorf("expected NO_MATCHING_OPERATOR cause, got %v", err)
	}
}

func TestBuilder_FirstErrorWins(t *testing.T) {
	b := NewBuilder(pushOps())
	xs := b.Param("xs", StreamOf[int](Push))
	b.Call("Nope", xs)
	b.Call("Alsonope", xs)
	if !strings.Contains(b.Err().Error(), "Nope") {
		t.Errorf("expected first error to be kept, got %v", b.Err())
	}
}

// --- Lambda and traversal tests ---

func TestNewLambda_UnboundParameter(t *testing.T) {
	ops := pushOps()
	b := NewBuilder(ops)
	xs := b.Param("xs", StreamOf[int](Push))
	other := NewParameter("ys", StreamOf[int](Push))
	body := b.Call("Average", other)
	if _, err := NewLambda(xs, body); err == nil || !strings.Contains(err.Error(), "unbound parameter") {
		t.Errorf("expected unbound parameter error, got %v", err)
	}
}

func TestWalkAndCount(t *testing.T) {
	b := NewBuilder(pushOps())
	xs := b.Param("xs", StreamOf[int](Push))
	body := b.Call("Concat", b.Call("Take", xs, 1), b.Call("Where", xs, func(int) bool { return true }))
	l, err := b.Build(body)
	if err != nil {
		t.Fatal(err)
	}
	if n := CountCalls(l.Body()); n != 3 {
		t.Errorf("CountCalls = %d, want 3", n)
	}
	if free := FreeParameters(l.Body()); len(free) != 1 || free[0] != xs {
		t.Errorf("FreeParameters = %v", free)
	}

	var visited []string
	Walk(l.Body(), func(n Node) bool {
		if c, ok := n.(*Call); ok {
			visited = append(visited, c.Name())
			return c.Name() != "Take"
		}
		return true
	})
	if strings.Join(visited, ",") != "Concat,Take,Where" {
		t.Errorf("visit order = %v", visited)
	}
}

func TestDescribe(t *testing.T) {
	b := NewBuilder(pushOps())
	xs := b.Param("xs", StreamOf[int](Push))
	l, err := b.Build(b.Call("Take", xs, 2))
	if err != nil {
		t.Fatal(err)
	}
	tree := Describe(l.Body())
	if tree.Kind != "call" || tree.Name != "Take" || tree.Shape != "stream[int]" {
		t.Errorf("unexpected root %+v", tree)
	}
	if len(tree.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(tree.Args))
	}
	if tree.Args[0].Kind != "parameter" || tree.Args[0].Name != "xs" {
		t.Errorf("unexpected first arg %+v", tree.Args[0])
	}
	if tree.Args[1].Value != "2" || tree.Args[1].Shape != "scalar[int]" {
		t.Errorf("unexpected second arg %+v", tree.Args[1])
	}
}
