package loader

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/idg10/rxrewrite/catalog"
	"github.com/idg10/rxrewrite/compile"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/push"
)

const averageOfEvens = `
name: average-of-evens
input:
  name: xs
  type: int
body:
  op: Average
  args:
    - op: Where
      args:
        - param: xs
        - func: isEven
`

func buildAndRun[TIn, TOut any](t *testing.T, yamlText string, input []TIn) ([]TOut, *expr.Lambda) {
	t.Helper()
	d, err := Parse([]byte(yamlText))
	if err != nil {
		t.Fatal(err)
	}
	l, err := Build(d, catalog.Push(), catalog.DefaultFuncs())
	if err != nil {
		t.Fatal(err)
	}
	fn, err := compile.Lambda(l)
	if err != nil {
		t.Fatal(err)
	}
	out, err := fn(push.FromSlice(input))
	if err != nil {
		t.Fatal(err)
	}
	got, err := push.Collect(context.Background(), out.(push.Observable[TOut]))
	if err != nil {
		t.Fatal(err)
	}
	return got, l
}

func TestParseAndBuild(t *testing.T) {
	got, l := buildAndRun[int, float64](t, averageOfEvens, []int{1, 2, 3, 4})
	if diff := cmp.Diff([]float64{3}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if want := "xs => Average(Where(xs, <func(int) bool>))"; l.String() != want {
		t.Errorf("String() = %q, want %q", l.String(), want)
	}
}

func TestValues(t *testing.T) {
	const take = `
name: first-two
input: {type: int}
body:
  op: Take
  args: [{param: xs}, {value: 2}]
`
	got, _ := buildAndRun[int, int](t, take, []int{7, 8, 9})
	if diff := cmp.Diff([]int{7, 8}, got); diff != "" {
		t.Errorf("take (-want +got):\n%s", diff)
	}

	const fallback = `
name: fallback
input: {name: prices, type: float64}
body:
  op: DefaultIfEmpty
  args: [{param: prices}, {value: 1, type: float64}]
`
	gotF, _ := buildAndRun[float64, float64](t, fallback, nil)
	if diff := cmp.Diff([]float64{1}, gotF); diff != "" {
		t.Errorf("fallback (-want +got):\n%s", diff)
	}

	const big = `
name: floor
input: {type: int64}
body:
  op: DefaultIfEmpty
  args: [{param: xs}, {value: "9000000000", type: int64}]
`
	gotI, _ := buildAndRun[int64, int64](t, big, nil)
	if diff := cmp.Diff([]int64{9000000000}, gotI); diff != "" {
		t.Errorf("int64 (-want +got):\n%s", diff)
	}
}

func TestConvertNumbers(t *testing.T) {
	tests := []struct {
		name    string
		v       any
		typ     string
		want    any
		wantErr bool
	}{
		{"json integer untyped", json.Number("3"), "", 3, false},
		{"json float untyped", json.Number("3.0"), "", 3.0, false},
		{"json exponent untyped", json.Number("1e2"), "", 100.0, false},
		{"json integer as int64", json.Number("9000000000"), "int64", int64(9000000000), false},
		{"json integer as float64", json.Number("1"), "float64", 1.0, false},
		{"json fraction as int", json.Number("2.5"), "int", nil, true},
		{"yaml integer untyped", 3, "", 3, false},
		{"float at int64 minimum", float64(math.MinInt64), "int64", int64(math.MinInt64), false},
		{"float at 2^63", float64(math.MaxInt64), "int64", nil, true},
		{"float below int64 range", -1e19, "int64", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convert(tt.v, tt.typ)
			if tt.wantErr {
				if !apperrors.IsCode(err, apperrors.ErrCodeMalformedExpression) {
					t.Fatalf("err = %v, want MALFORMED_EXPRESSION", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown operator", `{name: p, input: {type: int}, body: {op: Median, args: [{param: xs}]}}`},
		{"unknown function", `{name: p, input: {type: int}, body: {op: Where, args: [{param: xs}, {func: isPrime}]}}`},
		{"unbound parameter", `{name: p, input: {type: int}, body: {op: Count, args: [{param: ys}]}}`},
		{"two kinds", `{name: p, input: {type: int}, body: {op: Count, param: xs}}`},
		{"empty node", `{name: p, input: {type: int}, body: {}}`},
		{"args on param", `{name: p, input: {type: int}, body: {param: xs, args: [{param: xs}]}}`},
		{"type without value", `{name: p, input: {type: int}, body: {param: xs, type: int}}`},
		{"missing input type", `{name: p, input: {name: xs}, body: {param: xs}}`},
		{"bad input name", `{name: p, input: {name: 1x, type: int}, body: {param: 1x}}`},
		{"no operator for shapes", `{name: p, input: {type: int}, body: {op: Where, args: [{param: xs}, {value: 3}]}}`},
		{"bad value", `{name: p, input: {type: int}, body: {op: Take, args: [{param: xs}, {value: 2.5, type: int}]}}`},
		{"unsupported value type", `{name: p, input: {type: int}, body: {op: Take, args: [{param: xs}, {value: 2, type: uint8}]}}`},
		{"no input reference", `{name: p, input: {type: int}, body: {value: 2}}`},
		{"unknown element type", `{name: p, input: {type: complex128}, body: {op: Count, args: [{param: xs}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatal(err)
			}
			_, err = Build(d, catalog.Push(), catalog.DefaultFuncs())
			if !apperrors.IsCode(err, apperrors.ErrCodeMalformedExpression) {
				t.Fatalf("err = %v, want MALFORMED_EXPRESSION", err)
			}
		})
	}
}

func TestBuildErrorNamesPipeline(t *testing.T) {
	d, err := Parse([]byte(`{name: broken, input: {type: int}, body: {op: Median, args: [{param: xs}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = Build(d, catalog.Push(), nil)
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Details["pipeline"] != "broken" {
		t.Errorf("err = %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{"", "name: [", "name: p\nnodes: []\n"} {
		if _, err := Parse([]byte(text)); !apperrors.IsCode(err, apperrors.ErrCodeMalformedExpression) {
			t.Errorf("Parse(%q) = %v", text, err)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "average-of-evens.yaml"), averageOfEvens)
	writeFile(t, filepath.Join(dir, "nested", "counts.yml"), `{input: {type: int}, body: {op: Count, args: [{param: xs}]}}`)
	writeFile(t, filepath.Join(dir, "README.md"), "not a definition")

	l := NewFileLoader(filepath.Join(dir, "missing"), dir)

	d, err := l.Load("average-of-evens")
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "average-of-evens" || d.ParamName() != "xs" {
		t.Errorf("definition = %+v", d)
	}

	d, err = l.Load("counts")
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "counts" {
		t.Errorf("unnamed definition should take its file name, got %q", d.Name)
	}
	if d.ParamName() != DefaultParam {
		t.Errorf("ParamName() = %q", d.ParamName())
	}

	if _, err := l.Load("median"); !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("missing definition: %v", err)
	}

	names, err := l.List()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"average-of-evens", "counts"}, names); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestBundledPipelines(t *testing.T) {
	l := NewFileLoader(filepath.Join("..", "pipelines"))
	names, err := l.List()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"average-evens", "fallback-price", "top-squares"}, names); diff != "" {
		t.Fatalf("List (-want +got):\n%s", diff)
	}
	for _, name := range names {
		d, err := l.Load(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Build(d, catalog.Push(), catalog.DefaultFuncs()); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	d, err := l.Load("top-squares")
	if err != nil {
		t.Fatal(err)
	}
	lambda, err := Build(d, catalog.Push(), catalog.DefaultFuncs())
	if err != nil {
		t.Fatal(err)
	}
	fn, err := compile.Lambda(lambda)
	if err != nil {
		t.Fatal(err)
	}
	out, err := fn(push.FromSlice([]int{-1, 2, 3, 4, 5}))
	if err != nil {
		t.Fatal(err)
	}
	got, err := push.Collect(context.Background(), out.(push.Observable[int]))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{4, 9, 16, 8, 10}, got); diff != "" {
		t.Errorf("top-squares (-want +got):\n%s", diff)
	}
}
