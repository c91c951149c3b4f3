package loader

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/validation"
)

// Definition is a pipeline definition.
type Definition struct {
	Name        string  `yaml:"name" json:"name" validate:"required"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Input       Input   `yaml:"input" json:"input"`
	Body        NodeDef `yaml:"body" json:"body"`
}

// Input declares the pipeline's input stream.
type Input struct {
	// Name is the parameter name. It defaults to "xs".
	Name string `yaml:"name,omitempty" json:"name,omitempty" validate:"omitempty,identifier"`
	// Type is the element type, e.g. "int".
	Type string `yaml:"type" json:"type" validate:"required"`
}

// NodeDef is one node of a definition body.
type NodeDef struct {
	Op    string    `yaml:"op,omitempty" json:"op,omitempty"`
	Args  []NodeDef `yaml:"args,omitempty" json:"args,omitempty"`
	Param string    `yaml:"param,omitempty" json:"param,omitempty"`
	Func  string    `yaml:"func,omitempty" json:"func,omitempty"`
	Value any       `yaml:"value,omitempty" json:"value,omitempty"`
	// Type converts Value, e.g. "int64". Without it the decoded type is used.
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
}

// DefaultParam is the input name used when a definition does not name one.
const DefaultParam = "xs"

// ParamName returns the input parameter name.
func (d *Definition) ParamName() string {
	if d.Input.Name == "" {
		return DefaultParam
	}
	return d.Input.Name
}

// Validate checks the definition's structure without resolving operators.
func (d *Definition) Validate() error {
	if err := validation.Validate(d); err != nil {
		return err
	}
	v := validation.New()
	validateNode(v, "body", d.Body)
	return v.Err()
}

func validateNode(v *validation.Validator, path string, n NodeDef) {
	kinds := 0
	for _, set := range []bool{n.Op != "", n.Param != "", n.Func != "", n.Value != nil} {
		if set {
			kinds++
		}
	}
	v.Custom(kinds == 1, path, "needs exactly one of op, param, func, value")
	v.Custom(n.Op != "" || len(n.Args) == 0, path, "only op nodes take args")
	v.Custom(n.Value != nil || n.Type == "", path, "only value nodes take a type")
	for i, a := range n.Args {
		validateNode(v, fmt.Sprintf("%s.args[%d]", path, i), a)
	}
}

// Funcs resolves named scalar functions.
type Funcs interface {
	Lookup(name string) (any, bool)
}

// Build builds the definition into an expression against r.
func Build(d *Definition, r expr.Resolver, funcs Funcs) (*expr.Lambda, error) {
	if d == nil {
		return nil, apperrors.MalformedExpression("no definition")
	}
	if err := d.Validate(); err != nil {
		return nil, apperrors.MalformedExpression("definition %q is invalid", d.Name).WithCause(err)
	}

	b := expr.NewBuilder(r)
	param := b.Param(d.ParamName(), expr.Stream(r.Model(), d.Input.Type))
	if param == nil {
		return nil, named(d, b.Err())
	}

	body, err := (&builder{b: b, param: param, funcs: funcs}).node(d.Body)
	if err != nil {
		return nil, named(d, err)
	}
	l, err := b.Build(body)
	if err != nil {
		return nil, named(d, err)
	}
	return l, nil
}

func named(d *Definition, err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.WithDetail("pipeline", d.Name)
	}
	return apperrors.MalformedExpression("definition %q: %v", d.Name, err).WithCause(err)
}

type builder struct {
	b     *expr.Builder
	param *expr.Parameter
	funcs Funcs
}

func (bl *builder) node(n NodeDef) (expr.Node, error) {
	switch {
	case n.Param != "":
		if n.Param != bl.param.Name() {
			return nil, apperrors.MalformedExpression("%q is not the pipeline input %q", n.Param, bl.param.Name())
		}
		return bl.param, nil
	case n.Func != "":
		if bl.funcs == nil {
			return nil, apperrors.MalformedExpression("unknown function %q", n.Func)
		}
		fn, ok := bl.funcs.Lookup(n.Func)
		if !ok {
			return nil, apperrors.MalformedExpression("unknown function %q", n.Func)
		}
		return bl.value(fn)
	case n.Value != nil:
		v, err := convert(n.Value, n.Type)
		if err != nil {
			return nil, err
		}
		return bl.value(v)
	default:
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			arg, err := bl.node(a)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		call := bl.b.Call(n.Op, args...)
		if call == nil {
			return nil, bl.b.Err()
		}
		return call, nil
	}
}

func (bl *builder) value(v any) (expr.Node, error) {
	n := bl.b.Value(v)
	if n == nil {
		return nil, bl.b.Err()
	}
	return n, nil
}

// convert coerces a decoded YAML or JSON scalar to typ.
func convert(v any, typ string) (any, error) {
	switch typ {
	case "":
		if n, ok := v.(json.Number); ok {
			return untypedNumber(n)
		}
		return v, nil
	case "int":
		i, err := toInt64(v)
		if err != nil || int64(int(i)) != i {
			return nil, badValue(v, typ)
		}
		return int(i), nil
	case "int64":
		i, err := toInt64(v)
		if err != nil {
			return nil, badValue(v, typ)
		}
		return i, nil
	case "float64":
		switch x := v.(type) {
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		case json.Number:
			f, err := x.Float64()
			if err != nil {
				return nil, badValue(v, typ)
			}
			return f, nil
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, badValue(v, typ)
			}
			return f, nil
		}
	case "string":
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case "bool":
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(x)
			if err == nil {
				return b, nil
			}
		}
	default:
		return nil, apperrors.MalformedExpression("unsupported value type %q", typ)
	}
	return nil, badValue(v, typ)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, strconv.ErrRange
		}
		return int64(x), nil
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, strconv.ErrRange
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return 0, strconv.ErrSyntax
}

// untypedNumber gives a JSON number the type YAML would: int for integer
// literals, float64 otherwise.
func untypedNumber(n json.Number) (any, error) {
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil && int64(int(i)) == i {
			return int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, badValue(n, "number")
	}
	return f, nil
}

func badValue(v any, typ string) error {
	return apperrors.MalformedExpression("value %v (%T) is not a valid %s", v, v, typ)
}
