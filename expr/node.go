package expr

import (
	"fmt"
	"reflect"
	"strings"
)

// Impl is the implementation handle of an operator in one execution model.
// It receives the evaluated arguments in declaration order (streams of that
// model and scalar values) and returns the resulting stream.
type Impl func(args []any) (any, error)

// Operator is a resolved operator signature together with its handle.
type Operator struct {
	Name   string
	Params []Shape
	Result Shape
	Impl   Impl
}

// Key returns the lookup key of the signature: name plus parameter shapes.
func (o *Operator) Key() string { return SignatureKey(o.Name, o.Params) }

// Signature renders the operator as name(params) -> result.
func (o *Operator) Signature() string {
	return o.Key() + " -> " + o.Result.String()
}

// SignatureKey renders name(shape, shape, ...).
func SignatureKey(name string, shapes []Shape) string {
	return name + "(" + strings.Join(ShapeStrings(shapes), ", ") + ")"
}

// Resolver maps an operator name and argument shapes to an Operator of one
// execution model.
type Resolver interface {
	Model() Model
	Has(name string) bool
	Resolve(name string, shapes []Shape) (*Operator, error)
}

// Node is a node of a pipeline expression tree.
type Node interface {
	Shape() Shape
	node()
}

// Parameter is the placeholder for the pipeline's single input.
type Parameter struct {
	name  string
	shape Shape
}

// NewParameter creates a parameter node.
func NewParameter(name string, shape Shape) *Parameter {
	return &Parameter{name: name, shape: shape}
}

func (p *Parameter) Name() string   { return p.name }
func (p *Parameter) Shape() Shape   { return p.shape }
func (p *Parameter) node()          {}
func (p *Parameter) String() string { return p.name }

// Value is a scalar argument: a predicate, a selector, a count.
type Value struct {
	v     any
	shape Shape
}

// NewValue wraps v as a scalar node. Its shape is the Go type of v; an untyped
// nil has no shape and is rejected.
func NewValue(v any) (*Value, error) {
	if v == nil {
		return nil, fmt.Errorf("untyped nil has no shape")
	}
	return &Value{v: v, shape: Scalar(reflect.TypeOf(v).String())}, nil
}

func (v *Value) Get() any     { return v.v }
func (v *Value) Shape() Shape { return v.shape }
func (v *Value) node()        {}

// Arg is a call argument annotated with the shape it was declared with.
type Arg struct {
	Node  Node
	Shape Shape
}

// Call is the application of a resolved operator to its arguments.
type Call struct {
	name   string
	args   []Arg
	result Shape
	impl   Impl
}

// NewCall creates a call node. args is copied.
func NewCall(name string, args []Arg, result Shape, impl Impl) *Call {
	return &Call{
		name:   name,
		args:   append([]Arg(nil), args...),
		result: result,
		impl:   impl,
	}
}

// CallOf applies op to args, declaring each argument with op's parameter shape.
func CallOf(op *Operator, args []Node) *Call {
	declared := make([]Arg, len(args))
	for i, a := range args {
		declared[i] = Arg{Node: a, Shape: op.Params[i]}
	}
	return &Call{name: op.Name, args: declared, result: op.Result, impl: op.Impl}
}

func (c *Call) Name() string  { return c.name }
func (c *Call) Shape() Shape  { return c.result }
func (c *Call) Impl() Impl    { return c.impl }
func (c *Call) NumArgs() int  { return len(c.args) }
func (c *Call) Arg(i int) Arg { return c.args[i] }
func (c *Call) node()         {}

// Args returns a copy of the call's arguments.
func (c *Call) Args() []Arg { return append([]Arg(nil), c.args...) }

// ArgShapes returns the declared shapes of the arguments.
func (c *Call) ArgShapes() []Shape {
	shapes := make([]Shape, len(c.args))
	for i, a := range c.args {
		shapes[i] = a.Shape
	}
	return shapes
}

// Lambda is a complete pipeline expression: one input parameter and a body.
type Lambda struct {
	param *Parameter
	body  Node
}

// NewLambda binds body to param. It fails unless param is the one and only
// free parameter referenced by body.
func NewLambda(param *Parameter, body Node) (*Lambda, error) {
	if param == nil || body == nil {
		return nil, fmt.Errorf("lambda needs a parameter and a body")
	}
	free := FreeParameters(body)
	switch {
	case len(free) == 0:
		return nil, fmt.Errorf("expression does not reference its input parameter %q", param.name)
	case len(free) > 1:
		return nil, fmt.Errorf("expression has %d free parameters (%s)", len(free), parameterNames(free))
	case free[0] != param:
		return nil, fmt.Errorf("expression references unbound parameter %q", free[0].name)
	}
	return &Lambda{param: param, body: body}, nil
}

func (l *Lambda) Param() *Parameter { return l.param }
func (l *Lambda) Body() Node        { return l.body }

// Input is the shape of the pipeline's input stream.
func (l *Lambda) Input() Shape { return l.param.shape }

// Output is the shape of the pipeline's output.
func (l *Lambda) Output() Shape { return l.body.Shape() }

func (l *Lambda) String() string {
	return l.param.name + " => " + Format(l.body)
}

// FreeParameters returns the distinct parameters referenced under n, in the
// order they are first met.
func FreeParameters(n Node) []*Parameter {
	var out []*Parameter
	seen := make(map[*Parameter]bool)
	Walk(n, func(n Node) bool {
		if p, ok := n.(*Parameter); ok && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
		return true
	})
	return out
}

func parameterNames(params []*Parameter) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.name
	}
	return strings.Join(names, ", ")
}
