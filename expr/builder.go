package expr

import (
	apperrors "github.com/idg10/rxrewrite/errors"
)

// Builder constructs a pipeline expression against the operators of one
// execution model. The first construction error is recorded and returned by
// Build; calls made after an error return nil nodes.
type Builder struct {
	resolver Resolver
	err      error
}

// NewBuilder returns a Builder that resolves operators through r.
func NewBuilder(r Resolver) *Builder {
	return &Builder{resolver: r}
}

// Model is the execution model the builder writes against.
func (b *Builder) Model() Model { return b.resolver.Model() }

// Err returns the first construction error, if any.
func (b *Builder) Err() error { return b.err }

// Param declares the input parameter. Its shape must be a stream of the
// builder's model.
func (b *Builder) Param(name string, shape Shape) *Parameter {
	if b.err != nil {
		return nil
	}
	if name == "" {
		b.fail(apperrors.MalformedExpression("parameter needs a name"))
		return nil
	}
	if !shape.IsStream() || shape.Model != b.resolver.Model() {
		b.fail(apperrors.MalformedExpression("parameter %q must be a %s stream, got %s",
			name, b.resolver.Model(), shape))
		return nil
	}
	return NewParameter(name, shape)
}

// Value wraps a scalar argument.
func (b *Builder) Value(v any) Node {
	if b.err != nil {
		return nil
	}
	val, err := NewValue(v)
	if err != nil {
		b.fail(apperrors.MalformedExpression("value: %v", err))
		return nil
	}
	return val
}

// Call applies the named operator. Arguments that are not Nodes are wrapped
// as Values.
func (b *Builder) Call(name string, args ...any) Node {
	if b.err != nil {
		return nil
	}
	if !b.resolver.Has(name) {
		b.fail(apperrors.MalformedExpression("%q is not a %s pipeline operator", name, b.resolver.Model()))
		return nil
	}

	nodes := make([]Node, len(args))
	shapes := make([]Shape, len(args))
	for i, a := range args {
		n, ok := a.(Node)
		if !ok {
			val, err := NewValue(a)
			if err != nil {
				b.fail(apperrors.MalformedExpression("argument %d of %s: %v", i, name, err))
				return nil
			}
			n = val
		}
		if isNilNode(n) {
			b.fail(apperrors.MalformedExpression("argument %d of %s is missing", i, name))
			return nil
		}
		nodes[i] = n
		shapes[i] = n.Shape()
	}

	op, err := b.resolver.Resolve(name, shapes)
	if err != nil {
		b.fail(apperrors.MalformedExpression("cannot apply %s", SignatureKey(name, shapes)).WithCause(err))
		return nil
	}
	return CallOf(op, nodes)
}

// Build closes the expression over its single free parameter.
func (b *Builder) Build(body Node) (*Lambda, error) {
	if b.err != nil {
		return nil, b.err
	}
	if isNilNode(body) {
		return nil, apperrors.MalformedExpression("expression has no body")
	}
	free := FreeParameters(body)
	switch len(free) {
	case 0:
		return nil, apperrors.MalformedExpression("expression does not reference an input parameter")
	case 1:
	default:
		return nil, apperrors.MalformedExpression("expression has %d free parameters (%s)",
			len(free), parameterNames(free))
	}
	l, err := NewLambda(free[0], body)
	if err != nil {
		return nil, apperrors.MalformedExpression("%v", err)
	}
	return l, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func isNilNode(n Node) bool {
	switch n := n.(type) {
	case nil:
		return true
	case *Parameter:
		return n == nil
	case *Call:
		return n == nil
	case *Value:
		return n == nil
	}
	return false
}
