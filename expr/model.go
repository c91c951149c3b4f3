package expr

import (
	"fmt"
	"reflect"
)

// Model is an execution model: the delivery discipline of stream notifications.
type Model int

const (
	// Push delivers notifications through synchronous callbacks; subscribing
	// yields an immediately usable cancellation handle.
	Push Model = iota + 1
	// AsyncPush delivers notifications through awaited callbacks, each of which
	// returns before the next is sent; subscribing and disposing are awaited.
	AsyncPush
)

func (m Model) String() string {
	switch m {
	case Push:
		return "push"
	case AsyncPush:
		return "async-push"
	default:
		return fmt.Sprintf("model(%d)", int(m))
	}
}

// Valid reports whether m is one of the two execution models.
func (m Model) Valid() bool { return m == Push || m == AsyncPush }

// Kind distinguishes stream shapes from everything else.
type Kind int

const (
	// KindScalar is any non-stream argument: predicates, selectors, counts.
	KindScalar Kind = iota + 1
	// KindStream is a stream of elements in some execution model.
	KindStream
)

// Shape is the statically known type of a node or argument. Streams carry the
// execution model they belong to and their element type; scalars carry their
// value type. Type names are Go type strings such as "int" or "func(int) bool".
type Shape struct {
	Kind  Kind
	Model Model
	Type  string
}

// Stream returns the shape of a stream of elem in model m.
func Stream(m Model, elem string) Shape {
	return Shape{Kind: KindStream, Model: m, Type: elem}
}

// Scalar returns the shape of a non-stream value of type typ.
func Scalar(typ string) Shape {
	return Shape{Kind: KindScalar, Type: typ}
}

// StreamOf returns the shape of a stream of T in model m.
func StreamOf[T any](m Model) Shape { return Stream(m, TypeName[T]()) }

// ScalarOf returns the shape of a scalar of type T.
func ScalarOf[T any]() Shape { return Scalar(TypeName[T]()) }

// TypeName returns the Go type string used in shapes for T.
func TypeName[T any]() string { return reflect.TypeFor[T]().String() }

// IsStream reports whether s is a stream shape.
func (s Shape) IsStream() bool { return s.Kind == KindStream }

// In returns s re-tagged to model m. Scalar shapes are returned unchanged.
func (s Shape) In(m Model) Shape {
	if !s.IsStream() {
		return s
	}
	s.Model = m
	return s
}

// IsZero reports whether s is the zero Shape.
func (s Shape) IsZero() bool { return s == Shape{} }

func (s Shape) String() string {
	switch s.Kind {
	case KindStream:
		if s.Model == AsyncPush {
			return "async-stream[" + s.Type + "]"
		}
		return "stream[" + s.Type + "]"
	case KindScalar:
		return "scalar[" + s.Type + "]"
	default:
		return "unknown"
	}
}

// ShapeStrings renders shapes for diagnostics.
func ShapeStrings(shapes []Shape) []string {
	out := make([]string, len(shapes))
	for i, s := range shapes {
		out[i] = s.String()
	}
	return out
}
