// Package expr is the tree representation of a pipeline expression: a single
// input parameter plus a chain of named operator applications.
//
// Every stream-typed shape in a tree is tagged with exactly one execution
// model. Trees are built through a Builder bound to the operator resolver of
// the model they are written against, and are immutable once built.
//
//	b := expr.NewBuilder(pushOperators)
//	xs := b.Param("xs", expr.StreamOf[int](expr.Push))
//	avg := b.Call("Average", xs)
//	lambda, err := b.Build(avg)
package expr
