// Package catalog registers the operator surface of both execution models.
//
// Push and AsyncPush return registries holding the same operator names and
// signatures up to the model tag of their stream shapes, which is what makes
// every pipeline written against the push registry rewritable into the async
// one. Funcs is the table of named scalar functions that pipeline
// definitions refer to.
package catalog
