// Package rewrite translates a pipeline expression from one execution model
// into another.
//
// The Rewriter walks the source tree depth-first. Every stream argument is
// re-tagged to the target model, every call is resolved again through the
// target model's operator registry, and the input parameter is replaced by a
// parameter of the same name in the target model. Scalar arguments are shared
// with the source tree. Any resolution failure aborts the rewrite.
package rewrite
