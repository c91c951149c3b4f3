// Package engine turns push pipeline expressions into runnable queries.
//
// The rewritten path rewrites a pipeline into the async-push model, compiles
// it, and wraps the result with the execution-model adapter on both ends, so
// callers that only speak the push model can run it:
//
//	e := engine.NewDefault()
//	q, err := engine.RewriteAndCompile[int, float64](e, lambda)
//	if err != nil {
//		return err
//	}
//	averages := q(source)
//
// The direct path (CompileDirect) compiles the same expression in the push
// model without rewriting, which makes the two paths comparable in tests.
//
// Prepared plans are cached per expression and mode unless disabled with
// WithPlanCache(false).
package engine
