// Package registry holds the operator registries of the two execution models.
//
// Each Registry is keyed by operator name and the exact shapes of its
// parameters. Resolution is exact: a signature either exists in the target
// model or the lookup fails with a NO_MATCHING_OPERATOR error listing the
// candidates registered under the same name.
//
// Middleware wraps the implementation handle of every resolved operator,
// which is how logging, tracing and metrics reach operator application:
//
//	reg := registry.New(expr.AsyncPush)
//	reg.Use(registry.WithLogging(log), registry.WithMetrics(metrics))
package registry
