// Package version reports the rxrewrite build.
//
// Version, commit, branch and build time are set at link time; anything left
// empty is filled from the module build information:
//
//	go build -ldflags "-X github.com/idg10/rxrewrite/version.Version=1.0.0" ./cmd/rxrewrite
package version
