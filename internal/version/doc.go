// Package version exposes build metadata for gh-releases.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Short is also the fallback "running version" compared against
// upstream release tags.
package version
