// Package semver parses, validates and orders release version strings.
//
// Tags are normalized (whitespace trimmed, one leading "v" removed) and must
// then have the MAJOR.MINOR.PATCH shape with optional pre-release and build
// parts. Ordering follows semantic version precedence via hashicorp/go-version.
package semver
