// Package integration wires the real packages together against in-process
// fakes of the GitHub API and the release download host.
package integration
