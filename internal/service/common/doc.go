// Package common holds helpers shared by CLI commands: a client for the
// daemon's gRPC health endpoint.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
