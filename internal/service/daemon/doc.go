// Package daemon keeps the release feed fresh: it checks on a fixed interval
// and publishes the outcome on a gRPC health endpoint until stopped.
package daemon
