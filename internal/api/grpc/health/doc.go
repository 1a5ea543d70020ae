// Package health exposes the updater state through the standard gRPC health
// service. The overall service ("") reports the daemon itself; FeedService
// reports whether an update is currently announced on the local feed.
package health
