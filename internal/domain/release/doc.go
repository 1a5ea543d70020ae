// Package release contains the core domain types of the release feed.
//
// It defines the upstream RepositoryIdentity, the running Platform, the
// computed ArtifactReference, the FeedManifest document, the CheckState
// machine of a single check and the error kinds every stage reports.
package release
