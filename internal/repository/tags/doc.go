// Package tags lists the release tags of an upstream repository.
//
// GitSource clones the repository with go-git into a scoped directory under
// the storage root and enumerates its tags; the checkout is always removed
// afterwards. GitHubSource asks the GitHub REST API instead and needs no disk.
// Neither source sorts: callers order tags by semantic version.
package tags
