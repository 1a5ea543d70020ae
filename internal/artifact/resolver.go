// Package artifact computes the release archive name and download URL for a platform.
package artifact

import (
	"fmt"
	"net/url"

	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/semver"
)

// DefaultReleaseHost is the host serving release downloads.
const DefaultReleaseHost = "github.com"

// Resolver builds artifact references against a release host.
// The zero value resolves against DefaultReleaseHost.
type Resolver struct {
	// Host is the release download host, e.g. github.com or a mirror.
	Host string
}

// Resolve is Resolver{}.Resolve.
func Resolve(repo release.RepositoryIdentity, version semver.Version, platform release.Platform) release.ArtifactReference {
	return Resolver{}.Resolve(repo, version, platform)
}

// Resolve returns the archive reference for repo at version on platform.
// Nothing is fetched; the artifact is not checked for existence.
func (r Resolver) Resolve(
	repo release.RepositoryIdentity,
	version semver.Version,
	platform release.Platform,
) release.ArtifactReference {
	host := r.Host
	if host == "" {
		host = DefaultReleaseHost
	}

	filename := fmt.Sprintf("%s-%s-%s-%s.zip", repo.Name, version, platform.OS, platform.Arch)

	downloadURL := url.URL{
		Scheme: "https",
		Host:   host,
		Path:   fmt.Sprintf("/%s/%s/releases/download/%s/%s", repo.Owner, repo.Name, version, filename),
	}

	return release.ArtifactReference{
		Filename: filename,
		URL:      downloadURL.String(),
	}
}
