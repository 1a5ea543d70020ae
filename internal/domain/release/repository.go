package release

import (
	"errors"
	"fmt"
	"strings"
)

// errBadRepository is returned for identifiers that are not "owner/name".
var errBadRepository = errors.New("repository must be in owner/name form")

// RepositoryIdentity identifies the upstream release source.
type RepositoryIdentity struct {
	// Owner is the account or organisation owning the repository.
	Owner string
	// Name is the short repository name; it prefixes artifact filenames.
	Name string
}

// ParseRepository parses an "owner/name" identifier.
func ParseRepository(s string) (RepositoryIdentity, error) {
	owner, name, found := strings.Cut(strings.Trim(strings.TrimSpace(s), "/"), "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepositoryIdentity{}, fmt.Errorf("%q: %w", s, errBadRepository)
	}

	return RepositoryIdentity{
		Owner: owner,
		Name:  strings.TrimSuffix(name, ".git"),
	}, nil
}

// String returns the "owner/name" form.
func (r RepositoryIdentity) String() string {
	return r.Owner + "/" + r.Name
}

// CloneURL returns the HTTPS clone address on GitHub.
func (r RepositoryIdentity) CloneURL() string {
	return "https://github.com/" + r.String() + ".git"
}

// IsZero reports whether the identity has not been set.
func (r RepositoryIdentity) IsZero() bool {
	return r.Owner == "" && r.Name == ""
}
