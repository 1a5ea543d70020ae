package semver

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/oshokin/gh-releases/internal/domain/release"
)

// ErrNoStableRelease is returned by Latest when every valid tag is a pre-release
// and pre-releases are excluded.
var ErrNoStableRelease = errors.New("no stable release tag")

// shapeRegexp restricts go-version's permissive parser to three numeric segments.
var shapeRegexp = regexp.MustCompile(
	`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(-[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?(\+[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*)?$`,
)

// Version is a validated semantic version.
type Version struct {
	parsed *goversion.Version
	raw    string
}

// Normalize trims whitespace and one leading "v" or "V".
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 && (s[0] == 'v' || s[0] == 'V') {
		s = s[1:]
	}

	return s
}

// Parse normalizes s and validates it as a semantic version.
func Parse(s string) (Version, error) {
	normalized := Normalize(s)
	if !shapeRegexp.MatchString(normalized) {
		return Version{}, fmt.Errorf("%q: %w", s, release.ErrInvalidVersion)
	}

	parsed, err := goversion.NewSemver(normalized)
	if err != nil {
		return Version{}, fmt.Errorf("%q: %w: %v", s, release.ErrInvalidVersion, err)
	}

	return Version{
		parsed: parsed,
		raw:    s,
	}, nil
}

// MustParse is like Parse but panics on invalid input. Meant for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return v
}

// String returns the normalized version, e.g. "1.2.0" for tag "v1.2.0".
func (v Version) String() string {
	if v.parsed == nil {
		return ""
	}

	return v.parsed.Original()
}

// Original returns the string the version was parsed from.
func (v Version) Original() string {
	return v.raw
}

// IsPrerelease reports whether the version carries a pre-release part.
func (v Version) IsPrerelease() bool {
	return v.parsed != nil && v.parsed.Prerelease() != ""
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool {
	return v.parsed == nil
}

// Compare returns -1, 0 or 1 by semantic version precedence. Build metadata is ignored.
func (v Version) Compare(other Version) int {
	return v.parsed.Compare(other.parsed)
}

// GreaterThan reports whether v has higher precedence than other.
func (v Version) GreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// Equal reports whether v and other have the same precedence.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// IsNewer reports whether candidate is strictly newer than current.
// Equal versions are not newer. Both strings must be valid semantic versions.
func IsNewer(candidate, current string) (bool, error) {
	c, err := Parse(candidate)
	if err != nil {
		return false, fmt.Errorf("candidate version: %w", err)
	}

	cur, err := Parse(current)
	if err != nil {
		return false, fmt.Errorf("current version: %w", err)
	}

	return c.GreaterThan(cur), nil
}

// Sort orders versions ascending in place.
func Sort(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].Compare(versions[j]) < 0
	})
}

// Selection is the result of picking the latest tag.
type Selection struct {
	// Latest is the highest valid version.
	Latest Version
	// Valid lists every accepted version in ascending order.
	Valid []Version
	// Skipped lists raw tags that are not semantic versions.
	Skipped []string
}

// Latest parses tags, drops invalid ones and returns the highest version.
// Upstream tag order is ignored. With includePrerelease false, pre-release tags
// are not candidates.
func Latest(tags []string, includePrerelease bool) (*Selection, error) {
	selection := &Selection{
		Valid: make([]Version, 0, len(tags)),
	}

	prereleaseOnly := false

	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}

		v, err := Parse(tag)
		if err != nil {
			selection.Skipped = append(selection.Skipped, tag)
			continue
		}

		if v.IsPrerelease() && !includePrerelease {
			prereleaseOnly = true
			continue
		}

		selection.Valid = append(selection.Valid, v)
	}

	if len(selection.Valid) == 0 {
		if prereleaseOnly {
			return selection, ErrNoStableRelease
		}

		return selection, fmt.Errorf("could not find a valid release tag: %w", release.ErrInvalidVersion)
	}

	Sort(selection.Valid)
	selection.Latest = selection.Valid[len(selection.Valid)-1]

	return selection, nil
}
