package release

import "errors"

// Error kinds reported by a release check. Stages wrap them with context,
// callers match them with errors.Is.
var (
	// ErrClone is returned when the upstream repository cannot be retrieved.
	ErrClone = errors.New("unable to retrieve repository")
	// ErrTagList is returned when tags cannot be enumerated after retrieval.
	ErrTagList = errors.New("unable to list version tags")
	// ErrInvalidVersion is returned when a version string is not a valid semantic version.
	ErrInvalidVersion = errors.New("invalid semantic version")
	// ErrPersistence is returned when the feed manifest cannot be stored.
	ErrPersistence = errors.New("unable to save local update file")
	// ErrServerBind is returned when the local feed server cannot bind a port.
	ErrServerBind = errors.New("unable to bind local feed server")
	// ErrCheckInProgress is returned when another check owns the storage root.
	ErrCheckInProgress = errors.New("another release check is in progress")
)
