package release

// CheckState is a step of a single release check.
type CheckState int

// The states a check moves through. Failed is reachable from any step.
const (
	StateIdle CheckState = iota
	StateFetchingTags
	StateComparing
	StateResolving
	StatePersisting
	StateServing
	StateNotifyingCollaborator
	StateDone
	StateFailed
)

// String returns the state name used in logs.
func (s CheckState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingTags:
		return "fetching-tags"
	case StateComparing:
		return "comparing"
	case StateResolving:
		return "resolving"
	case StatePersisting:
		return "persisting"
	case StateServing:
		return "serving"
	case StateNotifyingCollaborator:
		return "notifying-collaborator"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the check has finished.
func (s CheckState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CheckStatus is the outcome of a successful check.
type CheckStatus int

const (
	// StatusNoUpdate means no newer release exists.
	StatusNoUpdate CheckStatus = iota
	// StatusUpdateAvailable means a newer release is announced on the local feed.
	StatusUpdateAvailable
)

// String returns the status name used in logs and CLI output.
func (s CheckStatus) String() string {
	if s == StatusUpdateAvailable {
		return "update-available"
	}

	return "no-update"
}
