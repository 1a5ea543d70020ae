// Package manifest persists the feed manifest served to the platform updater.
//
// The FileRepository writes the manifest as JSON under the storage root's
// gh_releases directory, replacing it atomically, and validates it against a
// JSON schema when reading it back.
package manifest
