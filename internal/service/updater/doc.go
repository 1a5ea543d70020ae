// Package updater runs a release check: it fetches upstream tags, picks the
// newest semantic version, resolves the platform archive, writes the feed
// manifest, serves it on loopback and hands the feed URL to the platform
// updater.
//
// One Updater owns one storage root. Checks never overlap: a second check in
// the same process, or in another live process, is rejected.
package updater
