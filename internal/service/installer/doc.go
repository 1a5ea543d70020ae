// Package installer is the bundled feed consumer: it reads the manifest served
// on the local feed, downloads the release archive and replaces the target
// executable with the matching archive entry.
package installer
