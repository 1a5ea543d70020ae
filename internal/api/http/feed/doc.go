// Package feed serves the release feed directory over loopback HTTP.
//
// The server binds 127.0.0.1 on an OS-assigned port and exposes the storage
// root's gh_releases directory under /gh_releases/ as static files, so a
// platform updater can be pointed at a conventional feed URL.
package feed
