// Package config loads gh-releases settings from a YAML file and
// GH_RELEASES_* environment variables, validates them and fills defaults.
package config
