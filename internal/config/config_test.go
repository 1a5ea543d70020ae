package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Missing repository.
	require.ErrorIs(t, Validate(new(Config)), errRepositoryRequired)

	bad := map[string]*Config{
		"repository":   {Repository: "just-a-name"},
		"version":      {Repository: "owner/app", CurrentVersion: "one"},
		"source":       {Repository: "owner/app", CurrentVersion: "1.0.0", Source: "svn"},
		"api url":      {Repository: "owner/app", CurrentVersion: "1.0.0", GitHubAPIURL: "not a url"},
		"release host": {Repository: "owner/app", CurrentVersion: "1.0.0", ReleaseHost: "https://github.com"},
		"health":       {Repository: "owner/app", CurrentVersion: "1.0.0", HealthAddress: "bad:address"},
	}

	for name, settings := range bad {
		require.Error(t, Validate(settings), name)
	}

	// Defaults are filled in.
	settings := &Config{Repository: "owner/app", Source: " GitHub "}
	require.NoError(t, Validate(settings))
	require.Equal(t, SourceGitHub, settings.Source)
	require.Equal(t, DefaultReleaseHost, settings.ReleaseHost)
	require.Equal(t, DefaultCheckInterval, settings.CheckInterval)
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultHealthAddress, settings.HealthAddress)
	require.Equal(t, DefaultStorageDir(), settings.StorageDir)
	require.NotEmpty(t, settings.CurrentVersion)

	// A mirror with a port is a valid release host.
	require.NoError(t, Validate(&Config{Repository: "owner/app", ReleaseHost: "mirror.local:8443"}))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "gh-releases.yaml")

	settings := &Config{
		Repository:        "owner/app",
		StorageDir:        dir,
		CurrentVersion:    "1.0.0",
		IncludePrerelease: true,
		CheckInterval:     15 * time.Minute,
		GitHubToken:       "secret",
	}

	require.NoError(t, Save(path, settings))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(contents), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "owner/app", loaded.Repository)
	require.Equal(t, dir, loaded.StoragePath())
	require.Equal(t, "1.0.0", loaded.Version())
	require.True(t, loaded.IncludePrerelease)
	require.Equal(t, 15*time.Minute, loaded.CheckInterval)

	identity, err := loaded.Identity()
	require.NoError(t, err)
	require.Equal(t, "app", identity.Name)
}

// TestLoad_MissingFile separates an explicit path from the optional default.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoad_EnvironmentOverrides checks GH_RELEASES_* values win over the file.
func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gh-releases.yaml")

	require.NoError(t, os.WriteFile(path, []byte("repository: owner/app\ntimeout: 10s\n"), DefaultFilePermissions))

	t.Setenv("GH_RELEASES_REPOSITORY", "other/tool")
	t.Setenv("GH_RELEASES_INCLUDE_PRERELEASE", "true")
	t.Setenv("GH_RELEASES_CHECK_INTERVAL", "5m")
	t.Setenv("GH_RELEASES_GITHUB_TOKEN", "token")
	t.Setenv("GH_RELEASES_CURRENT_VERSION", "v2.0.0")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "other/tool", cfg.Repository)
	require.True(t, cfg.IncludePrerelease)
	require.Equal(t, 5*time.Minute, cfg.CheckInterval)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	require.Equal(t, "token", cfg.GitHubToken)
	require.Equal(t, "v2.0.0", cfg.CurrentVersion)

	t.Setenv("GH_RELEASES_TIMEOUT", "soon")

	_, err = Load(path)
	require.Error(t, err)
}

// TestLoad_Overrides applies caller overrides after the file.
func TestLoad_Overrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gh-releases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repository: owner/app\n"), DefaultFilePermissions))

	cfg, err := Load(path, WithRepository("other/tool"), WithRepository(""))
	require.NoError(t, err)
	require.Equal(t, "other/tool", cfg.Repository)
}
