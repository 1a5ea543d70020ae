package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/semver"
	"github.com/oshokin/gh-releases/internal/version"
)

// Config holds the settings shared by every gh-releases command.
type Config struct {
	// Repository is the upstream GitHub repository in owner/name form.
	Repository string `yaml:"repository"`
	// StorageDir is the directory owned by the updater (manifest, lock, checkouts).
	StorageDir string `yaml:"storage_dir"`
	// CurrentVersion is the running application version.
	CurrentVersion string `yaml:"current_version"`
	// Source selects how tags are listed: git or github.
	Source string `yaml:"source"`
	// CloneURL overrides the clone address of the git source.
	CloneURL string `yaml:"clone_url,omitempty"`
	// GitHubAPIURL overrides the REST API base of the github source.
	GitHubAPIURL string `yaml:"github_api_url,omitempty"`
	// GitHubToken authenticates the github source. Read from the environment only.
	GitHubToken string `yaml:"-"`
	// ReleaseHost is the host release archives are downloaded from.
	ReleaseHost string `yaml:"release_host"`
	// IncludePrerelease lets pre-release tags become update candidates.
	IncludePrerelease bool `yaml:"include_prerelease"`
	// Executable is the archive entry installed over the running binary.
	Executable string `yaml:"executable,omitempty"`
	// CheckInterval is the period between checks in serve mode.
	CheckInterval time.Duration `yaml:"check_interval"`
	// HealthAddress is where serve mode exposes the gRPC health service.
	HealthAddress string `yaml:"health_address"`
	// Timeout bounds a single check or download.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "gh-releases.yaml"

	// SourceGit lists tags from a bare clone.
	SourceGit = "git"
	// SourceGitHub lists tags through the GitHub REST API.
	SourceGitHub = "github"

	// DefaultReleaseHost is where release archives are published.
	DefaultReleaseHost = "github.com"

	// DefaultCheckInterval is the period between checks in serve mode.
	DefaultCheckInterval = time.Hour

	// DefaultTimeout is the default bound of one check.
	DefaultTimeout = 30 * time.Second

	// DefaultHealthAddress is where serve mode listens for health probes.
	DefaultHealthAddress = "127.0.0.1:50061"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// EnvPrefix prefixes environment overrides, e.g. GH_RELEASES_REPOSITORY.
	EnvPrefix = "GH_RELEASES"

	storageDirName = "gh-releases"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRepositoryRequired is returned when no repository is configured.
	errRepositoryRequired = errors.New("repository must be provided")
	// errUnknownSource is returned for a source other than git or github.
	errUnknownSource = errors.New("source must be git or github")
	// errBadReleaseHost is returned when the release host is not a bare host.
	errBadReleaseHost = errors.New("release host must be a host name without scheme or path")
)

// DefaultStorageDir returns the per-user directory the updater owns.
func DefaultStorageDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}

	return filepath.Join(base, storageDirName)
}

// Override adjusts loaded settings before validation, e.g. from CLI arguments.
type Override func(*Config)

// WithRepository replaces the configured repository when repository is not empty.
func WithRepository(repository string) Override {
	return func(c *Config) {
		if repository != "" {
			c.Repository = repository
		}
	}
}

// Load reads settings from path, applies environment and caller overrides and validates them.
// A missing file is fine when path is empty: defaults and environment are used.
func Load(path string, overrides ...Override) (*Config, error) {
	optional := path == ""
	if optional {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = applyEnv(&cfg); err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(&cfg)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills in defaults for empty fields.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.Repository == "" {
		return errRepositoryRequired
	}

	if _, err := release.ParseRepository(settings.Repository); err != nil {
		return fmt.Errorf("invalid repository: %w", err)
	}

	if settings.StorageDir == "" {
		settings.StorageDir = DefaultStorageDir()
	}

	if settings.CurrentVersion == "" {
		settings.CurrentVersion = version.Short()
	}

	if _, err := semver.Parse(settings.CurrentVersion); err != nil {
		return fmt.Errorf("invalid current version: %w", err)
	}

	settings.Source = strings.ToLower(strings.TrimSpace(settings.Source))
	if settings.Source == "" {
		settings.Source = SourceGit
	}

	if settings.Source != SourceGit && settings.Source != SourceGitHub {
		return fmt.Errorf("%w, got %q", errUnknownSource, settings.Source)
	}

	if settings.GitHubAPIURL != "" {
		if _, err := url.ParseRequestURI(settings.GitHubAPIURL); err != nil {
			return fmt.Errorf("invalid GitHub API URL: %w", err)
		}
	}

	if settings.ReleaseHost == "" {
		settings.ReleaseHost = DefaultReleaseHost
	}

	if strings.ContainsAny(settings.ReleaseHost, "/:") && !isHostPort(settings.ReleaseHost) {
		return fmt.Errorf("%w, got %q", errBadReleaseHost, settings.ReleaseHost)
	}

	if settings.CheckInterval <= 0 {
		settings.CheckInterval = DefaultCheckInterval
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.HealthAddress == "" {
		settings.HealthAddress = DefaultHealthAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.HealthAddress); err != nil {
		return fmt.Errorf("invalid health address: %w", err)
	}

	return nil
}

// Identity parses the configured repository.
func (c *Config) Identity() (release.RepositoryIdentity, error) {
	return release.ParseRepository(c.Repository)
}

// StoragePath returns the updater storage directory.
func (c *Config) StoragePath() string {
	return c.StorageDir
}

// Version returns the running application version.
func (c *Config) Version() string {
	return c.CurrentVersion
}

// isHostPort accepts "host:port" mirrors but nothing with a path.
func isHostPort(s string) bool {
	if strings.Contains(s, "/") {
		return false
	}

	_, _, err := net.SplitHostPort(s)

	return err == nil
}

// applyEnv overlays GH_RELEASES_* environment variables on cfg.
func applyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	keys := []string{
		"repository", "storage_dir", "current_version", "source", "clone_url",
		"github_api_url", "github_token", "release_host", "include_prerelease",
		"executable", "check_interval", "health_address", "timeout",
	}

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	textFields := map[string]*string{
		"repository":      &cfg.Repository,
		"storage_dir":     &cfg.StorageDir,
		"current_version": &cfg.CurrentVersion,
		"source":          &cfg.Source,
		"clone_url":       &cfg.CloneURL,
		"github_api_url":  &cfg.GitHubAPIURL,
		"github_token":    &cfg.GitHubToken,
		"release_host":    &cfg.ReleaseHost,
		"executable":      &cfg.Executable,
		"health_address":  &cfg.HealthAddress,
	}

	for key, target := range textFields {
		if v.IsSet(key) {
			*target = v.GetString(key)
		}
	}

	if v.IsSet("include_prerelease") {
		cfg.IncludePrerelease = v.GetBool("include_prerelease")
	}

	durations := map[string]*time.Duration{
		"check_interval": &cfg.CheckInterval,
		"timeout":        &cfg.Timeout,
	}

	for key, target := range durations {
		if !v.IsSet(key) {
			continue
		}

		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return fmt.Errorf("invalid %s_%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}

		*target = d
	}

	return nil
}
