package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/oshokin/gh-releases/internal/api/http/feed"
	"github.com/oshokin/gh-releases/internal/artifact"
	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/logger"
	"github.com/oshokin/gh-releases/internal/repository/manifest"
	"github.com/oshokin/gh-releases/internal/repository/tags"
	"github.com/oshokin/gh-releases/internal/semver"
)

var (
	errNoStorage       = errors.New("application storage path is empty")
	errNoConsumer      = errors.New("feed consumer is not set")
	errNoRepository    = errors.New("repository is not set")
	errNotifyConsumer  = errors.New("unable to hand the feed to the platform updater")
	errDownloadTrigger = errors.New("unable to start the download")
)

// Application exposes what the updater needs from the host application.
type Application interface {
	// StoragePath is the directory owned by the updater (e.g. the user data folder).
	StoragePath() string
	// Version is the running application version.
	Version() string
}

// FeedConsumer is the platform update mechanism fed by the local manifest.
type FeedConsumer interface {
	SetFeedURL(feedURL string) error
	CheckForUpdates(ctx context.Context) error
}

// feedServer is the running loopback server; *feed.Server satisfies it.
type feedServer interface {
	URL(name string) string
	Port() int
	Shutdown(ctx context.Context) error
}

// startServerFunc starts a feed server for a directory.
type startServerFunc func(ctx context.Context, root string) (feedServer, error)

// CheckResult is the outcome of a check that did not fail.
type CheckResult struct {
	// CheckID correlates log lines of one check.
	CheckID string
	// Status tells whether an update is announced.
	Status release.CheckStatus
	// Current is the running version.
	Current semver.Version
	// Latest is the newest valid tag; zero when no tag was considered.
	Latest semver.Version
	// Artifact is the resolved archive; set only when an update is available.
	Artifact release.ArtifactReference
	// FeedURL is the loopback manifest address handed to the consumer.
	FeedURL string
}

// UpdateAvailable reports whether the check announced an update.
func (r *CheckResult) UpdateAvailable() bool {
	return r != nil && r.Status == release.StatusUpdateAvailable
}

// Updater sequences a release check for one repository and storage root.
type Updater struct {
	repo              release.RepositoryIdentity
	app               Application
	consumer          FeedConsumer
	source            tags.Source
	resolver          artifact.Resolver
	platform          release.Platform
	includePrerelease bool
	manifests         *manifest.FileRepository
	startServer       startServerFunc

	// inFlight rejects overlapping checks in this process.
	inFlight sync.Mutex
	// mu guards the fields below.
	mu       sync.Mutex
	state    release.CheckState
	server   feedServer
	feedURL  string
	lastDone *CheckResult
}

// Option configures an Updater.
type Option func(*Updater)

// WithSource sets how tags are fetched. The default clones with go-git.
func WithSource(source tags.Source) Option {
	return func(u *Updater) {
		if source != nil {
			u.source = source
		}
	}
}

// WithResolver sets the artifact resolver, e.g. for a mirror host.
func WithResolver(resolver artifact.Resolver) Option {
	return func(u *Updater) {
		u.resolver = resolver
	}
}

// WithPlatform overrides the detected platform.
func WithPlatform(platform release.Platform) Option {
	return func(u *Updater) {
		u.platform = platform
	}
}

// WithPrerelease lets pre-release tags become update candidates.
func WithPrerelease(include bool) Option {
	return func(u *Updater) {
		u.includePrerelease = include
	}
}

// New creates an Updater. The consumer is owned by the caller.
func New(repo release.RepositoryIdentity, app Application, consumer FeedConsumer, opts ...Option) (*Updater, error) {
	if repo.IsZero() {
		return nil, errNoRepository
	}

	if app == nil || app.StoragePath() == "" {
		return nil, errNoStorage
	}

	if consumer == nil {
		return nil, errNoConsumer
	}

	u := &Updater{
		repo:      repo,
		app:       app,
		consumer:  consumer,
		source:    tags.NewGitSource(),
		platform:  release.CurrentPlatform(),
		manifests: manifest.NewFileRepository(app.StoragePath()),
		startServer: func(ctx context.Context, root string) (feedServer, error) {
			return feed.Start(ctx, root)
		},
		state: release.StateIdle,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u, nil
}

// State returns the last state reached by a check.
func (u *Updater) State() release.CheckState {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.state
}

// FeedURL returns the feed URL last handed to the consumer, or "".
func (u *Updater) FeedURL() string {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.feedURL
}

// ManifestPath returns the on-disk manifest location.
func (u *Updater) ManifestPath() string {
	return u.manifests.Path()
}

// Check looks for a newer release and, when one exists, announces it on the local feed.
// No update is not an error. On failure or no update the previous feed is torn down.
func (u *Updater) Check(ctx context.Context) (*CheckResult, error) {
	if !u.inFlight.TryLock() {
		return nil, release.ErrCheckInProgress
	}
	defer u.inFlight.Unlock()

	checkID := uuid.NewString()
	ctx = logger.WithName(ctx, "updater")
	ctx = logger.WithFields(ctx, "check_id", checkID, "repository", u.repo.String())

	storage := u.app.StoragePath()
	if err := os.MkdirAll(storage, storagePermissions); err != nil {
		return nil, fmt.Errorf("prepare storage %s: %w", storage, err)
	}

	unlock, err := acquireLock(ctx, lockPath(storage))
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, err := u.run(ctx, checkID)
	if err != nil {
		u.setState(ctx, release.StateFailed)
		u.teardown(ctx)
		logger.ErrorKV(ctx, "Release check failed", "error", err)

		return nil, err
	}

	if !result.UpdateAvailable() {
		u.teardown(ctx)
	}

	u.setState(ctx, release.StateDone)

	u.mu.Lock()
	u.lastDone = result
	u.mu.Unlock()

	logger.InfoKV(ctx, "Release check finished",
		"status", result.Status.String(),
		"current", result.Current.String(),
		"latest", result.Latest.String(),
		"feed_url", result.FeedURL)

	return result, nil
}

// run walks the pipeline. Errors carry the release error kinds.
func (u *Updater) run(ctx context.Context, checkID string) (*CheckResult, error) {
	result := &CheckResult{
		CheckID: checkID,
		Status:  release.StatusNoUpdate,
	}

	u.setState(ctx, release.StateFetchingTags)

	rawTags, err := u.source.FetchTags(ctx, u.repo, u.app.StoragePath())
	if err != nil {
		return nil, fmt.Errorf("fetch tags: %w", err)
	}

	if len(rawTags) == 0 {
		logger.Info(ctx, "Repository has no tags, nothing to update")
		return result, nil
	}

	u.setState(ctx, release.StateComparing)

	current, err := semver.Parse(u.app.Version())
	if err != nil {
		return nil, fmt.Errorf("current version: %w", err)
	}

	result.Current = current

	selection, err := semver.Latest(rawTags, u.includePrerelease)
	if len(selection.Skipped) > 0 {
		logger.DebugKV(ctx, "Ignoring tags that are not semantic versions", "tags", selection.Skipped)
	}

	switch {
	case errors.Is(err, semver.ErrNoStableRelease):
		logger.Info(ctx, "Only pre-release tags found, nothing to update")
		return result, nil
	case err != nil:
		return nil, err
	}

	result.Latest = selection.Latest

	newer, err := semver.IsNewer(selection.Latest.String(), current.String())
	if err != nil {
		return nil, err
	}

	if !newer {
		logger.InfoKV(ctx, "Running version is up to date", "current", current.String(), "latest", selection.Latest.String())
		return result, nil
	}

	u.setState(ctx, release.StateResolving)

	result.Artifact = u.resolver.Resolve(u.repo, selection.Latest, u.platform)

	u.setState(ctx, release.StatePersisting)

	if err = u.manifests.Save(ctx, release.NewFeedManifest(result.Artifact, selection.Latest.String())); err != nil {
		return nil, err
	}

	u.setState(ctx, release.StateServing)

	server, err := u.ensureServer(ctx)
	if err != nil {
		return nil, err
	}

	u.setState(ctx, release.StateNotifyingCollaborator)

	feedURL := server.URL(manifest.Filename)
	if err = u.consumer.SetFeedURL(feedURL); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotifyConsumer, err)
	}

	u.mu.Lock()
	u.feedURL = feedURL
	u.mu.Unlock()

	result.Status = release.StatusUpdateAvailable
	result.FeedURL = feedURL

	return result, nil
}

// Download asks the platform updater to fetch from the last feed URL.
// Callers should run a successful Check first.
func (u *Updater) Download(ctx context.Context) error {
	ctx = logger.WithName(ctx, "updater")

	if u.FeedURL() == "" {
		logger.Warn(ctx, "Download requested before a check announced an update")
	}

	if err := u.consumer.CheckForUpdates(ctx); err != nil {
		return fmt.Errorf("%w: %w", errDownloadTrigger, err)
	}

	return nil
}

// Close stops the feed server. It is safe to call more than once.
func (u *Updater) Close(ctx context.Context) error {
	u.mu.Lock()
	server := u.server
	u.server = nil
	u.feedURL = ""
	u.mu.Unlock()

	if server == nil {
		return nil
	}

	return server.Shutdown(ctx)
}

// ensureServer returns the running feed server, starting one when needed.
func (u *Updater) ensureServer(ctx context.Context) (feedServer, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.server != nil {
		return u.server, nil
	}

	server, err := u.startServer(ctx, u.manifests.Directory())
	if err != nil {
		if errors.Is(err, release.ErrServerBind) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", release.ErrServerBind, err)
	}

	u.server = server

	return server, nil
}

// teardown removes the manifest and stops the feed server.
func (u *Updater) teardown(ctx context.Context) {
	if err := u.manifests.Remove(ctx); err != nil {
		logger.WarnKV(ctx, "Unable to remove stale manifest", "error", err)
	}

	if err := u.Close(ctx); err != nil {
		logger.WarnKV(ctx, "Unable to stop feed server", "error", err)
	}
}

// setState records and logs a state transition.
func (u *Updater) setState(ctx context.Context, state release.CheckState) {
	u.mu.Lock()
	u.state = state
	u.mu.Unlock()

	logger.DebugKV(ctx, "Check state changed", "state", state.String())
}
