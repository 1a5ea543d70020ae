package tags

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/logger"
)

const (
	// checkoutPattern names the scoped clone directory under the storage root.
	checkoutPattern = "gh_checkout-"

	storagePermissions = 0o755
)

// cloneFunc clones url into dir. It matches git.PlainCloneContext for a bare clone.
type cloneFunc func(ctx context.Context, dir, url string) (*git.Repository, error)

// GitSource lists tags from a fresh bare clone of the repository.
type GitSource struct {
	// cloneURL overrides the address derived from the repository identity.
	cloneURL string
	// clone performs the retrieval; replaced in tests.
	clone cloneFunc
}

// GitOption configures a GitSource.
type GitOption func(*GitSource)

// WithCloneURL clones from url instead of https://github.com/{owner}/{name}.git.
func WithCloneURL(url string) GitOption {
	return func(s *GitSource) {
		if url != "" {
			s.cloneURL = url
		}
	}
}

// NewGitSource creates a Source backed by go-git.
func NewGitSource(opts ...GitOption) *GitSource {
	s := &GitSource{
		clone: bareClone,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FetchTags clones the repository under storageRoot, lists its tags and removes the clone.
// No incremental update is attempted: every call starts from an empty directory.
func (s *GitSource) FetchTags(ctx context.Context, repo release.RepositoryIdentity, storageRoot string) ([]string, error) {
	url := s.cloneURL
	if url == "" {
		url = repo.CloneURL()
	}

	if err := os.MkdirAll(storageRoot, storagePermissions); err != nil {
		return nil, fmt.Errorf("%w: prepare storage: %w", release.ErrClone, err)
	}

	dir, err := os.MkdirTemp(storageRoot, checkoutPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout directory: %w", release.ErrClone, err)
	}

	defer func() {
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove checkout", "path", dir, "error", removeErr)
		}
	}()

	logger.DebugKV(ctx, "Cloning repository", "url", url, "path", dir)

	repository, err := s.clone(ctx, dir, url)
	if err != nil {
		if errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("%w %s: %w", release.ErrClone, url, err)
	}

	return listTags(repository)
}

// listTags returns the short names of every tag reference.
func listTags(repository *git.Repository) ([]string, error) {
	iter, err := repository.Tags()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", release.ErrTagList, err)
	}

	defer iter.Close()

	result := make([]string, 0)

	err = iter.ForEach(func(ref *plumbing.Reference) error {
		result = append(result, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", release.ErrTagList, err)
	}

	return result, nil
}

// bareClone fetches every tag into a bare repository at dir.
func bareClone(ctx context.Context, dir, url string) (*git.Repository, error) {
	//nolint:exhaustruct // Defaults are fine for the rest of the clone options.
	return git.PlainCloneContext(ctx, dir, true, &git.CloneOptions{
		URL:  url,
		Tags: git.AllTags,
	})
}
