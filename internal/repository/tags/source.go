package tags

import (
	"context"

	"github.com/oshokin/gh-releases/internal/domain/release"
)

// Source fetches the raw tag names of a repository.
// An existing repository without tags yields an empty slice and no error.
type Source interface {
	FetchTags(ctx context.Context, repo release.RepositoryIdentity, storageRoot string) ([]string, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, repo release.RepositoryIdentity, storageRoot string) ([]string, error)

// FetchTags calls f.
func (f SourceFunc) FetchTags(ctx context.Context, repo release.RepositoryIdentity, storageRoot string) ([]string, error) {
	return f(ctx, repo, storageRoot)
}
