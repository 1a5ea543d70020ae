package updater

import (
	"fmt"

	"github.com/oshokin/gh-releases/internal/artifact"
	"github.com/oshokin/gh-releases/internal/config"
	"github.com/oshokin/gh-releases/internal/repository/tags"
)

// NewFromConfig builds an Updater from loaded settings. cfg doubles as the Application.
func NewFromConfig(cfg *config.Config, consumer FeedConsumer, opts ...Option) (*Updater, error) {
	repo, err := cfg.Identity()
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}

	base := []Option{
		WithSource(sourceFromConfig(cfg)),
		WithResolver(artifact.Resolver{Host: cfg.ReleaseHost}),
		WithPrerelease(cfg.IncludePrerelease),
	}

	return New(repo, cfg, consumer, append(base, opts...)...)
}

// sourceFromConfig picks the tag source named by the settings.
func sourceFromConfig(cfg *config.Config) tags.Source {
	if cfg.Source == config.SourceGitHub {
		return tags.NewGitHubSource(
			tags.WithAPIURL(cfg.GitHubAPIURL),
			tags.WithToken(cfg.GitHubToken),
		)
	}

	return tags.NewGitSource(tags.WithCloneURL(cfg.CloneURL))
}
