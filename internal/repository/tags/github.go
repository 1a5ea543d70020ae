package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/logger"
)

const (
	// DefaultGitHubAPIURL is the public GitHub REST endpoint.
	DefaultGitHubAPIURL = "https://api.github.com"

	defaultPerPage     = 100
	defaultMaxPages    = 10
	defaultHTTPTimeout = 30 * time.Second
	userAgent          = "gh-releases"
)

// gitHubTag is the subset of the tag listing payload we use.
type gitHubTag struct {
	Name string `json:"name"`
}

// GitHubSource lists tags through the GitHub REST API.
type GitHubSource struct {
	apiURL     string
	token      string
	httpClient *http.Client
	maxPages   int
}

// GitHubOption configures a GitHubSource.
type GitHubOption func(*GitHubSource)

// WithAPIURL points the source at a GitHub Enterprise or test endpoint.
func WithAPIURL(apiURL string) GitHubOption {
	return func(s *GitHubSource) {
		if apiURL != "" {
			s.apiURL = strings.TrimRight(apiURL, "/")
		}
	}
}

// WithToken sends the token as a bearer credential.
func WithToken(token string) GitHubOption {
	return func(s *GitHubSource) {
		s.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) GitHubOption {
	return func(s *GitHubSource) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithMaxPages bounds how many result pages are requested.
func WithMaxPages(pages int) GitHubOption {
	return func(s *GitHubSource) {
		if pages > 0 {
			s.maxPages = pages
		}
	}
}

// NewGitHubSource creates a Source backed by the GitHub tags endpoint.
func NewGitHubSource(opts ...GitHubOption) *GitHubSource {
	s := &GitHubSource{
		apiURL:     DefaultGitHubAPIURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxPages:   defaultMaxPages,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FetchTags pages through /repos/{owner}/{name}/tags until an empty or short page.
// The storage root is not used.
func (s *GitHubSource) FetchTags(ctx context.Context, repo release.RepositoryIdentity, _ string) ([]string, error) {
	result := make([]string, 0)

	for page := 1; page <= s.maxPages; page++ {
		names, err := s.fetchPage(ctx, repo, page)
		if err != nil {
			return nil, err
		}

		result = append(result, names...)

		if len(names) < defaultPerPage {
			return result, nil
		}
	}

	logger.WarnKV(ctx, "Tag listing truncated", "repository", repo.String(), "pages", s.maxPages)

	return result, nil
}

// fetchPage requests a single page of tags.
func (s *GitHubSource) fetchPage(ctx context.Context, repo release.RepositoryIdentity, page int) ([]string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/tags?%s", s.apiURL,
		url.PathEscape(repo.Owner), url.PathEscape(repo.Name),
		url.Values{
			"per_page": {strconv.Itoa(defaultPerPage)},
			"page":     {strconv.Itoa(page)},
		}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", release.ErrClone, err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", release.ErrClone, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: rate limited by GitHub API (%s)", release.ErrClone, resp.Status)
	default:
		return nil, fmt.Errorf("%w: %s: unexpected status %s", release.ErrClone, repo, resp.Status)
	}

	var payload []gitHubTag
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", release.ErrTagList, err)
	}

	names := make([]string, 0, len(payload))
	for _, tag := range payload {
		names = append(names, tag.Name)
	}

	return names, nil
}
