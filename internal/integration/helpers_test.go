package integration

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gh-releases/internal/config"
)

// upstream fakes the GitHub tags API and the release download host.
type upstream struct {
	api      *httptest.Server
	releases *httptest.Server
}

// newUpstream publishes tags for owner/app and one archive per version in archives.
func newUpstream(t *testing.T, tags string, archives map[string][]byte) *upstream {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/app/tags" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tags))
	}))
	t.Cleanup(api.Close)

	mux := http.NewServeMux()
	for urlPath, body := range archives {
		mux.HandleFunc(urlPath, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(body)
		})
	}

	releases := httptest.NewTLSServer(mux)
	t.Cleanup(releases.Close)

	return &upstream{
		api:      api,
		releases: releases,
	}
}

// settings returns validated settings pointing at the fake upstream.
func (u *upstream) settings(t *testing.T, currentVersion string) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Repository:     "owner/app",
		StorageDir:     filepath.Join(t.TempDir(), "storage"),
		CurrentVersion: currentVersion,
		Source:         config.SourceGitHub,
		GitHubAPIURL:   u.api.URL,
		ReleaseHost:    u.releases.Listener.Addr().String(),
		Executable:     "app",
	}
	require.NoError(t, config.Validate(cfg))

	return cfg
}

func zipWith(t *testing.T, name, body string) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := zip.NewWriter(&buf)

	f, err := w.Create(name)
	require.NoError(t, err)

	_, err = f.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func writeTarget(t *testing.T, body string) string {
	t.Helper()

	target := filepath.Join(t.TempDir(), "app")
	require.NoError(t, os.WriteFile(target, []byte(body), 0o755))

	return target
}
