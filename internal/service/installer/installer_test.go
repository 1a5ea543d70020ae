package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := zip.NewWriter(&buf)

	for name, body := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)

		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	return buf.Bytes()
}

// newReleaseServer serves a manifest at /feed.json pointing to /download/app.zip.
func newReleaseServer(t *testing.T, archive []byte, archiveStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	var srv *httptest.Server

	mux.HandleFunc("/feed.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"` + srv.URL + `/download/app-1.2.0-linux-x64.zip","name":"1.2.0"}`))
	})
	mux.HandleFunc("/download/app-1.2.0-linux-x64.zip", func(w http.ResponseWriter, _ *http.Request) {
		if archiveStatus != http.StatusOK {
			w.WriteHeader(archiveStatus)
			return
		}

		_, _ = w.Write(archive)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func newTarget(t *testing.T) string {
	t.Helper()

	target := filepath.Join(t.TempDir(), "app")
	require.NoError(t, os.WriteFile(target, []byte("old build"), DefaultFileMode))

	return target
}

func TestSetFeedURL(t *testing.T) {
	t.Parallel()

	i, err := New(t.TempDir(), WithTargetPath(newTarget(t)))
	require.NoError(t, err)
	require.Equal(t, "app", i.executable)

	require.ErrorIs(t, i.SetFeedURL("not a url"), errBadFeedURL)
	require.ErrorIs(t, i.SetFeedURL("ftp://127.0.0.1/feed.json"), errBadFeedURL)
	require.Empty(t, i.FeedURL())

	require.NoError(t, i.SetFeedURL("http://127.0.0.1:5000/gh_releases/gh_updates.json"))
	require.Equal(t, "http://127.0.0.1:5000/gh_releases/gh_updates.json", i.FeedURL())
}

func TestCheckForUpdates_ReplacesExecutable(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, map[string]string{
		"README.md":   "docs",
		"bin/app":     "new build",
		"bin/helper":  "helper",
		"bin/subdir/": "",
	})

	srv := newReleaseServer(t, archive, http.StatusOK)
	storage := t.TempDir()
	target := newTarget(t)

	i, err := New(storage, WithTargetPath(target), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	require.NoError(t, i.SetFeedURL(srv.URL+"/feed.json"))

	require.NoError(t, i.CheckForUpdates(context.Background()))

	contents, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "new build", string(contents))

	// The downloaded archive is cleaned up.
	require.NoFileExists(t, filepath.Join(storage, "gh_releases", "app-1.2.0-linux-x64.zip"))
}

func TestCheckForUpdates_Failures(t *testing.T) {
	t.Parallel()

	t.Run("no feed", func(t *testing.T) {
		t.Parallel()

		i, err := New(t.TempDir(), WithTargetPath(newTarget(t)))
		require.NoError(t, err)
		require.ErrorIs(t, i.CheckForUpdates(context.Background()), errNoFeed)
	})

	t.Run("archive missing", func(t *testing.T) {
		t.Parallel()

		srv := newReleaseServer(t, nil, http.StatusNotFound)
		target := newTarget(t)

		i, err := New(t.TempDir(), WithTargetPath(target), WithHTTPClient(srv.Client()))
		require.NoError(t, err)
		require.NoError(t, i.SetFeedURL(srv.URL+"/feed.json"))
		require.ErrorIs(t, i.CheckForUpdates(context.Background()), errBadHTTPStatus)

		contents, err := os.ReadFile(target)
		require.NoError(t, err)
		require.Equal(t, "old build", string(contents))
	})

	t.Run("entry missing", func(t *testing.T) {
		t.Parallel()

		srv := newReleaseServer(t, buildArchive(t, map[string]string{"other": "x"}), http.StatusOK)

		i, err := New(t.TempDir(), WithTargetPath(newTarget(t)), WithHTTPClient(srv.Client()))
		require.NoError(t, err)
		require.NoError(t, i.SetFeedURL(srv.URL+"/feed.json"))
		require.ErrorIs(t, i.CheckForUpdates(context.Background()), errEntryNotFound)
	})

	t.Run("manifest without url", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"name":"1.2.0"}`))
		}))
		t.Cleanup(srv.Close)

		i, err := New(t.TempDir(), WithTargetPath(newTarget(t)), WithHTTPClient(srv.Client()))
		require.NoError(t, err)
		require.NoError(t, i.SetFeedURL(srv.URL+"/feed.json"))
		require.ErrorIs(t, i.CheckForUpdates(context.Background()), errEmptyManifest)
	})
}

func TestCheckForUpdates_CustomExecutable(t *testing.T) {
	t.Parallel()

	srv := newReleaseServer(t, buildArchive(t, map[string]string{"tool.exe": "windows build"}), http.StatusOK)
	target := newTarget(t)

	i, err := New(t.TempDir(), WithTargetPath(target), WithExecutable("tool.exe"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	require.NoError(t, i.SetFeedURL(srv.URL+"/feed.json"))
	require.NoError(t, i.CheckForUpdates(context.Background()))

	contents, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "windows build", string(contents))
}
