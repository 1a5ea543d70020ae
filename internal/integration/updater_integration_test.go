package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/repository/manifest"
	"github.com/oshokin/gh-releases/internal/service/installer"
	"github.com/oshokin/gh-releases/internal/service/updater"
)

// TestCheckAndDownload runs the whole pipeline: tags, feed, archive, install.
func TestCheckAndDownload(t *testing.T) {
	t.Parallel()

	const archivePath = "/owner/app/releases/download/1.2.0/app-1.2.0-linux-x64.zip"

	up := newUpstream(t,
		`[{"name":"v1.2.0"},{"name":"v0.9.0"},{"name":"latest"}]`,
		map[string][]byte{archivePath: zipWith(t, "app", "build 1.2.0")})

	cfg := up.settings(t, "1.0.0")
	target := writeTarget(t, "build 1.0.0")

	consumer, err := installer.New(cfg.StorageDir,
		installer.WithTargetPath(target),
		installer.WithExecutable(cfg.Executable),
		installer.WithHTTPClient(up.releases.Client()))
	require.NoError(t, err)

	u, err := updater.NewFromConfig(cfg, consumer, updater.WithPlatform(release.PlatformFor("linux", "amd64")))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, u.Close(context.Background()))
	})

	ctx := context.Background()

	result, err := u.Check(ctx)
	require.NoError(t, err)
	require.True(t, result.UpdateAvailable())
	require.Equal(t, "https://"+cfg.ReleaseHost+archivePath, result.Artifact.URL)
	require.Equal(t, result.FeedURL, consumer.FeedURL())

	// The manifest on disk and the one served on loopback agree.
	stored, err := manifest.NewFileRepository(cfg.StorageDir).Load(ctx)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.FeedURL, http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	var served release.FeedManifest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&served))
	require.Equal(t, *stored, served)

	require.NoError(t, u.Download(ctx))

	contents, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "build 1.2.0", string(contents))
}

// TestCheck_UpToDateLeavesNothingBehind checks that no update means no feed.
func TestCheck_UpToDateLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	up := newUpstream(t, `[{"name":"v1.2.0"}]`, nil)
	cfg := up.settings(t, "v1.2.0")

	consumer, err := installer.New(cfg.StorageDir, installer.WithTargetPath(writeTarget(t, "x")))
	require.NoError(t, err)

	u, err := updater.NewFromConfig(cfg, consumer)
	require.NoError(t, err)

	result, err := u.Check(context.Background())
	require.NoError(t, err)
	require.False(t, result.UpdateAvailable())
	require.Empty(t, consumer.FeedURL())
	require.NoFileExists(t, u.ManifestPath())
}
