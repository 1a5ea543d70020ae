package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto"
	"crypto/sha512"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/gh-releases/internal/domain/release"
	"github.com/oshokin/gh-releases/internal/logger"
	"github.com/oshokin/gh-releases/internal/repository/manifest"
)

const (
	// DefaultFileMode is applied to the replaced executable.
	DefaultFileMode os.FileMode = 0o755

	// DefaultChecksumFunction verifies the extracted executable before it is applied.
	DefaultChecksumFunction = crypto.SHA512

	maxManifestSize = 1 << 20
	maxEntrySize    = 1 << 30
)

var (
	errNoFeed         = errors.New("feed URL is not set")
	errBadFeedURL     = errors.New("feed URL must be an absolute http(s) URL")
	errBadHTTPStatus  = errors.New("bad HTTP status")
	errEmptyManifest  = errors.New("manifest has no archive URL")
	errEntryNotFound  = errors.New("executable not found in archive")
	errEntryTooLarge  = errors.New("archive entry is too large")
	errNoArchiveName  = errors.New("archive URL has no file name")
	errNoTargetBinary = errors.New("target executable is not set")
)

// Installer downloads the announced archive and applies it.
type Installer struct {
	client      *http.Client
	downloadDir string
	executable  string
	targetPath  string

	mu      sync.Mutex
	feedURL string
}

// Option configures an Installer.
type Option func(*Installer)

// WithHTTPClient sets the client used for the feed and the archive.
func WithHTTPClient(client *http.Client) Option {
	return func(i *Installer) {
		if client != nil {
			i.client = client
		}
	}
}

// WithExecutable sets the archive entry to install. Defaults to the target's base name.
func WithExecutable(name string) Option {
	return func(i *Installer) {
		if name != "" {
			i.executable = name
		}
	}
}

// WithTargetPath sets the file to replace. Defaults to the running executable.
func WithTargetPath(target string) Option {
	return func(i *Installer) {
		if target != "" {
			i.targetPath = target
		}
	}
}

// New creates an Installer that downloads into the feed directory of storageRoot.
func New(storageRoot string, opts ...Option) (*Installer, error) {
	i := &Installer{
		client:      http.DefaultClient,
		downloadDir: manifest.NewFileRepository(storageRoot).Directory(),
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.targetPath == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errNoTargetBinary, err)
		}

		i.targetPath = self
	}

	if i.executable == "" {
		i.executable = filepath.Base(i.targetPath)
	}

	return i, nil
}

// SetFeedURL remembers where the manifest is served.
func (i *Installer) SetFeedURL(feedURL string) error {
	parsed, err := url.ParseRequestURI(feedURL)
	if err != nil {
		return fmt.Errorf("%w: %w", errBadFeedURL, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w, got %q", errBadFeedURL, feedURL)
	}

	i.mu.Lock()
	i.feedURL = feedURL
	i.mu.Unlock()

	return nil
}

// FeedURL returns the remembered feed URL.
func (i *Installer) FeedURL() string {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.feedURL
}

// CheckForUpdates fetches the manifest, downloads the archive and installs the executable.
func (i *Installer) CheckForUpdates(ctx context.Context) error {
	ctx = logger.WithName(ctx, "installer")

	feedURL := i.FeedURL()
	if feedURL == "" {
		return errNoFeed
	}

	feed, err := i.fetchManifest(ctx, feedURL)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Downloading release", "version", feed.Name, "url", feed.URL)

	archivePath, err := i.download(ctx, feed.URL)
	if err != nil {
		return err
	}

	defer func() {
		if removeErr := os.Remove(archivePath); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove downloaded archive", "path", archivePath, "error", removeErr)
		}
	}()

	data, err := extractEntry(archivePath, i.executable)
	if err != nil {
		return err
	}

	checksum := sha512.Sum512(data)

	logger.InfoKV(ctx, "Applying update", "target", i.targetPath, "entry", i.executable)

	//nolint:exhaustruct // Signature verification is not used.
	options := goupdate.Options{
		TargetPath: i.targetPath,
		TargetMode: DefaultFileMode,
		Checksum:   checksum[:],
		Hash:       DefaultChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	logger.InfoKV(ctx, "Update applied", "version", feed.Name)

	return nil
}

// fetchManifest reads the feed manifest.
func (i *Installer) fetchManifest(ctx context.Context, feedURL string) (*release.FeedManifest, error) {
	response, err := i.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	var feed release.FeedManifest
	if err = json.NewDecoder(io.LimitReader(response.Body, maxManifestSize)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if feed.URL == "" {
		return nil, errEmptyManifest
	}

	return &feed, nil
}

// download saves the archive into the download directory and returns its path.
func (i *Installer) download(ctx context.Context, archiveURL string) (string, error) {
	parsed, err := url.Parse(archiveURL)
	if err != nil {
		return "", fmt.Errorf("parse archive URL: %w", err)
	}

	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return "", errNoArchiveName
	}

	response, err := i.get(ctx, archiveURL)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if err = os.MkdirAll(i.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(i.downloadDir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	_, copyErr := io.Copy(tmp, response.Body)
	closeErr := tmp.Close()

	if err = errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("save archive: %w", err)
	}

	target := filepath.Join(i.downloadDir, name)
	if err = os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("save archive: %w", err)
	}

	logger.InfoKV(ctx, "Downloaded archive", "path", target)

	return target, nil
}

// get issues a GET and fails on anything but 200.
func (i *Installer) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := i.client.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()
		return nil, fmt.Errorf("%s, %s: %w", target, response.Status, errBadHTTPStatus)
	}

	return response, nil
}

// extractEntry returns the contents of the first regular file named name.
func extractEntry(archivePath, name string) ([]byte, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || path.Base(file.Name) != name {
			continue
		}

		if file.UncompressedSize64 > maxEntrySize {
			return nil, fmt.Errorf("%s: %w", file.Name, errEntryTooLarge)
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file.Name, err)
		}

		data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize))
		_ = rc.Close()

		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file.Name, err)
		}

		return data, nil
	}

	return nil, fmt.Errorf("%s: %w", name, errEntryNotFound)
}
