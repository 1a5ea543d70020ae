package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/oshokin/gh-releases/internal/domain/release"
)

const (
	// DirectoryName is the storage root subfolder served by the local feed.
	DirectoryName = "gh_releases"
	// Filename is the manifest file name inside DirectoryName.
	Filename = "gh_updates.json"

	directoryPermissions = 0o755
	filePermissions      = 0o644
)

// schema describes the manifest document accepted on read.
const schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["url"],
  "properties": {
    "url":  {"type": "string", "format": "uri", "minLength": 1},
    "name": {"type": "string"}
  }
}`

// ErrNotFound is returned when no manifest has been written yet.
var ErrNotFound = errors.New("manifest not found")

// errInvalidManifest is returned when a stored document does not match the schema.
var errInvalidManifest = errors.New("manifest does not match schema")

// Repository defines persistence operations for the feed manifest.
type Repository interface {
	Save(ctx context.Context, manifest *release.FeedManifest) error
	Load(ctx context.Context) (*release.FeedManifest, error)
	Remove(ctx context.Context) error
	Path() string
}

// FileRepository stores the manifest at {storageRoot}/gh_releases/gh_updates.json.
type FileRepository struct {
	// path is the manifest file location.
	path string
	// mu serializes writers and readers of the manifest file.
	mu sync.Mutex
	// schema validates documents on Load.
	schema *gojsonschema.Schema
}

// NewFileRepository creates a repository rooted at storageRoot.
func NewFileRepository(storageRoot string) *FileRepository {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		// The schema is a constant; failing here is a programming error.
		panic(fmt.Sprintf("compile manifest schema: %v", err))
	}

	return &FileRepository{
		path:   filepath.Join(filepath.Clean(storageRoot), DirectoryName, Filename),
		schema: compiled,
	}
}

// Path returns the manifest file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Directory returns the directory holding the manifest and downloaded artifacts.
func (r *FileRepository) Directory() string {
	return filepath.Dir(r.path)
}

// Save replaces the manifest. The parent directory is created when missing and
// the document is renamed into place, so readers never see a partial file.
func (r *FileRepository) Save(ctx context.Context, manifest *release.FeedManifest) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", release.ErrPersistence, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("%w: encode manifest: %w", release.ErrPersistence, err)
	}

	dir := filepath.Dir(r.path)
	if err = os.MkdirAll(dir, directoryPermissions); err != nil {
		return fmt.Errorf("%w: create %s: %w", release.ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, Filename+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temporary manifest: %w", release.ErrPersistence, err)
	}

	tmpName := tmp.Name()

	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write manifest: %w", release.ErrPersistence, err)
	}

	if err = tmp.Chmod(filePermissions); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: chmod manifest: %w", release.ErrPersistence, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close manifest: %w", release.ErrPersistence, err)
	}

	if err = os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("%w: replace manifest: %w", release.ErrPersistence, err)
	}

	return nil
}

// Load reads and validates the manifest.
func (r *FileRepository) Load(_ context.Context) (*release.FeedManifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	result, err := r.schema.Validate(gojsonschema.NewBytesLoader(contents))
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}

		return nil, fmt.Errorf("%w: %s", errInvalidManifest, strings.Join(details, "; "))
	}

	var manifest release.FeedManifest
	if err = json.Unmarshal(contents, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return &manifest, nil
}

// Remove deletes the manifest. A missing manifest is not an error.
func (r *FileRepository) Remove(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove manifest: %w", err)
	}

	return nil
}
