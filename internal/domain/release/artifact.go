package release

// ArtifactReference names a release archive and where to download it.
type ArtifactReference struct {
	// Filename is the archive name, e.g. app-1.2.0-linux-x64.zip.
	Filename string
	// URL is the remote download address of the archive.
	URL string
}

// FeedManifest is the document served to the platform updater.
type FeedManifest struct {
	// URL is the artifact download address.
	URL string `json:"url"`
	// Name is the release version; consumers may show it to users.
	Name string `json:"name,omitempty"`
}

// NewFeedManifest builds the manifest announcing the given artifact.
func NewFeedManifest(artifact ArtifactReference, versionName string) *FeedManifest {
	return &FeedManifest{
		URL:  artifact.URL,
		Name: versionName,
	}
}
