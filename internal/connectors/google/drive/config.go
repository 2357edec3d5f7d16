package drive

import (
	"strconv"
	"strings"

	"github.com/atelier-labs/corpora-cli/internal/connectors/google"
	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

// ContentType identifies what content to ingest from Google Drive.
type ContentType string

const (
	// ContentFiles ingests regular files.
	ContentFiles ContentType = "files"
	// ContentDocs ingests Google Docs (exported to text).
	ContentDocs ContentType = "docs"
	// ContentSheets ingests Google Sheets (exported to CSV text).
	ContentSheets ContentType = "sheets"
	// ContentMedia ingests audio and video files for transcription.
	ContentMedia ContentType = "media"
)

// DefaultContentTypes are the content types ingested by default.
var DefaultContentTypes = []ContentType{ContentFiles, ContentDocs, ContentSheets}

// Config holds Google Drive connector configuration.
type Config struct {
	// Credentials are the OAuth credentials for the Drive account.
	Credentials google.Credentials
	// ContentTypes specifies what types of content to ingest.
	ContentTypes []ContentType
	// MimeTypeFilter limits ingestion to specific MIME types (optional).
	MimeTypeFilter []string
	// FolderIDs limits ingestion to specific folders (optional).
	FolderIDs []string
	// MaxResults is the page size for API requests.
	MaxResults int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ContentTypes: DefaultContentTypes,
		MaxResults:   100,
	}
}

// ParseConfig extracts configuration from a Source.
func ParseConfig(source domain.Source) (*Config, error) {
	cfg := DefaultConfig()

	cfg.Credentials = google.Credentials{
		ClientID:     source.Config["client_id"],
		ClientSecret: source.Config["client_secret"],
		RefreshToken: source.Config["refresh_token"],
		AccessToken:  source.Config["access_token"],
	}

	if val := source.Config["content_types"]; val != "" {
		types := strings.Split(val, ",")
		cfg.ContentTypes = make([]ContentType, 0, len(types))
		for _, t := range types {
			ct := ContentType(strings.TrimSpace(t))
			if isValidContentType(ct) {
				cfg.ContentTypes = append(cfg.ContentTypes, ct)
			}
		}
	}

	if val := source.Config["mime_types"]; val != "" {
		cfg.MimeTypeFilter = strings.Split(val, ",")
		for i := range cfg.MimeTypeFilter {
			cfg.MimeTypeFilter[i] = strings.TrimSpace(cfg.MimeTypeFilter[i])
		}
	}

	if val := source.Config["folder_ids"]; val != "" {
		cfg.FolderIDs = strings.Split(val, ",")
		for i := range cfg.FolderIDs {
			cfg.FolderIDs[i] = strings.TrimSpace(cfg.FolderIDs[i])
		}
	}

	if val := source.Config["max_results"]; val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			cfg.MaxResults = n
		}
	}

	return cfg, nil
}

// HasContentType checks if a content type is enabled.
func (c *Config) HasContentType(ct ContentType) bool {
	for _, t := range c.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

func isValidContentType(ct ContentType) bool {
	switch ct {
	case ContentFiles, ContentDocs, ContentSheets, ContentMedia:
		return true
	default:
		return false
	}
}
