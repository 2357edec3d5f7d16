package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
)

// Google Workspace MIME types that can be exported.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

// MaxExportSize is the maximum size for exported text content (5MB).
const MaxExportSize = 5 * 1024 * 1024

// MaxMediaSize is the maximum size for downloaded media content (25MB),
// matching the transcription API upload limit.
const MaxMediaSize = 25 * 1024 * 1024

// FileToRawFile converts a Drive file to a RawFile, fetching its content.
// Google Workspace files are exported to text formats; regular text files
// are downloaded as-is; media files are downloaded raw when the media
// content type is enabled. Returns nil for folders.
func FileToRawFile(
	ctx context.Context, svc *drive.Service, file *drive.File, sourceID string, cfg *Config,
) (*domain.RawFile, error) {
	if file.MimeType == MimeTypeFolder {
		return nil, nil
	}

	content, exportedMime, err := fetchFileContent(ctx, svc, file, cfg)
	if err != nil {
		return nil, err
	}

	// Exported Workspace files carry the export MIME type, everything
	// else keeps its original one.
	mimeType := file.MimeType
	if exportedMime != "" {
		mimeType = exportedMime
	}

	return &domain.RawFile{
		SourceID: sourceID,
		URI:      fmt.Sprintf("gdrive://files/%s", file.Id),
		Name:     file.Name,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{
			"file_id":       file.Id,
			"path":          buildFilePath(file),
			"size":          file.Size,
			"md5_checksum":  file.Md5Checksum,
			"web_link":      file.WebViewLink,
			"modified_time": file.ModifiedTime,
		},
	}, nil
}

// fetchFileContent retrieves the content of a file.
// Returns (content, exportedMIME, error) where exportedMIME is non-empty if
// the file was converted from a Google Workspace format.
func fetchFileContent(ctx context.Context, svc *drive.Service, file *drive.File, cfg *Config) ([]byte, string, error) {
	switch file.MimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		content, err := exportGoogleFile(ctx, svc, file.Id, ExportMimeText)
		return content, ExportMimeText, err
	case MimeTypeGoogleSheet:
		content, err := exportGoogleFile(ctx, svc, file.Id, ExportMimeCSV)
		return content, ExportMimeCSV, err
	}

	if isMediaFile(file.MimeType) {
		if !cfg.HasContentType(ContentMedia) || file.Size > MaxMediaSize {
			return nil, "", nil
		}
		content, err := downloadFile(ctx, svc, file.Id, MaxMediaSize)
		return content, "", err
	}

	// Skip binary files or files that are too large.
	if !isTextFile(file.MimeType) || file.Size > MaxExportSize {
		return nil, "", nil
	}

	content, err := downloadFile(ctx, svc, file.Id, MaxExportSize)
	return content, "", err
}

// downloadFile fetches a regular file's bytes with a size limit.
func downloadFile(ctx context.Context, svc *drive.Service, fileID string, limit int64) ([]byte, error) {
	resp, err := svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read file content: %w", err)
	}

	return data, nil
}

// exportGoogleFile exports a Google Workspace file to the specified format.
func exportGoogleFile(ctx context.Context, svc *drive.Service, fileID, exportMime string) ([]byte, error) {
	resp, err := svc.Files.Export(fileID, exportMime).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("export file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxExportSize))
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	return data, nil
}

// buildFilePath constructs a simple path representation.
func buildFilePath(file *drive.File) string {
	if len(file.Parents) == 0 {
		return "/" + file.Name
	}
	// Resolving parent names would cost an API call per ancestor, so the
	// parent ID stands in.
	return fmt.Sprintf("/%s/%s", file.Parents[0], file.Name)
}

// isTextFile checks if a MIME type is likely text content.
func isTextFile(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}

	textTypes := []string{
		"application/json",
		"application/xml",
		"application/javascript",
		"application/x-yaml",
		"application/x-sh",
		"application/sql",
	}

	for _, t := range textTypes {
		if mimeType == t {
			return true
		}
	}

	return false
}

// isMediaFile checks if a MIME type is audio or video content.
func isMediaFile(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/") || strings.HasPrefix(mimeType, "video/")
}

// ShouldSyncFile checks if a file should be ingested based on config.
func ShouldSyncFile(file *drive.File, cfg *Config) bool {
	if file.MimeType == MimeTypeFolder {
		return false
	}

	if file.Trashed {
		return false
	}

	if len(cfg.MimeTypeFilter) > 0 {
		found := false
		for _, filter := range cfg.MimeTypeFilter {
			if file.MimeType == filter {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	switch {
	case file.MimeType == MimeTypeGoogleDoc:
		return cfg.HasContentType(ContentDocs)
	case file.MimeType == MimeTypeGoogleSheet:
		return cfg.HasContentType(ContentSheets)
	case isMediaFile(file.MimeType):
		return cfg.HasContentType(ContentMedia)
	default:
		return cfg.HasContentType(ContentFiles)
	}
}
