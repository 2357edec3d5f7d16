// Package filesystem provides a connector that reads files from a
// local directory tree, with real-time change watching via fsnotify.
package filesystem

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
	"github.com/atelier-labs/corpora-cli/internal/logger"
)

// Type is the connector type identifier.
const Type = "filesystem"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// mimeByExtension maps common extensions to MIME types that
// mime.TypeByExtension gets wrong or misses on minimal systems.
var mimeByExtension = map[string]string{
	".md":   "text/markdown",
	".txt":  "text/plain",
	".go":   "text/x-go",
	".py":   "text/x-python",
	".json": "application/json",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
}

// Connector reads files from a local directory tree.
type Connector struct {
	sourceID string
	rootPath string
	watcher  *fsnotify.Watcher
}

// New creates a filesystem connector for the given source and root.
func New(sourceID, rootPath string) *Connector {
	return &Connector{
		sourceID: sourceID,
		rootPath: rootPath,
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return Type
}

// SourceID returns the configured source ID.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns what this connector supports.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsWatch:  true,
		SupportsBinary: true,
		RequiresAuth:   false,
	}
}

// Validate checks the root path exists and is a readable directory.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("root path does not exist: %s", c.rootPath)
		}
		return fmt.Errorf("checking root path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path is not a directory: %s", c.rootPath)
	}
	return nil
}

// FullSync walks the directory tree and sends every visible file.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawFile, <-chan error) {
	files := make(chan domain.RawFile, 10)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		if err := c.Validate(ctx); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.rootPath, func(path string, entry os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if hidden(entry.Name()) && path != c.rootPath {
				if entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.IsDir() {
				return nil
			}

			raw, err := c.readFile(path)
			if err != nil {
				logger.Warn("skipping unreadable file %s: %v", path, err)
				return nil
			}

			select {
			case files <- *raw:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errs <- fmt.Errorf("walking %s: %w", c.rootPath, err)
		}
	}()

	return files, errs
}

// Watch listens for file changes under the root using fsnotify.
// Subdirectories are registered as they are discovered or created;
// fsnotify itself is not recursive.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawFileChange, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	c.watcher = watcher

	// Register the root and every visible subdirectory.
	err = filepath.WalkDir(c.rootPath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if hidden(entry.Name()) && path != c.rootPath {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("registering watch paths: %w", err)
	}

	changes := make(chan domain.RawFileChange, 10)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if change := c.handleFsEvent(watcher, event); change != nil {
					select {
					case changes <- *change:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error on %s: %v", c.rootPath, err)
			}
		}
	}()

	return changes, nil
}

// handleFsEvent maps an fsnotify event to a file change.
// Returns nil for events that should be ignored (directories,
// hidden files, chmod).
func (c *Connector) handleFsEvent(watcher *fsnotify.Watcher, event fsnotify.Event) *domain.RawFileChange {
	name := filepath.Base(event.Name)
	if hidden(name) {
		return nil
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return nil
		}
		if info.IsDir() {
			// New directories join the watch set; they are not
			// changes themselves.
			if err := watcher.Add(event.Name); err != nil {
				logger.Warn("failed to watch new directory %s: %v", event.Name, err)
			}
			return nil
		}
		raw, err := c.readFile(event.Name)
		if err != nil {
			return nil
		}
		return &domain.RawFileChange{Type: domain.ChangeCreated, File: *raw}

	case event.Op.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		raw, err := c.readFile(event.Name)
		if err != nil {
			return nil
		}
		return &domain.RawFileChange{Type: domain.ChangeUpdated, File: *raw}

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		return &domain.RawFileChange{
			Type: domain.ChangeDeleted,
			File: domain.RawFile{
				SourceID: c.sourceID,
				URI:      "file://" + event.Name,
				Name:     name,
			},
		}
	}

	return nil
}

// Close releases resources.
func (c *Connector) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// readFile loads a file into a RawFile.
func (c *Connector) readFile(path string) (*domain.RawFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	return &domain.RawFile{
		SourceID: c.sourceID,
		URI:      "file://" + path,
		Name:     name,
		MIMEType: detectMIME(ext),
		Content:  content,
		Metadata: map[string]any{
			"filename":    name,
			"extension":   strings.TrimPrefix(ext, "."),
			"size":        info.Size(),
			"modified_at": info.ModTime().UTC(),
		},
	}, nil
}

// detectMIME resolves a MIME type from a file extension.
func detectMIME(ext string) string {
	if mimeType, ok := mimeByExtension[ext]; ok {
		return mimeType
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		// Strip parameters like "; charset=utf-8".
		if idx := strings.Index(mimeType, ";"); idx >= 0 {
			mimeType = mimeType[:idx]
		}
		return strings.TrimSpace(mimeType)
	}
	return "application/octet-stream"
}

// hidden reports whether a file or directory name is dot-prefixed.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
