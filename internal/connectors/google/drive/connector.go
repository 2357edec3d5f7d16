package drive

import (
	"context"
	"fmt"
	"strings"
	"sync"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/atelier-labs/corpora-cli/internal/connectors/google"
	"github.com/atelier-labs/corpora-cli/internal/core/domain"
	"github.com/atelier-labs/corpora-cli/internal/core/ports/driven"
	"github.com/atelier-labs/corpora-cli/internal/logger"
)

// Type is the connector type identifier for Google Drive.
const Type = "google-drive"

// listFields are the file fields requested from the Drive API.
const listFields = "nextPageToken, files(id, name, mimeType, size, md5Checksum, modifiedTime, parents, trashed, webViewLink)"

// Connector ingests files from a Google Drive account.
type Connector struct {
	sourceID string
	cfg      *Config
	limiter  *google.RateLimiter

	// extra client options, used by tests to point at a local server
	clientOpts []option.ClientOption

	mu  sync.Mutex
	svc *drivev3.Service
}

var _ driven.Connector = (*Connector)(nil)

// New creates a Google Drive connector from a source configuration.
func New(source domain.Source, opts ...option.ClientOption) (*Connector, error) {
	cfg, err := ParseConfig(source)
	if err != nil {
		return nil, err
	}

	return &Connector{
		sourceID:   source.ID,
		cfg:        cfg,
		limiter:    google.NewRateLimiter(google.DefaultDriveRateLimit),
		clientOpts: opts,
	}, nil
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return Type
}

// SourceID returns the configured source ID.
func (c *Connector) SourceID() string {
	return c.sourceID
}

// Capabilities returns what the Drive connector supports.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsWatch:        false,
		SupportsBinary:       true,
		RequiresAuth:         true,
		SupportsRateLimiting: true,
		SupportsPagination:   true,
	}
}

// service lazily creates the Drive API client.
func (c *Connector) service(ctx context.Context) (*drivev3.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.svc != nil {
		return c.svc, nil
	}

	ts, err := google.NewTokenSource(ctx, c.cfg.Credentials)
	if err != nil {
		return nil, err
	}

	svc, err := google.NewDriveService(ctx, ts, c.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	c.svc = svc
	return svc, nil
}

// Validate checks credentials by making a minimal Files.List call.
func (c *Connector) Validate(ctx context.Context) error {
	svc, err := c.service(ctx)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err = svc.Files.List().
		PageSize(1).
		Fields(googleapi.Field("files(id)")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("drive validation failed: %w", google.WrapError(err))
	}

	return nil
}

// FullSync fetches all matching files from the Drive account.
// Both channels are closed when the sync finishes.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawFile, <-chan error) {
	files := make(chan domain.RawFile, 10)
	errs := make(chan error, 10)

	go func() {
		defer close(files)
		defer close(errs)

		svc, err := c.service(ctx)
		if err != nil {
			errs <- err
			return
		}

		pageToken := ""
		for {
			if err := c.limiter.Wait(ctx); err != nil {
				errs <- err
				return
			}

			call := svc.Files.List().
				Q(c.buildQuery()).
				PageSize(c.cfg.MaxResults).
				Fields(googleapi.Field(listFields)).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			page, err := call.Do()
			if err != nil {
				wrapped := google.WrapError(err)
				if google.IsRateLimited(wrapped) {
					c.limiter.RecordRateLimitError(0)
				}
				errs <- fmt.Errorf("list files: %w", wrapped)
				return
			}

			for _, f := range page.Files {
				if !ShouldSyncFile(f, c.cfg) {
					continue
				}

				if err := c.limiter.Wait(ctx); err != nil {
					errs <- err
					return
				}

				raw, err := FileToRawFile(ctx, svc, f, c.sourceID, c.cfg)
				if err != nil {
					logger.Warn("drive: fetch %s (%s): %v", f.Name, f.Id, err)
					errs <- fmt.Errorf("fetch %s: %w", f.Id, google.WrapError(err))
					continue
				}
				if raw == nil {
					continue
				}

				select {
				case files <- *raw:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}

			pageToken = page.NextPageToken
			if pageToken == "" {
				return
			}
		}
	}()

	return files, errs
}

// buildQuery constructs the Files.List query string from the config.
func (c *Connector) buildQuery() string {
	terms := []string{"trashed = false"}

	if len(c.cfg.FolderIDs) > 0 {
		parents := make([]string, 0, len(c.cfg.FolderIDs))
		for _, id := range c.cfg.FolderIDs {
			parents = append(parents, fmt.Sprintf("'%s' in parents", id))
		}
		terms = append(terms, "("+strings.Join(parents, " or ")+")")
	}

	return strings.Join(terms, " and ")
}

// Watch is not supported for Google Drive; the Drive changes API needs a
// push notification channel with a public HTTPS endpoint.
func (c *Connector) Watch(_ context.Context) (<-chan domain.RawFileChange, error) {
	return nil, fmt.Errorf("%w: google-drive does not support watch", domain.ErrUnsupportedType)
}

// Close releases resources. The Drive client has nothing to release.
func (c *Connector) Close() error {
	return nil
}
