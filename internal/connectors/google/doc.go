// Package google provides shared infrastructure for Google API connectors.
//
// This package contains common utilities used by the drive connector
// including:
//   - TokenSource construction from stored OAuth credentials
//   - Service factories for creating Google API clients
//   - Error handling for common Google API errors (401, 403, 404, 429)
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
// The drive connector uses this package to create authenticated API clients:
//
//	ts, err := google.NewTokenSource(ctx, creds)
//	svc, err := google.NewDriveService(ctx, ts)
//
// # OAuth2 Scopes
//
// The drive connector requires the read-only scope:
//   - https://www.googleapis.com/auth/drive.readonly (restricted)
//
// For user-created internal apps, restricted scopes don't require verification.
package google
