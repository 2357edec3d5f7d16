// Package connectors provides implementations of the Connector interface
// for various content sources. Each connector knows how to fetch files
// from a specific source type (filesystem, Google Drive, etc.).
//
// Connectors are registered with the ConnectorFactory at startup.
package connectors
