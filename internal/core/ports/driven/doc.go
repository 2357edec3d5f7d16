// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Connector: Fetches files from a data source
//   - ConnectorFactory: Creates connectors from configuration
//   - ChunkStore: Chunk persistence with lifecycle state
//   - FileRegistry: Records fully ingested files by fingerprint
//   - Classifier: LLM keep/discard annotation
//   - VectorIndex: Uploads kept chunks for retrieval
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Transcriber: Converts audio/video to text. Without it, media files
//     are skipped during ingestion.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
