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
//   - ListingStore: Local listings cache (SQLite, PostgreSQL or memory)
//   - ListingSource: Remote listings payload (Alpha Vantage or a file)
//   - ListingDecoder: Payload to listings (CSV or JSON)
//   - ConfigStore: Persisted user settings
//
// # Optional Interfaces
//
// These can be nil or unimplemented - the application degrades gracefully:
//
//   - ListingReplacer: Atomic full replace. Without it Clear and InsertAll are used.
//   - ListingCounter: Cheap row count. Without it an unfiltered Search is counted.
//   - ListingWatcher: Change notifications for file sources.
//   - SchedulerStore: Background refresh state. Without it the scheduler is unavailable.
//   - SyncMetrics: Sync telemetry.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
