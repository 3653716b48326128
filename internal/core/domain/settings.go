package domain

const unknownDescription = "Unknown"

// StoreDriver identifies a local store backend.
type StoreDriver string

// Available store drivers.
const (
	// StoreDriverSQLite is an embedded SQLite database in the data directory.
	StoreDriverSQLite StoreDriver = "sqlite"

	// StoreDriverPostgres is a PostgreSQL database reached through a DSN.
	StoreDriverPostgres StoreDriver = "postgres"

	// StoreDriverMemory keeps listings in process memory only.
	StoreDriverMemory StoreDriver = "memory"
)

// IsValid returns true if the store driver is recognised.
func (d StoreDriver) IsValid() bool {
	switch d {
	case StoreDriverSQLite, StoreDriverPostgres, StoreDriverMemory:
		return true
	default:
		return false
	}
}

// IsPersistent returns true if listings survive a restart.
func (d StoreDriver) IsPersistent() bool {
	return d == StoreDriverSQLite || d == StoreDriverPostgres
}

// String returns the string representation.
func (d StoreDriver) String() string {
	return string(d)
}

// Description returns a human-readable description of the driver.
func (d StoreDriver) Description() string {
	switch d {
	case StoreDriverSQLite:
		return "SQLite (local file)"
	case StoreDriverPostgres:
		return "PostgreSQL (server)"
	case StoreDriverMemory:
		return "Memory (not persisted)"
	default:
		return unknownDescription
	}
}

// RemoteKind identifies where fresh listings are fetched from.
type RemoteKind string

// Available remote kinds.
const (
	// RemoteKindAlphaVantage is the Alpha Vantage LISTING_STATUS endpoint.
	RemoteKindAlphaVantage RemoteKind = "alphavantage"

	// RemoteKindFile is a local file holding a listings dump.
	RemoteKindFile RemoteKind = "file"
)

// IsValid returns true if the remote kind is recognised.
func (k RemoteKind) IsValid() bool {
	return k == RemoteKindAlphaVantage || k == RemoteKindFile
}

// RequiresAPIKey returns true if this remote needs an API key.
func (k RemoteKind) RequiresAPIKey() bool {
	return k == RemoteKindAlphaVantage
}

// String returns the string representation.
func (k RemoteKind) String() string {
	return string(k)
}

// Description returns a human-readable description of the remote.
func (k RemoteKind) Description() string {
	switch k {
	case RemoteKindAlphaVantage:
		return "Alpha Vantage (LISTING_STATUS)"
	case RemoteKindFile:
		return "Local file"
	default:
		return unknownDescription
	}
}

// RecordFormat identifies the wire format of a listings payload.
type RecordFormat string

// Available record formats.
const (
	// RecordFormatCSV is a header row followed by one listing per line.
	RecordFormatCSV RecordFormat = "csv"

	// RecordFormatJSON is an array of listing objects.
	RecordFormatJSON RecordFormat = "json"
)

// IsValid returns true if the record format is recognised.
func (f RecordFormat) IsValid() bool {
	return f == RecordFormatCSV || f == RecordFormatJSON
}

// String returns the string representation.
func (f RecordFormat) String() string {
	return string(f)
}

// AllStoreDrivers returns all available store drivers.
func AllStoreDrivers() []StoreDriver {
	return []StoreDriver{StoreDriverSQLite, StoreDriverPostgres, StoreDriverMemory}
}

// AllRemoteKinds returns all available remote kinds.
func AllRemoteKinds() []RemoteKind {
	return []RemoteKind{RemoteKindAlphaVantage, RemoteKindFile}
}

// SyncSettings holds listings sync behaviour.
type SyncSettings struct {
	// RetainQuery re-applies the caller's query to the snapshot emitted
	// after a refresh. When false the post-refresh snapshot is unfiltered.
	RetainQuery bool
}
