package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
)

// KeyKind is the value type of a configuration key.
type KeyKind string

// Key kinds.
const (
	KindString   KeyKind = "string"
	KindInt      KeyKind = "int"
	KindBool     KeyKind = "bool"
	KindDuration KeyKind = "duration"
)

// Key describes a supported configuration key.
type Key struct {
	Name        string
	Kind        KeyKind
	Default     any
	Secret      bool
	Description string
}

// Keys lists every supported configuration key.
var Keys = []Key{
	{Name: "remote.kind", Kind: KindString, Default: string(domain.RemoteKindAlphaVantage), Description: "Listing source (alphavantage, file)"},
	{Name: "remote.base_url", Kind: KindString, Default: "https://www.alphavantage.co", Description: "Alpha Vantage API base URL"},
	{Name: "remote.api_key", Kind: KindString, Default: "demo", Secret: true, Description: "Alpha Vantage API key"},
	{Name: "remote.token", Kind: KindString, Secret: true, Description: "Bearer token sent with API requests"},
	{Name: "remote.path", Kind: KindString, Description: "Listings file for the file source"},
	{Name: "remote.format", Kind: KindString, Default: string(domain.RecordFormatCSV), Description: "Payload format (csv, json)"},
	{Name: "remote.requests_per_minute", Kind: KindInt, Default: 5, Description: "Request throttle for the API source"},
	{Name: "store.driver", Kind: KindString, Default: string(domain.StoreDriverSQLite), Description: "Cache backend (sqlite, postgres, memory)"},
	{Name: "store.data_dir", Kind: KindString, Description: "Directory for the SQLite database"},
	{Name: "store.dsn", Kind: KindString, Secret: true, Description: "PostgreSQL connection string"},
	{Name: "sync.retain_query", Kind: KindBool, Default: false, Description: "Filter the post-refresh snapshot by the query"},
	{Name: "scheduler.enabled", Kind: KindBool, Default: true, Description: "Refresh in the background during watch"},
	{Name: "scheduler.interval", Kind: KindDuration, Default: "24h", Description: "Background refresh interval"},
	{Name: "telemetry.enabled", Kind: KindBool, Default: false, Description: "Export sync metrics over OTLP"},
	{Name: "telemetry.endpoint", Kind: KindString, Description: "OTLP/HTTP collector host:port"},
	{Name: "telemetry.insecure", Kind: KindBool, Default: false, Description: "Use plain HTTP for the collector"},
}

// LookupKey returns the key named name.
func LookupKey(name string) (Key, bool) {
	for _, k := range Keys {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

// ParseValue converts raw to the type stored for key name.
// Durations are validated and stored in their string form.
func ParseValue(name, raw string) (any, error) {
	key, ok := LookupKey(name)
	if !ok {
		return nil, fmt.Errorf("unknown config key %q: %w", name, domain.ErrInvalidInput)
	}
	raw = strings.TrimSpace(raw)

	switch key.Kind {
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer: %w", name, domain.ErrInvalidInput)
		}
		return n, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false: %w", name, domain.ErrInvalidInput)
		}
		return b, nil
	case KindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects a duration like 24h: %w", name, domain.ErrInvalidInput)
		}
		return d.String(), nil
	default:
		return raw, nil
	}
}

// Redact masks secret values for display.
func Redact(name string, value any) any {
	key, ok := LookupKey(name)
	if !ok || !key.Secret {
		return value
	}
	s := fmt.Sprint(value)
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
