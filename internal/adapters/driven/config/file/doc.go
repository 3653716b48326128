// Package file provides the TOML-backed settings store.
//
// The file it writes is the same config.toml the layered configuration
// loader reads, so values set through the store take effect on the next run.
package file
