// Command listings keeps a local cache of company listings in sync with a
// remote source and serves it over a CLI, a terminal UI and MCP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/listings-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/listings-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
	"github.com/custodia-labs/listings-cli/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)
	cli.SetConfigStoreFactory(openConfigStore)

	err := cli.ExecuteContext(context.Background())
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openConfigStore(configDir string) (driven.ConfigStore, error) {
	return file.NewConfigStore(configDir)
}
