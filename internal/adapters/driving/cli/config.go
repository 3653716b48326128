package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/listings-cli/internal/config"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change settings stored in config.toml.

Environment variables prefixed with LISTINGS_ override stored values,
e.g. LISTINGS_REMOTE_API_KEY for remote.api_key.`,
	Annotations: map[string]string{annotationSkipServices: "true"},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with its stored or default value",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a setting",
	Long: `Stores a setting in config.toml.

Secret values such as remote.api_key are read from the terminal without
echo when the value argument is omitted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored setting so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}

func openConfigStore() (driven.ConfigStore, error) {
	if configStore != nil {
		return configStore, nil
	}
	if configStoreFactory == nil {
		return nil, errors.New("config store not configured")
	}
	store, err := configStoreFactory(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	return store, nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	store, err := openConfigStore()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
	for _, key := range config.Keys {
		value, source := effectiveValue(store, key)
		fmt.Fprintf(w, "%s\t%v\t%s\n", key.Name, config.Redact(key.Name, value), source)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	cmd.Printf("\nConfig file: %s\n", store.Path())
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key, ok := config.LookupKey(args[0])
	if !ok {
		return unknownKeyError(args[0])
	}
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	value, _ := effectiveValue(store, key)
	cmd.Println(config.Redact(key.Name, value))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, ok := config.LookupKey(args[0])
	if !ok {
		return unknownKeyError(args[0])
	}

	var raw string
	switch {
	case len(args) == 2:
		raw = args[1]
	case key.Secret:
		cmd.Printf("%s: ", key.Name)
		raw = readSecret(cmd.InOrStdin())
		cmd.Println()
	default:
		return fmt.Errorf("missing value for %s", key.Name)
	}

	value, err := config.ParseValue(key.Name, raw)
	if err != nil {
		return err
	}

	store, err := openConfigStore()
	if err != nil {
		return err
	}
	if err := store.Set(key.Name, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key.Name, err)
	}
	cmd.Printf("%s = %v\n", key.Name, config.Redact(key.Name, value))
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if _, ok := config.LookupKey(args[0]); !ok {
		return unknownKeyError(args[0])
	}
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	if err := store.Unset(args[0]); err != nil {
		return fmt.Errorf("failed to unset %s: %w", args[0], err)
	}
	cmd.Printf("%s reset to default\n", args[0])
	return nil
}

// effectiveValue returns the stored value for key, falling back to its default.
func effectiveValue(store driven.ConfigStore, key config.Key) (any, string) {
	if v, ok := store.Get(key.Name); ok {
		return v, "config"
	}
	if key.Default == nil {
		return "", "unset"
	}
	return key.Default, "default"
}

func unknownKeyError(name string) error {
	names := make([]string, 0, len(config.Keys))
	for _, k := range config.Keys {
		names = append(names, k.Name)
	}
	return fmt.Errorf("unknown key %q (valid keys: %s)", name, strings.Join(names, ", "))
}

// readSecret reads a value without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	input, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(input)
}
