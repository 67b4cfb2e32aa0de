// Package configcmder provides the config command for managing persistent
// emission configuration stored in the .emission/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent emission configuration.

Configuration is stored as config.toml in the .emission/ directory and
provides default values for command flags. CLI flags always take
precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_target, client.timeout_seconds, client.streaming,
  serve.listen

Use subcommands to get, set, or list configuration values:
  emission config set <key> <value>    Set a configuration value
  emission config get <key>            Get a configuration value
  emission config list                 List all configuration values

Examples:
  emission config set client.api_target http://localhost:8000
  emission config set client.streaming false
  emission config get client.api_target
  emission config list`

const configShortDesc string = "Manage persistent emission configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
