// Package configcmder provides the config command for managing persistent
// switchboard configuration stored in the .switchboard/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent switchboard configuration.

Configuration is stored as config.toml in the .switchboard/ directory and
provides default values for command flags. CLI flags always take precedence,
then SWITCHBOARD_* environment variables, then config file values.

Keys use dotted notation matching the TOML section structure:
  router.default_selection, router.max_retries,
  router.initial_backoff, router.max_backoff,
  <backend>.base_url, <backend>.max_output_tokens
    (backend is one of gemini, openai, deepinfra, anthropic, ollama, g4f),
  server.listen

Use subcommands to get, set, or list configuration values:
  switchboard config set <key> <value>    Set a configuration value
  switchboard config get <key>            Get a configuration value
  switchboard config list                 List all configuration values

Examples:
  switchboard config set router.default_selection ClaudeHaiku
  switchboard config set router.max_retries 5
  switchboard config set ollama.base_url http://gpu-box:11434
  switchboard config get router.default_selection
  switchboard config list`

const configShortDesc string = "Manage persistent switchboard configuration"

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
