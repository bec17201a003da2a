// Package switchboardcmder
package switchboardcmder

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/switchboard/cmd/switchboard/ask"
	authcmder "github.com/papercomputeco/switchboard/cmd/switchboard/auth"
	configcmder "github.com/papercomputeco/switchboard/cmd/switchboard/config"
	initcmder "github.com/papercomputeco/switchboard/cmd/switchboard/init"
	providerscmder "github.com/papercomputeco/switchboard/cmd/switchboard/providers"
	servecmder "github.com/papercomputeco/switchboard/cmd/switchboard/serve"
	versioncmder "github.com/papercomputeco/switchboard/cmd/version"
	"github.com/papercomputeco/switchboard/pkg/utils"
)

const switchboardLongDesc string = `Switchboard routes chat completions across LLM providers.

Every call names a selection (a backend and model pair). Switchboard resolves
the selection, rotates through the comma-separated API keys stored for the
backend, and retries the whole pipeline before giving up.

Get started:
  switchboard auth gemini          Store one or more Gemini API keys
  switchboard providers            List the available selections
  switchboard ask "hello"          Send a one-shot prompt
  switchboard serve                Run the HTTP API

A .env file in the working directory is loaded before any command runs.`

const switchboardShortDesc string = "Switchboard - multi-provider LLM routing"

func NewSwitchboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "switchboard",
		Short:         switchboardShortDesc,
		Long:          switchboardLongDesc,
		Version:       utils.VersionString(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(".env")
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .switchboard/ config directory")

	// Add subcommands
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(providerscmder.NewProvidersCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
