// Package providerscmder provides the providers command, which lists the
// selection table.
package providerscmder

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/switchboard/pkg/cliui"
	"github.com/papercomputeco/switchboard/pkg/config"
	"github.com/papercomputeco/switchboard/pkg/llm/provider"
	"github.com/papercomputeco/switchboard/pkg/registry"
)

const providersLongDesc string = `List the available selections.

Each selection pairs a backend with a model. The configured default
(router.default_selection) is marked with *; requests that name an unknown
selection are routed to it.

Capabilities:
  stream     answers can be streamed as they are generated
  files      file attachments are accepted
  functions  the model supports function calling
  keyless    the backend is local and needs no credentials

Examples:
  switchboard providers
  switchboard providers --json`

const providersShortDesc string = "List the available selections"

type providersCommander struct {
	configDir string
	jsonOut   bool
}

func NewProvidersCmd() *cobra.Command {
	cmder := &providersCommander{}

	cmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"selections"},
		Short:   providersShortDesc,
		Long:    providersLongDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the table as JSON")

	return cmd
}

func (c *providersCommander) run(out io.Writer) error {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	reg, err := registry.New(cfg.Router.DefaultSelection)
	if err != nil {
		return fmt.Errorf("router.default_selection: %w", err)
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Default    string                `json:"default"`
			Selections []registry.Descriptor `json:"selections"`
		}{reg.Default(), reg.Descriptors()})
	}

	width := 0
	for _, k := range reg.Keys() {
		width = max(width, len(k))
	}

	fmt.Fprintln(out)
	for _, d := range reg.Descriptors() {
		mark := " "
		if d.Key == reg.Default() {
			mark = cliui.SuccessMark
		}

		badges := cliui.Badges(map[string]bool{
			"stream":    d.Capabilities.Streaming,
			"files":     d.Capabilities.FileUpload,
			"functions": d.Capabilities.FunctionCalling,
			"keyless":   !provider.RequiresCredential(d.Backend),
		}, "stream", "files", "functions", "keyless")

		fmt.Fprintf(out, "%s %s  %s %s\n",
			mark,
			cliui.KeyValue(d.Key, width, d.Backend+"/"+d.Model),
			cliui.DimStyle.Render(d.Title),
			badges,
		)
	}
	fmt.Fprintf(out, "\n  %s default: %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(reg.Default()))

	return nil
}
