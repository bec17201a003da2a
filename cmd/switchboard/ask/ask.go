// Package askcmder provides the ask command for one-shot prompts.
package askcmder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/switchboard/pkg/cliui"
	"github.com/papercomputeco/switchboard/pkg/config"
	"github.com/papercomputeco/switchboard/pkg/credentials"
	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/logger"
	"github.com/papercomputeco/switchboard/pkg/registry"
	"github.com/papercomputeco/switchboard/pkg/router"
)

type askCommander struct {
	configDir  string
	debug      bool
	selection  string
	creativity string
	files      []string
	noStream   bool
	render     bool

	maxRetries     int
	initialBackoff string
	maxBackoff     string

	out    io.Writer
	logger *slog.Logger
}

const askLongDesc string = `Send a one-shot prompt and print the answer.

The prompt is taken from the arguments, or from stdin when no arguments are
given. The answer streams to the terminal as it is generated unless
--no-stream or --render is set.

Files (-f) are attached to the prompt and are only accepted by selections
that support file upload (see "switchboard providers").

Examples:
  switchboard ask "What is a B-tree?"
  switchboard ask -s ClaudeHaiku -c 0.2 "Summarize this" -f notes.pdf
  git diff | switchboard ask -s GPT4o --render`

const askShortDesc string = "Send a one-shot prompt"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: askShortDesc,
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()

			// An unset --selection routes to the configured default.
			if !cmd.Flags().Changed(config.RouterFlags[config.FlagSelection].Name) {
				cmder.selection = ""
			}

			cfg, err := cmder.loadConfig(cmd)
			if err != nil {
				return err
			}

			prompt, err := readPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			return cmder.run(cmd, cfg, prompt)
		},
	}

	config.AddStringFlag(cmd, config.RouterFlags, config.FlagSelection, &cmder.selection)
	config.AddIntFlag(cmd, config.RouterFlags, config.FlagMaxRetries, &cmder.maxRetries)
	config.AddStringFlag(cmd, config.RouterFlags, config.FlagInitialBackoff, &cmder.initialBackoff)
	config.AddStringFlag(cmd, config.RouterFlags, config.FlagMaxBackoff, &cmder.maxBackoff)
	cmd.Flags().StringVarP(&cmder.creativity, "creativity", "c", "", "Sampling temperature, clamped to >= 0 and rounded to one decimal")
	cmd.Flags().StringArrayVarP(&cmder.files, "file", "f", nil, "File to attach to the prompt (repeatable)")
	cmd.Flags().BoolVar(&cmder.noStream, "no-stream", false, "Print the answer only once it is complete")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render the final answer as markdown")

	return cmd
}

// loadConfig resolves the config through viper so the retry flags, the
// SWITCHBOARD_* environment, and config.toml all apply.
func (c *askCommander) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return nil, err
	}

	config.BindRegisteredFlags(v, cmd, config.RouterFlags, []string{
		config.FlagMaxRetries,
		config.FlagInitialBackoff,
		config.FlagMaxBackoff,
	})

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (c *askCommander) run(cmd *cobra.Command, cfg *config.Config, prompt string) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(cmd.ErrOrStderr()),
	)

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	rt, err := router.FromConfig(cfg, creds, c.logger)
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}
	defer rt.Close()

	conv := llm.Conversation{llm.NewUserTurn(prompt, c.files...)}
	uc := registry.UserConfig{Creativity: c.creativity}

	var (
		sink    llm.StreamSink
		printer *streamPrinter
	)
	if !c.noStream && !c.render {
		printer = newStreamPrinter(c.out)
		sink = printer.sink
	}

	text, err := rt.Generate(cmd.Context(), conv, c.selection, uc, sink)
	if printer != nil {
		printer.finish()
	}
	if err != nil {
		return err
	}

	switch {
	case printer != nil:
		return nil
	case c.render:
		rendered, rerr := cliui.RenderMarkdown(text)
		if rerr != nil {
			c.logger.Debug("markdown render failed", "error", rerr)
		}
		fmt.Fprint(c.out, rendered)
	default:
		fmt.Fprintln(c.out, text)
	}

	return nil
}

// readPrompt joins the arguments, or reads stdin when there are none and it
// is not a terminal.
func readPrompt(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("prompt argument required (or pipe a prompt on stdin)")
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("prompt cannot be empty")
	}
	return prompt, nil
}
