// Package servecmder provides the serve command for running the HTTP API.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/switchboard/pkg/config"
	"github.com/papercomputeco/switchboard/pkg/credentials"
	"github.com/papercomputeco/switchboard/pkg/logger"
	"github.com/papercomputeco/switchboard/pkg/router"
	"github.com/papercomputeco/switchboard/server"
)

type serveCommander struct {
	configDir string
	debug     bool

	listen         string
	selection      string
	maxRetries     int
	initialBackoff string
	maxBackoff     string

	maxConcurrent uint
	queueSize     uint
	logFile       string
	watch         bool
	noMCP         bool
	fileRoot      string

	// reload re-reads the config through the same precedence chain as
	// startup. Used by --watch.
	reload func() (*config.Config, error)

	// retired tracks routers replaced by a reload that are still draining.
	retired sync.WaitGroup

	// listener overrides listen when set.
	listener net.Listener

	logger *slog.Logger
}

const serveLongDesc string = `Run the switchboard HTTP API.

Endpoints:
  GET  /ping             Liveness check
  GET  /v1/selections    The selection table and the default selection
  POST /v1/generate      Generate a response
  POST /mcp              MCP tools: generate, list_selections (disable with --no-mcp)

POST /v1/generate takes:
  {
    "selection": "GoogleGemini",
    "creativity": 0.7,
    "stream": false,
    "conversation": [{"role": "user", "content": "hello", "files": []}]
  }

and answers {"text": "..."}. With "stream": true the answer is a server-sent
event stream of {"text": ...} frames carrying the cumulative text, ending
with a "done" event (the final text) or an "error" event.

Conversation "files" are refused unless --file-root is set. Paths are then
resolved relative to that directory and may not leave it.

With --watch, edits to config.toml are applied without a restart. Calls
already in flight finish on the configuration they started with.

Examples:
  switchboard serve
  switchboard serve --watch
  switchboard serve -l :9000 -s ClaudeHaiku --log-file switchboard.log`

const serveShortDesc string = "Run the switchboard HTTP API"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfg, err := cmder.loadConfig(cmd)
			if err != nil {
				return err
			}
			cmder.reload = func() (*config.Config, error) {
				return cmder.loadConfig(cmd)
			}

			return cmder.run(cmd.Context(), cmd.ErrOrStderr(), cfg)
		},
	}

	config.AddStringFlag(cmd, config.ServerFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.ServerFlags, config.FlagSelection, &cmder.selection)
	config.AddIntFlag(cmd, config.RouterFlags, config.FlagMaxRetries, &cmder.maxRetries)
	config.AddStringFlag(cmd, config.RouterFlags, config.FlagInitialBackoff, &cmder.initialBackoff)
	config.AddStringFlag(cmd, config.RouterFlags, config.FlagMaxBackoff, &cmder.maxBackoff)
	cmd.Flags().UintVar(&cmder.maxConcurrent, "max-concurrent", 0, "Maximum concurrent generate calls (0 uses the default of 8)")
	cmd.Flags().UintVar(&cmder.queueSize, "queue-size", 0, "Generate calls allowed to wait for a free worker (0 uses the default of 64)")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Reload config.toml when it changes")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the MCP endpoint")
	cmd.Flags().StringVar(&cmder.fileRoot, "file-root", "", "Directory request file attachments may be read from (unset refuses attachments)")

	return cmd
}

func (c *serveCommander) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return nil, err
	}

	config.BindRegisteredFlags(v, cmd, config.ServerFlags, []string{
		config.FlagListen,
		config.FlagSelection,
	})
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

func (c *serveCommander) run(ctx context.Context, stderr io.Writer, cfg *config.Config) error {
	closeLog, err := c.setupLogger(stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	rt, err := router.FromConfig(cfg, creds, c.logger)
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}
	gen := router.NewSwappable(rt)
	defer gen.Close()
	defer c.retired.Wait()

	srv, err := server.New(server.Config{
		ListenAddr:    cfg.Server.Listen,
		Generator:     gen,
		MaxConcurrent: c.maxConcurrent,
		QueueSize:     c.queueSize,
		DisableMCP:    c.noMCP,
		FileRoot:      c.fileRoot,
		Logger:        c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer srv.Close()

	c.logger.Info("routing",
		"default_selection", rt.Registry().Default(),
		"max_retries", cfg.Router.Retries(),
		"initial_backoff", cfg.Router.InitialBackoff,
		"max_backoff", cfg.Router.MaxBackoff,
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		var err error
		if c.listener != nil {
			err = srv.RunWithListener(c.listener)
		} else {
			err = srv.Run()
		}
		if err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}

	if c.watch && c.reload != nil {
		watchCtx, stopWatch := context.WithCancel(ctx)
		defer stopWatch()
		if err := c.startWatch(watchCtx, gen, creds); err != nil {
			return err
		}
	}

	// Wait for interrupt signal, cancellation, or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return nil
	case <-ctx.Done():
		c.logger.Info("context done, shutting down")
		return nil
	}
}

// startWatch rebuilds the router whenever config.toml changes. A config that
// fails to load keeps the previous router in service.
func (c *serveCommander) startWatch(ctx context.Context, gen *router.Swappable, creds router.CredentialSource) error {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	path := cfger.GetTarget()

	go func() {
		err := config.Watch(ctx, path, config.DefaultWatchDebounce, func() {
			c.reloadRouter(gen, creds)
		})
		if err != nil {
			c.logger.Error("config watcher stopped", "error", err)
		}
	}()

	c.logger.Info("watching config", "path", path)
	return nil
}

func (c *serveCommander) reloadRouter(gen *router.Swappable, creds router.CredentialSource) {
	cfg, err := c.reload()
	if err != nil {
		c.logger.Error("config reload failed, keeping previous config", "error", err)
		return
	}

	rt, err := router.FromConfig(cfg, creds, c.logger)
	if err != nil {
		c.logger.Error("config reload failed, keeping previous config", "error", err)
		return
	}

	// The previous router closes once the calls it is serving have finished,
	// so their call events are still published.
	old := gen.Swap(rt)
	c.retired.Add(1)
	go func() {
		defer c.retired.Done()
		if err := old.Close(); err != nil {
			c.logger.Warn("closing previous router", "error", err)
		}
	}()

	c.logger.Info("config reloaded",
		"default_selection", rt.Registry().Default(),
		"max_retries", cfg.Router.Retries(),
	)
}

// setupLogger builds the pretty terminal logger. With --log-file every record,
// debug included, is also appended to that file as JSON.
func (c *serveCommander) setupLogger(stderr io.Writer) (func(), error) {
	opts := []logger.Option{
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(stderr),
	}

	if c.logFile == "" {
		c.logger = logger.New(opts...)
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	c.logger = logger.New(append(opts, logger.WithTee(f))...)

	return func() { _ = f.Close() }, nil
}
