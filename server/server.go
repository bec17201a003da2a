// Package server exposes the router over HTTP: a one-shot JSON endpoint and a
// server-sent events stream of the cumulative text.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/logger"
	"github.com/papercomputeco/switchboard/pkg/registry"
	"github.com/papercomputeco/switchboard/pkg/sse"
	"github.com/papercomputeco/switchboard/server/mcp"
	"github.com/papercomputeco/switchboard/server/worker"
)

// StatusClientClosedRequest is the non-standard status used when the caller
// went away before the call finished.
const StatusClientClosedRequest = 499

// Generator is the call surface the server needs from the router.
type Generator interface {
	Generate(ctx context.Context, conv llm.Conversation, key string, uc registry.UserConfig, sink llm.StreamSink) (string, error)

	// Registry is the selection table listed by GET /v1/selections. It is
	// read per request so a reloaded router is picked up.
	Registry() *registry.Registry
}

// Server is the switchboard HTTP API.
type Server struct {
	config Config
	app    *fiber.App
	pool   *worker.Pool
	logger *slog.Logger
}

// New creates a new Server.
func New(config Config) (*Server, error) {
	if config.Generator == nil {
		return nil, errors.New("generator is required")
	}

	log := logger.OrNop(config.Logger)

	wp, err := worker.NewPool(&worker.Config{
		NumWorkers: config.MaxConcurrent,
		QueueSize:  config.QueueSize,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	// Compression is skipped for the event stream, which is not buffered,
	// and for MCP, which negotiates its own transport.
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/v1/generate" || c.Path() == "/mcp"
		},
	}))

	s := &Server{
		config: config,
		app:    app,
		pool:   wp,
		logger: log,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/selections", s.handleSelections)
	app.Post("/v1/generate", s.handleGenerate)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Generator: config.Generator,
			Logger:    log,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting server", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Close stops accepting requests and waits for in-flight calls to drain.
func (s *Server) Close() error {
	err := s.app.Shutdown()
	s.pool.Close()
	return err
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.SendString("pong")
}

func (s *Server) handleSelections(c *fiber.Ctx) error {
	reg := s.config.Generator.Registry()
	return c.JSON(selectionsResponse{
		Default:    reg.Default(),
		Selections: reg.Descriptors(),
	})
}

func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req generateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body: " + err.Error()})
	}

	conv := llm.Conversation(req.Conversation)
	if err := conv.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	conv, err := resolveAttachments(s.config.FileRoot, conv)
	if err != nil {
		s.logger.Warn("rejected request attachments", "error", err)
		return c.Status(statusFor(err)).JSON(errorResponse{Error: err.Error()})
	}

	uc := registry.UserConfig{Creativity: req.Creativity.String()}

	if req.Stream {
		return s.handleStreamingGenerate(c, &req, conv, uc)
	}

	var (
		text   string
		genErr error
	)
	// fasthttp never cancels a request context when the client goes away.
	ctx, stop := watchDisconnect(c.UserContext(), c.Context().Conn())
	defer stop()

	start := time.Now()
	err = s.pool.Do(ctx, req.Selection, func(ctx context.Context) {
		text, genErr = s.config.Generator.Generate(ctx, conv, req.Selection, uc, nil)
	})
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: err.Error()})
	}
	if genErr != nil {
		s.logger.Warn("generate request failed",
			"selection", req.Selection,
			"error", genErr,
			"duration", time.Since(start),
		)
		return c.Status(statusFor(genErr)).JSON(errorResponse{Error: genErr.Error()})
	}

	return c.JSON(generateResponse{Text: text})
}

// handleStreamingGenerate answers with an SSE stream: one "data" event of the
// cumulative text per chunk, then a "done" event carrying the final text or
// an "error" event.
func (s *Server) handleStreamingGenerate(c *fiber.Ctx, req *generateRequest, conv llm.Conversation, uc registry.UserConfig) error {
	// fasthttp recycles its RequestCtx after the handler returns, but the
	// stream is produced by a worker after that, so the call gets its own
	// context. It is cancelled when the client stops reading.
	ctx, cancel := context.WithCancel(context.Background())

	// io.Pipe + SetBodyStream gives per-chunk flushing to the socket;
	// SetBodyStreamWriter buffers chunks in memory.
	pr, pw := io.Pipe()

	ok := s.pool.Enqueue(worker.Job{
		Ctx:       ctx,
		Selection: req.Selection,
		Run: func(ctx context.Context) {
			s.streamGenerate(ctx, cancel, pw, conv, req.Selection, uc)
		},
	})
	if !ok {
		cancel()
		pr.Close()
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: worker.ErrQueueFull.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) streamGenerate(ctx context.Context, cancel context.CancelFunc, pw *io.PipeWriter, conv llm.Conversation, key string, uc registry.UserConfig) {
	defer pw.Close()
	defer cancel()

	w := sse.NewWriter(pw)
	start := time.Now()

	text, err := s.config.Generator.Generate(ctx, conv, key, uc, func(text string) {
		if werr := w.Write(jsonEvent("", generateResponse{Text: text})); werr != nil {
			s.logger.Debug("client stopped reading stream", "error", werr)
			cancel()
		}
	})
	if err != nil {
		s.logger.Warn("streaming generate failed",
			"selection", key,
			"error", err,
			"duration", time.Since(start),
		)
		_ = w.Write(jsonEvent("error", errorResponse{Error: err.Error()}))
		return
	}

	_ = w.Write(jsonEvent("done", generateResponse{Text: text}))
}

func jsonEvent(typ string, v any) sse.Event {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{"error":"encoding event"}`)
	}
	return sse.Event{Type: typ, Data: string(data)}
}

// statusFor maps a generate failure onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, llm.ErrEmptyConversation):
		return fiber.StatusBadRequest
	case errors.Is(err, llm.ErrFilesNotSupported), errors.Is(err, ErrAttachmentsDisabled):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrAttachmentOutsideRoot):
		return fiber.StatusForbidden
	case errors.Is(err, llm.ErrCancelled):
		return StatusClientClosedRequest
	case errors.Is(err, llm.ErrAllProvidersExhausted):
		return fiber.StatusBadGateway
	case errors.Is(err, llm.ErrNoCredentials), errors.Is(err, llm.ErrUnknownBackend):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
