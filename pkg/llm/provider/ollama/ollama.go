package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/llm/format"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/transport"
)

const (
	name = "ollama"

	chatPath = "/api/chat"

	maxLineSize = 1024 * 1024
)

type provider struct {
	cfg       transport.Config
	client    *http.Client
	formatter *format.Formatter
}

func New(cfg transport.Config) *provider {
	return &provider{
		cfg:       cfg,
		client:    cfg.Client(),
		formatter: format.New(cfg.Fs, format.ChatVocabulary),
	}
}

func (o *provider) Name() string {
	return name
}

func (o *provider) SupportsStreaming() bool {
	return true
}

// Send calls /api/chat. Ollama is keyless, so req.APIKey is ignored.
func (o *provider) Send(ctx context.Context, req *llm.Request) (string, error) {
	history, query, err := o.formatter.Format(ctx, req.Conversation)
	if err != nil {
		return "", err
	}

	body := chatRequest{
		Model:    req.Model,
		Messages: make([]ollamaMessage, 0, len(history)+1),
		Stream:   req.Streaming(),
		Options: ollamaOptions{
			Temperature: req.Options.TemperatureOr(llm.DefaultTemperature),
		},
	}
	if n := o.cfg.MaxTokens(req.Options, 0); n > 0 {
		body.Options.NumPredict = &n
	}
	for _, m := range append(history, query) {
		msg, err := toMessage(m)
		if err != nil {
			return "", err
		}
		body.Messages = append(body.Messages, msg)
	}

	resp, err := transport.PostJSON(ctx, o.client, name, o.cfg.URL(chatPath), nil, body)
	if err != nil {
		return "", err
	}

	if req.Streaming() {
		return stream(resp, req.Sink)
	}

	var out chatResponse
	if err := transport.DecodeJSON(name, resp, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama error: %s", out.Error)
	}
	return out.Message.Content, nil
}

// stream reads newline-delimited JSON objects until one reports done.
func stream(resp *http.Response, sink llm.StreamSink) (string, error) {
	defer resp.Body.Close()

	acc := llm.NewAccumulator(sink)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("unmarshal ollama stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		acc.Write(chunk.Message.Content)
		if chunk.Done {
			return acc.String(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", transport.StreamError(name, err)
	}

	return "", transport.StreamError(name, transport.ErrStreamTruncated)
}

// toMessage renders a formatted message. Ollama accepts only images as
// attachments, as base64 strings beside the text.
func toMessage(m format.Message) (ollamaMessage, error) {
	msg := ollamaMessage{Role: m.Role, Content: m.Text()}
	for _, u := range m.Uploads() {
		if !strings.HasPrefix(u.MimeType, "image/") {
			return ollamaMessage{}, fmt.Errorf("%s: %w: only images are accepted", u, llm.ErrFilesNotSupported)
		}
		msg.Images = append(msg.Images, base64.StdEncoding.EncodeToString(u.Data))
	}
	return msg, nil
}
