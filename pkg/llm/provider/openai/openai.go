// Package openai is the adapter for OpenAI-compatible Chat Completions APIs.
// The same adapter serves OpenAI itself, DeepInfra's OpenAI endpoint, and a
// local keyless g4f server; only the name and base URL differ.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/llm/format"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/transport"
	"github.com/papercomputeco/switchboard/pkg/sse"
)

const chatCompletionsPath = "/chat/completions"

type provider struct {
	name      string
	cfg       transport.Config
	client    *http.Client
	formatter *format.Formatter
}

// New returns an adapter reporting itself as name.
func New(name string, cfg transport.Config) *provider {
	return &provider{
		name:      name,
		cfg:       cfg,
		client:    cfg.Client(),
		formatter: format.New(cfg.Fs, format.ChatVocabulary),
	}
}

func (o *provider) Name() string {
	return o.name
}

func (o *provider) SupportsStreaming() bool {
	return true
}

func (o *provider) Send(ctx context.Context, req *llm.Request) (string, error) {
	history, query, err := o.formatter.Format(ctx, req.Conversation)
	if err != nil {
		return "", err
	}

	body := chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, 0, len(history)+1),
		Temperature: req.Options.TemperatureOr(llm.DefaultTemperature),
		Stream:      req.Streaming(),
	}
	if n := o.cfg.MaxTokens(req.Options, 0); n > 0 {
		body.MaxTokens = &n
	}
	for _, m := range append(history, query) {
		msg, err := toMessage(m)
		if err != nil {
			return "", err
		}
		body.Messages = append(body.Messages, msg)
	}

	headers := http.Header{}
	if req.APIKey != "" {
		headers.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := transport.PostJSON(ctx, o.client, o.name, o.cfg.URL(chatCompletionsPath), headers, body)
	if err != nil {
		return "", err
	}

	if req.Streaming() {
		return o.stream(resp, req.Sink)
	}

	var out chatResponse
	if err := transport.DecodeJSON(o.name, resp, &out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", fmt.Errorf("%s error: %s", o.name, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", o.name)
	}
	return out.Choices[0].Message.Content, nil
}

func (o *provider) stream(resp *http.Response, sink llm.StreamSink) (string, error) {
	defer resp.Body.Close()

	acc := llm.NewAccumulator(sink)
	reader := sse.NewReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			return "", transport.StreamError(o.name, err)
		}
		if ev == nil {
			return "", transport.StreamError(o.name, transport.ErrStreamTruncated)
		}
		if ev.IsDone() {
			return acc.String(), nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return "", fmt.Errorf("unmarshal %s stream chunk: %w", o.name, err)
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("%s error: %s", o.name, chunk.Error.Message)
		}
		if len(chunk.Choices) > 0 {
			acc.Write(chunk.Choices[0].Delta.Content)
		}
	}
}

// toMessage renders a formatted message. Text-only messages use the plain
// string form; image uploads become data-URL image parts. Other upload
// types have no Chat Completions representation.
func toMessage(m format.Message) (chatMessage, error) {
	uploads := m.Uploads()
	if len(uploads) == 0 {
		return chatMessage{Role: m.Role, Content: m.Text()}, nil
	}

	parts := make([]contentPart, 0, len(m.Parts))
	for _, p := range m.Parts {
		if !p.IsUpload() {
			parts = append(parts, contentPart{Type: "text", Text: p.Text})
			continue
		}
		if !strings.HasPrefix(p.Upload.MimeType, "image/") {
			return chatMessage{}, fmt.Errorf("%s: %w: only images are accepted", p.Upload, llm.ErrFilesNotSupported)
		}
		url := "data:" + p.Upload.MimeType + ";base64," + base64.StdEncoding.EncodeToString(p.Upload.Data)
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
	}
	return chatMessage{Role: m.Role, Content: parts}, nil
}
