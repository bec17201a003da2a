// Package anthropic is the adapter for Anthropic's Messages API.
package anthropic

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

const (
	name = "anthropic"

	messagesPath = "/v1/messages"

	// APIVersion is sent as the anthropic-version header.
	APIVersion = "2023-06-01"

	// DefaultMaxTokens is used when neither the call nor the config sets one.
	// The Messages API requires max_tokens on every request.
	DefaultMaxTokens = 4096
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

func (p *provider) Name() string {
	return name
}

func (p *provider) SupportsStreaming() bool {
	return true
}

func (p *provider) Send(ctx context.Context, req *llm.Request) (string, error) {
	history, query, err := p.formatter.Format(ctx, req.Conversation)
	if err != nil {
		return "", err
	}

	body := messagesRequest{
		Model:       req.Model,
		Messages:    make([]anthropicMessage, 0, len(history)+1),
		MaxTokens:   p.cfg.MaxTokens(req.Options, DefaultMaxTokens),
		Temperature: req.Options.TemperatureOr(llm.DefaultTemperature),
		Stream:      req.Streaming(),
	}
	for _, m := range append(history, query) {
		msg, err := toMessage(m)
		if err != nil {
			return "", err
		}
		body.Messages = append(body.Messages, msg)
	}

	headers := http.Header{}
	headers.Set("x-api-key", req.APIKey)
	headers.Set("anthropic-version", APIVersion)

	resp, err := transport.PostJSON(ctx, p.client, name, p.cfg.URL(messagesPath), headers, body)
	if err != nil {
		return "", err
	}

	if req.Streaming() {
		return stream(resp, req.Sink)
	}

	var out messagesResponse
	if err := transport.DecodeJSON(name, resp, &out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", out.Error.Message)
	}

	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func stream(resp *http.Response, sink llm.StreamSink) (string, error) {
	defer resp.Body.Close()

	acc := llm.NewAccumulator(sink)
	reader := sse.NewReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			return "", transport.StreamError(name, err)
		}
		if ev == nil {
			break
		}

		switch ev.Type {
		case "message_stop":
			return acc.String(), nil
		case "content_block_delta", "error":
		default:
			continue
		}

		var se streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
			return "", fmt.Errorf("unmarshal anthropic stream event: %w", err)
		}
		if se.Error != nil {
			return "", fmt.Errorf("anthropic error: %s", se.Error.Message)
		}
		if se.Delta != nil && se.Delta.Type == "text_delta" {
			acc.Write(se.Delta.Text)
		}
	}

	return "", transport.StreamError(name, transport.ErrStreamTruncated)
}

// toMessage renders text-only messages as a plain string. Images and PDFs
// become base64 image/document blocks.
func toMessage(m format.Message) (anthropicMessage, error) {
	if len(m.Uploads()) == 0 {
		return anthropicMessage{Role: m.Role, Content: m.Text()}, nil
	}

	blocks := make([]contentBlock, 0, len(m.Parts))
	for _, part := range m.Parts {
		if !part.IsUpload() {
			if part.Text != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: part.Text})
			}
			continue
		}

		var blockType string
		switch mt := part.Upload.MimeType; {
		case strings.HasPrefix(mt, "image/"):
			blockType = "image"
		case mt == "application/pdf":
			blockType = "document"
		default:
			return anthropicMessage{}, fmt.Errorf("%s: %w: only images and PDFs are accepted", part.Upload, llm.ErrFilesNotSupported)
		}

		blocks = append(blocks, contentBlock{
			Type: blockType,
			Source: &blockSource{
				Type:      "base64",
				MediaType: part.Upload.MimeType,
				Data:      base64.StdEncoding.EncodeToString(part.Upload.Data),
			},
		})
	}
	return anthropicMessage{Role: m.Role, Content: blocks}, nil
}
