// Package gemini is the adapter for Google's Gemini generateContent API.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/llm/format"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/transport"
	"github.com/papercomputeco/switchboard/pkg/sse"
)

const (
	name = "gemini"

	// DefaultMaxOutputTokens is used when neither the call nor the config
	// sets an output ceiling.
	DefaultMaxOutputTokens = 8192

	thresholdBlockNone = "BLOCK_NONE"
)

// ErrBlocked is returned when Gemini refuses the prompt outright.
var ErrBlocked = errors.New("gemini blocked the prompt")

// permissiveSafety disables blocking for every adjustable harm category.
var permissiveSafety = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: thresholdBlockNone},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: thresholdBlockNone},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: thresholdBlockNone},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: thresholdBlockNone},
}

type provider struct {
	cfg       transport.Config
	client    *http.Client
	formatter *format.Formatter
}

func New(cfg transport.Config) *provider {
	return &provider{
		cfg:       cfg,
		client:    cfg.Client(),
		formatter: format.New(cfg.Fs, format.GeminiVocabulary),
	}
}

func (p *provider) Name() string {
	return name
}

func (p *provider) SupportsStreaming() bool {
	return true
}

// Send formats the conversation and calls generateContent, or
// streamGenerateContent when the request carries a sink.
func (p *provider) Send(ctx context.Context, req *llm.Request) (string, error) {
	history, query, err := p.formatter.Format(ctx, req.Conversation)
	if err != nil {
		return "", err
	}

	body := generateRequest{
		Contents: make([]geminiContent, 0, len(history)+1),
		GenerationConfig: generationConfig{
			Temperature:     req.Options.TemperatureOr(llm.DefaultTemperature),
			MaxOutputTokens: p.cfg.MaxTokens(req.Options, DefaultMaxOutputTokens),
		},
		SafetySettings: permissiveSafety,
	}
	for _, m := range history {
		body.Contents = append(body.Contents, toContent(m))
	}
	body.Contents = append(body.Contents, toContent(query))

	headers := http.Header{}
	headers.Set("x-goog-api-key", req.APIKey)

	if req.Streaming() {
		return p.stream(ctx, req, headers, body)
	}

	url := p.cfg.URL("/models/" + req.Model + ":generateContent")
	resp, err := transport.PostJSON(ctx, p.client, name, url, headers, body)
	if err != nil {
		return "", err
	}

	var out generateResponse
	if err := transport.DecodeJSON(name, resp, &out); err != nil {
		return "", err
	}
	return responseText(&out)
}

func (p *provider) stream(ctx context.Context, req *llm.Request, headers http.Header, body generateRequest) (string, error) {
	url := p.cfg.URL("/models/" + req.Model + ":streamGenerateContent?alt=sse")
	resp, err := transport.PostJSON(ctx, p.client, name, url, headers, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Gemini has no end-of-stream event; the last chunk carries a
	// finishReason.
	finished := false
	acc := llm.NewAccumulator(req.Sink)
	reader := sse.NewReader(resp.Body)
	for {
		ev, err := reader.Next()
		if err != nil {
			return "", transport.StreamError(name, err)
		}
		if ev == nil {
			break
		}

		var chunk generateResponse
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return "", fmt.Errorf("unmarshal gemini stream chunk: %w", err)
		}
		text, err := responseText(&chunk)
		if err != nil {
			return "", err
		}
		acc.Write(text)
		if len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason != "" {
			finished = true
		}
	}

	if !finished {
		return "", transport.StreamError(name, transport.ErrStreamTruncated)
	}
	return acc.String(), nil
}

func toContent(m format.Message) geminiContent {
	c := geminiContent{Role: m.Role, Parts: make([]geminiPart, 0, len(m.Parts))}
	for _, part := range m.Parts {
		if part.IsUpload() {
			c.Parts = append(c.Parts, geminiPart{InlineData: &inlineData{
				MimeType: part.Upload.MimeType,
				Data:     base64.StdEncoding.EncodeToString(part.Upload.Data),
			}})
			continue
		}
		text := part.Text
		c.Parts = append(c.Parts, geminiPart{Text: &text})
	}
	return c
}

// responseText extracts the first candidate's text. A chunk with no
// candidates and no block reason is a keep-alive and yields "".
func responseText(r *generateResponse) (string, error) {
	if r.Error != nil {
		return "", fmt.Errorf("gemini error %d %s: %s", r.Error.Code, r.Error.Status, r.Error.Message)
	}
	if len(r.Candidates) == 0 {
		if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: %s", ErrBlocked, r.PromptFeedback.BlockReason)
		}
		return "", nil
	}

	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		if part.Text != nil {
			b.WriteString(*part.Text)
		}
	}
	return b.String(), nil
}
