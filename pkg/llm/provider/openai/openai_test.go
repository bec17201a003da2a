package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/llm/provider"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/openai"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/transport"
)

var _ = Describe("OpenAI-compatible provider", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		path    string
		auth    string
		body    map[string]any
		fs      afero.Fs
		p       provider.Provider
	)

	BeforeEach(func() {
		path, auth, body = "", "", nil
		fs = afero.NewMemMapFs()
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi!"},"finish_reason":"stop"}]}`))
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			handler(w, r)
		}))
		p = openai.New("deepinfra", transport.Config{BaseURL: server.URL + "/v1/openai", HTTPClient: server.Client(), Fs: fs})
	})

	AfterEach(func() {
		server.Close()
	})

	It("reports the configured name", func() {
		Expect(p.Name()).To(Equal("deepinfra"))
		Expect(p.SupportsStreaming()).To(BeTrue())
	})

	It("posts chat completions with bearer auth and plain string content", func() {
		conv := llm.Conversation{llm.NewUserTurn("hello"), llm.NewAssistantTurn("hey"), llm.NewUserTurn("how are you")}
		text, err := p.Send(context.Background(), &llm.Request{APIKey: "sk-1", Model: "m", Conversation: conv})
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Hi!"))

		Expect(path).To(Equal("/v1/openai/chat/completions"))
		Expect(auth).To(Equal("Bearer sk-1"))
		Expect(body["model"]).To(Equal("m"))
		Expect(body["temperature"]).To(BeNumerically("==", 0.7))
		Expect(body).NotTo(HaveKey("max_tokens"))

		msgs := body["messages"].([]any)
		Expect(msgs).To(HaveLen(3))
		Expect(msgs[1].(map[string]any)["role"]).To(Equal("assistant"))
		Expect(msgs[2].(map[string]any)["content"]).To(Equal("how are you"))
	})

	It("omits the Authorization header for keyless backends", func() {
		_, err := p.Send(context.Background(), &llm.Request{Model: "m", Conversation: llm.Conversation{llm.NewUserTurn("x")}})
		Expect(err).NotTo(HaveOccurred())
		Expect(auth).To(BeEmpty())
	})

	It("sends images as data URL parts", func() {
		png := []byte("\x89PNG\r\n\x1a\n0000")
		Expect(afero.WriteFile(fs, "/img.png", png, 0o644)).To(Succeed())

		conv := llm.Conversation{llm.NewUserTurn("what is this", "/img.png")}
		_, err := p.Send(context.Background(), &llm.Request{Model: "m", Conversation: conv})
		Expect(err).NotTo(HaveOccurred())

		parts := body["messages"].([]any)[0].(map[string]any)["content"].([]any)
		Expect(parts).To(HaveLen(2))
		img := parts[1].(map[string]any)
		Expect(img["type"]).To(Equal("image_url"))
		Expect(img["image_url"].(map[string]any)["url"]).To(HavePrefix("data:image/png;base64,"))
	})

	It("rejects non-image attachments", func() {
		Expect(afero.WriteFile(fs, "/notes.txt", []byte("text"), 0o644)).To(Succeed())

		conv := llm.Conversation{llm.NewUserTurn("read", "/notes.txt")}
		_, err := p.Send(context.Background(), &llm.Request{Model: "m", Conversation: conv})
		Expect(errors.Is(err, llm.ErrFilesNotSupported)).To(BeTrue())
	})

	It("surfaces an error body as an error", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
		}
		_, err := p.Send(context.Background(), &llm.Request{Model: "m", Conversation: llm.Conversation{llm.NewUserTurn("x")}})
		Expect(err).To(MatchError(ContainSubstring("model overloaded")))
	})

	It("returns a TransportError on a non-2xx status", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`bad key`))
		}
		_, err := p.Send(context.Background(), &llm.Request{APIKey: "bad", Model: "m", Conversation: llm.Conversation{llm.NewUserTurn("x")}})

		var te *llm.TransportError
		Expect(errors.As(err, &te)).To(BeTrue())
		Expect(te.Provider).To(Equal("deepinfra"))
		Expect(te.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("streams deltas until [DONE]", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Write([]byte(
				"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
					"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
					": keep-alive\n\n" +
					"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
					"data: [DONE]\n\n" +
					"data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n"))
		}

		var seen []string
		req := &llm.Request{Model: "m", Conversation: llm.Conversation{llm.NewUserTurn("x")}, Sink: func(t string) { seen = append(seen, t) }}
		text, err := p.Send(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Hello"))
		Expect(seen).To(Equal([]string{"Hel", "Hello"}))
		Expect(body["stream"]).To(BeTrue())
	})

	It("fails when the stream ends before [DONE]", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"))
		}

		req := &llm.Request{Model: "m", Conversation: llm.Conversation{llm.NewUserTurn("x")}, Sink: func(string) {}}
		text, err := p.Send(context.Background(), req)
		Expect(text).To(BeEmpty())

		var te *llm.TransportError
		Expect(errors.As(err, &te)).To(BeTrue())
		Expect(errors.Is(err, transport.ErrStreamTruncated)).To(BeTrue())
	})
})
