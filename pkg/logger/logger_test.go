package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchboard/pkg/logger"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("creates a default text logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("hello", "key", "value")

			output := buf.String()
			Expect(output).To(ContainSubstring("hello"))
			Expect(output).To(ContainSubstring("key"))
			Expect(output).To(ContainSubstring("value"))
		})

		It("respects debug level", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
			l.Debug("debug msg")

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("filters debug when not enabled", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(false))
			l.Debug("hidden")

			Expect(buf.String()).To(BeEmpty())
		})

		It("creates a JSON logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("structured", "count", 42)

			var parsed map[string]any
			err := json.Unmarshal(buf.Bytes(), &parsed)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed["msg"]).To(Equal("structured"))
			Expect(parsed["count"]).To(BeNumerically("==", 42))
		})

		It("creates a pretty logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
			l.Info("pretty output")

			Expect(buf.String()).To(ContainSubstring("pretty output"))
		})

		It("prefers JSON over pretty output", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithJSON(true))
			l.Info("both")

			var parsed map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &parsed)).To(Succeed())
			Expect(parsed["msg"]).To(Equal("both"))
		})

		It("includes the source location when asked", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true), logger.WithSource(true))
			l.Info("where")

			Expect(buf.String()).To(ContainSubstring(`"source"`))
		})

		It("returns *slog.Logger", func() {
			l := logger.New()
			// Verify it's a real *slog.Logger by calling Handler()
			Expect(l.Handler()).NotTo(BeNil())
		})
	})

	Describe("Nop", func() {
		It("does not panic on any method", func() {
			l := logger.Nop()
			Expect(func() {
				l.Debug("msg")
				l.Info("msg")
				l.Warn("msg")
				l.Error("msg")
				l.With("key", "value").Info("msg")
				l.WithGroup("group").Info("msg")
			}).NotTo(Panic())
		})

		It("returns *slog.Logger", func() {
			l := logger.Nop()
			Expect(l.Handler()).NotTo(BeNil())
		})

		It("discards all output", func() {
			l := logger.Nop()
			// Nop handler should report Enabled=false for all levels
			Expect(l.Handler().Enabled(context.Background(), slog.LevelInfo)).To(BeFalse())
		})
	})

	Describe("OrNop", func() {
		It("keeps a provided logger", func() {
			l := logger.New(logger.WithWriter(GinkgoWriter))
			Expect(logger.OrNop(l)).To(BeIdenticalTo(l))
		})

		It("substitutes a discarding logger for nil", func() {
			l := logger.OrNop(nil)
			Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		})
	})

	Describe("WithTee", func() {
		It("copies records to the tee as JSON", func() {
			var term, file bytes.Buffer
			l := logger.New(logger.WithWriter(&term), logger.WithTee(&file))

			l.Info("broadcast", "key", "val")

			Expect(term.String()).To(ContainSubstring("broadcast"))

			var parsed map[string]any
			Expect(json.Unmarshal(bytes.TrimSpace(file.Bytes()), &parsed)).To(Succeed())
			Expect(parsed["msg"]).To(Equal("broadcast"))
			Expect(parsed["key"]).To(Equal("val"))
			Expect(parsed).To(HaveKey(slog.SourceKey))
		})

		It("logs debug records to the tee only", func() {
			var term, file bytes.Buffer
			l := logger.New(logger.WithWriter(&term), logger.WithDebug(false), logger.WithTee(&file))

			Expect(l.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
			l.Debug("detail")

			Expect(term.String()).To(BeEmpty())
			Expect(file.String()).To(ContainSubstring(`"msg":"detail"`))
		})

		It("carries With and WithGroup to every sink", func() {
			var term, file bytes.Buffer
			l := logger.New(logger.WithWriter(&term), logger.WithJSON(true), logger.WithTee(&file))

			l.With("component", "router").WithGroup("request").Info("processed", "method", "GET")

			for _, out := range []*bytes.Buffer{&term, &file} {
				var parsed map[string]any
				Expect(json.Unmarshal(bytes.TrimSpace(out.Bytes()), &parsed)).To(Succeed())
				Expect(parsed["component"]).To(Equal("router"))
				Expect(parsed["request"]).To(HaveKeyWithValue("method", "GET"))
			}
		})

		It("keeps writing to the other sinks when one fails", func() {
			var file bytes.Buffer
			l := logger.New(logger.WithWriter(failingWriter{}), logger.WithTee(&file))

			err := l.Handler().Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still here", 0))
			Expect(err).To(HaveOccurred())
			Expect(file.String()).To(ContainSubstring("still here"))
		})
	})

	Describe("With", func() {
		It("binds fields to child logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			child := l.With("service", "router")
			child.Info("started")

			lines := strings.TrimSpace(buf.String())
			var parsed map[string]any
			err := json.Unmarshal([]byte(lines), &parsed)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed["service"]).To(Equal("router"))
			Expect(parsed["msg"]).To(Equal("started"))
		})
	})

	Describe("WithGroup", func() {
		It("nests keys under group", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			child := l.WithGroup("request")
			child.Info("processed", "method", "GET")

			lines := strings.TrimSpace(buf.String())
			var parsed map[string]any
			err := json.Unmarshal([]byte(lines), &parsed)
			Expect(err).NotTo(HaveOccurred())

			// slog groups nest attributes under the group name
			group, ok := parsed["request"].(map[string]any)
			Expect(ok).To(BeTrue(), "expected 'request' group in JSON output")
			Expect(group["method"]).To(Equal("GET"))
		})
	})
})
