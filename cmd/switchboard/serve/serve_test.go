package servecmder

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchboard/pkg/config"
	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/logger"
	"github.com/papercomputeco/switchboard/pkg/registry"
	"github.com/papercomputeco/switchboard/pkg/router"
)

var _ = Describe("NewServeCmd", func() {
	It("registers its flags", func() {
		cmd := NewServeCmd()
		for _, name := range []string{"listen", "selection", "max-retries", "initial-backoff", "max-backoff", "max-concurrent", "queue-size", "log-file", "watch", "no-mcp", "file-root"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":8080"))
		Expect(cmd.Flags().Lookup("listen").Shorthand).To(Equal("l"))
	})

	It("lets flags override config values", func() {
		tmpDir := GinkgoT().TempDir()
		cfgFile := "version = 0\n\n[router]\ndefault_selection = \"GPT4o\"\n\n[server]\nlisten = \":7000\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(cfgFile), 0o600)).To(Succeed())

		cmder := &serveCommander{configDir: tmpDir}
		cmd := NewServeCmd()
		config.AddStringFlag(cmd, config.ServerFlags, config.FlagListen, &cmder.listen)
		Expect(cmd.Flags().Set("listen", ":9999")).To(Succeed())

		cfg, err := cmder.loadConfig(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Listen).To(Equal(":9999"))
		Expect(cfg.Router.DefaultSelection).To(Equal("GPT4o"))
	})
})

var _ = Describe("Serve execution", func() {
	It("serves until the context is cancelled and writes JSON logs", func() {
		tmpDir := GinkgoT().TempDir()
		logFile := filepath.Join(tmpDir, "serve.log")

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		cmder := &serveCommander{
			configDir: tmpDir,
			listener:  ln,
			logFile:   logFile,
		}
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- cmder.run(ctx, &bytes.Buffer{}, config.NewDefaultConfig())
		}()

		url := "http://" + ln.Addr().String() + "/ping"
		Eventually(func() string {
			resp, err := http.Get(url)
			if err != nil {
				return ""
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			return string(body)
		}, 5*time.Second, 20*time.Millisecond).Should(Equal("pong"))

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))

		data, err := os.ReadFile(logFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"routing"`))
		Expect(string(data)).To(ContainSubstring(`"default_selection":"GoogleGemini"`))
	})
})

var _ = Describe("setupLogger", func() {
	It("keeps debug records out of the terminal but in the log file", func() {
		logFile := filepath.Join(GinkgoT().TempDir(), "serve.log")
		cmder := &serveCommander{logFile: logFile}

		var term bytes.Buffer
		closeLog, err := cmder.setupLogger(&term)
		Expect(err).NotTo(HaveOccurred())

		cmder.logger.Debug("retrying credential", "attempt", 2)
		cmder.logger.Info("routing")
		closeLog()

		Expect(term.String()).To(ContainSubstring("routing"))
		Expect(term.String()).NotTo(ContainSubstring("retrying credential"))

		data, err := os.ReadFile(logFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"retrying credential"`))
		Expect(string(data)).To(ContainSubstring(`"msg":"routing"`))
	})
})

var _ = Describe("Config reload", func() {
	It("swaps in a router built from the reloaded config", func() {
		cmder := &serveCommander{configDir: GinkgoT().TempDir(), logger: logger.Nop()}

		first, err := router.FromConfig(config.NewDefaultConfig(), router.StaticCredentials{}, nil)
		Expect(err).NotTo(HaveOccurred())
		gen := router.NewSwappable(first)

		cmder.reload = func() (*config.Config, error) {
			cfg := config.NewDefaultConfig()
			cfg.Router.DefaultSelection = "OllamaLocal"
			return cfg, nil
		}
		cmder.reloadRouter(gen, router.StaticCredentials{})
		Expect(gen.Registry().Default()).To(Equal("OllamaLocal"))

		cmder.retired.Wait()
		_, err = first.Generate(context.Background(), llm.Conversation{llm.NewUserTurn("hi")}, "", registry.UserConfig{}, nil)
		Expect(err).To(MatchError(router.ErrClosed))
	})

	It("keeps the previous router when the new config is invalid", func() {
		cmder := &serveCommander{configDir: GinkgoT().TempDir(), logger: logger.Nop()}

		first, err := router.FromConfig(config.NewDefaultConfig(), router.StaticCredentials{}, nil)
		Expect(err).NotTo(HaveOccurred())
		gen := router.NewSwappable(first)

		cmder.reload = func() (*config.Config, error) {
			cfg := config.NewDefaultConfig()
			cfg.Router.DefaultSelection = "NoSuchSelection"
			return cfg, nil
		}
		cmder.reloadRouter(gen, router.StaticCredentials{})
		Expect(gen.Current()).To(BeIdenticalTo(first))
	})
})
