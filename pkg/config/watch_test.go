package config_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/switchboard/pkg/config"
)

var _ = Describe("Watch", func() {
	var (
		dir    string
		path   string
		ctx    context.Context
		cancel context.CancelFunc
		calls  atomic.Int32
		done   chan error
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte("version = 0\n"), 0o600)).To(Succeed())

		calls.Store(0)
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, path, 20*time.Millisecond, func() { calls.Add(1) })
		}()
		// Give the watcher time to register the directory.
		time.Sleep(50 * time.Millisecond)
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("reports a write to the config file once per burst", func() {
		for range 3 {
			Expect(os.WriteFile(path, []byte("version = 0\n[server]\nlisten = \":9000\"\n"), 0o600)).To(Succeed())
		}
		Eventually(calls.Load).Should(Equal(int32(1)))
		Consistently(calls.Load, 100*time.Millisecond).Should(Equal(int32(1)))
	})

	It("ignores other files in the directory", func() {
		Expect(os.WriteFile(filepath.Join(dir, "credentials.toml"), []byte("x"), 0o600)).To(Succeed())
		Consistently(calls.Load, 100*time.Millisecond).Should(BeZero())
	})
})
