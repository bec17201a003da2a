package authcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/switchboard/cmd/switchboard/auth"
	"github.com/papercomputeco/switchboard/pkg/credentials"
)

func newTestCmd(args ...string) (*cobra.Command, *bytes.Buffer) {
	cmd := authcmder.NewAuthCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.PersistentFlags().String("config-dir", "", "Override path to .switchboard/ config directory")
	cmd.SetArgs(args)
	return cmd, out
}

var _ = Describe("Auth Command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Short).NotTo(BeEmpty())
		})

		It("has --list and --remove flags", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
		})
	})

	Describe("storing keys", func() {
		It("stores piped comma-separated keys in order", func() {
			cmd, out := newTestCmd("gemini", "--config-dir", tmpDir)
			cmd.SetIn(bytes.NewBufferString(" key-one , key-two,,key-three\n"))
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Stored 3 keys"))

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			key, err := mgr.GetKey("gemini")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("key-one,key-two,key-three"))
		})

		It("rejects empty input", func() {
			cmd, _ := newTestCmd("openai", "--config-dir", tmpDir)
			cmd.SetIn(bytes.NewBufferString(" , \n"))
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("cannot be empty")))
		})
	})

	Describe("--list flag", func() {
		It("shows no credentials when none stored", func() {
			cmd, out := newTestCmd("--list", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No stored credentials"))
		})

		It("lists stored credentials with masked keys", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("openai", "sk-test-1234567890,short")).To(Succeed())

			cmd, out := newTestCmd("--list", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("openai"))
			Expect(out.String()).To(ContainSubstring("sk-t...7890"))
			Expect(out.String()).To(ContainSubstring("****"))
			Expect(out.String()).NotTo(ContainSubstring("sk-test-1234567890"))
		})
	})

	Describe("--remove flag", func() {
		It("removes stored credentials", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

			cmd, _ := newTestCmd("--remove", "openai", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("provider argument validation", func() {
		It("returns error when no provider given", func() {
			cmd, _ := newTestCmd()
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("provider argument required"))
		})

		It("returns error for keyless backends", func() {
			cmd, _ := newTestCmd("ollama", "--config-dir", tmpDir)
			cmd.SetIn(bytes.NewBufferString("sk-test\n"))
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported provider"))
		})
	})

	Describe("shell completion", func() {
		It("provides provider name completions", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{}, "")
			Expect(completions).To(ConsistOf("anthropic", "deepinfra", "gemini", "openai"))
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})

		It("provides no completions after first arg", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{"openai"}, "")
			Expect(completions).To(BeNil())
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})
	})
})
