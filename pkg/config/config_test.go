package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/owlcave/wklp/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns default config when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.Load(v)
		defaults := config.NewDefaultConfig()
		Expect(cfg.API.Listen).To(Equal(defaults.API.Listen))
		Expect(cfg.API.Key).To(Equal(defaults.API.Key))
		Expect(cfg.Corpus.Path).To(Equal(defaults.Corpus.Path))
		Expect(cfg.Cache.Path).To(Equal(defaults.Cache.Path))
		Expect(cfg.Cache.MaxEntries).To(Equal(defaults.Cache.MaxEntries))
		Expect(cfg.Index.Provider).To(Equal(defaults.Index.Provider))
		Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
		Expect(cfg.Reader.Threshold).To(Equal(defaults.Reader.Threshold))
		Expect(cfg.Query.RetrieverTopK).To(Equal(defaults.Query.RetrieverTopK))
		Expect(cfg.Query.ReaderTopK).To(Equal(defaults.Query.ReaderTopK))
	})

	It("loads values from a config file", func() {
		data := `[api]
listen = ":9000"

[reader]
threshold = 0.4

[query]
retriever_top_k = 10
`
		path := filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(path, []byte(data), 0o644)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.Load(v)
		Expect(cfg.API.Listen).To(Equal(":9000"))
		Expect(cfg.Reader.Threshold).To(Equal(0.4))
		Expect(cfg.Query.RetrieverTopK).To(Equal(10))
		// Untouched sections keep their defaults.
		Expect(cfg.Query.ReaderTopK).To(Equal(config.NewDefaultConfig().Query.ReaderTopK))
	})

	It("lets environment variables override the file", func() {
		Expect(os.Setenv("WKLP_API_KEY", "supersecret")).To(Succeed())
		defer os.Unsetenv("WKLP_API_KEY")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.Load(v)
		Expect(cfg.API.Key).To(Equal("supersecret"))
	})
})
