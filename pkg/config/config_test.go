package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mnemohq/mnemo/pkg/config"
)

var _ = Describe("ParseConfigTOML", func() {
	It("parses the sectioned layout", func() {
		cfg, err := config.ParseConfigTOML([]byte(`
version = 0

[storage]
sqlite_path = "/data/mnemo.db"

[embedding]
provider = "ollama"
model = "nomic-embed-text"
dimensions = 768

[search]
lexical_weight = 0.7
vector_weight = 0.3

[eventstream]
provider = "kafka"
brokers = ["localhost:9092"]
topic = "mnemo.records"
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.SQLitePath).To(Equal("/data/mnemo.db"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		Expect(cfg.Search.LexicalWeight).To(Equal(0.7))
		Expect(cfg.Eventstream.Brokers).To(Equal([]string{"localhost:9092"}))
	})

	It("rejects an unsupported version", func() {
		_, err := config.ParseConfigTOML([]byte("version = 99"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects malformed TOML", func() {
		_, err := config.ParseConfigTOML([]byte("[storage\nbroken"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewDefaultConfig", func() {
	It("balances the fusion weights evenly", func() {
		cfg := config.NewDefaultConfig()
		Expect(cfg.Search.LexicalWeight).To(Equal(0.5))
		Expect(cfg.Search.VectorWeight).To(Equal(0.5))
	})

	It("defaults to the local stack", func() {
		cfg := config.NewDefaultConfig()
		Expect(cfg.VectorStore.Provider).To(Equal("sqlitevec"))
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Eventstream.Provider).To(Equal("nop"))
	})
})

var _ = Describe("Configer", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("returns defaults when no config file exists", func() {
		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.SQLitePath).To(Equal("mnemo.db"))
	})

	It("round-trips values through set and get", func() {
		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfger.SetConfigValue("storage.sqlite_path", "/data/mnemo.db")).To(Succeed())
		Expect(cfger.SetConfigValue("search.lexical_weight", "0.7")).To(Succeed())
		Expect(cfger.SetConfigValue("embedding.dimensions", "1536")).To(Succeed())

		got, err := cfger.GetConfigValue("storage.sqlite_path")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("/data/mnemo.db"))

		got, err = cfger.GetConfigValue("search.lexical_weight")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("0.7"))

		// A fresh Configer sees the persisted file.
		reread, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())
		cfg, err := reread.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
	})

	It("fills unset fields from defaults after loading a partial file", func() {
		path := filepath.Join(dir, "config.toml")
		Expect(os.WriteFile(path, []byte("[storage]\nsqlite_path = \"/data/mnemo.db\"\n"), 0o600)).To(Succeed())

		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.SQLitePath).To(Equal("/data/mnemo.db"))
		Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
		Expect(cfg.Worker.NumWorkers).To(Equal(uint(3)))
	})

	It("rejects unknown keys", func() {
		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfger.SetConfigValue("nope.nothing", "x")).NotTo(Succeed())
		_, err = cfger.GetConfigValue("nope.nothing")
		Expect(err).To(HaveOccurred())
	})

	It("rejects non-numeric values for numeric keys", func() {
		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfger.SetConfigValue("embedding.dimensions", "many")).NotTo(Succeed())
		Expect(cfger.SetConfigValue("search.vector_weight", "heavy")).NotTo(Succeed())
	})
})

var _ = Describe("config keys", func() {
	It("accepts every advertised key", func() {
		for _, key := range config.ValidConfigKeys() {
			Expect(config.IsValidConfigKey(key)).To(BeTrue(), key)
		}
	})

	It("rejects keys outside the registry", func() {
		Expect(config.IsValidConfigKey("storage.postgres_dsn")).To(BeFalse())
	})
})
