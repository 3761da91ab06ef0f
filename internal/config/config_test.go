package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/config"
)

// setEnv sets an environment variable for the duration of the current test.
func setEnv(key, value string) {
	old, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

// unsetEnv clears an environment variable for the duration of the current test.
func unsetEnv(key string) {
	old, had := os.LookupEnv(key)
	Expect(os.Unsetenv(key)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		}
	})
}

func writeConfig(contents string) string {
	path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
	Expect(os.WriteFile(path, []byte(contents), 0o600)).To(Succeed())
	return path
}

func serveFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("host", config.DefaultHost, "")
	fs.Int("port", config.DefaultPort, "")
	fs.Bool("debug", false, "")
	fs.String("log-format", config.LogFormatText, "")
	fs.String("error-mode", config.ErrorModeCompat, "")
	fs.Bool("mirror-upstream-status", false, "")
	return fs
}

var _ = Describe("Config", func() {
	BeforeEach(func() {
		unsetEnv(config.APIKeyEnv)
		unsetEnv("NIM_PROXY_UPSTREAM_API_KEY")
		unsetEnv("NIM_PROXY_SERVER_PORT")
		unsetEnv("NIM_PROXY_SERVER_ERROR_MODE")
	})

	Describe("Default", func() {
		It("listens on all interfaces, port 8000", func() {
			cfg := config.Default()
			Expect(cfg.Server.Address()).To(Equal("0.0.0.0:8000"))
		})

		It("targets the NIM API with a 120 second timeout", func() {
			cfg := config.Default()
			Expect(cfg.Upstream.BaseURL).To(Equal("https://integrate.api.nvidia.com/v1"))
			Expect(cfg.Upstream.Timeout).To(Equal(120 * time.Second))
		})

		It("uses the compat error mode without status mirroring", func() {
			cfg := config.Default()
			Expect(cfg.Server.ErrorMode).To(Equal(config.ErrorModeCompat))
			Expect(cfg.Server.MirrorUpstreamStatus).To(BeFalse())
		})

		It("fails validation until an api key is supplied", func() {
			cfg := config.Default()
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(config.APIKeyEnv)))

			cfg.Upstream.APIKey = "nvapi-test"
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("Load", func() {
		It("overlays file values on the defaults", func() {
			path := writeConfig(`
server:
  port: 9000
  error_mode: detailed
upstream:
  api_key: from-file
  timeout: 30s
  headers:
    X-Trace: abc
`)
			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Port).To(Equal(9000))
			Expect(cfg.Server.Host).To(Equal(config.DefaultHost))
			Expect(cfg.Server.ErrorMode).To(Equal(config.ErrorModeDetailed))
			Expect(cfg.Upstream.APIKey).To(Equal("from-file"))
			Expect(cfg.Upstream.Timeout).To(Equal(30 * time.Second))
			Expect(cfg.Upstream.BaseURL).To(Equal(config.DefaultBaseURL))
			Expect(cfg.Upstream.Headers).To(HaveKeyWithValue("X-Trace", "abc"))
		})

		It("rejects unknown keys", func() {
			path := writeConfig("server:\n  prot: 9000\n")
			_, err := config.Load(path)
			Expect(err).To(MatchError(ContainSubstring("parse config file")))
		})

		It("rejects an invalid error mode", func() {
			path := writeConfig("server:\n  error_mode: loud\nupstream:\n  api_key: k\n")
			_, err := config.Load(path)
			Expect(err).To(MatchError(ContainSubstring("server.error_mode")))
		})

		It("rejects non-canonical header names", func() {
			path := writeConfig("upstream:\n  api_key: k\n  headers:\n    \"X_Bad\": v\n")
			_, err := config.Load(path)
			Expect(err).To(MatchError(ContainSubstring("X_Bad")))
		})

		It("reports a missing file", func() {
			_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
			Expect(err).To(MatchError(ContainSubstring("read config file")))
		})
	})

	Describe("Resolve", func() {
		It("reads the credential from NVIDIA_API_KEY", func() {
			setEnv(config.APIKeyEnv, "nvapi-env")

			cfg, err := config.Resolve("", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Upstream.APIKey).To(Equal("nvapi-env"))
			Expect(cfg.Server.Port).To(Equal(config.DefaultPort))
		})

		It("fails without a credential", func() {
			_, err := config.Resolve("", nil)
			Expect(err).To(MatchError(ContainSubstring(config.APIKeyEnv)))
		})

		It("lets the environment override the file", func() {
			path := writeConfig("server:\n  port: 9000\nupstream:\n  api_key: from-file\n")
			setEnv("NIM_PROXY_SERVER_PORT", "9100")
			setEnv(config.APIKeyEnv, "from-env")

			cfg, err := config.Resolve(path, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Port).To(Equal(9100))
			Expect(cfg.Upstream.APIKey).To(Equal("from-env"))
		})

		It("lets explicitly set flags override the environment", func() {
			setEnv(config.APIKeyEnv, "k")
			setEnv("NIM_PROXY_SERVER_PORT", "9100")

			fs := serveFlags()
			Expect(fs.Parse([]string{"--port", "9200", "--error-mode", "detailed", "--debug"})).To(Succeed())

			cfg, err := config.Resolve("", fs)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Port).To(Equal(9200))
			Expect(cfg.Server.ErrorMode).To(Equal(config.ErrorModeDetailed))
			Expect(cfg.Log.Level).To(Equal("debug"))
		})

		It("ignores flag defaults that were not set", func() {
			path := writeConfig("server:\n  port: 9000\nupstream:\n  api_key: k\n")

			fs := serveFlags()
			Expect(fs.Parse(nil)).To(Succeed())

			cfg, err := config.Resolve(path, fs)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Port).To(Equal(9000))
		})
	})
})
