package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8000
	DefaultBaseURL      = "https://integrate.api.nvidia.com/v1"
	DefaultTimeout      = 120 * time.Second
	DefaultMaxBodyBytes = 4 << 20 // 4 MiB

	// APIKeyEnv names the environment variable carrying the upstream credential.
	APIKeyEnv = "NVIDIA_API_KEY"
)

const (
	ErrorModeCompat   = "compat"
	ErrorModeDetailed = "detailed"
)

const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatPretty = "pretty"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig defines listener and response behaviour.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ErrorMode selects how relay failures are reported: "compat" collapses
	// every failure into a 500 with a {"detail": ...} body, "detailed" maps
	// each failure kind to its own status and an OpenAI error envelope.
	ErrorMode string `yaml:"error_mode"`
	// MirrorUpstreamStatus replies with the upstream status code instead of 200.
	MirrorUpstreamStatus bool  `yaml:"mirror_upstream_status"`
	MaxBodyBytes         int64 `yaml:"max_body_bytes"`
}

// UpstreamConfig captures authentication and routing info for the NIM API.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	Headers Headers       `yaml:"headers"`
}

// Headers contains additional HTTP headers to send with an upstream request.
type Headers map[string]string

// LogConfig selects log verbosity and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ErrorMode:    ErrorModeCompat,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Upstream: UpstreamConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// Address returns the host:port pair to listen on.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads YAML configuration from disk on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	switch c.Server.ErrorMode {
	case ErrorModeCompat, ErrorModeDetailed:
	default:
		return fmt.Errorf("server.error_mode %q must be one of %q or %q", c.Server.ErrorMode, ErrorModeCompat, ErrorModeDetailed)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}

	if err := validateUpstream(c.Upstream); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn or error", c.Log.Level)
	}
	switch c.Log.Format {
	case LogFormatText, LogFormatJSON, LogFormatPretty:
	default:
		return fmt.Errorf("log.format %q must be one of %q, %q or %q", c.Log.Format, LogFormatText, LogFormatJSON, LogFormatPretty)
	}

	return nil
}

func validateUpstream(upstream UpstreamConfig) error {
	if strings.TrimSpace(upstream.APIKey) == "" {
		return fmt.Errorf("upstream api key must be provided (set %s)", APIKeyEnv)
	}
	if strings.TrimSpace(upstream.BaseURL) == "" {
		return errors.New("upstream.base_url must be provided")
	}
	if upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", upstream.Timeout)
	}

	for headerKey := range upstream.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("upstream: header %q is not a valid canonical HTTP header", headerKey)
		}
	}

	return nil
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
