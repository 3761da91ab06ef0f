package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every dotted config key when looking up
// environment overrides, e.g. NIM_PROXY_SERVER_PORT.
const EnvPrefix = "NIM_PROXY"

// flagKeys maps serve command flags onto config keys.
var flagKeys = map[string]string{
	"host":                   "server.host",
	"port":                   "server.port",
	"error-mode":             "server.error_mode",
	"mirror-upstream-status": "server.mirror_upstream_status",
	"log-format":             "log.format",
	"debug":                  "debug",
}

// Resolve builds the effective configuration.
//
// Precedence (highest to lowest):
//  1. flags that were explicitly set
//  2. environment variables (NVIDIA_API_KEY, NIM_PROXY_*)
//  3. the YAML file at path, when path is not empty
//  4. Default()
func Resolve(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := decodeFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	v, err := newViper(flags)
	if err != nil {
		return Config{}, err
	}
	applyOverrides(&cfg, v)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("upstream.api_key", APIKeyEnv, EnvPrefix+"_UPSTREAM_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind %s: %w", APIKeyEnv, err)
	}

	if flags == nil {
		return v, nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return v, nil
}

func applyOverrides(cfg *Config, v *viper.Viper) {
	if v.IsSet("server.host") {
		cfg.Server.Host = v.GetString("server.host")
	}
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.error_mode") {
		cfg.Server.ErrorMode = v.GetString("server.error_mode")
	}
	if v.IsSet("server.mirror_upstream_status") {
		cfg.Server.MirrorUpstreamStatus = v.GetBool("server.mirror_upstream_status")
	}
	if v.IsSet("server.max_body_bytes") {
		cfg.Server.MaxBodyBytes = v.GetInt64("server.max_body_bytes")
	}

	if v.IsSet("upstream.api_key") {
		cfg.Upstream.APIKey = v.GetString("upstream.api_key")
	}
	if v.IsSet("upstream.base_url") {
		cfg.Upstream.BaseURL = v.GetString("upstream.base_url")
	}
	if v.IsSet("upstream.timeout") {
		cfg.Upstream.Timeout = v.GetDuration("upstream.timeout")
	}

	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}
	if v.IsSet("debug") && v.GetBool("debug") {
		cfg.Log.Level = "debug"
	}
}
