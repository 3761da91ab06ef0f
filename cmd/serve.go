package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/config"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/logger"
	providerfactory "github.com/gribgrubs/nvidia-nim-proxy/internal/provider/factory"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/relay"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/server"
)

const serveLongDesc = `Start the HTTP server.

The upstream credential is read from NVIDIA_API_KEY. Every other setting can
come from a YAML file (--config), NIM_PROXY_* environment variables or flags,
in increasing order of precedence.`

func newServeCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(cfgPath, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to YAML configuration file")
	flags.String("host", config.DefaultHost, "interface to listen on")
	flags.Int("port", config.DefaultPort, "port to listen on")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("log-format", config.LogFormatText, "log format: text, json or pretty")
	flags.String("error-mode", config.ErrorModeCompat, "failure responses: compat or detailed")
	flags.Bool("mirror-upstream-status", false, "reply with the upstream status code instead of 200")

	return cmd
}

func runServe(cmd *cobra.Command, cfg config.Config) error {
	log := logger.New(
		logger.WithLevel(cfg.Log.Level),
		logger.WithFormat(cfg.Log.Format),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
	slog.SetDefault(log)

	prov, err := providerfactory.New(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("initialise upstream provider: %w", err)
	}

	rl := relay.New(prov, log)

	srv, err := server.New(cfg, rl, log)
	if err != nil {
		return err
	}

	return srv.Run(cmd.Context())
}
