package factory

import (
	"net"
	"net/http"
	"time"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/config"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/provider"
	nvidiaProvider "github.com/gribgrubs/nvidia-nim-proxy/internal/provider/nvidia"
)

const (
	providerName           = "nvidia"
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// New constructs the upstream provider from configuration.
//
// Buffered and streaming requests share one transport. Buffered requests are
// bounded by cfg.Timeout end to end; streaming requests only until the
// response headers arrive, after which the stream lasts as long as the
// upstream keeps it open.
func New(cfg config.UpstreamConfig) (provider.Provider, error) {
	transport := newTransport(cfg.Timeout)

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
	streamClient := &http.Client{
		Transport: transport,
	}

	return nvidiaProvider.New(providerName, cfg, client, streamClient)
}

func newTransport(headerTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
