// Package nvidia relays chat completions to the NVIDIA NIM API.
package nvidia

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/config"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/models"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/provider"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/translator"
)

const (
	userAgent        = "nvidia-nim-proxy/0.1"
	maxResponseBytes = 32 << 20 // 32 MiB

	opChat       = "upstream chat"
	opChatStream = "upstream chat stream"
)

// Provider talks to an OpenAI-compatible NIM endpoint.
type Provider struct {
	name         string
	apiKey       string
	headers      map[string]string
	client       *http.Client
	streamClient *http.Client
	chatURL      string
}

// New constructs a provider. client serves buffered requests and should
// carry a total timeout; streamClient serves streaming requests and should
// only bound connection setup.
func New(name string, cfg config.UpstreamConfig, client, streamClient *http.Client) (*Provider, error) {
	if client == nil || streamClient == nil {
		return nil, errors.New("http clients must not be nil")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key must not be empty")
	}

	return &Provider{
		name:         name,
		apiKey:       cfg.APIKey,
		headers:      cfg.Headers,
		client:       client,
		streamClient: streamClient,
		chatURL:      baseURL + "/chat/completions",
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// Chat posts the payload and returns the upstream body untouched. The body
// must be JSON; the status code is reported but never turned into an error.
func (p *Provider) Chat(ctx context.Context, payload models.OutboundPayload) (*models.UpstreamResponse, error) {
	httpReq, err := p.newRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(opChat, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportError(opChat, err)
	}

	if !gjson.ValidBytes(body) {
		return nil, provider.Errorf(provider.KindSerialization, opChat,
			"upstream returned a non-JSON body (status %d): %s", httpResp.StatusCode, snippet(body))
	}

	return &models.UpstreamResponse{
		StatusCode: httpResp.StatusCode,
		Body:       body,
	}, nil
}

// ChatStream posts the payload and hands back the open response body.
func (p *Provider) ChatStream(ctx context.Context, payload models.OutboundPayload) (*provider.Stream, error) {
	httpReq, err := p.newRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := p.streamClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(opChatStream, err)
	}

	return provider.NewStream(httpResp.StatusCode, httpResp.Body), nil
}

func (p *Provider) newRequest(ctx context.Context, payload models.OutboundPayload) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatURL, bytes.NewReader(payload.Body))
	if err != nil {
		return nil, provider.Wrap(provider.KindInternal, "construct request", err)
	}

	for k, v := range translator.Headers(p.apiKey) {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func classifyTransportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.Wrap(provider.KindUpstreamTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return provider.Wrap(provider.KindUpstreamTimeout, op, err)
	}
	return provider.Wrap(provider.KindUpstreamUnavailable, op, err)
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return fmt.Sprintf("%s...", s[:limit])
	}
	return s
}
