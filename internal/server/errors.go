package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/config"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/provider"
)

// failureBody is the compat failure response: {"detail": "<error text>"}.
type failureBody struct {
	Detail string `json:"detail"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func invalidRequest(op string, err error) error {
	return provider.Wrap(provider.KindInvalidRequest, op, err)
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		s.logger.Warn("error after response was committed", "error", err)
		return
	}

	detailed := s.cfg.Server.ErrorMode == config.ErrorModeDetailed

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := fmt.Sprint(he.Message)
		if detailed {
			_ = writeError(c, he.Code, message, "invalid_request_error", "")
			return
		}
		_ = c.JSON(he.Code, failureBody{Detail: message})
		return
	}

	kind := provider.KindOf(err)
	s.logger.Warn("relay failure",
		"kind", kind.String(),
		"error", err,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
	)

	if !detailed {
		_ = c.JSON(http.StatusInternalServerError, failureBody{Detail: err.Error()})
		return
	}

	status, errType := classify(kind)
	_ = writeError(c, status, err.Error(), errType, kind.String())
}

// classify maps a failure kind onto its detailed-mode status and OpenAI
// error type.
func classify(kind provider.Kind) (int, string) {
	switch kind {
	case provider.KindInvalidRequest:
		return http.StatusBadRequest, "invalid_request_error"
	case provider.KindUpstreamUnavailable:
		return http.StatusBadGateway, "upstream_error"
	case provider.KindUpstreamTimeout:
		return http.StatusGatewayTimeout, "upstream_error"
	case provider.KindSerialization:
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func printStartupBanner(cfg config.ServerConfig) {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	out := os.Stdout
	fmt.Fprintln(out)
	fmt.Fprintln(out, "nim-proxy ready")
	fmt.Fprintf(out, "Listening on http://%s:%d\n", host, cfg.Port)
	fmt.Fprintln(out, "Endpoints:")
	fmt.Fprintln(out, "  GET  /")
	fmt.Fprintln(out, "  GET  /health")
	fmt.Fprintln(out, "  GET  /metrics")
	fmt.Fprintln(out, "  GET  /v1/models")
	fmt.Fprintln(out, "  POST /v1/chat/completions")
	fmt.Fprintf(out, "Example:\n  curl http://%s:%d/v1/chat/completions -H 'Content-Type: application/json' -d '{\"messages\":[{\"role\":\"user\",\"content\":\"hello\"}]}'\n\n", host, cfg.Port)
}
