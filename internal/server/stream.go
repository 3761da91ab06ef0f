package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/models"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/provider"
)

// streamChatCompletions relays the upstream stream frame by frame.
//
// The upstream connection is opened before anything is written, so a failed
// connect still produces a normal failure response. Once the status line is
// sent, failures only end the stream.
func (s *Server) streamChatCompletions(c echo.Context, payload models.OutboundPayload) error {
	writer := c.Response().Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		return provider.Errorf(provider.KindInternal, "stream", "server does not support streaming responses")
	}

	ctx := c.Request().Context()
	stream, err := s.relay.Stream(ctx, payload)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := http.NewResponseController(writer).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Debug("could not clear write deadline", "error", err)
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, "text/event-stream")
	header.Set(echo.HeaderCacheControl, "no-cache")
	header.Set(echo.HeaderConnection, "keep-alive")

	c.Response().WriteHeader(s.replyStatus(stream.StatusCode))
	flusher.Flush()

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	for frame, err := range stream.Frames(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Debug("client disconnected mid-stream", "request_id", requestID)
			} else {
				s.logger.Warn("upstream stream interrupted", "error", err, "request_id", requestID)
			}
			return nil
		}

		if _, err := c.Response().Write(frame); err != nil {
			s.logger.Debug("failed to write stream frame", "error", err, "request_id", requestID)
			return nil
		}
		flusher.Flush()
	}

	return nil
}
