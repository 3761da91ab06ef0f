// Package relay executes translated chat requests against the upstream
// provider, either buffered or as a live stream.
package relay

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/models"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/observability"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/provider"
)

// Relay dispatches payloads to the upstream provider.
type Relay struct {
	provider provider.Provider
	logger   *slog.Logger
}

// New constructs a relay backed by the provided upstream.
func New(p provider.Provider, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		provider: p,
		logger:   logger,
	}
}

// Complete sends a buffered request and returns the upstream reply.
func (r *Relay) Complete(ctx context.Context, payload models.OutboundPayload) (*models.UpstreamResponse, error) {
	start := time.Now()
	resp, err := r.provider.Chat(ctx, payload)
	elapsed := time.Since(start)
	observability.UpstreamLatency.WithLabelValues(observability.ModeBuffered).Observe(elapsed.Seconds())

	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(observability.ModeBuffered, provider.KindOf(err).String()).Inc()
		return nil, fmt.Errorf("provider %s chat request: %w", r.provider.Name(), err)
	}

	observability.UpstreamRequestsTotal.WithLabelValues(observability.ModeBuffered, observability.StatusClass(resp.StatusCode)).Inc()
	r.logger.Debug("upstream response",
		"provider", r.provider.Name(),
		"model", payload.Model,
		"status", resp.StatusCode,
		"bytes", len(resp.Body),
		"latency_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

// Stream opens a streaming request. The returned stream must be closed.
func (r *Relay) Stream(ctx context.Context, payload models.OutboundPayload) (*Stream, error) {
	start := time.Now()
	upstream, err := r.provider.ChatStream(ctx, payload)
	elapsed := time.Since(start)
	observability.UpstreamLatency.WithLabelValues(observability.ModeStreaming).Observe(elapsed.Seconds())

	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(observability.ModeStreaming, provider.KindOf(err).String()).Inc()
		return nil, fmt.Errorf("provider %s chat stream: %w", r.provider.Name(), err)
	}

	observability.UpstreamRequestsTotal.WithLabelValues(observability.ModeStreaming, observability.StatusClass(upstream.StatusCode)).Inc()
	observability.StreamingConnections.Inc()
	r.logger.Debug("upstream stream opened",
		"provider", r.provider.Name(),
		"model", payload.Model,
		"status", upstream.StatusCode,
		"latency_ms", elapsed.Milliseconds(),
	)

	return &Stream{
		StatusCode: upstream.StatusCode,
		upstream:   upstream,
		logger:     r.logger,
		opened:     time.Now(),
	}, nil
}

// Stream is an open upstream stream with frame accounting.
type Stream struct {
	StatusCode int

	upstream  *provider.Stream
	logger    *slog.Logger
	opened    time.Time
	frames    int
	closeOnce sync.Once
}

// Frames yields outbound frames in upstream order. Breaking out of the
// range loop stops reading; Close still has to be called.
func (s *Stream) Frames(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for frame, err := range s.upstream.Frames(ctx) {
			if err == nil {
				s.frames++
				observability.StreamFramesTotal.Inc()
			}
			if !yield(frame, err) {
				return
			}
		}
	}
}

// Close releases the upstream connection. Safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		observability.StreamingConnections.Dec()
		s.logger.Debug("upstream stream closed",
			"frames", s.frames,
			"duration_ms", time.Since(s.opened).Milliseconds(),
		)
	})
	return s.upstream.Close()
}
