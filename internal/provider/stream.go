package provider

import (
	"context"
	"io"
	"iter"
	"sync"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/sse"
)

// Stream is an open streaming upstream response.
type Stream struct {
	StatusCode int

	body      io.ReadCloser
	closeOnce sync.Once
	closeErr  error
}

// NewStream wraps an upstream response body.
func NewStream(statusCode int, body io.ReadCloser) *Stream {
	return &Stream{StatusCode: statusCode, body: body}
}

// Frames yields outbound SSE frames in upstream order. The sequence is
// single-pass: it consumes the upstream body.
func (s *Stream) Frames(ctx context.Context) iter.Seq2[[]byte, error] {
	return sse.Frames(ctx, s.body)
}

// Close releases the upstream connection. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
