package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/models"
)

// Provider sends translated chat requests to an upstream inference API.
type Provider interface {
	Name() string
	// Chat performs a buffered request and returns the upstream reply as is,
	// whatever its status code.
	Chat(ctx context.Context, payload models.OutboundPayload) (*models.UpstreamResponse, error)
	// ChatStream opens a streaming request. The caller must Close the stream.
	ChatStream(ctx context.Context, payload models.OutboundPayload) (*Stream, error)
}

// Kind classifies relay failures.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindUpstreamUnavailable
	KindUpstreamTimeout
	KindSerialization
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUpstreamTimeout:
		return "upstream_timeout"
	case KindSerialization:
		return "serialization_error"
	default:
		return "internal"
	}
}

// Error is a classified relay failure. Its message is the underlying
// error's text.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Kind
	}
	return KindInternal
}
