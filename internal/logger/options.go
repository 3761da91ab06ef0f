package logger

import (
	"io"
)

// Option configures a logger created with New.
type Option func(*config)

// WithLevel sets the minimum level by name (debug, info, warn, error).
func WithLevel(name string) Option {
	return func(c *config) {
		c.level = ParseLevel(name)
	}
}

// WithDebug is shorthand for WithLevel("debug") when debug is true.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = ParseLevel("debug")
		}
	}
}

// WithFormat selects text, json or pretty output. The pretty format uses
// the charmbracelet/log handler.
func WithFormat(format string) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithWriter overrides the output writer.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.writer = w
		}
	}
}

// WithSource includes source file:line in log output.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
