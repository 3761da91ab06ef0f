// Package sse transcodes an upstream line stream into server-sent event
// frames.
//
// Every non-blank upstream line becomes one frame: the line followed by a
// blank line. Blank and whitespace-only lines are dropped. Frames keep the
// upstream order and are never coalesced.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"iter"
)

const (
	initialLineBuffer = 64 * 1024
	// MaxLineBytes bounds a single upstream line.
	MaxLineBytes = 4 * 1024 * 1024
)

var frameTerminator = []byte("\n\n")

// Frame terminates line as a single SSE frame.
func Frame(line []byte) []byte {
	out := make([]byte, 0, len(line)+len(frameTerminator))
	out = append(out, line...)
	return append(out, frameTerminator...)
}

// Frames reads r line by line and yields one frame per non-blank line as
// soon as the line is complete. A read failure or ctx cancellation is
// yielded once as a non-nil error and ends the sequence. Stopping the range
// loop early stops reading; closing r is left to the caller.
func Frames(ctx context.Context, r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, initialLineBuffer), MaxLineBytes)

		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			if !yield(Frame(line), nil) {
				return
			}
		}

		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		if err := scanner.Err(); err != nil {
			yield(nil, err)
		}
	}
}
