// Copyright 2026 Benoit Pereira da Silva
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gemstream splits a streamed HTTP response body into discrete JSON
// objects and decodes each one into a typed value.
//
// Two wire formats are supported:
//
//   - the plain streamGenerateContent body: a single JSON array of response
//     objects delivered incrementally, framed by JSONFramer;
//   - the SSE body of streamGenerateContent?alt=sse: one JSON object per
//     `data:` event, decoded with launchdarkly/eventsource.
package gemstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/launchdarkly/eventsource"
)

// Stream yields the successive values of a streamed response.
//
// Stream is not safe for concurrent use. Callers own the stream and must
// Close it to release the underlying response body.
type Stream[T any] struct {
	body io.ReadCloser
	next func() ([]byte, error)

	// err is sticky: once the underlying transport or framing fails, every
	// further Recv returns the same error. Per-frame decode errors are not
	// sticky; the next frame can still be received.
	err    error
	closed bool
}

// Recv returns the next decoded value. It returns io.EOF when the stream is
// exhausted.
func (s *Stream[T]) Recv() (*T, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.closed {
		return nil, io.EOF
	}

	raw, err := s.next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			err = fmt.Errorf("gemstream: read stream: %w", err)
		}
		s.err = err
		return nil, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("gemstream: decode frame: %w", err)
	}
	return &v, nil
}

// Close releases the underlying response body. Receiving after Close returns
// io.EOF.
func (s *Stream[T]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// Collect drains the stream and returns every remaining value.
// The stream is closed on return.
func (s *Stream[T]) Collect() ([]*T, error) {
	defer s.Close()
	var out []*T
	for {
		v, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

// NewJSONArrayStream decodes a body that is one large JSON array of objects.
// maxValueSize bounds a single object (<= 0 disables the bound).
func NewJSONArrayStream[T any](body io.ReadCloser, maxValueSize int) *Stream[T] {
	framer := NewJSONFramer(maxValueSize)
	buf := make([]byte, 4096)
	var pending [][]byte
	drained := false

	next := func() ([]byte, error) {
		for {
			if len(pending) > 0 {
				frame := pending[0]
				pending = pending[1:]
				return frame, nil
			}
			if drained {
				return nil, io.EOF
			}

			n, err := body.Read(buf)
			if n > 0 {
				frames, ferr := framer.Append(buf[:n])
				if ferr != nil {
					return nil, ferr
				}
				pending = append(pending, frames...)
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					return nil, err
				}
				drained = true
				if tail := framer.Final(); len(tail) > 0 {
					return nil, fmt.Errorf("gemstream: stream ended inside a JSON value (%d trailing bytes)", len(tail))
				}
			}
		}
	}

	return &Stream[T]{body: body, next: next}
}

// NewSSEStream decodes a text/event-stream body, one JSON object per data
// payload. Events with an empty payload are skipped.
func NewSSEStream[T any](body io.ReadCloser) *Stream[T] {
	decoder := eventsource.NewDecoder(body)

	next := func() ([]byte, error) {
		for {
			event, err := decoder.Decode()
			if err != nil {
				return nil, err
			}
			data := strings.TrimSpace(event.Data())
			if data == "" {
				continue
			}
			return []byte(data), nil
		}
	}

	return &Stream[T]{body: body, next: next}
}
