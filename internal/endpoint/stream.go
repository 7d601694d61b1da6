package endpoint

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// sseStream pulls raw JSON fragments out of a server-sent-events response
// body, one data payload at a time. A "[DONE]" payload terminates the stream.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	current json.RawMessage
	err     error
	done    bool
}

func newSSEStream(body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{body: body, scanner: scanner}
}

func (s *sseStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(line[5:])
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			s.done = true
			return false
		}
		s.current = json.RawMessage(payload)
		return true
	}
	if err := s.scanner.Err(); err != nil {
		s.err = err
	}
	s.done = true
	return false
}

func (s *sseStream) Current() json.RawMessage { return s.current }

func (s *sseStream) Err() error { return s.err }

func (s *sseStream) Close() error { return s.body.Close() }
