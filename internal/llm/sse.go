package llm

import (
	"bufio"
	"io"
	"strings"
)

// serverSentEventScanner yields the data payloads of a Server-Sent Events
// stream.
type serverSentEventScanner struct {
	scanner *bufio.Scanner
	data    string
}

// newServerSentEventScanner creates a new SSE scanner.
func newServerSentEventScanner(r io.Reader) *serverSentEventScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &serverSentEventScanner{scanner: s}
}

// Scan advances to the next data line, skipping comments and other fields.
func (s *serverSentEventScanner) Scan() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		s.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if s.data != "" {
			return true
		}
	}
	return false
}

// Data returns the last scanned payload.
func (s *serverSentEventScanner) Data() string {
	return s.data
}

// Err returns the first non-EOF read error.
func (s *serverSentEventScanner) Err() error {
	return s.scanner.Err()
}
