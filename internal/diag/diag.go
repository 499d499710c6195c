// Package diag provides the diagnostic sink shared by the lexer, parser,
// and typechecker. Messages carry a severity and a source span; the sink
// keeps them in emission order and supports truncation, which is how
// parse rollbacks retract messages from abandoned branches.
package diag

import (
	"fmt"

	"github.com/vesper-lang/vesper/internal/source"
)

// Severity classifies a diagnostic message
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityLog
)

// String returns the severity name
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityLog:
		return "log"
	default:
		return "unknown"
	}
}

// Message is a single diagnostic with its source span. Notes hold
// secondary lines such as suggestions or import chains.
type Message struct {
	Severity Severity
	Span     source.Span
	Text     string
	Notes    []string
}

// String returns the message in "file:line:col: severity: text" form
func (m Message) String() string {
	if m.Span.IsValid() {
		return fmt.Sprintf("%s: %s: %s", m.Span.Start, m.Severity, m.Text)
	}
	return fmt.Sprintf("%s: %s", m.Severity, m.Text)
}

// Sink collects diagnostics in emission order. It is not safe for
// concurrent use; each parse session owns one.
type Sink struct {
	messages []Message
}

// NewSink creates an empty sink
func NewSink() *Sink {
	return &Sink{}
}

// Errorf records an error at span
func (s *Sink) Errorf(span source.Span, format string, args ...interface{}) {
	s.push(Message{Severity: SeverityError, Span: span, Text: fmt.Sprintf(format, args...)})
}

// Warningf records a warning at span
func (s *Sink) Warningf(span source.Span, format string, args ...interface{}) {
	s.push(Message{Severity: SeverityWarning, Span: span, Text: fmt.Sprintf(format, args...)})
}

// Logf records an informational message at span
func (s *Sink) Logf(span source.Span, format string, args ...interface{}) {
	s.push(Message{Severity: SeverityLog, Span: span, Text: fmt.Sprintf(format, args...)})
}

// Note attaches a secondary line to the most recent message. It is a
// no-op on an empty sink.
func (s *Sink) Note(format string, args ...interface{}) {
	if len(s.messages) == 0 {
		return
	}
	last := &s.messages[len(s.messages)-1]
	last.Notes = append(last.Notes, fmt.Sprintf(format, args...))
}

func (s *Sink) push(m Message) {
	s.messages = append(s.messages, m)
}

// Len returns the number of recorded messages. Rollback frames capture
// this before a speculative parse.
func (s *Sink) Len() int {
	return len(s.messages)
}

// TruncateTo discards every message recorded after the sink had length n.
// Shrink only; a stale larger n is ignored.
func (s *Sink) TruncateTo(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(s.messages) {
		s.messages = s.messages[:n]
	}
}

// Messages returns the recorded messages in emission order
func (s *Sink) Messages() []Message {
	return s.messages
}

// HasErrors returns true if any recorded message is an error
func (s *Sink) HasErrors() bool {
	for _, m := range s.messages {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of messages with the given severity
func (s *Sink) Count(sev Severity) int {
	n := 0
	for _, m := range s.messages {
		if m.Severity == sev {
			n++
		}
	}
	return n
}
