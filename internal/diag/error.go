package diag

import (
	"fmt"

	"github.com/vesper-lang/vesper/internal/source"
)

// Error is a recoverable parse failure carried up through rollback
// frames as a value. It only reaches the sink if the caller that gives
// up reports it; abandoned alternatives drop it silently.
type Error struct {
	Span source.Span
	Text string
}

// Failf builds a parse failure at span
func Failf(span source.Span, format string, args ...interface{}) *Error {
	return &Error{Span: span, Text: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("%s: %s", e.Span.Start, e.Text)
	}
	return e.Text
}

// Report records a carried parse failure into the sink as an error
func (s *Sink) Report(e *Error) {
	s.Errorf(e.Span, "%s", e.Text)
}
