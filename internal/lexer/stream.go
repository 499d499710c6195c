package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vesper-lang/vesper/internal/diag"
	"github.com/vesper-lang/vesper/internal/source"
)

// maxStuckTicks bounds how long a grammar loop may spin without the
// stream advancing before it is treated as an internal defect.
const maxStuckTicks = 10000

// Stream is a cursor over one source file that lexes tokens on demand.
// It remembers the most recently consumed token for the statement
// terminator rule and carries the unit's diagnostic sink so rollback
// frames can retract messages.
type Stream struct {
	file *source.File
	sink *diag.Sink

	offset  int
	last    Token
	hasLast bool

	tickOffset int
	tickCount  int
}

// NewStream creates a stream at the start of file
func NewStream(file *source.File, sink *diag.Sink) *Stream {
	return &Stream{file: file, sink: sink, tickOffset: -1}
}

// File returns the underlying source file
func (s *Stream) File() *source.File {
	return s.file
}

// Sink returns the diagnostic sink this stream reports into
func (s *Stream) Sink() *diag.Sink {
	return s.sink
}

// Offset returns the current byte offset
func (s *Stream) Offset() int {
	return s.offset
}

// Last returns the most recently consumed token, if any
func (s *Stream) Last() (Token, bool) {
	return s.last, s.hasLast
}

// Tick guards a grammar loop against failing to advance. Call it once
// per iteration; if the stream position stays put for too many calls
// the parser has a defect and Tick panics.
func (s *Stream) Tick() {
	if s.offset != s.tickOffset {
		s.tickOffset = s.offset
		s.tickCount = 0
		return
	}
	s.tickCount++
	if s.tickCount > maxStuckTicks {
		panic(fmt.Sprintf("grammar loop stuck at offset %d of %s", s.offset, s.file.Name))
	}
}

// SpanFrom builds the span from a start offset to the current offset
func (s *Stream) SpanFrom(start int) source.Span {
	return s.file.SpanBetween(start, s.offset)
}

func (s *Stream) peekChar(n int) byte {
	if s.offset+n >= len(s.file.Content) {
		return 0
	}
	return s.file.Content[s.offset+n]
}

func (s *Stream) nextChar() byte {
	ch := s.peekChar(0)
	if ch != 0 {
		s.offset++
	}
	return ch
}

// skipTrivia consumes whitespace and comments up to the next token.
// Line comments run to the newline; block comments do not nest and an
// unterminated one ends at end-of-file.
func (s *Stream) skipTrivia() {
	for {
		s.Tick()
		for isSpace(s.peekChar(0)) {
			s.offset++
		}
		switch {
		case s.peekChar(0) == '/' && s.peekChar(1) == '/':
			for {
				ch := s.nextChar()
				if ch == 0 || ch == '\n' {
					break
				}
			}
		case s.peekChar(0) == '/' && s.peekChar(1) == '*':
			s.offset += 2
			for {
				if s.peekChar(0) == 0 {
					break
				}
				if s.peekChar(0) == '*' && s.peekChar(1) == '/' {
					s.offset += 2
					break
				}
				s.offset++
			}
		default:
			return
		}
	}
}

// AtEnd reports whether only trivia remains. The trivia is consumed.
func (s *Stream) AtEnd() bool {
	s.skipTrivia()
	return s.offset >= len(s.file.Content)
}

// errorAtLast attaches a failure to the last consumed token's span, or
// to the current position when nothing has been consumed yet.
func (s *Stream) errorAtLast(format string, args ...interface{}) *diag.Error {
	if s.hasLast {
		return diag.Failf(s.last.Span, format, args...)
	}
	return diag.Failf(s.SpanFrom(s.offset), format, args...)
}

// Pull consumes and returns the next token. Failures are returned as
// values for the enclosing rule to roll back on; nothing is written to
// the sink except string escape warnings, which stand or fall with the
// enclosing transaction.
func (s *Stream) Pull() (Token, error) {
	s.skipTrivia()

	rb := s.Begin()
	defer rb.Discard()

	s.Tick()
	if s.offset >= len(s.file.Content) {
		return Token{}, s.errorAtLast("Expected token, found end-of-file")
	}

	start := s.offset

	done := func(tk Token) (Token, error) {
		tk.Span = s.SpanFrom(start)
		s.last = tk
		s.hasLast = true
		rb.Commit()
		return tk, nil
	}

	// string literals
	if s.peekChar(0) == '"' {
		s.offset++
		var lit strings.Builder
		for {
			s.Tick()
			ch := s.nextChar()
			if ch == 0 {
				break
			}
			if ch == '\\' {
				escaped := s.nextChar()
				if escaped == 0 {
					return Token{}, diag.Failf(s.SpanFrom(start), "Expected escaped character, found end-of-file")
				}
				switch escaped {
				case 'n':
					lit.WriteByte('\n')
				case 'r':
					lit.WriteByte('\r')
				case 't':
					lit.WriteByte('\t')
				case '"':
					lit.WriteByte('"')
				case '\'':
					lit.WriteByte('\'')
				case '\\':
					lit.WriteByte('\\')
				case '{':
					lit.WriteByte('{')
				default:
					s.sink.Warningf(s.file.SpanBetween(s.offset-2, s.offset),
						"Unknown escape sequence '\\%c'", escaped)
				}
				continue
			}
			if ch == '"' {
				break
			}
			lit.WriteByte(ch)
		}
		return done(Token{Kind: KindString, Str: lit.String()})
	}

	// number literals
	if isDigit(s.peekChar(0)) {
		foundDot := false
		for {
			s.Tick()
			ch := s.peekChar(0)
			if !(isDigit(ch) || (!foundDot && ch == '.')) {
				break
			}
			if ch == '.' {
				foundDot = true
			}
			s.offset++
		}
		num := s.file.Content[start:s.offset]
		if foundDot {
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return Token{}, diag.Failf(s.SpanFrom(start), "Invalid float literal")
			}
			return done(Token{Kind: KindFloat, Float: f})
		}
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return Token{}, diag.Failf(s.SpanFrom(start), "Invalid integer literal")
		}
		return done(Token{Kind: KindInt, Int: n})
	}

	// identifier characters, or failing that a run of operator characters
	for isIdentCh(s.peekChar(0)) {
		s.offset++
	}
	ident := s.file.Content[start:s.offset]

	if ident == "" {
		first := s.peekChar(0)
		for isOpCh(s.peekChar(0)) {
			s.offset++
		}
		text := s.file.Content[start:s.offset]

		if op, ok := opValues[text]; ok {
			return done(Token{Kind: KindOp, Op: op})
		}

		// punctuation only after operator matching fails
		if isPunctCh(first) {
			s.offset = start + 1
			return done(Token{Kind: KindPunct, Punct: first})
		}

		if text == "" {
			text = string(first)
			s.offset = start + 1
		}
		return Token{}, diag.Failf(s.SpanFrom(start), "Invalid operator '%s'", text)
	}

	// literal words
	switch ident {
	case "true":
		return done(Token{Kind: KindBool, Bool: true})
	case "false":
		return done(Token{Kind: KindBool, Bool: false})
	case "void":
		return done(Token{Kind: KindVoid})
	}

	if kw, ok := keywordValues[ident]; ok {
		return done(Token{Kind: KindKeyword, Kw: kw})
	}

	if IsIdent(ident) {
		return done(Token{Kind: KindIdent, Ident: ident})
	}

	return Token{}, diag.Failf(s.SpanFrom(start), "Invalid keyword or identifier '%s'", ident)
}

// Peek looks ahead n tokens (0 = next) without consuming anything and
// with no observable effect on diagnostics.
func (s *Stream) Peek(n int) (Token, bool) {
	rb := s.Begin()
	defer rb.Discard()

	var tk Token
	for i := 0; i <= n; i++ {
		var err error
		tk, err = s.Pull()
		if err != nil {
			return Token{}, false
		}
	}
	return tk, true
}

// PullKeyword consumes the given keyword or fails
func (s *Stream) PullKeyword(kw Keyword) (Token, error) {
	rb := s.Begin()
	defer rb.Discard()

	tk, err := s.Pull()
	if err != nil {
		return Token{}, err
	}
	if !tk.IsKeyword(kw) {
		return Token{}, diag.Failf(tk.Span, "Expected '%s'", kw)
	}
	rb.Commit()
	return tk, nil
}

// PullOp consumes the given operator or fails
func (s *Stream) PullOp(op Op) (Token, error) {
	rb := s.Begin()
	defer rb.Discard()

	tk, err := s.Pull()
	if err != nil {
		return Token{}, err
	}
	if !tk.IsOp(op) {
		return Token{}, diag.Failf(tk.Span, "Expected '%s'", op)
	}
	rb.Commit()
	return tk, nil
}

// PullPunct consumes the given punctuation character or fails
func (s *Stream) PullPunct(ch byte) (Token, error) {
	rb := s.Begin()
	defer rb.Discard()

	tk, err := s.Pull()
	if err != nil {
		return Token{}, err
	}
	if !tk.IsPunct(ch) {
		return Token{}, diag.Failf(tk.Span, "Expected '%c'", ch)
	}
	rb.Commit()
	return tk, nil
}

// PullIdent consumes an identifier token or fails
func (s *Stream) PullIdent() (Token, error) {
	rb := s.Begin()
	defer rb.Discard()

	tk, err := s.Pull()
	if err != nil {
		return Token{}, err
	}
	if tk.Kind != KindIdent {
		return Token{}, diag.Failf(tk.Span, "Expected identifier")
	}
	rb.Commit()
	return tk, nil
}

// PullStrLit consumes a string literal token or fails
func (s *Stream) PullStrLit() (Token, error) {
	rb := s.Begin()
	defer rb.Discard()

	tk, err := s.Pull()
	if err != nil {
		return Token{}, err
	}
	if tk.Kind != KindString {
		return Token{}, diag.Failf(tk.Span, "Expected string literal")
	}
	rb.Commit()
	return tk, nil
}

// DrawPunct consumes the given punctuation if it is next. A mismatch is
// a routing decision, not an error.
func (s *Stream) DrawPunct(ch byte) bool {
	if _, err := s.PullPunct(ch); err != nil {
		return false
	}
	return true
}

// DrawKeyword consumes the given keyword if it is next
func (s *Stream) DrawKeyword(kw Keyword) bool {
	if _, err := s.PullKeyword(kw); err != nil {
		return false
	}
	return true
}

// DrawOp consumes the given operator if it is next
func (s *Stream) DrawOp(op Op) bool {
	if _, err := s.PullOp(op); err != nil {
		return false
	}
	return true
}

// PeekPunct reports whether the next token is the given punctuation
func (s *Stream) PeekPunct(ch byte) bool {
	tk, ok := s.Peek(0)
	return ok && tk.IsPunct(ch)
}

// PeekKeyword reports whether the next token is the given keyword
func (s *Stream) PeekKeyword(kw Keyword) bool {
	tk, ok := s.Peek(0)
	return ok && tk.IsKeyword(kw)
}

// PeekOp reports whether the next token is the given operator
func (s *Stream) PeekOp(op Op) bool {
	tk, ok := s.Peek(0)
	return ok && tk.IsOp(op)
}

// PullSemicolons applies the statement terminator rule: after a closing
// brace terminators are optional, otherwise one is mandatory; extras
// are consumed greedily either way.
func (s *Stream) PullSemicolons() error {
	rb := s.Begin()
	defer rb.Discard()

	if s.hasLast && s.last.IsPunct('}') {
		for s.DrawPunct(';') {
		}
		rb.Commit()
		return nil
	}

	if _, err := s.PullPunct(';'); err != nil {
		return err
	}
	for s.DrawPunct(';') {
	}
	rb.Commit()
	return nil
}

// PullSeparator consumes the separator between list elements, allowing
// a trailing separator before the closing bracket. It returns true if
// the closing bracket is next and the list is done.
func (s *Stream) PullSeparator(sep, closing byte) (bool, error) {
	if s.PeekPunct(closing) {
		return true, nil
	}
	if _, err := s.PullPunct(sep); err != nil {
		return false, err
	}
	if s.PeekPunct(closing) {
		return true, nil
	}
	return false, nil
}
