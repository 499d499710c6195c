package lexer

import (
	"strings"
	"testing"

	"github.com/vesper-lang/vesper/internal/diag"
	"github.com/vesper-lang/vesper/internal/source"
)

func newTestStream(src string) *Stream {
	return NewStream(source.NewFile("test.vsp", src), diag.NewSink())
}

func pullAll(t *testing.T, s *Stream, tests []Token) {
	t.Helper()

	for i, tt := range tests {
		tok, err := s.Pull()
		if err != nil {
			t.Fatalf("tests[%d] - pull failed: %v", i, err)
		}

		if tok.Kind != tt.Kind {
			t.Fatalf("tests[%d] - kind wrong. expected=%q, got=%q",
				i, tt.Kind, tok.Kind)
		}

		want := tt
		want.Span = tok.Span
		if tok != want {
			t.Fatalf("tests[%d] - token wrong. expected=%s, got=%s",
				i, tt.DebugString(), tok.DebugString())
		}
	}

	if !s.AtEnd() {
		t.Fatalf("stream not at end after all expected tokens")
	}
}

func TestBasicTokens(t *testing.T) {
	input := `let x = foo(1, 2.5);`

	pullAll(t, newTestStream(input), []Token{
		{Kind: KindKeyword, Kw: KwLet},
		{Kind: KindIdent, Ident: "x"},
		{Kind: KindOp, Op: OpSeq},
		{Kind: KindIdent, Ident: "foo"},
		{Kind: KindPunct, Punct: '('},
		{Kind: KindInt, Int: 1},
		{Kind: KindPunct, Punct: ','},
		{Kind: KindFloat, Float: 2.5},
		{Kind: KindPunct, Punct: ')'},
		{Kind: KindPunct, Punct: ';'},
	})
}

func TestKeywords(t *testing.T) {
	input := `for while in if else try fun return break continue from struct ` +
		`decl enum extends required get set depends new const let using ` +
		`export import extern as is typeof null`

	kws := []Keyword{
		KwFor, KwWhile, KwIn, KwIf, KwElse, KwTry, KwFun, KwReturn,
		KwBreak, KwContinue, KwFrom, KwStruct, KwDecl, KwEnum, KwExtends,
		KwRequired, KwGet, KwSet, KwDepends, KwNew, KwConst, KwLet,
		KwUsing, KwExport, KwImport, KwExtern, KwAs, KwIs, KwTypeof, KwNull,
	}

	tests := make([]Token, len(kws))
	for i, kw := range kws {
		tests[i] = Token{Kind: KindKeyword, Kw: kw}
	}

	pullAll(t, newTestStream(input), tests)
}

func TestOperators(t *testing.T) {
	input := `! * / % + - == != < <= > >= && || %= /= *= -= += = -> => <=> ::`

	ops := []Op{
		OpNot, OpMul, OpDiv, OpMod, OpAdd, OpSub, OpEq, OpNeq, OpLess,
		OpLeq, OpMore, OpMeq, OpAnd, OpOr, OpModSeq, OpDivSeq, OpMulSeq,
		OpSubSeq, OpAddSeq, OpSeq, OpArrow, OpFarrow, OpBind, OpScope,
	}

	tests := make([]Token, len(ops))
	for i, op := range ops {
		tests[i] = Token{Kind: KindOp, Op: op}
	}

	pullAll(t, newTestStream(input), tests)
}

func TestLiteralWords(t *testing.T) {
	pullAll(t, newTestStream(`true false void null`), []Token{
		{Kind: KindBool, Bool: true},
		{Kind: KindBool, Bool: false},
		{Kind: KindVoid},
		{Kind: KindKeyword, Kw: KwNull},
	})
}

func TestSpecialIdentsLexAsIdents(t *testing.T) {
	pullAll(t, newTestStream(`this super root thisx`), []Token{
		{Kind: KindIdent, Ident: "this"},
		{Kind: KindIdent, Ident: "super"},
		{Kind: KindIdent, Ident: "root"},
		{Kind: KindIdent, Ident: "thisx"},
	})

	for i, tt := range []struct {
		name     string
		expected bool
	}{
		{"this", true},
		{"super", true},
		{"root", true},
		{"thisx", false},
		{"", false},
	} {
		if got := IsSpecialIdent(tt.name); got != tt.expected {
			t.Fatalf("tests[%d] - IsSpecialIdent(%q) wrong. expected=%t, got=%t",
				i, tt.name, tt.expected, got)
		}
	}
}

func TestColonVersusScope(t *testing.T) {
	pullAll(t, newTestStream(`a: b::c`), []Token{
		{Kind: KindIdent, Ident: "a"},
		{Kind: KindPunct, Punct: ':'},
		{Kind: KindIdent, Ident: "b"},
		{Kind: KindOp, Op: OpScope},
		{Kind: KindIdent, Ident: "c"},
	})
}

func TestStringEscapes(t *testing.T) {
	s := newTestStream(`"a\n\t\"\\\'\{b"`)

	tok, err := s.Pull()
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if tok.Kind != KindString {
		t.Fatalf("kind wrong. expected=%q, got=%q", KindString, tok.Kind)
	}
	if tok.Str != "a\n\t\"\\'{b" {
		t.Fatalf("value wrong. expected=%q, got=%q", "a\n\t\"\\'{b", tok.Str)
	}
	if s.Sink().Len() != 0 {
		t.Fatalf("known escapes should not log, got %d messages", s.Sink().Len())
	}
}

func TestUnknownEscapeWarns(t *testing.T) {
	s := newTestStream(`"a\qb"`)

	tok, err := s.Pull()
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if tok.Str != "ab" {
		t.Fatalf("value wrong. expected=%q, got=%q", "ab", tok.Str)
	}

	msgs := s.Sink().Messages()
	if len(msgs) != 1 {
		t.Fatalf("message count wrong. expected=1, got=%d", len(msgs))
	}
	if msgs[0].Severity != diag.SeverityWarning {
		t.Fatalf("severity wrong. expected=%q, got=%q", diag.SeverityWarning, msgs[0].Severity)
	}
	if msgs[0].Text != `Unknown escape sequence '\q'` {
		t.Fatalf("text wrong. got=%q", msgs[0].Text)
	}
}

func TestNumberLiterals(t *testing.T) {
	pullAll(t, newTestStream(`0 42 3.25 1. 1.2.3`), []Token{
		{Kind: KindInt, Int: 0},
		{Kind: KindInt, Int: 42},
		{Kind: KindFloat, Float: 3.25},
		{Kind: KindFloat, Float: 1},
		{Kind: KindFloat, Float: 1.2},
		{Kind: KindPunct, Punct: '.'},
		{Kind: KindInt, Int: 3},
	})
}

func TestIntegerOverflowFails(t *testing.T) {
	s := newTestStream(`99999999999999999999`)

	_, err := s.Pull()
	if err == nil {
		t.Fatalf("expected failure for overflowing integer")
	}
	if !strings.Contains(err.Error(), "Invalid integer literal") {
		t.Fatalf("error wrong. got=%q", err.Error())
	}
}

func TestComments(t *testing.T) {
	input := `a // line comment
	b /* block
	comment */ c /* unterminated`

	pullAll(t, newTestStream(input), []Token{
		{Kind: KindIdent, Ident: "a"},
		{Kind: KindIdent, Ident: "b"},
		{Kind: KindIdent, Ident: "c"},
	})
}

func TestBlockCommentsDoNotNest(t *testing.T) {
	s := newTestStream(`x /* a /* b */ c */ y`)

	for i, want := range []string{"x", "c"} {
		tok, err := s.Pull()
		if err != nil {
			t.Fatalf("tests[%d] - pull failed: %v", i, err)
		}
		if tok.Ident != want {
			t.Fatalf("tests[%d] - ident wrong. expected=%q, got=%q", i, want, tok.Ident)
		}
	}

	// The first */ closed the comment, so the dangling one is left
	// behind and lexes as an unknown operator.
	_, err := s.Pull()
	if err == nil {
		t.Fatalf("expected failure at dangling comment close")
	}
	if !strings.Contains(err.Error(), "Invalid operator '*/'") {
		t.Fatalf("error wrong. got=%q", err.Error())
	}
}

func TestStarSlashTerminates(t *testing.T) {
	pullAll(t, newTestStream(`/***/ x`), []Token{
		{Kind: KindIdent, Ident: "x"},
	})

	pullAll(t, newTestStream(`/* a **/ y`), []Token{
		{Kind: KindIdent, Ident: "y"},
	})
}

func TestEndOfFileError(t *testing.T) {
	s := newTestStream(`   // nothing here`)

	_, err := s.Pull()
	if err == nil {
		t.Fatalf("expected failure at end-of-file")
	}
	if !strings.Contains(err.Error(), "Expected token, found end-of-file") {
		t.Fatalf("error wrong. got=%q", err.Error())
	}
}

func TestInvalidOperator(t *testing.T) {
	s := newTestStream(`a ~~ b`)

	if _, err := s.Pull(); err != nil {
		t.Fatalf("pull failed: %v", err)
	}

	_, err := s.Pull()
	if err == nil {
		t.Fatalf("expected failure for unknown operator")
	}
	if !strings.Contains(err.Error(), "Invalid operator '~~'") {
		t.Fatalf("error wrong. got=%q", err.Error())
	}
}

func TestPeekHasNoSideEffects(t *testing.T) {
	s := newTestStream(`a "b\q" c`)

	before := s.Offset()
	tk, ok := s.Peek(1)
	if !ok {
		t.Fatalf("peek failed")
	}
	if tk.Kind != KindString {
		t.Fatalf("peeked kind wrong. expected=%q, got=%q", KindString, tk.Kind)
	}

	// The bad escape warning from the peeked string must be retracted.
	if s.Sink().Len() != 0 {
		t.Fatalf("peek leaked %d diagnostics", s.Sink().Len())
	}
	if s.Offset() != before {
		t.Fatalf("peek moved the stream. expected=%d, got=%d", before, s.Offset())
	}

	tok, err := s.Pull()
	if err != nil {
		t.Fatalf("pull after peek failed: %v", err)
	}
	if tok.Ident != "a" {
		t.Fatalf("pull after peek wrong. expected=%q, got=%q", "a", tok.Ident)
	}
}

func TestPeekPastEnd(t *testing.T) {
	s := newTestStream(`a`)

	if _, ok := s.Peek(5); ok {
		t.Fatalf("peek past end should fail")
	}
	if s.Sink().Len() != 0 {
		t.Fatalf("failed peek leaked diagnostics")
	}
}

func TestRollbackRestores(t *testing.T) {
	s := newTestStream(`a "b\q" c`)

	if _, err := s.Pull(); err != nil {
		t.Fatalf("pull failed: %v", err)
	}

	offset := s.Offset()
	last, _ := s.Last()

	rb := s.Begin()
	if _, err := s.Pull(); err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if s.Sink().Len() != 1 {
		t.Fatalf("expected escape warning inside transaction, got %d", s.Sink().Len())
	}
	rb.Discard()

	if s.Offset() != offset {
		t.Fatalf("offset not restored. expected=%d, got=%d", offset, s.Offset())
	}
	if got, _ := s.Last(); got != last {
		t.Fatalf("last token not restored. expected=%s, got=%s",
			last.DebugString(), got.DebugString())
	}
	if s.Sink().Len() != 0 {
		t.Fatalf("diagnostics not restored, got %d", s.Sink().Len())
	}
}

func TestRollbackCommitKeeps(t *testing.T) {
	s := newTestStream(`"b\q" c`)

	rb := s.Begin()
	if _, err := s.Pull(); err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	rb.Commit()
	rb.Discard()

	if s.Sink().Len() != 1 {
		t.Fatalf("committed warning lost, got %d messages", s.Sink().Len())
	}

	tok, err := s.Pull()
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if tok.Ident != "c" {
		t.Fatalf("position wrong after commit. expected=%q, got=%q", "c", tok.Ident)
	}
}

func TestNestedRollbacks(t *testing.T) {
	s := newTestStream(`a b c d`)

	outer := s.Begin()
	if _, err := s.Pull(); err != nil {
		t.Fatalf("pull failed: %v", err)
	}

	inner := s.Begin()
	if _, err := s.Pull(); err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	inner.Commit()
	inner.Discard()

	// Inner committed, but discarding the outer frame still restores
	// to the outer mark.
	outer.Discard()

	tok, err := s.Pull()
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if tok.Ident != "a" {
		t.Fatalf("outer discard did not restore. expected=%q, got=%q", "a", tok.Ident)
	}
}

func TestClearMessages(t *testing.T) {
	s := newTestStream(`"a\q" x`)

	rb := s.Begin()
	if _, err := s.Pull(); err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	rb.ClearMessages()
	rb.Commit()

	if s.Sink().Len() != 0 {
		t.Fatalf("messages survived ClearMessages, got %d", s.Sink().Len())
	}

	// Position kept: next token is x, not the string.
	tok, err := s.Pull()
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if tok.Ident != "x" {
		t.Fatalf("position wrong after ClearMessages. expected=%q, got=%q", "x", tok.Ident)
	}
}

func TestPullSemicolons(t *testing.T) {
	tests := []struct {
		input     string
		expectErr bool
	}{
		{`a; b`, false},
		{`a;;; b`, false},
		{`a b`, true},
	}

	for i, tt := range tests {
		s := newTestStream(tt.input)
		if _, err := s.Pull(); err != nil {
			t.Fatalf("tests[%d] - setup pull failed: %v", i, err)
		}

		err := s.PullSemicolons()
		if tt.expectErr && err == nil {
			t.Fatalf("tests[%d] - expected terminator error for %q", i, tt.input)
		}
		if !tt.expectErr && err != nil {
			t.Fatalf("tests[%d] - unexpected error for %q: %v", i, tt.input, err)
		}
	}
}

func TestPullSemicolonsAfterBrace(t *testing.T) {
	s := newTestStream(`} b`)

	if _, err := s.Pull(); err != nil {
		t.Fatalf("setup pull failed: %v", err)
	}

	// After a closing brace the terminator is optional.
	if err := s.PullSemicolons(); err != nil {
		t.Fatalf("terminator after brace should be optional: %v", err)
	}

	tok, err := s.Pull()
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if tok.Ident != "b" {
		t.Fatalf("position wrong. expected=%q, got=%q", "b", tok.Ident)
	}
}

func TestPullSeparator(t *testing.T) {
	// a, b, } with trailing comma allowed
	s := newTestStream(`, b ,}`)

	done, err := s.PullSeparator(',', '}')
	if err != nil || done {
		t.Fatalf("first separator wrong. done=%t err=%v", done, err)
	}

	if _, err := s.Pull(); err != nil {
		t.Fatalf("pull failed: %v", err)
	}

	done, err = s.PullSeparator(',', '}')
	if err != nil {
		t.Fatalf("trailing separator failed: %v", err)
	}
	if !done {
		t.Fatalf("trailing separator before bracket should report done")
	}
}

func TestTokenSpans(t *testing.T) {
	s := newTestStream("let abc = 1;")

	tok, err := s.Pull()
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if tok.Span.Start.Offset != 0 || tok.Span.End.Offset != 3 {
		t.Fatalf("span wrong. expected=0-3, got=%d-%d",
			tok.Span.Start.Offset, tok.Span.End.Offset)
	}

	tok, err = s.Pull()
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if tok.Span.Start.Offset != 4 || tok.Span.End.Offset != 7 {
		t.Fatalf("span wrong. expected=4-7, got=%d-%d",
			tok.Span.Start.Offset, tok.Span.End.Offset)
	}
	if tok.Span.Start.Line != 1 || tok.Span.Start.Column != 5 {
		t.Fatalf("position wrong. expected=1:5, got=%d:%d",
			tok.Span.Start.Line, tok.Span.Start.Column)
	}
}

func TestMissingTableEntryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for missing table entry")
		}
	}()

	_ = Keyword(9999).String()
}
