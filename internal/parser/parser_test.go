package parser

import (
	"strings"
	"testing"

	"github.com/vesper-lang/vesper/internal/diag"
	"github.com/vesper-lang/vesper/internal/lexer"
	"github.com/vesper-lang/vesper/internal/source"
)

func checkSource(t *testing.T, files map[string]string, root string) (*UnitParser, *SharedState) {
	t.Helper()
	shared := NewSharedState(source.MapLoader(files))
	unit, err := shared.ParseRoot(root)
	if err != nil {
		t.Fatalf("ParseRoot(%q) error: %v", root, err)
	}
	return unit, shared
}

func checkOne(t *testing.T, src string) (*UnitParser, *SharedState) {
	t.Helper()
	return checkSource(t, map[string]string{"main.vsp": src}, "main.vsp")
}

func errorTexts(s *SharedState) []string {
	var texts []string
	for _, m := range s.Sink().Messages() {
		if m.Severity == diag.SeverityError {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

func wantNoErrors(t *testing.T, shared *SharedState) {
	t.Helper()
	if errs := errorTexts(shared); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func wantError(t *testing.T, shared *SharedState, text string) {
	t.Helper()
	for _, e := range errorTexts(shared) {
		if e == text {
			return
		}
	}
	t.Fatalf("error %q not reported, got %v", text, errorTexts(shared))
}

func TestPrecedenceClimbing(t *testing.T) {
	unit, shared := checkOne(t, "1 + 2 * 3;")
	wantNoErrors(t, shared)

	add, ok := unit.AST().Exprs[0].(*BinOpExpr)
	if !ok || add.Op != lexer.OpAdd {
		t.Fatalf("root not an addition: %T", unit.AST().Exprs[0])
	}
	lhs, ok := add.Lhs.(*LitExpr)
	if !ok || lhs.Tok.Int != 1 {
		t.Fatalf("lhs not the literal 1: %s", add.Lhs.DebugFmt(0))
	}
	mul, ok := add.Rhs.(*BinOpExpr)
	if !ok || mul.Op != lexer.OpMul {
		t.Fatalf("rhs not a multiplication: %s", add.Rhs.DebugFmt(0))
	}
	if mul.Lhs.(*LitExpr).Tok.Int != 2 || mul.Rhs.(*LitExpr).Tok.Int != 3 {
		t.Fatalf("multiplication got wrong operands: %s", mul.DebugFmt(0))
	}
}

func TestPrecedenceClimbingLeft(t *testing.T) {
	unit, shared := checkOne(t, "1 * 2 + 3;")
	wantNoErrors(t, shared)

	add, ok := unit.AST().Exprs[0].(*BinOpExpr)
	if !ok || add.Op != lexer.OpAdd {
		t.Fatalf("root not an addition: %T", unit.AST().Exprs[0])
	}
	mul, ok := add.Lhs.(*BinOpExpr)
	if !ok || mul.Op != lexer.OpMul {
		t.Fatalf("lhs not a multiplication: %s", add.Lhs.DebugFmt(0))
	}
	if add.Rhs.(*LitExpr).Tok.Int != 3 {
		t.Fatalf("rhs not the literal 3: %s", add.Rhs.DebugFmt(0))
	}
}

func TestAssignmentAssociatesRight(t *testing.T) {
	unit, shared := checkOne(t, "let a = 1; let b = 2; let c = 3; a = b = c;")
	wantNoErrors(t, shared)

	outer, ok := unit.AST().Exprs[3].(*BinOpExpr)
	if !ok || outer.Op != lexer.OpSeq {
		t.Fatalf("root not an assignment: %T", unit.AST().Exprs[3])
	}
	if name := outer.Lhs.(*IdentExpr).Name(); name != "a" {
		t.Fatalf("outer target expected=%q, got=%q", "a", name)
	}
	inner, ok := outer.Rhs.(*BinOpExpr)
	if !ok || inner.Op != lexer.OpSeq {
		t.Fatalf("rhs not a nested assignment: %s", outer.Rhs.DebugFmt(0))
	}
	if name := inner.Lhs.(*IdentExpr).Name(); name != "b" {
		t.Fatalf("inner target expected=%q, got=%q", "b", name)
	}
}

func TestUnaryBindsTighter(t *testing.T) {
	unit, shared := checkOne(t, "let a = 1; let b = -a + 2;")
	wantNoErrors(t, shared)

	decl := unit.AST().Exprs[1].(*VarDeclExpr)
	add, ok := decl.Init.(*BinOpExpr)
	if !ok || add.Op != lexer.OpAdd {
		t.Fatalf("init not an addition: %s", decl.Init.DebugFmt(0))
	}
	neg, ok := add.Lhs.(*UnOpExpr)
	if !ok || neg.Op != lexer.OpSub {
		t.Fatalf("lhs not a negation: %s", add.Lhs.DebugFmt(0))
	}
}

func TestStatementTerminators(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"let a = 1;", true},
		{"let a = 1", true},
		{"let a = 1;;;", true},
		{"let a = 1 let b = 2;", false},
		{"{ let a = 1; let b = 2 }", true},
		{"{} let a = 1;", true},
		{"{ let a = 1 let b = 2; }", false},
	}

	for i, tt := range tests {
		_, shared := checkOne(t, tt.input)
		failed := shared.Sink().HasErrors()
		if tt.ok && failed {
			t.Fatalf("tests[%d] - %q unexpectedly failed: %v", i, tt.input, errorTexts(shared))
		}
		if !tt.ok && !failed {
			t.Fatalf("tests[%d] - %q unexpectedly parsed", i, tt.input)
		}
		if !tt.ok {
			wantError(t, shared, "Expected semicolon")
		}
	}
}

func TestCommittedWarningsSurviveLaterFailure(t *testing.T) {
	unit, shared := checkOne(t, "let s = \"a\\qb\"; #;")
	if !unit.Failed() {
		t.Fatalf("unit should have failed to parse")
	}

	msgs := shared.Sink().Messages()
	if len(msgs) != 2 {
		t.Fatalf("messages expected=2, got=%d: %v", len(msgs), msgs)
	}
	if msgs[0].Severity != diag.SeverityWarning || msgs[0].Text != "Unknown escape sequence '\\q'" {
		t.Fatalf("first message not the committed warning: %v", msgs[0])
	}
	if msgs[1].Severity != diag.SeverityError || msgs[1].Text != "Invalid operator '#'" {
		t.Fatalf("second message not the terminal error: %v", msgs[1])
	}
}

func TestProbeFailureLeavesNoTrace(t *testing.T) {
	unit, shared := checkOne(t, "@deprecated(\"use twice\");")
	wantNoErrors(t, shared)

	attr, ok := unit.AST().Exprs[0].(*AttrExpr)
	if !ok {
		t.Fatalf("expected an attribute, got %T", unit.AST().Exprs[0])
	}
	if attr.Name.Name() != "deprecated" {
		t.Fatalf("attribute name expected=%q, got=%q", "deprecated", attr.Name.Name())
	}
	if attr.Value == nil {
		t.Fatalf("attribute argument missing")
	}
}

func TestCallsAndTrailingSeparator(t *testing.T) {
	unit, shared := checkOne(t, "fun f(a: int, b: int) -> int { return a; }; f(1, 2,);")
	wantNoErrors(t, shared)

	call, ok := unit.AST().Exprs[1].(*CallExpr)
	if !ok {
		t.Fatalf("expected a call, got %T", unit.AST().Exprs[1])
	}
	if len(call.Args) != 2 {
		t.Fatalf("call args expected=2, got=%d", len(call.Args))
	}
}

func TestIfElseChain(t *testing.T) {
	unit, shared := checkOne(t, "let a = true; if a { } else if a { } else { };")
	wantNoErrors(t, shared)

	first, ok := unit.AST().Exprs[1].(*IfExpr)
	if !ok {
		t.Fatalf("expected an if, got %T", unit.AST().Exprs[1])
	}
	second, ok := first.Else.(*IfExpr)
	if !ok {
		t.Fatalf("else branch not an if chain: %T", first.Else)
	}
	if _, ok := second.Else.(*BlockExpr); !ok {
		t.Fatalf("final else not a block: %T", second.Else)
	}
}

func TestReturnForms(t *testing.T) {
	unit, shared := checkOne(t, "fun f() { return; }; fun g() -> int { return 5 from g; };")
	wantNoErrors(t, shared)

	f := unit.AST().Exprs[0].(*FunDeclExpr)
	ret := f.Body.Body.Exprs[0].(*ReturnExpr)
	if ret.Value != nil || ret.From != "" {
		t.Fatalf("bare return carried a payload: %s", ret.DebugFmt(0))
	}

	g := unit.AST().Exprs[1].(*FunDeclExpr)
	ret = g.Body.Body.Exprs[0].(*ReturnExpr)
	if ret.Value == nil || ret.From != "g" {
		t.Fatalf("labeled return parsed wrong: %s", ret.DebugFmt(0))
	}
}

func TestScopeOperatorIsNotBinary(t *testing.T) {
	unit, shared := checkOne(t, "let a = 1; let b = 2; let c = a <=> b;")
	if !unit.Failed() {
		t.Fatalf("bind operator in infix position should not parse")
	}
	wantError(t, shared, "Expected semicolon")
}

func TestEmptyUnit(t *testing.T) {
	tests := []string{
		"",
		"   \n\t",
		"// only a comment\n/* and a block */",
	}

	for i, input := range tests {
		unit, shared := checkOne(t, input)
		wantNoErrors(t, shared)
		if unit.Failed() {
			t.Fatalf("tests[%d] - empty unit failed", i)
		}
		if len(unit.AST().Exprs) != 0 {
			t.Fatalf("tests[%d] - statements expected=0, got=%d", i, len(unit.AST().Exprs))
		}
	}
}

func TestQualifiedIdentParsing(t *testing.T) {
	unit, _ := checkOne(t, "let v = Foo::bar::baz;")

	decl := unit.AST().Exprs[0].(*VarDeclExpr)
	ident, ok := decl.Init.(*IdentExpr)
	if !ok {
		t.Fatalf("init not an identifier: %T", decl.Init)
	}
	if ident.Name() != "Foo::bar::baz" {
		t.Fatalf("path expected=%q, got=%q", "Foo::bar::baz", ident.Name())
	}
}

func TestStructuralDump(t *testing.T) {
	unit, shared := checkOne(t, "let x = 1 + 2;")
	wantNoErrors(t, shared)

	want := strings.Join([]string{
		"AST",
		"  exprs: [",
		"    VarDeclExpr",
		"      const: false",
		"      name: \"x\"",
		"      type: <none>",
		"      init: BinOpExpr",
		"        op: \"+\"",
		"        lhs: LitExpr",
		"          value: int(1)",
		"        rhs: LitExpr",
		"          value: int(2)",
		"  ]",
	}, "\n")
	if got := unit.AST().DebugFmt(0); got != want {
		t.Fatalf("dump mismatch\nexpected:\n%s\ngot:\n%s", want, got)
	}
}

func TestDumpIsDeterministic(t *testing.T) {
	const src = "fun f(a: int) -> int { return a; }; struct P { x: int; };"
	first, sharedA := checkOne(t, src)
	second, sharedB := checkOne(t, src)
	wantNoErrors(t, sharedA)
	wantNoErrors(t, sharedB)

	if first.AST().DebugFmt(0) != second.AST().DebugFmt(0) {
		t.Fatalf("two parses of the same source dumped differently")
	}
}
