package parser

import (
	"github.com/vesper-lang/vesper/internal/diag"
	"github.com/vesper-lang/vesper/internal/entity"
	"github.com/vesper-lang/vesper/internal/lexer"
)

// pullAST parses a whole unit: statements until end of input. Unlike
// every other rule it runs without a rollback frame, so statements
// already committed keep their side effects when a later statement
// fails and the failure becomes the unit's terminal error.
func pullAST(s *lexer.Stream) (*AST, error) {
	ast := &AST{}
	start := s.Offset()
	for {
		s.Tick()
		if s.AtEnd() {
			break
		}
		e, err := pullExpr(s)
		if err != nil {
			return nil, err
		}
		ast.Exprs = append(ast.Exprs, e)
		if err := s.PullSemicolons(); err != nil {
			if s.AtEnd() {
				break
			}
			if tk, ok := s.Peek(0); ok {
				return nil, diag.Failf(tk.Span, "Expected semicolon")
			}
			return nil, err
		}
	}
	ast.span = s.SpanFrom(start)
	return ast, nil
}

// pullExpr parses one expression at the lowest binding level.
// Declarations are expressions too, so this is the entry point for
// statements as well.
func pullExpr(s *lexer.Stream) (Expr, error) {
	return pullBinOp(s, 1)
}

// isBinaryOp reports whether op may appear in infix position. The
// arrow, bind and scope operators only occur inside other grammar
// rules, and logical not is prefix only.
func isBinaryOp(op lexer.Op) bool {
	return op.Prec() >= 1 && op != lexer.OpNot
}

// pullBinOp parses a run of binary operators at or above minPrec by
// precedence climbing. Right associative operators recurse into their
// right-hand side at the same level, left associative ones at the
// next tighter level.
func pullBinOp(s *lexer.Stream, minPrec int) (Expr, error) {
	rb := s.Begin()
	defer rb.Discard()

	lhs, err := pullUnOp(s)
	if err != nil {
		return nil, err
	}
	for {
		s.Tick()
		tk, ok := s.Peek(0)
		if !ok || tk.Kind != lexer.KindOp || !isBinaryOp(tk.Op) || tk.Op.Prec() < minPrec {
			break
		}
		if _, err := s.PullOp(tk.Op); err != nil {
			return nil, err
		}
		next := tk.Op.Prec()
		if tk.Op.Assoc() == lexer.AssocLeft {
			next++
		}
		rhs, err := pullBinOp(s, next)
		if err != nil {
			return nil, err
		}
		lhs = &BinOpExpr{Op: tk.Op, Lhs: lhs, Rhs: rhs, span: lhs.Span().Union(rhs.Span())}
	}
	rb.Commit()
	return lhs, nil
}

// pullUnOp parses prefix operators, which bind tighter than any
// binary operator and nest to the right.
func pullUnOp(s *lexer.Stream) (Expr, error) {
	rb := s.Begin()
	defer rb.Discard()

	if tk, ok := s.Peek(0); ok && tk.Kind == lexer.KindOp && tk.Op.IsUnary() {
		if _, err := s.PullOp(tk.Op); err != nil {
			return nil, err
		}
		val, err := pullUnOp(s)
		if err != nil {
			return nil, err
		}
		rb.Commit()
		return &UnOpExpr{Op: tk.Op, Value: val, span: tk.Span.Union(val.Span())}, nil
	}

	e, err := pullPostfix(s)
	if err != nil {
		return nil, err
	}
	rb.Commit()
	return e, nil
}

// pullPostfix parses a primary followed by any number of call
// argument lists.
func pullPostfix(s *lexer.Stream) (Expr, error) {
	rb := s.Begin()
	defer rb.Discard()

	e, err := pullPrimary(s)
	if err != nil {
		return nil, err
	}
	for s.PeekPunct('(') {
		s.Tick()
		call, err := pullCallArgs(s, e)
		if err != nil {
			return nil, err
		}
		e = call
	}
	rb.Commit()
	return e, nil
}

func pullCallArgs(s *lexer.Stream, target Expr) (*CallExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	if _, err := s.PullPunct('('); err != nil {
		return nil, err
	}
	call := &CallExpr{Target: target}
	for !s.PeekPunct(')') {
		s.Tick()
		arg, err := pullExpr(s)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		done, err := s.PullSeparator(',', ')')
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	end, err := s.PullPunct(')')
	if err != nil {
		return nil, err
	}
	call.span = target.Span().Union(end.Span)
	rb.Commit()
	return call, nil
}

// pullPrimary dispatches on the next token to the matching rule
func pullPrimary(s *lexer.Stream) (Expr, error) {
	tk, ok := s.Peek(0)
	if !ok {
		_, err := s.Pull()
		return nil, err
	}

	switch {
	case tk.IsKeyword(lexer.KwLet) || tk.IsKeyword(lexer.KwConst):
		e, err := pullVarDecl(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tk.IsKeyword(lexer.KwFun):
		e, err := pullFunDecl(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tk.IsKeyword(lexer.KwStruct):
		e, err := pullStructDecl(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tk.IsKeyword(lexer.KwExport):
		e, err := pullExport(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tk.IsKeyword(lexer.KwImport):
		e, err := pullImport(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tk.IsKeyword(lexer.KwIf):
		e, err := pullIf(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tk.IsKeyword(lexer.KwReturn):
		e, err := pullReturn(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tk.IsKeyword(lexer.KwNull):
		pulled, err := s.PullKeyword(lexer.KwNull)
		if err != nil {
			return nil, err
		}
		return &LitExpr{Tok: pulled, span: pulled.Span}, nil
	case tk.IsPunct('@'):
		if e, err := pullDebug(s); err == nil {
			return e, nil
		}
		e, err := pullAttr(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tk.IsPunct('{'):
		e, err := pullBlock(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	case tk.IsPunct('('):
		return pullParen(s)
	case tk.IsLit():
		pulled, err := s.Pull()
		if err != nil {
			return nil, err
		}
		return &LitExpr{Tok: pulled, span: pulled.Span}, nil
	case tk.Kind == lexer.KindIdent:
		e, err := pullIdent(s)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, diag.Failf(tk.Span, "Expected expression")
	}
}

func pullParen(s *lexer.Stream) (Expr, error) {
	rb := s.Begin()
	defer rb.Discard()

	if _, err := s.PullPunct('('); err != nil {
		return nil, err
	}
	inner, err := pullExpr(s)
	if err != nil {
		return nil, err
	}
	if _, err := s.PullPunct(')'); err != nil {
		return nil, err
	}
	rb.Commit()
	return inner, nil
}

// pullIdent parses a name, continuing through scope operators into a
// qualified path.
func pullIdent(s *lexer.Stream) (*IdentExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	first, err := s.Pull()
	if err != nil {
		return nil, err
	}
	if first.Kind != lexer.KindIdent {
		return nil, diag.Failf(first.Span, "Expected identifier")
	}
	node := &IdentExpr{Parts: []string{first.Ident}, span: first.Span, ent: entity.NoID}
	for s.PeekOp(lexer.OpScope) {
		s.Tick()
		if _, err := s.PullOp(lexer.OpScope); err != nil {
			return nil, err
		}
		part, err := s.PullIdent()
		if err != nil {
			return nil, err
		}
		node.Parts = append(node.Parts, part.Ident)
		node.span = node.span.Union(part.Span)
	}
	rb.Commit()
	return node, nil
}

// pullTypeRef parses a type annotation: an optional const qualifier
// and a type name, which may be the void literal word.
func pullTypeRef(s *lexer.Stream) (*TypeRef, error) {
	rb := s.Begin()
	defer rb.Discard()

	ref := &TypeRef{}
	if s.PeekKeyword(lexer.KwConst) {
		kw, err := s.PullKeyword(lexer.KwConst)
		if err != nil {
			return nil, err
		}
		ref.Const = true
		ref.span = kw.Span
	}
	if tk, ok := s.Peek(0); ok && tk.Kind == lexer.KindVoid {
		pulled, err := s.Pull()
		if err != nil {
			return nil, err
		}
		ref.Parts = []string{"void"}
		ref.span = ref.span.Union(pulled.Span)
		rb.Commit()
		return ref, nil
	}
	path, err := pullIdent(s)
	if err != nil {
		return nil, err
	}
	ref.Parts = path.Parts
	ref.span = ref.span.Union(path.span)
	rb.Commit()
	return ref, nil
}

func pullVarDecl(s *lexer.Stream) (*VarDeclExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	start, err := s.Pull()
	if err != nil {
		return nil, err
	}
	decl := &VarDeclExpr{ent: entity.NoID}
	switch {
	case start.IsKeyword(lexer.KwLet):
	case start.IsKeyword(lexer.KwConst):
		decl.Const = true
	default:
		return nil, diag.Failf(start.Span, "Expected 'let' or 'const'")
	}
	name, err := s.PullIdent()
	if err != nil {
		return nil, err
	}
	decl.Name = name.Ident
	decl.span = start.Span.Union(name.Span)

	if s.DrawPunct(':') {
		ref, err := pullTypeRef(s)
		if err != nil {
			return nil, err
		}
		decl.Type = ref
		decl.span = decl.span.Union(ref.span)
	}
	if s.PeekOp(lexer.OpSeq) {
		if _, err := s.PullOp(lexer.OpSeq); err != nil {
			return nil, err
		}
		init, err := pullExpr(s)
		if err != nil {
			return nil, err
		}
		decl.Init = init
		decl.span = decl.span.Union(init.Span())
	}
	rb.Commit()
	return decl, nil
}

func pullFunDecl(s *lexer.Stream) (*FunDeclExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	kw, err := s.PullKeyword(lexer.KwFun)
	if err != nil {
		return nil, err
	}
	name, err := s.PullIdent()
	if err != nil {
		return nil, err
	}
	if _, err := s.PullPunct('('); err != nil {
		return nil, err
	}
	decl := &FunDeclExpr{Name: name.Ident, ent: entity.NoID}
	for !s.PeekPunct(')') {
		s.Tick()
		pname, err := s.PullIdent()
		if err != nil {
			return nil, err
		}
		if _, err := s.PullPunct(':'); err != nil {
			return nil, err
		}
		ref, err := pullTypeRef(s)
		if err != nil {
			return nil, err
		}
		decl.Params = append(decl.Params, ParamDecl{Name: pname.Ident, Type: ref, span: pname.Span.Union(ref.span)})
		done, err := s.PullSeparator(',', ')')
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	if _, err := s.PullPunct(')'); err != nil {
		return nil, err
	}
	if s.PeekOp(lexer.OpArrow) {
		if _, err := s.PullOp(lexer.OpArrow); err != nil {
			return nil, err
		}
		ref, err := pullTypeRef(s)
		if err != nil {
			return nil, err
		}
		decl.Ret = ref
	}
	body, err := pullBlock(s)
	if err != nil {
		return nil, err
	}
	decl.Body = body
	decl.span = kw.Span.Union(body.Span())
	rb.Commit()
	return decl, nil
}

func pullStructDecl(s *lexer.Stream) (*StructDeclExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	kw, err := s.PullKeyword(lexer.KwStruct)
	if err != nil {
		return nil, err
	}
	name, err := s.PullIdent()
	if err != nil {
		return nil, err
	}
	if _, err := s.PullPunct('{'); err != nil {
		return nil, err
	}
	decl := &StructDeclExpr{Name: name.Ident, ent: entity.NoID}
	for !s.PeekPunct('}') {
		s.Tick()
		if s.PeekKeyword(lexer.KwFun) {
			m, err := pullFunDecl(s)
			if err != nil {
				return nil, err
			}
			decl.Methods = append(decl.Methods, m)
		} else {
			fname, err := s.PullIdent()
			if err != nil {
				return nil, err
			}
			if _, err := s.PullPunct(':'); err != nil {
				return nil, err
			}
			ref, err := pullTypeRef(s)
			if err != nil {
				return nil, err
			}
			decl.Fields = append(decl.Fields, FieldDecl{Name: fname.Ident, Type: ref, span: fname.Span.Union(ref.span)})
		}
		if err := s.PullSemicolons(); err != nil {
			if s.PeekPunct('}') {
				break
			}
			return nil, err
		}
	}
	end, err := s.PullPunct('}')
	if err != nil {
		return nil, err
	}
	decl.span = kw.Span.Union(end.Span)
	rb.Commit()
	return decl, nil
}

// pullBlock parses a braced statement list
func pullBlock(s *lexer.Stream) (*BlockExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	open, err := s.PullPunct('{')
	if err != nil {
		return nil, err
	}
	body, err := pullList(s)
	if err != nil {
		return nil, err
	}
	end, err := s.PullPunct('}')
	if err != nil {
		return nil, err
	}
	rb.Commit()
	return &BlockExpr{Body: body, span: open.Span.Union(end.Span)}, nil
}

// pullList parses statements until a closing brace or end of input.
// The last statement may omit its terminator right before the list
// ends.
func pullList(s *lexer.Stream) (*ListExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	list := &ListExpr{}
	start := s.Offset()
	for {
		s.Tick()
		if s.AtEnd() || s.PeekPunct('}') {
			break
		}
		e, err := pullExpr(s)
		if err != nil {
			return nil, err
		}
		list.Exprs = append(list.Exprs, e)
		if err := s.PullSemicolons(); err != nil {
			if s.AtEnd() || s.PeekPunct('}') {
				break
			}
			if tk, ok := s.Peek(0); ok {
				return nil, diag.Failf(tk.Span, "Expected semicolon")
			}
			return nil, err
		}
	}
	list.span = s.SpanFrom(start)
	rb.Commit()
	return list, nil
}

func pullIf(s *lexer.Stream) (*IfExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	kw, err := s.PullKeyword(lexer.KwIf)
	if err != nil {
		return nil, err
	}
	cond, err := pullExpr(s)
	if err != nil {
		return nil, err
	}
	then, err := pullBlock(s)
	if err != nil {
		return nil, err
	}
	node := &IfExpr{Cond: cond, Then: then, span: kw.Span.Union(then.Span())}
	if s.DrawKeyword(lexer.KwElse) {
		if s.PeekKeyword(lexer.KwIf) {
			alt, err := pullIf(s)
			if err != nil {
				return nil, err
			}
			node.Else = alt
		} else {
			alt, err := pullBlock(s)
			if err != nil {
				return nil, err
			}
			node.Else = alt
		}
		node.span = node.span.Union(node.Else.Span())
	}
	rb.Commit()
	return node, nil
}

func pullReturn(s *lexer.Stream) (*ReturnExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	kw, err := s.PullKeyword(lexer.KwReturn)
	if err != nil {
		return nil, err
	}
	node := &ReturnExpr{span: kw.Span}
	if !s.PeekPunct(';') {
		val, err := pullExpr(s)
		if err != nil {
			return nil, err
		}
		node.Value = val
		node.span = node.span.Union(val.Span())
	}
	if s.DrawKeyword(lexer.KwFrom) {
		label, err := s.PullIdent()
		if err != nil {
			return nil, err
		}
		node.From = label.Ident
		node.span = node.span.Union(label.Span)
	}
	rb.Commit()
	return node, nil
}

func pullAttr(s *lexer.Stream) (*AttrExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	at, err := s.PullPunct('@')
	if err != nil {
		return nil, err
	}
	name, err := pullIdent(s)
	if err != nil {
		return nil, err
	}
	node := &AttrExpr{Name: name, span: at.Span.Union(name.Span())}
	if s.DrawPunct('(') {
		val, err := pullExpr(s)
		if err != nil {
			return nil, err
		}
		node.Value = val
		end, err := s.PullPunct(')')
		if err != nil {
			return nil, err
		}
		node.span = node.span.Union(end.Span)
	}
	rb.Commit()
	return node, nil
}

func pullDebug(s *lexer.Stream) (*DebugExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	at, err := s.PullPunct('@')
	if err != nil {
		return nil, err
	}
	if _, err := s.PullOp(lexer.OpNot); err != nil {
		return nil, err
	}
	word, err := s.PullIdent()
	if err != nil {
		return nil, err
	}
	if word.Ident != "debug" {
		return nil, diag.Failf(word.Span, "Expected 'debug'")
	}
	if _, err := s.PullPunct('('); err != nil {
		return nil, err
	}
	opt, err := s.PullStrLit()
	if err != nil {
		return nil, err
	}
	end, err := s.PullPunct(')')
	if err != nil {
		return nil, err
	}
	rb.Commit()
	return &DebugExpr{Option: opt.Str, span: at.Span.Union(end.Span)}, nil
}

func pullExport(s *lexer.Stream) (*ExportExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	kw, err := s.PullKeyword(lexer.KwExport)
	if err != nil {
		return nil, err
	}
	target, err := pullExpr(s)
	if err != nil {
		return nil, err
	}
	rb.Commit()
	return &ExportExpr{Target: target, span: kw.Span.Union(target.Span())}, nil
}

func pullImport(s *lexer.Stream) (*ImportExpr, error) {
	rb := s.Begin()
	defer rb.Discard()

	kw, err := s.PullKeyword(lexer.KwImport)
	if err != nil {
		return nil, err
	}
	node := &ImportExpr{}
	if s.DrawOp(lexer.OpMul) {
		node.Wild = true
	} else {
		if _, err := s.PullPunct('{'); err != nil {
			return nil, err
		}
		for !s.PeekPunct('}') {
			s.Tick()
			name, err := s.PullIdent()
			if err != nil {
				return nil, err
			}
			node.Names = append(node.Names, ImportName{Name: name.Ident, Span: name.Span})
			done, err := s.PullSeparator(',', '}')
			if err != nil {
				return nil, err
			}
			if done {
				break
			}
		}
		if _, err := s.PullPunct('}'); err != nil {
			return nil, err
		}
	}
	if _, err := s.PullKeyword(lexer.KwFrom); err != nil {
		return nil, err
	}
	from, err := s.PullStrLit()
	if err != nil {
		return nil, err
	}
	node.From = from.Str
	node.FromSpan = from.Span
	node.span = kw.Span.Union(from.Span)
	rb.Commit()
	return node, nil
}
