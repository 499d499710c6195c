package parser

import (
	"strings"

	"github.com/vesper-lang/vesper/internal/entity"
	"github.com/vesper-lang/vesper/internal/lexer"
)

func unknown() entity.QualType {
	return entity.Plain(entity.Unknown)
}

// isNumeric reports whether q is an arithmetic operand. Unknown
// passes so one resolution failure does not cascade.
func isNumeric(q entity.QualType) bool {
	return q.IsUnknown() || q.T == entity.Int || q.T == entity.Float
}

func formatArgs(args []entity.QualType) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// entityOf returns the entity a node declares or names, for export
// registration. Value expressions have none.
func entityOf(e Expr) entity.ID {
	switch v := e.(type) {
	case *IdentExpr:
		return v.ent
	case *VarDeclExpr:
		return v.ent
	case *FunDeclExpr:
		return v.ent
	case *StructDeclExpr:
		return v.ent
	case *ExportExpr:
		return entityOf(v.Target)
	default:
		return entity.NoID
	}
}

func (e *LitExpr) Typecheck(u *UnitParser) entity.QualType {
	switch e.Tok.Kind {
	case lexer.KindVoid:
		return entity.Plain(entity.Void)
	case lexer.KindBool:
		return entity.Plain(entity.Bool)
	case lexer.KindInt:
		return entity.Plain(entity.Int)
	case lexer.KindFloat:
		return entity.Plain(entity.Float)
	case lexer.KindString:
		return entity.Plain(entity.String)
	default:
		// null has no type of its own yet
		return unknown()
	}
}

func (e *IdentExpr) Typecheck(u *UnitParser) entity.QualType {
	if e.Parts[0] == "this" && len(e.Parts) == 1 {
		class := u.enclosingClass()
		if class == entity.NoID {
			u.Errorf(e.span, "Cannot use 'this' outside of a class")
			return unknown()
		}
		t := u.pool.ClassType(class)
		if t == nil {
			return unknown()
		}
		return entity.Plain(t)
	}
	id, ok := u.resolvePath(e.Parts, e.span, nil)
	if !ok {
		return unknown()
	}
	e.ent = id
	return u.pool.ValueType(id)
}

func (e *UnOpExpr) Typecheck(u *UnitParser) entity.QualType {
	val := e.Value.Typecheck(u)
	switch e.Op {
	case lexer.OpNot:
		if !val.ConvertibleTo(entity.Plain(entity.Bool)) {
			u.Errorf(e.span, "Invalid operand of type %s for operator '%s'", val, e.Op)
			return unknown()
		}
		return entity.Plain(entity.Bool)
	default:
		if val.IsUnknown() {
			return unknown()
		}
		if !isNumeric(val) {
			u.Errorf(e.span, "Invalid operand of type %s for operator '%s'", val, e.Op)
			return unknown()
		}
		return entity.Plain(val.T)
	}
}

func (e *BinOpExpr) Typecheck(u *UnitParser) entity.QualType {
	lhs := e.Lhs.Typecheck(u)
	rhs := e.Rhs.Typecheck(u)
	switch e.Op {
	case lexer.OpSeq, lexer.OpAddSeq, lexer.OpSubSeq, lexer.OpMulSeq, lexer.OpDivSeq, lexer.OpModSeq:
		return u.checkAssign(e, lhs, rhs)
	case lexer.OpAdd, lexer.OpSub, lexer.OpMul, lexer.OpDiv, lexer.OpMod:
		return u.checkArith(e, lhs, rhs)
	case lexer.OpEq, lexer.OpNeq, lexer.OpLess, lexer.OpLeq, lexer.OpMore, lexer.OpMeq:
		return u.checkCompare(e, lhs, rhs)
	case lexer.OpAnd, lexer.OpOr:
		return u.checkLogic(e, lhs, rhs)
	default:
		u.Errorf(e.span, "Operator '%s' cannot be used in an expression", e.Op)
		return unknown()
	}
}

func (u *UnitParser) checkAssign(e *BinOpExpr, lhs, rhs entity.QualType) entity.QualType {
	if lhs.Const {
		u.Errorf(e.span, "Cannot assign to a const value")
		return unknown()
	}
	if !rhs.ConvertibleTo(lhs) {
		u.Errorf(e.span, "Cannot assign a value of type %s to a target of type %s", rhs, lhs)
		return unknown()
	}
	if e.Op != lexer.OpSeq && !lhs.IsUnknown() {
		concat := e.Op == lexer.OpAddSeq && lhs.T == entity.String
		if !isNumeric(lhs) && !concat {
			u.Errorf(e.span, "Invalid operands of type %s and %s for operator '%s'", lhs, rhs, e.Op)
			return unknown()
		}
	}
	return lhs
}

func (u *UnitParser) checkArith(e *BinOpExpr, lhs, rhs entity.QualType) entity.QualType {
	if lhs.IsUnknown() || rhs.IsUnknown() {
		return unknown()
	}
	if e.Op == lexer.OpAdd && lhs.T == entity.String && rhs.T == entity.String {
		return entity.Plain(entity.String)
	}
	if isNumeric(lhs) && isNumeric(rhs) && lhs.T == rhs.T {
		return entity.Plain(lhs.T)
	}
	u.Errorf(e.span, "Invalid operands of type %s and %s for operator '%s'", lhs, rhs, e.Op)
	return unknown()
}

func (u *UnitParser) checkCompare(e *BinOpExpr, lhs, rhs entity.QualType) entity.QualType {
	if lhs.IsUnknown() || rhs.IsUnknown() {
		return entity.Plain(entity.Bool)
	}
	if !lhs.ConvertibleTo(rhs) && !rhs.ConvertibleTo(lhs) {
		u.Errorf(e.span, "Invalid operands of type %s and %s for operator '%s'", lhs, rhs, e.Op)
		return unknown()
	}
	return entity.Plain(entity.Bool)
}

func (u *UnitParser) checkLogic(e *BinOpExpr, lhs, rhs entity.QualType) entity.QualType {
	boolT := entity.Plain(entity.Bool)
	if !lhs.ConvertibleTo(boolT) || !rhs.ConvertibleTo(boolT) {
		u.Errorf(e.span, "Invalid operands of type %s and %s for operator '%s'", lhs, rhs, e.Op)
		return unknown()
	}
	return boolT
}

func (e *CallExpr) Typecheck(u *UnitParser) entity.QualType {
	args := make([]entity.QualType, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.Typecheck(u)
	}

	bareThis := func(i *IdentExpr) bool { return len(i.Parts) == 1 && i.Parts[0] == "this" }
	if ident, ok := e.Target.(*IdentExpr); ok && !bareThis(ident) {
		id, ok := u.resolvePath(ident.Parts, ident.span, args)
		if !ok {
			return unknown()
		}
		ident.ent = id
		if u.pool.Get(id).Kind() == entity.KindFunction {
			return u.pool.ValueType(id).T.Result
		}
		return u.checkCallable(e, u.pool.ValueType(id), args)
	}

	return u.checkCallable(e, e.Target.Typecheck(u), args)
}

func (u *UnitParser) checkCallable(e *CallExpr, t entity.QualType, args []entity.QualType) entity.QualType {
	if t.IsUnknown() {
		return unknown()
	}
	if t.T.Kind != entity.TypeFun {
		u.Errorf(e.span, "Cannot call a value of type %s", t)
		return unknown()
	}
	if !entity.ParamsConvertible(args, t.T.Params) {
		u.Errorf(e.span, "Cannot call %s with arguments (%s)", t, formatArgs(args))
		return unknown()
	}
	return t.T.Result
}

func (e *ListExpr) Typecheck(u *UnitParser) entity.QualType {
	for _, expr := range e.Exprs {
		expr.Typecheck(u)
	}
	return entity.Plain(entity.Void)
}

func (e *BlockExpr) Typecheck(u *UnitParser) entity.QualType {
	u.PushScope()
	e.Body.Typecheck(u)
	u.PopScope()
	return entity.Plain(entity.Void)
}

func (e *IfExpr) Typecheck(u *UnitParser) entity.QualType {
	cond := e.Cond.Typecheck(u)
	if !cond.ConvertibleTo(entity.Plain(entity.Bool)) {
		u.Errorf(e.Cond.Span(), "Condition must be a bool, got %s", cond)
	}
	e.Then.Typecheck(u)
	if e.Else != nil {
		e.Else.Typecheck(u)
	}
	return entity.Plain(entity.Void)
}

func (e *ReturnExpr) Typecheck(u *UnitParser) entity.QualType {
	if e.Value != nil {
		return e.Value.Typecheck(u)
	}
	return entity.Plain(entity.Void)
}

func (e *VarDeclExpr) Typecheck(u *UnitParser) entity.QualType {
	declared := unknown()
	if e.Type != nil {
		declared = u.resolveTypeRef(e.Type)
	}
	if e.Init != nil {
		init := e.Init.Typecheck(u)
		if e.Type == nil {
			declared = entity.Plain(init.T)
		} else if !init.ConvertibleTo(declared) {
			u.Errorf(e.span, "Cannot initialize a variable of type %s with a value of type %s", declared, init)
		}
	}
	if e.Const {
		declared.Const = true
	}
	if !u.checkCollision(e.Name, e.span) {
		return declared
	}
	e.ent = u.pool.NewVariable(u.CurrentSpace(), e.Name, declared)
	u.pool.Push(u.CurrentSpace(), e.Name, e.ent)
	return declared
}

// declare resolves the signature and registers the function entity in
// the current scope, so the name is visible to its own body and to
// sibling declarations before any body is checked.
func (e *FunDeclExpr) declare(u *UnitParser) {
	e.params = make([]entity.Param, len(e.Params))
	for i, p := range e.Params {
		e.params[i] = entity.Param{Name: p.Name, Type: u.resolveTypeRef(p.Type)}
	}
	e.result = entity.Plain(entity.Void)
	if e.Ret != nil {
		e.result = u.resolveTypeRef(e.Ret)
	}

	space := u.CurrentSpace()
	for _, id := range u.pool.LookupAll(space, e.Name) {
		if u.pool.Get(id).Kind() != entity.KindFunction {
			u.Errorf(e.span, "Entity %q already exists in this scope", e.Name)
			return
		}
	}
	if u.pool.HasExactOverload(space, e.Name, e.params) {
		u.Errorf(e.span, "Function %q with an identical signature already exists in this scope", e.Name)
		return
	}
	e.ent = u.pool.NewFunction(space, e.Name, e.params, e.result)
	u.pool.Push(space, e.Name, e.ent)
}

// checkBody checks the function body with the parameters in scope.
// The body block opens a nested scope of its own, so locals may
// shadow parameters.
func (e *FunDeclExpr) checkBody(u *UnitParser) {
	u.PushScope()
	for i, p := range e.Params {
		if u.checkCollision(p.Name, p.span) {
			id := u.pool.NewVariable(u.CurrentSpace(), p.Name, e.params[i].Type)
			u.pool.Push(u.CurrentSpace(), p.Name, id)
		}
	}
	e.Body.Typecheck(u)
	u.PopScope()
}

func (e *FunDeclExpr) Typecheck(u *UnitParser) entity.QualType {
	e.declare(u)
	e.checkBody(u)
	return entity.Plain(entity.NewFunType(e.params, e.result))
}

func (e *StructDeclExpr) Typecheck(u *UnitParser) entity.QualType {
	if !u.checkCollision(e.Name, e.span) {
		return unknown()
	}
	e.ent = u.pool.NewClass(u.CurrentSpace(), e.Name)
	u.pool.Push(u.CurrentSpace(), e.Name, e.ent)

	// members register under the class itself; the structural type is
	// derived once the member list is complete, and only then are the
	// method bodies checked so this sees the finished type
	u.pushSpace(e.ent)
	for _, f := range e.Fields {
		t := u.resolveTypeRef(f.Type)
		if u.checkCollision(f.Name, f.span) {
			id := u.pool.NewVariable(e.ent, f.Name, t)
			u.pool.Push(e.ent, f.Name, id)
		}
	}
	for _, m := range e.Methods {
		m.declare(u)
	}
	u.pool.FinalizeClass(e.ent)
	for _, m := range e.Methods {
		m.checkBody(u)
	}
	u.PopScope()

	return entity.Plain(u.pool.ClassType(e.ent))
}

func (e *AttrExpr) Typecheck(u *UnitParser) entity.QualType {
	if e.Value != nil {
		e.Value.Typecheck(u)
	}
	return entity.Plain(entity.Void)
}

func (e *DebugExpr) Typecheck(u *UnitParser) entity.QualType {
	switch e.Option {
	case "entities":
		u.Logf(e.span, "== Start of Scope Dump ==\n%s== End of Scope Dump ==", u.dumpScopes())
	default:
		u.Errorf(e.span, "Invalid debug option %q, valid are: \"entities\"", e.Option)
	}
	return entity.Plain(entity.Void)
}

func (e *ExportExpr) Typecheck(u *UnitParser) entity.QualType {
	t := e.Target.Typecheck(u)
	id := entityOf(e.Target)
	if id == entity.NoID {
		u.Errorf(e.span, "Only declarations are exportable")
		if !u.IsRootScope() {
			u.Errorf(e.span, "Export statements may only appear at top-level")
		}
		return unknown()
	}
	if !u.IsRootScope() {
		u.Errorf(e.span, "Export statements may only appear at top-level")
		return t
	}
	u.addExport(e.span, id)
	return t
}

func (e *ImportExpr) Typecheck(u *UnitParser) entity.QualType {
	u.importUnit(e)
	return entity.Plain(entity.Void)
}

func (a *AST) Typecheck(u *UnitParser) entity.QualType {
	for _, e := range a.Exprs {
		e.Typecheck(u)
	}
	return entity.Plain(entity.Void)
}
