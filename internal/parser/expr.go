// Package parser implements the Vesper recursive descent parser and
// type checker. Every grammar rule pulls tokens inside a rollback
// frame and either commits or restores the stream, so rules compose
// freely under speculation; semantic checking then resolves names
// against the session's entity pool.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vesper-lang/vesper/internal/entity"
	"github.com/vesper-lang/vesper/internal/lexer"
	"github.com/vesper-lang/vesper/internal/source"
)

// Expr is one node of the abstract syntax tree. Typecheck resolves
// names and computes the node's type, reporting semantic diagnostics
// through the unit. DebugFmt renders the node structurally for dumps.
type Expr interface {
	Span() source.Span
	Typecheck(u *UnitParser) entity.QualType
	DebugFmt(indent int) string
}

// debugPrint accumulates the structural dump of one node. Members
// print one per line, nested nodes indented one level deeper.
type debugPrint struct {
	b      strings.Builder
	indent int
}

func newDebugPrint(name string, indent int) *debugPrint {
	d := &debugPrint{indent: indent}
	d.b.WriteString(name)
	return d
}

func (d *debugPrint) writePad(levels int) {
	for i := 0; i < levels*2; i++ {
		d.b.WriteByte(' ')
	}
}

func (d *debugPrint) member(name string, value interface{}) *debugPrint {
	d.b.WriteByte('\n')
	d.writePad(d.indent + 1)
	d.b.WriteString(name)
	d.b.WriteString(": ")
	switch v := value.(type) {
	case nil:
		d.b.WriteString("<none>")
	case Expr:
		if v == nil {
			d.b.WriteString("<none>")
			break
		}
		d.b.WriteString(v.DebugFmt(d.indent + 1))
	case []Expr:
		if len(v) == 0 {
			d.b.WriteString("[]")
			break
		}
		d.b.WriteString("[")
		for _, item := range v {
			d.b.WriteByte('\n')
			d.writePad(d.indent + 2)
			d.b.WriteString(item.DebugFmt(d.indent + 2))
		}
		d.b.WriteByte('\n')
		d.writePad(d.indent + 1)
		d.b.WriteString("]")
	case lexer.Token:
		d.b.WriteString(v.DebugString())
	case lexer.Op:
		d.b.WriteString(strconv.Quote(v.String()))
	case string:
		d.b.WriteString(strconv.Quote(v))
	default:
		fmt.Fprintf(&d.b, "%v", v)
	}
	return d
}

func (d *debugPrint) String() string {
	return d.b.String()
}

// LitExpr is a literal token used as an expression. The null keyword
// lands here as well and checks to the unknown type.
type LitExpr struct {
	Tok  lexer.Token
	span source.Span
}

func (e *LitExpr) Span() source.Span { return e.span }

func (e *LitExpr) DebugFmt(indent int) string {
	return newDebugPrint("LitExpr", indent).
		member("value", e.Tok).
		String()
}

// IdentExpr is a possibly scoped name such as x or Foo::bar. The
// first part may be one of the reserved scope identifiers this, super
// and root, which anchor the rest of the path.
type IdentExpr struct {
	Parts []string
	span  source.Span
	ent   entity.ID
}

func (e *IdentExpr) Span() source.Span { return e.span }

// Name returns the full spelled path
func (e *IdentExpr) Name() string {
	return strings.Join(e.Parts, "::")
}

// Entity returns the entity this name resolved to, or NoID before
// type checking or after a failed resolution.
func (e *IdentExpr) Entity() entity.ID { return e.ent }

func (e *IdentExpr) DebugFmt(indent int) string {
	return newDebugPrint("IdentExpr", indent).
		member("name", e.Name()).
		String()
}

// UnOpExpr applies a prefix operator to its operand
type UnOpExpr struct {
	Op    lexer.Op
	Value Expr
	span  source.Span
}

func (e *UnOpExpr) Span() source.Span { return e.span }

func (e *UnOpExpr) DebugFmt(indent int) string {
	return newDebugPrint("UnOpExpr", indent).
		member("op", e.Op).
		member("value", e.Value).
		String()
}

// BinOpExpr applies an infix operator to two operands
type BinOpExpr struct {
	Op   lexer.Op
	Lhs  Expr
	Rhs  Expr
	span source.Span
}

func (e *BinOpExpr) Span() source.Span { return e.span }

func (e *BinOpExpr) DebugFmt(indent int) string {
	return newDebugPrint("BinOpExpr", indent).
		member("op", e.Op).
		member("lhs", e.Lhs).
		member("rhs", e.Rhs).
		String()
}

// CallExpr invokes a callable target with arguments
type CallExpr struct {
	Target Expr
	Args   []Expr
	span   source.Span
}

func (e *CallExpr) Span() source.Span { return e.span }

func (e *CallExpr) DebugFmt(indent int) string {
	return newDebugPrint("CallExpr", indent).
		member("target", e.Target).
		member("args", e.Args).
		String()
}

// ListExpr is a sequence of statements joined by the terminator rule
type ListExpr struct {
	Exprs []Expr
	span  source.Span
}

func (e *ListExpr) Span() source.Span { return e.span }

func (e *ListExpr) DebugFmt(indent int) string {
	return newDebugPrint("ListExpr", indent).
		member("exprs", e.Exprs).
		String()
}

// BlockExpr is a braced statement list with its own scope
type BlockExpr struct {
	Body *ListExpr
	span source.Span
}

func (e *BlockExpr) Span() source.Span { return e.span }

func (e *BlockExpr) DebugFmt(indent int) string {
	return newDebugPrint("BlockExpr", indent).
		member("body", e.Body).
		String()
}

// IfExpr is a conditional with an optional else branch. Else holds
// either another IfExpr for an else-if chain or a BlockExpr, and is
// nil when absent.
type IfExpr struct {
	Cond Expr
	Then *BlockExpr
	Else Expr
	span source.Span
}

func (e *IfExpr) Span() source.Span { return e.span }

func (e *IfExpr) DebugFmt(indent int) string {
	return newDebugPrint("IfExpr", indent).
		member("cond", e.Cond).
		member("then", e.Then).
		member("else", e.Else).
		String()
}

// ReturnExpr returns an optional value, with an optional target label
// named after the from keyword. The value may only be omitted right
// before a statement terminator.
type ReturnExpr struct {
	Value Expr
	From  string
	span  source.Span
}

func (e *ReturnExpr) Span() source.Span { return e.span }

func (e *ReturnExpr) DebugFmt(indent int) string {
	d := newDebugPrint("ReturnExpr", indent)
	d.member("value", e.Value)
	if e.From == "" {
		d.member("from", nil)
	} else {
		d.member("from", e.From)
	}
	return d.String()
}

// TypeRef is a type annotation as written: an optional const
// qualifier and the named type's path. It is not itself an
// expression node.
type TypeRef struct {
	Const bool
	Parts []string
	span  source.Span
}

// String returns the annotation as written
func (t *TypeRef) String() string {
	name := strings.Join(t.Parts, "::")
	if t.Const {
		return "const " + name
	}
	return name
}

// VarDeclExpr declares a variable with an optional type annotation
// and an optional initializer.
type VarDeclExpr struct {
	Const bool
	Name  string
	Type  *TypeRef
	Init  Expr
	span  source.Span
	ent   entity.ID
}

func (e *VarDeclExpr) Span() source.Span { return e.span }

// Entity returns the declared variable entity, or NoID before type
// checking or when the declaration collided.
func (e *VarDeclExpr) Entity() entity.ID { return e.ent }

func (e *VarDeclExpr) DebugFmt(indent int) string {
	d := newDebugPrint("VarDeclExpr", indent)
	d.member("const", e.Const)
	d.member("name", e.Name)
	if e.Type == nil {
		d.member("type", nil)
	} else {
		d.member("type", e.Type.String())
	}
	d.member("init", e.Init)
	return d.String()
}

// ParamDecl is one function parameter
type ParamDecl struct {
	Name string
	Type *TypeRef
	span source.Span
}

// FunDeclExpr declares a function. Ret is nil when the return type is
// omitted, which means void.
type FunDeclExpr struct {
	Name   string
	Params []ParamDecl
	Ret    *TypeRef
	Body   *BlockExpr
	span   source.Span
	ent    entity.ID

	params []entity.Param
	result entity.QualType
}

func (e *FunDeclExpr) Span() source.Span { return e.span }

// Entity returns the declared function entity, or NoID before type
// checking or when the declaration collided.
func (e *FunDeclExpr) Entity() entity.ID { return e.ent }

func (e *FunDeclExpr) signature() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range e.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(p.Type.String())
	}
	b.WriteByte(')')
	if e.Ret != nil {
		b.WriteString(" -> ")
		b.WriteString(e.Ret.String())
	}
	return b.String()
}

func (e *FunDeclExpr) DebugFmt(indent int) string {
	return newDebugPrint("FunDeclExpr", indent).
		member("name", e.Name).
		member("signature", e.signature()).
		member("body", e.Body).
		String()
}

// FieldDecl is one struct field
type FieldDecl struct {
	Name string
	Type *TypeRef
	span source.Span
}

// StructDeclExpr declares a class with fields and member functions
type StructDeclExpr struct {
	Name    string
	Fields  []FieldDecl
	Methods []*FunDeclExpr
	span    source.Span
	ent     entity.ID
}

func (e *StructDeclExpr) Span() source.Span { return e.span }

// Entity returns the declared class entity, or NoID before type
// checking or when the declaration collided.
func (e *StructDeclExpr) Entity() entity.ID { return e.ent }

func (e *StructDeclExpr) DebugFmt(indent int) string {
	fields := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = f.Name + ": " + f.Type.String()
	}
	methods := make([]Expr, len(e.Methods))
	for i, m := range e.Methods {
		methods[i] = m
	}
	return newDebugPrint("StructDeclExpr", indent).
		member("name", e.Name).
		member("fields", strings.Join(fields, "; ")).
		member("methods", methods).
		String()
}

// AttrExpr is an attribute marker with an optional argument
type AttrExpr struct {
	Name  *IdentExpr
	Value Expr
	span  source.Span
}

func (e *AttrExpr) Span() source.Span { return e.span }

func (e *AttrExpr) DebugFmt(indent int) string {
	return newDebugPrint("AttrExpr", indent).
		member("attribute", e.Name.Name()).
		member("value", e.Value).
		String()
}

// DebugExpr is the @!debug("...") directive
type DebugExpr struct {
	Option string
	span   source.Span
}

func (e *DebugExpr) Span() source.Span { return e.span }

func (e *DebugExpr) DebugFmt(indent int) string {
	return newDebugPrint("DebugExpr", indent).
		member("option", e.Option).
		String()
}

// ExportExpr registers the wrapped declaration in the unit's export
// table.
type ExportExpr struct {
	Target Expr
	span   source.Span
}

func (e *ExportExpr) Span() source.Span { return e.span }

func (e *ExportExpr) DebugFmt(indent int) string {
	return newDebugPrint("ExportExpr", indent).
		member("target", e.Target).
		String()
}

// ImportName is one requested name in an import list
type ImportName struct {
	Name string
	Span source.Span
}

// ImportExpr brings exported entities of another unit into the
// current scope, either by name or all of them with a wildcard.
type ImportExpr struct {
	Wild     bool
	Names    []ImportName
	From     string
	FromSpan source.Span
	span     source.Span
}

func (e *ImportExpr) Span() source.Span { return e.span }

func (e *ImportExpr) DebugFmt(indent int) string {
	names := make([]string, len(e.Names))
	for i, n := range e.Names {
		names[i] = n.Name
	}
	return newDebugPrint("ImportExpr", indent).
		member("wildcard", e.Wild).
		member("names", strings.Join(names, ", ")).
		member("from", e.From).
		String()
}

// AST is the root statement list of one source unit
type AST struct {
	Exprs []Expr
	span  source.Span
}

func (a *AST) Span() source.Span { return a.span }

func (a *AST) DebugFmt(indent int) string {
	return newDebugPrint("AST", indent).
		member("exprs", a.Exprs).
		String()
}
