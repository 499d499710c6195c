// Package lexer provides the Vesper token model and the backtracking
// token stream the parser pulls from. Tokens are lexed on demand; the
// stream supports arbitrary lookahead and transactional rollback.
package lexer

import (
	"fmt"
	"strconv"

	"github.com/vesper-lang/vesper/internal/source"
)

// Keyword identifies a reserved word
type Keyword int

const (
	KwFor Keyword = iota
	KwWhile
	KwIn
	KwIf
	KwElse
	KwTry
	KwFun
	KwReturn
	KwBreak
	KwContinue
	KwFrom
	KwStruct
	KwDecl
	KwEnum
	KwExtends
	KwRequired
	KwGet
	KwSet
	KwDepends
	KwNew
	KwConst
	KwLet
	KwUsing
	KwExport
	KwImport
	KwExtern
	KwAs
	KwIs
	KwTypeof
	KwNull
)

var keywordNames = map[Keyword]string{
	KwFor:      "for",
	KwWhile:    "while",
	KwIn:       "in",
	KwIf:       "if",
	KwElse:     "else",
	KwTry:      "try",
	KwFun:      "fun",
	KwReturn:   "return",
	KwBreak:    "break",
	KwContinue: "continue",
	KwFrom:     "from",
	KwStruct:   "struct",
	KwDecl:     "decl",
	KwEnum:     "enum",
	KwExtends:  "extends",
	KwRequired: "required",
	KwGet:      "get",
	KwSet:      "set",
	KwDepends:  "depends",
	KwNew:      "new",
	KwConst:    "const",
	KwLet:      "let",
	KwUsing:    "using",
	KwExport:   "export",
	KwImport:   "import",
	KwExtern:   "extern",
	KwAs:       "as",
	KwIs:       "is",
	KwTypeof:   "typeof",
	KwNull:     "null",
}

// keywordValues is the spelling-to-keyword inverse of keywordNames,
// built once at init so the two can never drift apart.
var keywordValues = make(map[string]Keyword, len(keywordNames))

// String returns the keyword's surface spelling. A keyword without a
// table entry is an internal defect and panics.
func (k Keyword) String() string {
	name, ok := keywordNames[k]
	if !ok {
		panic(fmt.Sprintf("missing string representation of keyword %d", int(k)))
	}
	return name
}

// Assoc is the associativity of a binary operator
type Assoc int

const (
	AssocLeft Assoc = iota
	AssocRight
)

// Op identifies an operator
type Op int

const (
	OpNot Op = iota
	OpMul
	OpDiv
	OpMod
	OpAdd
	OpSub
	OpEq
	OpNeq
	OpLess
	OpLeq
	OpMore
	OpMeq
	OpAnd
	OpOr
	OpModSeq
	OpDivSeq
	OpMulSeq
	OpSubSeq
	OpAddSeq
	OpSeq
	OpArrow
	OpFarrow
	OpBind
	OpScope
)

type opInfo struct {
	name  string
	prec  int
	assoc Assoc
}

var opTable = map[Op]opInfo{
	OpNot:    {"!", 7, AssocRight},
	OpMul:    {"*", 6, AssocLeft},
	OpDiv:    {"/", 6, AssocLeft},
	OpMod:    {"%", 6, AssocLeft},
	OpAdd:    {"+", 5, AssocLeft},
	OpSub:    {"-", 5, AssocLeft},
	OpEq:     {"==", 4, AssocLeft},
	OpNeq:    {"!=", 4, AssocLeft},
	OpLess:   {"<", 4, AssocLeft},
	OpLeq:    {"<=", 4, AssocLeft},
	OpMore:   {">", 4, AssocLeft},
	OpMeq:    {">=", 4, AssocLeft},
	OpAnd:    {"&&", 3, AssocLeft},
	OpOr:     {"||", 2, AssocLeft},
	OpModSeq: {"%=", 1, AssocRight},
	OpDivSeq: {"/=", 1, AssocRight},
	OpMulSeq: {"*=", 1, AssocRight},
	OpSubSeq: {"-=", 1, AssocRight},
	OpAddSeq: {"+=", 1, AssocRight},
	OpSeq:    {"=", 1, AssocRight},
	OpArrow:  {"->", 0, AssocRight},
	OpFarrow: {"=>", 0, AssocRight},
	OpBind:   {"<=>", 0, AssocLeft},
	OpScope:  {"::", 0, AssocLeft},
}

// opValues is the spelling-to-operator inverse of opTable, built at init.
var opValues = make(map[string]Op, len(opTable))

func init() {
	for kw, name := range keywordNames {
		keywordValues[name] = kw
	}
	for op, info := range opTable {
		opValues[info.name] = op
	}
}

func (o Op) info() opInfo {
	info, ok := opTable[o]
	if !ok {
		panic(fmt.Sprintf("missing table entry for operator %d", int(o)))
	}
	return info
}

// String returns the operator's surface spelling. An operator without a
// table entry is an internal defect and panics.
func (o Op) String() string {
	return o.info().name
}

// Prec returns the operator's binding precedence, higher binds tighter
func (o Op) Prec() int {
	return o.info().prec
}

// Assoc returns the operator's associativity
func (o Op) Assoc() Assoc {
	return o.info().assoc
}

// IsUnary returns true for operators usable in prefix position
func (o Op) IsUnary() bool {
	switch o {
	case OpAdd, OpSub, OpNot:
		return true
	default:
		return false
	}
}

// Character classes for the scanner. Identifier characters are defined
// by exclusion: anything not reserved, not an operator character, not
// whitespace, and not NUL.
const (
	invalidIdentChars = ".,;(){}[]@`\\´¨'\""
	opChars           = "=+-/*<>!#?&|%:~^"
	punctChars        = "()[]{}:;,.@"
)

var specialIdents = map[string]bool{
	"this":  true,
	"super": true,
	"root":  true,
}

// IsSpecialIdent reports whether name is one of the reserved scope
// identifiers recognized apart from ordinary identifiers.
func IsSpecialIdent(name string) bool {
	return specialIdents[name]
}

// IsIdent reports whether s is a valid ordinary identifier: non-empty,
// not starting with a digit, built from identifier characters, and not
// a keyword spelling.
func IsIdent(s string) bool {
	if len(s) == 0 {
		return false
	}
	if isDigit(s[0]) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentCh(s[i]) {
			return false
		}
	}
	_, isKw := keywordValues[s]
	return !isKw
}

func isIdentCh(ch byte) bool {
	return indexByte(invalidIdentChars, ch) < 0 &&
		indexByte(opChars, ch) < 0 &&
		!isSpace(ch) &&
		ch != 0
}

func isOpCh(ch byte) bool {
	return indexByte(opChars, ch) >= 0
}

func isPunctCh(ch byte) bool {
	return indexByte(punctChars, ch) >= 0
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func indexByte(s string, ch byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ch {
			return i
		}
	}
	return -1
}

// TokenKind tags the payload carried by a Token
type TokenKind int

const (
	KindKeyword TokenKind = iota
	KindIdent
	KindOp
	KindPunct
	KindVoid
	KindBool
	KindInt
	KindFloat
	KindString
)

// String returns the kind name
func (k TokenKind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindIdent:
		return "identifier"
	case KindOp:
		return "op"
	case KindPunct:
		return "punct"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Token is one lexed token. Kind selects which payload field is
// meaningful; Span covers the consumed source text.
type Token struct {
	Kind  TokenKind
	Kw    Keyword
	Op    Op
	Punct byte
	Ident string
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Span  source.Span
}

// IsLit reports whether the token is a literal of any kind
func (t Token) IsLit() bool {
	switch t.Kind {
	case KindVoid, KindBool, KindInt, KindFloat, KindString:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether the token is the given keyword
func (t Token) IsKeyword(kw Keyword) bool {
	return t.Kind == KindKeyword && t.Kw == kw
}

// IsOp reports whether the token is the given operator
func (t Token) IsOp(op Op) bool {
	return t.Kind == KindOp && t.Op == op
}

// IsPunct reports whether the token is the given punctuation character
func (t Token) IsPunct(ch byte) bool {
	return t.Kind == KindPunct && t.Punct == ch
}

// String returns the token's surface spelling
func (t Token) String() string {
	switch t.Kind {
	case KindKeyword:
		return t.Kw.String()
	case KindIdent:
		return t.Ident
	case KindOp:
		return t.Op.String()
	case KindPunct:
		return string(t.Punct)
	case KindVoid:
		return "void"
	case KindBool:
		return strconv.FormatBool(t.Bool)
	case KindInt:
		return strconv.FormatInt(t.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(t.Float, 'g', -1, 64)
	case KindString:
		return t.Str
	default:
		return "<invalid token>"
	}
}

// DebugString returns the token in kind(payload) form for dumps
func (t Token) DebugString() string {
	switch t.Kind {
	case KindKeyword:
		return fmt.Sprintf("keyword(%s)", t.Kw)
	case KindIdent:
		return fmt.Sprintf("identifier(%q)", t.Ident)
	case KindOp:
		return fmt.Sprintf("op(%s)", t.Op)
	case KindPunct:
		return fmt.Sprintf("punct('%c')", t.Punct)
	case KindVoid:
		return "void"
	case KindBool:
		return fmt.Sprintf("bool(%t)", t.Bool)
	case KindInt:
		return fmt.Sprintf("int(%d)", t.Int)
	case KindFloat:
		return fmt.Sprintf("float(%g)", t.Float)
	case KindString:
		return fmt.Sprintf("string(%q)", t.Str)
	default:
		return "<invalid token>"
	}
}
