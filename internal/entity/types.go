// Package entity provides the Vesper type and entity model: primitive
// and structural types, qualified type references, and an arena of
// declared entities (variables, functions, types, namespaces, classes)
// addressed by stable indices. Namespaces form a tree rooted at the
// global namespace; overloaded functions share a name within one
// namespace.
package entity

import (
	"fmt"
	"strings"
)

// TypeKind tags a type
type TypeKind int

const (
	TypeUnknown TypeKind = iota
	TypeVoid
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeFun
	TypeClass
)

// Param is one function parameter or class member slot
type Param struct {
	Name string
	Type QualType
}

// Type is a closed tagged variant. Primitives are the package-level
// singletons; function and class types carry their structure.
type Type struct {
	Kind TypeKind

	// Function types
	Params []Param
	Result QualType

	// Class types, derived by Pool.FinalizeClass
	Class   ID
	Fields  []Param
	Methods []Param
	name    string
}

// Primitive type singletons. Unknown is the non-fatal inference
// failure sentinel; checking continues with it so later diagnostics
// are still found.
var (
	Unknown = &Type{Kind: TypeUnknown}
	Void    = &Type{Kind: TypeVoid}
	Bool    = &Type{Kind: TypeBool}
	Int     = &Type{Kind: TypeInt}
	Float   = &Type{Kind: TypeFloat}
	String  = &Type{Kind: TypeString}
)

// NewFunType builds a function type
func NewFunType(params []Param, result QualType) *Type {
	return &Type{Kind: TypeFun, Params: params, Result: result}
}

// String returns the type's surface notation
func (t *Type) String() string {
	if t == nil {
		return "unknown"
	}
	switch t.Kind {
	case TypeUnknown:
		return "unknown"
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeFun:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.Type.String()
		}
		return fmt.Sprintf("fun(%s) -> %s", strings.Join(parts, ", "), t.Result)
	case TypeClass:
		if t.name != "" {
			return t.name
		}
		return "<anonymous class>"
	default:
		panic(fmt.Sprintf("missing string representation of type kind %d", int(t.Kind)))
	}
}

// QualType is a type reference plus qualifiers. The qualifiers affect
// how a value may be used, not the type's identity.
type QualType struct {
	T     *Type
	Const bool
	Ref   bool
}

// Plain wraps a type with no qualifiers
func Plain(t *Type) QualType {
	return QualType{T: t}
}

// ConstOf wraps a type as const
func ConstOf(t *Type) QualType {
	return QualType{T: t, Const: true}
}

// IsUnknown reports whether the referenced type is the unknown sentinel
func (q QualType) IsUnknown() bool {
	return q.T == nil || q.T.Kind == TypeUnknown
}

// IsVoid reports whether the referenced type is void
func (q QualType) IsVoid() bool {
	return q.T != nil && q.T.Kind == TypeVoid
}

// String returns the qualified type's surface notation
func (q QualType) String() string {
	var b strings.Builder
	if q.Const {
		b.WriteString("const ")
	}
	if q.Ref {
		b.WriteString("ref ")
	}
	b.WriteString(q.T.String())
	return b.String()
}

// Equal reports exact type identity including qualifiers. Overload
// signature uniqueness is checked with this, not with convertibility.
func (q QualType) Equal(other QualType) bool {
	return q.Const == other.Const && q.Ref == other.Ref && typesEqual(q.T, other.T)
}

func typesEqual(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case TypeFun:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !a.Params[i].Type.Equal(b.Params[i].Type) {
				return false
			}
		}
		return a.Result.Equal(b.Result)
	case TypeClass:
		return a.Class == b.Class
	default:
		return true
	}
}

// ConvertibleTo reports whether a value of this type may be supplied
// where to is expected. Unknown converts to and from everything so
// degraded checking keeps going; a const value may not bind to a
// non-const reference.
func (q QualType) ConvertibleTo(to QualType) bool {
	if q.IsUnknown() || to.IsUnknown() {
		return true
	}
	if !typesCompatible(q.T, to.T) {
		return false
	}
	if to.Ref && !to.Const && q.Const {
		return false
	}
	return true
}

func typesCompatible(a, b *Type) bool {
	if a == nil || b == nil || a.Kind == TypeUnknown || b.Kind == TypeUnknown {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case TypeFun:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !typesCompatible(a.Params[i].Type.T, b.Params[i].Type.T) {
				return false
			}
		}
		return typesCompatible(a.Result.T, b.Result.T)
	case TypeClass:
		return a.Class == b.Class
	default:
		return true
	}
}

// ParamsConvertible reports whether the argument types can be supplied
// to a function with the given parameters: arity must match and each
// argument must be pairwise convertible.
func ParamsConvertible(args []QualType, params []Param) bool {
	if len(args) != len(params) {
		return false
	}
	for i, arg := range args {
		if !arg.ConvertibleTo(params[i].Type) {
			return false
		}
	}
	return true
}
