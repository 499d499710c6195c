package entity

import (
	"fmt"
	"sort"
	"strings"
)

// ID is a stable index into a Pool. Entities reference each other by
// ID, so the namespace tree carries no pointer cycles.
type ID int32

// NoID marks the absence of an entity
const NoID ID = -1

// Kind classifies an entity
type Kind int

const (
	KindVariable Kind = iota
	KindFunction
	KindType
	KindNamespace
	KindClass
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindFunction:
		return "function"
	case KindType:
		return "type"
	case KindNamespace:
		return "namespace"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// Entity is one declared thing. Exactly one payload group is
// meaningful, selected by kind: variables and functions carry a value
// type, type entities carry the named type, namespaces and classes
// carry children. A class also carries its structural type once
// finalized.
type Entity struct {
	id     ID
	parent ID
	name   string
	kind   Kind

	valType QualType // variable or function type
	named   *Type    // type entity payload

	children  map[string][]ID // namespace children as overload lists
	declOrder []ID            // children in declaration order
	classType *Type           // set by FinalizeClass
}

// ID returns the entity's arena index
func (e *Entity) ID() ID { return e.id }

// Name returns the declared name, empty for anonymous entities
func (e *Entity) Name() string { return e.name }

// Kind returns the entity kind
func (e *Entity) Kind() Kind { return e.kind }

// Parent returns the owning namespace's ID, NoID at the global root
func (e *Entity) Parent() ID { return e.parent }

// IsValue reports whether the entity denotes a runtime value
func (e *Entity) IsValue() bool {
	return e.kind == KindVariable || e.kind == KindFunction
}

// IsType reports whether the entity denotes a type
func (e *Entity) IsType() bool {
	return e.kind == KindType || e.kind == KindClass
}

// IsSpace reports whether the entity can own children
func (e *Entity) IsSpace() bool {
	return e.kind == KindNamespace || e.kind == KindClass
}

// Pool is the arena every entity of one session lives in. Index 0 is
// the global namespace.
type Pool struct {
	entities []*Entity
}

// NewPool creates a pool seeded with the global namespace
func NewPool() *Pool {
	p := &Pool{}
	p.add(&Entity{parent: NoID, kind: KindNamespace, children: map[string][]ID{}})
	return p
}

// Global returns the global namespace's ID
func (p *Pool) Global() ID {
	return 0
}

// Get resolves an ID. NoID resolves to nil.
func (p *Pool) Get(id ID) *Entity {
	if id < 0 || int(id) >= len(p.entities) {
		return nil
	}
	return p.entities[id]
}

func (p *Pool) add(e *Entity) ID {
	e.id = ID(len(p.entities))
	p.entities = append(p.entities, e)
	return e.id
}

func (p *Pool) space(id ID) *Entity {
	e := p.Get(id)
	if e == nil || !e.IsSpace() {
		panic(fmt.Sprintf("entity %d is not a namespace", id))
	}
	return e
}

// NewVariable creates a variable entity under parent. The variable is
// not visible for lookup until pushed into its namespace.
func (p *Pool) NewVariable(parent ID, name string, t QualType) ID {
	return p.add(&Entity{parent: parent, name: name, kind: KindVariable, valType: t})
}

// NewFunction creates a function entity under parent with the given
// signature.
func (p *Pool) NewFunction(parent ID, name string, params []Param, result QualType) ID {
	t := Plain(NewFunType(params, result))
	return p.add(&Entity{parent: parent, name: name, kind: KindFunction, valType: t})
}

// NewTypeEntity creates an entity naming an existing type
func (p *Pool) NewTypeEntity(parent ID, name string, t *Type) ID {
	return p.add(&Entity{parent: parent, name: name, kind: KindType, named: t})
}

// NewNamespace creates a named namespace under parent
func (p *Pool) NewNamespace(parent ID, name string) ID {
	return p.add(&Entity{parent: parent, name: name, kind: KindNamespace, children: map[string][]ID{}})
}

// NewScopeSpace creates an anonymous namespace, used as the backing
// store of a lexical scope. Anonymous namespaces are transparent for
// qualified naming.
func (p *Pool) NewScopeSpace(parent ID) ID {
	return p.add(&Entity{parent: parent, kind: KindNamespace, children: map[string][]ID{}})
}

// NewClass creates a class entity under parent. Its structural type
// does not exist until FinalizeClass is called, after every member has
// been pushed; the member list is not complete during construction.
func (p *Pool) NewClass(parent ID, name string) ID {
	return p.add(&Entity{parent: parent, name: name, kind: KindClass, children: map[string][]ID{}})
}

// FinalizeClass derives the class's structural type from the members
// pushed so far. It must be called exactly once, right after the class
// body has been processed; re-finalizing is an internal defect.
func (p *Pool) FinalizeClass(id ID) *Type {
	e := p.Get(id)
	if e == nil || e.kind != KindClass {
		panic(fmt.Sprintf("entity %d is not a class", id))
	}
	if e.classType != nil {
		panic(fmt.Sprintf("class %s finalized twice", e.name))
	}

	t := &Type{Kind: TypeClass, Class: id, name: p.FullName(id)}
	for _, childID := range e.declOrder {
		child := p.Get(childID)
		switch child.kind {
		case KindVariable:
			t.Fields = append(t.Fields, Param{Name: child.name, Type: child.valType})
		case KindFunction:
			t.Methods = append(t.Methods, Param{Name: child.name, Type: child.valType})
		}
	}

	e.classType = t
	return t
}

// ClassType returns the class's structural type, or nil before
// finalization.
func (p *Pool) ClassType(id ID) *Type {
	e := p.Get(id)
	if e == nil || e.kind != KindClass {
		return nil
	}
	return e.classType
}

// ValueType returns the type an entity has when used as a value:
// a variable's declared type, a function's signature type, a type
// entity's named type, a class's structural type. Namespaces have no
// value type.
func (p *Pool) ValueType(id ID) QualType {
	e := p.Get(id)
	if e == nil {
		return Plain(Unknown)
	}
	switch e.kind {
	case KindVariable, KindFunction:
		return e.valType
	case KindType:
		return Plain(e.named)
	case KindClass:
		if e.classType == nil {
			return Plain(Unknown)
		}
		return Plain(e.classType)
	default:
		return Plain(Unknown)
	}
}

// FullName returns the entity's qualified name, joining named ancestors
// with "::". Anonymous scope spaces are skipped; an anonymous entity
// itself has an empty full name.
func (p *Pool) FullName(id ID) string {
	e := p.Get(id)
	if e == nil || e.name == "" {
		return ""
	}

	parts := []string{e.name}
	for cur := e.parent; cur != NoID; {
		parent := p.Get(cur)
		if parent == nil {
			break
		}
		if parent.name != "" {
			parts = append(parts, parent.name)
		}
		cur = parent.parent
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::")
}

// Push registers child under name in the namespace ns, appending to
// the overload list for that name. Collision checking is the caller's
// concern; Push itself accepts anything.
func (p *Pool) Push(ns ID, name string, child ID) {
	e := p.space(ns)
	e.children[name] = append(e.children[name], child)
	e.declOrder = append(e.declOrder, child)
}

// Lookup finds an entity by name in the namespace ns. A non-nil kind
// restricts matches to that kind. A non-nil params list restricts
// matches to functions whose parameters the given argument types can
// be supplied to (arity and pairwise convertibility); without a params
// list any name and kind match is acceptable.
func (p *Pool) Lookup(ns ID, name string, kind *Kind, params []QualType) (ID, bool) {
	e := p.space(ns)
	for _, id := range e.children[name] {
		cand := p.Get(id)
		if kind != nil && cand.kind != *kind {
			continue
		}
		if params != nil {
			if cand.kind != KindFunction {
				continue
			}
			if !ParamsConvertible(params, cand.valType.T.Params) {
				continue
			}
		}
		return id, true
	}
	return NoID, false
}

// LookupAll returns the full overload list for name in ns
func (p *Pool) LookupAll(ns ID, name string) []ID {
	return p.space(ns).children[name]
}

// HasExactOverload reports whether ns already holds a function named
// name whose parameter types exactly equal params. Declaring another
// is a duplicate, not an overload.
func (p *Pool) HasExactOverload(ns ID, name string, params []Param) bool {
	for _, id := range p.space(ns).children[name] {
		cand := p.Get(id)
		if cand.kind != KindFunction {
			continue
		}
		have := cand.valType.T.Params
		if len(have) != len(params) {
			continue
		}
		same := true
		for i := range have {
			if !have[i].Type.Equal(params[i].Type) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// Names returns the names declared directly in ns, sorted
func (p *Pool) Names(ns ID) []string {
	e := p.space(ns)
	names := make([]string, 0, len(e.children))
	for name := range e.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declared returns the entities declared directly in ns, in
// declaration order.
func (p *Pool) Declared(ns ID) []ID {
	return p.space(ns).declOrder
}

// Member returns the class's member variable with the given name
func (p *Pool) Member(class ID, name string) (ID, bool) {
	kind := KindVariable
	return p.Lookup(class, name, &kind, nil)
}

// MemberFunction returns the class's member function matching name and,
// when args is non-nil, the given argument types.
func (p *Pool) MemberFunction(class ID, name string, args []QualType) (ID, bool) {
	kind := KindFunction
	if args == nil {
		return p.Lookup(class, name, &kind, nil)
	}
	return p.Lookup(class, name, &kind, args)
}

// Len returns the number of entities in the pool
func (p *Pool) Len() int {
	return len(p.entities)
}
