package parser

import (
	"fmt"
	"strings"

	"github.com/vesper-lang/vesper/internal/diag"
	"github.com/vesper-lang/vesper/internal/entity"
	"github.com/vesper-lang/vesper/internal/lexer"
	"github.com/vesper-lang/vesper/internal/source"
)

// ExportTable records the entities a unit exposes, in export order
type ExportTable struct {
	names  []string
	byName map[string]entity.ID
}

func newExportTable() *ExportTable {
	return &ExportTable{byName: make(map[string]entity.ID)}
}

// Add registers name unless it was exported before
func (t *ExportTable) Add(name string, id entity.ID) bool {
	if _, dup := t.byName[name]; dup {
		return false
	}
	t.byName[name] = id
	t.names = append(t.names, name)
	return true
}

// Get returns the entity exported under name
func (t *ExportTable) Get(name string) (entity.ID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Names returns the exported names in export order
func (t *ExportTable) Names() []string {
	return t.names
}

// Len returns the number of exported names
func (t *ExportTable) Len() int {
	return len(t.names)
}

// UnitParser owns the parse of one source unit: its token stream, its
// scope stack and its export table. The entity pool, the diagnostic
// sink and the unit cache live in the session shared across units, so
// entities keep their identity when imported elsewhere.
type UnitParser struct {
	shared *SharedState
	file   *source.File
	stream *lexer.Stream
	sink   *diag.Sink
	pool   *entity.Pool

	ast     *AST
	scopes  []entity.ID
	exports *ExportTable
	chain   []string
	failed  bool
}

func newUnitParser(shared *SharedState, file *source.File, chain []string) *UnitParser {
	root := shared.pool.NewScopeSpace(shared.pool.Global())
	return &UnitParser{
		shared:  shared,
		file:    file,
		stream:  lexer.NewStream(file, shared.sink),
		sink:    shared.sink,
		pool:    shared.pool,
		scopes:  []entity.ID{root},
		exports: newExportTable(),
		chain:   chain,
	}
}

// parse pulls the whole unit and type checks it. A parse failure is
// terminal for the unit: the failure that bubbled up through the
// rollback frames is reported to the sink and no AST is kept.
func (u *UnitParser) parse() {
	ast, err := pullAST(u.stream)
	if err != nil {
		u.failed = true
		if de, ok := err.(*diag.Error); ok {
			u.sink.Report(de)
		} else {
			u.sink.Errorf(source.Span{}, "%s", err)
		}
		return
	}
	u.ast = ast
	ast.Typecheck(u)
}

// File returns the unit's source file
func (u *UnitParser) File() *source.File { return u.file }

// AST returns the unit's parsed tree, or nil when parsing failed
func (u *UnitParser) AST() *AST { return u.ast }

// Exports returns the unit's export table
func (u *UnitParser) Exports() *ExportTable { return u.exports }

// Failed reports whether the unit had a terminal parse failure
func (u *UnitParser) Failed() bool { return u.failed }

// Errorf reports a semantic error against the unit's sink
func (u *UnitParser) Errorf(span source.Span, format string, args ...interface{}) {
	u.sink.Errorf(span, format, args...)
}

// Warningf reports a warning against the unit's sink
func (u *UnitParser) Warningf(span source.Span, format string, args ...interface{}) {
	u.sink.Warningf(span, format, args...)
}

// Logf reports a log message against the unit's sink
func (u *UnitParser) Logf(span source.Span, format string, args ...interface{}) {
	u.sink.Logf(span, format, args...)
}

// PushScope opens a fresh anonymous scope under the current one
func (u *UnitParser) PushScope() {
	u.pushSpace(u.pool.NewScopeSpace(u.CurrentSpace()))
}

// pushSpace opens a scope backed by an existing namespace entity,
// used for class bodies.
func (u *UnitParser) pushSpace(id entity.ID) {
	u.scopes = append(u.scopes, id)
}

// PopScope closes the innermost scope. Popping the unit's root scope
// is an internal defect and panics.
func (u *UnitParser) PopScope() {
	if len(u.scopes) <= 1 {
		panic(fmt.Sprintf("scope stack underflow in %s", u.file.Name))
	}
	u.scopes = u.scopes[:len(u.scopes)-1]
}

// IsRootScope reports whether the current scope is the unit's root
func (u *UnitParser) IsRootScope() bool {
	return len(u.scopes) == 1
}

// CurrentSpace returns the namespace entity backing the current scope
func (u *UnitParser) CurrentSpace() entity.ID {
	return u.scopes[len(u.scopes)-1]
}

// enclosingClass returns the nearest scope that is a class body
func (u *UnitParser) enclosingClass() entity.ID {
	for i := len(u.scopes) - 1; i >= 0; i-- {
		e := u.pool.Get(u.scopes[i])
		if e != nil && e.Kind() == entity.KindClass {
			return u.scopes[i]
		}
	}
	return entity.NoID
}

// checkCollision reports whether name is free in the current scope,
// logging the collision error when it is not.
func (u *UnitParser) checkCollision(name string, span source.Span) bool {
	if len(u.pool.LookupAll(u.CurrentSpace(), name)) > 0 {
		u.Errorf(span, "Entity %q already exists in this scope", name)
		return false
	}
	return true
}

// findScopeWith walks the scope stack inside out looking for the
// scope that declares name, falling back to the global namespace
// where the builtin types live.
func (u *UnitParser) findScopeWith(name string) (entity.ID, bool) {
	for i := len(u.scopes) - 1; i >= 0; i-- {
		if len(u.pool.LookupAll(u.scopes[i], name)) > 0 {
			return u.scopes[i], true
		}
	}
	if len(u.pool.LookupAll(u.pool.Global(), name)) > 0 {
		return u.pool.Global(), true
	}
	return entity.NoID, false
}

// visibleNames collects every name reachable from the current scope,
// for suggestions.
func (u *UnitParser) visibleNames() []string {
	seen := make(map[string]bool)
	var names []string
	collect := func(space entity.ID) {
		for _, n := range u.pool.Names(space) {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	for i := len(u.scopes) - 1; i >= 0; i-- {
		collect(u.scopes[i])
	}
	collect(u.pool.Global())
	return names
}

// resolvePath resolves a spelled name to an entity, reporting any
// failure. The first part may be a scope anchor; the rest walks
// namespaces. A non-nil args list makes the final lookup overload
// aware: the call must match exactly one candidate unless an argument
// type is already unknown, in which case the first match wins and a
// miss stays silent.
func (u *UnitParser) resolvePath(parts []string, span source.Span, args []entity.QualType) (entity.ID, bool) {
	full := strings.Join(parts, "::")

	var space entity.ID
	rest := parts
	switch parts[0] {
	case "root":
		if len(parts) == 1 {
			u.Errorf(span, "Invalid use of 'root'")
			return entity.NoID, false
		}
		space = u.pool.Global()
		rest = parts[1:]
	case "this", "super":
		class := u.enclosingClass()
		if class == entity.NoID {
			u.Errorf(span, "Cannot use '%s' outside of a class", parts[0])
			return entity.NoID, false
		}
		if len(parts) == 1 {
			u.Errorf(span, "Invalid use of '%s'", parts[0])
			return entity.NoID, false
		}
		space = class
		if parts[0] == "super" {
			space = u.pool.Get(class).Parent()
		}
		rest = parts[1:]
	default:
		sp, ok := u.findScopeWith(parts[0])
		if !ok {
			u.Errorf(span, "Unknown identifier %q", full)
			u.suggestNames(parts[0], u.visibleNames())
			return entity.NoID, false
		}
		space = sp
	}

	cur := space
	for i := 0; i < len(rest)-1; i++ {
		id, ok := u.pool.Lookup(cur, rest[i], nil, nil)
		if !ok {
			u.Errorf(span, "Unknown identifier %q", full)
			u.suggestNames(rest[i], u.pool.Names(cur))
			return entity.NoID, false
		}
		if !u.pool.Get(id).IsSpace() {
			u.Errorf(span, "%q is not a namespace", rest[i])
			return entity.NoID, false
		}
		cur = id
	}

	return u.resolveLast(cur, rest[len(rest)-1], full, span, args)
}

// resolveLast picks the entity for the final path part, applying
// overload resolution when argument types are given.
func (u *UnitParser) resolveLast(space entity.ID, name, full string, span source.Span, args []entity.QualType) (entity.ID, bool) {
	all := u.pool.LookupAll(space, name)
	if len(all) == 0 {
		u.Errorf(span, "Unknown identifier %q", full)
		u.suggestNames(name, u.pool.Names(space))
		return entity.NoID, false
	}
	if args == nil {
		return all[0], true
	}

	var funs, matches []entity.ID
	for _, id := range all {
		if u.pool.Get(id).Kind() != entity.KindFunction {
			continue
		}
		funs = append(funs, id)
		if entity.ParamsConvertible(args, u.pool.ValueType(id).T.Params) {
			matches = append(matches, id)
		}
	}
	if len(funs) == 0 {
		// not a function name; the caller checks callability
		return all[0], true
	}
	if len(matches) == 1 {
		return matches[0], true
	}

	poisoned := false
	for _, a := range args {
		if a.IsUnknown() {
			poisoned = true
			break
		}
	}
	if poisoned {
		// an argument already failed to check, stay quiet
		if len(matches) > 0 {
			return matches[0], true
		}
		return entity.NoID, false
	}
	if len(matches) == 0 {
		u.Errorf(span, "No overload of %q matches argument types (%s)", full, formatArgs(args))
		for _, id := range funs {
			u.sink.Note("candidate: %s", u.pool.ValueType(id))
		}
		return entity.NoID, false
	}
	u.Errorf(span, "Ambiguous call to %q", full)
	for _, id := range matches {
		u.sink.Note("candidate: %s", u.pool.ValueType(id))
	}
	return entity.NoID, false
}

// resolveTypeRef resolves a type annotation to a qualified type. An
// unresolvable name degrades to unknown after reporting.
func (u *UnitParser) resolveTypeRef(ref *TypeRef) entity.QualType {
	if len(ref.Parts) == 1 && ref.Parts[0] == "void" {
		q := entity.Plain(entity.Void)
		q.Const = ref.Const
		return q
	}
	id, ok := u.walkPath(ref.Parts)
	if !ok || !u.pool.Get(id).IsType() {
		u.Errorf(ref.span, "Unknown type %q", strings.Join(ref.Parts, "::"))
		u.suggestTypes(ref.Parts[len(ref.Parts)-1])
		return entity.Plain(entity.Unknown)
	}
	q := u.pool.ValueType(id)
	q.Const = ref.Const
	return q
}

// walkPath resolves a path without reporting, for callers that have
// their own failure story.
func (u *UnitParser) walkPath(parts []string) (entity.ID, bool) {
	var space entity.ID
	rest := parts
	switch parts[0] {
	case "root":
		if len(parts) == 1 {
			return entity.NoID, false
		}
		space = u.pool.Global()
		rest = parts[1:]
	case "this", "super":
		class := u.enclosingClass()
		if class == entity.NoID || len(parts) == 1 {
			return entity.NoID, false
		}
		space = class
		if parts[0] == "super" {
			space = u.pool.Get(class).Parent()
		}
		rest = parts[1:]
	default:
		sp, ok := u.findScopeWith(parts[0])
		if !ok {
			return entity.NoID, false
		}
		space = sp
	}

	cur := space
	for i := 0; i < len(rest); i++ {
		id, ok := u.pool.Lookup(cur, rest[i], nil, nil)
		if !ok {
			return entity.NoID, false
		}
		if i == len(rest)-1 {
			return id, true
		}
		if !u.pool.Get(id).IsSpace() {
			return entity.NoID, false
		}
		cur = id
	}
	return entity.NoID, false
}

// addExport registers an entity in the unit's export table
func (u *UnitParser) addExport(span source.Span, id entity.ID) {
	name := u.pool.Get(id).Name()
	if name == "" {
		u.Errorf(span, "Cannot export an anonymous entity")
		return
	}
	if !u.exports.Add(name, id) {
		u.Errorf(span, "Entity %q has already been exported", name)
	}
}

// importUnit resolves an import statement: the target unit comes from
// the session cache or is parsed on first use, then the requested
// exports are pushed into the current scope. Name collisions and
// missing names are reported per name; the rest of the import still
// lands.
func (u *UnitParser) importUnit(e *ImportExpr) {
	path := u.shared.resolveImport(u.file.Dir, e.From)
	target, ierr := u.shared.parseUnit(path, u.chain)
	if ierr != nil {
		u.sink.Errorf(e.span, "%s", ierr.Text)
		return
	}
	if target.Failed() {
		// the target's own terminal error is already reported
		return
	}

	if e.Wild {
		for _, name := range target.exports.Names() {
			id, _ := target.exports.Get(name)
			u.importOne(e.span, name, id)
		}
		return
	}
	for _, req := range e.Names {
		id, ok := target.exports.Get(req.Name)
		if !ok {
			u.sink.Errorf(req.Span, "Type %q not found in %q", req.Name, e.From)
			u.suggestNames(req.Name, target.exports.Names())
			continue
		}
		u.importOne(e.span, req.Name, id)
	}
}

// importOne pushes one imported entity into the current scope
func (u *UnitParser) importOne(span source.Span, name string, id entity.ID) {
	if len(u.pool.LookupAll(u.CurrentSpace(), name)) > 0 {
		u.sink.Errorf(span, "Entity %q already exists in this scope", name)
		return
	}
	u.pool.Push(u.CurrentSpace(), name, id)
}

// dumpScopes renders the scope stack outer to inner for the entities
// debug directive. Entities list in declaration order.
func (u *UnitParser) dumpScopes() string {
	var b strings.Builder
	for i, space := range u.scopes {
		fmt.Fprintf(&b, "Scope %d\n", i)
		for _, id := range u.pool.Declared(space) {
			name := u.pool.Get(id).Name()
			if name == "" {
				name = "<anonymous entity>"
			}
			b.WriteString(name)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
