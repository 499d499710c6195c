package parser

import (
	"github.com/sahilm/fuzzy"

	"github.com/vesper-lang/vesper/internal/entity"
)

// suggestNames attaches a did-you-mean note to the last reported
// message when a close match for name exists among candidates.
func (u *UnitParser) suggestNames(name string, candidates []string) {
	if m := closestMatch(name, candidates); m != "" {
		u.sink.Note("did you mean %q?", m)
	}
}

// suggestTypes suggests among the type names visible from the
// current scope.
func (u *UnitParser) suggestTypes(name string) {
	seen := make(map[string]bool)
	var types []string
	collect := func(space entity.ID) {
		for _, id := range u.pool.Declared(space) {
			e := u.pool.Get(id)
			if e == nil || !e.IsType() || seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			types = append(types, e.Name())
		}
	}
	for i := len(u.scopes) - 1; i >= 0; i-- {
		collect(u.scopes[i])
	}
	collect(u.pool.Global())
	u.suggestNames(name, types)
}

// closestMatch returns the best fuzzy match for name, or empty when
// nothing comes close. Single letter names match too much to be
// worth suggesting for.
func closestMatch(name string, candidates []string) string {
	if len(name) < 2 {
		return ""
	}
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
