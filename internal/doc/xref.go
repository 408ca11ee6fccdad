package doc

import (
	"regexp"
	"strings"
)

// introduces reports whether source introduces ident.
//
// An example "introduces" an identifier when its source declares it
// (const/let/var/function/class) or assigns to it at the start of a line.
// This is a textual check on purpose: verifying references must not require
// parsing JavaScript, only evaluating it.
func introduces(source, ident string) bool {
	q := regexp.QuoteMeta(ident)
	decl := regexp.MustCompile(`(?m)^\s*(?:const|let|var|function|class)\s+` + q + `\b`)
	if decl.MatchString(source) {
		return true
	}
	assign := regexp.MustCompile(`(?m)^\s*` + q + `\s*=[^=]`)
	return assign.MatchString(source)
}

// UnresolvedRefs returns the refs whose root identifier no example introduces.
//
// A ref like `person.greetArrow` resolves when some example in the same
// document introduces `person`; member existence is not verified (that would
// require evaluating prose claims, not the examples).
func UnresolvedRefs(d *Document) []Ref {
	var unresolved []Ref

	for _, ref := range d.Refs {
		root := ref.Text
		if i := strings.IndexByte(root, '.'); i >= 0 {
			root = root[:i]
		}

		found := false
		for _, ex := range d.Examples {
			if !ex.Check {
				continue
			}
			if introduces(ex.Source, root) {
				found = true
				break
			}
		}
		if !found {
			unresolved = append(unresolved, ref)
		}
	}
	return unresolved
}
