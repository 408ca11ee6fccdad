package doc

import "testing"

func xrefDoc(refText string, sources ...string) *Document {
	d := &Document{Path: "x.md", Refs: []Ref{{Text: refText, Line: 1}}}
	for i, src := range sources {
		d.Examples = append(d.Examples, Example{Index: i, Lang: "js", Source: src, Check: true})
	}
	return d
}

func TestUnresolvedRefs_DeclarationResolves(t *testing.T) {
	cases := map[string]string{
		"const":    "const person = { greetArrow: () => {} };",
		"let":      "let person = {};",
		"function": "function person() {}",
		"class":    "class person {}",
		"assign":   "person = makePerson();",
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			d := xrefDoc("person.greetArrow", src)
			if got := UnresolvedRefs(d); len(got) != 0 {
				t.Errorf("ref unresolved against %q: %+v", src, got)
			}
		})
	}
}

func TestUnresolvedRefs_MissingRootIsReported(t *testing.T) {
	d := xrefDoc("person.greetArrow", "const animal = {};")

	got := UnresolvedRefs(d)
	if len(got) != 1 || got[0].Text != "person.greetArrow" {
		t.Errorf("unresolved = %+v, want the person ref", got)
	}
}

func TestUnresolvedRefs_SkippedExamplesDoNotResolve(t *testing.T) {
	d := xrefDoc("person.greetArrow")
	d.Examples = append(d.Examples, Example{Index: 0, Lang: "js", Source: "const person = {};", Check: false})

	if got := UnresolvedRefs(d); len(got) != 1 {
		t.Errorf("nocheck example must not resolve refs, got %+v", got)
	}
}

func TestUnresolvedRefs_EqualityIsNotAnIntroduction(t *testing.T) {
	d := xrefDoc("person.greetArrow", "person === other;")

	if got := UnresolvedRefs(d); len(got) != 1 {
		t.Errorf("comparison must not count as introduction, got %+v", got)
	}
}
