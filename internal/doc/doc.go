// Package doc provides the document model for verifiable Markdown tutorials.
//
// A scanned Document carries everything later stages need and nothing they
// must re-derive from the file: the heading outline, the fenced code examples
// in document order, and the inline-code cross-references found in prose.
// Examples carry their 1-based source line so findings point at the file the
// author is editing, not at an extracted snippet.
package doc

// Heading is one entry of the document outline.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// Ref is an inline-code reference in prose, e.g. `person.greetArrow`.
//
// Only dotted identifier paths are treated as references; single-word code
// spans are prose styling, not claims that an example defines them.
type Ref struct {
	Text string
	Line int
}

// Issue is a structural defect found while scanning (e.g. an unclosed fence).
type Issue struct {
	Line    int
	Message string
}

// Example is one fenced code block.
//
// Expected holds the output lines declared by `// Output:` comments, in
// document order. HasOutputMarker distinguishes "no marker" from "marker
// with no lines"; the latter is a defect.
type Example struct {
	// Index is the position among all fences in the document, 0-based.
	Index int

	// Line is the 1-based line of the opening fence.
	Line int

	// Lang is the lowercased first word of the fence info string.
	Lang string

	// Source is the verbatim fence body.
	Source string

	Expected        []string
	HasOutputMarker bool

	// Check is false for non-JS fences and fences marked nocheck; those are
	// reported as skipped, never evaluated.
	Check bool
}

// Document is the scan result for one Markdown file.
type Document struct {
	Path     string
	Outline  []Heading
	Examples []Example
	Refs     []Ref
	Issues   []Issue
}
