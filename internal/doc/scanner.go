package doc

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// refPattern matches dotted identifier paths like person.greetArrow or
// counter.increment.value. Single identifiers deliberately do not match.
var refPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(?:\.[A-Za-z_$][A-Za-z0-9_$]*)+(?:\(\))?$`)

// jsLangs are the fence info words treated as runnable JavaScript.
var jsLangs = map[string]bool{
	"js":         true,
	"javascript": true,
}

// Scanner extracts the document model from Markdown sources.
//
// The scanner is stateless and safe for concurrent use. CRLF line endings are
// normalized away before any line accounting so reported line numbers match
// what an editor shows for the file.
type Scanner struct {
	md goldmark.Markdown
}

// NewScanner creates a Scanner.
func NewScanner() *Scanner {
	return &Scanner{md: goldmark.New()}
}

// ScanFile reads and scans a Markdown file.
func (s *Scanner) ScanFile(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", path, err)
	}
	return s.Scan(path, src), nil
}

// Scan parses src and extracts the outline, examples and references.
// Structural defects become Issues on the Document, not errors: a malformed
// document is a finding, not a tool failure.
func (s *Scanner) Scan(path string, src []byte) *Document {
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))

	d := &Document{Path: path}
	if line, ok := findUnclosedFence(src); ok {
		d.Issues = append(d.Issues, Issue{Line: line, Message: "unclosed code fence"})
	}

	root := s.md.Parser().Parse(text.NewReader(src))

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			d.Outline = append(d.Outline, Heading{
				Level: node.Level,
				Text:  string(nodeText(node, src)),
				Line:  nodeLine(node, src),
			})
		case *ast.FencedCodeBlock:
			d.Examples = append(d.Examples, s.example(node, src, len(d.Examples)))
		case *ast.CodeSpan:
			// Code spans inside headings are section titles, not references.
			if hasHeadingAncestor(node) {
				return ast.WalkContinue, nil
			}
			txt := strings.TrimSpace(string(nodeText(node, src)))
			if refPattern.MatchString(txt) {
				d.Refs = append(d.Refs, Ref{
					Text: strings.TrimSuffix(txt, "()"),
					Line: nodeLine(node, src),
				})
			}
		}
		return ast.WalkContinue, nil
	})

	return d
}

func (s *Scanner) example(node *ast.FencedCodeBlock, src []byte, index int) Example {
	var body bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		body.Write(seg.Value(src))
	}

	info := ""
	if node.Info != nil {
		info = string(node.Info.Segment.Value(src))
	}
	words := strings.Fields(strings.ToLower(info))
	lang := ""
	if len(words) > 0 {
		lang = words[0]
	}
	nocheck := false
	if len(words) > 1 {
		for _, w := range words[1:] {
			if w == "nocheck" {
				nocheck = true
			}
		}
	}

	source := body.String()
	ex := Example{
		Index:  index,
		Line:   fenceOpenLine(node, src),
		Lang:   lang,
		Source: source,
		// Empty fences are placeholders, not examples.
		Check: jsLangs[lang] && !nocheck && strings.TrimSpace(source) != "",
	}
	ex.Expected, ex.HasOutputMarker = ParseExpected(ex.Source)
	return ex
}

// fenceOpenLine returns the 1-based line of the opening fence. The fence body
// starts on the following line, so the opener is one line above the first
// body segment. An empty fence falls back to the info segment's line.
func fenceOpenLine(node *ast.FencedCodeBlock, src []byte) int {
	if lines := node.Lines(); lines.Len() > 0 {
		return lineAt(src, lines.At(0).Start) - 1
	}
	if node.Info != nil {
		return lineAt(src, node.Info.Segment.Start)
	}
	return 0
}

// nodeLine locates a node by its first text segment.
func nodeLine(n ast.Node, src []byte) int {
	line := 0
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || line != 0 {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			line = lineAt(src, t.Segment.Start)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return line
}

// lineAt converts a byte offset into a 1-based line number.
func lineAt(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return bytes.Count(src[:offset], []byte("\n")) + 1
}

// nodeText concatenates the raw text segments beneath n.
func nodeText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.Bytes()
}

func hasHeadingAncestor(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.Heading); ok {
			return true
		}
	}
	return false
}

// findUnclosedFence checks fence pairing on the raw lines. Goldmark accepts a
// fence running to EOF silently; for a tutorial that is almost always an
// authoring mistake, so it is surfaced as a scan issue at the opener's line.
func findUnclosedFence(src []byte) (int, bool) {
	openLine := 0
	var openMarker byte
	open := false

	for i, raw := range bytes.Split(src, []byte("\n")) {
		line := bytes.TrimLeft(raw, " ")
		if len(line) < 3 {
			continue
		}
		marker := line[0]
		if marker != '`' && marker != '~' {
			continue
		}
		runLen := 0
		for runLen < len(line) && line[runLen] == marker {
			runLen++
		}
		if runLen < 3 {
			continue
		}
		switch {
		case !open:
			open = true
			openMarker = marker
			openLine = i + 1
		case marker == openMarker:
			open = false
		}
	}
	if open {
		return openLine, true
	}
	return 0, false
}
