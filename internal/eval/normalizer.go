package eval

import "bytes"

// OutputNormalizer canonicalizes console output before comparison.
type OutputNormalizer interface {
	Normalize(content []byte) []byte
}

// DefaultNormalizer removes the incidental variation console text actually
// has across platforms and editors:
//   - CRLF line endings become LF
//   - trailing whitespace is stripped from each line
//   - trailing blank lines are dropped
//
// It deliberately does not touch line content beyond that: a tutorial that
// claims `// Output: 5` must print exactly 5.
type DefaultNormalizer struct{}

// NewDefaultNormalizer creates the standard normalizer.
func NewDefaultNormalizer() *DefaultNormalizer {
	return &DefaultNormalizer{}
}

// Normalize canonicalizes content.
func (n *DefaultNormalizer) Normalize(content []byte) []byte {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	lines := bytes.Split(content, []byte("\n"))
	for i, line := range lines {
		lines[i] = bytes.TrimRight(line, " \t")
	}
	for len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return append(bytes.Join(lines, []byte("\n")), '\n')
}

// RawNormalizer preserves output bit for bit.
type RawNormalizer struct{}

// NewRawNormalizer creates a normalizer that performs no changes.
func NewRawNormalizer() *RawNormalizer {
	return &RawNormalizer{}
}

// Normalize returns content unchanged.
func (n *RawNormalizer) Normalize(content []byte) []byte {
	return content
}
