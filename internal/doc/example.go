package doc

import "strings"

const outputMarker = "// Output:"

// ParseExpected extracts the declared console output of an example.
//
// Two declaration forms are recognized, in document order:
//
//	console.log(add(2, 3)); // Output: 5        (inline, one line each)
//
//	// Output:
//	// Hello, Alice!
//	// Hello, Bob!                              (trailing block)
//
// In block form, the run of whole-line `//` comments after the marker is the
// expected output; the first non-comment line ends the block. The marker line
// itself may carry the first expected line (`// Output: 5`).
func ParseExpected(source string) (expected []string, hasMarker bool) {
	inBlock := false

	for _, raw := range strings.Split(source, "\n") {
		line := strings.TrimSpace(raw)

		if inBlock {
			if rest, ok := strings.CutPrefix(line, "//"); ok {
				expected = append(expected, strings.TrimPrefix(rest, " "))
				continue
			}
			inBlock = false
		}

		idx := strings.Index(line, outputMarker)
		if idx < 0 {
			continue
		}
		hasMarker = true
		rest := strings.TrimSpace(line[idx+len(outputMarker):])

		if rest != "" {
			expected = append(expected, rest)
		}
		// A whole-line marker opens a block: following comment lines are
		// expected output too.
		if idx == 0 {
			inBlock = true
		}
	}
	return expected, hasMarker
}
