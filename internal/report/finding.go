package report

// FindingKind is the stable discriminator for a Finding.
//
// The string values appear in JSON reports and in cache entries; do not rename.
type FindingKind string

const (
	// KindOutputMismatch: the example evaluated, but its console output
	// differs from the declared `// Output:` lines.
	KindOutputMismatch FindingKind = "OutputMismatch"

	// KindEvalError: the example threw, or was interrupted by its deadline.
	KindEvalError FindingKind = "EvalError"

	// KindMissingOutput: an `// Output:` marker is present but declares no lines.
	KindMissingOutput FindingKind = "MissingOutput"

	// KindUnresolvedRef: prose refers to an identifier path no example introduces.
	KindUnresolvedRef FindingKind = "UnresolvedRef"

	// KindScanIssue: the document itself is malformed (e.g. an unclosed fence).
	KindScanIssue FindingKind = "ScanIssue"
)

// Finding is a single verifiable defect in a document.
//
// ExampleIndex is -1 for document-level findings (unresolved references,
// scan issues). Line is 1-based within the source file, 0 when unknown.
type Finding struct {
	Kind         FindingKind `json:"kind"`
	ExampleIndex int         `json:"example_index"`
	Line         int         `json:"line,omitempty"`
	Message      string      `json:"message"`
	Expected     string      `json:"expected,omitempty"`
	Actual       string      `json:"actual,omitempty"`
}
