package check

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

// SnippetHash is the deterministic identity of one example verification.
//
// It covers everything that can change the verdict: where the example lives,
// its position among the document's runnable snippets (earlier snippets feed
// the shared runtime, so position matters), its source, its declared output,
// and the engine the output is produced with. Any change to any component
// produces a different hash and forces re-evaluation.
type SnippetHash string

// String returns the hex form of the hash.
func (h SnippetHash) String() string { return string(h) }

// SnippetHasher computes SnippetHashes.
//
// All fields are length-prefixed before hashing so no two distinct inputs can
// produce the same byte stream.
type SnippetHasher struct{}

// NewSnippetHasher creates a SnippetHasher.
func NewSnippetHasher() *SnippetHasher {
	return &SnippetHasher{}
}

// HashInput carries the identity components of one example.
type HashInput struct {
	// DocPath is the document path as reported, relative to the work dir.
	DocPath string

	// Index is the example's 0-based position among the document's fences.
	Index int

	// Source is the verbatim fence body.
	Source string

	// Expected is the declared output, one line per element.
	Expected []string

	// EngineTag names the evaluation engine and console semantics.
	EngineTag string

	// PriorSources are the runnable snippets preceding this one in the
	// document; they shape the shared runtime the example runs in.
	PriorSources []string
}

// Compute returns the SnippetHash for the given input.
func (h *SnippetHasher) Compute(in HashInput) SnippetHash {
	hasher := sha256.New()

	writeField := func(data []byte) {
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
		hasher.Write(lenBuf[:])
		hasher.Write(data)
	}

	writeField([]byte(in.DocPath))
	writeField([]byte(strconv.Itoa(in.Index)))
	writeField([]byte(in.Source))
	writeField([]byte(in.EngineTag))

	writeField([]byte(strconv.Itoa(len(in.Expected))))
	for _, line := range in.Expected {
		writeField([]byte(line))
	}

	writeField([]byte(strconv.Itoa(len(in.PriorSources))))
	for _, src := range in.PriorSources {
		writeField([]byte(src))
	}

	return SnippetHash(hex.EncodeToString(hasher.Sum(nil)))
}
