package check

import "testing"

func baseHashInput() HashInput {
	return HashInput{
		DocPath:      "guide.md",
		Index:        2,
		Source:       "console.log(add(2, 3)); // Output: 5\n",
		Expected:     []string{"5"},
		EngineTag:    "engine/v1",
		PriorSources: []string{"const add = (a, b) => a + b;\n"},
	}
}

func TestCompute_IdenticalInputsProduceSameHash(t *testing.T) {
	hasher := NewSnippetHasher()

	h1 := hasher.Compute(baseHashInput())
	h2 := hasher.Compute(baseHashInput())

	if h1 != h2 {
		t.Errorf("identical inputs produced different hashes: %s != %s", h1, h2)
	}
}

func TestCompute_EachComponentInvalidates(t *testing.T) {
	hasher := NewSnippetHasher()
	base := hasher.Compute(baseHashInput())

	mutations := map[string]func(*HashInput){
		"doc path":   func(in *HashInput) { in.DocPath = "other.md" },
		"index":      func(in *HashInput) { in.Index = 3 },
		"source":     func(in *HashInput) { in.Source = "console.log(add(2, 4));\n" },
		"expected":   func(in *HashInput) { in.Expected = []string{"6"} },
		"engine tag": func(in *HashInput) { in.EngineTag = "engine/v2" },
		"prior":      func(in *HashInput) { in.PriorSources = []string{"const add = (a, b) => a * b;\n"} },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			in := baseHashInput()
			mutate(&in)
			if hasher.Compute(in) == base {
				t.Errorf("changing %s did not invalidate the hash", name)
			}
		})
	}
}

func TestCompute_FieldBoundariesAreUnambiguous(t *testing.T) {
	hasher := NewSnippetHasher()

	a := baseHashInput()
	a.Expected = []string{"ab", "c"}
	b := baseHashInput()
	b.Expected = []string{"a", "bc"}

	if hasher.Compute(a) == hasher.Compute(b) {
		t.Error("shifting bytes across field boundaries produced the same hash")
	}
}
