package cache

import (
	"os"
	"path/filepath"
	"testing"

	"mdvet/internal/report"
)

const testHash = "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"

func testEntry() *Entry {
	return &Entry{
		Hash:   testHash,
		Passed: false,
		Output: []byte("4\n"),
		Findings: []report.Finding{{
			Kind:         report.KindOutputMismatch,
			ExampleIndex: 0,
			Line:         7,
			Message:      "output line 1 differs",
			Expected:     "5",
			Actual:       "4",
		}},
		EngineTag: "engine/v1",
	}
}

func TestFileCache_RoundTrip(t *testing.T) {
	c := NewFileCache(t.TempDir())

	if err := c.Put(testEntry()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.Get(testHash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for a stored entry")
	}
	if got.Passed || string(got.Output) != "4\n" || len(got.Findings) != 1 {
		t.Errorf("entry = %+v", got)
	}
	if got.Findings[0].Expected != "5" {
		t.Errorf("finding = %+v", got.Findings[0])
	}
}

func TestFileCache_MissingEntryIsNilNotError(t *testing.T) {
	c := NewFileCache(t.TempDir())

	got, err := c.Get(testHash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get = %+v, want nil", got)
	}
}

func TestFileCache_CorruptEntryIsAMiss(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCache(dir)

	path := filepath.Join(dir, testHash[:2], testHash, "metadata.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := c.Get(testHash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("corrupt entry returned %+v, want miss", got)
	}
}

func TestFileCache_HashMismatchIsAMiss(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCache(dir)

	e := testEntry()
	if err := c.Put(e); err != nil {
		t.Fatal(err)
	}

	// Move the entry under a different hash directory.
	other := "ff" + testHash[2:]
	src := filepath.Join(dir, testHash[:2], testHash)
	dst := filepath.Join(dir, other[:2], other)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := c.Get(other)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("entry whose stored hash disagrees with its key must be a miss")
	}
}

func TestFileCache_PutRequiresHash(t *testing.T) {
	c := NewFileCache(t.TempDir())
	if err := c.Put(&Entry{}); err == nil {
		t.Error("Put accepted an entry without a hash")
	}
}

func TestNullCache_NeverHitsNeverFails(t *testing.T) {
	var c NullCache
	if err := c.Put(testEntry()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(testHash)
	if err != nil || got != nil {
		t.Errorf("Get = (%+v, %v), want (nil, nil)", got, err)
	}
}
