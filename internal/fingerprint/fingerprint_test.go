package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func patterned(size int, seed byte) []byte {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i)*seed + seed
	}
	return content
}

func TestComputeDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "movie.mp4", patterned(3*Window, 7))

	first, err := Compute(path)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := Compute(path)
	if err != nil {
		t.Fatalf("compute again: %v", err)
	}
	if first != second {
		t.Fatalf("fingerprint not deterministic: %s vs %s", first, second)
	}
	if len(first) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(first))
	}
}

func TestComputeDistinguishesContent(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.mp4", patterned(3*Window, 7))
	b := writeFile(t, dir, "b.mp4", patterned(3*Window, 11))

	fpA, err := Compute(a)
	if err != nil {
		t.Fatalf("compute a: %v", err)
	}
	fpB, err := Compute(b)
	if err != nil {
		t.Fatalf("compute b: %v", err)
	}
	if fpA == fpB {
		t.Fatal("distinct content produced identical fingerprints")
	}
}

func TestComputeDistinguishesSize(t *testing.T) {
	// Same head and tail bytes, different length.
	dir := t.TempDir()
	content := patterned(3*Window, 7)
	longer := append(append([]byte{}, content[:2*Window]...), content[Window:]...)

	a := writeFile(t, dir, "a.mp4", content)
	b := writeFile(t, dir, "b.mp4", longer)

	fpA, err := Compute(a)
	if err != nil {
		t.Fatalf("compute a: %v", err)
	}
	fpB, err := Compute(b)
	if err != nil {
		t.Fatalf("compute b: %v", err)
	}
	if fpA == fpB {
		t.Fatal("size change not reflected in fingerprint")
	}
}

func TestComputeSmallFiles(t *testing.T) {
	dir := t.TempDir()

	small := writeFile(t, dir, "small.mp4", []byte("tiny clip"))
	fp, err := Compute(small)
	if err != nil {
		t.Fatalf("compute small: %v", err)
	}
	if len(fp) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", fp)
	}

	empty := writeFile(t, dir, "empty.mp4", nil)
	if _, err := Compute(empty); err != nil {
		t.Fatalf("compute empty: %v", err)
	}
}

func TestComputeMiddleBlind(t *testing.T) {
	// Only size, head, and tail participate; a middle-byte flip is
	// invisible. This is the documented tradeoff of bounded hashing.
	dir := t.TempDir()
	content := patterned(4*Window, 7)
	a := writeFile(t, dir, "a.mp4", content)

	mutated := append([]byte{}, content...)
	mutated[2*Window] ^= 0xff
	b := writeFile(t, dir, "b.mp4", mutated)

	fpA, err := Compute(a)
	if err != nil {
		t.Fatalf("compute a: %v", err)
	}
	fpB, err := Compute(b)
	if err != nil {
		t.Fatalf("compute b: %v", err)
	}
	if fpA != fpB {
		t.Fatal("expected middle-byte change to be invisible to the fingerprint")
	}
}

func TestComputeMissingFile(t *testing.T) {
	if _, err := Compute(filepath.Join(t.TempDir(), "absent.mp4")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
