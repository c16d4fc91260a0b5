package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFingerprintDetectsInPlaceSameLengthMutation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pom.xml")
	writeFile(t, path, strings.Repeat("a", 200))

	before, err := FingerprintFile(path)
	if err != nil {
		t.Fatalf("FingerprintFile: %v", err)
	}

	mutated := strings.Repeat("a", 100) + "X" + strings.Repeat("a", 99)
	writeFile(t, path, mutated)

	after, err := FingerprintFile(path)
	if err != nil {
		t.Fatalf("FingerprintFile: %v", err)
	}
	if before.Equal(after) {
		t.Fatalf("expected fingerprint to change after same-length middle mutation")
	}
}

func TestFingerprintStableAcrossRereads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build.gradle")
	writeFile(t, path, "plugins { id 'java' }\n")

	a, err := FingerprintFile(path)
	if err != nil {
		t.Fatalf("FingerprintFile: %v", err)
	}
	b, err := FingerprintFile(path)
	if err != nil {
		t.Fatalf("FingerprintFile: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("expected two fingerprints of an unchanged file to be equal")
	}
}

func TestCacheGetMissesAfterInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pom.xml")
	writeFile(t, path, "<project></project>")

	c := NewCache()
	model := &WorkspaceModel{WorkspaceRoot: dir}
	c.Put(dir, []string{path}, model)

	got, ok := c.Get(dir, []string{path})
	if !ok || got != model {
		t.Fatalf("expected cache hit with the installed model")
	}

	c.Invalidate(dir)
	if _, ok := c.Get(dir, []string{path}); ok {
		t.Fatalf("expected cache miss after Invalidate")
	}
}

func TestCacheGetMissesAfterFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pom.xml")
	writeFile(t, path, "<project>v1</project>")

	c := NewCache()
	model := &WorkspaceModel{WorkspaceRoot: dir}
	c.Put(dir, []string{path}, model)

	writeFile(t, path, "<project>v2</project>")
	if _, ok := c.Get(dir, []string{path}); ok {
		t.Fatalf("expected cache miss after the build file's content changed")
	}
}
