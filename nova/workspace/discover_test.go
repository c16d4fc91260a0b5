package workspace

import (
	"path/filepath"
	"testing"
)

func TestDetectPrefersMavenWhenBothPresent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pom.xml"), "<project></project>")
	writeFile(t, filepath.Join(dir, "build.gradle"), "plugins {}")

	bs, ok := Detect(dir)
	if !ok || bs != BuildSystemMaven {
		t.Fatalf("expected Maven detected, got %v ok=%v", bs, ok)
	}
}

func TestDetectGradleKts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "settings.gradle.kts"), "rootProject.name = \"x\"")

	bs, ok := Detect(dir)
	if !ok || bs != BuildSystemGradle {
		t.Fatalf("expected Gradle detected, got %v ok=%v", bs, ok)
	}
}

func TestDetectNoBuildFiles(t *testing.T) {
	dir := t.TempDir()
	if _, ok := Detect(dir); ok {
		t.Fatalf("expected no build system detected in an empty directory")
	}
}

func TestLoadUnregisteredBuildSystemErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pom.xml"), "<project></project>")

	delete(loaders, BuildSystemMaven)
	defer func() { delete(loaders, BuildSystemMaven) }()

	if _, err := Load(dir, LoadOptions{}); err == nil {
		t.Fatalf("expected an error when no loader is registered for the detected build system")
	}
}

func TestBuildFilesListsOnlyExistingCandidates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "settings.gradle"), "rootProject.name = 'x'")
	writeFile(t, filepath.Join(dir, "build.gradle"), "plugins {}")

	files := BuildFiles(dir, BuildSystemGradle)
	if len(files) != 2 {
		t.Fatalf("expected exactly the two present files, got %v", files)
	}
}
