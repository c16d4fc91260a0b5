package gradle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nova-ide/nova/nova/workspace"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMultiModuleWithToolchainAndCatalog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "settings.gradle"), `
rootProject.name = 'demo'
include ':app', ':lib'
`)
	writeFile(t, filepath.Join(dir, "gradle", "libs.versions.toml"), `
[versions]
guava = "32.1.3-jre"

[libraries]
guava = { module = "com.google.guava:guava", version.ref = "guava" }
`)
	writeFile(t, filepath.Join(dir, "app", "build.gradle"), `
plugins { id 'java' }
java {
    toolchain {
        languageVersion.set(JavaLanguageVersion.of(21))
    }
}
dependencies {
    implementation project(':lib')
    implementation libs.guava
    testImplementation 'org.junit.jupiter:junit-jupiter:5.10.0'
}
`)
	writeFile(t, filepath.Join(dir, "lib", "build.gradle"), `
plugins { id 'java-library' }
java { sourceCompatibility = '17' }
`)

	model, err := Load(dir, workspace.LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(model.Modules) != 3 {
		t.Fatalf("expected root + app + lib modules, got %d: %+v", len(model.Modules), model.Modules)
	}

	var app, lib *workspace.Module
	for i := range model.Modules {
		switch model.Modules[i].ID {
		case "gradle:::app":
			app = &model.Modules[i]
		case "gradle:::lib":
			lib = &model.Modules[i]
		}
	}
	if app == nil || lib == nil {
		t.Fatalf("expected to find app and lib modules, got %+v", model.Modules)
	}
	if app.LanguageLevel.Source != "21" {
		t.Fatalf("expected toolchain-derived source level 21, got %q", app.LanguageLevel.Source)
	}
	if lib.LanguageLevel.Source != "17" {
		t.Fatalf("expected sourceCompatibility 17, got %q", lib.LanguageLevel.Source)
	}

	foundGuava, foundProject, foundJUnit := false, false, false
	for _, d := range app.Dependencies {
		if d.ArtifactID == "guava" && d.Version == "32.1.3-jre" {
			foundGuava = true
		}
		if d.GroupID == "project" && d.ArtifactID == ":lib" {
			foundProject = true
		}
		if d.ArtifactID == "junit-jupiter" {
			foundJUnit = true
		}
	}
	if !foundGuava {
		t.Errorf("expected version-catalog guava dependency resolved via libs.versions.toml, got %+v", app.Dependencies)
	}
	if !foundProject {
		t.Errorf("expected project(':lib') dependency, got %+v", app.Dependencies)
	}
	if !foundJUnit {
		t.Errorf("expected shorthand coordinate dependency, got %+v", app.Dependencies)
	}

	if model.Java.Source != "21" {
		t.Errorf("expected workspace-level aggregated source to take the max (21), got %q", model.Java.Source)
	}
}

func TestIncludeFlatAndProjectDirOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main", "settings.gradle.kts"), `
rootProject.name = "main"
include(":weird")
project(":weird").projectDir = file("../weird-dir")
includeFlat("sibling")
`)
	writeFile(t, filepath.Join(root, "weird-dir", "build.gradle"), `plugins { id("java") }`)
	writeFile(t, filepath.Join(root, "sibling", "build.gradle"), `plugins { id("java") }`)

	model, err := Load(filepath.Join(root, "main"), workspace.LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	roots := map[string]bool{}
	for _, m := range model.Modules {
		roots[m.Root] = true
	}
	if !roots[filepath.Join(root, "weird-dir")] {
		t.Errorf("expected projectDir override to relocate :weird, got roots %v", roots)
	}
	if !roots[filepath.Join(root, "sibling")] {
		t.Errorf("expected includeFlat sibling to be discovered, got roots %v", roots)
	}
}
