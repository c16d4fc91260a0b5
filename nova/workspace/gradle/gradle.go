// Package gradle discovers Gradle projects (spec §4.4): Groovy and Kotlin
// DSL settings/build scripts, included/composite builds, and version
// catalogs. The teacher repo is Maven-only, so this package is new; it
// follows the teacher's scanning idiom throughout — small hand-written
// line/brace scanning rather than a full Groovy or Kotlin grammar, the same
// register as the rest of the pack's build-file handling.
package gradle

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/nova-ide/nova/nova/workspace"
)

func init() {
	workspace.Register(workspace.BuildSystemGradle, Load)
}

// Load discovers the Gradle project rooted at dir (a directory containing a
// settings.gradle or settings.gradle.kts) and resolves every declared
// subproject, included build, and its dependencies into a
// workspace.WorkspaceModel.
func Load(dir string, opts workspace.LoadOptions) (*workspace.WorkspaceModel, error) {
	_, settingsText, err := readSettings(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read settings script")
	}
	settings := parseSettings(settingsText)

	var modules []workspace.Module
	root := moduleFrom(dir, ":", opts)
	modules = append(modules, root)

	for _, inc := range settings.includes {
		sub := resolveProjectDir(dir, inc, settings.projectDirOverrides)
		modules = append(modules, moduleFrom(sub, inc, opts))
	}
	for _, inc := range settings.includeFlat {
		sub := filepath.Join(filepath.Dir(dir), inc)
		modules = append(modules, moduleFrom(sub, ":"+inc, opts))
	}
	for _, ib := range settings.includeBuilds {
		sub, err := loadIncludedBuild(filepath.Join(dir, ib), ib, opts)
		if err == nil {
			modules = append(modules, sub...)
		}
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].ID < modules[j].ID })

	agg := workspace.JavaConfig{}
	for i, m := range modules {
		if i == 0 {
			agg = m.LanguageLevel
		} else {
			agg = agg.Merge(m.LanguageLevel)
		}
	}
	return &workspace.WorkspaceModel{
		WorkspaceRoot: dir,
		BuildSystem:   workspace.BuildSystemGradle,
		Java:          agg,
		Modules:       modules,
	}, nil
}

// loadIncludedBuild discovers an includeBuild(...) target's own subprojects
// via its own settings file, namespacing every module id
// "gradle::__includedBuild_<name>[:sub]" per spec §4.4.
func loadIncludedBuild(dir, name string, opts workspace.LoadOptions) ([]workspace.Module, error) {
	_, text, err := readSettings(dir)
	if err != nil {
		// Some included builds are plain single-project builds without
		// their own settings file.
		m := moduleFrom(dir, ":", opts)
		m.ID = "gradle::__includedBuild_" + name
		return []workspace.Module{m}, nil
	}
	settings := parseSettings(text)
	var out []workspace.Module
	root := moduleFrom(dir, ":", opts)
	root.ID = "gradle::__includedBuild_" + name
	out = append(out, root)
	for _, inc := range settings.includes {
		sub := resolveProjectDir(dir, inc, settings.projectDirOverrides)
		m := moduleFrom(sub, inc, opts)
		m.ID = "gradle::__includedBuild_" + name + inc
		out = append(out, m)
	}
	return out, nil
}

func readSettings(dir string) (string, []byte, error) {
	for _, name := range []string{"settings.gradle", "settings.gradle.kts"} {
		path := filepath.Join(dir, name)
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}
	return "", nil, errors.Errorf("no settings.gradle[.kts] under %s", dir)
}

func readBuildScript(dir string) (string, []byte, bool) {
	for _, name := range []string{"build.gradle", "build.gradle.kts"} {
		path := filepath.Join(dir, name)
		if data, err := os.ReadFile(path); err == nil {
			return path, data, true
		}
	}
	return "", nil, false
}

type settingsModel struct {
	rootName            string
	includes             []string // ":" prefixed project paths
	includeFlat          []string
	includeBuilds        []string
	projectDirOverrides  map[string]string // project path -> directory (from project(":x").projectDir = ...)
}

var (
	reRootName      = regexp.MustCompile(`rootProject\.name\s*=\s*["']([^"']+)["']`)
	reInclude       = regexp.MustCompile(`(?m)^\s*include\s*\(?\s*(["'][:\w.\-]+["'](?:\s*,\s*["'][:\w.\-]+["'])*)\)?`)
	reIncludeFlat   = regexp.MustCompile(`(?m)^\s*includeFlat\s*\(?\s*(["'][\w.\-]+["'](?:\s*,\s*["'][\w.\-]+["'])*)\)?`)
	reIncludeBuild  = regexp.MustCompile(`includeBuild\s*\(\s*["']([^"']+)["']\s*\)`)
	reProjectDir    = regexp.MustCompile(`project\s*\(\s*["']([^"']+)["']\s*\)\s*\.\s*projectDir\s*=\s*(?:file\s*\(\s*)?["']([^"']+)["']`)
	reQuotedLiteral = regexp.MustCompile(`["']([^"']+)["']`)
)

func parseSettings(text []byte) settingsModel {
	s := settingsModel{projectDirOverrides: map[string]string{}}
	str := string(text)
	if m := reRootName.FindStringSubmatch(str); m != nil {
		s.rootName = m[1]
	}
	for _, m := range reInclude.FindAllStringSubmatch(str, -1) {
		for _, lit := range reQuotedLiteral.FindAllStringSubmatch(m[1], -1) {
			s.includes = append(s.includes, normalizeProjectPath(lit[1]))
		}
	}
	for _, m := range reIncludeFlat.FindAllStringSubmatch(str, -1) {
		for _, lit := range reQuotedLiteral.FindAllStringSubmatch(m[1], -1) {
			s.includeFlat = append(s.includeFlat, lit[1])
		}
	}
	for _, m := range reIncludeBuild.FindAllStringSubmatch(str, -1) {
		s.includeBuilds = append(s.includeBuilds, m[1])
	}
	for _, m := range reProjectDir.FindAllStringSubmatch(str, -1) {
		s.projectDirOverrides[normalizeProjectPath(m[1])] = m[2]
	}
	return s
}

func normalizeProjectPath(p string) string {
	if !strings.HasPrefix(p, ":") {
		p = ":" + p
	}
	return p
}

// resolveProjectDir maps a Gradle project path (":sub:mod") to its
// directory: an explicit projectDir override wins; otherwise Gradle's
// default is the path with ":" replaced by the path separator.
func resolveProjectDir(rootDir, projectPath string, overrides map[string]string) string {
	if dir, ok := overrides[projectPath]; ok {
		return filepath.Join(rootDir, dir)
	}
	rel := strings.ReplaceAll(strings.TrimPrefix(projectPath, ":"), ":", string(filepath.Separator))
	return filepath.Join(rootDir, rel)
}

var reJavaSourceCompat = regexp.MustCompile(`sourceCompatibility\s*[=(]?\s*(?:JavaVersion\.VERSION_)?["']?([\w.]+)["']?`)
var reJavaTargetCompat = regexp.MustCompile(`targetCompatibility\s*[=(]?\s*(?:JavaVersion\.VERSION_)?["']?([\w.]+)["']?`)
var reToolchain = regexp.MustCompile(`languageVersion\s*\.?\s*(?:set\s*\(|=)\s*JavaLanguageVersion\.of\s*\(\s*(\d+)\s*\)`)
var reEnablePreview = regexp.MustCompile(`--enable-preview`)
var reDependency = regexp.MustCompile(`(?m)^\s*(implementation|api|compileOnly|runtimeOnly|testImplementation|testRuntimeOnly|annotationProcessor)\s*[( ]\s*["']([^"']+)["']`)
var reDependencyProject = regexp.MustCompile(`(?m)^\s*(implementation|api|compileOnly|runtimeOnly|testImplementation)\s*[( ]\s*project\s*\(\s*["']([^"']+)["']\s*\)`)
var reFileTree = regexp.MustCompile(`fileTree\s*\(\s*["']?([^"'),]+)["']?`)
var reFiles = regexp.MustCompile(`\bfiles\s*\(\s*["']([^"']+)["']`)
var reSourceSetDir = regexp.MustCompile(`(\w+)\s*\.\s*srcDirs?\s*[=(]\s*\[?["']([^"']+)["']`)

func moduleFrom(dir, id string, opts workspace.LoadOptions) workspace.Module {
	m := workspace.Module{
		ID:          "gradle::" + id,
		Root:        dir,
		SourceRoots: []string{filepath.Join(dir, "src", "main", "java")},
		OutputDirs:  []string{filepath.Join(dir, "build", "classes", "java", "main")},
	}
	if info, err := os.Stat(filepath.Join(dir, "src", "test", "java")); err == nil && info.IsDir() {
		m.SourceRoots = append(m.SourceRoots, filepath.Join(dir, "src", "test", "java"))
		m.OutputDirs = append(m.OutputDirs, filepath.Join(dir, "build", "classes", "java", "test"))
	}

	_, data, ok := readBuildScript(dir)
	if !ok {
		return m
	}
	text := string(data)

	if mm := reToolchain.FindStringSubmatch(text); mm != nil {
		m.LanguageLevel.Source = mm[1]
		m.LanguageLevel.Target = mm[1]
	} else {
		if mm := reJavaSourceCompat.FindStringSubmatch(text); mm != nil {
			m.LanguageLevel.Source = mm[1]
		}
		if mm := reJavaTargetCompat.FindStringSubmatch(text); mm != nil {
			m.LanguageLevel.Target = mm[1]
		} else {
			m.LanguageLevel.Target = m.LanguageLevel.Source
		}
	}
	if reEnablePreview.MatchString(text) {
		m.LanguageLevel.EnablePreview = true
	}

	// A subproject uses its build's catalog: look in dir, then in each parent
	// directory up to the one holding the settings script.
	catalog := loadCatalog(dir)
	for d := dir; len(catalog.libraries) == 0; {
		if _, _, err := readSettings(d); err == nil {
			break
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
		catalog = loadCatalog(d)
	}

	for _, mm := range reDependency.FindAllStringSubmatch(text, -1) {
		coord := mm[2]
		if strings.HasPrefix(coord, "libs.") || strings.Contains(coord, "libs.versions") {
			continue
		}
		if dc, ok := parseGradleCoordinate(coord, mm[1]); ok {
			m.Dependencies = append(m.Dependencies, dc)
		}
	}
	// Version-catalog accessor calls: implementation(libs.guava) or, in the
	// Groovy DSL, implementation libs.guava without parens.
	reCatalogRef := regexp.MustCompile(`(?m)^\s*(implementation|api|compileOnly|runtimeOnly|testImplementation)\s*\(?\s*libs\.([\w.]+)\s*\)?`)
	for _, mm := range reCatalogRef.FindAllStringSubmatch(text, -1) {
		key := strings.ReplaceAll(mm[2], ".", "-")
		if dc, ok := catalog.libraries[key]; ok {
			dc.Scope = mm[1]
			m.Dependencies = append(m.Dependencies, dc)
		}
	}
	for _, mm := range reDependencyProject.FindAllStringSubmatch(text, -1) {
		m.Dependencies = append(m.Dependencies, workspace.DependencyCoordinate{
			GroupID: "project", ArtifactID: mm[2], Version: "", Scope: mm[1],
		})
	}
	for _, mm := range reFileTree.FindAllStringSubmatch(text, -1) {
		jarDir := filepath.Join(dir, mm[1])
		m.Classpath = append(m.Classpath, globJars(jarDir)...)
	}
	for _, mm := range reFiles.FindAllStringSubmatch(text, -1) {
		m.Classpath = append(m.Classpath, filepath.Join(dir, mm[1]))
	}
	for _, mm := range reSourceSetDir.FindAllStringSubmatch(text, -1) {
		m.SourceRoots = append(m.SourceRoots, filepath.Join(dir, mm[2]))
	}

	sort.Slice(m.Dependencies, func(i, j int) bool { return m.Dependencies[i].String() < m.Dependencies[j].String() })
	sort.Strings(m.SourceRoots)
	sort.Strings(m.Classpath)
	return m
}

func globJars(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jar") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

// parseGradleCoordinate splits "group:artifact:version" (version optional)
// into a DependencyCoordinate.
func parseGradleCoordinate(coord, scope string) (workspace.DependencyCoordinate, bool) {
	parts := strings.Split(coord, ":")
	if len(parts) < 2 {
		return workspace.DependencyCoordinate{}, false
	}
	dc := workspace.DependencyCoordinate{GroupID: parts[0], ArtifactID: parts[1], Scope: scope}
	if len(parts) >= 3 {
		dc.Version = parts[2]
	}
	return dc, true
}
