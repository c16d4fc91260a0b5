// Package maven discovers and resolves Maven projects (spec §4.4): parent
// POM inheritance, property interpolation (including inside dependency
// coordinates), dependencyManagement, default-active profiles, and the
// compiler source/target/release/enable-preview settings. It decodes POMs
// directly into the teacher's own pom.Project (encoding/xml struct tags
// already cover the full element set spec §6 names), drives transitive
// dependency resolution through the teacher's pom.Resolver, and builds the
// remaining resolution semantics -- inheritance, interpolation, activation --
// on top, none of which the teacher's pom package modeled beyond the POM
// shape and the resolver itself.
package maven

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/nova-ide/nova/nova/workspace"
	"github.com/nova-ide/nova/pom"
)

func init() {
	workspace.Register(workspace.BuildSystemMaven, Load)
}

// Load discovers the Maven project rooted at dir (a directory containing a
// pom.xml) and resolves it, including any <modules> children, into a
// workspace.WorkspaceModel.
func Load(dir string, opts workspace.LoadOptions) (*workspace.WorkspaceModel, error) {
	root, err := loadAndResolve(dir, opts, nil)
	if err != nil {
		return nil, err
	}
	var modules []workspace.Module
	seen := map[string]bool{}
	if err := collectModules(root, dir, opts, &modules, seen); err != nil {
		return nil, err
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].ID < modules[j].ID })
	for i := range modules {
		modules[i].Classpath = Classpath(&modules[i], opts.MavenRepo)
	}

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
		BuildSystem:   workspace.BuildSystemMaven,
		Java:          agg,
		Modules:       modules,
	}, nil
}

func collectModules(p *pom.Project, dir string, opts workspace.LoadOptions, out *[]workspace.Module, seen map[string]bool) error {
	id := p.GroupID + ":" + p.ArtifactID
	if seen[id] {
		return nil
	}
	seen[id] = true

	if p.Packaging != "pom" || len(p.Modules) == 0 {
		*out = append(*out, moduleOf(p, dir, opts.MavenRepo))
	}
	for _, rel := range activeModuleList(p) {
		sub := filepath.Join(dir, rel)
		child, err := loadAndResolve(sub, opts, p)
		if err != nil {
			return errors.Wrapf(err, "load module %s", rel)
		}
		if err := collectModules(child, sub, opts, out, seen); err != nil {
			return err
		}
	}
	return nil
}

// loadAndResolve parses dir/pom.xml, resolves parent inheritance (relative
// path first, then the local repo), applies active-by-default profiles,
// interpolates properties, and folds in dependencyManagement. parentHint is
// the already-resolved parent when known from the enclosing <modules>
// walk, avoiding a second disk read of the same file.
func loadAndResolve(dir string, opts workspace.LoadOptions, parentHint *pom.Project) (*pom.Project, error) {
	path := filepath.Join(dir, "pom.xml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var p pom.Project
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	parent := parentHint
	if parent == nil && p.Parent != nil {
		parent, err = resolveParentPOM(dir, p.Parent, opts)
		if err != nil {
			return nil, errors.Wrap(err, "resolve parent POM")
		}
	}
	if parent != nil {
		inheritFromParent(&p, parent)
	}

	applyDefaultProfiles(&p)
	interpolate(&p)
	applyDependencyManagement(&p)
	return &p, nil
}

// resolveParentPOM follows <parent><relativePath> relative to dir first
// (the common case inside a multi-module checkout); if that file doesn't
// exist, it falls back to the local Maven repository layout
// ($M2/groupId/.../artifactId/version/artifactId-version.pom). A parent
// that can't be found either way is treated as absent — Nova degrades
// gracefully rather than failing workspace discovery over a network-only
// parent.
func resolveParentPOM(dir string, parent *pom.Parent, opts workspace.LoadOptions) (*pom.Project, error) {
	relPath := parent.RelativePath
	if relPath == "" {
		relPath = "../pom.xml"
	}
	candidate := filepath.Join(dir, relPath)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		data, err := os.ReadFile(candidate)
		if err != nil {
			return nil, err
		}
		var p pom.Project
		if err := xml.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		if p.Parent != nil {
			grandparent, err := resolveParentPOM(filepath.Dir(candidate), p.Parent, opts)
			if err == nil && grandparent != nil {
				inheritFromParent(&p, grandparent)
			}
		}
		interpolate(&p)
		return &p, nil
	}

	repoPath := localRepoPOMPath(opts.MavenRepo, parent.GroupID, parent.ArtifactID, parent.Version)
	if data, err := os.ReadFile(repoPath); err == nil {
		var p pom.Project
		if err := xml.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		interpolate(&p)
		return &p, nil
	}
	return nil, nil
}

func localRepoPOMPath(repo, groupID, artifactID, version string) string {
	groupPath := strings.ReplaceAll(groupID, ".", string(filepath.Separator))
	return filepath.Join(repo, groupPath, artifactID, version, artifactID+"-"+version+".pom")
}

func localRepoJarPath(repo, groupID, artifactID, version string) string {
	groupPath := strings.ReplaceAll(groupID, ".", string(filepath.Separator))
	return filepath.Join(repo, groupPath, artifactID, version, artifactID+"-"+version+".jar")
}

// inheritFromParent folds parent state into child the way Maven's model
// builder does: groupId/version default from the parent when unset,
// properties the child hasn't already defined are inherited, and
// dependencyManagement entries merge with the child's own taking priority
// per groupId:artifactId key. Adapted from the teacher's
// MavenFetcher.resolveParent (pom/fetcher.go), which implemented exactly
// this merge for the network-fetched case.
func inheritFromParent(child *pom.Project, parent *pom.Project) {
	if child.GroupID == "" {
		child.GroupID = parent.GroupID
	}
	if child.Version == "" {
		child.Version = parent.Version
	}
	if child.Properties == nil {
		child.Properties = &pom.Properties{Entries: map[string]string{}}
	}
	if parent.Properties != nil {
		for k, v := range parent.Properties.Entries {
			if _, exists := child.Properties.Entries[k]; !exists {
				child.Properties.Entries[k] = v
			}
		}
	}

	if child.DependencyManagement == nil {
		child.DependencyManagement = parent.DependencyManagement
	} else if parent.DependencyManagement != nil {
		existing := map[string]bool{}
		for _, d := range child.DependencyManagement.Dependencies {
			existing[d.GroupID+":"+d.ArtifactID] = true
		}
		for _, d := range parent.DependencyManagement.Dependencies {
			if !existing[d.GroupID+":"+d.ArtifactID] {
				child.DependencyManagement.Dependencies = append(child.DependencyManagement.Dependencies, d)
			}
		}
	}

	child.Profiles = append(child.Profiles, parent.Profiles...)

	if parent.Build != nil {
		if child.Build == nil {
			child.Build = &pom.Build{}
		}
		if child.Build.PluginManagement == nil {
			child.Build.PluginManagement = parent.Build.PluginManagement
		}
		existing := map[string]bool{}
		for _, pl := range child.Build.Plugins {
			existing[pl.GroupID+":"+pl.ArtifactID] = true
		}
		for _, pl := range parent.Build.Plugins {
			if !existing[pl.GroupID+":"+pl.ArtifactID] {
				child.Build.Plugins = append(child.Build.Plugins, pl)
			}
		}
	}
}

// applyDefaultProfiles merges every profile with <activation><activeByDefault>true
// into the project, the way Maven activates those profiles absent any
// -P/-D override (spec §4.4).
func applyDefaultProfiles(p *pom.Project) {
	for _, prof := range p.Profiles {
		if prof.Activation == nil || prof.Activation.ActiveByDefault != "true" {
			continue
		}
		p.Dependencies = append(p.Dependencies, prof.Dependencies...)
		p.Modules = append(p.Modules, prof.Modules...)
		if prof.DependencyManagement != nil {
			if p.DependencyManagement == nil {
				p.DependencyManagement = &pom.DependencyManagement{}
			}
			p.DependencyManagement.Dependencies = append(p.DependencyManagement.Dependencies, prof.DependencyManagement.Dependencies...)
		}
		if prof.Properties != nil {
			if p.Properties == nil {
				p.Properties = &pom.Properties{Entries: map[string]string{}}
			}
			for k, v := range prof.Properties.Entries {
				p.Properties.Entries[k] = v
			}
		}
		if prof.Build != nil {
			if p.Build == nil {
				p.Build = &pom.Build{}
			}
			p.Build.Plugins = append(p.Build.Plugins, prof.Build.Plugins...)
		}
	}
}

// activeModuleList returns every module directory that should be
// discovered: the project's own <modules> plus any folded in from
// active-by-default profiles (already appended by applyDefaultProfiles).
func activeModuleList(p *pom.Project) []string {
	return p.Modules
}

// interpolate resolves ${property} placeholders across dependency
// coordinates, build/plugin configuration, and the property map itself
// (bounded to a few passes, so a property that references another property
// still resolves). Adapted from the teacher's MavenFetcher.interpolateProperties,
// generalized to also interpolate transitively through the property table
// itself and into compiler-plugin configuration.
func interpolate(p *pom.Project) {
	props := map[string]string{
		"project.groupId":    p.GroupID,
		"project.artifactId": p.ArtifactID,
		"project.version":    p.Version,
		"pom.groupId":        p.GroupID,
		"pom.artifactId":     p.ArtifactID,
		"pom.version":        p.Version,
	}
	if p.Properties != nil {
		for k, v := range p.Properties.Entries {
			props[k] = v
		}
	}

	apply := func(s string) string {
		for i := 0; i < 5 && strings.Contains(s, "${"); i++ {
			replaced := false
			for k, v := range props {
				placeholder := "${" + k + "}"
				if strings.Contains(s, placeholder) {
					s = strings.ReplaceAll(s, placeholder, v)
					replaced = true
				}
			}
			if !replaced {
				break
			}
		}
		return s
	}

	for k, v := range props {
		props[k] = apply(v)
	}
	if p.Properties != nil {
		for k := range p.Properties.Entries {
			p.Properties.Entries[k] = apply(p.Properties.Entries[k])
		}
	}

	for i := range p.Dependencies {
		p.Dependencies[i].GroupID = apply(p.Dependencies[i].GroupID)
		p.Dependencies[i].ArtifactID = apply(p.Dependencies[i].ArtifactID)
		p.Dependencies[i].Version = apply(p.Dependencies[i].Version)
	}
	if p.DependencyManagement != nil {
		for i := range p.DependencyManagement.Dependencies {
			d := &p.DependencyManagement.Dependencies[i]
			d.GroupID, d.ArtifactID, d.Version = apply(d.GroupID), apply(d.ArtifactID), apply(d.Version)
		}
	}
	if p.Build != nil {
		for i := range p.Build.Plugins {
			if c := p.Build.Plugins[i].Configuration; c != nil {
				p.Build.Plugins[i].Configuration = &pom.Configuration{Raw: []byte(apply(string(c.Raw)))}
			}
		}
	}
}

// applyDependencyManagement fills in the version/scope of any direct
// dependency that omits one, from the (already-interpolated) effective
// dependencyManagement — the way Maven's managed-version mechanism works.
// This only covers the project's own direct dependencies; resolvedDependencies
// folds the same managed-version lookup into the full transitive walk via
// pom.Resolver, so direct dependencies stay correctly versioned even before
// that walk runs (e.g. for callers that inspect p.Dependencies directly).
func applyDependencyManagement(p *pom.Project) {
	if p.DependencyManagement == nil {
		return
	}
	managed := map[string]pom.Dependency{}
	for _, d := range p.DependencyManagement.Dependencies {
		managed[d.GroupID+":"+d.ArtifactID] = d
	}
	for i := range p.Dependencies {
		d := &p.Dependencies[i]
		m, ok := managed[d.GroupID+":"+d.ArtifactID]
		if !ok {
			continue
		}
		if d.Version == "" {
			d.Version = m.Version
		}
		if d.Scope == "" {
			d.Scope = m.Scope
		}
	}
}

// localRepoFetcher implements pom.POMFetcher by reading the local Maven
// repository layout instead of the teacher's MavenFetcher (pom/fetcher.go),
// which fetched over HTTP. Nova resolves workspaces offline (spec §4.4):
// a coordinate whose POM isn't already in the local repo simply stops the
// transitive walk at that node rather than reaching out to the network, the
// same "omit, never synthesize" posture Classpath already takes with jars.
type localRepoFetcher struct {
	repo string
}

func (f *localRepoFetcher) FetchPOM(groupID, artifactID, version string) (*pom.Project, error) {
	data, err := os.ReadFile(localRepoPOMPath(f.repo, groupID, artifactID, version))
	if err != nil {
		return nil, err
	}
	var p pom.Project
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.GroupID == "" {
		p.GroupID = groupID
	}
	if p.Version == "" {
		p.Version = version
	}
	if p.Parent != nil {
		if parent, err := f.FetchPOM(p.Parent.GroupID, p.Parent.ArtifactID, p.Parent.Version); err == nil && parent != nil {
			inheritFromParent(&p, parent)
		}
	}
	interpolate(&p)
	return &p, nil
}

// resolvedDependencies walks p's full transitive dependency graph with the
// teacher's pom.Resolver (pom/resolver.go) -- nearest-wins version
// mediation, scope propagation/narrowing, and <exclusions> -- reading child
// POMs from the local repository via localRepoFetcher. A resolution failure
// (an unparseable version range, most commonly) degrades to the project's
// own direct dependencies rather than failing workspace discovery; missing
// coordinates are still filtered out by Classpath's jar-existence check, so
// they never appear as synthesized classpath entries either way.
func resolvedDependencies(p *pom.Project, repo string) []workspace.DependencyCoordinate {
	resolved, err := pom.NewResolver(&localRepoFetcher{repo: repo}).Resolve(p)
	if err != nil {
		return directDependencies(p)
	}
	out := make([]workspace.DependencyCoordinate, 0, len(resolved))
	for _, d := range resolved {
		out = append(out, workspace.DependencyCoordinate{
			GroupID: d.GroupID, ArtifactID: d.ArtifactID, Version: d.Version, Scope: string(d.Scope),
		})
	}
	return out
}

func directDependencies(p *pom.Project) []workspace.DependencyCoordinate {
	var out []workspace.DependencyCoordinate
	for _, d := range p.Dependencies {
		if d.Optional == "true" {
			continue
		}
		scope := d.Scope
		if scope == "" {
			scope = string(pom.ScopeCompile)
		}
		out = append(out, workspace.DependencyCoordinate{GroupID: d.GroupID, ArtifactID: d.ArtifactID, Version: d.Version, Scope: scope})
	}
	return out
}

func moduleOf(p *pom.Project, dir, repo string) workspace.Module {
	source, target, release, enablePreview := compilerSettings(p)
	if release != "" {
		source, target = release, release
	}
	if source == "" {
		source = propOr(p, "maven.compiler.source", "")
	}
	if target == "" {
		target = propOr(p, "maven.compiler.target", "")
	}

	m := workspace.Module{
		ID:   p.GroupID + ":" + p.ArtifactID,
		Root: dir,
		SourceRoots: []string{
			filepath.Join(dir, "src", "main", "java"),
		},
		OutputDirs: []string{
			filepath.Join(dir, "target", "classes"),
		},
		LanguageLevel: workspace.JavaConfig{Source: source, Target: target, EnablePreview: enablePreview},
	}
	if hasTestSources(dir) {
		m.SourceRoots = append(m.SourceRoots, filepath.Join(dir, "src", "test", "java"))
		m.OutputDirs = append(m.OutputDirs, filepath.Join(dir, "target", "test-classes"))
	}

	m.Dependencies = resolvedDependencies(p, repo)
	sort.Slice(m.Dependencies, func(i, j int) bool { return m.Dependencies[i].String() < m.Dependencies[j].String() })
	return m
}

func hasTestSources(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "src", "test", "java"))
	return err == nil && info.IsDir()
}

func propOr(p *pom.Project, key, def string) string {
	if p.Properties != nil {
		if v, ok := p.Properties.Entries[key]; ok {
			return v
		}
	}
	return def
}

type compilerPluginConfig struct {
	Source        string `xml:"source"`
	Target        string `xml:"target"`
	Release       string `xml:"release"`
	EnablePreview string `xml:"enablePreview"`
}

// compilerSettings reads <source>/<target>/<release>/<enablePreview> out of
// maven-compiler-plugin's <configuration>, and enable-preview out of the
// maven.compiler.enablePreview property (spec §4.4).
func compilerSettings(p *pom.Project) (source, target, release string, enablePreview bool) {
	if propOr(p, "maven.compiler.enablePreview", "") == "true" {
		enablePreview = true
	}
	if p.Build == nil {
		return
	}
	for _, pl := range p.Build.Plugins {
		if pl.ArtifactID != "maven-compiler-plugin" || pl.Configuration == nil {
			continue
		}
		var cfg compilerPluginConfig
		wrapped := append([]byte("<configuration>"), pl.Configuration.Raw...)
		wrapped = append(wrapped, []byte("</configuration>")...)
		if err := xml.Unmarshal(wrapped, &cfg); err != nil {
			continue
		}
		if cfg.Source != "" {
			source = cfg.Source
		}
		if cfg.Target != "" {
			target = cfg.Target
		}
		if cfg.Release != "" {
			release = cfg.Release
		}
		if cfg.EnablePreview == "true" {
			enablePreview = true
		}
	}
	return
}

// Classpath resolves every module's dependency coordinates against the
// local Maven repository, omitting (never synthesizing) jars that aren't
// present — spec §4.4's "missing jars are omitted from the classpath
// rather than synthesized".
func Classpath(m *workspace.Module, repo string) []string {
	var out []string
	for _, d := range m.Dependencies {
		if d.Scope == string(pom.ScopeTest) {
			continue
		}
		path := localRepoJarPath(repo, d.GroupID, d.ArtifactID, d.Version)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}
