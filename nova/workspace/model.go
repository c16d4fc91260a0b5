// Package workspace discovers Java projects across Maven and Gradle build
// systems (spec §4.4): multi-module layouts, composite/included Gradle
// builds, Kotlin DSL, and version catalogs, producing a build-system-
// agnostic WorkspaceModel the refactoring engine and DAP session can both
// consume.
package workspace

import (
	"sort"

	"github.com/nova-ide/nova/nova/config"
)

// BuildSystem identifies which build tool produced a WorkspaceModel.
type BuildSystem int

const (
	BuildSystemMaven BuildSystem = iota
	BuildSystemGradle
)

func (b BuildSystem) String() string {
	if b == BuildSystemGradle {
		return "gradle"
	}
	return "maven"
}

// JavaConfig is spec §3's WorkspaceModel.java{source,target,enable_preview}.
type JavaConfig struct {
	Source        string
	Target        string
	EnablePreview bool
}

// Merge combines two JavaConfigs the way workspace-level aggregation does
// when a concrete build tool invocation isn't available (spec §4.4's
// Gradle fallback: "aggregate module Java language levels by taking the
// max source/target and OR-ing enable_preview").
func (j JavaConfig) Merge(other JavaConfig) JavaConfig {
	out := j
	out.Source = maxJavaVersion(out.Source, other.Source)
	out.Target = maxJavaVersion(out.Target, other.Target)
	out.EnablePreview = out.EnablePreview || other.EnablePreview
	return out
}

func maxJavaVersion(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if javaVersionRank(b) > javaVersionRank(a) {
		return b
	}
	return a
}

// javaVersionRank parses a source/target/release string ("1.8", "8", "17")
// into a comparable integer, the way javac itself treats "1.N" as an alias
// of "N" for N <= 8.
func javaVersionRank(v string) int {
	if len(v) > 2 && v[:2] == "1." {
		v = v[2:]
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// DependencyCoordinate is one resolved Maven/Gradle dependency coordinate.
type DependencyCoordinate struct {
	GroupID    string
	ArtifactID string
	Version    string
	Scope      string // compile, provided, runtime, test, system (Maven) or the Gradle configuration name
}

func (d DependencyCoordinate) String() string {
	return d.GroupID + ":" + d.ArtifactID + ":" + d.Version
}

// Module is spec §3's per-module record.
type Module struct {
	ID            string
	Root          string
	SourceRoots   []string
	OutputDirs    []string
	Classpath     []string // resolved local jar/classes paths; missing jars are omitted, never synthesized
	Dependencies  []DependencyCoordinate
	LanguageLevel JavaConfig
	ModulePath    string // module-info.java module name, if the module is modularized
}

// WorkspaceModel is spec §3's WorkspaceModel record.
type WorkspaceModel struct {
	WorkspaceRoot string
	BuildSystem   BuildSystem
	Java          JavaConfig
	Modules       []Module
}

// ProjectConfig is the flattened, backward-compatible view spec §4.4
// requires alongside the structured WorkspaceModel — a single classpath and
// source-root list across every module, for callers that don't care about
// module boundaries.
type ProjectConfig struct {
	Root        string
	SourceRoots []string
	OutputDirs  []string
	Classpath   []string
	Java        JavaConfig
}

// Flatten produces the backward-compatible ProjectConfig view of a
// WorkspaceModel.
func (w *WorkspaceModel) Flatten() ProjectConfig {
	cfg := ProjectConfig{Root: w.WorkspaceRoot, Java: w.Java}
	seenSrc := map[string]bool{}
	seenOut := map[string]bool{}
	seenCP := map[string]bool{}
	for _, m := range w.Modules {
		for _, s := range m.SourceRoots {
			if !seenSrc[s] {
				seenSrc[s] = true
				cfg.SourceRoots = append(cfg.SourceRoots, s)
			}
		}
		for _, o := range m.OutputDirs {
			if !seenOut[o] {
				seenOut[o] = true
				cfg.OutputDirs = append(cfg.OutputDirs, o)
			}
		}
		for _, c := range m.Classpath {
			if !seenCP[c] {
				seenCP[c] = true
				cfg.Classpath = append(cfg.Classpath, c)
			}
		}
	}
	sort.Strings(cfg.SourceRoots)
	sort.Strings(cfg.OutputDirs)
	sort.Strings(cfg.Classpath)
	return cfg
}

// LoadOptions re-exports nova/config's options so callers only need to
// import one package for discovery.
type LoadOptions = config.LoadOptions
