package workspace

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Loader resolves a discovered build-system root into a WorkspaceModel.
// nova/workspace/maven and nova/workspace/gradle each register themselves
// via Register from an init(), the way database/sql drivers register
// themselves — this keeps the build-system-specific packages (which need
// to import WorkspaceModel/Module) from creating an import cycle back into
// this package. Callers that want build-system support must blank-import
// the relevant package, exactly as nova/logging blank-imports
// commonlog/simple.
type Loader func(dir string, opts LoadOptions) (*WorkspaceModel, error)

var loaders = map[BuildSystem]Loader{}

// Register installs loader as the handler for bs. Intended to be called
// from the registering package's init().
func Register(bs BuildSystem, loader Loader) {
	loaders[bs] = loader
}

// Detect inspects dir for Maven or Gradle build files, per spec §4.4's
// input contract.
func Detect(dir string) (BuildSystem, bool) {
	if exists(filepath.Join(dir, "pom.xml")) {
		return BuildSystemMaven, true
	}
	for _, name := range []string{"settings.gradle", "settings.gradle.kts", "build.gradle", "build.gradle.kts"} {
		if exists(filepath.Join(dir, name)) {
			return BuildSystemGradle, true
		}
	}
	return 0, false
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load discovers and resolves the workspace rooted at dir, dispatching to
// whichever build-system loader Detect identifies (spec §4.4). Load is
// deterministic: given an unchanged filesystem, two calls produce an
// equal model (spec §3 invariant) — neither loader does anything
// network-dependent or time-dependent.
func Load(dir string, opts LoadOptions) (*WorkspaceModel, error) {
	bs, ok := Detect(dir)
	if !ok {
		return nil, errors.Errorf("no Maven or Gradle project found under %s", dir)
	}
	loader, ok := loaders[bs]
	if !ok {
		return nil, errors.Errorf("no loader registered for build system %s (forgot to import nova/workspace/%s?)", bs, bs)
	}
	return loader(dir, opts)
}

// BuildFiles lists the build-relevant files under a discovered root, for
// fingerprint-based cache invalidation (spec §4.4): for Maven only the root
// pom.xml (module and parent POMs are not listed), or the settings/build
// scripts and version catalog for Gradle.
func BuildFiles(dir string, bs BuildSystem) []string {
	var out []string
	switch bs {
	case BuildSystemMaven:
		candidates := []string{"pom.xml"}
		for _, c := range candidates {
			if p := filepath.Join(dir, c); exists(p) {
				out = append(out, p)
			}
		}
	case BuildSystemGradle:
		candidates := []string{
			"settings.gradle", "settings.gradle.kts",
			"build.gradle", "build.gradle.kts",
			filepath.Join("gradle", "libs.versions.toml"),
		}
		for _, c := range candidates {
			if p := filepath.Join(dir, c); exists(p) {
				out = append(out, p)
			}
		}
	}
	return out
}
