package gradle

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nova-ide/nova/nova/workspace"
)

// catalog is the resolved view of a gradle/libs.versions.toml: library
// aliases (the part after "libs." in generated accessors, dashes in place
// of dots) mapped to their coordinate.
type catalog struct {
	versions  map[string]string
	libraries map[string]workspace.DependencyCoordinate
}

func emptyCatalog() catalog {
	return catalog{versions: map[string]string{}, libraries: map[string]workspace.DependencyCoordinate{}}
}

// loadCatalog reads dir/gradle/libs.versions.toml, the default location for
// both the root build and any included build (spec §4.4). A missing
// catalog is not an error — not every Gradle project uses one.
func loadCatalog(dir string) catalog {
	path := filepath.Join(dir, "gradle", "libs.versions.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyCatalog()
	}
	return parseCatalog(string(data))
}

var (
	reTOMLSection  = regexp.MustCompile(`^\[([\w.]+)\]\s*$`)
	reTOMLKeyValue = regexp.MustCompile(`^([\w.\-]+)\s*=\s*(.+)$`)
	reTOMLString   = regexp.MustCompile(`^"([^"]*)"$`)
)

// parseCatalog is a small line-oriented TOML scanner, in the same register
// as the rest of this package's regexp-driven build-script scanning: no
// TOML library in the retrieved pack fits a file this shape any better than
// a dedicated line scanner would (see DESIGN.md).
func parseCatalog(text string) catalog {
	c := emptyCatalog()
	section := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := reTOMLSection.FindStringSubmatch(line); m != nil {
			section = m[1]
			continue
		}
		m := reTOMLKeyValue.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key, value := m[1], strings.TrimSpace(m[2])
		switch section {
		case "versions":
			if sv := reTOMLString.FindStringSubmatch(value); sv != nil {
				c.versions[key] = sv[1]
			}
		case "libraries":
			if dc, ok := parseCatalogLibrary(value, c.versions); ok {
				c.libraries[strings.ReplaceAll(key, ".", "-")] = dc
			}
		}
	}
	return c
}

var reInlineTable = regexp.MustCompile(`\{([^}]*)\}`)

// parseCatalogLibrary handles both shorthand ("group:artifact:1.2.3") and
// inline-table ({ module = "group:artifact", version.ref = "name" } or
// { group = "...", name = "...", version = "..." }) library entries.
func parseCatalogLibrary(value string, versions map[string]string) (workspace.DependencyCoordinate, bool) {
	if sv := reTOMLString.FindStringSubmatch(value); sv != nil {
		parts := strings.Split(sv[1], ":")
		if len(parts) == 3 {
			return workspace.DependencyCoordinate{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}, true
		}
		return workspace.DependencyCoordinate{}, false
	}
	m := reInlineTable.FindStringSubmatch(value)
	if m == nil {
		return workspace.DependencyCoordinate{}, false
	}
	fields := map[string]string{}
	for _, kv := range strings.Split(m[1], ",") {
		kvm := reTOMLKeyValue.FindStringSubmatch(strings.TrimSpace(kv))
		if kvm == nil {
			continue
		}
		fv := strings.TrimSpace(kvm[2])
		if sv := reTOMLString.FindStringSubmatch(fv); sv != nil {
			fields[kvm[1]] = sv[1]
		}
	}
	var dc workspace.DependencyCoordinate
	if mod, ok := fields["module"]; ok {
		parts := strings.SplitN(mod, ":", 2)
		if len(parts) == 2 {
			dc.GroupID, dc.ArtifactID = parts[0], parts[1]
		}
	} else {
		dc.GroupID = fields["group"]
		dc.ArtifactID = fields["name"]
	}
	if v, ok := fields["version"]; ok {
		dc.Version = v
	} else if ref, ok := fields["version.ref"]; ok {
		dc.Version = versions[ref]
	}
	if dc.GroupID == "" || dc.ArtifactID == "" {
		return dc, false
	}
	return dc, true
}
