package maven

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

func TestLoadSingleModuleWithProperties(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pom.xml"), `<project>
  <groupId>com.example</groupId>
  <artifactId>app</artifactId>
  <version>1.0.0</version>
  <properties>
    <maven.compiler.source>17</maven.compiler.source>
    <maven.compiler.target>17</maven.compiler.target>
    <guava.version>32.1.3-jre</guava.version>
  </properties>
  <dependencies>
    <dependency>
      <groupId>com.google.guava</groupId>
      <artifactId>guava</artifactId>
      <version>${guava.version}</version>
    </dependency>
  </dependencies>
</project>`)
	writeFile(t, filepath.Join(dir, "src", "main", "java", "Main.java"), "class Main {}")

	model, err := Load(dir, workspace.LoadOptions{MavenRepo: filepath.Join(dir, "repo")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(model.Modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(model.Modules))
	}
	m := model.Modules[0]
	if m.LanguageLevel.Source != "17" || m.LanguageLevel.Target != "17" {
		t.Fatalf("unexpected language level: %+v", m.LanguageLevel)
	}
	if len(m.Dependencies) != 1 || m.Dependencies[0].Version != "32.1.3-jre" {
		t.Fatalf("expected interpolated guava version, got %+v", m.Dependencies)
	}
}

func TestLoadMultiModuleWithParentAndProfile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pom.xml"), `<project>
  <groupId>com.example</groupId>
  <artifactId>parent</artifactId>
  <version>2.0.0</version>
  <packaging>pom</packaging>
  <modules><module>core</module></modules>
  <properties><shared.version>9.9</shared.version></properties>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>org.apache.commons</groupId>
        <artifactId>commons-lang3</artifactId>
        <version>3.14.0</version>
      </dependency>
    </dependencies>
  </dependencyManagement>
  <profiles>
    <profile>
      <id>always-on</id>
      <activation><activeByDefault>true</activeByDefault></activation>
      <dependencies>
        <dependency>
          <groupId>org.apache.commons</groupId>
          <artifactId>commons-lang3</artifactId>
        </dependency>
      </dependencies>
    </profile>
  </profiles>
</project>`)
	writeFile(t, filepath.Join(dir, "core", "pom.xml"), `<project>
  <parent>
    <groupId>com.example</groupId>
    <artifactId>parent</artifactId>
    <version>2.0.0</version>
    <relativePath>../pom.xml</relativePath>
  </parent>
  <artifactId>core</artifactId>
</project>`)
	writeFile(t, filepath.Join(dir, "core", "src", "main", "java", "Core.java"), "class Core {}")

	model, err := Load(dir, workspace.LoadOptions{MavenRepo: filepath.Join(dir, "repo")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(model.Modules) != 1 {
		t.Fatalf("expected 1 buildable module (root is packaging=pom), got %d: %+v", len(model.Modules), model.Modules)
	}
	core := model.Modules[0]
	if core.ID != "com.example:core" {
		t.Fatalf("expected inherited groupId, got %q", core.ID)
	}
	if len(core.Dependencies) != 1 {
		t.Fatalf("expected the default-active profile's dependency, got %+v", core.Dependencies)
	}
	if core.Dependencies[0].Version != "3.14.0" {
		t.Fatalf("expected managed version to fill in, got %+v", core.Dependencies[0])
	}
}

func TestLoadResolvesTransitiveDependencyFromLocalRepo(t *testing.T) {
	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")

	writeFile(t, filepath.Join(dir, "pom.xml"), `<project>
  <groupId>com.example</groupId>
  <artifactId>app</artifactId>
  <version>1.0.0</version>
  <dependencies>
    <dependency>
      <groupId>com.example</groupId>
      <artifactId>lib</artifactId>
      <version>1.2.3</version>
    </dependency>
  </dependencies>
</project>`)
	writeFile(t, filepath.Join(dir, "src", "main", "java", "Main.java"), "class Main {}")

	writeFile(t, filepath.Join(repo, "com", "example", "lib", "1.2.3", "lib-1.2.3.pom"), `<project>
  <groupId>com.example</groupId>
  <artifactId>lib</artifactId>
  <version>1.2.3</version>
  <dependencies>
    <dependency>
      <groupId>com.example</groupId>
      <artifactId>transitive-dep</artifactId>
      <version>4.5.6</version>
    </dependency>
    <dependency>
      <groupId>com.example</groupId>
      <artifactId>test-only-dep</artifactId>
      <version>9.9.9</version>
      <scope>test</scope>
    </dependency>
  </dependencies>
</project>`)

	model, err := Load(dir, workspace.LoadOptions{MavenRepo: repo})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	deps := model.Modules[0].Dependencies

	find := func(artifactID string) (workspace.DependencyCoordinate, bool) {
		for _, d := range deps {
			if d.ArtifactID == artifactID {
				return d, true
			}
		}
		return workspace.DependencyCoordinate{}, false
	}

	if _, ok := find("lib"); !ok {
		t.Fatalf("expected direct dependency lib in %+v", deps)
	}
	transitive, ok := find("transitive-dep")
	if !ok {
		t.Fatalf("expected transitive-dep pulled in from lib's POM, got %+v", deps)
	}
	if transitive.Version != "4.5.6" {
		t.Fatalf("expected transitive-dep version 4.5.6, got %q", transitive.Version)
	}
	if _, ok := find("test-only-dep"); ok {
		t.Fatalf("test-scoped transitive dependency of a compile-scope dependency should not propagate, got %+v", deps)
	}
}

func TestLoadIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pom.xml"), `<project>
  <groupId>g</groupId><artifactId>a</artifactId><version>1</version>
</project>`)
	opts := workspace.LoadOptions{MavenRepo: filepath.Join(dir, "repo")}
	a, err := Load(dir, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Load(dir, opts)
	if err != nil {
		t.Fatal(err)
	}
	if a.Modules[0].ID != b.Modules[0].ID || len(a.Modules) != len(b.Modules) {
		t.Fatalf("expected deterministic load, got %+v vs %+v", a, b)
	}
}
