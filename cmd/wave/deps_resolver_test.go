package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"wave/interpreter-go/pkg/driver"
)

func initGitRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == filepath.Join(dir, ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if _, err := worktree.Add(rel); err != nil {
			return err
		}
		return nil
	}); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Wave CLI",
			Email: "wave@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func TestDependencyInstaller_PathDependency(t *testing.T) {
	root := t.TempDir()
	mainDir := filepath.Join(root, "app")
	depDir := filepath.Join(root, "dep")
	for _, dir := range []string{mainDir, depDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	writeFile(t, filepath.Join(mainDir, "package.yml"), `
name: app
version: 0.1.0
dependencies:
  dep:
    path: ../dep
`)
	writeFile(t, filepath.Join(depDir, "package.yml"), `
name: dep
version: 0.2.0
`)

	manifest, err := driver.LoadManifest(filepath.Join(mainDir, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	lock := driver.NewLockfile(manifest.Name, cliToolVersion)
	installer := newDependencyInstaller(manifest, filepath.Join(root, "cache"))

	changed, logs, err := installer.Install(lock)
	if err != nil {
		t.Fatalf("Install returned error: %v", err)
	}
	if !changed {
		t.Fatalf("expected lockfile to change for new dependency")
	}
	if len(logs) != 1 || !strings.Contains(logs[0], "linked dep 0.2.0") {
		t.Fatalf("unexpected logs: %#v", logs)
	}
	if len(lock.Packages) != 1 {
		t.Fatalf("lock packages = %#v", lock.Packages)
	}
	pkg := lock.Packages[0]
	if pkg.Name != "dep" || pkg.Version != "0.2.0" {
		t.Fatalf("lock entry unexpected: %#v", pkg)
	}
	if !strings.HasPrefix(pkg.Source, "path:") {
		t.Fatalf("expected path source, got %q", pkg.Source)
	}
	if pkg.Checksum != "" {
		t.Fatalf("path dependencies carry no checksum, got %q", pkg.Checksum)
	}
	if len(pkg.Dependencies) != 0 {
		t.Fatalf("expected no transitive dependencies, got %#v", pkg.Dependencies)
	}
}

func TestDependencyInstaller_TransitivePathDependencies(t *testing.T) {
	root := t.TempDir()
	mainDir := filepath.Join(root, "app")
	depDir := filepath.Join(root, "dep")
	subDir := filepath.Join(root, "sub")
	for _, dir := range []string{mainDir, depDir, subDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	writeFile(t, filepath.Join(mainDir, "package.yml"), `
name: app
version: 0.1.0
dependencies:
  dep:
    path: ../dep
`)
	writeFile(t, filepath.Join(depDir, "package.yml"), `
name: dep
version: 1.0.0
dependencies:
  sub:
    path: ../sub
`)
	writeFile(t, filepath.Join(subDir, "package.yml"), `
name: sub
version: 2.0.0
`)

	manifest, err := driver.LoadManifest(filepath.Join(mainDir, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	lock := driver.NewLockfile(manifest.Name, cliToolVersion)
	installer := newDependencyInstaller(manifest, filepath.Join(root, "cache"))

	changed, _, err := installer.Install(lock)
	if err != nil {
		t.Fatalf("Install returned error: %v", err)
	}
	if !changed {
		t.Fatalf("expected lockfile to record new dependencies")
	}
	if len(lock.Packages) != 2 {
		t.Fatalf("expected two packages in lock, got %#v", lock.Packages)
	}
	first, second := lock.Packages[0], lock.Packages[1]
	if first.Name != "dep" || second.Name != "sub" {
		t.Fatalf("unexpected package ordering: %#v", lock.Packages)
	}
	if len(first.Dependencies) != 1 || first.Dependencies[0].Name != "sub" || first.Dependencies[0].Version != "2.0.0" {
		t.Fatalf("dep edge list incorrect: %#v", first.Dependencies)
	}
	if len(second.Dependencies) != 0 {
		t.Fatalf("sub should have no dependencies, got %#v", second.Dependencies)
	}
}

func TestDependencyInstaller_DependencyCycle(t *testing.T) {
	root := t.TempDir()
	aDir := filepath.Join(root, "a")
	bDir := filepath.Join(root, "b")
	for _, dir := range []string{aDir, bDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	writeFile(t, filepath.Join(aDir, "package.yml"), `
name: a
version: 1.0.0
dependencies:
  b:
    path: ../b
`)
	writeFile(t, filepath.Join(bDir, "package.yml"), `
name: b
version: 1.0.0
dependencies:
  a:
    path: ../a
`)

	manifest, err := driver.LoadManifest(filepath.Join(aDir, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	lock := driver.NewLockfile(manifest.Name, cliToolVersion)
	installer := newDependencyInstaller(manifest, filepath.Join(root, "cache"))

	_, _, err = installer.Install(lock)
	if err == nil {
		t.Fatalf("expected cycle detection error")
	}
	if !strings.Contains(err.Error(), "dependency cycle detected") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDependencyInstaller_VersionOnlyDependencyFails(t *testing.T) {
	root := t.TempDir()
	mainDir := filepath.Join(root, "app")
	if err := os.MkdirAll(mainDir, 0o755); err != nil {
		t.Fatalf("mkdir app: %v", err)
	}

	writeFile(t, filepath.Join(mainDir, "package.yml"), `
name: app
version: 0.1.0
dependencies:
  util: "1.0.0"
`)

	manifest, err := driver.LoadManifest(filepath.Join(mainDir, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	lock := driver.NewLockfile(manifest.Name, cliToolVersion)
	installer := newDependencyInstaller(manifest, filepath.Join(root, "cache"))

	_, _, err = installer.Install(lock)
	if err == nil {
		t.Fatalf("expected error for version-only dependency")
	}
	if !strings.Contains(err.Error(), "package registry") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDependencyInstaller_GitDependency(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	if err := os.MkdirAll(repo, 0o755); err != nil {
		t.Fatalf("mkdir repo: %v", err)
	}
	writeFile(t, filepath.Join(repo, "package.yml"), `
name: gitpkg
version: 0.2.0
`)
	writeFile(t, filepath.Join(repo, "lib.wave"), `
fun lib_value() -> i64 {
    return 7;
}
`)

	rev := initGitRepo(t, repo)

	mainDir := filepath.Join(root, "app")
	if err := os.MkdirAll(mainDir, 0o755); err != nil {
		t.Fatalf("mkdir app: %v", err)
	}
	writeFile(t, filepath.Join(mainDir, "package.yml"), `
name: app
version: 0.1.0
dependencies:
  gitpkg:
    git: `+repo+`
    ref: `+rev+`
`)

	manifest, err := driver.LoadManifest(filepath.Join(mainDir, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	cacheDir := filepath.Join(root, "cache")
	installer := newDependencyInstaller(manifest, cacheDir)
	lock := driver.NewLockfile(manifest.Name, cliToolVersion)

	changed, logs, err := installer.Install(lock)
	if err != nil {
		t.Fatalf("Install error: %v", err)
	}
	if !changed {
		t.Fatalf("expected lockfile change for git dependency")
	}
	if len(logs) != 1 || !strings.Contains(logs[0], "fetched git dependency gitpkg") {
		t.Fatalf("unexpected logs: %#v", logs)
	}
	if len(lock.Packages) != 1 {
		t.Fatalf("lock packages unexpected: %#v", lock.Packages)
	}
	pkg := lock.Packages[0]
	if pkg.Name != "gitpkg" {
		t.Fatalf("pkg.Name = %q, want gitpkg", pkg.Name)
	}
	if pkg.Version != rev {
		t.Fatalf("pkg.Version = %q, want %q", pkg.Version, rev)
	}
	if want := fmt.Sprintf("git+%s@%s", repo, rev); pkg.Source != want {
		t.Fatalf("pkg.Source = %q, want %q", pkg.Source, want)
	}
	if pkg.Checksum == "" {
		t.Fatalf("expected checksum for git dependency")
	}
	cached := filepath.Join(cacheDir, "pkg", "src", "gitpkg", sanitizePathSegment(pkg.Version))
	if _, err := os.Stat(filepath.Join(cached, "lib.wave")); err != nil {
		t.Fatalf("expected cached checkout at %s: %v", cached, err)
	}
}

func TestDependencyInstaller_GitDependencyBranch(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	if err := os.MkdirAll(repo, 0o755); err != nil {
		t.Fatalf("mkdir repo: %v", err)
	}
	writeFile(t, filepath.Join(repo, "package.yml"), `
name: gitpkg
version: 0.3.0
`)

	rev := initGitRepo(t, repo)

	mainDir := filepath.Join(root, "app")
	if err := os.MkdirAll(mainDir, 0o755); err != nil {
		t.Fatalf("mkdir app: %v", err)
	}
	writeFile(t, filepath.Join(mainDir, "package.yml"), `
name: app
version: 0.1.0
dependencies:
  gitpkg:
    git: `+repo+`
    ref: master
`)

	manifest, err := driver.LoadManifest(filepath.Join(mainDir, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	cacheDir := filepath.Join(root, "cache")
	installer := newDependencyInstaller(manifest, cacheDir)
	lock := driver.NewLockfile(manifest.Name, cliToolVersion)

	changed, _, err := installer.Install(lock)
	if err != nil {
		t.Fatalf("Install error: %v", err)
	}
	if !changed {
		t.Fatalf("expected lockfile change for git branch dependency")
	}
	if len(lock.Packages) != 1 {
		t.Fatalf("lock packages unexpected: %#v", lock.Packages)
	}
	pkg := lock.Packages[0]
	if want := fmt.Sprintf("master@%s", rev); pkg.Version != want {
		t.Fatalf("pkg.Version = %q, want %q", pkg.Version, want)
	}
	if want := fmt.Sprintf("git+%s@%s", repo, rev); pkg.Source != want {
		t.Fatalf("pkg.Source = %q, want %q", pkg.Source, want)
	}
	cached := filepath.Join(cacheDir, "pkg", "src", "gitpkg", sanitizePathSegment(pkg.Version))
	if _, err := os.Stat(cached); err != nil {
		t.Fatalf("expected cached checkout at %s: %v", cached, err)
	}
}

func TestDependencyInstaller_GitPinnedCheckoutReused(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	if err := os.MkdirAll(repo, 0o755); err != nil {
		t.Fatalf("mkdir repo: %v", err)
	}
	writeFile(t, filepath.Join(repo, "package.yml"), `
name: gitpkg
version: 0.4.0
`)

	rev := initGitRepo(t, repo)

	mainDir := filepath.Join(root, "app")
	if err := os.MkdirAll(mainDir, 0o755); err != nil {
		t.Fatalf("mkdir app: %v", err)
	}
	writeFile(t, filepath.Join(mainDir, "package.yml"), `
name: app
version: 0.1.0
dependencies:
  gitpkg:
    git: `+repo+`
    ref: `+rev+`
`)

	manifest, err := driver.LoadManifest(filepath.Join(mainDir, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	cacheDir := filepath.Join(root, "cache")
	lock := driver.NewLockfile(manifest.Name, cliToolVersion)

	if _, _, err := newDependencyInstaller(manifest, cacheDir).Install(lock); err != nil {
		t.Fatalf("first Install error: %v", err)
	}

	// A pinned commit already in the cache must not trigger a clone, so
	// removing the upstream repo proves the short-circuit.
	if err := os.RemoveAll(repo); err != nil {
		t.Fatalf("RemoveAll repo: %v", err)
	}

	changed, _, err := newDependencyInstaller(manifest, cacheDir).Install(lock)
	if err != nil {
		t.Fatalf("second Install error: %v", err)
	}
	if changed {
		t.Fatalf("expected lockfile to be stable on reinstall")
	}
}

func TestDepsInstallCommand(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "app")
	depDir := filepath.Join(root, "helper")
	for _, dir := range []string{project, depDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	writeFile(t, filepath.Join(project, "package.yml"), `
name: app
version: 0.1.0
dependencies:
  helper:
    path: ../helper
`)
	writeFile(t, filepath.Join(depDir, "package.yml"), `
name: helper
version: 0.1.0
`)

	t.Setenv("WAVE_HOME", filepath.Join(root, "cache"))
	t.Chdir(project)

	code, stdout, stderr := captureCLI(t, []string{"deps", "install"})
	if code != 0 {
		t.Fatalf("deps install exited %d (stderr: %q)", code, stderr)
	}
	for _, want := range []string{
		"Root package: app",
		"Dependencies: 1",
		"linked helper 0.1.0",
		"Created package.lock",
		"Dependencies installed.",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}

	lock, err := driver.LoadLockfile(filepath.Join(project, driver.LockFileName))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if len(lock.Packages) != 1 || lock.Packages[0].Name != "helper" {
		t.Fatalf("lock packages unexpected: %#v", lock.Packages)
	}

	code, stdout, stderr = captureCLI(t, []string{"deps", "install"})
	if code != 0 {
		t.Fatalf("second deps install exited %d (stderr: %q)", code, stderr)
	}
	if !strings.Contains(stdout, "already up to date") {
		t.Fatalf("expected up-to-date message, got:\n%s", stdout)
	}
}

func TestDepsUpdateRefreshesLock(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "app")
	depDir := filepath.Join(root, "helper")
	for _, dir := range []string{project, depDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	writeFile(t, filepath.Join(project, "package.yml"), `
name: app
version: 0.1.0
dependencies:
  helper:
    path: ../helper
`)
	writeFile(t, filepath.Join(depDir, "package.yml"), `
name: helper
version: 0.1.0
`)

	t.Setenv("WAVE_HOME", filepath.Join(root, "cache"))
	t.Chdir(project)

	if code, _, stderr := captureCLI(t, []string{"deps", "install"}); code != 0 {
		t.Fatalf("deps install exited %d (stderr: %q)", code, stderr)
	}

	writeFile(t, filepath.Join(depDir, "package.yml"), `
name: helper
version: 0.2.0
`)

	code, stdout, stderr := captureCLI(t, []string{"deps", "update"})
	if code != 0 {
		t.Fatalf("deps update exited %d (stderr: %q)", code, stderr)
	}
	if !strings.Contains(stdout, "Updated package.lock") {
		t.Fatalf("expected lock update message, got:\n%s", stdout)
	}

	lock, err := driver.LoadLockfile(filepath.Join(project, driver.LockFileName))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if len(lock.Packages) != 1 || lock.Packages[0].Version != "0.2.0" {
		t.Fatalf("lock packages unexpected: %#v", lock.Packages)
	}
}

func TestDepsUpdateUnknownDependencyFails(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	writeFile(t, filepath.Join(dir, "package.yml"), `
name: app
version: 0.1.0
`)

	code, _, stderr := captureCLI(t, []string{"deps", "update", "nope"})
	if code != 1 {
		t.Fatalf("deps update exited %d, want 1", code)
	}
	if !strings.Contains(stderr, `dependency "nope" not declared in manifest`) {
		t.Fatalf("unexpected error output: %q", stderr)
	}
}

func TestDepsRequiresSubcommand(t *testing.T) {
	code, _, stderr := captureCLI(t, []string{"deps"})
	if code != 2 {
		t.Fatalf("deps exited %d, want 2", code)
	}
	if !strings.Contains(stderr, "requires a subcommand") {
		t.Fatalf("unexpected error output: %q", stderr)
	}
}

func TestDirChecksumIgnoresGitDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha")

	before, err := dirChecksum(dir)
	if err != nil {
		t.Fatalf("dirChecksum: %v", err)
	}

	gitDir := filepath.Join(dir, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	writeFile(t, filepath.Join(gitDir, "config"), "noise")

	after, err := dirChecksum(dir)
	if err != nil {
		t.Fatalf("dirChecksum: %v", err)
	}
	if before != after {
		t.Fatalf("checksum changed when .git contents changed: %q vs %q", before, after)
	}

	writeFile(t, filepath.Join(dir, "a.txt"), "beta")
	mutated, err := dirChecksum(dir)
	if err != nil {
		t.Fatalf("dirChecksum: %v", err)
	}
	if mutated == before {
		t.Fatalf("checksum should change when tracked contents change")
	}
}

func TestGitPinnedVersion(t *testing.T) {
	cases := []struct {
		descriptor string
		commit     string
		want       string
	}{
		{descriptor: "", commit: "abc123", want: "abc123"},
		{descriptor: "abc123", commit: "abc123", want: "abc123"},
		{descriptor: "v1.2.0", commit: "abc123", want: "v1.2.0@abc123"},
		{descriptor: "main", commit: "", want: "main"},
	}
	for _, tc := range cases {
		if got := gitPinnedVersion(tc.descriptor, tc.commit); got != tc.want {
			t.Fatalf("gitPinnedVersion(%q, %q) = %q, want %q", tc.descriptor, tc.commit, got, tc.want)
		}
	}
}

func TestIsCommitHash(t *testing.T) {
	cases := []struct {
		ref  string
		want bool
	}{
		{ref: strings.Repeat("a", 40), want: true},
		{ref: strings.Repeat("0", 40), want: true},
		{ref: strings.Repeat("a", 39), want: false},
		{ref: strings.Repeat("A", 40), want: false},
		{ref: "main", want: false},
		{ref: "", want: false},
	}
	for _, tc := range cases {
		if got := isCommitHash(tc.ref); got != tc.want {
			t.Fatalf("isCommitHash(%q) = %v, want %v", tc.ref, got, tc.want)
		}
	}
}

func TestSanitizePathSegment(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "1.2.3", want: "1.2.3"},
		{in: "master@abc123", want: "master_abc123"},
		{in: "feature/x", want: "feature_x"},
		{in: "  ", want: "head"},
		{in: "", want: "head"},
	}
	for _, tc := range cases {
		if got := sanitizePathSegment(tc.in); got != tc.want {
			t.Fatalf("sanitizePathSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
