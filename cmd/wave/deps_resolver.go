package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"wave/interpreter-go/pkg/driver"
)

type resolvedPackage struct {
	pkg      *driver.LockedPackage
	manifest *driver.Manifest
	root     string
}

// dependencyInstaller resolves a manifest's dependency graph into
// locked packages, fetching git sources into the cache and linking
// path sources in place. One installer serves one Install call chain.
type dependencyInstaller struct {
	manifest     *driver.Manifest
	manifestRoot string
	cacheDir     string
	logs         []string
	git          *gitFetcher
	resolved     map[string]*driver.LockedPackage
	aliases      map[string]string
	resolving    map[string]bool
}

func newDependencyInstaller(manifest *driver.Manifest, cacheDir string) *dependencyInstaller {
	var root string
	if manifest != nil {
		root = filepath.Dir(manifest.Path)
	}
	return &dependencyInstaller{
		manifest:     manifest,
		manifestRoot: root,
		cacheDir:     cacheDir,
		logs:         []string{},
		git:          newGitFetcher(cacheDir),
		resolved:     make(map[string]*driver.LockedPackage),
		aliases:      make(map[string]string),
		resolving:    make(map[string]bool),
	}
}

// Install resolves every manifest dependency, replaces lock.Packages
// with the resolved set, and reports whether that set differs from
// what the lockfile held before.
func (d *dependencyInstaller) Install(lock *driver.Lockfile) (bool, []string, error) {
	if d.manifest == nil {
		return false, d.logs, nil
	}

	d.resolved = make(map[string]*driver.LockedPackage)
	d.aliases = make(map[string]string)
	d.resolving = make(map[string]bool)

	names := make([]string, 0, len(d.manifest.Dependencies))
	for name := range d.manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dep := d.manifest.Dependencies[name]
		if dep == nil {
			return false, d.logs, fmt.Errorf("dependency %q has no descriptor", name)
		}
		if err := d.installDependency(name, cloneDependency(dep)); err != nil {
			return false, d.logs, err
		}
	}

	desired := make([]*driver.LockedPackage, 0, len(d.resolved))
	for _, pkg := range d.resolved {
		if pkg == nil {
			continue
		}
		desired = append(desired, pkg)
	}
	sort.SliceStable(desired, func(i, j int) bool {
		if desired[i].Name == desired[j].Name {
			return desired[i].Version < desired[j].Version
		}
		return desired[i].Name < desired[j].Name
	})

	existing := make(map[string]*driver.LockedPackage, len(lock.Packages))
	for _, pkg := range lock.Packages {
		if pkg == nil {
			continue
		}
		existing[pkg.Name] = pkg
	}

	changed := len(desired) != len(existing)
	for _, pkg := range desired {
		if current, ok := existing[pkg.Name]; ok {
			if !lockedPackageEqual(current, pkg) {
				changed = true
			}
		} else {
			changed = true
		}
	}

	lock.Packages = desired
	return changed, d.logs, nil
}

func (d *dependencyInstaller) installDependency(name string, dep *driver.Dependency) error {
	if dep == nil {
		return fmt.Errorf("dependency %q has no descriptor", name)
	}
	alias := sanitizeName(name)
	if canonical, ok := d.aliases[alias]; ok {
		if _, exists := d.resolved[canonical]; exists {
			return nil
		}
	}
	if d.resolving[alias] {
		return fmt.Errorf("dependency cycle detected at %s", alias)
	}
	d.resolving[alias] = true
	defer delete(d.resolving, alias)

	resolved, err := d.resolveDependency(name, dep)
	if err != nil {
		return err
	}
	if resolved == nil || resolved.pkg == nil {
		return nil
	}

	pkg := resolved.pkg
	canonical := pkg.Name
	if canonical == "" {
		canonical = alias
		pkg.Name = alias
	}
	d.aliases[alias] = canonical
	if _, exists := d.resolved[canonical]; exists {
		return nil
	}

	pkg.Dependencies = nil
	if resolved.manifest != nil && len(resolved.manifest.Dependencies) > 0 {
		childNames := make([]string, 0, len(resolved.manifest.Dependencies))
		for childName := range resolved.manifest.Dependencies {
			childNames = append(childNames, childName)
		}
		sort.Strings(childNames)

		seen := make(map[string]struct{}, len(childNames))
		for _, childName := range childNames {
			childDep := cloneDependency(resolved.manifest.Dependencies[childName])
			if childDep == nil {
				return fmt.Errorf("dependency %s lists %s without descriptor", pkg.Name, childName)
			}
			if childDep.Path != "" && !filepath.IsAbs(childDep.Path) {
				base := resolved.root
				if base == "" {
					base = d.manifestRoot
				}
				if base != "" {
					childDep.Path = filepath.Clean(filepath.Join(base, childDep.Path))
				}
			}
			if err := d.installDependency(childName, childDep); err != nil {
				return err
			}
			childAlias := sanitizeName(childName)
			canonicalChild := d.aliases[childAlias]
			if canonicalChild == "" {
				canonicalChild = childAlias
			}
			childPkg, ok := d.resolved[canonicalChild]
			if !ok {
				return fmt.Errorf("resolved child package %s missing from cache", childName)
			}
			if _, dup := seen[childPkg.Name]; dup {
				continue
			}
			seen[childPkg.Name] = struct{}{}
			pkg.Dependencies = append(pkg.Dependencies, driver.LockedDependency{
				Name:    childPkg.Name,
				Version: childPkg.Version,
			})
		}
		sort.SliceStable(pkg.Dependencies, func(i, j int) bool {
			if pkg.Dependencies[i].Name == pkg.Dependencies[j].Name {
				return pkg.Dependencies[i].Version < pkg.Dependencies[j].Version
			}
			return pkg.Dependencies[i].Name < pkg.Dependencies[j].Name
		})
	}

	d.resolved[canonical] = pkg
	return nil
}

func (d *dependencyInstaller) resolveDependency(name string, dep *driver.Dependency) (*resolvedPackage, error) {
	if dep.Path != "" {
		return d.resolvePathDependency(name, dep)
	}
	if dep.Git != "" {
		return d.resolveGitDependency(name, dep)
	}
	if dep.Version != "" {
		return nil, fmt.Errorf("dependency %q: version-only dependencies need a package registry; none is configured (use path or git)", name)
	}
	return nil, fmt.Errorf("dependency %q: unsupported descriptor", name)
}

func (d *dependencyInstaller) resolvePathDependency(name string, dep *driver.Dependency) (*resolvedPackage, error) {
	pathSpec := dep.Path
	if !filepath.IsAbs(pathSpec) {
		pathSpec = filepath.Join(d.manifestRoot, pathSpec)
	}
	abs, err := filepath.Abs(pathSpec)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: resolve path %q: %w", name, dep.Path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: stat %s: %w", name, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dependency %q: expected directory at %s", name, abs)
	}

	manifestPath := filepath.Join(abs, driver.ManifestFileName)
	depManifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: load manifest %s: %w", name, manifestPath, err)
	}

	version := strings.TrimSpace(depManifest.Version)
	if version == "" {
		version = "0.0.0-dev"
	}
	pkgName := depManifest.Name
	if pkgName == "" {
		pkgName = sanitizeName(name)
	}

	d.logs = append(d.logs, fmt.Sprintf("linked %s %s (%s)", pkgName, version, d.displayPath(abs)))

	// Path dependencies stay editable in place, so no checksum pins them.
	lock := &driver.LockedPackage{
		Name:    pkgName,
		Version: version,
		Source:  fmt.Sprintf("path:%s", abs),
	}
	return &resolvedPackage{
		pkg:      lock,
		manifest: depManifest,
		root:     abs,
	}, nil
}

func (d *dependencyInstaller) resolveGitDependency(name string, dep *driver.Dependency) (*resolvedPackage, error) {
	if d.git == nil {
		return nil, fmt.Errorf("dependency %q: git support unavailable", name)
	}
	result, err := d.git.Fetch(name, dep)
	if err != nil {
		return nil, err
	}
	d.logs = append(d.logs, fmt.Sprintf("fetched git dependency %s (%s)", result.Name, result.Version))

	rootDir := filepath.Join(d.git.cacheDir, "pkg", "src", sanitizeName(name), sanitizePathSegment(result.Version))
	manifestPath := filepath.Join(rootDir, driver.ManifestFileName)
	var manifest *driver.Manifest
	if data, err := driver.LoadManifest(manifestPath); err == nil {
		manifest = data
		if manifest.Name != "" {
			result.Name = sanitizeName(manifest.Name)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("dependency %q: load manifest %s: %w", name, manifestPath, err)
	}
	return &resolvedPackage{
		pkg:      result,
		manifest: manifest,
		root:     rootDir,
	}, nil
}

func (d *dependencyInstaller) displayPath(path string) string {
	if d.manifestRoot != "" {
		if rel, err := filepath.Rel(d.manifestRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return path
}

func lockedPackageEqual(a, b *driver.LockedPackage) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Version != b.Version || a.Source != b.Source || a.Checksum != b.Checksum {
		return false
	}
	if len(a.Dependencies) != len(b.Dependencies) {
		return false
	}
	for i := range a.Dependencies {
		if a.Dependencies[i].Name != b.Dependencies[i].Name || a.Dependencies[i].Version != b.Dependencies[i].Version {
			return false
		}
	}
	return true
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.ReplaceAll(name, "-", "_")
}

func cloneDependency(dep *driver.Dependency) *driver.Dependency {
	if dep == nil {
		return nil
	}
	clone := *dep
	return &clone
}

type gitFetcher struct {
	cacheDir string
}

func newGitFetcher(cacheDir string) *gitFetcher {
	if cacheDir == "" {
		return nil
	}
	return &gitFetcher{cacheDir: cacheDir}
}

// Fetch clones the dependency's repository into the cache, pinned to
// the requested ref (or HEAD), and returns the locked entry with the
// checkout's checksum.
func (g *gitFetcher) Fetch(name string, dep *driver.Dependency) (*driver.LockedPackage, error) {
	if g == nil {
		return nil, errors.New("git fetcher unavailable")
	}
	url := strings.TrimSpace(dep.Git)
	if url == "" {
		return nil, fmt.Errorf("dependency %q: git URL required", name)
	}

	baseDir := filepath.Join(g.cacheDir, "pkg", "src", sanitizeName(name))
	version, commit, err := ensureGitCheckout(baseDir, url, dep.Ref)
	if err != nil {
		return nil, err
	}

	checkoutDir := filepath.Join(baseDir, sanitizePathSegment(version))
	checksum, err := dirChecksum(checkoutDir)
	if err != nil {
		return nil, err
	}

	return &driver.LockedPackage{
		Name:     sanitizeName(name),
		Version:  version,
		Source:   fmt.Sprintf("git+%s@%s", url, commit),
		Checksum: checksum,
	}, nil
}

// ensureGitCheckout materializes url@ref under baseDir and returns the
// pinned version label plus the resolved commit hash. A ref that is
// already a full commit hash reuses an existing checkout without
// touching the network; anything else (tag, branch, empty for HEAD)
// has to be resolved against a fresh clone.
func ensureGitCheckout(baseDir, url, ref string) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	descriptor := strings.TrimSpace(ref)
	revision := plumbing.Revision(descriptor)
	if descriptor == "" {
		revision = plumbing.Revision("HEAD")
	}

	if isCommitHash(descriptor) {
		existing := filepath.Join(baseDir, sanitizePathSegment(descriptor))
		if _, err := os.Stat(existing); err == nil {
			return descriptor, descriptor, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	// PlainClone needs a path that does not exist yet; MkdirTemp only
	// reserved a unique name.
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{URL: url})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

func isCommitHash(ref string) bool {
	if len(ref) != 40 {
		return false
	}
	for _, r := range ref {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// gitPinnedVersion labels a checkout: a symbolic ref keeps its name
// alongside the commit it resolved to, a bare commit stands alone.
func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

// dirChecksum hashes every regular file under path, name then
// contents. The .git directory is skipped so re-clones of the same
// commit agree on the digest.
func dirChecksum(path string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.Base(p)))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	result := b.String()
	if result == "" {
		return "head"
	}
	return result
}
