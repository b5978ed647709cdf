package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LockFileName is the resolved-dependency record written next to
// package.yml.
const LockFileName = "package.lock"

// Lockfile models the package.lock contents.
type Lockfile struct {
	Path      string
	Root      string
	Generated string
	Tool      string
	Packages  []*LockedPackage
}

// LockedPackage captures a single resolved dependency entry.
type LockedPackage struct {
	Name         string
	Version      string
	Source       string
	Checksum     string
	Dependencies []LockedDependency
}

// LockedDependency identifies an edge in the resolved graph.
type LockedDependency struct {
	Name    string
	Version string
}

// NewLockfile constructs a lockfile with metadata seeded for the
// provided root package.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{
		Root:      sanitizeSegment(root),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Tool:      strings.TrimSpace(tool),
		Packages:  []*LockedPackage{},
	}
}

// LoadLockfile parses package.lock from disk. A missing file surfaces
// as the os.Open error so callers can test with errors.Is(err,
// os.ErrNotExist) and seed a fresh lockfile.
func LoadLockfile(path string) (*Lockfile, error) {
	if path == "" {
		return nil, fmt.Errorf("lockfile: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw lockfileDoc
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", abs, err)
	}

	lock := raw.toLockfile()
	lock.Path = abs
	lock.normalize()
	return lock, nil
}

// WriteLockfile serialises the lockfile back to disk, refreshing
// metadata where it is missing.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nil lockfile")
	}
	if path == "" {
		if lock.Path == "" {
			return fmt.Errorf("lockfile: missing path")
		}
		path = lock.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}

	if lock.Generated == "" {
		lock.Generated = time.Now().UTC().Format(time.RFC3339)
	}
	lock.Path = abs
	lock.normalize()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(lock.toDoc()); err != nil {
		return fmt.Errorf("lockfile: marshal %s: %w", abs, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("lockfile: encoder close: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", abs, err)
	}
	return nil
}

func (l *Lockfile) normalize() {
	if l == nil {
		return
	}
	l.Root = sanitizeSegment(l.Root)
	l.Tool = strings.TrimSpace(l.Tool)
	sort.SliceStable(l.Packages, func(i, j int) bool {
		return l.Packages[i].Name < l.Packages[j].Name
	})
	for _, pkg := range l.Packages {
		pkg.normalize()
	}
}

func (p *LockedPackage) normalize() {
	if p == nil {
		return
	}
	p.Name = sanitizeSegment(p.Name)
	p.Version = strings.TrimSpace(p.Version)
	p.Source = strings.TrimSpace(p.Source)
	p.Checksum = strings.TrimSpace(p.Checksum)
	for i := range p.Dependencies {
		p.Dependencies[i].Name = sanitizeSegment(p.Dependencies[i].Name)
		p.Dependencies[i].Version = strings.TrimSpace(p.Dependencies[i].Version)
	}
	sort.SliceStable(p.Dependencies, func(i, j int) bool {
		if p.Dependencies[i].Name == p.Dependencies[j].Name {
			return p.Dependencies[i].Version < p.Dependencies[j].Version
		}
		return p.Dependencies[i].Name < p.Dependencies[j].Name
	})
}

type lockfileDoc struct {
	Root      string          `yaml:"root"`
	Generated string          `yaml:"generated"`
	Tool      string          `yaml:"tool"`
	Packages  []lockfileEntry `yaml:"packages"`
}

type lockfileEntry struct {
	Name         string         `yaml:"name"`
	Version      string         `yaml:"version"`
	Source       string         `yaml:"source"`
	Checksum     string         `yaml:"checksum"`
	Dependencies []lockfileEdge `yaml:"dependencies"`
}

type lockfileEdge struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

func (l *Lockfile) toDoc() lockfileDoc {
	pkgs := make([]lockfileEntry, 0, len(l.Packages))
	for _, pkg := range l.Packages {
		if pkg == nil {
			continue
		}
		deps := make([]lockfileEdge, 0, len(pkg.Dependencies))
		for _, dep := range pkg.Dependencies {
			deps = append(deps, lockfileEdge{Name: dep.Name, Version: dep.Version})
		}
		pkgs = append(pkgs, lockfileEntry{
			Name:         pkg.Name,
			Version:      pkg.Version,
			Source:       pkg.Source,
			Checksum:     pkg.Checksum,
			Dependencies: deps,
		})
	}
	return lockfileDoc{
		Root:      l.Root,
		Generated: l.Generated,
		Tool:      l.Tool,
		Packages:  pkgs,
	}
}

func (d lockfileDoc) toLockfile() *Lockfile {
	lock := &Lockfile{
		Root:      d.Root,
		Generated: strings.TrimSpace(d.Generated),
		Tool:      d.Tool,
		Packages:  make([]*LockedPackage, 0, len(d.Packages)),
	}
	for _, pkg := range d.Packages {
		deps := make([]LockedDependency, 0, len(pkg.Dependencies))
		for _, dep := range pkg.Dependencies {
			deps = append(deps, LockedDependency{Name: dep.Name, Version: dep.Version})
		}
		lock.Packages = append(lock.Packages, &LockedPackage{
			Name:         pkg.Name,
			Version:      pkg.Version,
			Source:       pkg.Source,
			Checksum:     pkg.Checksum,
			Dependencies: deps,
		})
	}
	return lock
}
