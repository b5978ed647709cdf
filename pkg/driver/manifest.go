package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the project manifest the CLI discovers by walking
// up from the working directory.
const ManifestFileName = "package.yml"

// DefaultEntryFunction is the function `wave run` invokes when the
// manifest declares no override.
const DefaultEntryFunction = "main"

// Manifest represents the parsed contents of package.yml.
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Entry        string
	Targets      map[string]*Target
	TargetOrder  []string
	Dependencies map[string]*Dependency

	targetEntries []manifestTargetEntry
}

// Target names one runnable program of the project. Main is the source
// path relative to the manifest directory unless absolute.
type Target struct {
	Name         string
	OriginalName string
	Main         string

	line int
}

// Dependency is one entry of the dependencies mapping. Exactly one
// source among Version, Git, and Path applies; Ref pins a git source
// to a tag, branch, or commit.
type Dependency struct {
	Version string
	Git     string
	Ref     string
	Path    string

	line int
}

type manifestTargetEntry struct {
	sanitized string
	spec      *Target
}

// ValidationError aggregates every problem found in one manifest.
// Issues carry the YAML line of the offending entry when the decoder
// recorded one.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses package.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", abs, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", abs)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", abs, err)
	}

	manifest := raw.toManifest(abs)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

var entryNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Entry != "" && !entryNamePattern.MatchString(m.Entry) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("entry %q is not a valid function name", m.Entry))
	}

	targetNames := make(map[string]string, len(m.targetEntries))
	for _, entry := range m.targetEntries {
		target := entry.spec
		if target == nil {
			continue
		}
		if target.OriginalName == "" {
			errs.Issues = append(errs.Issues, "targets must not use empty keys")
			continue
		}
		if other, exists := targetNames[entry.sanitized]; exists {
			errs.Issues = append(errs.Issues, fmt.Sprintf("targets %q and %q collide after sanitization", other, target.OriginalName))
		} else {
			targetNames[entry.sanitized] = target.OriginalName
		}
		switch {
		case target.Main == "":
			errs.Issues = append(errs.Issues, issueAt(target.line, fmt.Sprintf("target %q requires a main source path", target.OriginalName)))
		case !strings.HasSuffix(target.Main, SourceExtension):
			errs.Issues = append(errs.Issues, issueAt(target.line, fmt.Sprintf("target %q main %q must point to a %s file", target.OriginalName, target.Main, SourceExtension)))
		}
	}

	for depName, dep := range m.Dependencies {
		if dep == nil {
			continue
		}
		for _, issue := range dep.validate() {
			errs.Issues = append(errs.Issues, issueAt(dep.line, fmt.Sprintf("dependencies.%s: %s", depName, issue)))
		}
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func issueAt(line int, msg string) string {
	if line > 0 {
		return fmt.Sprintf("line %d: %s", line, msg)
	}
	return msg
}

func (d *Dependency) validate() []string {
	var errs []string
	if d == nil {
		return errs
	}

	if d.Path != "" && (d.Version != "" || d.Git != "") {
		errs = append(errs, "path dependencies cannot also specify version or git")
	}
	if d.Git != "" && d.Version != "" {
		errs = append(errs, "git dependencies cannot also specify version")
	}
	if d.Ref != "" && d.Git == "" {
		errs = append(errs, "ref applies only to git dependencies")
	}

	if d.Version == "" && d.Git == "" && d.Path == "" {
		errs = append(errs, "must specify version, git, or path")
	}

	if d.Version != "" && !isValidVersionConstraint(d.Version) {
		errs = append(errs, fmt.Sprintf("invalid version constraint %q", d.Version))
	}
	return errs
}

var versionConstraintPattern = regexp.MustCompile(`^(~>|>=|<=|>|<|=|\^)?\s*[0-9]+(\.[0-9]+){0,2}([0-9A-Za-z\-\+\.]*)?$`)

func isValidVersionConstraint(input string) bool {
	s := strings.TrimSpace(input)
	if s == "" {
		return false
	}
	if s == "*" {
		return true
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || !versionConstraintPattern.MatchString(part) {
			return false
		}
	}
	return true
}

var ErrNoTargets = errors.New("manifest: no targets defined")

// DefaultTarget returns the first target in manifest declaration order.
func (m *Manifest) DefaultTarget() (*Target, error) {
	if m == nil {
		return nil, ErrNoTargets
	}
	for _, entry := range m.targetEntries {
		if entry.spec != nil {
			return entry.spec, nil
		}
	}
	return nil, ErrNoTargets
}

// FindTarget looks up a target by sanitized or original name.
func (m *Manifest) FindTarget(name string) (*Target, bool) {
	if m == nil {
		return nil, false
	}
	key := sanitizeSegment(strings.TrimSpace(name))
	if key != "" {
		if target, ok := m.Targets[key]; ok && target != nil {
			return target, true
		}
	}
	for _, entry := range m.targetEntries {
		if entry.spec == nil {
			continue
		}
		if strings.EqualFold(entry.spec.OriginalName, strings.TrimSpace(name)) {
			return entry.spec, true
		}
	}
	return nil, false
}

// EntryFunction is the function name `wave run` invokes: the manifest's
// entry override when present, otherwise main.
func (m *Manifest) EntryFunction() string {
	if m == nil || m.Entry == "" {
		return DefaultEntryFunction
	}
	return m.Entry
}

type manifestFile struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	Entry        string        `yaml:"entry"`
	Targets      targetMap     `yaml:"targets"`
	Dependencies dependencyMap `yaml:"dependencies"`
}

// targetYAML is the mapping form of a target value. A plain scalar is
// shorthand for { main: <scalar> }.
type targetYAML struct {
	Main string `yaml:"main"`
}

type targetMap struct {
	items []targetMapEntry
}

type targetMapEntry struct {
	name string
	line int
	main string
}

func (tm *targetMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		tm.items = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: targets must be a mapping")
	}
	items := make([]targetMapEntry, 0, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valueNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: targets must not use empty keys")
		}

		entry := targetMapEntry{name: key, line: keyNode.Line}
		switch valueNode.Kind {
		case yaml.ScalarNode:
			entry.main = strings.TrimSpace(valueNode.Value)
		case yaml.MappingNode:
			var spec targetYAML
			if err := valueNode.Decode(&spec); err != nil {
				return fmt.Errorf("manifest: target %q: %w", key, err)
			}
			entry.main = strings.TrimSpace(spec.Main)
		default:
			return fmt.Errorf("manifest: target %q must be a path or a mapping", key)
		}
		items = append(items, entry)
	}
	tm.items = items
	return nil
}

type dependencyMap map[string]*Dependency

func (dm *dependencyMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		*dm = make(dependencyMap)
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: dependencies must be a mapping")
	}
	result := make(dependencyMap, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: dependency names must be non-empty")
		}
		var dep Dependency
		if err := dep.unmarshalYAML(valNode); err != nil {
			return fmt.Errorf("manifest: dependency %q: %w", key, err)
		}
		dep.line = keyNode.Line
		result[key] = &dep
	}
	*dm = result
	return nil
}

func (d *Dependency) unmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*d = Dependency{}
			return nil
		}
		*d = Dependency{Version: strings.TrimSpace(value.Value)}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Version string `yaml:"version"`
			Git     string `yaml:"git"`
			Ref     string `yaml:"ref"`
			Path    string `yaml:"path"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*d = Dependency{
			Version: strings.TrimSpace(raw.Version),
			Git:     strings.TrimSpace(raw.Git),
			Ref:     strings.TrimSpace(raw.Ref),
			Path:    strings.TrimSpace(raw.Path),
		}
		return nil
	case yaml.AliasNode:
		return d.unmarshalYAML(value.Alias)
	default:
		return fmt.Errorf("expected string or mapping, found %s", value.ShortTag())
	}
}

func (mf manifestFile) toManifest(path string) *Manifest {
	capacity := len(mf.Targets.items)
	result := &Manifest{
		Path:          path,
		Name:          sanitizeSegment(strings.TrimSpace(mf.Name)),
		Version:       strings.TrimSpace(mf.Version),
		Entry:         strings.TrimSpace(mf.Entry),
		Targets:       make(map[string]*Target, capacity),
		TargetOrder:   make([]string, 0, capacity),
		Dependencies:  make(map[string]*Dependency, len(mf.Dependencies)),
		targetEntries: make([]manifestTargetEntry, 0, capacity),
	}

	for name, dep := range mf.Dependencies {
		if dep == nil {
			continue
		}
		clone := *dep
		result.Dependencies[name] = &clone
	}

	seen := make(map[string]struct{}, capacity)
	for _, item := range mf.Targets.items {
		original := strings.TrimSpace(item.name)
		if original == "" {
			continue
		}
		sanitized := sanitizeSegment(original)
		spec := &Target{
			Name:         sanitized,
			OriginalName: original,
			Main:         item.main,
			line:         item.line,
		}
		if _, exists := result.Targets[sanitized]; !exists {
			result.Targets[sanitized] = spec
		}
		if _, exists := seen[sanitized]; !exists {
			result.TargetOrder = append(result.TargetOrder, sanitized)
			seen[sanitized] = struct{}{}
		}
		result.targetEntries = append(result.targetEntries, manifestTargetEntry{
			sanitized: sanitized,
			spec:      spec,
		})
	}
	return result
}
