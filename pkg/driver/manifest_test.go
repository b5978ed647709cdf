package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadManifestBasic(t *testing.T) {
	path := writeManifest(t, `
name: wave-examples
version: "0.1.0"
entry: main
targets:
  primes: primes.wave
  factorial:
    main: factorial.wave
dependencies:
  mathkit: "~> 1.0.0"
  veclib:
    git: https://example.com/veclib.git
    ref: v0.3.0
  local-tools:
    path: ../tools
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}

	if got, want := manifest.Name, "wave_examples"; got != want {
		t.Fatalf("Name = %q, want %q", got, want)
	}
	if got := manifest.Version; got != "0.1.0" {
		t.Fatalf("Version = %q, want 0.1.0", got)
	}
	if got := manifest.EntryFunction(); got != "main" {
		t.Fatalf("EntryFunction = %q, want main", got)
	}

	primes, ok := manifest.Targets["primes"]
	if !ok || primes.Main != "primes.wave" {
		t.Fatalf("primes target not parsed: %#v", primes)
	}
	factorial, ok := manifest.Targets["factorial"]
	if !ok || factorial.Main != "factorial.wave" {
		t.Fatalf("factorial target not parsed: %#v", factorial)
	}
	if got := strings.Join(manifest.TargetOrder, ","); got != "primes,factorial" {
		t.Fatalf("TargetOrder unexpected: %s", got)
	}

	mathkit := manifest.Dependencies["mathkit"]
	if mathkit == nil || mathkit.Version != "~> 1.0.0" {
		t.Fatalf("mathkit dependency not parsed: %#v", mathkit)
	}
	veclib := manifest.Dependencies["veclib"]
	if veclib == nil || veclib.Git != "https://example.com/veclib.git" || veclib.Ref != "v0.3.0" {
		t.Fatalf("veclib dependency not parsed: %#v", veclib)
	}
	local := manifest.Dependencies["local-tools"]
	if local == nil || local.Path != "../tools" {
		t.Fatalf("local-tools dependency not parsed: %#v", local)
	}
}

func TestLoadManifestEntryOverride(t *testing.T) {
	path := writeManifest(t, `
name: demo
entry: start
targets:
  app: app.wave
`)
	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if got := manifest.EntryFunction(); got != "start" {
		t.Fatalf("EntryFunction = %q, want start", got)
	}

	bare, err := LoadManifest(writeManifest(t, `
name: demo
targets:
  app: app.wave
`))
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if got := bare.EntryFunction(); got != DefaultEntryFunction {
		t.Fatalf("EntryFunction = %q, want %q", got, DefaultEntryFunction)
	}
}

func TestLoadManifestValidation(t *testing.T) {
	path := writeManifest(t, `
name: ""
targets:
  cli: cli.wave
dependencies:
  util: {}
`)

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	msg := err.Error()
	wantFragments := []string{
		"name must be provided",
		"dependencies.util: must specify version, git, or path",
	}
	for _, fragment := range wantFragments {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("validation error missing fragment %q: %s", fragment, msg)
		}
	}
}

func TestLoadManifestValidationCarriesLines(t *testing.T) {
	path := writeManifest(t, `
name: demo
targets:
  app: ""
`)

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), `line 3: target "app" requires a main source path`) {
		t.Fatalf("expected line-tagged issue, got %v", err)
	}
}

func TestLoadManifestTargetExtension(t *testing.T) {
	path := writeManifest(t, `
name: demo
targets:
  app: main.txt
`)

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), `target "app" main "main.txt" must point to a .wave file`) {
		t.Fatalf("expected extension issue, got %v", err)
	}
}

func TestLoadManifestDependencyRules(t *testing.T) {
	path := writeManifest(t, `
name: demo
dependencies:
  pinned:
    ref: v1.0.0
  both:
    git: https://example.com/x.git
    version: "1.0.0"
  mixed:
    path: ../x
    git: https://example.com/x.git
`)

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	msg := err.Error()
	wantFragments := []string{
		"dependencies.pinned: ref applies only to git dependencies",
		"dependencies.both: git dependencies cannot also specify version",
		"dependencies.mixed: path dependencies cannot also specify version or git",
	}
	for _, fragment := range wantFragments {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("validation error missing fragment %q: %s", fragment, msg)
		}
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	path := writeManifest(t, `
name: demo
autor: someone
`)

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("expected decode error, got nil")
	}
	if !strings.Contains(err.Error(), "field autor not found") {
		t.Fatalf("expected strict-field error, got %v", err)
	}
}

func TestLoadManifestRejectsBadEntryName(t *testing.T) {
	path := writeManifest(t, `
name: demo
entry: 7start
`)

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), `entry "7start" is not a valid function name`) {
		t.Fatalf("expected entry-name issue, got %v", err)
	}
}

func TestLoadManifestEmptyFile(t *testing.T) {
	path := writeManifest(t, "")

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("expected error for empty manifest, got nil")
	}
	if !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty-manifest error, got %v", err)
	}
}

func TestManifestDefaultTarget(t *testing.T) {
	path := writeManifest(t, `
name: demo
targets:
  app-server: app.wave
  audit: audit.wave
  Worker: worker.wave
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest error: %v", err)
	}

	target, err := manifest.DefaultTarget()
	if err != nil {
		t.Fatalf("DefaultTarget returned error: %v", err)
	}
	if target.OriginalName != "app-server" {
		t.Fatalf("DefaultTarget = %q, want app-server", target.OriginalName)
	}
	if target.Main != "app.wave" {
		t.Fatalf("Default target main mismatch: %s", target.Main)
	}

	wantOrder := []string{"app_server", "audit", "Worker"}
	if got := manifest.TargetOrder; len(got) != len(wantOrder) {
		t.Fatalf("TargetOrder length = %d, want %d (%v)", len(got), len(wantOrder), wantOrder)
	} else {
		for i := range wantOrder {
			if got[i] != wantOrder[i] {
				t.Fatalf("TargetOrder[%d] = %q, want %q", i, got[i], wantOrder[i])
			}
		}
	}
}

func TestManifestDefaultTargetMissing(t *testing.T) {
	path := writeManifest(t, `
name: demo
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest error: %v", err)
	}
	if _, err := manifest.DefaultTarget(); !errors.Is(err, ErrNoTargets) {
		t.Fatalf("DefaultTarget error = %v, want ErrNoTargets", err)
	}
}

func TestManifestFindTarget(t *testing.T) {
	path := writeManifest(t, `
name: demo
targets:
  app-server: app.wave
  helper: helper.wave
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest error: %v", err)
	}

	if target, ok := manifest.FindTarget("app-server"); !ok || target == nil || target.OriginalName != "app-server" {
		t.Fatalf("FindTarget app-server failed: %#v", target)
	}
	if target, ok := manifest.FindTarget("app_server"); !ok || target == nil || target.OriginalName != "app-server" {
		t.Fatalf("FindTarget sanitized app_server failed: %#v", target)
	}
	if target, ok := manifest.FindTarget("APP-SERVER"); !ok || target == nil || target.OriginalName != "app-server" {
		t.Fatalf("FindTarget case-insensitive lookup failed: %#v", target)
	}
	if target, ok := manifest.FindTarget("missing"); ok || target != nil {
		t.Fatalf("FindTarget missing should be nil, got %#v", target)
	}
}

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestFileName)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}
