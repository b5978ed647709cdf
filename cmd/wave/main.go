package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wave/interpreter-go/pkg/driver"
	"wave/interpreter-go/pkg/interpreter"
)

const cliToolVersion = "wave 0.1.0"

var errManifestNotFound = errors.New("package.yml not found")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(args[1:])
	case "check":
		return runCheck(args[1:])
	case "repl":
		return runRepl(args[1:])
	case "test":
		return runTest(args[1:])
	case "deps":
		return runDeps(args[1:])
	default:
		if looksLikePathCandidate(args[0]) {
			return runEntry(args)
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		printUsage()
		return 2
	}
}

func runEntry(args []string) int {
	var manifest *driver.Manifest
	var manifestErr error

	if len(args) <= 1 {
		manifest, manifestErr = loadManifestFrom(".")
		if manifestErr != nil {
			switch {
			case errors.Is(manifestErr, errManifestNotFound):
				// No manifest nearby; fall back to file-based invocation if possible.
				manifest = nil
			case len(args) == 1 && looksLikePathCandidate(args[0]):
				fmt.Fprintf(os.Stderr, "warning: unable to load manifest (%v); falling back to direct file execution\n", manifestErr)
				manifest = nil
			default:
				fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", manifestErr)
				return 1
			}
		}
	}

	if len(args) == 0 {
		if manifest == nil {
			fmt.Fprintln(os.Stderr, "wave run requires a manifest target or source file (package.yml not found)")
			return 2
		}
		if _, err := loadLockfileForManifest(manifest); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		target, err := manifest.DefaultTarget()
		if err != nil {
			fmt.Fprintf(os.Stderr, "manifest error: %v\n", err)
			return 1
		}
		entryPath, err := resolveTargetMain(manifest, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to resolve target entrypoint: %v\n", err)
			return 1
		}
		return executeEntry(entryPath, manifest)
	}

	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return 2
	}

	candidate := args[0]
	activeManifest := manifest
	if manifest != nil {
		if target, ok := manifest.FindTarget(candidate); ok && target != nil {
			entryPath, err := resolveTargetMain(manifest, target)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to resolve target %q: %v\n", target.OriginalName, err)
				return 1
			}
			if _, err := loadLockfileForManifest(manifest); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				return 1
			}
			return executeEntry(entryPath, manifest)
		}
	}

	if absCandidate, err := filepath.Abs(candidate); err == nil {
		entryDir := filepath.Dir(absCandidate)
		if manifestPath, findErr := findManifest(entryDir); findErr == nil {
			if activeManifest == nil || filepath.Clean(activeManifest.Path) != filepath.Clean(manifestPath) {
				m, loadErr := driver.LoadManifest(manifestPath)
				if loadErr != nil {
					fmt.Fprintf(os.Stderr, "failed to read manifest for %s: %v\n", candidate, loadErr)
					return 1
				}
				activeManifest = m
			}
		} else if !errors.Is(findErr, errManifestNotFound) {
			fmt.Fprintf(os.Stderr, "failed to locate manifest for %s: %v\n", candidate, findErr)
			return 1
		}
	}

	// Treat the argument as a direct source file path.
	if _, err := loadLockfileForManifest(activeManifest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return executeEntry(candidate, activeManifest)
}

// executeEntry loads path through the driver pipeline and invokes the
// entry function, honoring the manifest's entry override when a
// manifest governs the file.
func executeEntry(path string, manifest *driver.Manifest) int {
	path = strings.TrimSpace(path)
	if path == "" {
		fmt.Fprintln(os.Stderr, "wave run requires a source file")
		return 2
	}

	program, err := driver.LoadFile(path)
	if err != nil {
		reportLoadError(err)
		return 1
	}

	interp := interpreter.New()
	if err := interp.LoadProgram(program.AST); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	entry := driver.DefaultEntryFunction
	if manifest != nil {
		entry = manifest.EntryFunction()
	}
	if err := interp.Run(entry); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func runCheck(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "wave check requires exactly one source file")
		return 2
	}
	if _, err := driver.LoadFile(args[0]); err != nil {
		var checkErr *driver.CheckError
		if errors.As(err, &checkErr) {
			for _, diag := range checkErr.Diagnostics {
				fmt.Fprintln(os.Stderr, driver.Describe(diag))
			}
			return 1
		}
		reportLoadError(err)
		return 1
	}
	fmt.Fprintf(os.Stdout, "%s: ok\n", args[0])
	return 0
}

// reportLoadError prints loader failures. Positioned lex and parse
// errors arrive pre-rendered with their caret snippet; everything else
// gets a plain prefix.
func reportLoadError(err error) {
	var srcErr *driver.SourceError
	var checkErr *driver.CheckError
	switch {
	case errors.As(err, &srcErr):
		fmt.Fprintln(os.Stderr, srcErr)
	case errors.As(err, &checkErr):
		fmt.Fprintln(os.Stderr, checkErr)
	default:
		fmt.Fprintf(os.Stderr, "failed to load program: %v\n", err)
	}
}

func runDeps(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "wave deps requires a subcommand (install, update)")
		return 2
	}
	switch args[0] {
	case "install":
		if len(args) > 1 {
			fmt.Fprintf(os.Stderr, "wave deps install does not take arguments (received %s)\n", strings.Join(args[1:], " "))
			return 2
		}
		return runDepsInstall()
	case "update":
		return runDepsUpdate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown deps subcommand %q\n", args[0])
		return 2
	}
}

func runDepsInstall() int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to determine working directory: %v\n", err)
		return 1
	}
	manifestPath, err := findManifest(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to locate package.yml: %v\n", err)
		return 1
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read manifest: %v\n", err)
		return 1
	}
	cacheDir, err := resolveWaveHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve WAVE_HOME: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Manifest: %s\n", manifest.Path)
	fmt.Fprintf(os.Stdout, "Root package: %s\n", manifest.Name)
	fmt.Fprintf(os.Stdout, "Dependencies: %d\n", len(manifest.Dependencies))
	fmt.Fprintf(os.Stdout, "Cache directory: %s\n", cacheDir)

	lockPath := filepath.Join(filepath.Dir(manifest.Path), driver.LockFileName)
	lock, err := driver.LoadLockfile(lockPath)
	lockCreated := false
	switch {
	case err == nil:
		if lock.Root != manifest.Name {
			fmt.Fprintf(os.Stderr, "lockfile root %q does not match manifest name %q\n", lock.Root, manifest.Name)
			return 1
		}
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
		lock.Path = lockPath
		lockCreated = true
	default:
		fmt.Fprintf(os.Stderr, "failed to read lockfile: %v\n", err)
		return 1
	}

	lock.Path = lockPath
	lock.Tool = cliToolVersion

	installer := newDependencyInstaller(manifest, cacheDir)
	changed, logs, err := installer.Install(lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve dependencies: %v\n", err)
		return 1
	}
	for _, line := range logs {
		fmt.Fprintln(os.Stdout, line)
	}

	if changed || lockCreated {
		action := "Updated"
		if lockCreated {
			action = "Created"
		}
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write lockfile: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "%s %s: %s\n", action, driver.LockFileName, lock.Path)
	} else {
		fmt.Fprintf(os.Stdout, "%s already up to date: %s\n", driver.LockFileName, lock.Path)
	}

	fmt.Fprintln(os.Stdout, "Dependencies installed.")
	return 0
}

func runDepsUpdate(targets []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to determine working directory: %v\n", err)
		return 1
	}
	manifestPath, err := findManifest(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to locate package.yml: %v\n", err)
		return 1
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read manifest: %v\n", err)
		return 1
	}
	cacheDir, err := resolveWaveHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve WAVE_HOME: %v\n", err)
		return 1
	}

	updateSet := make(map[string]struct{})
	if len(targets) > 0 {
		manifestDeps := make(map[string]struct{}, len(manifest.Dependencies))
		for name := range manifest.Dependencies {
			manifestDeps[sanitizeName(name)] = struct{}{}
		}
		for _, target := range targets {
			sanitized := sanitizeName(target)
			if _, ok := manifestDeps[sanitized]; !ok {
				fmt.Fprintf(os.Stderr, "dependency %q not declared in manifest\n", target)
				return 1
			}
			updateSet[sanitized] = struct{}{}
		}
	}

	lockPath := filepath.Join(filepath.Dir(manifest.Path), driver.LockFileName)
	lock, err := driver.LoadLockfile(lockPath)
	lockCreated := false
	switch {
	case err == nil:
		if lock.Root != manifest.Name {
			fmt.Fprintf(os.Stderr, "lockfile root %q does not match manifest name %q\n", lock.Root, manifest.Name)
			return 1
		}
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
		lock.Path = lockPath
		lockCreated = true
	default:
		fmt.Fprintf(os.Stderr, "failed to read lockfile: %v\n", err)
		return 1
	}

	if len(updateSet) == 0 {
		lock.Packages = nil
	} else {
		filtered := make([]*driver.LockedPackage, 0, len(lock.Packages))
		for _, pkg := range lock.Packages {
			if pkg == nil {
				continue
			}
			if _, ok := updateSet[sanitizeName(pkg.Name)]; ok {
				continue
			}
			filtered = append(filtered, pkg)
		}
		lock.Packages = filtered
	}

	installer := newDependencyInstaller(manifest, cacheDir)
	changed, logs, err := installer.Install(lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to update dependencies: %v\n", err)
		return 1
	}
	for _, line := range logs {
		fmt.Fprintln(os.Stdout, line)
	}

	lock.Path = lockPath
	lock.Tool = cliToolVersion

	if changed || lockCreated {
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write lockfile: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "Updated %s: %s\n", driver.LockFileName, lock.Path)
	} else {
		fmt.Fprintln(os.Stdout, "Dependencies already up to date.")
	}
	return 0
}

func loadManifestFrom(start string) (*driver.Manifest, error) {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		start = cwd
	}
	absStart, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest search path %q: %w", start, err)
	}
	if info, statErr := os.Stat(absStart); statErr == nil && !info.IsDir() {
		absStart = filepath.Dir(absStart)
	}
	manifestPath, err := findManifest(absStart)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(manifestPath)
}

func findManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, driver.ManifestFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", driver.ManifestFileName, origin, errManifestNotFound)
		}
		dir = parent
	}
}

func resolveTargetMain(manifest *driver.Manifest, target *driver.Target) (string, error) {
	if manifest == nil || target == nil {
		return "", fmt.Errorf("missing manifest or target")
	}
	mainPath := strings.TrimSpace(target.Main)
	if mainPath == "" {
		return "", fmt.Errorf("target %q missing main entrypoint", target.OriginalName)
	}
	if filepath.IsAbs(mainPath) {
		return filepath.Clean(mainPath), nil
	}
	base := filepath.Dir(manifest.Path)
	if base == "" {
		return filepath.Clean(filepath.FromSlash(mainPath)), nil
	}
	return filepath.Join(base, filepath.FromSlash(mainPath)), nil
}

func looksLikePathCandidate(arg string) bool {
	if arg == "" {
		return false
	}
	if strings.Contains(arg, string(os.PathSeparator)) {
		return true
	}
	// Support forward/backward slashes regardless of host OS.
	if strings.Contains(arg, "/") || strings.Contains(arg, "\\") {
		return true
	}
	if filepath.Ext(arg) == driver.SourceExtension {
		return true
	}
	if strings.HasPrefix(arg, ".") {
		return true
	}
	return false
}

func resolveWaveHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv("WAVE_HOME")); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve WAVE_HOME %q: %w", home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".wave"), nil
}

func loadLockfileForManifest(manifest *driver.Manifest) (*driver.Lockfile, error) {
	if manifest == nil {
		return nil, nil
	}
	lockPath := filepath.Join(filepath.Dir(manifest.Path), driver.LockFileName)
	lock, err := driver.LoadLockfile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if len(manifest.Dependencies) > 0 {
				return nil, fmt.Errorf("%s missing for %q; run `wave deps install`", driver.LockFileName, manifest.Name)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lockfile %s: %w", lockPath, err)
	}
	if lock.Root != manifest.Name {
		return nil, fmt.Errorf("lockfile root %q does not match manifest name %q", lock.Root, manifest.Name)
	}
	return lock, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  wave run [target]")
	fmt.Fprintln(os.Stderr, "  wave run <file.wave>")
	fmt.Fprintln(os.Stderr, "  wave <file.wave>")
	fmt.Fprintln(os.Stderr, "  wave check <file.wave>")
	fmt.Fprintln(os.Stderr, "  wave repl")
	fmt.Fprintln(os.Stderr, "  wave test [dir]")
	fmt.Fprintln(os.Stderr, "  wave deps install")
	fmt.Fprintln(os.Stderr, "  wave deps update [dependency ...]")
	fmt.Fprintln(os.Stderr, "  wave version")
	fmt.Fprintln(os.Stderr, "  wave help")
}
