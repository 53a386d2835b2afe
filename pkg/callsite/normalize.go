package callsite

import (
	"path"
	"regexp"
	"strings"

	"github.com/JailtonJunior94/logkit/pkg/logentry"
)

// DefaultDependencyRoot prefixes the module tag of third-party frames.
const DefaultDependencyRoot = "deps"

// bundledPattern matches hashed build artifacts such as dist/index-a1b2c3d4.js.
var bundledPattern = regexp.MustCompile(`(^|/)(assets|dist)/(.+/)?[^/]*[-.][A-Za-z0-9_]{8,}\.[a-z]+$`)

var anonymousFunc = regexp.MustCompile(`^(glob\.\.)?func\d+$`)

// versionedModule matches module cache paths as printed by -trimpath builds,
// e.g. github.com/go-chi/chi/v5@v5.2.4/mux.go.
var versionedModule = regexp.MustCompile(`^([^@]+)@v[0-9][^/]*/`)

// Location is a normalized source location.
type Location struct {
	Module     string
	FilePath   *string
	Bundled    bool
	Dependency bool
}

// Normalizer turns raw frame locations (absolute paths, URLs) into project
// relative paths and dotted module names.
type Normalizer struct {
	// ProjectRoot is trimmed from the start of locations when present.
	ProjectRoot string
	// DependencyRoot replaces DefaultDependencyRoot when set.
	DependencyRoot string
	// ModulePath is the import path of the main module. Go frames of its
	// packages are named relative to it, independent of the checkout dir.
	ModulePath string
	// MainPackage is the import path of package main in this binary.
	MainPackage string
	// LookupGoMod finds the module of a frame from the nearest go.mod above
	// its file when ModulePath is empty.
	LookupGoMod bool
}

// NormalizeFrame normalizes the location of a Go frame. A file under
// ProjectRoot keeps the root-relative path; otherwise frames of the main
// module become <package dir relative to the module>/<file>.
func (n Normalizer) NormalizeFrame(function, file string) Location {
	if !n.underProjectRoot(file) {
		if loc, ok := n.moduleLocation(function, file); ok {
			return loc
		}
	}
	return n.Normalize(file)
}

func (n Normalizer) underProjectRoot(file string) bool {
	root := strings.TrimSuffix(strings.ReplaceAll(n.ProjectRoot, `\`, "/"), "/")
	return root != "" && strings.HasPrefix(strings.ReplaceAll(file, `\`, "/"), root+"/")
}

func (n Normalizer) moduleLocation(function, file string) (Location, bool) {
	if file == "" || function == "" {
		return Location{}, false
	}
	file = strings.ReplaceAll(file, `\`, "/")

	mod := strings.TrimSuffix(n.ModulePath, "/")
	if mod == "" && n.LookupGoMod {
		mod = findModule(path.Dir(file)).path
	}
	if mod == "" {
		return Location{}, false
	}

	pkg := PackageOf(function)
	if pkg == "main" {
		pkg = n.MainPackage
	}
	pkg = strings.TrimSuffix(pkg, "_test")

	var rel string
	switch {
	case pkg == mod:
	case strings.HasPrefix(pkg, mod+"/"):
		rel = pkg[len(mod)+1:]
	default:
		return Location{}, false
	}

	// The frame must really live in the package directory; captured stacks
	// of other builds and //line directives fall back to path rules.
	dir := path.Dir(file)
	if rel != "" && dir != rel && !strings.HasSuffix(dir, "/"+rel) {
		return Location{}, false
	}

	rel = path.Join(rel, path.Base(file))
	return Location{
		Module:   moduleFromPath(rel),
		FilePath: logentry.StringPtr(rel),
	}, true
}

// Normalize applies, in order: query stripping, URL reduction to its path,
// project root trimming, dependency detection, leading slash stripping,
// truncation through a "src/" segment and bundled artifact detection.
func (n Normalizer) Normalize(raw string) Location {
	loc := strings.TrimSpace(raw)
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	loc = strings.ReplaceAll(loc, `\`, "/")

	if i := strings.Index(loc, "://"); i >= 0 {
		rest := loc[i+3:]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			loc = rest[slash:]
		} else {
			loc = ""
		}
	}

	if root := strings.TrimSuffix(n.ProjectRoot, "/"); root != "" && strings.HasPrefix(loc, root+"/") {
		loc = loc[len(root)+1:]
	}

	if dep, ok := n.dependency(loc); ok {
		return dep
	}

	loc = strings.TrimLeft(loc, "/")
	loc = truncateSrc(loc)

	if loc == "" {
		return Location{Module: logentry.UnknownValue}
	}

	if bundledPattern.MatchString(loc) {
		return Location{
			Module:   logentry.BundledValue,
			FilePath: logentry.StringPtr(logentry.BundledValue),
			Bundled:  true,
		}
	}

	return Location{
		Module:   moduleFromPath(loc),
		FilePath: logentry.StringPtr(loc),
	}
}

func (n Normalizer) dependencyRoot() string {
	if n.DependencyRoot != "" {
		return n.DependencyRoot
	}
	return DefaultDependencyRoot
}

// dependency detects third-party code: the Go module cache, vendor trees and
// node_modules.
func (n Normalizer) dependency(loc string) (Location, bool) {
	if rest, ok := afterSegment(loc, "pkg/mod/"); ok {
		pkg := rest
		if at := strings.Index(rest, "@"); at >= 0 {
			pkg = rest[:at]
		} else {
			pkg = path.Dir(rest)
		}
		return n.dependencyLocation(pkg, rest), true
	}

	if m := versionedModule.FindStringSubmatch(strings.TrimLeft(loc, "/")); m != nil {
		return n.dependencyLocation(m[1], strings.TrimLeft(loc, "/")), true
	}

	if rest, ok := afterSegment(loc, "vendor/"); ok {
		return n.dependencyLocation(path.Dir(rest), rest), true
	}

	if rest, ok := afterSegment(loc, "node_modules/"); ok {
		parts := strings.Split(rest, "/")
		pkg := parts[0]
		if strings.HasPrefix(pkg, "@") && len(parts) > 1 {
			pkg = pkg + "/" + parts[1]
		}
		return n.dependencyLocation(pkg, rest), true
	}

	return Location{}, false
}

func (n Normalizer) dependencyLocation(pkg, file string) Location {
	return Location{
		Module:     n.dependencyRoot() + "." + pkg,
		FilePath:   logentry.StringPtr(file),
		Dependency: true,
	}
}

// afterSegment returns what follows the last occurrence of segment when it
// starts a path segment.
func afterSegment(loc, segment string) (string, bool) {
	if strings.HasPrefix(loc, segment) {
		return loc[len(segment):], true
	}
	if i := strings.LastIndex(loc, "/"+segment); i >= 0 {
		return loc[i+1+len(segment):], true
	}
	return "", false
}

func truncateSrc(loc string) string {
	if strings.HasPrefix(loc, "src/") {
		return loc[len("src/"):]
	}
	if i := strings.Index(loc, "/src/"); i >= 0 {
		return loc[i+len("/src/"):]
	}
	return loc
}

// moduleFromPath joins the directory segments with dots. A file at the root
// is named after itself.
func moduleFromPath(file string) string {
	dir := path.Dir(file)
	if dir == "." || dir == "/" {
		base := path.Base(file)
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return strings.ReplaceAll(strings.Trim(dir, "/"), "/", ".")
}

// ShortFunction strips the import path and package from a fully qualified Go
// function name. Package level closures become "anonymous".
func ShortFunction(full string) string {
	if full == "" {
		return logentry.UnknownValue
	}

	name := full
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "[...]"); i >= 0 {
		name = name[:i] + name[i+len("[...]"):]
	}

	if name == "" {
		return logentry.UnknownValue
	}
	if anonymousFunc.MatchString(name) {
		return logentry.AnonymousFunction
	}
	return name
}
