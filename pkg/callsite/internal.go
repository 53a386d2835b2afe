package callsite

import (
	"reflect"
	"strings"
	"sync"
)

// InternalFrames is the explicit registry of packages whose frames are never
// reported as call sites. Matching is by exact import path, not by substring.
// Version increases with every registration.
type InternalFrames struct {
	mu       sync.RWMutex
	packages map[string]struct{}
	version  int
}

// NewInternalFrames creates a registry that already contains this package.
func NewInternalFrames(pkgPaths ...string) *InternalFrames {
	f := &InternalFrames{packages: make(map[string]struct{})}
	f.Register(reflect.TypeOf(Origin{}).PkgPath())
	f.Register(pkgPaths...)
	return f
}

// Register adds package import paths to the registry.
func (f *InternalFrames) Register(pkgPaths ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, path := range pkgPaths {
		if path == "" {
			continue
		}
		if _, exists := f.packages[path]; exists {
			continue
		}
		f.packages[path] = struct{}{}
		f.version++
	}
}

// Version returns the registry revision.
func (f *InternalFrames) Version() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

// Contains reports whether the fully qualified function belongs to a
// registered package or to the Go runtime.
func (f *InternalFrames) Contains(function string) bool {
	pkg := PackageOf(function)
	if pkg == "runtime" || strings.HasPrefix(pkg, "runtime/") {
		return true
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.packages[pkg]
	return ok
}

// PackageOf extracts the import path from a fully qualified function name such
// as "github.com/acme/app/pkg/forms.(*Form).Submit".
func PackageOf(function string) string {
	lastSlash := strings.LastIndex(function, "/")
	rest := function[lastSlash+1:]

	dot := strings.Index(rest, ".")
	if dot < 0 {
		return function
	}
	return function[:lastSlash+1+dot]
}
