package callsite

import (
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"

	"golang.org/x/mod/modfile"
)

var buildModule = sync.OnceValues(func() (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	mainPkg := info.Path
	// go test binaries report the tested package with a .test suffix; their
	// package main is generated and has no source directory.
	if strings.HasSuffix(mainPkg, ".test") || mainPkg == "command-line-arguments" {
		mainPkg = ""
	}
	return info.Main.Path, mainPkg
})

// BuildModule returns the main module path and the package main import path
// recorded in the running binary. Both are empty without build info.
func BuildModule() (modulePath, mainPackage string) {
	return buildModule()
}

type moduleRoot struct {
	dir  string
	path string
}

// moduleRoots caches go.mod lookups by slash separated directory.
var moduleRoots sync.Map

// findModule walks up from dir to the nearest go.mod. The zero moduleRoot
// means none was found.
func findModule(dir string) moduleRoot {
	if v, ok := moduleRoots.Load(dir); ok {
		return v.(moduleRoot)
	}

	var root moduleRoot
	if data, err := os.ReadFile(filepath.Join(filepath.FromSlash(dir), "go.mod")); err == nil {
		root = moduleRoot{dir: dir, path: modfile.ModulePath(data)}
	} else if parent := path.Dir(dir); parent != dir && parent != "." {
		root = findModule(parent)
	}

	moduleRoots.Store(dir, root)
	return root
}
