package callsite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/callsite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		root       string
		module     string
		file       string
		bundled    bool
		dependency bool
	}{
		{
			name:   "dev server url with query",
			raw:    "http://localhost:5173/src/features/registration/RegisterForm.tsx?t=1700000000",
			module: "features.registration",
			file:   "features/registration/RegisterForm.tsx",
		},
		{
			name:   "absolute path truncated through src",
			raw:    "/home/dev/portal/src/components/Button.tsx",
			module: "components",
			file:   "components/Button.tsx",
		},
		{
			name:   "goroot frame",
			raw:    "/usr/local/go/src/testing/testing.go",
			module: "testing",
			file:   "testing/testing.go",
		},
		{
			name:   "project root trimmed",
			raw:    "/root/project/pkg/forms/register.go",
			root:   "/root/project/",
			module: "pkg.forms",
			file:   "pkg/forms/register.go",
		},
		{
			name:   "windows separators",
			raw:    `C:\app\src\forms\a.go`,
			module: "forms",
			file:   "forms/a.go",
		},
		{
			name:   "file at root",
			raw:    "main.go",
			module: "main",
			file:   "main.go",
		},
		{
			name:    "hashed asset",
			raw:     "https://portal.example.com/assets/index-a1b2c3d4.js",
			module:  "-",
			file:    "-",
			bundled: true,
		},
		{
			name:    "hashed dist chunk",
			raw:     "/app/dist/js/chunk.8f3a9c2be1.js",
			module:  "-",
			file:    "-",
			bundled: true,
		},
		{
			name:       "go module cache",
			raw:        "/home/dev/go/pkg/mod/github.com/go-chi/chi/v5@v5.2.4/mux.go",
			module:     "deps.github.com/go-chi/chi/v5",
			file:       "github.com/go-chi/chi/v5@v5.2.4/mux.go",
			dependency: true,
		},
		{
			name:       "scoped node module",
			raw:        "http://localhost:5173/node_modules/@tanstack/react-query/build/index.js",
			module:     "deps.@tanstack/react-query",
			file:       "@tanstack/react-query/build/index.js",
			dependency: true,
		},
		{
			name:       "vendor tree",
			raw:        "/app/vendor/github.com/foo/bar/x.go",
			module:     "deps.github.com/foo/bar",
			file:       "github.com/foo/bar/x.go",
			dependency: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := callsite.Normalizer{ProjectRoot: tt.root}
			loc := n.Normalize(tt.raw)

			assert.Equal(t, tt.module, loc.Module)
			require.NotNil(t, loc.FilePath)
			assert.Equal(t, tt.file, *loc.FilePath)
			assert.Equal(t, tt.bundled, loc.Bundled)
			assert.Equal(t, tt.dependency, loc.Dependency)
		})
	}
}

func TestNormalizeFrame(t *testing.T) {
	n := callsite.Normalizer{
		ModulePath:  "github.com/acme/app",
		MainPackage: "github.com/acme/app/cmd/api",
	}

	tests := []struct {
		name       string
		function   string
		file       string
		module     string
		path       string
		dependency bool
	}{
		{
			name:     "checkout path is dropped",
			function: "github.com/acme/app/pkg/forms.(*Form).Submit",
			file:     "/home/ci/builds/42/app/pkg/forms/register.go",
			module:   "pkg.forms",
			path:     "pkg/forms/register.go",
		},
		{
			name:     "other checkout gives the same identity",
			function: "github.com/acme/app/pkg/forms.(*Form).Submit",
			file:     "/Users/dev/src/acme/app/pkg/forms/register.go",
			module:   "pkg.forms",
			path:     "pkg/forms/register.go",
		},
		{
			name:     "trimpath build",
			function: "github.com/acme/app/pkg/forms.Submit",
			file:     "github.com/acme/app/pkg/forms/register.go",
			module:   "pkg.forms",
			path:     "pkg/forms/register.go",
		},
		{
			name:     "external test package",
			function: "github.com/acme/app/pkg/forms_test.TestSubmit",
			file:     "/work/app/pkg/forms/register_test.go",
			module:   "pkg.forms",
			path:     "pkg/forms/register_test.go",
		},
		{
			name:     "package main",
			function: "main.run",
			file:     "/work/app/cmd/api/main.go",
			module:   "cmd.api",
			path:     "cmd/api/main.go",
		},
		{
			name:     "module root package",
			function: "github.com/acme/app.Version",
			file:     "/work/app/version.go",
			module:   "version",
			path:     "version.go",
		},
		{
			name:     "file outside the package dir uses path rules",
			function: "github.com/acme/app/pkg/forms.Submit",
			file:     "/work/app/src/generated/forms.go",
			module:   "generated",
			path:     "generated/forms.go",
		},
		{
			name:       "trimpath dependency",
			function:   "github.com/go-chi/chi/v5.(*Mux).ServeHTTP",
			file:       "github.com/go-chi/chi/v5@v5.2.4/mux.go",
			module:     "deps.github.com/go-chi/chi/v5",
			path:       "github.com/go-chi/chi/v5@v5.2.4/mux.go",
			dependency: true,
		},
		{
			name:     "standard library",
			function: "net/http.HandlerFunc.ServeHTTP",
			file:     "/usr/local/go/src/net/http/server.go",
			module:   "net.http",
			path:     "net/http/server.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := n.NormalizeFrame(tt.function, tt.file)

			assert.Equal(t, tt.module, loc.Module)
			require.NotNil(t, loc.FilePath)
			assert.Equal(t, tt.path, *loc.FilePath)
			assert.Equal(t, tt.dependency, loc.Dependency)
		})
	}
}

func TestNormalizeFramePrefersProjectRoot(t *testing.T) {
	n := callsite.Normalizer{ProjectRoot: "/work/app/pkg", ModulePath: "github.com/acme/app"}

	loc := n.NormalizeFrame("github.com/acme/app/pkg/forms.Submit", "/work/app/pkg/forms/register.go")

	require.NotNil(t, loc.FilePath)
	assert.Equal(t, "forms/register.go", *loc.FilePath)
	assert.Equal(t, "forms", loc.Module)
}

func TestNormalizeFrameFromGoMod(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/demo\n\ngo 1.25\n"), 0o600))
	n := callsite.Normalizer{LookupGoMod: true}

	loc := n.NormalizeFrame("example.com/demo/internal/store.(*Store).Get", filepath.ToSlash(root)+"/internal/store/get.go")

	require.NotNil(t, loc.FilePath)
	assert.Equal(t, "internal/store/get.go", *loc.FilePath)
	assert.Equal(t, "internal.store", loc.Module)

	foreign := n.NormalizeFrame("example.com/other.Run", filepath.ToSlash(root)+"/vendor/example.com/other/run.go")
	assert.True(t, foreign.Dependency)
}

func TestNormalizeUnresolvable(t *testing.T) {
	for _, raw := range []string{"", "   ", "http://localhost:5173"} {
		loc := callsite.Normalizer{}.Normalize(raw)
		assert.Equal(t, "unknown", loc.Module, "raw %q", raw)
		assert.Nil(t, loc.FilePath, "raw %q", raw)
	}
}

func TestNormalizeCustomDependencyRoot(t *testing.T) {
	n := callsite.Normalizer{DependencyRoot: "node_modules"}
	loc := n.Normalize("/app/node_modules/axios/lib/core/Axios.js")
	assert.Equal(t, "node_modules.axios", loc.Module)
}

func TestShortFunction(t *testing.T) {
	tests := map[string]string{
		"github.com/acme/app/pkg/forms.(*Form).Submit": "(*Form).Submit",
		"main.main":                                   "main",
		"main.main.func1":                             "main.func1",
		"github.com/acme/app/pkg/forms.glob..func1":   "anonymous",
		"github.com/acme/app/pkg/forms.Map[...]":      "Map",
		"":                                            "unknown",
	}

	for input, expected := range tests {
		assert.Equal(t, expected, callsite.ShortFunction(input), "input %q", input)
	}
}

func TestPackageOf(t *testing.T) {
	assert.Equal(t, "github.com/acme/app/pkg/forms", callsite.PackageOf("github.com/acme/app/pkg/forms.(*Form).Submit"))
	assert.Equal(t, "main", callsite.PackageOf("main.main"))
	assert.Equal(t, "runtime/debug", callsite.PackageOf("runtime/debug.Stack"))
}

func TestInternalFrames(t *testing.T) {
	frames := callsite.NewInternalFrames()
	start := frames.Version()

	assert.True(t, frames.Contains("runtime.goexit"))
	assert.True(t, frames.Contains("runtime/debug.Stack"))
	assert.True(t, frames.Contains("github.com/JailtonJunior94/logkit/pkg/callsite.(*RuntimeResolver).Resolve"))
	assert.False(t, frames.Contains("github.com/acme/app/pkg/forms.Submit"))

	frames.Register("github.com/acme/app/pkg/forms")
	assert.True(t, frames.Contains("github.com/acme/app/pkg/forms.Submit"))
	assert.False(t, frames.Contains("github.com/acme/app/pkg/formsx.Submit"))
	assert.Equal(t, start+1, frames.Version())

	frames.Register("github.com/acme/app/pkg/forms", "")
	assert.Equal(t, start+1, frames.Version())
}
