package callsite_test

import (
	"path"
	"runtime"
	"strings"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/callsite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveHere(r callsite.Resolver) callsite.Origin {
	return r.Resolve(0)
}

func TestRuntimeResolverReportsCaller(t *testing.T) {
	r := callsite.NewRuntimeResolver()

	o := resolveHere(r)

	assert.Equal(t, "resolveHere", o.Function)
	require.NotNil(t, o.FilePath)
	assert.True(t, strings.HasSuffix(*o.FilePath, "callsite/resolver_test.go"), "file %s", *o.FilePath)
	require.NotNil(t, o.Line)
	assert.Positive(t, *o.Line)
	assert.Equal(t, callsite.Stats{Resolved: 1}, r.Stats())
}

func TestRuntimeResolverIsStablePerCallSite(t *testing.T) {
	r := callsite.NewRuntimeResolver()

	first := resolveHere(r)
	second := resolveHere(r)

	assert.Equal(t, first.Module, second.Module)
	assert.Equal(t, *first.FilePath, *second.FilePath)
	assert.Equal(t, first.Function, second.Function)
	assert.Equal(t, *first.Line, *second.Line)
}

func TestRuntimeResolverSkipsWrappers(t *testing.T) {
	r := callsite.NewRuntimeResolver()
	wrapper := func() callsite.Origin {
		return r.Resolve(1)
	}

	o := wrapper()

	assert.Equal(t, "TestRuntimeResolverSkipsWrappers", o.Function)
}

func TestRuntimeResolverSkipsRegisteredPackages(t *testing.T) {
	frames := callsite.NewInternalFrames("github.com/JailtonJunior94/logkit/pkg/callsite_test")
	r := callsite.NewRuntimeResolver(callsite.WithInternalFrames(frames))

	o := resolveHere(r)

	assert.Equal(t, "tRunner", o.Function)
	assert.Equal(t, "testing", o.Module)
}

func TestRuntimeResolverProjectRoot(t *testing.T) {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	root := path.Dir(path.Dir(file))
	r := callsite.NewRuntimeResolver(callsite.WithProjectRoot(root))

	o := resolveHere(r)

	require.NotNil(t, o.FilePath)
	assert.Equal(t, "callsite/resolver_test.go", *o.FilePath)
	assert.Equal(t, "callsite", o.Module)
}

func TestRuntimeResolverNamesFramesRelativeToModule(t *testing.T) {
	r := callsite.NewRuntimeResolver()

	o := resolveHere(r)

	require.NotNil(t, o.FilePath)
	assert.Equal(t, "pkg/callsite/resolver_test.go", *o.FilePath)
	assert.Equal(t, "pkg.callsite", o.Module)
}

func TestRuntimeResolverWithoutModulePath(t *testing.T) {
	r := callsite.NewRuntimeResolver(callsite.WithModulePath("", ""))

	o := resolveHere(r)

	require.NotNil(t, o.FilePath)
	assert.True(t, strings.HasSuffix(*o.FilePath, "callsite/resolver_test.go"), "file %s", *o.FilePath)
}

func TestRuntimeResolverExhaustedStack(t *testing.T) {
	r := callsite.NewRuntimeResolver()

	o := r.Resolve(1000)

	assert.Equal(t, callsite.Unknown(), o)
	assert.Equal(t, uint64(1), r.Stats().Failed)
}

const capturedStack = `goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/JailtonJunior94/logkit/pkg/logkit.(*Logger).Log(0xc000120000, {0x1, 0x2})
	/app/pkg/logkit/logger.go:120 +0x25
github.com/acme/portal/features/registration.(*Form).Submit(...)
	/app/src/features/registration/form.go:42 +0x1d
main.main()
	/app/src/main.go:10 +0x1d
`

func TestStackResolverParsesCapturedTrace(t *testing.T) {
	frames := callsite.NewInternalFrames("github.com/JailtonJunior94/logkit/pkg/logkit")
	r := callsite.NewStackResolver(
		callsite.WithInternalFrames(frames),
		callsite.WithCapture(func() []byte { return []byte(capturedStack) }),
	)

	o := r.Resolve(0)
	assert.Equal(t, "features.registration", o.Module)
	require.NotNil(t, o.FilePath)
	assert.Equal(t, "features/registration/form.go", *o.FilePath)
	assert.Equal(t, "(*Form).Submit", o.Function)
	require.NotNil(t, o.Line)
	assert.Equal(t, 42, *o.Line)

	outer := r.Resolve(1)
	assert.Equal(t, "main", outer.Function)
	assert.Equal(t, "main", outer.Module)
}

func TestStackResolverUnparsableTrace(t *testing.T) {
	r := callsite.NewStackResolver(callsite.WithCapture(func() []byte {
		return []byte("not a stack trace at all")
	}))

	assert.Equal(t, callsite.Unknown(), r.Resolve(0))
	assert.Equal(t, callsite.Stats{Failed: 1}, r.Stats())
}

func TestStackResolverPanickingCapture(t *testing.T) {
	r := callsite.NewStackResolver(callsite.WithCapture(func() []byte {
		panic("no stack for you")
	}))

	assert.NotPanics(t, func() {
		assert.Equal(t, callsite.Unknown(), r.Resolve(0))
	})
}

func stackHere(r callsite.Resolver) callsite.Origin {
	return r.Resolve(0)
}

func TestStackResolverWithRealStack(t *testing.T) {
	r := callsite.NewStackResolver()

	o := stackHere(r)

	assert.Equal(t, "stackHere", o.Function)
	require.NotNil(t, o.FilePath)
	assert.True(t, strings.HasSuffix(*o.FilePath, "callsite/resolver_test.go"))
}

func TestParseGoStack(t *testing.T) {
	frames := callsite.ParseGoStack([]byte(capturedStack + "created by main.start in goroutine 1\n\t/app/src/main.go:5 +0x10\n"))

	require.Len(t, frames, 5)
	assert.Equal(t, "runtime/debug.Stack", frames[0].Function)
	assert.Equal(t, "github.com/JailtonJunior94/logkit/pkg/logkit.(*Logger).Log", frames[1].Function)
	assert.Equal(t, 120, frames[1].Line)
	assert.Equal(t, "main.start", frames[4].Function)
}

func TestStaticResolver(t *testing.T) {
	r := callsite.NewStaticResolver("features.registration", "features/registration/form.go", "Submit", 12)

	o := r.Resolve(3)
	*o.FilePath = "mutated"

	again := r.Resolve(0)
	assert.Equal(t, "features/registration/form.go", *again.FilePath)
	assert.Equal(t, 12, *again.Line)
	assert.Equal(t, "Submit", again.Function)

	empty := callsite.NewStaticResolver("", "", "", 0).Resolve(0)
	assert.Equal(t, callsite.Unknown(), empty)
}
