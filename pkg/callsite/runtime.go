package callsite

import "runtime"

const maxFrames = 32

// Option configures the resolvers of this package.
type Option func(*options)

type options struct {
	internal     *InternalFrames
	normalizer   Normalizer
	capture      func() []byte
	modulePathOK bool
}

// WithInternalFrames sets the registry of skipped packages.
func WithInternalFrames(frames *InternalFrames) Option {
	return func(o *options) {
		if frames != nil {
			o.internal = frames
		}
	}
}

// WithNormalizer sets how frame locations are normalized.
func WithNormalizer(n Normalizer) Option {
	return func(o *options) {
		o.normalizer = n
	}
}

// WithProjectRoot trims root from resolved file paths.
func WithProjectRoot(root string) Option {
	return func(o *options) {
		o.normalizer.ProjectRoot = root
	}
}

// WithModulePath names the main module and package main explicitly instead
// of reading them from the binary's build info. Empty values disable
// module-relative naming.
func WithModulePath(modulePath, mainPackage string) Option {
	return func(o *options) {
		o.normalizer.ModulePath = modulePath
		o.normalizer.MainPackage = mainPackage
		o.normalizer.LookupGoMod = false
		o.modulePathOK = true
	}
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.internal == nil {
		o.internal = NewInternalFrames()
	}
	if !o.modulePathOK && o.normalizer.ModulePath == "" {
		o.normalizer.ModulePath, o.normalizer.MainPackage = BuildModule()
		o.normalizer.LookupGoMod = o.normalizer.ModulePath == ""
	}
	return o
}

// RuntimeResolver resolves call sites from the program counters of the
// calling goroutine.
type RuntimeResolver struct {
	internal   *InternalFrames
	normalizer Normalizer
	counters
}

// NewRuntimeResolver creates a resolver backed by runtime.CallersFrames.
func NewRuntimeResolver(opts ...Option) *RuntimeResolver {
	o := buildOptions(opts)
	return &RuntimeResolver{
		internal:   o.internal,
		normalizer: o.normalizer,
	}
}

// Resolve walks the stack from the most recent frame outward and returns the
// first frame that is neither internal nor one of the skip extra frames.
func (r *RuntimeResolver) Resolve(skip int) (origin Origin) {
	defer func() {
		if rec := recover(); rec != nil {
			origin = r.failure()
		}
	}()

	pcs := make([]uintptr, maxFrames)
	// 0: runtime.Callers, 1: Resolve
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return r.failure()
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()

		if !r.internal.Contains(frame.Function) {
			if skip <= 0 {
				if o, ok := frameOrigin(r.normalizer, frame.Function, frame.File, frame.Line); ok {
					return r.success(o)
				}
				return r.failure()
			}
			skip--
		}

		if !more {
			break
		}
	}

	return r.failure()
}

// Stats returns resolution counters.
func (r *RuntimeResolver) Stats() Stats {
	return r.snapshot()
}
